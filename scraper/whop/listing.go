package whop

import (
	"context"
	"errors"
	"strings"

	"whop-scraper/browser"
	"whop-scraper/models"
)

// ExtractList reads every community card on the current listing page.
// Each field is looked up on its own and reads as "" when missing; a card
// whose node goes stale mid-read is dropped from the page.
func (s *Scraper) ExtractList(ctx context.Context) ([]models.CommunitySummary, error) {
	if _, err := s.driver.WaitFor(ctx, s.sel.PageReady, s.cfg.PageTimeout); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger.Warn("[whop] Listing container not found: %v", err)
		return nil, nil
	}

	cards, err := s.findAll(ctx, nil, s.sel.Cards)
	if err != nil {
		return nil, err
	}

	summaries := make([]models.CommunitySummary, 0, len(cards))
	for i, card := range cards {
		summary, err := s.readCard(ctx, card)
		switch {
		case errors.Is(err, browser.ErrStale):
			s.logger.Debug("[whop] Card %d went stale, dropping it", i)
			continue
		case err != nil:
			return summaries, err
		case summary == nil:
			continue
		}
		s.logger.Debug("[whop] Found community %q at %s", summary.Name, summary.URL)
		summaries = append(summaries, *summary)
	}

	s.logger.Info("[whop] Found %d community links on this page", len(summaries))
	return summaries, nil
}

// readCard returns nil for cards that do not link to a community page.
func (s *Scraper) readCard(ctx context.Context, card browser.Element) (*models.CommunitySummary, error) {
	link, err := s.find(ctx, card, s.sel.CardLink)
	if err != nil || link == nil {
		return nil, err
	}
	href, err := s.attr(ctx, link, "href")
	if err != nil {
		return nil, err
	}
	if !strings.Contains(href, "/discover/") {
		return nil, nil
	}

	summary := &models.CommunitySummary{URL: href}
	fields := []struct {
		scope browser.Element
		loc   browser.Locator
		dst   *string
	}{
		{link, s.sel.CardName, &summary.Name},
		{link, s.sel.CardDesc, &summary.Description},
		{link, s.sel.CardPrice, &summary.PriceBadge},
		{card, s.sel.CardMinutes, &summary.MinutesSpent},
		{card, s.sel.CardJoined, &summary.JoinedCount},
	}
	for _, f := range fields {
		v, err := s.textOf(ctx, f.scope, f.loc)
		if err != nil {
			return nil, err
		}
		*f.dst = v
	}

	rating, err := s.readRating(ctx, card)
	if err != nil {
		return nil, err
	}
	summary.Rating = rating
	return summary, nil
}

// readRating counts the filled star icons inside the rating button and
// splits its label, e.g. "(128) · 3d", into count and relative time.
// Anything unreadable yields nil.
func (s *Scraper) readRating(ctx context.Context, card browser.Element) (*models.Rating, error) {
	btn, err := s.find(ctx, card, s.sel.RatingBtn)
	if err != nil || btn == nil {
		return nil, err
	}
	text, err := s.text(ctx, btn)
	if err != nil {
		return nil, err
	}
	parts := strings.Fields(text)
	if len(parts) == 0 {
		return nil, nil
	}
	stars, err := s.findAll(ctx, btn, s.sel.RatingStar)
	if err != nil {
		return nil, err
	}
	return &models.Rating{
		Stars:   len(stars),
		Count:   strings.Trim(parts[0], "()"),
		DaysAgo: strings.TrimSpace(parts[len(parts)-1]),
	}, nil
}
