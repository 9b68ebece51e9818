package whop

import (
	"context"
	"strings"

	"whop-scraper/models"
)

// ExtractDetail visits a community page and enriches summary with what it
// finds. A page that never shows its heading yields the bare summary. The
// only error returned is cancellation of ctx.
func (s *Scraper) ExtractDetail(ctx context.Context, summary models.CommunitySummary) (*models.Community, error) {
	c := models.NewCommunity(summary)
	log := s.logger.With("url", summary.URL)
	log.Debug("[whop] Scraping detail page")

	if err := s.driver.Navigate(ctx, summary.URL); err != nil {
		if ctx.Err() != nil {
			return c, ctx.Err()
		}
		log.Warn("[whop] Detail navigation failed: %v", err)
		return c, nil
	}
	if _, err := s.driver.WaitFor(ctx, s.sel.DetailHeading, s.cfg.PageTimeout); err != nil {
		if ctx.Err() != nil {
			return c, ctx.Err()
		}
		log.Warn("[whop] Timeout while scraping detail page")
		return c, nil
	}
	s.dump(ctx, summary.URL)

	fields := []struct {
		name string
		dst  *string
		read func() (string, error)
	}{
		{"whop_ranking", &c.WhopRanking, func() (string, error) { return s.textOf(ctx, nil, s.sel.DetailRanking) }},
		{"founded_date", &c.FoundedDate, func() (string, error) { return s.textOf(ctx, nil, s.sel.DetailFounded) }},
		{"full_description", &c.FullDescription, func() (string, error) { return s.textOf(ctx, nil, s.sel.DetailDesc) }},
	}
	for _, f := range fields {
		v, err := f.read()
		if err != nil && ctx.Err() != nil {
			return c, ctx.Err()
		}
		*f.dst = v
	}
	c.Features = s.readFeatures(ctx)
	c.SocialLinks = s.readSocialAnchors(ctx)

	if err := s.detailProfile(ctx, c); err != nil {
		if ctx.Err() != nil {
			return c, ctx.Err()
		}
		log.Warn("[whop] Error with View Profile button: %v", err)
	}

	log.Debug("[whop] Scraped detail for %q", c.Name)
	return c, nil
}

func (s *Scraper) readFeatures(ctx context.Context) []string {
	items := s.all(ctx, nil, s.sel.DetailFeature)
	features := make([]string, 0, len(items))
	for _, li := range items {
		if text, err := s.text(ctx, li); err == nil && text != "" {
			features = append(features, text)
		}
	}
	return features
}

// readSocialAnchors collects Discord and Twitter links placed directly on
// the page, outside the profile overlay.
func (s *Scraper) readSocialAnchors(ctx context.Context) map[string]string {
	links := make(map[string]string)
	for _, a := range s.all(ctx, nil, s.sel.DetailSocialLink) {
		href, err := s.attr(ctx, a, "href")
		if err != nil || href == "" {
			continue
		}
		switch {
		case strings.Contains(href, "discord.com"):
			links[PlatformDiscord] = href
		case strings.Contains(href, "twitter.com"):
			links[PlatformTwitter] = href
		}
	}
	return links
}

// detailProfile opens the page's own profile overlay, if it has one.
func (s *Scraper) detailProfile(ctx context.Context, c *models.Community) error {
	button, err := s.find(ctx, nil, s.sel.ProfileButton)
	if err != nil {
		return err
	}
	if button == nil {
		s.logger.Debug("[whop] No View Profile button on %s", c.URL)
		return nil
	}
	profile, err := s.openProfile(ctx, button)
	if err != nil {
		return err
	}
	if !profile.Empty() {
		c.Profile = profile
	}
	return nil
}
