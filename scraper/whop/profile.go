package whop

import (
	"context"
	"errors"
	"strings"

	"whop-scraper/browser"
	"whop-scraper/models"
	"whop-scraper/utils"
)

// Platform keys used in SocialProfile.Links.
const (
	PlatformTwitter   = "twitter"
	PlatformInstagram = "instagram"
	PlatformYouTube   = "youtube"
	PlatformTikTok    = "tiktok"
	PlatformFacebook  = "facebook"
	PlatformDiscord   = "discord"
	PlatformWebsite   = "website"
)

// platformPatterns is checked in order: URLs first across every platform,
// then accessible labels, then the website fallback.
var platformPatterns = []struct {
	platform string
	hrefs    []string
	labels   []string
}{
	{PlatformTwitter, []string{"twitter.com", "x.com"}, []string{"twitter", "x.com"}},
	{PlatformInstagram, []string{"instagram.com"}, []string{"instagram"}},
	{PlatformYouTube, []string{"youtube.com", "youtu.be"}, []string{"youtube"}},
	{PlatformTikTok, []string{"tiktok.com"}, []string{"tiktok"}},
	{PlatformFacebook, []string{"facebook.com", "fb.com"}, []string{"facebook"}},
	{PlatformDiscord, []string{"discord"}, []string{"discord"}},
}

// ClassifyPlatform names the platform a profile link points at.
func ClassifyPlatform(href, ariaLabel string) string {
	h := strings.ToLower(href)
	for _, p := range platformPatterns {
		for _, needle := range p.hrefs {
			if strings.Contains(h, needle) {
				return p.platform
			}
		}
	}
	label := strings.ToLower(ariaLabel)
	if label != "" {
		for _, p := range platformPatterns {
			for _, needle := range p.labels {
				if strings.Contains(label, needle) {
					return p.platform
				}
			}
		}
	}
	return PlatformWebsite
}

// ResolveOpenProfile reads an overlay that is already open. Username, links
// and bio are extracted independently; a failure in one leaves the others
// intact. The overlay is neither opened nor closed here.
func (s *Scraper) ResolveOpenProfile(ctx context.Context, overlay browser.Element) *models.SocialProfile {
	profile := &models.SocialProfile{Links: make(map[string]string)}

	if err := s.readUsername(ctx, overlay, profile); err != nil {
		s.logger.Debug("[whop] Profile username unreadable: %v", err)
	}
	if err := s.readLinks(ctx, overlay, profile); err != nil {
		s.logger.Debug("[whop] Profile links unreadable: %v", err)
	}
	if bio, err := s.textOf(ctx, overlay, s.sel.Bio); err != nil {
		s.logger.Debug("[whop] Profile bio unreadable: %v", err)
	} else {
		profile.Bio = bio
	}

	return profile
}

// readUsername looks for the first "username • joined date" text node.
func (s *Scraper) readUsername(ctx context.Context, overlay browser.Element, profile *models.SocialProfile) error {
	spans, err := s.findAll(ctx, overlay, s.sel.OverlayText)
	if err != nil {
		return err
	}
	for _, span := range spans {
		text, err := s.text(ctx, span)
		if err != nil {
			return err
		}
		name, joined, ok := strings.Cut(text, s.sel.UsernameDelim)
		if !ok {
			continue
		}
		profile.Username = strings.TrimSpace(name)
		profile.JoinDate = strings.TrimSpace(joined)
		return nil
	}
	return nil
}

func (s *Scraper) readLinks(ctx context.Context, overlay browser.Element, profile *models.SocialProfile) error {
	list, err := s.find(ctx, overlay, s.sel.LinksExact)
	if err != nil {
		return err
	}
	if list == nil {
		if list, err = s.find(ctx, overlay, s.sel.LinksPartial); err != nil || list == nil {
			return err
		}
	}

	items, err := s.findAll(ctx, list, s.sel.LinkItem)
	if err != nil {
		return err
	}
	for _, li := range items {
		a, err := s.find(ctx, li, s.sel.LinkAnchor)
		if err != nil || a == nil {
			continue
		}
		href, err := s.attr(ctx, a, "href")
		if err != nil || href == "" {
			continue
		}
		label, _ := s.attr(ctx, a, "aria-label")
		// One URL per platform; a later link replaces an earlier one.
		profile.Links[ClassifyPlatform(href, label)] = href
	}
	return nil
}

// openProfile clicks a "View Profile" button, resolves the overlay it opens
// and closes it again.
func (s *Scraper) openProfile(ctx context.Context, button browser.Element) (*models.SocialProfile, error) {
	if err := s.driver.ScrollIntoView(ctx, button); err != nil {
		return nil, err
	}
	if err := s.driver.Click(ctx, button); err != nil {
		return nil, err
	}
	overlay, err := s.driver.WaitFor(ctx, s.sel.Overlay, s.cfg.PageTimeout)
	if err != nil {
		s.closeOverlay(ctx)
		return nil, err
	}
	profile := s.ResolveOpenProfile(ctx, overlay)
	s.closeOverlay(ctx)
	return profile, nil
}

// closeOverlay dismisses the overlay with Escape and waits for it to go.
// A lingering overlay is logged, not treated as an error.
func (s *Scraper) closeOverlay(ctx context.Context) {
	if err := s.driver.SendKey(ctx, browser.KeyEscape); err != nil {
		s.logger.Debug("[whop] Escape failed: %v", err)
		return
	}
	if err := s.driver.WaitGone(ctx, s.sel.Overlay, s.cfg.LookupTimeout); err != nil && ctx.Err() == nil {
		s.logger.Warn("[whop] Profile overlay still open after Escape: %v", err)
	}
}

// ExtractProfiles opens every profile overlay reachable from the current
// listing page and returns the profiles keyed by community name. When two
// cards share a name the later one wins.
func (s *Scraper) ExtractProfiles(ctx context.Context) (map[string]*models.SocialProfile, error) {
	cards, err := s.findAll(ctx, nil, s.sel.ProfileCard)
	if err != nil {
		return nil, err
	}

	profiles := make(map[string]*models.SocialProfile)
	opened := utils.NewStringSet()
	buttons := 0
	for _, card := range cards {
		btns, err := s.findAll(ctx, card, s.sel.ProfileButton)
		if err != nil && !errors.Is(err, browser.ErrStale) {
			return profiles, err
		}
		// Wrappers around several cards hold several buttons; only the
		// innermost card pairs one button with one name.
		if len(btns) != 1 {
			continue
		}
		// A wrapper around a single card yields that card's button again.
		if !opened.Add(btns[0].Key()) {
			continue
		}
		buttons++

		name, err := s.textOf(ctx, card, s.sel.ProfileCardName)
		if ctx.Err() != nil {
			return profiles, ctx.Err()
		}
		if err != nil || name == "" {
			s.logger.Debug("[whop] Profile card without a readable name, skipping")
			continue
		}

		profile, err := s.openProfile(ctx, btns[0])
		if err != nil {
			if ctx.Err() != nil {
				return profiles, ctx.Err()
			}
			s.logger.Warn("[whop] Profile for %q failed: %v", name, err)
			_ = s.driver.SendKey(ctx, browser.KeyEscape)
			continue
		}
		if profile.Empty() {
			s.logger.Debug("[whop] No social links found for %q", name)
			continue
		}
		profiles[name] = profile
	}

	s.logger.Info("[whop] Processed %d profile buttons, found data for %d communities", buttons, len(profiles))
	return profiles, nil
}
