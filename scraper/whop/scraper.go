package whop

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"whop-scraper/browser"
	"whop-scraper/config"
	"whop-scraper/models"
	"whop-scraper/utils"
)

// ErrPageLoad is returned when a listing page never becomes ready.
var ErrPageLoad = errors.New("whop: listing page did not load")

// Scraper crawls the Whop leaderboard page by page, enriching every card
// with its detail page and the owner's profile overlay.
type Scraper struct {
	cfg    *config.Config
	driver browser.Driver
	sel    Selectors
	logger *utils.Logger

	itemThrottle *utils.Throttle
	pageThrottle *utils.Throttle
	seenPages    *utils.StringSet
}

// New creates a ready-to-use Scraper. The driver is owned by the caller.
func New(cfg *config.Config, driver browser.Driver, sel Selectors, logger *utils.Logger) *Scraper {
	return &Scraper{
		cfg:          cfg,
		driver:       driver,
		sel:          sel,
		logger:       logger,
		itemThrottle: utils.NewThrottle(cfg.ItemDelayMin, cfg.ItemDelayMax),
		pageThrottle: utils.NewThrottle(cfg.PageDelayMin, cfg.PageDelayMax),
		seenPages:    utils.NewStringSet(),
	}
}

// ScrapeAll walks the leaderboard starting at page 1 and returns every
// community in the order it was listed. maxPages <= 0 means no page limit.
//
// Pagination stops when a page fails to load, when a page lists nothing,
// when a page repeats one already crawled in this run, or at maxPages.
// The only error returned is cancellation of ctx; what was collected up to
// that point is returned alongside it.
func (s *Scraper) ScrapeAll(ctx context.Context, maxPages int) ([]*models.Community, error) {
	var communities []*models.Community
	profiles := make(map[string]*models.SocialProfile)

	for page := 1; maxPages <= 0 || page <= maxPages; page++ {
		log := s.logger.With("page", page)

		if err := s.LoadPage(ctx, page); err != nil {
			if ctx.Err() != nil {
				return communities, ctx.Err()
			}
			log.Warn("[whop] %v, no more pages after %d", err, page-1)
			break
		}
		if page == 1 {
			s.logAdvertisedPages(ctx)
		}

		summaries, err := s.ExtractList(ctx)
		if err != nil {
			return communities, err
		}
		if len(summaries) == 0 {
			log.Info("[whop] No communities found, stopping pagination")
			break
		}
		if !s.seenPages.Add(fingerprint(summaries)) {
			log.Warn("[whop] Page repeats an earlier page, stopping pagination")
			break
		}

		pageProfiles, err := s.ExtractProfiles(ctx)
		if err != nil {
			return communities, err
		}
		for name, p := range pageProfiles {
			profiles[name] = p
		}

		for _, summary := range summaries {
			community, err := s.ExtractDetail(ctx, summary)
			if err != nil {
				return communities, err
			}
			if p, ok := profiles[community.Name]; ok {
				community.Profile = p
			}
			communities = append(communities, community)
			log.Info("[whop] Scraped %q (%d so far)", community.Name, len(communities))

			if err := s.itemThrottle.Wait(ctx); err != nil {
				return communities, err
			}
		}

		if maxPages > 0 && page >= maxPages {
			log.Info("[whop] Reached maximum pages limit of %d", maxPages)
			break
		}
		if err := s.pageThrottle.Wait(ctx); err != nil {
			return communities, err
		}
	}

	s.logger.Info("[whop] Completed scraping %d communities", len(communities))
	return communities, nil
}

// LoadPage navigates to listing page n and waits for its main content.
func (s *Scraper) LoadPage(ctx context.Context, n int) error {
	url := s.pageURL(n)
	s.logger.Info("[whop] Navigating to leaderboard page %d: %s", n, url)

	if err := s.driver.Navigate(ctx, url); err != nil {
		return fmt.Errorf("%w: page %d: %v", ErrPageLoad, n, err)
	}
	if _, err := s.driver.WaitFor(ctx, s.sel.PageReady, s.cfg.PageTimeout); err != nil {
		return fmt.Errorf("%w: page %d: %v", ErrPageLoad, n, err)
	}
	s.dump(ctx, url)
	return nil
}

func (s *Scraper) pageURL(n int) string {
	if strings.Contains(s.cfg.LeaderboardURL, "%d") {
		return fmt.Sprintf(s.cfg.LeaderboardURL, n)
	}
	return strings.TrimRight(s.cfg.LeaderboardURL, "/") + "/p/" + strconv.Itoa(n) + "/"
}

// logAdvertisedPages reports the highest page number in the pagination
// control. It is informational only; pagination never relies on it.
func (s *Scraper) logAdvertisedPages(ctx context.Context) {
	buttons := s.all(ctx, nil, s.sel.Pagination)
	maxPage := 0
	for _, b := range buttons {
		text, _ := s.text(ctx, b)
		if n, err := strconv.Atoi(text); err == nil && n > maxPage {
			maxPage = n
		}
	}
	if maxPage == 0 {
		s.logger.Debug("[whop] Pagination not found, assuming single page")
		return
	}
	s.logger.Info("[whop] Leaderboard advertises %d pages", maxPage)
}

// fingerprint identifies a listing page by its ordered community URLs.
func fingerprint(summaries []models.CommunitySummary) string {
	urls := make([]string, len(summaries))
	for i, s := range summaries {
		urls[i] = s.URL
	}
	return strings.Join(urls, "\n")
}
