package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"whop-scraper/browser"
	"whop-scraper/models"
	"whop-scraper/scraper/whop"
	"whop-scraper/services"
	"whop-scraper/session"
	"whop-scraper/storage"
	"whop-scraper/utils"
)

var maxPages int

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Crawl the leaderboard and write the CSV",
	Long: `Crawl the leaderboard page by page, enrich every community from its
detail page and owner profile, then write CSV_OUTPUT_PATH in one go.

Pagination stops at --max-pages, at the first page that fails to load,
lists nothing, or repeats an earlier page.`,
	Example: `  # Crawl the first three pages without a window
  whop-scraper scrape --max-pages 3 --headless`,
	Args: cobra.NoArgs,
	RunE: runScrape,
}

func init() {
	scrapeCmd.Flags().IntVar(&maxPages, "max-pages", -1, "maximum listing pages to crawl, 0 for no limit (overrides MAX_PAGES)")
	rootCmd.AddCommand(scrapeCmd)
}

func runScrape(cmd *cobra.Command, _ []string) error {
	rt := newApp(cmd)
	if maxPages >= 0 {
		rt.cfg.MaxPages = maxPages
	}
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	rt.logger.Info("=== Whop Scraper starting ===")
	rt.logger.Info("Config: max pages %d | headless %v | output %s", rt.cfg.MaxPages, rt.cfg.Headless, rt.cfg.CSVOutputPath)

	var communities []*models.Community
	err := rt.guard(func() error {
		driver, err := rt.openDriver()
		if err != nil {
			return err
		}
		defer func() {
			_ = driver.Close()
			rt.logger.Info("Browser closed")
		}()

		store := browser.NewFileCookieStore(rt.cfg.CookiesFile)
		if ok, err := session.InjectCookies(ctx, driver, store, rt.logger); err != nil {
			rt.logger.Warn("Continuing without stored cookies: %v", err)
		} else if !ok {
			rt.logger.Warn("No cookie file at %s, crawling logged out", store.Path())
		}

		sel, err := whop.LoadSelectors(rt.cfg.SelectorsFile)
		if err != nil {
			return err
		}
		s := whop.New(rt.cfg, driver, sel, rt.logger)
		communities, err = s.ScrapeAll(ctx, rt.cfg.MaxPages)
		if err != nil {
			rt.logger.Warn("Scrape interrupted after %d communities: %v", len(communities), err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := writeAll(rt.sinks(ctx), communities, rt.logger); err != nil {
		return err
	}

	insights := services.NewInsightService(rt.logger)
	insights.Print(os.Stdout, insights.Generate(communities))

	if ctx.Err() != nil {
		return fmt.Errorf("scrape cancelled: %w", ctx.Err())
	}
	rt.logger.Info("Scraping completed successfully")
	return nil
}

// sink is one output backend. Only a required sink fails the run; the CSV
// is the output of record and the PostgreSQL mirror is best-effort.
type sink struct {
	name     string
	writer   storage.RecordWriter
	required bool
}

func (rt *app) sinks(ctx context.Context) []sink {
	sinks := []sink{{name: "CSV " + rt.cfg.CSVOutputPath, writer: storage.NewCSVWriter(rt.cfg.CSVOutputPath, rt.logger), required: true}}
	if !rt.cfg.StorePostgres {
		return sinks
	}
	pg, err := storage.NewPostgresWriter(ctx, rt.cfg.DSN(), rt.logger)
	if err != nil {
		rt.logger.Error("Failed to connect to PostgreSQL: %v", err)
		return sinks
	}
	return append(sinks, sink{name: "PostgreSQL (table: communities)", writer: pg})
}

// writeAll hands the records to every sink in order and closes them all.
func writeAll(sinks []sink, communities []*models.Community, logger *utils.Logger) error {
	defer func() {
		for _, s := range sinks {
			if err := s.writer.Close(); err != nil {
				logger.Warn("Closing %s: %v", s.name, err)
			}
		}
	}()

	for _, s := range sinks {
		if err := s.writer.Write(communities); err != nil {
			if s.required {
				return fmt.Errorf("write %s: %w", s.name, err)
			}
			logger.Error("%s write failed: %v", s.name, err)
			continue
		}
		logger.Info("Stored %d communities in %s", len(communities), s.name)
	}
	return nil
}
