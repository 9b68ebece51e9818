package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"whop-scraper/browser"
	"whop-scraper/config"
	"whop-scraper/utils"
)

var (
	logLevel string
	headless bool
)

var rootCmd = &cobra.Command{
	Use:   "whop-scraper",
	Short: "Scrape the Whop trading leaderboard into CSV",
	Long: `whop-scraper crawls the Whop trading leaderboard, visits every community,
opens owner profile overlays for their social links and writes one CSV row
per community.

Run "whop-scraper login" once to store a session cookie jar, then
"whop-scraper scrape" to crawl.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (overrides LOG_LEVEL)")
	rootCmd.PersistentFlags().BoolVar(&headless, "headless", false, "run Chrome without a window (overrides HEADLESS)")
}

// app is what every browser-driving command needs.
type app struct {
	cfg    *config.Config
	logger *utils.Logger
}

func newApp(cmd *cobra.Command) *app {
	cfg := config.Load()
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if cmd.Flags().Changed("headless") {
		cfg.Headless = headless
	}
	return &app{cfg: cfg, logger: utils.NewLogger(cfg.LogLevel)}
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// openDriver starts Chrome, or replays captured pages when REPLAY_DIR is set.
func (rt *app) openDriver() (browser.Driver, error) {
	if rt.cfg.ReplayDir != "" {
		rt.logger.Info("[browser] Replaying captured pages from %s", rt.cfg.ReplayDir)
		return browser.NewReplayDir(rt.cfg.ReplayDir), nil
	}
	return browser.NewChrome(browser.ChromeOptions{
		Headless:        rt.cfg.Headless,
		ExecPath:        rt.cfg.ChromeBin,
		NavigateTimeout: rt.cfg.PageTimeout * 3,
		LookupTimeout:   rt.cfg.LookupTimeout,
		StartAttempts:   rt.cfg.MaxRetries,
	}, rt.logger)
}

// guard turns a panic in fn into an error so deferred cleanup still runs
// and the process exits non-zero.
func (rt *app) guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			rt.logger.Error("Unhandled error: %v", r)
			err = fmt.Errorf("unhandled error: %v", r)
		}
	}()
	return fn()
}
