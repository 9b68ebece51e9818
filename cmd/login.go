package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"whop-scraper/browser"
	"whop-scraper/session"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Establish a logged-in Whop session and save its cookies",
	Long: `Establish a logged-in browser session and persist its cookies.

In order, the command tries:
  - the stored cookie jar (COOKIES_FILE), if one exists
  - automated login with WHOP_EMAIL/WHOP_PASSWORD or keyring credentials
  - waiting for you to log in by hand in the browser window

Cookies are written only after a fresh login succeeds.`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

func init() {
	rootCmd.AddCommand(loginCmd)
}

func runLogin(cmd *cobra.Command, _ []string) error {
	rt := newApp(cmd)
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	return rt.guard(func() error {
		driver, err := rt.openDriver()
		if err != nil {
			return err
		}
		defer func() {
			_ = driver.Close()
			rt.logger.Info("Browser closed")
		}()

		sel, err := session.LoadLoginSelectors(rt.cfg.SelectorsFile)
		if err != nil {
			return err
		}
		agent := session.NewScriptedAgent(rt.cfg, driver, sel, rt.logger)
		creds := session.ChainCredentials{session.NewEnvCredentials(rt.cfg), session.KeyringCredentials{}}
		store := browser.NewFileCookieStore(rt.cfg.CookiesFile)

		boot := session.NewBootstrapper(rt.cfg, agent, driver, store, creds, rt.logger)
		if err := boot.EstablishSession(ctx); err != nil {
			return fmt.Errorf("login failed: %w", err)
		}
		rt.logger.Info("Login successful, cookies at %s", store.Path())
		return nil
	})
}
