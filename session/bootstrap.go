package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"whop-scraper/browser"
	"whop-scraper/config"
	"whop-scraper/utils"
)

var (
	// ErrLoginTimeout is returned when the manual-login poll budget runs out.
	ErrLoginTimeout = errors.New("session: timed out waiting for manual login")
	// ErrLoginFailed is returned when automated credential login does not
	// end in a logged-in page.
	ErrLoginFailed = errors.New("session: credential login failed")
)

// Step ceilings for each login task.
const (
	verifySteps     = 10
	credentialSteps = 7
	openLoginSteps  = 5
	checkSteps      = 5

	heartbeatEvery = 12
)

// Bootstrapper establishes an authenticated browser session and persists
// its cookies for later runs.
type Bootstrapper struct {
	agent  Agent
	driver browser.Driver
	store  browser.CookieStore
	creds  CredentialSource
	logger *utils.Logger

	pollCount int
	pollEvery time.Duration
}

func NewBootstrapper(cfg *config.Config, agent Agent, driver browser.Driver, store browser.CookieStore, creds CredentialSource, logger *utils.Logger) *Bootstrapper {
	return &Bootstrapper{
		agent:     agent,
		driver:    driver,
		store:     store,
		creds:     creds,
		logger:    logger,
		pollCount: cfg.LoginPollCount,
		pollEvery: cfg.LoginPollEvery,
	}
}

// EstablishSession tries, in order: stored cookies, credential login, and
// finally waiting for the user to log in by hand. A nil error means the
// browser is logged in. Cookies are written only after a fresh login.
func (b *Bootstrapper) EstablishSession(ctx context.Context) error {
	b.logger.Info("[login] Attempting to log in to Whop")

	if b.store.Exists() {
		b.logger.Info("[login] Cookies file found, attempting to use stored cookies")
		if _, err := InjectCookies(ctx, b.driver, b.store, b.logger); err != nil {
			b.logger.Warn("[login] %v", err)
		}
		ok, err := b.check(ctx, Task{
			Kind:        TaskVerify,
			Description: "Go to Whop and verify whether we are logged in. Dismiss any prompt, then report login status.",
			MaxSteps:    verifySteps,
		})
		if err != nil {
			return err
		}
		if ok {
			b.logger.Info("[login] Successfully logged in with cookies")
			return nil
		}
	}

	creds, err := b.creds.Lookup()
	switch {
	case err == nil:
		return b.credentialLogin(ctx, creds)
	case !errors.Is(err, ErrNoCredentials):
		return err
	case errors.Unwrap(err) != nil:
		b.logger.Warn("[login] %v", err)
	}
	b.logger.Warn("[login] Whop credentials not found, set WHOP_EMAIL and WHOP_PASSWORD or log in manually")
	return b.manualLogin(ctx)
}

func (b *Bootstrapper) credentialLogin(ctx context.Context, creds Credentials) error {
	b.logger.Info("[login] Attempting automated login with credentials")
	ok, err := b.check(ctx, Task{
		Kind: TaskCredentialLogin,
		Description: "Open the Whop login page, enter the email and password and submit. Dismiss popups. " +
			"If a verification code is requested, wait for the user to complete it. Report login status.",
		MaxSteps: credentialSteps,
		Params:   map[string]string{"email": creds.Email, "password": creds.Password},
	})
	if err != nil {
		return err
	}
	if !ok {
		return ErrLoginFailed
	}
	b.logger.Info("[login] Automated login successful")
	b.saveCookies(ctx)
	return nil
}

func (b *Bootstrapper) manualLogin(ctx context.Context) error {
	_, err := b.agent.Run(ctx, Task{
		Kind:        TaskOpenLogin,
		Description: "Go to the Whop login page and wait. Do not enter any credentials.",
		MaxSteps:    openLoginSteps,
	})
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		b.logger.Warn("[login] Could not open the login page: %v", err)
	}
	b.logger.Info("[login] Please log in manually in the browser window")

	check := Task{
		Kind:        TaskCheck,
		Description: "Check whether we are currently logged in to Whop and report login status.",
		MaxSteps:    checkSteps,
	}
	for i := 0; i < b.pollCount; i++ {
		ok, err := b.check(ctx, check)
		if err != nil {
			return err
		}
		if ok {
			b.logger.Info("[login] Manual login detected")
			b.saveCookies(ctx)
			return nil
		}
		if err := utils.Sleep(ctx, b.pollEvery); err != nil {
			return err
		}
		if i%heartbeatEvery == 0 {
			b.logger.Info("[login] Still waiting for manual login...")
		}
	}
	return fmt.Errorf("%w after %d checks", ErrLoginTimeout, b.pollCount)
}

// check runs a task and reads its report. Agent failures and unparseable
// reports count as "not logged in"; only cancellation is returned.
func (b *Bootstrapper) check(ctx context.Context, task Task) (bool, error) {
	log := b.logger.With("task", string(task.Kind))

	out, err := b.agent.Run(ctx, task)
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		log.Warn("[login] Task failed: %v", err)
		return false, nil
	}
	report, err := ParseLoginReport(out)
	if err != nil {
		log.Error("[login] Error parsing login result: %v", err)
		return false, nil
	}
	if !report.IsLoggedIn {
		log.Info("[login] Not logged in: %s", report.Message)
	}
	return report.IsLoggedIn, nil
}

// saveCookies overwrites the cookie file with the browser's current jar.
// A failed write is logged; the session itself is already established.
func (b *Bootstrapper) saveCookies(ctx context.Context) {
	cookies, err := b.driver.Cookies(ctx)
	if err != nil {
		b.logger.Error("[login] Failed to read cookies: %v", err)
		return
	}
	if err := b.store.Save(cookies); err != nil {
		b.logger.Error("[login] Failed to save cookies: %v", err)
		return
	}
	b.logger.Info("[login] Saved %d cookies", len(cookies))
}

// InjectCookies loads the stored cookie jar into the browser. It reports
// false without error when no jar is stored.
func InjectCookies(ctx context.Context, driver browser.Driver, store browser.CookieStore, logger *utils.Logger) (bool, error) {
	if !store.Exists() {
		return false, nil
	}
	cookies, err := store.Load()
	if err != nil {
		return false, fmt.Errorf("load cookies: %w", err)
	}
	if err := driver.SetCookies(ctx, cookies); err != nil {
		return false, fmt.Errorf("inject cookies: %w", err)
	}
	logger.Info("[login] Loaded %d cookies into the browser", len(cookies))
	return true, nil
}
