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

var errStepBudget = errors.New("step budget exhausted")

// ScriptedAgent runs login tasks as fixed browser scripts. Each driver
// action spends one step; a task that runs out of steps reports nothing.
type ScriptedAgent struct {
	driver        browser.Driver
	sel           LoginSelectors
	homeURL       string
	loginURL      string
	pageTimeout   time.Duration
	lookupTimeout time.Duration
	twoFactorWait time.Duration
	logger        *utils.Logger
}

func NewScriptedAgent(cfg *config.Config, driver browser.Driver, sel LoginSelectors, logger *utils.Logger) *ScriptedAgent {
	return &ScriptedAgent{
		driver:        driver,
		sel:           sel,
		homeURL:       cfg.HomeURL,
		loginURL:      cfg.LoginURL,
		pageTimeout:   cfg.PageTimeout,
		lookupTimeout: cfg.LookupTimeout,
		twoFactorWait: cfg.TwoFactorWait,
		logger:        logger,
	}
}

type steps struct {
	max  int
	used int
}

func (s *steps) take(fn func() error) error {
	if s.used >= s.max {
		return errStepBudget
	}
	s.used++
	return fn()
}

func (a *ScriptedAgent) Run(ctx context.Context, task Task) (Outcome, error) {
	budget := &steps{max: task.MaxSteps}
	log := a.logger.With("task", string(task.Kind))

	var (
		report LoginReport
		err    error
	)
	switch task.Kind {
	case TaskVerify:
		report, err = a.verify(ctx, budget)
	case TaskCredentialLogin:
		report, err = a.credentialLogin(ctx, budget, task.Params["email"], task.Params["password"])
	case TaskOpenLogin:
		report, err = a.openLogin(ctx, budget)
	case TaskCheck:
		report, err = a.report(ctx, budget)
	default:
		return Outcome{}, fmt.Errorf("session: unknown task kind %q", task.Kind)
	}

	if errors.Is(err, errStepBudget) {
		log.Warn("[login] Gave up after %d steps", budget.used)
		return Outcome{Done: false}, nil
	}
	if err != nil {
		return Outcome{}, err
	}
	log.Debug("[login] Finished in %d steps: %s", budget.used, report.Message)
	return Outcome{Done: true, Payload: report.payload()}, nil
}

func (a *ScriptedAgent) verify(ctx context.Context, budget *steps) (LoginReport, error) {
	if err := budget.take(func() error { return a.driver.Navigate(ctx, a.homeURL) }); err != nil {
		return LoginReport{}, err
	}
	if err := budget.take(func() error { return a.settle(ctx, a.sel.PageReady, a.pageTimeout) }); err != nil {
		return LoginReport{}, err
	}
	if err := budget.take(func() error { return a.dismiss(ctx) }); err != nil {
		return LoginReport{}, err
	}
	return a.report(ctx, budget)
}

func (a *ScriptedAgent) credentialLogin(ctx context.Context, budget *steps, email, password string) (LoginReport, error) {
	if err := budget.take(func() error { return a.driver.Navigate(ctx, a.loginURL) }); err != nil {
		return LoginReport{}, err
	}

	var missing string
	err := budget.take(func() error {
		field, err := a.driver.WaitFor(ctx, a.sel.EmailInput, a.pageTimeout)
		if err != nil {
			missing = "email field"
			return a.soft(ctx, err)
		}
		return a.driver.Fill(ctx, field, email)
	})
	if err != nil || missing != "" {
		return LoginReport{Message: missing + " not found"}, err
	}

	// Some forms only reveal the password field after the email is submitted.
	err = budget.take(func() error {
		field, err := a.driver.Find(ctx, nil, a.sel.PasswordInput)
		if err != nil {
			if err := a.driver.SendKey(ctx, browser.KeyEnter); err != nil {
				return err
			}
			if field, err = a.driver.WaitFor(ctx, a.sel.PasswordInput, a.pageTimeout); err != nil {
				missing = "password field"
				return a.soft(ctx, err)
			}
		}
		return a.driver.Fill(ctx, field, password)
	})
	if err != nil || missing != "" {
		return LoginReport{Message: missing + " not found"}, err
	}

	err = budget.take(func() error {
		btn, err := a.driver.Find(ctx, nil, a.sel.Submit)
		if err != nil {
			return a.driver.SendKey(ctx, browser.KeyEnter)
		}
		return a.driver.Click(ctx, btn)
	})
	if err != nil {
		return LoginReport{}, err
	}

	if err := budget.take(func() error { return a.awaitLogin(ctx) }); err != nil {
		return LoginReport{}, err
	}
	if err := budget.take(func() error { return a.dismiss(ctx) }); err != nil {
		return LoginReport{}, err
	}
	return a.report(ctx, budget)
}

// awaitLogin waits for the logged-in signal. When a verification code is
// requested instead, it hands over to the user for up to twoFactorWait.
func (a *ScriptedAgent) awaitLogin(ctx context.Context) error {
	_, err := a.driver.WaitFor(ctx, a.sel.LoggedIn, a.pageTimeout)
	if err == nil {
		return nil
	}
	if err := a.soft(ctx, err); err != nil {
		return err
	}
	if _, err := a.driver.Find(ctx, nil, a.sel.TwoFactor); err != nil {
		return a.soft(ctx, err)
	}
	a.logger.Warn("[login] Verification code requested, complete it in the browser within %s", a.twoFactorWait)
	_, err = a.driver.WaitFor(ctx, a.sel.LoggedIn, a.twoFactorWait)
	return a.soft(ctx, err)
}

func (a *ScriptedAgent) openLogin(ctx context.Context, budget *steps) (LoginReport, error) {
	if err := budget.take(func() error { return a.driver.Navigate(ctx, a.loginURL) }); err != nil {
		return LoginReport{}, err
	}
	if err := budget.take(func() error { return a.settle(ctx, a.sel.EmailInput, a.pageTimeout) }); err != nil {
		return LoginReport{}, err
	}
	return LoginReport{Message: "login page open, waiting for the user"}, nil
}

// report is the final step of every task: look for the logged-in signal.
func (a *ScriptedAgent) report(ctx context.Context, budget *steps) (LoginReport, error) {
	var r LoginReport
	err := budget.take(func() error {
		el, err := a.driver.WaitFor(ctx, a.sel.LoggedIn, a.lookupTimeout)
		if err != nil {
			r.Message = "no logged-in indicator on the page"
			return a.soft(ctx, err)
		}
		r.IsLoggedIn = true
		r.Message = "found " + el.Describe()
		return nil
	})
	return r, err
}

// dismiss closes whatever prompt or popup may be covering the page.
func (a *ScriptedAgent) dismiss(ctx context.Context) error {
	return a.driver.SendKey(ctx, browser.KeyEscape)
}

func (a *ScriptedAgent) settle(ctx context.Context, loc browser.Locator, timeout time.Duration) error {
	_, err := a.driver.WaitFor(ctx, loc, timeout)
	return a.soft(ctx, err)
}

// soft swallows lookup misses; only cancellation is worth aborting a task for.
func (a *ScriptedAgent) soft(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, browser.ErrTimeout) || errors.Is(err, browser.ErrNotFound) || errors.Is(err, browser.ErrStale) {
		return nil
	}
	return err
}
