package session

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"whop-scraper/browser"
)

// LoginSelectors locate the login form and the signals of a logged-in page.
type LoginSelectors struct {
	PageReady     browser.Locator `yaml:"page_ready"`
	LoggedIn      browser.Locator `yaml:"logged_in"`
	EmailInput    browser.Locator `yaml:"email_input"`
	PasswordInput browser.Locator `yaml:"password_input"`
	Submit        browser.Locator `yaml:"submit"`
	TwoFactor     browser.Locator `yaml:"two_factor"`
}

func DefaultLoginSelectors() LoginSelectors {
	return LoginSelectors{
		PageReady:     browser.CSS(`body`),
		LoggedIn:      browser.CSS(`[data-testid="user-menu"], a[href*="/dashboard"], img[alt*="avatar"], button[aria-label*="Account"]`),
		EmailInput:    browser.CSS(`input[type="email"], input[name="email"]`),
		PasswordInput: browser.CSS(`input[type="password"]`),
		Submit:        browser.CSS(`button[type="submit"]`),
		TwoFactor:     browser.CSS(`input[autocomplete="one-time-code"], input[name*="code"]`),
	}
}

// LoadLoginSelectors reads the "login" section of a selectors YAML file over
// the defaults. An empty path yields the defaults.
func LoadLoginSelectors(path string) (LoginSelectors, error) {
	doc := struct {
		Login LoginSelectors `yaml:"login"`
	}{Login: DefaultLoginSelectors()}
	if path == "" {
		return doc.Login, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return doc.Login, fmt.Errorf("login selectors: read %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return doc.Login, fmt.Errorf("login selectors: parse %q: %w", path, err)
	}
	return doc.Login, nil
}
