package session

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"

	"whop-scraper/config"
)

// ErrNoCredentials is returned by a CredentialSource that has nothing stored.
var ErrNoCredentials = errors.New("session: no credentials configured")

const (
	keyringService = "whop-scraper"
	keyringUser    = "whop"
)

// Credentials are the email and password used for automated login.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (c Credentials) complete() bool { return c.Email != "" && c.Password != "" }

// CredentialSource yields login credentials or ErrNoCredentials.
type CredentialSource interface {
	Lookup() (Credentials, error)
}

// EnvCredentials reads WHOP_EMAIL (or WHOP_USERNAME) and WHOP_PASSWORD as
// loaded into the config.
type EnvCredentials struct {
	cfg *config.Config
}

func NewEnvCredentials(cfg *config.Config) *EnvCredentials {
	return &EnvCredentials{cfg: cfg}
}

func (e *EnvCredentials) Lookup() (Credentials, error) {
	if !e.cfg.HasCredentials() {
		return Credentials{}, ErrNoCredentials
	}
	return Credentials{Email: e.cfg.WhopEmail, Password: e.cfg.WhopPassword}, nil
}

// KeyringCredentials keeps credentials in the OS keychain.
type KeyringCredentials struct{}

func (KeyringCredentials) Lookup() (Credentials, error) {
	data, err := keyring.Get(keyringService, keyringUser)
	if errors.Is(err, keyring.ErrNotFound) {
		return Credentials{}, ErrNoCredentials
	}
	if err != nil {
		return Credentials{}, fmt.Errorf("failed to read keyring: %w", err)
	}
	var c Credentials
	if err := json.Unmarshal([]byte(data), &c); err != nil {
		return Credentials{}, fmt.Errorf("failed to unmarshal credentials: %w", err)
	}
	if !c.complete() {
		return Credentials{}, ErrNoCredentials
	}
	return c, nil
}

// Store saves c in the keychain, replacing anything stored before.
func (KeyringCredentials) Store(c Credentials) error {
	if !c.complete() {
		return fmt.Errorf("session: email and password are both required")
	}
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}
	if err := keyring.Set(keyringService, keyringUser, string(data)); err != nil {
		return fmt.Errorf("failed to store in keyring: %w", err)
	}
	return nil
}

// Delete removes stored credentials. Deleting nothing is not an error.
func (KeyringCredentials) Delete() error {
	err := keyring.Delete(keyringService, keyringUser)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete from keyring: %w", err)
	}
	return nil
}

// ChainCredentials tries each source in order and returns the first hit.
// Sources that fail for reasons other than ErrNoCredentials are skipped.
type ChainCredentials []CredentialSource

func (c ChainCredentials) Lookup() (Credentials, error) {
	var errs []error
	for _, src := range c {
		creds, err := src.Lookup()
		if err == nil {
			return creds, nil
		}
		if !errors.Is(err, ErrNoCredentials) {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return Credentials{}, fmt.Errorf("%w (%v)", ErrNoCredentials, errors.Join(errs...))
	}
	return Credentials{}, ErrNoCredentials
}
