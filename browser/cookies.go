package browser

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Cookie is one persisted cookie record. The JSON layout matches what
// Playwright-style tools write, so jars can be shared with them.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
	SameSite string  `json:"sameSite,omitempty"`
}

// CookieStore persists a session's cookie jar.
type CookieStore interface {
	Exists() bool
	Load() ([]Cookie, error)
	// Save replaces the stored jar wholesale.
	Save(cookies []Cookie) error
}

// FileCookieStore keeps the jar as a JSON array on disk.
type FileCookieStore struct {
	path string
}

// NewFileCookieStore returns a store backed by path. Nothing is touched on disk
// until Save is called.
func NewFileCookieStore(path string) *FileCookieStore {
	return &FileCookieStore{path: path}
}

// Path returns the backing file path.
func (s *FileCookieStore) Path() string { return s.path }

func (s *FileCookieStore) Exists() bool {
	info, err := os.Stat(s.path)
	return err == nil && !info.IsDir()
}

func (s *FileCookieStore) Load() ([]Cookie, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("cookies: read %q: %w", s.path, err)
	}
	var cookies []Cookie
	if err := json.Unmarshal(data, &cookies); err != nil {
		return nil, fmt.Errorf("cookies: decode %q: %w", s.path, err)
	}
	return cookies, nil
}

func (s *FileCookieStore) Save(cookies []Cookie) error {
	if cookies == nil {
		return errors.New("cookies: refusing to save a nil jar")
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("cookies: create dir: %w", err)
	}
	data, err := json.MarshalIndent(cookies, "", "  ")
	if err != nil {
		return fmt.Errorf("cookies: encode: %w", err)
	}
	// Write to a sibling file and rename so a crash never leaves half a jar.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("cookies: write %q: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("cookies: replace %q: %w", s.path, err)
	}
	return nil
}
