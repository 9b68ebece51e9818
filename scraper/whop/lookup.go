package whop

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"whop-scraper/browser"
)

// Every lookup below is time-boxed by LookupTimeout and fails closed: a
// missing element reads as "" (or nil). Only two things get through:
// ErrStale, so a caller can drop a card whose node vanished mid-read, and
// cancellation of the parent context.

func (s *Scraper) lookupCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.LookupTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.cfg.LookupTimeout)
}

// recoverable maps a lookup error to what the caller must act on.
func recoverable(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, browser.ErrStale) {
		return err
	}
	return nil
}

func (s *Scraper) find(ctx context.Context, scope browser.Element, loc browser.Locator) (browser.Element, error) {
	lctx, cancel := s.lookupCtx(ctx)
	defer cancel()
	el, err := s.driver.Find(lctx, scope, loc)
	if err != nil {
		return nil, recoverable(ctx, err)
	}
	return el, nil
}

func (s *Scraper) findAll(ctx context.Context, scope browser.Element, loc browser.Locator) ([]browser.Element, error) {
	lctx, cancel := s.lookupCtx(ctx)
	defer cancel()
	els, err := s.driver.FindAll(lctx, scope, loc)
	if err != nil {
		return nil, recoverable(ctx, err)
	}
	return els, nil
}

// all is findAll for page-level lookups, where staleness cannot happen.
func (s *Scraper) all(ctx context.Context, scope browser.Element, loc browser.Locator) []browser.Element {
	els, _ := s.findAll(ctx, scope, loc)
	return els
}

func (s *Scraper) text(ctx context.Context, el browser.Element) (string, error) {
	lctx, cancel := s.lookupCtx(ctx)
	defer cancel()
	text, err := s.driver.Text(lctx, el)
	if err != nil {
		return "", recoverable(ctx, err)
	}
	return strings.TrimSpace(text), nil
}

func (s *Scraper) attr(ctx context.Context, el browser.Element, name string) (string, error) {
	lctx, cancel := s.lookupCtx(ctx)
	defer cancel()
	v, ok, err := s.driver.Attribute(lctx, el, name)
	if err != nil {
		return "", recoverable(ctx, err)
	}
	if !ok {
		return "", nil
	}
	return strings.TrimSpace(v), nil
}

// textOf reads the text of the first match of loc under scope.
func (s *Scraper) textOf(ctx context.Context, scope browser.Element, loc browser.Locator) (string, error) {
	el, err := s.find(ctx, scope, loc)
	if err != nil || el == nil {
		return "", err
	}
	return s.text(ctx, el)
}

// dump writes the current document under DumpHTMLDir so the run can be
// replayed offline. Failures are logged and otherwise ignored.
func (s *Scraper) dump(ctx context.Context, url string) {
	if s.cfg.DumpHTMLDir == "" {
		return
	}
	html, err := s.driver.HTML(ctx)
	if err != nil {
		s.logger.Warn("[whop] dump html for %s failed: %v", url, err)
		return
	}
	if err := os.MkdirAll(s.cfg.DumpHTMLDir, 0755); err != nil {
		s.logger.Warn("[whop] dump dir: %v", err)
		return
	}
	path := filepath.Join(s.cfg.DumpHTMLDir, browser.CaptureName(url))
	if err := os.WriteFile(path, []byte(html), 0644); err != nil {
		s.logger.Warn("[whop] dump html to %s failed: %v", path, err)
		return
	}
	s.logger.Debug("[whop] Saved page capture %s", path)
}
