package browser

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when a locator matches nothing.
	ErrNotFound = errors.New("browser: element not found")
	// ErrStale is returned when an element handle no longer refers to a node
	// in the live document.
	ErrStale = errors.New("browser: stale element reference")
	// ErrTimeout is returned when a bounded wait expires.
	ErrTimeout = errors.New("browser: wait timed out")
)

// Locator describes how to find an element: a CSS selector, optionally
// narrowed to elements whose own text nodes contain Text. Text held by
// descendants does not count, so a wrapper never shadows the node that
// actually carries the label.
type Locator struct {
	CSS  string `yaml:"css"`
	Text string `yaml:"text,omitempty"`
}

// CSS builds a plain selector locator.
func CSS(sel string) Locator { return Locator{CSS: sel} }

// WithText builds a selector locator filtered by text content.
func WithText(sel, text string) Locator { return Locator{CSS: sel, Text: text} }

func (l Locator) String() string {
	if l.Text == "" {
		return l.CSS
	}
	return l.CSS + `:containsOwn("` + l.Text + `")`
}

// Element is an opaque handle to a node returned by a Driver. Handles are
// only valid for the Driver that produced them.
type Element interface {
	// Describe returns a short human-readable label for logs.
	Describe() string
	// Key identifies the underlying node. Two handles to the same node share
	// a key for as long as the node stays in the document.
	Key() string
}

// Key is a keyboard key sent to the focused page.
type Key string

const (
	KeyEscape Key = "Escape"
	KeyEnter  Key = "Enter"
)

// Driver is the browser automation surface the scraper and the login flow
// depend on. A nil scope means the whole document.
type Driver interface {
	Navigate(ctx context.Context, url string) error
	// WaitFor blocks until loc matches at least one element or timeout expires.
	WaitFor(ctx context.Context, loc Locator, timeout time.Duration) (Element, error)
	// WaitGone blocks until loc matches nothing or timeout expires.
	WaitGone(ctx context.Context, loc Locator, timeout time.Duration) error
	Find(ctx context.Context, scope Element, loc Locator) (Element, error)
	FindAll(ctx context.Context, scope Element, loc Locator) ([]Element, error)
	Text(ctx context.Context, el Element) (string, error)
	Attribute(ctx context.Context, el Element, name string) (string, bool, error)
	Click(ctx context.Context, el Element) error
	ScrollIntoView(ctx context.Context, el Element) error
	Fill(ctx context.Context, el Element, value string) error
	SendKey(ctx context.Context, key Key) error
	Cookies(ctx context.Context) ([]Cookie, error)
	SetCookies(ctx context.Context, cookies []Cookie) error
	// HTML returns the current document's outer HTML.
	HTML(ctx context.Context) (string, error)
	Close() error
}

type textReader func(ctx context.Context, el Element) (string, error)

// filterByText keeps the elements whose own text contains want. Elements
// that go stale while being read are skipped.
func filterByText(ctx context.Context, els []Element, want string, read textReader) ([]Element, error) {
	if want == "" {
		return els, nil
	}
	out := make([]Element, 0, len(els))
	for _, el := range els {
		text, err := read(ctx, el)
		if err != nil {
			if errors.Is(err, ErrStale) || errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		if strings.Contains(text, want) {
			out = append(out, el)
		}
	}
	return out, nil
}

// poll runs probe every interval until it reports done or timeout expires.
func poll(ctx context.Context, timeout, interval time.Duration, probe func(ctx context.Context) (bool, error)) error {
	deadline := time.Now().Add(timeout)
	for {
		done, err := probe(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		if time.Now().After(deadline) {
			return ErrTimeout
		}
		t := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}
