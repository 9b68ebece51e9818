package browser

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

const emptyDocument = "<html><head></head><body></body></html>"

// Replay is a Driver over static HTML captures. It never talks to a real
// browser: navigation loads a stored document, lookups run through goquery,
// and waits resolve immediately against the current document.
//
// Overlays are scripted in the capture itself: clicking an element carrying
// data-replay-open="ID" appends the HTML held in <script type="text/x-overlay" id="ID">
// to the body, and Escape removes the most recently opened overlay. Clicking
// an element carrying data-replay-goto="URL" navigates to URL.
type Replay struct {
	mu      sync.Mutex
	load    func(url string) (string, error)
	doc     *goquery.Document
	current *url.URL
	gen     int
	cookies []Cookie
	visits  []string
}

type replayElement struct {
	sel *goquery.Selection
	gen int
}

func (e *replayElement) Key() string {
	if e.sel == nil || e.sel.Length() == 0 {
		return ""
	}
	return fmt.Sprintf("%d:%p", e.gen, e.sel.Get(0))
}

func (e *replayElement) Describe() string {
	if e.sel == nil || e.sel.Length() == 0 {
		return "<empty>"
	}
	name := goquery.NodeName(e.sel)
	if cls, ok := e.sel.Attr("class"); ok && cls != "" {
		return name + "." + strings.ReplaceAll(strings.TrimSpace(cls), " ", ".")
	}
	return name
}

// NewReplay serves documents from an in-memory url→HTML map. Unknown URLs
// load an empty document.
func NewReplay(pages map[string]string) *Replay {
	return &Replay{
		load: func(u string) (string, error) {
			if page, ok := pages[u]; ok {
				return page, nil
			}
			return emptyDocument, nil
		},
	}
}

// NewReplayDir serves documents captured under dir with CaptureName naming.
func NewReplayDir(dir string) *Replay {
	return &Replay{
		load: func(u string) (string, error) {
			data, err := os.ReadFile(filepath.Join(dir, CaptureName(u)))
			if errors.Is(err, os.ErrNotExist) {
				return emptyDocument, nil
			}
			if err != nil {
				return "", fmt.Errorf("replay: read capture for %s: %w", u, err)
			}
			return string(data), nil
		},
	}
}

var captureUnsafe = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// CaptureName maps a URL to the file name used for page captures.
func CaptureName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return captureUnsafe.ReplaceAllString(rawURL, "_") + ".html"
	}
	name := u.Host + "_" + strings.Trim(u.Path, "/")
	if u.RawQuery != "" {
		name += "_" + u.RawQuery
	}
	name = strings.Trim(captureUnsafe.ReplaceAllString(name, "_"), "_")
	if name == "" {
		name = "index"
	}
	return name + ".html"
}

// Visits returns every URL navigated to so far, in order.
func (r *Replay) Visits() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.visits...)
}

func (r *Replay) Navigate(ctx context.Context, rawURL string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	page, err := r.load(rawURL)
	if err != nil {
		return err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return fmt.Errorf("replay: parse %s: %w", rawURL, err)
	}
	u, _ := url.Parse(rawURL)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.doc = doc
	r.current = u
	r.gen++
	r.visits = append(r.visits, rawURL)
	return nil
}

func (r *Replay) document() (*goquery.Document, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.doc == nil {
		doc, _ := goquery.NewDocumentFromReader(strings.NewReader(emptyDocument))
		r.doc = doc
	}
	return r.doc, r.gen
}

func (r *Replay) element(el Element) (*replayElement, error) {
	re, ok := el.(*replayElement)
	if !ok || re == nil || re.sel == nil {
		return nil, fmt.Errorf("replay: foreign element %T", el)
	}
	_, gen := r.document()
	if re.gen != gen || !attached(re.sel) {
		return nil, fmt.Errorf("%w: %s", ErrStale, re.Describe())
	}
	return re, nil
}

// attached reports whether the node is still reachable from its document root.
func attached(sel *goquery.Selection) bool {
	if sel.Length() == 0 {
		return false
	}
	n := sel.Get(0)
	for n.Parent != nil {
		n = n.Parent
	}
	return n.Type == html.DocumentNode
}

func (r *Replay) WaitFor(ctx context.Context, loc Locator, timeout time.Duration) (Element, error) {
	el, err := r.Find(ctx, nil, loc)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("wait for %s: %w", loc, ErrTimeout)
	}
	return el, err
}

func (r *Replay) WaitGone(ctx context.Context, loc Locator, timeout time.Duration) error {
	els, err := r.FindAll(ctx, nil, loc)
	if err != nil {
		return err
	}
	if len(els) > 0 {
		return fmt.Errorf("wait gone %s: %w", loc, ErrTimeout)
	}
	return nil
}

func (r *Replay) Find(ctx context.Context, scope Element, loc Locator) (Element, error) {
	els, err := r.FindAll(ctx, scope, loc)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, loc)
	}
	return els[0], nil
}

func (r *Replay) FindAll(ctx context.Context, scope Element, loc Locator) ([]Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, gen := r.document()
	root := doc.Selection
	if scope != nil {
		re, err := r.element(scope)
		if err != nil {
			return nil, err
		}
		root = re.sel
	}

	var els []Element
	root.Find(loc.CSS).Each(func(_ int, s *goquery.Selection) {
		els = append(els, &replayElement{sel: s, gen: gen})
	})
	return filterByText(ctx, els, loc.Text, r.ownText)
}

func (r *Replay) Text(ctx context.Context, el Element) (string, error) {
	re, err := r.element(el)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(re.sel.Text()), nil
}

func (r *Replay) ownText(ctx context.Context, el Element) (string, error) {
	re, err := r.element(el)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, n := range re.sel.Nodes {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.TextNode {
				b.WriteString(c.Data)
			}
		}
	}
	return b.String(), nil
}

func (r *Replay) Attribute(ctx context.Context, el Element, name string) (string, bool, error) {
	re, err := r.element(el)
	if err != nil {
		return "", false, err
	}
	v, ok := re.sel.Attr(name)
	if !ok {
		return "", false, nil
	}
	if name == "href" && r.current != nil {
		if ref, err := url.Parse(v); err == nil {
			v = r.current.ResolveReference(ref).String()
		}
	}
	return v, true, nil
}

func (r *Replay) Click(ctx context.Context, el Element) error {
	re, err := r.element(el)
	if err != nil {
		return err
	}
	if target, ok := re.sel.Attr("data-replay-goto"); ok {
		if r.current != nil {
			if ref, err := url.Parse(target); err == nil {
				target = r.current.ResolveReference(ref).String()
			}
		}
		return r.Navigate(ctx, target)
	}
	id, ok := re.sel.Attr("data-replay-open")
	if !ok {
		return nil
	}
	doc, _ := r.document()
	tmpl := doc.Find(`script[type="text/x-overlay"]#` + id)
	if tmpl.Length() == 0 {
		return fmt.Errorf("replay: overlay %q: %w", id, ErrNotFound)
	}
	doc.Find("body").AppendHtml(`<div data-replay-overlay="` + id + `">` + tmpl.Text() + `</div>`)
	return nil
}

func (r *Replay) ScrollIntoView(ctx context.Context, el Element) error {
	_, err := r.element(el)
	return err
}

func (r *Replay) Fill(ctx context.Context, el Element, value string) error {
	re, err := r.element(el)
	if err != nil {
		return err
	}
	re.sel.SetAttr("value", value)
	return nil
}

func (r *Replay) SendKey(ctx context.Context, key Key) error {
	if key != KeyEscape {
		return nil
	}
	doc, _ := r.document()
	doc.Find("[data-replay-overlay]").Last().Remove()
	return nil
}

func (r *Replay) Cookies(ctx context.Context) ([]Cookie, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Cookie{}, r.cookies...), nil
}

func (r *Replay) SetCookies(ctx context.Context, cookies []Cookie) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cookies = append([]Cookie(nil), cookies...)
	return nil
}

func (r *Replay) HTML(ctx context.Context) (string, error) {
	doc, _ := r.document()
	return goquery.OuterHtml(doc.Find("html"))
}

func (r *Replay) Close() error { return nil }
