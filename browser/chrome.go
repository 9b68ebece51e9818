package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"

	"whop-scraper/utils"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// ChromeOptions configures a Chrome driver.
type ChromeOptions struct {
	Headless        bool
	ExecPath        string
	UserAgent       string
	NavigateTimeout time.Duration
	LookupTimeout   time.Duration
	StartAttempts   int
}

// Chrome drives a single Chrome tab over the DevTools protocol.
type Chrome struct {
	ctx         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc

	opts   ChromeOptions
	logger *utils.Logger
}

type chromeElement struct {
	node *cdp.Node
}

func (e *chromeElement) Key() string {
	if e.node == nil {
		return ""
	}
	return strconv.FormatInt(int64(e.node.BackendNodeID), 10)
}

func (e *chromeElement) Describe() string {
	if e.node == nil {
		return "<nil>"
	}
	if cls := e.node.AttributeValue("class"); cls != "" {
		return e.node.LocalName + "." + strings.ReplaceAll(cls, " ", ".")
	}
	return e.node.LocalName
}

// NewChrome launches a browser and opens one tab.
func NewChrome(opts ChromeOptions, logger *utils.Logger) (*Chrome, error) {
	if opts.NavigateTimeout <= 0 {
		opts.NavigateTimeout = 30 * time.Second
	}
	if opts.LookupTimeout <= 0 {
		opts.LookupTimeout = 2 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.ExecPath == "" {
		opts.ExecPath = FindChromeBinary()
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(1920, 1080),
		chromedp.UserAgent(opts.UserAgent),
	)
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}
	logger.Info("[browser] Launching Chrome (headless=%v, binary=%q)", opts.Headless, opts.ExecPath)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	// Suppress chromedp log noise
	tabCtx, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	c := &Chrome{
		ctx:         tabCtx,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
		opts:        opts,
		logger:      logger,
	}

	retry := &utils.RetryConfig{MaxAttempts: opts.StartAttempts, BaseDelay: time.Second, Logger: logger}
	err := retry.Do(context.Background(), "chrome-start", func() error {
		return chromedp.Run(tabCtx, network.Enable(), chromedp.Navigate("about:blank"))
	})
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("browser: start chrome: %w", err)
	}
	return c, nil
}

// run executes actions on the tab, bounded by timeout and by the caller's ctx.
func (c *Chrome) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(c.ctx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return classify(err)
}

func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	msg := err.Error()
	for _, marker := range []string{"No node with given id", "Could not find node", "Node is detached", "Cannot find context with specified id"} {
		if strings.Contains(msg, marker) {
			return fmt.Errorf("%w: %v", ErrStale, err)
		}
	}
	return err
}

func (c *Chrome) element(el Element) (*chromeElement, error) {
	ce, ok := el.(*chromeElement)
	if !ok || ce == nil || ce.node == nil {
		return nil, fmt.Errorf("browser: foreign element %T", el)
	}
	return ce, nil
}

// onNode calls a JS function with `this` bound to the element's node.
func (c *Chrome) onNode(ctx context.Context, el Element, fn string, res interface{}, args ...interface{}) error {
	ce, err := c.element(el)
	if err != nil {
		return err
	}
	return c.run(ctx, c.opts.LookupTimeout, chromedp.ActionFunc(func(ctx context.Context) error {
		obj, err := dom.ResolveNode().WithNodeID(ce.node.NodeID).Do(ctx)
		if err != nil {
			return err
		}
		// Release fails once the page has navigated away; that is harmless.
		defer runtime.ReleaseObject(obj.ObjectID).Do(ctx)

		return chromedp.CallFunctionOn(fn, res, func(p *runtime.CallFunctionOnParams) *runtime.CallFunctionOnParams {
			return p.WithObjectID(obj.ObjectID)
		}, args...).Do(ctx)
	}))
}

func (c *Chrome) Navigate(ctx context.Context, url string) error {
	return c.run(ctx, c.opts.NavigateTimeout, chromedp.Navigate(url))
}

func (c *Chrome) WaitFor(ctx context.Context, loc Locator, timeout time.Duration) (Element, error) {
	var found Element
	err := poll(ctx, timeout, 250*time.Millisecond, func(ctx context.Context) (bool, error) {
		els, err := c.FindAll(ctx, nil, loc)
		if err != nil && !errors.Is(err, ErrTimeout) {
			return false, err
		}
		if len(els) > 0 {
			found = els[0]
			return true, nil
		}
		return false, nil
	})
	if err != nil {
		return nil, fmt.Errorf("wait for %s: %w", loc, err)
	}
	return found, nil
}

func (c *Chrome) WaitGone(ctx context.Context, loc Locator, timeout time.Duration) error {
	err := poll(ctx, timeout, 250*time.Millisecond, func(ctx context.Context) (bool, error) {
		els, err := c.FindAll(ctx, nil, loc)
		if err != nil && !errors.Is(err, ErrTimeout) {
			return false, err
		}
		return len(els) == 0, nil
	})
	if err != nil {
		return fmt.Errorf("wait gone %s: %w", loc, err)
	}
	return nil
}

func (c *Chrome) Find(ctx context.Context, scope Element, loc Locator) (Element, error) {
	els, err := c.FindAll(ctx, scope, loc)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, loc)
	}
	return els[0], nil
}

func (c *Chrome) FindAll(ctx context.Context, scope Element, loc Locator) ([]Element, error) {
	opts := []chromedp.QueryOption{chromedp.ByQueryAll, chromedp.AtLeast(0)}
	if scope != nil {
		ce, err := c.element(scope)
		if err != nil {
			return nil, err
		}
		opts = append(opts, chromedp.FromNode(ce.node))
	}

	var nodes []*cdp.Node
	if err := c.run(ctx, c.opts.LookupTimeout, chromedp.Nodes(loc.CSS, &nodes, opts...)); err != nil {
		return nil, err
	}

	els := make([]Element, 0, len(nodes))
	for _, n := range nodes {
		els = append(els, &chromeElement{node: n})
	}
	return filterByText(ctx, els, loc.Text, c.ownText)
}

func (c *Chrome) Text(ctx context.Context, el Element) (string, error) {
	var text string
	err := c.onNode(ctx, el, `function() { return (this.innerText || this.textContent || "").trim(); }`, &text)
	return text, err
}

func (c *Chrome) ownText(ctx context.Context, el Element) (string, error) {
	var text string
	err := c.onNode(ctx, el, `function() {
		var s = "";
		for (var n = this.firstChild; n; n = n.nextSibling) {
			if (n.nodeType === Node.TEXT_NODE) s += n.nodeValue;
		}
		return s;
	}`, &text)
	return text, err
}

func (c *Chrome) Attribute(ctx context.Context, el Element, name string) (string, bool, error) {
	var res struct {
		Value string `json:"value"`
		OK    bool   `json:"ok"`
	}
	// href is read as a property so relative links come back absolute.
	err := c.onNode(ctx, el, `function(name) {
		if (name === "href" && this.href) return {value: String(this.href), ok: true};
		var v = this.getAttribute(name);
		return v === null ? {value: "", ok: false} : {value: v, ok: true};
	}`, &res, name)
	if err != nil {
		return "", false, err
	}
	return res.Value, res.OK, nil
}

func (c *Chrome) Click(ctx context.Context, el Element) error {
	ce, err := c.element(el)
	if err != nil {
		return err
	}
	return c.run(ctx, c.opts.LookupTimeout, chromedp.MouseClickNode(ce.node))
}

func (c *Chrome) ScrollIntoView(ctx context.Context, el Element) error {
	return c.onNode(ctx, el, `function() { this.scrollIntoView({block: "center"}); }`, nil)
}

func (c *Chrome) Fill(ctx context.Context, el Element, value string) error {
	// Goes through the native setter so framework-controlled inputs see the change.
	return c.onNode(ctx, el, `function(v) {
		this.focus();
		var d = Object.getOwnPropertyDescriptor(Object.getPrototypeOf(this), "value");
		if (d && d.set) { d.set.call(this, v); } else { this.value = v; }
		this.dispatchEvent(new Event("input", {bubbles: true}));
		this.dispatchEvent(new Event("change", {bubbles: true}));
	}`, nil, value)
}

func (c *Chrome) SendKey(ctx context.Context, key Key) error {
	var k string
	switch key {
	case KeyEscape:
		k = kb.Escape
	case KeyEnter:
		k = kb.Enter
	default:
		k = string(key)
	}
	return c.run(ctx, c.opts.LookupTimeout, chromedp.KeyEvent(k))
}

func (c *Chrome) Cookies(ctx context.Context) ([]Cookie, error) {
	var raw []*network.Cookie
	err := c.run(ctx, c.opts.LookupTimeout, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		raw, err = storage.GetCookies().Do(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("browser: get cookies: %w", err)
	}

	cookies := make([]Cookie, 0, len(raw))
	for _, rc := range raw {
		cookies = append(cookies, Cookie{
			Name:     rc.Name,
			Value:    rc.Value,
			Domain:   rc.Domain,
			Path:     rc.Path,
			Expires:  rc.Expires,
			HTTPOnly: rc.HTTPOnly,
			Secure:   rc.Secure,
			SameSite: string(rc.SameSite),
		})
	}
	return cookies, nil
}

func (c *Chrome) SetCookies(ctx context.Context, cookies []Cookie) error {
	params := make([]*network.CookieParam, 0, len(cookies))
	for _, ck := range cookies {
		p := &network.CookieParam{
			Name:     ck.Name,
			Value:    ck.Value,
			Domain:   ck.Domain,
			Path:     ck.Path,
			Secure:   ck.Secure,
			HTTPOnly: ck.HTTPOnly,
		}
		if ck.Expires > 0 {
			exp := cdp.TimeSinceEpoch(time.Unix(int64(ck.Expires), 0))
			p.Expires = &exp
		}
		switch strings.ToLower(ck.SameSite) {
		case "strict":
			p.SameSite = network.CookieSameSiteStrict
		case "lax":
			p.SameSite = network.CookieSameSiteLax
		case "none":
			p.SameSite = network.CookieSameSiteNone
		}
		params = append(params, p)
	}

	err := c.run(ctx, c.opts.LookupTimeout, chromedp.ActionFunc(func(ctx context.Context) error {
		return storage.SetCookies(params).Do(ctx)
	}))
	if err != nil {
		return fmt.Errorf("browser: set cookies: %w", err)
	}
	return nil
}

func (c *Chrome) HTML(ctx context.Context) (string, error) {
	var html string
	err := c.run(ctx, c.opts.NavigateTimeout, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, err
}

// Close shuts the tab and the browser process.
func (c *Chrome) Close() error {
	if c.cancelTab != nil {
		c.cancelTab()
	}
	if c.cancelAlloc != nil {
		c.cancelAlloc()
	}
	return nil
}

// FindChromeBinary locates a Chrome/Chromium binary, or returns "" to let
// chromedp use its own lookup.
func FindChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
		"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
