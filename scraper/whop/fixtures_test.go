package whop

import (
	"fmt"
	"strings"
	"time"

	"whop-scraper/config"
	"whop-scraper/utils"
)

const testBoard = "https://whop.test/discover/leaderboards/c/trading/p/%d/"

func testConfig() *config.Config {
	return &config.Config{
		LeaderboardURL: testBoard,
		PageTimeout:    time.Second,
		LookupTimeout:  time.Second,
	}
}

func testLogger() *utils.Logger { return utils.NewNopLogger() }

type card struct {
	slug    string
	name    string
	desc    string
	price   string
	minutes string
	joined  string
	rating  string
	stars   int
	overlay string
	// nested wraps the minutes and joined spans in one outer span.
	nested bool
}

func (c card) html() string {
	var b strings.Builder
	b.WriteString(`<div class="rounded-xl border p-3">`)
	fmt.Fprintf(&b, `<a href="/discover/%s/">`, c.slug)
	fmt.Fprintf(&b, `<span class="fui-Text size-3"><span>%s</span></span>`, c.name)
	if c.desc != "" {
		fmt.Fprintf(&b, `<span class="line-clamp-2">%s</span>`, c.desc)
	}
	if c.price != "" {
		fmt.Fprintf(&b, `<span class="fui-Badge">%s</span>`, c.price)
	}
	b.WriteString(`</a>`)
	if c.nested {
		fmt.Fprintf(&b, `<span><span>%s</span> · <span>%s</span></span>`, c.minutes, c.joined)
	} else {
		if c.minutes != "" {
			fmt.Fprintf(&b, `<span>%s</span>`, c.minutes)
		}
		if c.joined != "" {
			fmt.Fprintf(&b, `<span>%s</span>`, c.joined)
		}
	}
	if c.rating != "" {
		b.WriteString(`<button class="fui-Button ghost">`)
		for i := 0; i < c.stars; i++ {
			b.WriteString(`<svg fill="currentColor" width="12"></svg>`)
		}
		b.WriteString(`<svg fill="none" width="12"></svg>`)
		b.WriteString(c.rating)
		b.WriteString(`</button>`)
	}
	if c.overlay != "" {
		fmt.Fprintf(&b, `<button class="profile" data-replay-open="%s">View Profile</button>`, c.overlay)
	}
	b.WriteString(`</div>`)
	return b.String()
}

func listingHTML(cards []card, overlays map[string]string) string {
	var b strings.Builder
	b.WriteString(`<html><body><div id="main-content-with-header">`)
	b.WriteString(`<div>Trading leaderboard</div><div>filters</div><div><ul>`)
	for _, c := range cards {
		b.WriteString(`<div>`)
		b.WriteString(c.html())
		b.WriteString(`</div>`)
	}
	b.WriteString(`</ul></div>`)
	b.WriteString(`<ul role="navigation"><button>1</button><button>2</button><button>7</button><button>Next</button></ul>`)
	b.WriteString(`</div>`)
	writeOverlays(&b, overlays)
	b.WriteString(`</body></html>`)
	return b.String()
}

func writeOverlays(b *strings.Builder, overlays map[string]string) {
	for id, body := range overlays {
		fmt.Fprintf(b, `<script type="text/x-overlay" id="%s">%s</script>`, id, body)
	}
}

type link struct{ href, label string }

func overlayHTML(username string, links []link, bio string) string {
	var b strings.Builder
	b.WriteString(`<div class="relative mt-[22px] flex flex-col">`)
	b.WriteString(`<span class="fui-Text title">Owner</span>`)
	if username != "" {
		fmt.Fprintf(&b, `<span class="fui-Text muted">%s</span>`, username)
	}
	b.WriteString(`<ul class="mx-auto mt-4 flex w-auto items-center gap-3">`)
	for _, l := range links {
		b.WriteString(`<li><a`)
		if l.href != "" {
			fmt.Fprintf(&b, ` href="%s"`, l.href)
		}
		if l.label != "" {
			fmt.Fprintf(&b, ` aria-label="%s"`, l.label)
		}
		b.WriteString(`>icon</a></li>`)
	}
	b.WriteString(`</ul>`)
	if bio != "" {
		fmt.Fprintf(&b, `<p class="fui-Text max-w-[478px] text-center">%s</p>`, bio)
	}
	b.WriteString(`</div>`)
	return b.String()
}

func detailHTML(name, ranking, founded, desc string, features []string, anchors []string, overlay string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<html><body><h1>%s</h1>`, name)
	if ranking != "" {
		fmt.Fprintf(&b, `<span>%s</span>`, ranking)
	}
	if founded != "" {
		fmt.Fprintf(&b, `<span>%s</span>`, founded)
	}
	if desc != "" {
		fmt.Fprintf(&b, `<div role="paragraph">%s</div>`, desc)
	}
	b.WriteString(`<div class="features"><ul>`)
	for _, f := range features {
		fmt.Fprintf(&b, `<li> %s </li>`, f)
	}
	b.WriteString(`</ul></div>`)
	for _, a := range anchors {
		fmt.Fprintf(&b, `<a href="%s">social</a>`, a)
	}
	if overlay != "" {
		b.WriteString(`<button data-replay-open="detail-profile">View Profile</button>`)
		writeOverlays(&b, map[string]string{"detail-profile": overlay})
	}
	b.WriteString(`</body></html>`)
	return b.String()
}

func pageURL(n int) string { return fmt.Sprintf(testBoard, n) }

func communityURL(slug string) string { return "https://whop.test/discover/" + slug + "/" }
