package whop

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whop-scraper/browser"
	"whop-scraper/models"
)

func alphaCard() card {
	return card{
		slug: "alpha", name: "Alpha Traders", desc: "Daily futures signals", price: "$49 / month",
		minutes: "120 minutes", joined: "1.2K joined", rating: "(128) · 3d", stars: 5, overlay: "p-alpha",
	}
}

func newTestScraper(pages map[string]string) (*Scraper, *browser.Replay) {
	r := browser.NewReplay(pages)
	return New(testConfig(), r, DefaultSelectors(), testLogger()), r
}

func TestExtractListReadsEveryField(t *testing.T) {
	ctx := context.Background()
	s, r := newTestScraper(map[string]string{pageURL(1): listingHTML([]card{alphaCard()}, nil)})
	require.NoError(t, r.Navigate(ctx, pageURL(1)))

	got, err := s.ExtractList(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, models.CommunitySummary{
		URL:          communityURL("alpha"),
		Name:         "Alpha Traders",
		Description:  "Daily futures signals",
		PriceBadge:   "$49 / month",
		MinutesSpent: "120 minutes",
		JoinedCount:  "1.2K joined",
		Rating:       &models.Rating{Stars: 5, Count: "128", DaysAgo: "3d"},
	}, got[0])
}

func TestExtractListReadsNestedStatSpans(t *testing.T) {
	ctx := context.Background()
	c := alphaCard()
	c.nested = true
	s, r := newTestScraper(map[string]string{pageURL(1): listingHTML([]card{c}, nil)})
	require.NoError(t, r.Navigate(ctx, pageURL(1)))

	got, err := s.ExtractList(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "120 minutes", got[0].MinutesSpent)
	assert.Equal(t, "1.2K joined", got[0].JoinedCount)
}

func TestExtractListFailsClosedOnMissingFields(t *testing.T) {
	ctx := context.Background()
	bare := card{slug: "bare", name: "Bare"}
	s, r := newTestScraper(map[string]string{pageURL(1): listingHTML([]card{bare}, nil)})
	require.NoError(t, r.Navigate(ctx, pageURL(1)))

	got, err := s.ExtractList(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)

	sum := got[0]
	assert.Equal(t, "Bare", sum.Name)
	assert.Equal(t, "", sum.Description)
	assert.Equal(t, "", sum.PriceBadge)
	assert.Equal(t, "", sum.MinutesSpent)
	assert.Equal(t, "", sum.JoinedCount)
	assert.Nil(t, sum.Rating)
}

func TestExtractListSkipsNonCommunityLinks(t *testing.T) {
	ctx := context.Background()
	page := listingHTML([]card{alphaCard()}, nil)
	page = strings.Replace(page, `<div><ul>`, `<div><ul><div><a href="/ads/banner/">Ad</a></div>`, 1)
	s, r := newTestScraper(map[string]string{pageURL(1): page})
	require.NoError(t, r.Navigate(ctx, pageURL(1)))

	got, err := s.ExtractList(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Alpha Traders", got[0].Name)
}

func TestExtractListWithoutContainerIsEmpty(t *testing.T) {
	ctx := context.Background()
	s, r := newTestScraper(nil)
	require.NoError(t, r.Navigate(ctx, pageURL(1)))

	got, err := s.ExtractList(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

// staleDriver reports any node whose text mentions "Ghost" as stale, the way
// a live page behaves when a card is re-rendered mid-read.
type staleDriver struct {
	*browser.Replay
}

func (d staleDriver) Text(ctx context.Context, el browser.Element) (string, error) {
	text, err := d.Replay.Text(ctx, el)
	if err == nil && strings.Contains(text, "Ghost") {
		return "", browser.ErrStale
	}
	return text, err
}

func TestExtractListDropsStaleCards(t *testing.T) {
	ctx := context.Background()
	ghost := card{slug: "ghost", name: "Ghost Room", desc: "vanishes"}
	r := browser.NewReplay(map[string]string{pageURL(1): listingHTML([]card{alphaCard(), ghost}, nil)})
	s := New(testConfig(), staleDriver{r}, DefaultSelectors(), testLogger())
	require.NoError(t, r.Navigate(ctx, pageURL(1)))

	got, err := s.ExtractList(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, communityURL("alpha"), got[0].URL)
}

func TestReadRatingWithEmptyLabel(t *testing.T) {
	ctx := context.Background()
	c := alphaCard()
	c.rating = " "
	s, r := newTestScraper(map[string]string{pageURL(1): listingHTML([]card{c}, nil)})
	require.NoError(t, r.Navigate(ctx, pageURL(1)))

	got, err := s.ExtractList(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Nil(t, got[0].Rating)
}

func TestExtractDetail(t *testing.T) {
	ctx := context.Background()
	overlay := overlayHTML("alphatrader • Joined Mar 2021", []link{{href: "https://instagram.com/alpha"}}, "We trade futures.")
	pages := map[string]string{
		communityURL("alpha"): detailHTML("Alpha Traders", "Whop Ranking #3", "Founded 2021", "Everything about Alpha.",
			[]string{"Signals", "Chat"}, []string{"https://discord.com/invite/alpha", "https://twitter.com/alpha"}, overlay),
	}
	s, _ := newTestScraper(pages)

	got, err := s.ExtractDetail(ctx, models.CommunitySummary{URL: communityURL("alpha"), Name: "Alpha Traders"})
	require.NoError(t, err)

	assert.Equal(t, "Alpha Traders", got.Name)
	assert.Equal(t, "Whop Ranking #3", got.WhopRanking)
	assert.Equal(t, "Founded 2021", got.FoundedDate)
	assert.Equal(t, "Everything about Alpha.", got.FullDescription)
	assert.Equal(t, []string{"Signals", "Chat"}, got.Features)
	assert.Equal(t, map[string]string{
		"discord": "https://discord.com/invite/alpha",
		"twitter": "https://twitter.com/alpha",
	}, got.SocialLinks)
	require.NotNil(t, got.Profile)
	assert.Equal(t, "alphatrader", got.Profile.Username)
	assert.Equal(t, "Joined Mar 2021", got.Profile.JoinDate)
	assert.Equal(t, "We trade futures.", got.Profile.Bio)
	assert.Equal(t, map[string]string{"instagram": "https://instagram.com/alpha"}, got.Profile.Links)
}

func TestExtractDetailReadsNestedSpans(t *testing.T) {
	page := `<html><body><h1>Alpha Traders</h1>` +
		`<span class="meta"><span>Whop Ranking #3</span><span>Founded 2021</span></span>` +
		`</body></html>`
	s, _ := newTestScraper(map[string]string{communityURL("alpha"): page})

	got, err := s.ExtractDetail(context.Background(), models.CommunitySummary{URL: communityURL("alpha"), Name: "Alpha Traders"})
	require.NoError(t, err)
	assert.Equal(t, "Whop Ranking #3", got.WhopRanking)
	assert.Equal(t, "Founded 2021", got.FoundedDate)
}

func TestExtractDetailTimeoutKeepsSummary(t *testing.T) {
	s, _ := newTestScraper(nil)
	sum := models.CommunitySummary{URL: communityURL("gone"), Name: "Gone", PriceBadge: "Free"}

	got, err := s.ExtractDetail(context.Background(), sum)
	require.NoError(t, err)
	assert.Equal(t, sum, got.CommunitySummary)
	assert.Empty(t, got.WhopRanking)
	assert.Nil(t, got.Features)
	assert.Nil(t, got.Profile)
}

func TestExtractDetailWithoutProfileButton(t *testing.T) {
	pages := map[string]string{
		communityURL("plain"): detailHTML("Plain", "", "", "", nil, nil, ""),
	}
	s, _ := newTestScraper(pages)
	got, err := s.ExtractDetail(context.Background(), models.CommunitySummary{URL: communityURL("plain")})
	require.NoError(t, err)
	assert.Nil(t, got.Profile)
	assert.Empty(t, got.Features)
	assert.Empty(t, got.SocialLinks)
}

func TestScrapeAllStopsAtMaxPages(t *testing.T) {
	pages := make(map[string]string)
	for n := 1; n <= 5; n++ {
		pages[pageURL(n)] = listingHTML([]card{{slug: fmt.Sprintf("c%d", n), name: fmt.Sprintf("Community %d", n)}}, nil)
	}
	s, r := newTestScraper(pages)

	got, err := s.ScrapeAll(context.Background(), 3)
	require.NoError(t, err)
	assert.Len(t, got, 3)
	assert.Equal(t, 3, listingLoads(r))
}

func TestScrapeAllStopsOnEmptyPage(t *testing.T) {
	pages := map[string]string{
		pageURL(1): listingHTML([]card{{slug: "one", name: "One"}}, nil),
		pageURL(2): listingHTML(nil, nil),
		pageURL(3): listingHTML([]card{{slug: "three", name: "Three"}}, nil),
	}
	s, r := newTestScraper(pages)

	got, err := s.ScrapeAll(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "One", got[0].Name)
	assert.Equal(t, 2, listingLoads(r))
}

func TestScrapeAllStopsWhenPageFailsToLoad(t *testing.T) {
	pages := map[string]string{
		pageURL(1): listingHTML([]card{{slug: "one", name: "One"}}, nil),
	}
	s, r := newTestScraper(pages)

	got, err := s.ScrapeAll(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, 2, listingLoads(r))
}

func TestScrapeAllStopsOnRepeatedPage(t *testing.T) {
	same := listingHTML([]card{{slug: "one", name: "One"}, {slug: "two", name: "Two"}}, nil)
	pages := map[string]string{pageURL(1): same, pageURL(2): same, pageURL(3): same}
	s, r := newTestScraper(pages)

	got, err := s.ScrapeAll(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, 2, listingLoads(r))
}

func TestScrapeAllAttachesListingProfiles(t *testing.T) {
	listingOverlay := overlayHTML("alpha • Joined 2020", []link{{href: "https://x.com/alpha"}}, "from listing")
	detailOverlay := overlayHTML("", []link{{href: "https://tiktok.com/@alpha"}}, "from detail")
	pages := map[string]string{
		pageURL(1):            listingHTML([]card{alphaCard(), {slug: "beta", name: "Beta"}}, map[string]string{"p-alpha": listingOverlay}),
		communityURL("alpha"): detailHTML("Alpha Traders", "", "", "", nil, nil, detailOverlay),
		communityURL("beta"):  detailHTML("Beta", "", "", "", nil, nil, detailOverlay),
	}
	s, _ := newTestScraper(pages)

	got, err := s.ScrapeAll(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, got, 2)

	require.NotNil(t, got[0].Profile)
	assert.Equal(t, "from listing", got[0].Profile.Bio, "listing-page profile replaces the detail overlay by name")
	assert.Equal(t, map[string]string{"twitter": "https://x.com/alpha"}, got[0].Profile.Links)

	require.NotNil(t, got[1].Profile)
	assert.Equal(t, "from detail", got[1].Profile.Bio)
}

func TestScrapeAllHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s, _ := newTestScraper(map[string]string{pageURL(1): listingHTML([]card{alphaCard()}, nil)})

	got, err := s.ScrapeAll(ctx, 0)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, got)
}

func TestScrapeAllDumpsPages(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig()
	cfg.DumpHTMLDir = dir
	r := browser.NewReplay(map[string]string{pageURL(1): listingHTML([]card{{slug: "one", name: "One"}}, nil)})
	s := New(cfg, r, DefaultSelectors(), testLogger())

	_, err := s.ScrapeAll(context.Background(), 1)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, browser.CaptureName(pageURL(1))))
	require.NoError(t, err)
	assert.Contains(t, string(data), "main-content-with-header")
}

func TestPageURLWithoutPlaceholder(t *testing.T) {
	cfg := testConfig()
	cfg.LeaderboardURL = "https://whop.com/discover/leaderboards/c/trading/"
	s := New(cfg, browser.NewReplay(nil), DefaultSelectors(), testLogger())
	assert.Equal(t, "https://whop.com/discover/leaderboards/c/trading/p/4/", s.pageURL(4))
}

func listingLoads(r *browser.Replay) int {
	n := 0
	for _, v := range r.Visits() {
		if strings.Contains(v, "/leaderboards/") {
			n++
		}
	}
	return n
}
