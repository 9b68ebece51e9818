package whop

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whop-scraper/browser"
)

func TestClassifyPlatform(t *testing.T) {
	tests := []struct {
		href  string
		label string
		want  string
	}{
		{"https://twitter.com/alpha", "", PlatformTwitter},
		{"https://X.com/alpha", "", PlatformTwitter},
		{"https://www.instagram.com/alpha", "", PlatformInstagram},
		{"https://youtu.be/abc", "", PlatformYouTube},
		{"https://www.youtube.com/@alpha", "", PlatformYouTube},
		{"https://www.tiktok.com/@alpha", "", PlatformTikTok},
		{"https://facebook.com/alpha", "", PlatformFacebook},
		{"https://discord.gg/alpha", "", PlatformDiscord},
		{"https://alpha.example.com", "", PlatformWebsite},
		{"https://lnk.bio/alpha", "Instagram", PlatformInstagram},
		{"https://lnk.bio/alpha", "Follow on TikTok", PlatformTikTok},
		{"https://instagram.com/alpha", "Twitter", PlatformInstagram},
	}
	for _, tt := range tests {
		t.Run(tt.href+"|"+tt.label, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyPlatform(tt.href, tt.label))
		})
	}
}

func openOverlay(t *testing.T, body string) (*Scraper, browser.Element) {
	t.Helper()
	ctx := context.Background()
	page := `<html><body><button data-replay-open="o">View Profile</button>` +
		`<script type="text/x-overlay" id="o">` + body + `</script></body></html>`
	s, r := newTestScraper(map[string]string{"https://whop.test/x": page})
	require.NoError(t, r.Navigate(ctx, "https://whop.test/x"))

	btn, err := r.Find(ctx, nil, s.sel.ProfileButton)
	require.NoError(t, err)
	require.NoError(t, r.Click(ctx, btn))
	overlay, err := r.WaitFor(ctx, s.sel.Overlay, 0)
	require.NoError(t, err)
	return s, overlay
}

func TestResolveOpenProfileOneLinkPerPlatform(t *testing.T) {
	links := []link{
		{href: "https://twitter.com/alpha"},
		{href: "https://x.com/alpha_new"},
		{href: "https://instagram.com/alpha"},
		{href: "https://youtube.com/@alpha"},
		{href: "https://tiktok.com/@alpha"},
		{href: "https://facebook.com/alpha"},
		{href: "https://discord.gg/alpha"},
		{href: "https://alpha.example.com"},
		{label: "no href"},
	}
	s, overlay := openOverlay(t, overlayHTML("alpha • Joined Mar 2021", links, "Futures desk."))

	p := s.ResolveOpenProfile(context.Background(), overlay)
	assert.Len(t, p.Links, 7)
	assert.Equal(t, "https://x.com/alpha_new", p.Links[PlatformTwitter])
	assert.Equal(t, "https://alpha.example.com", p.Links[PlatformWebsite])
	assert.Equal(t, "alpha", p.Username)
	assert.Equal(t, "Joined Mar 2021", p.JoinDate)
	assert.Equal(t, "Futures desk.", p.Bio)
}

func TestResolveOpenProfileFallsBackToPartialListClass(t *testing.T) {
	body := overlayHTML("", []link{{href: "https://instagram.com/alpha"}}, "")
	body = strings.Replace(body, "mx-auto mt-4 flex w-auto items-center gap-3", "mx-auto mt-4 flex gap-5", 1)
	s, overlay := openOverlay(t, body)

	p := s.ResolveOpenProfile(context.Background(), overlay)
	assert.Equal(t, map[string]string{PlatformInstagram: "https://instagram.com/alpha"}, p.Links)
	assert.Empty(t, p.Username)
	assert.Empty(t, p.Bio)
}

func TestResolveOpenProfileWithNothing(t *testing.T) {
	s, overlay := openOverlay(t, `<div class="relative mt-[22px]"></div>`)

	p := s.ResolveOpenProfile(context.Background(), overlay)
	require.NotNil(t, p)
	assert.True(t, p.Empty())
}

func TestExtractProfilesSkipsWrappersAndUnnamedCards(t *testing.T) {
	ctx := context.Background()
	overlays := map[string]string{
		"p-alpha": overlayHTML("alpha • 2021", nil, "alpha bio"),
		"p-anon":  overlayHTML("anon • 2022", nil, "anon bio"),
	}
	anon := card{slug: "anon", name: "", overlay: "p-anon"}
	page := listingHTML([]card{alphaCard(), anon}, overlays)
	// Wrap both cards in an outer rounded container holding two buttons.
	page = strings.Replace(page, `<div><ul>`, `<div class="rounded-xl outer"><ul>`, 1)
	s, r := newTestScraper(map[string]string{pageURL(1): page})
	require.NoError(t, r.Navigate(ctx, pageURL(1)))

	got, err := s.ExtractProfiles(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Contains(t, got, "Alpha Traders")
	assert.Equal(t, "alpha bio", got["Alpha Traders"].Bio)

	overlays2, err := r.FindAll(ctx, nil, s.sel.Overlay)
	require.NoError(t, err)
	assert.Empty(t, overlays2, "every opened overlay is closed again")
}

type clickCounter struct {
	*browser.Replay
	clicks int
}

func (d *clickCounter) Click(ctx context.Context, el browser.Element) error {
	d.clicks++
	return d.Replay.Click(ctx, el)
}

func TestExtractProfilesOpensEachButtonOnce(t *testing.T) {
	ctx := context.Background()
	overlays := map[string]string{"p-alpha": overlayHTML("alpha • 2021", nil, "alpha bio")}
	page := listingHTML([]card{alphaCard()}, overlays)
	// An outer rounded container around one card holds that card's only button.
	page = strings.Replace(page, `<div><ul>`, `<div class="rounded-xl outer"><ul>`, 1)
	driver := &clickCounter{Replay: browser.NewReplay(map[string]string{pageURL(1): page})}
	s := New(testConfig(), driver, DefaultSelectors(), testLogger())
	require.NoError(t, driver.Navigate(ctx, pageURL(1)))

	got, err := s.ExtractProfiles(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, 1, driver.clicks)
}

func TestExtractProfilesMissingOverlayContinues(t *testing.T) {
	ctx := context.Background()
	broken := card{slug: "broken", name: "Broken", overlay: "p-missing"}
	overlays := map[string]string{"p-alpha": overlayHTML("alpha • 2021", nil, "alpha bio")}
	s, r := newTestScraper(map[string]string{pageURL(1): listingHTML([]card{broken, alphaCard()}, overlays)})
	require.NoError(t, r.Navigate(ctx, pageURL(1)))

	got, err := s.ExtractProfiles(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Contains(t, got, "Alpha Traders")
}

func TestLoadSelectorsOverridesOnlyGivenKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "selectors.yaml")
	yaml := "cards:\n  css: \"ul.board > li\"\nprofile_button:\n  css: a.profile\n  text: Profile\nusername_delimiter: \"|\"\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))

	sel, err := LoadSelectors(path)
	require.NoError(t, err)

	def := DefaultSelectors()
	assert.Equal(t, browser.CSS("ul.board > li"), sel.Cards)
	assert.Equal(t, browser.WithText("a.profile", "Profile"), sel.ProfileButton)
	assert.Equal(t, "|", sel.UsernameDelim)
	assert.Equal(t, def.Overlay, sel.Overlay)
	assert.Equal(t, def.Bio, sel.Bio)
}

func TestLoadSelectorsErrors(t *testing.T) {
	sel, err := LoadSelectors("")
	require.NoError(t, err)
	assert.Equal(t, DefaultSelectors(), sel)

	_, err = LoadSelectors(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("cards: [unclosed"), 0644))
	_, err = LoadSelectors(bad)
	assert.Error(t, err)
}
