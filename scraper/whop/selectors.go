package whop

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"whop-scraper/browser"
)

// Selectors is the field→locator table for the leaderboard site. Whop's
// markup churns often; everything structural lives here so extraction code
// never embeds a selector. Any entry can be overridden from a YAML file.
type Selectors struct {
	// Listing page
	PageReady   browser.Locator `yaml:"page_ready"`
	Cards       browser.Locator `yaml:"cards"`
	CardLink    browser.Locator `yaml:"card_link"`
	CardName    browser.Locator `yaml:"card_name"`
	CardDesc    browser.Locator `yaml:"card_description"`
	CardPrice   browser.Locator `yaml:"card_price_badge"`
	CardMinutes browser.Locator `yaml:"card_minutes"`
	CardJoined  browser.Locator `yaml:"card_joined"`
	RatingBtn   browser.Locator `yaml:"rating_button"`
	RatingStar  browser.Locator `yaml:"rating_star"`
	Pagination  browser.Locator `yaml:"pagination_button"`

	// Profile affordances and overlay
	ProfileCard      browser.Locator `yaml:"profile_card"`
	ProfileCardName  browser.Locator `yaml:"profile_card_name"`
	ProfileButton    browser.Locator `yaml:"profile_button"`
	Overlay          browser.Locator `yaml:"overlay"`
	OverlayText      browser.Locator `yaml:"overlay_text"`
	LinksExact       browser.Locator `yaml:"links_exact"`
	LinksPartial     browser.Locator `yaml:"links_partial"`
	LinkItem         browser.Locator `yaml:"link_item"`
	LinkAnchor       browser.Locator `yaml:"link_anchor"`
	Bio              browser.Locator `yaml:"bio"`
	UsernameDelim    string          `yaml:"username_delimiter"`
	DetailHeading    browser.Locator `yaml:"detail_heading"`
	DetailRanking    browser.Locator `yaml:"detail_ranking"`
	DetailFounded    browser.Locator `yaml:"detail_founded"`
	DetailDesc       browser.Locator `yaml:"detail_description"`
	DetailFeature    browser.Locator `yaml:"detail_feature"`
	DetailSocialLink browser.Locator `yaml:"detail_social_link"`
}

// DefaultSelectors returns the locators matching the live site.
func DefaultSelectors() Selectors {
	return Selectors{
		PageReady:   browser.CSS(`#main-content-with-header`),
		Cards:       browser.CSS(`#main-content-with-header > div:nth-of-type(3) > ul > div`),
		CardLink:    browser.CSS(`a`),
		CardName:    browser.CSS(`span[class*="fui-Text"] > span`),
		CardDesc:    browser.CSS(`span[class*="line-clamp-2"]`),
		CardPrice:   browser.CSS(`span[class*="fui-Badge"]`),
		CardMinutes: browser.WithText(`span`, "minutes"),
		CardJoined:  browser.WithText(`span`, "joined"),
		RatingBtn:   browser.CSS(`button[class*="fui-Button"]`),
		RatingStar:  browser.CSS(`svg[fill*="currentColor"]`),
		Pagination:  browser.CSS(`ul[role="navigation"] button`),

		ProfileCard:     browser.CSS(`div[class*="rounded-xl"]`),
		ProfileCardName: browser.CSS(`span[class*="fui-Text"] > span`),
		ProfileButton:   browser.WithText(`button`, "View Profile"),
		Overlay:         browser.CSS(`div[class*="relative mt-[22px]"]`),
		OverlayText:     browser.CSS(`span[class*="fui-Text"]`),
		LinksExact:      browser.CSS(`ul[class="mx-auto mt-4 flex w-auto items-center gap-3"]`),
		LinksPartial:    browser.CSS(`ul[class*="mx-auto mt-4"]`),
		LinkItem:        browser.CSS(`li`),
		LinkAnchor:      browser.CSS(`a`),
		Bio:             browser.CSS(`p[class*="fui-Text max-w-[478px]"]`),
		UsernameDelim:   "•",

		DetailHeading:    browser.CSS(`h1`),
		DetailRanking:    browser.WithText(`span`, "Whop Ranking"),
		DetailFounded:    browser.WithText(`span`, "Founded"),
		DetailDesc:       browser.CSS(`div[role="paragraph"]`),
		DetailFeature:    browser.CSS(`div[class*="features"] li`),
		DetailSocialLink: browser.CSS(`a[href*="discord.com"], a[href*="twitter.com"]`),
	}
}

// LoadSelectors returns the defaults with any entries from the YAML file at
// path laid over them. An empty path yields the defaults.
func LoadSelectors(path string) (Selectors, error) {
	sel := DefaultSelectors()
	if path == "" {
		return sel, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return sel, fmt.Errorf("selectors: read %q: %w", path, err)
	}
	// Unmarshalling into the populated struct keeps defaults for absent keys.
	if err := yaml.Unmarshal(data, &sel); err != nil {
		return sel, fmt.Errorf("selectors: parse %q: %w", path, err)
	}
	return sel, nil
}
