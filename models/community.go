package models

// Rating is the star/review block shown on a leaderboard card.
// A nil *Rating means the block could not be read.
type Rating struct {
	Stars   int    `json:"stars"`
	Count   string `json:"count"`
	DaysAgo string `json:"days_ago"`
}

// CommunitySummary holds what a leaderboard card exposes. URL is the key
// within a run; every other field is an empty string when absent.
type CommunitySummary struct {
	URL          string
	Name         string
	Description  string
	PriceBadge   string
	MinutesSpent string
	Rating       *Rating
	JoinedCount  string
}

// SocialProfile is what the "View Profile" overlay reveals about a
// community's owner. Links maps platform (twitter, instagram, youtube,
// tiktok, facebook, discord, website) to a URL.
type SocialProfile struct {
	Links    map[string]string `json:"links,omitempty"`
	Username string            `json:"username,omitempty"`
	JoinDate string            `json:"join_date,omitempty"`
	Bio      string            `json:"bio,omitempty"`
}

// Empty reports whether nothing at all was extracted.
func (p *SocialProfile) Empty() bool {
	return p == nil || (len(p.Links) == 0 && p.Username == "" && p.JoinDate == "" && p.Bio == "")
}

// Community is a summary enriched with its detail page. It starts life as
// a bare summary and is filled in place by the detail extractor.
type Community struct {
	CommunitySummary

	WhopRanking     string
	FoundedDate     string
	FullDescription string
	Features        []string
	// SocialLinks are anchors found directly on the detail page.
	SocialLinks map[string]string
	// Profile comes from the overlay; nil when none was found.
	Profile *SocialProfile
}

// NewCommunity wraps a summary so it can be enriched.
func NewCommunity(s CommunitySummary) *Community {
	return &Community{CommunitySummary: s}
}

// InsightReport holds the computed analytics over a finished run.
type InsightReport struct {
	TotalCommunities int
	Duplicates       int
	WithProfile      int
	FreeCommunities  int
	PaidCommunities  int
	// Prices are monthly, over paid communities with a readable badge.
	AveragePrice     float64
	MinPrice         float64
	MaxPrice         float64
	MostExpensive    *RankedCommunity
	PlatformCoverage map[string]int
	TopJoined        []*RankedCommunity
}

// RankedCommunity is a community with the figure it was ranked by.
type RankedCommunity struct {
	Name   string
	URL    string
	Joined int
	Price  float64
}
