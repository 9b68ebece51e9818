package storage

import (
	"sort"
	"strconv"
	"strings"

	"whop-scraper/models"
)

const (
	profilePrefix = "profile_social_links_"
	directPrefix  = "social_links_"

	// FeatureSeparator joins a community's feature list into one cell.
	FeatureSeparator = "; "
)

// Columns is the fixed leading part of every CSV header, in order.
var Columns = []string{
	// basic info
	"name", "url", "description", "full_description", "price_badge",
	"joined_count", "minutes_spent", "founded_date", "whop_ranking",
	// rating
	"rating_stars", "rating_count", "rating_days_ago",
	"features",
	// profile info
	profilePrefix + "username", profilePrefix + "join_date", profilePrefix + "bio",
	// profile links
	profilePrefix + "twitter", profilePrefix + "x", profilePrefix + "instagram",
	profilePrefix + "youtube", profilePrefix + "tiktok", profilePrefix + "facebook",
	profilePrefix + "discord", profilePrefix + "website",
}

// linkAliases maps alternative profile-link keys onto their column.
var linkAliases = map[string]string{
	"x":   "twitter",
	"yt":  "youtube",
	"url": "website",
}

// Row is one flattened record keyed by column name.
type Row map[string]string

// Normalize flattens a community into a Row. Absent values are omitted and
// render as "" when written.
func Normalize(c *models.Community) Row {
	row := Row{
		"name":             c.Name,
		"url":              c.URL,
		"description":      c.Description,
		"full_description": c.FullDescription,
		"price_badge":      c.PriceBadge,
		"joined_count":     c.JoinedCount,
		"minutes_spent":    c.MinutesSpent,
		"founded_date":     c.FoundedDate,
		"whop_ranking":     c.WhopRanking,
		"features":         strings.Join(c.Features, FeatureSeparator),
	}
	if r := c.Rating; r != nil {
		row["rating_stars"] = strconv.Itoa(r.Stars)
		row["rating_count"] = r.Count
		row["rating_days_ago"] = r.DaysAgo
	}
	for platform, href := range c.SocialLinks {
		row[directPrefix+platform] = href
	}

	p := c.Profile
	if p == nil {
		return row
	}
	row[profilePrefix+"username"] = p.Username
	row[profilePrefix+"join_date"] = p.JoinDate
	row[profilePrefix+"bio"] = p.Bio
	for key, href := range p.Links {
		canonical, aliased := linkAliases[key]
		if !aliased {
			row[profilePrefix+key] = href
			continue
		}
		// The canonical key wins when both spellings are present.
		if _, both := p.Links[canonical]; both {
			continue
		}
		row[profilePrefix+canonical] = href
	}
	return row
}

// Header returns the fixed columns followed by every other key present in
// rows, sorted.
func Header(rows []Row) []string {
	fixed := make(map[string]bool, len(Columns))
	for _, col := range Columns {
		fixed[col] = true
	}
	extra := make(map[string]bool)
	for _, row := range rows {
		for key := range row {
			if !fixed[key] {
				extra[key] = true
			}
		}
	}

	header := append([]string(nil), Columns...)
	extras := make([]string, 0, len(extra))
	for key := range extra {
		extras = append(extras, key)
	}
	sort.Strings(extras)
	return append(header, extras...)
}

// Values lays a row out in header order.
func (r Row) Values(header []string) []string {
	out := make([]string, len(header))
	for i, col := range header {
		out[i] = r[col]
	}
	return out
}
