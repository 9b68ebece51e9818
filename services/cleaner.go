package services

import (
	"regexp"
	"strconv"
	"strings"

	"whop-scraper/models"
	"whop-scraper/utils"
)

var (
	// priceRegexp captures numeric price values
	priceRegexp = regexp.MustCompile(`\d+(?:\.\d+)?`)
	// countRegexp captures "1.2K", "3,456" or "2M" style counts
	countRegexp = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*([km])?\b`)
	// periodRegexp captures the billing period after a slash or "per"
	periodRegexp = regexp.MustCompile(`(?:/|per)\s*(day|week|month|year|yr|mo)`)
)

// Cleaner turns the display strings scraped from cards into numbers.
type Cleaner struct {
	logger *utils.Logger
}

// NewCleaner creates a Cleaner with the given logger.
func NewCleaner(logger *utils.Logger) *Cleaner {
	return &Cleaner{logger: logger}
}

// Unique drops records whose URL was already seen, keeping the first.
func (c *Cleaner) Unique(records []*models.Community) []*models.Community {
	seen := make(map[string]struct{})
	result := make([]*models.Community, 0, len(records))

	for _, r := range records {
		url := strings.TrimSpace(r.URL)
		if url == "" {
			c.logger.Warn("[cleaner] Dropping community with empty URL: %s", r.Name)
			continue
		}
		if _, dup := seen[url]; dup {
			c.logger.Debug("[cleaner] Duplicate URL skipped: %s", url)
			continue
		}
		seen[url] = struct{}{}
		result = append(result, r)
	}

	if dropped := len(records) - len(result); dropped > 0 {
		c.logger.Info("[cleaner] %d → %d communities (dropped %d)", len(records), len(result), dropped)
	}
	return result
}

// ParsePrice extracts a price badge and converts it to a monthly rate.
// ok is false when the badge holds no price at all.
// Examples:
//
//	"Free" → 0
//	"$49 / month" → 49
//	"$1,200 / year" → 100
//	"$10 / week" → 43.33
func (c *Cleaner) ParsePrice(raw string) (price float64, ok bool) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return 0, false
	}
	if strings.Contains(raw, "free") {
		return 0, true
	}

	cleaned := strings.ReplaceAll(raw, ",", "")
	match := priceRegexp.FindString(cleaned)
	if match == "" {
		return 0, false
	}
	total, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, false
	}

	period := periodRegexp.FindStringSubmatch(cleaned)
	if len(period) < 2 {
		return total, true
	}
	monthly := total
	switch period[1] {
	case "day":
		monthly = total * 30
	case "week":
		monthly = total * 52 / 12
	case "year", "yr":
		monthly = total / 12
	}
	if monthly != total {
		c.logger.Debug("[cleaner] Price %q normalised to $%.2f/month", raw, monthly)
	}
	return round2(monthly), true
}

// ParseCount reads a display count such as "1.2K joined" into an integer.
func (c *Cleaner) ParseCount(raw string) int {
	cleaned := strings.ReplaceAll(strings.ToLower(raw), ",", "")
	match := countRegexp.FindStringSubmatch(cleaned)
	if len(match) < 2 {
		return 0
	}
	val, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0
	}
	switch match[2] {
	case "k":
		val *= 1_000
	case "m":
		val *= 1_000_000
	}
	return int(val + 0.5)
}
