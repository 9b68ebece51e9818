package services

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"whop-scraper/models"
	"whop-scraper/utils"
)

const topN = 5

type InsightService struct {
	cleaner *Cleaner
	logger  *utils.Logger
}

func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{cleaner: NewCleaner(logger), logger: logger}
}

func (s *InsightService) Generate(records []*models.Community) *models.InsightReport {
	report := &models.InsightReport{
		PlatformCoverage: make(map[string]int),
	}

	unique := s.cleaner.Unique(records)
	report.TotalCommunities = len(unique)
	report.Duplicates = len(records) - len(unique)
	if len(unique) == 0 {
		return report
	}

	var paid []*models.RankedCommunity
	var joined []*models.RankedCommunity

	for _, c := range unique {
		if !c.Profile.Empty() {
			report.WithProfile++
		}
		for platform := range platforms(c) {
			report.PlatformCoverage[platform]++
		}

		if price, ok := s.cleaner.ParsePrice(c.PriceBadge); ok {
			if price == 0 {
				report.FreeCommunities++
			} else {
				report.PaidCommunities++
				paid = append(paid, &models.RankedCommunity{Name: c.Name, URL: c.URL, Price: price})
			}
		}
		if n := s.cleaner.ParseCount(c.JoinedCount); n > 0 {
			joined = append(joined, &models.RankedCommunity{Name: c.Name, URL: c.URL, Joined: n})
		}
	}

	// Price stats (only communities with a paid badge)
	if len(paid) > 0 {
		report.MinPrice = paid[0].Price
		report.MaxPrice = paid[0].Price
		report.MostExpensive = paid[0]
		var total float64
		for _, p := range paid {
			total += p.Price
			if p.Price < report.MinPrice {
				report.MinPrice = p.Price
			}
			if p.Price > report.MaxPrice {
				report.MaxPrice = p.Price
				report.MostExpensive = p
			}
		}
		report.AveragePrice = round2(total / float64(len(paid)))
		report.MinPrice = round2(report.MinPrice)
		report.MaxPrice = round2(report.MaxPrice)
	}

	// Top 5 by joined count; stable so ties keep crawl order
	sort.SliceStable(joined, func(i, j int) bool {
		return joined[i].Joined > joined[j].Joined
	})
	if len(joined) > topN {
		joined = joined[:topN]
	}
	report.TopJoined = joined

	s.logger.Debug("[insights] %d communities, %d with profiles", report.TotalCommunities, report.WithProfile)
	return report
}

// platforms is the set of platforms a community links to, from its page
// anchors and its owner's profile.
func platforms(c *models.Community) map[string]bool {
	set := make(map[string]bool)
	for p := range c.SocialLinks {
		set[p] = true
	}
	if c.Profile != nil {
		for p := range c.Profile.Links {
			set[p] = true
		}
	}
	return set
}

func (s *InsightService) Print(w io.Writer, r *models.InsightReport) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  📊 WHOP LEADERBOARD INSIGHTS\033[0m\n")
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	// Overview
	fmt.Fprintf(w, "\033[1;33m  Overview\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Communities scraped    : \033[1m%d\033[0m\n", r.TotalCommunities)
	if r.Duplicates > 0 {
		fmt.Fprintf(w, "  Duplicate rows         : \033[1m%d\033[0m\n", r.Duplicates)
	}
	fmt.Fprintf(w, "  With owner profile     : \033[1m%d\033[0m\n", r.WithProfile)
	fmt.Fprintf(w, "  Free / paid            : \033[1m%d / %d\033[0m\n", r.FreeCommunities, r.PaidCommunities)
	fmt.Fprintln(w)

	// Price Stats
	fmt.Fprintf(w, "\033[1;33m  Price Statistics (per month)\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if r.PaidCommunities > 0 {
		fmt.Fprintf(w, "  Average price : \033[1;32m$%.2f\033[0m\n", r.AveragePrice)
		fmt.Fprintf(w, "  Minimum price : \033[1;32m$%.2f\033[0m\n", r.MinPrice)
		fmt.Fprintf(w, "  Maximum price : \033[1;32m$%.2f\033[0m\n", r.MaxPrice)
		if r.MostExpensive != nil {
			fmt.Fprintf(w, "  Most expensive: %s\n", truncate(r.MostExpensive.Name, 40))
		}
	} else {
		fmt.Fprintf(w, "  No price data available\n")
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Top %d by Members Joined\033[0m\n", topN)
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.TopJoined) == 0 {
		fmt.Fprintf(w, "  No joined counts found\n")
	} else {
		for i, c := range r.TopJoined {
			fmt.Fprintf(w, "  \033[1m%d.\033[0m %-40s \033[1;32m%d\033[0m\n", i+1, truncate(c.Name, 38), c.Joined)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Social Platform Coverage\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.PlatformCoverage) == 0 {
		fmt.Fprintf(w, "  No social links found\n")
	} else {
		type platformCount struct {
			name  string
			count int
		}
		var counts []platformCount
		for name, n := range r.PlatformCoverage {
			counts = append(counts, platformCount{name, n})
		}
		sort.Slice(counts, func(i, j int) bool {
			if counts[i].count != counts[j].count {
				return counts[i].count > counts[j].count
			}
			return counts[i].name < counts[j].name
		})
		for _, pc := range counts {
			bar := strings.Repeat("█", min(pc.count, 40))
			fmt.Fprintf(w, "  %-12s %s (%d)\n", pc.name, bar, pc.count)
		}
	}

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
