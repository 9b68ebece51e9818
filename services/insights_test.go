package services

import (
	"bytes"
	"strings"
	"testing"

	"whop-scraper/models"
)

func community(url, name, price, joined string, profile map[string]string) *models.Community {
	c := models.NewCommunity(models.CommunitySummary{URL: url, Name: name, PriceBadge: price, JoinedCount: joined})
	if profile != nil {
		c.Profile = &models.SocialProfile{Links: profile}
	}
	return c
}

func sampleCommunities() []*models.Community {
	return []*models.Community{
		community("https://whop.com/a/", "Alpha", "$49 / month", "1.2K joined", map[string]string{"twitter": "t", "discord": "d"}),
		community("https://whop.com/b/", "Beta", "Free", "300 joined", map[string]string{"twitter": "t"}),
		community("https://whop.com/c/", "Gamma", "$1,200 / year", "5K joined", nil),
		community("https://whop.com/d/", "Delta", "$150 / month", "", nil),
		community("https://whop.com/e/", "Epsilon", "", "40 joined", nil),
		community("https://whop.com/f/", "Zeta", "Free", "10 joined", nil),
		community("https://whop.com/g/", "Eta", "Free", "7 joined", nil),
		community("https://whop.com/a/", "Alpha again", "$49 / month", "1.2K joined", nil),
	}
}

func TestInsightCounts(t *testing.T) {
	svc := NewInsightService(newTestLogger())
	r := svc.Generate(sampleCommunities())
	if r.TotalCommunities != 7 {
		t.Errorf("TotalCommunities: got %d, want 7", r.TotalCommunities)
	}
	if r.Duplicates != 1 {
		t.Errorf("Duplicates: got %d, want 1", r.Duplicates)
	}
	if r.WithProfile != 2 {
		t.Errorf("WithProfile: got %d, want 2", r.WithProfile)
	}
	if r.FreeCommunities != 3 || r.PaidCommunities != 3 {
		t.Errorf("free/paid: got %d/%d, want 3/3", r.FreeCommunities, r.PaidCommunities)
	}
	if r.PlatformCoverage["twitter"] != 2 || r.PlatformCoverage["discord"] != 1 {
		t.Errorf("PlatformCoverage: got %v", r.PlatformCoverage)
	}
}

func TestInsightPrices(t *testing.T) {
	svc := NewInsightService(newTestLogger())
	r := svc.Generate(sampleCommunities())
	if r.AveragePrice != 99.67 {
		t.Errorf("AveragePrice: got %.2f, want 99.67", r.AveragePrice)
	}
	if r.MinPrice != 49 {
		t.Errorf("MinPrice: got %.2f, want 49", r.MinPrice)
	}
	if r.MaxPrice != 150 {
		t.Errorf("MaxPrice: got %.2f, want 150", r.MaxPrice)
	}
	if r.MostExpensive == nil || r.MostExpensive.Name != "Delta" {
		t.Errorf("MostExpensive: got %+v, want Delta", r.MostExpensive)
	}
}

func TestInsightTopJoined(t *testing.T) {
	svc := NewInsightService(newTestLogger())
	r := svc.Generate(sampleCommunities())
	if len(r.TopJoined) != 5 {
		t.Fatalf("TopJoined: got %d entries, want 5", len(r.TopJoined))
	}
	want := []string{"Gamma", "Alpha", "Beta", "Epsilon", "Zeta"}
	for i, name := range want {
		if r.TopJoined[i].Name != name {
			t.Errorf("TopJoined[%d]: got %s, want %s", i, r.TopJoined[i].Name, name)
		}
	}
}

func TestInsightEmpty(t *testing.T) {
	svc := NewInsightService(newTestLogger())
	r := svc.Generate(nil)
	if r.TotalCommunities != 0 || r.PlatformCoverage == nil {
		t.Errorf("unexpected empty report: %+v", r)
	}

	var buf bytes.Buffer
	svc.Print(&buf, r)
	for _, want := range []string{"No price data available", "No joined counts found", "No social links found"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("empty report output missing %q", want)
		}
	}
}

func TestInsightPrint(t *testing.T) {
	svc := NewInsightService(newTestLogger())
	var buf bytes.Buffer
	svc.Print(&buf, svc.Generate(sampleCommunities()))

	out := buf.String()
	for _, want := range []string{"WHOP LEADERBOARD INSIGHTS", "$99.67", "Gamma", "twitter", "Duplicate rows"} {
		if !strings.Contains(out, want) {
			t.Errorf("report output missing %q", want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate short: got %q", got)
	}
	if got := truncate("a much longer community name", 10); got != "a much ..." {
		t.Errorf("truncate long: got %q", got)
	}
}
