package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"whop-scraper/models"
)

// CSVReader loads communities back from a file written by CSVWriter.
type CSVReader struct {
	path string
}

func NewCSVReader(path string) *CSVReader {
	return &CSVReader{path: path}
}

// FetchAll parses every row. Columns it does not recognise are ignored.
func (c *CSVReader) FetchAll() ([]*models.Community, error) {
	f, err := os.Open(c.path)
	if err != nil {
		return nil, fmt.Errorf("csv: open %q: %w", c.path, err)
	}
	defer f.Close()
	return readRecords(f)
}

func readRecords(r io.Reader) ([]*models.Community, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("csv: read header: %w", err)
	}
	cr.FieldsPerRecord = len(header)

	var out []*models.Community
	for {
		fields, err := cr.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, fmt.Errorf("csv: read row %d: %w", len(out)+1, err)
		}
		row := make(Row, len(header))
		for i, col := range header {
			if fields[i] != "" {
				row[col] = fields[i]
			}
		}
		out = append(out, Denormalize(row))
	}
}

// Denormalize is the inverse of Normalize, up to alias folding.
func Denormalize(row Row) *models.Community {
	c := models.NewCommunity(models.CommunitySummary{
		URL:          row["url"],
		Name:         row["name"],
		Description:  row["description"],
		PriceBadge:   row["price_badge"],
		MinutesSpent: row["minutes_spent"],
		JoinedCount:  row["joined_count"],
	})
	c.FullDescription = row["full_description"]
	c.FoundedDate = row["founded_date"]
	c.WhopRanking = row["whop_ranking"]
	if f := row["features"]; f != "" {
		c.Features = strings.Split(f, FeatureSeparator)
	}
	if stars, err := strconv.Atoi(row["rating_stars"]); err == nil {
		c.Rating = &models.Rating{Stars: stars, Count: row["rating_count"], DaysAgo: row["rating_days_ago"]}
	}

	profile := &models.SocialProfile{
		Username: row[profilePrefix+"username"],
		JoinDate: row[profilePrefix+"join_date"],
		Bio:      row[profilePrefix+"bio"],
		Links:    make(map[string]string),
	}
	for col, v := range row {
		switch {
		case strings.HasPrefix(col, profilePrefix):
			key := strings.TrimPrefix(col, profilePrefix)
			if key != "username" && key != "join_date" && key != "bio" {
				profile.Links[key] = v
			}
		case strings.HasPrefix(col, directPrefix):
			if c.SocialLinks == nil {
				c.SocialLinks = make(map[string]string)
			}
			c.SocialLinks[strings.TrimPrefix(col, directPrefix)] = v
		}
	}
	if !profile.Empty() {
		c.Profile = profile
	}
	return c
}
