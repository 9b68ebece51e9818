package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"whop-scraper/models"
	"whop-scraper/utils"
)

const insertColumns = 15

// PostgresWriter mirrors the run's records into PostgreSQL.
type PostgresWriter struct {
	db *sql.DB
}

// NewPostgresWriter opens a connection to PostgreSQL, runs schema migrations,
// and returns a ready-to-use PostgresWriter.
func NewPostgresWriter(ctx context.Context, dsn string, logger *utils.Logger) (*PostgresWriter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	retry := &utils.RetryConfig{MaxAttempts: 10, BaseDelay: 500 * time.Millisecond, Logger: logger}
	if err := retry.Do(ctx, "postgres ping", func() error { return db.PingContext(ctx) }); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	pw := &PostgresWriter{db: db}
	if err := pw.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return pw, nil
}

func (pw *PostgresWriter) migrate() error {
	_, err := pw.db.Exec(`
		CREATE TABLE IF NOT EXISTS communities (
			id               SERIAL PRIMARY KEY,
			url              TEXT UNIQUE NOT NULL,
			name             TEXT NOT NULL DEFAULT '',
			description      TEXT NOT NULL DEFAULT '',
			full_description TEXT NOT NULL DEFAULT '',
			price_badge      TEXT NOT NULL DEFAULT '',
			joined_count     TEXT NOT NULL DEFAULT '',
			minutes_spent    TEXT NOT NULL DEFAULT '',
			founded_date     TEXT NOT NULL DEFAULT '',
			whop_ranking     TEXT NOT NULL DEFAULT '',
			rating           JSONB,
			features         TEXT[] NOT NULL DEFAULT '{}',
			social_links     JSONB NOT NULL DEFAULT '{}',
			profile          JSONB,
			position         INTEGER NOT NULL,
			created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_communities_name ON communities(name);
	`)
	return err
}

// Write replaces the table contents with records, in one transaction.
func (pw *PostgresWriter) Write(records []*models.Community) error {
	tx, err := pw.db.Begin()
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec("DELETE FROM communities"); err != nil {
		return fmt.Errorf("postgres: clear: %w", err)
	}

	const batchSize = 50
	for i := 0; i < len(records); i += batchSize {
		end := i + batchSize
		if end > len(records) {
			end = len(records)
		}
		query, args, err := buildInsert(records[i:end], i)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(query, args...); err != nil {
			return fmt.Errorf("postgres: insert batch at %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}

func buildInsert(batch []*models.Community, offset int) (string, []interface{}, error) {
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]interface{}, 0, len(batch)*insertColumns)

	for idx, c := range batch {
		rating, err := jsonOrNull(c.Rating)
		if err != nil {
			return "", nil, err
		}
		profile, err := jsonOrNull(c.Profile)
		if err != nil {
			return "", nil, err
		}
		links := c.SocialLinks
		if links == nil {
			links = map[string]string{}
		}
		linksJSON, err := json.Marshal(links)
		if err != nil {
			return "", nil, fmt.Errorf("postgres: encode social links: %w", err)
		}
		features := c.Features
		if features == nil {
			features = []string{}
		}

		base := idx * insertColumns
		placeholders := make([]string, insertColumns)
		for i := range placeholders {
			placeholders[i] = fmt.Sprintf("$%d", base+i+1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(placeholders, ",")+")")
		valueArgs = append(valueArgs,
			c.URL, c.Name, c.Description, c.FullDescription, c.PriceBadge,
			c.JoinedCount, c.MinutesSpent, c.FoundedDate, c.WhopRanking,
			rating, pq.Array(features), string(linksJSON), profile, offset+idx,
			time.Now().UTC(),
		)
	}

	query := fmt.Sprintf(`
		INSERT INTO communities (url, name, description, full_description, price_badge,
			joined_count, minutes_spent, founded_date, whop_ranking,
			rating, features, social_links, profile, position, created_at)
		VALUES %s
		ON CONFLICT (url) DO NOTHING
	`, strings.Join(valueStrings, ","))
	return query, valueArgs, nil
}

func jsonOrNull(v interface{}) (interface{}, error) {
	switch t := v.(type) {
	case *models.Rating:
		if t == nil {
			return nil, nil
		}
	case *models.SocialProfile:
		if t == nil {
			return nil, nil
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("postgres: encode %T: %w", v, err)
	}
	return string(data), nil
}

func (pw *PostgresWriter) Close() error {
	return pw.db.Close()
}

// FetchAll retrieves all stored communities in crawl order.
func (pw *PostgresWriter) FetchAll() ([]*models.Community, error) {
	rows, err := pw.db.Query(`
		SELECT url, name, description, full_description, price_badge, joined_count,
			minutes_spent, founded_date, whop_ranking, rating, features, social_links, profile
		FROM communities
		ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch all: %w", err)
	}
	defer rows.Close()

	var out []*models.Community
	for rows.Next() {
		c := &models.Community{}
		var rating, links, profile sql.NullString
		if err := rows.Scan(
			&c.URL, &c.Name, &c.Description, &c.FullDescription, &c.PriceBadge, &c.JoinedCount,
			&c.MinutesSpent, &c.FoundedDate, &c.WhopRanking, &rating, pq.Array(&c.Features), &links, &profile,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}
		if err := decodeJSON(rating, &c.Rating); err != nil {
			return nil, err
		}
		if err := decodeJSON(links, &c.SocialLinks); err != nil {
			return nil, err
		}
		if err := decodeJSON(profile, &c.Profile); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func decodeJSON(src sql.NullString, dst interface{}) error {
	if !src.Valid || src.String == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(src.String), dst); err != nil {
		return fmt.Errorf("postgres: decode json column: %w", err)
	}
	return nil
}
