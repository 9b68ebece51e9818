package storage

import "whop-scraper/models"

// RecordWriter is the interface any storage backend must satisfy. Each
// Write replaces whatever the backend held from the previous run.
type RecordWriter interface {
	Write(records []*models.Community) error
	Close() error
}

// RecordReader loads records persisted by an earlier run.
type RecordReader interface {
	FetchAll() ([]*models.Community, error)
}
