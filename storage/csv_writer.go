package storage

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"whop-scraper/models"
	"whop-scraper/utils"
)

// CSVWriter writes the run's records to a single CSV file. Every Write
// truncates the file and writes header and rows in full.
type CSVWriter struct {
	path   string
	logger *utils.Logger
}

// NewCSVWriter returns a writer for path. Nothing touches the disk until
// Write is called.
func NewCSVWriter(path string, logger *utils.Logger) *CSVWriter {
	return &CSVWriter{path: path, logger: logger}
}

// Write flattens records and writes them in order. Output depends only on
// the input, so writing the same records twice yields identical files.
func (c *CSVWriter) Write(records []*models.Community) error {
	if dir := filepath.Dir(c.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("csv: create output dir: %w", err)
		}
	}

	f, err := os.Create(c.path)
	if err != nil {
		return fmt.Errorf("csv: create file %q: %w", c.path, err)
	}

	if err := writeRecords(f, records); err != nil {
		_ = f.Close()
		return fmt.Errorf("csv: write %q: %w", c.path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("csv: close %q: %w", c.path, err)
	}

	if len(records) == 0 {
		c.logger.Warn("[csv] No data to save, wrote header only to %s", c.path)
		return nil
	}
	c.logger.Info("[csv] Data saved to %s (%d rows)", c.path, len(records))
	return nil
}

func writeRecords(f *os.File, records []*models.Community) error {
	rows := make([]Row, len(records))
	for i, rec := range records {
		rows[i] = Normalize(rec)
	}
	header := Header(rows)

	buf := bufio.NewWriter(f)
	w := csv.NewWriter(buf)
	if err := w.Write(header); err != nil {
		return err
	}
	for _, row := range rows {
		if err := w.Write(row.Values(header)); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return buf.Flush()
}

// Close is a no-op; Write leaves no file open.
func (c *CSVWriter) Close() error { return nil }
