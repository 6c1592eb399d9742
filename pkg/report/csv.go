package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"sync"
)

// FieldUnavailable is written for any profile field that could not be
// extracted.
const FieldUnavailable = "N/A"

// csvHeader is the profile report's fixed header row
var csvHeader = []string{"Query", "Profile URL", "Followers", "Following", "Posts", "Bio"}

// ProfileRecord is one scraped profile row. Unavailable fields hold
// FieldUnavailable rather than empty strings.
type ProfileRecord struct {
	Query      string
	ProfileURL string
	Followers  string
	Following  string
	Posts      string
	Bio        string
}

// NewProfileRecord returns a record for the query with every field
// marked unavailable; the scraper fills in what it finds.
func NewProfileRecord(query string) ProfileRecord {
	return ProfileRecord{
		Query:      query,
		ProfileURL: FieldUnavailable,
		Followers:  FieldUnavailable,
		Following:  FieldUnavailable,
		Posts:      FieldUnavailable,
		Bio:        FieldUnavailable,
	}
}

// CSVReport appends profile rows to a CSV file, flushing after every
// row so partial progress survives a crash.
type CSVReport struct {
	file   *os.File
	writer *csv.Writer
	mu     sync.Mutex
}

// NewCSVReport opens (or creates) the report. The header row is written
// only when the file is new or empty.
func NewCSVReport(path string) (*CSVReport, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open report file: %w", err)
	}

	r := &CSVReport{
		file:   f,
		writer: csv.NewWriter(f),
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat report file: %w", err)
	}
	if info.Size() == 0 {
		if err := r.writeRow(csvHeader); err != nil {
			f.Close()
			return nil, err
		}
	}

	return r, nil
}

// Append writes one profile row and syncs it to disk
func (r *CSVReport) Append(rec ProfileRecord) error {
	return r.writeRow([]string{
		rec.Query,
		rec.ProfileURL,
		rec.Followers,
		rec.Following,
		rec.Posts,
		rec.Bio,
	})
}

func (r *CSVReport) writeRow(row []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.writer.Write(row); err != nil {
		return fmt.Errorf("failed to write report row: %w", err)
	}
	r.writer.Flush()
	if err := r.writer.Error(); err != nil {
		return fmt.Errorf("failed to flush report row: %w", err)
	}
	return r.file.Sync()
}

// Close flushes and closes the report file
func (r *CSVReport) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.writer.Flush()
	if err := r.writer.Error(); err != nil {
		r.file.Close()
		return err
	}
	return r.file.Close()
}
