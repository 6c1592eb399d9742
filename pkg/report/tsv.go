// Package report writes per-query results to flat files: a
// tab-separated log for search runs and a CSV report for profile runs.
// Both are flushed after every record so a crash loses at most the
// query in flight.
package report

import (
	"fmt"
	"os"
	"sync"
)

// TSVLog appends one "query<TAB>result" line per query to a text file
type TSVLog struct {
	file *os.File
	mu   sync.Mutex
}

// NewTSVLog opens (or creates) the result log in append mode
func NewTSVLog(path string) (*TSVLog, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open results file: %w", err)
	}
	return &TSVLog{file: f}, nil
}

// Append writes a single result line and syncs it to disk
func (l *TSVLog) Append(query, result string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := fmt.Fprintf(l.file, "%s\t%s\n", query, result); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}
	return l.file.Sync()
}

// Close closes the underlying file
func (l *TSVLog) Close() error {
	return l.file.Close()
}
