package ui

import (
	"fmt"
	"strings"
	"time"
)

const (
	progressBar   = "█"
	progressEmpty = "░"
)

// StatusTracker tracks per-query progress across a run
type StatusTracker struct {
	Total     int
	Resolved  int
	Failed    int
	Skipped   int
	StartTime time.Time
}

// NewStatusTracker creates a tracker for a run over total queries
func NewStatusTracker(total int) *StatusTracker {
	return &StatusTracker{
		Total:     total,
		StartTime: time.Now(),
	}
}

// MarkResolved records a query that produced a result URL
func (st *StatusTracker) MarkResolved() {
	st.Resolved++
}

// MarkFailed records a query that produced a sentinel row
func (st *StatusTracker) MarkFailed() {
	st.Failed++
}

// MarkSkipped records a query skipped by checkpoint resume
func (st *StatusTracker) MarkSkipped() {
	st.Skipped++
}

// Done returns how many queries have been handled so far
func (st *StatusTracker) Done() int {
	return st.Resolved + st.Failed + st.Skipped
}

// Bar returns a formatted progress bar over the whole run
func (st *StatusTracker) Bar() string {
	const width = 20
	filled := 0
	if st.Total > 0 {
		filled = st.Done() * width / st.Total
	}
	if filled > width {
		filled = width
	}

	bar := strings.Repeat(progressBar, filled) +
		strings.Repeat(progressEmpty, width-filled)

	return fmt.Sprintf("[%s] %d/%d", bar, st.Done(), st.Total)
}

// Rate returns the average queries handled per minute
func (st *StatusTracker) Rate() float64 {
	elapsed := time.Since(st.StartTime).Minutes()
	if elapsed == 0 {
		return 0
	}
	return float64(st.Done()) / elapsed
}

// PrintProgress prints the current run status on one line
func (st *StatusTracker) PrintProgress() {
	if quiet {
		return
	}
	fmt.Printf("\r%s %s | ok: %d fail: %d skip: %d",
		Green("[RESOLVED]"),
		st.Bar(),
		st.Resolved,
		st.Failed,
		st.Skipped)
}

// PrintSummary prints the end-of-run totals
func (st *StatusTracker) PrintSummary() {
	if quiet {
		return
	}
	fmt.Printf("\n%s resolved %d, failed %d, skipped %d in %s\n",
		Magenta("[DONE]"),
		st.Resolved,
		st.Failed,
		st.Skipped,
		time.Since(st.StartTime).Round(time.Second))
}
