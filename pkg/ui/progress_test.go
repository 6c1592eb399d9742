package ui

import (
	"strings"
	"testing"
)

func TestStatusTrackerCounts(t *testing.T) {
	st := NewStatusTracker(10)

	st.MarkResolved()
	st.MarkResolved()
	st.MarkFailed()
	st.MarkSkipped()

	if got := st.Done(); got != 4 {
		t.Errorf("Done() = %d, want 4", got)
	}
}

func TestBarReflectsProgress(t *testing.T) {
	st := NewStatusTracker(4)
	st.MarkResolved()
	st.MarkResolved()

	bar := st.Bar()
	if !strings.Contains(bar, "2/4") {
		t.Errorf("bar %q missing 2/4 count", bar)
	}
	if !strings.Contains(bar, progressBar) || !strings.Contains(bar, progressEmpty) {
		t.Errorf("bar %q should be half filled", bar)
	}
}

func TestBarHandlesZeroTotal(t *testing.T) {
	st := NewStatusTracker(0)
	if !strings.Contains(st.Bar(), "0/0") {
		t.Errorf("bar %q should report 0/0", st.Bar())
	}
}

func TestBarNeverOverflows(t *testing.T) {
	st := NewStatusTracker(2)
	for i := 0; i < 5; i++ {
		st.MarkResolved()
	}
	if strings.Count(st.Bar(), progressBar) > 20 {
		t.Errorf("bar %q exceeds its width", st.Bar())
	}
}
