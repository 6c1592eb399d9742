package logger

import (
	"testing"

	"serpgrab/pkg/config"
)

func TestNewWithValidLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "fatal"} {
		l, err := New(&config.LoggingConfig{Level: level})
		if err != nil {
			t.Errorf("New(%q) returned error: %v", level, err)
		}
		if l == nil {
			t.Errorf("New(%q) returned nil logger", level)
		}
	}
}

func TestNewWithInvalidLevel(t *testing.T) {
	if _, err := New(&config.LoggingConfig{Level: "loud"}); err == nil {
		t.Error("expected error for invalid log level")
	}
}

func TestWithFieldsReturnsNewLogger(t *testing.T) {
	l, err := New(&config.LoggingConfig{Level: "info"})
	if err != nil {
		t.Fatal(err)
	}

	child := l.WithField("query", "nasa")
	if child == l {
		t.Error("WithField should return a new logger instance")
	}

	// Parent fields must not be mutated by the child.
	base := l.(*zerologLogger)
	if len(base.fields) != 0 {
		t.Errorf("parent logger fields mutated: %v", base.fields)
	}
}

func TestNopLogger(t *testing.T) {
	l := NewNopLogger()
	l.Info("should not panic")
	l.WithField("a", 1).WithError(nil).Error("still fine")
	if l.GetZerolog() != nil {
		t.Error("nop logger should have nil zerolog instance")
	}
}
