package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestTokenBucket(t *testing.T) {
	tb := NewTokenBucket(5, time.Second)

	// Test initial capacity
	for i := 0; i < 5; i++ {
		if !tb.Allow() {
			t.Errorf("Expected token %d to be available", i+1)
		}
	}

	// Test exhaustion
	if tb.Allow() {
		t.Error("Expected no more tokens to be available")
	}

	// Test refill after waiting
	time.Sleep(time.Second + 100*time.Millisecond)
	if !tb.Allow() {
		t.Error("Expected tokens to be refilled after waiting")
	}

	// Test reset
	tb.tokens = 0
	tb.Reset()
	if tb.tokens != tb.capacity {
		t.Error("Expected tokens to be reset to capacity")
	}
}

func TestWaitContextProceedsWhenTokenAvailable(t *testing.T) {
	tb := NewTokenBucket(1, time.Minute)

	if err := tb.WaitContext(context.Background()); err != nil {
		t.Errorf("WaitContext returned error with token available: %v", err)
	}
}

func TestWaitContextCancellation(t *testing.T) {
	tb := NewTokenBucket(1, time.Hour)
	tb.Allow() // drain the bucket so the wait would otherwise block for an hour

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- tb.WaitContext(ctx)
	}()

	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(300 * time.Millisecond):
		t.Error("WaitContext did not return within one poll interval of cancellation")
	}
}
