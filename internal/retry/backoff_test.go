package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestBackoffGrowsAndCaps(t *testing.T) {
	b := NewBackoff(10*time.Millisecond, 80*time.Millisecond, 2.0)

	var last time.Duration
	for i := 0; i < 6; i++ {
		last = b.Next()
		if last > 80*time.Millisecond+16*time.Millisecond { // cap + max jitter
			t.Fatalf("delay %v exceeds cap", last)
		}
	}
	if b.Attempts() != 6 {
		t.Fatalf("attempts = %d, want 6", b.Attempts())
	}

	b.Reset()
	if b.Attempts() != 0 {
		t.Fatal("reset did not clear attempts")
	}
}

func TestDoStopsOnSuccess(t *testing.T) {
	calls := 0
	err := Do(context.Background(), 3, time.Millisecond, func(error) bool { return true }, func() error {
		calls++
		if calls < 2 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
}

func TestDoRespectsMaxAttempts(t *testing.T) {
	calls := 0
	boom := errors.New("boom")
	err := Do(context.Background(), 3, time.Millisecond, func(error) bool { return true }, func() error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("want boom, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestDoDoesNotRetryPermanentErrors(t *testing.T) {
	calls := 0
	err := Do(context.Background(), 3, time.Millisecond, func(error) bool { return false }, func() error {
		calls++
		return errors.New("permanent")
	})
	if err == nil || calls != 1 {
		t.Fatalf("permanent error retried: calls=%d err=%v", calls, err)
	}
}
