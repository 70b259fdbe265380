package codes

import (
	"sync"
	"testing"
	"time"
)

func TestNextGapFillFillsGaps(t *testing.T) {
	if n := NextGapFill([]string{"EQ-001", "EQ-002", "EQ-004"}); n != 3 {
		t.Fatalf("gap {1,2,4}: got %d, want 3", n)
	}
	if n := NextGapFill([]string{"EQ-001", "EQ-002", "EQ-003"}); n != 4 {
		t.Fatalf("dense {1,2,3}: got %d, want 4", n)
	}
	if n := NextGapFill(nil); n != 1 {
		t.Fatalf("empty scope: got %d, want 1", n)
	}
	if n := NextGapFill([]string{"no-number", "EQ-002"}); n != 1 {
		t.Fatalf("ignore non-numeric: got %d, want 1", n)
	}
	if n := NextGapFill([]string{"EQ-002", "EQ-005"}); n != 1 {
		t.Fatalf("leading gap: got %d, want 1", n)
	}
}

func TestTrailingNumber(t *testing.T) {
	if n, ok := TrailingNumber("IC-0042"); !ok || n != 42 {
		t.Fatalf("got (%d,%v)", n, ok)
	}
	if _, ok := TrailingNumber("no digits"); ok {
		t.Fatal("expected no number")
	}
}

func TestEquipmentUIDFormat(t *testing.T) {
	if got := EquipmentUID(7); got != "EQ-007" {
		t.Fatalf("got %s", got)
	}
	if got := EquipmentUID(123); got != "EQ-123" {
		t.Fatalf("got %s", got)
	}
}

func TestWireDropUIDFormat(t *testing.T) {
	now := time.UnixMilli(1712345678901) // suffix 8901
	got := WireDropUID("Living Room", "Drop #1", now)
	if got != "LIVINGDROP1-8901" {
		t.Fatalf("got %s, want LIVINGDROP1-8901", got)
	}
	if WireDropUID("", "", now) != "UNKNWNUNKNWN-8901" {
		t.Fatalf("empty names: got %s", WireDropUID("", "", now))
	}
}

// Demonstrates the documented race: concurrent callers observing the same set
// of existing codes all compute the same next number.
func TestNextGapFillRaceUnderConcurrentCreation(t *testing.T) {
	existing := []string{"EQ-001", "EQ-002"}

	var wg sync.WaitGroup
	results := make(chan int, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- NextGapFill(existing)
		}()
	}
	wg.Wait()
	close(results)

	for n := range results {
		if n != 3 {
			t.Fatalf("got %d, want every concurrent caller to collide on 3", n)
		}
	}
}
