package ids

import (
	"testing"
	"time"
)

func TestNewAtIsUniqueAndOrdered(t *testing.T) {
	at := time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC)
	seen := make(map[string]bool)
	prev := ""
	for i := 0; i < 100; i++ {
		id := NewAt(at)
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
		if prev != "" && id <= prev {
			t.Errorf("ids out of order: %s after %s", id, prev)
		}
		prev = id
	}
}

func TestNewLength(t *testing.T) {
	if got := len(New()); got != 26 {
		t.Errorf("expected 26 character id, got %d", got)
	}
}
