package movements

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/erazemk/cautela/internal/model"
)

func record(id string) model.Movement {
	return model.Movement{
		ID:           id,
		BM:           "111.111-1",
		Name:         "João SILVA",
		CheckedOutAt: time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC),
		Material:     "Corda " + id,
		Status:       model.StatusPending,
	}
}

func ids(records []model.Movement) []string {
	out := make([]string, len(records))
	for i, m := range records {
		out[i] = m.ID
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestReplaceAll(t *testing.T) {
	s := New()
	if err := s.Append(record("old")); err != nil {
		t.Fatal(err)
	}

	if err := s.ReplaceAll([]model.Movement{record("a"), record("b")}); err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}
	if got := ids(s.Snapshot()); !equal(got, []string{"a", "b"}) {
		t.Errorf("unexpected records %v", got)
	}

	if err := s.ReplaceAll([]model.Movement{}); err != nil {
		t.Fatalf("ReplaceAll(empty): %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("expected empty store, got %d", s.Len())
	}
}

func TestReplaceAllRejectsMalformed(t *testing.T) {
	tests := []struct {
		name    string
		records []model.Movement
	}{
		{"nil", nil},
		{"duplicate", []model.Movement{record("a"), record("a")}},
		{"empty id", []model.Movement{record("a"), record("")}},
	}

	for _, tt := range tests {
		s := New()
		if err := s.ReplaceAll([]model.Movement{record("keep")}); err != nil {
			t.Fatal(err)
		}
		err := s.ReplaceAll(tt.records)
		if !errors.Is(err, ErrMalformed) {
			t.Errorf("%s: expected ErrMalformed, got %v", tt.name, err)
		}
		if got := ids(s.Snapshot()); !equal(got, []string{"keep"}) {
			t.Errorf("%s: store changed on rejected replace: %v", tt.name, got)
		}
	}
}

func TestAppendPrepends(t *testing.T) {
	s := New()
	if err := s.Append(record("a")); err != nil {
		t.Fatal(err)
	}
	if err := s.Append(record("b"), record("c")); err != nil {
		t.Fatal(err)
	}
	if got := ids(s.Snapshot()); !equal(got, []string{"b", "c", "a"}) {
		t.Errorf("unexpected order %v", got)
	}
}

func TestAppendRejectsExistingID(t *testing.T) {
	s := New()
	if err := s.Append(record("a")); err != nil {
		t.Fatal(err)
	}
	before := s.Snapshot()

	if err := s.Append(record("b"), record("a")); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
	if got := ids(s.Snapshot()); !equal(got, ids(before)) {
		t.Errorf("store changed on rejected append: %v", got)
	}
}

func TestUpdateByIDs(t *testing.T) {
	s := New()
	if err := s.ReplaceAll([]model.Movement{record("a"), record("b"), record("c")}); err != nil {
		t.Fatal(err)
	}

	updated := s.UpdateByIDs([]string{"a", "c", "missing"}, func(m model.Movement) (model.Movement, bool) {
		m.Observations = "touched"
		m.ID = "renamed"
		return m, true
	})

	if got := ids(updated); !equal(got, []string{"a", "c"}) {
		t.Errorf("unexpected updated ids %v", got)
	}
	for _, m := range s.Snapshot() {
		touched := m.Observations == "touched"
		if touched != (m.ID == "a" || m.ID == "c") {
			t.Errorf("record %s touched=%v", m.ID, touched)
		}
	}
	if _, ok := s.Get("renamed"); ok {
		t.Error("mutator must not be able to change an id")
	}
}

func TestUpdateByIDsSkipsUnchanged(t *testing.T) {
	s := New()
	if err := s.ReplaceAll([]model.Movement{record("a")}); err != nil {
		t.Fatal(err)
	}
	updated := s.UpdateByIDs([]string{"a"}, func(m model.Movement) (model.Movement, bool) {
		m.Observations = "ignored"
		return m, false
	})
	if len(updated) != 0 {
		t.Errorf("expected no updates, got %v", ids(updated))
	}
	if m, _ := s.Get("a"); m.Observations != "" {
		t.Error("record changed although mutator declined")
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	s := New()
	if err := s.Append(record("a")); err != nil {
		t.Fatal(err)
	}
	snap := s.Snapshot()
	snap[0].Material = "changed"
	if m, _ := s.Get("a"); m.Material == "changed" {
		t.Error("snapshot aliases store contents")
	}
}

func TestConcurrentAccess(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_ = s.Append(record(time.Duration(i).String()))
		}(i)
		go func() {
			defer wg.Done()
			_ = s.Snapshot()
			_ = s.Len()
		}()
	}
	wg.Wait()
	if s.Len() != 50 {
		t.Errorf("expected 50 records, got %d", s.Len())
	}
}
