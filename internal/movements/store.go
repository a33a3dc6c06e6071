// Package movements holds the in-memory record of equipment movements for one
// unit. It is the only owner of Movement values; callers receive copies.
package movements

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/erazemk/cautela/internal/model"
)

// ErrMalformed is returned when a replacement or append would break the
// store's shape: a missing list, an empty id or a duplicate id.
var ErrMalformed = errors.New("malformed movement set")

// Store is an ordered, newest-first sequence of movements, safe for
// concurrent use.
type Store struct {
	mu      sync.RWMutex
	records []model.Movement
}

// New returns an empty store.
func New() *Store {
	return &Store{}
}

// ReplaceAll installs records as the whole working set. A nil slice or a set
// with empty or duplicate ids is rejected and leaves the store unchanged.
func (s *Store) ReplaceAll(records []model.Movement) error {
	if records == nil {
		return fmt.Errorf("%w: no record list", ErrMalformed)
	}
	if err := checkIDs(records, nil); err != nil {
		return err
	}

	next := slices.Clone(records)
	s.mu.Lock()
	s.records = next
	s.mu.Unlock()
	return nil
}

// Append adds new records to the front of the sequence, keeping their given
// order. Existing records are never touched; an id already present is an
// error and nothing is added.
func (s *Store) Append(records ...model.Movement) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing := make(map[string]bool, len(s.records))
	for _, m := range s.records {
		existing[m.ID] = true
	}
	if err := checkIDs(records, existing); err != nil {
		return err
	}

	next := make([]model.Movement, 0, len(records)+len(s.records))
	next = append(next, records...)
	next = append(next, s.records...)
	s.records = next
	return nil
}

// UpdateByIDs applies mutate to every record whose id is in ids and returns
// the records it changed. mutate reports whether it changed the record; ids
// that are not present are ignored. A mutator cannot change a record's id.
func (s *Store) UpdateByIDs(ids []string, mutate func(model.Movement) (model.Movement, bool)) []model.Movement {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var updated []model.Movement
	for i, m := range s.records {
		if !want[m.ID] {
			continue
		}
		next, changed := mutate(m)
		if !changed {
			continue
		}
		next.ID = m.ID
		s.records[i] = next
		updated = append(updated, next)
	}
	return updated
}

// Snapshot returns a copy of the current sequence.
func (s *Store) Snapshot() []model.Movement {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Movement, len(s.records))
	copy(out, s.records)
	return out
}

// Get returns the record with the given id.
func (s *Store) Get(id string) (model.Movement, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.records {
		if m.ID == id {
			return m, true
		}
	}
	return model.Movement{}, false
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func checkIDs(records []model.Movement, existing map[string]bool) error {
	seen := make(map[string]bool, len(records))
	for _, m := range records {
		if strings.TrimSpace(m.ID) == "" {
			return fmt.Errorf("%w: record without id", ErrMalformed)
		}
		if seen[m.ID] || existing[m.ID] {
			return fmt.Errorf("%w: duplicate id %s", ErrMalformed, m.ID)
		}
		seen[m.ID] = true
	}
	return nil
}
