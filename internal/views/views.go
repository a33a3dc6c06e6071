// Package views derives the read-side projections of a unit's movements.
// Every projection is computed on demand against the given clock; nothing
// here is stored.
package views

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/erazemk/cautela/internal/model"
)

// Entry is a movement annotated for display.
type Entry struct {
	Movement model.Movement `json:"movement"`
	Overdue  bool           `json:"overdue"`
	Origin   string         `json:"origin"`
}

// StatusFilter selects movements by status in the history view.
type StatusFilter string

const (
	FilterPending  StatusFilter = "pending"
	FilterReturned StatusFilter = "returned"
	FilterAll      StatusFilter = "all"
)

// ParseStatusFilter accepts the filter names and the stored status values.
// An empty string selects pending movements.
func ParseStatusFilter(s string) (StatusFilter, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "pending", strings.ToLower(string(model.StatusPending)):
		return FilterPending, nil
	case "returned", strings.ToLower(string(model.StatusReturned)):
		return FilterReturned, nil
	case "all":
		return FilterAll, nil
	}
	return "", fmt.Errorf("unknown status filter %q", s)
}

func (f StatusFilter) matches(m model.Movement) bool {
	switch f {
	case FilterPending:
		return m.Status == model.StatusPending
	case FilterReturned:
		return m.Status == model.StatusReturned
	default:
		return true
	}
}

func pendingFields(m model.Movement) []string {
	return []string{m.Name, m.WarName, m.BM, m.Material, m.EffectiveOrigin()}
}

func historyFields(m model.Movement) []string {
	return append(pendingFields(m), m.Reason, m.ReceiverName, m.DutyOfficerName)
}

func matches(fields []string, term string) bool {
	if term == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}

func project(records []model.Movement, now time.Time, keep func(model.Movement) bool) []Entry {
	out := make([]Entry, 0, len(records))
	for _, m := range records {
		if !keep(m) {
			continue
		}
		out = append(out, Entry{Movement: m, Overdue: m.IsOverdue(now), Origin: m.EffectiveOrigin()})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Movement.CheckedOutAt.After(out[j].Movement.CheckedOutAt)
	})
	return out
}

// Pending lists pending movements matching term against the borrower name,
// war name, BM, material and origin.
func Pending(records []model.Movement, term string, now time.Time) []Entry {
	term = strings.ToLower(strings.TrimSpace(term))
	return project(records, now, func(m model.Movement) bool {
		return m.Status == model.StatusPending && matches(pendingFields(m), term)
	})
}

// History lists movements selected by filter and matching term, which also
// covers the reason, the receiver name and the duty officer name.
func History(records []model.Movement, filter StatusFilter, term string, now time.Time) []Entry {
	term = strings.ToLower(strings.TrimSpace(term))
	return project(records, now, func(m model.Movement) bool {
		return filter.matches(m) && matches(historyFields(m), term)
	})
}

// Overdue lists the movements overdue at now.
func Overdue(records []model.Movement, now time.Time) []Entry {
	return project(records, now, func(m model.Movement) bool {
		return m.IsOverdue(now)
	})
}

// Summary counts movements by state.
type Summary struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	Returned int `json:"returned"`
	Overdue  int `json:"overdue"`
}

// Summarize counts records at now.
func Summarize(records []model.Movement, now time.Time) Summary {
	var s Summary
	for _, m := range records {
		s.Total++
		switch m.Status {
		case model.StatusPending:
			s.Pending++
			if m.IsOverdue(now) {
				s.Overdue++
			}
		case model.StatusReturned:
			s.Returned++
		}
	}
	return s
}
