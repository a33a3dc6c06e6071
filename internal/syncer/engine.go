// Package syncer reconciles a unit's movement store with the remote table.
//
// Both directions move the whole table: a fetch replaces the local working
// set with the remote snapshot and a push replaces the remote table with the
// local snapshot. The last push wins; records are never merged.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/erazemk/cautela/internal/model"
	"github.com/erazemk/cautela/internal/movements"
	"github.com/erazemk/cautela/internal/obs"
)

// ErrSyncPending is returned by Push and Commit when the local state was
// saved but could not be sent to the remote.
var ErrSyncPending = errors.New("changes saved locally, sync pending")

// Cache is the durable mirror the engine keeps in lockstep with the store.
type Cache interface {
	LoadMovements(ctx context.Context, unit model.UnitID) ([]model.Movement, bool)
	SaveMovements(ctx context.Context, unit model.UnitID, records []model.Movement) error
}

// Remote is the whole-table remote.
type Remote interface {
	Fetch(ctx context.Context) ([]model.Movement, error)
	Push(ctx context.Context, records []model.Movement) error
}

// Mode tells a fetch whether a user is waiting on it.
type Mode int

const (
	// ModeManual is a user-triggered sync; it shows as Syncing.
	ModeManual Mode = iota
	// ModeBackground is the periodic resync; it never shows as Syncing.
	ModeBackground
)

func (m Mode) String() string {
	if m == ModeBackground {
		return "background"
	}
	return "manual"
}

// Status is the sync indicator shown to operators.
type Status struct {
	Syncing        bool       `json:"syncing"`
	LastSync       *time.Time `json:"last_sync,omitempty"`
	Error          bool       `json:"error"`
	PushPending    bool       `json:"push_pending"`
	HasInitialLoad bool       `json:"has_initial_load"`
	Attempted      bool       `json:"attempted"`
	FromCache      bool       `json:"from_cache"`
}

// Engine syncs one unit. It holds no lock across network calls; the store
// serializes the apply step.
type Engine struct {
	unit   model.UnitID
	store  *movements.Store
	cache  Cache
	remote Remote
	now    func() time.Time

	mu             sync.Mutex
	manualRuns     int
	attempted      bool
	hasInitialLoad bool
	fromCache      bool
	failed         bool
	pushPending    bool
	lastSync       time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the engine clock.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine returns an engine for unit.
func NewEngine(unit model.UnitID, store *movements.Store, cache Cache, remote Remote, opts ...Option) *Engine {
	e := &Engine{
		unit:   unit,
		store:  store,
		cache:  cache,
		remote: remote,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Unit returns the unit this engine syncs.
func (e *Engine) Unit() model.UnitID {
	return e.unit
}

// Fetch replaces the store and the cache with the remote table. When the
// remote cannot be read, the working set is left alone, except on the very
// first attempt, where the cached set (if any) becomes a read-only working
// set. Only a successful fetch makes the engine Ready.
func (e *Engine) Fetch(ctx context.Context, mode Mode) error {
	e.mu.Lock()
	first := !e.attempted
	e.attempted = true
	if mode == ModeManual {
		e.manualRuns++
	}
	e.mu.Unlock()

	if mode == ModeManual {
		defer func() {
			e.mu.Lock()
			e.manualRuns--
			e.mu.Unlock()
		}()
	}

	records, err := e.remote.Fetch(ctx)
	if err == nil {
		err = e.store.ReplaceAll(records)
	}
	obs.SyncRuns.WithLabelValues(string(e.unit), "fetch", obs.Result(err)).Inc()

	if err != nil {
		e.mu.Lock()
		e.failed = true
		e.mu.Unlock()
		slog.Warn("sync failed", "unit", e.unit, "mode", mode, "error", err)

		if first {
			e.loadCache(ctx)
		}
		return fmt.Errorf("fetching %s: %w", e.unit, err)
	}

	if err := e.cache.SaveMovements(ctx, e.unit, records); err != nil {
		slog.Error("failed to save local cache", "unit", e.unit, "error", err)
	}

	e.mu.Lock()
	e.failed = false
	e.hasInitialLoad = true
	e.fromCache = false
	e.lastSync = e.now()
	e.mu.Unlock()

	slog.Info("sync completed", "unit", e.unit, "mode", mode, "movements", len(records))
	return nil
}

func (e *Engine) loadCache(ctx context.Context) {
	cached, ok := e.cache.LoadMovements(ctx, e.unit)
	if !ok {
		slog.Warn("no local cache to fall back to", "unit", e.unit)
		return
	}
	if err := e.store.ReplaceAll(cached); err != nil {
		slog.Warn("local cache rejected", "unit", e.unit, "error", err)
		return
	}

	e.mu.Lock()
	e.fromCache = true
	e.mu.Unlock()
	slog.Info("showing local cache until the remote answers", "unit", e.unit, "movements", len(cached))
}

// Reset forgets everything known about the remote: the working set, the
// cache and every status flag. The next Fetch counts as the first one, and
// the engine is not Ready until it succeeds.
func (e *Engine) Reset(ctx context.Context) {
	e.mu.Lock()
	if e.pushPending {
		slog.Warn("discarding unsynced changes", "unit", e.unit)
	}
	e.attempted = false
	e.hasInitialLoad = false
	e.fromCache = false
	e.failed = false
	e.pushPending = false
	e.lastSync = time.Time{}
	e.mu.Unlock()

	if err := e.store.ReplaceAll([]model.Movement{}); err != nil {
		slog.Error("clearing working set", "unit", e.unit, "error", err)
	}
	if err := e.cache.SaveMovements(ctx, e.unit, []model.Movement{}); err != nil {
		slog.Error("failed to clear local cache", "unit", e.unit, "error", err)
	}
}

// Push sends the whole store to the remote. On failure nothing is rolled
// back and ErrSyncPending is returned.
func (e *Engine) Push(ctx context.Context) error {
	return e.push(ctx, e.store.Snapshot())
}

// Commit saves the current store to the cache and then pushes that same
// snapshot. A cache failure is logged and the push still runs; a push
// failure is returned as ErrSyncPending.
func (e *Engine) Commit(ctx context.Context) error {
	snapshot := e.store.Snapshot()
	if err := e.cache.SaveMovements(ctx, e.unit, snapshot); err != nil {
		slog.Error("failed to save local cache", "unit", e.unit, "error", err)
	}
	return e.push(ctx, snapshot)
}

func (e *Engine) push(ctx context.Context, snapshot []model.Movement) error {
	err := e.remote.Push(ctx, snapshot)
	obs.SyncRuns.WithLabelValues(string(e.unit), "push", obs.Result(err)).Inc()

	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		e.failed = true
		e.pushPending = true
		slog.Warn("push failed, changes kept locally", "unit", e.unit, "error", err)
		return fmt.Errorf("%w: %w", ErrSyncPending, err)
	}
	e.failed = false
	e.pushPending = false
	e.lastSync = e.now()
	return nil
}

// Ready reports whether a fetch has succeeded, so lifecycle operations may
// push without discarding remote rows this device has not seen.
func (e *Engine) Ready() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hasInitialLoad
}

// Status returns the current sync indicator.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := Status{
		Syncing:        e.manualRuns > 0,
		Error:          e.failed,
		PushPending:    e.pushPending,
		HasInitialLoad: e.hasInitialLoad,
		Attempted:      e.attempted,
		FromCache:      e.fromCache,
	}
	if !e.lastSync.IsZero() {
		t := e.lastSync
		s.LastSync = &t
	}
	return s
}
