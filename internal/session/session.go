// Package session wires the per-unit parts together: each unit gets its own
// store, remote client, sync engine, lifecycle service and notification
// dispatcher, and remembers its current operator and endpoint in the cache.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/erazemk/cautela/internal/config"
	"github.com/erazemk/cautela/internal/lifecycle"
	"github.com/erazemk/cautela/internal/model"
	"github.com/erazemk/cautela/internal/movements"
	"github.com/erazemk/cautela/internal/notify"
	"github.com/erazemk/cautela/internal/remote"
	"github.com/erazemk/cautela/internal/syncer"
)

// ErrUnknownUnit is returned for a unit id missing from the roster.
var ErrUnknownUnit = errors.New("unknown unit")

// Cache is everything a unit keeps across restarts.
type Cache interface {
	syncer.Cache
	LoadOperator(ctx context.Context, unit model.UnitID) (model.Person, bool)
	SaveOperator(ctx context.Context, unit model.UnitID, p model.Person) error
	ClearOperator(ctx context.Context, unit model.UnitID) error
	LoadEndpoint(ctx context.Context, unit model.UnitID) (string, bool)
	SaveEndpoint(ctx context.Context, unit model.UnitID, endpoint string) error
}

// Deps are shared by every unit. Zero values pick defaults.
type Deps struct {
	Cache Cache
	HTTP  *http.Client
	// NewSender picks the notification transport for a unit. The default
	// relays through the unit's spreadsheet web app.
	NewSender   func(relay notify.EmailRelay) notify.Sender
	Dispatch    notify.DispatcherOptions
	Now         func() time.Time
	NewID       func(time.Time) string
	EmailDomain string
}

// Unit is the application context of one organizational unit.
type Unit struct {
	Config     config.Unit
	Store      *movements.Store
	Remote     *remote.Client
	Sync       *syncer.Engine
	Lifecycle  *lifecycle.Service
	Dispatcher *notify.Dispatcher

	cache Cache
}

func newUnit(ctx context.Context, cfg config.Unit, deps Deps) (*Unit, error) {
	endpoint := cfg.Endpoint
	if saved, ok := deps.Cache.LoadEndpoint(ctx, cfg.ID); ok {
		endpoint = saved
	}
	client, err := remote.NewClient("", deps.HTTP)
	if err != nil {
		return nil, err
	}
	if endpoint != "" {
		if err := client.SetEndpoint(endpoint); err != nil {
			slog.Warn("ignoring invalid endpoint", "unit", cfg.ID, "error", err)
		}
	}

	var sender notify.Sender = notify.SheetSender{Relay: client}
	if deps.NewSender != nil {
		sender = deps.NewSender(client)
	}

	u := &Unit{
		Config:     cfg,
		Store:      movements.New(),
		Remote:     client,
		Dispatcher: notify.NewDispatcher(sender, deps.Dispatch),
		cache:      deps.Cache,
	}
	u.Sync = syncer.NewEngine(cfg.ID, u.Store, deps.Cache, client, syncer.WithClock(deps.Now))
	u.Lifecycle = lifecycle.New(cfg.ID, u.Store, u.Sync, u.Dispatcher, lifecycle.Options{
		Now:         deps.Now,
		NewID:       deps.NewID,
		EmailDomain: deps.EmailDomain,
	})
	return u, nil
}

// ID returns the unit id.
func (u *Unit) ID() model.UnitID {
	return u.Config.ID
}

// Operator returns the operator currently logged in to the unit.
func (u *Unit) Operator(ctx context.Context) (model.Person, bool) {
	return u.cache.LoadOperator(ctx, u.ID())
}

// SetOperator records p as the unit's current operator.
func (u *Unit) SetOperator(ctx context.Context, p model.Person) error {
	if err := u.cache.SaveOperator(ctx, u.ID(), p); err != nil {
		return fmt.Errorf("saving operator: %w", err)
	}
	slog.Info("operator logged in", "unit", u.ID(), "bm", p.BM, "rank", p.Rank)
	return nil
}

// ClearOperator logs the current operator out.
func (u *Unit) ClearOperator(ctx context.Context) error {
	if err := u.cache.ClearOperator(ctx, u.ID()); err != nil {
		return fmt.Errorf("clearing operator: %w", err)
	}
	slog.Info("operator logged out", "unit", u.ID())
	return nil
}

// ConfigureEndpoint switches the unit to a new remote endpoint, remembers it
// and tests it with a manual sync. The endpoint stays configured even when
// the sync fails; the returned error reports the failed sync. Moving to a
// different endpoint drops the old working set, so lifecycle operations wait
// for the new table to be read.
func (u *Unit) ConfigureEndpoint(ctx context.Context, endpoint string) error {
	endpoint = strings.TrimSpace(endpoint)
	if err := remote.ValidateEndpoint(endpoint); err != nil {
		return err
	}
	if endpoint != u.Remote.Endpoint() {
		u.Sync.Reset(ctx)
	}
	if err := u.Remote.SetEndpoint(endpoint); err != nil {
		return err
	}
	if err := u.cache.SaveEndpoint(ctx, u.ID(), endpoint); err != nil {
		return fmt.Errorf("saving endpoint: %w", err)
	}
	slog.Info("endpoint configured", "unit", u.ID())
	return u.Sync.Fetch(ctx, syncer.ModeManual)
}

// Manager holds every unit of the roster.
type Manager struct {
	order []model.UnitID
	units map[model.UnitID]*Unit
}

// NewManager builds a unit context for every roster entry. Nothing touches
// the network until the first sync.
func NewManager(ctx context.Context, roster []config.Unit, deps Deps) (*Manager, error) {
	if deps.Cache == nil {
		return nil, errors.New("session: cache is required")
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	m := &Manager{units: make(map[model.UnitID]*Unit, len(roster))}
	for _, cfg := range roster {
		if _, dup := m.units[cfg.ID]; dup {
			return nil, fmt.Errorf("duplicate unit %s", cfg.ID)
		}
		u, err := newUnit(ctx, cfg, deps)
		if err != nil {
			m.Close()
			return nil, fmt.Errorf("unit %s: %w", cfg.ID, err)
		}
		m.order = append(m.order, cfg.ID)
		m.units[cfg.ID] = u
	}
	return m, nil
}

// Unit returns the context of unit id.
func (m *Manager) Unit(id model.UnitID) (*Unit, error) {
	u, ok := m.units[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownUnit, id)
	}
	return u, nil
}

// Units returns every unit in roster order.
func (m *Manager) Units() []*Unit {
	out := make([]*Unit, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.units[id])
	}
	return out
}

// SyncAll fetches every unit. A unit that fails does not stop the others.
func (m *Manager) SyncAll(ctx context.Context, mode syncer.Mode) error {
	var errs []error
	for _, u := range m.Units() {
		if err := u.Sync.Fetch(ctx, mode); err != nil {
			errs = append(errs, fmt.Errorf("unit %s: %w", u.ID(), err))
		}
	}
	return errors.Join(errs...)
}

// Schedule registers every unit with s, probing connectivity against the
// unit's current endpoint.
func (m *Manager) Schedule(s *syncer.Scheduler) {
	for _, u := range m.Units() {
		s.Add(u.Sync, syncer.DialProbe{Endpoint: u.Remote.Endpoint})
	}
}

// Close stops every dispatcher after delivering what is queued.
func (m *Manager) Close() {
	for _, u := range m.units {
		u.Dispatcher.Close()
	}
}
