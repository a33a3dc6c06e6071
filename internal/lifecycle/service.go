// Package lifecycle implements the two custody transitions: checkout creates
// pending movements and return closes them. Both commit locally first, then
// push the whole table, then notify the people involved.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/erazemk/cautela/internal/ids"
	"github.com/erazemk/cautela/internal/model"
	"github.com/erazemk/cautela/internal/movements"
	"github.com/erazemk/cautela/internal/notify"
	"github.com/erazemk/cautela/internal/obs"
	"github.com/erazemk/cautela/internal/syncer"
)

var (
	// ErrPrecondition is returned, before anything changes, when a request is
	// incomplete.
	ErrPrecondition = errors.New("precondition not met")
	// ErrNotReady is returned while the unit has no working set to build on.
	ErrNotReady = errors.New("movements not loaded yet")
)

// SyncPendingWarning is shown when a transition was saved locally only.
const SyncPendingWarning = "Alterações salvas localmente. Sincronização pendente."

// Committer persists the store locally and remotely.
type Committer interface {
	Ready() bool
	Commit(ctx context.Context) error
}

// Notifier queues notifications without waiting for delivery.
type Notifier interface {
	Enqueue(msgs ...notify.Message) int
}

// Options configures a Service. Zero values pick defaults.
type Options struct {
	Now         func() time.Time
	NewID       func(time.Time) string
	EmailDomain string
}

// Service runs checkouts and returns for one unit.
type Service struct {
	unit     model.UnitID
	store    *movements.Store
	sync     Committer
	notifier Notifier
	now      func() time.Time
	newID    func(time.Time) string
	domain   string
	validate *validator.Validate
}

// Result reports what a transition did.
type Result struct {
	Movements     []model.Movement `json:"movements"`
	SyncPending   bool             `json:"sync_pending"`
	Notifications int              `json:"notifications"`
	Warning       string           `json:"warning,omitempty"`
}

// New returns a Service.
func New(unit model.UnitID, store *movements.Store, sync Committer, notifier Notifier, opts Options) *Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = ids.NewAt
	}
	return &Service{
		unit:     unit,
		store:    store,
		sync:     sync,
		notifier: notifier,
		now:      opts.Now,
		newID:    opts.NewID,
		domain:   opts.EmailDomain,
		validate: newValidator(),
	}
}

// Checkout creates one pending movement per staged item. All of them share
// the borrower, the duty officer and a single checkout timestamp.
func (s *Service) Checkout(ctx context.Context, req CheckoutRequest) (*Result, error) {
	req = req.normalized()
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrPrecondition, describe(err))
	}
	if !s.sync.Ready() {
		return nil, ErrNotReady
	}

	at := s.now()
	records := make([]model.Movement, len(req.Items))
	for i, it := range req.Items {
		records[i] = model.Movement{
			ID:                 s.newID(at),
			BM:                 req.Borrower.BM,
			Name:               req.Borrower.Name,
			WarName:            req.Borrower.WarName,
			Rank:               req.Borrower.Rank,
			CheckedOutAt:       at,
			EstimatedReturn:    it.EstimatedReturn,
			Material:           it.Material,
			Origin:             it.Origin,
			Type:               it.Type,
			Status:             model.StatusPending,
			Reason:             it.Reason,
			Image:              it.Image,
			DutyOfficerBM:      req.DutyOfficer.BM,
			DutyOfficerName:    req.DutyOfficer.Name,
			DutyOfficerWarName: req.DutyOfficer.WarName,
			DutyOfficerRank:    req.DutyOfficer.Rank,
		}
	}

	if err := s.store.Append(records...); err != nil {
		return nil, fmt.Errorf("recording checkout: %w", err)
	}
	obs.Transitions.WithLabelValues(string(s.unit), "checkout").Add(float64(len(records)))
	slog.Info("movement checked out", "unit", s.unit, "borrower", req.Borrower.BM, "items", len(records))

	res := &Result{Movements: records}
	if s.commit(ctx, res) {
		res.Notifications = s.notifier.Enqueue(checkoutMessages(records, s.domain)...)
	}
	return res, nil
}

// Return closes the selected pending movements with one receiver, timestamp
// and observation text. Ids that are unknown or already returned are
// skipped.
func (s *Service) Return(ctx context.Context, req ReturnRequest) (*Result, error) {
	req = req.normalized()
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrPrecondition, describe(err))
	}
	if !s.sync.Ready() {
		return nil, ErrNotReady
	}

	at := s.now()
	updated := s.store.UpdateByIDs(req.IDs, func(m model.Movement) (model.Movement, bool) {
		if m.Status != model.StatusPending {
			return m, false
		}
		return m.MarkReturned(at, req.Receiver, req.Observations), true
	})
	if len(updated) == 0 {
		slog.Warn("return matched no pending movement", "unit", s.unit, "ids", req.IDs)
		return &Result{Movements: []model.Movement{}, Warning: "Nenhuma cautela pendente encontrada."}, nil
	}

	records := inRequestOrder(updated, req.IDs)
	obs.Transitions.WithLabelValues(string(s.unit), "return").Add(float64(len(records)))
	slog.Info("movement returned", "unit", s.unit, "receiver", req.Receiver.BM, "items", len(records))

	res := &Result{Movements: records}
	if s.commit(ctx, res) {
		observations := records[0].Observations
		res.Notifications = s.notifier.Enqueue(returnMessages(records, req.Receiver, at, observations, s.domain)...)
	}
	return res, nil
}

// commit persists and pushes; it reports whether the push went through.
func (s *Service) commit(ctx context.Context, res *Result) bool {
	err := s.sync.Commit(ctx)
	if err == nil {
		return true
	}
	if !errors.Is(err, syncer.ErrSyncPending) {
		slog.Error("commit failed", "unit", s.unit, "error", err)
	}
	res.SyncPending = true
	res.Warning = SyncPendingWarning
	return false
}

func inRequestOrder(records []model.Movement, order []string) []model.Movement {
	byID := make(map[string]model.Movement, len(records))
	for _, m := range records {
		byID[m.ID] = m
	}
	out := make([]model.Movement, 0, len(records))
	for _, id := range order {
		if m, ok := byID[id]; ok {
			out = append(out, m)
		}
	}
	return out
}
