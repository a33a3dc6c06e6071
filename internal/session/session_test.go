package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/cautela/internal/config"
	"github.com/erazemk/cautela/internal/db"
	"github.com/erazemk/cautela/internal/lifecycle"
	"github.com/erazemk/cautela/internal/model"
	"github.com/erazemk/cautela/internal/notify"
	"github.com/erazemk/cautela/internal/remote"
	"github.com/erazemk/cautela/internal/remote/sheettest"
	"github.com/erazemk/cautela/internal/store"
	"github.com/erazemk/cautela/internal/syncer"
)

var (
	now      = time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC)
	borrower = model.Person{BM: "111.111-1", Name: "João SILVA", WarName: "SILVA", Rank: "Sd"}
	officer  = model.Person{BM: "333.333-3", Name: "Rui MOTA", WarName: "MOTA", Rank: "2º Sgt"}
)

func newManager(t *testing.T, roster []config.Unit) (*Manager, *store.LocalCache) {
	t.Helper()
	cache := store.NewLocalCache(db.NewTestDB(t))
	m, err := NewManager(context.Background(), roster, Deps{
		Cache:       cache,
		Dispatch:    notify.DispatcherOptions{PerSecond: 1000, Burst: 100, Timeout: time.Second},
		Now:         func() time.Time { return now },
		EmailDomain: "cbm.example.gov.br",
	})
	require.NoError(t, err)
	t.Cleanup(m.Close)
	return m, cache
}

func TestUnitsAreIsolated(t *testing.T) {
	sede := sheettest.New(t)
	pemad := sheettest.New(t)
	sede.Seed(model.Movement{ID: "s1", BM: "1", Status: model.StatusPending, CheckedOutAt: now})

	m, _ := newManager(t, []config.Unit{
		{ID: model.UnitSede, Endpoint: sede.Endpoint()},
		{ID: model.UnitPemad, Endpoint: pemad.Endpoint()},
	})
	require.NoError(t, m.SyncAll(context.Background(), syncer.ModeManual))

	s, err := m.Unit(model.UnitSede)
	require.NoError(t, err)
	p, err := m.Unit(model.UnitPemad)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Store.Len())
	assert.Equal(t, 0, p.Store.Len())

	ids := []model.UnitID{}
	for _, u := range m.Units() {
		ids = append(ids, u.ID())
	}
	assert.Equal(t, []model.UnitID{model.UnitSede, model.UnitPemad}, ids)

	_, err = m.Unit("NOPE")
	assert.ErrorIs(t, err, ErrUnknownUnit)
}

func TestCheckoutEndToEnd(t *testing.T) {
	sheet := sheettest.New(t)
	m, _ := newManager(t, []config.Unit{{ID: model.UnitSede, Endpoint: sheet.Endpoint()}})
	u, _ := m.Unit(model.UnitSede)
	ctx := context.Background()

	_, err := u.Lifecycle.Checkout(ctx, lifecycle.CheckoutRequest{
		Borrower: borrower, DutyOfficer: officer,
		Items: []lifecycle.CheckoutItem{{Material: "Corda", Type: model.MaterialHeightRescue}},
	})
	require.ErrorIs(t, err, lifecycle.ErrNotReady)

	require.NoError(t, m.SyncAll(ctx, syncer.ModeManual))
	res, err := u.Lifecycle.Checkout(ctx, lifecycle.CheckoutRequest{
		Borrower: borrower, DutyOfficer: officer,
		Items: []lifecycle.CheckoutItem{{Material: "Corda", Type: model.MaterialHeightRescue}},
	})
	require.NoError(t, err)
	assert.False(t, res.SyncPending)

	rows := sheet.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, res.Movements[0].ID, rows[0].ID)

	require.NoError(t, u.Dispatcher.Flush(ctx))
	emails := sheet.Emails()
	require.Len(t, emails, 2)
	assert.Equal(t, "1111111@cbm.example.gov.br", emails[0].To)
	assert.Equal(t, "3333333@cbm.example.gov.br", emails[1].To)
}

func TestCacheOnlyStartRefusesLifecycle(t *testing.T) {
	sheet := sheettest.New(t)
	sheet.Seed(
		model.Movement{ID: "r1", BM: "1", Status: model.StatusPending, CheckedOutAt: now},
		model.Movement{ID: "r2", BM: "2", Status: model.StatusPending, CheckedOutAt: now},
	)
	sheet.SetReadBody(`{"error":"quota"}`)

	cache := store.NewLocalCache(db.NewTestDB(t))
	ctx := context.Background()
	require.NoError(t, cache.SaveMovements(ctx, model.UnitSede, []model.Movement{
		{ID: "c1", BM: "1", Status: model.StatusPending, CheckedOutAt: now},
	}))
	m, err := NewManager(ctx, []config.Unit{{ID: model.UnitSede, Endpoint: sheet.Endpoint()}}, Deps{Cache: cache, Now: func() time.Time { return now }})
	require.NoError(t, err)
	defer m.Close()
	u, _ := m.Unit(model.UnitSede)

	require.Error(t, m.SyncAll(ctx, syncer.ModeBackground))
	assert.Equal(t, 1, u.Store.Len(), "cached set stays readable")

	_, err = u.Lifecycle.Checkout(ctx, lifecycle.CheckoutRequest{
		Borrower: borrower, DutyOfficer: officer,
		Items: []lifecycle.CheckoutItem{{Material: "Corda", Type: model.MaterialHeightRescue}},
	})
	require.ErrorIs(t, err, lifecycle.ErrNotReady)
	_, err = u.Lifecycle.Return(ctx, lifecycle.ReturnRequest{IDs: []string{"c1"}, Receiver: officer})
	require.ErrorIs(t, err, lifecycle.ErrNotReady)

	_, saves := sheet.Counts()
	assert.Equal(t, 0, saves)
	assert.Len(t, sheet.Rows(), 2)
}

func TestOperator(t *testing.T) {
	m, _ := newManager(t, config.DefaultUnits())
	ctx := context.Background()
	sede, _ := m.Unit(model.UnitSede)
	pemad, _ := m.Unit(model.UnitPemad)

	_, ok := sede.Operator(ctx)
	assert.False(t, ok)

	require.NoError(t, sede.SetOperator(ctx, officer))
	got, ok := sede.Operator(ctx)
	require.True(t, ok)
	assert.Equal(t, officer, got)

	_, ok = pemad.Operator(ctx)
	assert.False(t, ok, "operator must not leak across units")

	require.NoError(t, sede.ClearOperator(ctx))
	_, ok = sede.Operator(ctx)
	assert.False(t, ok)
}

func TestConfigureEndpoint(t *testing.T) {
	sheet := sheettest.New(t)
	sheet.Seed(model.Movement{ID: "r1", BM: "1", Status: model.StatusPending, CheckedOutAt: now})
	m, cache := newManager(t, config.DefaultUnits())
	u, _ := m.Unit(model.UnitPemad)
	ctx := context.Background()

	assert.Error(t, u.ConfigureEndpoint(ctx, "ftp://example.com"))
	assert.Equal(t, "", u.Remote.Endpoint())

	require.NoError(t, u.ConfigureEndpoint(ctx, sheet.Endpoint()))
	assert.Equal(t, sheet.Endpoint(), u.Remote.Endpoint())
	assert.Equal(t, 1, u.Store.Len())
	assert.True(t, u.Sync.Ready())

	saved, ok := cache.LoadEndpoint(ctx, model.UnitPemad)
	require.True(t, ok)
	assert.Equal(t, sheet.Endpoint(), saved)
}

func TestConfigureEndpointKeepsEndpointWhenSyncFails(t *testing.T) {
	sheet := sheettest.New(t)
	sheet.SetFailing(true)
	m, cache := newManager(t, config.DefaultUnits())
	u, _ := m.Unit(model.UnitSede)
	ctx := context.Background()

	err := u.ConfigureEndpoint(ctx, sheet.Endpoint())
	assert.True(t, errors.Is(err, remote.ErrUnavailable), "got %v", err)

	saved, ok := cache.LoadEndpoint(ctx, model.UnitSede)
	require.True(t, ok)
	assert.Equal(t, sheet.Endpoint(), saved)
	assert.True(t, u.Sync.Status().Error)
}

func TestSwitchingEndpointWaitsForNewTable(t *testing.T) {
	oldSheet := sheettest.New(t)
	oldSheet.Seed(model.Movement{ID: "old1", BM: "1", Status: model.StatusPending, CheckedOutAt: now})
	newSheet := sheettest.New(t)
	newSheet.Seed(model.Movement{ID: "new1", BM: "2", Status: model.StatusPending, CheckedOutAt: now})

	m, cache := newManager(t, []config.Unit{{ID: model.UnitSede, Endpoint: oldSheet.Endpoint()}})
	u, _ := m.Unit(model.UnitSede)
	ctx := context.Background()
	require.NoError(t, m.SyncAll(ctx, syncer.ModeManual))
	require.True(t, u.Sync.Ready())

	// The new table cannot be read yet, but accepts writes.
	newSheet.SetReadBody(`{"error":"quota"}`)
	require.Error(t, u.ConfigureEndpoint(ctx, newSheet.Endpoint()))

	assert.False(t, u.Sync.Ready())
	assert.Equal(t, 0, u.Store.Len(), "old table must not linger")
	cached, _ := cache.LoadMovements(ctx, model.UnitSede)
	assert.Empty(t, cached)

	checkout := lifecycle.CheckoutRequest{
		Borrower: borrower, DutyOfficer: officer,
		Items: []lifecycle.CheckoutItem{{Material: "Corda", Type: model.MaterialHeightRescue}},
	}
	_, err := u.Lifecycle.Checkout(ctx, checkout)
	require.ErrorIs(t, err, lifecycle.ErrNotReady)
	rows := newSheet.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, "new1", rows[0].ID)

	newSheet.SetReadBody("")
	require.NoError(t, u.Sync.Fetch(ctx, syncer.ModeManual))
	_, err = u.Lifecycle.Checkout(ctx, checkout)
	require.NoError(t, err)
	rows = newSheet.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, "new1", rows[1].ID)
	assert.Len(t, oldSheet.Rows(), 1)
}

func TestReconfiguringSameEndpointKeepsWorkingSet(t *testing.T) {
	sheet := sheettest.New(t)
	sheet.Seed(model.Movement{ID: "r1", BM: "1", Status: model.StatusPending, CheckedOutAt: now})
	m, _ := newManager(t, []config.Unit{{ID: model.UnitSede, Endpoint: sheet.Endpoint()}})
	u, _ := m.Unit(model.UnitSede)
	ctx := context.Background()
	require.NoError(t, m.SyncAll(ctx, syncer.ModeManual))

	sheet.SetFailing(true)
	require.Error(t, u.ConfigureEndpoint(ctx, sheet.Endpoint()))
	assert.True(t, u.Sync.Ready())
	assert.Equal(t, 1, u.Store.Len())
}

func TestSavedEndpointOverridesRoster(t *testing.T) {
	sheet := sheettest.New(t)
	cache := store.NewLocalCache(db.NewTestDB(t))
	ctx := context.Background()
	require.NoError(t, cache.SaveEndpoint(ctx, model.UnitSede, sheet.Endpoint()))

	m, err := NewManager(ctx, []config.Unit{{ID: model.UnitSede, Endpoint: "https://old.example.com/exec"}}, Deps{Cache: cache})
	require.NoError(t, err)
	defer m.Close()

	u, _ := m.Unit(model.UnitSede)
	assert.Equal(t, sheet.Endpoint(), u.Remote.Endpoint())
}

func TestSyncAllReportsEveryFailure(t *testing.T) {
	m, _ := newManager(t, config.DefaultUnits())
	err := m.SyncAll(context.Background(), syncer.ModeManual)
	require.Error(t, err)
	assert.ErrorIs(t, err, remote.ErrNoEndpoint)
	assert.Contains(t, err.Error(), "SEDE")
	assert.Contains(t, err.Error(), "PEMAD")
}

func TestNewManagerRejectsDuplicates(t *testing.T) {
	cache := store.NewLocalCache(db.NewTestDB(t))
	_, err := NewManager(context.Background(), []config.Unit{{ID: "SEDE"}, {ID: "SEDE"}}, Deps{Cache: cache})
	assert.Error(t, err)
}
