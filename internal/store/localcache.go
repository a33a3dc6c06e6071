package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/erazemk/cautela/internal/model"
)

// LocalCache is the durable per-unit mirror of the movement store, backed by
// the cache_entries table. Loads never fail: unreadable entries are logged and
// reported as absent.
type LocalCache struct {
	DB *sql.DB
}

// NewLocalCache returns a LocalCache over db.
func NewLocalCache(db *sql.DB) *LocalCache {
	return &LocalCache{DB: db}
}

// LoadMovements returns the cached movements for unit.
func (c *LocalCache) LoadMovements(ctx context.Context, unit model.UnitID) ([]model.Movement, bool) {
	var records []model.Movement
	if !c.load(ctx, unit, KindMovements, &records) {
		return nil, false
	}
	if records == nil {
		slog.Warn("cached movements are not a list, ignoring", "unit", unit)
		return nil, false
	}
	return records, true
}

// SaveMovements overwrites the cached movements for unit.
func (c *LocalCache) SaveMovements(ctx context.Context, unit model.UnitID, records []model.Movement) error {
	if records == nil {
		records = []model.Movement{}
	}
	return c.save(ctx, unit, KindMovements, records)
}

// LoadOperator returns the unit's current operator.
func (c *LocalCache) LoadOperator(ctx context.Context, unit model.UnitID) (model.Person, bool) {
	var p model.Person
	if !c.load(ctx, unit, KindOperator, &p) {
		return model.Person{}, false
	}
	return p, true
}

// SaveOperator records the unit's current operator.
func (c *LocalCache) SaveOperator(ctx context.Context, unit model.UnitID, p model.Person) error {
	return c.save(ctx, unit, KindOperator, p)
}

// ClearOperator forgets the unit's current operator.
func (c *LocalCache) ClearOperator(ctx context.Context, unit model.UnitID) error {
	return DeleteEntry(ctx, c.DB, unit, KindOperator)
}

// LoadEndpoint returns the remote endpoint configured for unit.
func (c *LocalCache) LoadEndpoint(ctx context.Context, unit model.UnitID) (string, bool) {
	var endpoint string
	if !c.load(ctx, unit, KindEndpoint, &endpoint) || endpoint == "" {
		return "", false
	}
	return endpoint, true
}

// SaveEndpoint records the remote endpoint for unit.
func (c *LocalCache) SaveEndpoint(ctx context.Context, unit model.UnitID, endpoint string) error {
	return c.save(ctx, unit, KindEndpoint, endpoint)
}

func (c *LocalCache) load(ctx context.Context, unit model.UnitID, kind Kind, dest any) bool {
	raw, ok, err := GetEntry(ctx, c.DB, unit, kind)
	if err != nil {
		slog.Error("failed to read local cache", "unit", unit, "kind", kind, "error", err)
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		slog.Warn("malformed local cache entry, ignoring", "unit", unit, "kind", kind, "error", err)
		return false
	}
	return true
}

func (c *LocalCache) save(ctx context.Context, unit model.UnitID, kind Kind, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s for %s: %w", kind, unit, err)
	}
	return PutEntry(ctx, c.DB, unit, kind, string(data))
}
