package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/erazemk/cautela/internal/model"
)

// RedisCache keeps the local cache in Redis instead of SQLite, for
// deployments where several server processes share one workstation cache.
// Keys are cautela:<unit>:<kind> and never expire.
type RedisCache struct {
	Client *redis.Client
}

// NewRedisCache connects to addr and verifies the connection.
func NewRedisCache(ctx context.Context, addr string) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", addr, err)
	}
	return &RedisCache{Client: client}, nil
}

// Close closes the underlying client.
func (c *RedisCache) Close() error {
	return c.Client.Close()
}

// RedisKey returns the key holding kind for unit.
func RedisKey(unit model.UnitID, kind Kind) string {
	return fmt.Sprintf("cautela:%s:%s", unit, kind)
}

func (c *RedisCache) LoadMovements(ctx context.Context, unit model.UnitID) ([]model.Movement, bool) {
	var records []model.Movement
	if !c.get(ctx, unit, KindMovements, &records) || records == nil {
		return nil, false
	}
	return records, true
}

func (c *RedisCache) SaveMovements(ctx context.Context, unit model.UnitID, records []model.Movement) error {
	if records == nil {
		records = []model.Movement{}
	}
	return c.set(ctx, unit, KindMovements, records)
}

func (c *RedisCache) LoadOperator(ctx context.Context, unit model.UnitID) (model.Person, bool) {
	var p model.Person
	if !c.get(ctx, unit, KindOperator, &p) {
		return model.Person{}, false
	}
	return p, true
}

func (c *RedisCache) SaveOperator(ctx context.Context, unit model.UnitID, p model.Person) error {
	return c.set(ctx, unit, KindOperator, p)
}

func (c *RedisCache) ClearOperator(ctx context.Context, unit model.UnitID) error {
	if err := c.Client.Del(ctx, RedisKey(unit, KindOperator)).Err(); err != nil {
		return fmt.Errorf("clearing operator for %s: %w", unit, err)
	}
	return nil
}

func (c *RedisCache) LoadEndpoint(ctx context.Context, unit model.UnitID) (string, bool) {
	var endpoint string
	if !c.get(ctx, unit, KindEndpoint, &endpoint) || endpoint == "" {
		return "", false
	}
	return endpoint, true
}

func (c *RedisCache) SaveEndpoint(ctx context.Context, unit model.UnitID, endpoint string) error {
	return c.set(ctx, unit, KindEndpoint, endpoint)
}

func (c *RedisCache) get(ctx context.Context, unit model.UnitID, kind Kind, dest any) bool {
	val, err := c.Client.Get(ctx, RedisKey(unit, kind)).Result()
	if errors.Is(err, redis.Nil) {
		return false
	}
	if err != nil {
		slog.Error("failed to read redis cache", "unit", unit, "kind", kind, "error", err)
		return false
	}
	if err := json.Unmarshal([]byte(val), dest); err != nil {
		slog.Warn("malformed redis cache entry, ignoring", "unit", unit, "kind", kind, "error", err)
		return false
	}
	return true
}

func (c *RedisCache) set(ctx context.Context, unit model.UnitID, kind Kind, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s for %s: %w", kind, unit, err)
	}
	if err := c.Client.Set(ctx, RedisKey(unit, kind), data, 0).Err(); err != nil {
		return fmt.Errorf("writing %s for %s: %w", kind, unit, err)
	}
	return nil
}
