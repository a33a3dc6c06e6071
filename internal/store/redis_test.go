package store

import (
	"context"
	"os"
	"testing"

	"github.com/erazemk/cautela/internal/model"
)

func TestRedisKey(t *testing.T) {
	if got := RedisKey(model.UnitPemad, KindMovements); got != "cautela:PEMAD:movements" {
		t.Errorf("unexpected key %q", got)
	}
}

// TestRedisCache runs against a real server when CAUTELA_TEST_REDIS is set.
func TestRedisCache(t *testing.T) {
	addr := os.Getenv("CAUTELA_TEST_REDIS")
	if addr == "" {
		t.Skip("CAUTELA_TEST_REDIS not set")
	}
	ctx := context.Background()
	cache, err := NewRedisCache(ctx, addr)
	if err != nil {
		t.Fatalf("NewRedisCache: %v", err)
	}
	defer cache.Close()

	unit := model.UnitID("TEST")
	t.Cleanup(func() {
		cache.Client.Del(ctx, RedisKey(unit, KindMovements), RedisKey(unit, KindOperator))
	})

	if err := cache.SaveMovements(ctx, unit, []model.Movement{sampleMovement("r1")}); err != nil {
		t.Fatalf("SaveMovements: %v", err)
	}
	got, ok := cache.LoadMovements(ctx, unit)
	if !ok || len(got) != 1 || got[0].ID != "r1" {
		t.Errorf("unexpected movements %+v (ok=%v)", got, ok)
	}

	op := model.NewPerson("Sd", "Pedro ALVES", "4444444")
	if err := cache.SaveOperator(ctx, unit, op); err != nil {
		t.Fatal(err)
	}
	if err := cache.ClearOperator(ctx, unit); err != nil {
		t.Fatal(err)
	}
	if _, ok := cache.LoadOperator(ctx, unit); ok {
		t.Error("expected operator cleared")
	}
}
