package store

import (
	"context"
	"testing"
	"time"

	"github.com/erazemk/cautela/internal/db"
	"github.com/erazemk/cautela/internal/model"
)

func TestRevokeToken(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	revoked, err := IsTokenRevoked(ctx, database, "session-a")
	if err != nil {
		t.Fatalf("IsTokenRevoked: %v", err)
	}
	if revoked {
		t.Error("expected fresh session not to be revoked")
	}

	if err := RevokeToken(ctx, database, "session-a", model.UnitSede, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("RevokeToken: %v", err)
	}
	// Revoking twice is harmless.
	if err := RevokeToken(ctx, database, "session-a", model.UnitSede, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("second RevokeToken: %v", err)
	}

	if revoked, _ := IsTokenRevoked(ctx, database, "session-a"); !revoked {
		t.Error("expected session-a to be revoked")
	}
	if revoked, _ := IsTokenRevoked(ctx, database, "session-b"); revoked {
		t.Error("expected session-b not to be revoked")
	}
}

func TestRevokeTokenPrunesExpired(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	if err := RevokeToken(ctx, database, "old", model.UnitPemad, time.Now().Add(-time.Hour)); err != nil {
		t.Fatal(err)
	}
	if err := RevokeToken(ctx, database, "new", model.UnitPemad, time.Now().Add(time.Hour)); err != nil {
		t.Fatal(err)
	}

	if revoked, _ := IsTokenRevoked(ctx, database, "old"); revoked {
		t.Error("expected expired revocation to be pruned")
	}
	if revoked, _ := IsTokenRevoked(ctx, database, "new"); !revoked {
		t.Error("expected live revocation to be kept")
	}
}

func TestPruneRevokedTokens(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	now := time.Now()

	for i, jti := range []string{"a", "b", "c"} {
		// Bypass RevokeToken so nothing is pruned on insert.
		_, err := database.ExecContext(ctx,
			`INSERT INTO revoked_tokens (jti, unit, expires_at) VALUES (?, 'SEDE', ?)`,
			jti, now.Add(time.Duration(i-1)*time.Hour).Unix())
		if err != nil {
			t.Fatal(err)
		}
	}

	n, err := PruneRevokedTokens(ctx, database, now)
	if err != nil {
		t.Fatalf("PruneRevokedTokens: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 pruned revocation, got %d", n)
	}
}
