package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

// GetJWTSecret retrieves the JWT secret from the database.
// If no secret exists, it generates one, stores it, and returns it.
// Uses INSERT OR IGNORE + re-SELECT to avoid TOCTOU race on concurrent startup.
func GetJWTSecret(ctx context.Context, db *sql.DB) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating jwt secret: %w", err)
	}

	_, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO settings (key, value) VALUES ('jwt_secret', ?)`,
		hex.EncodeToString(buf),
	)
	if err != nil {
		return "", fmt.Errorf("storing jwt_secret: %w", err)
	}

	var secret string
	err = db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = 'jwt_secret'`,
	).Scan(&secret)
	if err != nil {
		return "", fmt.Errorf("querying jwt_secret: %w", err)
	}

	return secret, nil
}

// EnsureAdminPIN creates the admin PIN guarding endpoint configuration if none
// exists. The generated PIN is returned only when it was created by this call;
// otherwise pin is empty.
func EnsureAdminPIN(ctx context.Context, db *sql.DB) (pin string, err error) {
	var existing string
	err = db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = 'admin_pin_hash'`,
	).Scan(&existing)
	if err == nil {
		return "", nil
	}
	if err != sql.ErrNoRows {
		return "", fmt.Errorf("querying admin pin: %w", err)
	}

	pin, err = generatePIN(6)
	if err != nil {
		return "", fmt.Errorf("generating admin pin: %w", err)
	}
	if err := SetAdminPIN(ctx, db, pin); err != nil {
		return "", err
	}
	return pin, nil
}

// SetAdminPIN replaces the admin PIN.
func SetAdminPIN(ctx context.Context, db *sql.DB, pin string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing admin pin: %w", err)
	}
	_, err = db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES ('admin_pin_hash', ?)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
		string(hash),
	)
	if err != nil {
		return fmt.Errorf("storing admin pin: %w", err)
	}
	return nil
}

// VerifyAdminPIN reports whether pin matches the stored admin PIN. A missing
// PIN never matches.
func VerifyAdminPIN(ctx context.Context, db *sql.DB, pin string) (bool, error) {
	var hash string
	err := db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = 'admin_pin_hash'`,
	).Scan(&hash)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("querying admin pin: %w", err)
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin)) == nil, nil
}

func generatePIN(length int) (string, error) {
	result := make([]byte, length)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		result[i] = byte('0' + n.Int64())
	}
	return string(result), nil
}
