// Package auth issues the session tokens handed to an operator on login.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/erazemk/cautela/internal/model"
)

// Claims identify the operator on duty and the unit they are working in.
type Claims struct {
	Unit    model.UnitID `json:"unit"`
	BM      string       `json:"bm"`
	Name    string       `json:"name"`
	WarName string       `json:"war_name"`
	Rank    string       `json:"rank"`
	jwt.RegisteredClaims
}

// TokenExpiry covers one duty shift with margin.
const TokenExpiry = 26 * time.Hour

// ErrInvalidToken is returned for any token that fails validation.
var ErrInvalidToken = errors.New("invalid token")

// Operator returns the identity carried by the claims.
func (c *Claims) Operator() model.Person {
	return model.Person{BM: c.BM, Name: c.Name, WarName: c.WarName, Rank: c.Rank}
}

// GenerateToken signs a token for operator in unit, with a random JTI so it
// can be revoked on logout.
func GenerateToken(secret string, unit model.UnitID, operator model.Person) (string, error) {
	now := time.Now()
	claims := Claims{
		Unit:    unit,
		BM:      operator.BM,
		Name:    operator.Name,
		WarName: operator.WarName,
		Rank:    operator.Rank,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   operator.BM,
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and validates a token, returning its claims.
func ValidateToken(secret, tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Unit == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
