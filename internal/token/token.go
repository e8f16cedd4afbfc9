// Package token issues and verifies the HS256 JWTs that authenticate API
// requests. The subject claim carries the user's Google account email.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
)

var (
	// ErrInvalidToken covers malformed tokens, bad signatures, and wrong
	// signing methods.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is returned by Verify for structurally valid but
	// expired tokens.
	ErrExpiredToken = errors.New("token expired")
)

// Manager signs and validates access tokens.
type Manager struct {
	secret []byte
	ttl    time.Duration
	clock  clockwork.Clock
}

func NewManager(secret string, ttl time.Duration, clock clockwork.Clock) *Manager {
	return &Manager{
		secret: []byte(secret),
		ttl:    ttl,
		clock:  clock,
	}
}

// TTL returns the configured token lifetime.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Issue mints a signed token for the given user email.
func (m *Manager) Issue(userEmail string) (string, error) {
	now := m.clock.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userEmail,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify validates signature and expiry, returning the subject email.
func (m *Manager) Verify(tokenString string) (string, error) {
	claims, err := m.parse(tokenString)
	if err != nil {
		return "", err
	}

	if claims.ExpiresAt == nil || !claims.ExpiresAt.After(m.clock.Now()) {
		return "", ErrExpiredToken
	}
	return claims.Subject, nil
}

// SubjectIgnoringExpiry validates the signature only and returns the subject.
// Used exclusively by the refresh endpoint, which must accept expired tokens.
func (m *Manager) SubjectIgnoringExpiry(tokenString string) (string, error) {
	claims, err := m.parse(tokenString)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// parse checks the signature and signing method only. Expiry is validated
// by Verify against the injected clock, so fake clocks work in tests.
func (m *Manager) parse(tokenString string) (*jwt.RegisteredClaims, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: no subject claim", ErrInvalidToken)
	}
	return &claims, nil
}
