// Package token mints and verifies the bearer tokens issued at login.
//
// Tokens are HS256 JWTs with the user ID as the subject claim. Verification
// enforces issuer, audience, expiry, and not-before with a small clock-skew
// leeway.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/gatherhall/events-api/internal/domain"
)

var ErrInvalidToken = errors.New("invalid token")

// Config describes how tokens are signed and validated.
type Config struct {
	Secret   []byte
	Issuer   string
	Audience string
	TTL      time.Duration
	// ClockSkew is the leeway applied to time-based claims.
	ClockSkew time.Duration

	// Now overrides the time source for tests; nil means time.Now.
	Now func() time.Time
}

// Manager issues and verifies tokens for one signing key.
type Manager struct {
	cfg Config
}

func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.Secret) == 0 {
		return nil, fmt.Errorf("token secret is required")
	}
	if cfg.Issuer == "" || cfg.Audience == "" {
		return nil, fmt.Errorf("token issuer and audience are required")
	}
	if cfg.TTL <= 0 {
		return nil, fmt.Errorf("token ttl must be positive")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Manager{cfg: cfg}, nil
}

// Mint signs a token for the given user.
func (m *Manager) Mint(userID domain.UserID) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("empty user id")
	}
	now := m.cfg.Now().UTC()
	claims := jwt.RegisteredClaims{
		Issuer:    m.cfg.Issuer,
		Audience:  jwt.ClaimStrings{m.cfg.Audience},
		Subject:   string(userID),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.cfg.TTL)),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(m.cfg.Secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify validates a bearer token and returns the authenticated user ID.
// All failures map to ErrInvalidToken; the caller treats them uniformly as
// an unauthorized request.
func (m *Manager) Verify(raw string) (domain.UserID, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.cfg.Issuer),
		jwt.WithAudience(m.cfg.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(m.cfg.ClockSkew),
		jwt.WithTimeFunc(func() time.Time { return m.cfg.Now().UTC() }),
	)

	var claims jwt.RegisteredClaims
	if _, err := parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return m.cfg.Secret, nil
	}); err != nil {
		return "", ErrInvalidToken
	}
	if claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return domain.UserID(claims.Subject), nil
}
