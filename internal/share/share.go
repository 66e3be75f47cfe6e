// Package share issues and verifies signed gallery-share tokens. A token
// grants time-limited read access to a set of matched photos within one
// event, so a guest can hand their results to someone without an account.
package share

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const signingAlg = "HS256"

// ErrInvalidToken covers expired, malformed and wrongly signed tokens.
var ErrInvalidToken = errors.New("invalid share token")

// Claims is the payload of a share token.
type Claims struct {
	EventID  string   `json:"event_id"`
	PhotoIDs []string `json:"photo_ids"`
	jwt.RegisteredClaims
}

// Manager signs and verifies share tokens with a single HMAC secret.
type Manager struct {
	secret []byte
	expiry time.Duration
	now    func() time.Time
}

// NewManager creates a token manager. expiry bounds the lifetime of every
// issued token.
func NewManager(secret string, expiry time.Duration) (*Manager, error) {
	if secret == "" {
		return nil, errors.New("share token secret must not be empty")
	}
	return &Manager{
		secret: []byte(secret),
		expiry: expiry,
		now:    time.Now,
	}, nil
}

// Issue signs a token granting access to the given photos of an event.
func (m *Manager) Issue(eventID string, photoIDs []string) (string, time.Time, error) {
	now := m.now()
	expiresAt := now.Add(m.expiry)

	claims := Claims{
		EventID:  eventID,
		PhotoIDs: photoIDs,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing share token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify parses a token and returns its claims. Expired or tampered tokens
// come back as ErrInvalidToken.
func (m *Manager) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != signingAlg {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return m.now() }))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
