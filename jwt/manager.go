// Package jwt mints and validates the stateless session token pair.
// Access and refresh tokens are HS256-signed with distinct secrets so a
// leaked access secret cannot forge refresh tokens. Validity is purely
// signature plus embedded expiry; there is no server-side session state.
package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Config carries the signing material and lifetimes for both tokens.
type Config struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	Leeway        time.Duration
}

// SessionClaims is the claim set shared by access and refresh tokens:
// the subject id and its role, nothing more.
type SessionClaims struct {
	ID   string `json:"id"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Manager creates and parses the session token pair.
type Manager struct {
	config Config
}

// NewManager validates cfg and returns a [Manager].
func NewManager(cfg Config) (*Manager, error) {
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if len(cfg.AccessSecret) == 0 || len(cfg.RefreshSecret) == 0 {
		return nil, errors.New("hs256 requires both secrets")
	}
	if string(cfg.AccessSecret) == string(cfg.RefreshSecret) {
		return nil, errors.New("access and refresh secrets must differ")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}

	return &Manager{config: cfg}, nil
}

// AccessTTL returns the configured access token lifetime.
func (m *Manager) AccessTTL() time.Duration { return m.config.AccessTTL }

// RefreshTTL returns the configured refresh token lifetime.
func (m *Manager) RefreshTTL() time.Duration { return m.config.RefreshTTL }

// CreateAccess mints an access token for the subject.
func (m *Manager) CreateAccess(id, role string) (string, error) {
	return m.create(id, role, m.config.AccessSecret, m.config.AccessTTL)
}

// CreateRefresh mints a refresh token for the subject.
func (m *Manager) CreateRefresh(id, role string) (string, error) {
	return m.create(id, role, m.config.RefreshSecret, m.config.RefreshTTL)
}

// ParseAccess validates signature and expiry of an access token.
func (m *Manager) ParseAccess(tokenStr string) (*SessionClaims, error) {
	return m.parse(tokenStr, m.config.AccessSecret)
}

// ParseRefresh validates signature and expiry of a refresh token.
func (m *Manager) ParseRefresh(tokenStr string) (*SessionClaims, error) {
	return m.parse(tokenStr, m.config.RefreshSecret)
}

func (m *Manager) create(id, role string, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()

	claims := SessionClaims{
		ID:   id,
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.config.Issuer,
			Subject:   id,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func (m *Manager) parse(tokenStr string, secret []byte) (*SessionClaims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, &SessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.ID == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}

	return claims, nil
}
