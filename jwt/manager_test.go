package jwt

import (
	"errors"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

func testManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(Config{
		AccessSecret:  []byte("access-secret"),
		RefreshSecret: []byte("refresh-secret"),
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
		Issuer:        "bazario",
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	return m
}

func TestNewManagerRejectsSharedSecret(t *testing.T) {
	_, err := NewManager(Config{
		AccessSecret:  []byte("same"),
		RefreshSecret: []byte("same"),
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
	})
	if err == nil {
		t.Fatal("expected error for shared secret")
	}
}

func TestAccessRoundTrip(t *testing.T) {
	m := testManager(t)

	token, err := m.CreateAccess("user-1", "user")
	if err != nil {
		t.Fatalf("CreateAccess failed: %v", err)
	}

	claims, err := m.ParseAccess(token)
	if err != nil {
		t.Fatalf("ParseAccess failed: %v", err)
	}
	if claims.ID != "user-1" || claims.Role != "user" {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if claims.Issuer != "bazario" {
		t.Fatalf("issuer = %q", claims.Issuer)
	}
}

// Tokens must not validate across secret domains: an access token is
// worthless at the refresh endpoint and vice versa.
func TestSecretsAreDistinct(t *testing.T) {
	m := testManager(t)

	access, err := m.CreateAccess("user-1", "user")
	if err != nil {
		t.Fatalf("CreateAccess failed: %v", err)
	}
	refresh, err := m.CreateRefresh("user-1", "user")
	if err != nil {
		t.Fatalf("CreateRefresh failed: %v", err)
	}

	if _, err := m.ParseRefresh(access); err == nil {
		t.Fatal("access token accepted as refresh token")
	}
	if _, err := m.ParseAccess(refresh); err == nil {
		t.Fatal("refresh token accepted as access token")
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	m, err := NewManager(Config{
		AccessSecret:  []byte("access-secret"),
		RefreshSecret: []byte("refresh-secret"),
		AccessTTL:     time.Millisecond,
		RefreshTTL:    time.Hour,
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	token, err := m.CreateAccess("user-1", "user")
	if err != nil {
		t.Fatalf("CreateAccess failed: %v", err)
	}

	time.Sleep(20 * time.Millisecond)

	_, err = m.ParseAccess(token)
	if !errors.Is(err, jwtlib.ErrTokenExpired) {
		t.Fatalf("expected expiry error, got %v", err)
	}
}

func TestTamperedTokenRejected(t *testing.T) {
	m := testManager(t)

	token, err := m.CreateAccess("user-1", "user")
	if err != nil {
		t.Fatalf("CreateAccess failed: %v", err)
	}

	tampered := token[:len(token)-2] + "xx"
	if _, err := m.ParseAccess(tampered); err == nil {
		t.Fatal("tampered token accepted")
	}
}
