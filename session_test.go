package authcore

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestIssueMintsPair(t *testing.T) {
	core, _, _ := newTestCore(t)

	tokens, err := core.Tokens.Issue("user-1", RoleUser)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if tokens.Access == "" || tokens.Refresh == "" {
		t.Fatal("empty token in pair")
	}
	if tokens.AccessTTL != 15*time.Minute {
		t.Fatalf("access ttl = %s", tokens.AccessTTL)
	}
	if tokens.RefreshTTL != 7*24*time.Hour {
		t.Fatalf("refresh ttl = %s", tokens.RefreshTTL)
	}

	claims, err := core.Tokens.ParseAccess(tokens.Access)
	if err != nil {
		t.Fatalf("ParseAccess failed: %v", err)
	}
	if claims.ID != "user-1" || claims.Role != string(RoleUser) {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestIssueValidatesInput(t *testing.T) {
	core, _, _ := newTestCore(t)

	if _, err := core.Tokens.Issue("", RoleUser); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("empty id: got %v", err)
	}
	if _, err := core.Tokens.Issue("user-1", Role("admin")); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("bad role: got %v", err)
	}
}

func TestRefreshRotatesPair(t *testing.T) {
	core, _, _ := newTestCore(t)
	ctx := context.Background()

	first, err := core.Tokens.Issue("user-1", RoleSeller)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	second, err := core.Tokens.Refresh(ctx, first.Refresh)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if second.Access == "" || second.Refresh == "" {
		t.Fatal("rotation returned empty token")
	}

	claims, err := core.Tokens.ParseAccess(second.Access)
	if err != nil {
		t.Fatalf("ParseAccess on rotated token failed: %v", err)
	}
	if claims.ID != "user-1" || claims.Role != string(RoleSeller) {
		t.Fatalf("rotation dropped claims: %+v", claims)
	}
}

func TestRefreshRejectsBadTokens(t *testing.T) {
	core, _, _ := newTestCore(t)
	ctx := context.Background()

	tokens, err := core.Tokens.Issue("user-1", RoleUser)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	cases := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not.a.jwt"},
		{"access token in refresh slot", tokens.Access},
	}
	for _, tc := range cases {
		if _, err := core.Tokens.Refresh(ctx, tc.token); !errors.Is(err, ErrRefreshInvalid) {
			t.Fatalf("%s: expected ErrRefreshInvalid, got %v", tc.name, err)
		}
	}
}
