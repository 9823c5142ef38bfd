package authcore

import (
	"context"
	"fmt"

	"github.com/bazario-labs/authcore/jwt"
)

// TokenIssuer mints the stateless access/refresh pair and rotates it.
// There is no server-side revocation; a token is valid until its embedded
// expiry, and logout is purely cookie deletion at the transport layer.
type TokenIssuer struct {
	config  Config
	manager *jwt.Manager
	metrics *Metrics
	audit   *auditDispatcher
}

// Issue mints a fresh access/refresh pair for the subject. Both tokens
// carry the same {id, role} claims; only secret and lifetime differ.
func (t *TokenIssuer) Issue(userID string, role Role) (*SessionTokens, error) {
	if t == nil || t.manager == nil {
		return nil, ErrNotReady
	}
	if userID == "" || !role.valid() {
		return nil, ValidationError("user id and role are required")
	}

	access, err := t.manager.CreateAccess(userID, string(role))
	if err != nil {
		return nil, fmt.Errorf("mint access token: %w", err)
	}
	refresh, err := t.manager.CreateRefresh(userID, string(role))
	if err != nil {
		return nil, fmt.Errorf("mint refresh token: %w", err)
	}

	return &SessionTokens{
		Access:     access,
		Refresh:    refresh,
		AccessTTL:  t.manager.AccessTTL(),
		RefreshTTL: t.manager.RefreshTTL(),
	}, nil
}

// Refresh validates refreshToken against the refresh secret and, on
// success, mints a complete new pair. Every failure collapses to
// [ErrRefreshInvalid]; callers get no oracle for why a token was
// rejected.
func (t *TokenIssuer) Refresh(ctx context.Context, refreshToken string) (*SessionTokens, error) {
	if t == nil || t.manager == nil {
		return nil, ErrNotReady
	}
	if refreshToken == "" {
		t.reject(ctx, "", "empty token")
		return nil, ErrRefreshInvalid
	}

	claims, err := t.manager.ParseRefresh(refreshToken)
	if err != nil {
		t.reject(ctx, "", err.Error())
		return nil, ErrRefreshInvalid
	}

	role := Role(claims.Role)
	if !role.valid() {
		t.reject(ctx, claims.ID, "unknown role claim")
		return nil, ErrRefreshInvalid
	}

	tokens, err := t.Issue(claims.ID, role)
	if err != nil {
		return nil, err
	}

	t.metrics.Inc(MetricRefreshSuccess)
	if t.audit != nil {
		t.audit.Emit(ctx, newAuditEvent(ctx, auditEventRefreshSuccess, "", true, nil, map[string]string{
			"user_id": claims.ID,
		}))
	}

	return tokens, nil
}

// ParseAccess validates an access token and returns its subject claims.
// The httpapi layer uses this for authenticated routes.
func (t *TokenIssuer) ParseAccess(accessToken string) (*jwt.SessionClaims, error) {
	if t == nil || t.manager == nil {
		return nil, ErrNotReady
	}
	return t.manager.ParseAccess(accessToken)
}

func (t *TokenIssuer) reject(ctx context.Context, userID, reason string) {
	t.metrics.Inc(MetricRefreshFailure)
	if t.audit == nil {
		return
	}
	meta := map[string]string{"reason": reason}
	if userID != "" {
		meta["user_id"] = userID
	}
	t.audit.Emit(ctx, newAuditEvent(ctx, auditEventRefreshFailure, "", false, ErrRefreshInvalid, meta))
}
