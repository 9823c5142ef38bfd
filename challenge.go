package authcore

import (
	"context"
	"errors"
	"log"

	"github.com/bazario-labs/authcore/internal"
)

// ChallengeManager owns OTP issuance and verification for one identity
// namespace. It is safe for concurrent use; every check-then-act
// transition happens inside a single atomic store operation.
type ChallengeManager struct {
	config  Config
	store   *challengeStore
	mail    MailSender
	metrics *Metrics
	audit   *auditDispatcher
}

// Request issues a fresh 4-digit challenge for email after the lock
// checks pass, in priority order: account lock, spam lock, cooldown. Any
// active one short-circuits issuance as a [LockedError].
//
// The code is dispatched via mail after the store state is committed.
// Dispatch is fire-and-forget with a bounded timeout; a send failure is
// logged and audited but never fails the issuance.
func (m *ChallengeManager) Request(ctx context.Context, email string, purpose ChallengePurpose, role Role) error {
	if m == nil || m.store == nil {
		return ErrNotReady
	}
	email = internal.NormalizeEmail(email)
	if email == "" {
		return ValidationError("email is required")
	}

	code, err := internal.NewOTP(m.config.Challenge.OTPDigits)
	if err != nil {
		return err
	}

	sctx, cancel := context.WithTimeout(ctx, m.config.Challenge.StoreTimeout)
	defer cancel()

	count, err := m.store.Issue(sctx, email, code)
	if err != nil {
		var locked *LockedError
		if errors.As(err, &locked) {
			m.countLock(locked.Kind)
			m.emit(ctx, newAuditEvent(ctx, auditEventOTPRequestBlocked, email, false, err, map[string]string{
				"lock_kind":   string(locked.Kind),
				"retry_after": locked.RetryAfter.String(),
			}))
		}
		return err
	}

	m.metrics.Inc(MetricOTPRequested)
	m.emit(ctx, newAuditEvent(ctx, auditEventOTPRequest, email, true, nil, map[string]string{
		"purpose": string(purpose),
	}))

	if count >= int64(m.config.Challenge.MaxPerWindow) {
		m.metrics.Inc(MetricOTPSpamLocked)
	}

	// Issuance already committed; a slow or failing mail backend must
	// not hold the caller or roll anything back.
	go m.dispatch(email, mailSubject(purpose, role), code)

	return nil
}

// Verify checks submittedCode against the live challenge for email. A
// match purges both the challenge and the failed-attempt counter, so a
// replay of the same code fails [ErrChallengeNotFound].
func (m *ChallengeManager) Verify(ctx context.Context, email, submittedCode string) error {
	if m == nil || m.store == nil {
		return ErrNotReady
	}
	email = internal.NormalizeEmail(email)
	if email == "" || !internal.IsNumericString(submittedCode) {
		return ValidationError("email and numeric otp are required")
	}

	sctx, cancel := context.WithTimeout(ctx, m.config.Challenge.StoreTimeout)
	defer cancel()

	err := m.store.Verify(sctx, email, submittedCode)
	switch {
	case err == nil:
		m.metrics.Inc(MetricOTPVerifySuccess)
		m.emit(ctx, newAuditEvent(ctx, auditEventOTPVerifySuccess, email, true, nil, nil))
		return nil
	case errors.Is(err, ErrAccountLocked):
		m.metrics.Inc(MetricOTPAccountLocked)
		m.emit(ctx, newAuditEvent(ctx, auditEventOTPAccountLocked, email, false, err, nil))
		return err
	default:
		m.metrics.Inc(MetricOTPVerifyFailure)
		m.emit(ctx, newAuditEvent(ctx, auditEventOTPVerifyFailure, email, false, err, nil))
		return err
	}
}

func (m *ChallengeManager) dispatch(email, subject, code string) {
	if m.mail == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), m.config.Mail.DispatchTimeout)
	defer cancel()

	if err := m.mail.SendOTP(ctx, email, subject, code); err != nil {
		log.Print("authcore: otp mail dispatch failed")
		m.metrics.Inc(MetricMailDispatchFailure)
		m.emit(ctx, newAuditEvent(ctx, auditEventMailDispatchFailed, email, false, err, nil))
	}
}

func (m *ChallengeManager) countLock(kind LockKind) {
	switch kind {
	case LockCooldown:
		m.metrics.Inc(MetricOTPCooldownHit)
	case LockSpam:
		m.metrics.Inc(MetricOTPSpamLocked)
	case LockAccount:
		m.metrics.Inc(MetricOTPAccountLocked)
	}
}

func (m *ChallengeManager) emit(ctx context.Context, event AuditEvent) {
	if m.audit == nil {
		return
	}
	m.audit.Emit(ctx, event)
}

func mailSubject(purpose ChallengePurpose, role Role) string {
	if purpose == PurposePasswordReset {
		if role == RoleSeller {
			return "Reset your Bazario seller password"
		}
		return "Reset your Bazario password"
	}
	return "Verify your Bazario account"
}
