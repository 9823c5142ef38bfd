package authcore

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/bazario-labs/authcore/internal"
	"github.com/bazario-labs/authcore/password"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const minPasswordLength = 6

// CredentialService owns registration, login, and password recovery.
// Registration is two-phase: no account row exists until the email
// challenge is verified, so an abandoned signup leaves only TTL state
// behind.
type CredentialService struct {
	config    Config
	users     UserStore
	challenge *ChallengeManager
	issuer    *TokenIssuer
	hasher    *password.Hasher
	metrics   *Metrics
	audit     *auditDispatcher
}

// Register starts a registration: it validates the submitted profile,
// refuses emails that already have an account, and issues a challenge.
// No account state is written; the client must hold the profile and
// resubmit it with the code to [CredentialService.FinalizeRegistration].
func (s *CredentialService) Register(ctx context.Context, input RegistrationInput) error {
	if s == nil || s.users == nil {
		return ErrNotReady
	}
	input.Email = internal.NormalizeEmail(input.Email)
	if err := validateRegistration(input); err != nil {
		return err
	}

	_, err := s.users.FindByEmail(ctx, input.Email)
	switch {
	case err == nil:
		return ErrAccountExists
	case !errors.Is(err, ErrUserNotFound):
		return fmt.Errorf("lookup account: %w", err)
	}

	if err := s.challenge.Request(ctx, input.Email, PurposeRegistration, input.Role); err != nil {
		return err
	}

	s.emit(ctx, newAuditEvent(ctx, auditEventRegisterRequest, input.Email, true, nil, map[string]string{
		"role": string(input.Role),
	}))
	return nil
}

// FinalizeRegistration completes a registration: it consumes the live
// challenge and only then creates the account and mints a session. A
// wrong or expired code leaves no account behind.
func (s *CredentialService) FinalizeRegistration(ctx context.Context, input FinalizeInput) (*UserRecord, *SessionTokens, error) {
	if s == nil || s.users == nil {
		return nil, nil, ErrNotReady
	}
	input.Email = internal.NormalizeEmail(input.Email)
	if err := validateRegistration(RegistrationInput{
		Role:     input.Role,
		Name:     input.Name,
		Email:    input.Email,
		Password: input.Password,
		Phone:    input.Phone,
		Country:  input.Country,
	}); err != nil {
		return nil, nil, err
	}

	if err := s.challenge.Verify(ctx, input.Email, input.OTP); err != nil {
		return nil, nil, err
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, nil, fmt.Errorf("hash password: %w", err)
	}

	record, err := s.users.Create(ctx, CreateUserInput{
		Role:         input.Role,
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: hash,
		Phone:        input.Phone,
		Country:      input.Country,
	})
	if err != nil {
		return nil, nil, err
	}

	tokens, err := s.issuer.Issue(record.ID, record.Role)
	if err != nil {
		return nil, nil, err
	}

	s.metrics.Inc(MetricRegisterSuccess)
	s.emit(ctx, newAuditEvent(ctx, auditEventRegisterComplete, record.Email, true, nil, map[string]string{
		"role":    string(record.Role),
		"user_id": record.ID,
	}))
	return record, tokens, nil
}

// Login checks email and password for the given role and mints a session
// pair. Unknown email, role mismatch, and wrong password all collapse to
// [ErrInvalidCredentials]; the caller learns nothing about which failed.
func (s *CredentialService) Login(ctx context.Context, email, plainPassword string, role Role) (*UserRecord, *SessionTokens, error) {
	if s == nil || s.users == nil {
		return nil, nil, ErrNotReady
	}
	email = internal.NormalizeEmail(email)
	if email == "" || plainPassword == "" {
		return nil, nil, ValidationError("email and password are required")
	}
	if !role.valid() {
		return nil, nil, ValidationError("unknown role")
	}

	record, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, nil, s.loginFailure(ctx, email, "unknown email")
		}
		return nil, nil, fmt.Errorf("lookup account: %w", err)
	}
	if record.Role != role {
		return nil, nil, s.loginFailure(ctx, email, "role mismatch")
	}

	match, err := s.hasher.Verify(plainPassword, record.PasswordHash)
	if err != nil {
		return nil, nil, fmt.Errorf("verify password: %w", err)
	}
	if !match {
		return nil, nil, s.loginFailure(ctx, email, "wrong password")
	}

	tokens, err := s.issuer.Issue(record.ID, record.Role)
	if err != nil {
		return nil, nil, err
	}

	s.metrics.Inc(MetricLoginSuccess)
	s.emit(ctx, newAuditEvent(ctx, auditEventLoginSuccess, email, true, nil, map[string]string{
		"role": string(record.Role),
	}))
	return record, tokens, nil
}

// InitiateForgotPassword starts password recovery for an existing
// account of the given role. Unlike login, a missing account is reported
// as [ErrUserNotFound]: recovery deliberately confirms existence so the
// user learns they typed the wrong address instead of waiting for a mail
// that never comes.
func (s *CredentialService) InitiateForgotPassword(ctx context.Context, email string, role Role) error {
	if s == nil || s.users == nil {
		return ErrNotReady
	}
	email = internal.NormalizeEmail(email)
	if email == "" {
		return ValidationError("email is required")
	}
	if !role.valid() {
		return ValidationError("unknown role")
	}

	record, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return fmt.Errorf("%w: %s not found", ErrUserNotFound, role)
		}
		return fmt.Errorf("lookup account: %w", err)
	}
	if record.Role != role {
		return fmt.Errorf("%w: %s not found", ErrUserNotFound, role)
	}

	return s.challenge.Request(ctx, email, PurposePasswordReset, role)
}

// VerifyPasswordResetOTP consumes the recovery challenge. The client
// calls this before showing the new-password form; the subsequent
// [CredentialService.ResetPassword] call does not re-check the code.
func (s *CredentialService) VerifyPasswordResetOTP(ctx context.Context, email, code string) error {
	if s == nil {
		return ErrNotReady
	}
	return s.challenge.Verify(ctx, email, code)
}

// ResetPassword replaces the stored hash for email. The new password
// must differ from the current one; reuse is rejected with
// [ErrPasswordReuse] before any write happens.
func (s *CredentialService) ResetPassword(ctx context.Context, email, newPassword string, role Role) error {
	if s == nil || s.users == nil {
		return ErrNotReady
	}
	email = internal.NormalizeEmail(email)
	if email == "" {
		return ValidationError("email is required")
	}
	if len(newPassword) < minPasswordLength {
		return ValidationError("password must be at least %d characters", minPasswordLength)
	}
	if !role.valid() {
		return ValidationError("unknown role")
	}

	record, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return fmt.Errorf("%w: %s not found", ErrUserNotFound, role)
		}
		return fmt.Errorf("lookup account: %w", err)
	}
	if record.Role != role {
		return fmt.Errorf("%w: %s not found", ErrUserNotFound, role)
	}

	same, err := s.hasher.Verify(newPassword, record.PasswordHash)
	if err != nil {
		return fmt.Errorf("verify password: %w", err)
	}
	if same {
		return ErrPasswordReuse
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePasswordHash(ctx, email, hash); err != nil {
		return err
	}

	s.metrics.Inc(MetricPasswordResetSuccess)
	s.emit(ctx, newAuditEvent(ctx, auditEventPasswordReset, email, true, nil, map[string]string{
		"role": string(role),
	}))
	return nil
}

func (s *CredentialService) loginFailure(ctx context.Context, email, reason string) error {
	s.metrics.Inc(MetricLoginFailure)
	s.emit(ctx, newAuditEvent(ctx, auditEventLoginFailure, email, false, ErrInvalidCredentials, map[string]string{
		"reason": reason,
	}))
	return ErrInvalidCredentials
}

func (s *CredentialService) emit(ctx context.Context, event AuditEvent) {
	if s.audit == nil {
		return
	}
	s.audit.Emit(ctx, event)
}

func validateRegistration(input RegistrationInput) error {
	if !input.Role.valid() {
		return ValidationError("unknown role")
	}
	if input.Name == "" {
		return ValidationError("name is required")
	}
	if !emailPattern.MatchString(input.Email) {
		return ValidationError("invalid email address")
	}
	if len(input.Password) < minPasswordLength {
		return ValidationError("password must be at least %d characters", minPasswordLength)
	}
	if input.Role == RoleSeller {
		if input.Phone == "" || input.Country == "" {
			return ValidationError("phone and country are required for sellers")
		}
	}
	return nil
}
