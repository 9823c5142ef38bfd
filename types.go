package authcore

import (
	"context"
	"time"
)

// Role is the account role carried inside session tokens. The core knows
// only the two marketplace roles; authorization beyond that is the
// caller's concern.
type Role string

const (
	// RoleUser is an exported constant or variable used by the authentication core.
	RoleUser Role = "user"
	// RoleSeller is an exported constant or variable used by the authentication core.
	RoleSeller Role = "seller"
)

func (r Role) valid() bool {
	return r == RoleUser || r == RoleSeller
}

// UserRecord is the persistent account record returned by [UserStore].
type UserRecord struct {
	ID           string
	Role         Role
	Name         string
	Email        string
	PasswordHash string
	Phone        string
	Country      string
	CreatedAt    time.Time
}

// CreateUserInput is the input for [UserStore.Create].
type CreateUserInput struct {
	Role         Role
	Name         string
	Email        string
	PasswordHash string
	Phone        string
	Country      string
}

// UserStore is the persistent-user collaborator contract. Implementations
// must return [ErrUserNotFound] from FindByEmail when no record exists
// and [ErrAccountExists] from Create on a duplicate email.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*UserRecord, error)
	Create(ctx context.Context, input CreateUserInput) (*UserRecord, error)
	UpdatePasswordHash(ctx context.Context, email, hash string) error
}

// MailSender delivers OTP codes. Dispatch is fire-and-forget from the
// core's perspective: issuance has already committed its TTL state when
// the send happens, so a send failure degrades to a logged warning.
type MailSender interface {
	SendOTP(ctx context.Context, to, subject, code string) error
}

// ChallengePurpose selects the mail template for an issuance.
type ChallengePurpose string

const (
	// PurposeRegistration is an exported constant or variable used by the authentication core.
	PurposeRegistration ChallengePurpose = "registration"
	// PurposePasswordReset is an exported constant or variable used by the authentication core.
	PurposePasswordReset ChallengePurpose = "password_reset"
)

// RegistrationInput is the input for [CredentialService.Register].
// Phone and Country are required for sellers only.
type RegistrationInput struct {
	Role     Role
	Name     string
	Email    string
	Password string
	Phone    string
	Country  string
}

// FinalizeInput is the input for [CredentialService.FinalizeRegistration].
type FinalizeInput struct {
	Role     Role
	Name     string
	Email    string
	Password string
	OTP      string
	Phone    string
	Country  string
}

// SessionTokens is the access/refresh pair minted by [TokenIssuer].
// The two tokens are always issued together; no session ever exists
// with only one of them valid at issuance time.
type SessionTokens struct {
	Access     string
	Refresh    string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}
