package authcore

import (
	"errors"
	"time"
)

// Config defines the tuning surface of the authentication core.
//
// Config instances are intended to be populated during initialization and
// then treated as immutable.
type Config struct {
	KeyPrefix string

	Challenge ChallengeConfig
	JWT       JWTConfig
	Cookie    CookieConfig
	Password  PasswordConfig
	Mail      MailConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

/*
====================================
CHALLENGE CONFIG
====================================
*/

// ChallengeConfig tunes the OTP issuance and verification state machine.
type ChallengeConfig struct {
	// OTPDigits is the code length. The marketplace issues 4-digit codes.
	OTPDigits int
	// ChallengeTTL bounds the life of an issued code.
	ChallengeTTL time.Duration
	// Cooldown is the minimum spacing between issuances per email.
	Cooldown time.Duration
	// RequestWindow is the counting window for the spam threshold.
	RequestWindow time.Duration
	// MaxPerWindow is the accepted-issuance count that arms the spam lock.
	MaxPerWindow int
	// SpamLock is how long the spam lock holds once armed.
	SpamLock time.Duration
	// AttemptTTL bounds the failed-verification counter. It matches
	// ChallengeTTL so the counter cannot outlive the code it guards.
	AttemptTTL time.Duration
	// AccountLock is how long verification lockout holds.
	AccountLock time.Duration
	// StoreTimeout bounds every Redis round trip.
	StoreTimeout time.Duration
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig carries the signing material for the session token pair.
// Access and refresh tokens are signed with distinct secrets.
type JWTConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
}

/*
====================================
COOKIE CONFIG
====================================
*/

// CookieConfig describes how the httpapi layer delivers the token pair.
// Production toggles Secure and switches SameSite from Lax to None.
type CookieConfig struct {
	AccessName  string
	RefreshName string
	Path        string
	Domain      string
	Production  bool
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig tunes the adaptive password hash.
type PasswordConfig struct {
	BcryptCost int
}

// MailConfig tunes OTP delivery.
type MailConfig struct {
	// DispatchTimeout bounds the fire-and-forget send so a slow mail
	// backend cannot hold resources after the store write committed.
	DispatchTimeout time.Duration
}

// AuditConfig tunes the audit event dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	// DropIfFull sheds events instead of blocking emitters.
	DropIfFull bool
}

// MetricsConfig toggles the in-process counters.
type MetricsConfig struct {
	Enabled bool
}

// DefaultConfig returns the marketplace defaults. Secrets are left
// empty and must be filled in before Build.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		KeyPrefix: "ac",
		Challenge: ChallengeConfig{
			OTPDigits:     4,
			ChallengeTTL:  5 * time.Minute,
			Cooldown:      60 * time.Second,
			RequestWindow: time.Hour,
			MaxPerWindow:  2,
			SpamLock:      time.Hour,
			AttemptTTL:    5 * time.Minute,
			AccountLock:   30 * time.Minute,
			StoreTimeout:  3 * time.Second,
		},
		JWT: JWTConfig{
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 7 * 24 * time.Hour,
			Issuer:     "bazario",
		},
		Cookie: CookieConfig{
			AccessName:  "access_token",
			RefreshName: "refresh_token",
			Path:        "/",
		},
		Password: PasswordConfig{
			BcryptCost: 10,
		},
		Mail: MailConfig{
			DispatchTimeout: 5 * time.Second,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate checks the configuration for values the core cannot operate
// with. It is called by [Builder.Build]; direct constructors should call
// it too.
func (c *Config) Validate() error {
	if c.KeyPrefix == "" {
		return errors.New("key prefix must not be empty")
	}
	if c.Challenge.OTPDigits < 4 || c.Challenge.OTPDigits > 10 {
		return errors.New("otp digits must be between 4 and 10")
	}
	if c.Challenge.ChallengeTTL <= 0 || c.Challenge.Cooldown <= 0 {
		return errors.New("challenge ttl and cooldown must be positive")
	}
	if c.Challenge.RequestWindow <= 0 || c.Challenge.MaxPerWindow <= 0 {
		return errors.New("request window configuration invalid")
	}
	if c.Challenge.SpamLock <= 0 || c.Challenge.AccountLock <= 0 {
		return errors.New("lock durations must be positive")
	}
	if c.Challenge.AttemptTTL <= 0 {
		return errors.New("attempt ttl must be positive")
	}
	if c.Challenge.StoreTimeout <= 0 {
		return errors.New("store timeout must be positive")
	}
	if len(c.JWT.AccessSecret) == 0 || len(c.JWT.RefreshSecret) == 0 {
		return errors.New("jwt secrets must be set")
	}
	if string(c.JWT.AccessSecret) == string(c.JWT.RefreshSecret) {
		return errors.New("access and refresh secrets must differ")
	}
	if c.JWT.AccessTTL <= 0 || c.JWT.RefreshTTL <= 0 {
		return errors.New("jwt ttls must be positive")
	}
	if c.Cookie.AccessName == "" || c.Cookie.RefreshName == "" {
		return errors.New("cookie names must not be empty")
	}
	if c.Password.BcryptCost < 4 || c.Password.BcryptCost > 31 {
		return errors.New("bcrypt cost out of range")
	}
	if c.Mail.DispatchTimeout <= 0 {
		return errors.New("mail dispatch timeout must be positive")
	}
	return nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.AccessSecret = append([]byte(nil), cfg.JWT.AccessSecret...)
	out.JWT.RefreshSecret = append([]byte(nil), cfg.JWT.RefreshSecret...)
	return out
}
