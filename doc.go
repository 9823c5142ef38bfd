// Package authcore implements the authentication core of the Bazario
// marketplace: one-time-passcode (OTP) issuance and verification over a
// shared Redis TTL store, the two-phase registration and password-reset
// flows built on top of it, and a stateless JWT access/refresh session
// pair.
//
// The package is storage-agnostic about users: callers supply a
// [UserStore] implementation (see the userstore subpackage for the
// Postgres one) and a [MailSender] for OTP delivery. Redis is the one
// hard dependency; every rate-limit and lockout transition is performed
// as a single atomic store operation so concurrent request handlers
// cannot race past the thresholds.
//
// Sessions carry no server-side state. A compromised refresh token
// therefore remains valid until its natural expiry; there is no
// revocation list.
package authcore
