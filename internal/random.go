package internal

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// NewOTP returns a cryptographically random numeric code of the given
// length. Leading zeros are legal, so each digit is drawn independently.
func NewOTP(digits int) (string, error) {
	if digits < 4 || digits > 10 {
		return "", errors.New("invalid otp digits")
	}

	var b strings.Builder
	b.Grow(digits)

	max := big.NewInt(10)
	for i := 0; i < digits; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}

	otp := b.String()
	if len(otp) != digits {
		return "", fmt.Errorf("invalid otp generation length")
	}
	return otp, nil
}

// IsNumericString reports whether s consists solely of ASCII digits.
func IsNumericString(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// NormalizeEmail canonicalizes an email for use as a store key namespace.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
