// Package password wraps the adaptive password hash used for stored
// credentials.
package password

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// Hasher hashes and verifies passwords with bcrypt.
type Hasher struct {
	cost int
}

// NewHasher returns a [Hasher] with the given cost, defaulting to
// bcrypt.DefaultCost when cost is out of range.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

// Hash derives a salted hash of plain.
func (h *Hasher) Hash(plain string) (string, error) {
	if plain == "" {
		return "", errors.New("empty password")
	}
	out, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Verify reports whether plain matches hash. Backend errors other than
// a mismatch are returned so callers can distinguish corrupt hashes.
func (h *Hasher) Verify(plain, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, err
}
