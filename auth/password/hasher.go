package password

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt work factor used for every new credential.
const DefaultCost = 12

// maxBcryptInput is the number of bytes bcrypt actually reads.
const maxBcryptInput = 72

// Hasher produces and checks modern credential hashes.
type Hasher interface {
	// Hash returns a new modern hash of plaintext with a fresh random salt.
	Hash(plaintext string) (string, error)

	// Verify reports whether plaintext matches hash. Malformed hashes
	// report false.
	Verify(plaintext, hash string) bool
}

// BcryptHasher implements Hasher using bcrypt. It is immutable and safe for
// concurrent use.
type BcryptHasher struct {
	cost int
}

// BcryptOption configures the bcrypt hasher.
type BcryptOption func(*BcryptHasher)

// WithCost sets the bcrypt cost parameter (default: 12, range: 4-31).
// Out-of-range values are ignored.
func WithCost(cost int) BcryptOption {
	return func(h *BcryptHasher) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			h.cost = cost
		}
	}
}

// NewBcryptHasher creates a bcrypt-based password hasher.
func NewBcryptHasher(opts ...BcryptOption) *BcryptHasher {
	h := &BcryptHasher{cost: DefaultCost}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Cost returns the configured work factor.
func (h *BcryptHasher) Cost() int { return h.cost }

// Hash rejects inputs bcrypt would truncate rather than storing a hash that
// silently ignores the tail of the password.
func (h *BcryptHasher) Hash(plaintext string) (string, error) {
	if plaintext == "" {
		return "", ErrEmptyPassword
	}
	if len(plaintext) > maxBcryptInput {
		return "", ErrPasswordTooLong
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("password: hash: %w", err)
	}
	return string(hash), nil
}

// Verify refuses plaintexts Hash would have rejected. bcrypt ignores bytes
// past the 72nd, so without the bound a longer input sharing that prefix
// would match.
func (h *BcryptHasher) Verify(plaintext, hash string) bool {
	if plaintext == "" || len(plaintext) > maxBcryptInput {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

// wellFormedModern reports whether bcrypt can parse the header of hash.
func wellFormedModern(hash string) bool {
	_, err := bcrypt.Cost([]byte(hash))
	return err == nil
}
