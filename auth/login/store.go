package login

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrAccountNotFound is returned by an AccountStore when no account matches.
	ErrAccountNotFound = errors.New("login: account not found")

	// ErrInvalidResetToken is returned when a reset token is unknown,
	// already used, or expired.
	ErrInvalidResetToken = errors.New("login: invalid or expired reset token")
)

// Account is the slice of a user record the login flow needs.
type Account struct {
	ID    string
	Email string
	// PasswordHash is the stored credential hash in either format. Empty
	// for accounts that only sign in through an external provider.
	PasswordHash string
	// RequiresPasswordUpdate is set by the migration audit for legacy rows.
	RequiresPasswordUpdate bool
}

// AccountStore reads and writes the stored credential hash.
type AccountStore interface {
	// FindByEmail returns ErrAccountNotFound when no account has email.
	FindByEmail(ctx context.Context, email string) (*Account, error)

	// ReplacePasswordHash atomically swaps oldHash for newHash on one row.
	// It reports false without error when the row no longer holds oldHash.
	ReplacePasswordHash(ctx context.Context, id, oldHash, newHash string) (bool, error)

	// SetPasswordHash unconditionally stores hash and clears
	// RequiresPasswordUpdate. Returns ErrAccountNotFound for an unknown id.
	SetPasswordHash(ctx context.Context, id, hash string) error

	// SetResetToken stores the digest of a reset token and its expiry,
	// replacing any earlier one. Returns ErrAccountNotFound for an unknown id.
	SetResetToken(ctx context.Context, id, tokenHash string, expires time.Time) error

	// ConsumeResetToken clears the token whose digest is tokenHash and
	// returns the owning account id. A token is consumed at most once;
	// unknown or expired tokens return ErrInvalidResetToken.
	ConsumeResetToken(ctx context.Context, tokenHash string, now time.Time) (string, error)
}
