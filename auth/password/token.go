package password

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

// ResetTokenBytes is the entropy of a password reset token.
const ResetTokenBytes = 32

var errTokenLength = errors.New("token length must be positive")

// GenerateToken creates a cryptographically secure random token of the
// specified byte length, returned as a hex-encoded string.
func GenerateToken(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("password: generate token: %w", errTokenLength)
	}
	b := make([]byte, length)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", fmt.Errorf("password: generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// HashSHA256 returns the SHA-256 hex digest of the input string. Reset
// tokens are stored as this digest, never in the clear.
func HashSHA256(input string) string {
	h := sha256.Sum256([]byte(input))
	return hex.EncodeToString(h[:])
}
