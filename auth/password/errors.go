package password

import "errors"

// Errors returned by hashing and configuration. Verification never returns
// an error; see Failure for the verification taxonomy.
var (
	// ErrEmptyPassword is returned by Hash for an empty plaintext.
	ErrEmptyPassword = errors.New("password: empty password")

	// ErrPasswordTooLong is returned by Hash when the plaintext exceeds the
	// 72-byte bcrypt input limit.
	ErrPasswordTooLong = errors.New("password: maximum length is 72 bytes (bcrypt limit)")

	// ErrPasswordTooShort is returned by Config.CheckLength.
	ErrPasswordTooShort = errors.New("password: too short")

	// ErrInvalidCost is returned by Config.Validate for a bcrypt cost outside [4, 31].
	ErrInvalidCost = errors.New("password: invalid bcrypt cost")
)

// Failure classifies why a verification did not match. It exists for logs
// and metrics only and must never reach a client response.
type Failure int

const (
	// FailureNone means the credential matched.
	FailureNone Failure = iota
	// FailureMalformedInput means the plaintext or the stored hash was empty.
	FailureMalformedInput
	// FailureUnrecognizedFormat means the stored hash classified as unknown.
	FailureUnrecognizedFormat
	// FailureMismatch means the hash was well formed but the plaintext was wrong.
	FailureMismatch
	// FailurePrimitive means the hash looked modern but bcrypt could not parse it.
	FailurePrimitive
)

func (f Failure) String() string {
	switch f {
	case FailureNone:
		return "none"
	case FailureMalformedInput:
		return "malformed_input"
	case FailureUnrecognizedFormat:
		return "unrecognized_format"
	case FailureMismatch:
		return "mismatch"
	case FailurePrimitive:
		return "primitive_failure"
	default:
		return "unknown"
	}
}
