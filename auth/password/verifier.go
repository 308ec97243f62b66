package password

// Result describes one hybrid verification.
type Result struct {
	// Matched is true only when the plaintext matched the stored hash.
	Matched bool
	// Format is the classification of the stored hash.
	Format Format
	// Failure is FailureNone when Matched, otherwise the reason.
	Failure Failure
}

// NeedsUpgrade reports whether the stored hash should be replaced by a
// modern one now that the plaintext has been proven correct.
func (r Result) NeedsUpgrade() bool {
	return r.Matched && r.Format == FormatLegacy
}

// Verifier checks plaintexts against stored hashes of either format.
// It is immutable and safe for concurrent use.
type Verifier struct {
	modern Hasher
}

// NewVerifier returns a Verifier that delegates modern hashes to h.
// A nil h uses a bcrypt hasher at DefaultCost.
func NewVerifier(h Hasher) *Verifier {
	if h == nil {
		h = NewBcryptHasher()
	}
	return &Verifier{modern: h}
}

// Check classifies stored once and runs exactly one verifier against it.
// Unknown formats fail closed.
func (v *Verifier) Check(plaintext, stored string) Result {
	if plaintext == "" || stored == "" {
		return Result{Format: Classify(stored), Failure: FailureMalformedInput}
	}

	format := Classify(stored)
	var matched bool
	switch format {
	case FormatLegacy:
		matched = VerifyLegacy(plaintext, stored)
	case FormatModern:
		matched = v.modern.Verify(plaintext, stored)
	default:
		return Result{Format: format, Failure: FailureUnrecognizedFormat}
	}

	if matched {
		return Result{Matched: true, Format: format}
	}
	failure := FailureMismatch
	if format == FormatModern && !wellFormedModern(stored) {
		failure = FailurePrimitive
	}
	return Result{Format: format, Failure: failure}
}

// VerifyHybrid reports whether plaintext matches stored, whatever its format.
// Route handlers call this (or Check) and never inspect the format themselves.
func (v *Verifier) VerifyHybrid(plaintext, stored string) bool {
	return v.Check(plaintext, stored).Matched
}

// Upgrade returns a modern hash of plaintext when res came from a successful
// legacy match. ok is false when no upgrade applies. The caller persists the
// new hash; this package never writes.
func (v *Verifier) Upgrade(plaintext string, res Result) (hash string, ok bool, err error) {
	if !res.NeedsUpgrade() {
		return "", false, nil
	}
	hash, err = v.modern.Hash(plaintext)
	if err != nil {
		return "", false, err
	}
	return hash, true, nil
}

// Hasher returns the modern hasher used for new credentials.
func (v *Verifier) Hasher() Hasher { return v.modern }

var defaultVerifier = NewVerifier(nil)

// Hash produces a modern hash at DefaultCost.
func Hash(plaintext string) (string, error) {
	return defaultVerifier.modern.Hash(plaintext)
}

// Verify checks plaintext against a modern hash.
func Verify(plaintext, hash string) bool {
	return defaultVerifier.modern.Verify(plaintext, hash)
}

// VerifyHybrid checks plaintext against a stored hash of either format using
// the default bcrypt hasher.
func VerifyHybrid(plaintext, stored string) bool {
	return defaultVerifier.VerifyHybrid(plaintext, stored)
}
