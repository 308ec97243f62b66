package password

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"
)

func legacyFixture(salt, plaintext string) string {
	sum := sha256.Sum256([]byte(salt + plaintext))
	return salt + "$" + hex.EncodeToString(sum[:])
}

func TestEncodeLegacy_MatchesReferenceDigest(t *testing.T) {
	got := EncodeLegacy("testsalt123", "legacyPassword456!")
	want := legacyFixture("testsalt123", "legacyPassword456!")
	if got != want {
		t.Errorf("EncodeLegacy = %q, want %q", got, want)
	}
	if Classify(got) != FormatLegacy {
		t.Errorf("encoded hash classified as %s", Classify(got))
	}
}

func TestVerifyLegacy(t *testing.T) {
	hash := legacyFixture("testsalt123", "legacyPassword456!")

	tests := []struct {
		name      string
		plaintext string
		hash      string
		want      bool
	}{
		{"correct password", "legacyPassword456!", hash, true},
		{"wrong password", "wrongPassword", hash, false},
		{"empty password", "", hash, false},
		{"empty hash", "legacyPassword456!", "", false},
		{"no separator", "legacyPassword456!", "deadbeef", false},
		{"empty digest", "legacyPassword456!", "testsalt123$", false},
		{"empty salt", "legacyPassword456!", "$deadbeef", false},
		{"extra separator", "legacyPassword456!", hash + "$", false},
		{"uppercase digest is a different digest", "legacyPassword456!", "testsalt123$" + upper(hash[len("testsalt123$"):]), false},
		{"truncated digest", "legacyPassword456!", hash[:len(hash)-1], false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := VerifyLegacy(tc.plaintext, tc.hash); got != tc.want {
				t.Errorf("VerifyLegacy = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestVerifyLegacy_SaltIsPrepended(t *testing.T) {
	// sha256(password+salt) must not verify.
	sum := sha256.Sum256([]byte("secret" + "salt"))
	reversed := "salt$" + hex.EncodeToString(sum[:])
	if VerifyLegacy("secret", reversed) {
		t.Error("digest of password+salt should not verify")
	}
}

func TestVerifyLegacy_TimingBound(t *testing.T) {
	if testing.Short() {
		t.Skip("timing test skipped in short mode")
	}
	hash := legacyFixture("uniformsalt", "timingTest123!")
	const trials = 200

	var minD, maxD time.Duration
	for i := 0; i < trials; i++ {
		start := time.Now()
		VerifyLegacy("wrongpassword!", hash)
		d := time.Since(start)
		if i == 0 || d < minD {
			minD = d
		}
		if d > maxD {
			maxD = d
		}
	}
	// Jitter from the scheduler and GC is expected; only a gross spread fails.
	if spread := maxD - minD; spread > 50*time.Millisecond {
		t.Errorf("duration spread %v exceeds 50ms", spread)
	}
}

func upper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'f' {
			b[i] = c - 32
		}
	}
	return string(b)
}
