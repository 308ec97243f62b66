package password

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

// fastHasher keeps the property tests quick; cost 12 is covered separately.
func fastHasher() *BcryptHasher {
	return NewBcryptHasher(WithCost(bcrypt.MinCost))
}

var samplePasswords = []string{
	"a",
	"password123",
	"newTestPassword123!",
	"spaces in the middle ",
	"zażółć gęślą jaźń",
	"$2a$looks-like-a-hash",
	"salt$digest",
	strings.Repeat("x", 72),
}

func TestBcryptHasher_RoundTrip(t *testing.T) {
	h := fastHasher()
	for _, p := range samplePasswords {
		hash, err := h.Hash(p)
		if err != nil {
			t.Fatalf("Hash(%q): %v", p, err)
		}
		if !h.Verify(p, hash) {
			t.Errorf("Verify(%q, Hash(%q)) = false", p, p)
		}
		if Classify(hash) != FormatModern {
			t.Errorf("hash of %q classified as %s", p, Classify(hash))
		}
	}
}

func TestBcryptHasher_FreshSaltPerCall(t *testing.T) {
	h := fastHasher()
	for _, p := range samplePasswords {
		first, err := h.Hash(p)
		if err != nil {
			t.Fatalf("Hash: %v", err)
		}
		second, err := h.Hash(p)
		if err != nil {
			t.Fatalf("Hash: %v", err)
		}
		if first == second {
			t.Errorf("two hashes of %q are identical", p)
		}
		if !h.Verify(p, first) || !h.Verify(p, second) {
			t.Errorf("both hashes of %q should verify", p)
		}
	}
}

func TestBcryptHasher_RejectsOtherPasswords(t *testing.T) {
	h := fastHasher()
	for i, p1 := range samplePasswords {
		hash, err := h.Hash(p1)
		if err != nil {
			t.Fatalf("Hash: %v", err)
		}
		for j, p2 := range samplePasswords {
			if i == j {
				continue
			}
			if h.Verify(p2, hash) {
				t.Errorf("Verify(%q, Hash(%q)) = true", p2, p1)
			}
		}
	}
}

func TestBcryptHasher_HashErrors(t *testing.T) {
	h := fastHasher()
	if _, err := h.Hash(""); !errors.Is(err, ErrEmptyPassword) {
		t.Errorf("expected ErrEmptyPassword, got %v", err)
	}
	if _, err := h.Hash(strings.Repeat("x", 73)); !errors.Is(err, ErrPasswordTooLong) {
		t.Errorf("expected ErrPasswordTooLong, got %v", err)
	}
}

func TestBcryptHasher_VerifyMalformed(t *testing.T) {
	h := fastHasher()
	for _, hash := range []string{"", "$2a$", "$2b$12$short", "$2a$99$abcdefghijklmnopqrstuvabcdefghijklmnopqrstuvwxyzABCD", "plaintext", "salt$digest"} {
		if h.Verify("password", hash) {
			t.Errorf("Verify against %q should be false", hash)
		}
	}
}

func TestBcryptHasher_VerifyLengthBoundary(t *testing.T) {
	h := fastHasher()
	exact := strings.Repeat("a", 72)
	hash, err := h.Hash(exact)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	tests := []struct {
		name  string
		plain string
		want  bool
	}{
		{"exactly 72 bytes", exact, true},
		{"73 bytes sharing the prefix", exact + "x", false},
		{"much longer input sharing the prefix", exact + strings.Repeat("b", 100), false},
		{"71 bytes", exact[:71], false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := h.Verify(tc.plain, hash); got != tc.want {
				t.Errorf("Verify(%d bytes) = %v, want %v", len(tc.plain), got, tc.want)
			}
		})
	}
}

func TestWithCost(t *testing.T) {
	if got := NewBcryptHasher(WithCost(10)).Cost(); got != 10 {
		t.Errorf("expected cost 10, got %d", got)
	}
	if got := NewBcryptHasher(WithCost(2)).Cost(); got != DefaultCost {
		t.Errorf("out-of-range cost should keep default, got %d", got)
	}
	if got := NewBcryptHasher(WithCost(40)).Cost(); got != DefaultCost {
		t.Errorf("out-of-range cost should keep default, got %d", got)
	}
}

func TestHash_DefaultCost(t *testing.T) {
	if testing.Short() {
		t.Skip("cost-12 hashing skipped in short mode")
	}
	hash, err := Hash("securityTest123!")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if !strings.HasPrefix(hash, "$2a$12$") {
		t.Errorf("expected a cost-12 bcrypt hash, got prefix %q", hash[:7])
	}
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil || cost != 12 {
		t.Errorf("expected cost 12, got %d (%v)", cost, err)
	}
	if !Verify("securityTest123!", hash) {
		t.Error("Verify should accept the default hash")
	}
	if Verify("securityTest124!", hash) {
		t.Error("Verify should reject a different password")
	}
}
