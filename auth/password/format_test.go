package password

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		hash string
		want Format
	}{
		{"bcrypt 2b", "$2b$12$abcdefghijklmnopqrstuv", FormatModern},
		{"bcrypt 2a", "$2a$10$xyzxyzxyzxyzxyzxyzxyz", FormatModern},
		{"bcrypt marker only", "$2a$", FormatModern},
		{"bcrypt marker with junk", "$2b$not-a-real-hash$$$", FormatModern},
		{"legacy", "salt123$deadbeef", FormatLegacy},
		{"legacy short", "abc$def", FormatLegacy},
		{"plaintext", "plaintext", FormatUnknown},
		{"empty", "", FormatUnknown},
		{"empty digest", "just$", FormatUnknown},
		{"empty salt", "$invalid", FormatUnknown},
		{"two separators", "$invalid$", FormatUnknown},
		{"three parts", "a$b$c", FormatUnknown},
		{"bcrypt 2y is not accepted", "$2y$10$abcdefghijklmnopqrstuv", FormatUnknown},
		{"separator only", "$", FormatUnknown},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.hash); got != tc.want {
				t.Errorf("Classify(%q) = %s, want %s", tc.hash, got, tc.want)
			}
		})
	}
}

func TestClassify_ModernPrefixWins(t *testing.T) {
	// Trailing content that would otherwise look legacy must not matter.
	for _, suffix := range []string{"", "x", "salt$digest", "$$$$", "\x00"} {
		for _, p := range modernPrefixes {
			if got := Classify(p + suffix); got != FormatModern {
				t.Errorf("Classify(%q) = %s, want modern", p+suffix, got)
			}
		}
	}
}

func TestClassify_Total(t *testing.T) {
	inputs := []string{"", "$", "$$", "a", "a$", "$a", "a$b", "a$b$", "$2a", "$2a$", "$2c$1$x", "\xff$\xfe"}
	for _, in := range inputs {
		switch Classify(in) {
		case FormatModern, FormatLegacy, FormatUnknown:
		default:
			t.Errorf("Classify(%q) returned an out-of-range format", in)
		}
	}
}

func TestFormat_String(t *testing.T) {
	if FormatModern.String() != "modern" || FormatLegacy.String() != "legacy" || FormatUnknown.String() != "unknown" {
		t.Error("unexpected format names")
	}
	if Format(42).String() != "unknown" {
		t.Error("out-of-range format should print as unknown")
	}
}

func TestRequiresMigration(t *testing.T) {
	modern, err := NewBcryptHasher(WithCost(4)).Hash("password123")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	tests := []struct {
		name string
		hash string
		want bool
	}{
		{"modern", modern, false},
		{"legacy", EncodeLegacy("testsalt", "password123"), true},
		{"plaintext", "plaintext", true},
		{"empty", "", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := RequiresMigration(tc.hash); got != tc.want {
				t.Errorf("RequiresMigration = %v, want %v", got, tc.want)
			}
		})
	}
}
