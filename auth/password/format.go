package password

import "strings"

// Format is the shape of a stored credential hash.
type Format int

const (
	// FormatUnknown is anything that is neither modern nor legacy.
	FormatUnknown Format = iota
	// FormatLegacy is "<salt>$<hexDigest>".
	FormatLegacy
	// FormatModern is a bcrypt modular-crypt string.
	FormatModern
)

// modernPrefixes are the bcrypt minor versions accepted as modern.
var modernPrefixes = [...]string{"$2a$", "$2b$"}

const separator = "$"

func (f Format) String() string {
	switch f {
	case FormatModern:
		return "modern"
	case FormatLegacy:
		return "legacy"
	default:
		return "unknown"
	}
}

// Classify reports the shape of hash. It only inspects public structure and
// never does cryptographic work. The modern prefix check runs first, so a
// bcrypt string is never mistaken for a legacy one.
func Classify(hash string) Format {
	for _, p := range modernPrefixes {
		if strings.HasPrefix(hash, p) {
			return FormatModern
		}
	}
	if _, _, ok := splitLegacy(hash); ok {
		return FormatLegacy
	}
	return FormatUnknown
}

// RequiresMigration reports whether hash is not yet in the modern format.
// Unknown hashes count as requiring migration so they surface in audits.
func RequiresMigration(hash string) bool {
	return Classify(hash) != FormatModern
}

// splitLegacy splits "<salt>$<digest>". More than one separator, or an empty
// half, is rejected.
func splitLegacy(hash string) (salt, digest string, ok bool) {
	if strings.Count(hash, separator) != 1 {
		return "", "", false
	}
	salt, digest, _ = strings.Cut(hash, separator)
	if salt == "" || digest == "" {
		return "", "", false
	}
	return salt, digest, true
}
