package password

import "crypto/subtle"

// VerifyLegacy checks plaintext against a "<salt>$<hexDigest>" hash where
// hexDigest = hex(sha256(salt + plaintext)). A hash of any other shape
// returns false. The digest comparison runs in constant time.
func VerifyLegacy(plaintext, hash string) bool {
	salt, expected, ok := splitLegacy(hash)
	if !ok {
		return false
	}
	computed := legacyDigest(salt, plaintext)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(expected)) == 1
}

// EncodeLegacy builds a legacy-format hash. New credentials must never be
// stored this way; it exists for fixtures and for importing old dumps.
func EncodeLegacy(salt, plaintext string) string {
	return salt + separator + legacyDigest(salt, plaintext)
}

func legacyDigest(salt, plaintext string) string {
	return HashSHA256(salt + plaintext)
}
