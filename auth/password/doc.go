// Package password hashes and verifies account credentials.
//
// Stored credential hashes come in two shapes:
//
//   - modern: bcrypt modular-crypt strings ("$2a$12$..." or "$2b$12$...")
//   - legacy: "<salt>$<hex(sha256(salt+password))>" written by the previous
//     version of the application
//
// Classify maps any string to exactly one Format. VerifyHybrid dispatches on
// that classification and always answers with a plain bool, so callers never
// branch on the stored format themselves. Nothing in this package performs
// I/O, logs, or returns an error for adversarial input.
//
// Usage:
//
//	v := password.NewVerifier(password.NewBcryptHasher())
//	res := v.Check(plaintext, stored)
//	if !res.Matched {
//		return errInvalidCredentials
//	}
//	if fresh, ok, err := v.Upgrade(plaintext, res); err == nil && ok {
//		// persist fresh in place of stored
//	}
package password
