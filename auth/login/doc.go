// Package login authenticates accounts by email and password on top of
// auth/password, and performs the opportunistic legacy-to-modern upgrade
// after a successful legacy match.
//
// Every failed attempt returns errors.InvalidCredentials, whether the account
// is unknown, the password is wrong, or the stored hash is unusable. The
// reason is only visible in logs and metrics.
//
// Bcrypt work is bounded by a weighted semaphore sized by
// Config.MaxConcurrentVerifications; callers waiting longer than
// Config.AcquireTimeout get SERVICE_UNAVAILABLE. Per-client rate limiting is
// expected upstream.
//
// RequestReset and ResetPassword implement the forgot-password flow: a
// random token is handed to the caller for delivery, only its SHA-256 digest
// is stored, and it can be consumed once before Config.ResetTokenTTL runs out.
package login
