package audit

import "context"

// StoredHash is one account's stored credential as seen by the audit.
type StoredHash struct {
	AccountID string
	Email     string
	Hash      string
}

// HashSource enumerates stored credentials and flags accounts for reset.
type HashSource interface {
	// ScanHashes calls fn for every account with a stored password, stopping
	// at the first error fn returns. The auditor never writes through the
	// source while a scan is in progress.
	ScanHashes(ctx context.Context, fn func(StoredHash) error) error

	// FlagForUpdate marks an account as required to reset its password.
	FlagForUpdate(ctx context.Context, accountID string) error
}
