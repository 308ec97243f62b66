package sqlstore

import (
	stderrors "errors"
	"strings"

	"github.com/lib/pq"
)

// IsConnectionError checks if a database error is a connection error
// that might be resolved by retrying.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())
	patterns := []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"i/o timeout",
		"no route to host",
		"network is unreachable",
		"driver: bad connection",
		"the database system is starting up",
	}
	for _, p := range patterns {
		if strings.Contains(errStr, p) {
			return true
		}
	}
	return false
}

// IsUndefinedColumn reports whether err is PostgreSQL's undefined_column
// error, raised against schemas that predate requires_password_update.
func IsUndefinedColumn(err error) bool {
	var pqErr *pq.Error
	if stderrors.As(err, &pqErr) {
		return pqErr.Code == "42703"
	}
	return err != nil && strings.Contains(err.Error(), "no such column")
}
