// Package sqlstore reads and writes the credential columns of the users
// table over database/sql.
//
// It is not a user repository: it touches only id, email, password,
// requires_password_update and the reset_token columns, and implements login.AccountStore and
// audit.HashSource. PostgreSQL (lib/pq) and SQLite (go-sqlite3) are
// supported; queries are written with '?' placeholders and rebound for
// PostgreSQL.
//
//	store, err := sqlstore.Open(ctx, cfg, log)
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
package sqlstore
