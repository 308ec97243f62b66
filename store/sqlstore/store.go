package sqlstore

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/kbukum/linkvault/audit"
	"github.com/kbukum/linkvault/auth/login"
	"github.com/kbukum/linkvault/logger"
)

const (
	queryFindByEmail = `SELECT id, email, password, requires_password_update
		FROM users WHERE LOWER(email) = ?`
	queryReplaceHash = `UPDATE users SET password = ?, requires_password_update = FALSE
		WHERE id = ? AND password = ?`
	querySetHash = `UPDATE users SET password = ?, requires_password_update = FALSE
		WHERE id = ?`
	queryScanHashes = `SELECT id, email, password FROM users
		WHERE password IS NOT NULL ORDER BY id`
	queryFlag         = `UPDATE users SET requires_password_update = TRUE WHERE id = ?`
	querySetReset     = `UPDATE users SET reset_token = ?, reset_token_expires = ? WHERE id = ?`
	queryConsumeReset = `UPDATE users SET reset_token = NULL, reset_token_expires = NULL
		WHERE reset_token = ? AND reset_token_expires > ? RETURNING id`
)

// Store implements login.AccountStore and audit.HashSource.
type Store struct {
	db     *sql.DB
	driver string
	log    *logger.Logger

	mu     sync.Mutex
	closed bool
}

var (
	_ login.AccountStore = (*Store)(nil)
	_ audit.HashSource   = (*Store)(nil)
)

// New wraps an open *sql.DB. driver selects the placeholder style.
func New(db *sql.DB, driver string, log *logger.Logger) *Store {
	if log == nil {
		log = logger.WithComponent("sqlstore")
	}
	return &Store{db: db, driver: driver, log: log}
}

// Open connects with retry logic and connection pooling.
// The context allows cancellation of connection attempts during retries.
func Open(ctx context.Context, cfg Config, log *logger.Logger) (*Store, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.WithComponent("sqlstore")
	}

	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	if lifetime, parseErr := time.ParseDuration(cfg.ConnMaxLifetime); parseErr == nil {
		db.SetConnMaxLifetime(lifetime)
	}

	for attempt := 1; attempt <= cfg.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			_ = db.Close()
			return nil, fmt.Errorf("database connection canceled: %w", ctx.Err())
		}

		err = db.PingContext(ctx)
		if err == nil {
			log.Info("Database connection established", logger.Fields(
				"driver", cfg.Driver,
				"attempt", attempt,
			))
			return New(db, cfg.Driver, log), nil
		}
		if !IsConnectionError(err) {
			break
		}

		if attempt < cfg.MaxRetries {
			backoff := time.Duration(attempt) * time.Second
			log.Warn("Database connection attempt failed, retrying", logger.Fields(
				"attempt", attempt,
				"error", err.Error(),
				"backoff", backoff.String(),
			))
			if waitErr := contextSleep(ctx, backoff); waitErr != nil {
				_ = db.Close()
				return nil, fmt.Errorf("database connection canceled during retry: %w", waitErr)
			}
		}
	}

	_ = db.Close()
	return nil, fmt.Errorf("failed to connect to database: %w", err)
}

// contextSleep waits for the given duration or until context is canceled.
func contextSleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// DB returns the underlying connection pool.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the underlying connection pool. Safe to call multiple times.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// FindByEmail returns login.ErrAccountNotFound when no row matches. Accounts
// without a local password come back with an empty PasswordHash.
func (s *Store) FindByEmail(ctx context.Context, email string) (*login.Account, error) {
	var (
		acct    login.Account
		hash    sql.NullString
		flagged sql.NullBool
	)
	err := s.db.QueryRowContext(ctx, s.rebind(queryFindByEmail), strings.ToLower(email)).
		Scan(&acct.ID, &acct.Email, &hash, &flagged)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, login.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find account: %w", err)
	}
	acct.PasswordHash = hash.String
	acct.RequiresPasswordUpdate = flagged.Bool
	return &acct, nil
}

// ReplacePasswordHash swaps oldHash for newHash only if the row still holds
// oldHash.
func (s *Store) ReplacePasswordHash(ctx context.Context, id, oldHash, newHash string) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.rebind(queryReplaceHash), newHash, id, oldHash)
	if err != nil {
		return false, fmt.Errorf("replace password hash: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("replace password hash: %w", err)
	}
	return n == 1, nil
}

// SetPasswordHash stores hash and clears the update flag.
func (s *Store) SetPasswordHash(ctx context.Context, id, hash string) error {
	return s.updateOne(ctx, "set password hash", querySetHash, hash, id)
}

// FlagForUpdate marks the account as required to reset its password.
func (s *Store) FlagForUpdate(ctx context.Context, id string) error {
	return s.updateOne(ctx, "flag for update", queryFlag, id)
}

// ScanHashes streams every stored password hash to fn in id order.
func (s *Store) ScanHashes(ctx context.Context, fn func(audit.StoredHash) error) error {
	rows, err := s.db.QueryContext(ctx, s.rebind(queryScanHashes))
	if err != nil {
		return fmt.Errorf("scan hashes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var h audit.StoredHash
		if err := rows.Scan(&h.AccountID, &h.Email, &h.Hash); err != nil {
			return fmt.Errorf("scan hashes: %w", err)
		}
		if err := fn(h); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("scan hashes: %w", err)
	}
	return nil
}

// SetResetToken stores the digest of a reset token and its expiry.
func (s *Store) SetResetToken(ctx context.Context, id, tokenHash string, expires time.Time) error {
	return s.updateOne(ctx, "set reset token", querySetReset, tokenHash, expires.UTC(), id)
}

// ConsumeResetToken clears an unexpired token and returns its account id.
// The clearing UPDATE is the lookup, so two concurrent calls with the same
// token cannot both succeed.
func (s *Store) ConsumeResetToken(ctx context.Context, tokenHash string, now time.Time) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, s.rebind(queryConsumeReset), tokenHash, now.UTC()).Scan(&id)
	if stderrors.Is(err, sql.ErrNoRows) {
		return "", login.ErrInvalidResetToken
	}
	if err != nil {
		return "", fmt.Errorf("consume reset token: %w", err)
	}
	return id, nil
}

// EnsureFlagColumn adds requires_password_update to users when missing.
func (s *Store) EnsureFlagColumn(ctx context.Context) error {
	return s.ensureColumn(ctx, "requires_password_update", "BOOLEAN DEFAULT FALSE")
}

// EnsureResetColumns adds reset_token and reset_token_expires to users when
// missing.
func (s *Store) EnsureResetColumns(ctx context.Context) error {
	if err := s.ensureColumn(ctx, "reset_token", "TEXT"); err != nil {
		return err
	}
	expiresType := "TIMESTAMP"
	if s.driver == DriverPostgres {
		expiresType = "TIMESTAMPTZ"
	}
	return s.ensureColumn(ctx, "reset_token_expires", expiresType)
}

// ensureColumn adds column to users unless it exists. name and ddl are
// constants from this package, never user input.
func (s *Store) ensureColumn(ctx context.Context, name, ddl string) error {
	if s.driver == DriverPostgres {
		if _, err := s.db.ExecContext(ctx,
			"ALTER TABLE users ADD COLUMN IF NOT EXISTS "+name+" "+ddl); err != nil {
			return fmt.Errorf("ensure column %s: %w", name, err)
		}
		return nil
	}

	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pragma_table_info('users') WHERE name = ?`, name).Scan(&n)
	if err != nil {
		return fmt.Errorf("ensure column %s: %w", name, err)
	}
	if n > 0 {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, "ALTER TABLE users ADD COLUMN "+name+" "+ddl); err != nil {
		return fmt.Errorf("ensure column %s: %w", name, err)
	}
	s.log.Info("added column to users", logger.Fields("column", name))
	return nil
}

func (s *Store) updateOne(ctx context.Context, op, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, s.rebind(query), args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return login.ErrAccountNotFound
	}
	return nil
}

func (s *Store) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	return Rebind(query)
}

// Rebind rewrites '?' placeholders as PostgreSQL's $1, $2, ...
func Rebind(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}
