package login

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"github.com/kbukum/linkvault/auth/password"
	"github.com/kbukum/linkvault/errors"
	"github.com/kbukum/linkvault/logger"
	"github.com/kbukum/linkvault/observability"
	"github.com/kbukum/linkvault/validation"
)

// Credentials is the login request body.
type Credentials struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,max=1024"`
}

type passwordChange struct {
	AccountID string `json:"account_id" validate:"required"`
	Password  string `json:"password" validate:"required"`
}

type resetRequest struct {
	Email string `json:"email" validate:"required,email,max=255"`
}

type resetCompletion struct {
	Token    string `json:"token" validate:"required,hexadecimal,len=64"`
	Password string `json:"password" validate:"required"`
}

// ResetToken is issued by RequestReset. Token is the only copy of the raw
// value; the store keeps its SHA-256 digest.
type ResetToken struct {
	AccountID string
	Email     string
	Token     string
	ExpiresAt time.Time
}

// Outcomes recorded in logs, metrics, and spans.
const (
	OutcomeSuccess     = "success"
	OutcomeFailure     = "failure"
	OutcomeUnavailable = "unavailable"
)

// Upgrade statuses.
const (
	UpgradeDone    = "upgraded"
	UpgradeRaced   = "skipped"
	UpgradeFailure = "failed"
)

// Service authenticates accounts and sets passwords.
type Service struct {
	store          AccountStore
	verifier       *password.Verifier
	policy         password.Config
	slots          *semaphore.Weighted
	acquireTimeout time.Duration
	resetTTL       time.Duration
	dummyHash      string
	now            func() time.Time

	log     *logger.Logger
	metrics *observability.CredentialMetrics
	tracer  trace.Tracer
}

// Option configures a Service.
type Option func(*Service)

// WithVerifier replaces the verifier built from the password config.
func WithVerifier(v *password.Verifier) Option {
	return func(s *Service) { s.verifier = v }
}

// WithLogger sets the logger (default: the global logger).
func WithLogger(l *logger.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithMetrics sets the credential metrics (default: none).
func WithMetrics(m *observability.CredentialMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithTracer sets the tracer (default: the global provider's tracer).
func WithTracer(t trace.Tracer) Option {
	return func(s *Service) { s.tracer = t }
}

// WithClock sets the time source used for reset token expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService builds a Service. It computes one throwaway hash so that
// attempts against unknown accounts cost the same as real ones.
func NewService(store AccountStore, cfg Config, pwCfg password.Config, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("login: store is required")
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	pwCfg.ApplyDefaults()
	if err := pwCfg.Validate(); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	s := &Service{
		store:          store,
		policy:         pwCfg,
		slots:          semaphore.NewWeighted(int64(cfg.MaxConcurrentVerifications)),
		acquireTimeout: cfg.AcquireTimeout,
		resetTTL:       cfg.ResetTokenTTL,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.verifier == nil {
		s.verifier = password.NewVerifier(password.NewHasher(pwCfg))
	}
	if s.log == nil {
		s.log = logger.WithComponent("login")
	}
	if s.tracer == nil {
		s.tracer = observability.Tracer(observability.InstrumentationName)
	}

	dummy, err := newDummyHash(s.verifier.Hasher())
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	s.dummyHash = dummy
	return s, nil
}

// Authenticate checks creds and returns the account on success. The
// returned Account never carries the password hash. A successful match
// against a legacy hash rewrites it in the modern format before returning;
// failure to rewrite is logged and does not fail the login.
func (s *Service) Authenticate(ctx context.Context, creds Credentials) (*Account, error) {
	ctx, span := s.tracer.Start(ctx, observability.SpanAuthenticate)
	defer span.End()

	log := s.log.WithContext(ctx)
	email := normalizeEmail(creds.Email)
	creds.Email = email
	fields := logger.Fields(logger.FieldEmail, logger.Redact(email))

	if err := validation.Validate(creds); err != nil {
		s.finish(ctx, span, password.Result{Failure: password.FailureMalformedInput}, 0)
		log.Warn("login rejected", logger.Fields(logger.FieldOutcome, password.FailureMalformedInput.String()))
		return nil, errors.InvalidCredentials()
	}

	acct, err := s.store.FindByEmail(ctx, email)
	switch {
	case stderrors.Is(err, ErrAccountNotFound):
		acct = nil
	case err != nil:
		span.SetStatus(codes.Error, "account lookup failed")
		log.WithError(err).Error("account lookup failed", fields)
		return nil, errors.DatabaseError(err)
	}

	stored := s.dummyHash
	if acct != nil && acct.PasswordHash != "" {
		stored = acct.PasswordHash
	}

	var (
		res     password.Result
		elapsed time.Duration
		fresh   string
		upgrade bool
		upErr   error
	)
	err = s.withSlot(ctx, func() {
		start := time.Now()
		res = s.verifier.Check(creds.Password, stored)
		elapsed = time.Since(start)
		if !res.Matched && res.Format != password.FormatModern && stored != s.dummyHash {
			// Legacy and unparseable hashes reject quickly; spend one
			// bcrypt comparison so they cost what an unknown account does.
			s.verifier.Hasher().Verify(creds.Password, s.dummyHash)
		}
		if res.Matched && stored != s.dummyHash {
			fresh, upgrade, upErr = s.verifier.Upgrade(creds.Password, res)
		}
	})
	if err != nil {
		span.SetAttributes(attribute.String(observability.AttrOutcome, OutcomeUnavailable))
		log.Warn("no verification slot available", fields)
		return nil, err
	}

	if acct == nil || stored == s.dummyHash {
		// Unknown account or no local password: the dummy check always fails.
		res = password.Result{Format: password.FormatUnknown, Failure: password.FailureMalformedInput}
	}
	s.finish(ctx, span, res, elapsed)
	if !res.Matched {
		log.Warn("login rejected", logger.Fields(
			logger.FieldEmail, logger.Redact(email),
			logger.FieldFormat, res.Format.String(),
			logger.FieldOutcome, res.Failure.String(),
		))
		return nil, errors.InvalidCredentials()
	}

	if res.NeedsUpgrade() {
		s.storeUpgrade(ctx, acct, fresh, upgrade, upErr)
	}

	out := *acct
	out.PasswordHash = ""
	log.Info("login succeeded", logger.Fields(
		logger.FieldAccountID, acct.ID,
		logger.FieldFormat, res.Format.String(),
	))
	return &out, nil
}

// storeUpgrade persists a freshly computed modern hash in place of the
// legacy one. A lost compare-and-swap means another writer got there first.
func (s *Service) storeUpgrade(ctx context.Context, acct *Account, fresh string, ok bool, hashErr error) {
	log := s.log.WithContext(ctx).WithFields(logger.Fields(logger.FieldAccountID, acct.ID))
	if hashErr != nil || !ok {
		s.metrics.RecordUpgrade(ctx, UpgradeFailure)
		log.WithError(hashErr).Warn("legacy credential could not be rehashed")
		return
	}

	swapped, err := s.store.ReplacePasswordHash(ctx, acct.ID, acct.PasswordHash, fresh)
	switch {
	case err != nil:
		s.metrics.RecordUpgrade(ctx, UpgradeFailure)
		log.WithError(err).Error("storing upgraded credential failed")
	case !swapped:
		s.metrics.RecordUpgrade(ctx, UpgradeRaced)
		log.Info("stored credential changed concurrently, upgrade skipped")
	default:
		s.metrics.RecordUpgrade(ctx, UpgradeDone)
		log.Info("legacy credential upgraded")
		acct.PasswordHash = fresh
	}
}

// SetPassword stores a modern hash of plaintext for accountID. Registration
// and password reset both go through here, so new credentials are always
// modern.
func (s *Service) SetPassword(ctx context.Context, accountID, plaintext string) error {
	ctx, span := s.tracer.Start(ctx, observability.SpanSetPassword)
	defer span.End()

	if err := validation.Validate(passwordChange{AccountID: accountID, Password: plaintext}); err != nil {
		return err
	}
	hash, err := s.hashNew(ctx, span, plaintext)
	if err != nil {
		return err
	}
	return s.storePassword(ctx, span, accountID, hash)
}

// RequestReset issues a single-use reset token for email. It returns nil
// without error when no account matches, so callers can answer every
// request the same way.
func (s *Service) RequestReset(ctx context.Context, email string) (*ResetToken, error) {
	ctx, span := s.tracer.Start(ctx, observability.SpanRequestReset)
	defer span.End()

	log := s.log.WithContext(ctx)
	email = normalizeEmail(email)
	if err := validation.Validate(resetRequest{Email: email}); err != nil {
		return nil, err
	}

	acct, err := s.store.FindByEmail(ctx, email)
	switch {
	case stderrors.Is(err, ErrAccountNotFound):
		log.Info("password reset requested for unknown account",
			logger.Fields(logger.FieldEmail, logger.Redact(email)))
		return nil, nil
	case err != nil:
		span.SetStatus(codes.Error, "account lookup failed")
		log.WithError(err).Error("account lookup failed",
			logger.Fields(logger.FieldEmail, logger.Redact(email)))
		return nil, errors.DatabaseError(err)
	}

	token, err := password.GenerateToken(password.ResetTokenBytes)
	if err != nil {
		span.SetStatus(codes.Error, "token generation failed")
		return nil, errors.Internal(err)
	}
	expires := s.now().Add(s.resetTTL)
	if err := s.store.SetResetToken(ctx, acct.ID, password.HashSHA256(token), expires); err != nil {
		if stderrors.Is(err, ErrAccountNotFound) {
			return nil, nil
		}
		span.SetStatus(codes.Error, "store failed")
		log.WithError(err).Error("storing reset token failed",
			logger.Fields(logger.FieldAccountID, acct.ID))
		return nil, errors.DatabaseError(err)
	}

	log.Info("password reset token issued", logger.Fields(
		logger.FieldAccountID, acct.ID,
		"expires_at", expires.UTC().Format(time.RFC3339),
	))
	return &ResetToken{AccountID: acct.ID, Email: acct.Email, Token: token, ExpiresAt: expires}, nil
}

// ResetPassword consumes token and stores a modern hash of plaintext for
// its account. The password is checked and hashed before the token is
// consumed, so a rejected password leaves the token usable.
func (s *Service) ResetPassword(ctx context.Context, token, plaintext string) error {
	ctx, span := s.tracer.Start(ctx, observability.SpanResetPassword)
	defer span.End()

	if err := validation.Validate(resetCompletion{Token: token, Password: plaintext}); err != nil {
		return err
	}
	hash, err := s.hashNew(ctx, span, plaintext)
	if err != nil {
		return err
	}

	accountID, err := s.store.ConsumeResetToken(ctx, password.HashSHA256(token), s.now())
	switch {
	case stderrors.Is(err, ErrInvalidResetToken):
		s.log.WithContext(ctx).Warn("password reset rejected",
			logger.Fields(logger.FieldOutcome, "invalid_token"))
		return invalidResetToken()
	case err != nil:
		span.SetStatus(codes.Error, "token lookup failed")
		s.log.WithContext(ctx).WithError(err).Error("consuming reset token failed")
		return errors.DatabaseError(err)
	}

	if err := s.storePassword(ctx, span, accountID, hash); err != nil {
		if errors.IsCode(err, errors.ErrCodeNotFound) {
			return invalidResetToken()
		}
		return err
	}
	return nil
}

// hashNew applies the length policy and computes a modern hash.
func (s *Service) hashNew(ctx context.Context, span trace.Span, plaintext string) (string, error) {
	if err := s.policy.CheckLength(plaintext); err != nil {
		if stderrors.Is(err, password.ErrPasswordTooLong) {
			return "", errors.InvalidInput("password", "must be at most 72 bytes")
		}
		return "", errors.InvalidInput("password", fmt.Sprintf("must be at least %d characters", s.policy.MinLength))
	}

	var (
		hash    string
		hashErr error
	)
	if err := s.withSlot(ctx, func() {
		hash, hashErr = s.verifier.Hasher().Hash(plaintext)
	}); err != nil {
		return "", err
	}
	if hashErr != nil {
		span.SetStatus(codes.Error, "hash failed")
		return "", errors.Internal(hashErr)
	}
	return hash, nil
}

func (s *Service) storePassword(ctx context.Context, span trace.Span, accountID, hash string) error {
	err := s.store.SetPasswordHash(ctx, accountID, hash)
	switch {
	case stderrors.Is(err, ErrAccountNotFound):
		return errors.NotFound("account", accountID)
	case err != nil:
		span.SetStatus(codes.Error, "store failed")
		s.log.WithContext(ctx).WithError(err).Error("storing password failed",
			logger.Fields(logger.FieldAccountID, accountID))
		return errors.DatabaseError(err)
	}
	s.log.WithContext(ctx).Info("password set", logger.Fields(logger.FieldAccountID, accountID))
	return nil
}

func invalidResetToken() *errors.AppError {
	return errors.InvalidInput("token", "invalid or expired reset token")
}

// withSlot runs fn while holding one verification slot.
func (s *Service) withSlot(ctx context.Context, fn func()) error {
	actx, cancel := context.WithTimeout(ctx, s.acquireTimeout)
	defer cancel()
	if err := s.slots.Acquire(actx, 1); err != nil {
		if ctx.Err() != nil {
			return errors.Timeout("verify credentials")
		}
		return errors.ServiceUnavailable("login service")
	}
	defer s.slots.Release(1)
	fn()
	return nil
}

func (s *Service) finish(ctx context.Context, span trace.Span, res password.Result, elapsed time.Duration) {
	outcome := OutcomeFailure
	if res.Matched {
		outcome = OutcomeSuccess
	}
	span.SetAttributes(
		attribute.String(observability.AttrFormat, res.Format.String()),
		attribute.String(observability.AttrOutcome, outcome),
	)
	s.metrics.RecordVerify(ctx, res.Format.String(), outcome, elapsed)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func newDummyHash(h password.Hasher) (string, error) {
	secret, err := password.GenerateToken(16)
	if err != nil {
		return "", err
	}
	return h.Hash(secret)
}
