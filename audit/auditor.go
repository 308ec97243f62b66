package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/linkvault/auth/password"
	"github.com/kbukum/linkvault/logger"
	"github.com/kbukum/linkvault/observability"
)

// Options controls one audit run.
type Options struct {
	// FlagLegacy marks every legacy account as required to reset.
	FlagLegacy bool
}

// Auditor classifies every stored credential.
type Auditor struct {
	source  HashSource
	log     *logger.Logger
	metrics *observability.CredentialMetrics
	tracer  trace.Tracer
	now     func() time.Time
}

// Option configures an Auditor.
type Option func(*Auditor)

// WithLogger sets the logger (default: the global logger).
func WithLogger(l *logger.Logger) Option {
	return func(a *Auditor) { a.log = l }
}

// WithMetrics records per-format counts on the credential.audit.hashes counter.
func WithMetrics(m *observability.CredentialMetrics) Option {
	return func(a *Auditor) { a.metrics = m }
}

// WithTracer sets the tracer.
func WithTracer(t trace.Tracer) Option {
	return func(a *Auditor) { a.tracer = t }
}

// New creates an Auditor reading from source.
func New(source HashSource, opts ...Option) *Auditor {
	a := &Auditor{source: source, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	if a.log == nil {
		a.log = logger.WithComponent("audit")
	}
	if a.tracer == nil {
		a.tracer = observability.Tracer(observability.InstrumentationName)
	}
	return a
}

// Run scans every stored hash once. On a scan error the partial report is
// returned alongside the error.
func (a *Auditor) Run(ctx context.Context, opts Options) (*Report, error) {
	ctx, span := a.tracer.Start(ctx, observability.SpanAudit)
	defer span.End()

	report := &Report{RunID: uuid.New(), Started: a.now()}
	log := a.log.WithContext(ctx).WithFields(logger.Fields(logger.FieldRunID, report.RunID.String()))
	log.Info("credential audit started", logger.Fields("flag_legacy", opts.FlagLegacy))

	var legacy []string
	err := a.source.ScanHashes(ctx, func(h StoredHash) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		report.Total++
		format := password.Classify(h.Hash)
		switch format {
		case password.FormatModern:
			report.Modern++
			return nil
		case password.FormatLegacy:
			report.Legacy++
			legacy = append(legacy, h.AccountID)
		default:
			report.Unknown++
		}

		fields := logger.Fields(
			logger.FieldAccountID, h.AccountID,
			logger.FieldEmail, logger.Redact(h.Email),
			logger.FieldFormat, format.String(),
		)
		if format == password.FormatUnknown {
			log.Warn("stored credential has an unrecognized format", fields)
		} else {
			log.Warn("stored credential uses the legacy format", fields)
		}
		return nil
	})

	// Flag only after the scan: the cursor holds a connection and, on
	// SQLite, a read lock that blocks writes until it closes.
	if err == nil && opts.FlagLegacy {
		err = a.flag(ctx, legacy, report)
	}
	report.Finished = a.now()

	a.metrics.RecordAudit(ctx, password.FormatModern.String(), int64(report.Modern))
	a.metrics.RecordAudit(ctx, password.FormatLegacy.String(), int64(report.Legacy))
	a.metrics.RecordAudit(ctx, password.FormatUnknown.String(), int64(report.Unknown))
	span.SetAttributes(
		attribute.Int("credential.audit.total", report.Total),
		attribute.Int("credential.audit.legacy", report.Legacy),
	)

	if err != nil {
		span.SetStatus(codes.Error, "audit failed")
		log.WithError(err).Error("credential audit failed", report.fields())
		return report, fmt.Errorf("audit: %w", err)
	}
	log.Info("credential audit finished", report.fields(), logger.DurationFields("audit", report.Duration()))
	return report, nil
}

func (a *Auditor) flag(ctx context.Context, ids []string, report *Report) error {
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := a.source.FlagForUpdate(ctx, id); err != nil {
			return fmt.Errorf("flag account %s: %w", id, err)
		}
		report.Flagged++
	}
	return nil
}
