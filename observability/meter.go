package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

// InitMeter initializes the OpenTelemetry meter provider.
// Returns a MeterProvider that should be shut down on application exit.
func InitMeter(ctx context.Context, cfg Config, res *resource.Resource) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if cfg.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(cfg.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)
	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// CredentialMetrics holds the instruments for credential verification,
// opportunistic upgrades, and hash audits. A nil *CredentialMetrics
// records nothing.
type CredentialMetrics struct {
	verifyTotal    metric.Int64Counter
	verifyDuration metric.Float64Histogram
	upgradeTotal   metric.Int64Counter
	auditHashes    metric.Int64Counter
}

// NewCredentialMetrics creates metric instruments on the given meter.
func NewCredentialMetrics(meter metric.Meter) (*CredentialMetrics, error) {
	verifyTotal, err := meter.Int64Counter("credential.verify.total",
		metric.WithDescription("Credential verifications by stored format and outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating credential.verify.total counter: %w", err)
	}

	verifyDuration, err := meter.Float64Histogram("credential.verify.duration",
		metric.WithDescription("Duration of credential verifications in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating credential.verify.duration histogram: %w", err)
	}

	upgradeTotal, err := meter.Int64Counter("credential.upgrade.total",
		metric.WithDescription("Legacy-to-modern hash upgrades by status"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating credential.upgrade.total counter: %w", err)
	}

	auditHashes, err := meter.Int64Counter("credential.audit.hashes",
		metric.WithDescription("Stored hashes seen by the migration audit, by format"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating credential.audit.hashes counter: %w", err)
	}

	return &CredentialMetrics{
		verifyTotal:    verifyTotal,
		verifyDuration: verifyDuration,
		upgradeTotal:   upgradeTotal,
		auditHashes:    auditHashes,
	}, nil
}

// RecordVerify records one verification attempt.
func (m *CredentialMetrics) RecordVerify(ctx context.Context, format, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.verifyTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("format", format),
		attribute.String("outcome", outcome),
	))
	m.verifyDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("format", format),
	))
}

// RecordUpgrade records an opportunistic upgrade ("upgraded", "skipped", "failed").
func (m *CredentialMetrics) RecordUpgrade(ctx context.Context, status string) {
	if m == nil {
		return
	}
	m.upgradeTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

// RecordAudit adds n hashes of the given format to the audit counter.
func (m *CredentialMetrics) RecordAudit(ctx context.Context, format string, n int64) {
	if m == nil || n == 0 {
		return
	}
	m.auditHashes.Add(ctx, n, metric.WithAttributes(attribute.String("format", format)))
}
