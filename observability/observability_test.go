package observability

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (*CredentialMetrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewCredentialMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewCredentialMetrics: %v", err)
	}
	return m, reader
}

func counterValue(t *testing.T, reader *sdkmetric.ManualReader, name string, attrs ...attribute.KeyValue) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	want := attribute.NewSet(attrs...)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("%s is %T, not an int64 sum", name, m.Data)
			}
			for _, dp := range sum.DataPoints {
				if dp.Attributes.Equals(&want) {
					return dp.Value
				}
			}
		}
	}
	return 0
}

func TestCredentialMetrics_RecordVerify(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordVerify(ctx, "legacy", "success", 3*time.Millisecond)
	m.RecordVerify(ctx, "legacy", "success", 2*time.Millisecond)
	m.RecordVerify(ctx, "modern", "failure", 200*time.Millisecond)

	if got := counterValue(t, reader, "credential.verify.total",
		attribute.String("format", "legacy"), attribute.String("outcome", "success")); got != 2 {
		t.Errorf("legacy/success = %d, want 2", got)
	}
	if got := counterValue(t, reader, "credential.verify.total",
		attribute.String("format", "modern"), attribute.String("outcome", "failure")); got != 1 {
		t.Errorf("modern/failure = %d, want 1", got)
	}
}

func TestCredentialMetrics_UpgradeAndAudit(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordUpgrade(ctx, "upgraded")
	m.RecordAudit(ctx, "legacy", 5)
	m.RecordAudit(ctx, "unknown", 0)

	if got := counterValue(t, reader, "credential.upgrade.total", attribute.String("status", "upgraded")); got != 1 {
		t.Errorf("upgraded = %d, want 1", got)
	}
	if got := counterValue(t, reader, "credential.audit.hashes", attribute.String("format", "legacy")); got != 5 {
		t.Errorf("audit legacy = %d, want 5", got)
	}
	if got := counterValue(t, reader, "credential.audit.hashes", attribute.String("format", "unknown")); got != 0 {
		t.Errorf("audit unknown = %d, want 0", got)
	}
}

func TestCredentialMetrics_NilIsSafe(t *testing.T) {
	var m *CredentialMetrics
	ctx := context.Background()
	m.RecordVerify(ctx, "modern", "success", time.Millisecond)
	m.RecordUpgrade(ctx, "failed")
	m.RecordAudit(ctx, "legacy", 1)
}

func TestConfig_DefaultsAndValidate(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	if cfg.Endpoint != "localhost:4318" || cfg.Interval != 15*time.Second || cfg.SampleRate != 1.0 {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if err := (&Config{}).Validate(); err != nil {
		t.Errorf("disabled config should validate: %v", err)
	}
	cfg.Enabled = true
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaulted config should validate: %v", err)
	}
	bad := cfg
	bad.SampleRate = 1.5
	if err := bad.Validate(); err == nil {
		t.Error("expected sample_rate error")
	}
	bad = cfg
	bad.Endpoint = ""
	if err := bad.Validate(); err == nil {
		t.Error("expected endpoint error")
	}
}

func TestSetup_Disabled(t *testing.T) {
	shutdown, err := Setup(context.Background(), Config{}, "linkvault", "dev")
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown: %v", err)
	}
}

func TestSampler(t *testing.T) {
	if sampler(1).Description() != "AlwaysOnSampler" {
		t.Errorf("rate 1 should always sample, got %s", sampler(1).Description())
	}
	if sampler(0).Description() != "AlwaysOffSampler" {
		t.Errorf("rate 0 should never sample, got %s", sampler(0).Description())
	}
}
