package audit

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/kbukum/linkvault/auth/password"
	"github.com/kbukum/linkvault/logger"
	"github.com/kbukum/linkvault/observability"
)

var errScanOpen = errors.New("write while a scan cursor is open")

// fakeSource mimics a single-connection database: writes fail while a
// ScanHashes cursor is still open.
type fakeSource struct {
	hashes   []StoredHash
	flagged  []string
	scanErr  error
	flagErr  error
	scanning bool
}

func (f *fakeSource) ScanHashes(_ context.Context, fn func(StoredHash) error) error {
	f.scanning = true
	defer func() { f.scanning = false }()
	for _, h := range f.hashes {
		if err := fn(h); err != nil {
			return err
		}
	}
	return f.scanErr
}

func (f *fakeSource) FlagForUpdate(_ context.Context, id string) error {
	if f.scanning {
		return errScanOpen
	}
	if f.flagErr != nil {
		return f.flagErr
	}
	f.flagged = append(f.flagged, id)
	return nil
}

func sampleSource() *fakeSource {
	return &fakeSource{hashes: []StoredHash{
		{AccountID: "1", Email: "alice@example.com", Hash: "$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW"},
		{AccountID: "2", Email: "bob@example.com", Hash: password.EncodeLegacy("salt", "hunter22")},
		{AccountID: "3", Email: "carol@example.com", Hash: "$2b$10$abcdefghijklmnopqrstuuABCDEFGHIJKLMNOPQRSTUVWXYZ01234"},
		{AccountID: "4", Email: "dave@example.com", Hash: "plaintext-password"},
		{AccountID: "5", Email: "erin@example.com", Hash: password.EncodeLegacy("s2", "secret")},
	}}
}

func newTestAuditor(src HashSource, buf *bytes.Buffer, opts ...Option) *Auditor {
	log := logger.NewWithWriter(&logger.Config{Level: "debug", Format: "json"}, "test", buf)
	return New(src, append([]Option{WithLogger(log)}, opts...)...)
}

func TestAuditor_Run_Counts(t *testing.T) {
	var buf bytes.Buffer
	src := sampleSource()
	report, err := newTestAuditor(src, &buf).Run(context.Background(), Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.Total != 5 || report.Modern != 2 || report.Legacy != 2 || report.Unknown != 1 {
		t.Errorf("unexpected counts %+v", report)
	}
	if report.Flagged != 0 || len(src.flagged) != 0 {
		t.Error("nothing should be flagged without FlagLegacy")
	}
	if report.RunID == uuid.Nil {
		t.Error("expected a run id")
	}
	if report.Finished.Before(report.Started) {
		t.Error("finished before started")
	}
	if report.Complete() {
		t.Error("report with legacy accounts is not complete")
	}
}

func TestAuditor_Run_FlagLegacy(t *testing.T) {
	var buf bytes.Buffer
	src := sampleSource()
	report, err := newTestAuditor(src, &buf).Run(context.Background(), Options{FlagLegacy: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Flagged != 2 {
		t.Errorf("Flagged = %d, want 2", report.Flagged)
	}
	if strings.Join(src.flagged, ",") != "2,5" {
		t.Errorf("flagged ids = %v, want [2 5]", src.flagged)
	}
}

func TestAuditor_Run_FlagError(t *testing.T) {
	var buf bytes.Buffer
	src := sampleSource()
	src.flagErr = errors.New("permission denied")

	report, err := newTestAuditor(src, &buf).Run(context.Background(), Options{FlagLegacy: true})
	if err == nil {
		t.Fatal("expected error")
	}
	if report == nil || report.Total != 5 || report.Flagged != 0 {
		t.Fatalf("expected full counts with nothing flagged, got %+v", report)
	}
}

func TestAuditor_Run_FlagsAfterScanCloses(t *testing.T) {
	var buf bytes.Buffer
	src := sampleSource()
	report, err := newTestAuditor(src, &buf).Run(context.Background(), Options{FlagLegacy: true})
	if errors.Is(err, errScanOpen) {
		t.Fatal("FlagForUpdate was called while the scan cursor was open")
	}
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Flagged != report.Legacy {
		t.Errorf("Flagged = %d, want %d", report.Flagged, report.Legacy)
	}
}

func TestAuditor_Run_ScanErrorSkipsFlagging(t *testing.T) {
	var buf bytes.Buffer
	src := sampleSource()
	src.scanErr = errors.New("connection reset")
	report, err := newTestAuditor(src, &buf).Run(context.Background(), Options{FlagLegacy: true})
	if err == nil {
		t.Fatal("expected error")
	}
	if report.Flagged != 0 || len(src.flagged) != 0 {
		t.Errorf("no account should be flagged after a failed scan, got %v", src.flagged)
	}
}

func TestAuditor_Run_ScanError(t *testing.T) {
	var buf bytes.Buffer
	src := &fakeSource{scanErr: errors.New("connection reset")}
	report, err := newTestAuditor(src, &buf).Run(context.Background(), Options{})
	if err == nil || report == nil {
		t.Fatalf("expected error and partial report, got %v %v", report, err)
	}
	if !strings.Contains(buf.String(), "credential audit failed") {
		t.Error("expected failure to be logged")
	}
}

func TestAuditor_Run_Cancelled(t *testing.T) {
	var buf bytes.Buffer
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestAuditor(sampleSource(), &buf).Run(ctx, Options{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestAuditor_Run_LogsNoSecrets(t *testing.T) {
	var buf bytes.Buffer
	src := sampleSource()
	if _, err := newTestAuditor(src, &buf).Run(context.Background(), Options{}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	out := buf.String()
	for _, h := range src.hashes {
		if strings.Contains(out, h.Hash) {
			t.Errorf("log contains stored hash for account %s", h.AccountID)
		}
		if strings.Contains(out, h.Email) {
			t.Errorf("log contains unredacted email for account %s", h.AccountID)
		}
	}
	if !strings.Contains(out, "b***@example.com") || !strings.Contains(out, "d***@example.com") {
		t.Error("expected redacted emails for legacy and unknown accounts")
	}
}

func TestAuditor_Run_RecordsMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	metrics, err := observability.NewCredentialMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewCredentialMetrics: %v", err)
	}

	var buf bytes.Buffer
	if _, err := newTestAuditor(sampleSource(), &buf, WithMetrics(metrics)).Run(context.Background(), Options{}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	got := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "credential.audit.hashes" {
				continue
			}
			for _, dp := range m.Data.(metricdata.Sum[int64]).DataPoints {
				v, _ := dp.Attributes.Value(attribute.Key("format"))
				got[v.AsString()] = dp.Value
			}
		}
	}
	if got["modern"] != 2 || got["legacy"] != 2 || got["unknown"] != 1 {
		t.Errorf("audit counter = %v", got)
	}
}

func TestReport_Recommendations(t *testing.T) {
	tests := []struct {
		name   string
		report Report
		want   int
	}{
		{"all modern", Report{Total: 3, Modern: 3}, 0},
		{"legacy only", Report{Total: 3, Modern: 1, Legacy: 2}, 3},
		{"unknown only", Report{Total: 1, Unknown: 1}, 1},
		{"both", Report{Total: 2, Legacy: 1, Unknown: 1}, 4},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := len(tc.report.Recommendations()); got != tc.want {
				t.Errorf("got %d recommendations, want %d", got, tc.want)
			}
			if tc.want == 0 && !tc.report.Complete() {
				t.Error("expected complete report")
			}
		})
	}
}

func TestReport_Duration(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r := Report{Started: start, Finished: start.Add(1500 * time.Millisecond)}
	if r.Duration() != 1500*time.Millisecond {
		t.Errorf("Duration = %s", r.Duration())
	}
}
