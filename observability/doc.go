// Package observability wires OpenTelemetry tracing and metrics.
//
//	shutdown, err := observability.Setup(ctx, cfg.Telemetry, "linkvault", version.Version)
//	defer shutdown(ctx)
//
//	m, err := observability.NewCredentialMetrics(observability.Meter(observability.InstrumentationName))
//	m.RecordVerify(ctx, "legacy", "success", elapsed)
//
// When telemetry is disabled the global no-op providers stay in place and
// every instrument is still safe to use.
package observability
