// Package observability provides optional OpenTelemetry tracing and metrics
// for the diarize CLI. Export is disabled unless an OTLP endpoint is
// configured; spans and instruments degrade to no-ops otherwise.
//
// Tracing:
//
//	tp, err := observability.InitTracer(ctx, observability.DefaultTracerConfig("diarize"))
//	defer tp.Shutdown(ctx)
//
//	ctx, span := observability.StartSpan(ctx, "diarize.run")
//	defer span.End()
//
// Metrics:
//
//	mp, err := observability.InitMeter(ctx, observability.DefaultMeterConfig("diarize"))
//	defer mp.Shutdown(ctx)
//
//	metrics, err := observability.NewMetrics(observability.Meter("diarize"))
//	metrics.RecordOperation(ctx, "pyannote", "diarize", "ok", duration)
package observability
