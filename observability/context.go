package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// RunContext holds observability context for a tracked diarization run.
type RunContext struct {
	ServiceName string
	Backend     string
	RunID       string
	StartTime   time.Time
	Metrics     *Metrics
}

// NewRunContext creates a new run context.
// If metrics is nil, metric recording is silently skipped.
func NewRunContext(serviceName, backend, runID string, metrics *Metrics) *RunContext {
	return &RunContext{
		ServiceName: serviceName,
		Backend:     backend,
		RunID:       runID,
		StartTime:   time.Now(),
		Metrics:     metrics,
	}
}

// runContextKey is the context key for RunContext.
type runContextKey struct{}

// WithRunContext stores a RunContext in the context.
func WithRunContext(ctx context.Context, rc *RunContext) context.Context {
	return context.WithValue(ctx, runContextKey{}, rc)
}

// RunContextFromContext retrieves the RunContext from context, or nil.
func RunContextFromContext(ctx context.Context) *RunContext {
	if rc, ok := ctx.Value(runContextKey{}).(*RunContext); ok {
		return rc
	}
	return nil
}

// StartSpan starts a traced span tagged with the run metadata.
func (rc *RunContext) StartSpan(ctx context.Context, spanName string) (context.Context, trace.Span) {
	ctx, span := StartSpan(ctx, spanName)
	span.SetAttributes(
		attribute.String(AttrServiceName, rc.ServiceName),
		attribute.String(AttrBackend, rc.Backend),
		attribute.String(AttrRunID, rc.RunID),
	)
	return ctx, span
}

// End ends the span and records run-end metrics.
func (rc *RunContext) End(ctx context.Context, span trace.Span, status string, err error) {
	duration := time.Since(rc.StartTime)

	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.String(AttrErrorMessage, err.Error()))
	}

	span.SetAttributes(
		attribute.String(AttrStatus, status),
		attribute.Int64(AttrDurationMs, duration.Milliseconds()),
	)
	span.End()

	if rc.Metrics != nil {
		rc.Metrics.RecordOperation(ctx, rc.Backend, "run", status, duration)
	}
}

// Duration returns the elapsed time since run start.
func (rc *RunContext) Duration() time.Duration {
	return time.Since(rc.StartTime)
}
