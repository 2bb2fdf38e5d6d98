// Package provider implements a small generic provider framework for
// swappable diarization backends.
//
// A Registry maps backend names to factories so the CLI can select a backend
// at runtime (--backend). RequestResponse[I, O] models a one-shot call into a
// backend; Middleware wraps it with cross-cutting behavior:
//
//	wrapped := provider.Chain(
//	    provider.WithLogging[Req, Resp](log),
//	    provider.WithTracing[Req, Resp]("diarize"),
//	    provider.WithMetrics[Req, Resp](metrics),
//	)(backend)
package provider
