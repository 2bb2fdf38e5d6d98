package diarization

import (
	"context"

	"github.com/kbukum/diarize/provider"
)

// Provider is the interface that diarization backends must implement.
type Provider interface {
	provider.Provider // embeds Name() and IsAvailable()

	// Diarize sends audio for speaker diarization and returns the result.
	Diarize(ctx context.Context, req Request) (*Response, error)
}

// NewRegistry creates an empty registry for diarization providers.
func NewRegistry() *provider.Registry[Provider] {
	return provider.NewRegistry[Provider]()
}

// requestResponse adapts a Provider to provider.RequestResponse so it can
// be wrapped with logging, tracing, and metrics middleware.
type requestResponse struct {
	inner Provider
}

// AsRequestResponse exposes a Provider through the generic middleware surface.
func AsRequestResponse(p Provider) provider.RequestResponse[Request, *Response] {
	return &requestResponse{inner: p}
}

func (r *requestResponse) Name() string                         { return r.inner.Name() }
func (r *requestResponse) IsAvailable(ctx context.Context) bool { return r.inner.IsAvailable(ctx) }
func (r *requestResponse) Execute(ctx context.Context, req Request) (*Response, error) {
	return r.inner.Diarize(ctx, req)
}

// wrapped turns a middleware-wrapped RequestResponse back into a Provider.
type wrapped struct {
	rr provider.RequestResponse[Request, *Response]
}

// FromRequestResponse converts a RequestResponse back to a Provider,
// typically after applying a middleware chain.
func FromRequestResponse(rr provider.RequestResponse[Request, *Response]) Provider {
	return &wrapped{rr: rr}
}

func (w *wrapped) Name() string                         { return w.rr.Name() }
func (w *wrapped) IsAvailable(ctx context.Context) bool { return w.rr.IsAvailable(ctx) }
func (w *wrapped) Diarize(ctx context.Context, req Request) (*Response, error) {
	return w.rr.Execute(ctx, req)
}
