package telemetry

import (
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// TracingTransport injects the trace context of each request into its headers.
type TracingTransport struct {
	Base http.RoundTripper
}

// NewTracingTransport wraps base, or http.DefaultTransport when base is nil
func NewTracingTransport(base http.RoundTripper) *TracingTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &TracingTransport{Base: base}
}

// RoundTrip implements http.RoundTripper
func (t *TracingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// RoundTrippers must not modify the caller's request
	out := req.Clone(req.Context())
	otel.GetTextMapPropagator().Inject(out.Context(), propagation.HeaderCarrier(out.Header))
	return t.Base.RoundTrip(out)
}

// CloseIdleConnections forwards to the wrapped transport
func (t *TracingTransport) CloseIdleConnections() {
	type closeIdler interface{ CloseIdleConnections() }
	if ci, ok := t.Base.(closeIdler); ok {
		ci.CloseIdleConnections()
	}
}
