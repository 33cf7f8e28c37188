package telemetry

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/birbparty/flat-client/sdk"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestPrometheusObserver(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	o := NewPrometheusObserver(m)
	ctx := context.Background()

	o.OnRequestEnd(ctx, sdk.BackendFlat, "POST", "/v1/room/join", 200, 20*time.Millisecond, nil)
	o.OnRequestEnd(ctx, sdk.BackendFlat, "POST", "/v1/room/join", 200, 20*time.Millisecond, sdk.ErrSessionExpired)
	o.OnRequestEnd(ctx, sdk.BackendNetless, "GET", "/services/conversion/tasks/t1", 0, time.Millisecond, errors.New("dial"))
	o.OnSessionExpired("/v1/room/join")
	o.OnPageMerged(1, true)
	o.OnPageMerged(3, false)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("flat", "POST", "/v1/room/join", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("netless", "GET", "/services/conversion/tasks/t1", "0")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestErrors.WithLabelValues("netless", "unknown")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionExpiries))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PagesMerged.WithLabelValues("true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PagesMerged.WithLabelValues("false")))
}

func TestTracingObserverAndTransport(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prevProvider, prevPropagator := otel.GetTracerProvider(), otel.GetTextMapPropagator()
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	prevTracer := tracer
	tracer = nil
	t.Cleanup(func() {
		otel.SetTracerProvider(prevProvider)
		otel.SetTextMapPropagator(prevPropagator)
		tracer = prevTracer
	})

	var traceparent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceparent = r.Header.Get("traceparent")
	}))
	defer server.Close()

	o := TracingObserver{}
	ctx := o.OnRequestStart(context.Background(), sdk.BackendFlat, "POST", "/v1/room/join")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, server.URL, nil)
	require.NoError(t, err)
	client := &http.Client{Transport: NewTracingTransport(nil)}
	resp, err := client.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Empty(t, req.Header.Get("traceparent"), "caller request is untouched")
	assert.NotEmpty(t, traceparent)

	o.OnRequestEnd(ctx, sdk.BackendFlat, "POST", "/v1/room/join", 200, time.Millisecond, sdk.ErrSessionExpired)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "flat /v1/room/join", spans[0].Name())
	assert.Contains(t, traceparent, spans[0].SpanContext().TraceID().String())
	assert.Equal(t, "Error", spans[0].Status().Code.String())
}
