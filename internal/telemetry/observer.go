package telemetry

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/birbparty/flat-client/sdk"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"
)

// PrometheusObserver feeds request, session and paging events into Metrics.
type PrometheusObserver struct {
	sdk.NoopObserver
	metrics *Metrics
}

// NewPrometheusObserver creates an observer recording into m
func NewPrometheusObserver(m *Metrics) *PrometheusObserver {
	return &PrometheusObserver{metrics: m}
}

// OnRequestEnd implements sdk.Observer
func (o *PrometheusObserver) OnRequestEnd(_ context.Context, backend sdk.BackendKind, method, path string, status int, duration time.Duration, err error) {
	b := backend.String()
	o.metrics.RequestsTotal.WithLabelValues(b, method, path, strconv.Itoa(status)).Inc()
	o.metrics.RequestDuration.WithLabelValues(b, path).Observe(duration.Seconds())
	if err != nil {
		o.metrics.RequestErrors.WithLabelValues(b, errorType(err)).Inc()
	}
}

// OnSessionExpired implements sdk.Observer
func (o *PrometheusObserver) OnSessionExpired(string) {
	o.metrics.SessionExpiries.Inc()
}

// OnPageMerged implements sdk.Observer
func (o *PrometheusObserver) OnPageMerged(_ int, accepted bool) {
	o.metrics.PagesMerged.WithLabelValues(strconv.FormatBool(accepted)).Inc()
}

func errorType(err error) string {
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		return apiErr.Type.String()
	}
	return sdk.ErrorTypeUnknown.String()
}

// TracingObserver wraps every API request in a client span.
type TracingObserver struct {
	sdk.NoopObserver
}

// OnRequestStart implements sdk.Observer
func (TracingObserver) OnRequestStart(ctx context.Context, backend sdk.BackendKind, method, path string) context.Context {
	ctx, _ = StartSpan(ctx, backend.String()+" "+path,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			semconv.PeerServiceKey.String(backend.String()),
			semconv.HTTPMethodKey.String(method),
			semconv.HTTPTargetKey.String(path),
		),
	)
	return ctx
}

// OnRequestEnd implements sdk.Observer
func (TracingObserver) OnRequestEnd(ctx context.Context, _ sdk.BackendKind, _, _ string, status int, _ time.Duration, err error) {
	span := trace.SpanFromContext(ctx)
	defer span.End()

	if status != 0 {
		span.SetAttributes(semconv.HTTPStatusCodeKey.Int(status))
	}
	if err != nil {
		span.SetAttributes(attribute.String("flat.error_type", errorType(err)))
		RecordError(ctx, err)
		SetErrorStatus(ctx, err.Error())
		return
	}
	SetOKStatus(ctx)
}

// OnSessionExpired implements sdk.Observer
func (TracingObserver) OnSessionExpired(path string) {
	WithFields(map[string]interface{}{"path": path}).Debug("Session expired")
}
