package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
)

// Metrics is the set of prometheus collectors of the client and its dev server.
type Metrics struct {
	// outgoing API requests
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestErrors   *prometheus.CounterVec
	SessionExpiries prometheus.Counter
	PagesMerged     *prometheus.CounterVec

	// session persistence and events
	StorageOperationDuration *prometheus.HistogramVec
	SessionEventsTotal       *prometheus.CounterVec

	// dev server
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
	meterProvider      *sdkmetric.MeterProvider
)

// NewMetrics registers a fresh set of collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "flat_api_requests_total",
			Help: "Total number of API requests by backend, path and HTTP status",
		}, []string{"backend", "method", "path", "status"}),

		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "flat_api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"backend", "path"}),

		RequestErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "flat_api_request_errors_total",
			Help: "Total number of failed API requests by error type",
		}, []string{"backend", "type"}),

		SessionExpiries: factory.NewCounter(prometheus.CounterOpts{
			Name: "flat_session_expiries_total",
			Help: "Total number of responses reporting an expired token",
		}),

		PagesMerged: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "flat_pages_merged_total",
			Help: "Pages handed to paged lists, by whether they were accepted",
		}, []string{"accepted"}),

		StorageOperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "flat_session_storage_operation_duration_seconds",
			Help:    "Duration of session storage operations in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"backend", "operation", "status"}),

		SessionEventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "flat_session_events_total",
			Help: "Session events published, by event and outcome",
		}, []string{"event", "status"}),

		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests served",
		}, []string{"method", "endpoint", "status"}),

		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
	}
}

// DefaultMetrics returns the collectors registered on the default prometheus registry.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		defaultMetrics = NewMetrics(prometheus.DefaultRegisterer)
	})
	return defaultMetrics
}

// InitMetrics registers the prometheus collectors and, when enabled, exports
// OpenTelemetry metrics to the OTLP collector.
func InitMetrics(cfg *Config) error {
	DefaultMetrics()
	if !cfg.EnableMetrics || meterProvider != nil {
		return nil
	}

	ctx := context.Background()
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.ServiceName),
			semconv.ServiceVersionKey.String(cfg.ServiceVersion),
			semconv.DeploymentEnvironmentKey.String(cfg.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	exporter, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		return fmt.Errorf("failed to create metrics exporter: %w", err)
	}

	meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(
				exporter,
				sdkmetric.WithInterval(time.Duration(cfg.MetricsInterval)*time.Second),
			),
		),
	)
	otel.SetMeterProvider(meterProvider)
	return nil
}

// CloseMetrics flushes and stops the OTLP meter provider
func CloseMetrics(ctx context.Context) error {
	if meterProvider == nil {
		return nil
	}
	return meterProvider.Shutdown(ctx)
}

// RecordStorageOperation records the duration of a session storage call
func (m *Metrics) RecordStorageOperation(backend, operation string, err error, duration time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.StorageOperationDuration.WithLabelValues(backend, operation, status).Observe(duration.Seconds())
}

// RecordSessionEvent records a published session event
func (m *Metrics) RecordSessionEvent(event string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.SessionEventsTotal.WithLabelValues(event, status).Inc()
}

// RecordHTTPRequest records a served HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, status string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}
