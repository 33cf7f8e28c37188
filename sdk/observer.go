package sdk

import (
	"context"
	"sync"
	"time"
)

// Observer provides hooks for monitoring SDK operations.
// Implement this interface to track performance metrics, debug issues,
// or integrate with your observability stack.
//
// Observer methods should be fast and non-blocking: they run on the goroutine
// that issued the request.
//
// Example implementation:
//
//	type LogObserver struct {
//	    sdk.NoopObserver
//	    logger *log.Logger
//	}
//
//	func (o *LogObserver) OnRequestEnd(ctx context.Context, backend sdk.BackendKind, method, path string, status int, d time.Duration, err error) {
//	    o.logger.Printf("[%s] %s %s -> %d in %v (err=%v)", backend, method, path, status, d, err)
//	}
type Observer interface {
	// OnRequestStart is called before a request is sent. The returned context is
	// used for the request, which lets tracing observers attach a span.
	OnRequestStart(ctx context.Context, backend BackendKind, method, path string) context.Context

	// OnRequestEnd is called when a request completes. status is 0 when no
	// response was received.
	OnRequestEnd(ctx context.Context, backend BackendKind, method, path string, status int, duration time.Duration, err error)

	// OnSessionExpired is called when a Flat response reports an expired token.
	OnSessionExpired(path string)

	// OnPageMerged is called for every page handed to a PageList.
	// accepted is false when the page was out of order and ignored.
	OnPageMerged(page int, accepted bool)
}

// NoopObserver is a no-op implementation of Observer that does nothing.
// This is the default observer used when none is configured.
// Embed it to implement only the hooks you need.
type NoopObserver struct{}

// OnRequestStart does nothing
func (NoopObserver) OnRequestStart(ctx context.Context, _ BackendKind, _, _ string) context.Context {
	return ctx
}

// OnRequestEnd does nothing
func (NoopObserver) OnRequestEnd(context.Context, BackendKind, string, string, int, time.Duration, error) {
}

// OnSessionExpired does nothing
func (NoopObserver) OnSessionExpired(string) {}

// OnPageMerged does nothing
func (NoopObserver) OnPageMerged(int, bool) {}

// MetricsCollector is a simple in-memory metrics implementation.
// It collects request counts, latencies, error counts, session expiries
// and page merge outcomes.
//
// It is primarily intended for debugging and testing. For production use the
// prometheus observer in internal/telemetry exports the same numbers.
//
// Example:
//
//	metrics := sdk.NewMetricsCollector()
//	config := sdk.DefaultConfig().WithObserver(metrics)
//	...
//	snapshot := metrics.GetMetrics()
//	fmt.Printf("Total requests: %v\n", snapshot["requests"])
type MetricsCollector struct {
	mu              sync.RWMutex
	requestCount    map[string]int64
	latencies       map[string][]time.Duration
	errorCount      map[string]int64
	statusCount     map[int]int64
	sessionExpiries int64
	pagesAccepted   int64
	pagesIgnored    int64
}

// NewMetricsCollector creates a new metrics collector for tracking SDK operations.
// The collector is thread-safe and can be used concurrently.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		requestCount: make(map[string]int64),
		latencies:    make(map[string][]time.Duration),
		errorCount:   make(map[string]int64),
		statusCount:  make(map[int]int64),
	}
}

func metricsKey(backend BackendKind, method, path string) string {
	return backend.String() + " " + method + " " + path
}

// OnRequestStart increments request count
func (m *MetricsCollector) OnRequestStart(ctx context.Context, backend BackendKind, method, path string) context.Context {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[metricsKey(backend, method, path)]++
	return ctx
}

// OnRequestEnd records request duration, status and errors
func (m *MetricsCollector) OnRequestEnd(_ context.Context, backend BackendKind, method, path string, status int, duration time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := metricsKey(backend, method, path)
	m.latencies[key] = append(m.latencies[key], duration)
	if status != 0 {
		m.statusCount[status]++
	}
	if err != nil {
		m.errorCount[key]++
	}
}

// OnSessionExpired counts expiries
func (m *MetricsCollector) OnSessionExpired(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessionExpiries++
}

// OnPageMerged counts accepted and ignored pages
func (m *MetricsCollector) OnPageMerged(_ int, accepted bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if accepted {
		m.pagesAccepted++
	} else {
		m.pagesIgnored++
	}
}

// GetMetrics returns a snapshot of current metrics.
// The returned map is a copy and safe to read without locks.
//
// The metrics include:
//   - "requests": Map of endpoint to request count
//   - "latencies": Map of endpoint to latency measurements
//   - "errors": Map of endpoint to error count
//   - "statuses": Map of HTTP status to response count
//   - "session_expiries": Total expired-token responses
//   - "pages_accepted", "pages_ignored": PageList merge outcomes
func (m *MetricsCollector) GetMetrics() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	requestsCopy := make(map[string]int64, len(m.requestCount))
	for k, v := range m.requestCount {
		requestsCopy[k] = v
	}

	latenciesCopy := make(map[string][]time.Duration, len(m.latencies))
	for k, v := range m.latencies {
		latenciesCopy[k] = append([]time.Duration(nil), v...)
	}

	errorsCopy := make(map[string]int64, len(m.errorCount))
	for k, v := range m.errorCount {
		errorsCopy[k] = v
	}

	statusCopy := make(map[int]int64, len(m.statusCount))
	for k, v := range m.statusCount {
		statusCopy[k] = v
	}

	return map[string]interface{}{
		"requests":         requestsCopy,
		"latencies":        latenciesCopy,
		"errors":           errorsCopy,
		"statuses":         statusCopy,
		"session_expiries": m.sessionExpiries,
		"pages_accepted":   m.pagesAccepted,
		"pages_ignored":    m.pagesIgnored,
	}
}

// CompositeObserver allows multiple observers to be combined into one.
// All observer methods are called on each child observer in order.
// If an observer panics, it's caught to prevent affecting other observers.
//
// Example:
//
//	composite := sdk.NewCompositeObserver(
//	    sdk.NewMetricsCollector(),
//	    telemetry.NewPrometheusObserver(),
//	    telemetry.NewTracingObserver(),
//	)
//	config := sdk.DefaultConfig().WithObserver(composite)
type CompositeObserver struct {
	observers []Observer
}

// NewCompositeObserver creates an observer that delegates to multiple observers.
func NewCompositeObserver(observers ...Observer) Observer {
	return &CompositeObserver{observers: observers}
}

func safely(fn func()) {
	defer func() {
		_ = recover()
	}()
	fn()
}

// OnRequestStart notifies all observers, threading the context through each of them
func (c *CompositeObserver) OnRequestStart(ctx context.Context, backend BackendKind, method, path string) context.Context {
	for _, obs := range c.observers {
		safely(func() {
			if next := obs.OnRequestStart(ctx, backend, method, path); next != nil {
				ctx = next
			}
		})
	}
	return ctx
}

// OnRequestEnd notifies all observers of request completion
func (c *CompositeObserver) OnRequestEnd(ctx context.Context, backend BackendKind, method, path string, status int, duration time.Duration, err error) {
	for _, obs := range c.observers {
		safely(func() { obs.OnRequestEnd(ctx, backend, method, path, status, duration, err) })
	}
}

// OnSessionExpired notifies all observers
func (c *CompositeObserver) OnSessionExpired(path string) {
	for _, obs := range c.observers {
		safely(func() { obs.OnSessionExpired(path) })
	}
}

// OnPageMerged notifies all observers
func (c *CompositeObserver) OnPageMerged(page int, accepted bool) {
	for _, obs := range c.observers {
		safely(func() { obs.OnPageMerged(page, accepted) })
	}
}
