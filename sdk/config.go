package sdk

import (
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultFlatBaseURL is the production Flat server
	DefaultFlatBaseURL = "https://flat-api.whiteboard.agora.io"
	// DefaultAgoraBaseURL is the Agora REST endpoint
	DefaultAgoraBaseURL = "https://api.agora.io"
	// DefaultNetlessBaseURL is the Netless conversion service
	DefaultNetlessBaseURL = "https://api.netless.link/v5"
	// DefaultTimeout bounds every request
	DefaultTimeout = 30 * time.Second
)

// Config holds the configuration of a Provider.
// All fields are optional and have sensible defaults.
//
// Configuration can be built using the fluent builder pattern:
//
//	config := sdk.DefaultConfig().
//	    WithFlatBaseURL("https://flat-api-dev.whiteboard.agora.io").
//	    WithTimeout(10 * time.Second).
//	    WithObserver(sdk.NewMetricsCollector())
//
//	provider, err := sdk.NewProvider(config, session)
type Config struct {
	// FlatBaseURL is the base URL of the Flat application server.
	// Default: "https://flat-api.whiteboard.agora.io"
	FlatBaseURL string

	// AgoraBaseURL is the base URL of the Agora RTM REST service.
	// Default: "https://api.agora.io"
	AgoraBaseURL string

	// AgoraAppID identifies the Agora project. It is informational for the
	// provider; RTM requests carry it in their path.
	AgoraAppID string

	// NetlessBaseURL is the base URL of the Netless conversion service.
	// Default: "https://api.netless.link/v5"
	NetlessBaseURL string

	// Timeout is the HTTP request timeout.
	// Default: 30s
	Timeout time.Duration

	// TransportConfig holds HTTP transport settings.
	TransportConfig TransportConfig

	// Transport replaces the transport built from TransportConfig when set.
	// Use it to wrap the transport, e.g. with trace header propagation.
	Transport http.RoundTripper

	// Headers are custom headers included in all requests.
	Headers map[string]string

	// Observer for monitoring requests. If nil, NoopObserver is used.
	Observer Observer

	// Logger receives provider and session logs.
	// Default: logrus.StandardLogger()
	Logger logrus.FieldLogger

	// MainExecutor runs completion callbacks and the logout triggered by an
	// expired token. Default: ImmediateExecutor
	MainExecutor Executor
}

// TransportConfig holds HTTP transport configuration for connection pooling.
type TransportConfig struct {
	// MaxIdleConns controls the maximum number of idle connections
	// across all hosts. Zero means no limit.
	// Default: 100
	MaxIdleConns int

	// MaxConnsPerHost controls the maximum connections per host.
	// Default: 10
	MaxConnsPerHost int

	// IdleConnTimeout is the maximum time an idle connection will remain idle
	// before closing itself.
	// Default: 90s
	IdleConnTimeout time.Duration
}

// DefaultConfig returns a Config with the production endpoints and defaults.
func DefaultConfig() *Config {
	return &Config{
		FlatBaseURL:    DefaultFlatBaseURL,
		AgoraBaseURL:   DefaultAgoraBaseURL,
		NetlessBaseURL: DefaultNetlessBaseURL,
		Timeout:        DefaultTimeout,
		TransportConfig: TransportConfig{
			MaxIdleConns:    100,
			MaxConnsPerHost: 10,
			IdleConnTimeout: 90 * time.Second,
		},
		Headers:      make(map[string]string),
		Observer:     NoopObserver{},
		Logger:       logrus.StandardLogger(),
		MainExecutor: ImmediateExecutor{},
	}
}

// NewConfigFromEnv builds a Config from environment variables, falling back to
// DefaultConfig values:
//
//	FLAT_API_URL, AGORA_API_URL, AGORA_APP_ID, NETLESS_API_URL, FLAT_TIMEOUT
func NewConfigFromEnv() *Config {
	c := DefaultConfig()
	c.FlatBaseURL = getEnvOrDefault("FLAT_API_URL", c.FlatBaseURL)
	c.AgoraBaseURL = getEnvOrDefault("AGORA_API_URL", c.AgoraBaseURL)
	c.AgoraAppID = getEnvOrDefault("AGORA_APP_ID", "")
	c.NetlessBaseURL = getEnvOrDefault("NETLESS_API_URL", c.NetlessBaseURL)
	c.Timeout = getEnvDurationOrDefault("FLAT_TIMEOUT", c.Timeout)
	return c
}

// WithFlatBaseURL sets the Flat server URL
func (c *Config) WithFlatBaseURL(url string) *Config {
	c.FlatBaseURL = url
	return c
}

// WithAgoraBaseURL sets the Agora REST URL
func (c *Config) WithAgoraBaseURL(url string) *Config {
	c.AgoraBaseURL = url
	return c
}

// WithNetlessBaseURL sets the Netless URL
func (c *Config) WithNetlessBaseURL(url string) *Config {
	c.NetlessBaseURL = url
	return c
}

// WithTimeout sets the request timeout for all operations.
func (c *Config) WithTimeout(timeout time.Duration) *Config {
	c.Timeout = timeout
	return c
}

// WithTransport sets the HTTP transport.
//
// Example:
//
//	config := sdk.DefaultConfig().
//	    WithTransport(telemetry.NewTracingTransport(nil))
func (c *Config) WithTransport(rt http.RoundTripper) *Config {
	c.Transport = rt
	return c
}

// WithHeader adds a custom header to be sent with all requests.
func (c *Config) WithHeader(key, value string) *Config {
	if c.Headers == nil {
		c.Headers = make(map[string]string)
	}
	c.Headers[key] = value
	return c
}

// WithObserver sets the observer for monitoring requests.
func (c *Config) WithObserver(observer Observer) *Config {
	c.Observer = observer
	return c
}

// WithLogger sets the logger
func (c *Config) WithLogger(logger logrus.FieldLogger) *Config {
	c.Logger = logger
	return c
}

// WithMainExecutor sets the executor that owns callbacks and session mutation.
//
// Example:
//
//	main := sdk.NewSerialQueue()
//	defer main.Close()
//	config := sdk.DefaultConfig().WithMainExecutor(main)
func (c *Config) WithMainExecutor(executor Executor) *Config {
	c.MainExecutor = executor
	return c
}

// Validate validates the configuration and sets defaults for missing values.
// This is called automatically by NewProvider.
func (c *Config) Validate() error {
	if c.FlatBaseURL == "" {
		return ErrInvalidConfig
	}
	if c.AgoraBaseURL == "" {
		c.AgoraBaseURL = DefaultAgoraBaseURL
	}
	if c.NetlessBaseURL == "" {
		c.NetlessBaseURL = DefaultNetlessBaseURL
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.TransportConfig.MaxIdleConns < 0 {
		c.TransportConfig.MaxIdleConns = 0
	}
	if c.TransportConfig.IdleConnTimeout <= 0 {
		c.TransportConfig.IdleConnTimeout = 90 * time.Second
	}
	if c.Observer == nil {
		c.Observer = NoopObserver{}
	}
	if c.Logger == nil {
		c.Logger = logrus.StandardLogger()
	}
	if c.MainExecutor == nil {
		c.MainExecutor = ImmediateExecutor{}
	}
	return nil
}

// getEnvOrDefault gets an environment variable or returns a default value
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvDurationOrDefault accepts a Go duration ("15s") or a number of seconds
func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
