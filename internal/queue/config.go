package queue

import (
	"fmt"
	"os"
	"time"
)

// Config holds queue configuration
type Config struct {
	// NATS connection settings
	URL      string
	Name     string
	User     string
	Password string

	// JetStream settings
	StreamName   string
	StreamMaxAge time.Duration
	Replicas     int

	// PublishTimeout bounds how long a session callback waits for the ack
	PublishTimeout time.Duration
}

// NewConfigFromEnv creates a new Config from environment variables
func NewConfigFromEnv() (*Config, error) {
	maxAge, err := time.ParseDuration(getEnvOrDefault("NATS_STREAM_MAX_AGE", "168h"))
	if err != nil {
		return nil, fmt.Errorf("invalid NATS_STREAM_MAX_AGE: %w", err)
	}

	timeout, err := time.ParseDuration(getEnvOrDefault("NATS_PUBLISH_TIMEOUT", "5s"))
	if err != nil {
		return nil, fmt.Errorf("invalid NATS_PUBLISH_TIMEOUT: %w", err)
	}

	return &Config{
		URL:            getEnvOrDefault("NATS_URL", "nats://localhost:4222"),
		Name:           getEnvOrDefault("NATS_NAME", "flat-client"),
		User:           os.Getenv("NATS_USER"),
		Password:       os.Getenv("NATS_PASSWORD"),
		StreamName:     getEnvOrDefault("NATS_STREAM_NAME", "FLAT_SESSION"),
		StreamMaxAge:   maxAge,
		Replicas:       1,
		PublishTimeout: timeout,
	}, nil
}

// Enabled reports whether session events should be published at all
func Enabled() bool {
	return os.Getenv("NATS_URL") != ""
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
