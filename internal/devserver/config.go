package devserver

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds the dev server configuration
type Config struct {
	Host string
	Port int

	// Credentials accepted by both login routes
	Phone    string
	Email    string
	Password string

	// RoomCount seeds the room list, spread over pages of 50
	RoomCount int

	AgoraAppID string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	port, err := strconv.Atoi(getEnvOrDefault("DEVSERVER_PORT", "8787"))
	if err != nil {
		return nil, fmt.Errorf("invalid DEVSERVER_PORT: %w", err)
	}

	rooms, err := strconv.Atoi(getEnvOrDefault("DEVSERVER_ROOMS", "120"))
	if err != nil {
		return nil, fmt.Errorf("invalid DEVSERVER_ROOMS: %w", err)
	}

	cfg := &Config{
		Host:       getEnvOrDefault("DEVSERVER_HOST", "127.0.0.1"),
		Port:       port,
		Phone:      getEnvOrDefault("DEVSERVER_PHONE", "+8613800000000"),
		Email:      getEnvOrDefault("DEVSERVER_EMAIL", "dev@flat.test"),
		Password:   getEnvOrDefault("DEVSERVER_PASSWORD", "flat-dev"),
		RoomCount:  rooms,
		AgoraAppID: getEnvOrDefault("AGORA_APP_ID", "dev-app"),
	}
	return cfg, cfg.Validate()
}

// Validate checks the configuration
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.Password == "" {
		return fmt.Errorf("password is required")
	}
	if c.RoomCount < 0 {
		return fmt.Errorf("invalid room count: %d", c.RoomCount)
	}
	return nil
}

// Address returns the listen address
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
