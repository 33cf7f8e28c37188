package sdk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, DefaultFlatBaseURL, config.FlatBaseURL)
	assert.Equal(t, DefaultAgoraBaseURL, config.AgoraBaseURL)
	assert.Equal(t, DefaultNetlessBaseURL, config.NetlessBaseURL)
	assert.Equal(t, 30*time.Second, config.Timeout)
	assert.Equal(t, 100, config.TransportConfig.MaxIdleConns)
	assert.NotNil(t, config.Observer)
	assert.NotNil(t, config.Logger)
	assert.NotNil(t, config.MainExecutor)
}

func TestConfig_Builders(t *testing.T) {
	metrics := NewMetricsCollector()
	config := DefaultConfig().
		WithFlatBaseURL("https://flat.test").
		WithAgoraBaseURL("https://agora.test").
		WithNetlessBaseURL("https://netless.test").
		WithTimeout(5 * time.Second).
		WithHeader("X-Region", "sg").
		WithObserver(metrics).
		WithMainExecutor(ImmediateExecutor{})

	assert.Equal(t, "https://flat.test", config.FlatBaseURL)
	assert.Equal(t, "https://agora.test", config.AgoraBaseURL)
	assert.Equal(t, "https://netless.test", config.NetlessBaseURL)
	assert.Equal(t, 5*time.Second, config.Timeout)
	assert.Equal(t, "sg", config.Headers["X-Region"])
	assert.Same(t, metrics, config.Observer)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr bool
		check   func(t *testing.T, c *Config)
	}{
		{
			name:    "missing flat url",
			config:  &Config{},
			wantErr: true,
		},
		{
			name:   "fills defaults",
			config: &Config{FlatBaseURL: "https://flat.test", Timeout: -1},
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, DefaultTimeout, c.Timeout)
				assert.Equal(t, DefaultAgoraBaseURL, c.AgoraBaseURL)
				assert.Equal(t, DefaultNetlessBaseURL, c.NetlessBaseURL)
				assert.NotNil(t, c.Observer)
				assert.NotNil(t, c.Logger)
				assert.NotNil(t, c.MainExecutor)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
			tt.check(t, tt.config)
		})
	}
}

func TestNewConfigFromEnv(t *testing.T) {
	t.Setenv("FLAT_API_URL", "https://flat-api-dev.test")
	t.Setenv("AGORA_APP_ID", "app-1")
	t.Setenv("FLAT_TIMEOUT", "12s")

	config := NewConfigFromEnv()
	assert.Equal(t, "https://flat-api-dev.test", config.FlatBaseURL)
	assert.Equal(t, "app-1", config.AgoraAppID)
	assert.Equal(t, DefaultNetlessBaseURL, config.NetlessBaseURL)
	assert.Equal(t, 12*time.Second, config.Timeout)

	t.Setenv("FLAT_TIMEOUT", "7")
	assert.Equal(t, 7*time.Second, NewConfigFromEnv().Timeout)

	t.Setenv("FLAT_TIMEOUT", "soon")
	assert.Equal(t, DefaultTimeout, NewConfigFromEnv().Timeout)
}
