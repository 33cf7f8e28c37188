package telemetry

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_ServiceFields(t *testing.T) {
	cfg := &Config{ServiceName: "flat-client", ServiceVersion: "1.2.3", Environment: "test", LogLevel: "debug"}
	l := NewLogger(cfg)
	var buf bytes.Buffer
	l.SetOutput(&buf)

	l.WithField("path", "/v1/room/join").Debug("request completed")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "flat-client", line["service.name"])
	assert.Equal(t, "1.2.3", line["service.version"])
	assert.Equal(t, "/v1/room/join", line["path"])
	assert.Equal(t, "request completed", line["message"])
	assert.Equal(t, logrus.DebugLevel, l.GetLevel())
}

func TestNewLogger_BadLevelFallsBackToInfo(t *testing.T) {
	l := NewLogger(&Config{LogLevel: "chatty"})
	assert.Equal(t, logrus.InfoLevel, l.GetLevel())
}

func TestFileLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "flat.jsonl")
	hook, err := NewFileLogger(path)
	require.NoError(t, err)

	l := logrus.New()
	l.SetOutput(&bytes.Buffer{})
	l.AddHook(hook)
	l.WithError(assert.AnError).Warn("logout failed")
	require.NoError(t, hook.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var line map[string]any
	require.NoError(t, json.Unmarshal(data, &line))
	assert.Equal(t, "warning", line["level"])
	assert.Equal(t, assert.AnError.Error(), line["error"])
}

func TestNewConfigFromEnv(t *testing.T) {
	t.Setenv("OTEL_SERVICE_NAME", "flatctl")
	t.Setenv("ENABLE_TRACING", "true")
	t.Setenv("OTEL_SAMPLING_RATE", "0.5")
	t.Setenv("METRICS_INTERVAL", "nope")

	cfg := NewConfigFromEnv()
	assert.Equal(t, "flatctl", cfg.ServiceName)
	assert.True(t, cfg.EnableTracing)
	assert.False(t, cfg.EnableMetrics)
	assert.Equal(t, 0.5, cfg.SamplingRate)
	assert.Equal(t, 10, cfg.MetricsInterval)
}
