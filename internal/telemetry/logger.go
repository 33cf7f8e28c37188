package telemetry

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"
)

const timestampFormat = "2006-01-02T15:04:05.000Z07:00"

var (
	logger     *logrus.Logger
	loggerOnce sync.Once
	fileLogger *FileLogger
)

// InitLogger initializes the process logger. Later calls are no-ops.
func InitLogger(cfg *Config) error {
	var err error
	loggerOnce.Do(func() {
		logger = NewLogger(cfg)

		if cfg.LogsFilePath != "" {
			fileLogger, err = NewFileLogger(cfg.LogsFilePath)
			if err != nil {
				logger.WithError(err).Error("Failed to create file logger")
				return
			}
			logger.AddHook(fileLogger)
		}
	})
	return err
}

// NewLogger builds a JSON logger tagged with the service fields of cfg.
func NewLogger(cfg *Config) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	l.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: timestampFormat,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "@timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	})

	l.AddHook(&serviceFields{fields: logrus.Fields{
		"service.name":    cfg.ServiceName,
		"service.version": cfg.ServiceVersion,
		"environment":     cfg.Environment,
	}})
	return l
}

// serviceFields stamps every entry with the service identity
type serviceFields struct {
	fields logrus.Fields
}

func (h *serviceFields) Levels() []logrus.Level { return logrus.AllLevels }

func (h *serviceFields) Fire(entry *logrus.Entry) error {
	for k, v := range h.fields {
		if _, ok := entry.Data[k]; !ok {
			entry.Data[k] = v
		}
	}
	return nil
}

// FileLogger is a hook copying every entry to a JSON lines file
type FileLogger struct {
	mu      sync.Mutex
	file    *os.File
	encoder *json.Encoder
}

// NewFileLogger creates a new file logger
func NewFileLogger(filePath string) (*FileLogger, error) {
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return nil, err
	}

	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}

	return &FileLogger{file: file, encoder: json.NewEncoder(file)}, nil
}

// Levels returns the log levels this hook is interested in
func (f *FileLogger) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire is called when a log event is fired
func (f *FileLogger) Fire(entry *logrus.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data := make(map[string]interface{}, len(entry.Data)+3)
	for k, v := range entry.Data {
		if err, ok := v.(error); ok {
			v = err.Error()
		}
		data[k] = v
	}
	data["@timestamp"] = entry.Time.Format(timestampFormat)
	data["level"] = entry.Level.String()
	data["message"] = entry.Message

	return f.encoder.Encode(data)
}

// Close closes the file logger
func (f *FileLogger) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.file.Close()
}

// L returns the global logger instance
func L() *logrus.Logger {
	if logger == nil {
		return logrus.StandardLogger()
	}
	return logger
}

// WithContext adds trace information to the logger
func WithContext(ctx context.Context) *logrus.Entry {
	return L().WithContext(ctx).WithFields(TraceFields(ctx))
}

// TraceFields returns the trace and span ids of the span in ctx, or no fields
// when ctx carries no valid span.
func TraceFields(ctx context.Context) logrus.Fields {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return logrus.Fields{}
	}
	return logrus.Fields{
		"trace.id": sc.TraceID().String(),
		"span.id":  sc.SpanID().String(),
	}
}

// WithFields adds fields to the logger
func WithFields(fields logrus.Fields) *logrus.Entry {
	return L().WithFields(fields)
}

// WithError adds an error to the logger
func WithError(err error) *logrus.Entry {
	return L().WithError(err)
}

// CloseLogger closes any open resources
func CloseLogger() error {
	if fileLogger != nil {
		return fileLogger.Close()
	}
	return nil
}
