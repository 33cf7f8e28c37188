// Package kvstore provides the byte stores the session store persists into.
//
// Every backend implements sdk.Storage and reports a missing key as
// sdk.ErrNotFound.
package kvstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/birbparty/flat-client/internal/telemetry"
	"github.com/birbparty/flat-client/sdk"
	"github.com/sirupsen/logrus"
)

// Store is a closable sdk.Storage
type Store interface {
	sdk.Storage
	Close() error
}

// ErrUnknownBackend is returned by New for an unsupported Backend
var ErrUnknownBackend = errors.New("unknown storage backend")

// New opens the backend selected by cfg, wrapped with metrics and logging.
func New(ctx context.Context, cfg *Config, metrics *telemetry.Metrics, logger logrus.FieldLogger) (Store, error) {
	var (
		store Store
		err   error
	)

	switch cfg.Backend {
	case BackendMemory, "":
		store = NewMemoryStore()
	case BackendKeyring:
		store = NewKeyringStore(cfg.Keyring)
	case BackendRedis:
		store, err = NewRedisStore(ctx, cfg.Redis)
	case BackendPostgres:
		store, err = NewPostgresStore(ctx, cfg.Postgres)
	case BackendSQLite:
		store, err = NewSQLiteStore(ctx, cfg.SQLite)
	case BackendSpaces:
		store, err = NewSpacesStore(cfg.Spaces)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Backend, err)
	}

	if cfg.Namespace != "" {
		store = &namespaced{Store: store, prefix: cfg.Namespace + ":"}
	}
	return Instrument(store, string(cfg.Backend), metrics, logger), nil
}

type namespaced struct {
	Store
	prefix string
}

func (n *namespaced) Get(ctx context.Context, key string) ([]byte, error) {
	return n.Store.Get(ctx, n.prefix+key)
}

func (n *namespaced) Set(ctx context.Context, key string, value []byte) error {
	return n.Store.Set(ctx, n.prefix+key, value)
}

func (n *namespaced) Delete(ctx context.Context, key string) error {
	return n.Store.Delete(ctx, n.prefix+key)
}

// instrumented records operation timings and logs failures
type instrumented struct {
	Store
	backend string
	metrics *telemetry.Metrics
	logger  logrus.FieldLogger
}

// Instrument wraps store so each call is timed into metrics and failures are
// logged. A nil metrics or logger disables that half.
func Instrument(store Store, backend string, metrics *telemetry.Metrics, logger logrus.FieldLogger) Store {
	if metrics == nil && logger == nil {
		return store
	}
	return &instrumented{Store: store, backend: backend, metrics: metrics, logger: logger}
}

func (s *instrumented) Get(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()
	value, err := s.Store.Get(ctx, key)
	// a missing key is an answer, not a failure
	if errors.Is(err, sdk.ErrNotFound) {
		s.record(ctx, "get", key, nil, start)
	} else {
		s.record(ctx, "get", key, err, start)
	}
	return value, err
}

func (s *instrumented) Set(ctx context.Context, key string, value []byte) error {
	start := time.Now()
	err := s.Store.Set(ctx, key, value)
	s.record(ctx, "set", key, err, start)
	return err
}

func (s *instrumented) Delete(ctx context.Context, key string) error {
	start := time.Now()
	err := s.Store.Delete(ctx, key)
	s.record(ctx, "delete", key, err, start)
	return err
}

func (s *instrumented) record(ctx context.Context, op, key string, err error, start time.Time) {
	if s.metrics != nil {
		s.metrics.RecordStorageOperation(s.backend, op, err, time.Since(start))
	}
	if err != nil && s.logger != nil {
		s.logger.WithFields(telemetry.TraceFields(ctx)).WithFields(logrus.Fields{
			"backend":   s.backend,
			"operation": op,
			"key":       key,
		}).WithError(err).Warn("Session storage operation failed")
	}
}
