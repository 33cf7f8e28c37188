package kvstore

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/birbparty/flat-client/internal/telemetry"
	"github.com/birbparty/flat-client/internal/testutil"
	"github.com/birbparty/flat-client/sdk"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	zkr "github.com/zalando/go-keyring"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// exerciseStore runs the behavior every backend shares
func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	_, err := store.Get(ctx, sdk.SessionStorageKey)
	require.ErrorIs(t, err, sdk.ErrNotFound)

	require.NoError(t, store.Set(ctx, sdk.SessionStorageKey, []byte(`{"userUUID":"u1"}`)))
	got, err := store.Get(ctx, sdk.SessionStorageKey)
	require.NoError(t, err)
	assert.JSONEq(t, `{"userUUID":"u1"}`, string(got))

	require.NoError(t, store.Set(ctx, sdk.SessionStorageKey, []byte(`{"userUUID":"u2"}`)))
	got, err = store.Get(ctx, sdk.SessionStorageKey)
	require.NoError(t, err)
	assert.JSONEq(t, `{"userUUID":"u2"}`, string(got))

	require.NoError(t, store.Delete(ctx, sdk.SessionStorageKey))
	_, err = store.Get(ctx, sdk.SessionStorageKey)
	assert.ErrorIs(t, err, sdk.ErrNotFound)

	// deleting twice is fine, logout relies on it
	assert.NoError(t, store.Delete(ctx, sdk.SessionStorageKey))
}

// exerciseSessionStore checks a backend behind the real session store
func exerciseSessionStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()
	user := sdk.User{Name: "alice", UserUUID: "u-alice", Token: "tok"}

	require.NoError(t, sdk.NewSessionStore(store).ProcessLoginSuccess(ctx, user))

	reloaded := sdk.NewSessionStore(store)
	require.NoError(t, reloaded.Load(ctx))
	got, ok := reloaded.User()
	require.True(t, ok)
	assert.Equal(t, user, got)

	require.NoError(t, reloaded.Logout(ctx))
	require.NoError(t, sdk.NewSessionStore(store).Load(ctx))
	assert.False(t, sdk.NewSessionStore(store).IsAuthenticated())
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
	exerciseSessionStore(t, NewMemoryStore())
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	value := []byte("abc")
	require.NoError(t, store.Set(ctx, "k", value))
	value[0] = 'x'

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.db")
	store, err := NewSQLiteStore(context.Background(), SQLiteConfig{Path: path})
	require.NoError(t, err)
	defer store.Close()

	exerciseStore(t, store)
	exerciseSessionStore(t, store)

	// survives reopen
	require.NoError(t, store.Set(context.Background(), "k", []byte("v")))
	require.NoError(t, store.Close())
	reopened, err := NewSQLiteStore(context.Background(), SQLiteConfig{Path: path})
	require.NoError(t, err)
	defer reopened.Close()
	got, err := reopened.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(got))
}

func TestKeyringStore(t *testing.T) {
	zkr.MockInit()
	store := NewKeyringStore(KeyringConfig{Service: "flat-client-test"})

	exerciseStore(t, store)
	exerciseSessionStore(t, store)

	t.Run("backend failure", func(t *testing.T) {
		zkr.MockInitWithError(errors.New("locked"))
		defer zkr.MockInit()
		_, err := store.Get(context.Background(), "k")
		require.Error(t, err)
		assert.NotErrorIs(t, err, sdk.ErrNotFound)
	})
}

// fakeSpaces is a path-style S3 endpoint holding objects in memory
func fakeSpaces(t *testing.T) *httptest.Server {
	t.Helper()
	var mu sync.Mutex
	objects := map[string][]byte{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()

		switch r.Method {
		case http.MethodPut:
			data, _ := io.ReadAll(r.Body)
			objects[r.URL.Path] = data
		case http.MethodGet:
			data, ok := objects[r.URL.Path]
			if !ok {
				w.Header().Set("Content-Type", "application/xml")
				w.WriteHeader(http.StatusNotFound)
				_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`)
				return
			}
			_, _ = w.Write(data)
		case http.MethodDelete:
			delete(objects, r.URL.Path)
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestSpacesStore(t *testing.T) {
	server := fakeSpaces(t)
	store, err := NewSpacesStore(SpacesConfig{
		Endpoint:  server.URL,
		Region:    "us-east-1",
		Bucket:    "flat",
		AccessKey: "key",
		SecretKey: "secret",
		Prefix:    "sessions/",
		PathStyle: true,
	})
	require.NoError(t, err)

	exerciseStore(t, store)
	exerciseSessionStore(t, store)
}

func TestNewSpacesStore_RequiresBucket(t *testing.T) {
	_, err := NewSpacesStore(SpacesConfig{Region: "us-east-1"})
	assert.Error(t, err)
}

func TestRedisStore(t *testing.T) {
	testutil.SkipIfShort(t)
	host, port := testutil.StartRedis(t)

	store, err := NewRedisStore(context.Background(), RedisConfig{Host: host, Port: port})
	require.NoError(t, err)
	defer store.Close()

	exerciseStore(t, store)
	exerciseSessionStore(t, store)
}

func TestPostgresStore(t *testing.T) {
	testutil.SkipIfShort(t)
	url := testutil.StartPostgres(t)

	store, err := NewPostgresStore(context.Background(), PostgresConfig{URL: url, Table: "sessions"})
	require.NoError(t, err)
	defer store.Close()

	exerciseStore(t, store)
	exerciseSessionStore(t, store)
}

func TestNew(t *testing.T) {
	metrics := telemetry.NewMetrics(prometheus.NewRegistry())
	logger, _ := test.NewNullLogger()

	t.Run("memory with namespace", func(t *testing.T) {
		store, err := New(context.Background(), &Config{Backend: BackendMemory, Namespace: "work"}, metrics, logger)
		require.NoError(t, err)
		exerciseStore(t, store)
	})

	t.Run("namespaces are isolated", func(t *testing.T) {
		inner := NewMemoryStore()
		a := &namespaced{Store: inner, prefix: "a:"}
		b := &namespaced{Store: inner, prefix: "b:"}
		ctx := context.Background()

		require.NoError(t, a.Set(ctx, "k", []byte("1")))
		_, err := b.Get(ctx, "k")
		assert.ErrorIs(t, err, sdk.ErrNotFound)
		_, err = inner.Get(ctx, "a:k")
		assert.NoError(t, err)
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := New(context.Background(), &Config{Backend: "floppy"}, nil, nil)
		assert.ErrorIs(t, err, ErrUnknownBackend)
	})

	t.Run("sqlite", func(t *testing.T) {
		cfg := &Config{Backend: BackendSQLite, SQLite: SQLiteConfig{Path: filepath.Join(t.TempDir(), "s.db")}}
		store, err := New(context.Background(), cfg, nil, nil)
		require.NoError(t, err)
		defer store.Close()
		exerciseStore(t, store)
	})
}

type failingStore struct{ *MemoryStore }

func (failingStore) Set(context.Context, string, []byte) error { return errors.New("disk full") }

func TestInstrument(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics(reg)
	logger, hook := test.NewNullLogger()
	store := Instrument(failingStore{NewMemoryStore()}, "memory", metrics, logger)
	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	require.ErrorIs(t, err, sdk.ErrNotFound)
	assert.Empty(t, hook.AllEntries(), "a missing key is not logged")

	require.Error(t, store.Set(ctx, "k", []byte("v")))
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, "set", entry.Data["operation"])

	families, err := reg.Gather()
	require.NoError(t, err)
	var found bool
	for _, mf := range families {
		if mf.GetName() == "flat_session_storage_operation_duration_seconds" {
			found = true
			assert.Len(t, mf.GetMetric(), 2)
		}
	}
	assert.True(t, found)

	_, plain := Instrument(NewMemoryStore(), "memory", nil, nil).(*MemoryStore)
	assert.True(t, plain, "nothing to record, nothing wrapped")
}

func TestInstrument_EntryLoggerCarriesTrace(t *testing.T) {
	logger, hook := test.NewNullLogger()
	store := Instrument(failingStore{NewMemoryStore()}, "memory", nil, logger.WithField("component", "session"))

	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()
	ctx, span := tp.Tracer("kvstore-test").Start(context.Background(), "save session")
	defer span.End()

	require.Error(t, store.Set(ctx, "k", []byte("v")))
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "session", entry.Data["component"])
	assert.Equal(t, span.SpanContext().TraceID().String(), entry.Data["trace.id"])
	assert.Equal(t, span.SpanContext().SpanID().String(), entry.Data["span.id"])

	require.Error(t, store.Set(context.Background(), "k", []byte("v")))
	assert.NotContains(t, hook.LastEntry().Data, "trace.id")
}

func TestNewConfigFromEnv(t *testing.T) {
	t.Setenv("FLAT_SESSION_BACKEND", "redis")
	t.Setenv("REDIS_HOST", "cache.internal")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("FLAT_SESSION_TTL", "3600")

	cfg, err := NewConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, BackendRedis, cfg.Backend)
	assert.Equal(t, "cache.internal:6380", cfg.Redis.Address())
	assert.Equal(t, float64(3600), cfg.Redis.TTL.Seconds())

	t.Setenv("REDIS_PORT", "not-a-port")
	_, err = NewConfigFromEnv()
	assert.Error(t, err)
}
