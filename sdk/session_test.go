package sdk

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockStorage is a simple in-memory Storage for testing
type mockStorage struct {
	mu      sync.Mutex
	data    map[string][]byte
	deletes int
	failSet error
	failGet error
}

func newMockStorage() *mockStorage {
	return &mockStorage{data: make(map[string][]byte)}
}

func (m *mockStorage) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet != nil {
		return nil, m.failGet
	}
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *mockStorage) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSet != nil {
		return m.failSet
	}
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *mockStorage) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes++
	delete(m.data, key)
	return nil
}

func (m *mockStorage) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok
}

type countingDelegate struct {
	logins   atomic.Int32
	failures atomic.Int32
	logouts  atomic.Int32
}

func (d *countingDelegate) OnLoginSuccess(User)  { d.logins.Add(1) }
func (d *countingDelegate) OnLoginFailure(error) { d.failures.Add(1) }
func (d *countingDelegate) OnLogout()            { d.logouts.Add(1) }

var alice = User{Name: "alice", AvatarURL: "https://a.test/a.png", UserUUID: "u-alice", Token: "tok-alice"}

func TestSessionStore_Load(t *testing.T) {
	t.Run("nothing persisted", func(t *testing.T) {
		s := NewSessionStore(newMockStorage())
		require.NoError(t, s.Load(context.Background()))
		assert.False(t, s.IsAuthenticated())
	})

	t.Run("persisted user", func(t *testing.T) {
		storage := newMockStorage()
		require.NoError(t, NewSessionStore(storage).ProcessLoginSuccess(context.Background(), alice))

		s := NewSessionStore(storage)
		require.NoError(t, s.Load(context.Background()))
		user, ok := s.User()
		require.True(t, ok)
		assert.Equal(t, alice, user)
		assert.Equal(t, "tok-alice", s.Token())
	})

	t.Run("corrupt bytes start logged out", func(t *testing.T) {
		storage := newMockStorage()
		storage.data[SessionStorageKey] = []byte("{not json")

		s := NewSessionStore(storage)
		require.NoError(t, s.Load(context.Background()))
		assert.False(t, s.IsAuthenticated())
	})

	t.Run("storage failure is returned", func(t *testing.T) {
		storage := newMockStorage()
		storage.failGet = errors.New("disk gone")

		s := NewSessionStore(storage)
		assert.Error(t, s.Load(context.Background()))
		assert.False(t, s.IsAuthenticated())
	})
}

func TestSessionStore_LoginAndLogout(t *testing.T) {
	storage := newMockStorage()
	s := NewSessionStore(storage)
	d := &countingDelegate{}
	unsubscribe := s.Subscribe(d)
	defer unsubscribe()

	require.NoError(t, s.ProcessLoginSuccess(context.Background(), alice))
	assert.True(t, s.IsAuthenticated())
	assert.True(t, storage.has(SessionStorageKey))
	assert.Equal(t, int32(1), d.logins.Load())

	require.NoError(t, s.Logout(context.Background()))
	assert.False(t, s.IsAuthenticated())
	assert.False(t, storage.has(SessionStorageKey))
	assert.Equal(t, "", s.Token())
	assert.Equal(t, int32(1), d.logouts.Load())
}

func TestSessionStore_LogoutIsIdempotent(t *testing.T) {
	storage := newMockStorage()
	s := NewSessionStore(storage)
	d := &countingDelegate{}
	s.Subscribe(d)

	require.NoError(t, s.ProcessLoginSuccess(context.Background(), alice))
	require.NoError(t, s.Logout(context.Background()))
	require.NoError(t, s.Logout(context.Background()))

	assert.False(t, s.IsAuthenticated())
	assert.False(t, storage.has(SessionStorageKey))
	assert.Equal(t, int32(1), d.logouts.Load(), "second logout does not notify")
	assert.Equal(t, 2, storage.deletes)
}

func TestSessionStore_ConcurrentLogout(t *testing.T) {
	storage := newMockStorage()
	s := NewSessionStore(storage)
	d := &countingDelegate{}
	s.Subscribe(d)
	require.NoError(t, s.ProcessLoginSuccess(context.Background(), alice))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Logout(context.Background())
		}()
	}
	wg.Wait()

	assert.False(t, s.IsAuthenticated())
	assert.False(t, storage.has(SessionStorageKey))
	assert.Equal(t, int32(1), d.logouts.Load())
}

func TestSessionStore_PersistFailureKeepsUserInMemory(t *testing.T) {
	storage := newMockStorage()
	storage.failSet = errors.New("read only")
	s := NewSessionStore(storage)

	err := s.ProcessLoginSuccess(context.Background(), alice)
	assert.Error(t, err)
	assert.True(t, s.IsAuthenticated())
}

func TestSessionStore_LoginFailureAndUnsubscribe(t *testing.T) {
	s := NewSessionStore(newMockStorage())
	d := &countingDelegate{}
	unsubscribe := s.Subscribe(d)

	s.ProcessLoginFailure(errors.New("wrong password"))
	assert.Equal(t, int32(1), d.failures.Load())

	unsubscribe()
	s.ProcessLoginFailure(errors.New("wrong password"))
	assert.Equal(t, int32(1), d.failures.Load())
}

func TestSessionStore_Updates(t *testing.T) {
	storage := newMockStorage()
	s := NewSessionStore(storage)
	d := &countingDelegate{}
	s.Subscribe(d)
	ctx := context.Background()

	// updates without a user are no-ops
	require.NoError(t, s.UpdateName(ctx, "nobody"))
	assert.False(t, s.IsAuthenticated())

	require.NoError(t, s.ProcessLoginSuccess(ctx, alice))
	require.NoError(t, s.UpdateName(ctx, "alice b"))
	require.NoError(t, s.UpdateAvatar(ctx, "https://a.test/b.png"))
	require.NoError(t, s.ProcessBindPhoneSuccess(ctx))
	assert.Equal(t, int32(1), d.logins.Load(), "profile updates are not logins")

	require.NoError(t, s.UpdateToken(ctx, "tok-2"))
	assert.Equal(t, int32(2), d.logins.Load())

	reloaded := NewSessionStore(storage)
	require.NoError(t, reloaded.Load(ctx))
	user, ok := reloaded.User()
	require.True(t, ok)
	assert.Equal(t, "alice b", user.Name)
	assert.Equal(t, "https://a.test/b.png", user.AvatarURL)
	assert.True(t, user.HasPhone)
	assert.Equal(t, "tok-2", user.Token)
}

func TestKnownAccounts(t *testing.T) {
	storage := newMockStorage()
	accounts := NewKnownAccounts(storage)
	s := NewSessionStore(storage, WithKnownAccounts(accounts))
	ctx := context.Background()

	for i := 0; i < MaxKnownAccounts+3; i++ {
		u := User{UserUUID: string(rune('a' + i)), Token: "t"}
		require.NoError(t, s.ProcessLoginSuccess(ctx, u))
	}
	require.NoError(t, s.ProcessLoginSuccess(ctx, User{UserUUID: "e", Name: "again"}))

	list, err := accounts.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, MaxKnownAccounts)
	assert.Equal(t, "e", list[0].UserUUID)
	assert.Equal(t, "again", list[0].Name)

	seen := map[string]bool{}
	for _, u := range list {
		assert.False(t, seen[u.UserUUID], "duplicate %s", u.UserUUID)
		seen[u.UserUUID] = true
	}
}
