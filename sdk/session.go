package sdk

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
)

// SessionStorageKey is the storage key of the persisted user.
const SessionStorageKey = "AuthStore_user"

// ErrNotFound is returned by Storage.Get when the key is absent.
var ErrNotFound = errors.New("key not found")

// User is the authenticated account.
type User struct {
	Name      string `json:"name"`
	AvatarURL string `json:"avatar"`
	UserUUID  string `json:"userUUID"`
	Token     string `json:"token"`
	HasPhone  bool   `json:"hasPhone,omitempty"`
}

// Storage persists opaque bytes under string keys.
// Implementations live in internal/kvstore.
type Storage interface {
	// Get returns ErrNotFound when key is absent
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	// Delete succeeds when key is already absent
	Delete(ctx context.Context, key string) error
}

// SessionDelegate receives session changes. Callbacks run on the goroutine that
// caused the change, after the store's lock has been released.
type SessionDelegate interface {
	OnLoginSuccess(user User)
	OnLoginFailure(err error)
	OnLogout()
}

// SessionDelegateFuncs adapts optional functions to SessionDelegate.
type SessionDelegateFuncs struct {
	LoginSuccess func(User)
	LoginFailure func(error)
	Logout       func()
}

// OnLoginSuccess implements SessionDelegate
func (f SessionDelegateFuncs) OnLoginSuccess(user User) {
	if f.LoginSuccess != nil {
		f.LoginSuccess(user)
	}
}

// OnLoginFailure implements SessionDelegate
func (f SessionDelegateFuncs) OnLoginFailure(err error) {
	if f.LoginFailure != nil {
		f.LoginFailure(err)
	}
}

// OnLogout implements SessionDelegate
func (f SessionDelegateFuncs) OnLogout() {
	if f.Logout != nil {
		f.Logout()
	}
}

// SessionStore holds the authentication state of the process. Every mutation
// replaces or clears the whole user under one lock, so a logout triggered by an
// expired token can race with a logout from the user without corrupting the
// persisted state.
type SessionStore struct {
	mu       sync.Mutex
	user     *User
	storage  Storage
	accounts *KnownAccounts
	logger   logrus.FieldLogger

	subsMu sync.RWMutex
	subs   map[uint64]SessionDelegate
	nextID uint64
}

// SessionOption configures a SessionStore.
type SessionOption func(*SessionStore)

// WithSessionLogger sets the logger of the store.
func WithSessionLogger(logger logrus.FieldLogger) SessionOption {
	return func(s *SessionStore) {
		s.logger = logger
	}
}

// WithKnownAccounts records every successful login in accounts.
func WithKnownAccounts(accounts *KnownAccounts) SessionOption {
	return func(s *SessionStore) {
		s.accounts = accounts
	}
}

// NewSessionStore creates an empty store persisting to storage.
// Call Load to restore a previous session.
func NewSessionStore(storage Storage, opts ...SessionOption) *SessionStore {
	s := &SessionStore{
		storage: storage,
		logger:  logrus.StandardLogger(),
		subs:    make(map[uint64]SessionDelegate),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load restores the persisted user. Missing or undecodable bytes leave the
// store logged out; only storage failures are returned.
func (s *SessionStore) Load(ctx context.Context) error {
	data, err := s.storage.Get(ctx, SessionStorageKey)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		s.logger.WithError(err).Warn("failed to read persisted session")
		return err
	}

	var user User
	if err := json.Unmarshal(data, &user); err != nil {
		s.logger.WithError(err).Warn("decode user error, starting logged out")
		return nil
	}

	s.mu.Lock()
	s.user = &user
	s.mu.Unlock()
	return nil
}

// IsAuthenticated reports whether a user is present.
func (s *SessionStore) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user != nil
}

// User returns a copy of the current user.
func (s *SessionStore) User() (User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return User{}, false
	}
	return *s.user, true
}

// Token returns the auth token of the current user, or "" when logged out.
// It implements TokenSource for the Flat backend.
func (s *SessionStore) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return ""
	}
	return s.user.Token
}

// ProcessLoginSuccess replaces the user, persists it and notifies delegates.
// The in-memory user is replaced even when persisting fails; the error is returned.
func (s *SessionStore) ProcessLoginSuccess(ctx context.Context, user User) error {
	err := s.replace(ctx, user)
	if s.accounts != nil {
		if accErr := s.accounts.Record(ctx, user); accErr != nil {
			s.logger.WithError(accErr).Warn("failed to record known account")
		}
	}
	s.logger.WithField("user_uuid", user.UserUUID).Info("login success")
	s.notify(func(d SessionDelegate) { d.OnLoginSuccess(user) })
	return err
}

// ProcessLoginFailure notifies delegates that a login attempt failed.
func (s *SessionStore) ProcessLoginFailure(err error) {
	s.logger.WithError(err).Warn("login failed")
	s.notify(func(d SessionDelegate) { d.OnLoginFailure(err) })
}

// UpdateName changes the name of the current user without notifying a login.
func (s *SessionStore) UpdateName(ctx context.Context, name string) error {
	return s.update(ctx, func(u *User) { u.Name = name })
}

// UpdateAvatar changes the avatar of the current user without notifying a login.
func (s *SessionStore) UpdateAvatar(ctx context.Context, avatarURL string) error {
	return s.update(ctx, func(u *User) { u.AvatarURL = avatarURL })
}

// ProcessBindPhoneSuccess marks the current user as having a phone.
func (s *SessionStore) ProcessBindPhoneSuccess(ctx context.Context) error {
	return s.update(ctx, func(u *User) { u.HasPhone = true })
}

// UpdateToken replaces the token of the current user and notifies a login,
// since the credentials changed.
func (s *SessionStore) UpdateToken(ctx context.Context, token string) error {
	user, ok := s.User()
	if !ok {
		return nil
	}
	user.Token = token
	return s.ProcessLoginSuccess(ctx, user)
}

// Logout clears the user, deletes the persisted bytes and notifies delegates.
// It is idempotent: when already logged out the persisted key is still deleted
// but delegates are not notified again.
func (s *SessionStore) Logout(ctx context.Context) error {
	s.mu.Lock()
	wasAuthenticated := s.user != nil
	s.user = nil
	err := s.storage.Delete(ctx, SessionStorageKey)
	s.mu.Unlock()

	if err != nil {
		s.logger.WithError(err).Error("failed to delete persisted session")
	}
	if !wasAuthenticated {
		return err
	}
	s.logger.Info("logout")
	s.notify(func(d SessionDelegate) { d.OnLogout() })
	return err
}

// Subscribe registers a delegate and returns the function that removes it.
func (s *SessionStore) Subscribe(d SessionDelegate) func() {
	s.subsMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = d
	s.subsMu.Unlock()

	return func() {
		s.subsMu.Lock()
		delete(s.subs, id)
		s.subsMu.Unlock()
	}
}

func (s *SessionStore) replace(ctx context.Context, user User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return encodeError(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = &user
	if err := s.storage.Set(ctx, SessionStorageKey, data); err != nil {
		s.logger.WithError(err).Error("encode user error, session not persisted")
		return err
	}
	return nil
}

func (s *SessionStore) update(ctx context.Context, fn func(*User)) error {
	user, ok := s.User()
	if !ok {
		return nil
	}
	fn(&user)
	return s.replace(ctx, user)
}

func (s *SessionStore) notify(fn func(SessionDelegate)) {
	s.subsMu.RLock()
	delegates := make([]SessionDelegate, 0, len(s.subs))
	for _, d := range s.subs {
		delegates = append(delegates, d)
	}
	s.subsMu.RUnlock()

	for _, d := range delegates {
		fn(d)
	}
}
