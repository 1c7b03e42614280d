package session

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/khairulanwar/transferdesk/internal/client/models"
	"github.com/khairulanwar/transferdesk/internal/client/provider"
	"github.com/khairulanwar/transferdesk/internal/client/storage"
	"github.com/khairulanwar/transferdesk/internal/logging"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// ---- fake storage ----

// memStore implements storage.Repository in memory, with injectable
// failures for the guard's storage-error path.
type memStore struct {
	mu     sync.Mutex
	data   map[string][]byte
	getErr error
	setErr error
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]byte)}
}

func (m *memStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

func (m *memStore) Set(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *memStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memStore) Keys(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	return keys, nil
}

func (m *memStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make(map[string][]byte)
	return nil
}

func (m *memStore) Transact(ctx context.Context, fn func(storage.Repository) error) error {
	return fn(m)
}

func (m *memStore) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok
}

func (m *memStore) put(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = []byte(value)
}

// ---- fake provider ----

// fakeProvider implements provider.Client for manager tests. Delays let
// tests steer the timeout races.
type fakeProvider struct {
	mu sync.Mutex

	SignInErr   error
	SignInDelay time.Duration

	SignUpRes *provider.SignUpResult
	SignUpErr error

	SignOutErr error

	GetSessionRet   *provider.Session
	GetSessionErr   error
	GetSessionDelay time.Duration

	ProfileRet   *provider.Profile
	ProfileErr   error
	ProfileDelay time.Duration

	signInCalls  int
	signUpCalls  int
	signOutCalls int
	profileCalls int

	LastSignUp provider.SignUpParams

	cb           provider.ChangeCallback
	unsubscribed bool
}

func (f *fakeProvider) SignInWithPassword(ctx context.Context, email, password string) (*provider.Session, error) {
	f.mu.Lock()
	f.signInCalls++
	delay, err := f.SignInDelay, f.SignInErr
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return &provider.Session{AccessToken: "a", UserID: "u-1", Email: email}, nil
}

func (f *fakeProvider) SignUp(ctx context.Context, params provider.SignUpParams) (*provider.SignUpResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signUpCalls++
	f.LastSignUp = params
	if f.SignUpErr != nil {
		return nil, f.SignUpErr
	}
	if f.SignUpRes != nil {
		return f.SignUpRes, nil
	}
	return &provider.SignUpResult{UserID: "u-new"}, nil
}

func (f *fakeProvider) SignOut(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signOutCalls++
	return f.SignOutErr
}

func (f *fakeProvider) GetSession(ctx context.Context) (*provider.Session, error) {
	f.mu.Lock()
	delay := f.GetSessionDelay
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.GetSessionRet, f.GetSessionErr
}

func (f *fakeProvider) OnSessionChange(cb provider.ChangeCallback) provider.Subscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cb = cb
	return &fakeSub{provider: f}
}

func (f *fakeProvider) SelectProfile(ctx context.Context, userID string) (*provider.Profile, error) {
	f.mu.Lock()
	f.profileCalls++
	delay := f.ProfileDelay
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ProfileRet, f.ProfileErr
}

func (f *fakeProvider) ListTransfers(ctx context.Context, userID string) ([]models.TransferRecord, error) {
	return nil, nil
}

func (f *fakeProvider) InsertTransfer(ctx context.Context, rec *models.TransferRecord) (*models.TransferRecord, error) {
	return rec, nil
}

func (f *fakeProvider) DeleteTransfer(ctx context.Context, id, userID string) error {
	return nil
}

func (f *fakeProvider) Close() error { return nil }

// fire delivers a session-change event to the subscribed manager.
func (f *fakeProvider) fire(event provider.ChangeEvent, s *provider.Session) {
	f.mu.Lock()
	cb := f.cb
	f.mu.Unlock()
	if cb != nil {
		cb(event, s)
	}
}

func (f *fakeProvider) counts() (signIn, signUp, signOut, profile int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.signInCalls, f.signUpCalls, f.signOutCalls, f.profileCalls
}

type fakeSub struct {
	provider *fakeProvider
}

func (s *fakeSub) Unsubscribe() {
	s.provider.mu.Lock()
	defer s.provider.mu.Unlock()
	s.provider.cb = nil
	s.provider.unsubscribed = true
}
