// Package session owns the authenticated-user state: it runs the version
// guard, follows the provider's session-change stream, resolves the display
// profile and exposes login, register and logout with local validation and
// timeouts. Everything downstream consumes the derived View.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/khairulanwar/transferdesk/internal/client/models"
	"github.com/khairulanwar/transferdesk/internal/client/provider"
	"github.com/khairulanwar/transferdesk/internal/client/storage"
	"github.com/khairulanwar/transferdesk/internal/logging"
	"github.com/khairulanwar/transferdesk/internal/racex"
)

const (
	loginFailedMsg    = "Login failed. Please try again."
	registerFailedMsg = "Registration failed. Please try again."
)

// Config carries the manager's timeouts. Zero fields get the production
// defaults; tests shrink them.
type Config struct {
	// SessionTimeout bounds the initial session request: when it fires the
	// view stops loading no matter what, so the UI never hangs on a slow
	// provider.
	SessionTimeout time.Duration
	// ProfileTimeout bounds the display-name lookup after a session event.
	ProfileTimeout time.Duration
	// AuthTimeout bounds login and register calls.
	AuthTimeout time.Duration
	// SignOutTimeout bounds the provider sign-out during logout.
	SignOutTimeout time.Duration
	// RedirectTo is passed to the provider as the post-confirmation target.
	RedirectTo string
	// SpecialChars is the accepted special-character set for passwords.
	SpecialChars string
}

func (c Config) withDefaults() Config {
	if c.SessionTimeout <= 0 {
		c.SessionTimeout = 5 * time.Second
	}
	if c.ProfileTimeout <= 0 {
		c.ProfileTimeout = 3 * time.Second
	}
	if c.AuthTimeout <= 0 {
		c.AuthTimeout = 30 * time.Second
	}
	if c.SignOutTimeout <= 0 {
		c.SignOutTimeout = 5 * time.Second
	}
	if c.SpecialChars == "" {
		c.SpecialChars = defaultSpecialChars
	}
	return c
}

// View is the derived state handed to the UI: Loading is true only until the
// first session resolution settles, User is present exactly when a session
// is live.
type View struct {
	User    *models.AuthenticatedUser
	Loading bool
}

// Source is the read side of the Manager, consumed by the transfer store and
// the navigation gate.
type Source interface {
	View() View
	Subscribe(fn func(View)) (unsubscribe func())
}

// draftKeys are the locally cached domain drafts removed on logout.
var draftKeys = []string{
	storage.KeyTransferDraft,
	storage.KeyReportDraft,
	storage.KeyEditTransferDraft,
}

// Manager is the auth core. Its state is mutated only by the session-change
// handler and the three public operations; every asynchronous continuation
// checks liveness and a per-event sequence number before applying, so a
// straggling profile fetch can never overwrite a later event's outcome.
type Manager struct {
	provider provider.Client
	store    storage.Repository
	log      logging.Logger
	cfg      Config

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	user     *models.AuthenticatedUser
	session  *provider.Session
	loading  bool
	alive    bool
	seq      uint64
	pub      uint64
	watchers map[int]func(View)
	nextW    int

	sub      provider.Subscription
	fallback *time.Timer

	// notifyMu serializes watcher delivery; delivered is the stamp of the
	// newest snapshot handed out, guarded by notifyMu.
	notifyMu  sync.Mutex
	delivered uint64
}

// NewManager wires the auth core: it runs the version guard (forcing a
// provider sign-out when a wipe happened), subscribes to the session-change
// stream and requests the current session once, bounded by the fallback
// timer.
func NewManager(ctx context.Context, client provider.Client, store storage.Repository, guard *Guard, log logging.Logger, cfg Config) *Manager {
	cfg = cfg.withDefaults()

	m := &Manager{
		provider: client,
		store:    store,
		log:      log,
		cfg:      cfg,
		loading:  true,
		alive:    true,
		watchers: make(map[int]func(View)),
	}
	m.ctx, m.cancel = context.WithCancel(ctx)

	if guard.CheckAndCleanup(ctx) {
		// A stale provider session must not outlive the wipe.
		if err := racex.Do(ctx, cfg.SignOutTimeout, client.SignOut); err != nil {
			log.Warn(ctx, "post-cleanup sign-out failed", "err", err)
		}
	}

	m.sub = client.OnSessionChange(m.handleSessionChange)
	m.fallback = time.AfterFunc(cfg.SessionTimeout, m.forceLoaded)
	go m.loadInitialSession()

	return m
}

// Close tears the manager down: the subscription and fallback timer are
// released and any in-flight continuation is discarded via the liveness flag.
func (m *Manager) Close() {
	m.mu.Lock()
	if !m.alive {
		m.mu.Unlock()
		return
	}
	m.alive = false
	m.mu.Unlock()

	m.cancel()
	m.fallback.Stop()
	m.sub.Unsubscribe()
}

// View returns a snapshot of the derived auth state.
func (m *Manager) View() View {
	m.mu.Lock()
	defer m.mu.Unlock()
	return View{User: m.user, Loading: m.loading}
}

// Subscribe registers fn to run after every view change and returns its
// remove handle.
func (m *Manager) Subscribe(fn func(View)) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextW
	m.nextW++
	m.watchers[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.watchers, id)
		m.mu.Unlock()
	}
}

func (m *Manager) loadInitialSession() {
	s, err := m.provider.GetSession(m.ctx)
	if err != nil {
		m.log.Warn(m.ctx, "initial session request failed", "err", err)
	}
	m.handleSessionChange(provider.EventSignedIn, s)
}

// handleSessionChange is the single entry point for provider-pushed state.
// Each delivery claims a fresh sequence number; the winner is always the
// latest delivered event.
func (m *Manager) handleSessionChange(_ provider.ChangeEvent, s *provider.Session) {
	m.mu.Lock()
	if !m.alive {
		m.mu.Unlock()
		return
	}
	m.seq++
	seq := m.seq
	m.mu.Unlock()

	if s == nil {
		m.apply(seq, nil, nil)
		return
	}
	go m.resolveUser(seq, s)
}

// resolveUser races the profile lookup against its timeout and applies the
// Authenticated state with the profile name, or the session email when the
// lookup lost the race or found no row.
func (m *Manager) resolveUser(seq uint64, s *provider.Session) {
	name := s.Email
	profile, err := racex.Run(m.ctx, m.cfg.ProfileTimeout, func(ctx context.Context) (*provider.Profile, error) {
		return m.provider.SelectProfile(ctx, s.UserID)
	})
	switch {
	case err != nil:
		m.log.Warn(m.ctx, "profile lookup failed, falling back to email", "user", s.UserID, "err", err)
	case profile != nil && strings.TrimSpace(profile.DisplayName) != "":
		name = strings.TrimSpace(profile.DisplayName)
	}

	m.apply(seq, &models.AuthenticatedUser{ID: s.UserID, Email: s.Email, DisplayName: name}, s)
}

// apply installs the outcome of event seq unless torn down or superseded.
func (m *Manager) apply(seq uint64, user *models.AuthenticatedUser, s *provider.Session) {
	m.mu.Lock()
	if !m.alive || seq != m.seq {
		m.mu.Unlock()
		return
	}
	m.user = user
	m.session = s
	m.loading = false
	stamp, view, fns := m.snapshotLocked()
	m.mu.Unlock()

	m.notify(stamp, view, fns)
}

// forceLoaded is the fallback timer's action: stop reporting Loading even
// though the initial session request never settled.
func (m *Manager) forceLoaded() {
	m.mu.Lock()
	if !m.alive || !m.loading {
		m.mu.Unlock()
		return
	}
	m.loading = false
	stamp, view, fns := m.snapshotLocked()
	m.mu.Unlock()

	m.log.Warn(m.ctx, "session resolution timed out, showing signed-out state")
	m.notify(stamp, view, fns)
}

// snapshotLocked captures the current view, the watcher list and a fresh
// delivery stamp. Caller holds mu.
func (m *Manager) snapshotLocked() (uint64, View, []func(View)) {
	m.pub++
	view := View{User: m.user, Loading: m.loading}
	fns := make([]func(View), 0, len(m.watchers))
	for _, fn := range m.watchers {
		fns = append(fns, fn)
	}
	return m.pub, view, fns
}

// notify hands one snapshot to the watchers. Delivery is serialized and a
// snapshot stamped before one already delivered is dropped, so watchers see
// view changes in publication order even when two publishers race between
// releasing mu and running their callback loops.
func (m *Manager) notify(stamp uint64, view View, fns []func(View)) {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()
	if stamp <= m.delivered {
		return
	}
	m.delivered = stamp
	for _, fn := range fns {
		fn(view)
	}
}

// Login validates and normalizes the email locally, then races the provider
// sign-in against the auth timeout. It never panics and never touches the
// loading flag: authentication state flows exclusively through the
// session-change stream.
func (m *Manager) Login(ctx context.Context, email, password string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error(ctx, "login panicked", "panic", r)
			err = &Error{Kind: KindProvider, Detail: loginFailedMsg}
		}
	}()

	email = normalizeEmail(email)
	if !validEmail(email) {
		return validationError("Please enter a valid email address.")
	}

	_, err = racex.Run(ctx, m.cfg.AuthTimeout, func(ctx context.Context) (*provider.Session, error) {
		return m.provider.SignInWithPassword(ctx, email, password)
	})
	if err != nil {
		return m.authFailure(ctx, "login", err, loginFailedMsg)
	}
	return nil
}

// Register validates email, name and password locally, then races the
// provider sign-up against the auth timeout. confirmationRequired is true
// when the provider created the identity but withheld the session; the
// caller stays unauthenticated until the session-change stream says
// otherwise.
func (m *Manager) Register(ctx context.Context, email, password, name string) (confirmationRequired bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error(ctx, "register panicked", "panic", r)
			confirmationRequired = false
			err = &Error{Kind: KindProvider, Detail: registerFailedMsg}
		}
	}()

	email = normalizeEmail(email)
	if !validEmail(email) {
		return false, validationError("Please enter a valid email address.")
	}
	name, ok := validateName(name)
	if !ok {
		return false, validationError("Name must be between 2 and 50 characters.")
	}
	if !validatePassword(password, m.cfg.SpecialChars) {
		return false, validationError("Password must be at least 8 characters and include uppercase, lowercase, a digit and a special character.")
	}

	res, err := racex.Run(ctx, m.cfg.AuthTimeout, func(ctx context.Context) (*provider.SignUpResult, error) {
		return m.provider.SignUp(ctx, provider.SignUpParams{
			Email:      email,
			Password:   password,
			Name:       name,
			RedirectTo: m.cfg.RedirectTo,
		})
	})
	if err != nil {
		return false, m.authFailure(ctx, "register", err, registerFailedMsg)
	}
	return res.Session == nil, nil
}

// Logout clears the local auth state synchronously, removes the cached
// domain drafts and then attempts the provider sign-out. Nothing after the
// local clear can re-authenticate the user or surface an error.
func (m *Manager) Logout(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error(ctx, "logout panicked", "panic", r)
		}
	}()

	m.mu.Lock()
	if !m.alive {
		m.mu.Unlock()
		return
	}
	m.seq++ // supersede any in-flight resolution
	m.user = nil
	m.session = nil
	m.loading = false
	stamp, view, fns := m.snapshotLocked()
	m.mu.Unlock()

	m.notify(stamp, view, fns)

	for _, key := range draftKeys {
		if err := m.store.Delete(ctx, key); err != nil {
			m.log.Warn(ctx, "failed to remove draft on logout", "key", key, "err", err)
		}
	}

	if err := racex.Do(ctx, m.cfg.SignOutTimeout, m.provider.SignOut); err != nil {
		m.log.Warn(ctx, "provider sign-out failed", "err", err)
	}
}

// authFailure converts a sign-in/sign-up error into the typed, user-facing
// form. Known provider phrases are remapped, timeouts become the generic
// failure message and nothing else leaks through.
func (m *Manager) authFailure(ctx context.Context, op string, err error, generic string) *Error {
	if errors.Is(err, racex.ErrTimedOut) {
		m.log.Warn(ctx, op+" timed out")
		return &Error{Kind: KindTimeout, Detail: generic}
	}
	if pe, ok := provider.AsProviderError(err); ok {
		return &Error{Kind: KindProvider, Detail: friendlyProviderMessage(pe.Message)}
	}
	m.log.Warn(ctx, op+" failed", "err", err)
	return &Error{Kind: KindProvider, Detail: generic}
}
