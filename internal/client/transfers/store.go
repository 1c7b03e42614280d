// Package transfers keeps the per-user cache of fabricated transfer records
// in sync with the provider's row-level-secured store. The cache follows the
// session manager's view: it is rebuilt whenever the owning user changes and
// cleared when no user is signed in.
package transfers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/khairulanwar/transferdesk/internal/client/models"
	"github.com/khairulanwar/transferdesk/internal/client/provider"
	"github.com/khairulanwar/transferdesk/internal/client/session"
	"github.com/khairulanwar/transferdesk/internal/client/storage"
	"github.com/khairulanwar/transferdesk/internal/logging"
	"github.com/khairulanwar/transferdesk/internal/racex"
)

// ErrNotAuthenticated is returned by Add when no user is signed in. No
// provider call is made in that case.
var ErrNotAuthenticated = errors.New("transfers: not authenticated")

// Config carries the store's timeouts and the per-transfer amount cap.
type Config struct {
	ListTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxAmountCents int64
}

func (c Config) withDefaults() Config {
	if c.ListTimeout <= 0 {
		c.ListTimeout = 10 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.MaxAmountCents <= 0 {
		c.MaxAmountCents = models.MaxAmountCents
	}
	return c
}

// Store is the transfer history cache. All access to the record list goes
// through the mutex; continuations of timed provider calls re-check the
// owner and liveness before touching the cache, so a straggling response
// from a previous user can never leak into the next one's view.
type Store struct {
	provider provider.Client
	manager  session.Source
	local    storage.Repository
	log      logging.Logger
	cfg      Config

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	ownerID string
	records []models.TransferRecord
	alive   bool

	unsubscribe func()
}

// NewStore builds the cache and subscribes it to the session manager's view
// so owner changes trigger a reload (or a clear on sign-out).
func NewStore(ctx context.Context, client provider.Client, manager session.Source, local storage.Repository, log logging.Logger, cfg Config) *Store {
	s := &Store{
		provider: client,
		manager:  manager,
		local:    local,
		log:      log,
		cfg:      cfg.withDefaults(),
		alive:    true,
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	if v := manager.View(); v.User != nil {
		s.ownerID = v.User.ID
	}
	s.unsubscribe = manager.Subscribe(s.onViewChange)
	return s
}

// Close detaches the store from the session manager and discards any
// in-flight reload.
func (s *Store) Close() {
	s.mu.Lock()
	if !s.alive {
		s.mu.Unlock()
		return
	}
	s.alive = false
	s.mu.Unlock()

	s.cancel()
	s.unsubscribe()
}

func (s *Store) onViewChange(v session.View) {
	owner := ""
	if v.User != nil {
		owner = v.User.ID
	}

	s.mu.Lock()
	if !s.alive || owner == s.ownerID {
		s.mu.Unlock()
		return
	}
	s.ownerID = owner
	s.records = nil
	s.mu.Unlock()

	if owner != "" {
		go s.Load(s.ctx)
	}
}

// Load refreshes the cache from the provider. Without a signed-in user it is
// a no-op. A failed or timed-out refresh leaves the previously cached list
// untouched.
func (s *Store) Load(ctx context.Context) {
	v := s.manager.View()
	if v.User == nil {
		return
	}
	owner := v.User.ID

	rows, err := racex.Run(ctx, s.cfg.ListTimeout, func(ctx context.Context) ([]models.TransferRecord, error) {
		return s.provider.ListTransfers(ctx, owner)
	})
	if err != nil {
		s.log.Warn(ctx, "transfer list refresh failed, keeping cached data", "err", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// The user may have changed (or signed out) while the list was in
	// flight; a stale result must not repopulate the cache.
	if !s.alive || s.ownerID != owner {
		return
	}
	s.records = rows
}

// Add validates the draft locally, inserts it once and prepends the
// provider's returned record, so server-assigned fields (id, createdAt) are
// visible immediately. Validation failures and missing authentication cause
// no network activity.
func (s *Store) Add(ctx context.Context, draft models.TransferDraft) (*models.TransferRecord, error) {
	v := s.manager.View()
	if v.User == nil {
		return nil, ErrNotAuthenticated
	}
	owner := v.User.ID

	rec, err := draft.Normalize(s.cfg.MaxAmountCents)
	if err != nil {
		return nil, err
	}
	rec.OwnerID = owner

	created, err := racex.Run(ctx, s.cfg.WriteTimeout, func(ctx context.Context) (*models.TransferRecord, error) {
		return s.provider.InsertTransfer(ctx, rec)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save transfer: %w", err)
	}

	s.mu.Lock()
	if s.alive && s.ownerID == owner {
		s.records = append([]models.TransferRecord{*created}, s.records...)
	}
	s.mu.Unlock()

	return created, nil
}

// Remove deletes a record, filtering by both id and owner even though the
// provider enforces ownership itself. Failures are logged and leave the
// cache unchanged; without a signed-in user it is a no-op.
func (s *Store) Remove(ctx context.Context, id string) {
	v := s.manager.View()
	if v.User == nil {
		return
	}
	owner := v.User.ID

	err := racex.Do(ctx, s.cfg.WriteTimeout, func(ctx context.Context) error {
		return s.provider.DeleteTransfer(ctx, id, owner)
	})
	if err != nil {
		s.log.Warn(ctx, "failed to delete transfer", "id", id, "err", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.alive || s.ownerID != owner {
		return
	}
	for i := range s.records {
		if s.records[i].ID == id {
			s.records = append(s.records[:i], s.records[i+1:]...)
			break
		}
	}
}

// FindByID looks a record up in the in-memory cache. It never touches the
// network.
func (s *Store) FindByID(id string) *models.TransferRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.records {
		if s.records[i].ID == id {
			rec := s.records[i]
			return &rec
		}
	}
	return nil
}

// Records returns a snapshot of the cached list, newest first.
func (s *Store) Records() []models.TransferRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.TransferRecord, len(s.records))
	copy(out, s.records)
	return out
}
