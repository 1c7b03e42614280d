package session

import (
	"context"
	"strings"
	"sync"

	"github.com/khairulanwar/transferdesk/internal/client/storage"
	"github.com/khairulanwar/transferdesk/internal/logging"
)

// wipeAllowList names the keys that survive a version-triggered wipe.
var wipeAllowList = map[string]struct{}{
	storage.KeyTheme:    {},
	storage.KeyLanguage: {},
}

// providerKeyMarkers flag keys that belong to the provider's own cached
// session. These are wiped even if a future allow-list were to match them:
// a stale session token surviving a version bump is the exact failure the
// guard exists to prevent.
var providerKeyMarkers = []string{"sb-", "auth"}

// Guard detects a build change against the version marker persisted in local
// storage and wipes stale local state once per process.
type Guard struct {
	store   storage.Repository
	version string
	log     logging.Logger

	mu  sync.Mutex
	ran bool
}

func NewGuard(store storage.Repository, version string, log logging.Logger) *Guard {
	return &Guard{store: store, version: version, log: log}
}

// CheckAndCleanup returns true iff a cleanup was performed. It runs at most
// once per process; later calls are no-ops returning false.
//
// A storage failure is treated as "cleanup needed": the wipe and the marker
// write are attempted best-effort and the method still reports true, so the
// caller force-terminates any provider session.
func (g *Guard) CheckAndCleanup(ctx context.Context) bool {
	g.mu.Lock()
	if g.ran {
		g.mu.Unlock()
		return false
	}
	g.ran = true
	g.mu.Unlock()

	marker, err := g.store.Get(ctx, storage.KeyAppVersion)
	if err != nil {
		g.log.Warn(ctx, "version marker unreadable, forcing cleanup", "err", err)
		g.wipe(ctx)
		return true
	}
	if marker != nil && string(marker) == g.version {
		return false
	}

	g.log.Info(ctx, "build version changed, wiping local state",
		"previous", string(marker), "current", g.version)
	g.wipe(ctx)
	return true
}

func (g *Guard) wipe(ctx context.Context) {
	err := g.store.Transact(ctx, func(tx storage.Repository) error {
		keys, err := tx.Keys(ctx)
		if err != nil {
			return err
		}
		for _, key := range keys {
			if keepOnWipe(key) {
				continue
			}
			if err := tx.Delete(ctx, key); err != nil {
				return err
			}
		}
		return tx.Set(ctx, storage.KeyAppVersion, []byte(g.version))
	})
	if err != nil {
		g.log.Error(ctx, "local state wipe incomplete", "err", err)
		// Last resort: make sure the marker lands so the next start does not
		// wipe again for the same build.
		if err := g.store.Set(ctx, storage.KeyAppVersion, []byte(g.version)); err != nil {
			g.log.Error(ctx, "failed to write version marker", "err", err)
		}
	}
}

// keepOnWipe reports whether a key survives the wipe: it must be on the
// allow-list and must not look like a provider session key.
func keepOnWipe(key string) bool {
	if _, ok := wipeAllowList[key]; !ok {
		return false
	}
	lower := strings.ToLower(key)
	for _, marker := range providerKeyMarkers {
		if strings.Contains(lower, marker) {
			return false
		}
	}
	return true
}
