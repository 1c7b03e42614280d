package cli

import (
	"bufio"
	"context"
	"database/sql"
	"os"

	"github.com/khairulanwar/transferdesk/internal/buildinfo"
	"github.com/khairulanwar/transferdesk/internal/client/config"
	"github.com/khairulanwar/transferdesk/internal/client/navigation"
	"github.com/khairulanwar/transferdesk/internal/client/provider"
	"github.com/khairulanwar/transferdesk/internal/client/reports"
	"github.com/khairulanwar/transferdesk/internal/client/session"
	"github.com/khairulanwar/transferdesk/internal/client/storage"
	"github.com/khairulanwar/transferdesk/internal/client/throttle"
	"github.com/khairulanwar/transferdesk/internal/client/transfers"
	"github.com/khairulanwar/transferdesk/internal/logging"

	_ "modernc.org/sqlite"
)

// Destinations the navigation gate decides over. The CLI has no URL bar, but
// the gate's policy decisions map one-to-one onto these names.
const (
	destSignIn    = "/login"
	destTransfers = "/transfers"
	destRegister  = "/register"
)

type App struct {
	config   *config.Config
	log      logging.Logger
	db       *sql.DB
	provider provider.Client
	manager  *session.Manager
	store    *transfers.Store
	reports  *reports.Store
	gate     *navigation.Gate
	limiter  *throttle.Limiter
	reader   *bufio.Reader
}

// NewApp wires the full client: local database, provider client, version
// guard, session manager, transfer store and navigation gate.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	log := logging.NewCLI(os.Stderr, c.Verbose)

	db, repo, err := storage.InitDatabase(ctx, c.DBPath)
	if err != nil {
		log.Error(ctx, "error initializing database", "err", err)
		return nil, err
	}

	client := provider.NewHTTPClient(ctx, c.ProviderURL, c.ProviderKey, repo, log)

	guard := session.NewGuard(repo, buildinfo.Version, log)
	manager := session.NewManager(ctx, client, repo, guard, log, session.Config{
		SessionTimeout: c.SessionTimeout,
		ProfileTimeout: c.ProfileTimeout,
		AuthTimeout:    c.AuthTimeout,
		SignOutTimeout: c.SignOutTimeout,
		RedirectTo:     c.RedirectTo,
	})

	store := transfers.NewStore(ctx, client, manager, repo, log, transfers.Config{
		ListTimeout:  c.ListTimeout,
		WriteTimeout: c.WriteTimeout,
	})

	return &App{
		config:   c,
		log:      log,
		db:       db,
		provider: client,
		manager:  manager,
		store:    store,
		reports:  reports.NewStore(repo, log),
		gate:     navigation.NewGate(manager, repo, log, destSignIn, destTransfers),
		limiter:  throttle.New(c.LoginAttemptsPerMinute, c.LoginBurst),
		reader:   bufio.NewReader(os.Stdin),
	}, nil
}

// Run starts the interactive loop and tears everything down when it exits.
func (a *App) Run(ctx context.Context) {
	defer a.close()
	a.Root(ctx)
}

func (a *App) close() {
	a.store.Close()
	a.manager.Close()
	a.provider.Close()
	_ = a.db.Close()
}

func (a *App) isLoggedIn() bool {
	v := a.manager.View()
	return !v.Loading && v.User != nil
}
