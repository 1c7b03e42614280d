package config

import "time"

// Config holds runtime settings for the transferdesk CLI.
//
// Fields:
//   - ProviderURL: base URL of the hosted identity/data provider.
//   - ProviderKey: the provider's public (anon) API key.
//   - DBPath: path of the local SQLite database file.
//   - RedirectTo: post-confirmation redirect target passed on sign-up.
//
// The timeout fields bound the races against the provider; see the session
// manager and transfer store for who uses which.
type Config struct {
	ProviderURL string
	ProviderKey string
	DBPath      string
	RedirectTo  string

	SessionTimeout time.Duration
	ProfileTimeout time.Duration
	AuthTimeout    time.Duration
	SignOutTimeout time.Duration
	ListTimeout    time.Duration
	WriteTimeout   time.Duration

	LoginAttemptsPerMinute float64
	LoginBurst             int

	// Verbose lowers the log level to debug.
	Verbose bool
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ProviderURL = "http://127.0.0.1:54321"
	c.ProviderKey = ""
	c.DBPath = "transferdesk.db"
	c.RedirectTo = ""

	c.SessionTimeout = 5 * time.Second
	c.ProfileTimeout = 3 * time.Second
	c.AuthTimeout = 30 * time.Second
	c.SignOutTimeout = 5 * time.Second
	c.ListTimeout = 10 * time.Second
	c.WriteTimeout = 10 * time.Second

	c.LoginAttemptsPerMinute = 10
	c.LoginBurst = 5
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
