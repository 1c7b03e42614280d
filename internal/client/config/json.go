package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/khairulanwar/transferdesk/internal/flagx"
	"github.com/khairulanwar/transferdesk/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Durations use
// timex.Duration so JSON can give them as strings like "3s" or as integer
// nanoseconds; after parsing they are copied into the runtime Config.
type JsonConfig struct {
	ProviderURL string `json:"provider_url"`
	ProviderKey string `json:"provider_key"`
	DBPath      string `json:"db_path"`
	RedirectTo  string `json:"redirect_to"`

	SessionTimeout timex.Duration `json:"session_timeout"`
	ProfileTimeout timex.Duration `json:"profile_timeout"`
	AuthTimeout    timex.Duration `json:"auth_timeout"`
	SignOutTimeout timex.Duration `json:"sign_out_timeout"`
	ListTimeout    timex.Duration `json:"list_timeout"`
	WriteTimeout   timex.Duration `json:"write_timeout"`

	LoginAttemptsPerMinute float64 `json:"login_attempts_per_minute"`
	LoginBurst             int     `json:"login_burst"`

	Verbose bool `json:"verbose"`
}

// parseJson overlays cfg with values loaded from a JSON file named by the
// -c/-config flags. With no such flag it returns without touching cfg.
// Zero-value JSON fields leave the current value in place, so a partial file
// only overrides what it names. Read or unmarshal errors panic; the intended
// order is defaults -> parseJson -> parseFlags.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.ProviderURL != "" {
		cfg.ProviderURL = jc.ProviderURL
	}
	if jc.ProviderKey != "" {
		cfg.ProviderKey = jc.ProviderKey
	}
	if jc.DBPath != "" {
		cfg.DBPath = jc.DBPath
	}
	if jc.RedirectTo != "" {
		cfg.RedirectTo = jc.RedirectTo
	}

	if jc.SessionTimeout.Duration > 0 {
		cfg.SessionTimeout = time.Duration(jc.SessionTimeout.Duration)
	}
	if jc.ProfileTimeout.Duration > 0 {
		cfg.ProfileTimeout = time.Duration(jc.ProfileTimeout.Duration)
	}
	if jc.AuthTimeout.Duration > 0 {
		cfg.AuthTimeout = time.Duration(jc.AuthTimeout.Duration)
	}
	if jc.SignOutTimeout.Duration > 0 {
		cfg.SignOutTimeout = time.Duration(jc.SignOutTimeout.Duration)
	}
	if jc.ListTimeout.Duration > 0 {
		cfg.ListTimeout = time.Duration(jc.ListTimeout.Duration)
	}
	if jc.WriteTimeout.Duration > 0 {
		cfg.WriteTimeout = time.Duration(jc.WriteTimeout.Duration)
	}

	if jc.LoginAttemptsPerMinute > 0 {
		cfg.LoginAttemptsPerMinute = jc.LoginAttemptsPerMinute
	}
	if jc.LoginBurst > 0 {
		cfg.LoginBurst = jc.LoginBurst
	}

	if jc.Verbose {
		cfg.Verbose = true
	}
}
