package config

import (
	"flag"
	"os"

	"github.com/khairulanwar/transferdesk/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   base URL of the hosted provider (default from Config)
//	-k string   the provider's public API key
//	-d string   path of the local database file
//	-r string   post-confirmation redirect target for sign-up
//	-v          verbose (debug) logging
//
// The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-k", "-d", "-r", "-v"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ProviderURL, "a", cfg.ProviderURL, "base URL of the hosted provider")
	fs.StringVar(&cfg.ProviderKey, "k", cfg.ProviderKey, "public API key of the hosted provider")
	fs.StringVar(&cfg.DBPath, "d", cfg.DBPath, "path of the local database file")
	fs.StringVar(&cfg.RedirectTo, "r", cfg.RedirectTo, "post-confirmation redirect target")
	fs.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "verbose logging")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
