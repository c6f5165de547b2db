/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/Seednode/nameher/names"
	"github.com/Seednode/nameher/scores"
	"github.com/Seednode/nameher/wiki"
)

const maxSearchLimit = 50

type Config struct {
	bind            string
	cacheSize       int
	cacheTTL        time.Duration
	database        string
	duplicateWindow time.Duration
	gazetteer       string
	logLevel        string
	lookupTimeout   time.Duration
	port            int
	prefix          string
	profile         bool
	searchLimit     int
	sessionTimeout  time.Duration
	tlsCert         string
	tlsKey          string
	verbose         bool
	version         bool
	wikiEndpoint    string

	logger *zap.Logger
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}

	return c.validateLookup()
}

// validateLookup covers the flags shared with the check subcommand.
func (c *Config) validateLookup() error {
	if c.lookupTimeout <= 0 {
		return fmt.Errorf("invalid lookup timeout (must be positive): %s", c.lookupTimeout)
	}
	if c.searchLimit < 1 || c.searchLimit > maxSearchLimit {
		return fmt.Errorf("invalid search limit (must be between 1-%d inclusive): %d", maxSearchLimit, c.searchLimit)
	}
	if c.cacheSize < 0 {
		return fmt.Errorf("invalid cache size (must not be negative): %d", c.cacheSize)
	}
	if c.duplicateWindow < 0 {
		return fmt.Errorf("invalid duplicate window (must not be negative): %s", c.duplicateWindow)
	}

	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

func bindFlags(v *viper.Viper, fs *pflag.FlagSet) {
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("NAMEHER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "nameher",
		Short:         "Name as many notable women as you can, checked live against Wikipedia.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(cfg.logLevel)
			if err != nil {
				return err
			}
			cfg.logger = logger

			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return ServePage(cmd.Context(), cfg, args)
		},
	}

	pfs := cmd.PersistentFlags()
	pfs.IntVar(&cfg.cacheSize, "cache-size", wiki.DefaultCacheSize, "number of wiki extracts to cache, 0 to disable (env: NAMEHER_CACHE_SIZE)")
	pfs.DurationVar(&cfg.cacheTTL, "cache-ttl", wiki.DefaultCacheTTL, "time before cached wiki extracts expire (env: NAMEHER_CACHE_TTL)")
	pfs.StringVar(&cfg.gazetteer, "gazetteer", "", "path to a YAML gazetteer replacing the built-in one (env: NAMEHER_GAZETTEER)")
	pfs.StringVar(&cfg.logLevel, "log-level", defaultLogLevel, "minimum log level: debug, info, warn, error (env: NAMEHER_LOG_LEVEL)")
	pfs.DurationVar(&cfg.lookupTimeout, "lookup-timeout", names.DefaultTimeout, "time allowed for each external name lookup (env: NAMEHER_LOOKUP_TIMEOUT)")
	pfs.IntVar(&cfg.searchLimit, "search-limit", names.DefaultSearchLimit, "maximum search results inspected per lookup (env: NAMEHER_SEARCH_LIMIT)")
	pfs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: NAMEHER_VERBOSE)")
	pfs.StringVar(&cfg.wikiEndpoint, "wiki-endpoint", wiki.DefaultEndpoint, "MediaWiki API endpoint (env: NAMEHER_WIKI_ENDPOINT)")

	fs := cmd.Flags()
	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: NAMEHER_BIND)")
	fs.StringVar(&cfg.database, "database", "nameher.db", "path to the score database (env: NAMEHER_DATABASE)")
	fs.DurationVar(&cfg.duplicateWindow, "duplicate-window", scores.DefaultDuplicateWindow, "time during which identical score submissions are refused (env: NAMEHER_DUPLICATE_WINDOW)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: NAMEHER_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: NAMEHER_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: NAMEHER_PROFILE)")
	fs.DurationVar(&cfg.sessionTimeout, "session-timeout", 60*time.Minute, "time before idle game sessions are ended (env: NAMEHER_SESSION_TIMEOUT)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: NAMEHER_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: NAMEHER_TLS_KEY)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: NAMEHER_VERSION)")

	bindFlags(v, pfs)
	bindFlags(v, fs)

	cmd.AddCommand(newCheckCmd(cfg))

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("nameher v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
