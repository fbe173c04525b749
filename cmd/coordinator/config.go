/*
Copyright © 2025 Seednode <seednode@seedno.de>
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
)

// Config carries every tunable the coordinator needs, following the
// teacher's flat struct + cobra/pflag/viper wiring exactly: one
// struct field per flag, bound through viper for env-var overrides.
type Config struct {
	bind    string
	port    int
	prefix  string
	profile bool
	tlsCert string
	tlsKey  string
	verbose bool
	version bool

	redisAddr       string
	redisPoolSize   int
	postgresDSN     string
	buzzCooldown    time.Duration
	liveStateTTL    time.Duration
	fjTimer         time.Duration
	devMemoryStores bool
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if !c.devMemoryStores {
		if c.redisAddr == "" {
			return errors.New("--redis-addr is required unless --dev-memory-stores is set")
		}
		if c.postgresDSN == "" {
			return errors.New("--postgres-dsn is required unless --dev-memory-stores is set")
		}
	}
	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("JEOPARDY")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "coordinator...",
		Short:         "Live multiplayer Jeopardy-style game coordinator.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return ServePage(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: JEOPARDY_BIND)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: JEOPARDY_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: JEOPARDY_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: JEOPARDY_PROFILE)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: JEOPARDY_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: JEOPARDY_TLS_KEY)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: JEOPARDY_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: JEOPARDY_VERSION)")

	fs.StringVar(&cfg.redisAddr, "redis-addr", "", "redis address for ephemeral game state (env: JEOPARDY_REDIS_ADDR)")
	fs.IntVar(&cfg.redisPoolSize, "redis-pool-size", 32, "max active redis connections (env: JEOPARDY_REDIS_POOL_SIZE)")
	fs.StringVar(&cfg.postgresDSN, "postgres-dsn", "", "postgres DSN for the durable store and episode catalog (env: JEOPARDY_POSTGRES_DSN)")
	fs.DurationVar(&cfg.buzzCooldown, "buzz-cooldown", 2*time.Second, "cooldown a seat serves after a rejected buzz (env: JEOPARDY_BUZZ_COOLDOWN)")
	fs.DurationVar(&cfg.liveStateTTL, "live-state-ttl", 24*time.Hour, "ephemeral live-state expiry (env: JEOPARDY_LIVE_STATE_TTL)")
	fs.DurationVar(&cfg.fjTimer, "fj-timer", 30*time.Second, "advisory final jeopardy timer duration (env: JEOPARDY_FJ_TIMER)")
	fs.BoolVar(&cfg.devMemoryStores, "dev-memory-stores", false, "use in-memory ephemeral/durable stores instead of redis/postgres (env: JEOPARDY_DEV_MEMORY_STORES)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("coordinator v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
