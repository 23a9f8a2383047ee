package config

import (
	altsrc "github.com/urfave/cli-altsrc/v3"
	yaml "github.com/urfave/cli-altsrc/v3/yaml"
	"github.com/urfave/cli/v3"
)

// Flag names.
const (
	FlagHost            = "host"
	FlagPort            = "port"
	FlagEnvironment     = "env"
	FlagDatabaseURL     = "database-url"
	FlagCacheURL        = "cache-url"
	FlagCacheTTL        = "cache-ttl"
	FlagLogLevel        = "log-level"
	FlagLogFormat       = "log-format"
	FlagReadTimeout     = "read-timeout"
	FlagWriteTimeout    = "write-timeout"
	FlagShutdownTimeout = "shutdown-timeout"
)

// Flags returns the service flags. Each value is taken from the command
// line, then the environment, then the YAML file at configFile.
func Flags(configFile string) []cli.Flag {
	def := Default()
	src := altsrc.StringSourcer(configFile)

	return []cli.Flag{
		&cli.StringFlag{
			Name:  FlagHost,
			Usage: "address to listen on",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("API_HOST"),
				yaml.YAML("server.host", src),
			),
			Value: def.Host,
		},
		&cli.IntFlag{
			Name:    FlagPort,
			Aliases: []string{"p"},
			Usage:   "port to listen on",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("API_PORT"),
				yaml.YAML("server.port", src),
			),
			Value: def.Port,
		},
		&cli.StringFlag{
			Name:  FlagEnvironment,
			Usage: "environment profile: development, production or testing",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("APP_ENV"),
				cli.EnvVar("FLASK_ENV"),
				yaml.YAML("environment", src),
			),
			Value: def.Environment,
		},
		&cli.StringFlag{
			Name:  FlagDatabaseURL,
			Usage: "database URL (sqlite:///path, sqlite:///:memory: or postgresql://...); defaults by environment",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("DATABASE_URL"),
				yaml.YAML("database.url", src),
			),
		},
		&cli.StringFlag{
			Name:  FlagCacheURL,
			Usage: "cache backend: memory://, redis://host:port/db or none",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("CACHE_URL"),
				cli.EnvVar("REDIS_URL"),
				yaml.YAML("cache.url", src),
			),
			Value: def.CacheURL,
		},
		&cli.DurationFlag{
			Name:  FlagCacheTTL,
			Usage: "lifetime of cached entries",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("CACHE_TTL"),
				yaml.YAML("cache.ttl", src),
			),
			Value: def.CacheTTL,
		},
		&cli.StringFlag{
			Name:  FlagLogLevel,
			Usage: "log level: debug, info, warn or error",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("LOG_LEVEL"),
				yaml.YAML("log.level", src),
			),
			Value: def.LogLevel,
		},
		&cli.StringFlag{
			Name:  FlagLogFormat,
			Usage: "log format: json or logfmt",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("LOG_FORMAT"),
				yaml.YAML("log.format", src),
			),
			Value: def.LogFormat,
		},
		&cli.DurationFlag{
			Name:  FlagReadTimeout,
			Usage: "HTTP server read timeout",
			Sources: cli.NewValueSourceChain(
				yaml.YAML("server.read_timeout", src),
			),
			Value: def.ReadTimeout,
		},
		&cli.DurationFlag{
			Name:  FlagWriteTimeout,
			Usage: "HTTP server write timeout",
			Sources: cli.NewValueSourceChain(
				yaml.YAML("server.write_timeout", src),
			),
			Value: def.WriteTimeout,
		},
		&cli.DurationFlag{
			Name:  FlagShutdownTimeout,
			Usage: "time allowed for in-flight requests on shutdown",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("SHUTDOWN_TIMEOUT"),
				yaml.YAML("server.shutdown_timeout", src),
			),
			Value: def.ShutdownTimeout,
		},
	}
}

// FromCommand reads the flags registered by Flags and validates the result.
// An empty database URL is replaced by the environment's default.
func FromCommand(cmd *cli.Command) (Config, error) {
	if cmd == nil {
		return Config{}, errNoCommand
	}

	cfg := Config{
		Host:            cmd.String(FlagHost),
		Port:            cmd.Int(FlagPort),
		Environment:     cmd.String(FlagEnvironment),
		DatabaseURL:     cmd.String(FlagDatabaseURL),
		CacheURL:        cmd.String(FlagCacheURL),
		CacheTTL:        cmd.Duration(FlagCacheTTL),
		LogLevel:        cmd.String(FlagLogLevel),
		LogFormat:       cmd.String(FlagLogFormat),
		ReadTimeout:     cmd.Duration(FlagReadTimeout),
		WriteTimeout:    cmd.Duration(FlagWriteTimeout),
		ShutdownTimeout: cmd.Duration(FlagShutdownTimeout),
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = DefaultDatabaseURL(cfg.Environment)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
