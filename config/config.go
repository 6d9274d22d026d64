// Package config provides configuration management for the EPG guide service.
package config

import (
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"time"
	// Receivers often ship without a zoneinfo database.
	_ "time/tzdata"

	"github.com/peterbourgon/ff/v3"
)

// Defaults match the feed the guide was built for.
const (
	DefaultEPGURL       = "https://epgshare01.online/epgshare01/epg_ripper_SK1.xml.gz"
	DefaultCacheDir     = "/tmp/CiefpProgramSK"
	DefaultCacheMaxAge  = 24 * time.Hour
	DefaultFetchTimeout = 30 * time.Second
	// EnvVarPrefix prefixes environment variables, e.g. EPG_URL or EPG_CACHE_DIR.
	EnvVarPrefix = "EPG"
)

var (
	// ErrEPGURLRequired is returned when EPG URL is not provided.
	ErrEPGURLRequired = errors.New("epg URL is required")
	// ErrInvalidEPGURL is returned when the EPG URL is not an absolute http(s) URL.
	ErrInvalidEPGURL = errors.New("invalid epg URL")
	// ErrCacheDirRequired is returned when the cache directory is empty.
	ErrCacheDirRequired = errors.New("cache directory is required")
	// ErrCacheMaxAgePositive is returned when the freshness window is not positive.
	ErrCacheMaxAgePositive = errors.New("cache max age must be positive")
	// ErrFetchTimeoutPositive is returned when the fetch timeout is not positive.
	ErrFetchTimeoutPositive = errors.New("fetch timeout must be positive")
	// ErrRefreshIntervalNegative is returned when refresh interval is negative.
	ErrRefreshIntervalNegative = errors.New("refresh interval must not be negative")
	// ErrInvalidPort is returned when port number is invalid.
	ErrInvalidPort = errors.New("invalid port number")
	// ErrInvalidLogLevel is returned when log level is invalid.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidTimezone is returned when the time zone cannot be loaded.
	ErrInvalidTimezone = errors.New("invalid timezone")
)

// Config holds the application configuration.
type Config struct {
	EPGURL          string
	CacheDir        string
	CacheMaxAge     time.Duration
	FetchTimeout    time.Duration
	RefreshInterval time.Duration
	Timezone        string
	Port            int
	LogLevel        string
	LogFile         string
}

// New creates a new configuration instance from command-line flags,
// EPG_* environment variables and an optional -config file.
func New() (*Config, error) {
	return Parse(os.Args[1:])
}

// Parse builds a configuration from args. Flags win over environment
// variables, which win over the config file.
func Parse(args []string) (*Config, error) {
	cfg := &Config{}

	fs := flag.NewFlagSet("epg-guide", flag.ContinueOnError)
	fs.StringVar(&cfg.EPGURL, "url", DefaultEPGURL, "URL of the compressed XMLTV feed")
	fs.StringVar(&cfg.CacheDir, "cache-dir", DefaultCacheDir, "Directory holding the cached feed")
	fs.DurationVar(&cfg.CacheMaxAge, "cache-max-age", DefaultCacheMaxAge, "Maximum age of the cached feed before it is fetched again")
	fs.DurationVar(&cfg.FetchTimeout, "fetch-timeout", DefaultFetchTimeout, "Timeout for downloading the feed")
	fs.DurationVar(&cfg.RefreshInterval, "refresh-interval", 0, "Interval between scheduled refreshes (0 disables)")
	fs.StringVar(&cfg.Timezone, "timezone", "", "Time zone for feed timestamps and day grouping (default: local)")
	fs.IntVar(&cfg.Port, "port", 8080, "Port to listen on")
	fs.StringVar(&cfg.LogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	fs.StringVar(&cfg.LogFile, "log-file", "", "Also write logs to this file")
	fs.String("config", "", "Path to a config file with one 'flag value' pair per line")

	if err := ff.Parse(fs, args,
		ff.WithEnvVarPrefix(EnvVarPrefix),
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.PlainParser),
	); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.EPGURL == "" {
		return ErrEPGURLRequired
	}

	u, err := url.Parse(c.EPGURL)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidEPGURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %s", ErrInvalidEPGURL, c.EPGURL)
	}

	if c.CacheDir == "" {
		return ErrCacheDirRequired
	}

	if c.CacheMaxAge <= 0 {
		return ErrCacheMaxAgePositive
	}

	if c.FetchTimeout <= 0 {
		return ErrFetchTimeoutPositive
	}

	if c.RefreshInterval < 0 {
		return ErrRefreshIntervalNegative
	}

	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPort, c.Port)
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("%w: %s (must be debug, info, warn, or error)", ErrInvalidLogLevel, c.LogLevel)
	}

	if c.Timezone != "" {
		if _, err := time.LoadLocation(c.Timezone); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidTimezone, err)
		}
	}

	return nil
}

// Location returns the configured time zone, falling back to local time.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}
