package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

var (
	ErrConfigFileNotFound    = errors.New("could not find config file in any config path")
	ErrConfigVersionMissing  = errors.New("config file is missing version field")
	ErrConfigVersionMismatch = errors.New("config file version mismatch")
)

// RepositoryVersion is the repository version tag for config file references.
const RepositoryVersion = "v0.1.0"

// Current version of the config file.
const (
	CurrentCommonVersion = 1
	CurrentClientVersion = 1
)

// Config represents the entire application configuration.
type Config struct {
	Common CommonConfig
	Client ClientConfig
}

// CommonConfig contains configuration shared by every command.
type CommonConfig struct {
	// Version of the common config.
	Version int   `koanf:"version"`
	Debug   Debug `koanf:"debug"`
	Retry   Retry `koanf:"retry"`
	Redis   Redis `koanf:"redis"`
}

// ClientConfig contains the tuning of the synchronization core.
type ClientConfig struct {
	// Version of the client config.
	Version  int      `koanf:"version"`
	Cache    Cache    `koanf:"cache"`
	Mutation Mutation `koanf:"mutation"`
	Feed     Feed     `koanf:"feed"`
	Live     Live     `koanf:"live"`
}

// Debug contains debug-related configuration.
type Debug struct {
	// Log level (debug, info, warn, error).
	LogLevel string `koanf:"log_level"`
	// Maximum log files to keep.
	MaxLogsToKeep int `koanf:"max_logs_to_keep"`
	// Maximum lines per log file.
	MaxLogLines int `koanf:"max_log_lines"`
}

// Retry contains retry configuration for the backoff feed policy.
type Retry struct {
	// Maximum retry attempts.
	MaxRetries uint64 `koanf:"max_retries"`
	// Initial retry delay in milliseconds.
	Delay int `koanf:"delay"`
	// Maximum retry delay in milliseconds.
	MaxDelay int `koanf:"max_delay"`
}

// Redis contains Redis connection configuration.
type Redis struct {
	// Redis hostname.
	Host string `koanf:"host"`
	// Redis port.
	Port int `koanf:"port"`
	// Redis username.
	Username string `koanf:"username"`
	// Redis password.
	Password string `koanf:"password"`
	// Disable client-side caching, for servers without CLIENT TRACKING.
	DisableCache bool `koanf:"disable_cache"`
}

// Cache contains interaction cache configuration.
type Cache struct {
	// Number of distinct posts before a full refetch.
	Ceiling int `koanf:"ceiling"`
}

// Mutation contains optimistic mutation configuration.
type Mutation struct {
	// How long a failure banner stays visible, in milliseconds.
	ErrorBannerMS int `koanf:"error_banner_ms"`
}

// Feed contains paginator configuration.
type Feed struct {
	// Failure policy: fail_closed or backoff.
	RetryPolicy string `koanf:"retry_policy"`
}

// Live contains live update configuration.
type Live struct {
	// Largest count a "new items" badge shows.
	BadgeCap int `koanf:"badge_cap"`
	// Prefix of the Redis pub/sub channels.
	ChannelPrefix string `koanf:"channel_prefix"`
}

// LoadConfig loads the configuration from the default search paths.
// Returns the config along with the used config directory.
func LoadConfig() (*Config, string, error) {
	// Get user's home directory
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, "", fmt.Errorf("failed to get home directory: %w", err)
	}

	return LoadConfigFrom(
		".feedsync",
		filepath.Join(homeDir, ".feedsync", "config"),
		"/etc/feedsync/config",
		"/app/config",
		"config",
		".",
	)
}

// LoadConfigFrom loads common.toml and client.toml from the first of paths
// holding each file.
func LoadConfigFrom(paths ...string) (*Config, string, error) {
	var (
		config         Config
		usedConfigPath string
	)

	files := []struct {
		name   string
		target any
	}{
		{"common", &config.Common},
		{"client", &config.Client},
	}

	for _, f := range files {
		k := koanf.New(".")
		configLoaded := false

		for _, path := range paths {
			configPath := filepath.Join(path, f.name+".toml")
			if err := k.Load(file.Provider(configPath), toml.Parser()); err == nil {
				configLoaded = true

				if usedConfigPath == "" {
					usedConfigPath = path
				}

				break
			}
		}

		if !configLoaded {
			return nil, "", fmt.Errorf("%w: %s.toml", ErrConfigFileNotFound, f.name)
		}

		if err := k.Unmarshal("", f.target); err != nil {
			return nil, "", fmt.Errorf("error unmarshaling %s.toml: %w", f.name, err)
		}
	}

	// Check versions for each config file
	if err := checkConfigVersion("common", config.Common.Version, CurrentCommonVersion); err != nil {
		return nil, "", err
	}

	if err := checkConfigVersion("client", config.Client.Version, CurrentClientVersion); err != nil {
		return nil, "", err
	}

	config.applyDefaults()

	return &config, usedConfigPath, nil
}

// applyDefaults fills zero fields with their defaults.
func (c *Config) applyDefaults() {
	if c.Common.Debug.LogLevel == "" {
		c.Common.Debug.LogLevel = "info"
	}
	if c.Common.Debug.MaxLogsToKeep <= 0 {
		c.Common.Debug.MaxLogsToKeep = 10
	}
	if c.Common.Debug.MaxLogLines <= 0 {
		c.Common.Debug.MaxLogLines = 100000
	}
	if c.Common.Redis.Host == "" {
		c.Common.Redis.Host = "localhost"
	}
	if c.Common.Redis.Port == 0 {
		c.Common.Redis.Port = 6379
	}
	if c.Client.Cache.Ceiling <= 0 {
		c.Client.Cache.Ceiling = 1000
	}
	if c.Client.Mutation.ErrorBannerMS <= 0 {
		c.Client.Mutation.ErrorBannerMS = 3000
	}
	if c.Client.Feed.RetryPolicy == "" {
		c.Client.Feed.RetryPolicy = "fail_closed"
	}
	if c.Client.Live.BadgeCap <= 0 {
		c.Client.Live.BadgeCap = 25
	}
	if c.Client.Live.ChannelPrefix == "" {
		c.Client.Live.ChannelPrefix = "feedsync:"
	}
}

// checkConfigVersion checks if the config file version is correct.
func checkConfigVersion(name string, current, expected int) error {
	if current == 0 {
		return fmt.Errorf("%w: %s.toml", ErrConfigVersionMissing, name)
	}

	if current != expected {
		return fmt.Errorf(
			"%w: %s.toml (got: %d, expected: %d)\n"+
				"Please update your config file from: https://github.com/feedsync/feedsync/tree/%s/config/%s.toml",
			ErrConfigVersionMismatch,
			name,
			current,
			expected,
			RepositoryVersion,
			name,
		)
	}

	return nil
}
