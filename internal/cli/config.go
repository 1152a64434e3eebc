package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the TOML configuration of the serve command. All fields are
// optional; flags override the file.
type Config struct {
	// DB is the path to the SQLite metadata database.
	DB string `toml:"db"`
	// Listen is the HTTP listen address, e.g. ":8080".
	Listen string `toml:"listen"`
	// URLTemplate is applied to every graph node, e.g.
	// "https://mlmd.example.com/{{.node_type}}/{{.id}}".
	URLTemplate string `toml:"url_template"`

	Cache CacheConfig `toml:"cache"`
}

// CacheConfig selects and configures the render cache backend.
type CacheConfig struct {
	// Backend is one of "file", "redis", or "none".
	Backend string `toml:"backend"`
	// Dir overrides the file backend's directory.
	Dir string `toml:"dir"`
	// RedisURL is the redis backend's connection URL.
	RedisURL string `toml:"redis_url"`
	// TTL bounds the lifetime of cached renders, e.g. "24h". Empty means
	// entries never expire.
	TTL string `toml:"ttl"`
}

// defaultConfig returns the configuration used when no file or flags are
// given: file-backed cache, one-day TTL, port 8080.
func defaultConfig() Config {
	return Config{
		Listen: ":8080",
		Cache: CacheConfig{
			Backend: "file",
			TTL:     "24h",
		},
	}
}

// loadConfig reads a TOML config file over the defaults. An empty path
// returns the defaults unchanged.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// cacheTTL parses the configured TTL. Empty means no expiry.
func (c CacheConfig) cacheTTL() (time.Duration, error) {
	if c.TTL == "" {
		return 0, nil
	}
	ttl, err := time.ParseDuration(c.TTL)
	if err != nil {
		return 0, fmt.Errorf("parse cache ttl %q: %w", c.TTL, err)
	}
	return ttl, nil
}

// cacheDir returns the file backend's directory, defaulting to the
// user cache directory.
func (c CacheConfig) cacheDir() (string, error) {
	if c.Dir != "" {
		return c.Dir, nil
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("resolve cache directory: %w", err)
	}
	return filepath.Join(base, appName, "render"), nil
}
