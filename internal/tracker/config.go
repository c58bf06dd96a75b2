package tracker

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// ConfigSource provides configuration values by full key (e.g. "jira.url").
// *viper.Viper satisfies it.
type ConfigSource interface {
	GetString(key string) string
}

// MapSource is a ConfigSource backed by a map, handy for tests and embedding.
type MapSource map[string]string

// GetString implements ConfigSource.
func (m MapSource) GetString(key string) string { return m[key] }

// Config is a backend's view of configuration. Keys are looked up under
// Prefix in Source, then in the environment.
type Config struct {
	// Prefix is the config key prefix for this backend (e.g., "github", "jira").
	Prefix string

	// Source provides configured values; may be nil.
	Source ConfigSource
}

// NewConfig creates a config view with the given prefix and source.
func NewConfig(prefix string, source ConfigSource) *Config {
	return &Config{Prefix: prefix, Source: source}
}

// Get retrieves a value by key, checking the source and then environment
// variables. The key should not include the prefix.
// Example: cfg.Get("api_token") for "jira" looks up "jira.api_token" and falls
// back to the JIRA_API_TOKEN env var.
func (c *Config) Get(key string) string {
	if c.Source != nil {
		if value := c.Source.GetString(c.fullKey(key)); value != "" {
			return value
		}
	}
	return os.Getenv(c.envVarName(key))
}

// GetDefault is like Get but returns def when the value is empty.
func (c *Config) GetDefault(key, def string) string {
	if v := c.Get(key); v != "" {
		return v
	}
	return def
}

// GetRequired is like Get but returns an error naming the key and env var if empty.
func (c *Config) GetRequired(key string) (string, error) {
	value := c.Get(key)
	if value == "" {
		fullKey := c.fullKey(key)
		return "", fmt.Errorf("%s not configured\nSet %s in .issueboard/config.yaml\nOr: export %s=VALUE",
			fullKey, fullKey, c.envVarName(key))
	}
	return value, nil
}

// GetDuration parses key as a duration, returning def when unset or invalid.
func (c *Config) GetDuration(key string, def time.Duration) time.Duration {
	v := c.Get(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func (c *Config) fullKey(key string) string {
	if c.Prefix == "" {
		return key
	}
	return c.Prefix + "." + key
}

// envVarName converts a config key to its environment variable name.
// Example: for prefix "jira" and key "api_token", returns "JIRA_API_TOKEN".
func (c *Config) envVarName(key string) string {
	envKey := strings.ToUpper(c.fullKey(key))
	return strings.NewReplacer(".", "_", "-", "_").Replace(envKey)
}
