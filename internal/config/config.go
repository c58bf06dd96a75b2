// Package config holds issueboard's settings: a viper instance fed by
// .issueboard/config.yaml, IB_* environment variables and explicit overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config file location, relative to a project root.
const (
	DirName   = ".issueboard"
	FileName  = "config.yaml"
	EnvPrefix = "IB"
)

var v *viper.Viper

// Initialize loads configuration, discovering the config file by walking up
// from the working directory. IB_CONFIG names the file explicitly.
func Initialize() error {
	return InitializeWithFile("")
}

// InitializeWithFile loads configuration from path. An empty path falls back to
// IB_CONFIG and then to discovery; having no config file at all is not an error.
func InitializeWithFile(path string) error {
	v = viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if path == "" {
		path = os.Getenv("IB_CONFIG")
	}
	if path == "" {
		found, err := FindConfigFile()
		if err != nil {
			return nil
		}
		path = found
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("backend", "local")
	v.SetDefault("local.board", filepath.Join(DirName, "board"))
	v.SetDefault("local.agents_dir", filepath.Join(DirName, "agents"))
	v.SetDefault("local.validate_assignees", true)
	v.SetDefault("caller", "")
	v.SetDefault("timeout", 2*time.Minute)
	v.SetDefault("json", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
	v.SetDefault("otel.enabled", false)
	v.SetDefault("watch.debounce", 500*time.Millisecond)
}

// FindConfigFile walks up from the working directory looking for .issueboard/config.yaml.
func FindConfigFile() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}
	for dir := cwd; ; dir = filepath.Dir(dir) {
		candidate := filepath.Join(dir, DirName, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		if dir == filepath.Dir(dir) {
			break
		}
	}
	return "", fmt.Errorf("no %s/%s found", DirName, FileName)
}

// ConfigFileUsed returns the loaded config file, or "" if none was read.
func ConfigFileUsed() string {
	if v == nil {
		return ""
	}
	return v.ConfigFileUsed()
}

// ProjectRoot returns the directory holding .issueboard, or the working
// directory when no config file was loaded.
func ProjectRoot() string {
	if used := ConfigFileUsed(); used != "" {
		return filepath.Dir(filepath.Dir(used))
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return cwd
}

// ResolvePath makes a relative path relative to the project root.
func ResolvePath(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(ProjectRoot(), p)
}

// GetString retrieves a string value. List values are joined with commas.
func GetString(key string) string {
	if v == nil {
		return ""
	}
	switch val := v.Get(key).(type) {
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, fmt.Sprint(item))
		}
		return strings.Join(parts, ",")
	case []string:
		return strings.Join(val, ",")
	}
	return v.GetString(key)
}

// GetBool retrieves a boolean value.
func GetBool(key string) bool {
	if v == nil {
		return false
	}
	return v.GetBool(key)
}

// GetDuration retrieves a duration value.
func GetDuration(key string) time.Duration {
	if v == nil {
		return 0
	}
	return v.GetDuration(key)
}

// GetStringSlice retrieves a list value. A comma-separated string is split.
func GetStringSlice(key string) []string {
	if v == nil {
		return nil
	}
	if s, ok := v.Get(key).(string); ok {
		var out []string
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	}
	return v.GetStringSlice(key)
}

// Set overrides a value for the rest of the process, e.g. from a command-line flag.
func Set(key string, value any) {
	if v == nil {
		return
	}
	v.Set(key, value)
}

// AllSettings returns every known key with its effective value.
func AllSettings() map[string]any {
	if v == nil {
		return map[string]any{}
	}
	return v.AllSettings()
}

// Source adapts the loaded configuration to tracker.ConfigSource.
type Source struct{}

// GetString implements tracker.ConfigSource.
func (Source) GetString(key string) string { return GetString(key) }

// ResetForTesting drops the loaded configuration.
func ResetForTesting() {
	v = nil
}
