package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// SetYamlConfig writes key: value into the project's config.yaml, creating
// .issueboard/config.yaml in the working directory when none exists. A
// commented-out occurrence of the key is replaced in place.
func SetYamlConfig(key, value string) (string, error) {
	configPath, err := FindConfigFile()
	if err != nil {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get working directory: %w", err)
		}
		configPath = filepath.Join(cwd, DirName, FileName)
		if err := os.MkdirAll(filepath.Dir(configPath), 0o750); err != nil {
			return "", fmt.Errorf("failed to create %s: %w", DirName, err)
		}
	}

	content, err := os.ReadFile(configPath) //nolint:gosec // path comes from discovery
	if err != nil && !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to read %s: %w", configPath, err)
	}
	updated := updateYamlKey(string(content), key, value)
	if err := os.WriteFile(configPath, []byte(updated), 0o600); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", configPath, err)
	}
	Set(key, value)
	return configPath, nil
}

// updateYamlKey replaces the line for key (commented or not) or appends one.
// Dotted keys are written flat, which viper resolves like nested ones.
func updateYamlKey(content, key, value string) string {
	line := key + ": " + formatYamlValue(value)
	pattern := regexp.MustCompile(`^(\s*)(#\s*)?` + regexp.QuoteMeta(key) + `\s*:`)

	var out []string
	found := false
	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		text := scanner.Text()
		if m := pattern.FindStringSubmatch(text); m != nil && !found {
			out = append(out, m[1]+line)
			found = true
			continue
		}
		out = append(out, text)
	}
	if !found {
		if len(out) > 0 && out[len(out)-1] != "" {
			out = append(out, "")
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n") + "\n"
}

// formatYamlValue renders booleans, numbers and durations bare and quotes
// strings that YAML would otherwise misread.
func formatYamlValue(value string) string {
	if lower := strings.ToLower(value); lower == "true" || lower == "false" {
		return lower
	}
	if isNumeric(value) {
		return value
	}
	if _, err := time.ParseDuration(value); err == nil {
		return value
	}
	if needsQuoting(value) {
		return fmt.Sprintf("%q", value)
	}
	return value
}

var numericPattern = regexp.MustCompile(`^-?\d+(\.\d+)?$`)

func isNumeric(s string) bool {
	return numericPattern.MatchString(s)
}

func needsQuoting(s string) bool {
	if s == "" || strings.TrimSpace(s) != s {
		return true
	}
	return strings.ContainsAny(s, ":#[]{},&*!|>'\"%@`")
}
