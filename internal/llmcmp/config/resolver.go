package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// expandEnvVar expands a value that is entirely an environment variable
// reference: $VAR, ${VAR} or ${VAR:-fallback}. Other values are returned
// as-is. An unset variable expands to the fallback, or "".
func expandEnvVar(value string) (string, error) {
	if !strings.HasPrefix(value, "$") {
		return value, nil
	}

	name := strings.TrimPrefix(value, "$")
	fallback := ""
	if strings.HasPrefix(name, "{") {
		if !strings.HasSuffix(name, "}") {
			return "", fmt.Errorf("unterminated variable reference: %s", value)
		}
		name = name[1 : len(name)-1]
		if before, after, found := strings.Cut(name, ":-"); found {
			name, fallback = before, after
		}
	}
	if name == "" {
		return "", fmt.Errorf("empty variable reference: %s", value)
	}

	if v, ok := os.LookupEnv(name); ok && v != "" {
		return v, nil
	}
	return fallback, nil
}

// ResolvePath converts a path to an absolute one. "~/" is the home
// directory; other relative paths are relative to the config file's
// directory, or the working directory when no config file is used.
func ResolvePath(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("error getting user home directory: %v", err)
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
	}
	if filepath.IsAbs(path) {
		return path, nil
	}

	base, err := baseDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, path), nil
}

func baseDir() (string, error) {
	configFile := viper.ConfigFileUsed()
	if configFile != "" {
		dir := filepath.Dir(configFile)
		if filepath.IsAbs(dir) {
			return dir, nil
		}
		return filepath.Abs(dir)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("error getting current working directory: %v", err)
	}
	return cwd, nil
}

// UserConfigDir returns $HOME/.config/llmcmp
func UserConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, ".config", "llmcmp"), nil
}
