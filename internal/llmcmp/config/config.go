package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/longkey1/llmcmp/internal/llmcmp"
	"github.com/longkey1/llmcmp/internal/llmcmp/api"
	"github.com/longkey1/llmcmp/internal/llmcmp/reveal"
	"github.com/longkey1/llmcmp/internal/llmcmp/selection"
	"github.com/spf13/viper"
)

// Config holds the configuration for the comparison client
type Config struct {
	APIBaseURL           string                `toml:"api_base_url" mapstructure:"api_base_url"`
	AccessToken          string                `toml:"access_token" mapstructure:"access_token"`   // Optional, supports $VAR; overrides the stored credential
	RefreshToken         string                `toml:"refresh_token" mapstructure:"refresh_token"` // Optional, supports $VAR
	RequestTimeout       string                `toml:"request_timeout" mapstructure:"request_timeout"`
	MaxModels            int                   `toml:"max_models" mapstructure:"max_models"`
	DefaultModels        []string              `toml:"default_models" mapstructure:"default_models"` // Format: "provider:label"; used when nothing is selected
	StateFile            string                `toml:"state_file" mapstructure:"state_file"`
	PromptDirs           []string              `toml:"prompt_dirs" mapstructure:"prompt_dirs"`
	SessionRetentionDays int                   `toml:"session_retention_days" mapstructure:"session_retention_days"` // 0 = keep forever
	RevealEnabled        bool                  `toml:"reveal_enabled" mapstructure:"reveal_enabled"`
	RevealInterval       string                `toml:"reveal_interval" mapstructure:"reveal_interval"`
	RevealJitter         string                `toml:"reveal_jitter" mapstructure:"reveal_jitter"`
	LogLevel             string                `toml:"log_level" mapstructure:"log_level"`
	LogFormat            string                `toml:"log_format" mapstructure:"log_format"`
	Catalog              []llmcmp.CatalogEntry `toml:"catalog" mapstructure:"catalog"`
}

// NewDefaultConfig returns a new Config with default values
func NewDefaultConfig(configDir string) *Config {
	return &Config{
		APIBaseURL:           api.DefaultBaseURL,
		AccessToken:          "",
		RefreshToken:         "",
		RequestTimeout:       api.DefaultTimeout.String(),
		MaxModels:            selection.DefaultCap,
		DefaultModels:        []string{"openai:GPT-4o", "azure:GPT-4o"},
		StateFile:            filepath.Join(configDir, "state.json"),
		PromptDirs:           []string{filepath.Join(configDir, "prompts")},
		SessionRetentionDays: 30,
		RevealEnabled:        false,
		RevealInterval:       reveal.DefaultInterval.String(),
		RevealJitter:         "0s",
		LogLevel:             "warn",
		LogFormat:            "text",
		Catalog:              llmcmp.DefaultCatalog(),
	}
}

// SetDefaults registers the defaults of cfg with viper
func SetDefaults(cfg *Config) {
	viper.SetDefault("api_base_url", cfg.APIBaseURL)
	viper.SetDefault("access_token", cfg.AccessToken)
	viper.SetDefault("refresh_token", cfg.RefreshToken)
	viper.SetDefault("request_timeout", cfg.RequestTimeout)
	viper.SetDefault("max_models", cfg.MaxModels)
	viper.SetDefault("default_models", cfg.DefaultModels)
	viper.SetDefault("state_file", cfg.StateFile)
	viper.SetDefault("prompt_dirs", cfg.PromptDirs)
	viper.SetDefault("session_retention_days", cfg.SessionRetentionDays)
	viper.SetDefault("reveal_enabled", cfg.RevealEnabled)
	viper.SetDefault("reveal_interval", cfg.RevealInterval)
	viper.SetDefault("reveal_jitter", cfg.RevealJitter)
	viper.SetDefault("log_level", cfg.LogLevel)
	viper.SetDefault("log_format", cfg.LogFormat)
}

// LoadConfig loads configuration from viper
func LoadConfig() (*Config, error) {
	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %v", err)
	}

	// Convert prompt directories to absolute paths
	for i, promptDir := range config.PromptDirs {
		absPath, err := ResolvePath(promptDir)
		if err != nil {
			return nil, fmt.Errorf("error resolving prompt directory path '%s': %v", promptDir, err)
		}
		config.PromptDirs[i] = absPath
	}

	if config.StateFile != "" {
		absPath, err := ResolvePath(config.StateFile)
		if err != nil {
			return nil, fmt.Errorf("error resolving state file path '%s': %v", config.StateFile, err)
		}
		config.StateFile = absPath
	}

	var err error
	if config.APIBaseURL, err = expandEnvVar(config.APIBaseURL); err != nil {
		return nil, err
	}
	if config.AccessToken, err = expandEnvVar(config.AccessToken); err != nil {
		return nil, err
	}
	if config.RefreshToken, err = expandEnvVar(config.RefreshToken); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks values that cannot be used as configured
func (c *Config) Validate() error {
	if c.MaxModels < 0 {
		return fmt.Errorf("max_models must not be negative (got %d)", c.MaxModels)
	}
	if c.SessionRetentionDays < 0 {
		return fmt.Errorf("session_retention_days must not be negative (got %d)", c.SessionRetentionDays)
	}
	for _, name := range []string{"request_timeout", "reveal_interval", "reveal_jitter"} {
		if _, err := c.duration(name); err != nil {
			return err
		}
	}
	for _, m := range c.DefaultModels {
		if _, err := llmcmp.ParseModelIdentity(m); err != nil {
			return fmt.Errorf("invalid default_models entry: %w", err)
		}
	}
	for _, e := range c.Catalog {
		if e.Provider == "" || e.Label == "" {
			return fmt.Errorf("catalog entries need both provider and label")
		}
	}
	return nil
}

func (c *Config) duration(name string) (time.Duration, error) {
	var raw string
	switch name {
	case "request_timeout":
		raw = c.RequestTimeout
	case "reveal_interval":
		raw = c.RevealInterval
	case "reveal_jitter":
		raw = c.RevealJitter
	}
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative (got %s)", name, raw)
	}
	return d, nil
}

// GetRequestTimeout returns the per-request timeout; 0 means the client default
func (c *Config) GetRequestTimeout() time.Duration {
	d, _ := c.duration("request_timeout")
	return d
}

// GetRevealInterval returns the delay between revealed characters
func (c *Config) GetRevealInterval() time.Duration {
	d, _ := c.duration("reveal_interval")
	return d
}

// GetRevealJitter returns the maximum random delay added per character
func (c *Config) GetRevealJitter() time.Duration {
	d, _ := c.duration("reveal_jitter")
	return d
}

// GetMaxModels returns the selection cap
func (c *Config) GetMaxModels() int {
	if c.MaxModels <= 0 {
		return selection.DefaultCap
	}
	return c.MaxModels
}

// GetCatalog returns the configured catalog, or the default one
func (c *Config) GetCatalog() []llmcmp.CatalogEntry {
	if len(c.Catalog) == 0 {
		return llmcmp.DefaultCatalog()
	}
	return c.Catalog
}

// GetDefaultModels returns DefaultModels as identities
func (c *Config) GetDefaultModels() []llmcmp.ModelIdentity {
	var out []llmcmp.ModelIdentity
	for _, m := range c.DefaultModels {
		id, err := llmcmp.ParseModelIdentity(m)
		if err != nil {
			continue
		}
		out = append(out, id)
	}
	return out
}
