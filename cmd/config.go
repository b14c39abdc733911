package cmd

import (
	"fmt"
	"strings"

	"github.com/longkey1/llmcmp/internal/llmcmp/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var configFields = []string{
	"configfile", "api_base_url", "access_token", "refresh_token", "request_timeout",
	"max_models", "default_models", "state_file", "prompt_dirs", "session_retention_days",
	"reveal_enabled", "reveal_interval", "reveal_jitter", "log_level", "log_format",
}

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config [field]",
	Short: "Display current configuration",
	Long: `Display the current configuration values.
This command shows all configuration values loaded from the config file and environment variables.

If a field name is specified, only that field's value is displayed.
Available fields: ` + strings.Join(configFields, ", ") + `

Examples:
  llmcmp config                  # Show all configuration
  llmcmp config api_base_url     # Show only the service URL
  llmcmp config access_token     # Show only the (masked) access token
  llmcmp config prompt_dirs      # Show only prompt directories`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		values := configValues(cfg)
		if len(args) > 0 {
			field := strings.ToLower(args[0])
			value, ok := values[field]
			if !ok {
				return fmt.Errorf("unknown field: %s\nAvailable fields: %s", args[0], strings.Join(configFields, ", "))
			}
			fmt.Println(value)
			return nil
		}

		for _, field := range configFields {
			fmt.Printf("%s: %s\n", field, values[field])
		}
		return nil
	},
}

func configValues(cfg *config.Config) map[string]string {
	return map[string]string{
		"configfile":             viper.ConfigFileUsed(),
		"api_base_url":           cfg.APIBaseURL,
		"access_token":           maskToken(cfg.AccessToken),
		"refresh_token":          maskToken(cfg.RefreshToken),
		"request_timeout":        cfg.GetRequestTimeout().String(),
		"max_models":             fmt.Sprint(cfg.GetMaxModels()),
		"default_models":         strings.Join(cfg.DefaultModels, ","),
		"state_file":             cfg.StateFile,
		"prompt_dirs":            strings.Join(cfg.PromptDirs, ","),
		"session_retention_days": fmt.Sprint(cfg.SessionRetentionDays),
		"reveal_enabled":         fmt.Sprint(cfg.RevealEnabled),
		"reveal_interval":        cfg.GetRevealInterval().String(),
		"reveal_jitter":          cfg.GetRevealJitter().String(),
		"log_level":              cfg.LogLevel,
		"log_format":             cfg.LogFormat,
	}
}

// maskToken returns a masked version of the token for security
func maskToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 8 {
		return "********"
	}
	return token[:4] + "..." + token[len(token)-4:]
}

func init() {
	rootCmd.AddCommand(configCmd)
}
