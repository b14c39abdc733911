/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/longkey1/llmcmp/internal/llmcmp/config"
	"github.com/longkey1/llmcmp/internal/llmcmp/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "llmcmp",
	Short: "Compare answers from several LLMs side by side",
	Long: `llmcmp sends one prompt to several models of a comparison service and
shows their answers side by side, across multiple conversational turns.

Select up to six models with 'llmcmp models select', then run
'llmcmp compare "your prompt"' or start an interactive comparison with
'llmcmp compare start'.
You can configure the tool using a TOML configuration file.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := viper.GetString("log_level")
		if verbose {
			level = "debug"
		}
		if _, err := logging.Setup(level, viper.GetString("log_format"), os.Stderr); err != nil {
			return fmt.Errorf("configuring logging: %w", err)
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/llmcmp/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	viper.SetEnvPrefix("LLMCMP")
	viper.AutomaticEnv()

	userConfigDir, err := config.UserConfigDir()
	cobra.CheckErr(err)

	defaultConfig := config.NewDefaultConfig(userConfigDir)
	config.SetDefaults(defaultConfig)
	// Later directories take precedence over earlier ones
	viper.SetDefault("prompt_dirs", []string{
		"/usr/share/llmcmp/prompts",
		"/usr/local/share/llmcmp/prompts",
		defaultConfig.PromptDirs[0],
	})

	viper.BindEnv("api_base_url", "LLMCMP_API_BASE_URL")
	viper.BindEnv("access_token", "LLMCMP_ACCESS_TOKEN")
	viper.BindEnv("refresh_token", "LLMCMP_REFRESH_TOKEN")
	viper.BindEnv("log_level", "LLMCMP_LOG_LEVEL")

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", err)
		}
	} else {
		// System-wide config first (lower priority)
		for _, path := range []string{"/etc/llmcmp", "/usr/local/etc/llmcmp"} {
			viper.AddConfigPath(path)
		}
		viper.SetConfigType("toml")
		viper.SetConfigName("config")

		systemConfigLoaded := false
		if err := viper.ReadInConfig(); err == nil {
			systemConfigLoaded = true
			if verbose {
				fmt.Fprintln(os.Stderr, "Loaded system-wide config:", viper.ConfigFileUsed())
			}
		}

		// User config merged on top
		viper.AddConfigPath(userConfigDir)
		if systemConfigLoaded {
			if err := viper.MergeInConfig(); err != nil {
				if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
					fmt.Fprintf(os.Stderr, "Error merging user config file: %v\n", err)
				}
			} else if verbose {
				fmt.Fprintln(os.Stderr, "Merged user config:", viper.ConfigFileUsed())
			}
		} else if err := viper.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", err)
			}
		}
	}

	if verbose {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		fmt.Fprintln(os.Stderr, "  LLMCMP_API_BASE_URL:", viper.GetString("api_base_url"))
		fmt.Fprintln(os.Stderr, "  LLMCMP_STATE_FILE:", viper.GetString("state_file"))
		fmt.Fprintln(os.Stderr, "  LLMCMP_PROMPT_DIRS:", viper.GetStringSlice("prompt_dirs"))
		fmt.Fprintln(os.Stderr, "  LLMCMP_REVEAL_ENABLED:", viper.GetBool("reveal_enabled"))
	}
}
