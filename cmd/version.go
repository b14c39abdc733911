package cmd

import (
	"fmt"

	"github.com/longkey1/llmcmp/internal/version"
	"github.com/spf13/cobra"
)

var versionShort bool

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long: `Show the llmcmp version, the commit and time it was built from,
and the Go version and platform of the binary.

Use --short to print only the version number, for scripts.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := version.Info()
		if versionShort {
			out = version.Short()
		}
		_, err := fmt.Fprintln(cmd.OutOrStdout(), out)
		return err
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolVarP(&versionShort, "short", "s", false, "Show only version number")
}
