package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/longkey1/llmcmp/internal/llmcmp"
	"github.com/longkey1/llmcmp/internal/llmcmp/api"
	"github.com/longkey1/llmcmp/internal/llmcmp/auth"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	loginAccess  string
	loginRefresh string
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the credentials for the comparison service",
	Long: `Manage the access and refresh credentials used to call the comparison service.

Credentials are kept in the state file. The access_token and refresh_token
config values (or LLMCMP_ACCESS_TOKEN / LLMCMP_REFRESH_TOKEN) take precedence
over stored credentials.`,
}

// authLoginCmd represents the auth login command
var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store credentials",
	Long: `Store the access and refresh credentials issued by the comparison service.

Credentials not given as flags are read from the terminal without echo.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEngine()
		if err != nil {
			return err
		}

		access := loginAccess
		if access == "" {
			if access, err = readSecret("Access token: "); err != nil {
				return err
			}
		}
		refresh := loginRefresh
		if refresh == "" && !cmd.Flags().Changed("refresh") {
			if refresh, err = readSecret("Refresh token (optional): "); err != nil {
				return err
			}
		}
		if access == "" && refresh == "" {
			return fmt.Errorf("no credentials given")
		}

		if err := auth.NewStateStore(e.kv).Set(auth.Credentials{Access: access, Refresh: refresh}); err != nil {
			return fmt.Errorf("storing credentials: %w", err)
		}
		fmt.Println("Credentials saved.")
		return nil
	},
}

// authStatusCmd represents the auth status command
var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the stored credentials are accepted",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEngine()
		if err != nil {
			return err
		}

		creds := e.creds.Get()
		fmt.Printf("Access token: %s\n", orNone(maskToken(creds.Access)))
		fmt.Printf("Refresh token: %s\n", orNone(maskToken(creds.Refresh)))
		if creds.Access == "" && creds.Refresh == "" {
			fmt.Println("\nSign in with:\n  llmcmp auth login")
			return nil
		}

		var stats *api.UserStats
		err = e.interceptor().Do(cmd.Context(), func(ctx context.Context, access string) error {
			var err error
			stats, err = e.client.UserStats(ctx, access)
			return err
		})
		if errors.Is(err, llmcmp.ErrAuthExpired) {
			return errors.New(llmcmp.UserMessage(err))
		}
		if err != nil {
			return fmt.Errorf("fetching user stats: %w", err)
		}

		fmt.Printf("Credits remaining: %s\n", formatCredits(stats.AvailableCredits))
		if stats.LastUsedAt != nil {
			fmt.Printf("Last used: %s\n", stats.LastUsedAt.Local().Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

// authLogoutCmd represents the auth logout command
var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove stored credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEngine()
		if err != nil {
			return err
		}
		if err := auth.NewStateStore(e.kv).Clear(); err != nil {
			return fmt.Errorf("clearing credentials: %w", err)
		}
		fmt.Println("Signed out.")
		return nil
	},
}

func readSecret(label string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", nil
	}
	fmt.Fprint(os.Stderr, label)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading credential: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authStatusCmd)
	authCmd.AddCommand(authLogoutCmd)

	authLoginCmd.Flags().StringVar(&loginAccess, "access", "", "Access token")
	authLoginCmd.Flags().StringVar(&loginRefresh, "refresh", "", "Refresh token")
}
