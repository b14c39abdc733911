package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/longkey1/llmcmp/internal/llmcmp"
	"github.com/longkey1/llmcmp/internal/llmcmp/config"
	"github.com/longkey1/llmcmp/internal/llmcmp/render"
	"github.com/longkey1/llmcmp/internal/llmcmp/session"
	"github.com/spf13/cobra"
)

// sessionsCmd represents the sessions command
var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage saved comparisons",
	Long: `Manage saved comparisons including listing, viewing, and deleting them.

Every comparison is saved locally so it can be continued later with
'llmcmp compare -s <id>' or 'llmcmp compare start <id>'.`,
}

// sessionsListCmd represents the sessions list command
var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all sessions",
	Long:  `List all saved comparisons sorted by most recently updated.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		storage, err := openStorage()
		if err != nil {
			return err
		}
		transcripts, err := storage.List()
		if err != nil {
			return fmt.Errorf("listing sessions: %w", err)
		}

		if len(transcripts) == 0 {
			fmt.Println("No sessions found.")
			fmt.Println("\nStart a comparison with:")
			fmt.Println("  llmcmp compare \"your prompt\"")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tMODELS\tCREATED\tTURNS\tNAME")
		fmt.Fprintln(w, "--\t------\t-------\t-----\t----")
		for _, t := range transcripts {
			name := t.Name
			if name == "" {
				name = "-"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
				t.GetShortID(),
				t.ModelsString(),
				t.CreatedAt.Format("2006-01-02"),
				t.TurnCount(),
				name,
			)
		}
		w.Flush()

		fmt.Println("\nUse 'llmcmp sessions show <id>' to view session details.")
		return nil
	},
}

// sessionsShowCmd represents the sessions show command
var sessionsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show session details and history",
	Long: `Show detailed information about a session including every answer.

The ID can be a short ID (minimum 4 characters), full UUID, or "latest" for the most recent session.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		storage, err := openStorage()
		if err != nil {
			return err
		}
		t, err := storage.FindByPrefix(args[0])
		if err != nil {
			return fmt.Errorf("finding session: %w", err)
		}

		fmt.Printf("Session: %s\n", t.ID)
		if t.Name != "" {
			fmt.Printf("Name: %s\n", t.Name)
		}
		if t.RemoteID != "" {
			fmt.Printf("Remote session: %s\n", t.RemoteID)
		}
		fmt.Printf("Models: %s\n", t.ModelsString())
		fmt.Printf("Created: %s\n", t.CreatedAt.Format("2006-01-02 15:04:05"))
		fmt.Printf("Updated: %s\n", t.UpdatedAt.Format("2006-01-02 15:04:05"))
		if t.TemplateName != "" {
			fmt.Printf("Template: %s\n", t.TemplateName)
		}
		fmt.Printf("Turns: %d\n", t.TurnCount())
		fmt.Println()

		if len(t.Turns) == 0 {
			fmt.Println("No turns in this session.")
			return nil
		}

		fmt.Println("History:")
		fmt.Println("--------")
		fmt.Print(formatTurns(t.Turns))

		fmt.Printf("\nContinue this session with:\n  llmcmp compare -s %s \"your prompt\"\n", t.GetShortID())
		return nil
	},
}

// formatTurns prints a transcript's turns, numbering the user prompts
func formatTurns(turns []llmcmp.Turn) string {
	var out string
	n := 0
	for _, turn := range turns {
		if turn.Role == llmcmp.RoleUser {
			n++
			out += fmt.Sprintf("\n[%d] You:\n%s\n", n, turn.Content)
			continue
		}
		label := "Assistant"
		if turn.Model != nil {
			label = turn.Model.String()
		}
		out += fmt.Sprintf("\n    %s:\n%s\n", label, render.Plain(render.Render(turn.Content)))
	}
	return out
}

// sessionsDeleteCmd represents the sessions delete command
var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a session",
	Long: `Delete a saved comparison permanently.

The ID can be a short ID (minimum 4 characters), full UUID, or "latest" for the most recent session.

Warning: This action cannot be undone.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		storage, err := openStorage()
		if err != nil {
			return err
		}
		t, err := storage.FindByPrefix(args[0])
		if err != nil {
			return fmt.Errorf("finding session: %w", err)
		}

		if !confirm(fmt.Sprintf("Are you sure you want to delete session %s?", t.GetShortID())) {
			fmt.Println("Deletion cancelled.")
			return nil
		}

		if err := storage.Delete(t.ID); err != nil {
			return fmt.Errorf("deleting session: %w", err)
		}
		fmt.Printf("Session %s deleted successfully.\n", t.GetShortID())
		return nil
	},
}

// sessionsRenameCmd represents the sessions rename command
var sessionsRenameCmd = &cobra.Command{
	Use:   "rename <id> <name>",
	Short: "Rename a session",
	Long: `Rename a saved comparison.

The ID can be a short ID (minimum 4 characters), full UUID, or "latest" for the most recent session.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		storage, err := openStorage()
		if err != nil {
			return err
		}
		t, err := storage.FindByPrefix(args[0])
		if err != nil {
			return fmt.Errorf("finding session: %w", err)
		}

		t.Name = args[1]
		if err := storage.Save(t); err != nil {
			return fmt.Errorf("saving session: %w", err)
		}
		fmt.Printf("Session %s renamed to \"%s\".\n", t.GetShortID(), args[1])
		return nil
	},
}

// sessionsClearCmd represents the sessions clear command
var sessionsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete old sessions",
	Long: `Delete old saved comparisons permanently.

By default, deletes sessions not updated within session_retention_days (30 by default).
Use --before to specify a date, or --all to delete all sessions.

Warning: This action cannot be undone.

Examples:
  llmcmp sessions clear                      # Delete sessions older than the retention period
  llmcmp sessions clear --before 2024-01-01  # Delete sessions last updated before 2024-01-01
  llmcmp sessions clear --before 2024-12     # Delete sessions last updated before 2024-12-01
  llmcmp sessions clear --all                # Delete all sessions`,
	RunE: func(cmd *cobra.Command, args []string) error {
		beforeDateStr, _ := cmd.Flags().GetString("before")
		deleteAll, _ := cmd.Flags().GetBool("all")

		storage, err := openStorage()
		if err != nil {
			return err
		}

		if deleteAll {
			transcripts, err := storage.List()
			if err != nil {
				return fmt.Errorf("listing sessions: %w", err)
			}
			if len(transcripts) == 0 {
				fmt.Println("No sessions to delete.")
				return nil
			}
			if !confirm(fmt.Sprintf("Are you sure you want to delete all %d sessions?", len(transcripts))) {
				fmt.Println("Deletion cancelled.")
				return nil
			}
			deleted, err := storage.Clear()
			if err != nil {
				return fmt.Errorf("deleting sessions: %w", err)
			}
			fmt.Printf("Successfully deleted %d sessions.\n", deleted)
			return nil
		}

		var cutoff time.Time
		if beforeDateStr != "" {
			cutoff, err = parseDate(beforeDateStr)
			if err != nil {
				return fmt.Errorf("parsing date: %w", err)
			}
		} else {
			cfg, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if cfg.SessionRetentionDays <= 0 {
				fmt.Println("Session retention is disabled; use --before or --all.")
				return nil
			}
			cutoff = time.Now().AddDate(0, 0, -cfg.SessionRetentionDays)
		}

		candidates, err := countBefore(storage, cutoff)
		if err != nil {
			return err
		}
		if candidates == 0 {
			fmt.Printf("No sessions found last updated before %s.\n", cutoff.Format("2006-01-02"))
			return nil
		}
		if !confirm(fmt.Sprintf("Are you sure you want to delete %d sessions last updated before %s?", candidates, cutoff.Format("2006-01-02"))) {
			fmt.Println("Deletion cancelled.")
			return nil
		}

		deleted, err := storage.Prune(cutoff)
		if err != nil {
			return fmt.Errorf("deleting sessions: %w", err)
		}
		fmt.Printf("Successfully deleted %d sessions.\n", deleted)
		return nil
	},
}

func openStorage() (*session.Storage, error) {
	dir, err := session.DefaultDir()
	if err != nil {
		return nil, fmt.Errorf("locating sessions: %w", err)
	}
	return session.NewStorage(dir), nil
}

func countBefore(storage *session.Storage, cutoff time.Time) (int, error) {
	transcripts, err := storage.List()
	if err != nil {
		return 0, fmt.Errorf("listing sessions: %w", err)
	}
	n := 0
	for _, t := range transcripts {
		if t.UpdatedAt.Before(cutoff) {
			n++
		}
	}
	return n, nil
}

func confirm(question string) bool {
	fmt.Printf("%s [y/N]: ", question)
	var response string
	fmt.Scanln(&response)
	return response == "y" || response == "Y"
}

// parseDate parses a date string in various formats and returns a time.Time
// Supported formats: YYYY-MM-DD, YYYY-MM, YYYY
func parseDate(dateStr string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", "2006-01", "2006"} {
		if t, err := time.ParseInLocation(layout, dateStr, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date format: %s (use YYYY-MM-DD, YYYY-MM, or YYYY)", dateStr)
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsShowCmd)
	sessionsCmd.AddCommand(sessionsDeleteCmd)
	sessionsCmd.AddCommand(sessionsRenameCmd)
	sessionsCmd.AddCommand(sessionsClearCmd)

	sessionsClearCmd.Flags().String("before", "", "Delete only sessions last updated before this date (format: YYYY-MM-DD, YYYY-MM, or YYYY)")
	sessionsClearCmd.Flags().Bool("all", false, "Delete all sessions (overrides retention days setting)")
}
