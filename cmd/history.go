package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/longkey1/llmcmp/internal/llmcmp"
	"github.com/longkey1/llmcmp/internal/llmcmp/api"
	"github.com/longkey1/llmcmp/internal/llmcmp/selection"
	"github.com/spf13/cobra"
)

var (
	historyLimit     int
	historyPrintOnly bool
)

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past comparisons recorded by the service",
	Long: `List the comparisons the service has recorded for your account, newest first.

Use 'llmcmp history use <n>' to select the models of entry n for the next comparison.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEngine()
		if err != nil {
			return err
		}
		entries, err := fetchHistory(cmd.Context(), e)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("No history found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "#\tCREATED\tMODELS\tPROMPT")
		fmt.Fprintln(w, "-\t-------\t------\t------")
		for i, entry := range entries {
			if historyLimit > 0 && i >= historyLimit {
				break
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n",
				i+1,
				entry.CreatedAt.Local().Format("2006-01-02 15:04"),
				modelsString(entry.Identities()),
				summarize(entry.Prompt, 50),
			)
		}
		w.Flush()
		return nil
	},
}

// historyUseCmd represents the history use command
var historyUseCmd = &cobra.Command{
	Use:   "use <n>",
	Short: "Select the models of a history entry and show its prompt",
	Long: `Select the models of history entry n for the next comparison and show
the prompt that was sent.

With --print only the prompt is written to stdout, so it can be sent again:
  llmcmp history use 3 --print | llmcmp compare`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			return fmt.Errorf("invalid history entry: %s", args[0])
		}

		e, err := newEngine()
		if err != nil {
			return err
		}
		entries, err := fetchHistory(cmd.Context(), e)
		if err != nil {
			return err
		}
		if n > len(entries) {
			return fmt.Errorf("history has only %d entries", len(entries))
		}

		ids := entries[n-1].Identities()
		set := selection.New(e.cfg.GetMaxModels(), ids...)
		if set.Len() < len(dedupe(ids)) {
			fmt.Fprintf(os.Stderr, "Warning: only the first %d models were selected\n", set.Cap())
		}
		if err := selection.Save(e.kv, set); err != nil {
			return fmt.Errorf("saving selection: %w", err)
		}
		if historyPrintOnly {
			fmt.Print(entries[n-1].Prompt)
			return nil
		}
		printSelection(set)
		printHistoryPrompt(os.Stdout, entries[n-1], n)
		return nil
	},
}

func printHistoryPrompt(w io.Writer, entry api.HistoryEntry, n int) {
	fmt.Fprintf(w, "\nPrompt:\n%s\n", entry.Prompt)
	fmt.Fprintf(w, "\nSend it again with:\n  llmcmp history use %d --print | llmcmp compare\n", n)
}

func fetchHistory(ctx context.Context, e *engine) ([]api.HistoryEntry, error) {
	var entries []api.HistoryEntry
	err := e.interceptor().Do(ctx, func(ctx context.Context, access string) error {
		var err error
		entries, err = e.client.History(ctx, access)
		return err
	})
	if errors.Is(err, llmcmp.ErrAuthExpired) {
		return nil, errors.New(llmcmp.UserMessage(err))
	}
	if err != nil {
		return nil, fmt.Errorf("fetching history: %w", err)
	}
	return entries, nil
}

// summarize returns the first line of s cut to n runes
func summarize(s string, n int) string {
	s, _, _ = strings.Cut(strings.TrimSpace(s), "\n")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyUseCmd)

	historyUseCmd.Flags().BoolVar(&historyPrintOnly, "print", false, "Print only the prompt of the entry")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum number of entries to show (0 for all)")
}
