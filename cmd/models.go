/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/longkey1/llmcmp/internal/llmcmp"
	"github.com/longkey1/llmcmp/internal/llmcmp/layout"
	"github.com/longkey1/llmcmp/internal/llmcmp/selection"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
)

// modelsCmd represents the models command
var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List and select the models to compare",
	Long: `List the models offered by the comparison service and manage which
ones are compared.

The selection is saved in the state file and used by 'llmcmp compare'
when no --model flag or prompt template names models.

Example:
  llmcmp models list
  llmcmp models select openai:GPT-4o azure:GPT-4o
  llmcmp models show`,
}

// modelsListCmd represents the models list command
var modelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available models",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEngine()
		if err != nil {
			return err
		}
		selected := e.selection()
		catalog := e.cfg.GetCatalog()

		maxModelWidth := 15
		for _, entry := range catalog {
			maxModelWidth = max(maxModelWidth, runewidth.StringWidth(entry.Identity().String()))
		}

		fmt.Printf("%s  %-8s  %s\n", runewidth.FillRight("MODEL", maxModelWidth), "SELECTED", "DESCRIPTION")
		fmt.Printf("%s  %s  %s\n",
			strings.Repeat("-", maxModelWidth),
			strings.Repeat("-", 8),
			strings.Repeat("-", 50))
		for _, entry := range catalog {
			mark := ""
			if selected.Contains(entry.Identity()) {
				mark = "Yes"
			}
			fmt.Printf("%s  %-8s  %s\n",
				runewidth.FillRight(entry.Identity().String(), maxModelWidth),
				mark,
				entry.Description)
		}

		fmt.Printf("\nSelect models with: llmcmp models select <provider:label>...\n")
		return nil
	},
}

// modelsSelectCmd represents the models select command
var modelsSelectCmd = &cobra.Command{
	Use:   "select <provider:label>...",
	Short: "Toggle models in the saved selection",
	Long: `Toggle each given model in the saved selection: a selected model is
removed, any other model is added while the selection is below max_models.

Labels may contain spaces, so quote them:
  llmcmp models select "openai:o4 – mini"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEngine()
		if err != nil {
			return err
		}

		set := e.selection()
		for _, arg := range args {
			id, err := llmcmp.ParseModelIdentity(arg)
			if err != nil {
				return err
			}
			if !inCatalog(e.cfg.GetCatalog(), id) {
				fmt.Fprintf(os.Stderr, "Warning: %s is not in the model catalog\n", id)
			}
			next := set.Toggle(id)
			if next == set {
				fmt.Fprintf(os.Stderr, "Warning: skipping %s, at most %d models can be selected\n", id, set.Cap())
				continue
			}
			set = next
		}

		if err := selection.Save(e.kv, set); err != nil {
			return fmt.Errorf("saving selection: %w", err)
		}
		printSelection(set)
		return nil
	},
}

// modelsClearCmd represents the models clear command
var modelsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear the saved selection",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEngine()
		if err != nil {
			return err
		}
		if err := selection.Save(e.kv, selection.New(e.cfg.GetMaxModels())); err != nil {
			return fmt.Errorf("saving selection: %w", err)
		}
		fmt.Println("Selection cleared.")
		return nil
	},
}

// modelsShowCmd represents the models show command
var modelsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the saved selection and how it is laid out",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEngine()
		if err != nil {
			return err
		}
		printSelection(e.selection())
		return nil
	},
}

func printSelection(set *selection.Set) {
	if set.Len() == 0 {
		fmt.Println("No models selected.")
		return
	}
	fmt.Printf("Selected models (%d/%d):\n", set.Len(), set.Cap())
	for i, row := range layout.Rows(set.Models()) {
		names := make([]string, len(row))
		for j, m := range row {
			names[j] = m.String()
		}
		fmt.Printf("  row %d: %s\n", i+1, strings.Join(names, " | "))
	}
}

func inCatalog(catalog []llmcmp.CatalogEntry, id llmcmp.ModelIdentity) bool {
	for _, entry := range catalog {
		if entry.Identity() == id {
			return true
		}
	}
	return false
}

func init() {
	rootCmd.AddCommand(modelsCmd)
	modelsCmd.AddCommand(modelsListCmd)
	modelsCmd.AddCommand(modelsSelectCmd)
	modelsCmd.AddCommand(modelsClearCmd)
	modelsCmd.AddCommand(modelsShowCmd)
}
