/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"time"

	"github.com/longkey1/llmcmp/internal/llmcmp"
	promptpkg "github.com/longkey1/llmcmp/internal/llmcmp/prompt"
	"github.com/longkey1/llmcmp/internal/llmcmp/reveal"
	"github.com/longkey1/llmcmp/internal/llmcmp/session"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	modelFlags  []string
	promptName  string
	argFlags    []string
	useEditor   bool
	sessionID   string
	sessionName string
	plainOutput bool
	noSave      bool
)

// compareCmd represents the compare command
var compareCmd = &cobra.Command{
	Use:   "compare [prompt]",
	Short: "Send a prompt to every selected model",
	Long: `Send one prompt to every selected model and show the answers side by side.

If no prompt is provided as an argument, it reads from stdin.
If --editor flag is set, it opens the default editor (from EDITOR environment variable) to compose the prompt.

Models are chosen with priority: --model flags, the prompt template, the
selection saved with 'llmcmp models select', then default_models from the config.

Each comparison is saved as a local session. Continue it with --session.
For interactive multi-turn comparisons, use 'llmcmp compare start'.

The prompt file should be in TOML format with the following structure:
system = "System prompt with optional {{input}} placeholder"
user = "User prompt with optional {{input}} placeholder"
models = ["openai:GPT-4o", "azure:GPT-4o"]  # Optional: models for this prompt`,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEngine()
		if err != nil {
			return err
		}

		if err := checkSessionFlags(sessionID, promptName, modelFlags); err != nil {
			return err
		}

		var message string
		if useEditor {
			message, err = getMessageFromEditor()
			if err != nil {
				return fmt.Errorf("getting prompt from editor: %w", err)
			}
		} else if len(args) > 0 {
			message = strings.Join(args, " ")
		} else {
			input, err := io.ReadAll(os.Stdin)
			if err != nil {
				return fmt.Errorf("reading from stdin: %w", err)
			}
			message = strings.TrimSpace(string(input))
		}

		formatted, err := promptpkg.FormatMessage(message, promptName, e.cfg.PromptDirs, argFlags)
		if err != nil {
			return fmt.Errorf("formatting message with prompt: %w", err)
		}

		storage, err := e.transcripts()
		if err != nil {
			return err
		}

		var tr *session.Transcript
		if sessionID != "" {
			tr, err = storage.FindByPrefix(sessionID)
			if err != nil {
				return fmt.Errorf("finding session: %w", err)
			}
		}

		templateModels := formatted.Models
		if tr != nil {
			templateModels = tr.Models
		}
		models, err := resolveModels(modelFlags, templateModels, e.selection(), e.cfg.GetDefaultModels())
		if err != nil {
			return err
		}

		ctrl, anim := newController(e)
		isNew := tr == nil
		if isNew {
			tr = session.NewTranscript(models)
			tr.Name = sessionName
			tr.TemplateName = formatted.TemplateName
		} else {
			if err := ctrl.Restore(tr.RemoteID, tr.Turns); err != nil {
				return err
			}
			if verbose {
				fmt.Fprintf(os.Stderr, "Continuing session: %s\n", tr.GetShortID())
			}
		}

		if err := runTurn(cmd.Context(), ctrl, anim, formatted.Text, models); err != nil {
			return err
		}

		if noSave {
			return nil
		}
		tr.Record(ctrl.SessionID(), models, ctrl.History())
		if err := storage.Save(tr); err != nil {
			return fmt.Errorf("saving session: %w", err)
		}
		pruneTranscripts(storage, e.cfg.SessionRetentionDays)

		if isNew {
			fmt.Fprintf(os.Stderr, "\nSession saved: %s\n", tr.GetShortID())
			fmt.Fprintf(os.Stderr, "Continue with:\n  llmcmp compare -s %s \"your prompt\"\n", tr.GetShortID())
		}
		return nil
	},
}

// compareStartCmd represents the compare start command
var compareStartCmd = &cobra.Command{
	Use:   "start [session-id]",
	Short: "Start an interactive comparison",
	Long: `Start an interactive comparison with continuous conversation.

You can either start a new comparison or continue a saved session by providing its ID.
The ID can be a short ID (minimum 4 characters), full UUID, or "latest" for the most recent session.

Examples:
  llmcmp compare start              # Start a new interactive comparison
  llmcmp compare start 550e8400     # Continue session 550e8400
  llmcmp compare start latest       # Continue the latest session`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEngine()
		if err != nil {
			return err
		}
		storage, err := e.transcripts()
		if err != nil {
			return err
		}

		ctrl, anim := newController(e)
		var tr *session.Transcript
		if len(args) > 0 {
			if err := checkSessionFlags(args[0], "", modelFlags); err != nil {
				return err
			}
			tr, err = storage.FindByPrefix(args[0])
			if err != nil {
				return fmt.Errorf("finding session: %w", err)
			}
			if err := ctrl.Restore(tr.RemoteID, tr.Turns); err != nil {
				return err
			}
		}

		var templateModels []llmcmp.ModelIdentity
		if tr != nil {
			templateModels = tr.Models
		}
		models, err := resolveModels(modelFlags, templateModels, e.selection(), e.cfg.GetDefaultModels())
		if err != nil {
			return err
		}
		if tr == nil {
			tr = session.NewTranscript(models)
			tr.Name = sessionName
		}

		return runInteractiveMode(cmd.Context(), &interactive{
			engine:  e,
			ctrl:    ctrl,
			anim:    anim,
			storage: storage,
			tr:      tr,
			models:  models,
		})
	},
}

// checkSessionFlags rejects flags that would change a resumed session.
// A session keeps the models it started with.
func checkSessionFlags(sessionID, promptName string, models []string) error {
	if sessionID == "" {
		return nil
	}
	if promptName != "" {
		return fmt.Errorf("cannot use --prompt with existing session")
	}
	if len(models) > 0 {
		return fmt.Errorf("cannot use --model with existing session (start a new one to change models)")
	}
	return nil
}

func newController(e *engine) (*session.Controller, *reveal.Animator) {
	opts := []session.Option{session.WithLogger(slog.Default())}
	var anim *reveal.Animator
	if e.cfg.RevealEnabled && !plainOutput && term.IsTerminal(int(os.Stdout.Fd())) {
		anim = reveal.New(e.cfg.GetRevealInterval(), reveal.WithJitter(e.cfg.GetRevealJitter()))
		opts = append(opts, session.WithAnimator(anim))
	}
	return session.NewController(e.client, e.creds, opts...), anim
}

// runTurn submits one turn and prints the result.
func runTurn(parent context.Context, ctrl *session.Controller, anim *reveal.Animator, text string, models []llmcmp.ModelIdentity) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt)
	defer stop()

	var done chan bool
	if term.IsTerminal(int(os.Stderr.Fd())) {
		done = make(chan bool)
		go showSpinner(done, len(models))
	}
	res, err := ctrl.SubmitTurn(ctx, text, models)
	if done != nil {
		done <- true
		close(done)
	}
	if err != nil {
		if errors.Is(err, llmcmp.ErrValidation) {
			return err
		}
		msg := ctrl.LastError()
		if msg == "" {
			msg = llmcmp.UserMessage(err)
		}
		return fmt.Errorf("%s: %w", msg, err)
	}

	printPanels(ctrl, anim)

	for _, m := range res.Missing {
		fmt.Fprintf(os.Stderr, "Note: %s did not respond.\n", m)
	}
	if res.Credits != nil {
		fmt.Fprintf(os.Stderr, "Credits remaining: %s\n", formatCredits(*res.Credits))
	}
	return nil
}

// printPanels prints the latest panels, repainting them while reveals run.
func printPanels(ctrl *session.Controller, anim *reveal.Animator) {
	if plainOutput {
		fmt.Print(renderPlain(ctrl.Panels(nil)))
		return
	}
	width := terminalWidth()
	if anim == nil {
		fmt.Println(renderPanels(ctrl.Panels(nil), width))
		return
	}

	finished := make(chan struct{})
	go func() {
		anim.Wait()
		close(finished)
	}()

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	lines := 0
	draw := func() {
		if lines > 0 {
			fmt.Printf("\033[%dA\033[J", lines)
		}
		out := renderPanels(ctrl.Panels(nil), width)
		fmt.Println(out)
		lines = strings.Count(out, "\n") + 1
	}
	for {
		select {
		case <-finished:
			draw()
			return
		case <-ticker.C:
			draw()
		}
	}
}

// showSpinner displays a spinner animation while waiting for responses
func showSpinner(done chan bool, models int) {
	spinners := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	i := 0
	for {
		select {
		case <-done:
			fmt.Fprint(os.Stderr, "\r\033[K")
			return
		default:
			fmt.Fprintf(os.Stderr, "\r%s Waiting for %d models...", spinners[i], models)
			i = (i + 1) % len(spinners)
			time.Sleep(80 * time.Millisecond)
		}
	}
}

// getMessageFromEditor opens the default editor and returns the edited message
func getMessageFromEditor() (string, error) {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		return "", fmt.Errorf("EDITOR environment variable is not set")
	}

	tmpFile, err := os.CreateTemp("", "llmcmp-*.md")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file: %v", err)
	}
	tmpFile.Close()
	defer os.Remove(tmpFile.Name())

	cmd := exec.Command(editor, tmpFile.Name())
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("failed to open editor: %v", err)
	}

	content, err := os.ReadFile(tmpFile.Name())
	if err != nil {
		return "", fmt.Errorf("failed to read edited content: %v", err)
	}
	return strings.TrimSpace(string(content)), nil
}

func init() {
	rootCmd.AddCommand(compareCmd)
	compareCmd.AddCommand(compareStartCmd)

	compareCmd.PersistentFlags().StringArrayVarP(&modelFlags, "model", "m", nil, "Model to compare (format: provider:label, repeatable)")
	compareCmd.PersistentFlags().StringVar(&sessionName, "name", "", "Name for a new session (optional)")
	compareCmd.PersistentFlags().BoolVar(&plainOutput, "plain", false, "Print answers one after another without panels or animation")

	compareCmd.Flags().StringVarP(&promptName, "prompt", "p", "", "Name of the prompt template (without .toml extension)")
	compareCmd.Flags().StringArrayVar(&argFlags, "arg", []string{}, "Key-value pairs for prompt template (format: key:value)")
	compareCmd.Flags().BoolVarP(&useEditor, "editor", "e", false, "Use default editor (from EDITOR environment variable) to compose the prompt")
	compareCmd.Flags().StringVarP(&sessionID, "session", "s", "", "Session ID to continue (short or full UUID, or 'latest')")
	compareCmd.Flags().BoolVar(&noSave, "no-save", false, "Do not save this comparison as a local session")
}
