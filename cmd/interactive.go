package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/longkey1/llmcmp/internal/llmcmp"
	"github.com/longkey1/llmcmp/internal/llmcmp/reveal"
	"github.com/longkey1/llmcmp/internal/llmcmp/selection"
	"github.com/longkey1/llmcmp/internal/llmcmp/session"
)

// interactive holds the state of one 'compare start' loop.
type interactive struct {
	engine  *engine
	ctrl    *session.Controller
	anim    *reveal.Animator
	storage *session.Storage
	tr      *session.Transcript
	models  []llmcmp.ModelIdentity
}

// runInteractiveMode reads prompts until EOF or /exit, comparing each one
func runInteractiveMode(ctx context.Context, in *interactive) error {
	fmt.Fprintf(os.Stderr, "\n=== Interactive Comparison [%s] ===\n", in.tr.GetShortID())
	fmt.Fprintf(os.Stderr, "Models: %s\n", modelsString(in.models))
	if n := in.tr.TurnCount(); n > 0 {
		fmt.Fprintf(os.Stderr, "Continuing after %d turns\n", n)
	}
	fmt.Fprintf(os.Stderr, "Type '/help' for commands, '/exit' or 'Ctrl+D' to quit\n")
	fmt.Fprintf(os.Stderr, "===================================\n\n")

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Fprint(os.Stderr, "You> ")

		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("input error: %w", err)
			}
			fmt.Fprintln(os.Stderr, "\nGoodbye!")
			return nil
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			if handleSpecialCommand(ctx, input, in) {
				continue
			}
			return nil
		}

		in.ctrl.SetDraft(input)
		in.submit(ctx)
	}
}

// submit sends the current draft. A failed draft stays for /retry.
func (in *interactive) submit(ctx context.Context) {
	if err := runTurn(ctx, in.ctrl, in.anim, in.ctrl.Draft(), in.models); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fmt.Fprintf(os.Stderr, "Type '/retry' to send the prompt again.\n\n")
		return
	}
	fmt.Println()

	in.tr.Record(in.ctrl.SessionID(), in.models, in.ctrl.History())
	if err := in.storage.Save(in.tr); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to save session: %v\n", err)
	}
}

// toggle adds or removes a model before the first turn of a conversation.
func (in *interactive) toggle(arg string) error {
	if len(in.ctrl.History()) > 0 {
		return fmt.Errorf("models cannot change during a conversation; use /reset first")
	}
	id, err := llmcmp.ParseModelIdentity(arg)
	if err != nil {
		return err
	}
	set := selection.New(in.engine.cfg.GetMaxModels(), in.models...)
	next := set.Toggle(id)
	if next == set {
		return fmt.Errorf("at most %d models can be compared at once", set.Cap())
	}
	if next.Len() == 0 {
		return fmt.Errorf("at least one model must stay selected")
	}
	in.models = next.Models()
	return nil
}

// handleSpecialCommand processes special commands in interactive mode
// Returns true to continue the loop, false to exit
func handleSpecialCommand(ctx context.Context, input string, in *interactive) bool {
	command, arg, _ := strings.Cut(strings.TrimSpace(input), " ")
	command = strings.ToLower(command)
	arg = strings.TrimSpace(arg)

	switch command {
	case "/help", "/h":
		fmt.Fprintln(os.Stderr, "\nAvailable commands:")
		fmt.Fprintln(os.Stderr, "  /help, /h              - Show this help message")
		fmt.Fprintln(os.Stderr, "  /info, /i              - Show session information")
		fmt.Fprintln(os.Stderr, "  /models                - Show the models being compared")
		fmt.Fprintln(os.Stderr, "  /toggle provider:label - Add or remove a model (before the first prompt)")
		fmt.Fprintln(os.Stderr, "  /retry, /r             - Send the last failed prompt again")
		fmt.Fprintln(os.Stderr, "  /reset                 - Start a new conversation")
		fmt.Fprintln(os.Stderr, "  /clear, /c             - Clear screen (Unix/Linux only)")
		fmt.Fprintln(os.Stderr, "  /exit, /quit           - Exit interactive mode")
		fmt.Fprintln(os.Stderr, "  Ctrl+D                 - Exit interactive mode")
		fmt.Fprintln(os.Stderr, "")
		return true

	case "/info", "/i":
		fmt.Fprintln(os.Stderr, "\nSession Information:")
		fmt.Fprintf(os.Stderr, "  ID: %s\n", in.tr.GetShortID())
		fmt.Fprintf(os.Stderr, "  Full ID: %s\n", in.tr.ID)
		if in.tr.Name != "" {
			fmt.Fprintf(os.Stderr, "  Name: %s\n", in.tr.Name)
		}
		if id := in.ctrl.SessionID(); id != "" {
			fmt.Fprintf(os.Stderr, "  Remote session: %s\n", id)
		}
		fmt.Fprintf(os.Stderr, "  Models: %s\n", modelsString(in.models))
		fmt.Fprintf(os.Stderr, "  Turns: %d\n", in.tr.TurnCount())
		if credits, ok := in.ctrl.Credits(); ok {
			fmt.Fprintf(os.Stderr, "  Credits: %s\n", formatCredits(credits))
		}
		if msg := in.ctrl.LastError(); msg != "" {
			fmt.Fprintf(os.Stderr, "  Last error: %s\n", msg)
		}
		fmt.Fprintln(os.Stderr, "")
		return true

	case "/models":
		for i, m := range in.models {
			fmt.Fprintf(os.Stderr, "  %d. %s\n", i+1, m)
		}
		return true

	case "/toggle", "/t":
		if err := in.toggle(arg); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return true
		}
		fmt.Fprintf(os.Stderr, "Models: %s\n", modelsString(in.models))
		return true

	case "/retry", "/r":
		if in.ctrl.Draft() == "" {
			fmt.Fprintln(os.Stderr, "Nothing to retry.")
			return true
		}
		in.submit(ctx)
		return true

	case "/reset":
		in.ctrl.Reset()
		in.tr = session.NewTranscript(in.models)
		fmt.Fprintf(os.Stderr, "Started a new conversation [%s]\n", in.tr.GetShortID())
		return true

	case "/clear", "/c":
		fmt.Print("\033[H\033[2J")
		return true

	case "/exit", "/quit", "/q":
		fmt.Fprintln(os.Stderr, "Goodbye!")
		return false

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s (type '/help' for available commands)\n", command)
		return true
	}
}

func modelsString(models []llmcmp.ModelIdentity) string {
	names := make([]string, len(models))
	for i, m := range models {
		names[i] = m.String()
	}
	return strings.Join(names, ", ")
}
