package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/longkey1/llmcmp/internal/llmcmp"
	"github.com/longkey1/llmcmp/internal/llmcmp/api"
	"github.com/longkey1/llmcmp/internal/llmcmp/auth"
	"github.com/longkey1/llmcmp/internal/llmcmp/config"
	"github.com/longkey1/llmcmp/internal/llmcmp/layout"
	"github.com/longkey1/llmcmp/internal/llmcmp/render"
	"github.com/longkey1/llmcmp/internal/llmcmp/selection"
	"github.com/longkey1/llmcmp/internal/llmcmp/session"
	"github.com/longkey1/llmcmp/internal/llmcmp/state"
	"golang.org/x/term"
)

// engine bundles what the comparison commands share.
type engine struct {
	cfg    *config.Config
	kv     state.Store
	creds  auth.Store
	client *api.Client
}

func newEngine() (*engine, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	kv := state.NewFileStore(cfg.StateFile)

	// Credentials from the config or environment take precedence over the stored ones
	var creds auth.Store = auth.NewStateStore(kv)
	if cfg.AccessToken != "" || cfg.RefreshToken != "" {
		creds = auth.NewMemoryStore(auth.Credentials{Access: cfg.AccessToken, Refresh: cfg.RefreshToken})
	}

	client := api.NewClient(cfg.APIBaseURL,
		api.WithTimeout(cfg.GetRequestTimeout()),
		api.WithLogger(slog.Default()),
	)

	if verbose {
		fmt.Fprintf(os.Stderr, "API: %s\n", cfg.APIBaseURL)
		fmt.Fprintf(os.Stderr, "State file: %s\n", kv.Path())
	}
	return &engine{cfg: cfg, kv: kv, creds: creds, client: client}, nil
}

func (e *engine) interceptor() *auth.Interceptor {
	return auth.NewInterceptor(e.creds, e.client, slog.Default())
}

func (e *engine) selection() *selection.Set {
	return selection.Load(e.kv, e.cfg.GetMaxModels())
}

func (e *engine) transcripts() (*session.Storage, error) {
	return openStorage()
}

// resolveModels picks the models of a turn with priority:
// flag > prompt template > persisted selection > config default_models.
func resolveModels(flagModels []string, templateModels []llmcmp.ModelIdentity, selected *selection.Set, defaults []llmcmp.ModelIdentity) ([]llmcmp.ModelIdentity, error) {
	limit := selected.Cap()
	var candidates []llmcmp.ModelIdentity
	switch {
	case len(flagModels) > 0:
		for _, m := range flagModels {
			id, err := llmcmp.ParseModelIdentity(m)
			if err != nil {
				return nil, fmt.Errorf("invalid model from flag: %w", err)
			}
			candidates = append(candidates, id)
		}
	case len(templateModels) > 0:
		candidates = templateModels
	case selected.Len() > 0:
		return selected.Models(), nil
	default:
		candidates = defaults
	}

	set := selection.New(limit, candidates...)
	if set.Len() < len(dedupe(candidates)) {
		return nil, fmt.Errorf("at most %d models can be compared at once (got %d)", limit, len(dedupe(candidates)))
	}
	if set.Len() == 0 {
		return nil, fmt.Errorf("no models selected\n\nSelect models with: llmcmp models select <provider:label>")
	}
	return set.Models(), nil
}

func dedupe(models []llmcmp.ModelIdentity) []llmcmp.ModelIdentity {
	return selection.New(len(models)+1, models...).Models()
}

// terminalWidth returns the width of stdout, or 100 when it is not a terminal.
func terminalWidth() int {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return 100
	}
	width, _, err := term.GetSize(fd)
	if err != nil || width <= 0 {
		return 100
	}
	return width
}

// renderPanels draws the panels as a grid of rendered responses.
func renderPanels(panels []session.Panel, width int) string {
	indexes := make([]int, len(panels))
	for i := range indexes {
		indexes[i] = i
	}

	cells := make([]layout.Panel, len(panels))
	for _, row := range layout.Rows(indexes) {
		bodyWidth := layout.ContentWidth(width, len(row))
		for _, i := range row {
			p := panels[i]
			cell := layout.Panel{Title: p.Model.Label, Badge: p.Model.Provider}
			if p.Status == session.PanelReady {
				cell.Body = render.Format(render.Render(p.Text), bodyWidth)
			} else {
				cell.Body = "(" + p.Status.String() + ")"
			}
			cells[i] = cell
		}
	}
	return layout.Grid(cells, width)
}

// renderPlain prints panels one after another without boxes.
func renderPlain(panels []session.Panel) string {
	var out string
	for i, p := range panels {
		if i > 0 {
			out += "\n"
		}
		out += fmt.Sprintf("=== %s ===\n", p.Model)
		if p.Status != session.PanelReady {
			out += fmt.Sprintf("(%s)\n", p.Status)
			continue
		}
		out += render.Plain(render.Render(p.Text)) + "\n"
	}
	return out
}

func formatCredits(credits float64) string {
	return fmt.Sprintf("%.2f", credits)
}

// pruneTranscripts applies session_retention_days; failures are only logged.
func pruneTranscripts(storage *session.Storage, retentionDays int) {
	if retentionDays <= 0 {
		return
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	removed, err := storage.Prune(cutoff)
	if err != nil {
		slog.Warn("failed to prune old sessions", "error", err)
		return
	}
	if removed > 0 {
		slog.Debug("pruned old sessions", "removed", removed)
	}
}
