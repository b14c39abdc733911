package session

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/longkey1/llmcmp/internal/llmcmp"
	"github.com/longkey1/llmcmp/internal/llmcmp/api"
	"github.com/longkey1/llmcmp/internal/llmcmp/auth"
	"github.com/longkey1/llmcmp/internal/llmcmp/logging"
	"github.com/longkey1/llmcmp/internal/llmcmp/reveal"
)

// State is the lifecycle state of a Controller.
type State int

const (
	StateIdle State = iota
	StateDispatching
	StateReconciling
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDispatching:
		return "dispatching"
	case StateReconciling:
		return "reconciling"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Client is the remote side of a comparison: submitting turns and
// refreshing the access credential.
type Client interface {
	Submit(ctx context.Context, access string, req api.PromptRequest) (*api.PromptResponse, error)
	auth.Refresher
}

// Animator reveals finished responses progressively.
type Animator interface {
	Start(key, text string, sink reveal.Sink)
	Cancel() uint64
}

// PanelStatus describes what a model's panel currently shows.
type PanelStatus int

const (
	PanelPending PanelStatus = iota
	PanelLoading
	PanelReady
)

func (s PanelStatus) String() string {
	switch s {
	case PanelLoading:
		return "waiting for response"
	case PanelReady:
		return "ready"
	default:
		return "no response yet"
	}
}

// Panel is one model's slot in the comparison view.
type Panel struct {
	Model  llmcmp.ModelIdentity
	Status PanelStatus
	Text   string
}

// TurnResult summarises a committed turn.
type TurnResult struct {
	SessionID string
	Responses map[string]string
	// Missing lists requested models absent from the reply.
	Missing []llmcmp.ModelIdentity
	Credits *float64
}

// Controller runs a multi-turn comparison against the remote service.
// It is safe for concurrent use; only one turn may be in flight.
type Controller struct {
	client      Client
	creds       auth.Store
	interceptor *auth.Interceptor
	animator    Animator
	logger      *slog.Logger
	now         func() time.Time

	mu        sync.Mutex
	state     State
	gen       uint64
	cancel    context.CancelFunc
	sessionID string
	history   []llmcmp.Turn
	responses map[string]string
	revealed  map[string]string
	requested []llmcmp.ModelIdentity
	credits   *float64
	draft     string
	lastErr   string
}

// Option configures a Controller.
type Option func(*Controller)

// WithAnimator reveals each response progressively after a turn commits.
func WithAnimator(a Animator) Option {
	return func(c *Controller) { c.animator = a }
}

// WithLogger sets the controller's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// WithClock overrides the time source used to stamp turns.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// NewController returns an idle controller with an empty conversation.
func NewController(client Client, creds auth.Store, opts ...Option) *Controller {
	c := &Controller{
		client:    client,
		creds:     creds,
		logger:    slog.Default(),
		now:       time.Now,
		responses: map[string]string{},
		revealed:  map[string]string{},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.interceptor = auth.NewInterceptor(creds, client, c.logger)
	return c
}

// SubmitTurn sends prompt to every active model and commits the answers
// as one batch. On failure the conversation is left as it was.
func (c *Controller) SubmitTurn(ctx context.Context, prompt string, active []llmcmp.ModelIdentity) (*TurnResult, error) {
	text := strings.TrimSpace(prompt)
	if text == "" {
		return nil, llmcmp.Validationf("prompt is empty")
	}
	if len(active) == 0 {
		return nil, llmcmp.Validationf("no models selected")
	}
	models := slices.Clone(active)

	c.mu.Lock()
	if c.state == StateDispatching || c.state == StateReconciling {
		c.mu.Unlock()
		return nil, llmcmp.ErrBusy
	}
	c.gen++
	gen := c.gen
	dctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.state = StateDispatching
	c.lastErr = ""
	snapshot := c.responses
	snapshotRevealed := c.revealed
	c.responses = map[string]string{}
	c.revealed = map[string]string{}
	c.requested = models
	req := api.PromptRequest{Text: text, Models: models, SessionID: c.sessionID}
	c.mu.Unlock()
	defer cancel()

	if c.animator != nil {
		c.animator.Cancel()
	}

	dctx = logging.WithFields(dctx, logging.Fields{SessionID: req.SessionID, Generation: gen, Component: "session"})
	c.logger.DebugContext(dctx, "dispatching turn", "models", len(models))

	resp, err := c.dispatch(dctx, req)

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		c.logger.DebugContext(dctx, "discarding result of abandoned turn")
		return nil, llmcmp.ErrAbandoned
	}
	c.cancel = nil
	if err != nil {
		c.state = StateFailed
		c.lastErr = llmcmp.UserMessage(err)
		c.responses = snapshot
		c.revealed = snapshotRevealed
		c.mu.Unlock()
		c.logger.WarnContext(dctx, "turn failed", "error", err)
		return nil, err
	}

	c.state = StateReconciling
	result := c.commit(dctx, text, models, resp)
	c.state = StateIdle
	c.mu.Unlock()

	c.startReveals(gen, result.Responses)
	return result, nil
}

func (c *Controller) dispatch(ctx context.Context, req api.PromptRequest) (*api.PromptResponse, error) {
	var resp *api.PromptResponse
	call := func(ctx context.Context, access string) error {
		r, err := c.client.Submit(ctx, access, req)
		if err != nil {
			return err
		}
		resp = r
		return nil
	}

	// A stored refresh credential alone is enough to recover from a 401.
	if creds := c.creds.Get(); creds.Access != "" || creds.Refresh != "" {
		if err := c.interceptor.Do(ctx, call); err != nil {
			return nil, err
		}
		return resp, nil
	}

	err := call(ctx, "")
	if errors.Is(err, llmcmp.ErrUnauthorized) {
		if err := c.creds.Clear(); err != nil {
			c.logger.WarnContext(ctx, "failed to clear credentials", "error", err)
		}
		return nil, llmcmp.ErrAuthExpired
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// commit applies a successful reply. Callers hold c.mu.
func (c *Controller) commit(ctx context.Context, text string, models []llmcmp.ModelIdentity, resp *api.PromptResponse) *TurnResult {
	switch {
	case resp.SessionID == "":
	case c.sessionID == "":
		c.sessionID = resp.SessionID
	case resp.SessionID != c.sessionID:
		c.logger.WarnContext(ctx, "service returned a different session identity; keeping the original",
			"kept", c.sessionID, "returned", resp.SessionID)
	}

	c.responses = maps.Clone(resp.Responses)
	if c.responses == nil {
		c.responses = map[string]string{}
	}
	if c.animator != nil {
		for key := range c.responses {
			c.revealed[key] = ""
		}
	}

	now := c.now()
	turns := []llmcmp.Turn{llmcmp.NewUserTurn(text, now)}
	for _, m := range c.responders(ctx, models) {
		turns = append(turns, llmcmp.NewAssistantTurn(m, c.responses[m.Key()], now))
	}
	c.history = append(c.history, turns...)

	if resp.AvailableCredits != nil {
		v := *resp.AvailableCredits
		c.credits = &v
	}
	c.draft = ""

	var missing []llmcmp.ModelIdentity
	for _, m := range models {
		if _, ok := c.responses[m.Key()]; !ok {
			missing = append(missing, m)
		}
	}
	if len(missing) > 0 {
		c.logger.InfoContext(ctx, "some models did not respond", "missing", len(missing))
	}

	return &TurnResult{
		SessionID: c.sessionID,
		Responses: maps.Clone(c.responses),
		Missing:   missing,
		Credits:   c.credits,
	}
}

// responders orders the models that answered: requested order first,
// then unrequested keys sorted.
func (c *Controller) responders(ctx context.Context, models []llmcmp.ModelIdentity) []llmcmp.ModelIdentity {
	var out []llmcmp.ModelIdentity
	seen := make(map[string]bool, len(models))
	for _, m := range models {
		if _, ok := c.responses[m.Key()]; ok && !seen[m.Key()] {
			out = append(out, m)
			seen[m.Key()] = true
		}
	}
	for _, key := range slices.Sorted(maps.Keys(c.responses)) {
		if seen[key] {
			continue
		}
		m, err := llmcmp.ParseKey(key)
		if err != nil {
			c.logger.WarnContext(ctx, "ignoring response with unparseable model key", "key", key)
			continue
		}
		out = append(out, m)
	}
	return out
}

func (c *Controller) startReveals(gen uint64, responses map[string]string) {
	if c.animator == nil {
		return
	}
	for _, key := range slices.Sorted(maps.Keys(responses)) {
		c.animator.Start(key, responses[key], func(key, prefix string) {
			c.mu.Lock()
			defer c.mu.Unlock()
			if c.gen != gen || c.state != StateIdle {
				return
			}
			c.revealed[key] = prefix
		})
	}
}

// Reset abandons the conversation. An in-flight turn is cancelled and its
// result discarded; running reveals stop.
func (c *Controller) Reset() {
	c.mu.Lock()
	c.gen++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.state = StateIdle
	c.sessionID = ""
	c.history = nil
	c.responses = map[string]string{}
	c.revealed = map[string]string{}
	c.requested = nil
	c.lastErr = ""
	c.draft = ""
	c.mu.Unlock()

	if c.animator != nil {
		c.animator.Cancel()
	}
}

// Restore seeds the controller with a saved conversation so the next turn
// continues it. The latest assistant answers become the current responses.
func (c *Controller) Restore(sessionID string, history []llmcmp.Turn) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateDispatching || c.state == StateReconciling {
		return llmcmp.ErrBusy
	}
	c.gen++
	c.state = StateIdle
	c.sessionID = sessionID
	c.history = slices.Clone(history)
	c.responses = map[string]string{}
	c.revealed = map[string]string{}
	c.requested = nil
	c.lastErr = ""

	last := -1
	for i, t := range c.history {
		if t.Role == llmcmp.RoleUser {
			last = i
		}
	}
	if last >= 0 {
		for _, t := range c.history[last+1:] {
			if t.Model == nil {
				continue
			}
			c.responses[t.Model.Key()] = t.Content
			c.requested = append(c.requested, *t.Model)
		}
	}
	return nil
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Generation returns the current turn generation.
func (c *Controller) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// History returns a copy of the conversation so far.
func (c *Controller) History() []llmcmp.Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.history)
}

// Responses returns a copy of the latest responses keyed by model key.
func (c *Controller) Responses() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return maps.Clone(c.responses)
}

// Revealed returns how much of the response for key is currently shown.
// Responses that are not being revealed are shown in full.
func (c *Controller) Revealed(key string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if r, ok := c.revealed[key]; ok {
		return r
	}
	return c.responses[key]
}

// SessionID returns the identity issued by the service, or "".
func (c *Controller) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// LastError returns the user-facing message of the last failed turn.
func (c *Controller) LastError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Credits returns the last reported available credits, if any.
func (c *Controller) Credits() (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.credits == nil {
		return 0, false
	}
	return *c.credits, true
}

// Draft returns the prompt being composed.
func (c *Controller) Draft() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// SetDraft replaces the prompt being composed.
func (c *Controller) SetDraft(draft string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft = draft
}

// Panels returns one panel per model. A nil models slice uses the models
// of the latest turn.
func (c *Controller) Panels(models []llmcmp.ModelIdentity) []Panel {
	c.mu.Lock()
	defer c.mu.Unlock()
	if models == nil {
		models = c.requested
	}
	panels := make([]Panel, 0, len(models))
	for _, m := range models {
		p := Panel{Model: m}
		switch text, ok := c.responses[m.Key()]; {
		case ok:
			p.Status = PanelReady
			p.Text = text
			if r, revealing := c.revealed[m.Key()]; revealing {
				p.Text = r
			}
		case c.state == StateDispatching || c.state == StateReconciling:
			p.Status = PanelLoading
		default:
			p.Status = PanelPending
		}
		panels = append(panels, p)
	}
	return panels
}
