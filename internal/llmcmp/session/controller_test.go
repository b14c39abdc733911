package session

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/longkey1/llmcmp/internal/llmcmp"
	"github.com/longkey1/llmcmp/internal/llmcmp/api"
	"github.com/longkey1/llmcmp/internal/llmcmp/auth"
	"github.com/longkey1/llmcmp/internal/llmcmp/reveal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	openaiGPT4o = llmcmp.ModelIdentity{Provider: "openai", Label: "GPT-4o"}
	azureGPT4o  = llmcmp.ModelIdentity{Provider: "azure", Label: "GPT-4o"}
	azureTurbo  = llmcmp.ModelIdentity{Provider: "azure", Label: "GPT-35-turbo"}
)

type reply struct {
	resp *api.PromptResponse
	err  error
}

type fakeClient struct {
	mu       sync.Mutex
	replies  []reply
	requests []api.PromptRequest
	accesses []string

	// unauthorized lists access credentials answered with ErrUnauthorized.
	unauthorized  map[string]bool
	refreshAccess string
	refreshErr    error
	refreshCalls  int

	started chan struct{}
	release chan struct{}
}

func (f *fakeClient) Submit(ctx context.Context, access string, req api.PromptRequest) (*api.PromptResponse, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.accesses = append(f.accesses, access)
	started, release := f.started, f.release
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.unauthorized[access] {
		return nil, llmcmp.ErrUnauthorized
	}
	if len(f.replies) == 0 {
		return nil, errors.New("no reply queued")
	}
	r := f.replies[0]
	f.replies = f.replies[1:]
	return r.resp, r.err
}

func (f *fakeClient) Refresh(_ context.Context, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshCalls++
	return f.refreshAccess, f.refreshErr
}

func (f *fakeClient) queue(r ...reply) *fakeClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies = append(f.replies, r...)
	return f
}

func (f *fakeClient) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func ok(sessionID string, responses map[string]string) reply {
	return reply{resp: &api.PromptResponse{Responses: responses, SessionID: sessionID}}
}

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestController(client *fakeClient, creds auth.Store, opts ...Option) *Controller {
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewController(client, creds, opts...)
}

func TestSubmitTurn_TwoModels(t *testing.T) {
	client := (&fakeClient{}).queue(ok("sess-123", map[string]string{
		"openai-GPT-4o": "Hi!",
		"azure-GPT-4o":  "Hello!",
	}))
	c := newTestController(client, auth.NewMemoryStore(auth.Credentials{}))
	c.SetDraft("hello")

	res, err := c.SubmitTurn(context.Background(), "hello", []llmcmp.ModelIdentity{openaiGPT4o, azureGPT4o})
	require.NoError(t, err)

	assert.Equal(t, "sess-123", res.SessionID)
	assert.Empty(t, res.Missing)
	assert.Equal(t, StateIdle, c.State())
	assert.Equal(t, "sess-123", c.SessionID())
	assert.Empty(t, c.Draft())
	assert.Empty(t, c.LastError())

	assert.Equal(t, []llmcmp.Turn{
		llmcmp.NewUserTurn("hello", fixedNow),
		llmcmp.NewAssistantTurn(openaiGPT4o, "Hi!", fixedNow),
		llmcmp.NewAssistantTurn(azureGPT4o, "Hello!", fixedNow),
	}, c.History())

	require.Len(t, client.requests, 1)
	assert.Equal(t, api.PromptRequest{Text: "hello", Models: []llmcmp.ModelIdentity{openaiGPT4o, azureGPT4o}}, client.requests[0])
	assert.Equal(t, []string{""}, client.accesses)
}

func TestSubmitTurn_EchoesSessionIdentity(t *testing.T) {
	client := (&fakeClient{}).queue(
		ok("sess-123", map[string]string{"openai-GPT-4o": "one"}),
		ok("", map[string]string{"openai-GPT-4o": "two"}),
	)
	c := newTestController(client, auth.NewMemoryStore(auth.Credentials{}))
	active := []llmcmp.ModelIdentity{openaiGPT4o}

	_, err := c.SubmitTurn(context.Background(), "first", active)
	require.NoError(t, err)
	_, err = c.SubmitTurn(context.Background(), "second", active)
	require.NoError(t, err)

	require.Len(t, client.requests, 2)
	assert.Empty(t, client.requests[0].SessionID)
	assert.Equal(t, "sess-123", client.requests[1].SessionID)
	assert.Len(t, c.History(), 4)
	assert.Equal(t, map[string]string{"openai-GPT-4o": "two"}, c.Responses())
}

func TestSubmitTurn_KeepsFirstSessionIdentity(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	client := (&fakeClient{}).queue(
		ok("sess-123", map[string]string{"openai-GPT-4o": "one"}),
		ok("sess-other", map[string]string{"openai-GPT-4o": "two"}),
	)
	c := newTestController(client, auth.NewMemoryStore(auth.Credentials{}), WithLogger(logger))
	active := []llmcmp.ModelIdentity{openaiGPT4o}

	_, err := c.SubmitTurn(context.Background(), "first", active)
	require.NoError(t, err)
	res, err := c.SubmitTurn(context.Background(), "second", active)
	require.NoError(t, err)

	assert.Equal(t, "sess-123", c.SessionID())
	assert.Equal(t, "sess-123", res.SessionID)
	assert.Contains(t, logs.String(), "level=WARN")
	assert.Contains(t, logs.String(), "sess-other")
}

func TestSubmitTurn_Validation(t *testing.T) {
	tests := []struct {
		name   string
		prompt string
		active []llmcmp.ModelIdentity
	}{
		{"empty prompt", "", []llmcmp.ModelIdentity{openaiGPT4o}},
		{"blank prompt", "  \n\t ", []llmcmp.ModelIdentity{openaiGPT4o}},
		{"no models", "hello", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeClient{}
			c := newTestController(client, auth.NewMemoryStore(auth.Credentials{Access: "a"}))
			gen := c.Generation()

			_, err := c.SubmitTurn(context.Background(), tt.prompt, tt.active)
			assert.ErrorIs(t, err, llmcmp.ErrValidation)
			assert.Zero(t, client.requestCount())
			assert.Equal(t, StateIdle, c.State())
			assert.Equal(t, gen, c.Generation())
			assert.Empty(t, c.History())
		})
	}
}

func TestSubmitTurn_AuthExpired(t *testing.T) {
	client := (&fakeClient{}).queue(ok("sess-1", map[string]string{"openai-GPT-4o": "first"}))
	creds := auth.NewMemoryStore(auth.Credentials{Access: "old", Refresh: "r"})
	c := newTestController(client, creds)
	active := []llmcmp.ModelIdentity{openaiGPT4o}

	_, err := c.SubmitTurn(context.Background(), "one", active)
	require.NoError(t, err)
	before := c.History()

	client.mu.Lock()
	client.unauthorized = map[string]bool{"old": true}
	client.refreshErr = llmcmp.ErrUnauthorized
	client.mu.Unlock()

	_, err = c.SubmitTurn(context.Background(), "two", active)
	require.ErrorIs(t, err, llmcmp.ErrAuthExpired)

	assert.Equal(t, StateFailed, c.State())
	assert.Equal(t, "Your session has expired. Please sign in again.", c.LastError())
	assert.Equal(t, auth.Credentials{}, creds.Get())
	assert.Equal(t, before, c.History())
	assert.Equal(t, map[string]string{"openai-GPT-4o": "first"}, c.Responses())
	assert.Equal(t, 1, client.refreshCalls)
}

func TestSubmitTurn_RefreshesOnceAndRetries(t *testing.T) {
	client := (&fakeClient{
		unauthorized:  map[string]bool{"old": true},
		refreshAccess: "new",
	}).queue(ok("sess-1", map[string]string{"openai-GPT-4o": "hi"}))
	creds := auth.NewMemoryStore(auth.Credentials{Access: "old", Refresh: "r"})
	c := newTestController(client, creds)

	_, err := c.SubmitTurn(context.Background(), "hello", []llmcmp.ModelIdentity{openaiGPT4o})
	require.NoError(t, err)

	assert.Equal(t, []string{"old", "new"}, client.accesses)
	assert.Equal(t, 1, client.refreshCalls)
	assert.Equal(t, auth.Credentials{Access: "new", Refresh: "r"}, creds.Get())
}

func TestSubmitTurn_RefreshOnlyCredential(t *testing.T) {
	client := (&fakeClient{
		unauthorized:  map[string]bool{"": true},
		refreshAccess: "new",
	}).queue(ok("sess-1", map[string]string{"openai-GPT-4o": "hi"}))
	creds := auth.NewMemoryStore(auth.Credentials{Refresh: "r"})
	c := newTestController(client, creds)

	_, err := c.SubmitTurn(context.Background(), "hello", []llmcmp.ModelIdentity{openaiGPT4o})
	require.NoError(t, err)

	assert.Equal(t, []string{"", "new"}, client.accesses)
	assert.Equal(t, 1, client.refreshCalls)
	assert.Equal(t, auth.Credentials{Access: "new", Refresh: "r"}, creds.Get())
	assert.Equal(t, StateIdle, c.State())
}

func TestSubmitTurn_RefreshOnlyCredentialRejected(t *testing.T) {
	client := &fakeClient{
		unauthorized: map[string]bool{"": true},
		refreshErr:   llmcmp.ErrUnauthorized,
	}
	creds := auth.NewMemoryStore(auth.Credentials{Refresh: "r"})
	c := newTestController(client, creds)

	_, err := c.SubmitTurn(context.Background(), "hello", []llmcmp.ModelIdentity{openaiGPT4o})
	assert.ErrorIs(t, err, llmcmp.ErrAuthExpired)
	assert.Equal(t, 1, client.refreshCalls)
	assert.Equal(t, auth.Credentials{}, creds.Get())
	assert.Equal(t, StateFailed, c.State())
}

func TestSubmitTurn_AnonymousRejected(t *testing.T) {
	client := &fakeClient{unauthorized: map[string]bool{"": true}}
	c := newTestController(client, auth.NewMemoryStore(auth.Credentials{}))

	_, err := c.SubmitTurn(context.Background(), "hello", []llmcmp.ModelIdentity{openaiGPT4o})
	assert.ErrorIs(t, err, llmcmp.ErrAuthExpired)
	assert.Zero(t, client.refreshCalls)
	assert.Equal(t, auth.Credentials{}, c.creds.Get())
	assert.Equal(t, StateFailed, c.State())
}

func TestSubmitTurn_PartialFanout(t *testing.T) {
	client := (&fakeClient{}).queue(ok("s", map[string]string{
		"openai-GPT-4o": "a",
		"azure-GPT-4o":  "b",
	}))
	c := newTestController(client, auth.NewMemoryStore(auth.Credentials{}))
	active := []llmcmp.ModelIdentity{openaiGPT4o, azureGPT4o, azureTurbo}

	res, err := c.SubmitTurn(context.Background(), "hello", active)
	require.NoError(t, err)

	assert.Equal(t, []llmcmp.ModelIdentity{azureTurbo}, res.Missing)
	assert.Len(t, c.History(), 3)

	panels := c.Panels(nil)
	require.Len(t, panels, 3)
	assert.Equal(t, PanelReady, panels[0].Status)
	assert.Equal(t, "a", panels[0].Text)
	assert.Equal(t, PanelReady, panels[1].Status)
	assert.Equal(t, PanelPending, panels[2].Status)
	assert.Equal(t, "no response yet", panels[2].Status.String())
}

func TestSubmitTurn_UnrequestedKeysSortedAfterRequested(t *testing.T) {
	client := (&fakeClient{}).queue(ok("s", map[string]string{
		"openai-GPT-4o": "a",
		"zeta-x":        "z",
		"alpha-y":       "y",
		"broken":        "ignored",
	}))
	c := newTestController(client, auth.NewMemoryStore(auth.Credentials{}))

	_, err := c.SubmitTurn(context.Background(), "hello", []llmcmp.ModelIdentity{openaiGPT4o})
	require.NoError(t, err)

	var keys []string
	for _, turn := range c.History()[1:] {
		keys = append(keys, turn.ModelKey())
	}
	assert.Equal(t, []string{"openai-GPT-4o", "alpha-y", "zeta-x"}, keys)
}

func TestSubmitTurn_FailureRestoresResponses(t *testing.T) {
	client := (&fakeClient{}).queue(
		ok("s", map[string]string{"openai-GPT-4o": "first"}),
		reply{err: &llmcmp.StatusError{StatusCode: 500}},
		ok("s", map[string]string{"openai-GPT-4o": "third"}),
	)
	c := newTestController(client, auth.NewMemoryStore(auth.Credentials{}))
	active := []llmcmp.ModelIdentity{openaiGPT4o}

	_, err := c.SubmitTurn(context.Background(), "one", active)
	require.NoError(t, err)

	c.SetDraft("two")
	_, err = c.SubmitTurn(context.Background(), "two", active)
	require.ErrorIs(t, err, llmcmp.ErrTransport)
	assert.Equal(t, StateFailed, c.State())
	assert.Equal(t, "Something went wrong.", c.LastError())
	assert.Equal(t, map[string]string{"openai-GPT-4o": "first"}, c.Responses())
	assert.Len(t, c.History(), 2)
	assert.Equal(t, "two", c.Draft())

	_, err = c.SubmitTurn(context.Background(), "two again", active)
	require.NoError(t, err)
	assert.Equal(t, StateIdle, c.State())
	assert.Empty(t, c.LastError())
	assert.Len(t, c.History(), 4)
}

func TestSubmitTurn_RejectsConcurrentTurn(t *testing.T) {
	client := (&fakeClient{
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}).queue(ok("s", map[string]string{"openai-GPT-4o": "a"}))
	c := newTestController(client, auth.NewMemoryStore(auth.Credentials{}))
	active := []llmcmp.ModelIdentity{openaiGPT4o, azureGPT4o}

	done := make(chan error, 1)
	go func() {
		_, err := c.SubmitTurn(context.Background(), "first", active)
		done <- err
	}()
	<-client.started

	assert.Equal(t, StateDispatching, c.State())
	for _, p := range c.Panels(nil) {
		assert.Equal(t, PanelLoading, p.Status)
	}

	_, err := c.SubmitTurn(context.Background(), "second", active)
	assert.ErrorIs(t, err, llmcmp.ErrBusy)

	close(client.release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, client.requestCount())
	assert.Len(t, c.History(), 2)
}

func TestReset_AbandonsInFlightTurn(t *testing.T) {
	client := (&fakeClient{
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}).queue(ok("s", map[string]string{"openai-GPT-4o": "late"}))
	c := newTestController(client, auth.NewMemoryStore(auth.Credentials{}))

	done := make(chan error, 1)
	go func() {
		_, err := c.SubmitTurn(context.Background(), "hello", []llmcmp.ModelIdentity{openaiGPT4o})
		done <- err
	}()
	<-client.started
	gen := c.Generation()

	c.Reset()

	assert.ErrorIs(t, <-done, llmcmp.ErrAbandoned)
	assert.Greater(t, c.Generation(), gen)
	assert.Equal(t, StateIdle, c.State())
	assert.Empty(t, c.History())
	assert.Empty(t, c.Responses())
	assert.Empty(t, c.SessionID())
}

func TestSubmitTurn_RecordsCredits(t *testing.T) {
	credits := 12.5
	client := (&fakeClient{}).queue(reply{resp: &api.PromptResponse{
		Responses:        map[string]string{"openai-GPT-4o": "a"},
		AvailableCredits: &credits,
	}})
	c := newTestController(client, auth.NewMemoryStore(auth.Credentials{}))

	_, has := c.Credits()
	assert.False(t, has)

	res, err := c.SubmitTurn(context.Background(), "hello", []llmcmp.ModelIdentity{openaiGPT4o})
	require.NoError(t, err)

	got, has := c.Credits()
	require.True(t, has)
	assert.InDelta(t, 12.5, got, 0.0001)
	require.NotNil(t, res.Credits)
}

func TestSubmitTurn_RevealsAfterCommit(t *testing.T) {
	client := (&fakeClient{}).queue(ok("s", map[string]string{
		"openai-GPT-4o": "Hi!",
		"azure-GPT-4o":  "Hello!",
	}))
	animator := reveal.New(0)
	c := newTestController(client, auth.NewMemoryStore(auth.Credentials{}), WithAnimator(animator))

	_, err := c.SubmitTurn(context.Background(), "hello", []llmcmp.ModelIdentity{openaiGPT4o, azureGPT4o})
	require.NoError(t, err)
	animator.Wait()

	assert.Equal(t, "Hi!", c.Revealed("openai-GPT-4o"))
	assert.Equal(t, "Hello!", c.Revealed("azure-GPT-4o"))
	assert.Equal(t, "Hi!", c.Panels(nil)[0].Text)
}

func TestSubmitTurn_CancelsRunningReveals(t *testing.T) {
	long := "a fairly long answer that keeps revealing for a while"
	client := (&fakeClient{}).queue(
		ok("s", map[string]string{"openai-GPT-4o": long}),
		ok("s", map[string]string{"openai-GPT-4o": "short"}),
	)
	animator := reveal.New(20 * time.Millisecond)
	c := newTestController(client, auth.NewMemoryStore(auth.Credentials{}), WithAnimator(animator))
	active := []llmcmp.ModelIdentity{openaiGPT4o}

	_, err := c.SubmitTurn(context.Background(), "one", active)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return c.Revealed("openai-GPT-4o") != "" }, time.Second, time.Millisecond)

	_, err = c.SubmitTurn(context.Background(), "two", active)
	require.NoError(t, err)
	animator.Wait()

	assert.Equal(t, "short", c.Revealed("openai-GPT-4o"))
	assert.Equal(t, "short", c.Responses()["openai-GPT-4o"])
}

func TestRestore_ContinuesSavedConversation(t *testing.T) {
	client := (&fakeClient{}).queue(ok("", map[string]string{"azure-GPT-4o": "again"}))
	c := newTestController(client, auth.NewMemoryStore(auth.Credentials{}))

	history := []llmcmp.Turn{
		llmcmp.NewUserTurn("q1", fixedNow),
		llmcmp.NewAssistantTurn(openaiGPT4o, "old", fixedNow),
		llmcmp.NewUserTurn("q2", fixedNow),
		llmcmp.NewAssistantTurn(azureGPT4o, "latest", fixedNow),
	}
	require.NoError(t, c.Restore("sess-9", history))

	assert.Equal(t, "sess-9", c.SessionID())
	assert.Equal(t, map[string]string{"azure-GPT-4o": "latest"}, c.Responses())
	assert.Equal(t, []Panel{{Model: azureGPT4o, Status: PanelReady, Text: "latest"}}, c.Panels(nil))

	_, err := c.SubmitTurn(context.Background(), "q3", []llmcmp.ModelIdentity{azureGPT4o})
	require.NoError(t, err)
	assert.Equal(t, "sess-9", client.requests[0].SessionID)
	assert.Len(t, c.History(), 6)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "dispatching", StateDispatching.String())
	assert.Equal(t, "reconciling", StateReconciling.String())
	assert.Equal(t, "failed", StateFailed.String())
}
