package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/longkey1/llmcmp/internal/llmcmp"
	"github.com/longkey1/llmcmp/internal/llmcmp/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRefresher struct {
	access string
	err    error
	calls  []string
}

func (f *fakeRefresher) Refresh(_ context.Context, refresh string) (string, error) {
	f.calls = append(f.calls, refresh)
	return f.access, f.err
}

// recordingCall answers unauthorized until it sees one of the accepted tokens.
type recordingCall struct {
	accept map[string]bool
	seen   []string
}

func (c *recordingCall) call(_ context.Context, access string) error {
	c.seen = append(c.seen, access)
	if c.accept[access] {
		return nil
	}
	return llmcmp.ErrUnauthorized
}

func TestInterceptor_SuccessWithoutRefresh(t *testing.T) {
	store := NewMemoryStore(Credentials{Access: "good", Refresh: "r"})
	refresher := &fakeRefresher{}
	call := &recordingCall{accept: map[string]bool{"good": true}}

	err := NewInterceptor(store, refresher, nil).Do(context.Background(), call.call)

	require.NoError(t, err)
	assert.Equal(t, []string{"good"}, call.seen)
	assert.Empty(t, refresher.calls)
}

func TestInterceptor_RefreshesOnceAndRetries(t *testing.T) {
	store := NewMemoryStore(Credentials{Access: "stale", Refresh: "r1"})
	refresher := &fakeRefresher{access: "fresh"}
	call := &recordingCall{accept: map[string]bool{"fresh": true}}

	err := NewInterceptor(store, refresher, nil).Do(context.Background(), call.call)

	require.NoError(t, err)
	assert.Equal(t, []string{"stale", "fresh"}, call.seen)
	assert.Equal(t, []string{"r1"}, refresher.calls)
	assert.Equal(t, Credentials{Access: "fresh", Refresh: "r1"}, store.Get())
}

func TestInterceptor_NoRefreshCredential(t *testing.T) {
	store := NewMemoryStore(Credentials{Access: "stale"})
	refresher := &fakeRefresher{access: "fresh"}
	call := &recordingCall{}

	err := NewInterceptor(store, refresher, nil).Do(context.Background(), call.call)

	require.ErrorIs(t, err, llmcmp.ErrAuthExpired)
	assert.Empty(t, refresher.calls, "exchange must not be attempted")
	assert.Equal(t, Credentials{}, store.Get())
	assert.Len(t, call.seen, 1)
}

func TestInterceptor_RefreshRejected(t *testing.T) {
	store := NewMemoryStore(Credentials{Access: "stale", Refresh: "r1"})
	refresher := &fakeRefresher{err: &llmcmp.StatusError{StatusCode: 401}}
	call := &recordingCall{}

	err := NewInterceptor(store, refresher, nil).Do(context.Background(), call.call)

	require.ErrorIs(t, err, llmcmp.ErrAuthExpired)
	assert.Equal(t, Credentials{}, store.Get())
	assert.Len(t, call.seen, 1)
}

func TestInterceptor_RefreshTransportFailureKeepsCredentials(t *testing.T) {
	creds := Credentials{Access: "stale", Refresh: "r1"}
	store := NewMemoryStore(creds)
	refresher := &fakeRefresher{err: errors.New("connection reset")}
	call := &recordingCall{}

	err := NewInterceptor(store, refresher, nil).Do(context.Background(), call.call)

	require.Error(t, err)
	assert.NotErrorIs(t, err, llmcmp.ErrAuthExpired)
	assert.Equal(t, creds, store.Get())
}

func TestInterceptor_NeverRetriesTwice(t *testing.T) {
	store := NewMemoryStore(Credentials{Access: "stale", Refresh: "r1"})
	refresher := &fakeRefresher{access: "also-rejected"}
	call := &recordingCall{}

	err := NewInterceptor(store, refresher, nil).Do(context.Background(), call.call)

	require.ErrorIs(t, err, llmcmp.ErrAuthExpired)
	assert.Equal(t, []string{"stale", "also-rejected"}, call.seen)
	assert.Len(t, refresher.calls, 1)
	assert.Equal(t, Credentials{}, store.Get())
}

func TestInterceptor_NonAuthErrorPassesThrough(t *testing.T) {
	store := NewMemoryStore(Credentials{Access: "a", Refresh: "r"})
	refresher := &fakeRefresher{}
	want := &llmcmp.StatusError{StatusCode: 500}

	err := NewInterceptor(store, refresher, nil).Do(context.Background(), func(context.Context, string) error {
		return want
	})

	assert.Same(t, want, err)
	assert.Empty(t, refresher.calls)
}

func TestInterceptor_AbandonedBeforeRetry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	store := NewMemoryStore(Credentials{Access: "stale", Refresh: "r1"})
	refresher := &fakeRefresher{access: "fresh"}
	calls := 0

	err := NewInterceptor(store, refresher, nil).Do(ctx, func(context.Context, string) error {
		calls++
		cancel()
		return llmcmp.ErrUnauthorized
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestStateStore(t *testing.T) {
	kv := state.NewMemoryStore()
	s := NewStateStore(kv)

	require.NoError(t, s.Set(Credentials{Access: "a", Refresh: "r"}))
	v, _ := kv.Get(state.KeyAccess)
	assert.Equal(t, "a", v)

	require.NoError(t, s.SetAccess("a2"))
	assert.Equal(t, Credentials{Access: "a2", Refresh: "r"}, s.Get())

	require.NoError(t, s.Clear())
	assert.Equal(t, Credentials{}, s.Get())
	_, ok := kv.Get(state.KeyRefresh)
	assert.False(t, ok)
}
