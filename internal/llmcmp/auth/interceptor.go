package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/longkey1/llmcmp/internal/llmcmp"
)

// Refresher exchanges a refresh credential for a new access credential.
// It returns an error matching llmcmp.ErrUnauthorized or *llmcmp.StatusError
// when the service rejects the exchange; any other error is a transport failure.
type Refresher interface {
	Refresh(ctx context.Context, refresh string) (string, error)
}

// Call is one protected request made with the given access credential.
// It must return an error matching llmcmp.ErrUnauthorized on a 401/403 answer.
type Call func(ctx context.Context, access string) error

// Interceptor wraps a protected call and refreshes the access credential
// at most once when the call is rejected as unauthorized.
type Interceptor struct {
	store     Store
	refresher Refresher
	logger    *slog.Logger
}

// NewInterceptor returns an interceptor using store and refresher.
// A nil logger falls back to slog.Default().
func NewInterceptor(store Store, refresher Refresher, logger *slog.Logger) *Interceptor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Interceptor{store: store, refresher: refresher, logger: logger}
}

// Do runs call with the stored access credential. On an unauthorized answer
// it refreshes once and retries once. If the refresh credential is missing
// or rejected, stored credentials are cleared and llmcmp.ErrAuthExpired is
// returned. A refresh that fails in transport leaves the store untouched.
func (i *Interceptor) Do(ctx context.Context, call Call) error {
	creds := i.store.Get()

	err := call(ctx, creds.Access)
	if !errors.Is(err, llmcmp.ErrUnauthorized) {
		return err
	}

	if creds.Refresh == "" {
		i.logger.DebugContext(ctx, "access rejected and no refresh credential stored")
		return i.expire(ctx)
	}

	access, err := i.refresher.Refresh(ctx, creds.Refresh)
	if err != nil {
		if isRejection(err) {
			i.logger.InfoContext(ctx, "refresh credential rejected", "error", err)
			return i.expire(ctx)
		}
		return fmt.Errorf("refreshing access credential: %w", err)
	}
	if err := i.store.SetAccess(access); err != nil {
		return fmt.Errorf("storing refreshed access credential: %w", err)
	}
	i.logger.DebugContext(ctx, "access credential refreshed")

	// The dispatch may have been abandoned while the exchange was in flight.
	if err := ctx.Err(); err != nil {
		return err
	}

	err = call(ctx, access)
	if errors.Is(err, llmcmp.ErrUnauthorized) {
		i.logger.InfoContext(ctx, "refreshed access credential rejected")
		return i.expire(ctx)
	}
	return err
}

func (i *Interceptor) expire(ctx context.Context) error {
	if err := i.store.Clear(); err != nil {
		i.logger.WarnContext(ctx, "failed to clear credentials", "error", err)
	}
	return llmcmp.ErrAuthExpired
}

func isRejection(err error) bool {
	var statusErr *llmcmp.StatusError
	return errors.Is(err, llmcmp.ErrUnauthorized) || errors.As(err, &statusErr)
}
