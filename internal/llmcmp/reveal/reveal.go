// Package reveal progressively reveals a finished response, one character
// at a time. Reveals are tied to a generation; cancelling bumps the
// generation and every write from an older generation is dropped.
package reveal

import (
	"context"
	"iter"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"golang.org/x/time/rate"
)

// DefaultInterval is the delay between revealed characters.
const DefaultInterval = 8 * time.Millisecond

// Prefixes yields the increasing prefixes of text, one rune longer each
// time, ending with text itself. Empty text yields a single empty string.
// The sequence may be ranged over any number of times.
func Prefixes(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		if text == "" {
			yield("")
			return
		}
		for i := range text {
			if i == 0 {
				continue
			}
			if !yield(text[:i]) {
				return
			}
		}
		yield(text)
	}
}

// Sink receives revealed prefixes for one key.
type Sink func(key, prefix string)

// Animator paces reveals. The zero value is not usable; use New.
type Animator struct {
	interval time.Duration
	jitter   time.Duration

	gen    atomic.Uint64
	mu     sync.Mutex
	cancel context.CancelFunc
	ctx    context.Context
	wg     sync.WaitGroup
}

// Option configures an Animator.
type Option func(*Animator)

// WithJitter adds up to d of random delay to every step.
func WithJitter(d time.Duration) Option {
	return func(a *Animator) { a.jitter = d }
}

// New returns an animator revealing one rune every interval.
// An interval <= 0 reveals as fast as the sink accepts writes.
func New(interval time.Duration, opts ...Option) *Animator {
	a := &Animator{interval: interval}
	for _, opt := range opts {
		opt(a)
	}
	a.ctx, a.cancel = context.WithCancel(context.Background())
	return a
}

// Generation returns the current generation.
func (a *Animator) Generation() uint64 {
	return a.gen.Load()
}

// Start reveals text for key in the background, calling sink with each
// prefix. Writes stop as soon as Cancel is called.
func (a *Animator) Start(key, text string, sink Sink) {
	a.mu.Lock()
	ctx := a.ctx
	gen := a.gen.Load()
	a.wg.Add(1)
	a.mu.Unlock()

	go func() {
		defer a.wg.Done()
		a.run(ctx, gen, key, text, sink)
	}()
}

func (a *Animator) run(ctx context.Context, gen uint64, key, text string, sink Sink) {
	var limiter *rate.Limiter
	if a.interval > 0 {
		limiter = rate.NewLimiter(rate.Every(a.interval), 1)
	}

	steps := 0
	for prefix := range Prefixes(text) {
		if steps > 0 {
			if err := a.wait(ctx, limiter); err != nil {
				return
			}
		}
		steps++
		if !a.write(gen, key, prefix, sink) {
			return
		}
	}
}

func (a *Animator) wait(ctx context.Context, limiter *rate.Limiter) error {
	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
	}
	if a.jitter > 0 {
		t := time.NewTimer(rand.N(a.jitter))
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	return ctx.Err()
}

// write delivers prefix unless the reveal belongs to an older generation.
// The lock orders it against Cancel, so nothing is written after Cancel returns.
func (a *Animator) write(gen uint64, key, prefix string, sink Sink) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.gen.Load() != gen {
		return false
	}
	sink(key, prefix)
	return true
}

// Cancel invalidates every running reveal and returns the new generation.
func (a *Animator) Cancel() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cancel()
	a.ctx, a.cancel = context.WithCancel(context.Background())
	return a.gen.Add(1)
}

// Wait blocks until all started reveals have finished or been cancelled.
func (a *Animator) Wait() {
	a.wg.Wait()
}

// Steps returns how many prefixes Prefixes(text) yields.
func Steps(text string) int {
	return max(utf8.RuneCountInString(text), 1)
}
