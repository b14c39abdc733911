// Package selection implements the ordered, capped set of models chosen
// for a comparison. A Set is immutable: every change returns a new Set
// and a no-op returns the receiver itself, so callers can detect changes
// by pointer comparison.
package selection

import (
	"encoding/json"
	"log/slog"

	"github.com/longkey1/llmcmp/internal/llmcmp"
	"github.com/longkey1/llmcmp/internal/llmcmp/state"
)

// DefaultCap is the maximum number of models compared at once.
const DefaultCap = 6

// Set is an ordered sequence of unique model identities bounded by a cap.
type Set struct {
	cap    int
	models []llmcmp.ModelIdentity
}

// New returns a set with the given cap holding models in order.
// Duplicates are dropped and models beyond the cap are ignored.
// A cap <= 0 selects DefaultCap.
func New(cap int, models ...llmcmp.ModelIdentity) *Set {
	if cap <= 0 {
		cap = DefaultCap
	}
	s := &Set{cap: cap}
	for _, m := range models {
		if len(s.models) >= cap {
			break
		}
		if m.IsZero() || s.Contains(m) {
			continue
		}
		s.models = append(s.models, m)
	}
	return s
}

// Toggle removes id if present, otherwise appends it when below the cap.
// At the cap it returns the receiver unchanged.
func (s *Set) Toggle(id llmcmp.ModelIdentity) *Set {
	if idx := s.indexOf(id); idx >= 0 {
		next := make([]llmcmp.ModelIdentity, 0, len(s.models)-1)
		next = append(next, s.models[:idx]...)
		next = append(next, s.models[idx+1:]...)
		return &Set{cap: s.cap, models: next}
	}
	if len(s.models) >= s.cap {
		return s
	}
	next := make([]llmcmp.ModelIdentity, len(s.models), len(s.models)+1)
	copy(next, s.models)
	return &Set{cap: s.cap, models: append(next, id)}
}

// Contains reports whether id is in the set.
func (s *Set) Contains(id llmcmp.ModelIdentity) bool {
	return s.indexOf(id) >= 0
}

// Len returns the number of selected models.
func (s *Set) Len() int {
	return len(s.models)
}

// Cap returns the maximum size of the set.
func (s *Set) Cap() int {
	return s.cap
}

// Full reports whether the set has reached its cap.
func (s *Set) Full() bool {
	return len(s.models) >= s.cap
}

// Models returns a copy of the selected models in insertion order.
func (s *Set) Models() []llmcmp.ModelIdentity {
	out := make([]llmcmp.ModelIdentity, len(s.models))
	copy(out, s.models)
	return out
}

// Equal reports whether both sets hold the same models in the same order.
func (s *Set) Equal(other *Set) bool {
	if len(s.models) != len(other.models) {
		return false
	}
	for i := range s.models {
		if s.models[i] != other.models[i] {
			return false
		}
	}
	return true
}

func (s *Set) indexOf(id llmcmp.ModelIdentity) int {
	for i, m := range s.models {
		if m == id {
			return i
		}
	}
	return -1
}

// Load reads the persisted selection from kv. An absent, malformed or empty
// value yields an empty set; invalid entries are skipped.
func Load(kv state.Store, cap int) *Set {
	raw, ok := kv.Get(state.KeySelectedModels)
	if !ok || raw == "" {
		return New(cap)
	}

	var models []llmcmp.ModelIdentity
	if err := json.Unmarshal([]byte(raw), &models); err != nil {
		slog.Debug("ignoring malformed persisted selection", "error", err)
		return New(cap)
	}

	valid := models[:0]
	for _, m := range models {
		if m.Provider == "" || m.Label == "" {
			continue
		}
		valid = append(valid, m)
	}
	return New(cap, valid...)
}

// Save persists the selection to kv.
func Save(kv state.Store, s *Set) error {
	models := s.Models()
	data, err := json.Marshal(models)
	if err != nil {
		return err
	}
	return kv.Set(state.KeySelectedModels, string(data))
}
