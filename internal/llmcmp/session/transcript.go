// Package session runs comparison conversations against the remote
// service and keeps local transcripts of them.
package session

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/longkey1/llmcmp/internal/llmcmp"
)

// Transcript is the local record of one comparison conversation
type Transcript struct {
	ID           string                 `json:"id"`            // UUID v4, local only
	RemoteID     string                 `json:"remote_id"`     // Session identity issued by the service
	Name         string                 `json:"name"`          // Optional name (empty by default)
	TemplateName string                 `json:"template_name"` // Prompt template used for the first turn (can be empty)
	Models       []llmcmp.ModelIdentity `json:"models"`        // Models of the latest turn
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
	Turns        []llmcmp.Turn          `json:"turns"`
}

// NewTranscript creates an empty transcript for the given models
func NewTranscript(models []llmcmp.ModelIdentity) *Transcript {
	now := time.Now()
	return &Transcript{
		ID:        uuid.New().String(),
		Models:    append([]llmcmp.ModelIdentity(nil), models...),
		CreatedAt: now,
		UpdatedAt: now,
		Turns:     []llmcmp.Turn{},
	}
}

// Record replaces the transcript's conversation with history
func (t *Transcript) Record(remoteID string, models []llmcmp.ModelIdentity, history []llmcmp.Turn) {
	if remoteID != "" {
		t.RemoteID = remoteID
	}
	t.Models = append([]llmcmp.ModelIdentity(nil), models...)
	t.Turns = append([]llmcmp.Turn(nil), history...)
	t.UpdatedAt = time.Now()
}

// GetShortID returns the shortened transcript ID (first 8 characters)
func (t *Transcript) GetShortID() string {
	if len(t.ID) >= 8 {
		return t.ID[:8]
	}
	return t.ID
}

// GetDisplayName returns the name if set, otherwise the short ID
func (t *Transcript) GetDisplayName() string {
	if t.Name != "" {
		return t.Name
	}
	return t.GetShortID()
}

// TurnCount returns the number of user turns
func (t *Transcript) TurnCount() int {
	n := 0
	for _, turn := range t.Turns {
		if turn.Role == llmcmp.RoleUser {
			n++
		}
	}
	return n
}

// ModelsString returns the models joined for display
func (t *Transcript) ModelsString() string {
	names := make([]string, len(t.Models))
	for i, m := range t.Models {
		names[i] = m.String()
	}
	return strings.Join(names, ", ")
}

// FirstPrompt returns the first user turn, or ""
func (t *Transcript) FirstPrompt() string {
	for _, turn := range t.Turns {
		if turn.Role == llmcmp.RoleUser {
			return turn.Content
		}
	}
	return ""
}
