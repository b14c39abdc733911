package api

import (
	"time"

	"github.com/longkey1/llmcmp/internal/llmcmp"
)

// PromptRequest is the body of a submit-turn call.
type PromptRequest struct {
	Text      string                 `json:"text"`
	Models    []llmcmp.ModelIdentity `json:"models"`
	SessionID string                 `json:"session_id,omitempty"`
}

// PromptResponse is the success body of a submit-turn call.
// Responses is keyed by ModelIdentity.Key().
type PromptResponse struct {
	Responses        map[string]string `json:"responses"`
	SessionID        string            `json:"session_id,omitempty"`
	AvailableCredits *float64          `json:"available_credits,omitempty"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type refreshResponse struct {
	Access string `json:"access"`
}

// UserStats is the body of the user stats endpoint.
type UserStats struct {
	AvailableCredits float64    `json:"available_credits"`
	LastUsedAt       *time.Time `json:"last_used_at,omitempty"`
}

// HistoryEntry is one past comparison as reported by the service.
type HistoryEntry struct {
	Prompt    string              `json:"prompt"`
	CreatedAt time.Time           `json:"created_at"`
	Models    []HistoryModelReply `json:"models"`
}

// HistoryModelReply is one model's answer within a HistoryEntry.
type HistoryModelReply struct {
	Provider   string `json:"provider"`
	ModelLabel string `json:"model_label"`
	Response   string `json:"response"`
}

// Identity returns the reply's model identity.
func (r HistoryModelReply) Identity() llmcmp.ModelIdentity {
	return llmcmp.ModelIdentity{Provider: r.Provider, Label: r.ModelLabel}
}

// Identities returns the models of the entry in reported order.
func (e HistoryEntry) Identities() []llmcmp.ModelIdentity {
	ids := make([]llmcmp.ModelIdentity, 0, len(e.Models))
	for _, m := range e.Models {
		ids = append(ids, m.Identity())
	}
	return ids
}
