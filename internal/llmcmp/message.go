package llmcmp

import "time"

// Role of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is a single entry of the conversation timeline.
// User turns carry no model; assistant turns are attributed to exactly one model.
type Turn struct {
	Role      Role           `json:"role"`
	Content   string         `json:"content"`
	Model     *ModelIdentity `json:"model,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// NewUserTurn returns a user turn stamped with the given time.
func NewUserTurn(content string, at time.Time) Turn {
	return Turn{Role: RoleUser, Content: content, Timestamp: at}
}

// NewAssistantTurn returns an assistant turn attributed to model.
func NewAssistantTurn(model ModelIdentity, content string, at time.Time) Turn {
	m := model
	return Turn{Role: RoleAssistant, Content: content, Model: &m, Timestamp: at}
}

// ModelKey returns the attributed model's key, or "" for user turns.
func (t Turn) ModelKey() string {
	if t.Model == nil {
		return ""
	}
	return t.Model.Key()
}
