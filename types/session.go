package types

import "time"

// SessionStatus is the lifecycle state of a conversation session.
type SessionStatus string

const (
	SessionActive     SessionStatus = "active"
	SessionCompleted  SessionStatus = "completed"
	SessionTerminated SessionStatus = "terminated"
	SessionEscalated  SessionStatus = "escalated"
)

// Session holds the per-conversation state the router reads and the session
// manager persists. CurrentAgent and LastIntent drive sticky routing; the
// router itself never mutates them.
type Session struct {
	ID           string            `json:"id"`
	UserID       string            `json:"user_id"`
	Channel      string            `json:"channel,omitempty"`
	CurrentAgent string            `json:"current_agent,omitempty"`
	LastIntent   string            `json:"last_intent,omitempty"`
	State        string            `json:"state,omitempty"`
	Context      map[string]string `json:"context,omitempty"`
	Status       SessionStatus     `json:"status"`
	StartedAt    time.Time         `json:"started_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// Turn is one logged dialogue exchange half: a user utterance or an
// assistant reply, with the classification that accompanied it.
type Turn struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	Actor      string    `json:"actor"` // "user" or "assistant"
	Text       string    `json:"text"`
	Intent     string    `json:"intent,omitempty"`
	Confidence float64   `json:"confidence,omitempty"`
	AgentName  string    `json:"agent_name,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
