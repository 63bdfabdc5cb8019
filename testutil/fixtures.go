package testutil

import (
	"time"

	"github.com/google/uuid"

	"github.com/openvitality/careline/types"
)

// NewSession returns an active session for the given user, suitable as a
// routing or persistence fixture.
func NewSession(userID string) *types.Session {
	now := time.Now()
	return &types.Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		Status:    types.SessionActive,
		Context:   make(map[string]string),
		StartedAt: now,
		UpdatedAt: now,
	}
}

// NewTurn returns a user turn for the given session.
func NewTurn(sessionID, text, intent string, confidence float64) *types.Turn {
	return &types.Turn{
		ID:         uuid.New().String(),
		SessionID:  sessionID,
		Actor:      "user",
		Text:       text,
		Intent:     intent,
		Confidence: confidence,
		CreatedAt:  time.Now(),
	}
}
