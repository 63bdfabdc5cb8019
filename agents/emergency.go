package agents

import (
	"context"

	"go.uber.org/zap"
)

// EscalateFunc hands an emergency off to the escalation pipeline (in the
// default wiring, a CRITICAL task on the dispatch queue).
type EscalateFunc func(ctx context.Context, sessionID string, utterance string) error

// EmergencyAgent handles medical_emergency turns. It reports itself as
// available unconditionally: emergency routing must never be blocked by
// load shedding, and the router additionally skips the availability check
// on the emergency path.
type EmergencyAgent struct {
	escalate EscalateFunc
	logger   *zap.Logger
}

// NewEmergencyAgent creates the emergency handler. escalate may be nil.
func NewEmergencyAgent(escalate EscalateFunc, logger *zap.Logger) *EmergencyAgent {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmergencyAgent{
		escalate: escalate,
		logger:   logger.With(zap.String("component", "agent"), zap.String("agent", IntentEmergency)),
	}
}

func (a *EmergencyAgent) Name() string { return IntentEmergency }

func (a *EmergencyAgent) Description() string {
	return "Immediate escalation path for medical emergencies"
}

// IsAvailable is always true for the emergency agent.
func (a *EmergencyAgent) IsAvailable() bool { return true }

// HandleTurn triggers escalation and instructs the caller. An escalation
// failure is logged but the instruction is still returned: the user-facing
// guidance must not depend on the background pipeline.
func (a *EmergencyAgent) HandleTurn(ctx context.Context, input *TurnInput) (*TurnOutput, error) {
	a.logger.Warn("emergency detected",
		zap.String("session_id", input.SessionID),
	)
	if a.escalate != nil {
		if err := a.escalate(ctx, input.SessionID, input.Utterance); err != nil {
			a.logger.Error("emergency escalation failed",
				zap.String("session_id", input.SessionID),
				zap.Error(err),
			)
		}
	}
	return &TurnOutput{
		Text: "This sounds like a medical emergency. Please call your local " +
			"emergency number right now. I am alerting our on-call team and " +
			"staying on the line with you.",
		Action: "escalate",
	}, nil
}
