package agents

import "context"

// Intent names with dedicated handlers. The router treats Emergency and
// Fallback specially; the rest map one-to-one onto registry entries.
const (
	IntentEmergency   = "medical_emergency"
	IntentSymptom     = "symptom_report"
	IntentAppointment = "appointment_booking"
	IntentMedication  = "medication_query"
	IntentTestResults = "test_results"
	IntentBilling     = "billing"
	IntentFallback    = "general_question"
	IntentSmallTalk   = "small_talk"
)

// TurnInput carries one classified user utterance into an agent.
type TurnInput struct {
	SessionID  string
	Utterance  string
	Intent     string
	Confidence float64
	Context    map[string]string
}

// TurnOutput is the agent's reply for one turn.
type TurnOutput struct {
	Text            string
	ContextUpdate   map[string]string
	Action          string
	EndConversation bool
}

// Agent handles conversation turns for one area of competence.
type Agent interface {
	// Name is the agent's registry identity.
	Name() string

	// Description briefly states what the agent covers.
	Description() string

	// IsAvailable reports whether the agent can accept another turn right
	// now. The router consults this on every non-emergency decision.
	IsAvailable() bool

	// HandleTurn processes one classified utterance.
	HandleTurn(ctx context.Context, input *TurnInput) (*TurnOutput, error)
}
