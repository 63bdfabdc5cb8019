package dispatch

import (
	"time"

	"github.com/google/uuid"

	"github.com/openvitality/careline/types"
)

// Task kinds admitted by the careline worker.
const (
	KindEmergencyEscalation = "emergency_escalation"
	KindMedicationReminder  = "medication_reminder"
	KindFollowUpCall        = "follow_up_call"
	KindClinicianReview     = "clinician_review"
	KindTranscriptExport    = "transcript_export"
)

// Task is the unit of deferred work flowing through the queue: emergency
// escalations, reminders, review requests. The queue itself treats it as
// an opaque payload.
type Task struct {
	ID        string            `json:"id"`
	Kind      string            `json:"kind"`
	SessionID string            `json:"session_id,omitempty"`
	Payload   map[string]string `json:"payload,omitempty"`
	Priority  types.Priority    `json:"priority"`
	CreatedAt time.Time         `json:"created_at"`
}

// NewTask creates a task with a fresh ID and the given priority.
func NewTask(kind, sessionID string, priority types.Priority, payload map[string]string) *Task {
	return &Task{
		ID:        uuid.New().String(),
		Kind:      kind,
		SessionID: sessionID,
		Payload:   payload,
		Priority:  priority,
		CreatedAt: time.Now(),
	}
}
