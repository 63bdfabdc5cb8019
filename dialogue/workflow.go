package dialogue

import (
	"sync"

	"go.uber.org/zap"

	"github.com/openvitality/careline/agents"
)

// WorkflowState is one phase of the clinical consultation flow.
type WorkflowState string

const (
	WorkflowGreeting  WorkflowState = "GREETING"
	WorkflowTriage    WorkflowState = "TRIAGE_ACTIVE"
	WorkflowEmergency WorkflowState = "EMERGENCY_PROTOCOL"
	WorkflowBooking   WorkflowState = "APPOINTMENT_BOOKING"
	WorkflowClosing   WorkflowState = "CLOSING"
)

// WorkflowMachine tracks the consultation flow of one session. Guards
// enforce the clinical ordering: triage before booking, and no booking
// when the intent is an emergency.
type WorkflowMachine struct {
	mu     sync.Mutex
	state  WorkflowState
	logger *zap.Logger
}

// NewWorkflowMachine starts a machine in GREETING.
func NewWorkflowMachine(logger *zap.Logger) *WorkflowMachine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkflowMachine{
		state:  WorkflowGreeting,
		logger: logger.With(zap.String("component", "workflow_machine")),
	}
}

// RestoreWorkflowMachine resumes a machine at a persisted state. An
// unknown or empty state starts over at GREETING.
func RestoreWorkflowMachine(state WorkflowState, logger *zap.Logger) *WorkflowMachine {
	m := NewWorkflowMachine(logger)
	switch state {
	case WorkflowTriage, WorkflowEmergency, WorkflowBooking, WorkflowClosing:
		m.state = state
	}
	return m
}

// State returns the current state.
func (m *WorkflowMachine) State() WorkflowState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// StartTriage moves GREETING to TRIAGE_ACTIVE.
func (m *WorkflowMachine) StartTriage() error {
	return m.fire("start_triage", func() (WorkflowState, bool) {
		if m.state != WorkflowGreeting {
			return "", false
		}
		return WorkflowTriage, true
	})
}

// DetectEmergency moves to EMERGENCY_PROTOCOL from any state, but only
// when the intent really is an emergency.
func (m *WorkflowMachine) DetectEmergency(intent string) error {
	return m.fire("detect_emergency", func() (WorkflowState, bool) {
		if intent != agents.IntentEmergency {
			return "", false
		}
		return WorkflowEmergency, true
	})
}

// StartBooking moves TRIAGE_ACTIVE to APPOINTMENT_BOOKING unless the
// intent is an emergency.
func (m *WorkflowMachine) StartBooking(intent string) error {
	return m.fire("start_booking", func() (WorkflowState, bool) {
		if m.state != WorkflowTriage || intent == agents.IntentEmergency {
			return "", false
		}
		return WorkflowBooking, true
	})
}

// FinishCall moves to CLOSING from any state.
func (m *WorkflowMachine) FinishCall() error {
	return m.fire("finish_call", func() (WorkflowState, bool) {
		return WorkflowClosing, true
	})
}

// fire applies a guarded transition under the lock. The guard returns the
// destination and whether the transition is allowed given the current
// state; a rejected transition leaves the state unchanged.
func (m *WorkflowMachine) fire(trigger string, guard func() (WorkflowState, bool)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next, ok := guard()
	if !ok {
		return &TransitionError{State: string(m.state), Trigger: trigger}
	}

	from := m.state
	m.state = next
	m.logger.Debug("workflow state changed",
		zap.String("from", string(from)),
		zap.String("to", string(next)),
		zap.String("trigger", trigger))
	return nil
}
