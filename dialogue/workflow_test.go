package dialogue

import (
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/openvitality/careline/agents"
)

func TestWorkflowMachine_InitialState(t *testing.T) {
	machine := NewWorkflowMachine(zap.NewNop())
	if machine.State() != WorkflowGreeting {
		t.Errorf("State = %s, want GREETING", machine.State())
	}
}

func TestWorkflowMachine_BookingFlow(t *testing.T) {
	machine := NewWorkflowMachine(zap.NewNop())

	if err := machine.StartTriage(); err != nil {
		t.Fatalf("StartTriage failed: %v", err)
	}
	if machine.State() != WorkflowTriage {
		t.Fatalf("State = %s, want TRIAGE_ACTIVE", machine.State())
	}

	if err := machine.StartBooking(agents.IntentAppointment); err != nil {
		t.Fatalf("StartBooking failed: %v", err)
	}
	if machine.State() != WorkflowBooking {
		t.Errorf("State = %s, want APPOINTMENT_BOOKING", machine.State())
	}
}

func TestWorkflowMachine_EmergencyFlow(t *testing.T) {
	machine := NewWorkflowMachine(zap.NewNop())
	machine.StartTriage()

	if err := machine.DetectEmergency(agents.IntentEmergency); err != nil {
		t.Fatalf("DetectEmergency failed: %v", err)
	}
	if machine.State() != WorkflowEmergency {
		t.Errorf("State = %s, want EMERGENCY_PROTOCOL", machine.State())
	}
}

func TestWorkflowMachine_EmergencyGuardRejectsOtherIntents(t *testing.T) {
	machine := NewWorkflowMachine(zap.NewNop())
	machine.StartTriage()

	err := machine.DetectEmergency(agents.IntentSymptom)
	if err == nil {
		t.Fatal("expected guard to reject non-emergency intent")
	}
	if machine.State() != WorkflowTriage {
		t.Errorf("state changed on rejected transition: %s", machine.State())
	}
}

func TestWorkflowMachine_BookingBlockedDuringEmergency(t *testing.T) {
	machine := NewWorkflowMachine(zap.NewNop())
	machine.StartTriage()

	err := machine.StartBooking(agents.IntentEmergency)
	if err == nil {
		t.Fatal("expected booking with emergency intent to be rejected")
	}

	var transitionErr *TransitionError
	if !errors.As(err, &transitionErr) {
		t.Fatalf("err = %T, want *TransitionError", err)
	}
	if machine.State() != WorkflowTriage {
		t.Errorf("State = %s, want TRIAGE_ACTIVE", machine.State())
	}
}

func TestWorkflowMachine_TriageBeforeBooking(t *testing.T) {
	machine := NewWorkflowMachine(zap.NewNop())

	if err := machine.StartBooking(agents.IntentAppointment); err == nil {
		t.Fatal("expected booking before triage to be rejected")
	}
	if machine.State() != WorkflowGreeting {
		t.Errorf("State = %s, want GREETING", machine.State())
	}
}

func TestWorkflowMachine_FinishCallFromAnyState(t *testing.T) {
	for _, setup := range []func(m *WorkflowMachine){
		func(m *WorkflowMachine) {},
		func(m *WorkflowMachine) { m.StartTriage() },
		func(m *WorkflowMachine) { m.StartTriage(); m.StartBooking(agents.IntentAppointment) },
		func(m *WorkflowMachine) { m.StartTriage(); m.DetectEmergency(agents.IntentEmergency) },
	} {
		machine := NewWorkflowMachine(zap.NewNop())
		setup(machine)
		if err := machine.FinishCall(); err != nil {
			t.Fatalf("FinishCall failed from %s: %v", machine.State(), err)
		}
		if machine.State() != WorkflowClosing {
			t.Errorf("State = %s, want CLOSING", machine.State())
		}
	}
}
