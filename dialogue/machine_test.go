package dialogue

import (
	"errors"
	"testing"

	"go.uber.org/zap"
)

func TestCallMachine_InitialState(t *testing.T) {
	machine := NewCallMachine("call-1", zap.NewNop())
	if machine.State() != CallIdle {
		t.Errorf("State = %s, want IDLE", machine.State())
	}
}

func TestCallMachine_HappyPath(t *testing.T) {
	machine := NewCallMachine("call-1", zap.NewNop())

	steps := []struct {
		trigger CallTrigger
		want    CallState
	}{
		{UserStartsTalking, CallListening},
		{SilenceDetected, CallProcessing},
		{ResponseReady, CallSpeaking},
		{SpeechFinished, CallWaitingInput},
		{UserStartsTalking, CallListening},
	}
	for _, step := range steps {
		if err := machine.Fire(step.trigger); err != nil {
			t.Fatalf("Fire(%s) failed: %v", step.trigger, err)
		}
		if machine.State() != step.want {
			t.Fatalf("after %s: state = %s, want %s", step.trigger, machine.State(), step.want)
		}
	}
}

func TestCallMachine_HangUpFromAnyState(t *testing.T) {
	machine := NewCallMachine("call-1", zap.NewNop())
	machine.Fire(UserStartsTalking)
	machine.Fire(SilenceDetected)

	if err := machine.Fire(UserHangsUp); err != nil {
		t.Fatalf("Fire(user_hangs_up) failed: %v", err)
	}
	if machine.State() != CallIdle {
		t.Errorf("State = %s, want IDLE", machine.State())
	}

	// Hanging up while already idle is still legal.
	if err := machine.Fire(UserHangsUp); err != nil {
		t.Errorf("Fire(user_hangs_up) from IDLE failed: %v", err)
	}
}

func TestCallMachine_InvalidTransition(t *testing.T) {
	machine := NewCallMachine("call-1", zap.NewNop())

	err := machine.Fire(SilenceDetected) // cannot detect silence when idle
	if err == nil {
		t.Fatal("expected error for invalid transition")
	}

	var transitionErr *TransitionError
	if !errors.As(err, &transitionErr) {
		t.Fatalf("err = %T, want *TransitionError", err)
	}
	if transitionErr.State != string(CallIdle) || transitionErr.Trigger != string(SilenceDetected) {
		t.Errorf("error = %+v", transitionErr)
	}
	if machine.State() != CallIdle {
		t.Errorf("state changed on invalid transition: %s", machine.State())
	}
}

func TestCallMachine_TransitionHook(t *testing.T) {
	machine := NewCallMachine("call-1", zap.NewNop())

	var gotFrom, gotTo CallState
	var calls int
	machine.OnTransition(func(from, to CallState, trigger CallTrigger) {
		gotFrom, gotTo = from, to
		calls++
	})

	machine.Fire(UserStartsTalking)
	if calls != 1 || gotFrom != CallIdle || gotTo != CallListening {
		t.Errorf("hook calls=%d from=%s to=%s", calls, gotFrom, gotTo)
	}

	// A rejected transition must not fire the hook.
	machine.Fire(ResponseReady)
	if calls != 1 {
		t.Errorf("hook fired on invalid transition, calls=%d", calls)
	}
}
