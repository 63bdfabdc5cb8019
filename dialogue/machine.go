package dialogue

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// TransitionError reports a trigger fired from a state that does not
// allow it. The machine's state is unchanged.
type TransitionError struct {
	State   string
	Trigger string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("trigger %q is not allowed in state %q", e.Trigger, e.State)
}

// CallState is one phase of the live voice call loop.
type CallState string

const (
	CallIdle         CallState = "IDLE"          // waiting for a call
	CallListening    CallState = "LISTENING"     // user is speaking
	CallProcessing   CallState = "PROCESSING"    // silence detected, transcribing
	CallSpeaking     CallState = "SPEAKING"      // assistant is streaming audio
	CallWaitingInput CallState = "WAITING_INPUT" // assistant finished, awaiting user
)

// CallTrigger is an event that advances the call loop.
type CallTrigger string

const (
	UserStartsTalking CallTrigger = "user_starts_talking"
	SilenceDetected   CallTrigger = "silence_detected"
	ResponseReady     CallTrigger = "response_ready"
	SpeechFinished    CallTrigger = "speech_finished"
	UserHangsUp       CallTrigger = "user_hangs_up"
)

// callTransitions maps trigger -> allowed source states -> destination.
// UserHangsUp is handled as a wildcard in Fire.
var callTransitions = map[CallTrigger]map[CallState]CallState{
	UserStartsTalking: {
		CallIdle:         CallListening,
		CallWaitingInput: CallListening,
	},
	SilenceDetected: {
		CallListening: CallProcessing,
	},
	ResponseReady: {
		CallProcessing: CallSpeaking,
	},
	SpeechFinished: {
		CallSpeaking: CallWaitingInput,
	},
}

// TransitionHook runs after every successful transition.
type TransitionHook func(from, to CallState, trigger CallTrigger)

// CallMachine tracks the audio loop of one voice call session.
type CallMachine struct {
	mu        sync.Mutex
	sessionID string
	state     CallState
	hook      TransitionHook
	logger    *zap.Logger
}

// NewCallMachine starts a machine in IDLE for the given session.
func NewCallMachine(sessionID string, logger *zap.Logger) *CallMachine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CallMachine{
		sessionID: sessionID,
		state:     CallIdle,
		logger:    logger.With(zap.String("component", "call_machine")),
	}
}

// OnTransition installs a hook invoked after each successful transition.
func (m *CallMachine) OnTransition(hook TransitionHook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hook = hook
}

// State returns the current state.
func (m *CallMachine) State() CallState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Fire applies a trigger. An invalid trigger leaves the state unchanged
// and returns a TransitionError.
func (m *CallMachine) Fire(trigger CallTrigger) error {
	m.mu.Lock()

	var next CallState
	if trigger == UserHangsUp {
		// Hanging up is legal from every state.
		next = CallIdle
	} else {
		dests, ok := callTransitions[trigger]
		if !ok {
			state := m.state
			m.mu.Unlock()
			return &TransitionError{State: string(state), Trigger: string(trigger)}
		}
		next, ok = dests[m.state]
		if !ok {
			state := m.state
			m.mu.Unlock()
			return &TransitionError{State: string(state), Trigger: string(trigger)}
		}
	}

	from := m.state
	m.state = next
	hook := m.hook
	m.mu.Unlock()

	m.logger.Debug("call state changed",
		zap.String("session_id", m.sessionID),
		zap.String("from", string(from)),
		zap.String("to", string(next)),
		zap.String("trigger", string(trigger)))

	if hook != nil {
		hook(from, next, trigger)
	}
	return nil
}
