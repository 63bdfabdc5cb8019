package agents

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
)

// slotKey is the session-context key under which a filled slot is stored.
func slotKey(slot string) string { return "slot_" + slot }

// pendingSlotKey marks which slot the agent asked for on the previous turn.
const pendingSlotKey = "pending_slot"

// HasPendingSlot reports whether the session is mid-way through a
// slot-filling flow, awaiting the answer to a pending question.
func HasPendingSlot(ctx map[string]string) bool {
	return ctx[pendingSlotKey] != ""
}

// ScriptedAgent runs a deterministic slot-filling flow: it asks for each
// required slot in order, records answers into the session context, and
// confirms once everything is collected. No LLM is involved; provider
// integration is a concern of the layers above this core.
type ScriptedAgent struct {
	name        string
	description string
	opening     string
	slots       []string
	prompts     map[string]string
	confirmFmt  string

	maxActive int32
	active    atomic.Int32
	logger    *zap.Logger
}

// ScriptedOption customizes a ScriptedAgent.
type ScriptedOption func(*ScriptedAgent)

// WithSlots sets the required slots, asked in order, and their prompts.
func WithSlots(slots []string, prompts map[string]string) ScriptedOption {
	return func(a *ScriptedAgent) {
		a.slots = slots
		a.prompts = prompts
	}
}

// WithConfirmFormat sets the fmt template applied to the collected slot
// values (in slot order) once the flow completes.
func WithConfirmFormat(format string) ScriptedOption {
	return func(a *ScriptedAgent) { a.confirmFmt = format }
}

// WithMaxActive caps concurrent sessions; 0 means unlimited.
func WithMaxActive(n int32) ScriptedOption {
	return func(a *ScriptedAgent) { a.maxActive = n }
}

// NewScriptedAgent creates a scripted agent. A nil logger is replaced with
// a nop logger.
func NewScriptedAgent(name, description, opening string, logger *zap.Logger, opts ...ScriptedOption) *ScriptedAgent {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &ScriptedAgent{
		name:        name,
		description: description,
		opening:     opening,
		prompts:     make(map[string]string),
		logger:      logger.With(zap.String("component", "agent"), zap.String("agent", name)),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *ScriptedAgent) Name() string        { return a.name }
func (a *ScriptedAgent) Description() string { return a.description }

// IsAvailable reports whether the agent has capacity for another session.
func (a *ScriptedAgent) IsAvailable() bool {
	return a.maxActive == 0 || a.active.Load() < a.maxActive
}

// Acquire reserves a session slot; callers pair it with Release when the
// session leaves this agent.
func (a *ScriptedAgent) Acquire() bool {
	for {
		current := a.active.Load()
		if a.maxActive > 0 && current >= a.maxActive {
			return false
		}
		if a.active.CompareAndSwap(current, current+1) {
			return true
		}
	}
}

// Release frees a session slot.
func (a *ScriptedAgent) Release() {
	if a.active.Load() > 0 {
		a.active.Add(-1)
	}
}

// HandleTurn advances the slot-filling flow by one step.
func (a *ScriptedAgent) HandleTurn(ctx context.Context, input *TurnInput) (*TurnOutput, error) {
	updates := make(map[string]string)

	// Record the answer to the slot asked on the previous turn.
	pending := input.Context[pendingSlotKey]
	if pending != "" && strings.TrimSpace(input.Utterance) != "" {
		updates[slotKey(pending)] = strings.TrimSpace(input.Utterance)
	}

	filled := func(slot string) (string, bool) {
		if v, ok := updates[slotKey(slot)]; ok {
			return v, true
		}
		v, ok := input.Context[slotKey(slot)]
		return v, ok
	}

	for _, slot := range a.slots {
		if _, ok := filled(slot); ok {
			continue
		}
		prompt, ok := a.prompts[slot]
		if !ok {
			prompt = fmt.Sprintf("Could you tell me your %s?", strings.ReplaceAll(slot, "_", " "))
		}
		text := prompt
		if pending == "" && len(updates) == 0 && a.opening != "" {
			text = a.opening + " " + prompt
		}
		updates[pendingSlotKey] = slot
		return &TurnOutput{
			Text:          text,
			ContextUpdate: updates,
			Action:        "ask_slot",
		}, nil
	}

	// Everything collected.
	updates[pendingSlotKey] = ""
	text := a.opening
	if a.confirmFmt != "" {
		values := make([]any, 0, len(a.slots))
		for _, slot := range a.slots {
			v, _ := filled(slot)
			values = append(values, v)
		}
		text = fmt.Sprintf(a.confirmFmt, values...)
	} else if len(a.slots) == 0 && a.opening == "" {
		text = "How else can I help you today?"
	}
	return &TurnOutput{
		Text:          text,
		ContextUpdate: updates,
		Action:        "confirm",
	}, nil
}
