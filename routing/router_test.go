package routing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/openvitality/careline/agents"
	"github.com/openvitality/careline/types"
)

// mockAgent is a registry entry with controllable availability.
type mockAgent struct {
	name      string
	available bool
}

func (a *mockAgent) Name() string        { return a.name }
func (a *mockAgent) Description() string { return "mock" }
func (a *mockAgent) IsAvailable() bool   { return a.available }
func (a *mockAgent) HandleTurn(ctx context.Context, input *agents.TurnInput) (*agents.TurnOutput, error) {
	return &agents.TurnOutput{Text: "mock"}, nil
}

type routerFixture struct {
	router      *ConversationRouter
	emergency   *mockAgent
	symptom     *mockAgent
	appointment *mockAgent
	general     *mockAgent
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	f := &routerFixture{
		emergency:   &mockAgent{name: agents.IntentEmergency, available: true},
		symptom:     &mockAgent{name: agents.IntentSymptom, available: true},
		appointment: &mockAgent{name: agents.IntentAppointment, available: true},
		general:     &mockAgent{name: agents.IntentFallback, available: true},
	}
	registry := agents.NewRegistry(zap.NewNop())
	require.NoError(t, registry.Register(agents.IntentEmergency, f.emergency))
	require.NoError(t, registry.Register(agents.IntentSymptom, f.symptom))
	require.NoError(t, registry.Register(agents.IntentAppointment, f.appointment))
	require.NoError(t, registry.Register(agents.IntentFallback, f.general))

	f.router = NewConversationRouter(registry, zap.NewNop())
	return f
}

func stickySession() *types.Session {
	return &types.Session{
		ID:           "sess-1",
		CurrentAgent: agents.IntentSymptom,
		LastIntent:   agents.IntentSymptom,
	}
}

func TestEmergencyOverride(t *testing.T) {
	f := newRouterFixture(t)

	agent, rule := f.router.GetAgent(stickySession(), agents.IntentEmergency, 1.0)
	assert.Same(t, agents.Agent(f.emergency), agent)
	assert.Equal(t, RuleEmergency, rule)
}

func TestEmergencyOverrideIgnoresAvailability(t *testing.T) {
	f := newRouterFixture(t)
	f.emergency.available = false

	agent, rule := f.router.GetAgent(stickySession(), agents.IntentEmergency, 1.0)
	assert.Same(t, agents.Agent(f.emergency), agent,
		"emergency routing must not be blocked by availability")
	assert.Equal(t, RuleEmergency, rule)
}

func TestStickyRouting(t *testing.T) {
	f := newRouterFixture(t)

	agent, rule := f.router.GetAgent(stickySession(), agents.IntentSymptom, 0.9)
	assert.Same(t, agents.Agent(f.symptom), agent)
	assert.Equal(t, RuleSticky, rule)
}

func TestStickyRoutingBeatsLowConfidence(t *testing.T) {
	f := newRouterFixture(t)

	// Unchanged intent with marginal confidence: stickiness is evaluated
	// before the confidence gate, so the session stays put.
	agent, rule := f.router.GetAgent(stickySession(), agents.IntentSymptom, 0.3)
	assert.Same(t, agents.Agent(f.symptom), agent)
	assert.Equal(t, RuleSticky, rule)
}

func TestStickyBreaksOnIntentChange(t *testing.T) {
	f := newRouterFixture(t)

	agent, rule := f.router.GetAgent(stickySession(), agents.IntentAppointment, 0.95)
	assert.Same(t, agents.Agent(f.appointment), agent)
	assert.Equal(t, RuleIntent, rule)
}

func TestStickyBreaksWhenAgentUnavailable(t *testing.T) {
	f := newRouterFixture(t)
	f.symptom.available = false

	agent, rule := f.router.GetAgent(stickySession(), agents.IntentSymptom, 0.9)
	assert.Same(t, agents.Agent(f.general), agent,
		"unavailable sticky agent with low-value re-route should fall back")
	assert.Equal(t, RuleFallback, rule)
}

func TestIntentBasedRouting(t *testing.T) {
	f := newRouterFixture(t)

	session := &types.Session{ID: "sess-2"}
	agent, rule := f.router.GetAgent(session, agents.IntentAppointment, 0.85)
	assert.Same(t, agents.Agent(f.appointment), agent)
	assert.Equal(t, RuleIntent, rule)
}

func TestFallbackOnLowConfidence(t *testing.T) {
	f := newRouterFixture(t)

	session := &types.Session{ID: "sess-3"}
	agent, rule := f.router.GetAgent(session, agents.IntentSymptom, 0.5)
	assert.Same(t, agents.Agent(f.general), agent)
	assert.Equal(t, RuleFallback, rule)
}

func TestThresholdIsExclusive(t *testing.T) {
	f := newRouterFixture(t)

	session := &types.Session{ID: "sess-3b"}
	agent, _ := f.router.GetAgent(session, agents.IntentSymptom, 0.7)
	assert.Same(t, agents.Agent(f.general), agent,
		"confidence exactly at the threshold must not reassign")
}

func TestWithThreshold(t *testing.T) {
	f := newRouterFixture(t)
	f.router.WithThreshold(0.9)

	session := &types.Session{ID: "sess-3c"}

	// 0.85 clears the default threshold but not the configured one.
	agent, rule := f.router.GetAgent(session, agents.IntentAppointment, 0.85)
	assert.Same(t, agents.Agent(f.general), agent)
	assert.Equal(t, RuleFallback, rule)

	agent, rule = f.router.GetAgent(session, agents.IntentAppointment, 0.95)
	assert.Same(t, agents.Agent(f.appointment), agent)
	assert.Equal(t, RuleIntent, rule)
}

func TestWithThresholdRejectsOutOfRange(t *testing.T) {
	f := newRouterFixture(t)
	f.router.WithThreshold(0).WithThreshold(1.5).WithThreshold(-1)

	// Out-of-range values keep the default exclusive 0.7 bound.
	session := &types.Session{ID: "sess-3d"}
	agent, _ := f.router.GetAgent(session, agents.IntentSymptom, 0.7)
	assert.Same(t, agents.Agent(f.general), agent)
	agent, _ = f.router.GetAgent(session, agents.IntentSymptom, 0.75)
	assert.Same(t, agents.Agent(f.symptom), agent)
}

func TestFallbackOnUnknownIntent(t *testing.T) {
	f := newRouterFixture(t)

	session := &types.Session{ID: "sess-4"}
	agent, rule := f.router.GetAgent(session, "wire_transfer", 0.9)
	assert.Same(t, agents.Agent(f.general), agent)
	assert.Equal(t, RuleFallback, rule)
}

func TestFallbackOnUnavailableTarget(t *testing.T) {
	f := newRouterFixture(t)
	f.appointment.available = false

	session := &types.Session{ID: "sess-5"}
	agent, rule := f.router.GetAgent(session, agents.IntentAppointment, 0.95)
	assert.Same(t, agents.Agent(f.general), agent)
	assert.Equal(t, RuleFallback, rule)
}

func TestRouterDoesNotMutateSession(t *testing.T) {
	f := newRouterFixture(t)

	session := stickySession()
	f.router.GetAgent(session, agents.IntentAppointment, 0.95)

	assert.Equal(t, agents.IntentSymptom, session.CurrentAgent)
	assert.Equal(t, agents.IntentSymptom, session.LastIntent)
}
