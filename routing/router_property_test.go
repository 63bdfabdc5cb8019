package routing

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"go.uber.org/zap"

	"github.com/openvitality/careline/agents"
	"github.com/openvitality/careline/types"
)

func propertyRegistry(availability map[string]bool) *agents.Registry {
	registry := agents.NewRegistry(zap.NewNop())
	for _, intent := range []string{
		agents.IntentEmergency, agents.IntentSymptom,
		agents.IntentAppointment, agents.IntentFallback,
	} {
		registry.Register(intent, &mockAgent{name: intent, available: availability[intent]})
	}
	return registry
}

func genIntent() gopter.Gen {
	return gen.OneConstOf(
		agents.IntentEmergency,
		agents.IntentSymptom,
		agents.IntentAppointment,
		agents.IntentFallback,
		"unregistered_intent",
	)
}

func genSession() gopter.Gen {
	return gopter.CombineGens(
		gen.OneConstOf("", agents.IntentSymptom, agents.IntentAppointment),
		gen.OneConstOf("", agents.IntentSymptom, agents.IntentAppointment),
	).Map(func(values []interface{}) *types.Session {
		return &types.Session{
			ID:           "prop-sess",
			CurrentAgent: values[0].(string),
			LastIntent:   values[1].(string),
		}
	})
}

func TestProperty_RouterIsDeterministic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("same inputs always select the same agent", prop.ForAll(
		func(session *types.Session, intent string, confidence float64, symptomUp, appointmentUp bool) bool {
			registry := propertyRegistry(map[string]bool{
				agents.IntentEmergency:   true,
				agents.IntentSymptom:     symptomUp,
				agents.IntentAppointment: appointmentUp,
				agents.IntentFallback:    true,
			})
			router := NewConversationRouter(registry, zap.NewNop())

			first, firstRule := router.GetAgent(session, intent, confidence)
			second, secondRule := router.GetAgent(session, intent, confidence)
			return first == second && firstRule == secondRule
		},
		genSession(), genIntent(), gen.Float64Range(0, 1), gen.Bool(), gen.Bool(),
	))

	properties.Property("emergency intent always selects the emergency agent", prop.ForAll(
		func(session *types.Session, confidence float64, emergencyUp bool) bool {
			registry := propertyRegistry(map[string]bool{
				agents.IntentEmergency:   emergencyUp,
				agents.IntentSymptom:     true,
				agents.IntentAppointment: true,
				agents.IntentFallback:    true,
			})
			router := NewConversationRouter(registry, zap.NewNop())

			agent, rule := router.GetAgent(session, agents.IntentEmergency, confidence)
			return rule == RuleEmergency && agent != nil && agent.Name() == agents.IntentEmergency
		},
		genSession(), gen.Float64Range(0, 1), gen.Bool(),
	))

	properties.Property("a validated registry never yields a nil agent", prop.ForAll(
		func(session *types.Session, intent string, confidence float64, symptomUp, appointmentUp bool) bool {
			registry := propertyRegistry(map[string]bool{
				agents.IntentEmergency:   true,
				agents.IntentSymptom:     symptomUp,
				agents.IntentAppointment: appointmentUp,
				agents.IntentFallback:    true,
			})
			router := NewConversationRouter(registry, zap.NewNop())

			agent, _ := router.GetAgent(session, intent, confidence)
			return agent != nil
		},
		genSession(), genIntent(), gen.Float64Range(0, 1), gen.Bool(), gen.Bool(),
	))

	properties.TestingRun(t)
}
