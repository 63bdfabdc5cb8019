package agents

import "go.uber.org/zap"

// BuildDefaultRegistry assembles the standard careline intent table in one
// place. This replaces any decorator-style or import-order-dependent
// registration: the full mapping is visible here and nowhere else.
func BuildDefaultRegistry(escalate EscalateFunc, logger *zap.Logger) (*Registry, error) {
	registry := NewRegistry(logger)

	entries := map[string]Agent{
		IntentEmergency: NewEmergencyAgent(escalate, logger),
		IntentSymptom: NewScriptedAgent(
			IntentSymptom,
			"Collects a structured symptom report for triage",
			"I'm sorry you're not feeling well.",
			logger,
			WithSlots(
				[]string{"symptom", "duration", "severity"},
				map[string]string{
					"symptom":  "What symptom is bothering you?",
					"duration": "How long have you had it?",
					"severity": "On a scale from mild to severe, how bad is it?",
				},
			),
			WithConfirmFormat("Just to be sure: you have %s for %s, at %s severity. Is that correct?"),
			WithMaxActive(64),
		),
		IntentAppointment: NewScriptedAgent(
			IntentAppointment,
			"Books and reschedules appointments",
			"Happy to help with an appointment.",
			logger,
			WithSlots(
				[]string{"clinic", "preferred_date"},
				map[string]string{
					"clinic":         "Which clinic or doctor would you like to see?",
					"preferred_date": "What day works best for you?",
				},
			),
			WithConfirmFormat("I'll request an appointment at %s on %s and confirm shortly."),
			WithMaxActive(64),
		),
		IntentMedication: NewScriptedAgent(
			IntentMedication,
			"Answers questions about prescribed medication",
			"I can help with your medication.",
			logger,
			WithSlots(
				[]string{"medication"},
				map[string]string{"medication": "Which medication is your question about?"},
			),
			WithConfirmFormat("Let me pull up the guidance for %s."),
			WithMaxActive(64),
		),
		IntentBilling: NewScriptedAgent(
			IntentBilling,
			"Handles billing and insurance questions",
			"I can look into billing for you.",
			logger,
			WithSlots(
				[]string{"invoice_number"},
				map[string]string{"invoice_number": "Do you have the invoice number at hand?"},
			),
			WithConfirmFormat("Thanks, I'm checking invoice %s now."),
			WithMaxActive(32),
		),
		IntentFallback: NewScriptedAgent(
			IntentFallback,
			"Catch-all handler for everything without a specialist",
			"I can help with general questions about our services.",
			logger,
		),
	}

	for intent, agent := range entries {
		if err := registry.Register(intent, agent); err != nil {
			return nil, err
		}
	}
	if err := registry.Validate(); err != nil {
		return nil, err
	}
	return registry, nil
}
