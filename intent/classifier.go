package intent

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/openvitality/careline/agents"
)

// Labels is the closed set of intents the assistant understands.
var Labels = []string{
	agents.IntentEmergency,
	agents.IntentSymptom,
	agents.IntentAppointment,
	agents.IntentMedication,
	agents.IntentTestResults,
	agents.IntentBilling,
	agents.IntentFallback,
	agents.IntentSmallTalk,
}

// Result is one classification outcome.
type Result struct {
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
}

// Classifier turns an utterance into an intent with a confidence score.
type Classifier interface {
	Classify(ctx context.Context, text string) (Result, error)

	// Method names the classification backend for metrics labels.
	Method() string
}

// Keyword-match confidence levels. A phrase hit is trusted highly; the
// default is deliberately below the router's reassignment threshold so
// unmatched utterances land on the fallback agent.
const (
	keywordHitConfidence     = 0.9
	keywordDefaultConfidence = 0.5
)

// KeywordClassifier matches utterances against per-intent phrase lists.
// Emergency phrases are checked first so an utterance mentioning both an
// emergency and, say, an appointment always classifies as an emergency.
type KeywordClassifier struct {
	order    []string
	keywords map[string][]string
	logger   *zap.Logger
}

// NewKeywordClassifier creates the classifier with the standard phrase map.
func NewKeywordClassifier(logger *zap.Logger) *KeywordClassifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KeywordClassifier{
		order: []string{
			agents.IntentEmergency,
			agents.IntentAppointment,
			agents.IntentMedication,
			agents.IntentBilling,
			agents.IntentSymptom,
		},
		keywords: map[string][]string{
			agents.IntentEmergency: {
				"chest pain", "can't breathe", "cannot breathe", "bleeding",
				"unconscious", "suicide", "overdose",
			},
			agents.IntentAppointment: {
				"appointment", "schedule", "book", "see a doctor", "reschedule",
			},
			agents.IntentMedication: {
				"medication", "prescription", "pill", "dosage", "refill",
			},
			agents.IntentBilling: {
				"bill", "invoice", "insurance", "payment", "charge",
			},
			agents.IntentSymptom: {
				"hurts", "pain", "fever", "cough", "headache", "feel sick",
				"nausea", "dizzy",
			},
		},
		logger: logger.With(zap.String("component", "keyword_classifier")),
	}
}

// Method identifies this classifier in metrics.
func (c *KeywordClassifier) Method() string { return "keyword" }

// Classify never fails; an utterance without any known phrase maps to the
// fallback intent at low confidence.
func (c *KeywordClassifier) Classify(ctx context.Context, text string) (Result, error) {
	lower := strings.ToLower(text)
	for _, intent := range c.order {
		for _, phrase := range c.keywords[intent] {
			if strings.Contains(lower, phrase) {
				c.logger.Debug("keyword hit",
					zap.String("intent", intent),
					zap.String("phrase", phrase),
				)
				return Result{Intent: intent, Confidence: keywordHitConfidence}, nil
			}
		}
	}
	return Result{Intent: agents.IntentFallback, Confidence: keywordDefaultConfidence}, nil
}

// DetectAll returns every intent whose phrase list matches the utterance,
// in precedence order. Used for multi-intent turns ("book an appointment
// and refill my prescription").
func (c *KeywordClassifier) DetectAll(text string) []string {
	lower := strings.ToLower(text)
	var matched []string
	for _, intent := range c.order {
		for _, phrase := range c.keywords[intent] {
			if strings.Contains(lower, phrase) {
				matched = append(matched, intent)
				break
			}
		}
	}
	return matched
}
