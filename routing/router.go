package routing

import (
	"go.uber.org/zap"

	"github.com/openvitality/careline/agents"
	"github.com/openvitality/careline/internal/metrics"
	"github.com/openvitality/careline/types"
)

// DefaultConfidenceThreshold gates reassignment to a new specialist:
// below it, a changed intent is not trusted enough to commit to a handler.
const DefaultConfidenceThreshold = 0.7

// Rule names a routing decision's winning rule, for logs and metrics.
type Rule string

const (
	RuleEmergency Rule = "emergency"
	RuleSticky    Rule = "sticky"
	RuleIntent    Rule = "intent"
	RuleFallback  Rule = "fallback"
)

// ConversationRouter picks the handler for each turn. It is stateless and
// re-entrant; concurrent calls for different sessions need no
// synchronization.
type ConversationRouter struct {
	registry  *agents.Registry
	threshold float64
	logger    *zap.Logger
	metrics   *metrics.Collector
}

// NewConversationRouter creates a router over a validated registry.
func NewConversationRouter(registry *agents.Registry, logger *zap.Logger) *ConversationRouter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConversationRouter{
		registry:  registry,
		threshold: DefaultConfidenceThreshold,
		logger:    logger.With(zap.String("component", "conversation_router")),
	}
}

// WithMetrics attaches a metrics collector.
func (r *ConversationRouter) WithMetrics(c *metrics.Collector) *ConversationRouter {
	r.metrics = c
	return r
}

// WithThreshold overrides the confidence threshold. Values outside (0, 1]
// keep the default.
func (r *ConversationRouter) WithThreshold(threshold float64) *ConversationRouter {
	if threshold > 0 && threshold <= 1 {
		r.threshold = threshold
	}
	return r
}

// GetAgent returns the agent for this turn. The second return value names
// the rule that won, which callers may log or count.
//
// GetAgent never returns an error: missing specialist entries fall through
// to the next rule, and a missing fallback entry is a deployment
// misconfiguration surfaced as a nil agent (Registry.Validate at startup
// prevents it).
func (r *ConversationRouter) GetAgent(session *types.Session, intent string, confidence float64) (agents.Agent, Rule) {
	agent, rule := r.decide(session, intent, confidence)

	r.logger.Debug("routing decision",
		zap.String("session_id", session.ID),
		zap.String("intent", intent),
		zap.Float64("confidence", confidence),
		zap.String("rule", string(rule)),
	)
	if r.metrics != nil {
		name := ""
		if agent != nil {
			name = agent.Name()
		}
		r.metrics.RecordRoutingDecision(string(rule), name)
	}
	return agent, rule
}

func (r *ConversationRouter) decide(session *types.Session, intent string, confidence float64) (agents.Agent, Rule) {
	// 1. Emergency override. Availability is deliberately not checked:
	// emergencies are never load-shed.
	if intent == agents.IntentEmergency {
		agent, _ := r.registry.Get(agents.IntentEmergency)
		return agent, RuleEmergency
	}

	// 2. Sticky continuation. An unchanged intent keeps the user with
	// their current agent so rephrasing does not bounce them around.
	if session.CurrentAgent != "" && intent == session.LastIntent {
		if agent, ok := r.registry.Get(session.CurrentAgent); ok && agent.IsAvailable() {
			return agent, RuleSticky
		}
	}

	// 3. Confidence-gated reassignment.
	if confidence > r.threshold {
		if agent, ok := r.registry.Get(intent); ok && agent.IsAvailable() {
			return agent, RuleIntent
		}
	}

	// 4. Fallback.
	agent, _ := r.registry.Get(agents.IntentFallback)
	return agent, RuleFallback
}
