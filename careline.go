// Package careline composes the conversation core of the OpenVitality
// voice assistant: intent classification, agent routing with sticky
// sessions and an emergency override, session persistence, and the
// dialogue turn log.
//
// Usage:
//
//	registry, _ := agents.BuildDefaultRegistry(escalate, logger)
//	router := routing.NewConversationRouter(registry, logger)
//	pipeline, _ := careline.NewPipeline(classifier, router, sessions, registry, logger)
//
//	reply, err := pipeline.HandleUtterance(ctx, "patient-42", "I need a refill")
package careline

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/openvitality/careline/agents"
	"github.com/openvitality/careline/dialogue"
	"github.com/openvitality/careline/intent"
	"github.com/openvitality/careline/internal/metrics"
	"github.com/openvitality/careline/routing"
	"github.com/openvitality/careline/session"
	"github.com/openvitality/careline/types"
)

// Reply is the assistant's answer to one utterance.
type Reply struct {
	SessionID  string       `json:"session_id"`
	Text       string       `json:"text"`
	Intent     string       `json:"intent"`
	Confidence float64      `json:"confidence"`
	AgentName  string       `json:"agent_name"`
	Rule       routing.Rule `json:"rule"`
	Action     string       `json:"action,omitempty"`
	Ended      bool         `json:"ended,omitempty"`
}

// capacityAgent is implemented by agents with a bounded session count.
type capacityAgent interface {
	Acquire() bool
	Release()
}

// Pipeline runs one conversation turn end to end: classify, route, hand
// to the agent, persist session state, log the turns.
type Pipeline struct {
	classifier intent.Classifier
	router     *routing.ConversationRouter
	sessions   *session.Manager
	registry   *agents.Registry
	metrics    *metrics.Collector
	logger     *zap.Logger
}

// NewPipeline wires the pipeline. All four collaborators are required.
func NewPipeline(classifier intent.Classifier, router *routing.ConversationRouter,
	sessions *session.Manager, registry *agents.Registry, logger *zap.Logger) (*Pipeline, error) {
	if classifier == nil || router == nil || sessions == nil || registry == nil {
		return nil, errors.New("pipeline requires classifier, router, sessions and registry")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		classifier: classifier,
		router:     router,
		sessions:   sessions,
		registry:   registry,
		logger:     logger.With(zap.String("component", "pipeline")),
	}, nil
}

// WithMetrics attaches a metrics collector.
func (p *Pipeline) WithMetrics(c *metrics.Collector) *Pipeline {
	p.metrics = c
	return p
}

// HandleUtterance processes one user utterance and returns the reply.
func (p *Pipeline) HandleUtterance(ctx context.Context, userID, utterance string) (*Reply, error) {
	sess, err := p.sessions.GetOrCreateSession(ctx, userID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := p.classifier.Classify(ctx, utterance)
	if err != nil {
		return nil, types.NewError(types.ErrClassifierFailure, "intent classification failed").
			WithCause(err).
			WithRetryable(true)
	}
	if p.metrics != nil {
		p.metrics.RecordClassification(p.classifier.Method(), time.Since(start))
	}

	// A pending slot question keeps the turn with the current agent: the
	// answer ("Downtown Clinic", "next Monday") rarely classifies as the
	// flow's intent. Emergencies still break out.
	if agents.HasPendingSlot(sess.Context) && result.Intent != agents.IntentEmergency && sess.LastIntent != "" {
		result.Intent = sess.LastIntent
	}

	agent, rule := p.router.GetAgent(sess, result.Intent, result.Confidence)
	if agent == nil {
		return nil, types.NewError(types.ErrAgentUnavailable, "registry is missing its fallback entry")
	}
	agent, rule = p.claimCapacity(sess, agent, rule)

	p.sessions.RecordTurn(ctx, &types.Turn{
		SessionID:  sess.ID,
		Actor:      "user",
		Text:       utterance,
		Intent:     result.Intent,
		Confidence: result.Confidence,
	})

	output, err := agent.HandleTurn(ctx, &agents.TurnInput{
		SessionID:  sess.ID,
		Utterance:  utterance,
		Intent:     result.Intent,
		Confidence: result.Confidence,
		Context:    sess.Context,
	})
	if err != nil {
		p.logger.Error("agent failed",
			zap.String("session_id", sess.ID),
			zap.String("agent", agent.Name()),
			zap.Error(err))
		return nil, err
	}

	p.applyContext(sess, output.ContextUpdate)
	p.advanceWorkflow(sess, result.Intent, output.EndConversation)

	if err := p.sessions.CommitRouting(ctx, sess, result.Intent, agent.Name()); err != nil {
		return nil, err
	}

	p.sessions.RecordTurn(ctx, &types.Turn{
		SessionID: sess.ID,
		Actor:     "assistant",
		Text:      output.Text,
		AgentName: agent.Name(),
	})

	if output.EndConversation {
		status := types.SessionCompleted
		if result.Intent == agents.IntentEmergency {
			status = types.SessionEscalated
		}
		if err := p.sessions.EndSession(ctx, sess.ID, status); err != nil {
			p.logger.Warn("failed to end session",
				zap.String("session_id", sess.ID),
				zap.Error(err))
		}
	}

	return &Reply{
		SessionID:  sess.ID,
		Text:       output.Text,
		Intent:     result.Intent,
		Confidence: result.Confidence,
		AgentName:  agent.Name(),
		Rule:       rule,
		Action:     output.Action,
		Ended:      output.EndConversation,
	}, nil
}

// EndConversation finishes a session explicitly (hang-up, timeout).
func (p *Pipeline) EndConversation(ctx context.Context, sessionID string) error {
	sess, err := p.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	p.releaseAgent(sess.CurrentAgent)
	return p.sessions.EndSession(ctx, sessionID, types.SessionCompleted)
}

// claimCapacity moves the session's capacity reservation when routing
// hands it to a different agent. A lost race on Acquire falls back to the
// general agent rather than failing the turn; the reply then reports the
// fallback rule so metrics and clients see where the turn actually went.
func (p *Pipeline) claimCapacity(sess *types.Session, agent agents.Agent, rule routing.Rule) (agents.Agent, routing.Rule) {
	if agent.Name() == sess.CurrentAgent {
		return agent, rule
	}

	if claimed, ok := agent.(capacityAgent); ok {
		if !claimed.Acquire() {
			p.logger.Warn("agent at capacity, using fallback",
				zap.String("session_id", sess.ID),
				zap.String("agent", agent.Name()))
			fallback, _ := p.registry.Get(agents.IntentFallback)
			if fallback != nil && fallback.Name() != agent.Name() {
				agent = fallback
				rule = routing.RuleFallback
			}
		}
	}
	p.releaseAgent(sess.CurrentAgent)
	return agent, rule
}

func (p *Pipeline) releaseAgent(name string) {
	if name == "" {
		return
	}
	if prev, ok := p.registry.Get(name); ok {
		if released, ok := prev.(capacityAgent); ok {
			released.Release()
		}
	}
}

// applyContext merges the agent's context updates into the session.
// Empty values clear their keys.
func (p *Pipeline) applyContext(sess *types.Session, updates map[string]string) {
	if len(updates) == 0 {
		return
	}
	if sess.Context == nil {
		sess.Context = make(map[string]string, len(updates))
	}
	for k, v := range updates {
		if v == "" {
			delete(sess.Context, k)
			continue
		}
		sess.Context[k] = v
	}
}

// advanceWorkflow moves the consultation state machine stored on the
// session. Guard rejections just leave the state where it is.
func (p *Pipeline) advanceWorkflow(sess *types.Session, intentName string, ended bool) {
	machine := dialogue.RestoreWorkflowMachine(dialogue.WorkflowState(sess.State), p.logger)

	if machine.State() == dialogue.WorkflowGreeting {
		_ = machine.StartTriage()
	}
	switch intentName {
	case agents.IntentEmergency:
		_ = machine.DetectEmergency(intentName)
	case agents.IntentAppointment:
		_ = machine.StartBooking(intentName)
	}
	if ended {
		_ = machine.FinishCall()
	}

	sess.State = string(machine.State())
}
