package agents

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Registry maps intent names to agents. It is assembled once at startup
// and treated as read-only afterwards; Get never mutates state, so
// concurrent lookups need no coordination beyond the internal lock that
// guards late registration.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]Agent
	logger *zap.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		agents: make(map[string]Agent),
		logger: logger.With(zap.String("component", "agent_registry")),
	}
}

// Register binds an intent name to an agent. Rebinding an existing name is
// a configuration error.
func (r *Registry) Register(intent string, agent Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.agents[intent]; exists {
		return fmt.Errorf("agent already registered for intent %q", intent)
	}
	r.agents[intent] = agent
	r.logger.Info("registered agent",
		zap.String("intent", intent),
		zap.String("agent", agent.Name()),
	)
	return nil
}

// Get returns the agent bound to an intent name, or (nil, false).
func (r *Registry) Get(intent string) (Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	agent, ok := r.agents[intent]
	return agent, ok
}

// Intents lists the registered intent names.
func (r *Registry) Intents() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	intents := make([]string, 0, len(r.agents))
	for intent := range r.agents {
		intents = append(intents, intent)
	}
	return intents
}

// Validate checks the deployment invariants the router assumes: the
// fallback and emergency entries must exist. Call once at startup.
func (r *Registry) Validate() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, required := range []string{IntentFallback, IntentEmergency} {
		if _, ok := r.agents[required]; !ok {
			return fmt.Errorf("registry is missing the required %q agent", required)
		}
	}
	return nil
}
