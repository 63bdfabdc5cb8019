// Package balancer rotates requests across multiple upstream API keys and
// sidelines failing ones behind a cooldown, circuit-breaker style.
// This package is internal and should not be imported by external projects.
package balancer

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrNoHealthyResource means every key is sidelined or none are configured.
var ErrNoHealthyResource = errors.New("no healthy API resource available")

// resource tracks the health of one API key or endpoint.
type resource struct {
	key          string
	healthy      bool
	failureCount int
	lastFailure  time.Time
}

// Balancer cycles through API keys round-robin, skipping keys that tripped
// the failure threshold until their cooldown elapses.
type Balancer struct {
	mu          sync.Mutex
	resources   []*resource
	next        int
	maxFailures int
	cooldown    time.Duration
	now         func() time.Time
	logger      *zap.Logger
}

// New creates a balancer over the given keys.
func New(keys []string, maxFailures int, cooldown time.Duration, logger *zap.Logger) *Balancer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxFailures <= 0 {
		maxFailures = 5
	}
	if cooldown <= 0 {
		cooldown = 5 * time.Minute
	}
	b := &Balancer{
		maxFailures: maxFailures,
		cooldown:    cooldown,
		now:         time.Now,
		logger:      logger.With(zap.String("component", "api_balancer")),
	}
	for _, key := range keys {
		b.resources = append(b.resources, &resource{key: key, healthy: true})
	}
	return b
}

// Acquire returns the next healthy key, round-robin. Keys whose cooldown
// has elapsed are re-enabled on the way.
func (b *Balancer) Acquire() (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := len(b.resources)
	for i := 0; i < n; i++ {
		r := b.resources[b.next]
		b.next = (b.next + 1) % n

		if !r.healthy && b.now().Sub(r.lastFailure) > b.cooldown {
			r.healthy = true
			r.failureCount = 0
			b.logger.Info("cooldown elapsed, re-enabling API resource")
		}
		if r.healthy {
			return r.key, nil
		}
	}
	return "", ErrNoHealthyResource
}

// ReportSuccess resets the failure count of a key.
func (b *Balancer) ReportSuccess(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if r := b.find(key); r != nil {
		r.failureCount = 0
	}
}

// ReportFailure records a failure; the key is sidelined once it reaches
// the threshold.
func (b *Balancer) ReportFailure(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	r := b.find(key)
	if r == nil {
		return
	}
	r.failureCount++
	r.lastFailure = b.now()
	if r.failureCount >= b.maxFailures && r.healthy {
		r.healthy = false
		b.logger.Warn("sidelining failing API resource",
			zap.Int("failures", r.failureCount),
			zap.Duration("cooldown", b.cooldown),
		)
	}
}

func (b *Balancer) find(key string) *resource {
	for _, r := range b.resources {
		if r.key == key {
			return r
		}
	}
	return nil
}

// HealthyCount reports how many keys are currently usable.
func (b *Balancer) HealthyCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	count := 0
	for _, r := range b.resources {
		if r.healthy {
			count++
		}
	}
	return count
}
