package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/openvitality/careline/internal/metrics"
)

// ErrUnknownTaskKind reports a popped task with no registered handler.
var ErrUnknownTaskKind = errors.New("no handler registered for task kind")

// Handler processes one dequeued task.
type Handler func(ctx context.Context, task *Task) error

// WorkerConfig configures the drain loop.
type WorkerConfig struct {
	// Workers is the number of concurrent drain goroutines.
	Workers int `yaml:"workers" json:"workers"`

	// PromoteInterval is how often the aging pass runs.
	PromoteInterval time.Duration `yaml:"promote_interval" json:"promote_interval"`

	// MaxWait is the age beyond which sub-HIGH entries are promoted.
	MaxWait time.Duration `yaml:"max_wait" json:"max_wait"`
}

// DefaultWorkerConfig returns sensible defaults.
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		Workers:         4,
		PromoteInterval: 30 * time.Second,
		MaxWait:         5 * time.Minute,
	}
}

// Worker drains a BlockingQueue with a pool of goroutines and keeps the
// starvation bound by running PromoteAged on a ticker. Handlers are
// registered per task kind before Run is called.
type Worker struct {
	queue   *BlockingQueue
	config  WorkerConfig
	logger  *zap.Logger
	metrics *metrics.Collector

	mu       sync.RWMutex
	handlers map[string]Handler

	dispatched atomic.Int64
	completed  atomic.Int64
	failed     atomic.Int64
}

// NewWorker creates a worker over queue. A nil logger is replaced with a
// nop logger.
func NewWorker(queue *BlockingQueue, config WorkerConfig, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Workers <= 0 {
		config.Workers = DefaultWorkerConfig().Workers
	}
	return &Worker{
		queue:    queue,
		config:   config,
		logger:   logger.With(zap.String("component", "dispatch_worker")),
		handlers: make(map[string]Handler),
	}
}

// WithMetrics attaches a metrics collector.
func (w *Worker) WithMetrics(c *metrics.Collector) *Worker {
	w.metrics = c
	return w
}

// Handle registers the handler for a task kind, replacing any previous one.
func (w *Worker) Handle(kind string, h Handler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers[kind] = h
}

// Dispatch admits a task at its own priority.
func (w *Worker) Dispatch(task *Task) error {
	if err := w.queue.Push(task, task.Priority); err != nil {
		return err
	}
	w.dispatched.Add(1)
	if w.metrics != nil {
		w.metrics.RecordTaskDispatched(task.Kind, task.Priority.String())
	}
	return nil
}

// Run drains the queue until ctx is cancelled. Cancellation is the normal
// shutdown path and returns nil.
func (w *Worker) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for i := 0; i < w.config.Workers; i++ {
		g.Go(func() error {
			return w.drainLoop(ctx)
		})
	}
	g.Go(func() error {
		return w.promoteLoop(ctx)
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (w *Worker) drainLoop(ctx context.Context) error {
	for {
		payload, err := w.queue.PopWait(ctx)
		if err != nil {
			return err
		}
		task, ok := payload.(*Task)
		if !ok {
			w.logger.Warn("dropping non-task payload", zap.Any("payload", payload))
			continue
		}
		w.execute(ctx, task)
	}
}

func (w *Worker) promoteLoop(ctx context.Context) error {
	if w.config.PromoteInterval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}
	ticker := time.NewTicker(w.config.PromoteInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			promoted := w.queue.PromoteAged(w.config.MaxWait)
			if promoted > 0 {
				w.logger.Info("promoted aged entries", zap.Int("count", promoted))
			}
			if w.metrics != nil {
				w.metrics.RecordPromotions(promoted)
				w.metrics.ObserveQueue(w.queue.DepthByPriority(), w.queue.WaitTimeReport())
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (w *Worker) execute(ctx context.Context, task *Task) {
	w.mu.RLock()
	handler, ok := w.handlers[task.Kind]
	w.mu.RUnlock()

	if !ok {
		w.failed.Add(1)
		w.logger.Error("unhandled task",
			zap.String("task_id", task.ID),
			zap.String("kind", task.Kind),
			zap.Error(ErrUnknownTaskKind),
		)
		return
	}

	start := time.Now()
	err := w.safeHandle(ctx, handler, task)
	duration := time.Since(start)

	if w.metrics != nil {
		w.metrics.RecordTaskCompleted(task.Kind, err == nil, duration)
	}
	if err != nil {
		w.failed.Add(1)
		w.logger.Error("task failed",
			zap.String("task_id", task.ID),
			zap.String("kind", task.Kind),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return
	}
	w.completed.Add(1)
	w.logger.Debug("task completed",
		zap.String("task_id", task.ID),
		zap.String("kind", task.Kind),
		zap.Duration("duration", duration),
	)
}

func (w *Worker) safeHandle(ctx context.Context, handler Handler, task *Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task handler panicked: %v", r)
		}
	}()
	return handler(ctx, task)
}

// Stats returns cumulative dispatch counters.
func (w *Worker) Stats() (dispatched, completed, failed int64) {
	return w.dispatched.Load(), w.completed.Load(), w.failed.Load()
}
