package scheduler

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/openvitality/careline/dispatch"
)

// ErrSchedulerStopped reports an operation on a stopped scheduler.
var ErrSchedulerStopped = errors.New("scheduler is stopped")

// Sink receives due tasks. *dispatch.Worker satisfies it.
type Sink interface {
	Dispatch(task *dispatch.Task) error
}

// job is one pending future-dated task.
type job struct {
	id    string
	runAt time.Time
	task  *dispatch.Task
}

// Scheduler holds future-dated care tasks (medication reminders, follow-up
// calls) and hands them to the dispatch queue when due. Jobs are kept in a
// slice sorted by run time; a single goroutine sleeps until the next one.
type Scheduler struct {
	mu      sync.Mutex
	jobs    []*job
	wake    chan struct{}
	stopped bool

	sink   Sink
	logger *zap.Logger
	now    func() time.Time
}

// New creates a scheduler feeding sink.
func New(sink Sink, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		wake:   make(chan struct{}, 1),
		sink:   sink,
		logger: logger.With(zap.String("component", "scheduler")),
		now:    time.Now,
	}
}

// Schedule admits a task to run at the given time and returns the job ID.
// A time in the past dispatches on the next loop iteration.
func (s *Scheduler) Schedule(runAt time.Time, task *dispatch.Task) (string, error) {
	if task == nil {
		return "", errors.New("nil task")
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return "", ErrSchedulerStopped
	}

	j := &job{
		id:    uuid.New().String(),
		runAt: runAt,
		task:  task,
	}
	s.jobs = append(s.jobs, j)
	sort.Slice(s.jobs, func(a, b int) bool {
		return s.jobs[a].runAt.Before(s.jobs[b].runAt)
	})
	s.mu.Unlock()

	s.signal()
	s.logger.Debug("job scheduled",
		zap.String("job_id", j.id),
		zap.String("kind", task.Kind),
		zap.Time("run_at", runAt))
	return j.id, nil
}

// Cancel removes a pending job. It reports whether the job was found.
func (s *Scheduler) Cancel(jobID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, j := range s.jobs {
		if j.id == jobID {
			s.jobs = append(s.jobs[:i], s.jobs[i+1:]...)
			s.logger.Debug("job cancelled", zap.String("job_id", jobID))
			return true
		}
	}
	return false
}

// Pending returns the number of jobs not yet dispatched.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Run dispatches due jobs until ctx is cancelled. Cancellation is the
// normal shutdown path and returns nil.
func (s *Scheduler) Run(ctx context.Context) error {
	defer func() {
		s.mu.Lock()
		s.stopped = true
		s.mu.Unlock()
	}()

	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		s.dispatchDue()

		wait := s.nextWait()
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(wait)

		select {
		case <-ctx.Done():
			return nil
		case <-s.wake:
		case <-timer.C:
		}
	}
}

// dispatchDue hands every due job to the sink.
func (s *Scheduler) dispatchDue() {
	now := s.now()

	s.mu.Lock()
	var due []*job
	for len(s.jobs) > 0 && !s.jobs[0].runAt.After(now) {
		due = append(due, s.jobs[0])
		s.jobs = s.jobs[1:]
	}
	s.mu.Unlock()

	for _, j := range due {
		if err := s.sink.Dispatch(j.task); err != nil {
			s.logger.Error("failed to dispatch due job",
				zap.String("job_id", j.id),
				zap.String("kind", j.task.Kind),
				zap.Error(err))
			continue
		}
		s.logger.Info("job dispatched",
			zap.String("job_id", j.id),
			zap.String("kind", j.task.Kind))
	}
}

// nextWait returns how long to sleep until the earliest pending job.
func (s *Scheduler) nextWait() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.jobs) == 0 {
		return time.Hour
	}
	wait := s.jobs[0].runAt.Sub(s.now())
	if wait < time.Millisecond {
		wait = time.Millisecond
	}
	return wait
}

func (s *Scheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}
