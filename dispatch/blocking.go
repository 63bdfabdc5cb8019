package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/openvitality/careline/types"
)

// BlockingQueue wraps a PriorityTaskQueue with a coarse mutex covering
// every operation and a notification channel so consumers can wait for
// work without polling. Push never blocks; PopWait blocks until an entry
// arrives or the context is done.
type BlockingQueue struct {
	mu     sync.Mutex
	queue  *PriorityTaskQueue
	notify chan struct{}
}

// NewBlockingQueue wraps queue. If queue is nil a default one is created.
func NewBlockingQueue(queue *PriorityTaskQueue) *BlockingQueue {
	if queue == nil {
		queue = NewPriorityTaskQueue()
	}
	return &BlockingQueue{
		queue:  queue,
		notify: make(chan struct{}, 1),
	}
}

// Push admits payload and wakes one waiting consumer.
func (b *BlockingQueue) Push(payload any, priority types.Priority) error {
	b.mu.Lock()
	err := b.queue.Push(payload, priority)
	b.mu.Unlock()
	if err != nil {
		return err
	}
	select {
	case b.notify <- struct{}{}:
	default:
	}
	return nil
}

// Pop is the non-blocking pop; (nil, false) when empty.
func (b *BlockingQueue) Pop() (any, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.queue.Pop()
}

// PopWait blocks until an entry is available or ctx is done.
//
// The notification channel coalesces: back-to-back pushes while several
// consumers are parked produce a single token. Each successful pop
// therefore hands the wakeup along while entries remain, so a burst of N
// pushes wakes up to N waiters, one per resident entry.
func (b *BlockingQueue) PopWait(ctx context.Context) (any, error) {
	for {
		b.mu.Lock()
		payload, ok := b.queue.Pop()
		remaining := b.queue.Len()
		b.mu.Unlock()
		if ok {
			if remaining > 0 {
				select {
				case b.notify <- struct{}{}:
				default:
				}
			}
			return payload, nil
		}
		select {
		case <-b.notify:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// IsEmpty reports whether the queue holds no entries.
func (b *BlockingQueue) IsEmpty() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.queue.IsEmpty()
}

// Len returns the number of resident entries.
func (b *BlockingQueue) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.queue.Len()
}

// PromoteAged runs an aging pass under the queue lock and wakes a waiting
// consumer when anything moved, since the head may have changed.
func (b *BlockingQueue) PromoteAged(maxWait time.Duration) int {
	b.mu.Lock()
	promoted := b.queue.PromoteAged(maxWait)
	b.mu.Unlock()
	if promoted > 0 {
		select {
		case b.notify <- struct{}{}:
		default:
		}
	}
	return promoted
}

// WaitTimeReport snapshots per-tier average waits under the lock.
func (b *BlockingQueue) WaitTimeReport() map[string]float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.queue.WaitTimeReport()
}

// DepthByPriority snapshots per-tier depths under the lock.
func (b *BlockingQueue) DepthByPriority() map[string]int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.queue.DepthByPriority()
}
