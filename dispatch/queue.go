package dispatch

import (
	"container/heap"
	"fmt"
	"time"

	"github.com/openvitality/careline/types"
)

// InvalidPriorityError reports a Push with a priority outside the five
// defined tiers. The queue never coerces an invalid value.
type InvalidPriorityError struct {
	Priority types.Priority
}

func (e *InvalidPriorityError) Error() string {
	return fmt.Sprintf("invalid priority %d: must be one of the defined tiers", int(e.Priority))
}

// Clock returns the current time in whole seconds since the epoch.
// Injectable for tests and deterministic promotion.
type Clock func() int64

// entry is one admitted unit of work. priority is mutated by promotion;
// enqueuedAt and sequence are fixed at admission.
type entry struct {
	priority   types.Priority
	enqueuedAt int64
	sequence   uint64
	payload    any
}

// less orders entries by (priority, enqueuedAt, sequence) ascending.
func (e *entry) less(other *entry) bool {
	if e.priority != other.priority {
		return e.priority < other.priority
	}
	if e.enqueuedAt != other.enqueuedAt {
		return e.enqueuedAt < other.enqueuedAt
	}
	return e.sequence < other.sequence
}

type entryHeap []*entry

func (h entryHeap) Len() int            { return len(h) }
func (h entryHeap) Less(i, j int) bool  { return h[i].less(h[j]) }
func (h entryHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *entryHeap) Push(x any)         { *h = append(*h, x.(*entry)) }
func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

// PriorityTaskQueue is a binary min-heap over (priority, enqueuedAt,
// sequence). Push and Pop run in O(log n); PromoteAged is an O(n)
// maintenance pass. Not safe for concurrent use; see BlockingQueue.
type PriorityTaskQueue struct {
	entries entryHeap
	seq     uint64
	now     Clock
}

// QueueOption customizes a PriorityTaskQueue.
type QueueOption func(*PriorityTaskQueue)

// WithClock replaces the wall clock, in whole seconds.
func WithClock(now Clock) QueueOption {
	return func(q *PriorityTaskQueue) { q.now = now }
}

// NewPriorityTaskQueue creates an empty queue.
func NewPriorityTaskQueue(opts ...QueueOption) *PriorityTaskQueue {
	q := &PriorityTaskQueue{
		now: func() int64 { return time.Now().Unix() },
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Push admits payload at the given priority. The only failure mode is an
// invalid priority; the queue state is unchanged on error.
func (q *PriorityTaskQueue) Push(payload any, priority types.Priority) error {
	if !priority.Valid() {
		return &InvalidPriorityError{Priority: priority}
	}
	e := &entry{
		priority:   priority,
		enqueuedAt: q.now(),
		sequence:   q.seq,
		payload:    payload,
	}
	q.seq++
	heap.Push(&q.entries, e)
	return nil
}

// Pop removes and returns the payload with the smallest ordering key.
// The second return value is false when the queue is empty; an empty pop
// is normal control flow for a polling consumer, not an error.
func (q *PriorityTaskQueue) Pop() (any, bool) {
	if len(q.entries) == 0 {
		return nil, false
	}
	e := heap.Pop(&q.entries).(*entry)
	return e.payload, true
}

// IsEmpty reports whether the queue holds no entries.
func (q *PriorityTaskQueue) IsEmpty() bool {
	return len(q.entries) == 0
}

// Len returns the number of resident entries.
func (q *PriorityTaskQueue) Len() int {
	return len(q.entries)
}

// PromoteAged raises by one tier every resident entry that has waited
// longer than maxWait and sits below HIGH. CRITICAL and HIGH entries are
// never promoted. The heap is rebuilt wholesale after the bulk mutation;
// the ordering invariant holds again on return.
//
// Callers choose the invocation cadence; correctness does not depend on
// it, only the latency bound does. Returns the number of promoted entries.
func (q *PriorityTaskQueue) PromoteAged(maxWait time.Duration) int {
	now := q.now()
	threshold := int64(maxWait / time.Second)
	promoted := 0
	for _, e := range q.entries {
		if now-e.enqueuedAt > threshold && e.priority > types.PriorityHigh {
			e.priority--
			promoted++
		}
	}
	if promoted > 0 {
		heap.Init(&q.entries)
	}
	return promoted
}

// WaitTimeReport returns the average wait in seconds of resident entries
// per priority tier name. Tiers with no resident entries report 0.
func (q *PriorityTaskQueue) WaitTimeReport() map[string]float64 {
	now := q.now()
	sums := make(map[types.Priority]int64)
	counts := make(map[types.Priority]int)
	for _, e := range q.entries {
		sums[e.priority] += now - e.enqueuedAt
		counts[e.priority]++
	}

	report := make(map[string]float64, len(types.Priorities))
	for _, p := range types.Priorities {
		if counts[p] > 0 {
			report[p.String()] = float64(sums[p]) / float64(counts[p])
		} else {
			report[p.String()] = 0
		}
	}
	return report
}

// DepthByPriority returns the number of resident entries per tier name.
// Used by the metrics collector; read-only.
func (q *PriorityTaskQueue) DepthByPriority() map[string]int {
	depths := make(map[string]int, len(types.Priorities))
	for _, p := range types.Priorities {
		depths[p.String()] = 0
	}
	for _, e := range q.entries {
		depths[e.priority.String()]++
	}
	return depths
}
