/*
Package dispatch provides the priority work queue of the careline core.

PriorityTaskQueue admits opaque payloads tagged with a types.Priority and
always serves the most urgent, then oldest, entry. Age-based promotion
(PromoteAged) bounds the wait of lower tiers under sustained urgent load:
an entry older than the configured window moves up one tier per pass until
it reaches HIGH, after which FIFO order among HIGH entries protects it.

The bare queue is not safe for concurrent use. BlockingQueue wraps it with
a coarse mutex and a notification channel for waiting consumers, and Worker
drains a BlockingQueue with a pool of goroutines plus a periodic promotion
ticker.

Queue contents are not persisted; a process restart loses all resident
entries.
*/
package dispatch
