package collector

import (
	"sync"
	"sync/atomic"

	"github.com/dragnet-io/dragnet/events"
)

// EventFilter is the delivery gate standing between a dispatcher and one
// collector. It owns the options snapshot for its registration, counts every
// examined event against FilterLimit and every accepted event against
// CollectLimit, and pushes accepted events into the queue. Built only by a
// Builder resolve; the dispatcher serializes Submit calls per filter.
type EventFilter struct {
	opts FilterOptions

	filtered  atomic.Uint32
	collected atomic.Uint32

	queue *eventQueue

	closed    atomic.Bool
	closeOnce sync.Once
}

func newEventFilter(opts FilterOptions, q *eventQueue) *EventFilter {
	return &EventFilter{opts: opts, queue: q}
}

// Submit offers one event to the filter. The return value answers "keep this
// registration?": false once a limit is exhausted or the consumer is gone,
// and the caller must not Submit again after seeing false. An event is
// accepted, and counts against CollectLimit, when it satisfies the id
// constraints and the predicate; every event, accepted or not, counts
// against FilterLimit.
func (f *EventFilter) Submit(evt *events.GatewayEvent) bool {
	if f.closed.Load() {
		return false
	}

	if f.opts.Matches(evt) {
		if f.opts.Predicate == nil || f.opts.Predicate.Evaluate(evt) {
			f.collected.Add(1)

			select {
			case <-f.queue.done:
				// consumer stopped; deactivate instead of delivering
				f.Close()
				return false
			default:
			}
			f.queue.in <- evt
		}
	}

	f.filtered.Add(1)

	if !f.withinLimits() {
		f.Close()
		return false
	}
	return true
}

func (f *EventFilter) withinLimits() bool {
	if f.opts.FilterLimit != nil && f.filtered.Load() >= *f.opts.FilterLimit {
		return false
	}
	if f.opts.CollectLimit != nil && f.collected.Load() >= *f.opts.CollectLimit {
		return false
	}
	return true
}

// Close ends the event sequence: the consumer drains whatever is already
// queued and then sees end-of-sequence. Idempotent; called by Submit on
// deactivation and by the dispatcher when it drops the registration.
func (f *EventFilter) Close() {
	f.closeOnce.Do(func() {
		f.closed.Store(true)
		close(f.queue.in)
	})
}
