// Package collector turns a dispatcher's synchronous event fan-out into
// consumer-paced pull sequences with id constraints, arbitrary predicates,
// count limits, and timeouts.
package collector

import (
	"context"
	"sync"
	"time"

	"github.com/dragnet-io/dragnet/events"
)

// EventCollector is the consumer end of one collection request: a pull-based
// sequence of the events its filter accepted. Next is single-consumer; Stop
// may be called from anywhere, any number of times.
type EventCollector struct {
	queue *eventQueue

	timer *time.Timer // nil when no timeout was configured

	ended bool // consumer-side state, touched only inside Next

	stopOnce sync.Once
}

func newEventCollector(q *eventQueue) *EventCollector {
	return &EventCollector{queue: q}
}

// Next blocks for the next accepted event. A nil return means the sequence
// is over for good: a limit was exhausted, the timeout window closed, the
// collector was stopped, or ctx was canceled (which stops the collector).
// The timeout and stop state are checked before the queue on every call, so
// buffered events do not outlive an expired window or a stopped collector;
// events already returned stay returned.
func (c *EventCollector) Next(ctx context.Context) *events.GatewayEvent {
	if c.ended {
		return nil
	}

	var timeout <-chan time.Time
	if c.timer != nil {
		timeout = c.timer.C
		select {
		case <-timeout:
			c.end()
			return nil
		default:
		}
	}

	select {
	case <-c.queue.done:
		c.end()
		return nil
	default:
	}

	select {
	case evt, ok := <-c.queue.out:
		if !ok {
			c.end()
			return nil
		}
		return evt
	case <-timeout:
		c.end()
		return nil
	case <-c.queue.done:
		c.end()
		return nil
	case <-ctx.Done():
		c.end()
		return nil
	}
}

func (c *EventCollector) end() {
	c.ended = true
	if c.timer != nil {
		c.timer.Stop()
	}
	c.Stop()
}

// Stop closes the consumer end. The producing filter deactivates on its next
// accepted event; anything still buffered is discarded. Idempotent.
func (c *EventCollector) Stop() {
	c.stopOnce.Do(func() {
		close(c.queue.done)
	})
}
