package collector

import (
	"github.com/dragnet-io/dragnet/events"
)

// eventQueue is the unbounded FIFO bridge between one producing filter and
// one consuming collector. The two ends close independently: the producer
// closes in to end the sequence, the consumer closes done to stop listening.
// A single bridge goroutine buffers in-to-out so the producer side never
// waits on a slow consumer, and keeps receiving after done closes so a
// producer mid-send never blocks on a departed consumer.
type eventQueue struct {
	in   chan *events.GatewayEvent
	out  chan *events.GatewayEvent
	done chan struct{}
}

func newEventQueue() *eventQueue {
	q := &eventQueue{
		in:   make(chan *events.GatewayEvent),
		out:  make(chan *events.GatewayEvent),
		done: make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *eventQueue) run() {
	defer close(q.out)

	var buf []*events.GatewayEvent
	in := q.in

	for {
		var out chan *events.GatewayEvent
		var next *events.GatewayEvent
		if len(buf) > 0 {
			out = q.out
			next = buf[0]
		} else if in == nil {
			// producer closed and everything delivered
			return
		}

		select {
		case evt, ok := <-in:
			if !ok {
				in = nil
				continue
			}
			buf = append(buf, evt)
		case out <- next:
			buf = buf[1:]
		case <-q.done:
			// consumer is gone; swallow anything the producer still sends
			// until it closes its end
			for range q.in {
			}
			return
		}
	}
}
