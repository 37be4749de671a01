package events

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
)

// GatewayEvent is a single event observed on a gateway connection. Kind plus
// the three identity fields are everything the dispatch path looks at; Data
// is opaque payload. Events move through the whole pipeline as shared
// pointers and are never mutated after creation.
type GatewayEvent struct {
	Kind      string          `json:"kind"`
	GuildID   *uint64         `json:"guild_id,omitempty"`
	ChannelID uint64          `json:"channel_id"`
	AuthorID  uint64          `json:"author_id"`
	Time      string          `json:"time,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Filter is the dispatcher-facing half of a collector registration. Submit is
// called once per event, never concurrently for the same filter instance; a
// false return tells the manager to drop the registration and never call
// Submit again. Close marks end-of-sequence for whoever consumes the filter's
// output and is called after the final Submit.
type Filter interface {
	Submit(evt *GatewayEvent) bool
	Close()
}

var ErrShutdown = errors.New("event manager shut down")

// EventManager owns the live filter registry and fans incoming events out to
// it. Registry mutation and delivery both happen on the Run goroutine, fed by
// the ops channel, so every filter sees a strictly serialized stream of
// Submit calls in event arrival order.
type EventManager struct {
	filters []Filter

	ops    chan *Operation
	closed chan struct{}

	shutdownOnce sync.Once

	log *slog.Logger
}

func NewEventManager() *EventManager {
	return &EventManager{
		ops:    make(chan *Operation),
		closed: make(chan struct{}),
		log:    slog.Default().With("system", "events"),
	}
}

const (
	opRegister = iota
	opSend
)

type Operation struct {
	op  int
	f   Filter
	evt *GatewayEvent
}

func (em *EventManager) Run() {
	for {
		select {
		case op := <-em.ops:
			switch op.op {
			case opRegister:
				em.filters = append(em.filters, op.f)
				filtersRegistered.Inc()
				filtersActive.Inc()
			case opSend:
				eventsReceived.Inc()
				for i := 0; i < len(em.filters); {
					f := em.filters[i]
					if f.Submit(op.evt) {
						i++
						continue
					}
					f.Close()
					em.filters[i] = em.filters[len(em.filters)-1]
					em.filters = em.filters[:len(em.filters)-1]
					filtersRemoved.Inc()
					filtersActive.Dec()
				}
			default:
				em.log.Error("unrecognized eventmgr operation", "op", op.op)
			}
		case <-em.closed:
			for _, f := range em.filters {
				f.Close()
			}
			filtersActive.Sub(float64(len(em.filters)))
			em.log.Info("event manager shut down", "filters", len(em.filters))
			em.filters = nil
			return
		}
	}
}

// AddEvent hands one event to every registered filter. It returns once the
// delivery loop has the event in hand; fan-out happens on the Run goroutine.
func (em *EventManager) AddEvent(ctx context.Context, evt *GatewayEvent) error {
	select {
	case em.ops <- &Operation{op: opSend, evt: evt}:
		return nil
	case <-em.closed:
		return ErrShutdown
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RegisterFilter adds a filter to the registry. Registration rides the same
// ops channel as delivery, so an event added after RegisterFilter returns is
// guaranteed to be offered to the new filter.
func (em *EventManager) RegisterFilter(ctx context.Context, f Filter) error {
	select {
	case em.ops <- &Operation{op: opRegister, f: f}:
		return nil
	case <-em.closed:
		return ErrShutdown
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops the delivery loop and closes every registered filter. Safe
// to call more than once.
func (em *EventManager) Shutdown() {
	em.shutdownOnce.Do(func() {
		close(em.closed)
	})
}
