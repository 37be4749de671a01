package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/dragnet-io/dragnet/events"
)

// Registrant is where a collection request hands its filter for delivery.
// *events.EventManager implements it; anything that can feed a Filter one
// serialized event at a time works.
type Registrant interface {
	RegisterFilter(ctx context.Context, f events.Filter) error
}

// Builder accumulates the configuration for one collection request. Setters
// overwrite on repeat calls and validate nothing; the configuration is
// snapshotted when a terminal call (Collect or First) resolves the request.
// A builder resolves at most once and is not safe for concurrent use.
type Builder struct {
	reg      Registrant
	opts     FilterOptions
	timeout  time.Duration
	resolved bool
}

func NewBuilder(reg Registrant) *Builder {
	return &Builder{reg: reg}
}

// FilterLimit caps how many events the filter examines before deactivating,
// matching or not.
func (b *Builder) FilterLimit(limit uint32) *Builder {
	b.opts.FilterLimit = &limit
	return b
}

// CollectLimit caps how many events the filter accepts before deactivating.
func (b *Builder) CollectLimit(limit uint32) *Builder {
	b.opts.CollectLimit = &limit
	return b
}

// Filter sets the arbitrary predicate evaluated after the id constraints.
func (b *Builder) Filter(p Predicate) *Builder {
	b.opts.Predicate = p
	return b
}

// ChannelID constrains accepted events to one channel.
func (b *Builder) ChannelID(id uint64) *Builder {
	b.opts.ChannelID = &id
	return b
}

// GuildID constrains accepted events to one guild.
func (b *Builder) GuildID(id uint64) *Builder {
	b.opts.GuildID = &id
	return b
}

// AuthorID constrains accepted events to one author.
func (b *Builder) AuthorID(id uint64) *Builder {
	b.opts.AuthorID = &id
	return b
}

// Timeout bounds the whole collection. The window opens when the request
// resolves, not when Timeout is called.
func (b *Builder) Timeout(d time.Duration) *Builder {
	b.timeout = d
	return b
}

// Collect resolves the request: it builds the filter/queue pair, hands the
// filter to the registrant, and returns the consuming collector. Canceling
// ctx after Collect returns stops the collector.
func (b *Builder) Collect(ctx context.Context) (*EventCollector, error) {
	if b.resolved {
		return nil, ErrAlreadyResolved
	}
	b.resolved = true

	q := newEventQueue()
	f := newEventFilter(b.opts, q)
	col := newEventCollector(q)

	if err := b.reg.RegisterFilter(ctx, f); err != nil {
		f.Close()
		return nil, fmt.Errorf("registering filter: %w", err)
	}

	if b.timeout > 0 {
		col.timer = time.NewTimer(b.timeout)
	}
	context.AfterFunc(ctx, col.Stop)

	return col, nil
}

// First resolves the request and returns just the first accepted event, or
// nil when the sequence ends without one.
func (b *Builder) First(ctx context.Context) (*events.GatewayEvent, error) {
	col, err := b.Collect(ctx)
	if err != nil {
		return nil, err
	}
	defer col.Stop()
	return col.Next(ctx), nil
}
