package collector

import (
	"github.com/dragnet-io/dragnet/events"
)

// Predicate is an arbitrary constraint evaluated against events that already
// matched the configured ids. Implementations may close over external state;
// calls are serialized per registration and must not block.
type Predicate interface {
	Evaluate(evt *events.GatewayEvent) bool
}

// PredicateFunc adapts a plain function to the Predicate interface.
type PredicateFunc func(*events.GatewayEvent) bool

func (f PredicateFunc) Evaluate(evt *events.GatewayEvent) bool { return f(evt) }

// And matches when every predicate matches.
func And(ps ...Predicate) Predicate {
	return PredicateFunc(func(evt *events.GatewayEvent) bool {
		for _, p := range ps {
			if !p.Evaluate(evt) {
				return false
			}
		}
		return true
	})
}

// Or matches when at least one predicate matches.
func Or(ps ...Predicate) Predicate {
	return PredicateFunc(func(evt *events.GatewayEvent) bool {
		for _, p := range ps {
			if p.Evaluate(evt) {
				return true
			}
		}
		return false
	})
}

// Not inverts a predicate.
func Not(p Predicate) Predicate {
	return PredicateFunc(func(evt *events.GatewayEvent) bool {
		return !p.Evaluate(evt)
	})
}

// FilterOptions carries everything a collection request configures about
// which events to accept and when to stop examining them. All fields are
// optional; nil means unconstrained.
type FilterOptions struct {
	// FilterLimit caps how many events the filter examines, matching or not.
	FilterLimit *uint32
	// CollectLimit caps how many events the filter accepts.
	CollectLimit *uint32

	// Predicate runs only on events that already satisfied the id
	// constraints below.
	Predicate Predicate

	ChannelID *uint64
	GuildID   *uint64
	AuthorID  *uint64
}

// Matches reports whether the event satisfies every configured id
// constraint. An unset constraint is vacuously satisfied; a set GuildID is
// never satisfied by an event outside any guild.
func (o FilterOptions) Matches(evt *events.GatewayEvent) bool {
	if o.GuildID != nil && (evt.GuildID == nil || *evt.GuildID != *o.GuildID) {
		return false
	}
	if o.ChannelID != nil && evt.ChannelID != *o.ChannelID {
		return false
	}
	if o.AuthorID != nil && evt.AuthorID != *o.AuthorID {
		return false
	}
	return true
}
