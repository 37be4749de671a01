package collector

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dragnet-io/dragnet/events"
)

func TestFilterOptionsMatches(t *testing.T) {
	assert := assert.New(t)

	testCases := []struct {
		name     string
		opts     FilterOptions
		evt      *events.GatewayEvent
		expected bool
	}{
		{"no constraints", FilterOptions{}, msg(u64(1), 2, 3), true},
		{"no constraints, guildless event", FilterOptions{}, msg(nil, 2, 3), true},
		{"channel match", FilterOptions{ChannelID: u64(2)}, msg(u64(1), 2, 3), true},
		{"channel mismatch", FilterOptions{ChannelID: u64(9)}, msg(u64(1), 2, 3), false},
		{"guild match", FilterOptions{GuildID: u64(1)}, msg(u64(1), 2, 3), true},
		{"guild mismatch", FilterOptions{GuildID: u64(9)}, msg(u64(1), 2, 3), false},
		{"guild constraint, guildless event", FilterOptions{GuildID: u64(1)}, msg(nil, 2, 3), false},
		{"author match", FilterOptions{AuthorID: u64(3)}, msg(u64(1), 2, 3), true},
		{"author mismatch", FilterOptions{AuthorID: u64(4)}, msg(u64(1), 2, 3), false},
		{"all constraints match", FilterOptions{GuildID: u64(1), ChannelID: u64(2), AuthorID: u64(3)}, msg(u64(1), 2, 3), true},
		{"one of three mismatches", FilterOptions{GuildID: u64(1), ChannelID: u64(2), AuthorID: u64(4)}, msg(u64(1), 2, 3), false},
	}

	for _, c := range testCases {
		assert.Equal(c.expected, c.opts.Matches(c.evt), c.name)
	}
}

func TestPredicateCombinators(t *testing.T) {
	assert := assert.New(t)

	yes := PredicateFunc(func(*events.GatewayEvent) bool { return true })
	no := PredicateFunc(func(*events.GatewayEvent) bool { return false })
	evt := msg(nil, 1, 1)

	assert.True(And(yes, yes).Evaluate(evt))
	assert.False(And(yes, no).Evaluate(evt))
	assert.True(And().Evaluate(evt))

	assert.True(Or(no, yes).Evaluate(evt))
	assert.False(Or(no, no).Evaluate(evt))
	assert.False(Or().Evaluate(evt))

	assert.False(Not(yes).Evaluate(evt))
	assert.True(Not(no).Evaluate(evt))
}
