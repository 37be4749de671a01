package parallel

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/dragnet-io/dragnet/events"
)

func TestSchedulerPreservesPerKeyOrder(t *testing.T) {
	var mu sync.Mutex
	seen := make(map[uint64][]uint64)

	s := NewScheduler(4, 100, "order", func(ctx context.Context, evt *events.GatewayEvent) error {
		mu.Lock()
		defer mu.Unlock()
		seen[evt.ChannelID] = append(seen[evt.ChannelID], evt.AuthorID)
		return nil
	})

	const perKey = 50
	channels := []uint64{1, 2, 3}
	for i := 0; i < perKey; i++ {
		for _, ch := range channels {
			evt := &events.GatewayEvent{
				Kind:      "#message",
				ChannelID: ch,
				AuthorID:  uint64(i),
			}
			if err := s.AddWork(context.Background(), strconv.FormatUint(ch, 10), evt); err != nil {
				t.Fatal(err)
			}
		}
	}

	// shutdown sends a stop per worker on the unbuffered feeder, so by the
	// time it returns every chained task has been drained
	s.Shutdown()

	mu.Lock()
	defer mu.Unlock()
	for _, ch := range channels {
		got := seen[ch]
		if len(got) != perKey {
			t.Fatalf("channel %d: expected %d events, got %d", ch, perKey, len(got))
		}
		for i, author := range got {
			if author != uint64(i) {
				t.Fatalf("channel %d: position %d out of order (author %d)", ch, i, author)
			}
		}
	}
}

func TestShutdownWaitsForWorkers(t *testing.T) {
	var mu sync.Mutex
	handled := 0

	s := NewScheduler(2, 100, "drain", func(ctx context.Context, evt *events.GatewayEvent) error {
		time.Sleep(10 * time.Millisecond)
		mu.Lock()
		handled++
		mu.Unlock()
		return nil
	})

	const n = 8
	for i := 0; i < n; i++ {
		evt := &events.GatewayEvent{Kind: "#message", ChannelID: uint64(i + 1)}
		if err := s.AddWork(context.Background(), strconv.Itoa(i+1), evt); err != nil {
			t.Fatal(err)
		}
	}

	s.Shutdown()

	mu.Lock()
	defer mu.Unlock()
	if handled != n {
		t.Fatalf("expected all %d events handled before shutdown returned, got %d", n, handled)
	}
}
