package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// stubFilter accepts a fixed number of submits before reporting
// deactivation, mirroring how a real filter exhausts its limits.
type stubFilter struct {
	mu        sync.Mutex
	limit     int
	submitted []*GatewayEvent
	closed    bool
}

func (f *stubFilter) Submit(evt *GatewayEvent) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, evt)
	return len(f.submitted) < f.limit
}

func (f *stubFilter) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *stubFilter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.submitted)
}

func (f *stubFilter) at(i int) *GatewayEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitted[i]
}

func (f *stubFilter) waitClosed(t *testing.T) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		f.mu.Lock()
		closed := f.closed
		f.mu.Unlock()
		if closed {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("filter was never closed")
}

func TestEventManagerLifecycle(t *testing.T) {
	em := NewEventManager()
	go em.Run()
	defer em.Shutdown()

	ctx := context.Background()
	f := &stubFilter{limit: 2}

	if err := em.RegisterFilter(ctx, f); err != nil {
		t.Fatal(err)
	}

	one := &GatewayEvent{Kind: "#message", ChannelID: 1}
	two := &GatewayEvent{Kind: "#message", ChannelID: 2}
	three := &GatewayEvent{Kind: "#message", ChannelID: 3}

	for _, evt := range []*GatewayEvent{one, two, three} {
		if err := em.AddEvent(ctx, evt); err != nil {
			t.Fatal(err)
		}
	}

	// the second submit deactivates the stub, so the manager must close it
	// and never offer it the third event
	f.waitClosed(t)
	time.Sleep(20 * time.Millisecond)

	if got := f.count(); got != 2 {
		t.Fatalf("expected exactly 2 submits, got %d", got)
	}
	if f.at(0) != one || f.at(1) != two {
		t.Fatal("events were submitted out of order")
	}
}

func TestEventManagerFansOutToAllFilters(t *testing.T) {
	em := NewEventManager()
	go em.Run()
	defer em.Shutdown()

	ctx := context.Background()
	a := &stubFilter{limit: 100}
	b := &stubFilter{limit: 100}

	if err := em.RegisterFilter(ctx, a); err != nil {
		t.Fatal(err)
	}
	if err := em.RegisterFilter(ctx, b); err != nil {
		t.Fatal(err)
	}

	evt := &GatewayEvent{Kind: "#message", ChannelID: 1}
	if err := em.AddEvent(ctx, evt); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for a.count() < 1 || b.count() < 1 {
		if time.Now().After(deadline) {
			t.Fatalf("fan-out incomplete: a=%d b=%d", a.count(), b.count())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestShutdownClosesFilters(t *testing.T) {
	em := NewEventManager()
	go em.Run()

	f := &stubFilter{limit: 100}
	if err := em.RegisterFilter(context.Background(), f); err != nil {
		t.Fatal(err)
	}

	em.Shutdown()
	f.waitClosed(t)
}

func TestOpsAfterShutdown(t *testing.T) {
	em := NewEventManager()
	em.Shutdown()
	em.Shutdown() // idempotent

	if err := em.AddEvent(context.Background(), &GatewayEvent{Kind: "#message"}); !errors.Is(err, ErrShutdown) {
		t.Fatalf("expected ErrShutdown, got %v", err)
	}
	if err := em.RegisterFilter(context.Background(), &stubFilter{limit: 1}); !errors.Is(err, ErrShutdown) {
		t.Fatalf("expected ErrShutdown, got %v", err)
	}
}

func TestOpsHonorContext(t *testing.T) {
	em := NewEventManager() // Run never started, so ops would block forever

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := em.AddEvent(ctx, &GatewayEvent{Kind: "#message"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if err := em.RegisterFilter(ctx, &stubFilter{limit: 1}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
