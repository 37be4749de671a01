package events

import (
	"context"
)

// Scheduler sits between a stream feed and event processing, deciding how
// much concurrency the consumer side gets. Key is the ordering domain:
// events sharing a key must be processed in arrival order.
type Scheduler interface {
	AddWork(ctx context.Context, key string, evt *GatewayEvent) error
	Shutdown()
}
