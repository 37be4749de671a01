package events

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/gorilla/websocket"
)

type instrumentedReader struct {
	r            io.Reader
	addr         string
	bytesCounter prometheus.Counter
}

func (sr *instrumentedReader) Read(p []byte) (int, error) {
	n, err := sr.r.Read(p)
	sr.bytesCounter.Add(float64(n))
	return n, err
}

// HandleEventStream reads frames off an established gateway connection and
// feeds the events to sched, keyed by channel so per-channel order survives
// whatever concurrency the scheduler applies. Blocks until the stream or ctx
// ends; an error frame from the remote is terminal.
func HandleEventStream(ctx context.Context, con *websocket.Conn, sched Scheduler) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	log := slog.Default().With("system", "events")
	remoteAddr := con.RemoteAddr().String()

	go func() {
		t := time.NewTicker(time.Second * 30)
		defer t.Stop()

		for {
			select {
			case <-t.C:
				if err := con.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(time.Second*10)); err != nil {
					log.Warn("failed to ping", "err", err)
				}
			case <-ctx.Done():
				con.Close()
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		mt, rawReader, err := con.NextReader()
		if err != nil {
			return err
		}

		switch mt {
		default:
			return fmt.Errorf("expected text message from subscription endpoint")
		case websocket.TextMessage:
			// ok
		}

		r := &instrumentedReader{
			r:            rawReader,
			addr:         remoteAddr,
			bytesCounter: bytesFromStreamCounter.WithLabelValues(remoteAddr),
		}

		var evt GatewayEvent
		if err := evt.Deserialize(r); err != nil {
			return fmt.Errorf("reading frame: %w", err)
		}

		eventsFromStreamCounter.WithLabelValues(remoteAddr).Inc()

		if err := sched.AddWork(ctx, strconv.FormatUint(evt.ChannelID, 10), &evt); err != nil {
			return err
		}
	}
}
