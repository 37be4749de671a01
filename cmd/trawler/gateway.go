package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/dragnet-io/dragnet/collector"
	"github.com/dragnet-io/dragnet/events"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

var eventsGeneratedCounter = promauto.NewCounter(prometheus.CounterOpts{
	Name: "trawler_events_generated_total",
	Help: "The total number of synthetic events generated",
})

var eventsSentCounter = promauto.NewCounter(prometheus.CounterOpts{
	Name: "trawler_events_sent_total",
	Help: "The total number of events written to subscribers",
})

var cmdServe = &cli.Command{
	Name:   "serve",
	Usage:  "run a gateway simulator that streams synthetic events",
	Action: runServe,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "listen",
			Usage:   "IP or address, and port, to listen on",
			Value:   ":8700",
			EnvVars: []string{"TRAWLER_LISTEN"},
		},
		&cli.Float64Flag{
			Name:    "rate",
			Usage:   "events generated per second",
			Value:   25,
			EnvVars: []string{"TRAWLER_EVENT_RATE"},
		},
		&cli.IntFlag{
			Name:  "channels",
			Usage: "number of distinct channels to generate events on",
			Value: 16,
		},
		&cli.IntFlag{
			Name:  "guilds",
			Usage: "number of distinct guilds to spread channels across",
			Value: 4,
		},
		&cli.IntFlag{
			Name:  "authors",
			Usage: "number of distinct authors generating events",
			Value: 64,
		},
	},
}

type Server struct {
	events *events.EventManager
	log    *slog.Logger
}

type genConfig struct {
	rate     float64
	channels int
	guilds   int
	authors  int
}

func runServe(cctx *cli.Context) error {
	ctx, cancel := context.WithCancel(cctx.Context)
	defer cancel()
	log := configLogger(cctx, os.Stdout)

	// Trap SIGINT to trigger a shutdown.
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	em := events.NewEventManager()
	go em.Run()

	s := &Server{
		events: em,
		log:    log,
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	e.GET("/", func(c echo.Context) error {
		return c.HTML(http.StatusOK, `<h1>trawler gateway simulator</h1>`)
	})
	e.GET("/subscribe", s.SubscribeHandler)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	cfg := genConfig{
		rate:     cctx.Float64("rate"),
		channels: cctx.Int("channels"),
		guilds:   cctx.Int("guilds"),
		authors:  cctx.Int("authors"),
	}

	log.Info("starting gateway simulator", "listen", cctx.String("listen"), "rate", cfg.rate)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := e.Start(cctx.String("listen")); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return s.generateEvents(gctx, cfg)
	})
	g.Go(func() error {
		select {
		case <-signals:
			log.Info("received shutdown signal")
			cancel()
		case <-gctx.Done():
		}

		em.Shutdown()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Second*5)
		defer shutdownCancel()
		return e.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("shut down successfully")
	return nil
}

// generateEvents feeds synthetic gateway traffic into the event manager at a
// steady rate until ctx is canceled.
func (s *Server) generateEvents(ctx context.Context, cfg genConfig) error {
	limiter := rate.NewLimiter(rate.Limit(cfg.rate), 1)

	for {
		if err := limiter.Wait(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}

		if err := s.events.AddEvent(ctx, fakeEvent(cfg)); err != nil {
			if errors.Is(err, events.ErrShutdown) || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		eventsGeneratedCounter.Inc()
	}
}

func fakeEvent(cfg genConfig) *events.GatewayEvent {
	kind := "#message"
	switch gofakeit.Number(0, 9) {
	case 7, 8:
		kind = "#reaction"
	case 9:
		kind = "#typing"
	}

	channel := uint64(gofakeit.Number(1, cfg.channels))
	evt := &events.GatewayEvent{
		Kind:      kind,
		ChannelID: channel,
		AuthorID:  uint64(gofakeit.Number(1, cfg.authors)),
		Time:      time.Now().UTC().Format(time.RFC3339),
	}

	// every fourth channel is a DM and carries no guild
	if cfg.guilds > 0 && channel%4 != 0 {
		guild := channel%uint64(cfg.guilds) + 1
		evt.GuildID = &guild
	}

	switch kind {
	case "#message":
		evt.Data, _ = jsoniter.ConfigFastest.Marshal(map[string]string{"content": gofakeit.Sentence(8)})
	case "#reaction":
		evt.Data, _ = jsoniter.ConfigFastest.Marshal(map[string]string{"emoji": gofakeit.Emoji()})
	}

	return evt
}

// SubscribeHandler upgrades the request and replays the generated event feed
// to the client, one frame per event. Query params narrow the feed the same
// way a collect call would.
func (s *Server) SubscribeHandler(c echo.Context) error {
	conn, err := websocket.Upgrade(c.Response().Writer, c.Request(), c.Response().Header(), 1<<10, 1<<10)
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx := c.Request().Context()
	remote := conn.RemoteAddr().String()

	builder := collector.NewBuilder(s.events)
	if raw := c.QueryParam("channel"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid channel param: %w", err)
		}
		builder = builder.ChannelID(id)
	}
	if raw := c.QueryParam("guild"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid guild param: %w", err)
		}
		builder = builder.GuildID(id)
	}
	if raw := c.QueryParam("author"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid author param: %w", err)
		}
		builder = builder.AuthorID(id)
	}

	col, err := builder.Collect(ctx)
	if err != nil {
		return err
	}
	defer col.Stop()

	s.log.Info("subscriber connected", "remote", remote)

	for {
		evt := col.Next(ctx)
		if evt == nil {
			s.log.Info("subscriber stream ended", "remote", remote)
			return nil
		}

		wc, err := conn.NextWriter(websocket.TextMessage)
		if err != nil {
			return err
		}
		if err := evt.Serialize(wc); err != nil {
			return fmt.Errorf("failed to write event: %w", err)
		}
		if err := wc.Close(); err != nil {
			return fmt.Errorf("failed to flush-close our event write: %w", err)
		}
		eventsSentCounter.Inc()
	}
}
