package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	_ "net/http/pprof"

	_ "github.com/joho/godotenv/autoload"
	_ "go.uber.org/automaxprocs"

	"github.com/dragnet-io/dragnet/collector"
	"github.com/dragnet-io/dragnet/events"
	"github.com/dragnet-io/dragnet/events/schedulers/parallel"

	"github.com/carlmjohnson/versioninfo"
	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := run(os.Args); err != nil {
		slog.Error("exiting process", "err", err.Error())
		os.Exit(-1)
	}
}

func run(args []string) error {

	app := cli.App{
		Name:    "trawler",
		Usage:   "gateway event collection daemon and tooling",
		Version: versioninfo.Short(),
	}
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "log verbosity level (eg: warn, info, debug)",
			EnvVars: []string{"TRAWLER_LOG_LEVEL", "GO_LOG_LEVEL", "LOG_LEVEL"},
		},
	}
	app.Commands = []*cli.Command{
		cmdServe,
		cmdCollect,
	}
	return app.Run(args)
}

func configLogger(cctx *cli.Context, writer io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cctx.String("log-level")) {
	case "error":
		level = slog.LevelError
	case "warn":
		level = slog.LevelWarn
	case "info":
		level = slog.LevelInfo
	case "debug":
		level = slog.LevelDebug
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(writer, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return logger
}

var cmdCollect = &cli.Command{
	Name:   "collect",
	Usage:  "subscribe to a gateway and print matching events as JSON lines",
	Action: runCollect,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "host",
			Usage:   "full websocket URL of the gateway subscription endpoint",
			Value:   "ws://localhost:8700/subscribe",
			EnvVars: []string{"TRAWLER_HOST"},
		},
		&cli.Uint64Flag{
			Name:  "channel",
			Usage: "only accept events from this channel id",
		},
		&cli.Uint64Flag{
			Name:  "guild",
			Usage: "only accept events from this guild id",
		},
		&cli.Uint64Flag{
			Name:  "author",
			Usage: "only accept events from this author id",
		},
		&cli.StringFlag{
			Name:  "contains",
			Usage: "only accept events whose payload contains this substring",
		},
		&cli.UintFlag{
			Name:  "filter-limit",
			Usage: "stop after examining this many events",
		},
		&cli.UintFlag{
			Name:  "collect-limit",
			Usage: "stop after accepting this many events",
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "give up on the collection after this long",
		},
		&cli.BoolFlag{
			Name:  "first",
			Usage: "print the first accepted event and exit",
		},
		&cli.IntFlag{
			Name:  "worker-count",
			Usage: "number of workers to process stream events",
			Value: 4,
		},
		&cli.IntFlag{
			Name:  "max-queue-size",
			Usage: "max number of events to queue",
			Value: 100,
		},
	},
}

func runCollect(cctx *cli.Context) error {
	ctx, cancel := context.WithCancel(cctx.Context)
	defer cancel()
	log := configLogger(cctx, os.Stderr)

	// Trap SIGINT to trigger a shutdown.
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-signals:
			log.Info("received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()

	em := events.NewEventManager()
	go em.Run()
	defer em.Shutdown()

	host := cctx.String("host")
	sched := parallel.NewScheduler(cctx.Int("worker-count"), cctx.Int("max-queue-size"), host, em.AddEvent)

	builder := collector.NewBuilder(em)
	if cctx.IsSet("channel") {
		builder = builder.ChannelID(cctx.Uint64("channel"))
	}
	if cctx.IsSet("guild") {
		builder = builder.GuildID(cctx.Uint64("guild"))
	}
	if cctx.IsSet("author") {
		builder = builder.AuthorID(cctx.Uint64("author"))
	}
	if needle := cctx.String("contains"); needle != "" {
		builder = builder.Filter(collector.PredicateFunc(func(evt *events.GatewayEvent) bool {
			return strings.Contains(string(evt.Data), needle)
		}))
	}
	if cctx.IsSet("filter-limit") {
		builder = builder.FilterLimit(uint32(cctx.Uint("filter-limit")))
	}
	if cctx.IsSet("collect-limit") {
		builder = builder.CollectLimit(uint32(cctx.Uint("collect-limit")))
	}
	if d := cctx.Duration("timeout"); d > 0 {
		builder = builder.Timeout(d)
	}

	log.Info("connecting to gateway", "host", host)
	con, _, err := websocket.DefaultDialer.Dial(host, http.Header{
		"User-Agent": []string{"trawler/" + versioninfo.Short()},
	})
	if err != nil {
		return fmt.Errorf("failed to connect to gateway: %w", err)
	}
	defer con.Close()

	streamDone := make(chan struct{})
	go func() {
		defer close(streamDone)
		err := events.HandleEventStream(ctx, con, sched)
		if err != nil && ctx.Err() == nil {
			log.Error("event stream ended", "err", err)
		}
		cancel()
	}()

	if cctx.Bool("first") {
		evt, err := builder.First(ctx)
		if err != nil {
			return err
		}
		if evt == nil {
			log.Info("collection ended without a matching event")
		} else if err := printEvent(evt); err != nil {
			return err
		}
	} else {
		col, err := builder.Collect(ctx)
		if err != nil {
			return err
		}
		defer col.Stop()

		collected := 0
		for {
			evt := col.Next(ctx)
			if evt == nil {
				break
			}
			collected++
			if err := printEvent(evt); err != nil {
				return err
			}
		}
		log.Info("collection complete", "collected", collected)
	}

	cancel()
	<-streamDone
	sched.Shutdown()
	em.Shutdown()
	return nil
}

func printEvent(evt *events.GatewayEvent) error {
	b, err := jsoniter.ConfigFastest.Marshal(evt)
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}
