// Command realtime-tail connects to a realtime endpoint and prints every
// event it receives as a JSON line, one per event. It is the smoke-test
// companion of the client library.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"

	realtime "github.com/tutorwave/realtime-go"
	"github.com/tutorwave/realtime-go/internal/config"
	libbackoff "github.com/tutorwave/realtime-go/pkg/backoff"
	"github.com/tutorwave/realtime-go/pkg/connection"
	"github.com/tutorwave/realtime-go/pkg/dispatch"
	"github.com/tutorwave/realtime-go/pkg/event"
	"github.com/tutorwave/realtime-go/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to the configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "realtime-tail: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("parsing log level: %w", err)
	}
	zl := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()
	log := logger.NewZerolog(zl)

	client, err := realtime.New(realtime.Config{
		URL: cfg.WebSocketURL,
		Backoff: libbackoff.Policy{
			Base:        cfg.BackoffBase,
			Cap:         cfg.BackoffCap,
			MaxAttempts: cfg.MaxAttempts,
		},
		Logger: log,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	enc := json.NewEncoder(os.Stdout)
	wanted := make(map[string]bool, len(cfg.EventTypes))
	for _, eventType := range cfg.EventTypes {
		wanted[eventType] = true
	}

	client.Subscribe(dispatch.Wildcard, func(ev event.Event) {
		if len(wanted) > 0 && !wanted[ev.Type] {
			return
		}
		if ev.ParseError != nil {
			log.Warn("skipping undecodable frame", "error", ev.ParseError)
			return
		}
		if err := enc.Encode(json.RawMessage(ev.Raw)); err != nil {
			log.Error("writing event to stdout", "error", err)
		}
	})

	if err := connectWithRetry(ctx, client, cfg, log); err != nil {
		return fmt.Errorf("establishing initial connection: %w", err)
	}
	log.Info("connected", "url", cfg.WebSocketURL)

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return client.Close(shutdownCtx)
}

// connectWithRetry drives the initial connection attempt. Reconnects after
// the first successful open are the client's own responsibility; this loop
// only covers the window where the endpoint is not reachable yet at startup.
func connectWithRetry(ctx context.Context, client *realtime.Client, cfg *config.Config, log logger.Logger) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = cfg.BackoffBase
	policy.MaxInterval = cfg.BackoffCap

	notify := func(err error, delay time.Duration) {
		log.Warn("connection attempt failed, retrying", "error", err, "backoff", delay)
	}

	operation := func() (struct{}, error) {
		if err := client.Connect(ctx); err != nil {
			return struct{}{}, err
		}
		if err := waitForOpen(ctx, client); err != nil {
			_ = client.Disconnect(ctx)
			return struct{}{}, err
		}
		return struct{}{}, nil
	}

	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(uint(cfg.ConnectRetries)),
		backoff.WithNotify(notify))
	return err
}

func waitForOpen(ctx context.Context, client *realtime.Client) error {
	open := make(chan struct{}, 1)
	unsubscribe := client.Subscribe(event.TypeConnectionOpen, func(event.Event) {
		select {
		case open <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	if client.State().State == connection.StateOpen {
		return nil
	}

	select {
	case <-open:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(10 * time.Second):
		st := client.State()
		if st.State == connection.StateOpen {
			return nil
		}
		return errors.New("timed out waiting for the connection to open")
	}
}
