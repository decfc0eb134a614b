package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	goredis "github.com/redis/go-redis/v9"

	"github.com/lyzr/workflowkernel/common/config"
	"github.com/lyzr/workflowkernel/common/logger"
	redisclient "github.com/lyzr/workflowkernel/common/redis"
	"github.com/lyzr/workflowkernel/internal/broker"
	"github.com/lyzr/workflowkernel/internal/executor"
	"github.com/lyzr/workflowkernel/internal/outbox"
	"github.com/lyzr/workflowkernel/internal/scope"
	"github.com/lyzr/workflowkernel/internal/tasks"
	"github.com/lyzr/workflowkernel/internal/werrors"
)

// runListen is the long-lived daemon: it drives the outbox
// processor/janitor loops against Postgres and exposes a status
// surface over HTTP, until interrupted.
func runListen(ctx context.Context, cfg *config.Config, log *logger.Logger, args []string) error {
	pool, err := connectPool(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer pool.Close()

	reg := newRegistry(pool.Pool, log)
	instances := outbox.NewInstanceStore(pool.Pool)
	store := outbox.NewPostgresStore(pool.Pool, log)

	eval := scope.NewEvaluator()
	env := executor.Environment{
		Caller:    noopCaller{},
		EventSink: noopEventSink{},
		NewID:     func() string { return time.Now().UTC().Format(time.RFC3339Nano) },
	}
	engine := executor.New(eval, env, nil)

	var b broker.Broker
	switch cfg.Messaging.Type {
	case "redis-streams":
		if len(cfg.Messaging.Brokers) == 0 {
			return fmt.Errorf("redis-streams messaging requires at least one address in messaging.brokers")
		}
		rc := goredis.NewClient(&goredis.Options{Addr: cfg.Messaging.Brokers[0]})
		consumer, err := os.Hostname()
		if err != nil || consumer == "" {
			consumer = "enginectl"
		}
		b = broker.NewRedisBroker(redisclient.NewClient(rc, log), cfg.Messaging.ConsumerGroup, consumer)
	default:
		b = broker.NewMemoryBroker(log)
	}
	notifier := broker.Notifier{Broker: b}

	processor := outbox.NewProcessor(store, engine, reg, instances, notifier, log,
		cfg.Outbox.BatchSize, cfg.Outbox.PollInterval, 8)
	janitor := outbox.NewJanitor(store, log, cfg.Outbox.JanitorInterval, cfg.Outbox.Retention, 500)

	go processor.Run(ctx)
	go janitor.Run(ctx)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/readyz", func(c echo.Context) error {
		if err := pool.Health(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "not ready", "error": err.Error()})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ready"})
	})

	addr := fmt.Sprintf(":%d", cfg.Service.Port)
	log.Info("enginectl listen starting", "addr", addr)

	errCh := make(chan error, 1)
	go func() { errCh <- e.Start(addr) }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	}
}

// noopCaller and noopEventSink stand in for the concrete collaborators
// (HTTP/agent callers, a real event bus) that are out of scope for
// this engine; enginectl wires them so the daemon starts, but every
// Call/Emit task will surface a communication error or a no-op until
// a real Environment is substituted.
type noopCaller struct{}

func (noopCaller) Invoke(ctx context.Context, kind tasks.CallKind, with any, input json.RawMessage) (json.RawMessage, *werrors.Error) {
	return nil, werrors.NewCommunication(0, fmt.Errorf("call kind %q has no collaborator wired in this build", kind), "")
}

type noopEventSink struct{}

func (noopEventSink) Emit(ctx context.Context, event tasks.CloudEvent) error { return nil }
