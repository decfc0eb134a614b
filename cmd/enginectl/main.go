// Command enginectl is the engine's operator CLI: it manages workflow
// definitions, starts instances, and runs the long-lived listen
// daemon that hosts the outbox processor/janitor and a status server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lyzr/workflowkernel/common/cache"
	"github.com/lyzr/workflowkernel/common/config"
	"github.com/lyzr/workflowkernel/common/db"
	"github.com/lyzr/workflowkernel/common/logger"
	"github.com/lyzr/workflowkernel/internal/workflowdef"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cfg, err := config.Load("enginectl")
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Service.LogLevel, cfg.Service.LogFormat)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	cmd, args := os.Args[1], os.Args[2:]
	var runErr error
	switch cmd {
	case "definition":
		runErr = runDefinition(ctx, cfg, log, args)
	case "instance":
		runErr = runInstance(ctx, cfg, log, args)
	case "listen":
		runErr = runListen(ctx, cfg, log, args)
	case "config":
		runErr = runConfigDump(cfg)
	default:
		usage()
		os.Exit(1)
	}

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", cmd, runErr)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: enginectl <command> [args]

commands:
  definition post <file>          compile and register a workflow document
  definition get <name> <version> print a registered definition's name, version and top-level task count
  definition delete <name> <ver>  remove a registered definition
  instance start <name> <version> [input-file]
                                   start a new workflow instance
  listen                          run the outbox processor/janitor and status server
  config                          print the resolved configuration`)
}

func connectPool(ctx context.Context, cfg *config.Config, log *logger.Logger) (*db.DB, error) {
	return db.New(ctx, cfg, log)
}

// newRegistry builds the workflow definition registry on a
// Postgres-backed cache so a definition registered by one enginectl
// invocation is visible to the next.
func newRegistry(pool *pgxpool.Pool, log *logger.Logger) *workflowdef.Registry {
	return workflowdef.NewRegistry(cache.NewPostgresCache(pool, log))
}
