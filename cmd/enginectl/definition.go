package main

import (
	"context"
	"fmt"
	"os"

	"github.com/lyzr/workflowkernel/common/config"
	"github.com/lyzr/workflowkernel/common/logger"
)

func runDefinition(ctx context.Context, cfg *config.Config, log *logger.Logger, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: definition post|get|delete ...")
	}

	pool, err := connectPool(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer pool.Close()
	reg := newRegistry(pool.Pool, log)

	switch args[0] {
	case "post":
		if len(args) != 2 {
			return fmt.Errorf("usage: definition post <file>")
		}
		doc, err := os.ReadFile(args[1])
		if err != nil {
			return fmt.Errorf("read %s: %w", args[1], err)
		}
		compiled, err := reg.Put(ctx, doc)
		if err != nil {
			return fmt.Errorf("compile %s: %w", args[1], err)
		}
		fmt.Printf("registered %s@%s\n", compiled.Name, compiled.Version)
		return nil

	case "get":
		if len(args) != 3 {
			return fmt.Errorf("usage: definition get <name> <version>")
		}
		compiled, err := reg.Load(ctx, args[1], args[2])
		if err != nil {
			return err
		}
		fmt.Printf("%s@%s: %d root children\n", compiled.Name, compiled.Version, len(compiled.Tree.Root.Children))
		return nil

	case "delete":
		if len(args) != 3 {
			return fmt.Errorf("usage: definition delete <name> <version>")
		}
		if err := reg.Delete(ctx, args[1], args[2]); err != nil {
			return err
		}
		fmt.Printf("deleted %s@%s\n", args[1], args[2])
		return nil

	default:
		return fmt.Errorf("unknown definition subcommand: %s", args[0])
	}
}
