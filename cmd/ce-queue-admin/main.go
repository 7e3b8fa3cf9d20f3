package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/target/mmk-ce-queue/config"
	"github.com/target/mmk-ce-queue/internal/bootstrap"
)

type commandFn func(ctx *commandContext, args []string) error

type command struct {
	name        string
	description string
	run         commandFn
}

type commandContext struct {
	Ctx    context.Context
	Logger *slog.Logger
	Config config.AppConfig
}

const (
	defaultMigrationTimeout = 5 * time.Minute
	defaultCommandTimeout   = time.Minute
)

func main() {
	if len(os.Args) < 2 {
		if err := printUsage(); err != nil {
			slog.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when no command is provided
	}

	cmdName := os.Args[1]
	cmd, ok := commands()[cmdName]
	if !ok {
		if err := writef(os.Stderr, "unknown command %q\n\n", cmdName); err != nil {
			slog.Error("print unknown command message failed", "error", err)
		}
		if err := printUsage(); err != nil {
			slog.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when command is unknown
	}

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		slog.ErrorContext(context.Background(), "load config", "error", err)
		os.Exit(1) //nolint:forbidigo // CLI must signal configuration load failure to shell scripts
	}
	logger := bootstrap.InitLogger(&cfg)

	cmdCtx := &commandContext{
		Ctx:    context.Background(),
		Logger: logger,
		Config: cfg,
	}
	if runErr := cmd.run(cmdCtx, os.Args[2:]); runErr != nil {
		logger.ErrorContext(cmdCtx.Ctx, "command failed", "command", cmdName, "error", runErr)
		os.Exit(1) //nolint:forbidigo // CLI must propagate command execution failure to callers
	}
}

func commands() map[string]command {
	return map[string]command{
		"migrate": {
			name:        "migrate",
			description: "Run database migrations (--status lists them instead)",
			run:         runMigrations,
		},
		"status": {
			name:        "status",
			description: "Show queue depth, pause status and live workers",
			run:         runStatus,
		},
		"pause": {
			name:        "pause",
			description: "Stop all workers from picking up new tasks",
			run:         runPause,
		},
		"resume": {
			name:        "resume",
			description: "Let workers pick up new tasks again",
			run:         runResume,
		},
		"cancel": {
			name:        "cancel",
			description: "Cancel a single task by id",
			run:         runCancel,
		},
		"cancel-all": {
			name:        "cancel-all",
			description: "Cancel every pending task (and in-progress ones with --include-in-progress)",
			run:         runCancelAll,
		},
		"fail": {
			name:        "fail",
			description: "Mark a task as failed with an error type and message",
			run:         runFail,
		},
		"reset-workers": {
			name:        "reset-workers",
			description: "Return tasks held by workers that stopped heartbeating to the queue",
			run:         runResetWorkers,
		},
		"cancel-worn-outs": {
			name:        "cancel-worn-outs",
			description: "Cancel previously started tasks older than QUEUE_WORN_OUT_AFTER",
			run:         runCancelWornOuts,
		},
		"history": {
			name:        "history",
			description: "List archived task activity",
			run:         runHistory,
		},
	}
}

func commandNames() []string {
	names := make([]string, 0, len(commands()))
	for name := range commands() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func printUsage() error {
	if err := writef(os.Stdout, "Usage: ce-queue-admin <command> [flags]\n\n"); err != nil {
		return err
	}
	if err := writef(os.Stdout, "Available commands:\n"); err != nil {
		return err
	}
	cmds := commands()
	for _, name := range commandNames() {
		c := cmds[name]
		if err := writef(os.Stdout, "  %-18s %s\n", c.name, c.description); err != nil {
			return err
		}
	}
	return nil
}

func runMigrations(cmdCtx *commandContext, args []string) error {
	opts, err := parseMigrateFlags(args)
	if err != nil {
		return err
	}

	return withQueue(cmdCtx, opts.Timeout, false, func(ctx context.Context, env *adminEnv) error {
		if opts.Status {
			return printMigrationStatus(ctx, env.DB)
		}
		cmdCtx.Logger.Info("running database migrations")
		if migrateErr := bootstrap.RunMigrations(ctx, env.DB, cmdCtx.Logger); migrateErr != nil {
			return fmt.Errorf("run migrations: %w", migrateErr)
		}
		cmdCtx.Logger.Info("migrations completed successfully")
		return nil
	})
}
