package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/target/mmk-ce-queue/internal/data"
	"github.com/target/mmk-ce-queue/internal/domain/model"
	"github.com/target/mmk-ce-queue/internal/migrate"
	"github.com/target/mmk-ce-queue/internal/util"
)

const timeLayout = "2006-01-02 15:04:05"

type statusReport struct {
	Stats       *model.QueueStats
	PauseStatus model.WorkersPauseStatus
	LiveWorkers []string
	// RegistryKnown is false when no worker registry is reachable.
	RegistryKnown bool
}

func runStatus(cmdCtx *commandContext, args []string) error {
	timeout, err := parseTimeoutOnly("status", args)
	if err != nil {
		return err
	}
	return withQueue(cmdCtx, timeout, true, func(ctx context.Context, env *adminEnv) error {
		queue := env.Services.Queue
		if syncErr := queue.SyncPauseState(ctx); syncErr != nil {
			return fmt.Errorf("read pause state: %w", syncErr)
		}

		report := statusReport{}
		if report.Stats, err = queue.Stats(ctx); err != nil {
			return fmt.Errorf("read queue stats: %w", err)
		}
		if report.PauseStatus, err = queue.WorkersPauseStatus(ctx); err != nil {
			return fmt.Errorf("read pause status: %w", err)
		}
		if env.Services.Registry != nil {
			if report.LiveWorkers, err = env.Services.Registry.ListLive(ctx); err != nil {
				return fmt.Errorf("list live workers: %w", err)
			}
			report.RegistryKnown = true
		}
		return printStatus(os.Stdout, report)
	})
}

func printStatus(w io.Writer, report statusReport) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	rows := [][2]string{
		{"Workers", string(report.PauseStatus)},
		{"Pending", fmt.Sprint(report.Stats.Pending)},
		{"In progress", fmt.Sprint(report.Stats.InProgress)},
	}
	if report.RegistryKnown {
		rows = append(rows, [2]string{"Live workers", fmt.Sprint(len(report.LiveWorkers))})
	} else {
		rows = append(rows, [2]string{"Live workers", "unknown (no redis)"})
	}
	for _, row := range rows {
		if err := writef(tw, "%s:\t%s\n", row[0], row[1]); err != nil {
			return fmt.Errorf("write status row: %w", err)
		}
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flush status: %w", err)
	}

	ids := append([]string(nil), report.LiveWorkers...)
	sort.Strings(ids)
	for _, id := range ids {
		if err := writef(w, "  %s\n", id); err != nil {
			return fmt.Errorf("write worker id: %w", err)
		}
	}
	return nil
}

func runPause(cmdCtx *commandContext, args []string) error {
	return setPaused(cmdCtx, args, true)
}

func runResume(cmdCtx *commandContext, args []string) error {
	return setPaused(cmdCtx, args, false)
}

func setPaused(cmdCtx *commandContext, args []string, paused bool) error {
	name := "resume"
	if paused {
		name = "pause"
	}
	timeout, err := parseTimeoutOnly(name, args)
	if err != nil {
		return err
	}
	return withQueue(cmdCtx, timeout, true, func(ctx context.Context, env *adminEnv) error {
		if redisErr := env.requireRedis(name); redisErr != nil {
			return redisErr
		}
		queue := env.Services.Queue
		if paused {
			err = queue.PauseWorkers(ctx)
		} else {
			err = queue.ResumeWorkers(ctx)
		}
		if err != nil {
			return err
		}
		status, err := queue.WorkersPauseStatus(ctx)
		if err != nil {
			return fmt.Errorf("read pause status: %w", err)
		}
		return writef(os.Stdout, "Workers: %s\n", status)
	})
}

func runCancel(cmdCtx *commandContext, args []string) error {
	opts, err := parseTaskFlags("cancel", args)
	if err != nil {
		return err
	}
	return withQueue(cmdCtx, opts.Timeout, false, func(ctx context.Context, env *adminEnv) error {
		if cancelErr := env.Services.Queue.Cancel(ctx, opts.TaskID); cancelErr != nil {
			return cancelErr
		}
		return writef(os.Stdout, "Canceled task %s\n", opts.TaskID)
	})
}

func runCancelAll(cmdCtx *commandContext, args []string) error {
	opts, err := parseCancelAllFlags(args)
	if err != nil {
		return err
	}
	if !opts.Yes {
		scope := "every pending task"
		if opts.IncludeInProgress {
			scope = "every pending and in-progress task"
		}
		if confirmErr := confirm(os.Stdin, os.Stdout, "About to cancel "+scope+"."); confirmErr != nil {
			return confirmErr
		}
	}
	return withQueue(cmdCtx, opts.Timeout, false, func(ctx context.Context, env *adminEnv) error {
		n, cancelErr := env.Services.Queue.CancelAll(ctx, opts.IncludeInProgress)
		if cancelErr != nil {
			return fmt.Errorf("canceled %d tasks before failing: %w", n, cancelErr)
		}
		return writef(os.Stdout, "Canceled %d tasks\n", n)
	})
}

func runFail(cmdCtx *commandContext, args []string) error {
	opts, err := parseFailFlags(args)
	if err != nil {
		return err
	}
	return withQueue(cmdCtx, opts.Timeout, false, func(ctx context.Context, env *adminEnv) error {
		record, failErr := env.Services.Queue.Fail(ctx, opts.TaskID, model.FailRequest{
			ErrorType:    opts.ErrorType,
			ErrorMessage: opts.Message,
		})
		if failErr != nil {
			return failErr
		}
		return writef(os.Stdout, "Task %s archived as %s (activity %s)\n", record.TaskID, record.Outcome, record.ID)
	})
}

func runResetWorkers(cmdCtx *commandContext, args []string) error {
	opts, err := parseResetWorkersFlags(args)
	if err != nil {
		return err
	}
	return withQueue(cmdCtx, opts.Timeout, true, func(ctx context.Context, env *adminEnv) error {
		if redisErr := env.requireRedis("reset-workers"); redisErr != nil {
			return redisErr
		}
		live, listErr := env.Services.Registry.ListLive(ctx)
		if listErr != nil {
			return fmt.Errorf("list live workers: %w", listErr)
		}
		// No live worker means every in-progress task is reset.
		if len(live) == 0 && !opts.Yes {
			if confirmErr := confirm(os.Stdin, os.Stdout,
				"No worker is heartbeating; every in-progress task will return to the queue."); confirmErr != nil {
				return confirmErr
			}
		}
		n, resetErr := env.Services.Queue.ResetTasksWithUnknownWorkerUUIDs(ctx, live)
		if resetErr != nil {
			return resetErr
		}
		return writef(os.Stdout, "Reset %d tasks (%d live workers)\n", n, len(live))
	})
}

func runCancelWornOuts(cmdCtx *commandContext, args []string) error {
	timeout, err := parseTimeoutOnly("cancel-worn-outs", args)
	if err != nil {
		return err
	}
	return withQueue(cmdCtx, timeout, false, func(ctx context.Context, env *adminEnv) error {
		n, cancelErr := env.Services.Queue.CancelWornOuts(ctx)
		if cancelErr != nil {
			return fmt.Errorf("canceled %d worn-out tasks before failing: %w", n, cancelErr)
		}
		return writef(os.Stdout, "Canceled %d worn-out tasks\n", n)
	})
}

func runHistory(cmdCtx *commandContext, args []string) error {
	opts, err := parseHistoryFlags(args)
	if err != nil {
		return err
	}
	return withQueue(cmdCtx, opts.Timeout, false, func(ctx context.Context, env *adminEnv) error {
		records, listErr := env.Services.Queue.History(ctx, opts.listOptions())
		if listErr != nil {
			return listErr
		}
		if opts.JSON {
			return printHistoryJSON(os.Stdout, records)
		}
		return printHistory(os.Stdout, records)
	})
}

func printHistoryJSON(w io.Writer, records []*model.ActivityRecord) error {
	enc := json.NewEncoder(w)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("encode activity %s: %w", rec.ID, err)
		}
	}
	return nil
}

func printHistory(w io.Writer, records []*model.ActivityRecord) error {
	if len(records) == 0 {
		return writeln(w, "No activity found.")
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if err := writeln(tw, "EXECUTED (UTC)\tTASK\tJOB TYPE\tPROJECT\tTARGET\tSTATUS\tLAST\tDURATION\tERROR"); err != nil {
		return fmt.Errorf("write history header row: %w", err)
	}
	for _, rec := range records {
		if err := writef(
			tw,
			"%s\t%s\t%s\t%s\t%s\t%s\t%t\t%s\t%s\n",
			rec.ExecutedAt.UTC().Format(timeLayout),
			rec.TaskID,
			rec.JobType,
			deref(rec.ProjectID),
			deref(rec.TargetID),
			rec.Outcome,
			rec.IsLast,
			util.FormatExecutionTime(rec.ExecutionTimeMs),
			deref(rec.ErrorMessage),
		); err != nil {
			return fmt.Errorf("write history row: %w", err)
		}
	}
	return tw.Flush()
}

func printMigrationStatus(ctx context.Context, db *sql.DB) error {
	migrations, err := data.MigrationStatus(ctx, db)
	if err != nil {
		return fmt.Errorf("read migration status: %w", err)
	}
	return writeMigrationStatus(os.Stdout, migrations)
}

func writeMigrationStatus(w io.Writer, migrations []migrate.Migration) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if err := writeln(tw, "VERSION\tFILE\tAPPLIED (UTC)"); err != nil {
		return fmt.Errorf("write migration header row: %w", err)
	}
	for _, m := range migrations {
		applied := "pending"
		if m.Applied() {
			applied = m.AppliedAt.UTC().Format(timeLayout)
		}
		if err := writef(tw, "%s\t%s\t%s\n", m.Version, m.File, applied); err != nil {
			return fmt.Errorf("write migration row: %w", err)
		}
	}
	return tw.Flush()
}
