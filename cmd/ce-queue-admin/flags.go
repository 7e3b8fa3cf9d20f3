package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/target/mmk-ce-queue/internal/domain/model"
)

type migrateOptions struct {
	Timeout time.Duration
	Status  bool
}

type taskOptions struct {
	TaskID  string
	Timeout time.Duration
}

type cancelAllOptions struct {
	IncludeInProgress bool
	Yes               bool
	Timeout           time.Duration
}

type failOptions struct {
	TaskID    string
	ErrorType string
	Message   string
	Timeout   time.Duration
}

type resetWorkersOptions struct {
	Yes     bool
	Timeout time.Duration
}

type historyOptions struct {
	ProjectID string
	TargetID  string
	JobType   string
	Outcome   string
	OnlyLast  bool
	Limit     int
	Offset    int
	JSON      bool
	Timeout   time.Duration
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(flagOutput)
	return fs
}

// flagOutput receives flag parse errors and usage text.
var flagOutput io.Writer = os.Stderr

func parseMigrateFlags(args []string) (migrateOptions, error) {
	fs := newFlagSet("migrate")
	opts := migrateOptions{}
	fs.DurationVar(
		&opts.Timeout,
		"timeout",
		defaultMigrationTimeout,
		"Maximum duration to wait for migrations to complete",
	)
	fs.BoolVar(&opts.Status, "status", false, "List migrations and whether they are applied without running them")

	if err := fs.Parse(args); err != nil {
		return migrateOptions{}, err
	}
	if opts.Timeout <= 0 {
		return migrateOptions{}, errors.New("--timeout must be greater than zero")
	}
	return opts, nil
}

func parseTimeoutOnly(name string, args []string) (time.Duration, error) {
	fs := newFlagSet(name)
	timeout := fs.Duration("timeout", defaultCommandTimeout, "Maximum duration for the command")
	if err := fs.Parse(args); err != nil {
		return 0, err
	}
	if *timeout <= 0 {
		return 0, errors.New("--timeout must be greater than zero")
	}
	return *timeout, nil
}

func parseTaskFlags(name string, args []string) (taskOptions, error) {
	fs := newFlagSet(name)
	opts := taskOptions{}
	fs.StringVar(&opts.TaskID, "id", "", "Task id (required)")
	fs.DurationVar(&opts.Timeout, "timeout", defaultCommandTimeout, "Maximum duration for the command")

	if err := fs.Parse(args); err != nil {
		return taskOptions{}, err
	}
	opts.TaskID = strings.TrimSpace(opts.TaskID)
	if opts.TaskID == "" {
		return taskOptions{}, errors.New("--id is required")
	}
	if opts.Timeout <= 0 {
		return taskOptions{}, errors.New("--timeout must be greater than zero")
	}
	return opts, nil
}

func parseCancelAllFlags(args []string) (cancelAllOptions, error) {
	fs := newFlagSet("cancel-all")
	opts := cancelAllOptions{}
	fs.BoolVar(&opts.IncludeInProgress, "include-in-progress", false, "Also cancel tasks workers are running")
	fs.BoolVar(&opts.Yes, "yes", false, "Skip the confirmation prompt")
	fs.DurationVar(&opts.Timeout, "timeout", defaultCommandTimeout, "Maximum duration for the command")

	if err := fs.Parse(args); err != nil {
		return cancelAllOptions{}, err
	}
	if opts.Timeout <= 0 {
		return cancelAllOptions{}, errors.New("--timeout must be greater than zero")
	}
	return opts, nil
}

func parseFailFlags(args []string) (failOptions, error) {
	fs := newFlagSet("fail")
	opts := failOptions{}
	fs.StringVar(&opts.TaskID, "id", "", "Task id (required)")
	fs.StringVar(&opts.ErrorType, "type", "operator", "Error type recorded in history")
	fs.StringVar(&opts.Message, "message", "", "Error message recorded in history (required)")
	fs.DurationVar(&opts.Timeout, "timeout", defaultCommandTimeout, "Maximum duration for the command")

	if err := fs.Parse(args); err != nil {
		return failOptions{}, err
	}
	opts.TaskID = strings.TrimSpace(opts.TaskID)
	opts.ErrorType = strings.TrimSpace(opts.ErrorType)
	opts.Message = strings.TrimSpace(opts.Message)

	switch {
	case opts.TaskID == "":
		return failOptions{}, errors.New("--id is required")
	case opts.Message == "":
		return failOptions{}, errors.New("--message is required")
	case opts.Timeout <= 0:
		return failOptions{}, errors.New("--timeout must be greater than zero")
	}
	return opts, nil
}

func parseResetWorkersFlags(args []string) (resetWorkersOptions, error) {
	fs := newFlagSet("reset-workers")
	opts := resetWorkersOptions{}
	fs.BoolVar(&opts.Yes, "yes", false, "Skip the confirmation prompt when no worker is live")
	fs.DurationVar(&opts.Timeout, "timeout", defaultCommandTimeout, "Maximum duration for the command")

	if err := fs.Parse(args); err != nil {
		return resetWorkersOptions{}, err
	}
	if opts.Timeout <= 0 {
		return resetWorkersOptions{}, errors.New("--timeout must be greater than zero")
	}
	return opts, nil
}

func parseHistoryFlags(args []string) (historyOptions, error) {
	fs := newFlagSet("history")
	opts := historyOptions{}
	fs.StringVar(&opts.ProjectID, "project", "", "Filter by project id")
	fs.StringVar(&opts.TargetID, "target", "", "Filter by target component id")
	fs.StringVar(&opts.JobType, "job-type", "", "Filter by job type")
	fs.StringVar(&opts.Outcome, "outcome", "", "Filter by outcome (SUCCESS, FAILED, CANCELED)")
	fs.BoolVar(&opts.OnlyLast, "only-last", false, "Only the latest record per project and target")
	fs.IntVar(&opts.Limit, "limit", 50, "Maximum number of records")
	fs.IntVar(&opts.Offset, "offset", 0, "Number of records to skip")
	fs.BoolVar(&opts.JSON, "json", false, "Print records as JSON lines")
	fs.DurationVar(&opts.Timeout, "timeout", defaultCommandTimeout, "Maximum duration for the command")

	if err := fs.Parse(args); err != nil {
		return historyOptions{}, err
	}
	opts.Outcome = strings.ToUpper(strings.TrimSpace(opts.Outcome))

	switch {
	case opts.Limit <= 0 || opts.Limit > 1000:
		return historyOptions{}, errors.New("--limit must be between 1 and 1000")
	case opts.Offset < 0:
		return historyOptions{}, errors.New("--offset must not be negative")
	case opts.Outcome != "" && !model.Outcome(opts.Outcome).Valid():
		return historyOptions{}, fmt.Errorf("unknown outcome %q", opts.Outcome)
	case opts.Timeout <= 0:
		return historyOptions{}, errors.New("--timeout must be greater than zero")
	}
	return opts, nil
}

func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func (o historyOptions) listOptions() model.ActivityListOptions {
	list := model.ActivityListOptions{
		ProjectID: optionalString(o.ProjectID),
		TargetID:  optionalString(o.TargetID),
		JobType:   optionalString(o.JobType),
		OnlyLast:  o.OnlyLast,
		Limit:     o.Limit,
		Offset:    o.Offset,
	}
	if o.Outcome != "" {
		outcome := model.Outcome(o.Outcome)
		list.Outcome = &outcome
	}
	return list
}
