package main

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/mmk-ce-queue/config"
	"github.com/target/mmk-ce-queue/internal/domain/model"
	"github.com/target/mmk-ce-queue/internal/migrate"
)

func init() {
	flagOutput = io.Discard
}

func TestCommandsAreNamedConsistently(t *testing.T) {
	for key, cmd := range commands() {
		assert.Equal(t, key, cmd.name)
		assert.NotEmpty(t, cmd.description)
		assert.NotNil(t, cmd.run)
	}
	names := commandNames()
	assert.Equal(t, "cancel", names[0])
	assert.Contains(t, names, "reset-workers")
}

func TestParseFailFlags(t *testing.T) {
	opts, err := parseFailFlags([]string{"--id", " t1 ", "--message", "stuck on scanner"})
	require.NoError(t, err)
	assert.Equal(t, "t1", opts.TaskID)
	assert.Equal(t, "operator", opts.ErrorType)
	assert.Equal(t, "stuck on scanner", opts.Message)
	assert.Equal(t, defaultCommandTimeout, opts.Timeout)

	_, err = parseFailFlags([]string{"--id", "t1"})
	require.EqualError(t, err, "--message is required")

	_, err = parseFailFlags([]string{"--message", "x"})
	require.EqualError(t, err, "--id is required")
}

func TestParseTaskFlags(t *testing.T) {
	_, err := parseTaskFlags("cancel", nil)
	require.EqualError(t, err, "--id is required")

	_, err = parseTaskFlags("cancel", []string{"--id", "t1", "--timeout", "0s"})
	require.EqualError(t, err, "--timeout must be greater than zero")

	opts, err := parseTaskFlags("cancel", []string{"--id", "t1", "--timeout", "5s"})
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, opts.Timeout)
}

func TestParseHistoryFlags(t *testing.T) {
	opts, err := parseHistoryFlags([]string{"--project", "p1", "--outcome", "failed", "--only-last", "--limit", "10"})
	require.NoError(t, err)

	list := opts.listOptions()
	require.NotNil(t, list.ProjectID)
	assert.Equal(t, "p1", *list.ProjectID)
	assert.Nil(t, list.TargetID)
	assert.Nil(t, list.JobType)
	require.NotNil(t, list.Outcome)
	assert.Equal(t, model.OutcomeFailed, *list.Outcome)
	assert.True(t, list.OnlyLast)
	assert.Equal(t, 10, list.Limit)

	_, err = parseHistoryFlags([]string{"--outcome", "lost"})
	require.Error(t, err)
	_, err = parseHistoryFlags([]string{"--limit", "0"})
	require.Error(t, err)
	_, err = parseHistoryFlags([]string{"--offset", "-1"})
	require.Error(t, err)
}

func TestParseMigrateFlags(t *testing.T) {
	opts, err := parseMigrateFlags([]string{"--status"})
	require.NoError(t, err)
	assert.True(t, opts.Status)
	assert.Equal(t, defaultMigrationTimeout, opts.Timeout)

	_, err = parseMigrateFlags([]string{"--timeout", "-1s"})
	require.Error(t, err)
}

func TestConfirm(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, confirm(strings.NewReader("yes\n"), &out, "About to cancel every pending task."))
	assert.Contains(t, out.String(), "Continue? [y/N]")

	require.ErrorIs(t, confirm(strings.NewReader("n\n"), io.Discard, "q"), errAborted)
	require.ErrorIs(t, confirm(strings.NewReader(""), io.Discard, "q"), errAborted)
	require.NoError(t, confirm(strings.NewReader("Y"), io.Discard, "q"))
}

func TestPrintHistory(t *testing.T) {
	project := "p1"
	msg := "analysis crashed"
	ms := int64(1500)
	records := []*model.ActivityRecord{{
		ID:              "a1",
		TaskID:          "t1",
		JobType:         model.JobTypeReport,
		ProjectID:       &project,
		Outcome:         model.OutcomeFailed,
		ErrorMessage:    &msg,
		IsLast:          true,
		ExecutedAt:      time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		ExecutionTimeMs: &ms,
	}}

	var buf bytes.Buffer
	require.NoError(t, printHistory(&buf, records))
	out := buf.String()
	assert.Contains(t, out, "EXECUTED (UTC)")
	assert.Contains(t, out, "2024-05-01 12:00:00")
	assert.Contains(t, out, "FAILED")
	assert.Contains(t, out, "1.5s")
	assert.Contains(t, out, "analysis crashed")

	buf.Reset()
	require.NoError(t, printHistory(&buf, nil))
	assert.Equal(t, "No activity found.\n", buf.String())

	buf.Reset()
	require.NoError(t, printHistoryJSON(&buf, records))
	assert.Contains(t, buf.String(), `"task_id":"t1"`)
	assert.Contains(t, buf.String(), `"status":"FAILED"`)
}

func TestPrintStatus(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printStatus(&buf, statusReport{
		Stats:         &model.QueueStats{Pending: 4, InProgress: 1},
		PauseStatus:   model.WorkersPausing,
		LiveWorkers:   []string{"node-b", "node-a"},
		RegistryKnown: true,
	}))
	out := buf.String()
	assert.Contains(t, out, "PAUSING")
	assert.Contains(t, out, "Live workers:")
	assert.Less(t, strings.Index(out, "node-a"), strings.Index(out, "node-b"))

	buf.Reset()
	require.NoError(t, printStatus(&buf, statusReport{Stats: &model.QueueStats{}, PauseStatus: model.WorkersResumed}))
	assert.Contains(t, buf.String(), "unknown (no redis)")
}

func TestWriteMigrationStatus(t *testing.T) {
	applied := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	var buf bytes.Buffer
	require.NoError(t, writeMigrationStatus(&buf, []migrate.Migration{
		{Version: "001", File: "001_ce_queue.sql", AppliedAt: &applied},
		{Version: "002", File: "002_ce_activity.sql"},
	}))
	out := buf.String()
	assert.Contains(t, out, "2024-01-02 03:04:05")
	assert.Contains(t, out, "pending")
}

func TestHasRedisConfig(t *testing.T) {
	assert.False(t, hasRedisConfig(nil))
	assert.True(t, hasRedisConfig(&config.RedisConfig{URI: "localhost:6379"}))
	assert.False(t, hasRedisConfig(&config.RedisConfig{UseSentinel: true}))
	assert.True(t, hasRedisConfig(&config.RedisConfig{UseCluster: true, ClusterNodes: []string{"a:7000"}}))
}
