package data

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/mmk-ce-queue/internal/core"
	"github.com/target/mmk-ce-queue/internal/domain/model"
	apperrors "github.com/target/mmk-ce-queue/internal/errors"
	"github.com/target/mmk-ce-queue/internal/testutil"
)

func TestTaskRepo_InsertAndGet(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewTaskRepo(db, RepoConfig{})

		job := testutil.NewQueuedJob().
			WithProject("p1").
			WithTarget("t1").
			WithCharacteristic(model.CharacteristicBranch, "feature/x").
			Build()
		require.NoError(t, repo.Insert(ctx, job))

		got, err := repo.GetByID(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, model.TaskStatusPending, got.Status)
		assert.Equal(t, "p1", *got.ProjectID)
		assert.Equal(t, "t1", *got.TargetID)
		assert.Nil(t, got.WorkerID)
		assert.Nil(t, got.StartedAt)
		assert.True(t, job.CreatedAt.Equal(got.CreatedAt))
		assert.Equal(t, map[string]string{model.CharacteristicBranch: "feature/x"}, got.Characteristics)
		assert.Equal(t, model.KindBranch, got.Kind())

		err = repo.Insert(ctx, job)
		require.Error(t, err)
		assert.True(t, apperrors.IsDuplicateKey(err), "got %v", err)

		_, err = repo.GetByID(ctx, "missing")
		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestTaskRepo_ClaimIsExclusive(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewTaskRepo(db, RepoConfig{})
		job := testutil.NewQueuedJob().WithProject("p1").Build()
		require.NoError(t, repo.Insert(ctx, job))

		const workers = 8
		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			wins []string
		)
		for i := range workers {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				ok, err := repo.Claim(ctx, model.ClaimParams{ID: job.ID, WorkerID: id, Now: testutil.TestTime()})
				assert.NoError(t, err)
				if ok {
					mu.Lock()
					wins = append(wins, id)
					mu.Unlock()
				}
			}(string(rune('a' + i)))
		}
		wg.Wait()

		require.Len(t, wins, 1)
		got, err := repo.GetByID(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, model.TaskStatusInProgress, got.Status)
		assert.Equal(t, wins[0], *got.WorkerID)
		require.NotNil(t, got.StartedAt)
		assert.True(t, testutil.TestTime().Equal(*got.StartedAt))
	})
}

func TestTaskRepo_ClaimRefusesBusyComponent(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewTaskRepo(db, RepoConfig{})
		first := testutil.NewQueuedJob().WithID("a").WithProject("p1").WithTarget("t1").Build()
		second := testutil.NewQueuedJob().WithID("b").WithProject("p2").WithTarget("t1").Build()
		require.NoError(t, repo.Insert(ctx, first))
		require.NoError(t, repo.Insert(ctx, second))

		ok, err := repo.Claim(ctx, model.ClaimParams{ID: "a", WorkerID: "w1", Now: testutil.TestTime()})
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = repo.Claim(ctx, model.ClaimParams{ID: "b", WorkerID: "w2", Now: testutil.TestTime()})
		require.NoError(t, err)
		assert.False(t, ok)

		got, err := repo.GetByID(ctx, "b")
		require.NoError(t, err)
		assert.Equal(t, model.TaskStatusPending, got.Status)
	})
}

func TestTaskRepo_Delete(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewTaskRepo(db, RepoConfig{})
		job := testutil.NewQueuedJob().InProgress("w1", testutil.TestTime()).Build()
		require.NoError(t, repo.Insert(ctx, job))

		pending := model.TaskStatusPending
		err := repo.Delete(ctx, model.DeleteParams{ID: job.ID, IfStatus: &pending})
		assert.True(t, apperrors.IsNotFound(err))

		require.NoError(t, repo.Delete(ctx, model.DeleteParams{ID: job.ID}))
		err = repo.Delete(ctx, model.DeleteParams{ID: job.ID})
		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestTaskRepo_ResetStaleInProgress(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewTaskRepo(db, RepoConfig{})
		started := testutil.TestTime().Add(time.Minute)

		alive := testutil.NewQueuedJob().InProgress("alive", started).Build()
		dead := testutil.NewQueuedJob().InProgress("dead", started).Build()
		pending := testutil.NewQueuedJob().Build()
		for _, j := range []*model.QueuedJob{alive, dead, pending} {
			require.NoError(t, repo.Insert(ctx, j))
		}

		now := testutil.TestTime().Add(time.Hour)
		n, err := repo.ResetStaleInProgress(ctx, []string{"alive"}, now)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		got, err := repo.GetByID(ctx, dead.ID)
		require.NoError(t, err)
		assert.Equal(t, model.TaskStatusPending, got.Status)
		assert.Nil(t, got.WorkerID)
		assert.True(t, now.Equal(got.UpdatedAt))
		assert.True(t, dead.CreatedAt.Equal(got.CreatedAt))
		require.NotNil(t, got.StartedAt)
		assert.True(t, started.Equal(*got.StartedAt))

		got, err = repo.GetByID(ctx, alive.ID)
		require.NoError(t, err)
		assert.Equal(t, model.TaskStatusInProgress, got.Status)

		n, err = repo.ResetStaleInProgress(ctx, nil, now)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		stats, err := repo.CountByStatus(ctx)
		require.NoError(t, err)
		assert.Equal(t, model.QueueStats{Pending: 3}, *stats)
	})
}

func TestTaskRepo_ResetStaleInProgressWaitsForConcurrentReset(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewTaskRepo(db, RepoConfig{})
		job := testutil.NewQueuedJob().InProgress("alive", testutil.TestTime()).Build()
		require.NoError(t, repo.Insert(ctx, job))

		holder, err := db.BeginTx(ctx, nil)
		require.NoError(t, err)
		_, err = holder.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1, $2)`, resetStaleLock.Major, resetStaleLock.Minor)
		require.NoError(t, err)

		type result struct {
			n   int64
			err error
		}
		done := make(chan result, 1)
		go func() {
			// An empty known set resets every in-progress task.
			n, err := repo.ResetStaleInProgress(ctx, nil, testutil.TestTime().Add(time.Hour))
			done <- result{n: n, err: err}
		}()

		select {
		case <-done:
			t.Fatal("reset finished while another reset held the lock")
		case <-time.After(200 * time.Millisecond):
		}
		require.NoError(t, holder.Commit())

		select {
		case res := <-done:
			require.NoError(t, res.err)
			assert.Equal(t, int64(1), res.n)
		case <-time.After(5 * time.Second):
			t.Fatal("reset did not run after the lock was released")
		}
		got, err := repo.GetByID(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, model.TaskStatusPending, got.Status)
	})
}

func TestTaskRepo_ResetWorkerInProgress(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewTaskRepo(db, RepoConfig{})
		mine := testutil.NewQueuedJob().InProgress("w1", testutil.TestTime()).Build()
		theirs := testutil.NewQueuedJob().InProgress("w2", testutil.TestTime()).Build()
		require.NoError(t, repo.Insert(ctx, mine))
		require.NoError(t, repo.Insert(ctx, theirs))

		n, err := repo.ResetWorkerInProgress(ctx, "w1", testutil.TestTime())
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		inProgress, err := repo.ListByStatus(ctx, model.TaskStatusInProgress)
		require.NoError(t, err)
		require.Len(t, inProgress, 1)
		assert.Equal(t, theirs.ID, inProgress[0].ID)
	})
}

func TestTaskRepo_SnapshotOrderAndFilters(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewTaskRepo(db, RepoConfig{})
		base := testutil.TestTime()

		second := testutil.NewQueuedJob().WithID("b").WithProject("p1").CreatedAt(base).Build()
		first := testutil.NewQueuedJob().WithID("a").WithProject("p1").CreatedAt(base).Build()
		other := testutil.NewQueuedJob().WithID("c").WithProject("p2").CreatedAt(base.Add(-time.Second)).Build()
		issueSync := testutil.NewQueuedJob().WithID("d").WithJobType(model.JobTypeIssueSync).CreatedAt(base.Add(time.Second)).Build()
		for _, j := range []*model.QueuedJob{second, first, other, issueSync} {
			require.NoError(t, repo.Insert(ctx, j))
		}

		all, err := repo.ListPendingAndInProgress(ctx, model.ListFilter{})
		require.NoError(t, err)
		ids := make([]string, len(all))
		for i, j := range all {
			ids[i] = j.ID
		}
		assert.Equal(t, []string{"c", "a", "b", "d"}, ids)

		p1 := "p1"
		scoped, err := repo.ListPendingAndInProgress(ctx, model.ListFilter{ProjectID: &p1})
		require.NoError(t, err)
		assert.Len(t, scoped, 2)

		has, err := repo.HasQueued(ctx, core.QueueFilter{ProjectID: &p1})
		require.NoError(t, err)
		assert.True(t, has)

		p3 := "p3"
		has, err = repo.HasQueued(ctx, core.QueueFilter{ProjectID: &p3})
		require.NoError(t, err)
		assert.False(t, has)

		inProgress := model.TaskStatusInProgress
		has, err = repo.HasQueued(ctx, core.QueueFilter{ProjectID: &p1, Status: &inProgress})
		require.NoError(t, err)
		assert.False(t, has)

		has, err = repo.HasIssueSyncPendingOrInProgress(ctx)
		require.NoError(t, err)
		assert.True(t, has)
	})
}

func TestTaskRepo_ListWornOut(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewTaskRepo(db, RepoConfig{})
		base := testutil.TestTime()

		old := testutil.NewQueuedJob().PreviouslyStarted(base).Build()
		recent := testutil.NewQueuedJob().PreviouslyStarted(base.Add(time.Hour)).Build()
		fresh := testutil.NewQueuedJob().Build()
		running := testutil.NewQueuedJob().InProgress("w1", base).Build()
		for _, j := range []*model.QueuedJob{old, recent, fresh, running} {
			require.NoError(t, repo.Insert(ctx, j))
		}

		worn, err := repo.ListWornOut(ctx, base.Add(time.Minute), 10)
		require.NoError(t, err)
		require.Len(t, worn, 1)
		assert.Equal(t, old.ID, worn[0].ID)

		_, err = repo.ListWornOut(ctx, base, 0)
		assert.Error(t, err)
	})
}

func TestTaskRepo_WaitForNotification(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewTaskRepo(db, RepoConfig{})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		done := make(chan error, 1)
		go func() { done <- repo.WaitForNotification(ctx) }()

		// Keep inserting until the listener has subscribed and seen one.
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case err := <-done:
				require.NoError(t, err)
				return
			case <-ticker.C:
				require.NoError(t, repo.Insert(context.Background(), testutil.NewQueuedJob().Build()))
			case <-ctx.Done():
				t.Fatal("no notification received")
			}
		}
	})
}
