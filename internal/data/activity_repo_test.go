package data

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/mmk-ce-queue/internal/domain/model"
	"github.com/target/mmk-ce-queue/internal/testutil"
)

func newRecord(project, target *string, outcome model.Outcome, at time.Time) *model.ActivityRecord {
	job := testutil.NewQueuedJob().Build()
	job.ProjectID = project
	job.TargetID = target
	return model.NewActivityRecord(uuid.NewString(), job, outcome, at)
}

func TestBuildActivityListQuery(t *testing.T) {
	p := "p1"
	failed := model.OutcomeFailed
	query, args := buildActivityListQuery(model.ActivityListOptions{
		ProjectID: &p,
		Outcome:   &failed,
		OnlyLast:  true,
		Limit:     5000,
		Offset:    10,
	})

	assert.Contains(t, query, `FROM "ce_activity" WHERE "entity_id" = $1 AND "status" = $2 AND "is_last" = $3`)
	assert.Contains(t, query, `ORDER BY "executed_at" DESC, "id" DESC LIMIT $4 OFFSET $5`)
	assert.Equal(t, []any{"p1", "FAILED", true, maxActivityLimit, 10}, args)

	_, args = buildActivityListQuery(model.ActivityListOptions{})
	assert.Equal(t, []any{defaultActivityLimit}, args)
}

func TestActivityRepo_IsLastPerLineage(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewActivityRepo(db, RepoConfig{})
		p1, t1 := "p1", "t1"
		base := testutil.TestTime()

		first := newRecord(&p1, &t1, model.OutcomeSuccess, base)
		second := newRecord(&p1, &t1, model.OutcomeFailed, base.Add(time.Minute))
		otherTarget := newRecord(&p1, nil, model.OutcomeSuccess, base)
		noProject := newRecord(nil, nil, model.OutcomeCanceled, base)
		for _, r := range []*model.ActivityRecord{first, second, otherTarget, noProject} {
			require.NoError(t, repo.Insert(ctx, r))
		}

		got, err := repo.GetByID(ctx, first.ID)
		require.NoError(t, err)
		assert.False(t, got.IsLast)

		for _, r := range []*model.ActivityRecord{second, otherTarget, noProject} {
			got, err = repo.GetByID(ctx, r.ID)
			require.NoError(t, err)
			assert.True(t, got.IsLast, r.ID)
		}

		last, err := repo.List(ctx, model.ActivityListOptions{ProjectID: &p1, OnlyLast: true})
		require.NoError(t, err)
		assert.Len(t, last, 2)

		all, err := repo.List(ctx, model.ActivityListOptions{TargetID: &t1})
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, second.ID, all[0].ID)
	})
}

func TestActivityRepo_ConcurrentInsertsKeepOneLast(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewActivityRepo(db, RepoConfig{})
		p := "p1"

		var wg sync.WaitGroup
		for i := range 10 {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				rec := newRecord(&p, nil, model.OutcomeSuccess, testutil.TestTime().Add(time.Duration(i)*time.Second))
				assert.NoError(t, repo.Insert(ctx, rec))
			}(i)
		}
		wg.Wait()

		last, err := repo.List(ctx, model.ActivityListOptions{ProjectID: &p, OnlyLast: true})
		require.NoError(t, err)
		assert.Len(t, last, 1)
	})
}
