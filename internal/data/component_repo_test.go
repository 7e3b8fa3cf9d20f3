package data

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/mmk-ce-queue/internal/domain/model"
	apperrors "github.com/target/mmk-ce-queue/internal/errors"
	"github.com/target/mmk-ce-queue/internal/testutil"
)

func TestComponentRepo_GetByIDs(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewComponentRepo(db, RepoConfig{})

		require.NoError(t, repo.Upsert(ctx, &model.Component{ID: "p1", ProjectID: "p1", Key: "org:proj", Name: "Project"}))
		require.NoError(t, repo.Upsert(ctx, &model.Component{ID: "t1", ProjectID: "p1", Key: "org:proj:mod", Name: "Module"}))
		require.NoError(t, repo.Upsert(ctx, &model.Component{ID: "t1", ProjectID: "p1", Key: "org:proj:mod", Name: "Renamed"}))

		got, err := repo.GetByIDs(ctx, []string{"p1", "t1", "missing"})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "Project", got["p1"].Name)
		assert.Equal(t, "Renamed", got["t1"].Name)

		empty, err := repo.GetByIDs(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, empty)

		err = repo.Upsert(ctx, &model.Component{ID: "p2", ProjectID: "p2", Key: "org:proj", Name: "Dup"})
		assert.True(t, apperrors.IsDuplicateKey(err))
	})
}
