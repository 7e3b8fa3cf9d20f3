package core_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/target/mmk-ce-queue/internal/core"
	"github.com/target/mmk-ce-queue/internal/domain/model"
	"github.com/target/mmk-ce-queue/internal/mocks"
)

func encode(t *testing.T, c *model.Component) []byte {
	t.Helper()
	raw, err := json.Marshal(c)
	require.NoError(t, err)
	return raw
}

func TestNewCachedCatalog_RequiresRepository(t *testing.T) {
	_, err := core.NewCachedCatalog(core.CachedCatalogOptions{})
	require.Error(t, err)
}

func TestCachedCatalog_Resolve(t *testing.T) {
	t.Parallel()

	project := &model.Component{ID: "p1", ProjectID: "p1", Key: "org:proj", Name: "Project"}
	branch := &model.Component{ID: "c1", ProjectID: "p1", Key: "org:proj:feature", Name: "feature"}

	tests := []struct {
		name    string
		ids     []string
		setup   func(*mocks.MockCacheRepository, *mocks.MockComponentRepository)
		want    map[string]*model.Component
		wantErr bool
	}{
		{
			name:  "no ids",
			ids:   nil,
			setup: func(*mocks.MockCacheRepository, *mocks.MockComponentRepository) {},
			want:  map[string]*model.Component{},
		},
		{
			name: "all cached",
			ids:  []string{"p1", "c1", "p1"},
			setup: func(cache *mocks.MockCacheRepository, _ *mocks.MockComponentRepository) {
				cache.EXPECT().Get(gomock.Any(), "ce:component:p1").Return(encode(t, project), nil)
				cache.EXPECT().Get(gomock.Any(), "ce:component:c1").Return(encode(t, branch), nil)
			},
			want: map[string]*model.Component{"p1": project, "c1": branch},
		},
		{
			name: "miss loads and stores",
			ids:  []string{"p1", "c1"},
			setup: func(cache *mocks.MockCacheRepository, repo *mocks.MockComponentRepository) {
				cache.EXPECT().Get(gomock.Any(), "ce:component:p1").Return(encode(t, project), nil)
				cache.EXPECT().Get(gomock.Any(), "ce:component:c1").Return(nil, nil)
				repo.EXPECT().GetByIDs(gomock.Any(), []string{"c1"}).
					Return(map[string]*model.Component{"c1": branch}, nil)
				cache.EXPECT().Set(gomock.Any(), "ce:component:c1", encode(t, branch), 10*time.Minute).Return(nil)
			},
			want: map[string]*model.Component{"p1": project, "c1": branch},
		},
		{
			name: "cache errors fall back to repository",
			ids:  []string{"c1"},
			setup: func(cache *mocks.MockCacheRepository, repo *mocks.MockComponentRepository) {
				cache.EXPECT().Get(gomock.Any(), "ce:component:c1").Return(nil, errors.New("redis down"))
				repo.EXPECT().GetByIDs(gomock.Any(), []string{"c1"}).
					Return(map[string]*model.Component{"c1": branch}, nil)
				cache.EXPECT().Set(gomock.Any(), "ce:component:c1", gomock.Any(), gomock.Any()).Return(errors.New("redis down"))
			},
			want: map[string]*model.Component{"c1": branch},
		},
		{
			name: "unknown ids are omitted",
			ids:  []string{"gone"},
			setup: func(cache *mocks.MockCacheRepository, repo *mocks.MockComponentRepository) {
				cache.EXPECT().Get(gomock.Any(), "ce:component:gone").Return(nil, nil)
				repo.EXPECT().GetByIDs(gomock.Any(), []string{"gone"}).Return(map[string]*model.Component{}, nil)
			},
			want: map[string]*model.Component{},
		},
		{
			name: "repository error",
			ids:  []string{"c1"},
			setup: func(cache *mocks.MockCacheRepository, repo *mocks.MockComponentRepository) {
				cache.EXPECT().Get(gomock.Any(), "ce:component:c1").Return(nil, nil)
				repo.EXPECT().GetByIDs(gomock.Any(), []string{"c1"}).Return(nil, errors.New("db down"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			cache := mocks.NewMockCacheRepository(ctrl)
			repo := mocks.NewMockComponentRepository(ctrl)
			tt.setup(cache, repo)

			catalog, err := core.NewCachedCatalog(core.CachedCatalogOptions{
				Cache:      cache,
				Components: repo,
				Config:     core.DefaultCatalogCacheConfig(),
			})
			require.NoError(t, err)

			got, err := catalog.Resolve(context.Background(), tt.ids...)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCachedCatalog_WithoutCache(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockComponentRepository(ctrl)
	repo.EXPECT().GetByIDs(gomock.Any(), []string{"c1"}).
		Return(map[string]*model.Component{"c1": {ID: "c1", Name: "main"}}, nil)

	catalog, err := core.NewCachedCatalog(core.CachedCatalogOptions{Components: repo})
	require.NoError(t, err)

	got, err := catalog.Resolve(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "main", got["c1"].Name)
	require.NoError(t, catalog.Invalidate(context.Background(), "c1"))
}

func TestCachedCatalog_Invalidate(t *testing.T) {
	ctrl := gomock.NewController(t)
	cache := mocks.NewMockCacheRepository(ctrl)
	cache.EXPECT().Delete(gomock.Any(), "ce:component:c1").Return(true, nil)

	catalog, err := core.NewCachedCatalog(core.CachedCatalogOptions{
		Cache:      cache,
		Components: mocks.NewMockComponentRepository(ctrl),
	})
	require.NoError(t, err)
	require.NoError(t, catalog.Invalidate(context.Background(), "c1"))
}
