package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/Tryboy869/gitradar/internal/common"
	"github.com/Tryboy869/gitradar/internal/domain"
	"github.com/Tryboy869/gitradar/internal/port"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCatalogService_Search_CacheMissFillsCache(t *testing.T) {
	records := []*domain.RepositoryRecord{{ExternalID: 1, FullName: "a/b"}}
	store := new(MockRepositoryStore)
	store.On("Query", mock.Anything, port.RepositoryQuery{Language: "Go", Limit: 20}).Return(records, nil)
	cache := new(MockSearchCache)
	cache.On("Get", mock.Anything, mock.Anything).Return(nil, false, nil)
	cache.On("Set", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	svc := NewCatalogService(store, new(MockUserStore), cache, nil)
	got, err := svc.Search(context.Background(), port.RepositoryQuery{Language: "Go"})

	require.NoError(t, err)
	assert.Equal(t, records, got)
	cache.AssertNumberOfCalls(t, "Set", 1)
	store.AssertExpectations(t)
}

func TestCatalogService_Search_CacheHit(t *testing.T) {
	data, err := json.Marshal([]*domain.RepositoryRecord{{ExternalID: 7, FullName: "x/y"}})
	require.NoError(t, err)
	store := new(MockRepositoryStore)
	cache := new(MockSearchCache)
	cache.On("Get", mock.Anything, mock.Anything).Return(data, true, nil)

	svc := NewCatalogService(store, new(MockUserStore), cache, nil)
	got, err := svc.Search(context.Background(), port.RepositoryQuery{Text: "y"})

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(7), got[0].ExternalID)
	store.AssertNotCalled(t, "Query", mock.Anything, mock.Anything)
}

func TestCatalogService_Search_CacheFailureFallsBack(t *testing.T) {
	store := new(MockRepositoryStore)
	store.On("Query", mock.Anything, mock.Anything).Return([]*domain.RepositoryRecord{}, nil)
	cache := new(MockSearchCache)
	cache.On("Get", mock.Anything, mock.Anything).Return(nil, false, errors.New("redis down"))
	cache.On("Set", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("redis down"))

	svc := NewCatalogService(store, new(MockUserStore), cache, nil)
	got, err := svc.Search(context.Background(), port.RepositoryQuery{})

	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCatalogService_Search_NoCache(t *testing.T) {
	store := new(MockRepositoryStore)
	store.On("Query", mock.Anything, port.RepositoryQuery{Sort: port.SortByStars, Limit: 100}).Return([]*domain.RepositoryRecord{}, nil)

	svc := NewCatalogService(store, new(MockUserStore), nil, nil)
	_, err := svc.Search(context.Background(), port.RepositoryQuery{Sort: port.SortByStars, Limit: 500})

	require.NoError(t, err)
	store.AssertExpectations(t)
}

func TestCatalogService_Search_InvalidInput(t *testing.T) {
	tests := []struct {
		name  string
		query port.RepositoryQuery
	}{
		{name: "未知分类", query: port.RepositoryQuery{Category: "blockchain"}},
		{name: "未知分类列表", query: port.RepositoryQuery{Categories: []domain.Category{domain.CategoryAPI, "nope"}}},
		{name: "未知排序", query: port.RepositoryQuery{Sort: "forks"}},
		{name: "负数 star", query: port.RepositoryQuery{MinStars: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(MockRepositoryStore)
			svc := NewCatalogService(store, new(MockUserStore), nil, nil)

			_, err := svc.Search(context.Background(), tt.query)

			assert.Equal(t, common.ErrCodeInvalidInput, common.CodeOf(err))
			store.AssertNotCalled(t, "Query", mock.Anything, mock.Anything)
		})
	}
}

func TestCatalogService_Get(t *testing.T) {
	store := new(MockRepositoryStore)
	store.On("FindByExternalID", mock.Anything, int64(1)).Return(&domain.RepositoryRecord{ExternalID: 1}, nil)
	store.On("FindByExternalID", mock.Anything, int64(2)).Return(nil, nil)
	svc := NewCatalogService(store, new(MockUserStore), nil, nil)

	record, err := svc.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), record.ExternalID)

	_, err = svc.Get(context.Background(), 2)
	assert.Equal(t, common.ErrCodeNotFound, common.CodeOf(err))
}

func TestCatalogService_Categories(t *testing.T) {
	store := new(MockRepositoryStore)
	store.On("CategoryCounts", mock.Anything).Return(map[domain.Category]int64{
		domain.CategoryDatabase: 4,
		domain.CategoryGeneral:  2,
	}, nil)
	svc := NewCatalogService(store, new(MockUserStore), nil, nil)

	got, err := svc.Categories(context.Background())

	require.NoError(t, err)
	require.Len(t, got, len(domain.Categories()))
	assert.Equal(t, CategoryCount{Category: domain.CategoryAuthentication, Count: 0}, got[0])
	assert.Equal(t, CategoryCount{Category: domain.CategoryDatabase, Count: 4}, got[1])
	assert.Equal(t, CategoryCount{Category: domain.CategoryGeneral, Count: 2}, got[len(got)-1])
}

func TestCatalogService_Recommend(t *testing.T) {
	ctx := context.Background()

	t.Run("按偏好过滤", func(t *testing.T) {
		users := new(MockUserStore)
		users.On("ReadPreferences", mock.Anything, "u-1").Return([]byte(`{"languages":["Go"],"categories":["cli-tool"],"min_stars":100}`), nil)
		store := new(MockRepositoryStore)
		store.On("Query", mock.Anything, port.RepositoryQuery{
			Languages: []string{"Go"}, Categories: []domain.Category{domain.CategoryCLITool}, MinStars: 100,
			Sort: port.SortByScore, Limit: 10,
		}).Return([]*domain.RepositoryRecord{{ExternalID: 5}}, nil)

		got, err := NewCatalogService(store, users, nil, nil).Recommend(ctx, "u-1", 10)

		require.NoError(t, err)
		require.Len(t, got, 1)
		store.AssertNumberOfCalls(t, "Query", 1)
	})

	t.Run("没有匹配时退回全站排行", func(t *testing.T) {
		users := new(MockUserStore)
		users.On("ReadPreferences", mock.Anything, "u-1").Return([]byte(`{"languages":["COBOL"]}`), nil)
		store := new(MockRepositoryStore)
		store.On("Query", mock.Anything, port.RepositoryQuery{Sort: port.SortByScore, Limit: 20}).
			Return([]*domain.RepositoryRecord{{ExternalID: 9}}, nil)
		store.On("Query", mock.Anything, mock.Anything).Return([]*domain.RepositoryRecord{}, nil)

		got, err := NewCatalogService(store, users, nil, nil).Recommend(ctx, "u-1", 0)

		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, int64(9), got[0].ExternalID)
		store.AssertNumberOfCalls(t, "Query", 2)
	})

	t.Run("偏好无法解析视为空偏好", func(t *testing.T) {
		users := new(MockUserStore)
		users.On("ReadPreferences", mock.Anything, "u-1").Return([]byte(`not json`), nil)
		store := new(MockRepositoryStore)
		store.On("Query", mock.Anything, port.RepositoryQuery{Sort: port.SortByScore, Limit: 20}).
			Return([]*domain.RepositoryRecord{}, nil)

		got, err := NewCatalogService(store, users, nil, nil).Recommend(ctx, "u-1", 0)

		require.NoError(t, err)
		assert.Empty(t, got)
		store.AssertNumberOfCalls(t, "Query", 1)
	})

	t.Run("用户不存在", func(t *testing.T) {
		users := new(MockUserStore)
		users.On("ReadPreferences", mock.Anything, "ghost").Return(nil, common.NewError(common.ErrCodeNotFound, "用户不存在"))

		_, err := NewCatalogService(new(MockRepositoryStore), users, nil, nil).Recommend(ctx, "ghost", 0)

		assert.Equal(t, common.ErrCodeNotFound, common.CodeOf(err))
	})
}

func TestCacheKey_Normalized(t *testing.T) {
	a := cacheKey(port.RepositoryQuery{Languages: []string{"Rust", "Go"}, Text: " ORM ", Limit: 0})
	b := cacheKey(port.RepositoryQuery{Languages: []string{"Go", "Rust"}, Text: "orm", Sort: port.SortByScore, Limit: 20})
	c := cacheKey(port.RepositoryQuery{Languages: []string{"Go", "Rust"}, Text: "orm", Sort: port.SortByStars})

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
