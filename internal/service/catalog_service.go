package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/Tryboy869/gitradar/internal/common"
	"github.com/Tryboy869/gitradar/internal/domain"
	"github.com/Tryboy869/gitradar/internal/logger"
	"github.com/Tryboy869/gitradar/internal/port"
)

// CategoryCount 分类及其仓库数量
type CategoryCount struct {
	Category domain.Category `json:"category"`
	Count    int64           `json:"count"`
}

// CatalogService 只读查询: 搜索、详情、分类和推荐
type CatalogService struct {
	store port.RepositoryStore
	users port.UserStore
	cache port.SearchCache // 可以为 nil
	log   logger.Logger
}

// NewCatalogService 创建查询服务
func NewCatalogService(store port.RepositoryStore, users port.UserStore, cache port.SearchCache, log logger.Logger) *CatalogService {
	if log == nil {
		log = logger.NewNop()
	}
	return &CatalogService{
		store: store,
		users: users,
		cache: cache,
		log:   log.With(logger.String("component", "catalog")),
	}
}

// Search 先查缓存, 未命中再查库并回填; 缓存故障不影响查询
func (c *CatalogService) Search(ctx context.Context, q port.RepositoryQuery) ([]*domain.RepositoryRecord, error) {
	if err := validateQuery(q); err != nil {
		return nil, err
	}
	q.Limit = q.EffectiveLimit()
	key := cacheKey(q)

	if c.cache != nil {
		data, hit, err := c.cache.Get(ctx, key)
		if err != nil {
			c.log.Warn("读取查询缓存失败", logger.Error(err))
		} else if hit {
			var cached []*domain.RepositoryRecord
			if err := json.Unmarshal(data, &cached); err == nil {
				return cached, nil
			}
			c.log.Warn("缓存内容无法解析, 回源查询", logger.String("key", key))
		}
	}

	records, err := c.store.Query(ctx, q)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if data, err := json.Marshal(records); err == nil {
			if err := c.cache.Set(ctx, key, data); err != nil {
				c.log.Warn("写入查询缓存失败", logger.Error(err))
			}
		}
	}
	return records, nil
}

// Get 按 GitHub ID 查询单个仓库
func (c *CatalogService) Get(ctx context.Context, externalID int64) (*domain.RepositoryRecord, error) {
	record, err := c.store.FindByExternalID(ctx, externalID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, common.NewError(common.ErrCodeNotFound, fmt.Sprintf("仓库 %d 不存在", externalID))
	}
	return record, nil
}

// Categories 按固定顺序返回全部分类, 没有仓库的分类数量为 0
func (c *CatalogService) Categories(ctx context.Context) ([]CategoryCount, error) {
	counts, err := c.store.CategoryCounts(ctx)
	if err != nil {
		return nil, err
	}

	all := domain.Categories()
	result := make([]CategoryCount, 0, len(all))
	for _, cat := range all {
		result = append(result, CategoryCount{Category: cat, Count: counts[cat]})
	}
	return result, nil
}

// Recommend 按用户偏好推荐; 偏好为空或没有匹配时退回全站评分最高的仓库
func (c *CatalogService) Recommend(ctx context.Context, userID string, limit int) ([]*domain.RepositoryRecord, error) {
	raw, err := c.users.ReadPreferences(ctx, userID)
	if err != nil {
		return nil, err
	}
	prefs := decodePreferences(raw)

	q := port.RepositoryQuery{
		Languages:  prefs.Languages,
		Categories: prefs.Categories,
		MinStars:   prefs.MinStars,
		Sort:       port.SortByScore,
		Limit:      limit,
	}
	q.Limit = q.EffectiveLimit()

	records, err := c.store.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(records) > 0 || prefsEmpty(prefs) {
		return records, nil
	}

	c.log.Debug("偏好没有匹配的仓库, 使用全站排行", logger.String("user_id", userID))
	return c.store.Query(ctx, port.RepositoryQuery{Sort: port.SortByScore, Limit: q.Limit})
}

// decodePreferences 无法解析的偏好按空偏好处理
func decodePreferences(raw []byte) domain.UserPreferences {
	var prefs domain.UserPreferences
	if len(raw) == 0 {
		return prefs
	}
	if err := json.Unmarshal(raw, &prefs); err != nil {
		return domain.UserPreferences{}
	}
	return prefs
}

func prefsEmpty(p domain.UserPreferences) bool {
	return len(p.Languages) == 0 && len(p.Categories) == 0 && p.MinStars == 0
}

func validateQuery(q port.RepositoryQuery) error {
	if q.Category != "" && !q.Category.IsValid() {
		return common.NewError(common.ErrCodeInvalidInput, fmt.Sprintf("未知分类: %s", q.Category))
	}
	for _, cat := range q.Categories {
		if !cat.IsValid() {
			return common.NewError(common.ErrCodeInvalidInput, fmt.Sprintf("未知分类: %s", cat))
		}
	}
	switch q.Sort {
	case "", port.SortByScore, port.SortByStars, port.SortByRecent:
	default:
		return common.NewError(common.ErrCodeInvalidInput, fmt.Sprintf("未知排序方式: %s", q.Sort))
	}
	if q.MinStars < 0 {
		return common.NewError(common.ErrCodeInvalidInput, "min_stars 不能为负数")
	}
	return nil
}

// cacheKey 规范化后的查询串, 相同语义的查询得到相同的 key
func cacheKey(q port.RepositoryQuery) string {
	sortKey := q.Sort
	if sortKey == "" {
		sortKey = port.SortByScore
	}

	languages := append([]string(nil), q.Languages...)
	sort.Strings(languages)
	categories := make([]string, 0, len(q.Categories))
	for _, cat := range q.Categories {
		categories = append(categories, string(cat))
	}
	sort.Strings(categories)

	return fmt.Sprintf("lang=%s|langs=%s|cat=%s|cats=%s|stars=%d|q=%s|prod=%t|sort=%s|limit=%d",
		strings.ToLower(q.Language),
		strings.Join(languages, ","),
		q.Category,
		strings.Join(categories, ","),
		q.MinStars,
		strings.ToLower(strings.TrimSpace(q.Text)),
		q.ProductionReady,
		sortKey,
		q.EffectiveLimit(),
	)
}
