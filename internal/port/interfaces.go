package port

import (
	"context"
	"time"

	"github.com/Tryboy869/gitradar/internal/domain"
)

// SearchQuery 对 GitHub Search API 的一页请求
type SearchQuery struct {
	Language        string
	MinStars        int
	ExcludeArchived bool
	SortByStars     bool
	PageSize        int
}

// RepositorySource (数据源): 负责从 GitHub 拉取仓库和 README
type RepositorySource interface {
	// Search 只返回一页, 按 star 降序
	Search(ctx context.Context, q SearchQuery) ([]domain.RepositorySnapshot, error)

	// FetchReadme README 不存在时返回 "", nil
	FetchReadme(ctx context.Context, fullName string) (string, error)
}

// Analyzer (鉴定师): 纯函数式的启发式分析, 没有 I/O
type Analyzer interface {
	Analyze(snapshot domain.RepositorySnapshot, readme string, now time.Time) domain.AnalysisResult
}

// SortKey 查询排序方式
type SortKey string

const (
	SortByScore  SortKey = "score"
	SortByStars  SortKey = "stars"
	SortByRecent SortKey = "recent"
)

// RepositoryQuery 对已入库仓库的过滤条件
type RepositoryQuery struct {
	Language        string
	Category        domain.Category
	Categories      []domain.Category
	Languages       []string
	MinStars        int
	Text            string
	ProductionReady bool
	Sort            SortKey
	Limit           int
}

const (
	DefaultQueryLimit = 20
	MaxQueryLimit     = 100
)

// EffectiveLimit 把 Limit 限制在 [1, 100], 未设置时为 20
func (q RepositoryQuery) EffectiveLimit() int {
	switch {
	case q.Limit <= 0:
		return DefaultQueryLimit
	case q.Limit > MaxQueryLimit:
		return MaxQueryLimit
	default:
		return q.Limit
	}
}

// RepositoryStore (仓库管理员): 仓库记录的存储和查询
type RepositoryStore interface {
	// FindByExternalID 不存在时返回 nil, nil
	FindByExternalID(ctx context.Context, externalID int64) (*domain.RepositoryRecord, error)

	// Upsert 以 ExternalID 为唯一键, 重复执行结果不变
	Upsert(ctx context.Context, record *domain.RepositoryRecord) error

	Query(ctx context.Context, q RepositoryQuery) ([]*domain.RepositoryRecord, error)

	Count(ctx context.Context) (int64, error)

	// CategoryCounts 每个分类下的仓库数量
	CategoryCounts(ctx context.Context) (map[domain.Category]int64, error)
}

// UserStore 用户库, 与仓库库分开
type UserStore interface {
	CreateUser(ctx context.Context, user *domain.UserAccount) error
	FindByEmail(ctx context.Context, email string) (*domain.UserAccount, error)
	ReadPreferences(ctx context.Context, userID string) ([]byte, error)
	UpdatePreferences(ctx context.Context, userID string, prefs []byte) error
}

// SearchCache 查询结果缓存, 未命中返回 nil, false, nil
type SearchCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Flush(ctx context.Context) error
}
