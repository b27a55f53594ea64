package deps

import (
	"context"
	"time"

	"github.com/Tryboy869/gitradar/internal/domain"
	"github.com/Tryboy869/gitradar/internal/logger"
	"github.com/Tryboy869/gitradar/internal/port"
	"github.com/Tryboy869/gitradar/internal/service"
)

// Catalog 由 service.CatalogService 实现
type Catalog interface {
	Search(ctx context.Context, q port.RepositoryQuery) ([]*domain.RepositoryRecord, error)
	Get(ctx context.Context, externalID int64) (*domain.RepositoryRecord, error)
	Categories(ctx context.Context) ([]service.CategoryCount, error)
	Recommend(ctx context.Context, userID string, limit int) ([]*domain.RepositoryRecord, error)
}

// Accounts 由 service.AccountService 实现
type Accounts interface {
	Register(ctx context.Context, email, username, password string) (*service.Session, error)
	Login(ctx context.Context, email, password string) (*service.Session, error)
	Authenticate(token string) (string, error)
	Preferences(ctx context.Context, userID string) (domain.UserPreferences, error)
	UpdatePreferences(ctx context.Context, userID string, prefs domain.UserPreferences) error
}

// ScanReporter 由 service.ScanService 实现, 只读
type ScanReporter interface {
	Status(ctx context.Context) domain.ScanStatus
}

// Pinger 就绪检查的一个依赖项
type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Logger      logger.Logger
	StartTime   time.Time
	Version     string
	TimeNow     func() time.Time // 测试用, 默认 time.Now
	Catalog     Catalog
	Accounts    Accounts
	Scan        ScanReporter
	Pingers     map[string]Pinger // 例如 "repositories", "users", "cache"
	PingTimeout time.Duration
	AuthLimit   float64 // 每个 IP 每秒允许的登录/注册次数, <=0 不限流
	AuthBurst   int
}

// Now 未设置 TimeNow 时使用 time.Now
func (d Deps) Now() time.Time {
	if d.TimeNow != nil {
		return d.TimeNow()
	}
	return time.Now()
}
