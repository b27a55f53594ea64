package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Tryboy869/gitradar/internal/common"
	"github.com/Tryboy869/gitradar/internal/domain"
	"github.com/Tryboy869/gitradar/internal/port"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// upsert 冲突时覆盖的列, 不包括 id / external_id / created_at
var mutableColumns = []string{
	"full_name", "name", "owner", "description", "language", "stars", "forks",
	"github_created_at", "github_updated_at", "homepage", "html_url", "readme",
	"has_docs_folder", "analysis", "category", "utility_score", "production_ready",
	"last_scanned_at", "scan_version", "updated_at",
}

// PostgresRepo 实现了 port.RepositoryStore 接口
type PostgresRepo struct {
	db *gorm.DB
}

var _ port.RepositoryStore = (*PostgresRepo)(nil)

// NewPostgresRepo 初始化数据库连接并自动迁移表结构
func NewPostgresRepo(dsn string) (*PostgresRepo, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, common.WrapError(common.ErrCodeDatabase, "连接仓库库失败", err)
	}

	if err := db.AutoMigrate(&domain.RepositoryRecord{}); err != nil {
		return nil, common.WrapError(common.ErrCodeDatabase, "数据库迁移失败", err)
	}

	return &PostgresRepo{db: db}, nil
}

// FindByExternalID 不存在时返回 nil, nil
func (r *PostgresRepo) FindByExternalID(ctx context.Context, externalID int64) (*domain.RepositoryRecord, error) {
	var record domain.RepositoryRecord
	err := r.db.WithContext(ctx).Where("external_id = ?", externalID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, common.WrapError(common.ErrCodeDatabase, fmt.Sprintf("查询仓库 %d 失败", externalID), err)
	}
	return &record, nil
}

// Upsert INSERT ... ON CONFLICT (external_id) DO UPDATE, 同一仓库永远只有一行
func (r *PostgresRepo) Upsert(ctx context.Context, record *domain.RepositoryRecord) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_id"}},
		DoUpdates: clause.AssignmentColumns(mutableColumns),
	}).Create(record).Error
	if err != nil {
		return common.WrapError(common.ErrCodeDatabase, "保存仓库失败: "+record.FullName, err)
	}
	return nil
}

// Query 按条件过滤, 不返回 README 正文
func (r *PostgresRepo) Query(ctx context.Context, q port.RepositoryQuery) ([]*domain.RepositoryRecord, error) {
	tx := r.db.WithContext(ctx).Model(&domain.RepositoryRecord{}).Omit("readme")

	if q.Language != "" {
		tx = tx.Where("LOWER(language) = LOWER(?)", q.Language)
	}
	if len(q.Languages) > 0 {
		tx = tx.Where("LOWER(language) IN ?", lowerAll(q.Languages))
	}
	if q.Category != "" {
		tx = tx.Where("category = ?", q.Category)
	}
	if len(q.Categories) > 0 {
		tx = tx.Where("category IN ?", q.Categories)
	}
	if q.MinStars > 0 {
		tx = tx.Where("stars >= ?", q.MinStars)
	}
	if q.ProductionReady {
		tx = tx.Where("production_ready = ?", true)
	}
	if text := strings.TrimSpace(q.Text); text != "" {
		like := "%" + escapeLike(text) + "%"
		tx = tx.Where("name ILIKE ? OR full_name ILIKE ? OR description ILIKE ?", like, like, like)
	}

	var records []*domain.RepositoryRecord
	err := tx.Order(orderBy(q.Sort)).Order("id").Limit(q.EffectiveLimit()).Find(&records).Error
	if err != nil {
		return nil, common.WrapError(common.ErrCodeDatabase, "查询仓库列表失败", err)
	}
	return records, nil
}

// Count 仓库总数
func (r *PostgresRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.RepositoryRecord{}).Count(&count).Error; err != nil {
		return 0, common.WrapError(common.ErrCodeDatabase, "统计仓库数量失败", err)
	}
	return count, nil
}

// CategoryCounts 每个分类下的仓库数量, 没有仓库的分类不出现
func (r *PostgresRepo) CategoryCounts(ctx context.Context) (map[domain.Category]int64, error) {
	var rows []struct {
		Category domain.Category
		Total    int64
	}
	err := r.db.WithContext(ctx).Model(&domain.RepositoryRecord{}).
		Select("category, COUNT(*) AS total").
		Group("category").
		Scan(&rows).Error
	if err != nil {
		return nil, common.WrapError(common.ErrCodeDatabase, "统计分类失败", err)
	}

	counts := make(map[domain.Category]int64, len(rows))
	for _, row := range rows {
		counts[row.Category] = row.Total
	}
	return counts, nil
}

// Ping 就绪检查用
func (r *PostgresRepo) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close 关闭底层连接池
func (r *PostgresRepo) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func orderBy(sort port.SortKey) string {
	switch sort {
	case port.SortByStars:
		return "stars DESC"
	case port.SortByRecent:
		return "github_updated_at DESC"
	default:
		return "utility_score DESC"
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// lowerAll 语言过滤不区分大小写
func lowerAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, strings.ToLower(strings.TrimSpace(v)))
	}
	return out
}

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
