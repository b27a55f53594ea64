package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Category 仓库分类 (封闭枚举)
type Category string

const (
	CategoryAuthentication Category = "authentication"
	CategoryDatabase       Category = "database"
	CategoryAPI            Category = "api"
	CategoryUIComponent    Category = "ui-component"
	CategoryFramework      Category = "framework"
	CategoryTesting        Category = "testing"
	CategoryDevOps         Category = "devops"
	CategoryAIML           Category = "ai-ml"
	CategoryDataScience    Category = "data-science"
	CategoryCLITool        Category = "cli-tool"
	CategoryWebFramework   Category = "web-framework"
	CategoryMobile         Category = "mobile"
	CategoryGeneral        Category = "general"
)

// Categories 按优先级顺序列出全部分类, general 永远在最后
func Categories() []Category {
	return []Category{
		CategoryAuthentication,
		CategoryDatabase,
		CategoryAPI,
		CategoryUIComponent,
		CategoryFramework,
		CategoryTesting,
		CategoryDevOps,
		CategoryAIML,
		CategoryDataScience,
		CategoryCLITool,
		CategoryWebFramework,
		CategoryMobile,
		CategoryGeneral,
	}
}

// IsValid 判断是否属于已知分类
func (c Category) IsValid() bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

// Complexity 复杂度档位
type Complexity string

const (
	ComplexityBeginner     Complexity = "beginner"
	ComplexityIntermediate Complexity = "intermediate"
	ComplexityAdvanced     Complexity = "advanced"
)

// RepositorySnapshot 一次扫描里从 GitHub 拿到的仓库原始数据, 不直接入库
type RepositorySnapshot struct {
	ExternalID  int64
	FullName    string // 例如 "gohugoio/hugo"
	Name        string
	Owner       string
	Language    string
	Description string
	Stars       int
	Forks       int
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Homepage    string
	HTMLURL     string
	Topics      []string
	Archived    bool
	Readme      string
}

// AnalysisResult 启发式分析结果, 给定相同输入必然得到相同输出
type AnalysisResult struct {
	Category        Category   `json:"category"`
	UseCase         string     `json:"use_case"`
	ProblemSolved   string     `json:"problem_solved"`
	TargetAudience  string     `json:"target_audience"`
	TechStack       []string   `json:"tech_stack"`
	UtilityScore    float64    `json:"utility_score"` // [0, 10], 一位小数
	Complexity      Complexity `json:"complexity"`
	ProductionReady bool       `json:"production_ready"`
	BestFor         string     `json:"best_for"`
}

// RepositoryRecord 持久化的仓库记录, ExternalID 是 upsert 的自然键
type RepositoryRecord struct {
	ID              uint                                `json:"-" gorm:"primaryKey"`
	ExternalID      int64                               `json:"external_id" gorm:"uniqueIndex;not null"`
	FullName        string                              `json:"full_name" gorm:"index"`
	Name            string                              `json:"name"`
	Owner           string                              `json:"owner"`
	Description     string                              `json:"description" gorm:"type:text"`
	Language        string                              `json:"language" gorm:"index"`
	Stars           int                                 `json:"stars" gorm:"index"`
	Forks           int                                 `json:"forks"`
	GitHubCreatedAt time.Time                           `json:"github_created_at" gorm:"column:github_created_at"`
	GitHubUpdatedAt time.Time                           `json:"github_updated_at" gorm:"column:github_updated_at;index"`
	Homepage        string                              `json:"homepage"`
	HTMLURL         string                              `json:"html_url"`
	Readme          string                              `json:"-" gorm:"type:text"`
	HasDocsFolder   bool                                `json:"has_docs_folder"`
	Analysis        datatypes.JSONType[AnalysisResult] `json:"analysis" gorm:"type:jsonb"`

	// 从 Analysis 冗余出来的列, 方便 SQL 过滤和排序
	Category        Category `json:"category" gorm:"index"`
	UtilityScore    float64  `json:"utility_score" gorm:"index"`
	ProductionReady bool     `json:"production_ready"`

	LastScannedAt time.Time `json:"last_scanned_at"`
	ScanVersion   string    `json:"scan_version"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName 固定表名
func (RepositoryRecord) TableName() string {
	return "repositories"
}

// NewRecord 用快照和分析结果构造一条待 upsert 的记录
func NewRecord(s RepositorySnapshot, readme string, a AnalysisResult, hasDocs bool, scannedAt time.Time, version string) *RepositoryRecord {
	return &RepositoryRecord{
		ExternalID:      s.ExternalID,
		FullName:        s.FullName,
		Name:            s.Name,
		Owner:           s.Owner,
		Description:     s.Description,
		Language:        s.Language,
		Stars:           s.Stars,
		Forks:           s.Forks,
		GitHubCreatedAt: s.CreatedAt,
		GitHubUpdatedAt: s.UpdatedAt,
		Homepage:        s.Homepage,
		HTMLURL:         s.HTMLURL,
		Readme:          readme,
		HasDocsFolder:   hasDocs,
		Analysis:        datatypes.NewJSONType(a),
		Category:        a.Category,
		UtilityScore:    a.UtilityScore,
		ProductionReady: a.ProductionReady,
		LastScannedAt:   scannedAt,
		ScanVersion:     version,
	}
}

// UserAccount 用户账号, 扫描流水线只读 Preferences
type UserAccount struct {
	ID           string
	Email        string
	Username     string
	PasswordHash string
	Preferences  []byte // 不透明 JSON
	CreatedAt    time.Time
}

// UserPreferences 推荐时对 Preferences 的解码视图
type UserPreferences struct {
	Languages  []string   `json:"languages"`
	Categories []Category `json:"categories"`
	MinStars   int        `json:"min_stars"`
}

// ScanStatus 扫描状态, 供健康检查只读展示
type ScanStatus struct {
	InProgress        bool      `json:"in_progress"`
	LastStartedAt     time.Time `json:"last_started_at"`
	LastFinishedAt    time.Time `json:"last_finished_at"`
	LastProcessed     int       `json:"last_processed"`
	LastError         string    `json:"last_error,omitempty"`
	TotalRepositories int64     `json:"total_repositories"`
}
