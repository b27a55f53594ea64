package filter

import (
	"strings"
	"time"

	"github.com/Tryboy869/gitradar/internal/domain"
)

const (
	DefaultFreshnessWindow = 12 * time.Hour
	DefaultMinReadmeLength = 100
)

// docsMarkers README 里出现这些片段时认为仓库带有独立文档
var docsMarkers = []string{"docs/", "/docs", "documentation"}

// NeedsScan 记录不存在, 或距上次扫描已超过 window 时返回 true
func NeedsScan(existing *domain.RepositoryRecord, window time.Duration, now time.Time) bool {
	if existing == nil {
		return true
	}
	return now.Sub(existing.LastScannedAt) > window
}

// UsableReadme README 太短的仓库不值得分析
func UsableReadme(readme string, minLen int) bool {
	return len(strings.TrimSpace(readme)) >= minLen
}

// HasDocsFolder 只能从 README 推断, 不额外请求目录树
func HasDocsFolder(readme string) bool {
	lower := strings.ToLower(readme)
	for _, m := range docsMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}
