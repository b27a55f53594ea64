package filter

import (
	"strings"
	"testing"
	"time"

	"github.com/Tryboy869/gitradar/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestNeedsScan(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		existing *domain.RepositoryRecord
		expected bool
	}{
		{name: "从未扫描", existing: nil, expected: true},
		{name: "13 小时前扫描过", existing: &domain.RepositoryRecord{LastScannedAt: now.Add(-13 * time.Hour)}, expected: true},
		{name: "1 小时前扫描过", existing: &domain.RepositoryRecord{LastScannedAt: now.Add(-1 * time.Hour)}, expected: false},
		{name: "正好 12 小时", existing: &domain.RepositoryRecord{LastScannedAt: now.Add(-12 * time.Hour)}, expected: false},
		{name: "扫描时间为零值", existing: &domain.RepositoryRecord{}, expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NeedsScan(tt.existing, 12*time.Hour, now))
		})
	}
}

func TestUsableReadme(t *testing.T) {
	assert.False(t, UsableReadme("", 100))
	assert.False(t, UsableReadme(strings.Repeat("a", 50), 100))
	assert.False(t, UsableReadme(strings.Repeat(" ", 200), 100))
	assert.True(t, UsableReadme(strings.Repeat("a", 100), 100))
}

func TestHasDocsFolder(t *testing.T) {
	tests := []struct {
		name     string
		readme   string
		expected bool
	}{
		{name: "相对链接", readme: "see [guide](docs/guide.md)", expected: true},
		{name: "绝对链接", readme: "https://example.com/docs", expected: true},
		{name: "文档字样", readme: "Full Documentation is online", expected: true},
		{name: "没有文档", readme: "just a readme", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, HasDocsFolder(tt.readme))
		})
	}
}
