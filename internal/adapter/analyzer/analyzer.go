package analyzer

import (
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/Tryboy869/gitradar/internal/domain"
)

// 评分和阈值
const (
	baseScore = 5.0
	minScore  = 0.0
	maxScore  = 10.0

	longReadmeLength  = 2000 // 超过则文档加分, 同时也是 intermediate 的门槛
	hugeReadmeLength  = 5000 // advanced 的门槛
	recentWindow      = 30 * 24 * time.Hour
	stableWindow      = 180 * 24 * time.Hour
	stableStarsFloor  = 1000
	popularStarsFloor = 5000
)

type starTier struct {
	above int
	bonus float64
}

// 只取命中的最高一档, 不叠加
var starTiers = []starTier{
	{above: 10000, bonus: 1.5},
	{above: 1000, bonus: 1.0},
	{above: 100, bonus: 0.5},
}

type sectionBonus struct {
	marker string
	bonus  float64
}

var sectionBonuses = []sectionBonus{
	{marker: "installation", bonus: 0.5},
	{marker: "usage", bonus: 0.5},
	{marker: "example", bonus: 0.5},
}

type categoryRule struct {
	category domain.Category
	pattern  *regexp.Regexp
}

func newCategoryRule(category domain.Category, keywords ...string) categoryRule {
	return categoryRule{category: category, pattern: keywordPattern(keywords)}
}

// categoryRules 是优先级列表, 第一个命中的分类胜出, 顺序不能改
var categoryRules = []categoryRule{
	newCategoryRule(domain.CategoryAuthentication, "authentication", "auth", "oauth", "oauth2", "jwt", "login", "sso", "passport"),
	newCategoryRule(domain.CategoryDatabase, "database", "orm", "sql", "postgres", "postgresql", "mysql", "mongodb", "sqlite"),
	newCategoryRule(domain.CategoryAPI, "rest api", "graphql", "openapi", "grpc", "api"),
	newCategoryRule(domain.CategoryUIComponent, "ui component", "component library", "design system", "widget", "component"),
	newCategoryRule(domain.CategoryFramework, "framework"),
	newCategoryRule(domain.CategoryTesting, "testing", "test runner", "unit test", "assertion", "mock"),
	newCategoryRule(domain.CategoryDevOps, "devops", "docker", "kubernetes", "terraform", "ci/cd", "deployment", "infrastructure"),
	newCategoryRule(domain.CategoryAIML, "machine learning", "deep learning", "neural network", "llm", "artificial intelligence", "pytorch", "tensorflow"),
	newCategoryRule(domain.CategoryDataScience, "data science", "dataframe", "pandas", "jupyter", "visualization", "analytics"),
	newCategoryRule(domain.CategoryCLITool, "command line", "command-line", "cli", "terminal"),
	newCategoryRule(domain.CategoryWebFramework, "web framework", "http server", "router", "middleware"),
	newCategoryRule(domain.CategoryMobile, "react native", "flutter", "android", "ios", "mobile"),
}

type techRule struct {
	tag     string
	pattern *regexp.Regexp
}

func newTechRule(tag string, keywords ...string) techRule {
	return techRule{tag: tag, pattern: keywordPattern(keywords)}
}

// techDictionary 按顺序匹配, 决定 TechStack 中的顺序
var techDictionary = []techRule{
	newTechRule("javascript", "javascript"),
	newTechRule("typescript", "typescript"),
	newTechRule("react", "react"),
	newTechRule("vue", "vue"),
	newTechRule("angular", "angular"),
	newTechRule("svelte", "svelte"),
	newTechRule("nextjs", "next.js", "nextjs"),
	newTechRule("nodejs", "node.js", "nodejs"),
	newTechRule("express", "express"),
	newTechRule("django", "django"),
	newTechRule("flask", "flask"),
	newTechRule("fastapi", "fastapi"),
	newTechRule("spring", "spring boot", "spring"),
	newTechRule("rails", "rails"),
	newTechRule("graphql", "graphql"),
	newTechRule("postgresql", "postgresql", "postgres"),
	newTechRule("mysql", "mysql"),
	newTechRule("mongodb", "mongodb"),
	newTechRule("redis", "redis"),
	newTechRule("docker", "docker"),
	newTechRule("kubernetes", "kubernetes", "k8s"),
	newTechRule("tensorflow", "tensorflow"),
	newTechRule("pytorch", "pytorch"),
	newTechRule("tailwind", "tailwind"),
	newTechRule("aws", "aws"),
}

// keywordPattern 关键词按整词匹配, 允许复数 s
func keywordPattern(keywords []string) *regexp.Regexp {
	quoted := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		quoted = append(quoted, regexp.QuoteMeta(kw))
	}
	return regexp.MustCompile(`\b(?:` + strings.Join(quoted, "|") + `)s?\b`)
}

var (
	// 负面信号优先, 任意命中即判定不可用于生产
	negativeIndicators = []*regexp.Regexp{
		regexp.MustCompile(`\bbeta\b`),
		regexp.MustCompile(`\balpha\b`),
		regexp.MustCompile(`\bexperimental\b`),
		regexp.MustCompile(`work[- ]in[- ]progress`),
		regexp.MustCompile(`\bwip\b`),
	}
	positiveIndicators = []*regexp.Regexp{
		regexp.MustCompile(`\bproduction\b`),
		regexp.MustCompile(`\bstable\b`),
		regexp.MustCompile(`\bv\d+\.\d+(\.\d+)?\b`),
		regexp.MustCompile(`battle[- ]tested`),
	}
)

type profile struct {
	useCase  string
	problem  string
	audience string
	bestFor  string
}

var profiles = map[domain.Category]profile{
	domain.CategoryAuthentication: {"Add sign-in and identity management to an application", "Implementing secure authentication from scratch", "backend-developers", "user-authentication"},
	domain.CategoryDatabase:       {"Store and query application data", "Boilerplate around persistence and queries", "backend-developers", "data-persistence"},
	domain.CategoryAPI:            {"Build or consume HTTP APIs", "Wiring API contracts and clients by hand", "backend-developers", "api-development"},
	domain.CategoryUIComponent:    {"Compose user interfaces from ready-made components", "Rebuilding common UI widgets", "frontend-developers", "ui-building"},
	domain.CategoryFramework:      {"Structure a full application on a shared foundation", "Assembling application architecture by hand", "full-stack-developers", "application-foundation"},
	domain.CategoryTesting:        {"Test code automatically", "Manual and brittle verification", "all-developers", "quality-assurance"},
	domain.CategoryDevOps:         {"Build, ship and operate software", "Manual deployment and infrastructure toil", "devops-engineers", "deployment-automation"},
	domain.CategoryAIML:           {"Train or run machine learning models", "Building ML pipelines from scratch", "ml-engineers", "machine-learning"},
	domain.CategoryDataScience:    {"Explore, analyze and visualize data", "Ad-hoc data wrangling", "data-scientists", "data-analysis"},
	domain.CategoryCLITool:        {"Automate work from the terminal", "Repetitive manual shell work", "power-users", "terminal-workflows"},
	domain.CategoryWebFramework:   {"Serve web applications", "Low-level HTTP plumbing", "web-developers", "web-services"},
	domain.CategoryMobile:         {"Build mobile applications", "Platform-specific mobile boilerplate", "mobile-developers", "mobile-apps"},
	domain.CategoryGeneral:        {"General-purpose developer utility", "Miscellaneous development needs", "developers", "general-use"},
}

// RepoAnalyzer 实现了 port.Analyzer 接口, 纯函数, 无状态
type RepoAnalyzer struct{}

// NewRepoAnalyzer 创建新的分析器实例
func NewRepoAnalyzer() *RepoAnalyzer {
	return &RepoAnalyzer{}
}

// Analyze 对 (快照, README) 做启发式分析; now 作为参数传入以保证可复现
func (a *RepoAnalyzer) Analyze(s domain.RepositorySnapshot, readme string, now time.Time) domain.AnalysisResult {
	lowerReadme := strings.ToLower(readme)
	text := lowerReadme + " " + strings.ToLower(s.Description)

	category := DetectCategory(text)
	complexity := DetectComplexity(readme)
	p := profiles[category]

	useCase := strings.TrimSpace(s.Description)
	if useCase == "" {
		useCase = p.useCase
	}

	return domain.AnalysisResult{
		Category:        category,
		UseCase:         useCase,
		ProblemSolved:   p.problem,
		TargetAudience:  p.audience,
		TechStack:       ExtractTechStack(s.Language, lowerReadme),
		UtilityScore:    UtilityScore(s, readme, now),
		Complexity:      complexity,
		ProductionReady: IsProductionReady(s, text, now),
		BestFor:         p.bestFor,
	}
}

// DetectCategory text 需要已经是小写
func DetectCategory(text string) domain.Category {
	for _, rule := range categoryRules {
		if rule.pattern.MatchString(text) {
			return rule.category
		}
	}
	return domain.CategoryGeneral
}

// ExtractTechStack 语言在最前, 其后按字典顺序追加, 不重复
func ExtractTechStack(language, lowerReadme string) []string {
	stack := make([]string, 0, 4)
	seen := make(map[string]bool)

	if lang := strings.ToLower(strings.TrimSpace(language)); lang != "" {
		stack = append(stack, lang)
		seen[lang] = true
	}

	for _, rule := range techDictionary {
		if seen[rule.tag] || !rule.pattern.MatchString(lowerReadme) {
			continue
		}
		stack = append(stack, rule.tag)
		seen[rule.tag] = true
	}
	return stack
}

// UtilityScore 基础分 + star 档位 + 文档 + 近期活跃, 截断到 [0,10] 并保留一位小数
func UtilityScore(s domain.RepositorySnapshot, readme string, now time.Time) float64 {
	score := baseScore

	for _, tier := range starTiers {
		if s.Stars > tier.above {
			score += tier.bonus
			break
		}
	}

	if len(readme) > longReadmeLength {
		score += 1.0
	}
	lower := strings.ToLower(readme)
	for _, sb := range sectionBonuses {
		if strings.Contains(lower, sb.marker) {
			score += sb.bonus
		}
	}

	if !s.UpdatedAt.IsZero() && now.Sub(s.UpdatedAt) <= recentWindow {
		score += 0.5
	}

	score = math.Max(minScore, math.Min(maxScore, score))
	return math.Round(score*10) / 10
}

// DetectComplexity 只看 README 长度
func DetectComplexity(readme string) domain.Complexity {
	switch n := len(readme); {
	case n > hugeReadmeLength:
		return domain.ComplexityAdvanced
	case n > longReadmeLength:
		return domain.ComplexityIntermediate
	default:
		return domain.ComplexityBeginner
	}
}

// IsProductionReady 判定顺序: 负面信号 -> 正面信号 -> 老而流行 -> 纯 star 数。
// 第三档把"很久没更新"当成"稳定"而不是"废弃", 这是有意保留的模糊规则。
// text 需要已经是小写
func IsProductionReady(s domain.RepositorySnapshot, text string, now time.Time) bool {
	for _, re := range negativeIndicators {
		if re.MatchString(text) {
			return false
		}
	}
	for _, re := range positiveIndicators {
		if re.MatchString(text) {
			return true
		}
	}
	if s.Stars > stableStarsFloor && now.Sub(s.UpdatedAt) > stableWindow {
		return true
	}
	return s.Stars > popularStarsFloor
}
