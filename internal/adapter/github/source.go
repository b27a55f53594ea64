package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Tryboy869/gitradar/internal/common"
	"github.com/Tryboy869/gitradar/internal/domain"
	"github.com/Tryboy869/gitradar/internal/logger"
	"github.com/Tryboy869/gitradar/internal/port"

	"github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/google/go-github/v53/github"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const maxPageSize = 100

// Options 构造 Source 所需的参数
type Options struct {
	// Token 为空且未配置 GitHub App 时匿名访问, 限制 60 次/小时
	Token string

	AppID          int64
	InstallationID int64
	PrivateKeyPath string

	RequestTimeout    time.Duration
	RequestsPerSecond float64

	// BaseURL 用于 GitHub Enterprise 或测试, 需要以 / 结尾
	BaseURL string
}

// Source 实现了 port.RepositorySource 接口
type Source struct {
	client        *github.Client
	limiter       *rate.Limiter
	timeout       time.Duration
	retryDelay    time.Duration
	maxRetryDelay time.Duration // 退避上限
	log           logger.Logger
}

var _ port.RepositorySource = (*Source)(nil)

// NewSource 初始化 GitHub 客户端, 优先使用 GitHub App 认证
func NewSource(opts Options, log logger.Logger) (*Source, error) {
	httpClient, err := newHTTPClient(opts)
	if err != nil {
		return nil, err
	}

	client := github.NewClient(httpClient)
	if opts.BaseURL != "" {
		u, err := url.Parse(opts.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("解析 GitHub BaseURL 失败: %w", err)
		}
		client.BaseURL = u
	}

	rps := opts.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if log == nil {
		log = logger.NewNop()
	}

	return &Source{
		client:        client,
		limiter:       rate.NewLimiter(rate.Limit(rps), 1),
		timeout:       timeout,
		retryDelay:    time.Second,
		maxRetryDelay: 10 * time.Second,
		log:           log.With(logger.String("component", "github")),
	}, nil
}

func newHTTPClient(opts Options) (*http.Client, error) {
	switch {
	case opts.AppID != 0:
		transport, err := ghinstallation.NewKeyFromFile(http.DefaultTransport, opts.AppID, opts.InstallationID, opts.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("创建 GitHub App 认证失败: %w", err)
		}
		return &http.Client{Transport: transport}, nil
	case opts.Token != "":
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token})
		return oauth2.NewClient(context.Background(), ts), nil
	default:
		return nil, nil
	}
}

// Search 只取一页结果
func (s *Source) Search(ctx context.Context, q port.SearchQuery) ([]domain.RepositorySnapshot, error) {
	query := buildQuery(q)
	opts := &github.SearchOptions{
		ListOptions: github.ListOptions{PerPage: pageSize(q.PageSize)},
	}
	if q.SortByStars {
		opts.Sort = "stars"
		opts.Order = "desc"
	}

	var result *github.RepositoriesSearchResult
	err := common.Do(ctx, func() error {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
		reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		var resp *github.Response
		var apiErr error
		result, resp, apiErr = s.client.Search.Repositories(reqCtx, query, opts)
		s.logRate(resp)
		return apiErr
	},
		common.WithMaxRetries(3),
		common.WithInitialDelay(s.retryDelay),
		common.WithMaxDelay(s.maxRetryDelay),
		common.WithRetryIf(isRetryable),
		common.WithOnRetry(func(attempt int, delay time.Duration, err error) {
			s.log.Warn("GitHub 搜索失败, 准备重试",
				logger.String("query", query), logger.Int("attempt", attempt),
				logger.Duration("delay", delay), logger.Error(err))
		}),
	)
	if err != nil {
		return nil, common.WrapError(common.ErrCodeGitHubAPI, "GitHub API 调用失败", err)
	}

	snapshots := make([]domain.RepositorySnapshot, 0, len(result.Repositories))
	for _, item := range result.Repositories {
		snapshots = append(snapshots, toSnapshot(item))
	}
	return snapshots, nil
}

// FetchReadme README 不存在(404)时返回 "", nil
func (s *Source) FetchReadme(ctx context.Context, fullName string) (string, error) {
	owner, name, ok := strings.Cut(fullName, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", common.NewError(common.ErrCodeInvalidInput, fmt.Sprintf("非法的仓库名: %q", fullName))
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return "", err
	}
	reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	content, resp, err := s.client.Repositories.GetReadme(reqCtx, owner, name, nil)
	s.logRate(resp)
	if err != nil {
		if isNotFound(err) {
			return "", nil
		}
		return "", common.WrapError(common.ErrCodeGitHubAPI, "获取 README 失败: "+fullName, err)
	}

	text, err := content.GetContent()
	if err != nil {
		return "", common.WrapError(common.ErrCodeGitHubAPI, "解码 README 失败: "+fullName, err)
	}
	return text, nil
}

func (s *Source) logRate(resp *github.Response) {
	if resp == nil || resp.Rate.Limit == 0 {
		return
	}
	if resp.Rate.Remaining < resp.Rate.Limit/10 {
		s.log.Warn("GitHub 配额即将耗尽",
			logger.Int("remaining", resp.Rate.Remaining),
			logger.Int("limit", resp.Rate.Limit),
			logger.String("reset", resp.Rate.Reset.Time.Format(time.RFC3339)))
	}
}

func buildQuery(q port.SearchQuery) string {
	lang := q.Language
	if strings.ContainsRune(lang, ' ') {
		lang = `"` + lang + `"`
	}
	query := fmt.Sprintf("language:%s stars:>=%d", lang, q.MinStars)
	if q.ExcludeArchived {
		query += " archived:false"
	}
	return query
}

func pageSize(n int) int {
	if n <= 0 || n > maxPageSize {
		return maxPageSize
	}
	return n
}

func toSnapshot(item *github.Repository) domain.RepositorySnapshot {
	return domain.RepositorySnapshot{
		ExternalID:  item.GetID(),
		FullName:    item.GetFullName(),
		Name:        item.GetName(),
		Owner:       item.GetOwner().GetLogin(),
		Language:    item.GetLanguage(),
		Description: item.GetDescription(),
		Stars:       item.GetStargazersCount(),
		Forks:       item.GetForksCount(),
		CreatedAt:   item.GetCreatedAt().Time,
		UpdatedAt:   item.GetUpdatedAt().Time,
		Homepage:    item.GetHomepage(),
		HTMLURL:     item.GetHTMLURL(),
		Topics:      item.Topics,
		Archived:    item.GetArchived(),
	}
}

// isRetryable 5xx、二级限流和网络错误重试; 4xx 和主限流直接失败
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var abuse *github.AbuseRateLimitError
	if errors.As(err, &abuse) {
		return true
	}
	var limit *github.RateLimitError
	if errors.As(err, &limit) {
		return false
	}
	var resp *github.ErrorResponse
	if errors.As(err, &resp) && resp.Response != nil {
		return resp.Response.StatusCode >= http.StatusInternalServerError
	}
	return true
}

func isNotFound(err error) bool {
	var resp *github.ErrorResponse
	return errors.As(err, &resp) && resp.Response != nil && resp.Response.StatusCode == http.StatusNotFound
}
