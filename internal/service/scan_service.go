package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Tryboy869/gitradar/internal/adapter/filter"
	"github.com/Tryboy869/gitradar/internal/common"
	"github.com/Tryboy869/gitradar/internal/domain"
	"github.com/Tryboy869/gitradar/internal/logger"
	"github.com/Tryboy869/gitradar/internal/port"
)

// ScanConfig 扫描参数, 由 config.ScanConfig 转换而来
type ScanConfig struct {
	Languages       []string
	MinStars        int
	BatchSize       int
	MinReadmeLength int
	FreshnessWindow time.Duration
	ItemDelay       time.Duration
	LanguageDelay   time.Duration
	RequestTimeout  time.Duration
	Version         string
}

// ScanService 扫描编排: 搜索 -> 新鲜度判断 -> README -> 分析 -> 入库
type ScanService struct {
	source   port.RepositorySource
	analyzer port.Analyzer
	store    port.RepositoryStore
	cache    port.SearchCache // 可以为 nil
	cfg      ScanConfig
	log      logger.Logger
	nowFunc  func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error

	inProgress atomic.Bool

	mu     sync.Mutex
	status domain.ScanStatus
}

// NewScanService 创建新的扫描服务
func NewScanService(
	source port.RepositorySource,
	analyzer port.Analyzer,
	store port.RepositoryStore,
	cache port.SearchCache,
	cfg ScanConfig,
	log logger.Logger,
) *ScanService {
	if log == nil {
		log = logger.NewNop()
	}
	if cfg.FreshnessWindow <= 0 {
		cfg.FreshnessWindow = filter.DefaultFreshnessWindow
	}
	if cfg.MinReadmeLength <= 0 {
		cfg.MinReadmeLength = filter.DefaultMinReadmeLength
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	return &ScanService{
		source:   source,
		analyzer: analyzer,
		store:    store,
		cache:    cache,
		cfg:      cfg,
		log:      log.With(logger.String("component", "scan")),
		nowFunc:  time.Now,
		sleep:    common.Sleep,
	}
}

// ScanLanguage 扫描一种语言的一页搜索结果, 返回成功入库的数量。
// 单个仓库失败只记录日志, 搜索失败直接返回。
func (s *ScanService) ScanLanguage(ctx context.Context, language string) (int, error) {
	log := s.log.With(logger.String("language", language))

	snapshots, err := s.source.Search(ctx, port.SearchQuery{
		Language:        language,
		MinStars:        s.cfg.MinStars,
		ExcludeArchived: true,
		SortByStars:     true,
		PageSize:        s.cfg.BatchSize,
	})
	if err != nil {
		return 0, fmt.Errorf("搜索 %s 仓库失败: %w", language, err)
	}
	log.Info("搜索完成", logger.Int("candidates", len(snapshots)))

	processed := 0
	for _, snap := range snapshots {
		if err := ctx.Err(); err != nil {
			return processed, err
		}

		fetched, ok := s.scanRepository(ctx, log, snap)
		if ok {
			processed++
		}
		// 只有真正请求过 GitHub 的仓库才需要节流
		if fetched {
			if err := s.sleep(ctx, s.cfg.ItemDelay); err != nil {
				return processed, err
			}
		}
	}

	log.Info("语言扫描完成", logger.Int("processed", processed))
	return processed, nil
}

// scanRepository 处理单个仓库; fetched 表示是否请求了 README, ok 表示是否入库成功
func (s *ScanService) scanRepository(ctx context.Context, log logger.Logger, snap domain.RepositorySnapshot) (fetched, ok bool) {
	log = log.With(logger.String("repo", snap.FullName), logger.Int64("external_id", snap.ExternalID))

	existing, err := s.store.FindByExternalID(ctx, snap.ExternalID)
	if err != nil {
		log.Warn("查询已有记录失败, 跳过", logger.Error(err))
		return false, false
	}
	if !filter.NeedsScan(existing, s.cfg.FreshnessWindow, s.nowFunc()) {
		log.Debug("最近已扫描, 跳过")
		return false, false
	}

	readme := snap.Readme
	fetched = readme == ""
	if fetched {
		reqCtx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
		readme, err = s.source.FetchReadme(reqCtx, snap.FullName)
		cancel()
		if err != nil {
			log.Warn("获取 README 失败, 跳过", logger.Error(err))
			return fetched, false
		}
	}
	if !filter.UsableReadme(readme, s.cfg.MinReadmeLength) {
		log.Debug("README 太短, 跳过", logger.Int("length", len(readme)))
		return fetched, false
	}

	now := s.nowFunc()
	analysis := s.analyzer.Analyze(snap, readme, now)
	record := domain.NewRecord(snap, readme, analysis, filter.HasDocsFolder(readme), now, s.cfg.Version)

	if err := s.store.Upsert(ctx, record); err != nil {
		log.Error("保存仓库失败, 跳过", logger.Error(err))
		return fetched, false
	}

	log.Debug("仓库已入库",
		logger.String("category", string(analysis.Category)),
		logger.Float64("utility_score", analysis.UtilityScore))
	return fetched, true
}

// PerformFullScan 依次扫描所有语言。已有扫描在进行时直接返回 nil, 不排队。
func (s *ScanService) PerformFullScan(ctx context.Context) (err error) {
	if !s.inProgress.CompareAndSwap(false, true) {
		s.log.Info("已有扫描在进行中, 忽略本次触发")
		return nil
	}

	started := s.nowFunc()
	s.mu.Lock()
	s.status.LastStartedAt = started
	s.mu.Unlock()
	s.log.Info("开始全量扫描", logger.Strings("languages", s.cfg.Languages))

	total := 0
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("扫描过程中发生 panic: %v", r)
			s.log.Error("全量扫描异常终止", logger.Error(err))
		}
		s.finishScan(started, total, err)
		s.inProgress.Store(false)
	}()

	for i, language := range s.cfg.Languages {
		// 语言之间的间隔, 第一种语言前不等待
		if i > 0 {
			if err := s.sleep(ctx, s.cfg.LanguageDelay); err != nil {
				return err
			}
		}

		n, scanErr := s.ScanLanguage(ctx, language)
		total += n
		if scanErr != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			s.log.Error("语言扫描失败", logger.String("language", language), logger.Error(scanErr))
		}
	}

	if s.cache != nil {
		if err := s.cache.Flush(ctx); err != nil {
			s.log.Warn("清理查询缓存失败", logger.Error(err))
		}
	}
	return nil
}

func (s *ScanService) finishScan(started time.Time, total int, err error) {
	finished := s.nowFunc()

	s.mu.Lock()
	s.status.LastFinishedAt = finished
	s.status.LastProcessed = total
	s.status.LastError = ""
	if err != nil {
		s.status.LastError = err.Error()
	}
	s.mu.Unlock()

	s.log.Info("全量扫描结束",
		logger.Int("processed", total),
		logger.Duration("elapsed", finished.Sub(started)),
		logger.Bool("failed", err != nil))
}

// InProgress 是否有扫描正在进行
func (s *ScanService) InProgress() bool {
	return s.inProgress.Load()
}

// Status 只读快照, 仓库总数查询失败时为 0
func (s *ScanService) Status(ctx context.Context) domain.ScanStatus {
	s.mu.Lock()
	status := s.status
	s.mu.Unlock()

	status.InProgress = s.inProgress.Load()
	if total, err := s.store.Count(ctx); err != nil {
		s.log.Warn("统计仓库数量失败", logger.Error(err))
	} else {
		status.TotalRepositories = total
	}
	return status
}
