package main

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/Tryboy869/gitradar/internal/adapter/analyzer"
	"github.com/Tryboy869/gitradar/internal/adapter/cache"
	"github.com/Tryboy869/gitradar/internal/adapter/github"
	"github.com/Tryboy869/gitradar/internal/adapter/repository"
	"github.com/Tryboy869/gitradar/internal/adapter/users"
	"github.com/Tryboy869/gitradar/internal/config"
	"github.com/Tryboy869/gitradar/internal/logger"
	"github.com/Tryboy869/gitradar/internal/port"
	"github.com/Tryboy869/gitradar/internal/service"
)

// components 子命令需要的全部组件, 按需初始化
type components struct {
	repos   *repository.PostgresRepo
	users   *users.PgStore // 只有 serve 需要
	redis   *redis.Client  // 未配置 REDIS_URL 时为 nil
	cache   *cache.RedisCache
	catalog *service.CatalogService
	scan    *service.ScanService
}

func newComponents(ctx context.Context, cfg *config.Config, log logger.Logger, withUsers bool) (*components, error) {
	if cfg.Database.ReposDSN == "" {
		return nil, errors.New("未配置 REPOS_DATABASE_URL")
	}

	c := &components{}
	ok := false
	defer func() {
		if !ok {
			c.Close()
		}
	}()

	repos, err := repository.NewPostgresRepo(cfg.Database.ReposDSN)
	if err != nil {
		return nil, err
	}
	c.repos = repos

	if withUsers {
		dsn := cfg.Database.UsersDSN
		if dsn == "" {
			log.Warn("未配置 USERS_DATABASE_URL, 用户表与仓库表共用一个库")
			dsn = cfg.Database.ReposDSN
		}
		if c.users, err = users.NewPgStore(ctx, dsn); err != nil {
			return nil, err
		}
	}

	// 缓存是可选的, 连不上只告警
	var searchCache port.SearchCache
	if cfg.Cache.RedisURL != "" {
		client, err := cache.NewRedisClient(ctx, cfg.Cache.RedisURL)
		if err != nil {
			log.Warn("redis 不可用, 查询缓存已关闭", logger.Error(err))
		} else {
			c.redis = client
			c.cache = cache.NewRedisCache(client, cfg.Cache.TTL)
			searchCache = c.cache
		}
	}

	source, err := github.NewSource(sourceOptions(cfg), log)
	if err != nil {
		return nil, err
	}

	var userStore port.UserStore
	if c.users != nil {
		userStore = c.users
	}
	c.catalog = service.NewCatalogService(repos, userStore, searchCache, log)
	c.scan = service.NewScanService(source, analyzer.NewRepoAnalyzer(), repos, searchCache, scanConfig(cfg), log)

	ok = true
	return c, nil
}

// Close 可以重复调用, 也可以在部分初始化失败后调用
func (c *components) Close() {
	if c.users != nil {
		c.users.Close()
	}
	if c.redis != nil {
		_ = c.redis.Close()
	}
	if c.repos != nil {
		_ = c.repos.Close()
	}
}

func sourceOptions(cfg *config.Config) github.Options {
	return github.Options{
		Token:             cfg.GitHub.Token,
		AppID:             cfg.GitHub.AppID,
		InstallationID:    cfg.GitHub.InstallationID,
		PrivateKeyPath:    cfg.GitHub.PrivateKeyPath,
		RequestTimeout:    cfg.GitHub.RequestTimeout,
		RequestsPerSecond: cfg.GitHub.RequestsPerSecond,
	}
}

func scanConfig(cfg *config.Config) service.ScanConfig {
	return service.ScanConfig{
		Languages:       cfg.Scan.Languages,
		MinStars:        cfg.Scan.MinStars,
		BatchSize:       cfg.Scan.BatchSize,
		MinReadmeLength: cfg.Scan.MinReadmeLength,
		FreshnessWindow: cfg.Scan.FreshnessWindow,
		ItemDelay:       cfg.Scan.ItemDelay,
		LanguageDelay:   cfg.Scan.LanguageDelay,
		RequestTimeout:  cfg.GitHub.RequestTimeout,
		Version:         cfg.Scan.Version,
	}
}
