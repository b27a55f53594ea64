package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Tryboy869/gitradar/internal/auth"
	"github.com/Tryboy869/gitradar/internal/config"
	"github.com/Tryboy869/gitradar/internal/httpserver"
	"github.com/Tryboy869/gitradar/internal/httpserver/deps"
	"github.com/Tryboy869/gitradar/internal/logger"
	"github.com/Tryboy869/gitradar/internal/scheduler"
	"github.com/Tryboy869/gitradar/internal/service"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "启动 HTTP 服务和定时扫描",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if cfg.Auth.JWTSecret == "" {
		return errors.New("serve 需要配置 JWT_SECRET")
	}
	log.Info("配置已加载", logger.String("listen_addr", cfg.ListenAddr), logger.Strings("languages", cfg.Scan.Languages))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := newComponents(ctx, cfg, log, true)
	if err != nil {
		return err
	}
	defer c.Close()

	tokens, err := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return err
	}
	accounts := service.NewAccountService(c.users, tokens, log)

	sched, err := scheduler.New(c.scan, cfg.Scan.Interval, log)
	if err != nil {
		return err
	}

	srv := httpserver.New(cfg.ListenAddr, log, serverDeps(cfg, log, c, accounts))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		if err := sched.Start(gctx); err != nil {
			return err
		}
		<-gctx.Done()
		sched.Stop()
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Stop(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("服务异常退出", logger.Error(err))
		return err
	}
	log.Info("服务已停止")
	return nil
}

func serverDeps(cfg *config.Config, log logger.Logger, c *components, accounts *service.AccountService) deps.Deps {
	pingers := map[string]deps.Pinger{"repositories": c.repos}
	if c.users != nil {
		pingers["users"] = c.users
	}
	if c.cache != nil {
		pingers["cache"] = c.cache
	}

	return deps.Deps{
		Logger:    log,
		StartTime: time.Now(),
		Version:   cfg.Scan.Version,
		Catalog:   c.catalog,
		Accounts:  accounts,
		Scan:      c.scan,
		Pingers:   pingers,
		AuthLimit: 1,
		AuthBurst: 5,
	}
}
