package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Tryboy869/gitradar/internal/logger"

	"github.com/robfig/cron/v3"
)

// Job 全量扫描, 由 service.ScanService 实现
type Job interface {
	PerformFullScan(ctx context.Context) error
}

// Scheduler 包装 robfig/cron, 周期性触发全量扫描
type Scheduler struct {
	cron *cron.Cron
	job  Job
	spec string // 例如 "@every 12h0m0s"
	log  logger.Logger
	wg   sync.WaitGroup
}

// New interval 必须 > 0
func New(job Job, interval time.Duration, log logger.Logger) (*Scheduler, error) {
	if interval <= 0 {
		return nil, errors.New("扫描间隔必须 > 0")
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Scheduler{
		cron: cron.New(),
		job:  job,
		spec: fmt.Sprintf("@every %s", interval),
		log:  log.With(logger.String("component", "scheduler")),
	}, nil
}

// Start 注册定时任务并立即异步执行一次, 不等待其完成。
// 重叠的触发由扫描服务自己丢弃。
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.spec, func() { s.run(ctx, "cron") }); err != nil {
		return fmt.Errorf("注册定时任务失败: %w", err)
	}

	s.cron.Start()
	s.log.Info("定时扫描已启动", logger.String("spec", s.spec))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx, "startup")
	}()
	return nil
}

// Stop 停止调度并等待正在执行的任务结束
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.wg.Wait()
	s.log.Info("定时扫描已停止")
}

func (s *Scheduler) run(ctx context.Context, trigger string) {
	if ctx.Err() != nil {
		return
	}
	if err := s.job.PerformFullScan(ctx); err != nil {
		s.log.Error("定时扫描失败", logger.String("trigger", trigger), logger.Error(err))
	}
}
