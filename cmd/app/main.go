package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Tryboy869/gitradar/internal/config"
	"github.com/Tryboy869/gitradar/internal/logger"
)

var (
	cfgFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "gitradar",
	Short: "扫描 GitHub 热门仓库, 打分入库并提供查询接口",
	Long: `gitradar 周期性地按语言扫描 GitHub 上的热门仓库, 读取 README 做启发式分析
(分类、技术栈、实用度评分、复杂度、是否可用于生产), 结果写入 Postgres,
并通过 HTTP 接口提供搜索、分类和个性化推荐。`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML 配置文件路径 (也可用 GITRADAR_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "覆盖配置中的日志级别: debug|info|warn|error")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "❌", err)
		os.Exit(1)
	}
}

// setup 加载配置并初始化日志, 所有子命令共用
func setup() (*config.Config, logger.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("加载配置失败: %w", err)
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	log, err := logger.New(cfg.LogLevel, cfg.PrettyLog)
	if err != nil {
		return nil, nil, fmt.Errorf("初始化日志失败: %w", err)
	}
	return cfg, log, nil
}
