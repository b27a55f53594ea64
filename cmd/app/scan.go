package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Tryboy869/gitradar/internal/logger"
)

var scanLanguage string

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "执行一次扫描后退出",
	Long: `不带参数时按配置中的语言顺序执行一次全量扫描;
指定 --language 时只扫描该语言的一页搜索结果。`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringVarP(&scanLanguage, "language", "l", "", "只扫描这一种语言, 例如 Go")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, _ []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := newComponents(ctx, cfg, log, false)
	if err != nil {
		return err
	}
	defer c.Close()

	out := cmd.OutOrStdout()
	if scanLanguage != "" {
		n, err := c.scan.ScanLanguage(ctx, scanLanguage)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "✅ %s: 入库 %d 个仓库\n", scanLanguage, n)
		return nil
	}

	if err := c.scan.PerformFullScan(ctx); err != nil {
		return err
	}
	status := c.scan.Status(ctx)
	log.Info("扫描结束", logger.Int("processed", status.LastProcessed), logger.Int64("total", status.TotalRepositories))
	fmt.Fprintf(out, "✅ 本次入库 %d 个仓库, 库中共 %d 个\n", status.LastProcessed, status.TotalRepositories)
	return nil
}
