package main

import (
	"fmt"
	"os"

	"github.com/Sound58he4/studio-sub000/internal/platform/config"
	"github.com/Sound58he4/studio-sub000/internal/platform/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:          "fitlog",
	Short:        "饮食与运动日志的汇总、积分与连续打卡服务",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config.yaml 所在目录（默认 ./config 和 .）")
	rootCmd.AddCommand(serveCmd, recomputeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadEnvironment 加载配置并创建日志器，所有子命令共用
func loadEnvironment() (*config.Config, *zap.Logger, error) {
	var paths []string
	if configPath != "" {
		paths = append(paths, configPath)
	}
	cfg, err := config.LoadConfig(paths...)
	if err != nil {
		return nil, nil, fmt.Errorf("加载配置失败: %w", err)
	}
	zl, err := logger.New(cfg.Log.Env, cfg.Log.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("初始化日志失败: %w", err)
	}
	return cfg, zl, nil
}
