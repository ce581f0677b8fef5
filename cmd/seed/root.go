package main

import (
	"fmt"
	"os"

	"github.com/affiliate-next/internal/config"
	"github.com/affiliate-next/internal/logger"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "seed",
	Short: "佣金引擎演示数据与运维工具",
	Long: `seed 用于在本地环境中初始化演示推广用户、回放演示交易，
以及签发管理端接口使用的 JWT。

Examples:
  seed demo --affiliates 3
  seed token --operator ops`,
	SilenceUsage: true,
}

// Execute 执行命令行
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "配置文件路径（为空时仅使用默认值与环境变量）")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "输出 debug 日志")

	rootCmd.AddCommand(demoCmd)
	rootCmd.AddCommand(tokenCmd)
}

func loadConfig() *config.Config {
	cfg, err := config.LoadFile(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	mode := "release"
	if verbose {
		mode = "debug"
	}
	logger.Init(mode, cfg.Log.ToLoggerOptions())
	return cfg
}
