package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"azpoc/backendapi/pkg/config"
	"azpoc/backendapi/pkg/logger"
)

// newRootCmd 根命令，不带子命令时等同于 serve
func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "backendapi",
		Short: "Queue worker with a health and metrics HTTP API",
		Long: `Queue worker with a health and metrics HTTP API.

Configuration is read from an optional YAML file and from ENV
(SLEEP_DURATION_SEC, NAMESPACE_CONNECTION_STRING, QUEUE_NAME, ...).`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "配置文件路径（可选）")

	rootCmd.AddCommand(
		newServeCmd(&configPath),
		newSendCmd(&configPath),
	)

	return rootCmd
}

// loadConfig 加载并校验配置，任何错误都会中止启动
func loadConfig(configPath string) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func newLogger(cfg *config.Config) (logger.Logger, error) {
	log, err := logger.NewZapLogger(cfg.App.LogLevel, cfg.IsDevelopment())
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return log, nil
}
