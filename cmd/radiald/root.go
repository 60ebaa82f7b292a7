package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"RadialCore/internal/config"
	"RadialCore/pkg/logger"
)

type rootOptions struct {
	configPath string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "radiald",
		Short: "环形菜单插件宿主",
		Long: `radiald 加载环形菜单插件，维护上下文快照并驱动菜单、面板与动作管线。

配置文件默认为 configs/radial.yaml，可通过 --config 或 RADIAL_CONFIG 覆盖，
RADIAL_ 前缀的环境变量优先于文件中的值。`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "配置文件路径")

	cmd.AddCommand(
		newRunCommand(opts),
		newPluginsCommand(opts),
		newValidateCommand(),
		newVersionCommand(),
	)
	return cmd
}

// loadConfig 读取配置并初始化全局日志。
func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(config.ResolvePath(o.configPath))
	if err != nil {
		return nil, err
	}
	if err := logger.Init(cfg.Log); err != nil {
		return nil, fmt.Errorf("初始化日志失败: %w", err)
	}
	return cfg, nil
}
