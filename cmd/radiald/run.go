package main

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"RadialCore/internal/api"
	"RadialCore/internal/core"
	"RadialCore/internal/observability/metrics"
	"RadialCore/internal/observability/tracing"
	"RadialCore/internal/plugins/basicactions"
	"RadialCore/pkg/logger"
)

func newRunCommand(root *rootOptions) *cobra.Command {
	var demo bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "启动宿主并驱动帧循环",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), root, demo)
		},
	}
	cmd.Flags().BoolVar(&demo, "demo", false, "使用模拟的玩家、选中目标与周期性热键")
	return cmd
}

func run(ctx context.Context, root *rootOptions, demo bool) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Component("radiald")

	shutdownTracing, err := tracing.Setup(ctx, cfg.Tracing.ServiceName, cfg.Tracing.Endpoint)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Warn("关闭追踪失败", logger.Err(err))
		}
	}()

	collector := metrics.NewCollector()
	opts := []core.Option{core.WithBuiltins(basicactions.New()), core.WithMetrics(collector)}
	if demo {
		opts = append(opts, core.WithDefaults(simulatedServices()), core.WithKeyPoller(newScriptedPoller(cfg.Input.Key)))
	}
	host := core.New(cfg, opts...)
	if err := host.Initialize(ctx); err != nil {
		return err
	}
	defer func() {
		if err := host.Shutdown(); err != nil {
			log.Error("关闭宿主失败", logger.Err(err))
		}
	}()

	if cfg.Metrics.Address != "" {
		go func() {
			state := func() any { return host.DumpState(ctx) }
			if err := metrics.StartServer(ctx, cfg.Metrics.Address, collector, state); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("指标服务退出", logger.Err(err))
			}
		}()
		log.Info("指标服务已启动", slog.String("address", cfg.Metrics.Address))
	}

	if cfg.API.Address != "" {
		server := api.NewServer(cfg.API.Address, host, api.WithToken(cfg.API.Token))
		go func() {
			if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("控制接口退出", logger.Err(err))
			}
		}()
		log.Info("控制接口已启动", slog.String("address", cfg.API.Address), slog.Bool("auth", cfg.API.Token != ""))
	}

	ticker := time.NewTicker(cfg.Tick.Interval)
	defer ticker.Stop()
	last := time.Now()
	log.Info("radiald 已启动", slog.Duration("tick", cfg.Tick.Interval), slog.Bool("demo", demo))
	for {
		select {
		case <-ctx.Done():
			log.Info("收到退出信号，正在关闭")
			return nil
		case now := <-ticker.C:
			host.OnTick(now.Sub(last))
			last = now
		}
	}
}
