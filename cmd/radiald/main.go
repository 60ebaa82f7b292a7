// radiald 是环形菜单插件宿主的命令行入口。
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"RadialCore/pkg/logger"
)

// 构建信息，通过 -ldflags 注入。
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		logger.L().Error("radiald 运行失败", logger.Err(err))
		stop()
		os.Exit(1)
	}
}
