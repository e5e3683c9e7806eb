package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/ndrwsmyth/oxychat/internal/infrastructure/config"
	applog "github.com/ndrwsmyth/oxychat/internal/infrastructure/log"
	"github.com/ndrwsmyth/oxychat/internal/infrastructure/singleton"
	"github.com/ndrwsmyth/oxychat/internal/wire"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// .env 不存在时忽略
	_ = godotenv.Load()

	// 初始化日志系统
	applog.Init(nil)
	defer applog.Close()
	logger := applog.GetLogger()

	cfg, err := config.NewConfig()
	if err != nil {
		logger.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	// 同一端口只运行一个实例
	if err := singleton.CheckPort(cfg.Server.HTTPPort); err != nil {
		if errors.Is(err, singleton.ErrInstanceRunning) {
			logger.Info("Oxychat already running, exiting", "port", cfg.Server.HTTPPort)
			return
		}
		logger.Error("Port check failed", "port", cfg.Server.HTTPPort, "error", err)
		os.Exit(1)
	}

	// Wire 生成的初始化函数
	app, cleanup, err := wire.InitializeApp()
	if err != nil {
		logger.Error("Failed to initialize application", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	serverErr := app.Start()

	// 优雅关闭
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigChan:
	case err := <-serverErr:
		if err != nil {
			logger.Error("HTTP server stopped", "error", err)
		}
	}

	logger.Info("Shutting down application...")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.Stop(ctx); err != nil {
		logger.Error("Error during application shutdown", "error", err)
	}
	logger.Info("Application stopped")
}
