package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/careerbox/presenced/internal/bridge"
	"github.com/careerbox/presenced/internal/gateway"
	"github.com/careerbox/presenced/internal/metrics"
	"github.com/careerbox/presenced/internal/server"
	"github.com/careerbox/presenced/internal/store/gormstore"
	"github.com/careerbox/presenced/internal/store/redisstore"
	"github.com/careerbox/presenced/pkg/config"
	"github.com/careerbox/presenced/pkg/logging"
	"github.com/redis/go-redis/v9"
)

func main() {
	bootLogger := logging.New(logging.LevelInfo, true)
	cfg, err := config.Load(bootLogger, "config")
	if err != nil {
		bootLogger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger := logging.New(logging.Level(cfg.Logging.Level), cfg.Logging.Structured)
	slog.SetDefault(logger)

	metrics.Init()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	platform := redisstore.New(redisClient)

	directory, err := gormstore.Open(cfg.Directory.DSN)
	if err != nil {
		logger.Error("failed to open directory store", slog.Any("error", err))
		os.Exit(1)
	}

	deps := server.Deps{
		Sessions:   platform,
		Identities: platform,
		Directory:  directory,
		Activity:   platform,
		HealthLog:  platform.HealthLog(),
		Alerts:     platform.AlertLog(),
		Trending:   platform,
		Pinger:     platform,
	}

	var activeBridge *bridge.Bridge
	if cfg.Bridge.NATSUrl != "" {
		deps.WrapBroadcaster = func(local gateway.Broadcaster) (gateway.Broadcaster, error) {
			b, err := bridge.Connect(cfg.Bridge.NATSUrl, local, logger)
			if err != nil {
				return nil, err
			}
			activeBridge = b
			return b, nil
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := server.NewApp(logger, ctx, cfg, deps)
	if err != nil {
		logger.Error("failed to build server", slog.Any("error", err))
		os.Exit(1)
	}
	if err := app.Run(); err != nil {
		logger.Error("server run failed", slog.Any("error", err))
		os.Exit(1)
	}
	if activeBridge != nil {
		activeBridge.Close()
	}
	logger.Info("shut down successfully")
}
