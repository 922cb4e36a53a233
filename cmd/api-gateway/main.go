package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/radieske/competitions-bet-platform/internal/gateway"
	"github.com/radieske/competitions-bet-platform/internal/shared/config"
	"github.com/radieske/competitions-bet-platform/internal/shared/httpserver"
	"github.com/radieske/competitions-bet-platform/internal/shared/logger"
	"github.com/radieske/competitions-bet-platform/internal/shared/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	h, err := gateway.New(log, cfg.APIURL, cfg.SiteURL)
	if err != nil {
		log.Fatal("gateway config", zap.Error(err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	msrv := metrics.StartMetricsServer(cfg.MetricsPort, nil, func(err error) {
		log.Error("metrics server failed", zap.Error(err))
	})
	defer msrv.Close()

	log.Info("api-gateway started", zap.String("api", cfg.APIURL), zap.String("site", cfg.SiteURL))
	if err := httpserver.Serve(ctx, log, ":"+cfg.HTTPPort, h); err != nil {
		log.Fatal("gateway failed", zap.Error(err))
	}
	log.Info("api-gateway stopped")
}
