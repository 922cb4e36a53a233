package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	accrepo "github.com/radieske/competitions-bet-platform/internal/account/repo"
	"github.com/radieske/competitions-bet-platform/internal/account/service"
	httpapi "github.com/radieske/competitions-bet-platform/internal/api/http"
	"github.com/radieske/competitions-bet-platform/internal/catalog/pubsub"
	catrepo "github.com/radieske/competitions-bet-platform/internal/catalog/repo"
	sharedcache "github.com/radieske/competitions-bet-platform/internal/shared/cache"
	"github.com/radieske/competitions-bet-platform/internal/shared/config"
	"github.com/radieske/competitions-bet-platform/internal/shared/db"
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

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pg, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	applied, err := db.RunMigrations(ctx, pg, db.Migrations)
	if err != nil {
		log.Fatal("migrations", zap.Error(err))
	}
	log.Info("migrations applied", zap.Int("count", applied))

	redisClient, err := sharedcache.ConnectRedis(ctx, cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer redisClient.Close()

	catalog := catrepo.NewCatalog(pg)
	accounts := service.New(log, accrepo.NewPostgres(pg), catalog.Stages, nil, service.NewMetrics(prometheus.DefaultRegisterer))

	if cfg.AdminUsername != "" {
		if err := accounts.EnsureSuperuser(ctx, cfg.AdminUsername, cfg.AdminPassword, cfg.AdminEmail); err != nil {
			log.Fatal("ensure superuser", zap.Error(err))
		}
		log.Info("superuser ready", zap.String("username", cfg.AdminUsername))
	}

	broadcaster := pubsub.NewRedisBroadcaster(redisClient, cfg.RedisPubSubChannel)
	api := httpapi.NewAPI(log, accounts, broadcaster, httpapi.NewMetrics(prometheus.DefaultRegisterer), catalog)

	health := metrics.Checks(
		pg.PingContext,
		func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
	)
	msrv := metrics.StartMetricsServer(cfg.MetricsPort, health, func(err error) {
		log.Error("metrics server failed", zap.Error(err))
	})
	defer msrv.Close()

	log.Info("api-service started", zap.String("channel", cfg.RedisPubSubChannel))
	if err := httpserver.Serve(ctx, log, ":"+cfg.HTTPPort, api.Router()); err != nil {
		log.Fatal("api server failed", zap.Error(err))
	}
	log.Info("api-service stopped")
}
