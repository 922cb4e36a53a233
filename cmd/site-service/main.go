package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/competitions-bet-platform/internal/account/producer"
	accrepo "github.com/radieske/competitions-bet-platform/internal/account/repo"
	"github.com/radieske/competitions-bet-platform/internal/account/service"
	"github.com/radieske/competitions-bet-platform/internal/catalog/cache"
	catrepo "github.com/radieske/competitions-bet-platform/internal/catalog/repo"
	sitehttp "github.com/radieske/competitions-bet-platform/internal/site/http"
	"github.com/radieske/competitions-bet-platform/internal/site/ws"
	sharedcache "github.com/radieske/competitions-bet-platform/internal/shared/cache"
	"github.com/radieske/competitions-bet-platform/internal/shared/config"
	"github.com/radieske/competitions-bet-platform/internal/shared/db"
	"github.com/radieske/competitions-bet-platform/internal/shared/httpserver"
	"github.com/radieske/competitions-bet-platform/internal/shared/kafka"
	"github.com/radieske/competitions-bet-platform/internal/shared/logger"
	"github.com/radieske/competitions-bet-platform/internal/shared/metrics"
	"github.com/radieske/competitions-bet-platform/pkg/contracts/events"
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

	if _, err := db.RunMigrations(ctx, pg, db.Migrations); err != nil {
		log.Fatal("migrations", zap.Error(err))
	}

	redisClient, err := sharedcache.ConnectRedis(ctx, cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer redisClient.Close()

	// depósitos e apostas vão para o livro-razão via Kafka
	writer := kafka.NewWriter(cfg.Brokers(), cfg.TopicClientActivity)
	publisher := producer.NewKafkaPublisher(writer)
	defer publisher.Close()

	catalog := catrepo.NewCatalog(pg)
	accounts := service.New(log, accrepo.NewPostgres(pg), catalog.Stages, publisher, service.NewMetrics(prometheus.DefaultRegisterer))
	pages := cache.NewRedisCache(redisClient, cfg.CacheTTL)

	// mudanças no catálogo: primeiro invalida o cache, depois avisa os navegadores
	hub := ws.NewHub(log, func(*http.Request) bool { return true })
	ws.StartRedisSubscriber(ctx, log, redisClient, cfg.RedisPubSubChannel,
		func(ctx context.Context, e events.CatalogChanged) {
			if err := pages.Invalidate(ctx, e.Kind); err != nil {
				log.Warn("cache invalidate failed", zap.String("kind", e.Kind), zap.Error(err))
			}
		},
		func(_ context.Context, e events.CatalogChanged) { hub.Broadcast(e) },
	)

	site := sitehttp.NewServer(log, accounts, pages, catalog)
	site.WS = hub.HandleWS
	site.SecureCookie = cfg.Env == "prod"

	health := metrics.Checks(
		pg.PingContext,
		func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
	)
	msrv := metrics.StartMetricsServer(cfg.MetricsPort, health, func(err error) {
		log.Error("metrics server failed", zap.Error(err))
	})
	defer msrv.Close()

	log.Info("site-service started",
		zap.String("topic", cfg.TopicClientActivity),
		zap.String("channel", cfg.RedisPubSubChannel),
	)
	if err := httpserver.Serve(ctx, log, ":"+cfg.HTTPPort, site.Router()); err != nil {
		log.Fatal("site server failed", zap.Error(err))
	}
	log.Info("site-service stopped")
}
