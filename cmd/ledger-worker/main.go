package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/competitions-bet-platform/internal/ledger/consumer"
	"github.com/radieske/competitions-bet-platform/internal/ledger/jobs"
	"github.com/radieske/competitions-bet-platform/internal/ledger/repository"
	"github.com/radieske/competitions-bet-platform/internal/shared/config"
	"github.com/radieske/competitions-bet-platform/internal/shared/db"
	"github.com/radieske/competitions-bet-platform/internal/shared/kafka"
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

	if _, err := db.RunMigrations(ctx, pg, db.Migrations); err != nil {
		log.Fatal("migrations", zap.Error(err))
	}

	reader := kafka.NewReader(cfg.Brokers(), cfg.TopicClientActivity, "ledger-worker")
	defer reader.Close()
	dlq := kafka.NewWriter(cfg.Brokers(), cfg.TopicClientActivityDLQ)
	defer dlq.Close()

	consumed := prometheus.NewCounter(prometheus.CounterOpts{Name: "ledger_messages_consumed_total", Help: "mensagens consumidas"})
	results := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "ledger_events_total", Help: "eventos por resultado"}, []string{"result"})
	errorsBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "ledger_errors_total", Help: "erros por fase"}, []string{"phase"})
	mismatches := prometheus.NewGauge(prometheus.GaugeOpts{Name: "ledger_reconcile_mismatches", Help: "clientes com saldo divergente na última conciliação"})
	prometheus.MustRegister(consumed, results, errorsBy, mismatches)

	repo := repository.NewPostgresRepo(pg)

	proc := &consumer.Processor{
		Log:         log,
		Reader:      reader,
		Repo:        repo,
		DLQ:         dlq,
		Retries:     3,
		Backoff:     func(attempt int) time.Duration { return time.Duration(300*(attempt+1)) * time.Millisecond },
		OnConsumed:  consumed.Inc,
		OnRecorded:  func() { results.WithLabelValues("recorded").Inc() },
		OnDuplicate: func() { results.WithLabelValues("duplicate").Inc() },
		OnDLQ:       func() { results.WithLabelValues("dlq").Inc() },
		OnError:     func(phase string) { errorsBy.WithLabelValues(phase).Inc() },
	}

	msrv := metrics.StartMetricsServer(cfg.MetricsPort, pg.PingContext, func(err error) {
		log.Error("metrics server failed", zap.Error(err))
	})
	defer msrv.Close()

	sched := jobs.NewScheduler(log, repo)
	sched.OnReconciled = func(n int) { mismatches.Set(float64(n)) }
	if err := sched.Start(ctx, cfg.LedgerReconcileSpec); err != nil {
		log.Fatal("scheduler", zap.Error(err))
	}
	defer sched.Stop()

	log.Info("ledger-worker started",
		zap.String("consume", cfg.TopicClientActivity),
		zap.String("dlq", cfg.TopicClientActivityDLQ),
	)
	if err := proc.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal("processor stopped with error", zap.Error(err))
	}
	log.Info("ledger-worker stopped")
}
