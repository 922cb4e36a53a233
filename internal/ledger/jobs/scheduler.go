// Package jobs roda as tarefas periódicas do ledger-worker (cron).
package jobs

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/radieske/competitions-bet-platform/internal/ledger/repository"
)

// Reconciler lista clientes com saldo divergente do livro-razão
type Reconciler interface {
	Mismatches(ctx context.Context) ([]repository.Mismatch, error)
}

type Scheduler struct {
	cron *cron.Cron
	log  *zap.Logger
	repo Reconciler

	// OnReconciled recebe o número de divergências de cada rodada
	OnReconciled func(n int)
}

func NewScheduler(log *zap.Logger, repo Reconciler) *Scheduler {
	return &Scheduler{
		cron: cron.New(),
		log:  log,
		repo: repo,
	}
}

// Start agenda a conciliação; spec segue a sintaxe do cron ("@every 5m", "*/10 * * * *")
func (s *Scheduler) Start(ctx context.Context, spec string) error {
	if _, err := s.cron.AddFunc(spec, func() { s.Reconcile(ctx) }); err != nil {
		return fmt.Errorf("schedule reconcile %q: %w", spec, err)
	}
	s.cron.Start()
	s.log.Info("scheduler started", zap.String("reconcile", spec))
	return nil
}

func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

// Reconcile roda uma conciliação. Eventos ainda na fila aparecem como divergência
// transitória, então só registramos.
func (s *Scheduler) Reconcile(ctx context.Context) int {
	ms, err := s.repo.Mismatches(ctx)
	if err != nil {
		s.log.Error("reconcile failed", zap.Error(err))
		return -1
	}
	for _, m := range ms {
		s.log.Warn("ledger mismatch",
			zap.String("client_id", m.ClientID),
			zap.Int64("balance_cents", m.BalanceCents),
			zap.Int64("ledger_cents", m.LedgerCents),
		)
	}
	if s.OnReconciled != nil {
		s.OnReconciled(len(ms))
	}
	return len(ms)
}
