package jobs

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/radieske/competitions-bet-platform/internal/ledger/repository"
)

type fakeReconciler struct {
	out []repository.Mismatch
	err error
}

func (f fakeReconciler) Mismatches(context.Context) ([]repository.Mismatch, error) {
	return f.out, f.err
}

func TestReconcile(t *testing.T) {
	tests := []struct {
		name     string
		repo     fakeReconciler
		want     int
		reported []int
	}{
		{"clean", fakeReconciler{}, 0, []int{0}},
		{"two clients off", fakeReconciler{out: []repository.Mismatch{
			{ClientID: "a", BalanceCents: 100, LedgerCents: 0},
			{ClientID: "b", BalanceCents: 0, LedgerCents: 50},
		}}, 2, []int{2}},
		{"query failed", fakeReconciler{err: errors.New("boom")}, -1, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewScheduler(zap.NewNop(), tt.repo)
			var reported []int
			s.OnReconciled = func(n int) { reported = append(reported, n) }

			if got := s.Reconcile(context.Background()); got != tt.want {
				t.Errorf("Reconcile() = %d, want %d", got, tt.want)
			}
			if len(reported) != len(tt.reported) || (len(reported) == 1 && reported[0] != tt.reported[0]) {
				t.Errorf("reported = %v, want %v", reported, tt.reported)
			}
		})
	}
}

func TestStartRejectsBadSpec(t *testing.T) {
	s := NewScheduler(zap.NewNop(), fakeReconciler{})
	if err := s.Start(context.Background(), "every now and then"); err == nil {
		t.Error("Start() accepted an invalid spec")
	}
}

func TestStartAndStop(t *testing.T) {
	s := NewScheduler(zap.NewNop(), fakeReconciler{})
	if err := s.Start(context.Background(), "@every 1h"); err != nil {
		t.Fatal(err)
	}
	s.Stop()
}
