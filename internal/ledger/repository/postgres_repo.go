package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/radieske/competitions-bet-platform/pkg/contracts/events"
)

// PostgresRepo grava a atividade dos clientes no livro-razão
type PostgresRepo struct {
	DB *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{DB: db}
}

// Record insere o evento uma única vez; reentregas do Kafka caem no ON CONFLICT.
// Devolve false quando o evento já estava gravado.
func (r *PostgresRepo) Record(ctx context.Context, e events.ClientActivity) (bool, error) {
	const q = `
		INSERT INTO crud_api.client_ledger
		  (event_id, client_id, kind, stage_id, amount_cents, balance_cents, occurred_at)
		VALUES
		  ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (event_id) DO NOTHING
	`
	var stage sql.NullString
	if e.StageID != "" {
		stage = sql.NullString{String: e.StageID, Valid: true}
	}
	res, err := r.DB.ExecContext(ctx, q,
		e.EventID, e.ClientID, e.Kind, stage,
		e.AmountCents, e.BalanceCents, time.UnixMilli(e.TsUnixMs).UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("insert ledger entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Mismatch é um cliente cujo saldo não bate com a soma do livro-razão
type Mismatch struct {
	ClientID     string
	BalanceCents int64
	LedgerCents  int64
}

// Mismatches compara saldo de cada cliente com depósitos menos apostas registrados
func (r *PostgresRepo) Mismatches(ctx context.Context) ([]Mismatch, error) {
	const q = `
		SELECT c.id, c.money_cents,
		       COALESCE(SUM(CASE l.kind WHEN 'funds_added' THEN l.amount_cents
		                                WHEN 'bet_placed' THEN -l.amount_cents END), 0) AS ledger
		FROM crud_api.client c
		LEFT JOIN crud_api.client_ledger l ON l.client_id = c.id
		GROUP BY c.id, c.money_cents
		HAVING c.money_cents <> COALESCE(SUM(CASE l.kind WHEN 'funds_added' THEN l.amount_cents
		                                                 WHEN 'bet_placed' THEN -l.amount_cents END), 0)
		ORDER BY c.id
	`
	rows, err := r.DB.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("reconcile ledger: %w", err)
	}
	defer rows.Close()

	var out []Mismatch
	for rows.Next() {
		var m Mismatch
		if err := rows.Scan(&m.ClientID, &m.BalanceCents, &m.LedgerCents); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
