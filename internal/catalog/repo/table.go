package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/radieske/competitions-bet-platform/internal/catalog/model"
	"github.com/radieske/competitions-bet-platform/internal/shared/db"
)

// Querier é o que *sql.DB e *sql.Tx têm em comum
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Spec descreve como uma entidade do catálogo mapeia para sua tabela.
// Uma instância por entidade, montada estaticamente em specs.go.
type Spec[T any] struct {
	Kind    string   // nome do recurso na API (competitions, sports, ...)
	Table   string   // tabela qualificada
	Columns []string // colunas além de id/created/modified
	OrderBy string

	// Fields devolve ponteiros para os campos, na ordem de Columns.
	// Servem tanto para Scan quanto como argumentos do INSERT/UPDATE.
	Fields func(v *T) []any

	// OnCreate preenche defaults antes da validação (ex.: coeficiente sorteado)
	OnCreate func(v *T)

	// BeforeWrite roda dentro da transação, depois de Validate,
	// para regras que dependem de outras linhas
	BeforeWrite func(ctx context.Context, q Querier, v *T) error

	// Constraints traduz nomes de CHECK constraints para erros de domínio
	Constraints map[string]error
}

// Table implementa CRUD genérico sobre uma Spec
type Table[T any, P interface {
	*T
	model.Record
}] struct {
	db   *sql.DB
	spec Spec[T]
	Now  func() time.Time
}

func NewTable[T any, P interface {
	*T
	model.Record
}](sqlDB *sql.DB, spec Spec[T]) *Table[T, P] {
	return &Table[T, P]{db: sqlDB, spec: spec, Now: time.Now}
}

func (t *Table[T, P]) Kind() string { return t.spec.Kind }

func (t *Table[T, P]) selectSQL() string {
	return fmt.Sprintf(`SELECT id, created, modified, %s FROM %s`,
		strings.Join(t.spec.Columns, ", "), t.spec.Table)
}

func (t *Table[T, P]) scan(row interface{ Scan(...any) error }) (T, error) {
	var v T
	a := P(&v).AuditInfo()
	dest := append([]any{&a.ID, &a.Created, &a.Modified}, t.spec.Fields(&v)...)
	if err := row.Scan(dest...); err != nil {
		return v, err
	}
	return v, nil
}

// List devolve uma página ordenada. limit <= 0 devolve tudo a partir de offset.
func (t *Table[T, P]) List(ctx context.Context, limit, offset int) ([]T, error) {
	var lim any
	if limit > 0 {
		lim = limit
	}
	q := t.selectSQL() + ` ORDER BY ` + t.spec.OrderBy + ` LIMIT $1 OFFSET $2`
	return t.query(ctx, t.db, q, lim, offset)
}

// Where lista as linhas que satisfazem cond, na ordem padrão da entidade
func (t *Table[T, P]) Where(ctx context.Context, cond string, args ...any) ([]T, error) {
	q := t.selectSQL() + ` WHERE ` + cond + ` ORDER BY ` + t.spec.OrderBy
	return t.query(ctx, t.db, q, args...)
}

func (t *Table[T, P]) query(ctx context.Context, q Querier, query string, args ...any) ([]T, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", t.spec.Kind, err)
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		v, err := t.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", t.spec.Kind, err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (t *Table[T, P]) Count(ctx context.Context) (int, error) {
	var n int
	if err := t.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+t.spec.Table).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", t.spec.Kind, err)
	}
	return n, nil
}

func (t *Table[T, P]) Get(ctx context.Context, id string) (T, error) {
	var zero T
	if _, err := uuid.Parse(id); err != nil {
		return zero, model.ErrNotFound
	}
	v, err := t.scan(t.db.QueryRowContext(ctx, t.selectSQL()+` WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return zero, model.ErrNotFound
	}
	if err != nil {
		return zero, fmt.Errorf("get %s: %w", t.spec.Kind, err)
	}
	return v, nil
}

// Create valida e insere v numa transação; id/created/modified são preenchidos aqui
func (t *Table[T, P]) Create(ctx context.Context, v *T) error {
	p := P(v)
	a := p.AuditInfo()
	a.ID, a.Created = "", time.Time{}
	now := t.Now()
	a.Stamp(now)
	if t.spec.OnCreate != nil {
		t.spec.OnCreate(v)
	}
	if err := p.Validate(now); err != nil {
		return err
	}

	return t.inTx(ctx, func(tx *sql.Tx) error {
		if t.spec.BeforeWrite != nil {
			if err := t.spec.BeforeWrite(ctx, tx, v); err != nil {
				return err
			}
		}
		cols := append([]string{"id", "created", "modified"}, t.spec.Columns...)
		args := append([]any{a.ID, a.Created, a.Modified}, t.spec.Fields(v)...)
		q := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`,
			t.spec.Table, strings.Join(cols, ", "), placeholders(1, len(cols)))
		if _, err := tx.ExecContext(ctx, q, args...); err != nil {
			return t.mapErr(err)
		}
		return nil
	})
}

// Update regrava todas as colunas de v; created é preservado
func (t *Table[T, P]) Update(ctx context.Context, v *T) error {
	p := P(v)
	a := p.AuditInfo()
	if _, err := uuid.Parse(a.ID); err != nil {
		return model.ErrNotFound
	}
	now := t.Now()

	return t.inTx(ctx, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx,
			`SELECT created FROM `+t.spec.Table+` WHERE id=$1 FOR UPDATE`, a.ID).Scan(&a.Created); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return model.ErrNotFound
			}
			return fmt.Errorf("lock %s: %w", t.spec.Kind, err)
		}
		a.Stamp(now)
		if err := p.Validate(now); err != nil {
			return err
		}
		if t.spec.BeforeWrite != nil {
			if err := t.spec.BeforeWrite(ctx, tx, v); err != nil {
				return err
			}
		}

		sets := make([]string, len(t.spec.Columns))
		for i, c := range t.spec.Columns {
			sets[i] = fmt.Sprintf("%s=$%d", c, i+2)
		}
		args := append([]any{a.Modified}, t.spec.Fields(v)...)
		args = append(args, a.ID)
		q := fmt.Sprintf(`UPDATE %s SET modified=$1, %s WHERE id=$%d`,
			t.spec.Table, strings.Join(sets, ", "), len(args))
		if _, err := tx.ExecContext(ctx, q, args...); err != nil {
			return t.mapErr(err)
		}
		return nil
	})
}

func (t *Table[T, P]) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return model.ErrNotFound
	}
	res, err := t.db.ExecContext(ctx, `DELETE FROM `+t.spec.Table+` WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", t.spec.Kind, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (t *Table[T, P]) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin %s tx: %w", t.spec.Kind, err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// mapErr converte violações de constraint do Postgres em erros de domínio
func (t *Table[T, P]) mapErr(err error) error {
	code, name, ok := db.Constraint(err)
	if !ok {
		return fmt.Errorf("write %s: %w", t.spec.Kind, err)
	}
	switch code {
	case db.CodeCheckViolation:
		if derr, found := t.spec.Constraints[name]; found {
			return derr
		}
	case db.CodeForeignKeyViolation:
		return model.ErrInvalidReference
	}
	return fmt.Errorf("write %s: %w", t.spec.Kind, err)
}

func placeholders(from, n int) string {
	ps := make([]string, n)
	for i := range ps {
		ps[i] = fmt.Sprintf("$%d", from+i)
	}
	return strings.Join(ps, ", ")
}
