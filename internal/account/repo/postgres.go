package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/radieske/competitions-bet-platform/internal/account/model"
	catalog "github.com/radieske/competitions-bet-platform/internal/catalog/model"
	catrepo "github.com/radieske/competitions-bet-platform/internal/catalog/repo"
	"github.com/radieske/competitions-bet-platform/internal/shared/db"
)

// Postgres implementa usuários, clientes, saldo e apostas em banco
type Postgres struct {
	db  *sql.DB
	now func() time.Time
}

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db, now: time.Now} }

const principalSQL = `
	SELECT u.id, u.created, u.username, u.first_name, u.last_name, u.email, u.password_hash, u.is_superuser,
	       c.id, c.money_cents
	FROM crud_api.users u
	JOIN crud_api.client c ON c.user_id = u.id`

func scanPrincipal(row *sql.Row) (model.Principal, error) {
	var p model.Principal
	err := row.Scan(&p.ID, &p.Created, &p.Username, &p.FirstName, &p.LastName, &p.Email,
		&p.PasswordHash, &p.IsSuperuser, &p.ClientID, &p.MoneyCents)
	return p, err
}

// CreateUser cria usuário e cliente (saldo zero) na mesma transação
func (p *Postgres) CreateUser(ctx context.Context, u *model.User) (model.Client, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Client{}, err
	}
	defer tx.Rollback()

	now := p.now()
	u.ID = uuid.NewString()
	u.Created = now
	if _, err = tx.ExecContext(ctx, `
		INSERT INTO crud_api.users(id, created, username, first_name, last_name, email, password_hash, is_superuser)
		VALUES($1,$2,$3,$4,$5,$6,$7,$8)`,
		u.ID, u.Created, u.Username, u.FirstName, u.LastName, u.Email, u.PasswordHash, u.IsSuperuser); err != nil {
		if code, _, ok := db.Constraint(err); ok && code == db.CodeUniqueViolation {
			return model.Client{}, model.ErrUsernameTaken
		}
		return model.Client{}, fmt.Errorf("insert user: %w", err)
	}

	c := model.Client{UserID: u.ID}
	c.Stamp(now)
	if _, err = tx.ExecContext(ctx, `
		INSERT INTO crud_api.client(id, created, modified, user_id, money_cents) VALUES($1,$2,$3,$4,0)`,
		c.ID, c.Created, c.Modified, c.UserID); err != nil {
		return model.Client{}, fmt.Errorf("insert client: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return model.Client{}, err
	}
	return c, nil
}

// PromoteSuperuser garante is_superuser e a senha informada para um usuário existente
func (p *Postgres) PromoteSuperuser(ctx context.Context, username, passwordHash string) error {
	res, err := p.db.ExecContext(ctx,
		`UPDATE crud_api.users SET is_superuser=TRUE, password_hash=$2 WHERE username=$1`, username, passwordHash)
	if err != nil {
		return fmt.Errorf("promote superuser: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrUserNotFound
	}
	return nil
}

func (p *Postgres) PrincipalByUsername(ctx context.Context, username string) (model.Principal, error) {
	pr, err := scanPrincipal(p.db.QueryRowContext(ctx, principalSQL+` WHERE u.username=$1`, username))
	if errors.Is(err, sql.ErrNoRows) {
		return pr, model.ErrUserNotFound
	}
	return pr, err
}

func (p *Postgres) PrincipalByToken(ctx context.Context, token string) (model.Principal, error) {
	if token == "" {
		return model.Principal{}, model.ErrInvalidToken
	}
	pr, err := scanPrincipal(p.db.QueryRowContext(ctx, principalSQL+` WHERE c.token=$1`, token))
	if errors.Is(err, sql.ErrNoRows) {
		return pr, model.ErrInvalidToken
	}
	return pr, err
}

// IssueToken grava candidate apenas se o cliente ainda não tiver token; devolve o token vigente
func (p *Postgres) IssueToken(ctx context.Context, clientID, candidate string) (string, error) {
	var token string
	err := p.db.QueryRowContext(ctx, `
		UPDATE crud_api.client SET token = COALESCE(token, $2)
		WHERE id=$1
		RETURNING token`, clientID, candidate).Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		return "", model.ErrClientNotFound
	}
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	return token, nil
}

func (p *Postgres) ClearToken(ctx context.Context, clientID string) error {
	_, err := p.db.ExecContext(ctx, `UPDATE crud_api.client SET token=NULL WHERE id=$1`, clientID)
	return err
}

// AddFunds incrementa o saldo do cliente
// Garante lock pessimista na linha do cliente
func (p *Postgres) AddFunds(ctx context.Context, clientID string, amount int64) (newBalance int64, err error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var balance int64
	if err = tx.QueryRowContext(ctx,
		`SELECT money_cents FROM crud_api.client WHERE id=$1 FOR UPDATE`, clientID).Scan(&balance); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, model.ErrClientNotFound
		}
		return 0, err
	}

	now := p.now()
	if err = checkBalance(clientID, balance, amount, now); err != nil {
		return 0, err
	}
	if err = tx.QueryRowContext(ctx, `
		UPDATE crud_api.client SET money_cents = money_cents + $1, modified = $2
		WHERE id=$3
		RETURNING money_cents`, amount, now, clientID).Scan(&newBalance); err != nil {
		return 0, mapBalanceErr(err)
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return newBalance, nil
}

// PlaceBet debita a aposta e liga o cliente à etapa, tudo sob o lock da linha do cliente.
// As regras são conferidas nesta ordem: aposta existente, etapa, saldo mínimo, saldo suficiente.
func (p *Postgres) PlaceBet(ctx context.Context, clientID, stageID string, amount, minBalance int64) (model.StageClient, int64, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return model.StageClient{}, 0, err
	}
	defer tx.Rollback()

	var balance int64
	if err = tx.QueryRowContext(ctx,
		`SELECT money_cents FROM crud_api.client WHERE id=$1 FOR UPDATE`, clientID).Scan(&balance); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.StageClient{}, 0, model.ErrClientNotFound
		}
		return model.StageClient{}, 0, err
	}

	// Idempotência: cliente já apostou nesta etapa
	var held bool
	if err = tx.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM crud_api.stage_client WHERE client_id=$1 AND stage_id=$2)`,
		clientID, stageID).Scan(&held); err != nil {
		return model.StageClient{}, 0, err
	}
	if held {
		return model.StageClient{}, balance, model.ErrAlreadyPlaced
	}

	var stageExists bool
	if err = tx.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM crud_api.stage WHERE id=$1)`, stageID).Scan(&stageExists); err != nil {
		return model.StageClient{}, 0, err
	}
	if !stageExists {
		return model.StageClient{}, balance, model.ErrStageNotFound
	}

	if balance < minBalance {
		return model.StageClient{}, balance, model.ErrBalanceBelowMinimum
	}
	if balance < amount {
		return model.StageClient{}, balance, model.ErrInsufficientFunds
	}

	now := p.now()
	if err = checkBalance(clientID, balance, -amount, now); err != nil {
		return model.StageClient{}, balance, err
	}
	var newBalance int64
	if err = tx.QueryRowContext(ctx, `
		UPDATE crud_api.client SET money_cents = money_cents - $1, modified = $2
		WHERE id=$3
		RETURNING money_cents`, amount, now, clientID).Scan(&newBalance); err != nil {
		return model.StageClient{}, 0, mapBalanceErr(err)
	}

	sc := model.StageClient{StageID: stageID, ClientID: clientID, BetCents: amount}
	sc.Stamp(now)
	if err = insertStageClient(ctx, tx, sc); err != nil {
		if errors.Is(err, model.ErrAlreadyPlaced) {
			return model.StageClient{}, balance, err
		}
		return model.StageClient{}, 0, err
	}

	if err = tx.Commit(); err != nil {
		return model.StageClient{}, 0, err
	}
	return sc, newBalance, nil
}

func (p *Postgres) HoldsStage(ctx context.Context, clientID, stageID string) (bool, error) {
	if _, err := uuid.Parse(stageID); err != nil {
		return false, nil
	}
	var held bool
	err := p.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM crud_api.stage_client WHERE client_id=$1 AND stage_id=$2)`,
		clientID, stageID).Scan(&held)
	return held, err
}

// ClientStages lista as etapas em que o cliente apostou, na ordem padrão de etapas
func (p *Postgres) ClientStages(ctx context.Context, clientID string) ([]catalog.Stage, error) {
	stages := catrepo.NewTable[catalog.Stage, *catalog.Stage](p.db, catrepo.StageSpec)
	return stages.Where(ctx,
		`id IN (SELECT stage_id FROM crud_api.stage_client WHERE client_id=$1)`, clientID)
}

// insertStageClient grava a aposta; a unique (stage_id, client_id) vira ErrAlreadyPlaced
func insertStageClient(ctx context.Context, q catrepo.Querier, sc model.StageClient) error {
	if _, err := q.ExecContext(ctx, `
		INSERT INTO crud_api.stage_client(id, created, modified, stage_id, client_id, bet_cents)
		VALUES($1,$2,$3,$4,$5,$6)`,
		sc.ID, sc.Created, sc.Modified, sc.StageID, sc.ClientID, sc.BetCents); err != nil {
		if code, _, ok := db.Constraint(err); ok && code == db.CodeUniqueViolation {
			return model.ErrAlreadyPlaced
		}
		return fmt.Errorf("insert stage_client: %w", err)
	}
	return nil
}

// checkBalance valida o cliente como ficará após somar delta ao saldo travado
func checkBalance(clientID string, balance, delta int64, now time.Time) error {
	c := model.Client{Audit: catalog.Audit{ID: clientID, Modified: now}, MoneyCents: balance + delta}
	return c.Validate(now)
}

func mapBalanceErr(err error) error {
	if code, name, ok := db.Constraint(err); ok && code == db.CodeCheckViolation && name == "client_money_check" {
		return model.ErrNegativeBalance
	}
	return err
}
