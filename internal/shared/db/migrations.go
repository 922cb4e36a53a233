package db

import (
	"context"
	"database/sql"
	"fmt"
)

// Migration é um passo versionado do schema
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// advisory lock compartilhado entre api-service e site-service
const migrationLockID = 81520240

// Migrations lista, em ordem, todas as alterações de schema
var Migrations = []Migration{
	{
		Version: 1,
		Name:    "catalog",
		SQL: `
CREATE SCHEMA IF NOT EXISTS crud_api;

CREATE TABLE crud_api.competition (
	id                UUID PRIMARY KEY,
	created           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	modified          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	name              VARCHAR(100) NOT NULL,
	competition_start DATE NOT NULL,
	competition_end   DATE NOT NULL,
	CONSTRAINT competition_dates_check CHECK (competition_end > competition_start)
);

CREATE TABLE crud_api.sport (
	id          UUID PRIMARY KEY,
	created     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	modified    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	name        VARCHAR(100) NOT NULL,
	description VARCHAR(200) NOT NULL DEFAULT ''
);

CREATE TABLE crud_api.competition_sport (
	id             UUID PRIMARY KEY,
	created        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	modified       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	competition_id UUID REFERENCES crud_api.competition(id) ON DELETE CASCADE,
	sport_id       UUID NOT NULL REFERENCES crud_api.sport(id) ON DELETE CASCADE
);

CREATE TABLE crud_api.stage (
	id              UUID PRIMARY KEY,
	created         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	modified        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	name            VARCHAR(100) NOT NULL,
	stage_date      DATE NOT NULL,
	place           VARCHAR(150) NOT NULL DEFAULT '',
	bet_coefficient NUMERIC(5,2) NOT NULL DEFAULT 1,
	comp_sport_id   UUID REFERENCES crud_api.competition_sport(id) ON DELETE CASCADE
);

CREATE INDEX stage_comp_sport_idx ON crud_api.stage(comp_sport_id);
CREATE INDEX competition_sport_competition_idx ON crud_api.competition_sport(competition_id);
`,
	},
	{
		Version: 2,
		Name:    "accounts",
		SQL: `
CREATE TABLE crud_api.users (
	id            UUID PRIMARY KEY,
	created       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	username      VARCHAR(150) NOT NULL UNIQUE,
	first_name    VARCHAR(100) NOT NULL,
	last_name     VARCHAR(100) NOT NULL,
	email         VARCHAR(254) NOT NULL,
	password_hash TEXT NOT NULL,
	is_superuser  BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE crud_api.client (
	id          UUID PRIMARY KEY,
	created     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	modified    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	user_id     UUID NOT NULL UNIQUE REFERENCES crud_api.users(id) ON DELETE CASCADE,
	money_cents BIGINT NOT NULL DEFAULT 0,
	token       VARCHAR(40) UNIQUE,
	CONSTRAINT client_money_check CHECK (money_cents >= 0)
);

CREATE TABLE crud_api.stage_client (
	id        UUID PRIMARY KEY,
	created   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	modified  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	stage_id  UUID NOT NULL REFERENCES crud_api.stage(id) ON DELETE CASCADE,
	client_id UUID NOT NULL REFERENCES crud_api.client(id) ON DELETE CASCADE,
	bet_cents BIGINT NOT NULL,
	CONSTRAINT stage_client_unique UNIQUE (stage_id, client_id)
);
`,
	},
	{
		Version: 3,
		Name:    "client_ledger",
		SQL: `
CREATE TABLE crud_api.client_ledger (
	event_id      UUID PRIMARY KEY,
	client_id     UUID NOT NULL,
	kind          VARCHAR(32) NOT NULL,
	stage_id      UUID,
	amount_cents  BIGINT NOT NULL,
	balance_cents BIGINT NOT NULL,
	occurred_at   TIMESTAMPTZ NOT NULL,
	recorded_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX client_ledger_client_idx ON crud_api.client_ledger(client_id, occurred_at);
`,
	},
}

// RunMigrations aplica as migrações pendentes, cada uma na sua transação.
// Um advisory lock serializa serviços subindo ao mesmo tempo.
func RunMigrations(ctx context.Context, db *sql.DB, migrations []Migration) (applied int, err error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire conn: %w", err)
	}
	defer conn.Close()

	if _, err = conn.ExecContext(ctx, `SELECT pg_advisory_lock($1)`, migrationLockID); err != nil {
		return 0, fmt.Errorf("migration lock: %w", err)
	}
	defer conn.ExecContext(context.Background(), `SELECT pg_advisory_unlock($1)`, migrationLockID) //nolint:errcheck

	if _, err = conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			name       TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`); err != nil {
		return 0, fmt.Errorf("create schema_migrations: %w", err)
	}

	for _, m := range migrations {
		var exists bool
		if err = conn.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version=$1)`, m.Version).Scan(&exists); err != nil {
			return applied, fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if exists {
			continue
		}
		if err = applyMigration(ctx, conn, m); err != nil {
			return applied, err
		}
		applied++
	}
	return applied, nil
}

func applyMigration(ctx context.Context, conn *sql.Conn, m Migration) error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration %d: %w", m.Version, err)
	}
	defer tx.Rollback()

	if _, err = tx.ExecContext(ctx, m.SQL); err != nil {
		return fmt.Errorf("apply migration %d (%s): %w", m.Version, m.Name, err)
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO schema_migrations(version, name) VALUES($1,$2)`, m.Version, m.Name); err != nil {
		return fmt.Errorf("record migration %d: %w", m.Version, err)
	}
	return tx.Commit()
}
