// Package dbtest abre o Postgres de integração usado pelos testes de repositório.
package dbtest

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/radieske/competitions-bet-platform/internal/shared/db"
)

// EnvDSN aponta para um banco descartável; sem ela os testes de integração são pulados
const EnvDSN = "TEST_POSTGRES_DSN"

// pacotes de teste rodam em paralelo contra o mesmo banco
const testLockID = 81520241

const truncateSQL = `TRUNCATE crud_api.stage_client, crud_api.client_ledger, crud_api.client,
	crud_api.users, crud_api.stage, crud_api.competition_sport, crud_api.sport, crud_api.competition CASCADE`

// Open conecta, aplica as migrações e esvazia as tabelas. O banco fica
// reservado para o teste até o Cleanup.
func Open(t testing.TB) *sql.DB {
	t.Helper()
	dsn := os.Getenv(EnvDSN)
	if dsn == "" {
		t.Skipf("%s not set", EnvDSN)
	}
	ctx := context.Background()

	pg, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = pg.Close() })

	if _, err := db.RunMigrations(ctx, pg, db.Migrations); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	conn, err := pg.Conn(ctx)
	if err != nil {
		t.Fatalf("conn: %v", err)
	}
	if _, err := conn.ExecContext(ctx, `SELECT pg_advisory_lock($1)`, testLockID); err != nil {
		_ = conn.Close()
		t.Fatalf("test lock: %v", err)
	}
	t.Cleanup(func() {
		_, _ = conn.ExecContext(context.Background(), `SELECT pg_advisory_unlock($1)`, testLockID)
		_ = conn.Close()
	})

	if _, err := pg.ExecContext(ctx, truncateSQL); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return pg
}
