package db

import (
	"context"
	"embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/auth/*.sql migrations/ledger/*.sql
var migrations embed.FS

// Schema identifica un conjunto de migraciones; cada servicio es dueño del suyo
// y lleva su propia tabla de versiones para poder compartir base de datos.
type Schema struct {
	Dir          string
	VersionTable string
}

var (
	AuthSchema   = Schema{Dir: "migrations/auth", VersionTable: "goose_auth_version"}
	LedgerSchema = Schema{Dir: "migrations/ledger", VersionTable: "goose_ledger_version"}
)

// Migrate aplica las migraciones embebidas del esquema indicado.
func Migrate(ctx context.Context, pool *pgxpool.Pool, schema Schema) error {
	sqlDB := stdlib.OpenDBFromPool(pool)
	defer sqlDB.Close()

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	goose.SetTableName(schema.VersionTable)
	if err := goose.UpContext(ctx, sqlDB, schema.Dir); err != nil {
		return fmt.Errorf("goose up %s: %w", schema.Dir, err)
	}
	return nil
}
