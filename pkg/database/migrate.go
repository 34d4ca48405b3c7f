package database

import (
	"context"
	"embed"
	"fmt"
	"path"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"github.com/noah-isme/school-ops-api/pkg/config"
)

//go:embed migrations/postgres/*.sql migrations/sqlite3/*.sql
var migrationsFS embed.FS

// Migrate applies pending migrations for the connection's dialect. Goose records the applied
// version in goose_db_version, so repeated calls are no-ops.
func Migrate(ctx context.Context, db *sqlx.DB, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	dialect, err := dialectFor(db.DriverName())
	if err != nil {
		return err
	}

	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(gooseLogger{sugar: logger.Sugar()})
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("set migration dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db.DB, path.Join("migrations", dialect)); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	version, err := goose.GetDBVersionContext(ctx, db.DB)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	logger.Info("schema up to date", zap.String("dialect", dialect), zap.Int64("version", version))
	return nil
}

func dialectFor(driver string) (string, error) {
	switch driver {
	case config.DriverPostgres:
		return "postgres", nil
	case config.DriverSQLite:
		return "sqlite3", nil
	default:
		return "", fmt.Errorf("no migrations for driver %q", driver)
	}
}

type gooseLogger struct {
	sugar *zap.SugaredLogger
}

func (l gooseLogger) Fatalf(format string, v ...interface{}) {
	l.sugar.Fatalf(format, v...)
}

func (l gooseLogger) Printf(format string, v ...interface{}) {
	l.sugar.Infof(format, v...)
}
