package persist

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrations embed.FS

// schemaFS returns the diagnostics migrations rooted at their directory.
func schemaFS() (fs.FS, error) {
	return fs.Sub(migrations, "migrations")
}

// MigrateDiagnostics brings the diagnostics schema up to date and returns
// its version. Each applied migration is logged.
func MigrateDiagnostics(ctx context.Context, db *DB) (int64, error) {
	fsys, err := schemaFS()
	if err != nil {
		return 0, fmt.Errorf("diagnostics schema: %w", err)
	}
	sqlDB := stdlib.OpenDBFromPool(db.Pool)
	p, err := goose.NewProvider(goose.DialectPostgres, sqlDB, fsys)
	if err != nil {
		sqlDB.Close()
		return 0, fmt.Errorf("diagnostics schema: %w", err)
	}
	defer p.Close()

	results, err := p.Up(ctx)
	for _, r := range results {
		if r.Source == nil {
			continue
		}
		db.log.Info("diagnostics migration applied",
			zap.Int64("version", r.Source.Version),
			zap.String("file", path.Base(r.Source.Path)),
			zap.Duration("took", r.Duration),
		)
	}
	if err != nil {
		return 0, fmt.Errorf("apply diagnostics migrations: %w", err)
	}

	version, err := p.GetDBVersion(ctx)
	if err != nil {
		return 0, fmt.Errorf("diagnostics schema version: %w", err)
	}
	return version, nil
}
