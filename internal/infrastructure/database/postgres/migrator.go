package postgres

import (
	"embed"
	stderrors "errors"

	"github.com/golang-migrate/migrate/v4"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/turtacn/CiteRank-Engine/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CiteRank-Engine/pkg/errors"
)

// Migrations ship inside the binary so a worker can bring its own schema up
// without a migrations directory on disk.
//
//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrate applies all pending schema migrations.  Called once at startup;
// an already-current schema is not an error.
func (c *Connection) Migrate() error {
	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeMigrationFailed, "failed to open embedded migrations")
	}

	db := stdlib.OpenDBFromPool(c.pool)
	driver, err := migratepgx.WithInstance(db, &migratepgx.Config{})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeMigrationFailed, "failed to create migration driver")
	}

	m, err := migrate.NewWithInstance("iofs", src, "pgx5", driver)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeMigrationFailed, "failed to create migrate instance")
	}

	if err := m.Up(); err != nil && !stderrors.Is(err, migrate.ErrNoChange) {
		return errors.Wrap(err, errors.ErrCodeMigrationFailed, "failed to run migrations")
	}

	version, dirty, err := m.Version()
	if err != nil && !stderrors.Is(err, migrate.ErrNilVersion) {
		c.logger.Warn("failed to read migration version", logging.Err(err))
		return nil
	}

	c.logger.Info("schema migrations applied",
		logging.Int64("version", int64(version)),
		logging.Bool("dirty", dirty))
	return nil
}
