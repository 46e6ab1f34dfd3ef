// Package sqldb provides the SQL persistence implementation for PostgreSQL and SQLite.
package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/opsplan/pkg/persistence"
	"github.com/dukex/opsplan/pkg/persistence/sqlbase"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Persistence implements the persistence layer on top of database/sql.
type Persistence struct {
	db      *sql.DB
	logger  *slog.Logger
	dialect Dialect

	operations *OperationRepository
	projects   *ProjectRepository
	workflows  *WorkflowRepository
	nodes      *NodeRepository
	edges      *EdgeRepository
	progress   *ProgressRepository
}

var _ persistence.Persistence = (*Persistence)(nil)

// NewPersistence opens the database, verifies the connection and runs migrations.
func NewPersistence(ctx context.Context, logger *slog.Logger, driver, dsn string) (*Persistence, error) {
	dialect, err := ParseDialect(driver)
	if err != nil {
		return nil, err
	}

	database, err := sql.Open(dialect.DriverName(), dialect.DSN(dsn))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s database: %w", dialect, err)
	}

	if dialect == SQLite {
		database.SetMaxOpenConns(1)
	}

	err = database.PingContext(ctx)
	if err != nil {
		_ = database.Close()

		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations(dialect), dialect.Placeholder())

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		_ = database.Close()

		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{
		db:         database,
		logger:     logger,
		dialect:    dialect,
		operations: NewOperationRepository(database, dialect, logger),
		projects:   NewProjectRepository(database, dialect, logger),
		workflows:  NewWorkflowRepository(database, dialect, logger),
		nodes:      NewNodeRepository(database, dialect, logger),
		edges:      NewEdgeRepository(database, dialect, logger),
		progress:   NewProgressRepository(database, dialect, logger),
	}, nil
}

func (p *Persistence) Operations() persistence.OperationRepository { return p.operations }
func (p *Persistence) Projects() persistence.ProjectRepository     { return p.projects }
func (p *Persistence) Workflows() persistence.WorkflowRepository   { return p.workflows }
func (p *Persistence) Nodes() persistence.NodeRepository           { return p.nodes }
func (p *Persistence) Edges() persistence.EdgeRepository           { return p.edges }
func (p *Persistence) Progress() persistence.ProgressRepository    { return p.progress }

// Dialect returns the dialect the persistence was opened with.
func (p *Persistence) Dialect() Dialect {
	return p.dialect
}

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// withTx runs fn inside a transaction, rolling back when fn fails.
func withTx(ctx context.Context, db *sql.DB, logger *slog.Logger, fn func(tx *sql.Tx) error) error {
	return inTx(ctx, db, logger, nil, fn)
}

// withReadTx runs fn against a single read-only snapshot so related SELECTs agree with each other.
func withReadTx(ctx context.Context, db *sql.DB, logger *slog.Logger, fn func(tx *sql.Tx) error) error {
	return inTx(ctx, db, logger, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}, fn)
}

func inTx(ctx context.Context, db *sql.DB, logger *slog.Logger, opts *sql.TxOptions, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
			logger.ErrorContext(ctx, "failed to rollback transaction", "error", rollbackErr)
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func closeRows(ctx context.Context, logger *slog.Logger, rows *sql.Rows) {
	if closeErr := rows.Close(); closeErr != nil {
		logger.ErrorContext(ctx, "failed to close rows", "error", closeErr)
	}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}

	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}

	s := ns.String

	return &s
}
