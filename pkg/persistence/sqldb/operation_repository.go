package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dukex/opsplan/pkg/models"
	"github.com/dukex/opsplan/pkg/persistence"
)

const operationColumns = `id, organization_id, name, code, icon, description, is_final, expertise_id, created_at, updated_at`

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// OperationRepository handles catalog database operations.
type OperationRepository struct {
	db      *sql.DB
	dialect Dialect
	logger  *slog.Logger
}

// NewOperationRepository creates a new operation repository.
func NewOperationRepository(db *sql.DB, dialect Dialect, logger *slog.Logger) *OperationRepository {
	return &OperationRepository{db: db, dialect: dialect, logger: logger}
}

// List returns the operations of an organization ordered by name, optionally filtered by name.
func (r *OperationRepository) List(ctx context.Context, organizationID, search string) ([]*models.Operation, error) {
	query := `SELECT ` + operationColumns + ` FROM operations WHERE organization_id = $1`
	args := []any{organizationID}

	if search != "" {
		query += ` AND ` + r.dialect.Lower("name") + ` LIKE $2 ESCAPE '\'`
		args = append(args, "%"+likeEscaper.Replace(strings.ToLower(search))+"%")
	}

	query += ` ORDER BY name, id`

	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(query), args...)
	if err != nil {
		return nil, &persistence.OperationError{Op: "List", OrganizationID: organizationID, Err: err}
	}

	defer closeRows(ctx, r.logger, rows)

	operations := make([]*models.Operation, 0)

	for rows.Next() {
		operation, err := scanOperation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan operation: %w", err)
		}

		operations = append(operations, operation)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating operations: %w", err)
	}

	return operations, nil
}

func (r *OperationRepository) GetByID(ctx context.Context, id string) (*models.Operation, error) {
	query := `SELECT ` + operationColumns + ` FROM operations WHERE id = $1`

	operation, err := scanOperation(r.db.QueryRowContext(ctx, r.dialect.Rebind(query), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &persistence.OperationError{Op: "GetByID", OperationID: id, Err: persistence.ErrOperationNotFound}
		}

		return nil, &persistence.OperationError{Op: "GetByID", OperationID: id, Err: err}
	}

	return operation, nil
}

func (r *OperationRepository) GetByCode(ctx context.Context, organizationID, code string) (*models.Operation, error) {
	query := `SELECT ` + operationColumns + ` FROM operations WHERE organization_id = $1 AND code = $2`

	operation, err := scanOperation(r.db.QueryRowContext(ctx, r.dialect.Rebind(query), organizationID, code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &persistence.OperationError{Op: "GetByCode", OrganizationID: organizationID, Err: persistence.ErrOperationNotFound}
		}

		return nil, &persistence.OperationError{Op: "GetByCode", OrganizationID: organizationID, Err: err}
	}

	return operation, nil
}

// Create inserts an operation. A taken (organization, code) pair fails with ErrDuplicateOperationCode.
func (r *OperationRepository) Create(ctx context.Context, operation *models.Operation) error {
	now := time.Now().UTC()
	if operation.CreatedAt.IsZero() {
		operation.CreatedAt = now
	}

	operation.UpdatedAt = now

	query := `
		INSERT INTO operations (` + operationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(ctx, r.dialect.Rebind(query),
		operation.ID,
		operation.OrganizationID,
		operation.Name,
		operation.Code,
		string(operation.Icon),
		operation.Description,
		operation.IsFinal,
		nullString(operation.ExpertiseID),
		operation.CreatedAt.UTC(),
		operation.UpdatedAt,
	)
	if err != nil {
		return &persistence.OperationError{Op: "Create", OperationID: operation.ID, Err: r.translate(err)}
	}

	return nil
}

func (r *OperationRepository) Update(ctx context.Context, operation *models.Operation) error {
	operation.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE operations
		SET name = $1, code = $2, icon = $3, description = $4, is_final = $5, expertise_id = $6, updated_at = $7
		WHERE id = $8
	`

	result, err := r.db.ExecContext(ctx, r.dialect.Rebind(query),
		operation.Name,
		operation.Code,
		string(operation.Icon),
		operation.Description,
		operation.IsFinal,
		nullString(operation.ExpertiseID),
		operation.UpdatedAt,
		operation.ID,
	)
	if err != nil {
		return &persistence.OperationError{Op: "Update", OperationID: operation.ID, Err: r.translate(err)}
	}

	return requireAffected(result, &persistence.OperationError{Op: "Update", OperationID: operation.ID, Err: persistence.ErrOperationNotFound})
}

// Delete removes an operation and its project links. Nodes still referencing it make the delete fail.
func (r *OperationRepository) Delete(ctx context.Context, id string) error {
	return withTx(ctx, r.db, r.logger, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, r.dialect.Rebind(`DELETE FROM project_operations WHERE operation_id = $1`), id)
		if err != nil {
			return &persistence.OperationError{Op: "Delete", OperationID: id, Err: err}
		}

		result, err := tx.ExecContext(ctx, r.dialect.Rebind(`DELETE FROM operations WHERE id = $1`), id)
		if err != nil {
			return &persistence.OperationError{Op: "Delete", OperationID: id, Err: err}
		}

		return requireAffected(result, &persistence.OperationError{Op: "Delete", OperationID: id, Err: persistence.ErrOperationNotFound})
	})
}

func (r *OperationRepository) translate(err error) error {
	if r.dialect.IsUniqueViolation(err) {
		return fmt.Errorf("%w: %w", persistence.ErrDuplicateOperationCode, err)
	}

	return err
}

func scanOperation(row scanner) (*models.Operation, error) {
	var (
		operation   models.Operation
		icon        string
		expertiseID sql.NullString
	)

	err := row.Scan(
		&operation.ID,
		&operation.OrganizationID,
		&operation.Name,
		&operation.Code,
		&icon,
		&operation.Description,
		&operation.IsFinal,
		&expertiseID,
		&operation.CreatedAt,
		&operation.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	operation.Icon = models.Icon(icon)
	operation.ExpertiseID = stringPtr(expertiseID)

	return &operation, nil
}

// requireAffected returns notFound when the statement touched no rows.
func requireAffected(result sql.Result, notFound error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return notFound
	}

	return nil
}
