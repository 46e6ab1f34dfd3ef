package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/opsplan/pkg/models"
	"github.com/dukex/opsplan/pkg/persistence"
)

// ProjectRepository handles project and project-operation database operations.
type ProjectRepository struct {
	db      *sql.DB
	dialect Dialect
	logger  *slog.Logger
}

// NewProjectRepository creates a new project repository.
func NewProjectRepository(db *sql.DB, dialect Dialect, logger *slog.Logger) *ProjectRepository {
	return &ProjectRepository{db: db, dialect: dialect, logger: logger}
}

func (r *ProjectRepository) GetByID(ctx context.Context, id string) (*models.Project, error) {
	query := `SELECT id, organization_id, name, workflow_id FROM projects WHERE id = $1`

	var (
		project    models.Project
		workflowID sql.NullString
	)

	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(query), id).Scan(
		&project.ID,
		&project.OrganizationID,
		&project.Name,
		&workflowID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("project %s: %w", id, persistence.ErrProjectNotFound)
		}

		return nil, fmt.Errorf("failed to get project %s: %w", id, err)
	}

	project.WorkflowID = stringPtr(workflowID)

	return &project, nil
}

// Save inserts or updates a project.
func (r *ProjectRepository) Save(ctx context.Context, project *models.Project) error {
	query := `
		INSERT INTO projects (id, organization_id, name, workflow_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			organization_id = EXCLUDED.organization_id,
			name = EXCLUDED.name,
			workflow_id = EXCLUDED.workflow_id
	`

	_, err := r.db.ExecContext(ctx, r.dialect.Rebind(query),
		project.ID,
		project.OrganizationID,
		project.Name,
		nullString(project.WorkflowID),
	)
	if err != nil {
		return fmt.Errorf("failed to save project %s: %w", project.ID, err)
	}

	return nil
}

// Operations returns the operations linked to a project ordered by name.
func (r *ProjectRepository) Operations(ctx context.Context, projectID string) ([]*models.ProjectOperation, error) {
	query := `
		SELECT o.id, o.organization_id, o.name, o.code, o.icon, o.description, o.is_final, o.expertise_id, o.created_at, o.updated_at
		FROM project_operations po
		JOIN operations o ON o.id = po.operation_id
		WHERE po.project_id = $1
		ORDER BY o.name, o.id
	`

	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(query), projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query project operations: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	links := make([]*models.ProjectOperation, 0)

	for rows.Next() {
		operation, err := scanOperation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project operation: %w", err)
		}

		links = append(links, &models.ProjectOperation{
			ProjectID:   projectID,
			OperationID: operation.ID,
			Operation:   operation,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating project operations: %w", err)
	}

	return links, nil
}

// AddOperation links an operation to a project. Linking twice is a no-op.
func (r *ProjectRepository) AddOperation(ctx context.Context, projectID, operationID string) error {
	query := `
		INSERT INTO project_operations (project_id, operation_id)
		VALUES ($1, $2)
		ON CONFLICT (project_id, operation_id) DO NOTHING
	`

	_, err := r.db.ExecContext(ctx, r.dialect.Rebind(query), projectID, operationID)
	if err != nil {
		return fmt.Errorf("failed to link operation %s to project %s: %w", operationID, projectID, err)
	}

	return nil
}
