package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/dukex/opsplan/pkg/models"
	"github.com/dukex/opsplan/pkg/persistence"
)

// WorkflowRepository handles workflow-related database operations.
type WorkflowRepository struct {
	db      *sql.DB
	dialect Dialect
	logger  *slog.Logger
}

// NewWorkflowRepository creates a new workflow repository.
func NewWorkflowRepository(db *sql.DB, dialect Dialect, logger *slog.Logger) *WorkflowRepository {
	return &WorkflowRepository{db: db, dialect: dialect, logger: logger}
}

// GetByID retrieves a workflow with its nodes and edges.
func (r *WorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	query := `SELECT id, project_id, created_at, updated_at FROM workflows WHERE id = $1`

	workflow, err := r.load(ctx, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewWorkflowError("GetByID", id, persistence.ErrWorkflowNotFound)
		}

		return nil, persistence.NewWorkflowError("GetByID", id, err)
	}

	return workflow, nil
}

// GetByProject retrieves the workflow assigned to a project.
func (r *WorkflowRepository) GetByProject(ctx context.Context, projectID string) (*models.Workflow, error) {
	query := `SELECT id, project_id, created_at, updated_at FROM workflows WHERE project_id = $1`

	workflow, err := r.load(ctx, query, projectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewProjectWorkflowError("GetByProject", projectID, persistence.ErrWorkflowNotFound)
		}

		return nil, persistence.NewProjectWorkflowError("GetByProject", projectID, err)
	}

	return workflow, nil
}

func (r *WorkflowRepository) load(ctx context.Context, query string, arg string) (*models.Workflow, error) {
	var workflow models.Workflow

	err := withReadTx(ctx, r.db, r.logger, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, r.dialect.Rebind(query), arg).Scan(
			&workflow.ID,
			&workflow.ProjectID,
			&workflow.CreatedAt,
			&workflow.UpdatedAt,
		)
		if err != nil {
			return err
		}

		workflow.Nodes, err = listNodes(ctx, tx, r.dialect, r.logger, workflow.ID)
		if err != nil {
			return err
		}

		workflow.Edges, err = listEdges(ctx, tx, r.dialect, r.logger, workflow.ID)

		return err
	})
	if err != nil {
		return nil, err
	}

	return &workflow, nil
}

// Create inserts an empty workflow and assigns it to its project.
func (r *WorkflowRepository) Create(ctx context.Context, workflow *models.Workflow) error {
	now := time.Now().UTC()
	workflow.CreatedAt = now
	workflow.UpdatedAt = now

	err := withTx(ctx, r.db, r.logger, func(tx *sql.Tx) error {
		query := `INSERT INTO workflows (id, project_id, created_at, updated_at) VALUES ($1, $2, $3, $4)`

		_, err := tx.ExecContext(ctx, r.dialect.Rebind(query), workflow.ID, workflow.ProjectID, workflow.CreatedAt, workflow.UpdatedAt)
		if err != nil {
			if r.dialect.IsUniqueViolation(err) {
				return persistence.ErrWorkflowAlreadyExists
			}

			return err
		}

		result, err := tx.ExecContext(ctx, r.dialect.Rebind(`UPDATE projects SET workflow_id = $1 WHERE id = $2`), workflow.ID, workflow.ProjectID)
		if err != nil {
			return err
		}

		return requireAffected(result, persistence.ErrProjectNotFound)
	})
	if err != nil {
		return &persistence.WorkflowError{Op: "Create", WorkflowID: workflow.ID, ProjectID: workflow.ProjectID, Err: err}
	}

	return nil
}

// Delete removes a workflow with its edges and nodes and unassigns it from its project.
func (r *WorkflowRepository) Delete(ctx context.Context, id string) error {
	err := withTx(ctx, r.db, r.logger, func(tx *sql.Tx) error {
		for _, query := range []string{
			`UPDATE projects SET workflow_id = NULL WHERE workflow_id = $1`,
			`DELETE FROM workflow_edges WHERE workflow_id = $1`,
			`DELETE FROM workflow_nodes WHERE workflow_id = $1`,
		} {
			if _, err := tx.ExecContext(ctx, r.dialect.Rebind(query), id); err != nil {
				return err
			}
		}

		result, err := tx.ExecContext(ctx, r.dialect.Rebind(`DELETE FROM workflows WHERE id = $1`), id)
		if err != nil {
			return err
		}

		return requireAffected(result, persistence.ErrWorkflowNotFound)
	})
	if err != nil {
		return persistence.NewWorkflowError("Delete", id, err)
	}

	return nil
}
