package sqldb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dukex/opsplan/pkg/models"
	"github.com/dukex/opsplan/pkg/persistence"
)

const edgeColumns = `id, workflow_id, source_id, target_id, label, data, usage_count, created_at, updated_at`

// EdgeRepository handles edge-related database operations.
type EdgeRepository struct {
	db      *sql.DB
	dialect Dialect
	logger  *slog.Logger
}

// NewEdgeRepository creates a new edge repository.
func NewEdgeRepository(db *sql.DB, dialect Dialect, logger *slog.Logger) *EdgeRepository {
	return &EdgeRepository{db: db, dialect: dialect, logger: logger}
}

// ListByWorkflow retrieves all edges of a workflow in creation order.
func (r *EdgeRepository) ListByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowEdge, error) {
	return listEdges(ctx, r.db, r.dialect, r.logger, workflowID)
}

func (r *EdgeRepository) GetByID(ctx context.Context, workflowID, edgeID string) (*models.WorkflowEdge, error) {
	query := `SELECT ` + edgeColumns + ` FROM workflow_edges WHERE workflow_id = $1 AND id = $2`

	edge, err := scanEdge(r.db.QueryRowContext(ctx, r.dialect.Rebind(query), workflowID, edgeID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &persistence.EdgeError{Op: "GetByID", WorkflowID: workflowID, EdgeID: edgeID, Err: persistence.ErrEdgeNotFound}
		}

		return nil, &persistence.EdgeError{Op: "GetByID", WorkflowID: workflowID, EdgeID: edgeID, Err: err}
	}

	return edge, nil
}

// Create inserts an edge. A taken (source, target) pair fails with ErrDuplicateEdge.
func (r *EdgeRepository) Create(ctx context.Context, edge *models.WorkflowEdge) error {
	dataJSON, err := marshalEdgeData(edge.Data)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	edge.CreatedAt = now
	edge.UpdatedAt = now

	query := `INSERT INTO workflow_edges (` + edgeColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err = r.db.ExecContext(ctx, r.dialect.Rebind(query),
		edge.ID,
		edge.WorkflowID,
		edge.SourceID,
		edge.TargetID,
		edge.Label,
		dataJSON,
		edge.Count,
		edge.CreatedAt,
		edge.UpdatedAt,
	)
	if err != nil {
		return &persistence.EdgeError{Op: "Create", WorkflowID: edge.WorkflowID, EdgeID: edge.ID, Err: r.translate(err)}
	}

	return nil
}

// Update stores endpoints, label, data and counter of an existing edge.
func (r *EdgeRepository) Update(ctx context.Context, edge *models.WorkflowEdge) error {
	dataJSON, err := marshalEdgeData(edge.Data)
	if err != nil {
		return err
	}

	edge.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE workflow_edges
		SET source_id = $1, target_id = $2, label = $3, data = $4, usage_count = $5, updated_at = $6
		WHERE workflow_id = $7 AND id = $8
	`

	result, err := r.db.ExecContext(ctx, r.dialect.Rebind(query),
		edge.SourceID,
		edge.TargetID,
		edge.Label,
		dataJSON,
		edge.Count,
		edge.UpdatedAt,
		edge.WorkflowID,
		edge.ID,
	)
	if err != nil {
		return &persistence.EdgeError{Op: "Update", WorkflowID: edge.WorkflowID, EdgeID: edge.ID, Err: r.translate(err)}
	}

	return requireAffected(result, &persistence.EdgeError{Op: "Update", WorkflowID: edge.WorkflowID, EdgeID: edge.ID, Err: persistence.ErrEdgeNotFound})
}

func (r *EdgeRepository) Delete(ctx context.Context, workflowID, edgeID string) error {
	result, err := r.db.ExecContext(ctx, r.dialect.Rebind(`DELETE FROM workflow_edges WHERE workflow_id = $1 AND id = $2`), workflowID, edgeID)
	if err != nil {
		return &persistence.EdgeError{Op: "Delete", WorkflowID: workflowID, EdgeID: edgeID, Err: err}
	}

	return requireAffected(result, &persistence.EdgeError{Op: "Delete", WorkflowID: workflowID, EdgeID: edgeID, Err: persistence.ErrEdgeNotFound})
}

// translate tells a repeated id apart from a repeated (source, target) pair.
func (r *EdgeRepository) translate(err error) error {
	if !r.dialect.IsUniqueViolation(err) {
		return err
	}

	message := err.Error()
	if strings.Contains(message, "source_id") || strings.Contains(message, "workflow_edges_workflow_id_source_id_target_id_key") {
		return fmt.Errorf("%w: %w", persistence.ErrDuplicateEdge, err)
	}

	return fmt.Errorf("%w: %w", persistence.ErrDuplicateID, err)
}

func listEdges(ctx context.Context, q execer, dialect Dialect, logger *slog.Logger, workflowID string) ([]*models.WorkflowEdge, error) {
	query := `SELECT ` + edgeColumns + ` FROM workflow_edges WHERE workflow_id = $1 ORDER BY created_at, id`

	rows, err := q.QueryContext(ctx, dialect.Rebind(query), workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflow edges: %w", err)
	}

	defer closeRows(ctx, logger, rows)

	edges := make([]*models.WorkflowEdge, 0)

	for rows.Next() {
		edge, err := scanEdge(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan edge: %w", err)
		}

		edges = append(edges, edge)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating edges: %w", err)
	}

	return edges, nil
}

func scanEdge(row scanner) (*models.WorkflowEdge, error) {
	var (
		edge     models.WorkflowEdge
		dataJSON []byte
	)

	err := row.Scan(
		&edge.ID,
		&edge.WorkflowID,
		&edge.SourceID,
		&edge.TargetID,
		&edge.Label,
		&dataJSON,
		&edge.Count,
		&edge.CreatedAt,
		&edge.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(dataJSON) > 0 {
		if err := json.Unmarshal(dataJSON, &edge.Data); err != nil {
			return nil, fmt.Errorf("failed to unmarshal edge data: %w", err)
		}
	}

	return &edge, nil
}

// marshalEdgeData encodes edge annotations; an empty map is stored as NULL.
func marshalEdgeData(data map[string]any) (any, error) {
	if len(data) == 0 {
		return nil, nil
	}

	encoded, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal edge data: %w", err)
	}

	return string(encoded), nil
}
