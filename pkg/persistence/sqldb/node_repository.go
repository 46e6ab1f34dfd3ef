package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/opsplan/pkg/models"
	"github.com/dukex/opsplan/pkg/persistence"
)

const nodeColumns = `id, workflow_id, kind, operation_id, position_x, position_y, estimated_time, created_at, updated_at`

// NodeRepository handles node-related database operations.
type NodeRepository struct {
	db      *sql.DB
	dialect Dialect
	logger  *slog.Logger
}

// NewNodeRepository creates a new node repository.
func NewNodeRepository(db *sql.DB, dialect Dialect, logger *slog.Logger) *NodeRepository {
	return &NodeRepository{db: db, dialect: dialect, logger: logger}
}

// ListByWorkflow retrieves all nodes of a workflow in creation order.
func (r *NodeRepository) ListByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowNode, error) {
	return listNodes(ctx, r.db, r.dialect, r.logger, workflowID)
}

// GetByID retrieves a specific node from a workflow.
func (r *NodeRepository) GetByID(ctx context.Context, workflowID, nodeID string) (*models.WorkflowNode, error) {
	query := `SELECT ` + nodeColumns + ` FROM workflow_nodes WHERE workflow_id = $1 AND id = $2`

	node, err := scanNode(r.db.QueryRowContext(ctx, r.dialect.Rebind(query), workflowID, nodeID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &persistence.NodeError{Op: "GetByID", WorkflowID: workflowID, NodeID: nodeID, Err: persistence.ErrNodeNotFound}
		}

		return nil, &persistence.NodeError{Op: "GetByID", WorkflowID: workflowID, NodeID: nodeID, Err: err}
	}

	return node, nil
}

func (r *NodeRepository) Create(ctx context.Context, node *models.WorkflowNode) error {
	now := time.Now().UTC()
	node.CreatedAt = now
	node.UpdatedAt = now

	query := `INSERT INTO workflow_nodes (` + nodeColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.ExecContext(ctx, r.dialect.Rebind(query),
		node.ID,
		node.WorkflowID,
		string(node.Kind),
		nullString(node.OperationID),
		node.Position.X,
		node.Position.Y,
		node.EstimatedTime,
		node.CreatedAt,
		node.UpdatedAt,
	)
	if err != nil {
		if r.dialect.IsUniqueViolation(err) {
			err = fmt.Errorf("%w: %w", persistence.ErrDuplicateID, err)
		}

		return &persistence.NodeError{Op: "Create", WorkflowID: node.WorkflowID, NodeID: node.ID, Err: err}
	}

	return nil
}

// Update stores the position, estimate and operation of an existing node.
func (r *NodeRepository) Update(ctx context.Context, node *models.WorkflowNode) error {
	node.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE workflow_nodes
		SET kind = $1, operation_id = $2, position_x = $3, position_y = $4, estimated_time = $5, updated_at = $6
		WHERE workflow_id = $7 AND id = $8
	`

	result, err := r.db.ExecContext(ctx, r.dialect.Rebind(query),
		string(node.Kind),
		nullString(node.OperationID),
		node.Position.X,
		node.Position.Y,
		node.EstimatedTime,
		node.UpdatedAt,
		node.WorkflowID,
		node.ID,
	)
	if err != nil {
		return &persistence.NodeError{Op: "Update", WorkflowID: node.WorkflowID, NodeID: node.ID, Err: err}
	}

	return requireAffected(result, &persistence.NodeError{Op: "Update", WorkflowID: node.WorkflowID, NodeID: node.ID, Err: persistence.ErrNodeNotFound})
}

// DeleteWithEdges deletes the node's incident edges and then the node in one transaction.
func (r *NodeRepository) DeleteWithEdges(ctx context.Context, workflowID, nodeID string) ([]string, error) {
	var removed []string

	err := withTx(ctx, r.db, r.logger, func(tx *sql.Tx) error {
		query := `SELECT id FROM workflow_edges WHERE workflow_id = $1 AND (source_id = $2 OR target_id = $2) ORDER BY created_at, id`

		rows, err := tx.QueryContext(ctx, r.dialect.Rebind(query), workflowID, nodeID)
		if err != nil {
			return fmt.Errorf("failed to query incident edges: %w", err)
		}

		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				closeRows(ctx, r.logger, rows)

				return fmt.Errorf("failed to scan edge id: %w", err)
			}

			removed = append(removed, id)
		}

		closeRows(ctx, r.logger, rows)

		if err := rows.Err(); err != nil {
			return fmt.Errorf("error iterating incident edges: %w", err)
		}

		query = `DELETE FROM workflow_edges WHERE workflow_id = $1 AND (source_id = $2 OR target_id = $2)`
		if _, err := tx.ExecContext(ctx, r.dialect.Rebind(query), workflowID, nodeID); err != nil {
			return fmt.Errorf("failed to delete incident edges: %w", err)
		}

		result, err := tx.ExecContext(ctx, r.dialect.Rebind(`DELETE FROM workflow_nodes WHERE workflow_id = $1 AND id = $2`), workflowID, nodeID)
		if err != nil {
			return fmt.Errorf("failed to delete node: %w", err)
		}

		return requireAffected(result, persistence.ErrNodeNotFound)
	})
	if err != nil {
		return nil, &persistence.NodeError{Op: "DeleteWithEdges", WorkflowID: workflowID, NodeID: nodeID, Err: err}
	}

	return removed, nil
}

// CountByOperation returns how many nodes, across all workflows, reference an operation.
func (r *NodeRepository) CountByOperation(ctx context.Context, operationID string) (int, error) {
	var count int

	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(`SELECT COUNT(*) FROM workflow_nodes WHERE operation_id = $1`), operationID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count nodes of operation %s: %w", operationID, err)
	}

	return count, nil
}

func listNodes(ctx context.Context, q execer, dialect Dialect, logger *slog.Logger, workflowID string) ([]*models.WorkflowNode, error) {
	query := `SELECT ` + nodeColumns + ` FROM workflow_nodes WHERE workflow_id = $1 ORDER BY created_at, id`

	rows, err := q.QueryContext(ctx, dialect.Rebind(query), workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflow nodes: %w", err)
	}

	defer closeRows(ctx, logger, rows)

	nodes := make([]*models.WorkflowNode, 0)

	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan node: %w", err)
		}

		nodes = append(nodes, node)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating nodes: %w", err)
	}

	return nodes, nil
}

func scanNode(row scanner) (*models.WorkflowNode, error) {
	var (
		node        models.WorkflowNode
		kind        string
		operationID sql.NullString
	)

	err := row.Scan(
		&node.ID,
		&node.WorkflowID,
		&kind,
		&operationID,
		&node.Position.X,
		&node.Position.Y,
		&node.EstimatedTime,
		&node.CreatedAt,
		&node.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	node.Kind = models.NodeKind(kind)
	node.OperationID = stringPtr(operationID)

	return &node, nil
}
