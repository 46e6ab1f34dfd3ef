// Package editor keeps the workflow graph of one project in memory while it is edited and
// mirrors every structural change to the backend.
package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/opsplan/pkg/graph"
	"github.com/dukex/opsplan/pkg/models"
	"github.com/dukex/opsplan/pkg/services"
	"go.opentelemetry.io/otel/trace"
)

// Backend is the persistence surface an editing session talks to.
type Backend interface {
	ListOperations(ctx context.Context, organizationID, search string) ([]*models.Operation, error)
	CreateOperation(ctx context.Context, operation *models.Operation) (*models.Operation, error)
	ProjectOperations(ctx context.Context, projectID string) ([]*models.ProjectOperation, error)
	AddProjectOperation(ctx context.Context, projectID, operationID string) (*models.ProjectOperation, error)

	WorkflowByProject(ctx context.Context, projectID string) (*models.Workflow, error)
	EnsureWorkflow(ctx context.Context, projectID string) (*models.Workflow, error)

	CreateNode(ctx context.Context, workflowID string, node *models.WorkflowNode) (*models.WorkflowNode, error)
	UpdateNode(ctx context.Context, workflowID string, node *models.WorkflowNode) (*models.WorkflowNode, error)
	DeleteNode(ctx context.Context, workflowID, nodeID string) ([]string, error)

	CreateEdge(ctx context.Context, workflowID string, edge *models.WorkflowEdge) (*models.WorkflowEdge, error)
	UpdateEdge(ctx context.Context, workflowID string, edge *models.WorkflowEdge) (*models.WorkflowEdge, error)
	DeleteEdge(ctx context.Context, workflowID, edgeID string) error
}

var _ Backend = (*services.Backend)(nil)

var (
	ErrSessionClosed    = errors.New("editing session is closed")
	ErrNotLoaded        = errors.New("editing session is not loaded")
	ErrProjectRequired  = errors.New("project id is required")
	ErrUnknownOperation = services.ErrUnknownOperation
)

const (
	DefaultTimeout       = 10 * time.Second
	DefaultMaxRetries    = 3
	DefaultRetryInterval = 200 * time.Millisecond
)

// Config scopes a session to one project and bounds its backend calls.
type Config struct {
	OrganizationID string
	ProjectID      string
	Policy         graph.Policy

	// Timeout bounds each backend attempt.
	Timeout time.Duration
	// MaxRetries is the number of extra attempts after a persistence failure. Zero disables retries.
	MaxRetries    uint64
	RetryInterval time.Duration

	Tracer trace.Tracer
	Logger *slog.Logger
}

// SyncError reports a backend call that failed. The store is left as it was before the call.
type SyncError struct {
	Op  string
	Err error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("sync %s: %v", e.Op, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}
