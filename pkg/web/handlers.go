// Package web provides the REST API for the operation catalog, project workflows and progress reports.
package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dukex/opsplan/pkg/models"
	"github.com/dukex/opsplan/pkg/persistence"
	"github.com/dukex/opsplan/pkg/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

type APIHandlers struct {
	catalog   *services.Catalog
	workflow  *services.Workflow
	progress  *services.Progress
	validator *validator.Validate
	logger    *slog.Logger
}

func NewAPIHandlers(
	catalog *services.Catalog,
	workflow *services.Workflow,
	progress *services.Progress,
	validator *validator.Validate,
	logger *slog.Logger,
) *APIHandlers {
	return &APIHandlers{
		catalog:   catalog,
		workflow:  workflow,
		progress:  progress,
		validator: validator,
		logger:    logger,
	}
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, ok := h.workflow.HealthCheck(c.Context())

	response := HealthResponse{
		Status:    "unhealthy",
		Message:   "opsplan API is unhealthy",
		Checkers:  map[string]string{"repository": repositoryCheck},
		Timestamp: time.Now().UTC(),
	}

	status := http.StatusInternalServerError
	if ok {
		response.Status = "healthy"
		response.Message = "opsplan API is healthy"
		status = http.StatusOK
	}

	return c.Status(status).JSON(response)
}

func (h *APIHandlers) ListOperations(c fiber.Ctx) error {
	operations, err := h.catalog.List(c.Context(), c.Params("orgId"), c.Query("search"))
	if err != nil {
		return h.serviceError(c, err)
	}

	return c.JSON(operations)
}

func (h *APIHandlers) CreateOperation(c fiber.Ctx) error {
	var req CreateOperationRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.catalog.Create(c.Context(), &models.Operation{
		OrganizationID: c.Params("orgId"),
		Name:           req.Name,
		Code:           req.Code,
		Icon:           req.Icon,
		Description:    req.Description,
		IsFinal:        req.IsFinal,
		ExpertiseID:    req.ExpertiseID,
	})
	if err != nil {
		return h.serviceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) GetOperation(c fiber.Ctx) error {
	operation, err := h.catalog.Get(c.Context(), c.Params("id"))
	if err != nil {
		return h.serviceError(c, err)
	}

	return c.JSON(operation)
}

func (h *APIHandlers) UpdateOperation(c fiber.Ctx) error {
	var req UpdateOperationRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	existing, err := h.catalog.Get(c.Context(), c.Params("id"))
	if err != nil {
		return h.serviceError(c, err)
	}

	if req.Name != nil {
		existing.Name = *req.Name
	}

	if req.Code != nil {
		existing.Code = *req.Code
	}

	if req.Icon != nil {
		existing.Icon = *req.Icon
	}

	if req.Description != nil {
		existing.Description = *req.Description
	}

	if req.IsFinal != nil {
		existing.IsFinal = *req.IsFinal
	}

	if req.ExpertiseID != nil {
		existing.ExpertiseID = req.ExpertiseID
	}

	updated, err := h.catalog.Update(c.Context(), existing)
	if err != nil {
		return h.serviceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteOperation(c fiber.Ctx) error {
	if err := h.catalog.Delete(c.Context(), c.Params("id")); err != nil {
		return h.serviceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) ProjectOperations(c fiber.Ctx) error {
	operations, err := h.catalog.ProjectOperations(c.Context(), c.Params("id"))
	if err != nil {
		return h.serviceError(c, err)
	}

	return c.JSON(operations)
}

func (h *APIHandlers) LinkProjectOperation(c fiber.Ctx) error {
	var req LinkOperationRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	linked, err := h.catalog.AddProjectOperation(c.Context(), c.Params("id"), req.OperationID)
	if err != nil {
		return h.serviceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(linked)
}

func (h *APIHandlers) GetProjectWorkflow(c fiber.Ctx) error {
	workflow, err := h.workflow.WorkflowByProject(c.Context(), c.Params("id"))
	if err != nil {
		return h.serviceError(c, err)
	}

	if workflow == nil {
		return h.serviceError(c, persistence.NewProjectWorkflowError("GetProjectWorkflow", c.Params("id"), persistence.ErrWorkflowNotFound))
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) EnsureProjectWorkflow(c fiber.Ctx) error {
	workflow, err := h.workflow.EnsureWorkflow(c.Context(), c.Params("id"))
	if err != nil {
		return h.serviceError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) CreateNode(c fiber.Ctx) error {
	var req CreateNodeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.workflow.CreateNode(c.Context(), c.Params("id"), &models.WorkflowNode{
		ID:            req.ID,
		Kind:          req.Kind,
		OperationID:   req.OperationID,
		Position:      req.Position,
		EstimatedTime: req.EstimatedTime,
	})
	if err != nil {
		return h.serviceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) UpdateNode(c fiber.Ctx) error {
	var req UpdateNodeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	workflowID := c.Params("id")

	workflow, err := h.workflow.FetchByID(c.Context(), workflowID)
	if err != nil {
		return h.serviceError(c, err)
	}

	existing := workflow.NodeByID(c.Params("nodeId"))
	if existing == nil {
		return h.serviceError(c, &persistence.NodeError{Op: "UpdateNode", WorkflowID: workflowID, NodeID: c.Params("nodeId"), Err: persistence.ErrNodeNotFound})
	}

	node := existing.Clone()

	if req.Position != nil {
		node.Position = *req.Position
	}

	if req.EstimatedTime != nil {
		node.EstimatedTime = *req.EstimatedTime
	}

	if req.OperationID != nil {
		node.OperationID = req.OperationID
	}

	updated, err := h.workflow.UpdateNode(c.Context(), workflowID, node)
	if err != nil {
		return h.serviceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteNode(c fiber.Ctx) error {
	nodeID := c.Params("nodeId")

	removed, err := h.workflow.DeleteNode(c.Context(), c.Params("id"), nodeID)
	if err != nil {
		return h.serviceError(c, err)
	}

	if removed == nil {
		removed = []string{}
	}

	return c.JSON(DeleteNodeResponse{NodeID: nodeID, RemovedEdgeIDs: removed})
}

func (h *APIHandlers) CreateEdge(c fiber.Ctx) error {
	var req CreateEdgeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.workflow.CreateEdge(c.Context(), c.Params("id"), &models.WorkflowEdge{
		ID:       req.ID,
		SourceID: req.SourceID,
		TargetID: req.TargetID,
		Label:    req.Label,
		Data:     req.Data,
	})
	if err != nil {
		return h.serviceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) UpdateEdge(c fiber.Ctx) error {
	var req UpdateEdgeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	workflowID := c.Params("id")

	workflow, err := h.workflow.FetchByID(c.Context(), workflowID)
	if err != nil {
		return h.serviceError(c, err)
	}

	existing := workflow.EdgeByID(c.Params("edgeId"))
	if existing == nil {
		return h.serviceError(c, &persistence.EdgeError{Op: "UpdateEdge", WorkflowID: workflowID, EdgeID: c.Params("edgeId"), Err: persistence.ErrEdgeNotFound})
	}

	edge := existing.Clone()

	if req.SourceID != nil {
		edge.SourceID = *req.SourceID
	}

	if req.TargetID != nil {
		edge.TargetID = *req.TargetID
	}

	if req.Label != nil {
		edge.Label = *req.Label
	}

	if req.Data != nil {
		edge.Data = req.Data
	}

	if req.Count != nil {
		edge.Count = *req.Count
	}

	updated, err := h.workflow.UpdateEdge(c.Context(), workflowID, edge)
	if err != nil {
		return h.serviceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteEdge(c fiber.Ctx) error {
	if err := h.workflow.DeleteEdge(c.Context(), c.Params("id"), c.Params("edgeId")); err != nil {
		return h.serviceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// GetProgress serves the progress report of a command project. from and to accept
// RFC 3339 timestamps or dates; both empty selects the default window.
func (h *APIHandlers) GetProgress(c fiber.Ctx) error {
	from, err := parseTime(c.Query("from"))
	if err != nil {
		return badRequest(c, "Invalid from: "+err.Error())
	}

	to, err := parseTime(c.Query("to"))
	if err != nil {
		return badRequest(c, "Invalid to: "+err.Error())
	}

	report, err := h.progress.Report(c.Context(), c.Params("id"), from, to)
	if err != nil {
		return h.serviceError(c, err)
	}

	return c.JSON(report)
}

func (h *APIHandlers) RecordHistory(c fiber.Ctx) error {
	var req RecordHistoryRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	history, err := h.progress.RecordHistory(c.Context(), c.Params("id"), req.Count)
	if err != nil {
		return h.serviceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(history)
}

func (h *APIHandlers) serviceError(c fiber.Ctx, err error) error {
	if services.IsPersistenceFailure(err) || !(services.IsValidationError(err) || services.IsNotFoundError(err) || services.IsConflictError(err)) {
		h.logger.ErrorContext(c.Context(), "Request failed", "method", c.Method(), "path", c.Path(), "error", err)
	}

	return handleServiceError(c, err)
}

func parseTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}

	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}

	return time.Parse(time.DateOnly, value)
}
