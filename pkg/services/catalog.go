package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dukex/opsplan/pkg/eventbus"
	"github.com/dukex/opsplan/pkg/events"
	"github.com/dukex/opsplan/pkg/models"
	"github.com/dukex/opsplan/pkg/persistence"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Catalog manages the per-organization operation catalog and the operations linked to projects.
type Catalog struct {
	persistence persistence.Persistence
	validate    *validator.Validate
	publisher   publisher
	logger      *slog.Logger
}

// NewCatalog creates a new catalog service. bus may be nil.
func NewCatalog(persistence persistence.Persistence, bus eventbus.EventPublisher, logger *slog.Logger) *Catalog {
	return &Catalog{
		persistence: persistence,
		validate:    models.NewValidator(),
		publisher:   publisher{bus: bus, logger: logger},
		logger:      logger,
	}
}

// List returns the operations of an organization ordered by name, filtered by a
// case-insensitive substring of the name when search is not blank.
func (c *Catalog) List(ctx context.Context, organizationID, search string) ([]*models.Operation, error) {
	if strings.TrimSpace(organizationID) == "" {
		return nil, NewValidationError("List", "organization_required", "organization id is required", errors.New("empty organization id"))
	}

	operations, err := c.persistence.Operations().List(ctx, organizationID, strings.TrimSpace(search))
	if err != nil {
		return nil, storageError("List", err)
	}

	return operations, nil
}

func (c *Catalog) Get(ctx context.Context, id string) (*models.Operation, error) {
	operation, err := c.persistence.Operations().GetByID(ctx, id)
	if err != nil {
		return nil, storageError("Get", err)
	}

	return operation, nil
}

// Create validates and inserts a catalog entry. An (organization, code) pair that is
// already taken fails with ErrDuplicateCode and nothing is inserted.
func (c *Catalog) Create(ctx context.Context, operation *models.Operation) (*models.Operation, error) {
	normalizeOperation(operation)

	if err := c.validate.Struct(operation); err != nil {
		return nil, NewValidationError("Create", "invalid_operation", err.Error(), err)
	}

	if err := c.checkCodeAvailable(ctx, "Create", operation); err != nil {
		return nil, err
	}

	if operation.ID == "" {
		operation.ID = uuid.Must(uuid.NewV7()).String()
	}

	if err := c.persistence.Operations().Create(ctx, operation); err != nil {
		if errors.Is(err, persistence.ErrDuplicateOperationCode) {
			return nil, duplicateCode("Create", operation)
		}

		return nil, storageError("Create", err)
	}

	c.logger.InfoContext(ctx, "Created operation", "operation_id", operation.ID, "organization_id", operation.OrganizationID, "code", operation.Code)

	c.publisher.publish(ctx, operation.OrganizationID, events.OperationCreated{
		BaseEvent:      events.NewBaseEvent(events.OperationCreatedEvent),
		OrganizationID: operation.OrganizationID,
		OperationID:    operation.ID,
		Code:           operation.Code,
	})

	return operation, nil
}

// Update replaces the editable fields of an existing operation. The organization never changes.
func (c *Catalog) Update(ctx context.Context, operation *models.Operation) (*models.Operation, error) {
	existing, err := c.persistence.Operations().GetByID(ctx, operation.ID)
	if err != nil {
		return nil, storageError("Update", err)
	}

	operation.OrganizationID = existing.OrganizationID
	operation.CreatedAt = existing.CreatedAt
	normalizeOperation(operation)

	if err := c.validate.Struct(operation); err != nil {
		return nil, NewValidationError("Update", "invalid_operation", err.Error(), err)
	}

	if err := c.checkCodeAvailable(ctx, "Update", operation); err != nil {
		return nil, err
	}

	if err := c.persistence.Operations().Update(ctx, operation); err != nil {
		if errors.Is(err, persistence.ErrDuplicateOperationCode) {
			return nil, duplicateCode("Update", operation)
		}

		return nil, storageError("Update", err)
	}

	c.publisher.publish(ctx, operation.OrganizationID, events.OperationUpdated{
		BaseEvent:      events.NewBaseEvent(events.OperationUpdatedEvent),
		OrganizationID: operation.OrganizationID,
		OperationID:    operation.ID,
		Code:           operation.Code,
	})

	return operation, nil
}

// Delete removes an operation that no workflow node references.
func (c *Catalog) Delete(ctx context.Context, id string) error {
	operation, err := c.persistence.Operations().GetByID(ctx, id)
	if err != nil {
		return storageError("Delete", err)
	}

	count, err := c.persistence.Nodes().CountByOperation(ctx, id)
	if err != nil {
		return storageError("Delete", err)
	}

	if count > 0 {
		return &ServiceError{
			Op:      "Delete",
			Code:    "operation_in_use",
			Message: fmt.Sprintf("operation %s is placed on %d workflow node(s)", id, count),
			Err:     ErrOperationInUse,
		}
	}

	if err := c.persistence.Operations().Delete(ctx, id); err != nil {
		return storageError("Delete", err)
	}

	c.publisher.publish(ctx, operation.OrganizationID, events.OperationDeleted{
		BaseEvent:      events.NewBaseEvent(events.OperationDeletedEvent),
		OrganizationID: operation.OrganizationID,
		OperationID:    id,
	})

	return nil
}

// ProjectOperations returns the operations usable in a project with their catalog entries.
func (c *Catalog) ProjectOperations(ctx context.Context, projectID string) ([]*models.ProjectOperation, error) {
	if _, err := c.persistence.Projects().GetByID(ctx, projectID); err != nil {
		return nil, storageError("ProjectOperations", err)
	}

	operations, err := c.persistence.Projects().Operations(ctx, projectID)
	if err != nil {
		return nil, storageError("ProjectOperations", err)
	}

	return operations, nil
}

// AddProjectOperation makes a catalog operation of the project's organization usable in the project.
func (c *Catalog) AddProjectOperation(ctx context.Context, projectID, operationID string) (*models.ProjectOperation, error) {
	project, err := c.persistence.Projects().GetByID(ctx, projectID)
	if err != nil {
		return nil, storageError("AddProjectOperation", err)
	}

	operation, err := c.persistence.Operations().GetByID(ctx, operationID)
	if err != nil {
		return nil, storageError("AddProjectOperation", err)
	}

	if operation.OrganizationID != project.OrganizationID {
		return nil, &ServiceError{
			Op:      "AddProjectOperation",
			Code:    "unknown_operation",
			Message: fmt.Sprintf("operation %s does not belong to organization %s", operationID, project.OrganizationID),
			Err:     ErrUnknownOperation,
		}
	}

	if err := c.persistence.Projects().AddOperation(ctx, projectID, operationID); err != nil {
		return nil, storageError("AddProjectOperation", err)
	}

	return &models.ProjectOperation{ProjectID: projectID, OperationID: operationID, Operation: operation}, nil
}

func (c *Catalog) checkCodeAvailable(ctx context.Context, op string, operation *models.Operation) error {
	existing, err := c.persistence.Operations().GetByCode(ctx, operation.OrganizationID, operation.Code)
	if err != nil {
		if persistence.IsOperationNotFound(err) {
			return nil
		}

		return storageError(op, err)
	}

	if existing.ID != operation.ID {
		return duplicateCode(op, operation)
	}

	return nil
}

func normalizeOperation(operation *models.Operation) {
	operation.Name = strings.TrimSpace(operation.Name)
	operation.Code = strings.TrimSpace(operation.Code)
	operation.Icon = operation.Icon.OrDefault()
}

func duplicateCode(op string, operation *models.Operation) error {
	return &ServiceError{
		Op:      op,
		Code:    "duplicate_code",
		Message: fmt.Sprintf("code %q is already used in organization %s", operation.Code, operation.OrganizationID),
		Err:     ErrDuplicateCode,
	}
}
