package models

// Project owns at most one workflow. WorkflowID is nil until the first graph edit.
type Project struct {
	ID             string  `json:"id"`
	OrganizationID string  `json:"organization_id" validate:"required"`
	Name           string  `json:"name" validate:"required"`
	WorkflowID     *string `json:"workflow_id"`
}

// HasWorkflow reports whether a workflow has been assigned.
func (p *Project) HasWorkflow() bool {
	return p.WorkflowID != nil && *p.WorkflowID != ""
}

// ProjectOperation declares a catalog operation usable in a project.
type ProjectOperation struct {
	ProjectID   string     `json:"project_id" validate:"required"`
	OperationID string     `json:"operation_id" validate:"required"`
	Operation   *Operation `json:"operation,omitempty"`
}
