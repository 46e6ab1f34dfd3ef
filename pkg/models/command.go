package models

import "time"

// CommandProject is an order placed against a project with a completion target.
type CommandProject struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id" validate:"required"`
	Name      string `json:"name"`
	Target    int    `json:"target" validate:"gte=0"`
	Done      int    `json:"done" validate:"gte=0"`
}

// Sprint holds the per-sprint target of a command project.
type Sprint struct {
	ID               string `json:"id"`
	CommandProjectID string `json:"command_project_id" validate:"required"`
	Target           int    `json:"target"`
}

// Planning assigns an operator and post to an operation for a time window.
type Planning struct {
	ID               string    `json:"id"`
	CommandProjectID string    `json:"command_project_id" validate:"required"`
	OperationID      string    `json:"operation_id" validate:"required"`
	OperatorID       string    `json:"operator_id"`
	PostID           string    `json:"post_id"`
	StartAt          time.Time `json:"start_at"`
	EndAt            time.Time `json:"end_at"`
}

// OperationHistory is one recorded batch of completed units for a planning.
type OperationHistory struct {
	ID         string    `json:"id"`
	PlanningID string    `json:"planning_id" validate:"required"`
	Count      int       `json:"count" validate:"gte=0"`
	CreatedAt  time.Time `json:"created_at"`
}
