package graph

import "github.com/dukex/opsplan/pkg/models"

type NodeChangeType string

const (
	NodeChangePosition NodeChangeType = "position"
	NodeChangeSelect   NodeChangeType = "select"
	NodeChangeRemove   NodeChangeType = "remove"
)

// NodeChange is a single UI-originated change to one node.
type NodeChange struct {
	Type     NodeChangeType  `json:"type"`
	ID       string          `json:"id"`
	Position models.Position `json:"position"` // For NodeChangePosition
	Selected bool            `json:"selected"` // For NodeChangeSelect
}

type EdgeChangeType string

const (
	EdgeChangeSelect EdgeChangeType = "select"
	EdgeChangeRemove EdgeChangeType = "remove"
)

// EdgeChange is a single UI-originated change to one edge.
type EdgeChange struct {
	Type     EdgeChangeType `json:"type"`
	ID       string         `json:"id"`
	Selected bool           `json:"selected"`
}
