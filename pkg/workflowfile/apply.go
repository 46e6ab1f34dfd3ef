package workflowfile

import (
	"context"
	"fmt"

	"github.com/dukex/opsplan/pkg/editor"
	"github.com/dukex/opsplan/pkg/graph"
	"github.com/dukex/opsplan/pkg/log"
	"github.com/dukex/opsplan/pkg/models"
)

// Result maps document refs to the ids of the created nodes.
type Result struct {
	NodeIDs map[string]string
	Edges   int
}

// Export builds a document from a loaded session. Nodes are listed in topological order
// when the graph is acyclic, in insertion order otherwise.
func Export(session *editor.Session, project string) (*Document, error) {
	nodes := session.Nodes()

	byID := make(map[string]*models.WorkflowNode, len(nodes))
	for _, node := range nodes {
		byID[node.ID] = node
	}

	order, err := session.Order()
	if err != nil {
		order = make([]string, 0, len(nodes))
		for _, node := range nodes {
			order = append(order, node.ID)
		}
	}

	doc := &Document{Version: Version, Project: project}
	refs := make(map[string]string, len(nodes))

	for i, id := range order {
		node := byID[id]
		ref := fmt.Sprintf("n%d", i+1)
		refs[id] = ref

		entry := Node{
			Ref:           ref,
			Kind:          node.Kind,
			X:             node.Position.X,
			Y:             node.Position.Y,
			EstimatedTime: node.EstimatedTime,
		}

		if node.OperationID != nil {
			operation := session.PaletteOperation(*node.OperationID)
			if operation == nil {
				return nil, fmt.Errorf("%w: node %s references %s", ErrUnknownOperation, node.ID, *node.OperationID)
			}

			entry.Operation = operation.Code
		}

		doc.Nodes = append(doc.Nodes, entry)
	}

	for _, edge := range session.Edges() {
		doc.Edges = append(doc.Edges, Edge{From: refs[edge.SourceID], To: refs[edge.TargetID], Label: edge.Label})
	}

	return doc, nil
}

// Apply adds the nodes and edges of doc to the session's workflow. The document is checked
// against the palette and the session's edge policy before anything is written; when a
// write fails, the nodes created so far are deleted again.
func Apply(ctx context.Context, session *editor.Session, doc *Document) (*Result, error) {
	operations, err := resolveOperations(session, doc)
	if err != nil {
		return nil, err
	}

	if err := dryRun(session.Policy(), doc, operations); err != nil {
		return nil, err
	}

	result := &Result{NodeIDs: make(map[string]string, len(doc.Nodes))}

	for _, node := range doc.Nodes {
		created, err := createNode(ctx, session, node, operations)
		if created != nil {
			result.NodeIDs[node.Ref] = created.ID
		}

		if err != nil {
			rollback(ctx, session, result)

			return nil, fmt.Errorf("failed to create node %s: %w", node.Ref, err)
		}
	}

	for _, edge := range doc.Edges {
		if _, err := session.Connect(ctx, result.NodeIDs[edge.From], result.NodeIDs[edge.To], edge.Label); err != nil {
			rollback(ctx, session, result)

			return nil, fmt.Errorf("failed to connect %s -> %s: %w", edge.From, edge.To, err)
		}

		result.Edges++
	}

	return result, nil
}

func resolveOperations(session *editor.Session, doc *Document) (map[string]string, error) {
	byCode := make(map[string]string)

	for _, entry := range session.Palette() {
		if entry.Operation != nil {
			byCode[entry.Operation.Code] = entry.OperationID
		}
	}

	operations := make(map[string]string)

	for _, node := range doc.Nodes {
		if node.Kind != models.NodeKindOperation {
			continue
		}

		id, ok := byCode[node.Operation]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownOperation, node.Operation)
		}

		operations[node.Operation] = id
	}

	return operations, nil
}

// dryRun builds the document graph in a scratch store so edge violations surface before any write.
func dryRun(policy graph.Policy, doc *Document, operations map[string]string) error {
	scratch := graph.New(policy)

	for _, node := range doc.Nodes {
		if err := scratch.AddNode(toModel(node.Ref, node, operations)); err != nil {
			return fmt.Errorf("%w: node %s: %w", ErrInvalidDocument, node.Ref, err)
		}
	}

	for i, edge := range doc.Edges {
		record := &models.WorkflowEdge{ID: fmt.Sprintf("edge-%d", i), SourceID: edge.From, TargetID: edge.To, Label: edge.Label}
		if err := scratch.AddEdge(record); err != nil {
			return fmt.Errorf("%w: edge %s -> %s: %w", ErrInvalidDocument, edge.From, edge.To, err)
		}
	}

	return nil
}

func toModel(id string, node Node, operations map[string]string) *models.WorkflowNode {
	model := &models.WorkflowNode{
		ID:            id,
		Kind:          node.Kind,
		Position:      models.Position{X: node.X, Y: node.Y},
		EstimatedTime: node.EstimatedTime,
	}

	if node.Kind == models.NodeKindOperation {
		operationID := operations[node.Operation]
		model.OperationID = &operationID
	}

	return model
}

func createNode(ctx context.Context, session *editor.Session, node Node, operations map[string]string) (*models.WorkflowNode, error) {
	var (
		created *models.WorkflowNode
		err     error
	)

	if node.Kind == models.NodeKindOperation {
		created, err = session.DropOperation(ctx, operations[node.Operation], node.X, node.Y)
	} else {
		created, err = session.AddBranch(ctx, node.Kind, node.X, node.Y)
	}

	if err != nil {
		return nil, err
	}

	if node.EstimatedTime > 0 {
		if _, err := session.UpdateNodeEstimate(ctx, created.ID, node.EstimatedTime); err != nil {
			return created, err
		}

		created.EstimatedTime = node.EstimatedTime
	}

	return created, nil
}

func rollback(ctx context.Context, session *editor.Session, result *Result) {
	logger := log.WithModule("workflowfile")

	for ref, id := range result.NodeIDs {
		if _, err := session.DeleteNode(ctx, id); err != nil {
			logger.ErrorContext(ctx, "failed to remove imported node", "ref", ref, "node_id", id, "error", err)
		}
	}
}
