package graph

import "errors"

var (
	// ErrNodeNotFound indicates no node with the given id is in the store.
	ErrNodeNotFound = errors.New("node not found")

	// ErrEdgeNotFound indicates no edge with the given id is in the store.
	ErrEdgeNotFound = errors.New("edge not found")

	// ErrDanglingReference indicates an edge endpoint is not a node of the store.
	ErrDanglingReference = errors.New("edge references a missing node")

	// ErrDuplicateEdge indicates an edge with the same id or the same (source, target) pair exists.
	ErrDuplicateEdge = errors.New("edge already exists")

	// ErrDuplicateNode indicates a node with the same id exists.
	ErrDuplicateNode = errors.New("node already exists")

	// ErrSelfLoop indicates an edge from a node to itself while self-loops are disallowed.
	ErrSelfLoop = errors.New("edge source and target are the same node")

	// ErrCycle indicates an edge would close a cycle while cycles are prevented.
	ErrCycle = errors.New("edge would create a cycle")

	// ErrNodeHasEdges indicates a node removal while incident edges remain.
	ErrNodeHasEdges = errors.New("node still has incident edges")

	ErrInvalidNode   = errors.New("invalid node")
	ErrInvalidEdge   = errors.New("invalid edge")
	ErrUnknownChange = errors.New("unknown change type")
)
