package icfg

import "errors"

// Structural violations abort construction. Errors returned by Build wrap one
// of these, together with the offending function identity or node id.
var (
	// ErrIdentityCollision is returned when two different function graphs
	// are supplied under the same identity.
	ErrIdentityCollision = errors.New("function identity collision")

	// ErrDanglingEdge is returned when an edge names a node that was never created.
	ErrDanglingEdge = errors.New("edge references unknown node")

	// ErrMalformedFunction is returned for function graphs without exactly one
	// entry node, or with duplicate local node ids.
	ErrMalformedFunction = errors.New("malformed function graph")

	// ErrGraphTooLarge is returned when the configured node or edge ceiling is exceeded.
	ErrGraphTooLarge = errors.New("graph too large")
)
