package icfg

import "fmt"

// Reason explains the outcome of resolving a call site.
type Reason int

const (
	// Resolved call sites have at least one callee.
	Resolved Reason = iota
	// NoTarget denotes calls whose target cannot be determined statically,
	// e.g. low-level calls through a raw address.
	NoTarget
	// UnknownContract denotes calls into contracts outside the project.
	UnknownContract
	// NoImplementation denotes calls through a known type for which no
	// implementation was found in the project.
	NoImplementation
	// UnknownCallee is assigned by the builder when every candidate named
	// by the resolver is absent from the supplied function graphs.
	UnknownCallee
)

var reasonNames = [...]string{
	Resolved:         "resolved",
	NoTarget:         "no static target",
	UnknownContract:  "contract outside the project",
	NoImplementation: "no implementation in the project",
	UnknownCallee:    "callee without function graph",
}

func (r Reason) String() string {
	if r < 0 || int(r) >= len(reasonNames) {
		return fmt.Sprintf("Reason(%d)", int(r))
	}
	return reasonNames[r]
}

// Resolution is the ordered candidate set of a call site.
type Resolution struct {
	Callees []Identity
	Reason  Reason
	// Target is a human readable description of the call target, used in
	// diagnostics.
	Target string
}

// SiteKey names a call site by its function and local node id.
type SiteKey struct {
	Function Identity
	Local    int
}

// CallSites maps call sites to their resolutions. Call sites without an entry
// are treated as unresolved.
type CallSites map[SiteKey]Resolution

// UnresolvedCall records a call site that received no call edge.
type UnresolvedCall struct {
	Site   NodeID
	Reason Reason
	Target string
}
