package resolve

import (
	"fmt"
	"strings"

	"github.com/cs-au-dk/icfg/analysis/icfg"
)

// CallKind classifies call expressions by how their target is named.
type CallKind int

const (
	// Internal calls name a function visible in the caller's contract,
	// either declared there or inherited.
	Internal CallKind = iota
	// Super calls skip the caller's contract in its linearisation.
	Super
	// HighLevel calls go through a typed contract or interface receiver.
	HighLevel
	// LibraryCall targets a function of a library.
	LibraryCall
	// LowLevel calls go through a raw address (call, delegatecall, staticcall).
	LowLevel
	// External calls target code outside the project.
	External
)

var callKindNames = [...]string{
	Internal:    "internal",
	Super:       "super",
	HighLevel:   "high_level",
	LibraryCall: "library",
	LowLevel:    "low_level",
	External:    "external",
}

func (k CallKind) String() string {
	if k < 0 || int(k) >= len(callKindNames) {
		return fmt.Sprintf("CallKind(%d)", int(k))
	}
	return callKindNames[k]
}

// ParseCallKind maps manifest call kind names to call kinds. The empty string
// denotes an internal call.
func ParseCallKind(s string) (CallKind, error) {
	if s == "" {
		return Internal, nil
	}
	for k, name := range callKindNames {
		if strings.EqualFold(name, s) {
			return CallKind(k), nil
		}
	}
	return Internal, fmt.Errorf("unknown call kind %q", s)
}

// CallExpr is the resolvable description of a call expression.
type CallExpr struct {
	Kind CallKind
	// Receiver is the static type of the call receiver for high-level and
	// library calls. It is ignored for other kinds.
	Receiver string
	// Function is a full signature or a bare function name.
	Function string
}

func (c CallExpr) String() string {
	switch c.Kind {
	case HighLevel, LibraryCall:
		return c.Receiver + "." + c.Function
	case Super:
		return "super." + c.Function
	case LowLevel:
		if c.Function == "" {
			return "<address>.call"
		}
		return "<address>." + c.Function
	}
	return c.Function
}

// Site is a call expression at a call site node.
type Site struct {
	Key  icfg.SiteKey
	Call CallExpr
}

type Options struct {
	// StructuralDispatch lets calls through an interface without nominal
	// implementers fan out to every contract implementing the function.
	StructuralDispatch bool
}

func DefaultOptions() Options {
	return Options{}
}

// Resolver computes candidate callees of call expressions against a
// contract hierarchy.
type Resolver struct {
	h    *Hierarchy
	opts Options
}

func New(h *Hierarchy, opts Options) *Resolver {
	return &Resolver{h: h, opts: opts}
}

func resolved(target string, callees ...icfg.Identity) icfg.Resolution {
	return icfg.Resolution{Callees: callees, Reason: icfg.Resolved, Target: target}
}

func failed(target string, reason icfg.Reason) icfg.Resolution {
	return icfg.Resolution{Reason: reason, Target: target}
}

// Resolve computes the ordered candidate set of a call expression made from
// the given function. Failing to resolve is not an error: the resolution then
// has no callees and its Reason says why.
func (r *Resolver) Resolve(caller icfg.Identity, call CallExpr) icfg.Resolution {
	target := call.String()

	switch call.Kind {
	case LowLevel:
		return failed(target, icfg.NoTarget)

	case External:
		return failed(target, icfg.UnknownContract)

	case Internal:
		lin := r.h.Linearization(caller.Scope)
		if lin == nil {
			return failed(target, icfg.UnknownContract)
		}
		if id, ok := lookupIn(lin, call.Function); ok {
			return resolved(target, id)
		}
		return failed(target, icfg.NoImplementation)

	case Super:
		lin := r.h.Linearization(caller.Scope)
		if lin == nil {
			return failed(target, icfg.UnknownContract)
		}
		if id, ok := lookupIn(lin[1:], call.Function); ok {
			return resolved(target, id)
		}
		return failed(target, icfg.NoImplementation)

	case LibraryCall:
		if _, ok := r.h.Contract(call.Receiver); !ok {
			return failed(target, icfg.UnknownContract)
		}
		if id, ok := r.h.Lookup(call.Receiver, call.Function); ok {
			return resolved(target, id)
		}
		return failed(target, icfg.NoImplementation)

	case HighLevel:
		return r.dispatch(call, target)
	}

	return failed(target, icfg.NoTarget)
}

// dispatch resolves calls through a typed receiver. Concrete receivers
// resolve through their own linearisation. Interface and abstract receivers
// fan out to every deployable contract deriving from them, in declaration
// order and without duplicates.
func (r *Resolver) dispatch(call CallExpr, target string) icfg.Resolution {
	recv, ok := r.h.Contract(call.Receiver)
	if !ok {
		return failed(target, icfg.UnknownContract)
	}

	if recv.Kind == Concrete || recv.Kind == Library {
		if id, ok := r.h.Lookup(recv.Name, call.Function); ok {
			return resolved(target, id)
		}
		return failed(target, icfg.NoImplementation)
	}

	var callees []icfg.Identity
	seen := make(map[icfg.Identity]bool)
	add := func(id icfg.Identity) {
		if !seen[id] {
			seen[id] = true
			callees = append(callees, id)
		}
	}

	for _, c := range r.h.Derived(recv.Name) {
		if c.Kind != Concrete {
			continue
		}
		if id, ok := r.h.Lookup(c.Name, call.Function); ok {
			add(id)
		}
	}

	if len(callees) == 0 {
		// An abstract receiver may carry the implementation itself.
		if id, ok := r.h.Lookup(recv.Name, call.Function); ok {
			add(id)
		}
	}

	if len(callees) == 0 && r.opts.StructuralDispatch {
		for _, c := range r.h.Contracts() {
			if c.Kind != Concrete || c == recv {
				continue
			}
			if id, ok := lookupIn([]*Contract{c}, call.Function); ok {
				add(id)
			}
		}
	}

	if len(callees) == 0 {
		return failed(target, icfg.NoImplementation)
	}
	return resolved(target, callees...)
}

// ResolveAll resolves every call site. Sites that share a key are resolved
// once, the first one winning.
func (r *Resolver) ResolveAll(sites []Site) icfg.CallSites {
	calls := make(icfg.CallSites, len(sites))
	for _, s := range sites {
		if _, ok := calls[s.Key]; ok {
			continue
		}
		calls[s.Key] = r.Resolve(s.Key.Function, s.Call)
	}
	return calls
}
