package resolve

import (
	"fmt"
	"strings"

	"github.com/cs-au-dk/icfg/analysis/icfg"
)

// ContractKind distinguishes deployable contracts from types that only
// declare functions.
type ContractKind int

const (
	Concrete ContractKind = iota
	Interface
	Abstract
	Library
)

var contractKindNames = [...]string{
	Concrete:  "contract",
	Interface: "interface",
	Abstract:  "abstract",
	Library:   "library",
}

func (k ContractKind) String() string {
	if k < 0 || int(k) >= len(contractKindNames) {
		return fmt.Sprintf("ContractKind(%d)", int(k))
	}
	return contractKindNames[k]
}

// ParseContractKind maps manifest kind names to contract kinds. The empty
// string denotes a plain contract.
func ParseContractKind(s string) (ContractKind, error) {
	if s == "" {
		return Concrete, nil
	}
	for k, name := range contractKindNames {
		if strings.EqualFold(name, s) {
			return ContractKind(k), nil
		}
	}
	return Concrete, fmt.Errorf("unknown contract kind %q", s)
}

// Function is a function declared by a contract.
type Function struct {
	Signature string
	// Implemented is false for functions without a body, e.g. interface members.
	Implemented bool
}

func (f Function) name() string {
	if i := strings.IndexByte(f.Signature, '('); i >= 0 {
		return f.Signature[:i]
	}
	return f.Signature
}

// matches reports whether the function is named by the given call target. A
// target with a parameter list must match the signature exactly; a bare name
// matches any overload.
func (f Function) matches(target string) bool {
	if strings.IndexByte(target, '(') >= 0 {
		return f.Signature == target
	}
	return f.name() == target
}

// Contract is a scope that declares functions.
type Contract struct {
	Name string
	Kind ContractKind
	// Bases is the linearised inheritance chain, nearest base first, not
	// including the contract itself.
	Bases     []string
	Functions []Function
}

// Hierarchy is the inheritance structure of every contract of a project.
type Hierarchy struct {
	contracts []*Contract
	byName    map[string]*Contract
}

// NewHierarchy indexes the given contracts. Declaration order is preserved
// and used to break ties during dispatch. When two contracts share a name the
// first one is used for lookups.
func NewHierarchy(contracts []*Contract) *Hierarchy {
	h := &Hierarchy{
		contracts: contracts,
		byName:    make(map[string]*Contract, len(contracts)),
	}
	for _, c := range contracts {
		if _, ok := h.byName[c.Name]; !ok {
			h.byName[c.Name] = c
		}
	}
	return h
}

// Contracts returns all contracts in declaration order.
func (h *Hierarchy) Contracts() []*Contract {
	return h.contracts
}

func (h *Hierarchy) Contract(name string) (*Contract, bool) {
	c, ok := h.byName[name]
	return c, ok
}

// Linearization returns the contract followed by its bases, skipping bases
// that are not part of the project.
func (h *Hierarchy) Linearization(name string) (ret []*Contract) {
	c, ok := h.byName[name]
	if !ok {
		return nil
	}
	ret = append(ret, c)
	for _, base := range c.Bases {
		if b, ok := h.byName[base]; ok {
			ret = append(ret, b)
		}
	}
	return
}

// lookupIn finds the first implemented function matching the target along
// the given linearisation.
func lookupIn(lin []*Contract, target string) (icfg.Identity, bool) {
	for _, c := range lin {
		for _, f := range c.Functions {
			if f.Implemented && f.matches(target) {
				return icfg.Identity{Scope: c.Name, Signature: f.Signature}, true
			}
		}
	}
	return icfg.Identity{}, false
}

// Lookup resolves a function by walking the linearisation of a contract.
func (h *Hierarchy) Lookup(contract, target string) (icfg.Identity, bool) {
	return lookupIn(h.Linearization(contract), target)
}

// Derived returns every contract, in declaration order, that lists the given
// contract among its bases.
func (h *Hierarchy) Derived(name string) (ret []*Contract) {
	for _, c := range h.contracts {
		for _, base := range c.Bases {
			if base == name {
				ret = append(ret, c)
				break
			}
		}
	}
	return
}

// Declares reports whether a contract declares a function matching the target,
// implemented or not.
func (c *Contract) Declares(target string) bool {
	for _, f := range c.Functions {
		if f.matches(target) {
			return true
		}
	}
	return false
}
