package frontend

import (
	"fmt"

	"github.com/cs-au-dk/icfg/analysis/icfg"
	"github.com/cs-au-dk/icfg/analysis/resolve"
)

// Program is a project adapted to the inputs of the ICFG builder.
type Program struct {
	// Functions holds a function graph for every implemented function, in
	// contract declaration order.
	Functions []*icfg.FunctionGraph
	Hierarchy *resolve.Hierarchy
	// Sites lists the call expression of every call site node.
	Sites []resolve.Site
}

// Adapt converts a decoded project. Functions without an implementation
// contribute to the hierarchy but yield no function graph. Two declarations
// of the same contract, or of the same signature within a contract, are an
// identity collision.
func Adapt(p *Project) (*Program, error) {
	prog := new(Program)
	contracts := make([]*resolve.Contract, 0, len(p.Contracts))
	declared := make(map[string]int, len(p.Contracts))

	for i, cd := range p.Contracts {
		if cd.Name == "" {
			return nil, fmt.Errorf("%w: contract without a name", ErrInvalidManifest)
		}
		if first, ok := declared[cd.Name]; ok {
			return nil, fmt.Errorf("%w: contract %s declared at positions %d and %d",
				icfg.ErrIdentityCollision, cd.Name, first, i)
		}
		declared[cd.Name] = i
		kind, err := resolve.ParseContractKind(cd.Kind)
		if err != nil {
			return nil, fmt.Errorf("%w: contract %s: %v", ErrInvalidManifest, cd.Name, err)
		}

		c := &resolve.Contract{
			Name:  cd.Name,
			Kind:  kind,
			Bases: cd.Bases,
		}
		contracts = append(contracts, c)

		signatures := make(map[string]bool, len(cd.Functions))
		for _, fd := range cd.Functions {
			if fd.Signature == "" {
				return nil, fmt.Errorf("%w: contract %s: function without a signature", ErrInvalidManifest, cd.Name)
			}
			if signatures[fd.Signature] {
				return nil, fmt.Errorf("%w: %s declared twice",
					icfg.ErrIdentityCollision, icfg.Identity{Scope: cd.Name, Signature: fd.Signature})
			}
			signatures[fd.Signature] = true
			implemented := fd.IsImplemented()
			c.Functions = append(c.Functions, resolve.Function{
				Signature:   fd.Signature,
				Implemented: implemented,
			})
			if !implemented {
				continue
			}

			fun, sites, err := adaptFunction(icfg.Identity{Scope: cd.Name, Signature: fd.Signature}, fd)
			if err != nil {
				return nil, err
			}
			prog.Functions = append(prog.Functions, fun)
			prog.Sites = append(prog.Sites, sites...)
		}
	}

	prog.Hierarchy = resolve.NewHierarchy(contracts)
	return prog, nil
}

func adaptFunction(id icfg.Identity, fd FunctionDecl) (*icfg.FunctionGraph, []resolve.Site, error) {
	fun := &icfg.FunctionGraph{
		Identity: id,
		Nodes:    make([]icfg.LocalNode, 0, len(fd.Nodes)),
		Edges:    make([]icfg.LocalEdge, 0, len(fd.Edges)),
	}
	var sites []resolve.Site

	for _, nd := range fd.Nodes {
		kind, err := icfg.ParseKind(nd.Kind)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %s: node %d: %v", ErrInvalidManifest, id, nd.ID, err)
		}

		n := icfg.LocalNode{
			ID:         nd.ID,
			Label:      nd.Label,
			Repr:       nd.Repr,
			Kind:       kind,
			Entry:      nd.Entry,
			Exit:       nd.Exit,
			Call:       nd.Call != nil,
			ReturnSite: nd.ReturnSite,
		}
		fun.Nodes = append(fun.Nodes, n)

		if nd.Call != nil {
			ck, err := resolve.ParseCallKind(nd.Call.Kind)
			if err != nil {
				return nil, nil, fmt.Errorf("%w: %s: node %d: %v", ErrInvalidManifest, id, nd.ID, err)
			}
			sites = append(sites, resolve.Site{
				Key: icfg.SiteKey{Function: id, Local: nd.ID},
				Call: resolve.CallExpr{
					Kind:     ck,
					Receiver: nd.Call.Receiver,
					Function: nd.Call.Function,
				},
			})
		}
	}

	for _, ed := range fd.Edges {
		fun.Edges = append(fun.Edges, icfg.LocalEdge{Src: ed.Src, Dst: ed.Dst})
	}

	return fun, sites, nil
}

// Resolve runs the call resolver over every call site of the program.
func (p *Program) Resolve(opts resolve.Options) icfg.CallSites {
	return resolve.New(p.Hierarchy, opts).ResolveAll(p.Sites)
}

// Build resolves the program and constructs its ICFG.
func (p *Program) Build(ropts resolve.Options, opts icfg.Options) (*icfg.Graph, error) {
	return icfg.Build(p.Functions, p.Resolve(ropts), opts)
}
