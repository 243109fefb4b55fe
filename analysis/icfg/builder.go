package icfg

import (
	"fmt"
	"log"

	"golang.org/x/sync/errgroup"
	"golang.org/x/tools/container/intsets"

	"github.com/cs-au-dk/icfg/utils"
)

var opts = utils.Opts()

// Options configures ICFG construction.
type Options struct {
	// MaxNodes and MaxEdges abort construction with ErrGraphTooLarge when
	// exceeded. Zero means unlimited.
	MaxNodes, MaxEdges int
	// Workers is the number of goroutines importing function graphs.
	Workers int
}

// DefaultOptions returns unlimited, sequential construction.
func DefaultOptions() Options {
	return Options{Workers: 1}
}

// imported is the result of importing a single function graph.
type imported struct {
	fun    *FunctionGraph
	layout *layout
	entry  *funEntry
	intra  []Edge
}

type builder struct {
	opts  Options
	graph *Graph
	funs  []*imported
	// byId indexes funs by identity. It is complete before any edge is wired.
	byId map[Identity]*imported
}

// Build constructs the ICFG of the given functions.
//
// Pass one imports every function graph exactly once, keyed by identity, and
// records the entry and exit nodes of each function. Pass two wires a call
// edge from every resolved call site to the entry of each of its callees, and
// a return edge from each exit of the callee to the return site of the call.
// Recursion only ever produces edges back into already imported nodes, so
// construction is linear in the number of nodes and call sites.
func Build(funs []*FunctionGraph, calls CallSites, options Options) (*Graph, error) {
	set, counters := newMetricSet()
	b := &builder{
		opts: options,
		byId: make(map[Identity]*imported, len(funs)),
		graph: &Graph{
			metrics:  set,
			counters: counters,
		},
	}

	if err := b.index(funs); err != nil {
		return nil, err
	}
	if err := b.importAll(calls); err != nil {
		return nil, err
	}
	if err := b.wire(calls); err != nil {
		return nil, err
	}
	if err := b.graph.check(); err != nil {
		return nil, err
	}
	return b.graph, nil
}

// index validates the function graphs and deduplicates them by identity.
// A function graph supplied twice with the same content is imported once.
func (b *builder) index(funs []*FunctionGraph) error {
	fingerprints := make(map[Identity]uint64, len(funs))

	for _, f := range funs {
		if f == nil {
			continue
		}
		fp := f.Fingerprint()
		if seen, ok := fingerprints[f.Identity]; ok {
			if seen != fp {
				return fmt.Errorf("%w: %s declared twice with different bodies", ErrIdentityCollision, f.Identity)
			}
			b.graph.counters[metricDuplicates].Inc()
			continue
		}
		fingerprints[f.Identity] = fp

		l, err := f.validate()
		if err != nil {
			return err
		}

		imp := &imported{fun: f, layout: l}
		b.funs = append(b.funs, imp)
		b.byId[f.Identity] = imp
	}

	return nil
}

// callees filters the resolution of a call site down to the candidates with a
// function graph, preserving order.
func (b *builder) callees(res Resolution) (ret []*imported) {
	for _, callee := range res.Callees {
		if imp, ok := b.byId[callee]; ok {
			ret = append(ret, imp)
		}
	}
	return
}

// importAll is pass one. Node ids are assigned from per-function offsets
// computed up front, so they do not depend on the order in which workers
// finish.
func (b *builder) importAll(calls CallSites) error {
	g := b.graph

	total := 0
	offsets := make([]int, len(b.funs))
	for i, imp := range b.funs {
		offsets[i] = total
		total += len(imp.fun.Nodes)
	}
	if b.opts.MaxNodes > 0 && total > b.opts.MaxNodes {
		return fmt.Errorf("%w: %d nodes exceed the limit of %d", ErrGraphTooLarge, total, b.opts.MaxNodes)
	}

	g.nodes = make([]*Node, total)

	workers := b.opts.Workers
	if workers < 1 {
		workers = 1
	}

	var eg errgroup.Group
	eg.SetLimit(workers)
	for i, imp := range b.funs {
		i, imp := i, imp
		eg.Go(func() error {
			b.importFunction(imp, NodeID(offsets[i]), calls)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	builder := utils.NewImmMapBuilder[Identity, *funEntry]()
	intra := 0
	for _, imp := range b.funs {
		builder.Set(imp.fun.Identity, imp.entry)
		g.order = append(g.order, imp.fun.Identity)
		intra += len(imp.intra)
	}
	g.funs = builder.Map()

	if b.opts.MaxEdges > 0 && intra > b.opts.MaxEdges {
		return fmt.Errorf("%w: %d intra-procedural edges exceed the limit of %d", ErrGraphTooLarge, intra, b.opts.MaxEdges)
	}

	g.edges = make([]Edge, 0, intra)
	for _, imp := range b.funs {
		g.edges = append(g.edges, imp.intra...)
	}

	g.counters[metricFunctions].Set(uint64(len(b.funs)))
	g.counters[metricNodes].Set(uint64(total))
	g.counters[edgeMetric(Intra)].Set(uint64(intra))
	return nil
}

// importFunction creates the nodes and intra-procedural edges of a single
// function. It only writes to the id range starting at first.
func (b *builder) importFunction(imp *imported, first NodeID, calls CallSites) {
	f, l := imp.fun, imp.layout

	returnSites := make(map[int]bool)
	for i, n := range f.Nodes {
		if n.isCall() {
			returnSites[l.returnSite(f, i)] = true
		}
	}

	for i, n := range f.Nodes {
		kind := Statement
		switch {
		case i == l.entry:
			kind = Entry
		case n.isCall():
			if len(b.callees(calls[SiteKey{f.Identity, n.ID}])) > 0 {
				kind = CallSite
			} else {
				kind = UnresolvedExternal
			}
		case n.isExit():
			kind = Exit
		case returnSites[i]:
			kind = ReturnSite
		}

		label := n.Label
		if label == "" {
			switch kind {
			case Entry, Exit:
				label = f.Identity.String()
			default:
				label = kind.String()
			}
		}

		b.graph.nodes[int(first)+i] = &Node{
			id:    first + NodeID(i),
			local: n.ID,
			label: label,
			repr:  n.Repr,
			kind:  kind,
			fun:   f.Identity,
		}
	}

	imp.entry = &funEntry{
		entry: first + NodeID(l.entry),
		first: first,
		count: len(f.Nodes),
	}
	for _, i := range l.exits {
		imp.entry.exits = append(imp.entry.exits, first+NodeID(i))
	}

	imp.intra = make([]Edge, 0, len(f.Edges))
	for _, e := range f.Edges {
		imp.intra = append(imp.intra, Edge{
			Src:  first + NodeID(l.index[e.Src]),
			Dst:  first + NodeID(l.index[e.Dst]),
			Kind: Intra,
		})
	}
}

// wire is pass two. It only reads the completed identity index.
func (b *builder) wire(calls CallSites) error {
	g := b.graph
	var called intsets.Sparse
	position := make(map[*imported]int, len(b.funs))
	for i, imp := range b.funs {
		position[imp] = i
	}

	addEdge := func(e Edge) error {
		if b.opts.MaxEdges > 0 && len(g.edges) >= b.opts.MaxEdges {
			return fmt.Errorf("%w: more than %d edges while wiring %s", ErrGraphTooLarge, b.opts.MaxEdges, e)
		}
		g.edges = append(g.edges, e)
		g.counters[edgeMetric(e.Kind)].Inc()
		return nil
	}

	for _, imp := range b.funs {
		f, l := imp.fun, imp.layout
		for i, n := range f.Nodes {
			if !n.isCall() {
				continue
			}
			site := imp.entry.first + NodeID(i)
			g.counters[metricCallSites].Inc()

			res := calls[SiteKey{f.Identity, n.ID}]
			callees := b.callees(res)
			if len(callees) == 0 {
				reason := res.Reason
				if reason == Resolved {
					if len(res.Callees) > 0 {
						reason = UnknownCallee
					} else {
						reason = NoTarget
					}
				}
				g.unresolved = append(g.unresolved, UnresolvedCall{
					Site:   site,
					Reason: reason,
					Target: res.Target,
				})
				g.counters[metricUnresolved].Inc()
				opts.OnVerbose(func() {
					log.Printf("Unresolved call at %s in %s (%s): %s", site, f.Identity, res.Target, reason)
				})
				continue
			}
			if dropped := len(res.Callees) - len(callees); dropped > 0 {
				opts.OnVerbose(func() {
					log.Printf("Dropped %d candidate(s) without function graph at %s in %s", dropped, site, f.Identity)
				})
			}

			if fanOut := g.counters[metricMaxFanOut]; fanOut.Get() < uint64(len(callees)) {
				fanOut.Set(uint64(len(callees)))
			}

			rs := imp.entry.first + NodeID(l.returnSite(f, i))
			for _, callee := range callees {
				if called.Insert(position[callee]) {
					g.counters[metricCalledFuncs].Inc()
				}
				if err := addEdge(Edge{Src: site, Dst: callee.entry.entry, Kind: Call}); err != nil {
					return err
				}
				for _, exit := range callee.entry.exits {
					if err := addEdge(Edge{Src: exit, Dst: rs, Kind: Return}); err != nil {
						return err
					}
				}
			}
		}
	}

	g.out = make([][]int, len(g.nodes))
	g.in = make([][]int, len(g.nodes))
	for i, e := range g.edges {
		if g.Node(e.Src) == nil || g.Node(e.Dst) == nil {
			continue
		}
		g.out[e.Src] = append(g.out[e.Src], i)
		g.in[e.Dst] = append(g.in[e.Dst], i)
	}
	return nil
}

// check verifies the standing invariant that every edge references an
// existing node.
func (g *Graph) check() error {
	for _, e := range g.edges {
		if g.Node(e.Src) == nil {
			return fmt.Errorf("%w: %s: source", ErrDanglingEdge, e)
		}
		if g.Node(e.Dst) == nil {
			return fmt.Errorf("%w: %s: destination", ErrDanglingEdge, e)
		}
	}
	return nil
}
