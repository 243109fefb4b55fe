package main

import (
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"

	"github.com/cs-au-dk/icfg/analysis/callgraph"
	"github.com/cs-au-dk/icfg/analysis/icfg"
	"github.com/cs-au-dk/icfg/frontend"
	"github.com/cs-au-dk/icfg/utils"
)

// discover reports the project type and the contract sources at path.
func discover(path string) error {
	target, err := frontend.Discover(path)
	if err != nil && !errors.Is(err, frontend.ErrAmbiguousTarget) {
		return err
	}

	fmt.Println("Project root:", target.Root)
	fmt.Println("Project type:", utils.ScopeColor(target.Type))
	fmt.Printf("Sources (%s):\n", utils.CountColor(len(target.Sources)))
	for _, src := range target.Sources {
		fmt.Println("  " + src)
	}
	if err != nil {
		fmt.Println(utils.WarnColor(err))
	}
	return nil
}

// secondaryTask executes the tasks operating on a constructed ICFG that are
// not covered by build and export.
func (pl pipeline) secondaryTask(g *icfg.Graph) {
	switch {
	// callgraph : the function-level projection of the ICFG as DOT.
	case task.IsCallGraph():
		cg := callgraph.Project(g)

		opts.OnVerbose(func() {
			for _, group := range cg.RecursionGroups() {
				log.Println("Recursive:", group)
			}
			for i, cluster := range cg.Clusters() {
				log.Printf("Cluster %d: %v\n", i, cluster)
			}
		})

		if opts.Cluster() {
			if err := cg.ToDotGraph(pl.path).WriteDot(os.Stdout); err != nil {
				log.Fatalln(err)
			}
		} else {
			fmt.Print(cg.DOT(pl.path))
		}

	// function-cfg : the intra-procedural CFG of a single function as DOT.
	case task.IsFunctionCfg():
		if opts.Function() == "" {
			log.Fatalln("The function-cfg task requires -fun")
		}
		fun, ok := g.FunctionByName(opts.Function())
		if !ok {
			log.Fatalf("Function %q not found", opts.Function())
		}
		out, _ := callgraph.FunctionCFGDOT(g, fun)
		fmt.Print(out)

	// stats : call site fan-out and unresolved call statistics.
	case task.IsStats():
		printStats(g)
	}
}

func printStats(g *icfg.Graph) {
	prec2 := func(n float64) float64 {
		return math.Floor(n*100) / 100
	}

	order := func(count map[int]int) (ordered []struct{ count, nodes int }, total int) {
		for c, nodes := range count {
			ordered = append(ordered, struct {
				count, nodes int
			}{c, nodes})
			total += nodes
		}
		sort.Slice(ordered, func(i, j int) bool {
			return ordered[i].count < ordered[j].count
		})

		return
	}

	fanOut := make(map[int]int)
	fanIn := make(map[int]int)
	g.ForEach(func(n *icfg.Node) {
		switch n.Kind() {
		case icfg.CallSite, icfg.UnresolvedExternal:
			callees := 0
			for _, e := range g.Successors(n.ID()) {
				if e.Kind == icfg.Call {
					callees++
				}
			}
			fanOut[callees]++
		case icfg.Entry:
			callers := 0
			for _, e := range g.Predecessors(n.ID()) {
				if e.Kind == icfg.Call {
					callers++
				}
			}
			fanIn[callers]++
		}
	})

	s := g.Stats()
	fmt.Println("================ Results =====================")
	fmt.Println(s)
	fmt.Println("Maximum callees for a call site:", color.GreenString("%d", s.MaxFanOut))

	print := func(source, drain string, count map[int]int) {
		ordered, total := order(count)
		for _, o := range ordered {
			c, nodes := o.count, o.nodes

			percent := prec2(float64(nodes) / float64(total) * 100)
			var colorize func(string, ...interface{}) string
			switch {
			case c <= 1:
				colorize = color.BlueString
			case c == 2:
				colorize = color.GreenString
			case 3 <= c && c <= 5:
				colorize = color.YellowString
			default:
				colorize = color.HiRedString
			}
			fmt.Println(colorize("%v", c), " "+drain+" found at", percent, "% ("+color.HiCyanString("%v", nodes)+") of", source)
		}
	}

	fmt.Println("\nOutgoing degree for call sites")
	print("call sites", "callees", fanOut)

	fmt.Println("\nIncoming degree for function entries")
	print("function entries", "callers", fanIn)

	reasons := make(map[icfg.Reason][]string)
	for _, u := range g.Unresolved() {
		reasons[u.Reason] = append(reasons[u.Reason], u.Target)
	}
	if len(reasons) > 0 {
		fmt.Println("\nUnresolved call sites")
		keys := make([]icfg.Reason, 0, len(reasons))
		for r := range reasons {
			keys = append(keys, r)
		}
		sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
		for _, r := range keys {
			fmt.Printf("%s %s: %s\n", color.HiRedString("%d", len(reasons[r])), r, strings.Join(reasons[r], ", "))
		}
	}
}
