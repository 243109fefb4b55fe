package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/fatih/color"

	"github.com/cs-au-dk/icfg/analysis/export"
	"github.com/cs-au-dk/icfg/analysis/export/sqlstore"
	"github.com/cs-au-dk/icfg/analysis/icfg"
	"github.com/cs-au-dk/icfg/utils"
	"github.com/cs-au-dk/icfg/utils/dot"
)

var (
	opts = utils.Opts()
	task = opts.Task()
)

func main() {
	utils.ParseArgs()
	path := utils.MakePath()

	if task.IsDiscover() {
		if err := discover(path); err != nil {
			log.Fatalln(err)
		}
		return
	}

	pl, err := loadPipeline(path)
	if err != nil {
		log.Println("Failed to load", path)
		log.Fatalln(err)
	}

	g, err := pl.icfgPipeline()
	if err != nil {
		if errors.Is(err, icfg.ErrGraphTooLarge) {
			log.Fatalln(color.RedString("ICFG construction aborted:"), err)
		}
		log.Fatalln("ICFG construction failed:", err)
	}

	switch {
	case task.IsBuild():
		summarize(g)
	case task.IsExport():
		if err := exportGraph(g); err != nil {
			gatherMetrics(g)
			log.Fatalln("Export failed:", err)
		}
	default:
		pl.secondaryTask(g)
	}

	gatherMetrics(g)
}

// summarize prints the graph shape and every unresolved call site. With -fun
// the nodes of that function are listed, and with -verbose every function is.
func summarize(g *icfg.Graph) {
	s := g.Stats()
	fmt.Printf("%s functions, %s nodes, %s edges (%d intra, %d call, %d return)\n",
		utils.CountColor(s.Functions), utils.CountColor(s.Nodes), utils.CountColor(s.Edges),
		s.IntraEdges, s.CallEdges, s.ReturnEdges)
	fmt.Printf("%s call sites, %s unresolved\n",
		utils.CountColor(s.CallSites), utils.WarnColor(s.Unresolved))

	for _, u := range g.Unresolved() {
		n := g.Node(u.Site)
		fmt.Printf("  %s in %s: %s (%s)\n",
			n.Repr(), utils.FunColor(n.Function()), u.Target, utils.WarnColor(u.Reason))
	}

	if name := opts.Function(); name != "" {
		fun, ok := g.FunctionByName(name)
		if !ok {
			log.Fatalf("Function %q not found", name)
		}
		fmt.Println()
		g.PrintFunction(os.Stdout, fun)
		return
	}
	opts.OnVerbose(func() {
		fmt.Println()
		icfg.PrintGraph(g)
	})
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// exportGraph writes the graph with every exporter that was given an output.
// Without any output the structured export is written to standard output.
func exportGraph(g *icfg.Graph) error {
	dotOpts := export.DefaultDOTOptions()
	dotOpts.LabelWidth = opts.LabelWidth()
	dotOpts.Cluster = opts.Cluster()

	wrote := false
	if path := opts.JSONOut(); path != "" {
		if err := writeFile(path, func(w io.Writer) error { return export.WriteJSON(w, g) }); err != nil {
			return err
		}
		log.Println("Wrote", path)
		wrote = true
	}

	if path := opts.DotOut(); path != "" {
		if err := writeFile(path, func(w io.Writer) error { return export.WriteDOT(w, g, dotOpts) }); err != nil {
			return err
		}
		log.Println("Wrote", path)
		wrote = true
	}

	if path := opts.SQLiteOut(); path != "" {
		store, err := sqlstore.Open(path)
		if err != nil {
			return err
		}
		if err := store.Write(context.Background(), g); err != nil {
			store.Close()
			return err
		}
		if err := store.Close(); err != nil {
			return err
		}
		log.Println("Wrote", path)
		wrote = true
	}

	if prefix := opts.RenderOut(); prefix != "" {
		var buf bytes.Buffer
		if err := export.WriteDOT(&buf, g, dotOpts); err != nil {
			return err
		}
		img, err := dot.Render(prefix, opts.OutputFormat(), buf.Bytes())
		if err != nil {
			return err
		}
		fmt.Println(img)
		wrote = true
	}

	if !wrote {
		return export.WriteJSON(os.Stdout, g)
	}
	return nil
}
