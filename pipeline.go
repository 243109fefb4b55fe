package main

import (
	"fmt"
	"log"
	"time"

	"github.com/cs-au-dk/icfg/analysis/icfg"
	"github.com/cs-au-dk/icfg/analysis/resolve"
	"github.com/cs-au-dk/icfg/frontend"
	"github.com/cs-au-dk/icfg/utils"
)

// pipeline is a wrapper around the construction pipeline.
type pipeline struct {
	path string
	prog *frontend.Program
}

// loadPipeline decodes the project manifest at path and adapts it to the
// inputs of the builder.
func loadPipeline(path string) (pipeline, error) {
	defer utils.TimeTrack(time.Now(), "Loading "+path)

	project, err := frontend.Load(path)
	if err != nil {
		return pipeline{}, err
	}
	prog, err := frontend.Adapt(project)
	if err != nil {
		return pipeline{}, err
	}

	opts.OnVerbose(func() {
		fmt.Printf("Loaded %d contracts, %d implemented functions and %d call sites\n",
			len(project.Contracts), len(prog.Functions), len(prog.Sites))
	})
	return pipeline{path: path, prog: prog}, nil
}

func (p pipeline) resolveOptions() resolve.Options {
	ropts := resolve.DefaultOptions()
	ropts.StructuralDispatch = opts.StructuralDispatch()
	return ropts
}

func (p pipeline) buildOptions() icfg.Options {
	bopts := icfg.DefaultOptions()
	bopts.Workers = opts.Workers()
	bopts.MaxNodes = opts.MaxNodes()
	bopts.MaxEdges = opts.MaxEdges()
	return bopts
}

// icfgPipeline resolves every call site and constructs the ICFG.
func (p pipeline) icfgPipeline() (*icfg.Graph, error) {
	log.Println("Resolving call sites...")
	calls := p.prog.Resolve(p.resolveOptions())
	log.Println("Call site resolution done")

	opts.OnVerbose(func() {
		for _, site := range p.prog.Sites {
			res := calls[site.Key]
			fmt.Printf("%s:%d %s -> %v (%s)\n",
				utils.ScopeColor(site.Key.Function.Scope),
				site.Key.Local,
				site.Call,
				res.Callees,
				res.Reason)
		}
		fmt.Println()
	})

	log.Println("Constructing ICFG...")
	start := time.Now()
	g, err := icfg.Build(p.prog.Functions, calls, p.buildOptions())
	if err != nil {
		return nil, err
	}
	log.Printf("ICFG done in %s: %s\n", time.Since(start), g.Stats())
	return g, nil
}
