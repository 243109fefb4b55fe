package utils

import (
	"flag"
	"fmt"
	"log"
	"strings"
)

type options struct {
	workers            uint
	maxNodes           uint
	maxEdges           uint
	labelWidth         uint
	function           string
	outputFormat       string
	task               string
	jsonOut            string
	dotOut             string
	sqliteOut          string
	renderOut          string
	metrics            bool
	noColorize         bool
	verbose            bool
	cluster            bool
	structuralDispatch bool
}

const (
	_BUILD = iota
	_EXPORT
	_CALLGRAPH
	_FUNCTION_CFG
	_DISCOVER
	_STATS
)

func CanColorize(col func(...interface{}) string) func(...interface{}) string {
	if opts.noColorize {
		return func(is ...interface{}) string {
			return fmt.Sprintf(strings.Repeat("%s", len(is)), is...)
		}
	}
	return col
}

var task = []struct{ flag, explanation string }{{
	"build",
	"Build the ICFG of the project manifest and print a summary",
}, {
	"export",
	"Build the ICFG and write it with the exporters selected by -json, -dot, -sqlite and -render",
}, {
	"callgraph",
	"Print the function-level call graph projection of the ICFG as DOT",
}, {
	"function-cfg",
	"Print the intra-procedural CFG of the function selected by -fun as DOT",
}, {
	"discover",
	"Detect the project type of the target directory and list its contract sources",
}, {
	"stats",
	"Print call site fan-out and unresolved call statistics",
}}

var opts = &options{}

type optInterface struct{}

type taskInterface struct{}

func Opts() optInterface {
	return optInterface{}
}

func (optInterface) NoColorize() bool {
	return opts.noColorize
}
func (optInterface) Workers() int {
	return int(opts.workers)
}
func (optInterface) MaxNodes() int {
	return int(opts.maxNodes)
}
func (optInterface) MaxEdges() int {
	return int(opts.maxEdges)
}
func (optInterface) LabelWidth() int {
	return int(opts.labelWidth)
}
func (optInterface) Function() string {
	return opts.function
}
func (optInterface) OutputFormat() string {
	return opts.outputFormat
}
func (optInterface) JSONOut() string {
	return opts.jsonOut
}
func (optInterface) DotOut() string {
	return opts.dotOut
}
func (optInterface) SQLiteOut() string {
	return opts.sqliteOut
}
func (optInterface) RenderOut() string {
	return opts.renderOut
}
func (optInterface) Metrics() bool {
	return opts.metrics
}
func (optInterface) Verbose() bool {
	return opts.verbose
}
func (optInterface) Cluster() bool {
	return opts.cluster
}
func (optInterface) StructuralDispatch() bool {
	return opts.structuralDispatch
}

func (optInterface) Task() taskInterface {
	return taskInterface{}
}
func (taskInterface) IsBuild() bool {
	return opts.task == task[_BUILD].flag
}
func (taskInterface) IsExport() bool {
	return opts.task == task[_EXPORT].flag
}
func (taskInterface) IsCallGraph() bool {
	return opts.task == task[_CALLGRAPH].flag
}
func (taskInterface) IsFunctionCfg() bool {
	return opts.task == task[_FUNCTION_CFG].flag
}
func (taskInterface) IsDiscover() bool {
	return opts.task == task[_DISCOVER].flag
}
func (taskInterface) IsStats() bool {
	return opts.task == task[_STATS].flag
}

func init() {
	taskFlag := "\n"
	for _, task := range task {
		taskFlag += task.flag + " -- " + task.explanation + "\n"
	}
	taskFlag += "\n"

	flag.StringVar(&(opts.task), "task", task[_BUILD].flag, "Set the task to do during execution. Options:"+taskFlag)
	flag.StringVar(&(opts.function), "fun", "", "target a specific function w. r. t. the given task, as Contract.signature.\n"+
		"- A bare signature or name is matched against all contracts; the first match in declaration order wins.")
	flag.StringVar(&(opts.outputFormat), "format", "svg", "output file format for -render [svg | png | jpg | ...]")
	flag.StringVar(&(opts.jsonOut), "json", "", "path to write the structured ICFG export to")
	flag.StringVar(&(opts.dotOut), "dot", "", "path to write the DOT ICFG export to")
	flag.StringVar(&(opts.sqliteOut), "sqlite", "", "path of an SQLite database to store the ICFG in")
	flag.StringVar(&(opts.renderOut), "render", "", "path prefix of an image rendered from the DOT export with graphviz")
	flag.UintVar(&(opts.workers), "workers", 1, "number of goroutines importing function graphs")
	flag.UintVar(&(opts.maxNodes), "max-nodes", 0, "abort construction when the ICFG exceeds this many nodes (0 = unlimited)")
	flag.UintVar(&(opts.maxEdges), "max-edges", 0, "abort construction when the ICFG exceeds this many edges (0 = unlimited)")
	flag.UintVar(&(opts.labelWidth), "label-width", 80, "truncate node representations in DOT labels to this many characters")
	flag.BoolVar(&(opts.metrics), "metrics", false, "print construction metrics in Prometheus text format")
	flag.BoolVar(&(opts.noColorize), "no-colorize", false, "Disable pretty printer colorization")
	flag.BoolVar(&(opts.verbose), "verbose", false, "enable verbose output")
	flag.BoolVar(&(opts.cluster), "cluster", false, "group DOT nodes into one cluster per function")
	flag.BoolVar(&(opts.structuralDispatch), "structural-dispatch", false,
		"let interface calls fan out to contracts that implement the signature without inheriting the interface")

	// Set up logging
	log.SetFlags(log.Ltime | log.Lshortfile)
}

func ParseArgs() {
	// Calling flag.Parse in init messes up unit tests.
	// See https://stackoverflow.com/questions/60235896/flag-provided-but-not-defined-test-v
	flag.Parse()

	validTask := false
	for _, task := range task {
		if task.flag == opts.task {
			validTask = true
			break
		}
	}

	if !validTask {
		log.Fatalf("Value \"%s\" is not valid for -task", opts.task)
	}

	if opts.workers == 0 {
		opts.workers = 1
	}
	if Opts().Task().IsCallGraph() || Opts().Task().IsFunctionCfg() {
		opts.noColorize = true
	}
}

func (optInterface) OnVerbose(do func()) {
	if Opts().Verbose() {
		do()
	}
}
