package dot

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"sort"
	"strings"
	"text/template"

	"github.com/goccy/go-graphviz"
)

// Render lays out a DOT graph with the embedded graphviz library and writes
// the image to outfname.format, returning the image path.
func Render(outfname string, format string, dot []byte) (string, error) {
	g := graphviz.New()
	graph, err := graphviz.ParseBytes(dot)
	if err != nil {
		return "", err
	}
	defer func() {
		if err := graph.Close(); err != nil {
			log.Println(err)
		}
		g.Close()
	}()

	img := fmt.Sprintf("%s.%s", outfname, format)
	if err := g.RenderFilename(graph, graphviz.Format(format), img); err != nil {
		return "", err
	}
	return img, nil
}

// Count parses a DOT graph and reports how many nodes and edges it declares.
func Count(dot []byte) (nodes, edges int, err error) {
	graph, err := graphviz.ParseBytes(dot)
	if err != nil {
		return 0, 0, err
	}
	defer graph.Close()
	return graph.NumberNodes(), graph.NumberEdges(), nil
}

const tmplCluster = `{{define "cluster" -}}
	{{printf "subgraph %q {" .}}
{{- range .Attrs.List}}
		{{.}};
{{- end}}
{{- range .Nodes}}
		{{template "node" .}}
{{- end}}
{{- range .Clusters}}
	{{template "cluster" .}}
{{- end}}
	}
{{- end}}`

const tmplEdge = `{{define "edge" -}}
	{{printf "%q -> %q [ %s ];" .From .To .Attrs}}
{{- end}}`

const tmplNode = `{{define "node" -}}
	{{printf "%q [ %s ];" .ID .Attrs}}
{{- end}}`

const tmplGraph = `digraph {{printf "%q" .Title}} {
{{- range .Attrs.List}}
	{{.}};
{{- end}}
{{- if .NodeAttrs}}
	node [ {{.NodeAttrs}} ];
{{- end}}
{{- if .EdgeAttrs}}
	edge [ {{.EdgeAttrs}} ];
{{- end}}
{{- range .Clusters}}
	{{template "cluster" .}}
{{- end}}
{{- range .Nodes}}
	{{template "node" .}}
{{- end}}
{{- range .Edges}}
	{{template "edge" .}}
{{- end}}
}
`

// ==[ type def/func: DotCluster ]===============================================
type DotCluster struct {
	ID       string
	Clusters []*DotCluster
	Nodes    []*DotNode
	Attrs    DotAttrs
}

func NewDotCluster(id string) *DotCluster {
	return &DotCluster{
		ID:    id,
		Attrs: make(DotAttrs),
	}
}

func (c *DotCluster) String() string {
	return fmt.Sprintf("cluster_%s", c.ID)
}

func (c *DotCluster) countNodes() int {
	res := len(c.Nodes)

	for _, cluster := range c.Clusters {
		res += cluster.countNodes()
	}

	return res
}

// ==[ type def/func: DotNode    ]===============================================
type DotNode struct {
	ID    string
	Attrs DotAttrs
}

func (n *DotNode) String() string {
	return n.ID
}

// ==[ type def/func: DotEdge    ]===============================================
type DotEdge struct {
	From  *DotNode
	To    *DotNode
	Attrs DotAttrs
}

// ==[ type def/func: DotAttrs   ]===============================================

// DotAttrs are rendered sorted by key so that output is reproducible.
type DotAttrs map[string]string

func (p DotAttrs) List() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	l := make([]string, 0, len(p))
	for _, k := range keys {
		l = append(l, fmt.Sprintf("%s=%q", k, p[k]))
	}
	return l
}

func (p DotAttrs) String() string {
	return strings.Join(p.List(), ", ")
}

// ==[ type def/func: DotGraph   ]===============================================
type DotGraph struct {
	Title     string
	Attrs     DotAttrs
	NodeAttrs DotAttrs
	EdgeAttrs DotAttrs
	Clusters  []*DotCluster
	Nodes     []*DotNode
	Edges     []*DotEdge
}

func (g *DotGraph) CountNodes() int {
	res := len(g.Nodes)

	for _, cluster := range g.Clusters {
		res += cluster.countNodes()
	}

	return res
}

func (g *DotGraph) WriteDot(w io.Writer) error {
	t := template.New("dot")
	for _, s := range []string{tmplCluster, tmplNode, tmplEdge, tmplGraph} {
		if _, err := t.Parse(s); err != nil {
			return err
		}
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, g); err != nil {
		return err
	}
	_, err := buf.WriteTo(w)
	return err
}

func (g *DotGraph) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	err := g.WriteDot(&buf)
	return buf.Bytes(), err
}
