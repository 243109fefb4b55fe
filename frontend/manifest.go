package frontend

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v2"
)

// ErrInvalidManifest wraps every failure to read or interpret a manifest.
var ErrInvalidManifest = errors.New("invalid manifest")

// Project is the serialized output of a contract front end: every contract of
// a project together with the intra-procedural CFGs of its functions.
type Project struct {
	Contracts []ContractDecl `json:"contracts" yaml:"contracts"`
}

type ContractDecl struct {
	Name string `json:"name" yaml:"name"`
	// Kind is one of contract, interface, abstract or library.
	Kind string `json:"kind,omitempty" yaml:"kind,omitempty"`
	// Bases is the linearised inheritance chain, nearest first.
	Bases     []string       `json:"bases,omitempty" yaml:"bases,omitempty"`
	Functions []FunctionDecl `json:"functions" yaml:"functions"`
}

type FunctionDecl struct {
	Signature string `json:"signature" yaml:"signature"`
	// Implemented defaults to whether the function has any nodes.
	Implemented *bool      `json:"implemented,omitempty" yaml:"implemented,omitempty"`
	Nodes       []NodeDecl `json:"nodes,omitempty" yaml:"nodes,omitempty"`
	Edges       []EdgeDecl `json:"edges,omitempty" yaml:"edges,omitempty"`
}

func (f FunctionDecl) IsImplemented() bool {
	if f.Implemented != nil {
		return *f.Implemented
	}
	return len(f.Nodes) > 0
}

type NodeDecl struct {
	ID    int    `json:"id" yaml:"id"`
	Label string `json:"label,omitempty" yaml:"label,omitempty"`
	Repr  string `json:"repr,omitempty" yaml:"repr,omitempty"`
	Kind  string `json:"kind,omitempty" yaml:"kind,omitempty"`
	Entry bool   `json:"entry,omitempty" yaml:"entry,omitempty"`
	Exit  bool   `json:"exit,omitempty" yaml:"exit,omitempty"`
	// Call is present on call site nodes.
	Call       *CallDecl `json:"call,omitempty" yaml:"call,omitempty"`
	ReturnSite *int      `json:"return_site,omitempty" yaml:"return_site,omitempty"`
}

type CallDecl struct {
	Kind     string `json:"kind,omitempty" yaml:"kind,omitempty"`
	Receiver string `json:"receiver,omitempty" yaml:"receiver,omitempty"`
	Function string `json:"function" yaml:"function"`
}

type EdgeDecl struct {
	Src int `json:"src" yaml:"src"`
	Dst int `json:"dst" yaml:"dst"`
}

// Format is the encoding of a manifest.
type Format int

const (
	JSON Format = iota
	YAML
)

// FormatOf picks the manifest format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return JSON, nil
	case ".yaml", ".yml":
		return YAML, nil
	}
	return JSON, fmt.Errorf("%w: %s: unsupported extension", ErrInvalidManifest, path)
}

// Parse decodes a manifest. Unknown fields are rejected.
func Parse(data []byte, format Format) (*Project, error) {
	p := new(Project)
	switch format {
	case YAML:
		if err := yaml.UnmarshalStrict(data, p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
		}
	}
	return p, nil
}

// Load reads the manifest at the given path.
func Load(path string) (*Project, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	p, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}
