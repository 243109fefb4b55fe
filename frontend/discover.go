package frontend

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

// ProjectType is the build system a contract project is organised for.
type ProjectType int

const (
	SingleFile ProjectType = iota
	MultiFile
	Hardhat
	Foundry
	Truffle
	Brownie
	Npm
)

func (t ProjectType) String() string {
	switch t {
	case SingleFile:
		return "single file"
	case MultiFile:
		return "multi-file"
	case Hardhat:
		return "Hardhat"
	case Foundry:
		return "Foundry"
	case Truffle:
		return "Truffle"
	case Brownie:
		return "Brownie"
	case Npm:
		return "npm"
	}
	return fmt.Sprintf("ProjectType(%d)", int(t))
}

// Files whose presence marks a directory as a project root, in priority order.
var indicators = []struct {
	file string
	typ  ProjectType
}{
	{"hardhat.config.js", Hardhat},
	{"hardhat.config.ts", Hardhat},
	{"foundry.toml", Foundry},
	{"remappings.txt", Foundry},
	{"truffle-config.js", Truffle},
	{"brownie-config.yaml", Brownie},
	{"package.json", Npm},
}

var (
	// ErrNoSources is returned for directories without contract sources.
	ErrNoSources = errors.New("no Solidity sources found")
	// ErrAmbiguousTarget is returned for directories with several sources and
	// no project indicator. The returned target lists the candidates.
	ErrAmbiguousTarget = errors.New("several Solidity sources and no project configuration")
)

// Target is the outcome of project discovery.
type Target struct {
	Root    string
	Type    ProjectType
	Sources []string
}

// Discover determines how the contracts at path are organised. A file is a
// single file target. A directory is a project when it contains one of the
// known configuration files, and otherwise must contain exactly one source.
func Discover(path string) (*Target, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return &Target{Root: filepath.Dir(path), Type: SingleFile, Sources: []string{path}}, nil
	}

	sources, err := FindSources(path)
	if err != nil {
		return nil, err
	}

	for _, ind := range indicators {
		if _, err := os.Stat(filepath.Join(path, ind.file)); err == nil {
			return &Target{Root: path, Type: ind.typ, Sources: sources}, nil
		}
	}

	switch len(sources) {
	case 0:
		return nil, fmt.Errorf("%s: %w", path, ErrNoSources)
	case 1:
		return &Target{Root: path, Type: SingleFile, Sources: sources}, nil
	}
	return &Target{Root: path, Type: MultiFile, Sources: sources},
		fmt.Errorf("%s: %w: pass a single file or initialize a project", path, ErrAmbiguousTarget)
}

// FindSources recursively lists the .sol files under root in lexical order,
// skipping paths ignored by the root .gitignore.
func FindSources(root string) ([]string, error) {
	var gi *ignore.GitIgnore
	if _, err := os.Stat(filepath.Join(root, ".gitignore")); err == nil {
		if gi, err = ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore")); err != nil {
			return nil, err
		}
	}

	var sources []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil || rel == "." {
			return err
		}
		if d.IsDir() && d.Name() == ".git" {
			return filepath.SkipDir
		}
		rel = filepath.ToSlash(rel)
		if gi != nil && (gi.MatchesPath(rel) || d.IsDir() && gi.MatchesPath(rel+"/")) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && strings.HasSuffix(path, ".sol") {
			sources = append(sources, path)
		}
		return nil
	})
	return sources, err
}
