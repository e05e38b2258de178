// Package manifest decodes pyproject.toml files into the core model.
//
// Both manifest dialects are supported: Poetry projects declared under
// [tool.poetry] and PEP 621 projects declared under [project]. When a
// file carries both tables the Poetry layout wins, matching Poetry's
// own precedence before 2.0.
package manifest

import (
	"io"
	"os"
	"sort"

	"github.com/BurntSushi/toml"

	"github.com/git-pkgs/pyproject/internal/core"
)

// document is the raw top-level shape of a pyproject.toml file.
// Tool sections stay as primitives so they can be decoded twice:
// once into the generic core.Tool map and, for [tool.poetry], again
// into the typed poetry tables.
type document struct {
	BuildSystem      *buildSystemTable         `toml:"build-system"`
	Project          *projectTable             `toml:"project"`
	DependencyGroups map[string][]any          `toml:"dependency-groups"`
	Tool             map[string]toml.Primitive `toml:"tool"`
}

type buildSystemTable struct {
	Requires     []string `toml:"requires"`
	BuildBackend string   `toml:"build-backend"`
}

// Load reads and decodes the manifest at path.
func Load(path string) (*core.Project, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &core.ParseError{Path: path, Err: err}
	}
	defer func() { _ = f.Close() }()
	return Decode(f, path)
}

// Decode parses a pyproject.toml document. path is recorded on the
// project for diagnostics and relative-path checks; it may be empty.
func Decode(r io.Reader, path string) (*core.Project, error) {
	var doc document
	md, err := toml.NewDecoder(r).Decode(&doc)
	if err != nil {
		return nil, &core.ParseError{Path: path, Err: err}
	}

	p := &core.Project{
		Path:  path,
		Tools: make(map[string]core.Tool, len(doc.Tool)),
	}
	for name, prim := range doc.Tool {
		var sec map[string]any
		if err := md.PrimitiveDecode(prim, &sec); err != nil {
			return nil, &core.ParseError{Path: path, Err: err}
		}
		p.Tools[name] = core.Tool(sec)
	}

	poetryPrim, hasPoetry := doc.Tool["poetry"]
	switch {
	case hasPoetry:
		p.Layout = core.LayoutPoetry
		// [tool.poetry] is the package table, not tool configuration.
		delete(p.Tools, "poetry")
		if err := buildPoetry(md, poetryPrim, p); err != nil {
			return nil, &core.ParseError{Path: path, Err: err}
		}
	case doc.Project != nil:
		p.Layout = core.LayoutPEP621
		if err := buildPEP621(doc.Project, doc.DependencyGroups, p); err != nil {
			return nil, &core.ParseError{Path: path, Err: err}
		}
	default:
		return nil, &core.ParseError{Path: path, Err: core.ErrNoPackageTable}
	}

	if doc.BuildSystem != nil {
		p.Build = core.BuildSystem{
			Requires: doc.BuildSystem.Requires,
			Backend:  doc.BuildSystem.BuildBackend,
		}
	}

	ensureMainGroup(p)
	sortGroups(p)
	return p, nil
}

// ensureMainGroup guarantees the implicit main group exists even for
// manifests with no runtime dependencies.
func ensureMainGroup(p *core.Project) {
	if p.Group(core.MainGroup) == nil {
		p.Groups = append(p.Groups, core.Group{Name: core.MainGroup})
	}
}

// sortGroups fixes a deterministic order: main first, remaining groups
// by name, dependencies within a group by normalized name. TOML tables
// are unordered, so declaration order cannot be preserved.
func sortGroups(p *core.Project) {
	sort.Slice(p.Groups, func(i, j int) bool {
		a, b := p.Groups[i].Name, p.Groups[j].Name
		if a == core.MainGroup {
			return b != core.MainGroup
		}
		if b == core.MainGroup {
			return false
		}
		return a < b
	})
	for i := range p.Groups {
		deps := p.Groups[i].Dependencies
		sort.Slice(deps, func(a, b int) bool {
			return deps[a].Normalized < deps[b].Normalized
		})
	}
}
