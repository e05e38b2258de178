// Package core provides the shared manifest model and error types.
package core

import (
	"sort"
	"strings"
)

// Layout identifies which pyproject dialect declared the package metadata.
type Layout string

const (
	// LayoutPoetry means the package is declared under [tool.poetry].
	LayoutPoetry Layout = "poetry"
	// LayoutPEP621 means the package is declared under [project].
	LayoutPEP621 Layout = "pep621"
)

// MainGroup is the implicit dependency group every project has.
const MainGroup = "main"

// Project is a parsed pyproject manifest. It is inert data: decoding
// happens in the manifest package, validation in the audit package.
type Project struct {
	Path     string // manifest path, "" when parsed from a reader without one
	Layout   Layout
	Metadata Metadata
	Build    BuildSystem
	Groups   []Group
	Extras   map[string][]string // [tool.poetry.extras]: extra name to optional dependency names
	Tools    map[string]Tool     // raw [tool.*] sections, keyed by tool name
}

// Tool is an undecoded [tool.*] section.
type Tool map[string]any

// Metadata describes the package itself.
type Metadata struct {
	Name           string
	Version        string
	Description    string
	Authors        []Person
	Maintainers    []Person
	Readme         string
	License        string
	Homepage       string
	Repository     string
	Documentation  string
	Keywords       []string
	Classifiers    []string
	RequiresPython string
}

// Person is an author or maintainer.
type Person struct {
	Name  string
	Email string
}

// BuildSystem is the [build-system] table.
type BuildSystem struct {
	Requires []string // PEP 508 requirement strings
	Backend  string
}

// Group is a named set of dependencies. MainGroup holds the runtime
// dependencies; other groups correspond to Poetry groups or PEP 621
// optional-dependency extras.
type Group struct {
	Name         string
	Optional     bool
	Dependencies []Dependency
}

// Scope indicates when a dependency is required.
// Aligns with github.com/git-pkgs/registries core.Scope.
type Scope string

const (
	Runtime     Scope = "runtime"
	Development Scope = "development"
	Test        Scope = "test"
	Build       Scope = "build"
	Optional    Scope = "optional"
)

// Scope maps the group onto the registries scope vocabulary.
func (g Group) Scope() Scope {
	switch g.Name {
	case MainGroup:
		return Runtime
	case "dev", "development", "lint", "docs":
		return Development
	case "test", "tests":
		return Test
	case "build":
		return Build
	}
	if g.Optional {
		return Optional
	}
	return Development
}

// SourceKind says where a dependency is installed from.
type SourceKind string

const (
	SourceRegistry SourceKind = "registry"
	SourceGit      SourceKind = "git"
	SourceURL      SourceKind = "url"
	SourcePath     SourceKind = "path"
)

// Dependency is a single requirement within a group.
type Dependency struct {
	Name       string // as written in the manifest
	Normalized string // PEP 503 normalized name
	Constraint string // raw constraint string, "*" when unconstrained
	Extras     []string
	Marker     string // PEP 508 environment marker, "" when absent
	Python     string // Poetry per-dependency python restriction
	Optional   bool
	Source     SourceKind
	Git        GitSource
	URL        string
	LocalPath  string
}

// GitSource holds the fields of a Poetry git dependency.
type GitSource struct {
	URL          string
	Branch       string
	Tag          string
	Rev          string
	Subdirectory string
}

// NormalizeName lowercases a distribution name and folds runs of
// "-", "_" and "." into a single "-", per PEP 503.
func NormalizeName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	prevSep := false
	for _, r := range strings.ToLower(name) {
		if r == '-' || r == '_' || r == '.' {
			if !prevSep {
				b.WriteByte('-')
			}
			prevSep = true
			continue
		}
		prevSep = false
		b.WriteRune(r)
	}
	return b.String()
}

// Group returns the named group, or nil if the project has none.
func (p *Project) Group(name string) *Group {
	for i := range p.Groups {
		if p.Groups[i].Name == name {
			return &p.Groups[i]
		}
	}
	return nil
}

// GroupNames returns the group names with MainGroup first and the rest
// sorted by name.
func (p *Project) GroupNames() []string {
	names := make([]string, 0, len(p.Groups))
	for _, g := range p.Groups {
		names = append(names, g.Name)
	}
	return names
}

// Dependencies returns every dependency across all groups.
func (p *Project) Dependencies() []Dependency {
	var deps []Dependency
	for _, g := range p.Groups {
		deps = append(deps, g.Dependencies...)
	}
	return deps
}

// Tool returns the raw section for a tool name and whether it exists.
func (p *Project) Tool(name string) (Tool, bool) {
	t, ok := p.Tools[name]
	return t, ok
}

// ToolNames returns the declared tool section names, sorted.
func (p *Project) ToolNames() []string {
	names := make([]string, 0, len(p.Tools))
	for name := range p.Tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
