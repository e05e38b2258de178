package manifest

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/git-pkgs/pyproject/internal/core"
)

type poetryTable struct {
	Name          string   `toml:"name"`
	Version       string   `toml:"version"`
	Description   string   `toml:"description"`
	Authors       []string `toml:"authors"`
	Maintainers   []string `toml:"maintainers"`
	Readme        any      `toml:"readme"`
	License       string   `toml:"license"`
	Homepage      string   `toml:"homepage"`
	Repository    string   `toml:"repository"`
	Documentation string   `toml:"documentation"`
	Keywords      []string `toml:"keywords"`
	Classifiers   []string `toml:"classifiers"`

	Dependencies    map[string]any         `toml:"dependencies"`
	DevDependencies map[string]any         `toml:"dev-dependencies"`
	Group           map[string]poetryGroup `toml:"group"`
	Extras          map[string][]string    `toml:"extras"`
}

type poetryGroup struct {
	Optional     bool           `toml:"optional"`
	Dependencies map[string]any `toml:"dependencies"`
}

func buildPoetry(md toml.MetaData, prim toml.Primitive, p *core.Project) error {
	var pt poetryTable
	if err := md.PrimitiveDecode(prim, &pt); err != nil {
		return err
	}

	p.Metadata = core.Metadata{
		Name:          pt.Name,
		Version:       pt.Version,
		Description:   pt.Description,
		Authors:       parsePersons(pt.Authors),
		Maintainers:   parsePersons(pt.Maintainers),
		Readme:        readmePath(pt.Readme),
		License:       pt.License,
		Homepage:      pt.Homepage,
		Repository:    pt.Repository,
		Documentation: pt.Documentation,
		Keywords:      pt.Keywords,
		Classifiers:   pt.Classifiers,
	}

	main, requiresPython, err := poetryDependencies(pt.Dependencies)
	if err != nil {
		return err
	}
	p.Metadata.RequiresPython = requiresPython
	p.Groups = append(p.Groups, core.Group{Name: core.MainGroup, Dependencies: main})

	// Legacy [tool.poetry.dev-dependencies] folds into the dev group.
	if len(pt.DevDependencies) > 0 {
		deps, _, err := poetryDependencies(pt.DevDependencies)
		if err != nil {
			return err
		}
		p.Groups = append(p.Groups, core.Group{Name: "dev", Dependencies: deps})
	}

	for name, g := range pt.Group {
		deps, _, err := poetryDependencies(g.Dependencies)
		if err != nil {
			return fmt.Errorf("group %s: %w", name, err)
		}
		if existing := p.Group(name); existing != nil {
			existing.Optional = existing.Optional || g.Optional
			existing.Dependencies = append(existing.Dependencies, deps...)
			continue
		}
		p.Groups = append(p.Groups, core.Group{
			Name:         name,
			Optional:     g.Optional,
			Dependencies: deps,
		})
	}

	p.Extras = pt.Extras
	return nil
}

// poetryDependencies converts one poetry dependency table. The "python"
// pseudo-dependency is lifted out and returned as the requires-python
// constraint instead of a dependency.
func poetryDependencies(table map[string]any) ([]core.Dependency, string, error) {
	var deps []core.Dependency
	var requiresPython string

	for name, spec := range table {
		if strings.EqualFold(name, "python") {
			if s, ok := spec.(string); ok {
				requiresPython = s
			}
			continue
		}

		dep, err := poetryDependency(name, spec)
		if err != nil {
			return nil, "", err
		}
		deps = append(deps, dep)
	}
	return deps, requiresPython, nil
}

func poetryDependency(name string, spec any) (core.Dependency, error) {
	dep := core.Dependency{
		Name:       name,
		Normalized: core.NormalizeName(name),
		Constraint: "*",
		Source:     core.SourceRegistry,
	}

	switch v := spec.(type) {
	case string:
		if v != "" {
			dep.Constraint = v
		}
		return dep, nil

	case map[string]any:
		return poetryDependencyTable(dep, v)

	case []any:
		// Multiple-constraint form: one entry per environment. The
		// constraints union for matching purposes; the first entry's
		// source fields win.
		var parts []string
		for i, elem := range v {
			tbl, ok := elem.(map[string]any)
			if !ok {
				return dep, fmt.Errorf("dependency %s: entry %d is not a table", name, i)
			}
			d, err := poetryDependencyTable(dep, tbl)
			if err != nil {
				return dep, err
			}
			if i == 0 {
				dep = d
			}
			if d.Constraint != "" && d.Constraint != "*" {
				parts = append(parts, d.Constraint)
			}
		}
		if len(parts) > 0 {
			dep.Constraint = strings.Join(parts, " || ")
		}
		return dep, nil

	default:
		return dep, fmt.Errorf("dependency %s: unsupported specification %T", name, spec)
	}
}

func poetryDependencyTable(dep core.Dependency, tbl map[string]any) (core.Dependency, error) {
	if v, ok := tbl["version"].(string); ok && v != "" {
		dep.Constraint = v
	}
	if v, ok := tbl["optional"].(bool); ok {
		dep.Optional = v
	}
	if v, ok := tbl["python"].(string); ok {
		dep.Python = v
	}
	if v, ok := tbl["markers"].(string); ok {
		dep.Marker = v
	}
	if extras, ok := tbl["extras"].([]any); ok {
		for _, e := range extras {
			if s, ok := e.(string); ok {
				dep.Extras = append(dep.Extras, s)
			}
		}
	}

	switch {
	case tbl["git"] != nil:
		dep.Source = core.SourceGit
		dep.Git.URL, _ = tbl["git"].(string)
		dep.Git.Branch, _ = tbl["branch"].(string)
		dep.Git.Tag, _ = tbl["tag"].(string)
		dep.Git.Rev, _ = tbl["rev"].(string)
		dep.Git.Subdirectory, _ = tbl["subdirectory"].(string)
	case tbl["url"] != nil:
		dep.Source = core.SourceURL
		dep.URL, _ = tbl["url"].(string)
	case tbl["path"] != nil:
		dep.Source = core.SourcePath
		dep.LocalPath, _ = tbl["path"].(string)
	}
	return dep, nil
}

var personRe = regexp.MustCompile(`^(.*?)\s*<([^>]+)>$`)

// parsePersons splits poetry's "Name <email>" author strings.
func parsePersons(entries []string) []core.Person {
	var persons []core.Person
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if m := personRe.FindStringSubmatch(e); m != nil {
			persons = append(persons, core.Person{Name: m[1], Email: m[2]})
			continue
		}
		persons = append(persons, core.Person{Name: e})
	}
	return persons
}

// readmePath coerces poetry's readme field, which is a string or an
// array of strings. Only the first entry is kept.
func readmePath(v any) string {
	switch r := v.(type) {
	case string:
		return r
	case []any:
		for _, e := range r {
			if s, ok := e.(string); ok {
				return s
			}
		}
	}
	return ""
}
