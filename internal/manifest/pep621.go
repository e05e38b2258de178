package manifest

import (
	"fmt"
	"strings"

	"github.com/git-pkgs/pyproject/internal/core"
)

type projectTable struct {
	Name           string        `toml:"name"`
	Version        string        `toml:"version"`
	Description    string        `toml:"description"`
	Readme         any           `toml:"readme"`
	RequiresPython string        `toml:"requires-python"`
	License        any           `toml:"license"`
	Authors        []personTable `toml:"authors"`
	Maintainers    []personTable `toml:"maintainers"`
	Keywords       []string      `toml:"keywords"`
	Classifiers    []string      `toml:"classifiers"`

	URLs                 map[string]string   `toml:"urls"`
	Dependencies         []string            `toml:"dependencies"`
	OptionalDependencies map[string][]string `toml:"optional-dependencies"`
	Dynamic              []string            `toml:"dynamic"`
}

type personTable struct {
	Name  string `toml:"name"`
	Email string `toml:"email"`
}

func buildPEP621(pt *projectTable, depGroups map[string][]any, p *core.Project) error {
	p.Metadata = core.Metadata{
		Name:           pt.Name,
		Version:        pt.Version,
		Description:    pt.Description,
		Readme:         pep621Readme(pt.Readme),
		RequiresPython: pt.RequiresPython,
		License:        pep621License(pt.License),
		Authors:        convertPersons(pt.Authors),
		Maintainers:    convertPersons(pt.Maintainers),
		Keywords:       pt.Keywords,
		Classifiers:    pt.Classifiers,
		Homepage:       extractHomepage(pt.URLs),
		Repository:     extractRepository(pt.URLs),
		Documentation:  pt.URLs["Documentation"],
	}

	main, err := requirementList(pt.Dependencies)
	if err != nil {
		return err
	}
	p.Groups = append(p.Groups, core.Group{Name: core.MainGroup, Dependencies: main})

	// [project.optional-dependencies]: each extra becomes an optional group.
	for extra, reqs := range pt.OptionalDependencies {
		deps, err := requirementList(reqs)
		if err != nil {
			return fmt.Errorf("optional-dependencies %s: %w", extra, err)
		}
		p.Groups = append(p.Groups, core.Group{Name: extra, Optional: true, Dependencies: deps})
	}

	// [dependency-groups] (PEP 735): entries are requirement strings or
	// {include-group = "..."} tables. Includes are expanded after every
	// group has been collected.
	includes := make(map[string][]string)
	for name, entries := range depGroups {
		var deps []core.Dependency
		for i, entry := range entries {
			switch v := entry.(type) {
			case string:
				dep, err := ParseRequirement(v)
				if err != nil {
					return fmt.Errorf("dependency-groups %s: %w", name, err)
				}
				deps = append(deps, dep)
			case map[string]any:
				if inc, ok := v["include-group"].(string); ok {
					includes[name] = append(includes[name], inc)
					continue
				}
				return fmt.Errorf("dependency-groups %s: entry %d has no include-group", name, i)
			default:
				return fmt.Errorf("dependency-groups %s: entry %d is %T, want string or table", name, i, entry)
			}
		}
		if existing := p.Group(name); existing != nil {
			existing.Dependencies = append(existing.Dependencies, deps...)
			continue
		}
		p.Groups = append(p.Groups, core.Group{Name: name, Dependencies: deps})
	}

	for name, targets := range includes {
		g := p.Group(name)
		for _, target := range targets {
			src := p.Group(target)
			if src == nil {
				// PEP 735: including an undefined group is an error.
				return &core.ValidationError{
					Field: "dependency-groups." + name,
					Msg:   fmt.Sprintf("include-group %q references an undeclared group", target),
				}
			}
			if src != g {
				g.Dependencies = append(g.Dependencies, src.Dependencies...)
			}
		}
	}
	return nil
}

func requirementList(reqs []string) ([]core.Dependency, error) {
	var deps []core.Dependency
	for _, r := range reqs {
		dep, err := ParseRequirement(r)
		if err != nil {
			return nil, err
		}
		deps = append(deps, dep)
	}
	return deps, nil
}

func convertPersons(entries []personTable) []core.Person {
	var persons []core.Person
	for _, e := range entries {
		if e.Name == "" && e.Email == "" {
			continue
		}
		persons = append(persons, core.Person{Name: e.Name, Email: e.Email})
	}
	return persons
}

// pep621Readme coerces the readme field, which is a path string or a
// table with a "file" or "text" key.
func pep621Readme(v any) string {
	switch r := v.(type) {
	case string:
		return r
	case map[string]any:
		if f, ok := r["file"].(string); ok {
			return f
		}
	}
	return ""
}

// pep621License coerces the license field: an SPDX expression string
// in current metadata, or a legacy {text = ...} / {file = ...} table.
func pep621License(v any) string {
	switch l := v.(type) {
	case string:
		return l
	case map[string]any:
		if t, ok := l["text"].(string); ok {
			return t
		}
		if f, ok := l["file"].(string); ok {
			return f
		}
	}
	return ""
}

// extractRepository picks the repository URL from [project.urls],
// trying the conventional key names first.
func extractRepository(urls map[string]string) string {
	priorityKeys := []string{"Repository", "Source", "Source Code", "Code"}
	for _, key := range priorityKeys {
		if u, ok := urls[key]; ok && u != "" && isRepoURL(u) {
			return u
		}
	}
	for _, u := range urls {
		if isRepoURL(u) && !strings.Contains(u, "github.com/sponsors") {
			return u
		}
	}
	return ""
}

func extractHomepage(urls map[string]string) string {
	if u, ok := urls["Homepage"]; ok {
		return u
	}
	if u, ok := urls["Home"]; ok {
		return u
	}
	return ""
}

func isRepoURL(u string) bool {
	return strings.Contains(u, "github.com") ||
		strings.Contains(u, "gitlab.com") ||
		strings.Contains(u, "bitbucket.org") ||
		strings.Contains(u, "codeberg.org")
}
