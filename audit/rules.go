package audit

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	pep440 "github.com/aquasecurity/go-pep440-version"
	"github.com/github/go-spdx/v2/spdxexp"

	"github.com/git-pkgs/pyproject/internal/constraint"
	"github.com/git-pkgs/pyproject/internal/core"
	"github.com/git-pkgs/pyproject/internal/manifest"
	"github.com/git-pkgs/pyproject/internal/tools"
)

var distNameRe = regexp.MustCompile(`^([A-Za-z0-9][-A-Za-z0-9._]*[A-Za-z0-9]|[A-Za-z0-9])$`)

func (a *Auditor) checkMetadata(p *core.Project, rep *Report) {
	md := p.Metadata

	switch {
	case md.Name == "":
		rep.add(Finding{Rule: "metadata/name", Severity: SeverityError,
			Message: "package name is missing"})
	case !distNameRe.MatchString(md.Name):
		rep.add(Finding{Rule: "metadata/name", Severity: SeverityError,
			Message: fmt.Sprintf("%q is not a valid distribution name", md.Name)})
	}

	if md.Version == "" {
		rep.add(Finding{Rule: "metadata/version", Severity: SeverityWarning,
			Message: "version is missing or dynamic"})
	} else if _, err := pep440.Parse(md.Version); err != nil {
		rep.add(Finding{Rule: "metadata/version", Severity: SeverityError,
			Message: fmt.Sprintf("version %q is not a valid version", md.Version)})
	}

	a.checkLicense(md.License, rep)

	if md.Readme != "" && p.Path != "" {
		readme := filepath.Join(filepath.Dir(p.Path), md.Readme)
		if _, err := os.Stat(readme); err != nil {
			rep.add(Finding{Rule: "metadata/readme", Severity: SeverityError,
				Message: fmt.Sprintf("readme %q does not exist", md.Readme)})
		}
	}

	for _, person := range append(append([]core.Person{}, md.Authors...), md.Maintainers...) {
		if person.Name == "" && person.Email == "" {
			rep.add(Finding{Rule: "metadata/authors", Severity: SeverityWarning,
				Message: "author entry has neither name nor email"})
		}
		if person.Email != "" && !strings.Contains(person.Email, "@") {
			rep.add(Finding{Rule: "metadata/authors", Severity: SeverityWarning,
				Message: fmt.Sprintf("%q does not look like an email address", person.Email)})
		}
	}

	if md.RequiresPython != "" {
		if _, err := constraint.Parse(md.RequiresPython); err != nil {
			rep.add(Finding{Rule: "metadata/requires-python", Severity: SeverityError,
				Message: fmt.Sprintf("requires-python: %v", err)})
		}
	}
}

// checkLicense validates SPDX expressions. License file references and
// free-text classifiers are left alone.
func (a *Auditor) checkLicense(license string, rep *Report) {
	if license == "" {
		rep.add(Finding{Rule: "metadata/license", Severity: SeverityInfo,
			Message: "no license declared"})
		return
	}
	if strings.ContainsAny(license, "/\\") || strings.Contains(license, " :: ") {
		return
	}
	valid, invalid := spdxexp.ValidateLicenses([]string{license})
	if !valid {
		rep.add(Finding{Rule: "metadata/license", Severity: SeverityWarning,
			Message: fmt.Sprintf("%q is not a valid SPDX expression", strings.Join(invalid, ", "))})
	}
}

func (a *Auditor) checkBuildSystem(p *core.Project, rep *Report) {
	if p.Build.Backend == "" && len(p.Build.Requires) == 0 {
		rep.add(Finding{Rule: "build/missing", Severity: SeverityWarning,
			Message: "no [build-system] table; installers will fall back to setuptools"})
		return
	}
	if p.Build.Backend == "" {
		rep.add(Finding{Rule: "build/backend", Severity: SeverityWarning,
			Message: "build-system declares no build-backend"})
	}
	for _, req := range p.Build.Requires {
		if _, err := manifest.ParseRequirement(req); err != nil {
			rep.add(Finding{Rule: "build/requires", Severity: SeverityError,
				Message: fmt.Sprintf("requirement %q: %v", req, err)})
		}
	}
}

func (a *Auditor) checkGroups(p *core.Project, rep *Report) {
	type seenDep struct {
		group      string
		constraint string
	}
	seen := make(map[string][]seenDep)

	for _, g := range p.Groups {
		inGroup := make(map[string]bool)
		for _, dep := range g.Dependencies {
			if inGroup[dep.Normalized] {
				rep.add(Finding{Rule: "groups/duplicate", Severity: SeverityError,
					Group: g.Name, Dependency: dep.Normalized,
					Message: fmt.Sprintf("%s is declared twice in group %s", dep.Normalized, g.Name)})
			}
			inGroup[dep.Normalized] = true
			seen[dep.Normalized] = append(seen[dep.Normalized], seenDep{g.Name, dep.Constraint})
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		entries := seen[name]
		for i := 1; i < len(entries); i++ {
			if entries[i].constraint != entries[0].constraint {
				rep.add(Finding{Rule: "groups/conflict", Severity: SeverityWarning,
					Dependency: name,
					Message: fmt.Sprintf("%s has constraint %q in group %s but %q in group %s",
						name, entries[0].constraint, entries[0].group,
						entries[i].constraint, entries[i].group)})
				break
			}
		}
	}
}

// checkExtras cross-references [tool.poetry.extras] with the main
// dependency table: every name an extra lists must be a declared
// optional dependency, and every optional dependency must be reachable
// through some extra.
func (a *Auditor) checkExtras(p *core.Project, rep *Report) {
	main := p.Group(core.MainGroup)
	byName := make(map[string]core.Dependency)
	if main != nil {
		for _, dep := range main.Dependencies {
			byName[dep.Normalized] = dep
		}
	}

	extras := make([]string, 0, len(p.Extras))
	for extra := range p.Extras {
		extras = append(extras, extra)
	}
	sort.Strings(extras)

	referenced := make(map[string]bool)
	for _, extra := range extras {
		for _, name := range p.Extras[extra] {
			norm := core.NormalizeName(name)
			referenced[norm] = true
			dep, ok := byName[norm]
			if !ok {
				rep.add(Finding{Rule: "groups/extras", Severity: SeverityError,
					Dependency: norm,
					Message:    fmt.Sprintf("extra %q lists %s, which is not a main dependency", extra, norm)})
				continue
			}
			if !dep.Optional {
				rep.add(Finding{Rule: "groups/extras", Severity: SeverityWarning,
					Dependency: norm,
					Message:    fmt.Sprintf("extra %q lists %s, which is not marked optional", extra, norm)})
			}
		}
	}

	if main == nil {
		return
	}
	for _, dep := range main.Dependencies {
		if dep.Optional && !referenced[dep.Normalized] {
			rep.add(Finding{Rule: "groups/extras", Severity: SeverityWarning,
				Dependency: dep.Normalized,
				Message:    fmt.Sprintf("%s is optional but no extra provides it", dep.Normalized)})
		}
	}
}

func (a *Auditor) checkConstraints(p *core.Project, rep *Report) {
	for _, g := range p.Groups {
		for _, dep := range g.Dependencies {
			if dep.Source == core.SourceRegistry {
				if _, err := constraint.Parse(dep.Constraint); err != nil {
					rep.add(Finding{Rule: "constraints/parse", Severity: SeverityError,
						Group: g.Name, Dependency: dep.Normalized,
						Message: err.Error()})
				}
			}
			if dep.Python != "" {
				if _, err := constraint.Parse(dep.Python); err != nil {
					rep.add(Finding{Rule: "constraints/python", Severity: SeverityError,
						Group: g.Name, Dependency: dep.Normalized,
						Message: fmt.Sprintf("python restriction: %v", err)})
				}
			}
			if dep.Source == core.SourceGit && dep.Git.URL == "" {
				rep.add(Finding{Rule: "constraints/source", Severity: SeverityError,
					Group: g.Name, Dependency: dep.Normalized,
					Message: "git dependency has no repository URL"})
			}
		}
	}
}

func (a *Auditor) checkTools(p *core.Project, rep *Report) {
	for _, name := range p.ToolNames() {
		if !tools.Known(name) {
			continue
		}
		sec, _ := p.Tool(name)
		problems, err := tools.Check(name, sec)
		if err != nil {
			rep.add(Finding{Rule: "tools/" + name, Severity: SeverityError,
				Message: err.Error()})
			continue
		}
		for _, prob := range problems {
			rep.add(Finding{Rule: "tools/" + name, Severity: SeverityWarning,
				Message: prob.String()})
		}
	}
}
