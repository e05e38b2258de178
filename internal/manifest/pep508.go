package manifest

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/git-pkgs/pyproject/internal/core"
)

var requirementNameRe = regexp.MustCompile(`^([A-Za-z0-9][-A-Za-z0-9._]*[A-Za-z0-9]|[A-Za-z0-9])\s*(\[[^\]]*\])?`)

// ParseRequirement turns a PEP 508 requirement string into a Dependency.
// Only the subset that appears in manifests is handled: name, extras,
// version specifiers, "name @ url" direct references, and the trailing
// environment marker. The full grammar (nested marker expressions) is
// left to the interpreter consuming the marker string.
func ParseRequirement(req string) (core.Dependency, error) {
	dep := core.Dependency{Constraint: "*", Source: core.SourceRegistry}

	// Environment marker comes after ";".
	rest := req
	if idx := strings.Index(rest, ";"); idx >= 0 {
		dep.Marker = strings.TrimSpace(rest[idx+1:])
		rest = rest[:idx]
	}
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return dep, fmt.Errorf("empty requirement %q", req)
	}

	m := requirementNameRe.FindStringSubmatch(rest)
	if m == nil {
		return dep, fmt.Errorf("invalid requirement %q", req)
	}
	dep.Name = m[1]
	dep.Normalized = core.NormalizeName(m[1])
	if m[2] != "" {
		for _, e := range strings.Split(strings.Trim(strings.TrimSpace(m[2]), "[]"), ",") {
			if e = strings.TrimSpace(e); e != "" {
				dep.Extras = append(dep.Extras, e)
			}
		}
	}

	spec := strings.TrimSpace(rest[len(m[0]):])
	if strings.HasPrefix(spec, "@") {
		dep.Source = core.SourceURL
		dep.URL = strings.TrimSpace(spec[1:])
		return dep, nil
	}

	spec = strings.TrimSpace(strings.Trim(spec, "()"))
	if spec != "" {
		dep.Constraint = spec
	}
	return dep, nil
}
