package audit

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"

	pep440 "github.com/aquasecurity/go-pep440-version"

	"github.com/git-pkgs/pyproject/client"
	"github.com/git-pkgs/pyproject/fetch"
	"github.com/git-pkgs/pyproject/internal/constraint"
	"github.com/git-pkgs/pyproject/internal/core"
	"github.com/git-pkgs/pyproject/internal/pypi"
)

type versionsResult struct {
	versions []pypi.Version
	err      error
}

// checkSatisfiability verifies each registry dependency against the
// index: its name resolves, its constraint matches at least one
// version, and the match is neither yanked-only nor prerelease-only.
// Lookups run in parallel; findings are emitted in group order so the
// report stays deterministic.
func (a *Auditor) checkSatisfiability(ctx context.Context, p *core.Project, reg *pypi.Registry, rep *Report) error {
	names := a.lookupNames(p)
	if len(names) == 0 {
		return nil
	}

	results := make(map[string]versionsResult, len(names))
	var mu sync.Mutex
	sem := make(chan struct{}, a.concurrency)
	var wg sync.WaitGroup

	for _, name := range names {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return
			}

			versions, err := reg.FetchVersions(ctx, name)
			mu.Lock()
			results[name] = versionsResult{versions: versions, err: err}
			mu.Unlock()
		}(name)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}

	minPython := a.minimumPython(p)
	var resolver *fetch.Resolver
	var headFetcher *fetch.CircuitBreakerFetcher
	if a.artifacts {
		resolver = fetch.NewResolver(reg)
		headFetcher = fetch.NewCircuitBreakerFetcher(fetch.NewFetcher())
	}

	for _, g := range p.Groups {
		for _, dep := range g.Dependencies {
			if dep.Source != core.SourceRegistry {
				continue
			}
			if _, skip := a.ignore[dep.Normalized]; skip {
				continue
			}
			res, ok := results[dep.Normalized]
			if !ok {
				continue
			}
			best := a.evaluateDependency(g.Name, dep, res, minPython, rep)
			if a.artifacts && best != "" {
				a.checkArtifact(ctx, resolver, headFetcher, g.Name, dep, best, rep)
			}
		}
	}
	return nil
}

// lookupNames returns the unique normalized names needing an index
// lookup, in first-appearance order.
func (a *Auditor) lookupNames(p *core.Project) []string {
	var names []string
	seen := make(map[string]bool)
	for _, g := range p.Groups {
		for _, dep := range g.Dependencies {
			if dep.Source != core.SourceRegistry || seen[dep.Normalized] {
				continue
			}
			if _, skip := a.ignore[dep.Normalized]; skip {
				continue
			}
			seen[dep.Normalized] = true
			names = append(names, dep.Normalized)
		}
	}
	return names
}

var preReleaseRe = regexp.MustCompile(`(?i)(a|b|c|rc|alpha|beta|pre|preview|dev)\.?[0-9]*$`)

// evaluateDependency emits findings for one dependency and returns the
// best matching version number, or "" when nothing matched.
func (a *Auditor) evaluateDependency(group string, dep core.Dependency, res versionsResult, minPython string, rep *Report) string {
	if res.err != nil {
		severity := SeverityWarning
		msg := fmt.Sprintf("index lookup failed: %v", res.err)
		if errors.Is(res.err, client.ErrNotFound) {
			severity = SeverityError
			msg = "not found on the index"
		}
		rep.add(Finding{Rule: "satisfy/exists", Severity: severity,
			Group: group, Dependency: dep.Normalized, Message: msg})
		return ""
	}

	c, err := constraint.Parse(dep.Constraint)
	if err != nil {
		// Already reported by the constraint rule.
		return ""
	}

	type candidate struct {
		version pypi.Version
		parsed  pep440.Version
	}
	var matches []candidate
	for _, v := range res.versions {
		parsed, err := pep440.Parse(v.Number)
		if err != nil {
			continue
		}
		if c.Matches(parsed) {
			matches = append(matches, candidate{v, parsed})
		}
	}

	if len(matches) == 0 {
		rep.add(Finding{Rule: "satisfy/match", Severity: SeverityError,
			Group: group, Dependency: dep.Normalized,
			Message: fmt.Sprintf("no version satisfies %q", dep.Constraint)})
		return ""
	}

	best := matches[0]
	allYanked := true
	anyStable := false
	for _, m := range matches {
		if !m.version.Yanked {
			allYanked = false
		}
		if !preReleaseRe.MatchString(m.version.Number) {
			anyStable = true
		}
		if m.parsed.GreaterThan(best.parsed) {
			best = m
		}
	}

	switch {
	case allYanked:
		rep.add(Finding{Rule: "satisfy/yanked", Severity: SeverityWarning,
			Group: group, Dependency: dep.Normalized,
			Message: fmt.Sprintf("every version satisfying %q has been yanked", dep.Constraint)})
	case !anyStable:
		rep.add(Finding{Rule: "satisfy/prerelease", Severity: SeverityInfo,
			Group: group, Dependency: dep.Normalized,
			Message: fmt.Sprintf("only pre-release versions satisfy %q", dep.Constraint)})
	}

	a.checkPythonCompat(group, dep, best.version, minPython, rep)

	a.log.Debug().
		Str("dependency", dep.Normalized).
		Str("constraint", dep.Constraint).
		Str("best", best.version.Number).
		Msg("constraint satisfiable")
	return best.version.Number
}

// minimumPython extracts the lowest interpreter version the project
// claims to support, or "" when unconstrained.
func (a *Auditor) minimumPython(p *core.Project) string {
	if p.Metadata.RequiresPython == "" {
		return ""
	}
	c, err := constraint.Parse(p.Metadata.RequiresPython)
	if err != nil {
		return ""
	}
	return c.LowerBound()
}

// checkPythonCompat warns when the dependency's best match rejects the
// project's minimum interpreter.
func (a *Auditor) checkPythonCompat(group string, dep core.Dependency, best pypi.Version, minPython string, rep *Report) {
	if minPython == "" || best.RequiresPython == "" {
		return
	}
	spec, err := constraint.Parse(best.RequiresPython)
	if err != nil {
		return
	}
	ok, err := spec.Check(minPython)
	if err != nil || ok {
		return
	}
	rep.add(Finding{Rule: "satisfy/python", Severity: SeverityWarning,
		Group: group, Dependency: dep.Normalized,
		Message: fmt.Sprintf("version %s requires python %q, but the project supports %s",
			best.Number, best.RequiresPython, minPython)})
}

// checkArtifact verifies the release file behind the best match is
// actually downloadable.
func (a *Auditor) checkArtifact(ctx context.Context, resolver *fetch.Resolver, hf *fetch.CircuitBreakerFetcher, group string, dep core.Dependency, version string, rep *Report) {
	info, err := resolver.Resolve(ctx, dep.Normalized, version)
	if err != nil {
		rep.add(Finding{Rule: "satisfy/artifact", Severity: SeverityWarning,
			Group: group, Dependency: dep.Normalized,
			Message: fmt.Sprintf("version %s: %v", version, err)})
		return
	}
	if _, _, err := hf.Head(ctx, info.URL); err != nil {
		rep.add(Finding{Rule: "satisfy/artifact", Severity: SeverityWarning,
			Group: group, Dependency: dep.Normalized,
			Message: fmt.Sprintf("release file %s unavailable: %v", info.Filename, err)})
	}
}
