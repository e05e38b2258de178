package audit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/git-pkgs/pyproject/internal/core"
)

func findRule(rep *Report, rule string) []Finding {
	var out []Finding
	for _, f := range rep.Findings {
		if f.Rule == rule {
			out = append(out, f)
		}
	}
	return out
}

func validProject() *core.Project {
	return &core.Project{
		Layout: core.LayoutPoetry,
		Metadata: core.Metadata{
			Name:           "torchlft",
			Version:        "0.1.0",
			License:        "MIT",
			RequiresPython: "^3.10",
			Authors:        []core.Person{{Name: "Joe Marsh Rossney", Email: "jmr@example.org"}},
		},
		Build: core.BuildSystem{
			Requires: []string{"poetry-core"},
			Backend:  "poetry.core.masonry.api",
		},
		Groups: []core.Group{
			{
				Name: core.MainGroup,
				Dependencies: []core.Dependency{
					{Name: "torch", Normalized: "torch", Constraint: "^2.0", Source: core.SourceRegistry},
				},
			},
		},
	}
}

func auditOffline(t *testing.T, p *core.Project) *Report {
	t.Helper()
	rep, err := New(WithNetwork(false)).Audit(context.Background(), p)
	require.NoError(t, err)
	return rep
}

func TestAudit_CleanProject(t *testing.T) {
	rep := auditOffline(t, validProject())
	assert.False(t, rep.HasErrors(), "findings: %v", rep.Findings)
}

func TestAudit_MetadataName(t *testing.T) {
	p := validProject()
	p.Metadata.Name = ""
	rep := auditOffline(t, p)
	require.Len(t, findRule(rep, "metadata/name"), 1)
	assert.Equal(t, SeverityError, findRule(rep, "metadata/name")[0].Severity)

	p.Metadata.Name = "-leading-dash"
	rep = auditOffline(t, p)
	require.Len(t, findRule(rep, "metadata/name"), 1)
}

func TestAudit_MetadataVersion(t *testing.T) {
	p := validProject()
	p.Metadata.Version = "not.a.version.at.all!"
	rep := auditOffline(t, p)
	findings := findRule(rep, "metadata/version")
	require.Len(t, findings, 1)
	assert.Equal(t, SeverityError, findings[0].Severity)

	p.Metadata.Version = ""
	rep = auditOffline(t, p)
	findings = findRule(rep, "metadata/version")
	require.Len(t, findings, 1)
	assert.Equal(t, SeverityWarning, findings[0].Severity)
}

func TestAudit_License(t *testing.T) {
	p := validProject()
	p.Metadata.License = "NotARealLicense"
	rep := auditOffline(t, p)
	findings := findRule(rep, "metadata/license")
	require.Len(t, findings, 1)
	assert.Equal(t, SeverityWarning, findings[0].Severity)

	// File references and classifier strings are not SPDX expressions.
	p.Metadata.License = "LICENSE/COPYING.txt"
	rep = auditOffline(t, p)
	assert.Empty(t, findRule(rep, "metadata/license"))

	p.Metadata.License = "License :: OSI Approved :: MIT License"
	rep = auditOffline(t, p)
	assert.Empty(t, findRule(rep, "metadata/license"))

	p.Metadata.License = ""
	rep = auditOffline(t, p)
	findings = findRule(rep, "metadata/license")
	require.Len(t, findings, 1)
	assert.Equal(t, SeverityInfo, findings[0].Severity)
}

func TestAudit_Authors(t *testing.T) {
	p := validProject()
	p.Metadata.Authors = append(p.Metadata.Authors, core.Person{Email: "not-an-email"})
	rep := auditOffline(t, p)
	assert.Len(t, findRule(rep, "metadata/authors"), 1)
}

func TestAudit_RequiresPython(t *testing.T) {
	p := validProject()
	p.Metadata.RequiresPython = "about 3.10"
	rep := auditOffline(t, p)
	assert.Len(t, findRule(rep, "metadata/requires-python"), 1)
}

func TestAudit_BuildSystem(t *testing.T) {
	p := validProject()
	p.Build = core.BuildSystem{}
	rep := auditOffline(t, p)
	assert.Len(t, findRule(rep, "build/missing"), 1)

	p.Build = core.BuildSystem{Requires: []string{"poetry-core"}}
	rep = auditOffline(t, p)
	assert.Len(t, findRule(rep, "build/backend"), 1)

	p.Build = core.BuildSystem{Requires: []string{"???bad"}, Backend: "poetry.core.masonry.api"}
	rep = auditOffline(t, p)
	assert.Len(t, findRule(rep, "build/requires"), 1)
}

func TestAudit_DuplicateDependency(t *testing.T) {
	p := validProject()
	p.Groups[0].Dependencies = append(p.Groups[0].Dependencies,
		core.Dependency{Name: "Torch", Normalized: "torch", Constraint: "^2.0", Source: core.SourceRegistry})
	rep := auditOffline(t, p)
	findings := findRule(rep, "groups/duplicate")
	require.Len(t, findings, 1)
	assert.Equal(t, "torch", findings[0].Dependency)
	assert.Equal(t, core.MainGroup, findings[0].Group)
}

func TestAudit_ConflictingConstraints(t *testing.T) {
	p := validProject()
	p.Groups = append(p.Groups, core.Group{
		Name: "dev",
		Dependencies: []core.Dependency{
			{Name: "torch", Normalized: "torch", Constraint: ">=1.0,<2.0", Source: core.SourceRegistry},
		},
	})
	rep := auditOffline(t, p)
	findings := findRule(rep, "groups/conflict")
	require.Len(t, findings, 1)
	assert.Equal(t, SeverityWarning, findings[0].Severity)
	assert.Equal(t, "torch", findings[0].Dependency)
}

func TestAudit_Extras(t *testing.T) {
	withTqdm := func() *core.Project {
		p := validProject()
		p.Groups[0].Dependencies = append(p.Groups[0].Dependencies,
			core.Dependency{Name: "tqdm", Normalized: "tqdm", Constraint: "^4.65",
				Optional: true, Source: core.SourceRegistry})
		return p
	}

	p := withTqdm()
	p.Extras = map[string][]string{"progress": {"tqdm"}}
	rep := auditOffline(t, p)
	assert.Empty(t, findRule(rep, "groups/extras"))

	// An extra naming something that is not a main dependency.
	p = withTqdm()
	p.Extras = map[string][]string{"progress": {"tqdm"}, "viz": {"seaborn"}}
	rep = auditOffline(t, p)
	findings := findRule(rep, "groups/extras")
	require.Len(t, findings, 1)
	assert.Equal(t, SeverityError, findings[0].Severity)
	assert.Equal(t, "seaborn", findings[0].Dependency)

	// An extra naming a dependency that is not marked optional.
	p = withTqdm()
	p.Extras = map[string][]string{"gpu": {"torch"}, "progress": {"tqdm"}}
	rep = auditOffline(t, p)
	findings = findRule(rep, "groups/extras")
	require.Len(t, findings, 1)
	assert.Equal(t, SeverityWarning, findings[0].Severity)
	assert.Equal(t, "torch", findings[0].Dependency)

	// An optional dependency no extra ever provides.
	p = withTqdm()
	rep = auditOffline(t, p)
	findings = findRule(rep, "groups/extras")
	require.Len(t, findings, 1)
	assert.Equal(t, SeverityWarning, findings[0].Severity)
	assert.Equal(t, "tqdm", findings[0].Dependency)
}

func TestAudit_BadConstraint(t *testing.T) {
	p := validProject()
	p.Groups[0].Dependencies = append(p.Groups[0].Dependencies,
		core.Dependency{Name: "numpy", Normalized: "numpy", Constraint: "^^1.24", Source: core.SourceRegistry})
	rep := auditOffline(t, p)
	findings := findRule(rep, "constraints/parse")
	require.Len(t, findings, 1)
	assert.Equal(t, "numpy", findings[0].Dependency)
}

func TestAudit_GitDependencyWithoutURL(t *testing.T) {
	p := validProject()
	p.Groups[0].Dependencies = append(p.Groups[0].Dependencies,
		core.Dependency{Name: "flows", Normalized: "flows", Constraint: "*", Source: core.SourceGit})
	rep := auditOffline(t, p)
	assert.Len(t, findRule(rep, "constraints/source"), 1)
}

func TestAudit_ToolSections(t *testing.T) {
	p := validProject()
	p.Tools = map[string]core.Tool{
		"black": {
			"line-length": int64(-10),
			"exclude":     "([unclosed",
		},
		"unknown-tool": {"whatever": true},
	}
	rep := auditOffline(t, p)
	findings := findRule(rep, "tools/black")
	assert.Len(t, findings, 2)
	assert.Empty(t, findRule(rep, "tools/unknown-tool"))
}

func TestReport_Errors(t *testing.T) {
	rep := &Report{}
	rep.add(Finding{Rule: "a", Severity: SeverityWarning})
	assert.False(t, rep.HasErrors())

	rep.add(Finding{Rule: "b", Severity: SeverityError})
	assert.True(t, rep.HasErrors())
	assert.Len(t, rep.Errors(), 1)
}
