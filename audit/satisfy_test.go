package audit

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/git-pkgs/pyproject/internal/core"
)

// fakeIndex serves canned PyPI JSON responses keyed by package name.
func fakeIndex(t *testing.T, responses map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for name, body := range responses {
			if r.URL.Path == fmt.Sprintf("/pypi/%s/json", name) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(body))
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
	}))
}

func releasesJSON(releases string) string {
	return fmt.Sprintf(`{"info": {}, "releases": {%s}}`, releases)
}

func auditOnline(t *testing.T, p *core.Project, serverURL string, extra ...Option) *Report {
	t.Helper()
	opts := append([]Option{WithIndexURL(serverURL)}, extra...)
	rep, err := New(opts...).Audit(context.Background(), p)
	require.NoError(t, err)
	return rep
}

func TestSatisfy_ConstraintSatisfiable(t *testing.T) {
	server := fakeIndex(t, map[string]string{
		"torch": releasesJSON(`
			"1.13.1": [{"packagetype": "sdist"}],
			"2.0.0": [{"packagetype": "sdist"}],
			"2.1.0": [{"packagetype": "sdist"}]`),
	})
	defer server.Close()

	rep := auditOnline(t, validProject(), server.URL)
	assert.Empty(t, findRule(rep, "satisfy/exists"))
	assert.Empty(t, findRule(rep, "satisfy/match"))
	assert.False(t, rep.HasErrors(), "findings: %v", rep.Findings)
}

func TestSatisfy_PackageNotFound(t *testing.T) {
	server := fakeIndex(t, nil)
	defer server.Close()

	rep := auditOnline(t, validProject(), server.URL)
	findings := findRule(rep, "satisfy/exists")
	require.Len(t, findings, 1)
	assert.Equal(t, SeverityError, findings[0].Severity)
	assert.Equal(t, "torch", findings[0].Dependency)
}

func TestSatisfy_NoVersionMatches(t *testing.T) {
	server := fakeIndex(t, map[string]string{
		"torch": releasesJSON(`"1.13.1": [{"packagetype": "sdist"}]`),
	})
	defer server.Close()

	rep := auditOnline(t, validProject(), server.URL)
	findings := findRule(rep, "satisfy/match")
	require.Len(t, findings, 1)
	assert.Equal(t, SeverityError, findings[0].Severity)
	assert.Contains(t, findings[0].Message, "^2.0")
}

func TestSatisfy_AllMatchesYanked(t *testing.T) {
	server := fakeIndex(t, map[string]string{
		"torch": releasesJSON(`
			"1.13.1": [{"packagetype": "sdist"}],
			"2.0.0": [{"packagetype": "sdist", "yanked": true, "yanked_reason": "broken"}],
			"2.0.1": [{"packagetype": "sdist", "yanked": true}]`),
	})
	defer server.Close()

	rep := auditOnline(t, validProject(), server.URL)
	findings := findRule(rep, "satisfy/yanked")
	require.Len(t, findings, 1)
	assert.Equal(t, SeverityWarning, findings[0].Severity)
	assert.False(t, rep.HasErrors())
}

func TestSatisfy_PythonIncompatible(t *testing.T) {
	server := fakeIndex(t, map[string]string{
		"torch": releasesJSON(`
			"2.0.0": [{"packagetype": "sdist", "requires_python": ">=3.12"}]`),
	})
	defer server.Close()

	p := validProject()
	p.Metadata.RequiresPython = "^3.10"
	rep := auditOnline(t, p, server.URL)
	findings := findRule(rep, "satisfy/python")
	require.Len(t, findings, 1)
	assert.Contains(t, findings[0].Message, ">=3.12")
}

func TestSatisfy_Ignored(t *testing.T) {
	server := fakeIndex(t, nil)
	defer server.Close()

	p := validProject()
	p.Groups[0].Dependencies = append(p.Groups[0].Dependencies,
		core.Dependency{Name: "numpy", Normalized: "numpy", Constraint: "*", Source: core.SourceRegistry})

	rep := auditOnline(t, p, server.URL,
		WithIgnore("pkg:pypi/torch", "numpy"))
	assert.Empty(t, findRule(rep, "satisfy/exists"))
}

func TestSatisfy_SkipsNonRegistrySources(t *testing.T) {
	server := fakeIndex(t, nil)
	defer server.Close()

	p := validProject()
	p.Groups[0].Dependencies = []core.Dependency{
		{Name: "flows", Normalized: "flows", Source: core.SourceGit,
			Git: core.GitSource{URL: "https://github.com/example/flows"}},
	}

	rep := auditOnline(t, p, server.URL)
	assert.Empty(t, findRule(rep, "satisfy/exists"))
}

func TestSatisfy_ArtifactHead(t *testing.T) {
	artifact := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("method = %s, want HEAD", r.Method)
		}
		w.Header().Set("Content-Length", "1024")
	}))
	defer artifact.Close()

	server := fakeIndex(t, map[string]string{
		"torch": releasesJSON(fmt.Sprintf(
			`"2.0.0": [{"packagetype": "sdist", "url": "%s/torch-2.0.0.tar.gz", "digests": {"sha256": "abc"}}]`,
			artifact.URL)),
	})
	defer server.Close()

	rep := auditOnline(t, validProject(), server.URL, WithArtifactChecks(true))
	assert.Empty(t, findRule(rep, "satisfy/artifact"))
	assert.False(t, rep.HasErrors())
}

func TestSatisfy_ArtifactMissingURL(t *testing.T) {
	server := fakeIndex(t, map[string]string{
		"torch": releasesJSON(`"2.0.0": [{"packagetype": "sdist"}]`),
	})
	defer server.Close()

	rep := auditOnline(t, validProject(), server.URL, WithArtifactChecks(true))
	findings := findRule(rep, "satisfy/artifact")
	require.Len(t, findings, 1)
	assert.Equal(t, SeverityWarning, findings[0].Severity)
}
