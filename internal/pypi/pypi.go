// Package pypi provides a client for the pypi.org JSON API.
package pypi

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/git-pkgs/pyproject/client"
	"github.com/git-pkgs/pyproject/internal/core"
	"github.com/git-pkgs/pyproject/internal/manifest"
)

// DefaultURL is the public index.
const DefaultURL = "https://pypi.org"

// Registry fetches package metadata from a PyPI-compatible index.
type Registry struct {
	baseURL string
	client  *client.Client
	urls    *URLs
}

// New creates a registry client. An empty baseURL means pypi.org and a
// nil client means client.DefaultClient().
func New(baseURL string, c *client.Client) *Registry {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	if c == nil {
		c = client.DefaultClient()
	}
	r := &Registry{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  c,
	}
	r.urls = &URLs{baseURL: r.baseURL}
	return r
}

// URLs returns the URL builder for the index.
func (r *Registry) URLs() client.URLBuilder {
	return r.urls
}

// Package is index-level metadata for a distribution.
type Package struct {
	Name           string
	Normalized     string
	Summary        string
	Homepage       string
	Repository     string
	Documentation  string
	License        string
	Keywords       []string
	Classifiers    []string
	RequiresPython string
}

// Version is one release of a distribution.
type Version struct {
	Number         string
	PublishedAt    time.Time
	Yanked         bool
	YankedReason   string
	Integrity      string // sha256-...
	DownloadURL    string
	RequiresPython string
	PackageType    string // sdist or bdist_wheel
	Size           int
}

type packageResponse struct {
	Info     infoBlock                `json:"info"`
	Releases map[string][]releaseFile `json:"releases"`
}

type infoBlock struct {
	Name              string            `json:"name"`
	Summary           string            `json:"summary"`
	HomePage          string            `json:"home_page"`
	License           string            `json:"license"`
	LicenseExpression string            `json:"license_expression"`
	Keywords          string            `json:"keywords"`
	Version           string            `json:"version"`
	Classifiers       []string          `json:"classifiers"`
	ProjectURLs       map[string]string `json:"project_urls"`
	RequiresDist      []string          `json:"requires_dist"`
	RequiresPython    string            `json:"requires_python"`
}

type releaseFile struct {
	Digests        map[string]string `json:"digests"`
	URL            string            `json:"url"`
	UploadTime     string            `json:"upload_time"`
	Yanked         bool              `json:"yanked"`
	YankedReason   string            `json:"yanked_reason"`
	PackageType    string            `json:"packagetype"`
	RequiresPython string            `json:"requires_python"`
	Size           int               `json:"size"`
}

type versionInfoResponse struct {
	Info infoBlock `json:"info"`
}

// FetchPackage retrieves distribution metadata.
func (r *Registry) FetchPackage(ctx context.Context, name string) (*Package, error) {
	url := fmt.Sprintf("%s/pypi/%s/json", r.baseURL, name)

	var resp packageResponse
	if err := r.client.GetJSON(ctx, url, &resp); err != nil {
		if httpErr, ok := err.(*client.HTTPError); ok && httpErr.IsNotFound() {
			return nil, &client.NotFoundError{Name: name}
		}
		return nil, err
	}

	return &Package{
		Name:           resp.Info.Name,
		Normalized:     core.NormalizeName(resp.Info.Name),
		Summary:        resp.Info.Summary,
		Homepage:       extractHomepage(resp.Info.ProjectURLs, resp.Info.HomePage),
		Repository:     extractRepoURL(resp.Info.ProjectURLs, resp.Info.HomePage),
		Documentation:  resp.Info.ProjectURLs["Documentation"],
		License:        extractLicense(resp.Info),
		Keywords:       parseKeywords(resp.Info.Keywords),
		Classifiers:    resp.Info.Classifiers,
		RequiresPython: resp.Info.RequiresPython,
	}, nil
}

// FetchVersions retrieves every release of a distribution. One entry
// per release; the first file's digest, URL and yank status represent
// the release.
func (r *Registry) FetchVersions(ctx context.Context, name string) ([]Version, error) {
	url := fmt.Sprintf("%s/pypi/%s/json", r.baseURL, name)

	var resp packageResponse
	if err := r.client.GetJSON(ctx, url, &resp); err != nil {
		if httpErr, ok := err.(*client.HTTPError); ok && httpErr.IsNotFound() {
			return nil, &client.NotFoundError{Name: name}
		}
		return nil, err
	}

	versions := make([]Version, 0, len(resp.Releases))
	for num, files := range resp.Releases {
		if len(files) == 0 {
			versions = append(versions, Version{Number: num})
			continue
		}

		file := preferredFile(files)
		v := Version{
			Number:         num,
			Yanked:         file.Yanked,
			YankedReason:   file.YankedReason,
			DownloadURL:    file.URL,
			RequiresPython: file.RequiresPython,
			PackageType:    file.PackageType,
			Size:           file.Size,
		}
		if file.UploadTime != "" {
			v.PublishedAt, _ = time.Parse("2006-01-02T15:04:05", file.UploadTime)
		}
		if sha256, ok := file.Digests["sha256"]; ok {
			v.Integrity = "sha256-" + sha256
		}
		versions = append(versions, v)
	}

	return versions, nil
}

// preferredFile picks the sdist when one exists; wheels are
// platform-specific and a release may carry many of them.
func preferredFile(files []releaseFile) releaseFile {
	for _, f := range files {
		if f.PackageType == "sdist" {
			return f
		}
	}
	return files[0]
}

// FetchDependencies retrieves the requirements of a specific release,
// parsed from its requires_dist metadata.
func (r *Registry) FetchDependencies(ctx context.Context, name, version string) ([]core.Dependency, error) {
	url := fmt.Sprintf("%s/pypi/%s/%s/json", r.baseURL, name, version)

	var resp versionInfoResponse
	if err := r.client.GetJSON(ctx, url, &resp); err != nil {
		if httpErr, ok := err.(*client.HTTPError); ok && httpErr.IsNotFound() {
			return nil, &client.NotFoundError{Name: name, Version: version}
		}
		return nil, err
	}

	if len(resp.Info.RequiresDist) == 0 {
		return nil, nil
	}

	deps := make([]core.Dependency, 0, len(resp.Info.RequiresDist))
	for _, req := range resp.Info.RequiresDist {
		dep, err := manifest.ParseRequirement(req)
		if err != nil {
			// Indexes carry some malformed historical metadata; keep
			// the raw string rather than failing the whole release.
			raw := strings.TrimSpace(req)
			dep = core.Dependency{
				Name:       raw,
				Normalized: core.NormalizeName(raw),
				Constraint: "*",
				Source:     core.SourceRegistry,
			}
		}
		dep.Optional = dep.Marker != ""
		deps = append(deps, dep)
	}
	return deps, nil
}

func extractRepoURL(projectURLs map[string]string, homePage string) string {
	priorityKeys := []string{"Repository", "Source", "Source Code", "Code"}
	for _, key := range priorityKeys {
		if url, ok := projectURLs[key]; ok && url != "" && isRepoURL(url) {
			return url
		}
	}
	for _, url := range projectURLs {
		if isRepoURL(url) && !strings.Contains(url, "github.com/sponsors") {
			return url
		}
	}
	if isRepoURL(homePage) {
		return homePage
	}
	return ""
}

func extractHomepage(projectURLs map[string]string, homePage string) string {
	if homePage != "" {
		return homePage
	}
	if url, ok := projectURLs["Homepage"]; ok {
		return url
	}
	if url, ok := projectURLs["Home"]; ok {
		return url
	}
	return ""
}

func isRepoURL(url string) bool {
	return strings.Contains(url, "github.com") ||
		strings.Contains(url, "gitlab.com") ||
		strings.Contains(url, "bitbucket.org") ||
		strings.Contains(url, "codeberg.org")
}

func extractLicense(info infoBlock) string {
	if info.LicenseExpression != "" {
		return info.LicenseExpression
	}
	if info.License != "" {
		return info.License
	}
	for _, classifier := range info.Classifiers {
		if strings.HasPrefix(classifier, "License :: ") {
			parts := strings.Split(classifier, " :: ")
			return parts[len(parts)-1]
		}
	}
	return ""
}

func parseKeywords(keywords string) []string {
	if keywords == "" {
		return nil
	}
	if strings.Contains(keywords, ",") {
		parts := strings.Split(keywords, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				result = append(result, p)
			}
		}
		return result
	}
	return strings.Fields(keywords)
}

// URLs builds index-facing URLs for a distribution.
type URLs struct {
	baseURL string
}

func (u *URLs) Registry(name, version string) string {
	if version != "" {
		return fmt.Sprintf("%s/project/%s/%s/", u.baseURL, name, version)
	}
	return fmt.Sprintf("%s/project/%s/", u.baseURL, name)
}

func (u *URLs) Documentation(name, version string) string {
	if version != "" {
		return fmt.Sprintf("https://%s.readthedocs.io/en/%s/", name, version)
	}
	return fmt.Sprintf("https://%s.readthedocs.io/", name)
}

func (u *URLs) PURL(name, version string) string {
	normalized := core.NormalizeName(name)
	if version != "" {
		return fmt.Sprintf("pkg:pypi/%s@%s", normalized, version)
	}
	return fmt.Sprintf("pkg:pypi/%s", normalized)
}
