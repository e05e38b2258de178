package fetch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/git-pkgs/pyproject/internal/pypi"
)

var ErrNoDownloadURL = errors.New("no download URL available")

// Index provides release metadata for file resolution. Satisfied by
// *pypi.Registry.
type Index interface {
	FetchVersions(ctx context.Context, name string) ([]pypi.Version, error)
}

// Resolver determines download URLs for release files. PyPI download
// URLs are hashed paths on files.pythonhosted.org, so they always come
// from release metadata rather than a URL template.
type Resolver struct {
	index Index
}

// NewResolver creates a resolver backed by an index client.
func NewResolver(index Index) *Resolver {
	return &Resolver{index: index}
}

// FileInfo describes a downloadable release file.
type FileInfo struct {
	URL         string
	Filename    string
	Integrity   string // sha256-...
	PackageType string // sdist or bdist_wheel
	Size        int
}

// Resolve returns the release file for a distribution version.
func (r *Resolver) Resolve(ctx context.Context, name, version string) (*FileInfo, error) {
	versions, err := r.index.FetchVersions(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("fetching versions: %w", err)
	}

	for _, v := range versions {
		if v.Number != version {
			continue
		}
		if v.DownloadURL == "" {
			return nil, ErrNoDownloadURL
		}
		return &FileInfo{
			URL:         v.DownloadURL,
			Filename:    filenameFromURL(v.DownloadURL),
			Integrity:   v.Integrity,
			PackageType: v.PackageType,
			Size:        v.Size,
		}, nil
	}

	return nil, ErrNotFound
}

func filenameFromURL(url string) string {
	if idx := strings.LastIndex(url, "/"); idx >= 0 {
		return url[idx+1:]
	}
	return url
}
