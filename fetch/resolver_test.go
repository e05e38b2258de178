package fetch

import (
	"context"
	"errors"
	"testing"

	"github.com/git-pkgs/pyproject/internal/pypi"
)

type fakeIndex struct {
	versions []pypi.Version
	err      error
}

func (f *fakeIndex) FetchVersions(ctx context.Context, name string) ([]pypi.Version, error) {
	return f.versions, f.err
}

func TestResolve(t *testing.T) {
	index := &fakeIndex{
		versions: []pypi.Version{
			{
				Number:      "2.0.0",
				DownloadURL: "https://files.pythonhosted.org/packages/ab/cd/torch-2.0.0.tar.gz",
				Integrity:   "sha256-abc123",
				PackageType: "sdist",
				Size:        1024,
			},
			{Number: "2.1.0", DownloadURL: "https://files.pythonhosted.org/packages/ef/01/torch-2.1.0.tar.gz"},
		},
	}

	r := NewResolver(index)
	info, err := r.Resolve(context.Background(), "torch", "2.0.0")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if info.URL != "https://files.pythonhosted.org/packages/ab/cd/torch-2.0.0.tar.gz" {
		t.Errorf("url = %q", info.URL)
	}
	if info.Filename != "torch-2.0.0.tar.gz" {
		t.Errorf("filename = %q", info.Filename)
	}
	if info.Integrity != "sha256-abc123" {
		t.Errorf("integrity = %q", info.Integrity)
	}
	if info.PackageType != "sdist" {
		t.Errorf("package type = %q", info.PackageType)
	}
	if info.Size != 1024 {
		t.Errorf("size = %d", info.Size)
	}
}

func TestResolve_VersionNotFound(t *testing.T) {
	index := &fakeIndex{
		versions: []pypi.Version{{Number: "1.0.0", DownloadURL: "https://example.org/pkg-1.0.0.tar.gz"}},
	}

	r := NewResolver(index)
	_, err := r.Resolve(context.Background(), "pkg", "9.9.9")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestResolve_NoDownloadURL(t *testing.T) {
	index := &fakeIndex{
		versions: []pypi.Version{{Number: "1.0.0"}},
	}

	r := NewResolver(index)
	_, err := r.Resolve(context.Background(), "pkg", "1.0.0")
	if !errors.Is(err, ErrNoDownloadURL) {
		t.Errorf("error = %v, want ErrNoDownloadURL", err)
	}
}

func TestResolve_IndexError(t *testing.T) {
	index := &fakeIndex{err: errors.New("index unavailable")}

	r := NewResolver(index)
	_, err := r.Resolve(context.Background(), "pkg", "1.0.0")
	if err == nil {
		t.Fatal("expected error")
	}
}
