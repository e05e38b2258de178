package pypi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/git-pkgs/pyproject/client"
)

func TestFetchPackage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/pypi/torch/json" {
			t.Errorf("unexpected path: %s", r.URL.Path)
			w.WriteHeader(404)
			return
		}

		resp := packageResponse{
			Info: infoBlock{
				Name:           "torch",
				Summary:        "Tensors and Dynamic neural networks in Python",
				License:        "BSD-3-Clause",
				HomePage:       "https://pytorch.org/",
				Keywords:       "tensor,machine learning",
				RequiresPython: ">=3.8.0",
				ProjectURLs: map[string]string{
					"Source":        "https://github.com/pytorch/pytorch",
					"Documentation": "https://pytorch.org/docs/",
				},
			},
			Releases: map[string][]releaseFile{},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	reg := New(server.URL, client.DefaultClient())
	pkg, err := reg.FetchPackage(context.Background(), "torch")
	if err != nil {
		t.Fatalf("FetchPackage failed: %v", err)
	}

	if pkg.Name != "torch" {
		t.Errorf("name = %q, want %q", pkg.Name, "torch")
	}
	if pkg.Repository != "https://github.com/pytorch/pytorch" {
		t.Errorf("unexpected repository: %q", pkg.Repository)
	}
	if pkg.License != "BSD-3-Clause" {
		t.Errorf("unexpected license: %q", pkg.License)
	}
	if pkg.RequiresPython != ">=3.8.0" {
		t.Errorf("unexpected requires_python: %q", pkg.RequiresPython)
	}
	if len(pkg.Keywords) != 2 {
		t.Errorf("expected 2 keywords, got %d", len(pkg.Keywords))
	}
}

func TestFetchPackage_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(404)
	}))
	defer server.Close()

	reg := New(server.URL, client.DefaultClient())
	_, err := reg.FetchPackage(context.Background(), "does-not-exist")
	if !errors.Is(err, client.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestFetchVersions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := packageResponse{
			Info: infoBlock{Name: "numpy"},
			Releases: map[string][]releaseFile{
				"1.26.4": {
					{
						Digests:        map[string]string{"sha256": "abc123"},
						URL:            "https://files.example.org/numpy-1.26.4.tar.gz",
						UploadTime:     "2024-02-05T12:00:00",
						PackageType:    "sdist",
						RequiresPython: ">=3.9",
						Size:           15786129,
					},
				},
				"1.22.0": {
					{
						Yanked:       true,
						YankedReason: "broken wheel",
						PackageType:  "sdist",
					},
				},
				"0.0.0": {},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	reg := New(server.URL, client.DefaultClient())
	versions, err := reg.FetchVersions(context.Background(), "numpy")
	if err != nil {
		t.Fatalf("FetchVersions failed: %v", err)
	}
	if len(versions) != 3 {
		t.Fatalf("expected 3 versions, got %d", len(versions))
	}

	byNumber := make(map[string]Version)
	for _, v := range versions {
		byNumber[v.Number] = v
	}

	latest := byNumber["1.26.4"]
	if latest.Integrity != "sha256-abc123" {
		t.Errorf("integrity = %q", latest.Integrity)
	}
	if latest.DownloadURL != "https://files.example.org/numpy-1.26.4.tar.gz" {
		t.Errorf("download URL = %q", latest.DownloadURL)
	}
	if latest.RequiresPython != ">=3.9" {
		t.Errorf("requires_python = %q", latest.RequiresPython)
	}
	if latest.PublishedAt.IsZero() {
		t.Error("expected PublishedAt to be set")
	}

	yanked := byNumber["1.22.0"]
	if !yanked.Yanked {
		t.Error("expected 1.22.0 to be yanked")
	}
	if yanked.YankedReason != "broken wheel" {
		t.Errorf("yanked reason = %q", yanked.YankedReason)
	}
}

func TestFetchVersions_PrefersSdist(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := packageResponse{
			Releases: map[string][]releaseFile{
				"2.0.0": {
					{PackageType: "bdist_wheel", URL: "https://files.example.org/pkg-2.0.0-py3-none-any.whl"},
					{PackageType: "sdist", URL: "https://files.example.org/pkg-2.0.0.tar.gz"},
				},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	reg := New(server.URL, client.DefaultClient())
	versions, err := reg.FetchVersions(context.Background(), "pkg")
	if err != nil {
		t.Fatalf("FetchVersions failed: %v", err)
	}
	if len(versions) != 1 {
		t.Fatalf("expected 1 version, got %d", len(versions))
	}
	if versions[0].PackageType != "sdist" {
		t.Errorf("package type = %q, want sdist", versions[0].PackageType)
	}
}

func TestFetchDependencies(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/pypi/pandas/2.1.0/json" {
			t.Errorf("unexpected path: %s", r.URL.Path)
			w.WriteHeader(404)
			return
		}
		resp := versionInfoResponse{
			Info: infoBlock{
				RequiresDist: []string{
					"numpy>=1.22.4",
					"python-dateutil (>=2.8.2)",
					"pytest>=7.3.2; extra == 'test'",
				},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	reg := New(server.URL, client.DefaultClient())
	deps, err := reg.FetchDependencies(context.Background(), "pandas", "2.1.0")
	if err != nil {
		t.Fatalf("FetchDependencies failed: %v", err)
	}
	if len(deps) != 3 {
		t.Fatalf("expected 3 dependencies, got %d", len(deps))
	}

	if deps[0].Normalized != "numpy" || deps[0].Constraint != ">=1.22.4" {
		t.Errorf("unexpected first dependency: %+v", deps[0])
	}
	if deps[1].Normalized != "python-dateutil" || deps[1].Constraint != ">=2.8.2" {
		t.Errorf("unexpected second dependency: %+v", deps[1])
	}
	if !deps[2].Optional || deps[2].Marker != "extra == 'test'" {
		t.Errorf("expected third dependency to be an optional extra: %+v", deps[2])
	}
}

func TestURLs(t *testing.T) {
	reg := New("", nil)
	urls := reg.URLs()

	if got := urls.Registry("torch", "2.1.0"); got != "https://pypi.org/project/torch/2.1.0/" {
		t.Errorf("registry URL = %q", got)
	}
	if got := urls.PURL("Typing_Extensions", "4.8.0"); got != "pkg:pypi/typing-extensions@4.8.0" {
		t.Errorf("purl = %q", got)
	}
}
