// Package pyproject parses, validates, and audits Python pyproject.toml
// manifests.
//
// Both manifest dialects are supported: Poetry projects declared under
// [tool.poetry] and PEP 621 projects declared under [project]. The
// parsed model exposes the package descriptor, dependency groups with
// their version constraints, the build-system declaration, and raw
// [tool.*] sections.
//
// Basic usage:
//
//	import (
//		"context"
//		"github.com/git-pkgs/pyproject"
//		"github.com/git-pkgs/pyproject/audit"
//	)
//
//	project, err := pyproject.Load("pyproject.toml")
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(project.Metadata.Name, project.Metadata.Version)
//
//	report, err := audit.New().Audit(context.Background(), project)
//	if err != nil {
//		log.Fatal(err)
//	}
//	for _, f := range report.Findings {
//		fmt.Printf("%s %s: %s\n", f.Severity, f.Rule, f.Message)
//	}
package pyproject

import (
	"fmt"
	"io"

	"github.com/git-pkgs/purl"

	"github.com/git-pkgs/pyproject/client"
	"github.com/git-pkgs/pyproject/internal/constraint"
	"github.com/git-pkgs/pyproject/internal/core"
	"github.com/git-pkgs/pyproject/internal/manifest"
)

// Re-export types from internal/core
type (
	// Project is a parsed pyproject manifest.
	Project = core.Project

	// Metadata describes the package itself.
	Metadata = core.Metadata

	// Person is an author or maintainer.
	Person = core.Person

	// BuildSystem is the [build-system] table.
	BuildSystem = core.BuildSystem

	// Group is a named set of dependencies.
	Group = core.Group

	// Dependency is a single requirement within a group.
	Dependency = core.Dependency

	// GitSource holds the fields of a git dependency.
	GitSource = core.GitSource

	// Tool is an undecoded [tool.*] section.
	Tool = core.Tool

	// Layout identifies the manifest dialect.
	Layout = core.Layout

	// Scope indicates when a dependency is required.
	Scope = core.Scope

	// SourceKind says where a dependency is installed from.
	SourceKind = core.SourceKind
)

// Re-export types from client
type (
	// Client is an HTTP client with retry logic for index APIs.
	Client = client.Client

	// URLBuilder constructs URLs for an index.
	URLBuilder = client.URLBuilder
)

// Re-export constants
const (
	LayoutPoetry = core.LayoutPoetry
	LayoutPEP621 = core.LayoutPEP621

	MainGroup = core.MainGroup

	Runtime     = core.Runtime
	Development = core.Development
	Test        = core.Test
	Build       = core.Build
	Optional    = core.Optional

	SourceRegistry = core.SourceRegistry
	SourceGit      = core.SourceGit
	SourceURL      = core.SourceURL
	SourcePath     = core.SourcePath
)

// Re-export errors
var ErrNotFound = client.ErrNotFound

// Error types
type (
	ParseError      = core.ParseError
	ValidationError = core.ValidationError
	HTTPError       = client.HTTPError
	NotFoundError   = client.NotFoundError
	RateLimitError  = client.RateLimitError
)

// Load reads and parses the manifest at path.
func Load(path string) (*Project, error) {
	return manifest.Load(path)
}

// Parse decodes a manifest from a reader. path is recorded for
// diagnostics and may be empty.
func Parse(r io.Reader, path string) (*Project, error) {
	return manifest.Decode(r, path)
}

// ParseRequirement parses a PEP 508 requirement string.
func ParseRequirement(req string) (Dependency, error) {
	return manifest.ParseRequirement(req)
}

// Constraint is a parsed version constraint.
type Constraint = constraint.Constraint

// ParseConstraint parses a version constraint in either the PEP 440 or
// the Poetry dialect.
func ParseConstraint(s string) (*Constraint, error) {
	return constraint.Parse(s)
}

// NormalizeName normalizes a distribution name per PEP 503.
func NormalizeName(name string) string {
	return core.NormalizeName(name)
}

// DefaultClient returns a client with sensible defaults:
// - 30s timeout
// - 5 retries with exponential backoff
// - Retry on 429 and 5xx responses
func DefaultClient() *Client {
	return client.DefaultClient()
}

// NewClient creates a new client with the given options.
func NewClient(opts ...Option) *Client {
	return client.NewClient(opts...)
}

// Option configures a Client.
type Option = client.Option

// WithTimeout sets the HTTP client timeout.
var WithTimeout = client.WithTimeout

// WithMaxRetries sets the maximum number of retries.
var WithMaxRetries = client.WithMaxRetries

// PURL represents a parsed Package URL.
type PURL = purl.PURL

// ParsePURL parses a Package URL string into its components.
// Supports both package PURLs (pkg:pypi/torch) and version PURLs
// (pkg:pypi/torch@2.1.0).
func ParsePURL(purlStr string) (*PURL, error) {
	return purl.Parse(purlStr)
}

// PURLFor returns the package URL of a registry dependency, with the
// version qualifier when one is given.
func PURLFor(dep Dependency, version string) string {
	name := dep.Normalized
	if name == "" {
		name = core.NormalizeName(dep.Name)
	}
	if version != "" {
		return fmt.Sprintf("pkg:pypi/%s@%s", name, version)
	}
	return fmt.Sprintf("pkg:pypi/%s", name)
}
