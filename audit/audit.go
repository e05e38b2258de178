// Package audit checks a parsed pyproject manifest for internal
// consistency: metadata that decodes but is wrong, constraints that
// parse but match nothing on the index, tool sections that violate
// their own schemas.
package audit

import (
	"context"
	"strings"

	"github.com/git-pkgs/purl"
	"github.com/rs/zerolog"

	"github.com/git-pkgs/pyproject/client"
	"github.com/git-pkgs/pyproject/internal/core"
	"github.com/git-pkgs/pyproject/internal/pypi"
)

// Severity ranks a finding.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Finding is a single audit result.
type Finding struct {
	Rule       string   `json:"rule"`
	Severity   Severity `json:"severity"`
	Message    string   `json:"message"`
	Group      string   `json:"group,omitempty"`
	Dependency string   `json:"dependency,omitempty"`
}

// Report collects the findings of one audit run.
type Report struct {
	Findings []Finding `json:"findings"`
}

func (r *Report) add(f Finding) {
	r.Findings = append(r.Findings, f)
}

// Errors returns the findings with error severity.
func (r *Report) Errors() []Finding {
	var errs []Finding
	for _, f := range r.Findings {
		if f.Severity == SeverityError {
			errs = append(errs, f)
		}
	}
	return errs
}

// HasErrors reports whether any finding has error severity.
func (r *Report) HasErrors() bool {
	return len(r.Errors()) > 0
}

const defaultConcurrency = 15

// Auditor runs the rule set against a project.
type Auditor struct {
	client      *client.Client
	indexURL    string
	network     bool
	artifacts   bool
	concurrency int
	ignore      map[string]struct{}
	log         zerolog.Logger
}

// Option configures an Auditor.
type Option func(*Auditor)

// WithClient sets the index HTTP client.
func WithClient(c *client.Client) Option {
	return func(a *Auditor) {
		a.client = c
	}
}

// WithIndexURL points satisfiability checks at a different index.
func WithIndexURL(url string) Option {
	return func(a *Auditor) {
		a.indexURL = url
	}
}

// WithNetwork enables or disables index-backed rules. Offline audits
// still run every local rule.
func WithNetwork(enabled bool) Option {
	return func(a *Auditor) {
		a.network = enabled
	}
}

// WithArtifactChecks also verifies that the matched release file
// answers a HEAD request. Implies network access.
func WithArtifactChecks(enabled bool) Option {
	return func(a *Auditor) {
		a.artifacts = enabled
	}
}

// WithConcurrency bounds parallel index lookups.
func WithConcurrency(n int) Option {
	return func(a *Auditor) {
		if n > 0 {
			a.concurrency = n
		}
	}
}

// WithIgnore excludes dependencies from index-backed rules. Entries are
// package URLs ("pkg:pypi/torch") or plain distribution names.
func WithIgnore(entries ...string) Option {
	return func(a *Auditor) {
		for _, e := range entries {
			name := e
			if strings.HasPrefix(e, "pkg:") {
				if p, err := purl.Parse(e); err == nil {
					name = p.Name
				}
			}
			a.ignore[core.NormalizeName(name)] = struct{}{}
		}
	}
}

// WithLogger sets the audit logger. Defaults to a nop logger.
func WithLogger(log zerolog.Logger) Option {
	return func(a *Auditor) {
		a.log = log
	}
}

// New creates an Auditor.
func New(opts ...Option) *Auditor {
	a := &Auditor{
		network:     true,
		concurrency: defaultConcurrency,
		ignore:      make(map[string]struct{}),
		log:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.client == nil {
		a.client = client.DefaultClient()
	}
	return a
}

// Audit runs every applicable rule. The returned error covers audit
// machinery only; manifest problems are findings, not errors.
func (a *Auditor) Audit(ctx context.Context, p *core.Project) (*Report, error) {
	rep := &Report{}

	a.checkMetadata(p, rep)
	a.checkBuildSystem(p, rep)
	a.checkGroups(p, rep)
	a.checkExtras(p, rep)
	a.checkConstraints(p, rep)
	a.checkTools(p, rep)

	if a.network {
		reg := pypi.New(a.indexURL, a.client)
		if err := a.checkSatisfiability(ctx, p, reg, rep); err != nil {
			return nil, err
		}
	}

	a.log.Debug().
		Int("findings", len(rep.Findings)).
		Int("errors", len(rep.Errors())).
		Msg("audit complete")
	return rep, nil
}
