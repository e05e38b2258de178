package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/git-pkgs/pyproject"
	"github.com/git-pkgs/pyproject/audit"
)

func newCheckCmd() *cobra.Command {
	var (
		offline     bool
		artifacts   bool
		indexURL    string
		concurrency int
		jsonOut     bool
		ignore      []string
	)

	cmd := &cobra.Command{
		Use:   "check [pyproject.toml]",
		Short: "Audit a manifest for internal consistency",
		Example: `  pyproject-audit check
  pyproject-audit check --offline path/to/pyproject.toml
  pyproject-audit check --ignore pkg:pypi/torch --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := manifestPath(args)
			project, err := pyproject.Load(path)
			if err != nil {
				return err
			}
			logger.Debug().
				Str("name", project.Metadata.Name).
				Str("layout", string(project.Layout)).
				Int("groups", len(project.Groups)).
				Msg("manifest parsed")

			a := audit.New(
				audit.WithNetwork(!offline),
				audit.WithArtifactChecks(artifacts),
				audit.WithIndexURL(indexURL),
				audit.WithConcurrency(concurrency),
				audit.WithIgnore(ignore...),
				audit.WithLogger(logger),
			)
			report, err := a.Audit(cmd.Context(), project)
			if err != nil {
				return err
			}

			if jsonOut {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				if err := enc.Encode(report); err != nil {
					return err
				}
			} else {
				printReport(report)
			}

			if report.HasErrors() {
				return fmt.Errorf("%d error(s) found in %s", len(report.Errors()), path)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "skip index-backed checks")
	cmd.Flags().BoolVar(&artifacts, "artifacts", false, "also verify release files are downloadable")
	cmd.Flags().StringVar(&indexURL, "index", "", "package index base URL (default pypi.org)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "parallel index lookups (default 15)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "emit the report as JSON")
	cmd.Flags().StringSliceVar(&ignore, "ignore", nil, "dependencies to skip (names or pkg:pypi PURLs)")

	return cmd
}

func printReport(report *audit.Report) {
	if len(report.Findings) == 0 {
		fmt.Println("ok: no findings")
		return
	}
	for _, f := range report.Findings {
		where := ""
		if f.Dependency != "" {
			where = " " + f.Dependency
			if f.Group != "" {
				where += " (" + f.Group + ")"
			}
		}
		fmt.Printf("%-7s %s%s: %s\n", f.Severity, f.Rule, where, f.Message)
	}
}
