package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/git-pkgs/pyproject"
)

func newDepsCmd() *cobra.Command {
	var purls bool

	cmd := &cobra.Command{
		Use:   "deps [pyproject.toml]",
		Short: "List dependency groups and their constraints",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := pyproject.Load(manifestPath(args))
			if err != nil {
				return err
			}

			for _, g := range project.Groups {
				label := g.Name
				if g.Optional {
					label += " (optional)"
				}
				fmt.Printf("%s:\n", label)
				for _, dep := range g.Dependencies {
					if purls {
						fmt.Printf("  %s\n", pyproject.PURLFor(dep, ""))
						continue
					}
					line := fmt.Sprintf("  %s %s", dep.Name, dep.Constraint)
					switch dep.Source {
					case pyproject.SourceGit:
						line = fmt.Sprintf("  %s git+%s", dep.Name, dep.Git.URL)
					case pyproject.SourceURL:
						line = fmt.Sprintf("  %s @ %s", dep.Name, dep.URL)
					case pyproject.SourcePath:
						line = fmt.Sprintf("  %s path:%s", dep.Name, dep.LocalPath)
					}
					if dep.Marker != "" {
						line += " ; " + dep.Marker
					}
					fmt.Println(line)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&purls, "purl", false, "print pkg:pypi package URLs")
	return cmd
}
