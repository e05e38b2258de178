// Command pyproject-audit inspects Python pyproject.toml manifests:
// parsing them, listing their dependency groups, and auditing their
// internal consistency against the package index.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	verbose bool
	logger  zerolog.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "pyproject-audit",
		Short: "Parse and audit pyproject.toml manifests",
		Long: `pyproject-audit parses Poetry and PEP 621 pyproject.toml manifests and
checks their internal consistency: metadata validity, dependency group
structure, version constraint satisfiability against the index, and
tool configuration schemas.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := zerolog.WarnLevel
			if verbose {
				level = zerolog.DebugLevel
			}
			logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
				Level(level).
				With().Timestamp().Logger()
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(newCheckCmd())
	rootCmd.AddCommand(newDepsCmd())
	rootCmd.AddCommand(newToolsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// manifestPath resolves the positional argument, defaulting to the
// pyproject.toml in the working directory.
func manifestPath(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "pyproject.toml"
}
