package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/git-pkgs/pyproject"
	"github.com/git-pkgs/pyproject/internal/tools"
)

func newToolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools [pyproject.toml]",
		Short: "List [tool.*] sections and their schema findings",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := pyproject.Load(manifestPath(args))
			if err != nil {
				return err
			}

			for _, name := range project.ToolNames() {
				sec, _ := project.Tool(name)
				if !tools.Known(name) {
					fmt.Printf("[tool.%s] %d key(s), no schema\n", name, len(sec))
					continue
				}
				problems, err := tools.Check(name, sec)
				if err != nil {
					fmt.Printf("[tool.%s] failed to decode: %v\n", name, err)
					continue
				}
				if len(problems) == 0 {
					fmt.Printf("[tool.%s] ok\n", name)
					continue
				}
				for _, p := range problems {
					fmt.Printf("%s\n", p)
				}
			}
			return nil
		},
	}
	return cmd
}
