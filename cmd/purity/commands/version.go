package commands

import (
	"fmt"

	"github.com/on-the-ground/purity/internal/build"
	"github.com/spf13/cobra"
)

func (c *CLI) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the application version",
		Run: func(cmd *cobra.Command, _ []string) {
			version, commit, date := build.Info()
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "purity version %s (commit: %s, date: %s)\n", version, commit, date)
		},
	}
}
