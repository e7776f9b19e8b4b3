package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/on-the-ground/purity/sideeffect"
	"github.com/spf13/cobra"
)

func (c *CLI) newCatalogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "List the capabilities a sandbox traps",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := c.policy()
			if err != nil {
				return err
			}
			allowed := map[string]bool{}
			for _, capability := range p.Sandbox.Allow {
				allowed[capability] = true
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "CAPABILITY\tTARGET\tSTATUS")
			for _, e := range sideeffect.DefaultRegistry().Catalog() {
				status := "trapped"
				switch {
				case allowed[e.Capability]:
					status = "allowed"
				case e.Available != nil && !e.Available():
					status = "unavailable"
				}
				_, _ = fmt.Fprintf(w, "%s\t%s.%s\t%s\n", e.Capability, e.Target, e.Member, status)
			}
			return w.Flush()
		},
	}
}
