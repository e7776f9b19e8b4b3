package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/on-the-ground/purity/globalname"
	"github.com/spf13/cobra"
	"go.trai.ch/zerr"
)

// ErrViolations is returned by scan when any function refers to a disallowed name.
var ErrViolations = zerr.New("functions reference global names")

func (c *CLI) newScanCmd() *cobra.Command {
	var (
		allow    []string
		builtins bool
	)
	cmd := &cobra.Command{
		Use:   "scan FILE...",
		Short: "Report package-level names referenced by each function",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, files []string) error {
			p, err := c.policy()
			if err != nil {
				return err
			}
			opts := append(p.GlobalNameOptions(), globalname.WithAllow(allow...))
			if cmd.Flags().Changed("builtins") {
				opts = append(opts, globalname.WithBuiltins(builtins))
			}
			scanner := globalname.NewScanner(opts...)

			out := cmd.OutOrStdout()
			violations := 0
			for _, path := range files {
				src, err := os.ReadFile(path)
				if err != nil {
					return zerr.With(zerr.Wrap(err, "failed to read source"), "path", path)
				}
				reports, err := scanner.ScanFile(cmd.Context(), path, src)
				if err != nil {
					return zerr.With(err, "path", path)
				}
				for _, r := range reports {
					if len(r.Names) == 0 {
						continue
					}
					violations++
					_, _ = fmt.Fprintf(out, "%s:%d: %s: %s\n", r.File, r.Line, r.Func, strings.Join(r.Names, ", "))
				}
			}
			if violations > 0 {
				return zerr.With(ErrViolations, "count", violations)
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&allow, "allow", nil, "names to exempt (pkg or pkg.Member)")
	cmd.Flags().BoolVar(&builtins, "builtins", true, "exempt predeclared identifiers")
	return cmd
}
