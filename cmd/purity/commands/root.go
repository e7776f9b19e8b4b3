// Package commands implements the purity command line.
package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/on-the-ground/purity/config"
	"github.com/on-the-ground/purity/internal/build"
	"github.com/spf13/cobra"
)

type CLI struct {
	rootCmd    *cobra.Command
	policyPath string
}

func New() *CLI {
	version, commit, date := build.Info()
	rootCmd := &cobra.Command{
		Use:           "purity",
		Short:         "Check Go functions for purity",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"{{.Name}} version {{.Version}} (commit: %s, date: %s)\n",
		commit,
		date,
	))

	c := &CLI{rootCmd: rootCmd}
	rootCmd.PersistentFlags().StringVar(&c.policyPath, "policy", "", "YAML policy file")

	rootCmd.AddCommand(c.newScanCmd())
	rootCmd.AddCommand(c.newCatalogCmd())
	rootCmd.AddCommand(c.newVersionCmd())
	return c
}

// policy loads the --policy file, or returns the zero policy when none was given.
func (c *CLI) policy() (*config.Policy, error) {
	if c.policyPath == "" {
		return &config.Policy{}, nil
	}
	return config.Load(c.policyPath)
}

func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

func (c *CLI) SetOutput(out, err io.Writer) {
	c.rootCmd.SetOut(out)
	c.rootCmd.SetErr(err)
}
