package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eringen/pubgarden"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the site: load content, filter, derive routes, persist",
	Long: `build loads every configured source, resolves references, applies the
publish filter (production only) and derives the route table. The table is
written to <outputDir>/routes.json and the build is stored in the SQLite
database the server reads from.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		strict, _ := cmd.Flags().GetBool("strict")

		app := pubgarden.New(cfg)
		defer app.Close()

		res, err := app.Build(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "build %s (%s)\n", res.ID, res.Mode)
		for _, name := range pubgarden.SortedCollectionNames(res.Collections) {
			fmt.Fprintf(out, "  %-16s %d entries\n", name, res.Collections[name].Len())
		}
		if len(res.Removed) > 0 {
			fmt.Fprintf(out, "  unpublished      %d removed\n", len(res.Removed))
		}
		fmt.Fprintf(out, "  routes           %d\n", res.Routes.Len())
		for _, d := range res.Diagnostics {
			fmt.Fprintf(out, "  warning: %s\n", d.Message)
		}
		if strict && len(res.Diagnostics) > 0 {
			return fmt.Errorf("%d diagnostics in strict mode", len(res.Diagnostics))
		}
		return nil
	},
}

func init() {
	buildCmd.Flags().Bool("strict", false, "fail when the build reports any diagnostic")
}
