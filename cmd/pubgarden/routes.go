package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/eringen/pubgarden"
)

var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "Print the route table the current content produces",
	Long: `routes runs the content pipeline in memory and prints the derived route
table without writing routes.json or touching the database.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		format, _ := cmd.Flags().GetString("format")
		res, err := pubgarden.NewBuilder(cfg, nil).Run(cmd.Context())
		if err != nil {
			return err
		}
		return printRoutes(cmd.OutOrStdout(), format, res.Routes.Routes)
	},
}

func init() {
	routesCmd.Flags().String("format", "table", "output format: table, json or yaml")
}

func printRoutes(w io.Writer, format string, routes []pubgarden.Route) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(routes)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(routes)
	case "table", "":
		t := table.NewWriter()
		t.SetOutputMirror(w)
		t.AppendHeader(table.Row{"Path", "Page", "Collection", "Entry", "Name"})
		for _, r := range routes {
			t.AppendRow(table.Row{r.Path, r.Page, r.Collection, r.EntryID, r.Name})
		}
		t.SetColumnConfigs([]table.ColumnConfig{
			{Number: 3, AutoMerge: true},
		})
		style := table.StyleLight
		style.Options.DrawBorder = false
		t.SetStyle(style)
		t.Render()
		return nil
	}
	return fmt.Errorf("unknown format %q", format)
}
