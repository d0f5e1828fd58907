package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/eringen/pubgarden"
)

// version is set at build time via ldflags.
var version = "dev"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "pubgarden",
	Short: "pubgarden - a blog and digital garden from markdown",
	Long: `pubgarden loads markdown collections, links them through references,
drops unpublished posts in production and derives a route table that it
writes to routes.json and serves over HTTP.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./pubgarden.yaml)")
	rootCmd.PersistentFlags().String("mode", "", "build mode: development or production (env PUBGARDEN_MODE)")

	rootCmd.AddCommand(buildCmd, serveCmd, routesCmd, newCmd, versionCmd)
}

// loadConfig reads the config file and overlays env and the command's flags.
func loadConfig(cmd *cobra.Command) (pubgarden.SiteConfig, error) {
	return pubgarden.LoadConfig(cfgFile, cmd.Flags())
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the pubgarden version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("pubgarden %s\n", version)
	},
}
