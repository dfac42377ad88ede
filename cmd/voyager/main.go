package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "0.1.0-preview"
	commit  = "dev"
	date    = "unknown"
)

func main() {
	opts := &rootOptions{}

	var rootCmd = &cobra.Command{
		Use:   "voyager",
		Short: "Voyager - explore a GraphQL schema as a graph",
		Long: `Voyager lays out the types of a GraphQL schema as a graph and shows it
as a PNG, in the browser or in the terminal. Every view follows the schema
file and the display options, re-rendering when either changes.`,
		Version:           fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:      true,
		PersistentPreRunE: opts.setup,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to voyager.yaml (defaults to the current directory)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "Log format: text or json")
	rootCmd.PersistentFlags().BoolVar(&opts.noCache, "no-cache", false, "Disable the layout cache")

	// Add commands
	rootCmd.AddCommand(newRenderCommand(opts))
	rootCmd.AddCommand(newWatchCommand(opts))
	rootCmd.AddCommand(newServeCommand(opts))
	rootCmd.AddCommand(newTUICommand(opts))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
