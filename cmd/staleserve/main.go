package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "staleserve",
		Short: "Incremental regeneration cache for dynamic routes",
		Long: `Staleserve sits in front of an origin server and serves cached
artifacts for a declared set of routes. Stale artifacts are served
immediately while a single background generation refreshes them, and
unknown paths are handled per route by blocking, rejecting, or serving
a placeholder.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		routesCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
