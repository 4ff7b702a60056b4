package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/staleserve/staleserve/internal/config"
	"github.com/staleserve/staleserve/pkg/router"
)

func routesCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "routes",
		Short: "Validate and print the route table",
		Long: `Compile the routes declared in the manifest and print them in
resolution order, most specific first. Malformed patterns and duplicate
routes are reported as errors.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoutes(configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "staleserve.yaml", "Path to the manifest")

	return cmd
}

func runRoutes(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	patterns := make([]*router.Pattern, 0, len(cfg.Routes))
	byID := make(map[string]config.RouteConfig, len(cfg.Routes))
	for _, rc := range cfg.Routes {
		p, err := router.Parse(rc.Pattern)
		if err != nil {
			return err
		}
		patterns = append(patterns, p)
		byID[p.ID()] = rc
	}

	table, err := router.Build(patterns)
	if err != nil {
		return err
	}

	fmt.Printf("%-40s %-12s %-12s %s\n", "PATTERN", "FALLBACK", "REVALIDATE", "PRERENDER")
	for _, p := range table.Patterns() {
		rc := byID[p.ID()]
		fallback := rc.Fallback
		if fallback == "" {
			fallback = "block"
		}
		revalidate := "never"
		if rc.Revalidate > 0 {
			revalidate = rc.Revalidate.String()
		}
		fmt.Printf("%-40s %-12s %-12s %d\n", p.ID(), fallback, revalidate, len(rc.Prerender))
	}
	return nil
}
