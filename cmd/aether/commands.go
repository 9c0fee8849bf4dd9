// Copyright (C) 2026 Aether Foundation (oss@aethergrid.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	dataDir      string
	logLevel     string
	quietLogs    bool
	buildSetVars []string
	productsDir  string
	exportFormat string

	rootCmd = &cobra.Command{
		Use:   "aether",
		Short: "Compile, store, and evaluate content-addressed logic graphs",
		Long: `aether manages a local grid of content-addressed logic atoms:
natural-language manifests are compiled into verified graphs, stored
under their own hashes, and evaluated on demand.`,
	}

	buildCmd = &cobra.Command{
		Use:   "build [manifest.yaml]",
		Short: "Compile a manifest into a persisted graph and print its root hash",
		Args:  cobra.ExactArgs(1),
		RunE:  runBuild, // Defined in cmd_build.go
	}

	evalCmd = &cobra.Command{
		Use:   "eval [hash]",
		Short: "Evaluate the graph rooted at a hash and print the result as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  runEval, // Defined in cmd_eval.go
	}

	weaveCmd = &cobra.Command{
		Use:   "weave [intent]",
		Short: "Weave a natural-language intent into a verified atom",
		Args:  cobra.ExactArgs(1),
		RunE:  runWeave, // Defined in cmd_build.go
	}

	exportCmd = &cobra.Command{
		Use:   "export",
		Short: "Export the stored graph for visualization",
		RunE:  runExport, // Defined in cmd_export.go
	}

	inventoryCmd = &cobra.Command{
		Use:   "inventory",
		Short: "List every stored record with its kind and label",
		RunE:  runInventory, // Defined in cmd_export.go
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "aether_data",
		"Directory holding the database and blob store")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"Minimum log severity (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&quietLogs, "quiet", false,
		"Suppress log output")

	buildCmd.Flags().StringArrayVar(&buildSetVars, "set", nil,
		"Template substitution in key=value form, may repeat")
	buildCmd.Flags().StringVar(&productsDir, "products-dir", "products",
		"Directory resolved for 'extends' parent manifests")

	exportCmd.Flags().StringVar(&exportFormat, "format", "json",
		"Export format: json or dot")

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(evalCmd)
	rootCmd.AddCommand(weaveCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(inventoryCmd)
}
