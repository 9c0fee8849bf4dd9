// Copyright (C) 2026 Aether Foundation (oss@aethergrid.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aether-foundation/aethergrid/services/vault"
)

// runExport is the CLI handler for "aether export".
func runExport(cmd *cobra.Command, args []string) error {
	s, err := openStack()
	if err != nil {
		return err
	}
	defer s.close()

	doc, err := s.vault.ExportGraph(cmd.Context(), vault.ExportFormat(exportFormat))
	if err != nil {
		return err
	}
	fmt.Println(doc)
	return nil
}

// runInventory is the CLI handler for "aether inventory".
func runInventory(cmd *cobra.Command, args []string) error {
	s, err := openStack()
	if err != nil {
		return err
	}
	defer s.close()

	summaries, err := s.vault.Inventory(cmd.Context())
	if err != nil {
		return err
	}

	for _, summary := range summaries {
		fmt.Printf("%-10s %-24s %s\n", summary.Kind, summary.Label, summary.Key)
	}
	fmt.Printf("%d records\n", len(summaries))
	return nil
}
