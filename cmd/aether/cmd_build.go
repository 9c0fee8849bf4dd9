// Copyright (C) 2026 Aether Foundation (oss@aethergrid.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aether-foundation/aethergrid/services/guard"
	"github.com/aether-foundation/aethergrid/services/orchestrator"
	"github.com/aether-foundation/aethergrid/services/vault"
)

// runBuild is the CLI handler for "aether build".
//
// Reads the manifest file, applies --set template substitutions, and
// compiles it through the orchestrator. Prints the application's root
// hash on success.
func runBuild(cmd *cobra.Command, args []string) error {
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read manifest: %w", err)
	}

	values, err := parseSetVars(buildSetVars)
	if err != nil {
		return err
	}
	tpl := &orchestrator.ProductTemplate{ManifestTemplate: string(raw)}
	manifest := tpl.Render(values)

	s, err := openStack()
	if err != nil {
		return err
	}
	defer s.close()

	o, err := orchestrator.New(
		s.vault,
		guard.New(),
		orchestrator.NewHeuristicLoom(s.blobs, s.logger.Slog()),
		orchestrator.DirLoader{Root: productsDir},
		s.logger.Slog(),
	)
	if err != nil {
		return err
	}

	rootHash, err := o.BuildApp(cmd.Context(), manifest)
	if err != nil {
		return err
	}

	fmt.Println(rootHash)
	return nil
}

// runWeave is the CLI handler for "aether weave". The woven atom goes
// through the governed write path, so a law violation blocks it here the
// same as in a build.
func runWeave(cmd *cobra.Command, args []string) error {
	s, err := openStack()
	if err != nil {
		return err
	}
	defer s.close()

	loom := orchestrator.NewHeuristicLoom(s.blobs, s.logger.Slog())
	atom, err := loom.Weave(cmd.Context(), args[0], vault.ContextGlobal)
	if err != nil {
		return err
	}

	hash, err := s.vault.PersistVerified(cmd.Context(), atom, guard.New())
	if err != nil {
		return err
	}

	fmt.Println(hash)
	return nil
}

func parseSetVars(vars []string) (map[string]string, error) {
	values := make(map[string]string, len(vars))
	for _, kv := range vars {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --set %q, want key=value", kv)
		}
		values[key] = value
	}
	return values, nil
}
