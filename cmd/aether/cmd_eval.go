// Copyright (C) 2026 Aether Foundation (oss@aethergrid.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aether-foundation/aethergrid/services/kernel"
)

// runEval is the CLI handler for "aether eval". The structured result is
// printed as indented JSON; a nil result prints "null".
func runEval(cmd *cobra.Command, args []string) error {
	s, err := openStack()
	if err != nil {
		return err
	}
	defer s.close()

	k, err := kernel.New(s.vault, s.logger.Slog())
	if err != nil {
		return err
	}

	result, err := k.ExecuteSmart(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
