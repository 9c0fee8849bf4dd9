// Copyright (C) 2026 Aether Foundation (oss@aethergrid.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package orchestrator

import (
	"context"
	"fmt"

	"github.com/aether-foundation/aethergrid/pkg/blob"
	"github.com/aether-foundation/aethergrid/services/vault"
)

// Names of the genesis atoms EnsureGenesis registers. Manifests import
// them by hash; the returned table maps these names to their hashes.
const (
	GenesisInterestFreeLaw = "interest_free_law"
	GenesisAuditAnchor     = "audit_anchor"
	GenesisMaskingGateway  = "masking_gateway"
)

// EnsureGenesis persists the fixed catalog of global atoms every
// application builds on and returns a name-to-hash table. Content
// addressing makes the call idempotent: running it against a store that
// already holds the catalog rewrites the same keys with the same values.
//
// The table is returned, never stashed in a global; callers pass it to
// whoever renders manifest imports.
func EnsureGenesis(ctx context.Context, v *vault.Vault, blobs blob.Store) (map[string]string, error) {
	zeroRate := make([]byte, 8)
	lawRef, err := blobs.Write(zeroRate)
	if err != nil {
		return nil, fmt.Errorf("write genesis law payload: %w", err)
	}
	maskRef, err := blobs.Write([]byte(`{"masked_fields":["ssn","passport"]}`))
	if err != nil {
		return nil, fmt.Errorf("write genesis gateway payload: %w", err)
	}

	catalog := []struct {
		name string
		atom *vault.Atom
	}{
		{GenesisInterestFreeLaw, &vault.Atom{
			OpCode:     vault.OpFinancial,
			PayloadRef: lawRef,
			ContextID:  vault.ContextGlobal,
		}},
		{GenesisAuditAnchor, &vault.Atom{
			OpCode:    vault.OpFinancial,
			ContextID: vault.ContextGlobal,
		}},
		{GenesisMaskingGateway, &vault.Atom{
			OpCode:     vault.OpGateway,
			PayloadRef: maskRef,
			ContextID:  vault.ContextGlobal,
		}},
	}

	table := make(map[string]string, len(catalog))
	for _, entry := range catalog {
		hash, err := v.Persist(ctx, entry.atom)
		if err != nil {
			return nil, fmt.Errorf("persist genesis atom %q: %w", entry.name, err)
		}
		table[entry.name] = hash
	}
	return table, nil
}
