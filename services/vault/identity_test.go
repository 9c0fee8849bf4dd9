// Copyright (C) 2026 Aether Foundation (oss@aethergrid.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package vault

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentityKeyStableAcrossUpdates(t *testing.T) {
	v, _ := newTestVault(t)
	ctx := context.Background()

	key1, err := v.PersistIdentity(ctx, &Identity{PublicKey: "pk-alice", Role: "operator"})
	require.NoError(t, err)

	// Role change re-persists under the same key.
	key2, err := v.PersistIdentity(ctx, &Identity{PublicKey: "pk-alice", Role: "admin"})
	require.NoError(t, err)
	assert.Equal(t, key1, key2)

	got, err := v.FetchIdentity(ctx, key1)
	require.NoError(t, err)
	assert.Equal(t, "admin", got.Role)
}

func TestFetchIdentityNotFound(t *testing.T) {
	v, _ := newTestVault(t)

	_, err := v.FetchIdentity(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrIdentityNotFound)
}

func TestVerifyResonance(t *testing.T) {
	v, _ := newTestVault(t)
	ctx := context.Background()

	resource, err := v.Persist(ctx, &Atom{OpCode: OpListMerge, ContextID: "proj"})
	require.NoError(t, err)
	other, err := v.Persist(ctx, &Atom{OpCode: OpListMerge, ContextID: "elsewhere"})
	require.NoError(t, err)

	grant, err := v.Persist(ctx, &Atom{
		OpCode:    OpAccessGrant,
		Inputs:    []string{resource},
		ContextID: ContextGlobal,
	})
	require.NoError(t, err)

	// A non-grant atom in access_nodes must not authorize anything.
	decoy, err := v.Persist(ctx, &Atom{
		OpCode:    OpListMerge,
		Inputs:    []string{other},
		ContextID: ContextGlobal,
	})
	require.NoError(t, err)

	key, err := v.PersistIdentity(ctx, &Identity{
		PublicKey:   "pk-bob",
		Role:        "builder",
		AccessNodes: []string{"dangling-grant", decoy, grant},
	})
	require.NoError(t, err)

	ok, err := v.VerifyResonance(ctx, key, resource)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = v.VerifyResonance(ctx, key, other)
	require.NoError(t, err)
	assert.False(t, ok, "decoy non-grant atom must not authorize")

	_, err = v.VerifyResonance(ctx, "unknown-principal", resource)
	assert.ErrorIs(t, err, ErrIdentityNotFound)
}
