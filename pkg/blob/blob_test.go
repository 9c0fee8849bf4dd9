// Copyright (C) 2026 Aether Foundation (oss@aethergrid.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package blob

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStoreRoundTrip(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	data := []byte("aether payload bytes")
	ref, err := store.Write(data)
	require.NoError(t, err)
	assert.Contains(t, ref, Scheme)

	got, err := store.Read(ref)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestLocalStoreDeduplicates(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	ref1, err := store.Write([]byte("same bytes"))
	require.NoError(t, err)
	ref2, err := store.Write([]byte("same bytes"))
	require.NoError(t, err)

	assert.Equal(t, ref1, ref2, "identical payloads must share a reference")
}

func TestLocalStoreUnsupportedScheme(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Read("s3://bucket/key")
	assert.True(t, errors.Is(err, ErrUnsupportedScheme))
}

func TestLocalStoreMissingBlob(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Read(Scheme + "deadbeef")
	assert.True(t, errors.Is(err, ErrBlobNotFound))
}

func TestMemStoreRoundTrip(t *testing.T) {
	store := NewMemStore()

	ref, err := store.Write([]byte{1, 2, 3})
	require.NoError(t, err)

	got, err := store.Read(ref)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, got)

	// Mutating the returned slice must not corrupt the stored blob.
	got[0] = 99
	again, err := store.Read(ref)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, again)
}
