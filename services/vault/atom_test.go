// Copyright (C) 2026 Aether Foundation (oss@aethergrid.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package vault

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAtomHashDeterminism(t *testing.T) {
	a := &Atom{OpCode: OpListFilter, Inputs: []string{"h1"}, PayloadRef: "local://p", ContextID: "proj"}
	b := &Atom{OpCode: OpListFilter, Inputs: []string{"h1"}, PayloadRef: "local://p", ContextID: "proj"}

	ha, err := a.Hash()
	require.NoError(t, err)
	hb, err := b.Hash()
	require.NoError(t, err)
	assert.Equal(t, ha, hb)
	assert.Len(t, ha, 64, "hex BLAKE3-256")
}

func TestAtomHashSensitivity(t *testing.T) {
	base := Atom{OpCode: OpListFilter, Inputs: []string{"h1"}, PayloadRef: "local://p", ContextID: "proj"}
	baseHash, err := base.Hash()
	require.NoError(t, err)

	variants := []Atom{
		{OpCode: OpListMerge, Inputs: []string{"h1"}, PayloadRef: "local://p", ContextID: "proj"},
		{OpCode: OpListFilter, Inputs: []string{"h2"}, PayloadRef: "local://p", ContextID: "proj"},
		{OpCode: OpListFilter, Inputs: []string{"h1"}, PayloadRef: "local://q", ContextID: "proj"},
		{OpCode: OpListFilter, Inputs: []string{"h1"}, PayloadRef: "local://p", ContextID: "other"},
	}
	for i, variant := range variants {
		h, err := variant.Hash()
		require.NoError(t, err)
		assert.NotEqual(t, baseHash, h, "variant %d must change the hash", i)
	}
}

func TestDecodeRate(t *testing.T) {
	assert.Equal(t, int32(0), DecodeRate(nil))
	assert.Equal(t, int32(0), DecodeRate([]byte{1, 2}))
	assert.Equal(t, int32(5), DecodeRate([]byte{5, 0, 0, 0}))
	assert.Equal(t, int32(-1), DecodeRate([]byte{0xff, 0xff, 0xff, 0xff}))
}

func TestDecodeIOContract(t *testing.T) {
	c, err := DecodeIOContract([]byte(`{"endpoint":"http://localhost/x","schema":{"type":"object"},"sensitivity":2}`))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost/x", c.Endpoint)
	assert.Equal(t, 2, c.Sensitivity)

	_, err = DecodeIOContract([]byte(`not json`))
	assert.Error(t, err)

	_, err = DecodeIOContract([]byte(`{"schema":{}}`))
	assert.Error(t, err, "endpoint is required")

	_, err = DecodeIOContract([]byte(`{"endpoint":"x","sensitivity":7}`))
	assert.Error(t, err, "sensitivity range")
}
