// Copyright (C) 2026 Aether Foundation (oss@aethergrid.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package vault

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/zeebo/blake3"
)

// Operation codes. The evaluator dispatches on these; the guard keys its
// structural checks on them. Codes are stable wire values: changing one
// changes the hash of every atom that carries it.
const (
	// OpScalarAdd sums two little-endian int32 values from the payload.
	// Legacy path, superseded by the list and IO operations.
	OpScalarAdd uint16 = 1

	// OpListFilter filters the array produced by inputs[0] against a
	// {field, op, val} payload config.
	OpListFilter uint16 = 10

	// OpListMerge concatenates all array-valued input results in order.
	OpListMerge uint16 = 11

	// OpReactiveTrigger returns its payload config verbatim, signalling
	// an event binding to a downstream consumer.
	OpReactiveTrigger uint16 = 12

	// OpFinancial marks a financial operation. The payload's leading
	// int32 is an interest rate checked by the guard at write time.
	OpFinancial uint16 = 100

	// OpAccessGrant is a permission atom: inputs[0] names the resource
	// hash the grant authorizes.
	OpAccessGrant uint16 = 101

	// OpIOFetch fetches an external endpoint under an IOContract payload.
	OpIOFetch uint16 = 200

	// OpGateway wraps inputs[0] in a masking envelope.
	OpGateway uint16 = 201

	// OpSynthesisRequired marks an intent no known logic covers; the
	// evaluator returns a pending-synthesis marker instead of failing.
	OpSynthesisRequired uint16 = 998
)

// ContextGlobal is the isolation tag visible to every context. Atoms in any
// context may depend on global atoms; all other cross-context edges are
// rejected at write time.
const ContextGlobal = "global"

// Atom is the fundamental unit of the logic graph: an immutable node
// identified by the BLAKE3 hash of its canonical serialized form.
//
// Inputs is an ordered list of dependency hashes. Order is semantically
// significant: the filter operation reads the array from inputs[0], and
// merge concatenates results in input order. Because an atom's hash covers
// its inputs and those must already exist, the store is structurally
// acyclic.
type Atom struct {
	OpCode     uint16   `json:"op_code"`
	Inputs     []string `json:"inputs"`
	PayloadRef string   `json:"payload_ref"`
	ContextID  string   `json:"context_id"`
}

// Canonical returns the canonical serialized form used for identity.
// Field order is fixed by the struct declaration and a nil input list
// normalizes to empty, so two equal atoms are always bit-identical.
func (a *Atom) Canonical() ([]byte, error) {
	norm := *a
	if norm.Inputs == nil {
		norm.Inputs = []string{}
	}
	data, err := json.Marshal(&norm)
	if err != nil {
		return nil, fmt.Errorf("serialize atom: %w", err)
	}
	return data, nil
}

// Hash returns the hex BLAKE3-256 digest of the atom's canonical form.
func (a *Atom) Hash() (string, error) {
	data, err := a.Canonical()
	if err != nil {
		return "", err
	}
	return HashBytes(data), nil
}

// HashBytes returns the hex BLAKE3-256 digest of data. All identities in
// the store (atom hashes, identity keys, Merkle nodes, blob names) use
// this one function.
func HashBytes(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// DecodeRate extracts the interest rate from a financial payload: the
// little-endian int32 in the first four bytes. Short payloads decode to
// zero, matching the write path's permissive treatment of empty payloads.
func DecodeRate(payload []byte) int32 {
	if len(payload) < 4 {
		return 0
	}
	return int32(binary.LittleEndian.Uint32(payload[:4]))
}

// IOContract is the payload schema for OpIOFetch atoms: where to fetch,
// what shape the response must have, and how sensitive the data is.
//
// Sensitivity levels: 0 public, 1 private, 2 sovereign. Level 2 data may
// only be fetched from endpoints the guard recognizes as sovereign.
type IOContract struct {
	Endpoint    string         `json:"endpoint"`
	Schema      map[string]any `json:"schema"`
	Sensitivity int            `json:"sensitivity"`
}

// DecodeIOContract parses an IOContract from a payload.
func DecodeIOContract(payload []byte) (*IOContract, error) {
	var c IOContract
	if err := json.Unmarshal(payload, &c); err != nil {
		return nil, fmt.Errorf("malformed IO contract: %w", err)
	}
	if c.Endpoint == "" {
		return nil, fmt.Errorf("malformed IO contract: endpoint is required")
	}
	if c.Sensitivity < 0 || c.Sensitivity > 2 {
		return nil, fmt.Errorf("malformed IO contract: sensitivity %d out of range", c.Sensitivity)
	}
	return &c, nil
}
