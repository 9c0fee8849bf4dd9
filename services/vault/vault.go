// Copyright (C) 2026 Aether Foundation (oss@aethergrid.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package vault implements the content-addressed store at the heart of the
// aether grid.
//
// Every logic atom is keyed by the BLAKE3 hash of its canonical serialized
// form, which makes writes idempotent and the dependency graph structurally
// acyclic. The governed write path (PersistVerified) resolves an atom's
// payload and inputs, enforces context isolation, and delegates policy and
// structural checks to a Policy implementation before anything touches the
// keyspace. The store also holds identity records (principals and their
// permission atoms) and mutable project records, separated from atoms by
// key namespace.
package vault

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/aether-foundation/aethergrid/pkg/blob"
	storage "github.com/aether-foundation/aethergrid/services/vault/storage/badger"
)

// Key namespaces. Records of different kinds never collide because every
// key carries its kind prefix.
const (
	prefixAtom     = "atom:"
	prefixIdentity = "identity:"
	prefixProject  = "project:"
)

// Policy is the validation seam the governed write path calls into. The
// guard service provides the production implementation; tests may substitute
// their own.
//
// Implementations must be stateless and safe for concurrent use.
type Policy interface {
	// VerifyInterestFree reports whether a financial rate satisfies the
	// zero-interest law.
	VerifyInterestFree(rate int32) bool

	// VerifySovereignty reports whether an endpoint may serve data of
	// the given sensitivity level.
	VerifySovereignty(endpoint string, sensitivity int) bool

	// VerifyCompatibility performs the shallow structural check of an
	// atom against its resolved inputs.
	VerifyCompatibility(atom *Atom, inputs []*Atom) error
}

// Vault is the content-addressed store. All methods are safe for concurrent
// use; atom writes are race-free by construction (same content, same key,
// same value) while identity and project updates are last-write-wins.
type Vault struct {
	db     *storage.DB
	blobs  blob.Store
	logger *slog.Logger
}

// New creates a Vault over an open database and a blob store.
func New(db *storage.DB, blobs blob.Store, logger *slog.Logger) (*Vault, error) {
	if db == nil {
		return nil, errors.New("database is required")
	}
	if blobs == nil {
		return nil, errors.New("blob store is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Vault{db: db, blobs: blobs, logger: logger}, nil
}

// Close closes the underlying database.
func (v *Vault) Close() error {
	return v.db.Close()
}

// Blobs returns the blob store the vault resolves payloads through.
func (v *Vault) Blobs() blob.Store {
	return v.blobs
}

// Persist serializes, hashes, and inserts an atom with no validation.
// This is the bootstrap path; governed writes go through PersistVerified.
// Persisting the same atom twice returns the same hash both times.
func (v *Vault) Persist(ctx context.Context, atom *Atom) (string, error) {
	data, err := atom.Canonical()
	if err != nil {
		return "", err
	}
	hash := HashBytes(data)

	err = v.db.WithTxn(ctx, func(txn *badgerdb.Txn) error {
		return txn.Set([]byte(prefixAtom+hash), data)
	})
	if err != nil {
		return "", fmt.Errorf("persist atom %s: %w", hash, err)
	}
	return hash, nil
}

// Fetch retrieves an atom by its identity hash. Returns ErrNotFound when
// no atom exists under the hash.
func (v *Vault) Fetch(ctx context.Context, hash string) (*Atom, error) {
	var data []byte
	err := v.db.WithReadTxn(ctx, func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(prefixAtom + hash))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, hash)
		}
		return nil, fmt.Errorf("fetch atom %s: %w", hash, err)
	}

	var atom Atom
	if err := json.Unmarshal(data, &atom); err != nil {
		return nil, fmt.Errorf("decode atom %s: %w", hash, err)
	}
	return &atom, nil
}

// PersistVerified is the governed write path. Checks run in order, failing
// fast on the first violation:
//
//  1. Resolve the atom's payload from the blob store.
//  2. Financial atoms: decode the rate, apply the interest-free law.
//  3. IO atoms: decode the contract, apply the data-sovereignty law.
//  4. Context isolation: every input must be global or share the atom's
//     context; unresolvable inputs are missing-dependency violations.
//  5. Structural compatibility over the resolved inputs.
//  6. Hash and insert.
//
// The write of a single atom is atomic; callers batching atoms get no
// cross-atom rollback.
func (v *Vault) PersistVerified(ctx context.Context, atom *Atom, policy Policy) (string, error) {
	payload, err := v.resolvePayload(atom.PayloadRef)
	if err != nil {
		return "", err
	}

	if atom.OpCode == OpFinancial {
		if rate := DecodeRate(payload); !policy.VerifyInterestFree(rate) {
			return "", &ValidationError{
				Law:    LawInterestFree,
				Reason: fmt.Sprintf("interest rate %d violates the zero-interest law", rate),
			}
		}
	}

	if atom.OpCode == OpIOFetch {
		contract, err := DecodeIOContract(payload)
		if err != nil {
			return "", &ValidationError{Law: LawContract, Reason: err.Error()}
		}
		if !policy.VerifySovereignty(contract.Endpoint, contract.Sensitivity) {
			return "", &ValidationError{
				Law:    LawDataSovereignty,
				Reason: fmt.Sprintf("endpoint %q may not serve sensitivity-%d data", contract.Endpoint, contract.Sensitivity),
			}
		}
	}

	resolved := make([]*Atom, 0, len(atom.Inputs))
	for _, inputHash := range atom.Inputs {
		input, err := v.Fetch(ctx, inputHash)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return "", &ValidationError{
					Law:    LawDependency,
					Reason: "declared input does not exist",
					Hash:   inputHash,
				}
			}
			return "", err
		}
		if input.ContextID != ContextGlobal && input.ContextID != atom.ContextID {
			return "", &ValidationError{
				Law: LawContextIsolation,
				Reason: fmt.Sprintf("input context %q is not visible from context %q",
					input.ContextID, atom.ContextID),
				Hash: inputHash,
			}
		}
		resolved = append(resolved, input)
	}

	if err := policy.VerifyCompatibility(atom, resolved); err != nil {
		return "", &ValidationError{Law: LawCompatibility, Reason: err.Error()}
	}

	hash, err := v.Persist(ctx, atom)
	if err != nil {
		return "", err
	}

	v.logger.Debug("atom admitted",
		slog.String("hash", hash),
		slog.Int("op_code", int(atom.OpCode)),
		slog.String("context", atom.ContextID),
	)
	return hash, nil
}

// PersistBatch persists each atom individually, then folds the resulting
// hashes into a binary Merkle tree: adjacent pairs are concatenated (as hex
// strings) and hashed; a level with an odd count duplicates its last hash
// against itself. The returned root is a stable digest for the whole batch.
//
// A single-atom batch folds to that atom's own hash. Atoms are persisted
// through the ungoverned path; batch admission control is the caller's
// concern.
func (v *Vault) PersistBatch(ctx context.Context, atoms []*Atom) (string, error) {
	if len(atoms) == 0 {
		return "", ErrEmptyBatch
	}

	level := make([]string, 0, len(atoms))
	for _, atom := range atoms {
		hash, err := v.Persist(ctx, atom)
		if err != nil {
			return "", err
		}
		level = append(level, hash)
	}

	for len(level) > 1 {
		if len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
		}
		next := make([]string, 0, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			next = append(next, HashBytes([]byte(level[i]+level[i+1])))
		}
		level = next
	}

	v.logger.Debug("batch persisted",
		slog.Int("atoms", len(atoms)),
		slog.String("merkle_root", level[0]),
	)
	return level[0], nil
}

// resolvePayload reads an atom's payload bytes. An empty reference resolves
// to an empty payload; atoms without configuration are legal.
func (v *Vault) resolvePayload(ref string) ([]byte, error) {
	if ref == "" {
		return nil, nil
	}
	payload, err := v.blobs.Read(ref)
	if err != nil {
		return nil, fmt.Errorf("resolve payload %s: %w", ref, err)
	}
	return payload, nil
}
