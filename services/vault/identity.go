// Copyright (C) 2026 Aether Foundation (oss@aethergrid.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package vault

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	badgerdb "github.com/dgraph-io/badger/v4"
)

// Identity is a principal: a public key, its role, the organization it
// belongs to, and the permission atoms it holds. AccessNodes are hashes of
// OpAccessGrant atoms whose inputs name the resources this principal may
// act on.
type Identity struct {
	PublicKey   string   `json:"public_key"`
	Role        string   `json:"role"`
	OrgHash     string   `json:"org_hash"`
	AccessNodes []string `json:"access_nodes"`
}

// IdentityKey derives the storage key for a principal. Only the public key
// is hashed, so the key is stable across role or organization changes;
// updates re-persist the whole record under the same key.
func IdentityKey(publicKey string) string {
	return HashBytes([]byte(publicKey))
}

// PersistIdentity writes an identity record, returning its key. The write
// is a full-record replace: read-modify-write with last-write-wins.
func (v *Vault) PersistIdentity(ctx context.Context, id *Identity) (string, error) {
	if id.PublicKey == "" {
		return "", errors.New("identity public key is required")
	}
	key := IdentityKey(id.PublicKey)

	data, err := json.Marshal(id)
	if err != nil {
		return "", fmt.Errorf("serialize identity: %w", err)
	}
	err = v.db.WithTxn(ctx, func(txn *badgerdb.Txn) error {
		return txn.Set([]byte(prefixIdentity+key), data)
	})
	if err != nil {
		return "", fmt.Errorf("persist identity %s: %w", key, err)
	}

	v.logger.Debug("identity persisted",
		slog.String("key", key),
		slog.String("role", id.Role),
	)
	return key, nil
}

// FetchIdentity retrieves an identity record by its key.
func (v *Vault) FetchIdentity(ctx context.Context, key string) (*Identity, error) {
	var data []byte
	err := v.db.WithReadTxn(ctx, func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(prefixIdentity + key))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrIdentityNotFound, key)
		}
		return nil, fmt.Errorf("fetch identity %s: %w", key, err)
	}

	var id Identity
	if err := json.Unmarshal(data, &id); err != nil {
		return nil, fmt.Errorf("decode identity %s: %w", key, err)
	}
	return &id, nil
}

// VerifyResonance is the authorization check: a principal may act on a
// resource if any of its access nodes is a permission atom whose inputs
// include the resource hash.
//
// Access nodes that no longer resolve are skipped rather than failing the
// check; a dangling grant authorizes nothing.
func (v *Vault) VerifyResonance(ctx context.Context, principalKey, resourceHash string) (bool, error) {
	id, err := v.FetchIdentity(ctx, principalKey)
	if err != nil {
		return false, err
	}

	for _, grantHash := range id.AccessNodes {
		grant, err := v.Fetch(ctx, grantHash)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				v.logger.Debug("dangling access node skipped",
					slog.String("principal", principalKey),
					slog.String("grant", grantHash),
				)
				continue
			}
			return false, err
		}
		if grant.OpCode != OpAccessGrant {
			continue
		}
		if slices.Contains(grant.Inputs, resourceHash) {
			return true, nil
		}
	}
	return false, nil
}
