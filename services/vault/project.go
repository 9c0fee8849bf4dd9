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
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
)

// ProjectStatus is a project's lifecycle state.
type ProjectStatus string

const (
	// StatusBuilding is the initial state while a manifest compiles.
	StatusBuilding ProjectStatus = "building"

	// StatusActive means the project compiled and its root hash is live.
	StatusActive ProjectStatus = "active"

	// StatusArchived is terminal; reachable from any state.
	StatusArchived ProjectStatus = "archived"
)

// validTransition encodes the project state machine: building→active on a
// successful compile, and any state may archive. Re-persisting the current
// status is allowed (idempotent updates).
func validTransition(from, to ProjectStatus) bool {
	if from == to {
		return true
	}
	if to == StatusArchived {
		return true
	}
	return from == StatusBuilding && to == StatusActive
}

// Project ties a name to the root hash of a compiled logic graph. Keyed by
// name, unique per store; updates rewrite the whole record (last-write-wins,
// no optimistic concurrency).
type Project struct {
	Name      string        `json:"name"`
	RootHash  string        `json:"root_hash"`
	OrgHash   string        `json:"org_hash"`
	Status    ProjectStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
}

// PersistProject writes a project record under its name.
func (v *Vault) PersistProject(ctx context.Context, p *Project) error {
	if p.Name == "" {
		return errors.New("project name is required")
	}
	if p.Status == "" {
		p.Status = StatusBuilding
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("serialize project %s: %w", p.Name, err)
	}
	err = v.db.WithTxn(ctx, func(txn *badgerdb.Txn) error {
		return txn.Set([]byte(prefixProject+p.Name), data)
	})
	if err != nil {
		return fmt.Errorf("persist project %s: %w", p.Name, err)
	}

	v.logger.Debug("project persisted",
		slog.String("project", p.Name),
		slog.String("status", string(p.Status)),
	)
	return nil
}

// GetProject retrieves a project record by name.
func (v *Vault) GetProject(ctx context.Context, name string) (*Project, error) {
	var data []byte
	err := v.db.WithReadTxn(ctx, func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(prefixProject + name))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrProjectNotFound, name)
		}
		return nil, fmt.Errorf("fetch project %s: %w", name, err)
	}

	var p Project
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode project %s: %w", name, err)
	}
	return &p, nil
}

// ListProjects returns every project record, in key order.
func (v *Vault) ListProjects(ctx context.Context) ([]*Project, error) {
	var projects []*Project
	err := v.db.WithReadTxn(ctx, func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = []byte(prefixProject)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			data, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			var p Project
			if err := json.Unmarshal(data, &p); err != nil {
				return fmt.Errorf("decode project record %s: %w", it.Item().Key(), err)
			}
			projects = append(projects, &p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return projects, nil
}

// UpdateProjectStatus transitions a project through its state machine,
// rejecting moves the machine does not define (e.g. archived back to
// active). The record is re-persisted wholesale.
func (v *Vault) UpdateProjectStatus(ctx context.Context, name string, status ProjectStatus) error {
	p, err := v.GetProject(ctx, name)
	if err != nil {
		return err
	}
	if !validTransition(p.Status, status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, p.Status, status)
	}
	p.Status = status
	return v.PersistProject(ctx, p)
}

// UpdateProjectHash points a project at a new root hash. Read-modify-write;
// concurrent updates to the same name are last-write-wins by design.
func (v *Vault) UpdateProjectHash(ctx context.Context, name, rootHash string) error {
	p, err := v.GetProject(ctx, name)
	if err != nil {
		return err
	}
	p.RootHash = rootHash
	return v.PersistProject(ctx, p)
}
