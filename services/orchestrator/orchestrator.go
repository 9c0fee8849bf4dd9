// Copyright (C) 2026 Aether Foundation (oss@aethergrid.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package orchestrator compiles declarative manifests into persisted atom
// graphs.
//
// A manifest lists named nodes, each either woven from a natural-language
// intent or linked from an imported atom, wired together by dependency
// names. The orchestrator resolves inheritance, builds every node in
// declaration order, and submits each atom through the vault's governed
// write path, so no graph reaches storage without passing the guard.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aether-foundation/aethergrid/services/vault"
)

// Orchestrator is the manifest compiler. Node processing is sequential:
// declaration order is part of the correctness contract, since every
// dependency must already have a hash when its consumer is built.
type Orchestrator struct {
	vault  *vault.Vault
	policy vault.Policy
	loom   Loom
	loader ManifestLoader
	logger *slog.Logger
}

// New creates an Orchestrator.
//
// Inputs:
//
//	v - The store graphs are committed to. Must not be nil.
//	policy - Admission policy for the governed write path. Must not be nil.
//	loom - Intent-to-atom weaver. Must not be nil.
//	loader - Parent manifest resolver for extends clauses. May be nil when
//	         no manifest in play uses inheritance.
//	logger - Logger for build logs. If nil, uses slog.Default().
func New(v *vault.Vault, policy vault.Policy, loom Loom, loader ManifestLoader, logger *slog.Logger) (*Orchestrator, error) {
	if v == nil {
		return nil, errors.New("vault is required")
	}
	if policy == nil {
		return nil, errors.New("policy is required")
	}
	if loom == nil {
		return nil, errors.New("loom is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{vault: v, policy: policy, loom: loom, loader: loader, logger: logger}, nil
}

// BuildApp compiles a manifest into a persisted graph and returns the
// application's root hash.
//
// Description:
//
//	Parses the manifest, merges an extends parent when declared (parent
//	imports and nodes come first, so parent nodes are available as
//	dependencies and a same-named child import shadows the parent's),
//	then processes nodes in list order: weave or link, wire dependency
//	hashes, persist through the guard. A missing dependency name is a
//	logged warning and the edge is omitted; a weave failure, missing
//	import, or guard rejection aborts the build with the node's name
//	attached. Nodes persisted before the failure stay persisted.
//
// Outputs:
//
//	string - The hash recorded under the node named "root", or the last
//	         processed node's hash when no root node exists, or "" for an
//	         empty manifest.
//	error - Non-nil on failure; *BuildError for per-node failures.
func (o *Orchestrator) BuildApp(ctx context.Context, manifestText string) (string, error) {
	m, err := Parse([]byte(manifestText))
	if err != nil {
		return "", err
	}

	if m.Extends != "" {
		merged, err := o.mergeParent(m)
		if err != nil {
			return "", err
		}
		m = merged
	}

	o.logger.Info("building app",
		slog.String("app", m.AppName),
		slog.Int("nodes", len(m.Nodes)),
	)

	// Last declaration wins, so a child import shadows its parent's.
	imports := make(map[string]string, len(m.Imports))
	for _, imp := range m.Imports {
		imports[imp.Name] = imp.Hash
	}

	nodeHashes := make(map[string]string, len(m.Nodes))
	lastHash := ""

	for _, node := range m.Nodes {
		atom, err := o.resolveLogic(ctx, m, node, imports)
		if err != nil {
			return "", &BuildError{Node: node.Name, Err: err}
		}

		for _, dep := range node.Dependencies {
			hash, ok := nodeHashes[dep]
			if !ok {
				o.logger.Warn("dependency not found, edge omitted",
					slog.String("app", m.AppName),
					slog.String("node", node.Name),
					slog.String("dependency", dep),
				)
				continue
			}
			atom.Inputs = append(atom.Inputs, hash)
		}

		hash, err := o.vault.PersistVerified(ctx, atom, o.policy)
		if err != nil {
			return "", &BuildError{Node: node.Name, Err: err}
		}

		o.logger.Debug("node persisted",
			slog.String("app", m.AppName),
			slog.String("node", node.Name),
			slog.String("hash", hash),
		)
		nodeHashes[node.Name] = hash
		lastHash = hash
	}

	if rootHash, ok := nodeHashes["root"]; ok {
		return rootHash, nil
	}
	return lastHash, nil
}

// mergeParent folds a single extends level into the child manifest.
// Parent imports and nodes come first; the merged document keeps the
// child's app name, so every node builds into the child's context.
func (o *Orchestrator) mergeParent(child *Manifest) (*Manifest, error) {
	if o.loader == nil {
		return nil, fmt.Errorf("%w: %q extends %q", ErrNoLoader, child.AppName, child.Extends)
	}
	raw, err := o.loader.Load(child.Extends)
	if err != nil {
		return nil, fmt.Errorf("resolve parent %q: %w", child.Extends, err)
	}
	parent, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse parent %q: %w", child.Extends, err)
	}

	o.logger.Info("merging parent manifest",
		slog.String("app", child.AppName),
		slog.String("extends", child.Extends),
	)

	merged := *child
	merged.Imports = append(append([]Import{}, parent.Imports...), child.Imports...)
	merged.Nodes = append(append([]Node{}, parent.Nodes...), child.Nodes...)
	return &merged, nil
}

// resolveLogic produces the candidate atom for one node, before dependency
// wiring. Linked atoms are re-contextualized: same op code and payload as
// the imported master, but an empty input list and the current app's
// context, so the instance is independently addressable from the master
// copy.
func (o *Orchestrator) resolveLogic(ctx context.Context, m *Manifest, node Node, imports map[string]string) (*vault.Atom, error) {
	if node.Intent != "" {
		atom, err := o.loom.Weave(ctx, node.Intent, m.AppName)
		if err != nil {
			return nil, fmt.Errorf("weave intent: %w", err)
		}
		return atom, nil
	}

	hash, ok := imports[node.UseRef]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrImportNotFound, node.UseRef)
	}
	master, err := o.vault.Fetch(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("fetch imported atom %q (%s): %w", node.UseRef, hash, err)
	}
	return &vault.Atom{
		OpCode:     master.OpCode,
		Inputs:     []string{},
		PayloadRef: master.PayloadRef,
		ContextID:  m.AppName,
	}, nil
}
