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
	"fmt"
	"strings"

	badgerdb "github.com/dgraph-io/badger/v4"
)

// ExportFormat selects the graph export encoding.
type ExportFormat string

const (
	// FormatJSON is a node/edge document for visualization tooling.
	FormatJSON ExportFormat = "json"

	// FormatDOT is the Graphviz textual form of the same graph.
	FormatDOT ExportFormat = "dot"
)

// RecordKind tags inventory entries by key namespace.
type RecordKind string

const (
	KindAtom     RecordKind = "atom"
	KindIdentity RecordKind = "identity"
	KindProject  RecordKind = "project"
)

// Summary is one inventory line: what kind of record lives under a key and
// a short human label (op code, role, or status).
type Summary struct {
	Kind  RecordKind `json:"kind"`
	Key   string     `json:"key"`
	Label string     `json:"label"`
}

// graphNode and graphEdge mirror the node/edge JSON document consumed by
// graph visualization frontends.
type graphNode struct {
	Data map[string]string `json:"data"`
}

type graphEdge struct {
	Data map[string]string `json:"data"`
}

type exportDoc struct {
	Nodes []graphNode `json:"nodes"`
	Edges []graphEdge `json:"edges"`
}

// Inventory walks the whole keyspace and returns a summary per record,
// distinguishing atoms, identities, and projects by key prefix.
func (v *Vault) Inventory(ctx context.Context) ([]Summary, error) {
	var summaries []Summary
	err := v.scan(ctx, func(key string, value []byte) error {
		switch {
		case strings.HasPrefix(key, prefixAtom):
			var atom Atom
			if err := json.Unmarshal(value, &atom); err != nil {
				return fmt.Errorf("decode atom %s: %w", key, err)
			}
			summaries = append(summaries, Summary{
				Kind:  KindAtom,
				Key:   strings.TrimPrefix(key, prefixAtom),
				Label: fmt.Sprintf("Op:%d", atom.OpCode),
			})
		case strings.HasPrefix(key, prefixIdentity):
			var id Identity
			if err := json.Unmarshal(value, &id); err != nil {
				return fmt.Errorf("decode identity %s: %w", key, err)
			}
			summaries = append(summaries, Summary{
				Kind:  KindIdentity,
				Key:   strings.TrimPrefix(key, prefixIdentity),
				Label: id.Role,
			})
		case strings.HasPrefix(key, prefixProject):
			var p Project
			if err := json.Unmarshal(value, &p); err != nil {
				return fmt.Errorf("decode project %s: %w", key, err)
			}
			summaries = append(summaries, Summary{
				Kind:  KindProject,
				Key:   p.Name,
				Label: string(p.Status),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return summaries, nil
}

// ExportGraph renders the stored graph: one node per atom (labelled by op
// code) and per identity (labelled by role), dependency edges between
// atoms, and access edges from identities to their permission atoms.
func (v *Vault) ExportGraph(ctx context.Context, format ExportFormat) (string, error) {
	doc := exportDoc{Nodes: []graphNode{}, Edges: []graphEdge{}}

	err := v.scan(ctx, func(key string, value []byte) error {
		switch {
		case strings.HasPrefix(key, prefixAtom):
			hash := strings.TrimPrefix(key, prefixAtom)
			var atom Atom
			if err := json.Unmarshal(value, &atom); err != nil {
				return fmt.Errorf("decode atom %s: %w", hash, err)
			}
			doc.Nodes = append(doc.Nodes, graphNode{Data: map[string]string{
				"id":    hash,
				"label": fmt.Sprintf("Op:%d", atom.OpCode),
				"kind":  string(KindAtom),
			}})
			for _, input := range atom.Inputs {
				doc.Edges = append(doc.Edges, graphEdge{Data: map[string]string{
					"source": input,
					"target": hash,
					"kind":   "dependency",
				}})
			}
		case strings.HasPrefix(key, prefixIdentity):
			idKey := strings.TrimPrefix(key, prefixIdentity)
			var id Identity
			if err := json.Unmarshal(value, &id); err != nil {
				return fmt.Errorf("decode identity %s: %w", idKey, err)
			}
			doc.Nodes = append(doc.Nodes, graphNode{Data: map[string]string{
				"id":    idKey,
				"label": id.Role,
				"kind":  string(KindIdentity),
			}})
			for _, grant := range id.AccessNodes {
				doc.Edges = append(doc.Edges, graphEdge{Data: map[string]string{
					"source": idKey,
					"target": grant,
					"kind":   "access",
				}})
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	switch format {
	case FormatJSON:
		out, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return "", fmt.Errorf("encode graph export: %w", err)
		}
		return string(out), nil
	case FormatDOT:
		return renderDOT(doc), nil
	default:
		return "", fmt.Errorf("unsupported export format %q", format)
	}
}

// renderDOT writes the node/edge document as a Graphviz digraph. Node IDs
// are hex hashes, safe to quote directly.
func renderDOT(doc exportDoc) string {
	var b strings.Builder
	b.WriteString("digraph aether {\n")
	b.WriteString("  rankdir=LR;\n")
	for _, n := range doc.Nodes {
		shape := "box"
		if n.Data["kind"] == string(KindIdentity) {
			shape = "ellipse"
		}
		fmt.Fprintf(&b, "  %q [label=%q, shape=%s];\n", n.Data["id"], n.Data["label"], shape)
	}
	for _, e := range doc.Edges {
		style := "solid"
		if e.Data["kind"] == "access" {
			style = "dashed"
		}
		fmt.Fprintf(&b, "  %q -> %q [style=%s];\n", e.Data["source"], e.Data["target"], style)
	}
	b.WriteString("}\n")
	return b.String()
}

// scan iterates every key/value pair in the store inside one read
// transaction.
func (v *Vault) scan(ctx context.Context, fn func(key string, value []byte) error) error {
	return v.db.WithReadTxn(ctx, func(txn *badgerdb.Txn) error {
		it := txn.NewIterator(badgerdb.DefaultIteratorOptions)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			value, err := item.ValueCopy(nil)
			if err != nil {
				return fmt.Errorf("read key %s: %w", item.Key(), err)
			}
			if err := fn(string(item.Key()), value); err != nil {
				return err
			}
		}
		return nil
	})
}
