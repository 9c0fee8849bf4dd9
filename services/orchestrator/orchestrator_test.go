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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aether-foundation/aethergrid/pkg/blob"
	"github.com/aether-foundation/aethergrid/services/guard"
	"github.com/aether-foundation/aethergrid/services/vault"
	storage "github.com/aether-foundation/aethergrid/services/vault/storage/badger"
)

// mapLoader resolves parent manifests from memory.
type mapLoader map[string]string

func (l mapLoader) Load(name string) ([]byte, error) {
	raw, ok := l[name]
	if !ok {
		return nil, fmt.Errorf("unknown manifest %q", name)
	}
	return []byte(raw), nil
}

func newTestOrchestrator(t *testing.T, loader ManifestLoader) (*Orchestrator, *vault.Vault, blob.Store) {
	t.Helper()
	db, err := storage.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	blobs := blob.NewMemStore()
	v, err := vault.New(db, blobs, nil)
	require.NoError(t, err)

	o, err := New(v, guard.New(), NewHeuristicLoom(blobs, nil), loader, nil)
	require.NoError(t, err)
	return o, v, blobs
}

func TestBuildAppWeavesIntent(t *testing.T) {
	o, v, _ := newTestOrchestrator(t, nil)
	ctx := context.Background()

	manifest := `
app_name: calc_demo
nodes:
  - name: root
    intent: "Add 10 and 20"
`
	rootHash, err := o.BuildApp(ctx, manifest)
	require.NoError(t, err)
	require.NotEmpty(t, rootHash)

	atom, err := v.Fetch(ctx, rootHash)
	require.NoError(t, err)
	assert.Equal(t, vault.OpScalarAdd, atom.OpCode)
	assert.Equal(t, "calc_demo", atom.ContextID)
}

func TestBuildAppWiresDependencies(t *testing.T) {
	o, v, _ := newTestOrchestrator(t, nil)
	ctx := context.Background()

	manifest := `
app_name: zakat_app
nodes:
  - name: amount
    intent: "Add 4000 and 1000"
  - name: root
    intent: "Calculate zakat for 5000"
    dependencies: [amount]
`
	rootHash, err := o.BuildApp(ctx, manifest)
	require.NoError(t, err)

	root, err := v.Fetch(ctx, rootHash)
	require.NoError(t, err)
	assert.Equal(t, vault.OpFinancial, root.OpCode)
	require.Len(t, root.Inputs, 1)

	dep, err := v.Fetch(ctx, root.Inputs[0])
	require.NoError(t, err)
	assert.Equal(t, vault.OpScalarAdd, dep.OpCode)
}

func TestBuildAppReturnsLastHashWithoutRootNode(t *testing.T) {
	o, v, _ := newTestOrchestrator(t, nil)
	ctx := context.Background()

	manifest := `
app_name: no_root
nodes:
  - name: first
    intent: "Add 1 and 2"
  - name: second
    intent: "Add 3 and 4"
`
	hash, err := o.BuildApp(ctx, manifest)
	require.NoError(t, err)

	atom, err := v.Fetch(ctx, hash)
	require.NoError(t, err)
	// The payload identifies the node: "second" wove 3 and 4.
	payload, err := v.Blobs().Read(atom.PayloadRef)
	require.NoError(t, err)
	assert.Equal(t, []byte{3, 0, 0, 0, 4, 0, 0, 0}, payload)
}

func TestBuildAppEmptyManifest(t *testing.T) {
	o, _, _ := newTestOrchestrator(t, nil)

	hash, err := o.BuildApp(context.Background(), "app_name: empty\nnodes: []\n")
	require.NoError(t, err)
	assert.Empty(t, hash)
}

func TestBuildAppInheritance(t *testing.T) {
	parent := `
app_name: base_product
nodes:
  - name: base_calc
    intent: "Add 1 and 2"
`
	o, v, _ := newTestOrchestrator(t, mapLoader{"base_product": parent})
	ctx := context.Background()

	child := `
app_name: custom_product
extends: base_product
nodes:
  - name: root
    intent: "Calculate zakat for 900"
    dependencies: [base_calc]
`
	rootHash, err := o.BuildApp(ctx, child)
	require.NoError(t, err)

	root, err := v.Fetch(ctx, rootHash)
	require.NoError(t, err)
	require.Len(t, root.Inputs, 1, "parent node must be built before the child that depends on it")

	// Every node of the merged build carries the child's context.
	assert.Equal(t, "custom_product", root.ContextID)
	base, err := v.Fetch(ctx, root.Inputs[0])
	require.NoError(t, err)
	assert.Equal(t, "custom_product", base.ContextID)
}

func TestBuildAppImportShadowing(t *testing.T) {
	o, v, blobs := newTestOrchestrator(t, nil)
	ctx := context.Background()

	parentRef, err := blobs.Write([]byte(`{"on":"parent"}`))
	require.NoError(t, err)
	childRef, err := blobs.Write([]byte(`{"on":"child"}`))
	require.NoError(t, err)

	parentAtom, err := v.Persist(ctx, &vault.Atom{
		OpCode: vault.OpReactiveTrigger, PayloadRef: parentRef, ContextID: vault.ContextGlobal,
	})
	require.NoError(t, err)
	childAtom, err := v.Persist(ctx, &vault.Atom{
		OpCode: vault.OpReactiveTrigger, PayloadRef: childRef, ContextID: vault.ContextGlobal,
	})
	require.NoError(t, err)

	parentManifest := fmt.Sprintf(`
app_name: registry_base
imports:
  - {name: trigger, hash: %s}
nodes: []
`, parentAtom)

	// Same store, but a loader that knows the parent manifest.
	o2, err := New(o.vault, guard.New(), NewHeuristicLoom(blobs, nil),
		mapLoader{"registry_base": parentManifest}, nil)
	require.NoError(t, err)

	child := fmt.Sprintf(`
app_name: registry_child
extends: registry_base
imports:
  - {name: trigger, hash: %s}
nodes:
  - name: root
    use_ref: trigger
`, childAtom)

	rootHash, err := o2.BuildApp(ctx, child)
	require.NoError(t, err)

	root, err := v.Fetch(ctx, rootHash)
	require.NoError(t, err)
	assert.Equal(t, childRef, root.PayloadRef, "child import must shadow the parent's")
	assert.Equal(t, "registry_child", root.ContextID, "linked atom is re-contextualized")
	assert.Empty(t, root.Inputs)
}

func TestBuildAppMissingImport(t *testing.T) {
	o, _, _ := newTestOrchestrator(t, nil)

	manifest := `
app_name: broken
nodes:
  - name: root
    use_ref: nonexistent
`
	_, err := o.BuildApp(context.Background(), manifest)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrImportNotFound)

	var buildErr *BuildError
	require.ErrorAs(t, err, &buildErr)
	assert.Equal(t, "root", buildErr.Node)
}

func TestBuildAppMissingDependencyIsSoft(t *testing.T) {
	o, v, _ := newTestOrchestrator(t, nil)
	ctx := context.Background()

	manifest := `
app_name: partial
nodes:
  - name: root
    intent: "Add 1 and 2"
    dependencies: [ghost]
`
	rootHash, err := o.BuildApp(ctx, manifest)
	require.NoError(t, err, "an unresolved dependency name is a warning, not a failure")

	root, err := v.Fetch(ctx, rootHash)
	require.NoError(t, err)
	assert.Empty(t, root.Inputs)
}

func TestBuildAppGuardRejectionAbortsWithNodeName(t *testing.T) {
	o, v, blobs := newTestOrchestrator(t, nil)
	ctx := context.Background()

	cfgRef, err := blobs.Write([]byte(`{"field":"x","op":">","val":1}`))
	require.NoError(t, err)
	filterMaster, err := v.Persist(ctx, &vault.Atom{
		OpCode: vault.OpListFilter, PayloadRef: cfgRef, ContextID: vault.ContextGlobal,
	})
	require.NoError(t, err)

	// The filter's first input ends up being a scalar producer, which the
	// structural check rejects.
	manifest := fmt.Sprintf(`
app_name: bad_types
imports:
  - {name: filter, hash: %s}
nodes:
  - name: scalar
    intent: "Add 1 and 2"
  - name: root
    use_ref: filter
    dependencies: [scalar]
`, filterMaster)

	_, err = o.BuildApp(ctx, manifest)
	require.Error(t, err)

	var buildErr *BuildError
	require.ErrorAs(t, err, &buildErr)
	assert.Equal(t, "root", buildErr.Node)

	var validationErr *vault.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, vault.LawCompatibility, validationErr.Law)

	// The node built before the failure stays committed.
	_, err = o.BuildApp(ctx, `
app_name: bad_types
nodes:
  - name: scalar
    intent: "Add 1 and 2"
`)
	require.NoError(t, err)
}

func TestBuildAppExtendWithoutLoader(t *testing.T) {
	o, _, _ := newTestOrchestrator(t, nil)

	_, err := o.BuildApp(context.Background(), `
app_name: orphan
extends: missing_parent
nodes: []
`)
	assert.ErrorIs(t, err, ErrNoLoader)
}
