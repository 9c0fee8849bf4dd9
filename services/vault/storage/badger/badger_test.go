// Copyright (C) 2026 Aether Foundation (oss@aethergrid.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package badger

import (
	"context"
	"testing"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(Config{})
	assert.Error(t, err)
}

func TestInMemoryRoundTrip(t *testing.T) {
	db, err := OpenInMemory()
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()

	err = db.WithTxn(ctx, func(txn *badgerdb.Txn) error {
		return txn.Set([]byte("atom:abc"), []byte(`{"op_code":1}`))
	})
	require.NoError(t, err)

	var got []byte
	err = db.WithReadTxn(ctx, func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte("atom:abc"))
		if err != nil {
			return err
		}
		got, err = item.ValueCopy(nil)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, `{"op_code":1}`, string(got))
}

func TestWithTxnRollsBackOnError(t *testing.T) {
	db, err := OpenInMemory()
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()

	wantErr := assert.AnError
	err = db.WithTxn(ctx, func(txn *badgerdb.Txn) error {
		if err := txn.Set([]byte("atom:ghost"), []byte("x")); err != nil {
			return err
		}
		return wantErr
	})
	assert.ErrorIs(t, err, wantErr)

	err = db.WithReadTxn(ctx, func(txn *badgerdb.Txn) error {
		_, err := txn.Get([]byte("atom:ghost"))
		return err
	})
	assert.ErrorIs(t, err, badgerdb.ErrKeyNotFound)
}

func TestWithTxnHonorsCancelledContext(t *testing.T) {
	db, err := OpenInMemory()
	require.NoError(t, err)
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = db.WithTxn(ctx, func(txn *badgerdb.Txn) error { return nil })
	assert.Error(t, err)
}

func TestPersistentOpenAndClose(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Path = t.TempDir()
	cfg.GCInterval = 0 // no GC goroutine in tests

	db, err := Open(cfg)
	require.NoError(t, err)
	require.NoError(t, db.Close())
}
