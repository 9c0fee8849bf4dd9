// Copyright (C) 2026 Aether Foundation (oss@aethergrid.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package badger provides the embedded key-value backend for the vault.
//
// BadgerDB gives the content-addressed store what it needs: low-latency
// point reads by hash, safe concurrent readers and writers, and an
// append-friendly LSM layout for a keyspace that only ever grows. Atom
// records are immutable once written; identity and project records are
// rewritten wholesale (last-write-wins).
//
// License: BadgerDB is Apache 2.0 licensed (github.com/dgraph-io/badger).
package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// Config holds configuration for the vault's BadgerDB instance.
type Config struct {
	// Path is the directory for database files. Required unless InMemory.
	Path string

	// InMemory enables in-memory mode with no disk persistence.
	// Intended for tests.
	InMemory bool

	// SyncWrites enables synchronous writes for durability.
	SyncWrites bool

	// Logger receives BadgerDB's internal log output. If nil, that
	// output is discarded.
	Logger *slog.Logger

	// GCInterval is how often to run value log garbage collection.
	// Zero disables GC. Ignored for in-memory databases.
	GCInterval time.Duration

	// GCDiscardRatio is the minimum garbage ratio before GC rewrites
	// a value log file.
	GCDiscardRatio float64
}

// DefaultConfig returns production defaults: synchronous writes and GC
// every five minutes at a 0.5 discard ratio.
func DefaultConfig() Config {
	return Config{
		SyncWrites:     true,
		GCInterval:     5 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

// InMemoryConfig returns a configuration for tests: in-memory, async
// writes, no GC.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// slogAdapter bridges slog.Logger to BadgerDB's Logger interface.
type slogAdapter struct {
	logger *slog.Logger
}

func (l *slogAdapter) Errorf(format string, args ...any) {
	l.logger.Error(fmt.Sprintf(format, args...))
}
func (l *slogAdapter) Warningf(format string, args ...any) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}
func (l *slogAdapter) Infof(format string, args ...any) { l.logger.Debug(fmt.Sprintf(format, args...)) }
func (l *slogAdapter) Debugf(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// DB wraps a BadgerDB instance with lifecycle management and the
// transaction helpers the vault uses.
//
// DB is safe for concurrent use.
type DB struct {
	*badger.DB
	stopGC chan struct{}
	doneGC chan struct{}
}

// Open opens a BadgerDB with the given configuration and starts the GC
// loop when configured. Callers must Close the returned DB.
func Open(cfg Config) (*DB, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&slogAdapter{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	inner, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	db := &DB{DB: inner}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		db.stopGC = make(chan struct{})
		db.doneGC = make(chan struct{})
		go db.runGC(cfg.GCInterval, cfg.GCDiscardRatio, cfg.Logger)
	}
	return db, nil
}

// OpenInMemory opens an in-memory database for tests.
func OpenInMemory() (*DB, error) {
	return Open(InMemoryConfig())
}

// Close stops the GC loop and closes the database. Safe to call once.
func (d *DB) Close() error {
	if d.stopGC != nil {
		close(d.stopGC)
		<-d.doneGC
	}
	return d.DB.Close()
}

// WithTxn executes fn inside a read-write transaction, committing when fn
// returns nil and discarding otherwise.
func (d *DB) WithTxn(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}
	txn := d.DB.NewTransaction(true)
	defer txn.Discard()
	if err := fn(txn); err != nil {
		return err
	}
	return txn.Commit()
}

// WithReadTxn executes fn inside a read-only transaction.
func (d *DB) WithReadTxn(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}
	txn := d.DB.NewTransaction(false)
	defer txn.Discard()
	return fn(txn)
}

// runGC periodically triggers value log garbage collection until Close.
func (d *DB) runGC(interval time.Duration, ratio float64, logger *slog.Logger) {
	defer close(d.doneGC)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-d.stopGC:
			return
		case <-ticker.C:
			err := d.DB.RunValueLogGC(ratio)
			// ErrNoRewrite means nothing needed collecting.
			if err != nil && !errors.Is(err, badger.ErrNoRewrite) && logger != nil {
				logger.Warn("badger value log GC error", slog.String("error", err.Error()))
			}
		}
	}
}
