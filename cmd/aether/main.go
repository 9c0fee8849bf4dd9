// Copyright (C) 2026 Aether Foundation (oss@aethergrid.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// aether is the command-line front end to the aether grid: it compiles
// manifests into atom graphs, evaluates them, and exports the stored
// graph for inspection. All algorithmic work lives in the service
// packages; this binary only parses flags, wires the stack, and prints.
package main

import (
	"fmt"
	"os"

	"github.com/aether-foundation/aethergrid/pkg/blob"
	"github.com/aether-foundation/aethergrid/pkg/logging"
	"github.com/aether-foundation/aethergrid/services/vault"
	storage "github.com/aether-foundation/aethergrid/services/vault/storage/badger"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// stack is the wired set of components every subcommand works against.
type stack struct {
	logger *logging.Logger
	db     *storage.DB
	blobs  blob.Store
	vault  *vault.Vault
}

func (s *stack) close() {
	if s.vault != nil {
		_ = s.vault.Close()
	}
	if s.logger != nil {
		_ = s.logger.Close()
	}
}

// openStack opens the store under the configured data directory. The
// caller owns the returned stack and must close it.
func openStack() (*stack, error) {
	logger := logging.New(logging.Config{
		Level:   parseLevel(logLevel),
		Service: "aether",
		Quiet:   quietLogs,
	})

	cfg := storage.DefaultConfig()
	cfg.Path = dataDir + "/db"
	cfg.Logger = logger.Slog()
	db, err := storage.Open(cfg)
	if err != nil {
		_ = logger.Close()
		return nil, fmt.Errorf("open database: %w", err)
	}

	blobs, err := blob.NewLocalStore(dataDir + "/blobs")
	if err != nil {
		_ = db.Close()
		_ = logger.Close()
		return nil, fmt.Errorf("open blob store: %w", err)
	}

	v, err := vault.New(db, blobs, logger.Slog())
	if err != nil {
		_ = db.Close()
		_ = logger.Close()
		return nil, err
	}

	return &stack{logger: logger, db: db, blobs: blobs, vault: v}, nil
}

func parseLevel(s string) logging.Level {
	switch s {
	case "debug":
		return logging.LevelDebug
	case "warn":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}
