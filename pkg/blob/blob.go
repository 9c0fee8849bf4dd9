// Copyright (C) 2026 Aether Foundation (oss@aethergrid.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package blob provides content-addressed byte storage for atom payloads.
//
// Atoms never embed raw data; they carry an opaque reference into a blob
// store. References are derived from the BLAKE3 hash of the content, so
// identical payloads deduplicate and writes are idempotent.
package blob

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/zeebo/blake3"
)

// Scheme is the URI scheme prefix for locally stored blobs.
const Scheme = "local://"

// ErrUnsupportedScheme indicates a reference with an unknown URI scheme.
var ErrUnsupportedScheme = errors.New("unsupported storage scheme")

// ErrBlobNotFound indicates the referenced blob does not exist.
var ErrBlobNotFound = errors.New("blob not found")

// Store is the blob store contract the core depends on.
//
// Write returns a content-derived reference; Read resolves it back to the
// original bytes. Implementations must be safe for concurrent use.
type Store interface {
	Write(data []byte) (string, error)
	Read(ref string) ([]byte, error)
}

// LocalStore is a flat-directory blob store. Each blob is a file named by
// the hex BLAKE3 hash of its content.
type LocalStore struct {
	dir string
}

// NewLocalStore creates the backing directory if needed and returns a store.
func NewLocalStore(dir string) (*LocalStore, error) {
	if dir == "" {
		return nil, errors.New("blob directory is required")
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create blob directory %s: %w", dir, err)
	}
	return &LocalStore{dir: dir}, nil
}

// Write stores data under its content hash and returns a local:// reference.
// Writing the same bytes twice is a no-op that returns the same reference.
func (s *LocalStore) Write(data []byte) (string, error) {
	sum := blake3.Sum256(data)
	name := hex.EncodeToString(sum[:])
	path := filepath.Join(s.dir, name)

	if _, err := os.Stat(path); err == nil {
		return Scheme + name, nil
	}

	// Write to a temp file and rename so readers never observe a partial blob.
	tmp, err := os.CreateTemp(s.dir, ".blob-*")
	if err != nil {
		return "", fmt.Errorf("create blob temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("close blob temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("finalize blob: %w", err)
	}
	return Scheme + name, nil
}

// Read resolves a local:// reference to its bytes.
func (s *LocalStore) Read(ref string) ([]byte, error) {
	name, ok := strings.CutPrefix(ref, Scheme)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, ref)
	}
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrBlobNotFound, name)
		}
		return nil, fmt.Errorf("read blob %s: %w", name, err)
	}
	return data, nil
}

// MemStore is an in-memory Store for tests.
type MemStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemStore returns an empty in-memory blob store.
func NewMemStore() *MemStore {
	return &MemStore{blobs: make(map[string][]byte)}
}

// Write stores data in memory under its content hash.
func (s *MemStore) Write(data []byte) (string, error) {
	sum := blake3.Sum256(data)
	name := hex.EncodeToString(sum[:])

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[name]; !ok {
		cp := make([]byte, len(data))
		copy(cp, data)
		s.blobs[name] = cp
	}
	return Scheme + name, nil
}

// Read resolves a reference previously returned by Write.
func (s *MemStore) Read(ref string) ([]byte, error) {
	name, ok := strings.CutPrefix(ref, Scheme)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, ref)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.blobs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBlobNotFound, name)
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

var (
	_ Store = (*LocalStore)(nil)
	_ Store = (*MemStore)(nil)
)
