// Copyright (C) 2026 Aether Foundation (oss@aethergrid.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package orchestrator

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/aether-foundation/aethergrid/pkg/blob"
	"github.com/aether-foundation/aethergrid/services/vault"
)

// Loom translates a natural-language intent into a candidate atom scoped
// to the given isolation context. The candidate is not yet persisted; the
// orchestrator wires its dependencies and submits it through the governed
// write path.
type Loom interface {
	Weave(ctx context.Context, intent, contextID string) (*vault.Atom, error)
}

// HeuristicLoom is a deterministic stand-in for a model-backed weaver. It
// recognizes two intent shapes:
//
//	"Add X and Y"             -> scalar-add atom, payload two LE int32s
//	"Calculate zakat for X"   -> financial atom, rate 0, amount X
//
// Anything else fails, which keeps the contract honest: unknown intents
// need real synthesis, not a guess.
type HeuristicLoom struct {
	blobs  blob.Store
	logger *slog.Logger
}

// NewHeuristicLoom creates a loom writing payloads through the blob store.
func NewHeuristicLoom(blobs blob.Store, logger *slog.Logger) *HeuristicLoom {
	if logger == nil {
		logger = slog.Default()
	}
	return &HeuristicLoom{blobs: blobs, logger: logger}
}

func (l *HeuristicLoom) Weave(_ context.Context, intent, contextID string) (*vault.Atom, error) {
	lower := strings.ToLower(intent)
	numbers := extractInts(lower)

	switch {
	case strings.Contains(lower, "add") && strings.Contains(lower, "and") && len(numbers) >= 2:
		payload := make([]byte, 8)
		binary.LittleEndian.PutUint32(payload[:4], uint32(numbers[0]))
		binary.LittleEndian.PutUint32(payload[4:], uint32(numbers[1]))
		return l.atomWithPayload(vault.OpScalarAdd, payload, contextID, intent)

	case strings.Contains(lower, "calculate zakat for"):
		var amount int32
		if len(numbers) > 0 {
			amount = numbers[len(numbers)-1]
		}
		// Rate is fixed to zero; the interest-free law admits nothing else.
		payload := make([]byte, 8)
		binary.LittleEndian.PutUint32(payload[4:], uint32(amount))
		return l.atomWithPayload(vault.OpFinancial, payload, contextID, intent)
	}

	return nil, fmt.Errorf("loom requires 'Add X and Y' or 'Calculate zakat for X', got %q", intent)
}

func (l *HeuristicLoom) atomWithPayload(opCode uint16, payload []byte, contextID, intent string) (*vault.Atom, error) {
	ref, err := l.blobs.Write(payload)
	if err != nil {
		return nil, fmt.Errorf("write woven payload: %w", err)
	}
	l.logger.Debug("intent woven",
		slog.String("intent", intent),
		slog.Int("op_code", int(opCode)),
		slog.String("context", contextID),
	)
	return &vault.Atom{
		OpCode:     opCode,
		Inputs:     []string{},
		PayloadRef: ref,
		ContextID:  contextID,
	}, nil
}

func extractInts(s string) []int32 {
	var out []int32
	for _, field := range strings.Fields(s) {
		if n, err := strconv.ParseInt(strings.Trim(field, ".,!?"), 10, 32); err == nil {
			out = append(out, int32(n))
		}
	}
	return out
}
