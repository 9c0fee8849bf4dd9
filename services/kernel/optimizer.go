// Copyright (C) 2026 Aether Foundation (oss@aethergrid.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package kernel

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aether-foundation/aethergrid/services/vault"
)

// Weaver translates a natural-language intent into a candidate atom. The
// orchestrator's loom satisfies this.
type Weaver interface {
	Weave(ctx context.Context, intent, contextID string) (*vault.Atom, error)
}

// Optimizer watches evaluation timings and asks the weaver for a
// replacement when a node is consistently slow.
type Optimizer struct {
	threshold time.Duration
	logger    *slog.Logger
}

// NewOptimizer creates an optimizer that reacts to evaluations slower than
// threshold.
func NewOptimizer(threshold time.Duration, logger *slog.Logger) *Optimizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Optimizer{threshold: threshold, logger: logger}
}

// OptimizeIfNeeded requests a rewoven atom for hash when duration exceeds
// the threshold. Returns nil when the node is fast enough or the weave
// fails; the caller keeps the existing atom in both cases.
func (o *Optimizer) OptimizeIfNeeded(ctx context.Context, hash string, duration time.Duration, weaver Weaver) *vault.Atom {
	if duration <= o.threshold {
		return nil
	}

	o.logger.Warn("slow node, requesting rewoven replacement",
		slog.String("hash", hash),
		slog.Duration("duration", duration),
		slog.Duration("threshold", o.threshold),
	)

	intent := fmt.Sprintf("Optimize the logic for the node with hash %s. Goal: Reduce execution time.", hash)
	atom, err := weaver.Weave(ctx, intent, vault.ContextGlobal)
	if err != nil {
		o.logger.Warn("reweave failed, keeping existing node",
			slog.String("hash", hash),
			slog.String("error", err.Error()),
		)
		return nil
	}
	return atom
}
