// Copyright (C) 2026 Aether Foundation (oss@aethergrid.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package kernel evaluates atom graphs.
//
// Given a root hash, ExecuteSmart walks the dependency graph depth-first,
// evaluating sibling inputs concurrently and memoizing results by hash
// within one call, then dispatches on the atom's op code against the
// already-evaluated inputs and the atom's own payload. Content addressing
// makes the memoization sound: identical hashes denote identical
// computations.
package kernel

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/aether-foundation/aethergrid/pkg/blob"
	"github.com/aether-foundation/aethergrid/services/vault"
)

var (
	tracer = otel.Tracer("aether.kernel")
	meter  = otel.Meter("aether.kernel")
)

// DefaultFetchTimeout bounds the network fetch performed by IO atoms.
const DefaultFetchTimeout = 15 * time.Second

// Value is an evaluation result. Results follow the encoding/json mapping:
// objects are map[string]any, arrays are []any, numbers are float64. A nil
// Value is the permissive result for unknown op codes.
type Value = any

// Kernel is the graph evaluator.
//
// Description:
//
//	Kernel fetches atoms from the vault, resolves their payloads through
//	the blob store, and evaluates dependency subtrees concurrently. It is
//	safe for concurrent use; independent evaluations share nothing but
//	the underlying store.
type Kernel struct {
	vault  *vault.Vault
	blobs  blob.Store
	logger *slog.Logger
	client *http.Client

	// Metrics (initialized lazily)
	metricsOnce sync.Once
	nodeLatency metric.Float64Histogram
	nodeSuccess metric.Int64Counter
	nodeFailure metric.Int64Counter
	activeNodes metric.Int64UpDownCounter
	callLatency metric.Float64Histogram
}

// Option configures a Kernel.
type Option func(*Kernel)

// WithHTTPClient overrides the client used for IO fetch atoms.
func WithHTTPClient(client *http.Client) Option {
	return func(k *Kernel) {
		k.client = client
	}
}

// New creates a Kernel over a vault.
//
// Inputs:
//
//	v - The store to evaluate against. Must not be nil.
//	logger - Logger for evaluation logs. If nil, uses slog.Default().
//
// Outputs:
//
//	*Kernel - The configured evaluator.
//	error - Non-nil if v is nil.
func New(v *vault.Vault, logger *slog.Logger, opts ...Option) (*Kernel, error) {
	if v == nil {
		return nil, fmt.Errorf("vault is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	k := &Kernel{
		vault:  v,
		blobs:  v.Blobs(),
		logger: logger,
		client: &http.Client{Timeout: DefaultFetchTimeout},
	}
	for _, opt := range opts {
		opt(k)
	}
	return k, nil
}

// initMetrics lazily initializes metrics.
// Logs errors if metric creation fails but continues execution (graceful degradation).
func (k *Kernel) initMetrics() {
	k.metricsOnce.Do(func() {
		var initErrors []string

		var err error
		k.nodeLatency, err = meter.Float64Histogram("kernel_node_duration_seconds",
			metric.WithDescription("Time spent evaluating each atom"),
			metric.WithUnit("s"),
		)
		if err != nil {
			initErrors = append(initErrors, "node_latency: "+err.Error())
		}

		k.nodeSuccess, err = meter.Int64Counter("kernel_node_success_total",
			metric.WithDescription("Number of successful atom evaluations"),
		)
		if err != nil {
			initErrors = append(initErrors, "node_success: "+err.Error())
		}

		k.nodeFailure, err = meter.Int64Counter("kernel_node_failure_total",
			metric.WithDescription("Number of failed atom evaluations"),
		)
		if err != nil {
			initErrors = append(initErrors, "node_failure: "+err.Error())
		}

		k.activeNodes, err = meter.Int64UpDownCounter("kernel_active_nodes",
			metric.WithDescription("Number of atoms currently being evaluated"),
		)
		if err != nil {
			initErrors = append(initErrors, "active_nodes: "+err.Error())
		}

		k.callLatency, err = meter.Float64Histogram("kernel_call_duration_seconds",
			metric.WithDescription("Total top-level evaluation time"),
			metric.WithUnit("s"),
		)
		if err != nil {
			initErrors = append(initErrors, "call_latency: "+err.Error())
		}

		if len(initErrors) > 0 {
			k.logger.Error("failed to initialize some kernel metrics (observability degraded)",
				slog.Int("failed_count", len(initErrors)),
				slog.Any("errors", initErrors),
			)
		}
	})
}

// Execute runs the legacy scalar path: the atom must be a scalar-add atom
// whose payload carries two little-endian int32 values. Any other op code
// is an invalid-operation error.
func (k *Kernel) Execute(ctx context.Context, hash string) (int32, error) {
	atom, err := k.vault.Fetch(ctx, hash)
	if err != nil {
		return 0, err
	}
	if atom.OpCode != vault.OpScalarAdd {
		return 0, &EvalError{Hash: hash, OpCode: atom.OpCode, Err: ErrInvalidOp}
	}

	payload, err := k.readPayload(atom)
	if err != nil {
		return 0, &EvalError{Hash: hash, OpCode: atom.OpCode, Err: err}
	}
	sum, err := scalarSum(payload)
	if err != nil {
		return 0, &EvalError{Hash: hash, OpCode: atom.OpCode, Err: err}
	}
	return sum, nil
}

// ExecuteWithMetrics runs the legacy scalar path and reports how long the
// evaluation took. The duration covers only the decode-and-compute step;
// fetching the atom and its payload happens before the clock starts, so
// the measurement reflects the logic itself rather than storage latency.
func (k *Kernel) ExecuteWithMetrics(ctx context.Context, hash string) (int32, time.Duration, error) {
	atom, err := k.vault.Fetch(ctx, hash)
	if err != nil {
		return 0, 0, err
	}
	if atom.OpCode != vault.OpScalarAdd {
		return 0, 0, &EvalError{Hash: hash, OpCode: atom.OpCode, Err: ErrInvalidOp}
	}
	payload, err := k.readPayload(atom)
	if err != nil {
		return 0, 0, &EvalError{Hash: hash, OpCode: atom.OpCode, Err: err}
	}

	start := time.Now()
	sum, err := scalarSum(payload)
	duration := time.Since(start)

	if err != nil {
		return 0, duration, &EvalError{Hash: hash, OpCode: atom.OpCode, Err: err}
	}
	return sum, duration, nil
}

func scalarSum(payload []byte) (int32, error) {
	if len(payload) < 8 {
		return 0, fmt.Errorf("%w: need 8 bytes for scalar add, have %d", ErrShortPayload, len(payload))
	}
	a := int32(binary.LittleEndian.Uint32(payload[0:4]))
	b := int32(binary.LittleEndian.Uint32(payload[4:8]))
	return a + b, nil
}

// memoEntry holds one evaluated result. The sync.Once guarantees a shared
// subgraph is computed exactly once per top-level call even when several
// parents race to it.
type memoEntry struct {
	once sync.Once
	val  Value
	err  error
}

type memoTable struct {
	mu      sync.Mutex
	entries map[string]*memoEntry
}

func (m *memoTable) entry(hash string) *memoEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[hash]
	if !ok {
		e = &memoEntry{}
		m.entries[hash] = e
	}
	return e
}

// ExecuteSmart evaluates the graph rooted at hash and returns its
// structured result.
//
// Description:
//
//	Recursive and depth-first over the DAG, breadth-concurrent at each
//	level: all inputs of an atom are evaluated concurrently and joined
//	before the atom's own op-code logic runs. A failure in any input
//	aborts the whole call; no partial structured results are surfaced.
//	Results are memoized by hash for the duration of the call, so shared
//	subgraphs are evaluated once.
//
// Inputs:
//
//	ctx - Context for cancellation. Must not be nil.
//	hash - Root atom hash.
//
// Outputs:
//
//	Value - The structured result. Nil for unknown op codes.
//	error - Non-nil on failure, carrying the failing node's hash and op code.
func (k *Kernel) ExecuteSmart(ctx context.Context, hash string) (Value, error) {
	k.initMetrics()

	sessionID := uuid.NewString()[:12]
	ctx, span := tracer.Start(ctx, "kernel.Evaluate",
		trace.WithAttributes(
			attribute.String("kernel.root", hash),
			attribute.String("kernel.session_id", sessionID),
		),
	)
	defer span.End()

	start := time.Now()
	k.logger.Debug("evaluation started",
		slog.String("root", hash),
		slog.String("session_id", sessionID),
	)

	memo := &memoTable{entries: make(map[string]*memoEntry)}
	val, err := k.eval(ctx, hash, sessionID, memo)
	duration := time.Since(start)

	if k.callLatency != nil {
		k.callLatency.Record(ctx, duration.Seconds())
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		k.logger.Error("evaluation failed",
			slog.String("root", hash),
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	k.logger.Info("evaluation completed",
		slog.String("root", hash),
		slog.String("session_id", sessionID),
		slog.Duration("duration", duration),
		slog.Int("nodes_evaluated", len(memo.entries)),
	)
	return val, nil
}

// eval resolves hash through the memo table, computing it at most once.
func (k *Kernel) eval(ctx context.Context, hash, sessionID string, memo *memoTable) (Value, error) {
	e := memo.entry(hash)
	e.once.Do(func() {
		e.val, e.err = k.evalNode(ctx, hash, sessionID, memo)
	})
	return e.val, e.err
}

// evalNode fetches one atom, joins its concurrently evaluated inputs, and
// dispatches on the op code.
func (k *Kernel) evalNode(ctx context.Context, hash, sessionID string, memo *memoTable) (Value, error) {
	ctx, span := tracer.Start(ctx, "kernel.Node",
		trace.WithAttributes(
			attribute.String("kernel.hash", hash),
			attribute.String("kernel.session_id", sessionID),
		),
	)
	defer span.End()

	if k.activeNodes != nil {
		k.activeNodes.Add(ctx, 1)
		defer k.activeNodes.Add(ctx, -1)
	}

	atom, err := k.vault.Fetch(ctx, hash)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, &EvalError{Hash: hash, Err: err}
	}
	span.SetAttributes(
		attribute.Int("kernel.op_code", int(atom.OpCode)),
		attribute.Int("kernel.input_count", len(atom.Inputs)),
	)

	// Fan out over inputs, preserving input order in the results slice.
	// Position matters: filter reads inputs[0], merge concatenates in order.
	inputs := make([]Value, len(atom.Inputs))
	g, gctx := errgroup.WithContext(ctx)
	for i, inputHash := range atom.Inputs {
		i, inputHash := i, inputHash
		g.Go(func() error {
			val, err := k.eval(gctx, inputHash, sessionID, memo)
			if err != nil {
				return err
			}
			inputs[i] = val
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if k.nodeFailure != nil {
			k.nodeFailure.Add(ctx, 1, metric.WithAttributes(attribute.Int("op_code", int(atom.OpCode))))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	payload, err := k.readPayload(atom)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, &EvalError{Hash: hash, OpCode: atom.OpCode, Err: err}
	}

	start := time.Now()
	val, err := k.dispatch(ctx, atom, hash, payload, inputs)
	duration := time.Since(start)

	if k.nodeLatency != nil {
		k.nodeLatency.Record(ctx, duration.Seconds(),
			metric.WithAttributes(attribute.Int("op_code", int(atom.OpCode))),
		)
	}

	if err != nil {
		if k.nodeFailure != nil {
			k.nodeFailure.Add(ctx, 1, metric.WithAttributes(attribute.Int("op_code", int(atom.OpCode))))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		k.logger.Error("node evaluation failed",
			slog.String("hash", hash),
			slog.Int("op_code", int(atom.OpCode)),
			slog.String("error", err.Error()),
		)
		return nil, &EvalError{Hash: hash, OpCode: atom.OpCode, Err: err}
	}

	if k.nodeSuccess != nil {
		k.nodeSuccess.Add(ctx, 1, metric.WithAttributes(attribute.Int("op_code", int(atom.OpCode))))
	}
	span.SetStatus(codes.Ok, "")
	k.logger.Debug("node evaluated",
		slog.String("hash", hash),
		slog.Int("op_code", int(atom.OpCode)),
		slog.Duration("duration", duration),
	)
	return val, nil
}

// readPayload resolves the atom's payload bytes. An empty reference is an
// empty payload.
func (k *Kernel) readPayload(atom *vault.Atom) ([]byte, error) {
	if atom.PayloadRef == "" {
		return nil, nil
	}
	payload, err := k.blobs.Read(atom.PayloadRef)
	if err != nil {
		return nil, fmt.Errorf("read payload %s: %w", atom.PayloadRef, err)
	}
	return payload, nil
}
