// Copyright (C) 2026 Aether Foundation (oss@aethergrid.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package kernel

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidOp indicates an op code reached a context that requires a
	// concrete result it cannot produce.
	ErrInvalidOp = errors.New("invalid operation for this evaluation path")

	// ErrShortPayload indicates a payload too small for its operation.
	ErrShortPayload = errors.New("payload too short")

	// ErrSchemaViolation indicates external data that disagrees with its
	// declared contract.
	ErrSchemaViolation = errors.New("response violates declared schema")
)

// EvalError wraps a failure during graph evaluation with the node it
// occurred at, so callers can diagnose a deep subtree failure without a
// stack trace.
type EvalError struct {
	Hash   string
	OpCode uint16
	Err    error
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("evaluating %s (op %d): %v", e.Hash, e.OpCode, e.Err)
}

func (e *EvalError) Unwrap() error {
	return e.Err
}
