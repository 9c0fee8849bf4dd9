// Copyright (C) 2026 Aether Foundation (oss@aethergrid.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package vault

import (
	"errors"
	"fmt"
)

// Sentinel errors for the vault.
var (
	// ErrNotFound indicates no atom exists under the requested hash.
	ErrNotFound = errors.New("logic atom not found")

	// ErrIdentityNotFound indicates no identity record under the key.
	ErrIdentityNotFound = errors.New("identity not found")

	// ErrProjectNotFound indicates no project record under the name.
	ErrProjectNotFound = errors.New("project not found")

	// ErrEmptyBatch indicates PersistBatch was called with no atoms.
	ErrEmptyBatch = errors.New("empty atom batch")

	// ErrInvalidTransition indicates a project status change the state
	// machine does not allow.
	ErrInvalidTransition = errors.New("invalid project status transition")
)

// Law identifiers carried by validation errors so callers can branch on
// which rule rejected a write without parsing message text.
const (
	LawInterestFree     = "interest-free"
	LawDataSovereignty  = "data-sovereignty"
	LawContextIsolation = "context-isolation"
	LawDependency       = "missing-dependency"
	LawCompatibility    = "structural-compatibility"
	LawContract         = "malformed-contract"
)

// ValidationError is a guard or isolation rejection on the governed write
// path. Law identifies the violated rule; Hash is the offending input hash
// where one is known (context isolation, missing dependencies).
type ValidationError struct {
	Law    string
	Reason string
	Hash   string
}

func (e *ValidationError) Error() string {
	if e.Hash != "" {
		return fmt.Sprintf("validation failed [%s]: %s (hash %s)", e.Law, e.Reason, e.Hash)
	}
	return fmt.Sprintf("validation failed [%s]: %s", e.Law, e.Reason)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
