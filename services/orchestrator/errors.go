// Copyright (C) 2026 Aether Foundation (oss@aethergrid.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package orchestrator

import (
	"errors"
	"fmt"
)

var (
	// ErrNodeLogicRequired indicates a node declaring neither or both of
	// intent and use_ref.
	ErrNodeLogicRequired = errors.New("node requires exactly one of intent or use_ref")

	// ErrImportNotFound indicates a use_ref naming an import the merged
	// manifest does not declare.
	ErrImportNotFound = errors.New("import reference not found")

	// ErrNoLoader indicates a manifest with extends but no loader to
	// resolve the parent with.
	ErrNoLoader = errors.New("manifest extends a parent but no loader is configured")
)

// BuildError wraps a failure during manifest compilation with the name of
// the node being processed, so a rejected build names its offender.
type BuildError struct {
	Node string
	Err  error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("building node %q: %v", e.Node, e.Err)
}

func (e *BuildError) Unwrap() error {
	return e.Err
}
