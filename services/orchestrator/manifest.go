// Copyright (C) 2026 Aether Foundation (oss@aethergrid.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package orchestrator

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// manifestValidate is the validator instance for manifest documents.
var manifestValidate = validator.New()

// Import binds a local name to the content hash of an already-persisted
// atom, typically a global law or shared template.
type Import struct {
	Name string `yaml:"name" validate:"required"`
	Hash string `yaml:"hash" validate:"required"`
}

// Node declares one atom of the application graph. Exactly one of Intent
// (generative: the loom weaves new logic) and UseRef (linker: an imported
// atom is re-contextualized) must be set.
//
// Dependencies name nodes declared earlier in the merged node list;
// declaration order is required to be a valid topological order.
type Node struct {
	Name         string   `yaml:"name" validate:"required"`
	Intent       string   `yaml:"intent,omitempty"`
	UseRef       string   `yaml:"use_ref,omitempty"`
	Dependencies []string `yaml:"dependencies,omitempty"`
}

// Manifest is the declarative source form of an application graph. It is
// a compile-time document only; nothing persists it as such.
type Manifest struct {
	AppName string        `yaml:"app_name" validate:"required"`
	Extends string        `yaml:"extends,omitempty"`
	Inputs  []InputSchema `yaml:"inputs,omitempty"`
	Imports []Import      `yaml:"imports,omitempty" validate:"dive"`
	Nodes   []Node        `yaml:"nodes" validate:"dive"`
}

// Parse decodes and validates a manifest document.
//
// Outputs:
//
//	*Manifest - The validated manifest.
//	error - Non-nil on YAML errors, missing required fields, or a node
//	        violating the exactly-one-of intent/use_ref rule.
func Parse(raw []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if err := manifestValidate.Struct(&m); err != nil {
		return nil, fmt.Errorf("validate manifest: %w", err)
	}
	for _, node := range m.Nodes {
		hasIntent := node.Intent != ""
		hasRef := node.UseRef != ""
		if hasIntent == hasRef {
			return nil, fmt.Errorf("%w: node %q", ErrNodeLogicRequired, node.Name)
		}
	}
	return &m, nil
}

// ManifestLoader resolves a parent manifest named by an extends clause.
type ManifestLoader interface {
	Load(name string) ([]byte, error)
}

// DirLoader resolves parent manifests from <Root>/<name>/manifest.yaml,
// the layout the product catalog uses on disk.
type DirLoader struct {
	Root string
}

func (l DirLoader) Load(name string) ([]byte, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return nil, fmt.Errorf("invalid manifest name %q", name)
	}
	path := filepath.Join(l.Root, name, "manifest.yaml")
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load manifest %q: %w", name, err)
	}
	return raw, nil
}
