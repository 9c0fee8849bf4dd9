// Copyright (C) 2026 Aether Foundation (oss@aethergrid.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package orchestrator

import "strings"

// InputSchema describes one template variable for form rendering: its
// name inside the template, a human label, and the widget kind.
type InputSchema struct {
	Name      string   `yaml:"name" json:"name" validate:"required"`
	Label     string   `yaml:"label" json:"label"`
	InputType string   `yaml:"input_type" json:"input_type"`
	Options   []string `yaml:"options,omitempty" json:"options,omitempty"`
}

// ProductTemplate is a reusable manifest with {{name}} placeholders. A
// rendered template is an ordinary manifest; BuildApp never sees the
// placeholders, the substitution pass owns them.
type ProductTemplate struct {
	ID               string        `yaml:"id" json:"id"`
	Name             string        `yaml:"name" json:"name"`
	ManifestTemplate string        `yaml:"manifest_template" json:"manifest_template"`
	Inputs           []InputSchema `yaml:"inputs" json:"inputs"`
}

// Render substitutes every literal {{name}} placeholder with its value.
// Placeholders without a value are left in place, which makes a half
// rendered manifest visibly wrong instead of silently empty.
func (p *ProductTemplate) Render(values map[string]string) string {
	out := p.ManifestTemplate
	for name, value := range values {
		out = strings.ReplaceAll(out, "{{"+name+"}}", value)
	}
	return out
}
