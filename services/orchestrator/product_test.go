// Copyright (C) 2026 Aether Foundation (oss@aethergrid.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package orchestrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductTemplateRender(t *testing.T) {
	tpl := &ProductTemplate{
		ID:   "rental-tracker",
		Name: "Rental Tracker",
		ManifestTemplate: `app_name: {{app_name}}
nodes:
  - name: root
    intent: "Add {{first}} and {{second}}"
`,
		Inputs: []InputSchema{
			{Name: "app_name", Label: "Application name", InputType: "text"},
			{Name: "first", Label: "First value", InputType: "number"},
			{Name: "second", Label: "Second value", InputType: "number"},
		},
	}

	rendered := tpl.Render(map[string]string{
		"app_name": "dubai_rentals",
		"first":    "10",
		"second":   "20",
	})
	assert.NotContains(t, rendered, "{{")

	// A rendered template is an ordinary, buildable manifest.
	o, v, _ := newTestOrchestrator(t, nil)
	rootHash, err := o.BuildApp(context.Background(), rendered)
	require.NoError(t, err)

	atom, err := v.Fetch(context.Background(), rootHash)
	require.NoError(t, err)
	assert.Equal(t, "dubai_rentals", atom.ContextID)
}

func TestProductTemplateLeavesUnknownPlaceholders(t *testing.T) {
	tpl := &ProductTemplate{ManifestTemplate: "app_name: {{missing}}"}
	assert.Equal(t, "app_name: {{missing}}", tpl.Render(map[string]string{"other": "x"}))
}
