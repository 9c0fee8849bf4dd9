// Copyright (C) 2026 Aether Foundation (oss@aethergrid.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package kernel

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/aether-foundation/aethergrid/services/vault"
)

// FilterConfig is the payload of a list-filter atom.
type FilterConfig struct {
	Field string `json:"field"`
	Op    string `json:"op"`
	Val   any    `json:"val"`
}

type handler func(ctx context.Context, k *Kernel, atom *vault.Atom, hash string, payload []byte, inputs []Value) (Value, error)

// handlers maps op codes to their evaluation logic. Codes absent here
// evaluate to nil, the permissive default for operations this kernel
// version does not know yet.
var handlers = map[uint16]handler{
	vault.OpScalarAdd:         evalScalar,
	vault.OpListFilter:        evalFilter,
	vault.OpListMerge:         evalMerge,
	vault.OpReactiveTrigger:   evalTrigger,
	vault.OpFinancial:         evalFinancial,
	vault.OpIOFetch:           evalIOFetch,
	vault.OpGateway:           evalGateway,
	vault.OpSynthesisRequired: evalSynthesis,
}

func (k *Kernel) dispatch(ctx context.Context, atom *vault.Atom, hash string, payload []byte, inputs []Value) (Value, error) {
	h, ok := handlers[atom.OpCode]
	if !ok {
		return nil, nil
	}
	return h(ctx, k, atom, hash, payload, inputs)
}

// evalScalar is the legacy numeric path inside the structured evaluator.
// Dedicated list and IO operations superseded it; it reports a fixed
// placeholder so old graphs keep evaluating.
func evalScalar(_ context.Context, _ *Kernel, _ *vault.Atom, _ string, _ []byte, _ []Value) (Value, error) {
	return float64(0), nil
}

// evalFilter keeps the elements of the array in inputs[0] that satisfy the
// {field, op, val} predicate decoded from the payload. Unknown operators
// pass every element through unchanged.
func evalFilter(_ context.Context, _ *Kernel, _ *vault.Atom, _ string, payload []byte, inputs []Value) (Value, error) {
	var cfg FilterConfig
	if err := json.Unmarshal(payload, &cfg); err != nil {
		return nil, fmt.Errorf("decode filter config: %w", err)
	}
	if len(inputs) == 0 {
		return nil, fmt.Errorf("filter requires an input")
	}
	arr, ok := inputs[0].([]any)
	if !ok {
		return nil, fmt.Errorf("filter input is %T, want array", inputs[0])
	}

	out := make([]any, 0, len(arr))
	for _, elem := range arr {
		if matchesFilter(elem, cfg) {
			out = append(out, elem)
		}
	}
	return out, nil
}

// matchesFilter evaluates one element against the predicate. An element
// without the configured field never matches a known operator.
func matchesFilter(elem any, cfg FilterConfig) bool {
	obj, ok := elem.(map[string]any)
	if !ok {
		obj = nil
	}
	field, present := obj[cfg.Field]

	switch cfg.Op {
	case ">":
		a, aok := asNumber(field)
		b, bok := asNumber(cfg.Val)
		return present && aok && bok && a > b
	case "<":
		a, aok := asNumber(field)
		b, bok := asNumber(cfg.Val)
		return present && aok && bok && a < b
	case "==":
		return present && asString(field) == asString(cfg.Val)
	case "!=":
		return present && asString(field) != asString(cfg.Val)
	case "contains":
		return present && strings.Contains(asString(field), asString(cfg.Val))
	case "not_contains":
		return present && !strings.Contains(asString(field), asString(cfg.Val))
	default:
		// Unknown operator: permissive pass-through.
		return true
	}
}

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func asString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// evalMerge concatenates all array-valued inputs in input order. Inputs
// that did not evaluate to arrays are skipped.
func evalMerge(_ context.Context, _ *Kernel, _ *vault.Atom, _ string, _ []byte, inputs []Value) (Value, error) {
	out := make([]any, 0)
	for _, in := range inputs {
		if arr, ok := in.([]any); ok {
			out = append(out, arr...)
		}
	}
	return out, nil
}

// evalTrigger returns the atom's own payload configuration verbatim. A
// trigger signals an event binding to a downstream consumer rather than
// computing a value.
func evalTrigger(_ context.Context, _ *Kernel, _ *vault.Atom, _ string, payload []byte, _ []Value) (Value, error) {
	if len(payload) == 0 {
		return nil, nil
	}
	var cfg any
	if err := json.Unmarshal(payload, &cfg); err != nil {
		return nil, fmt.Errorf("decode trigger config: %w", err)
	}
	return cfg, nil
}

// evalFinancial passes through the first input's result. A financial atom
// with no inputs anchors an audit trail and evaluates to an
// acknowledgment value.
func evalFinancial(_ context.Context, _ *Kernel, _ *vault.Atom, _ string, _ []byte, inputs []Value) (Value, error) {
	if len(inputs) > 0 {
		return inputs[0], nil
	}
	return map[string]any{"status": "audit_acknowledged"}, nil
}

// evalIOFetch performs the network fetch an IO atom contracts for, parses
// the response as JSON, and validates it against the declared schema.
// External data that disagrees with its contract must not propagate, so a
// schema violation is a hard failure.
func evalIOFetch(ctx context.Context, k *Kernel, _ *vault.Atom, _ string, payload []byte, _ []Value) (Value, error) {
	contract, err := vault.DecodeIOContract(payload)
	if err != nil {
		return nil, fmt.Errorf("decode io contract: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, contract.Endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", contract.Endpoint, err)
	}
	resp, err := k.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", contract.Endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", contract.Endpoint, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response from %s: %w", contract.Endpoint, err)
	}
	var result any
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("parse response from %s: %w", contract.Endpoint, err)
	}

	if err := validateSchema(contract.Schema, result); err != nil {
		return nil, err
	}
	return result, nil
}

// validateSchema performs a shallow structural check: the top-level type,
// required object fields, and declared property types one level deep.
// Deep schema features are out of scope for the kernel.
func validateSchema(schema map[string]any, value any) error {
	if len(schema) == 0 {
		return nil
	}

	if want, ok := schema["type"].(string); ok {
		if !typeMatches(want, value) {
			return fmt.Errorf("%w: value is %s, contract declares %s", ErrSchemaViolation, jsonTypeName(value), want)
		}
	}

	obj, _ := value.(map[string]any)

	if required, ok := schema["required"].([]any); ok {
		for _, r := range required {
			name, ok := r.(string)
			if !ok {
				continue
			}
			if _, present := obj[name]; !present {
				return fmt.Errorf("%w: required field %q is missing", ErrSchemaViolation, name)
			}
		}
	}

	if props, ok := schema["properties"].(map[string]any); ok {
		for name, raw := range props {
			prop, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			want, ok := prop["type"].(string)
			if !ok {
				continue
			}
			field, present := obj[name]
			if present && !typeMatches(want, field) {
				return fmt.Errorf("%w: field %q is %s, contract declares %s",
					ErrSchemaViolation, name, jsonTypeName(field), want)
			}
		}
	}
	return nil
}

func typeMatches(want string, value any) bool {
	switch want {
	case "object":
		_, ok := value.(map[string]any)
		return ok
	case "array":
		_, ok := value.([]any)
		return ok
	case "string":
		_, ok := value.(string)
		return ok
	case "number", "integer":
		_, ok := value.(float64)
		return ok
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "null":
		return value == nil
	default:
		// Unknown declared type: nothing to check against.
		return true
	}
}

func jsonTypeName(value any) string {
	switch value.(type) {
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%T", value)
	}
}

type gatewayConfig struct {
	MaskedFields []string `json:"masked_fields"`
}

// evalGateway wraps the first input's result in a masking envelope. A
// gateway with no input degrades to an error-shaped value instead of
// failing the evaluation, so downstream consumers can branch on it.
func evalGateway(_ context.Context, _ *Kernel, _ *vault.Atom, hash string, payload []byte, inputs []Value) (Value, error) {
	var cfg gatewayConfig
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &cfg); err != nil {
			return nil, fmt.Errorf("decode gateway config: %w", err)
		}
	}

	if len(inputs) == 0 {
		return map[string]any{
			"origin": hash,
			"error":  "gateway received no input",
		}, nil
	}

	masked := maskFields(inputs[0], cfg.MaskedFields)
	fields := cfg.MaskedFields
	if fields == nil {
		fields = []string{}
	}
	return map[string]any{
		"origin":        hash,
		"payload":       masked,
		"masked_fields": fields,
	}, nil
}

// maskFields redacts the named top-level fields of an object result.
// Non-object results pass through untouched; there is nothing to mask.
func maskFields(value any, fields []string) any {
	obj, ok := value.(map[string]any)
	if !ok || len(fields) == 0 {
		return value
	}
	out := make(map[string]any, len(obj))
	for k, v := range obj {
		out[k] = v
	}
	for _, f := range fields {
		if _, present := out[f]; present {
			out[f] = "***"
		}
	}
	return out
}

// evalSynthesis marks an intent no known logic exists for. The marker
// carries the original intent text and the atom's own hash so an external
// authoring process can pick it up, without failing the evaluation.
func evalSynthesis(_ context.Context, _ *Kernel, _ *vault.Atom, hash string, payload []byte, _ []Value) (Value, error) {
	return map[string]any{
		"status": "pending_synthesis",
		"intent": string(payload),
		"hash":   hash,
	}, nil
}
