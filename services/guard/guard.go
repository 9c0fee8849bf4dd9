// Copyright (C) 2026 Aether Foundation (oss@aethergrid.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package guard implements the policy guard: the pure, stateless validator
// the vault consults on every governed write.
//
// The guard enforces two domain laws (zero interest on financial atoms,
// data sovereignty on external IO) and a shallow structural compatibility
// check over an atom and its resolved inputs. Every method is a pure
// function of its arguments; a single Guard may be shared across threads
// without synchronization.
package guard

import (
	"net"
	"net/url"
	"strings"

	"github.com/aether-foundation/aethergrid/services/vault"
)

// SensitivitySovereign is the sensitivity level at which the data
// sovereignty law engages. Levels below it always pass.
const SensitivitySovereign = 2

// DefaultSovereignSuffixes are the domain suffixes recognized as sovereign
// territory for level-2 data when no explicit list is configured.
var DefaultSovereignSuffixes = []string{".local", ".internal"}

// Guard validates atoms against the grid's laws.
type Guard struct {
	sovereignSuffixes []string
}

// New returns a Guard with the default sovereign domain list.
func New() *Guard {
	return &Guard{sovereignSuffixes: DefaultSovereignSuffixes}
}

// NewWithSovereignDomains returns a Guard that additionally treats the
// given domain suffixes as sovereign for level-2 data.
func NewWithSovereignDomains(suffixes ...string) *Guard {
	merged := make([]string, 0, len(DefaultSovereignSuffixes)+len(suffixes))
	merged = append(merged, DefaultSovereignSuffixes...)
	merged = append(merged, suffixes...)
	return &Guard{sovereignSuffixes: merged}
}

// VerifyInterestFree reports whether a rate satisfies the zero-interest
// law. Framed as a constraint query — does a solution exist where the rate
// equals zero? — so richer numeric constraints can attach here later
// without changing callers.
func (g *Guard) VerifyInterestFree(rate int32) bool {
	return satisfiable(rate, 0)
}

// satisfiable is the single-constraint solver: an assignment satisfies the
// law iff the constrained value equals the required value.
func satisfiable(value, required int32) bool {
	return value == required
}

// VerifySovereignty reports whether an endpoint may serve data of the
// given sensitivity. Levels below SensitivitySovereign always pass;
// sovereign data must resolve to loopback or a designated sovereign
// domain suffix.
func (g *Guard) VerifySovereignty(endpoint string, sensitivity int) bool {
	if sensitivity < SensitivitySovereign {
		return true
	}

	host := endpointHost(endpoint)
	if host == "" {
		return false
	}
	if host == "localhost" {
		return true
	}
	if ip := net.ParseIP(host); ip != nil && ip.IsLoopback() {
		return true
	}
	for _, suffix := range g.sovereignSuffixes {
		if strings.HasSuffix(host, suffix) {
			return true
		}
	}
	return false
}

// VerifyCompatibility performs the shallow structural check keyed on the
// atom's op code:
//
//   - a list filter needs at least one input, and its first input must not
//     be a scalar-arithmetic producer (a scalar is not a filterable list);
//   - every other op code is currently unconstrained. New structural rules
//     attach here.
func (g *Guard) VerifyCompatibility(atom *vault.Atom, inputs []*vault.Atom) error {
	switch atom.OpCode {
	case vault.OpListFilter:
		if len(inputs) == 0 {
			return &CompatibilityError{
				OpCode: atom.OpCode,
				Reason: "list filter requires at least one input",
			}
		}
		if inputs[0].OpCode == vault.OpScalarAdd {
			return &CompatibilityError{
				OpCode: atom.OpCode,
				Reason: "first input produces a scalar, not a filterable list",
			}
		}
	}
	return nil
}

// endpointHost extracts the host portion of an endpoint string, tolerating
// bare hosts, host:port pairs, and full URLs.
func endpointHost(endpoint string) string {
	if strings.Contains(endpoint, "://") {
		u, err := url.Parse(endpoint)
		if err != nil {
			return ""
		}
		return u.Hostname()
	}
	if host, _, err := net.SplitHostPort(endpoint); err == nil {
		return host
	}
	return endpoint
}

var _ vault.Policy = (*Guard)(nil)
