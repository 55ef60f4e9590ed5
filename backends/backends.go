// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package backends defines the attention-decoding implementations the
// benchmark can time, and the registry the sweep draws them from.
//
// Each implementation is an Adapter: it receives the prepared inputs of one
// case and runs a forward pass. Adapters that cannot handle every case also
// implement SupportChecker and reject upfront with reasons; the sweep
// reports those rejections as skips, never as failures. Errors returned by
// Forward itself are failures.
//
// RegisterDefaults builds the standard registry for a host, consulting
// Capabilities for what the machine and toolchain can run.
package backends

import (
	"github.com/gomlx/exceptions"

	"github.com/gomlx/attnbench/types/tensors"
)

// Adapter is one attention-decoding implementation under benchmark.
type Adapter interface {
	// Name identifies the adapter in reports and -filter expressions.
	Name() string

	// Description is a one-line summary for capability listings.
	Description() string

	// Forward runs the attention forward pass and returns a tensor shaped
	// like the query. It must be safe to call repeatedly on the same
	// inputs -- the timing loop does exactly that.
	Forward(in *Inputs) (*tensors.Tensor, error)
}

// SupportChecker lets an Adapter reject a case before any timing starts.
type SupportChecker interface {
	// NotSupportedReasons returns nil when the inputs are supported,
	// otherwise one human-readable reason per unmet requirement.
	NotSupportedReasons(in *Inputs) []string
}

// NotSupportedReasons returns the adapter's objections to in, or nil for
// adapters that accept every case.
func NotSupportedReasons(adapter Adapter, in *Inputs) []string {
	if checker, ok := adapter.(SupportChecker); ok {
		return checker.NotSupportedReasons(in)
	}
	return nil
}

// CheckSupport wraps NotSupportedReasons into an error: nil when supported,
// a *NotSupportedError otherwise.
func CheckSupport(adapter Adapter, in *Inputs) error {
	if reasons := NotSupportedReasons(adapter, in); len(reasons) > 0 {
		return &NotSupportedError{Backend: adapter.Name(), Reasons: reasons}
	}
	return nil
}

// Registry holds the adapters of one benchmark process. Iteration order is
// registration order, and reports follow it.
type Registry struct {
	names    map[string]int
	adapters []Adapter
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{names: make(map[string]int)}
}

// Register adds the adapter. It panics if the name was already taken:
// every timed implementation must be distinguishable in reports.
//
// To be safe, call Register during initialization, before any sweep runs.
func (r *Registry) Register(adapter Adapter) {
	name := adapter.Name()
	if _, found := r.names[name]; found {
		exceptions.Panicf("backends: adapter %q registered twice", name)
	}
	r.names[name] = len(r.adapters)
	r.adapters = append(r.adapters, adapter)
}

// Get returns the adapter registered under name, or nil.
func (r *Registry) Get(name string) Adapter {
	idx, found := r.names[name]
	if !found {
		return nil
	}
	return r.adapters[idx]
}

// Names returns the registered names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.adapters))
	for i, adapter := range r.adapters {
		names[i] = adapter.Name()
	}
	return names
}

// Adapters returns the adapters in registration order. The slice is shared,
// callers must not modify it.
func (r *Registry) Adapters() []Adapter { return r.adapters }

// Len returns the number of registered adapters.
func (r *Registry) Len() int { return len(r.adapters) }
