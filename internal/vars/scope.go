// Package vars implements the seven-layer Variable Service and the
// multi-grammar string interpolation engine.
package vars

import (
	"os"
	"sync"

	"github.com/marcuspmd/flow-test-sub005/internal/model"
)

// Layer identifies one of the seven resolution-order scopes.
type Layer int

const (
	LayerIteration Layer = iota
	LayerStep
	LayerSuite
	LayerCall
	LayerGlobal
	LayerEnvironment
	LayerConfigDefaults
	numLayers
)

// ConflictWarning records a last-writer-wins collision in the global
// registry, read back through Registry.Conflicts.
type ConflictWarning struct {
	Name        string
	PreviousVal model.Value
	NewVal      model.Value
	NodeID      string
}

// Registry is the run-scoped global variable registry, safe for
// concurrent read/write across scheduler workers — the only cross-worker
// mutable structure in the variable model.
type Registry struct {
	mu        sync.RWMutex
	values    map[string]model.Value
	conflicts []ConflictWarning
}

// NewRegistry creates an empty global registry.
func NewRegistry() *Registry {
	return &Registry{values: make(map[string]model.Value)}
}

// Get reads a global variable.
func (r *Registry) Get(name string) (model.Value, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.values[name]
	return v, ok
}

// Set writes a global variable. Every write that overwrites an existing
// value is recorded as a conflict warning, whichever suite made the
// earlier write (the earlier writer is not tracked); last writer wins.
func (r *Registry) Set(nodeID, name string, v model.Value) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.values[name]; ok {
		r.conflicts = append(r.conflicts, ConflictWarning{Name: name, PreviousVal: prev, NewVal: v, NodeID: nodeID})
	}
	r.values[name] = v
}

// Conflicts returns all recorded GlobalVariableConflict warnings so far.
func (r *Registry) Conflicts() []ConflictWarning {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ConflictWarning, len(r.conflicts))
	copy(out, r.conflicts)
	return out
}

// Scope is one layered variable-resolution chain. A fresh Scope is created
// per suite (LayerSuite base) and cloned with a new top layer per step and
// per iteration: suite/step/iteration scopes are single-owner and never
// shared across workers.
type Scope struct {
	layers   [numLayers]map[string]model.Value
	registry *Registry
	nodeID   string
	env      func(string) (string, bool)
	config   map[string]model.Value
}

// NewRootScope builds the base scope for one suite: call inputs, the
// global registry, process environment, and config defaults are already
// fixed; suite and step/iteration layers start empty.
func NewRootScope(nodeID string, registry *Registry, configDefaults map[string]model.Value) *Scope {
	s := &Scope{registry: registry, nodeID: nodeID, env: os.LookupEnv, config: configDefaults}
	for i := range s.layers {
		s.layers[i] = make(map[string]model.Value)
	}
	return s
}

// Fork produces a child scope that shares the parent's lower layers by
// value-copy (suite/call/global/env/config) but gets a fresh top layer for
// the given Layer — used to create per-step and per-iteration scopes
// without the child's writes leaking back to the parent.
func (s *Scope) Fork(topLayer Layer) *Scope {
	child := &Scope{registry: s.registry, nodeID: s.nodeID, env: s.env, config: s.config}
	for i := range s.layers {
		m := make(map[string]model.Value, len(s.layers[i]))
		for k, v := range s.layers[i] {
			m[k] = v
		}
		child.layers[i] = m
	}
	child.layers[topLayer] = make(map[string]model.Value)
	return child
}

// SetRuntime writes into the given layer directly.
func (s *Scope) SetRuntime(layer Layer, name string, v model.Value) {
	if layer == LayerGlobal {
		s.registry.Set(s.nodeID, name, v)
		return
	}
	s.layers[layer][name] = v
}

// Get walks layers top-down (iteration -> step -> suite -> call -> global
// -> environment -> config defaults), first match wins.
func (s *Scope) Get(name string) (model.Value, bool) {
	for layer := LayerIteration; layer <= LayerConfigDefaults; layer++ {
		if v, ok := s.lookupLayer(layer, name); ok {
			return v, true
		}
	}
	return model.Null, false
}

func (s *Scope) lookupLayer(layer Layer, name string) (model.Value, bool) {
	switch layer {
	case LayerGlobal:
		return s.registry.Get(name)
	case LayerEnvironment:
		if raw, ok := s.env(name); ok {
			return model.NewValue(raw), true
		}
		return model.Null, false
	case LayerConfigDefaults:
		v, ok := s.config[name]
		return v, ok
	default:
		v, ok := s.layers[layer][name]
		return v, ok
	}
}

// Promote copies a value from one layer to a higher one. A later write at
// the lower layer does not retroactively re-promote: Promote takes
// a snapshot value, not a live reference.
func (s *Scope) Promote(name string, from, to Layer) {
	if v, ok := s.lookupLayer(from, name); ok {
		s.SetRuntime(to, name, v)
	}
}

// Snapshot returns a flattened name->Value view of everything currently
// resolvable, used for $variables / $all_variables introspection and for
// handing a pure value snapshot to the expression sandbox.
func (s *Scope) Snapshot() map[string]model.Value {
	out := make(map[string]model.Value)
	for layer := LayerConfigDefaults; layer >= LayerIteration; layer-- {
		if layer == LayerGlobal {
			s.registry.mu.RLock()
			for k, v := range s.registry.values {
				out[k] = v
			}
			s.registry.mu.RUnlock()
			continue
		}
		if layer == LayerEnvironment {
			continue // process env is unbounded; introspection only resolves referenced names
		}
		m := s.layers[layer]
		if layer == LayerConfigDefaults {
			m = nil
		}
		for k, v := range m {
			out[k] = v
		}
	}
	for k, v := range s.config {
		if _, exists := out[k]; !exists {
			out[k] = v
		}
	}
	return out
}
