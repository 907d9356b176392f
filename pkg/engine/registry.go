package engine

import (
	"slices"
	"sort"
	"sync"
)

// Registry holds, per state variable, the ordered operators and methods the
// planner consults. Registration order fixes exploration order.
type Registry struct {
	// mu protects the registry state.
	mu sync.RWMutex

	// operators maps variable name to its ordered operators.
	operators map[string][]Operator

	// methods maps variable name to its ordered methods.
	methods map[string][]Method
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		operators: make(map[string][]Operator),
		methods:   make(map[string][]Method),
	}
}

// RegisterOperators replaces the operator list for variable. Previous
// registrations for the same variable are discarded, not merged.
func (r *Registry) RegisterOperators(variable string, ops ...Operator) []Operator {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.operators[variable] = slices.Clone(ops)
	return slices.Clone(ops)
}

// RegisterMethods replaces the method list for variable. Previous
// registrations for the same variable are discarded, not merged.
func (r *Registry) RegisterMethods(variable string, methods ...Method) []Method {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.methods[variable] = slices.Clone(methods)
	return slices.Clone(methods)
}

// OperatorsFor returns a copy of the operators registered for variable, in
// order. An unknown variable yields an empty list.
func (r *Registry) OperatorsFor(variable string) []Operator {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.operators[variable])
}

// MethodsFor returns a copy of the methods registered for variable, in
// order. An unknown variable yields an empty list.
func (r *Registry) MethodsFor(variable string) []Method {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.methods[variable])
}

// Operator returns the first operator registered under any variable with the
// given name. Variables are searched in sorted order.
func (r *Registry) Operator(name string) (Operator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, variable := range sortedKeys(r.operators) {
		for _, op := range r.operators[variable] {
			if op.Name == name {
				return op, true
			}
		}
	}
	return Operator{}, false
}

// Knows reports whether any operator or method is registered for variable.
func (r *Registry) Knows(variable string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.operators[variable]) > 0 || len(r.methods[variable]) > 0
}

// Reset clears every registration so the registry can serve an independent
// planning run.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.operators = make(map[string][]Operator)
	r.methods = make(map[string][]Method)
}

// RegistryEntry lists the capability names registered for one variable.
type RegistryEntry struct {
	Variable  string   `json:"variable"`
	Operators []string `json:"operators,omitempty"`
	Methods   []string `json:"methods,omitempty"`
}

// Describe returns the operator and method tables, one entry per variable in
// sorted order.
func (r *Registry) Describe() []RegistryEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	for v := range r.operators {
		seen[v] = true
	}
	for v := range r.methods {
		seen[v] = true
	}
	variables := sortedKeys(seen)

	entries := make([]RegistryEntry, 0, len(variables))
	for _, v := range variables {
		entry := RegistryEntry{Variable: v}
		for _, op := range r.operators[v] {
			entry.Operators = append(entry.Operators, op.Name)
		}
		for _, m := range r.methods[v] {
			entry.Methods = append(entry.Methods, m.Name)
		}
		entries = append(entries, entry)
	}
	return entries
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
