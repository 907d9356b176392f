package engine

import (
	"fmt"
	"sort"
	"strings"
)

// KeySeparator joins the parts of a composite object key.
const KeySeparator = "/"

// Key builds a composite object key, used to store set-valued facts such as
// "instrument0 supports image4" as Key("instrument0", "image4") -> true.
func Key(parts ...string) string {
	return strings.Join(parts, KeySeparator)
}

// State is a named snapshot of the world: for each variable, a mapping from
// object to value. Operators mutate a State in place, so the planner always
// hands them a private clone.
type State struct {
	// Name is a diagnostic label only.
	Name string

	vars map[string]map[string]Value
}

// NewState creates an empty state with the given name.
func NewState(name string) *State {
	return &State{
		Name: name,
		vars: make(map[string]map[string]Value),
	}
}

// Set assigns value to object under variable, creating the variable mapping
// if needed.
func (s *State) Set(variable, object string, value Value) {
	m, ok := s.vars[variable]
	if !ok {
		m = make(map[string]Value)
		s.vars[variable] = m
	}
	m[object] = value
}

// Declare marks each object as a member of the type set named by variable,
// e.g. Declare("trucks", "truck1", "truck6").
func (s *State) Declare(variable string, objects ...string) {
	if _, ok := s.vars[variable]; !ok {
		s.vars[variable] = make(map[string]Value)
	}
	for _, o := range objects {
		s.vars[variable][o] = Bool(true)
	}
}

// Get returns the value of object under variable. The second result is false
// when the variable or the object has no entry; absence is never defaulted.
func (s *State) Get(variable, object string) (Value, bool) {
	m, ok := s.vars[variable]
	if !ok {
		return Absent(), false
	}
	v, ok := m[object]
	return v, ok
}

// Lookup returns the value of object under variable, or Absent when missing.
func (s *State) Lookup(variable, object string) Value {
	v, _ := s.Get(variable, object)
	return v
}

// Str returns the string value of object under variable, or "" when missing
// or not a string.
func (s *State) Str(variable, object string) string {
	v, _ := s.Lookup(variable, object).Str()
	return v
}

// Has reports whether object has an entry under variable with a truthy value.
// It is the membership test for type sets declared with Declare.
func (s *State) Has(variable, object string) bool {
	v, ok := s.Get(variable, object)
	return ok && v.Truthy()
}

// Delete removes object from variable.
func (s *State) Delete(variable, object string) {
	if m, ok := s.vars[variable]; ok {
		delete(m, object)
	}
}

// HasVariable reports whether the state holds a mapping for variable.
func (s *State) HasVariable(variable string) bool {
	_, ok := s.vars[variable]
	return ok
}

// Objects returns the objects of variable in sorted order. Domain helpers
// iterate this to keep the search deterministic.
func (s *State) Objects(variable string) []string {
	m := s.vars[variable]
	objects := make([]string, 0, len(m))
	for o := range m {
		objects = append(objects, o)
	}
	sort.Strings(objects)
	return objects
}

// Members returns the sorted objects of variable whose value is truthy.
func (s *State) Members(variable string) []string {
	var members []string
	for _, o := range s.Objects(variable) {
		if s.vars[variable][o].Truthy() {
			members = append(members, o)
		}
	}
	return members
}

// Variables returns the variable names in sorted order.
func (s *State) Variables() []string {
	names := make([]string, 0, len(s.vars))
	for name := range s.vars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns a deep copy of the state. Mutating the clone never affects s.
func (s *State) Clone() *State {
	c := &State{
		Name: s.Name,
		vars: make(map[string]map[string]Value, len(s.vars)),
	}
	for variable, m := range s.vars {
		cm := make(map[string]Value, len(m))
		for o, v := range m {
			cm[o] = v
		}
		c.vars[variable] = cm
	}
	return c
}

// Equal reports whether both states hold the same variables, objects and
// values. Names are ignored.
func (s *State) Equal(other *State) bool {
	if len(s.vars) != len(other.vars) {
		return false
	}
	for variable, m := range s.vars {
		om, ok := other.vars[variable]
		if !ok || len(om) != len(m) {
			return false
		}
		for o, v := range m {
			ov, ok := om[o]
			if !ok || !ov.Equal(v) {
				return false
			}
		}
	}
	return true
}

// Snapshot returns a plain nested map copy suitable for JSON encoding.
func (s *State) Snapshot() map[string]map[string]interface{} {
	out := make(map[string]map[string]interface{}, len(s.vars))
	for variable, m := range s.vars {
		om := make(map[string]interface{}, len(m))
		for o, v := range m {
			om[o] = v.Interface()
		}
		out[variable] = om
	}
	return out
}

// String renders the state one variable per line, in sorted order.
func (s *State) String() string {
	var b strings.Builder
	for _, variable := range s.Variables() {
		fmt.Fprintf(&b, "%s.%s = {", s.Name, variable)
		for i, o := range s.Objects(variable) {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s: %s", o, s.vars[variable][o])
		}
		b.WriteString("}\n")
	}
	return b.String()
}
