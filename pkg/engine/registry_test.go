package engine

import (
	"testing"
)

func noopOperator(name string) Operator {
	return NewOperator(name, func(s *State, obj string, val Value) (*State, error) {
		return s, nil
	})
}

func noopMethod(name string) Method {
	return NewMethod(name, func(s *State, obj string, val Value) ([]Goal, error) {
		return NotApplicable()
	})
}

func names[T any](items []T, name func(T) string) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = name(item)
	}
	return out
}

func TestRegistry_RegisterOperators_Replaces(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterOperators("at", noopOperator("a"), noopOperator("b"))
	reg.RegisterOperators("at", noopOperator("c"))

	got := names(reg.OperatorsFor("at"), func(o Operator) string { return o.Name })
	if len(got) != 1 || got[0] != "c" {
		t.Errorf("Expected [c], got %v", got)
	}
	if _, ok := reg.Operator("a"); ok {
		t.Error("Expected replaced operator to be gone")
	}
}

func TestRegistry_RegisterMethods_Replaces(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterMethods("at", noopMethod("m1"), noopMethod("m2"))
	reg.RegisterMethods("at", noopMethod("m3"), noopMethod("m1"))

	got := names(reg.MethodsFor("at"), func(m Method) string { return m.Name })
	if len(got) != 2 || got[0] != "m3" || got[1] != "m1" {
		t.Errorf("Expected [m3 m1], got %v", got)
	}
}

func TestRegistry_RegisterOperators_CopiesInput(t *testing.T) {
	ops := []Operator{noopOperator("a"), noopOperator("b")}
	reg := NewRegistry()
	reg.RegisterOperators("at", ops...)

	ops[0] = noopOperator("z")

	if reg.OperatorsFor("at")[0].Name != "a" {
		t.Error("Expected registry to keep its own copy of the operator list")
	}
}

func TestRegistry_ReturnedListsAreCopies(t *testing.T) {
	reg := NewRegistry()
	registered := reg.RegisterOperators("at", noopOperator("a"), noopOperator("b"))
	registered[0] = noopOperator("z")

	listed := reg.OperatorsFor("at")
	listed[0], listed[1] = listed[1], listed[0]

	methods := reg.RegisterMethods("at", noopMethod("m1"))
	methods[0] = noopMethod("m9")
	reg.MethodsFor("at")[0] = noopMethod("m8")

	got := names(reg.OperatorsFor("at"), func(o Operator) string { return o.Name })
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("Expected [a b], got %v", got)
	}
	if m := reg.MethodsFor("at"); m[0].Name != "m1" {
		t.Errorf("Expected m1, got %s", m[0].Name)
	}
}

func TestRegistry_UnknownVariable(t *testing.T) {
	reg := NewRegistry()

	if ops := reg.OperatorsFor("nothing"); len(ops) != 0 {
		t.Errorf("Expected no operators, got %d", len(ops))
	}
	if methods := reg.MethodsFor("nothing"); len(methods) != 0 {
		t.Errorf("Expected no methods, got %d", len(methods))
	}
	if reg.Knows("nothing") {
		t.Error("Expected unknown variable")
	}
}

func TestRegistry_Reset(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterOperators("at", noopOperator("a"))
	reg.RegisterMethods("in", noopMethod("m"))

	reg.Reset()

	if reg.Knows("at") || reg.Knows("in") {
		t.Error("Expected registry to be empty after reset")
	}
	if len(reg.Describe()) != 0 {
		t.Errorf("Expected empty description, got %v", reg.Describe())
	}
}

func TestRegistry_Describe(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterOperators("power_on", noopOperator("switch_on"), noopOperator("switch_off"))
	reg.RegisterMethods("power_on", noopMethod("activate"))
	reg.RegisterOperators("have_image", noopOperator("take_image"))

	entries := reg.Describe()
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	if entries[0].Variable != "have_image" || entries[1].Variable != "power_on" {
		t.Errorf("Expected sorted variables, got %s, %s", entries[0].Variable, entries[1].Variable)
	}
	if len(entries[1].Operators) != 2 || entries[1].Operators[0] != "switch_on" {
		t.Errorf("Expected registration order preserved, got %v", entries[1].Operators)
	}
	if len(entries[1].Methods) != 1 || entries[1].Methods[0] != "activate" {
		t.Errorf("Expected [activate], got %v", entries[1].Methods)
	}
	if len(entries[0].Methods) != 0 {
		t.Errorf("Expected no methods for have_image, got %v", entries[0].Methods)
	}
}
