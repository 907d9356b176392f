package engine

import (
	"encoding/json"
	"testing"
)

func TestValueOf(t *testing.T) {
	tests := []struct {
		name  string
		input interface{}
		kind  Kind
		str   string
	}{
		{"nil", nil, KindAbsent, "<absent>"},
		{"string", "airport1", KindString, "airport1"},
		{"empty string", "", KindString, ""},
		{"bool", true, KindBool, "true"},
		{"int", 3, KindNumber, "3"},
		{"int64", int64(-2), KindNumber, "-2"},
		{"float", 1.5, KindNumber, "1.5"},
		{"json number", json.Number("42"), KindNumber, "42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := ValueOf(tt.input)
			if err != nil {
				t.Fatalf("Expected no error, got: %v", err)
			}
			if v.Kind() != tt.kind {
				t.Errorf("Expected kind %s, got %s", tt.kind, v.Kind())
			}
			if v.String() != tt.str {
				t.Errorf("Expected %q, got %q", tt.str, v.String())
			}
		})
	}

	if _, err := ValueOf([]string{"x"}); err == nil {
		t.Error("Expected error for unsupported type")
	}
}

func TestValue_Equal(t *testing.T) {
	if !Number(1).Equal(MustValueOf(1)) {
		t.Error("Expected int and float 1 to be equal")
	}
	if String("1").Equal(Number(1)) {
		t.Error("Expected different kinds to differ")
	}
	if Bool(true).Equal(String("true")) {
		t.Error("Expected bool and string to differ")
	}
	if !Absent().Equal(Value{}) {
		t.Error("Expected zero value to be absent")
	}
}

func TestValue_Truthy(t *testing.T) {
	truthy := []Value{String("x"), Bool(true), Number(2)}
	falsy := []Value{String(""), Bool(false), Number(0), Absent()}

	for _, v := range truthy {
		if !v.Truthy() {
			t.Errorf("Expected %s to be truthy", v)
		}
	}
	for _, v := range falsy {
		if v.Truthy() {
			t.Errorf("Expected %s to be falsy", v)
		}
	}
}

func TestValue_JSON(t *testing.T) {
	goal := NewGoal("at", "package1", "location2")

	data, err := json.Marshal(goal)
	if err != nil {
		t.Fatalf("Failed to marshal goal: %v", err)
	}
	if string(data) != `{"variable":"at","object":"package1","value":"location2"}` {
		t.Errorf("Unexpected encoding: %s", data)
	}

	var decoded Goal
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal goal: %v", err)
	}
	if decoded != goal {
		t.Errorf("Expected %s, got %s", goal, decoded)
	}
}

func TestState_GetReportsAbsence(t *testing.T) {
	s := NewState("s")
	s.Set("at", "truck1", String("location3"))

	if _, ok := s.Get("at", "truck9"); ok {
		t.Error("Expected missing object to be reported absent")
	}
	if _, ok := s.Get("in_city", "truck1"); ok {
		t.Error("Expected missing variable to be reported absent")
	}
	if s.Str("at", "truck9") != "" {
		t.Error("Expected empty string for missing object")
	}
	if v, ok := s.Get("at", "truck1"); !ok || v.String() != "location3" {
		t.Errorf("Expected location3, got %s", v)
	}
}

func TestState_Clone(t *testing.T) {
	s := NewState("s")
	s.Set("at", "p", String("a"))

	c := s.Clone()
	c.Set("at", "p", String("b"))
	c.Set("at", "q", String("c"))
	c.Set("new", "x", Bool(true))

	if s.Str("at", "p") != "a" {
		t.Errorf("Expected original value a, got %s", s.Str("at", "p"))
	}
	if s.HasVariable("new") {
		t.Error("Expected clone additions not to leak")
	}
	if s.Equal(c) {
		t.Error("Expected states to differ")
	}
	if !s.Equal(s.Clone()) {
		t.Error("Expected fresh clone to be equal")
	}
}

func TestState_SortedIteration(t *testing.T) {
	s := NewState("s")
	s.Declare("trucks", "truck6", "truck1", "truck10")
	s.Set("trucks", "truck0", Bool(false))

	objects := s.Objects("trucks")
	expected := []string{"truck0", "truck1", "truck10", "truck6"}
	if len(objects) != len(expected) {
		t.Fatalf("Expected %v, got %v", expected, objects)
	}
	for i := range expected {
		if objects[i] != expected[i] {
			t.Errorf("Expected %v, got %v", expected, objects)
			break
		}
	}

	members := s.Members("trucks")
	if len(members) != 3 || members[0] != "truck1" {
		t.Errorf("Expected truthy members only, got %v", members)
	}
	if s.Has("trucks", "truck0") {
		t.Error("Expected false membership for truck0")
	}
}

func TestState_Snapshot(t *testing.T) {
	s := NewState("s")
	s.Set("at", "p", String("a"))
	s.Set("power_avail", "sat0", Bool(true))

	snap := s.Snapshot()
	if snap["at"]["p"] != "a" {
		t.Errorf("Expected a, got %v", snap["at"]["p"])
	}
	if snap["power_avail"]["sat0"] != true {
		t.Errorf("Expected true, got %v", snap["power_avail"]["sat0"])
	}
}

func TestKey(t *testing.T) {
	if got := Key("instrument0", "thermograph0"); got != "instrument0/thermograph0" {
		t.Errorf("Expected instrument0/thermograph0, got %s", got)
	}
}
