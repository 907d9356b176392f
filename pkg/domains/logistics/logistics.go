// Package logistics implements the logistics planning domain: packages are
// moved between locations by trucks within a city and by airplanes between
// city airports.
//
// Object types are boolean set variables (packages, trucks, airplanes,
// locations, airports, cities). The fluent "at" maps packages and vehicles
// to their location (or, for a loaded package, to its vehicle), and
// "in_city" maps every location to its city.
package logistics

import (
	"github.com/openfroyo/goalnet/pkg/engine"
)

// Name is the domain name used in problem files and the catalog.
const Name = "logistics"

// Variable names.
const (
	VarAt        = "at"
	VarInCity    = "in_city"
	VarPackages  = "packages"
	VarTrucks    = "trucks"
	VarAirplanes = "airplanes"
	VarLocations = "locations"
	VarAirports  = "airports"
	VarCities    = "cities"
)

// Register installs the logistics operators and methods into reg,
// replacing any previous registration for "at".
func Register(reg *engine.Registry) {
	reg.RegisterOperators(VarAt, Operators()...)
	reg.RegisterMethods(VarAt, Methods()...)
}

// Operators returns the "at" operators in exploration order.
func Operators() []engine.Operator {
	return []engine.Operator{
		engine.NewOperator("drive_truck", driveTruck),
		engine.NewOperator("load_truck", loadTruck),
		engine.NewOperator("unload_truck", unloadTruck),
		engine.NewOperator("fly_plane", flyPlane),
		engine.NewOperator("load_plane", loadPlane),
		engine.NewOperator("unload_plane", unloadPlane),
	}
}

// Methods returns the "at" methods in exploration order.
func Methods() []engine.Method {
	return []engine.Method{
		engine.NewMethod("move_within_city", moveWithinCity),
		engine.NewMethod("move_between_airports", moveBetweenAirports),
		engine.NewMethod("move_between_city", moveBetweenCity),
	}
}

func at(s *engine.State, object string) string {
	return s.Str(VarAt, object)
}

// cityOf returns the city of a location; ok is false for anything that is
// not a located place (a vehicle, an unknown object).
func cityOf(s *engine.State, location string) (string, bool) {
	v, ok := s.Get(VarInCity, location)
	if !ok {
		return "", false
	}
	city, isStr := v.Str()
	return city, isStr && city != ""
}

func sameCity(s *engine.State, a, b string) bool {
	ca, ok := cityOf(s, a)
	if !ok {
		return false
	}
	cb, ok := cityOf(s, b)
	return ok && ca == cb
}

func differentCities(s *engine.State, a, b string) bool {
	ca, ok := cityOf(s, a)
	if !ok {
		return false
	}
	cb, ok := cityOf(s, b)
	return ok && ca != cb
}

// findTruck returns the first truck, in name order, located in the same
// city as object.
func findTruck(s *engine.State, object string) (string, bool) {
	for _, t := range s.Members(VarTrucks) {
		if sameCity(s, at(s, t), at(s, object)) {
			return t, true
		}
	}
	return "", false
}

// findPlane returns the first airplane located in the same city as object,
// falling back to the last airplane when none is.
func findPlane(s *engine.State, object string) (string, bool) {
	planes := s.Members(VarAirplanes)
	if len(planes) == 0 {
		return "", false
	}
	for _, plane := range planes {
		if sameCity(s, at(s, plane), at(s, object)) {
			return plane, true
		}
	}
	return planes[len(planes)-1], true
}

// findAirport returns the first airport in the same city as location.
func findAirport(s *engine.State, location string) (string, bool) {
	for _, a := range s.Members(VarAirports) {
		if sameCity(s, a, location) {
			return a, true
		}
	}
	return "", false
}

func driveTruck(s *engine.State, t string, l engine.Value) (*engine.State, error) {
	loc, _ := l.Str()
	if !s.Has(VarTrucks, t) || !s.Has(VarLocations, loc) || !sameCity(s, at(s, t), loc) {
		return engine.Inapplicable()
	}
	s.Set(VarAt, t, l)
	return s, nil
}

func loadTruck(s *engine.State, o string, t engine.Value) (*engine.State, error) {
	truck, _ := t.Str()
	if !s.Has(VarPackages, o) || !s.Has(VarTrucks, truck) || at(s, o) == "" || at(s, o) != at(s, truck) {
		return engine.Inapplicable()
	}
	s.Set(VarAt, o, t)
	return s, nil
}

func unloadTruck(s *engine.State, o string, l engine.Value) (*engine.State, error) {
	loc, _ := l.Str()
	truck := at(s, o)
	if !s.Has(VarPackages, o) || !s.Has(VarTrucks, truck) || !s.Has(VarLocations, loc) {
		return engine.Inapplicable()
	}
	if at(s, truck) != loc {
		return engine.Inapplicable()
	}
	s.Set(VarAt, o, l)
	return s, nil
}

func flyPlane(s *engine.State, plane string, a engine.Value) (*engine.State, error) {
	airport, _ := a.Str()
	if !s.Has(VarAirplanes, plane) || !s.Has(VarAirports, airport) {
		return engine.Inapplicable()
	}
	s.Set(VarAt, plane, a)
	return s, nil
}

func loadPlane(s *engine.State, o string, p engine.Value) (*engine.State, error) {
	plane, _ := p.Str()
	if !s.Has(VarPackages, o) || !s.Has(VarAirplanes, plane) || at(s, o) == "" || at(s, o) != at(s, plane) {
		return engine.Inapplicable()
	}
	s.Set(VarAt, o, p)
	return s, nil
}

func unloadPlane(s *engine.State, o string, a engine.Value) (*engine.State, error) {
	airport, _ := a.Str()
	plane := at(s, o)
	if !s.Has(VarPackages, o) || !s.Has(VarAirplanes, plane) || !s.Has(VarAirports, airport) {
		return engine.Inapplicable()
	}
	if at(s, plane) != airport {
		return engine.Inapplicable()
	}
	s.Set(VarAt, o, a)
	return s, nil
}

func goal(object string, value string) engine.Goal {
	return engine.Goal{Variable: VarAt, Object: object, Value: engine.String(value)}
}

func moveWithinCity(s *engine.State, o string, l engine.Value) ([]engine.Goal, error) {
	loc, _ := l.Str()
	from := at(s, o)
	if !s.Has(VarPackages, o) || !s.Has(VarLocations, from) || !sameCity(s, from, loc) {
		return engine.NotApplicable()
	}
	t, ok := findTruck(s, o)
	if !ok {
		return engine.NotApplicable()
	}
	return engine.Subgoals(goal(t, from), goal(o, t), goal(t, loc), goal(o, loc))
}

func moveBetweenAirports(s *engine.State, o string, a engine.Value) ([]engine.Goal, error) {
	airport, _ := a.Str()
	from := at(s, o)
	if !s.Has(VarPackages, o) || !s.Has(VarAirports, from) || !s.Has(VarAirports, airport) {
		return engine.NotApplicable()
	}
	if !differentCities(s, from, airport) {
		return engine.NotApplicable()
	}
	plane, ok := findPlane(s, o)
	if !ok {
		return engine.NotApplicable()
	}
	return engine.Subgoals(goal(plane, from), goal(o, plane), goal(plane, airport), goal(o, airport))
}

func moveBetweenCity(s *engine.State, o string, l engine.Value) ([]engine.Goal, error) {
	loc, _ := l.Str()
	from := at(s, o)
	if !s.Has(VarPackages, o) || !s.Has(VarLocations, from) || !differentCities(s, from, loc) {
		return engine.NotApplicable()
	}
	a1, ok1 := findAirport(s, from)
	a2, ok2 := findAirport(s, loc)
	if !ok1 || !ok2 {
		return engine.NotApplicable()
	}
	return engine.Subgoals(goal(o, a1), goal(o, a2), goal(o, loc))
}
