package logistics

import (
	"github.com/openfroyo/goalnet/pkg/engine"
)

// ExampleState returns the two-city world used by the bundled problems:
// two packages in city1, a truck in each city and one airplane at airport2.
func ExampleState() *engine.State {
	s := engine.NewState("state1")
	s.Declare(VarPackages, "package1", "package2")
	s.Declare(VarTrucks, "truck1", "truck6")
	s.Declare(VarAirplanes, "plane2")
	s.Declare(VarLocations, "location1", "location2", "location3", "airport1", "location10", "airport2")
	s.Declare(VarAirports, "airport1", "airport2")
	s.Declare(VarCities, "city1", "city2")

	for object, loc := range map[string]string{
		"package1": "location1",
		"package2": "location2",
		"truck1":   "location3",
		"truck6":   "location10",
		"plane2":   "airport2",
	} {
		s.Set(VarAt, object, engine.String(loc))
	}
	for loc, city := range map[string]string{
		"location1":  "city1",
		"location2":  "city1",
		"location3":  "city1",
		"airport1":   "city1",
		"location10": "city2",
		"airport2":   "city2",
	} {
		s.Set(VarInCity, loc, engine.String(city))
	}
	return s
}

// SingleTruckState returns a one-city world where truck T and package P are
// both at location A, and B is another location in the same city.
func SingleTruckState() *engine.State {
	s := engine.NewState("single-truck")
	s.Declare(VarPackages, "P")
	s.Declare(VarTrucks, "T")
	s.Declare(VarLocations, "A", "B")
	s.Declare(VarCities, "C")
	s.Set(VarAt, "P", engine.String("A"))
	s.Set(VarAt, "T", engine.String("A"))
	s.Set(VarInCity, "A", engine.String("C"))
	s.Set(VarInCity, "B", engine.String("C"))
	return s
}

// IsolatedCityState extends SingleTruckState with a location X in a city
// that has no airport, so nothing can reach it.
func IsolatedCityState() *engine.State {
	s := SingleTruckState()
	s.Name = "isolated-city"
	s.Declare(VarLocations, "X")
	s.Declare(VarCities, "D")
	s.Set(VarInCity, "X", engine.String("D"))
	return s
}

// Problems returns the bundled logistics problems.
func Problems() []*engine.Problem {
	return []*engine.Problem{
		{
			Name:        "within-city",
			Domain:      Name,
			Description: "package1 to location2 and package2 to location3, both within city1",
			State:       ExampleState(),
			Goals: []engine.Goal{
				goal("package1", "location2"),
				goal("package2", "location3"),
			},
		},
		{
			Name:        "between-cities",
			Domain:      Name,
			Description: "package1 to location10 in another city, by truck, plane and truck",
			State:       ExampleState(),
			Goals:       []engine.Goal{goal("package1", "location10")},
		},
		{
			Name:        "already-there",
			Domain:      Name,
			Description: "package1 is already at location1; no actions needed",
			State:       ExampleState(),
			Goals:       []engine.Goal{goal("package1", "location1")},
		},
		{
			Name:        "single-truck",
			Domain:      Name,
			Description: "one truck carries P from A to B",
			State:       SingleTruckState(),
			Goals:       []engine.Goal{goal("P", "B")},
		},
		{
			Name:        "unreachable",
			Domain:      Name,
			Description: "X lies in a city without an airport; the search fails",
			State:       IsolatedCityState(),
			Goals:       []engine.Goal{goal("P", "X")},
		},
	}
}
