package logistics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openfroyo/goalnet/pkg/engine"
)

func newPlanner() *engine.Planner {
	reg := engine.NewRegistry()
	Register(reg)
	return engine.NewPlanner(reg)
}

func problem(t *testing.T, name string) *engine.Problem {
	t.Helper()
	for _, p := range Problems() {
		if p.Name == name {
			return p
		}
	}
	t.Fatalf("problem %q not found", name)
	return nil
}

func plan(actions ...[3]string) engine.Plan {
	out := make(engine.Plan, len(actions))
	for i, a := range actions {
		out[i] = engine.NewAction(a[0], a[1], a[2])
	}
	return out
}

func TestPlan_WithinCity(t *testing.T) {
	p := problem(t, "within-city")

	result, err := newPlanner().Plan(context.Background(), p.State, p.Goals)
	require.NoError(t, err)
	require.True(t, result.Found())

	expected := plan(
		[3]string{"drive_truck", "truck1", "location1"},
		[3]string{"load_truck", "package1", "truck1"},
		[3]string{"drive_truck", "truck1", "location2"},
		[3]string{"unload_truck", "package1", "location2"},
		[3]string{"load_truck", "package2", "truck1"},
		[3]string{"drive_truck", "truck1", "location3"},
		[3]string{"unload_truck", "package2", "location3"},
	)
	assert.True(t, expected.Equal(result.Plan), "expected %s, got %s", expected, result.Plan)
}

func TestPlan_BetweenCities(t *testing.T) {
	p := problem(t, "between-cities")

	result, err := newPlanner().Plan(context.Background(), p.State, p.Goals)
	require.NoError(t, err)
	require.True(t, result.Found())

	expected := plan(
		[3]string{"drive_truck", "truck1", "location1"},
		[3]string{"load_truck", "package1", "truck1"},
		[3]string{"drive_truck", "truck1", "airport1"},
		[3]string{"unload_truck", "package1", "airport1"},
		[3]string{"fly_plane", "plane2", "airport1"},
		[3]string{"load_plane", "package1", "plane2"},
		[3]string{"fly_plane", "plane2", "airport2"},
		[3]string{"unload_plane", "package1", "airport2"},
		[3]string{"drive_truck", "truck6", "airport2"},
		[3]string{"load_truck", "package1", "truck6"},
		[3]string{"drive_truck", "truck6", "location10"},
		[3]string{"unload_truck", "package1", "location10"},
	)
	assert.True(t, expected.Equal(result.Plan), "expected %s, got %s", expected, result.Plan)
}

func TestPlan_AlreadyThere(t *testing.T) {
	p := problem(t, "already-there")

	result, err := newPlanner().Plan(context.Background(), p.State, p.Goals)
	require.NoError(t, err)
	require.True(t, result.Found())
	assert.Empty(t, result.Plan)
	assert.NotNil(t, result.Plan)
}

func TestPlan_SingleTruck(t *testing.T) {
	p := problem(t, "single-truck")

	result, err := newPlanner().Plan(context.Background(), p.State, p.Goals)
	require.NoError(t, err)
	require.True(t, result.Found())

	expected := plan(
		[3]string{"load_truck", "P", "T"},
		[3]string{"drive_truck", "T", "B"},
		[3]string{"unload_truck", "P", "B"},
	)
	assert.True(t, expected.Equal(result.Plan), "expected %s, got %s", expected, result.Plan)
}

func TestPlan_Unreachable(t *testing.T) {
	p := problem(t, "unreachable")

	result, err := newPlanner().Plan(context.Background(), p.State, p.Goals)
	require.NoError(t, err)
	assert.False(t, result.Found())
	assert.Equal(t, engine.SearchStatusFailed, result.Status)
	assert.Nil(t, result.Plan)
}

func TestPlan_Soundness(t *testing.T) {
	for _, p := range Problems() {
		t.Run(p.Name, func(t *testing.T) {
			planner := newPlanner()
			result, err := planner.Plan(context.Background(), p.State, p.Goals)
			require.NoError(t, err)
			if !result.Found() {
				t.Skip("no plan to verify")
			}
			assert.NoError(t, engine.VerifyPlan(planner.Registry(), p.State, p.Goals, result.Plan))
		})
	}
}

func TestPlan_InitialStateUntouched(t *testing.T) {
	p := problem(t, "between-cities")
	before := p.State.Clone()

	_, err := newPlanner().Plan(context.Background(), p.State, p.Goals)
	require.NoError(t, err)
	assert.True(t, before.Equal(p.State))
}

func TestPlan_Deterministic(t *testing.T) {
	p := problem(t, "within-city")

	first, err := newPlanner().Plan(context.Background(), p.State, p.Goals)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		again, err := newPlanner().Plan(context.Background(), ExampleState(), p.Goals)
		require.NoError(t, err)
		assert.True(t, first.Plan.Equal(again.Plan))
		assert.Equal(t, first.Stats, again.Stats)
	}
}

func TestOperators(t *testing.T) {
	tests := []struct {
		name     string
		operator engine.OperatorFunc
		object   string
		value    string
		apply    bool
	}{
		{"drive within city", driveTruck, "truck1", "location1", true},
		{"drive to other city", driveTruck, "truck1", "location10", false},
		{"drive a package", driveTruck, "package1", "location2", false},
		{"load truck elsewhere", loadTruck, "package1", "truck1", false},
		{"fly to airport", flyPlane, "plane2", "airport1", true},
		{"fly to non-airport", flyPlane, "plane2", "location1", false},
		{"load plane elsewhere", loadPlane, "package1", "plane2", false},
		{"unload not loaded", unloadTruck, "package1", "location1", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := ExampleState()
			next, err := tt.operator(s, tt.object, engine.String(tt.value))
			if !tt.apply {
				assert.ErrorIs(t, err, engine.ErrInapplicable)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.value, next.Str(VarAt, tt.object))
		})
	}
}

func TestFindPlane_FallsBackToLastPlane(t *testing.T) {
	s := ExampleState()
	s.Declare(VarAirplanes, "plane9")
	s.Set(VarAt, "plane9", engine.String("airport2"))

	plane, ok := findPlane(s, "package1")
	require.True(t, ok)
	assert.Equal(t, "plane9", plane)

	s.Set(VarAt, "plane2", engine.String("airport1"))
	plane, ok = findPlane(s, "package1")
	require.True(t, ok)
	assert.Equal(t, "plane2", plane)
}

func TestMethods_NotApplicable(t *testing.T) {
	s := ExampleState()

	_, err := moveWithinCity(s, "package1", engine.String("location10"))
	assert.ErrorIs(t, err, engine.ErrInapplicable)

	_, err = moveBetweenAirports(s, "package1", engine.String("airport2"))
	assert.ErrorIs(t, err, engine.ErrInapplicable)

	_, err = moveBetweenCity(s, "package1", engine.String("location2"))
	assert.ErrorIs(t, err, engine.ErrInapplicable)

	_, err = moveWithinCity(s, "package1", engine.String("truck1"))
	assert.ErrorIs(t, err, engine.ErrInapplicable)
}

func TestRegister_Describe(t *testing.T) {
	reg := engine.NewRegistry()
	Register(reg)

	entries := reg.Describe()
	require.Len(t, entries, 1)
	assert.Equal(t, VarAt, entries[0].Variable)
	assert.Equal(t, []string{"drive_truck", "load_truck", "unload_truck", "fly_plane", "load_plane", "unload_plane"}, entries[0].Operators)
	assert.Equal(t, []string{"move_within_city", "move_between_airports", "move_between_city"}, entries[0].Methods)
}
