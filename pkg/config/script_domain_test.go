package config

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openfroyo/goalnet/pkg/engine"
)

const robotScript = `
domain_name = "robot"

def move(state, robot, dest):
    if state.door.get(key(state.loc[robot], dest)):
        state.loc[robot] = dest
        return state
    return None

def travel(state, robot, dest):
    here = state.loc[robot]
    for mid in state.room:
        if mid in (here, dest):
            continue
        if state.door.get(key(here, mid)) and state.door.get(key(mid, dest)):
            return [("loc", robot, mid), ("loc", robot, dest)]
    return False

declare_operators("loc", move)
declare_methods("loc", travel)
`

// rooms builds a corridor a - b - c with the robot in a.
func rooms() *engine.State {
	s := engine.NewState("rooms")
	s.Declare("room", "a", "b", "c")
	s.Set("loc", "robot", engine.String("a"))
	for _, d := range [][2]string{{"a", "b"}, {"b", "a"}, {"b", "c"}, {"c", "b"}} {
		s.Set("door", engine.Key(d[0], d[1]), engine.Bool(true))
	}
	return s
}

func loadScript(t *testing.T, content string, maxSteps uint64) *ScriptDomain {
	t.Helper()
	path := writeFile(t, t.TempDir(), "domain.star", content)
	d, err := LoadScriptDomain(path, maxSteps)
	require.NoError(t, err)
	return d
}

func TestScriptDomainPlans(t *testing.T) {
	d := loadScript(t, robotScript, 0)
	assert.Equal(t, "robot", d.Name)

	reg := d.NewRegistry()
	assert.Equal(t, []engine.RegistryEntry{
		{Variable: "loc", Operators: []string{"move"}, Methods: []string{"travel"}},
	}, reg.Describe())

	initial := rooms()
	goals := []engine.Goal{engine.NewGoal("loc", "robot", "c")}

	res, err := engine.NewPlanner(reg).Plan(context.Background(), initial, goals)
	require.NoError(t, err)
	require.True(t, res.Found())
	assert.Equal(t, "[(move, robot, b), (move, robot, c)]", res.Plan.String())

	assert.Equal(t, "a", initial.Str("loc", "robot"), "initial state must not change")
	require.NoError(t, engine.VerifyPlan(reg, initial, goals, res.Plan))
}

func TestScriptDomainUnreachable(t *testing.T) {
	reg := loadScript(t, robotScript, 0).NewRegistry()

	s := rooms()
	s.Declare("room", "d")

	res, err := engine.NewPlanner(reg).Plan(context.Background(), s, []engine.Goal{engine.NewGoal("loc", "robot", "d")})
	require.NoError(t, err)
	assert.False(t, res.Found())
	assert.Nil(t, res.Plan)
}

func TestScriptDomainNameDefaultsToFile(t *testing.T) {
	d := loadScript(t, "def op(state, o, v):\n    return state\n\ndeclare_operators(\"x\", op)\n", 0)
	assert.Equal(t, "domain", d.Name)
}

func TestScriptDomainCapabilityFaults(t *testing.T) {
	tests := []struct {
		name     string
		script   string
		maxSteps uint64
		contains string
	}{
		{
			name: "method writes state",
			script: `
def grab(state, robot, dest):
    state.loc[robot] = dest
    return []

declare_methods("loc", grab)
`,
			contains: "read-only",
		},
		{
			name: "operator returns a number",
			script: `
def move(state, robot, dest):
    return 42

declare_operators("loc", move)
`,
			contains: "want the state",
		},
		{
			name: "method returns True",
			script: `
def travel(state, robot, dest):
    return True

declare_methods("loc", travel)
`,
			contains: "returned True",
		},
		{
			name: "method returns a malformed subgoal",
			script: `
def travel(state, robot, dest):
    return [("loc", robot)]

declare_methods("loc", travel)
`,
			contains: "triple",
		},
		{
			name: "runtime error",
			script: `
def move(state, robot, dest):
    return state.loc["nobody"]

declare_operators("loc", move)
`,
			contains: "nobody",
		},
		{
			name: "step limit",
			script: `
def move(state, robot, dest):
    for i in range(1000000):
        pass
    return state

declare_operators("loc", move)
`,
			maxSteps: 1000,
			contains: "too many steps",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := loadScript(t, tt.script, tt.maxSteps).NewRegistry()

			_, err := engine.NewPlanner(reg).Plan(context.Background(), rooms(), []engine.Goal{engine.NewGoal("loc", "robot", "c")})
			require.Error(t, err)
			assert.True(t, engine.IsDomainFault(err), "got %v", err)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestScriptDomainInapplicable(t *testing.T) {
	script := `
def never(state, robot, dest):
    return False

def nothing(state, robot, dest):
    return None

def empty(state, robot, dest):
    return []

declare_operators("loc", never, nothing)
declare_methods("loc", empty)
`
	reg := loadScript(t, script, 0).NewRegistry()

	res, err := engine.NewPlanner(reg).Plan(context.Background(), rooms(), []engine.Goal{engine.NewGoal("loc", "robot", "c")})
	require.NoError(t, err)
	assert.False(t, res.Found())
	assert.Equal(t, 2, res.Stats.OperatorAttempts)
	assert.Equal(t, 1, res.Stats.MethodAttempts)
	assert.Equal(t, 0, res.Stats.MethodsExpanded)
}

func TestScriptDomainStateView(t *testing.T) {
	script := `
def inspect(state, robot, dest):
    if "robot" not in state.loc or "ghost" in state.loc:
        return False
    if list(state.room) != ["a", "b", "c"] or len(state.room) != 3:
        return False
    if state.room.keys() != ["a", "b", "c"] or state.loc.items() != [("robot", "a")]:
        return False
    if not state.room or state.nothing:
        return False
    if state.nothing.get("x", 7) != 7:
        return False
    state.loc[robot] = dest
    state.visited[dest] = True
    state.door[key("a", "b")] = None
    return state

declare_operators("loc", inspect)
`
	reg := loadScript(t, script, 0).NewRegistry()

	initial := rooms()
	res, err := engine.NewPlanner(reg).Plan(context.Background(), initial, []engine.Goal{engine.NewGoal("loc", "robot", "c")})
	require.NoError(t, err)
	require.True(t, res.Found())
	assert.Equal(t, "[(inspect, robot, c)]", res.Plan.String())

	final, err := engine.Replay(reg, initial, res.Plan)
	require.NoError(t, err)
	assert.Equal(t, engine.Bool(true), final.Lookup("visited", "c"))
	assert.False(t, final.Has("door", engine.Key("a", "b")))
	door, ok := final.Get("door", engine.Key("a", "b"))
	assert.True(t, ok, "None is stored, not deleted")
	assert.True(t, door.IsAbsent())
	assert.True(t, initial.Has("door", engine.Key("a", "b")))
}

const handScript = `
def release(state, hand, v):
    if v != None:
        return False
    state.holding[hand] = None
    return state

def grab(state, hand, v):
    if v == None or state.holding[hand] != None:
        return False
    state.holding[hand] = v
    return state

def swap(state, hand, v):
    return [("holding", hand, None), ("holding", hand, v)]

declare_operators("holding", release, grab)
declare_methods("holding", swap)
`

func TestScriptDomainNoneIsStored(t *testing.T) {
	reg := loadScript(t, handScript, 0).NewRegistry()

	s := engine.NewState("hands")
	s.Set("holding", "left", engine.String("cup"))
	goals := []engine.Goal{engine.NewGoal("holding", "left", "ball")}

	res, err := engine.NewPlanner(reg).Plan(context.Background(), s, goals)
	require.NoError(t, err)
	require.True(t, res.Found())
	assert.Equal(t, engine.Plan{
		engine.NewAction("release", "left", nil),
		engine.NewAction("grab", "left", "ball"),
	}, res.Plan)

	require.NoError(t, engine.VerifyPlan(reg, s, goals, res.Plan))
}

func TestScriptValueConversion(t *testing.T) {
	script := `
def burn(state, robot, amount):
    if type(amount) != "int" or state.fuel[robot] - 1 != amount:
        return False
    state.fuel[robot] = state.fuel[robot] - 1
    state.ratio[robot] = 0.5
    return state

declare_operators("fuel", burn)
`
	reg := loadScript(t, script, 0).NewRegistry()

	s := engine.NewState("fuel")
	s.Set("fuel", "robot", engine.Number(3))

	res, err := engine.NewPlanner(reg).Plan(context.Background(), s, []engine.Goal{engine.NewGoal("fuel", "robot", 2)})
	require.NoError(t, err)
	require.True(t, res.Found())

	final, err := engine.Replay(reg, s, res.Plan)
	require.NoError(t, err)
	assert.Equal(t, engine.Number(2), final.Lookup("fuel", "robot"))
	assert.Equal(t, engine.Number(0.5), final.Lookup("ratio", "robot"))
}

func TestLoadScriptDomainErrors(t *testing.T) {
	tests := []struct {
		name   string
		script string
	}{
		{name: "no declarations", script: "x = 1\n"},
		{name: "missing function", script: "declare_operators(\"loc\")\n"},
		{name: "not a function", script: "declare_methods(\"loc\", 1)\n"},
		{name: "empty variable", script: "def f(s, o, v):\n    return s\n\ndeclare_operators(\"\", f)\n"},
		{name: "bad domain name", script: "domain_name = 3\ndef f(s, o, v):\n    return s\n\ndeclare_operators(\"loc\", f)\n"},
		{name: "syntax error", script: "def f(:\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "bad.star", tt.script)
			_, err := LoadScriptDomain(path, 0)
			assert.Error(t, err)
		})
	}
}

func TestLoadScriptDomainMissingFile(t *testing.T) {
	_, err := LoadScriptDomain("does-not-exist.star", 0)
	assert.Error(t, err)
}
