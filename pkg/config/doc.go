// Package config loads goalnet's inputs: planner settings, problem files and
// Starlark domain scripts.
//
// # Problem files
//
// A problem is an initial state plus ordered goals, written in YAML, CUE or
// Starlark. All three decode to the same ProblemSpec and are checked
// against the built-in #Problem CUE schema:
//
//	name: two-locations
//	domain: logistics
//	types:
//	  trucks: [truck1]
//	state:
//	  at: {package1: location1, truck1: location1}
//	  in_city: {location1: city1, location2: city1}
//	goals:
//	  - [at, package1, location2]
//	  - {variable: at, object: truck1, value: location1}
//
// CUE files may use definitions and hidden fields as helpers. A Starlark
// problem file assigns the same structure to a global named problem.
//
// # Domain scripts
//
// A ScriptDomain is a Starlark file declaring operators and methods:
//
//	def move(state, robot, dest):
//	    if state.door.get(key(state.loc[robot], dest)):
//	        state.loc[robot] = dest
//	        return state
//	    return None
//
//	declare_operators("loc", move)
//
// Methods see a read-only state. Each call runs with a step budget, and
// script errors surface from the planner as domain faults.
//
// # Settings
//
// Settings are read from goalnet.yaml or goalnet.cue and cover the search
// options, plan admission policies and telemetry. Unknown keys are errors.
//
// # Watching
//
// Watcher reports debounced changes to problem and script files so the CLI
// can plan again when they are edited.
package config
