package commands

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openfroyo/goalnet/pkg/engine"
	"github.com/openfroyo/goalnet/pkg/policy"
)

// execute runs the CLI with args and returns what it printed.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand("test", "abc123", "2026-01-01")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const singleTruckPlan = `single-truck (logistics): plan with 3 actions
  1. (load_truck, P, T)
  2. (drive_truck, T, B)
  3. (unload_truck, P, B)
`

func TestPlanExample(t *testing.T) {
	out, err := execute(t, "plan", "--domain", "logistics", "--example", "single-truck")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, singleTruckPlan), out)
	assert.Contains(t, out, "search: ")
}

func TestPlanNoPlan(t *testing.T) {
	out, err := execute(t, "plan", "-d", "logistics", "-e", "unreachable")
	require.Error(t, err)
	assert.True(t, engine.IsExhausted(err))
	assert.Equal(t, ExitNoPlan, ExitCode(err))
	assert.Contains(t, out, "unreachable (logistics): no plan found")
}

func TestPlanJSON(t *testing.T) {
	out, err := execute(t, "plan", "--json", "-d", "logistics", "-e", "single-truck")
	require.NoError(t, err)

	var report struct {
		Problem string `json:"problem"`
		Domain  string `json:"domain"`
		Result  struct {
			Status string `json:"status"`
			Plan   []struct {
				Operator string `json:"operator"`
				Object   string `json:"object"`
				Value    string `json:"value"`
			} `json:"plan"`
			Stats engine.SearchStats `json:"stats"`
		} `json:"result"`
		Policy *policy.Decision `json:"policy"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))

	assert.Equal(t, "single-truck", report.Problem)
	assert.Equal(t, "logistics", report.Domain)
	assert.Equal(t, "succeeded", report.Result.Status)
	require.Len(t, report.Result.Plan, 3)
	assert.Equal(t, "load_truck", report.Result.Plan[0].Operator)
	assert.Equal(t, "B", report.Result.Plan[2].Value)
	assert.Positive(t, report.Result.Stats.Frames)
	assert.Nil(t, report.Policy)
}

func TestPlanExportedProblem(t *testing.T) {
	path := filepath.Join(t.TempDir(), "truck.yaml")

	out, err := execute(t, "domains", "export", "logistics", "single-truck", "--out", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+path)

	out, err = execute(t, "plan", path, "--verify")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, singleTruckPlan), out)
}

const robotScript = `
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

const robotProblem = `
name: corridor
script: robot.star
types:
  room: [a, b, c]
state:
  loc: {robot: a}
  door: {a/b: true, b/a: true, b/c: true, c/b: true}
goals:
  - [loc, robot, c]
`

func TestPlanScriptedDomain(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "robot.star", robotScript)
	path := writeFile(t, dir, "corridor.yaml", robotProblem)

	out, err := execute(t, "plan", path)
	require.NoError(t, err)
	assert.Contains(t, out, "corridor (robot): plan with 2 actions")
	assert.Contains(t, out, "1. (move, robot, b)")
	assert.Contains(t, out, "2. (move, robot, c)")
}

func TestPlanTraceOut(t *testing.T) {
	tracePath := filepath.Join(t.TempDir(), "trace.jsonl")

	_, err := execute(t, "plan", "-d", "logistics", "-e", "single-truck", "--trace-out", tracePath)
	require.NoError(t, err)

	f, err := os.Open(tracePath)
	require.NoError(t, err)
	defer f.Close()

	var types []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var ev struct {
			Type string `json:"type"`
		}
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &ev))
		types = append(types, ev.Type)
	}
	require.NoError(t, scanner.Err())

	require.NotEmpty(t, types)
	assert.Equal(t, string(engine.EventPlanStarted), types[0])
	assert.Equal(t, string(engine.EventPlanFinished), types[len(types)-1])
	assert.Contains(t, types, string(engine.EventOperatorApplied))
}

func TestPlanDepthExceeded(t *testing.T) {
	_, err := execute(t, "plan", "-d", "logistics", "-e", "between-cities", "--max-depth", "2")
	require.Error(t, err)
	assert.True(t, engine.IsDepthExceeded(err))
	assert.Equal(t, ExitFailure, ExitCode(err))
}

func TestPlanPolicyFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "closed-b.rego", `# Location B is closed.
# severity: error
package custom.dropoff

import rego.v1

deny contains violation if {
	some i, action in input.plan
	action.operator == "unload_truck"
	action.value == "B"
	violation := {"message": "B is closed", "step": i}
}
`)

	out, err := execute(t, "plan", "-d", "logistics", "-e", "single-truck", "--policy", dir)
	require.Error(t, err)
	assert.True(t, errors.Is(err, policy.ErrPlanRejected))
	assert.Equal(t, ExitRejected, ExitCode(err))
	assert.Contains(t, out, "rejected: closed-b [error] step 2: B is closed")

	// The same policy admits a plan that never unloads at B.
	_, err = execute(t, "plan", "-d", "logistics", "-e", "already-there", "--policy", dir)
	require.NoError(t, err)
}

func TestPlanSettingsFile(t *testing.T) {
	dir := t.TempDir()
	settings := writeFile(t, dir, "goalnet.yaml", `
search:
  max_frames: 1000
policy:
  enabled: true
  forbidden_operators: [drive_truck]
`)

	out, err := execute(t, "--config", settings, "plan", "-d", "logistics", "-e", "single-truck")
	require.Error(t, err)
	assert.Equal(t, ExitRejected, ExitCode(err))
	assert.Contains(t, out, "operator drive_truck is forbidden")

	_, err = execute(t, "--config", filepath.Join(dir, "missing.yaml"), "plan", "-d", "logistics", "-e", "single-truck")
	require.Error(t, err)
}

func TestPlanInputErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"nothing to plan", []string{"plan"}, "a problem file or --example is required"},
		{"example without domain", []string{"plan", "-e", "single-truck"}, "--example requires --domain"},
		{"example and file", []string{"plan", "p.yaml", "-d", "logistics", "-e", "single-truck"}, "not both"},
		{"unknown domain", []string{"plan", "-d", "nowhere", "-e", "x"}, "unknown domain"},
		{"unknown example", []string{"plan", "-d", "logistics", "-e", "nope"}, "has no example"},
		{"bad trace level", []string{"plan", "-d", "logistics", "-e", "single-truck", "-v", "7"}, "invalid settings"},
		{"watch without file", []string{"plan", "-d", "logistics", "-e", "single-truck", "--watch"}, "--watch needs a problem file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "robot.star", robotScript)
	path := writeFile(t, dir, "corridor.yaml", robotProblem)

	out, err := execute(t, "validate", path)
	require.NoError(t, err)
	assert.Contains(t, out, "corridor (robot): valid")
	assert.Contains(t, out, "1 goals, 1 not yet satisfied")

	out, err = execute(t, "validate", "--json", "-d", "logistics", "-e", "already-there")
	require.NoError(t, err)
	var report validateReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "already-there", report.Problem)
	assert.Empty(t, report.Unsatisfied)
	assert.Contains(t, report.Variables, "at")

	bad := writeFile(t, dir, "bad.yaml", `
script: robot.star
state:
  loc: {robot: a}
goals:
  - [fuel, robot, 3]
`)
	_, err = execute(t, "validate", bad)
	require.Error(t, err)
	assert.True(t, engine.IsValidation(err))
}

func TestDomainsList(t *testing.T) {
	out, err := execute(t, "domains")
	require.NoError(t, err)
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "logistics")
	assert.Contains(t, out, "satellite")

	out, err = execute(t, "domains", "--json")
	require.NoError(t, err)
	var summaries []domainSummary
	require.NoError(t, json.Unmarshal([]byte(out), &summaries))
	require.Len(t, summaries, 2)
	assert.Equal(t, "logistics", summaries[0].Name)
	assert.Contains(t, summaries[0].Examples, "single-truck")
}

func TestDomainsDescribe(t *testing.T) {
	out, err := execute(t, "domains", "describe", "logistics")
	require.NoError(t, err)
	assert.Contains(t, out, "Domain: logistics")
	assert.Contains(t, out, "load_truck")
	assert.Contains(t, out, "single-truck")

	dir := t.TempDir()
	script := writeFile(t, dir, "robot.star", robotScript)
	out, err = execute(t, "domains", "describe", "--json", "--script", script)
	require.NoError(t, err)

	var desc domainDescription
	require.NoError(t, json.Unmarshal([]byte(out), &desc))
	assert.Equal(t, "robot", desc.Name)
	require.Len(t, desc.Capabilities, 1)
	assert.Equal(t, engine.RegistryEntry{Variable: "loc", Operators: []string{"move"}, Methods: []string{"travel"}}, desc.Capabilities[0])

	_, err = execute(t, "domains", "describe")
	require.Error(t, err)
	_, err = execute(t, "domains", "describe", "nowhere")
	require.Error(t, err)
}

func TestDomainsExportStdout(t *testing.T) {
	out, err := execute(t, "domains", "export", "logistics", "single-truck")
	require.NoError(t, err)
	assert.Contains(t, out, "name: single-truck")
	assert.Contains(t, out, "domain: logistics")
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "goalnet test")
	assert.Contains(t, out, "commit: abc123")
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, ExitNoPlan, ExitCode(engine.NewExhaustedError("none")))
	assert.Equal(t, ExitRejected, ExitCode(policy.ErrPlanRejected))
	assert.Equal(t, ExitFailure, ExitCode(errors.New("boom")))
}

func TestLogLevelFor(t *testing.T) {
	assert.Equal(t, "info", logLevelFor(engine.TraceNone))
	assert.Equal(t, "info", logLevelFor(engine.TraceSummary))
	assert.Equal(t, "debug", logLevelFor(engine.TraceFrames))
	assert.Equal(t, "trace", logLevelFor(engine.TraceDetail))
}
