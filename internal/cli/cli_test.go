package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plantops/engine/internal/logic"
)

func golden(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestSimulateTraceText(t *testing.T) {
	out, err := execute(t, "simulate", "testdata/interlock.yaml", "--ticks", "4", "--force", "start=on")
	require.NoError(t, err)
	golden(t).Assert(t, "simulate_text", []byte(out))
}

func TestSimulateTraceJSON(t *testing.T) {
	out, err := execute(t, "--format", "json", "simulate", "testdata/interlock.yaml", "--ticks", "4", "--force", "start=on")
	require.NoError(t, err)
	golden(t).Assert(t, "simulate_json", []byte(out))
}

func TestValidateReportsProblems(t *testing.T) {
	out, err := execute(t, "--format", "json", "validate", "testdata/broken.json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	golden(t).Assert(t, "validate_json", []byte(out))
}

func TestValidateCleanDiagram(t *testing.T) {
	out, err := execute(t, "validate", "testdata/interlock.yaml")
	require.NoError(t, err)
	assert.Equal(t, "✓ testdata/interlock.yaml: 3 node(s), 2 edge(s), 0 warning(s)\n", out)
}

func TestCommandErrors(t *testing.T) {
	_, err := execute(t, "validate", "testdata/missing.json")
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = execute(t, "--format", "xml", "validate", "testdata/broken.json")
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = execute(t, "simulate", "testdata/interlock.yaml", "--force", "coil=on")
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = execute(t, "simulate", "testdata/interlock.yaml", "--force", "start=maybe")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestSimulateAnalogAndTickPeriod(t *testing.T) {
	doc := logic.Document{
		Nodes: []logic.Node{
			{ID: "pt", Type: logic.KindAnalogInput},
			{ID: "hi", Type: logic.KindGreaterThan, Data: logic.NodeData{Setpoint: 5, Hysteresis: 1}},
			{ID: "ton", Type: logic.KindTimerOn, Data: logic.NodeData{Delay: 1}},
		},
		Edges: []logic.Edge{
			{ID: "e1", Source: "pt", Target: "hi", TargetHandle: "in"},
			{ID: "e2", Source: "hi", Target: "ton", TargetHandle: "in"},
		},
	}

	// a 500ms tick makes the one second delay two ticks long
	tr, err := Simulate(doc, SimulateOptions{Ticks: 3, Tick: 500 * time.Millisecond, Sets: []string{"pt=6"}})
	require.NoError(t, err)
	require.Len(t, tr.Ticks, 3)
	assert.Equal(t, map[string]float64{"pt": 6, "hi": 1}, tr.Ticks[0].Nodes)
	assert.Empty(t, tr.Ticks[1].Nodes)
	assert.Equal(t, map[string]float64{"ton": 1}, tr.Ticks[2].Nodes)
	assert.Equal(t, 6.0, tr.Final["pt"])
}

func TestSimulateRejectsNegativeTicks(t *testing.T) {
	_, err := Simulate(logic.Document{}, SimulateOptions{Ticks: -1, Tick: logic.DefaultTick})
	assert.Error(t, err)
}

func TestLoadDiagramFormats(t *testing.T) {
	yamlDoc, err := LoadDiagram("testdata/interlock.yaml")
	require.NoError(t, err)
	require.Len(t, yamlDoc.Nodes, 3)
	assert.Equal(t, logic.Kind("tonNode"), yamlDoc.Nodes[1].Type)
	assert.Equal(t, logic.Number(0.4), yamlDoc.Nodes[1].Data.Delay)
	assert.Equal(t, "K1", yamlDoc.Nodes[2].Data.Label)

	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.yml")
	require.NoError(t, os.WriteFile(empty, nil, 0o600))
	doc, err := LoadDiagram(empty)
	require.NoError(t, err)
	assert.Empty(t, doc.Nodes)
	assert.NotNil(t, doc.Edges)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("nodes: [\n"), 0o600))
	_, err = LoadDiagram(bad)
	assert.Error(t, err)
}
