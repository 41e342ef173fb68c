package cli

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/plantops/engine/internal/logic"
)

// SimulateOptions holds the flags of the simulate command.
type SimulateOptions struct {
	Ticks  int
	Tick   time.Duration
	Forces []string // id=on|off for digital inputs
	Sets   []string // id=value for analog inputs
}

// TickFrame is what one tick changed.
type TickFrame struct {
	Tick  int                `json:"tick"`
	Nodes map[string]float64 `json:"nodes,omitempty"`
	Edges map[string]bool    `json:"edges,omitempty"`
}

// Trace is the payload of the simulate command.
type Trace struct {
	Ticks []TickFrame        `json:"ticks"`
	Final map[string]float64 `json:"final"`
}

// NewSimulateCommand creates the simulate command.
func NewSimulateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SimulateOptions{}
	cmd := &cobra.Command{
		Use:   "simulate <diagram-file>",
		Short: "Run a diagram for a number of ticks and print what changed",
		Long: `Load a diagram file, force its inputs and evaluate it tick by tick.
Stored values are ignored; every node starts at 0 as it would after a load.`,
		Example: `  logicctl simulate trip.yaml --ticks 20 --force start=on --set pt101=4.2`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(rootOpts, opts, args[0], cmd)
		},
	}
	cmd.Flags().IntVar(&opts.Ticks, "ticks", 10, "number of ticks to run")
	cmd.Flags().DurationVar(&opts.Tick, "tick", logic.DefaultTick, "tick period timer delays are calibrated to")
	cmd.Flags().StringArrayVar(&opts.Forces, "force", nil, "force a digital input, id=on|off (repeatable)")
	cmd.Flags().StringArrayVar(&opts.Sets, "set", nil, "set an analog input, id=value (repeatable)")
	return cmd
}

// Simulate hydrates doc, applies the forced inputs and runs it.
func Simulate(doc logic.Document, opts SimulateOptions) (Trace, error) {
	if opts.Ticks < 0 {
		return Trace{}, fmt.Errorf("ticks must not be negative")
	}
	g := logic.Hydrate(doc)
	for _, f := range opts.Forces {
		id, raw, err := splitAssign(f)
		if err != nil {
			return Trace{}, err
		}
		on, err := parseSwitch(raw)
		if err != nil {
			return Trace{}, fmt.Errorf("force %s: %w", id, err)
		}
		if err := forceInput(g, id, logic.KindDigitalInput, func(d *logic.NodeData) {
			d.Value = 0
			if on {
				d.Value = 1
			}
		}); err != nil {
			return Trace{}, err
		}
	}
	for _, s := range opts.Sets {
		id, raw, err := splitAssign(s)
		if err != nil {
			return Trace{}, err
		}
		v := logic.ParseNumber(raw)
		if err := forceInput(g, id, logic.KindAnalogInput, func(d *logic.NodeData) { d.SimValue = v }); err != nil {
			return Trace{}, err
		}
	}

	eng, rt := logic.NewEngine(opts.Tick), logic.NewRuntime()
	tr := Trace{Ticks: make([]TickFrame, 0, opts.Ticks), Final: map[string]float64{}}
	for i := 1; i <= opts.Ticks; i++ {
		d := eng.Step(g, rt)
		tr.Ticks = append(tr.Ticks, TickFrame{Tick: i, Nodes: d.Nodes, Edges: d.Edges})
	}
	for _, n := range g.Nodes() {
		tr.Final[n.ID] = n.Data.Value.Float()
	}
	return tr, nil
}

func forceInput(g *logic.Graph, id string, kind logic.Kind, fn func(*logic.NodeData)) error {
	n, ok := g.Node(id)
	if !ok {
		return fmt.Errorf("node %s: %w", id, logic.ErrNodeNotFound)
	}
	if n.Type != kind {
		return fmt.Errorf("node %s is %s, not %s", id, n.Type, kind)
	}
	return g.Mutator(id)(fn)
}

func splitAssign(s string) (string, string, error) {
	id, v, ok := strings.Cut(s, "=")
	if !ok || strings.TrimSpace(id) == "" {
		return "", "", fmt.Errorf("expected id=value, got %q", s)
	}
	return strings.TrimSpace(id), strings.TrimSpace(v), nil
}

func parseSwitch(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "1", "true":
		return true, nil
	case "off", "0", "false":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", s)
}

func runSimulate(rootOpts *RootOptions, opts *SimulateOptions, path string, cmd *cobra.Command) error {
	f := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}

	doc, err := LoadDiagram(path)
	if err != nil {
		_ = f.Fail("load_failed", err.Error(), nil)
		return WrapExitError(ExitCommandError, "load "+path, err)
	}
	tr, err := Simulate(doc, *opts)
	if err != nil {
		_ = f.Fail("bad_input", err.Error(), nil)
		return WrapExitError(ExitCommandError, "simulate "+path, err)
	}

	if f.JSON() {
		return f.Success(tr)
	}
	writeTrace(f.Writer, tr)
	return nil
}

func writeTrace(w io.Writer, tr Trace) {
	for _, fr := range tr.Ticks {
		var parts []string
		if len(fr.Nodes) > 0 {
			parts = append(parts, "nodes: "+joinValues(fr.Nodes))
		}
		if len(fr.Edges) > 0 {
			parts = append(parts, "edges: "+joinFlags(fr.Edges))
		}
		if len(parts) == 0 {
			parts = []string{"-"}
		}
		fmt.Fprintf(w, "tick %d  %s\n", fr.Tick, strings.Join(parts, "  "))
	}
	fmt.Fprintf(w, "final  %s\n", joinValues(tr.Final))
}

func joinValues(m map[string]float64) string {
	keys := sortedKeys(m)
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k + "=" + strconv.FormatFloat(m[k], 'g', -1, 64)
	}
	return strings.Join(out, " ")
}

func joinFlags(m map[string]bool) string {
	keys := sortedKeys(m)
	out := make([]string, len(keys))
	for i, k := range keys {
		state := "off"
		if m[k] {
			state = "on"
		}
		out[i] = k + "=" + state
	}
	return strings.Join(out, " ")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
