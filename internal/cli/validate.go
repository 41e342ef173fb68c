package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/plantops/engine/internal/logic"
)

// Severity grades a problem. Errors are structures the editor would never
// produce; warnings are tolerated by the engine.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one problem found in a diagram. Ref names the node or edge.
type Issue struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	Ref      string   `json:"ref"`
	Message  string   `json:"message"`
}

// ValidationResult is the payload of the validate command.
type ValidationResult struct {
	Valid  bool    `json:"valid"`
	Nodes  int     `json:"nodes"`
	Edges  int     `json:"edges"`
	Issues []Issue `json:"issues,omitempty"`
}

// Check lists the problems in doc, nodes first, each in document order.
func Check(doc logic.Document) []Issue {
	var issues []Issue
	add := func(sev Severity, code, ref, format string, args ...any) {
		issues = append(issues, Issue{Severity: sev, Code: code, Ref: ref, Message: fmt.Sprintf(format, args...)})
	}

	nodes := map[string]logic.Node{}
	for _, n := range doc.Nodes {
		if _, dup := nodes[n.ID]; dup {
			add(SeverityError, "duplicate_id", n.ID, "duplicate node id")
			continue
		}
		n.Type = logic.NormalizeKind(n.Type)
		nodes[n.ID] = n
		if _, ok := logic.Lookup(n.Type); !ok {
			add(SeverityWarning, "unknown_type", n.ID, "unknown node type %q", n.Type)
		}
	}

	edges := map[string]struct{}{}
	used := map[string]string{}
	for _, e := range doc.Edges {
		if _, dup := edges[e.ID]; dup {
			add(SeverityError, "duplicate_id", e.ID, "duplicate edge id")
			continue
		}
		edges[e.ID] = struct{}{}

		src, ok := nodes[e.Source]
		if !ok {
			add(SeverityWarning, "dangling_edge", e.ID, "source %s does not exist", e.Source)
			continue
		}
		dst, ok := nodes[e.Target]
		if !ok {
			add(SeverityWarning, "dangling_edge", e.ID, "target %s does not exist", e.Target)
			continue
		}
		if b, known := logic.Lookup(src.Type); known && !b.Output {
			add(SeverityError, "no_output", e.ID, "source %s has no output", src.ID)
			continue
		}
		b, known := logic.Lookup(dst.Type)
		if !known {
			continue
		}
		ports := b.Ports(dst.Data)
		port := e.TargetHandle
		switch {
		case port == "" && len(ports) == 1:
			port = ports[0]
		case port == "":
			add(SeverityWarning, "ambiguous_port", e.ID, "blank handle on %s with %d ports", dst.ID, len(ports))
			continue
		case !slices.Contains(ports, port):
			add(SeverityError, "invalid_port", e.ID, "%s has no port %q", dst.ID, port)
			continue
		}
		key := dst.ID + "/" + port
		if prev, taken := used[key]; taken {
			add(SeverityError, "port_in_use", e.ID, "port %s on %s already connected by %s", port, dst.ID, prev)
			continue
		}
		used[key] = e.ID
	}
	return issues
}

func countSeverity(issues []Issue, sev Severity) int {
	n := 0
	for _, i := range issues {
		if i.Severity == sev {
			n++
		}
	}
	return n
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <diagram-file>",
		Short: "Check a diagram file for structural problems",
		Long: `Check a diagram file (JSON or YAML) for duplicate ids, unknown node
types, dangling edges and port conflicts. Exits 1 when errors are found;
warnings alone do not fail.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	doc, err := LoadDiagram(path)
	if err != nil {
		_ = f.Fail("load_failed", err.Error(), nil)
		return WrapExitError(ExitCommandError, "load "+path, err)
	}

	issues := Check(doc)
	errs, warns := countSeverity(issues, SeverityError), countSeverity(issues, SeverityWarning)
	result := ValidationResult{Valid: errs == 0, Nodes: len(doc.Nodes), Edges: len(doc.Edges), Issues: issues}

	if f.JSON() {
		if errs > 0 {
			_ = f.Fail("invalid_diagram", fmt.Sprintf("%d error(s), %d warning(s)", errs, warns), result)
		} else if err := f.Success(result); err != nil {
			return err
		}
	} else {
		w := f.Writer
		for _, i := range issues {
			fmt.Fprintf(w, "%-7s %-14s %s: %s\n", i.Severity, i.Code, i.Ref, i.Message)
		}
		if errs > 0 {
			fmt.Fprintf(w, "✗ %s: %d error(s), %d warning(s)\n", path, errs, warns)
		} else {
			fmt.Fprintf(w, "✓ %s: %d node(s), %d edge(s), %d warning(s)\n", path, len(doc.Nodes), len(doc.Edges), warns)
		}
	}

	if errs > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", errs))
	}
	return nil
}
