// Package viz renders module graphs as Graphviz diagrams for the graph
// inspection command.
package viz

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/bindle-sh/bindle/pkg/graph"
)

// Options configures graph rendering.
type Options struct {
	// Detailed includes module kind and dependant counts in node labels.
	// When false, only the module identity is shown.
	Detailed bool

	// Specifiers labels each edge with the literal import specifier that
	// produced it.
	Specifiers bool
}

// ToDOT converts a module graph to Graphviz DOT format. The resulting
// DOT string can be rendered with [RenderSVG].
//
// Entry modules are drawn with a bold outline, shared modules with grey
// fill, and JSON modules as ellipses, so bundle structure is visible at
// a glance.
func ToDOT(g *graph.Graph, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph modules {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	for _, id := range g.Nodes() {
		n, ok := g.Node(id)
		if !ok {
			continue
		}
		label := fmtLabel(g, n, opts.Detailed)
		attrs := fmtAttrs(n, label)
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, e := range g.Edges() {
		if opts.Specifiers {
			fmt.Fprintf(&buf, "  %q -> %q [label=%q];\n", e.From, e.To, e.Specifier)
		} else {
			fmt.Fprintf(&buf, "  %q -> %q;\n", e.From, e.To)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fmtLabel(g *graph.Graph, n *graph.Node, detailed bool) string {
	if !detailed {
		return n.ID
	}
	parts := []string{
		fmt.Sprintf("kind: %s", n.Kind),
		fmt.Sprintf("dependants: %d", g.DependantCount(n.ID)),
	}
	return n.ID + "\n" + strings.Join(parts, "\n")
}

func fmtAttrs(n *graph.Node, label string) []string {
	attrs := []string{fmt.Sprintf("label=%q", label)}
	if n.Entry {
		attrs = append(attrs, "penwidth=2")
	}
	if n.Shared {
		attrs = append(attrs, "fillcolor=lightgrey")
	}
	if n.Kind == graph.KindJSON {
		attrs = append(attrs, "shape=ellipse")
	}
	return attrs
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(dot string) ([]byte, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
