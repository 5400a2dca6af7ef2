package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/bindle-sh/bindle/pkg/graph"
)

var kindToString = map[graph.Kind]string{
	graph.KindScript: "script",
	graph.KindJSON:   "json",
	graph.KindOther:  "other",
}

type graphJSON struct {
	Nodes []nodeJSON `json:"nodes"`
	Edges []edgeJSON `json:"edges"`
}

type nodeJSON struct {
	ID     string            `json:"id"`
	Kind   string            `json:"kind,omitempty"`
	Entry  bool              `json:"entry,omitempty"`
	Shared bool              `json:"shared,omitempty"`
	Deps   map[string]string `json:"deps,omitempty"`
}

type edgeJSON struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Specifier string `json:"specifier,omitempty"`
}

// WriteJSON encodes a module graph as JSON and writes it to w. Nodes are
// emitted in identity order, so output is deterministic. The result can
// be re-imported with [ReadJSON].
func WriteJSON(g *graph.Graph, w io.Writer) error {
	ids := g.Nodes()
	out := graphJSON{
		Nodes: make([]nodeJSON, 0, len(ids)),
		Edges: make([]edgeJSON, 0, g.EdgeCount()),
	}

	for _, id := range ids {
		n, ok := g.Node(id)
		if !ok {
			continue
		}
		nd := nodeJSON{
			ID:     n.ID,
			Kind:   kindToString[n.Kind],
			Entry:  n.Entry,
			Shared: n.Shared,
		}
		if len(n.Deps) > 0 {
			nd.Deps = n.Deps
		}
		out.Nodes = append(out.Nodes, nd)
	}
	for _, e := range g.Edges() {
		out.Edges = append(out.Edges, edgeJSON{From: e.From, To: e.To, Specifier: e.Specifier})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ExportJSON writes a module graph to a JSON file at path.
// This is a convenience wrapper around [WriteJSON] for file-based output.
func ExportJSON(g *graph.Graph, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteJSON(g, f)
}
