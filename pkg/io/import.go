package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/bindle-sh/bindle/pkg/graph"
)

var kindFromString = map[string]graph.Kind{
	"script": graph.KindScript,
	"json":   graph.KindJSON,
	"other":  graph.KindOther,
}

// ReadJSON decodes a JSON graph snapshot from r into a new module graph.
//
// Each node must have an "id" field; "kind", "entry", "shared", and
// "deps" are optional. Each edge must reference node IDs via "from" and
// "to"; the node on the receiving end is created implicitly when absent,
// matching [graph.Graph.AddEdge] semantics. Specifier mappings present
// in a node's "deps" but backed by no edge (built-in references) are
// restored as-is.
//
// The returned graph is independent of r and can be modified safely
// after ReadJSON returns. ReadJSON does not close r.
func ReadJSON(r io.Reader) (*graph.Graph, error) {
	var data graphJSON
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	g := graph.New()
	for _, nd := range data.Nodes {
		n, err := g.AddNode(nd.ID)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", nd.ID, err)
		}
		n.Kind = kindFromString[nd.Kind]
		n.Entry = nd.Entry
		n.Shared = nd.Shared
	}
	for _, e := range data.Edges {
		if err := g.AddEdge(e.From, e.To, e.Specifier); err != nil {
			return nil, fmt.Errorf("edge %s->%s: %w", e.From, e.To, err)
		}
	}
	// Restore edge-less specifier mappings (built-in references).
	for _, nd := range data.Nodes {
		n, ok := g.Node(nd.ID)
		if !ok {
			continue
		}
		for spec, target := range nd.Deps {
			if _, ok := n.Deps[spec]; !ok {
				n.Deps[spec] = target
			}
		}
	}

	return g, nil
}

// ImportJSON reads a JSON file at path and returns the decoded graph.
//
// ImportJSON opens the file, decodes it using [ReadJSON], and closes the
// file. Errors wrap the underlying cause with the file path for context.
func ImportJSON(path string) (*graph.Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadJSON(f)
}
