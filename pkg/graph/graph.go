package graph

import (
	"errors"
	"slices"
	"sort"
)

var (
	// ErrInvalidIdentity is returned by [Graph.AddNode] and [Graph.AddEdge]
	// when a module identity is empty. All nodes must have non-empty
	// identities.
	ErrInvalidIdentity = errors.New("module identity must not be empty")

	// ErrUnknownNode is returned by operations that require an existing
	// node when the identity is not present in the graph.
	ErrUnknownNode = errors.New("unknown module")

	// ErrHasDependants is returned by [Graph.RemoveNode] when the node
	// still has inbound edges. A module may only be pruned after it has
	// been folded into every remaining dependant.
	ErrHasDependants = errors.New("module still has dependants")
)

// Kind classifies a module's content type. The folding pass treats
// non-script dependants as external consumers: a module referenced by one
// must stay independently addressable.
type Kind int

const (
	// KindScript is an executable script module.
	KindScript Kind = iota
	// KindJSON is a data module normalized to an export assignment.
	KindJSON
	// KindOther is content participating through an external adapter.
	KindOther
)

// String returns the lowercase kind name.
func (k Kind) String() string {
	switch k {
	case KindScript:
		return "script"
	case KindJSON:
		return "json"
	default:
		return "other"
	}
}

// Metadata stores arbitrary key-value pairs attached to a node, such as
// the name and version of the package a module was resolved through.
// Metadata maps are never nil after AddNode.
type Metadata map[string]any

// Node represents one module in the build graph.
//
// The zero value is not usable - nodes are created through [Graph.AddNode]
// or implicitly by [Graph.AddEdge].
type Node struct {
	// ID is the module's stable identity: its root-relative path, or a
	// synthetic identity such as "builtin:fs" for a built-in shim.
	ID string

	// Kind classifies the module content.
	Kind Kind

	// Entry is true if the module was supplied directly as a build input.
	// Entry status, once set, is permanent for the build.
	Entry bool

	// Shared is set by the bundle partitioner when the module is reachable
	// from more than one bundle root.
	Shared bool

	// Source holds the module's content. It is owned by the loader and
	// read-only to the graph; the packing pass writes the final bundle
	// text into the root module's slot.
	Source []byte

	// Deps maps each literal specifier used by this module to the identity
	// it resolved to. Populated incrementally as resolutions complete.
	Deps map[string]string

	// Meta carries advisory metadata (package name, version) attached
	// during resolution. Never nil after AddNode.
	Meta Metadata
}

// Edge is a directed dependency edge from a dependant module to one of its
// dependencies, keyed additionally by the literal specifier used at the
// call site.
type Edge struct {
	From      string // dependant identity
	To        string // dependency identity
	Specifier string // literal specifier at the call site
}

// Graph is the mutable node/edge arena for one build. Use [New] to create
// an instance; every build owns its own graph, never a process-global one.
type Graph struct {
	nodes    map[string]*Node
	edges    []Edge
	outgoing map[string][]string // dependant -> dependency IDs (with duplicates per literal)
	incoming map[string][]string // dependency -> dependant IDs (with duplicates per literal)
}

// New creates an empty build graph.
func New() *Graph {
	return &Graph{
		nodes:    make(map[string]*Node),
		outgoing: make(map[string][]string),
		incoming: make(map[string][]string),
	}
}

// AddNode adds a node for the identity and returns it. The call is
// idempotent: if the node already exists it is returned unchanged.
// Returns ErrInvalidIdentity if the identity is empty.
func (g *Graph) AddNode(id string) (*Node, error) {
	if id == "" {
		return nil, ErrInvalidIdentity
	}
	if n, ok := g.nodes[id]; ok {
		return n, nil
	}
	n := &Node{
		ID:   id,
		Deps: make(map[string]string),
		Meta: Metadata{},
	}
	g.nodes[id] = n
	return n, nil
}

// AddEdge records that the module from depends on the module to through
// the given literal specifier. The child node is created if absent, and
// the specifier → identity association is stored on the parent.
//
// AddEdge performs no cycle check: an edge closing a cycle is legal and
// expected. Adding the same (from, to, specifier) triple twice is a no-op.
func (g *Graph) AddEdge(from, to, specifier string) error {
	parent, ok := g.nodes[from]
	if !ok {
		return ErrUnknownNode
	}
	if _, err := g.AddNode(to); err != nil {
		return err
	}
	if prev, ok := parent.Deps[specifier]; ok && prev == to {
		return nil
	}
	parent.Deps[specifier] = to
	g.edges = append(g.edges, Edge{From: from, To: to, Specifier: specifier})
	g.outgoing[from] = append(g.outgoing[from], to)
	g.incoming[to] = append(g.incoming[to], from)
	return nil
}

// RemoveEdge removes every edge from → to, regardless of specifier.
// The parent's specifier map is left intact: the literal → identity
// association must survive pruning for the runtime loader.
// No error is returned if no such edge exists.
func (g *Graph) RemoveEdge(from, to string) {
	g.edges = slices.DeleteFunc(g.edges, func(e Edge) bool { return e.From == from && e.To == to })
	g.outgoing[from] = slices.DeleteFunc(g.outgoing[from], func(s string) bool { return s == to })
	g.incoming[to] = slices.DeleteFunc(g.incoming[to], func(s string) bool { return s == from })
}

// RemoveNode deletes the node and all edges touching it. Returns
// ErrUnknownNode if the node does not exist, or ErrHasDependants if
// inbound edges remain - a module may only be pruned after folding.
func (g *Graph) RemoveNode(id string) error {
	if _, ok := g.nodes[id]; !ok {
		return ErrUnknownNode
	}
	if len(g.incoming[id]) > 0 {
		return ErrHasDependants
	}
	for _, to := range slices.Clone(g.outgoing[id]) {
		g.RemoveEdge(id, to)
	}
	delete(g.outgoing, id)
	delete(g.incoming, id)
	delete(g.nodes, id)
	return nil
}

// Node returns the node with the given identity and true, or nil and
// false if not found.
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns all node identities in sorted order.
func (g *Graph) Nodes() []string {
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Edges returns a copy of all edges in insertion order.
func (g *Graph) Edges() []Edge { return slices.Clone(g.edges) }

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of edges in the graph.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// Dependants returns the distinct identities of modules that directly
// depend on id, in sorted order. Returns nil if there are none.
func (g *Graph) Dependants(id string) []string {
	return distinctSorted(g.incoming[id])
}

// DependantCount returns the number of distinct direct dependants of id.
// This is the signal the bundle partitioner and root classifier use.
func (g *Graph) DependantCount(id string) int {
	return len(distinctSorted(g.incoming[id]))
}

// Dependencies returns the distinct identities id directly depends on, in
// sorted order. With recursive set, the full transitive closure is
// returned instead; the walk is cycle-safe and never includes id itself
// unless id participates in a cycle back to itself.
func (g *Graph) Dependencies(id string, recursive bool) []string {
	if !recursive {
		return distinctSorted(g.outgoing[id])
	}
	seen := make(map[string]bool)
	var walk func(string)
	walk = func(cur string) {
		for _, child := range g.outgoing[cur] {
			if seen[child] {
				continue
			}
			seen[child] = true
			walk(child)
		}
	}
	walk(id)
	closure := make([]string, 0, len(seen))
	for dep := range seen {
		closure = append(closure, dep)
	}
	sort.Strings(closure)
	return closure
}

func distinctSorted(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	out := slices.Clone(ids)
	sort.Strings(out)
	return slices.Compact(out)
}
