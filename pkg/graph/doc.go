// Package graph implements the mutable build graph of the bundler.
//
// The graph holds one node per resolved module, keyed by identity, and
// directed edges from dependant to dependency. Unlike a classic DAG it is
// explicitly cycle-tolerant: AddEdge never rejects an edge that closes a
// cycle, because circular requires are a supported, first-class case of
// the module runtime.
//
// Each edge additionally carries the literal specifier string used at the
// call site. Multiple literals may resolve to the same child module; every
// literal is retained because the packed output must preserve the
// literal → identity association for the runtime loader.
//
// Nodes are removed incrementally as the folding pass inlines modules into
// their dependants. RemoveNode enforces the pruning precondition that no
// dependant edges remain.
//
// The graph is not safe for concurrent use without external
// synchronization; the build scheduler serializes all mutations.
package graph
