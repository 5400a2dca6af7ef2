// Package bundler implements the dependency graph resolution and bundling
// engine: it crawls a module graph from the supplied entry modules,
// resolves every import specifier concurrently, classifies bundle roots,
// optionally partitions modules shared between roots into a separate
// bundle, and folds non-root modules into their dependants until only the
// per-root record collections remain.
//
// The engine owns no I/O and no parsing. Content loading, specifier
// extraction, and resolution arrive through the [Loader], [Extractor],
// and [Resolver] interfaces; the defaults live in pkg/source and
// pkg/resolver.
//
// All mutable state is owned by a [Build] instance created per run, so
// concurrent independent builds never observe each other's graphs.
package bundler

import (
	"context"
	"maps"

	"github.com/google/uuid"

	"github.com/bindle-sh/bindle/pkg/graph"
	"github.com/bindle-sh/bindle/pkg/resolver"
)

// Loader reads and normalizes module content by identity.
// *source.Loader is the standard implementation.
type Loader interface {
	Load(identity string) ([]byte, graph.Kind, error)
}

// Resolver maps a specifier used inside the module identified by from to
// a concrete module identity. *resolver.Resolver is the standard
// implementation.
type Resolver interface {
	Resolve(ctx context.Context, specifier, from string) (string, *resolver.PackageInfo, error)
}

// Extractor returns the ordered list of raw specifier strings referenced
// by a module's source. The engine consumes this capability, it does not
// implement it; source.Scanner is the standard implementation.
type Extractor interface {
	Extract(src []byte) []string
}

// Logger receives debug messages from the scheduler.
type Logger func(msg string, args ...any)

// Options configures a Build.
type Options struct {
	// SharedBundle activates the bundle partitioner: modules reachable
	// from more than one entry root are routed to a single shared bundle
	// instead of being duplicated per root.
	SharedBundle bool

	// Logger receives scheduler debug messages. Nil disables them.
	Logger Logger
}

// Record is the flattened, serializable description of one module, ready
// for packing. Records are immutable once prepared and are unique per
// identity within a bundle.
type Record struct {
	ID     string            // module identity
	Deps   map[string]string // literal specifier -> identity
	Source []byte            // module source text
	Entry  bool              // invoke on load
	Shared bool              // routed to the shared bundle
}

// Prepare projects a graph node into a Record. It is a pure copy with no
// side effects and may be called repeatedly: a node can be folded into
// several dependants before its own removal.
func Prepare(n *graph.Node) Record {
	deps := make(map[string]string, len(n.Deps))
	maps.Copy(deps, n.Deps)
	return Record{
		ID:     n.ID,
		Deps:   deps,
		Source: n.Source,
		Entry:  n.Entry,
		Shared: n.Shared,
	}
}

// Bundle is one output unit: the ordered record collection for a single
// root module, or the shared bundle.
type Bundle struct {
	// Root is the identity of the root module this bundle belongs to.
	// Empty for the shared bundle.
	Root string

	// Shared marks the shared bundle.
	Shared bool

	// Records is the identity-deduplicated, identity-sorted record
	// collection.
	Records []Record
}

// Build is the per-run bundling context. Create with [New], drive with
// [Build.Run] and [Build.Finalize], then collect output with
// [Build.Bundles].
//
// A Build is single-use and not safe for concurrent method calls; the
// internal resolution scheduler manages its own concurrency.
type Build struct {
	id        string
	g         *graph.Graph
	loader    Loader
	resolver  Resolver
	extractor Extractor
	opts      Options

	entryIDs []string // resolved entry identities in input order
	order    []string // identities in resolution completion order

	shared  map[string]Record            // shared-bundle accumulator
	mapping map[string]map[string]Record // per-node pending merge buffers
	folded  map[string]bool
	roots   []string // root identities in fold order
}

// New creates a Build over its collaborators.
func New(loader Loader, res Resolver, extractor Extractor, opts Options) *Build {
	return &Build{
		id:        uuid.NewString(),
		g:         graph.New(),
		loader:    loader,
		resolver:  res,
		extractor: extractor,
		opts:      opts,
		shared:    make(map[string]Record),
		mapping:   make(map[string]map[string]Record),
		folded:    make(map[string]bool),
	}
}

// ID returns the unique identifier of this build, used for log
// correlation.
func (b *Build) ID() string { return b.id }

// Graph exposes the build graph for diagnostics. The graph reflects the
// crawl state: complete after Run, pruned down to roots after Finalize.
func (b *Build) Graph() *graph.Graph { return b.g }

// Entries returns the resolved entry identities in input order.
func (b *Build) Entries() []string { return b.entryIDs }

func (b *Build) logf(msg string, args ...any) {
	if b.opts.Logger != nil {
		b.opts.Logger(msg, args...)
	}
}
