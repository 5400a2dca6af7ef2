package bundler

import (
	"sort"

	berrors "github.com/bindle-sh/bindle/pkg/errors"
	"github.com/bindle-sh/bindle/pkg/resolver"
)

// Finalize runs the post-resolution graph phases: shared-bundle
// partitioning (when requested) followed by the folding pass that inlines
// every non-root module into its dependants and prunes it from the graph.
// After Finalize only root nodes remain and [Build.Bundles] can assemble
// the output.
func (b *Build) Finalize() error {
	if b.opts.SharedBundle {
		b.partition()
	}

	visiting := make(map[string]bool)
	for _, id := range b.entryIDs {
		b.foldNode(id, visiting)
	}
	// Modules can become reachable only through nodes that turned into
	// roots mid-fold; sweep anything the entry walks did not cover, in
	// completion order.
	for _, id := range b.order {
		if !b.folded[id] {
			b.foldNode(id, visiting)
		}
	}

	return b.verify()
}

// foldNode folds the subtree below id post-order, then folds id itself.
//
// This is a post-order fold with respect to completed resolution, not a
// structural topological sort: a child that is also an ancestor (a cycle)
// is simply skipped via the visiting set, and its record reaches this
// node's dependants later through the normal merge path. The only
// precondition is that id's own resolutions have finished, which the
// scheduler guarantees before Finalize runs.
func (b *Build) foldNode(id string, visiting map[string]bool) {
	if b.folded[id] || visiting[id] {
		return
	}
	n, ok := b.g.Node(id)
	if !ok {
		return
	}

	visiting[id] = true
	for _, child := range b.g.Dependencies(id, false) {
		b.foldNode(child, visiting)
	}
	delete(visiting, id)

	rec := Prepare(n)
	dependants := b.g.Dependants(id)
	root := b.isRoot(n, dependants)

	if b.opts.SharedBundle && n.Shared && !root {
		// Duplicate insertion is a no-op: the accumulator is keyed by
		// identity and the first record wins. The node's own buffer moves
		// along with it - it can hold records of non-shared descendants,
		// such as an entry module a shared module requires. The shared
		// bundle is loaded for lookup only, so any entry flag is cleared
		// here; the entry still auto-invokes in its own bundle.
		if _, ok := b.shared[id]; !ok {
			b.shared[id] = rec
		}
		for depID, depRec := range b.mapping[id] {
			if _, ok := b.shared[depID]; !ok {
				depRec.Entry = false
				depRec.Shared = true
				b.shared[depID] = depRec
			}
		}
	} else {
		for _, parent := range dependants {
			buf := b.buffer(parent)
			if _, ok := buf[id]; !ok {
				buf[id] = rec
			}
			// Child folds may already have deposited grandchild records
			// here; the dependant needs that whole union.
			for depID, depRec := range b.mapping[id] {
				if _, ok := buf[depID]; !ok {
					buf[depID] = depRec
				}
			}
		}
	}

	for _, parent := range dependants {
		b.g.RemoveEdge(parent, id)
	}

	if root {
		b.roots = append(b.roots, id)
		b.logf("root %s retained (%d inlined)", id, len(b.mapping[id]))
	} else {
		if err := b.g.RemoveNode(id); err == nil {
			delete(b.mapping, id)
		}
		b.logf("folded %s into %d dependants", id, len(dependants))
	}
	b.folded[id] = true
}

// buffer returns the pending merge buffer for a node, creating it on
// first use.
func (b *Build) buffer(id string) map[string]Record {
	buf, ok := b.mapping[id]
	if !ok {
		buf = make(map[string]Record)
		b.mapping[id] = buf
	}
	return buf
}

// Bundles assembles the final output after Finalize: one bundle per root
// in sorted root order and, when partitioning produced any shared
// records, the shared bundle last.
func (b *Build) Bundles() []Bundle {
	roots := make([]string, len(b.roots))
	copy(roots, b.roots)
	sort.Strings(roots)

	var out []Bundle
	for _, root := range roots {
		n, ok := b.g.Node(root)
		if !ok {
			continue
		}
		records := map[string]Record{root: Prepare(n)}
		for id, rec := range b.mapping[root] {
			if _, ok := records[id]; !ok {
				records[id] = rec
			}
		}
		out = append(out, Bundle{Root: root, Records: sortRecords(records)})
	}

	if len(b.shared) > 0 {
		out = append(out, Bundle{Shared: true, Records: sortRecords(b.shared)})
	}
	return out
}

// verify checks the output invariant that every identity referenced by a
// record resolves somewhere at runtime: within the same bundle, within
// the shared bundle, to another root, or to a built-in shim - never
// nowhere.
func (b *Build) verify() error {
	rootSet := make(map[string]bool, len(b.roots))
	for _, r := range b.roots {
		rootSet[r] = true
	}

	check := func(records map[string]Record, own map[string]bool) error {
		for _, rec := range records {
			for spec, target := range rec.Deps {
				if own[target] || rootSet[target] {
					continue
				}
				if _, ok := b.shared[target]; ok {
					continue
				}
				if resolver.IsBuiltinIdentity(target) {
					continue
				}
				return berrors.New(berrors.ErrCodeUnboundReference,
					"module %s requires %q (%s) which is in no output bundle", rec.ID, spec, target)
			}
		}
		return nil
	}

	for _, root := range b.roots {
		n, ok := b.g.Node(root)
		if !ok {
			continue
		}
		own := map[string]bool{root: true}
		records := map[string]Record{root: Prepare(n)}
		for id, rec := range b.mapping[root] {
			own[id] = true
			records[id] = rec
		}
		if err := check(records, own); err != nil {
			return err
		}
	}

	sharedOwn := make(map[string]bool, len(b.shared))
	for id := range b.shared {
		sharedOwn[id] = true
	}
	return check(b.shared, sharedOwn)
}

func sortRecords(records map[string]Record) []Record {
	ids := make([]string, 0, len(records))
	for id := range records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]Record, len(ids))
	for i, id := range ids {
		out[i] = records[id]
	}
	return out
}
