package bundler

// partition marks every non-entry module reachable from two or more entry
// roots as shared, and propagates the mark through each marked module's
// transitive dependency closure. Shared modules are later routed to the
// single shared bundle instead of being duplicated into every root.
//
// Partitioning runs after the crawl and strictly before any folding:
// folding removes the dependant edges the reachability computation relies
// on. The closure walk short-circuits on already-marked nodes, so
// revisitation through cycles terminates and the pass is idempotent.
func (b *Build) partition() {
	counts := make(map[string]int)
	for _, root := range b.entryIDs {
		seen := make(map[string]bool)
		b.reach(root, seen)
		for id := range seen {
			counts[id]++
		}
	}

	for _, id := range b.g.Nodes() {
		if counts[id] < 2 {
			continue
		}
		b.markShared(id)
	}
}

// reach collects every identity reachable from id, including id itself.
func (b *Build) reach(id string, seen map[string]bool) {
	if seen[id] {
		return
	}
	seen[id] = true
	for _, dep := range b.g.Dependencies(id, false) {
		b.reach(dep, seen)
	}
}

// markShared flags the node and its dependency closure. Entry modules are
// never marked: entry status is permanent and a root cannot be inlined
// into the shared bundle.
func (b *Build) markShared(id string) {
	n, ok := b.g.Node(id)
	if !ok || n.Shared || n.Entry {
		return
	}
	n.Shared = true
	for _, dep := range b.g.Dependencies(id, false) {
		b.markShared(dep)
	}
}
