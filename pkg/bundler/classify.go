package bundler

import (
	"github.com/bindle-sh/bindle/pkg/graph"
)

// isRoot reports whether the node must remain independently addressable
// and therefore become its own bundle. A module is a root if any of:
//
//   - it was supplied directly as a build input (permanent for the build);
//   - nothing remaining in the graph still requires it;
//   - at least one of its dependants is not a bundleable script, so a
//     non-script consumer holds a direct reference to it.
//
// Classification happens at fold time, against the dependants still
// present after earlier folds removed theirs. That is why the dependant
// list is passed in rather than re-queried: the caller evaluates it
// before pruning its own inbound edges.
func (b *Build) isRoot(n *graph.Node, dependants []string) bool {
	if n.Entry {
		return true
	}
	if len(dependants) == 0 {
		return true
	}
	for _, dep := range dependants {
		parent, ok := b.g.Node(dep)
		if !ok {
			continue
		}
		if parent.Kind != graph.KindScript {
			return true
		}
	}
	return false
}
