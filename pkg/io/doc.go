// Package io provides JSON import and export for module graphs.
//
// The format is a diagnostic snapshot of the build graph, not a bundle:
// it carries identities, kinds, entry and shared flags, specifier
// mappings, and edges, but never module source text.
//
//	{
//	  "nodes": [
//	    {"id": "src/a.js", "kind": "script", "entry": true,
//	     "deps": {"./b": "src/b.js"}},
//	    {"id": "src/b.js", "kind": "script"}
//	  ],
//	  "edges": [
//	    {"from": "src/a.js", "to": "src/b.js", "specifier": "./b"}
//	  ]
//	}
//
// Use [WriteJSON]/[ExportJSON] after a crawl to snapshot a graph, and
// [ReadJSON]/[ImportJSON] to rebuild an equivalent graph for external
// tooling. Round trips preserve every field the format carries.
package io
