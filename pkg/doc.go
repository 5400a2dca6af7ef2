// Package pkg provides the core libraries for the Bindle module bundler.
//
// # Overview
//
// Bindle resolves a CommonJS-style dependency graph from one or more entry
// modules and packs each bundle root into a single executable script with an
// embedded loader. The pkg directory is organized into four main areas:
//
//  1. Core domain ([bundler], [graph], [resolver], [source], [packer])
//  2. Infrastructure ([cache], [vfs], [observability])
//  3. Diagnostics ([io], [viz])
//  4. Orchestration ([pipeline])
//
// # Architecture
//
// The typical data flow through Bindle:
//
//	Entry modules
//	      |
//	      v
//	resolver + source  --  resolve specifiers, load and validate modules
//	      |
//	      v
//	   bundler  --  concurrent crawl into a cyclic module graph
//	      |
//	      v
//	   bundler  --  classify roots, partition shared modules, fold
//	      |
//	      v
//	    packer  --  emit one self-contained artifact per bundle
//
// The [pipeline] package ties the phases together behind a Runner with
// artifact caching; the CLI and the HTTP server both drive that Runner.
package pkg
