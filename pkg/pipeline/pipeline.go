// Package pipeline provides the complete bundling pipeline for Bindle.
//
// This package implements the crawl → partition → fold → pack pipeline
// that can be used by CLI, API, and worker components. By centralizing
// this logic, we ensure consistent behavior across all entry points and
// avoid code duplication.
//
// # Architecture
//
// The pipeline consists of three phases:
//
//  1. Crawl: resolve the entry modules and their full dependency graph,
//     running each module through the loading stages (classify,
//     normalize, validate) before resolution
//  2. Shape: classify roots, optionally partition shared modules, fold
//     non-root modules into their dependants
//  3. Pack: emit one executable artifact per root bundle, plus the
//     shared bundle when partitioning is active
//
// # Usage
//
// Create a Runner and execute the pipeline:
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	opts := pipeline.Options{
//	    Root:    "/path/to/project",
//	    Entries: []string{"./src/main.js"},
//	}
//	result, err := runner.Execute(ctx, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	code := result.Artifacts["src/main.js"].Code
package pipeline

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/bindle-sh/bindle/pkg/cache"
	"github.com/bindle-sh/bindle/pkg/packer"
	"github.com/bindle-sh/bindle/pkg/resolver"
	"github.com/bindle-sh/bindle/pkg/vfs"
)

// Resolution mode names accepted in configuration.
const (
	ModeNode   = "node"
	ModeDirect = "direct"
)

// DefaultMode is the default bare-specifier resolution mode.
const DefaultMode = ModeNode

// Source-map mode names accepted in configuration.
const (
	MapOff      = string(packer.MapOff)
	MapInline   = string(packer.MapInline)
	MapExternal = string(packer.MapExternal)
)

// ValidModes is the set of supported resolution modes.
var ValidModes = map[string]bool{
	ModeNode:   true,
	ModeDirect: true,
}

// ValidMapModes is the set of supported source-map modes.
var ValidMapModes = map[string]bool{
	MapOff:      true,
	MapInline:   true,
	MapExternal: true,
}

// Options contains all configuration for the bundling pipeline.
// This struct supports TOML and JSON serialization for config files and
// API requests.
type Options struct {
	// Crawl options
	Root       string            `json:"root" toml:"root"`
	Entries    []string          `json:"entries" toml:"entries"`
	Mode       string            `json:"mode,omitempty" toml:"mode"`
	Extensions []string          `json:"extensions,omitempty" toml:"extensions"`
	Aliases    map[string]string `json:"aliases,omitempty" toml:"aliases"`

	// Shape options
	SharedBundle string `json:"shared_bundle,omitempty" toml:"shared_bundle"` // output name; empty disables partitioning

	// Pack options
	SourceMap  string `json:"source_map,omitempty" toml:"source_map"`
	MapRoot    string `json:"map_root,omitempty" toml:"map_root"`
	GlobalName string `json:"global_name,omitempty" toml:"global_name"`

	// Refresh bypasses the artifact cache.
	Refresh bool `json:"refresh,omitempty" toml:"refresh"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-" toml:"-"`
	FS     vfs.FS      `json:"-" toml:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool `json:"-" toml:"-"`
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// BuildID identifies this run for log correlation.
	BuildID string

	// Entries holds the resolved entry identities in input order.
	Entries []string

	// GraphHash is the content hash over graph structure and sources.
	GraphHash string

	// Artifacts contains packed outputs keyed by bundle name: the root
	// identity for root bundles, Options.SharedBundle for the shared
	// bundle.
	Artifacts map[string]packer.Artifact

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which bundles came from the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	NodeCount int
	EdgeCount int
	Bundles   int
	CrawlTime time.Duration
	ShapeTime time.Duration
	PackTime  time.Duration
}

// CacheInfo tracks artifact cache hits.
type CacheInfo struct {
	BundleHits int // bundles served from cache
}

// ValidateAndSetDefaults checks required fields and applies defaults for
// the full pipeline. This method is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if len(o.Entries) == 0 {
		return fmt.Errorf("at least one entry is required")
	}
	if o.Root == "" {
		o.Root = "."
	}
	if o.Mode == "" {
		o.Mode = DefaultMode
	}
	if !ValidModes[o.Mode] {
		return fmt.Errorf("invalid mode: %q (must be one of: node, direct)", o.Mode)
	}
	if o.SourceMap == "" {
		o.SourceMap = MapOff
	}
	if !ValidMapModes[o.SourceMap] {
		return fmt.Errorf("invalid source_map: %q (must be one of: off, inline, external)", o.SourceMap)
	}
	if o.GlobalName == "" {
		o.GlobalName = packer.DefaultGlobalName
	}
	if o.FS == nil {
		o.FS = vfs.OS{}
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

// SharedEnabled reports whether shared-bundle partitioning is active.
func (o *Options) SharedEnabled() bool {
	return o.SharedBundle != ""
}

// resolverMode maps the configured mode name to the resolver's type.
func (o *Options) resolverMode() resolver.Mode {
	if o.Mode == ModeDirect {
		return resolver.ModeDirect
	}
	return resolver.ModeNode
}

// GraphKeyOpts returns cache key options for the crawled graph.
func (o *Options) GraphKeyOpts() cache.GraphKeyOpts {
	return cache.GraphKeyOpts{
		Entries:    o.Entries,
		Mode:       o.Mode,
		Extensions: o.Extensions,
		Aliases:    o.Aliases,
	}
}

// BundleKeyOpts returns cache key options for one packed bundle.
func (o *Options) BundleKeyOpts(root string, shared bool) cache.BundleKeyOpts {
	return cache.BundleKeyOpts{
		Root:      root,
		Shared:    shared,
		Expose:    shared,
		SourceMap: o.SourceMap,
		MapRoot:   o.MapRoot,
	}
}
