package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/bindle-sh/bindle/pkg/bundler"
	"github.com/bindle-sh/bindle/pkg/cache"
	berrors "github.com/bindle-sh/bindle/pkg/errors"
	"github.com/bindle-sh/bindle/pkg/graph"
	bio "github.com/bindle-sh/bindle/pkg/io"
	"github.com/bindle-sh/bindle/pkg/observability"
	"github.com/bindle-sh/bindle/pkg/packer"
	"github.com/bindle-sh/bindle/pkg/resolver"
	"github.com/bindle-sh/bindle/pkg/source"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and API can use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different options; every Execute call creates its own
// build.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs the complete crawl → shape → pack pipeline with caching.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, berrors.Wrap(berrors.ErrCodeInvalidConfig, err, "invalid options")
	}

	result := &Result{
		Artifacts: make(map[string]packer.Artifact),
	}

	// Phase 1: Crawl
	crawlStart := time.Now()
	observability.Build().OnCrawlStart(ctx, opts.Entries)
	b, err := r.Crawl(ctx, opts)
	if err != nil {
		observability.Build().OnCrawlComplete(ctx, 0, 0, time.Since(crawlStart), err)
		return nil, err
	}
	result.BuildID = b.ID()
	result.Entries = b.Entries()
	result.Stats.CrawlTime = time.Since(crawlStart)
	result.Stats.NodeCount = b.Graph().NodeCount()
	result.Stats.EdgeCount = b.Graph().EdgeCount()
	result.GraphHash = contentHash(b.Graph())
	observability.Build().OnCrawlComplete(ctx, result.Stats.NodeCount, result.Stats.EdgeCount, result.Stats.CrawlTime, nil)

	r.Logger.Info("crawled module graph",
		"build", result.BuildID,
		"modules", result.Stats.NodeCount,
		"edges", result.Stats.EdgeCount,
		"duration", result.Stats.CrawlTime)

	// Phase 2: Shape (partition + fold)
	shapeStart := time.Now()
	if err := b.Finalize(); err != nil {
		observability.Build().OnShapeComplete(ctx, 0, time.Since(shapeStart), err)
		return nil, err
	}
	bundles := b.Bundles()
	result.Stats.ShapeTime = time.Since(shapeStart)
	result.Stats.Bundles = len(bundles)
	observability.Build().OnShapeComplete(ctx, len(bundles), result.Stats.ShapeTime, nil)

	r.Logger.Info("shaped bundles",
		"bundles", len(bundles),
		"shared", opts.SharedEnabled(),
		"duration", result.Stats.ShapeTime)

	// Phase 3: Pack, cache-first per bundle
	packStart := time.Now()
	for _, bundle := range bundles {
		name := bundleName(bundle, opts)
		art, hit, err := r.packBundle(ctx, bundle, name, result.GraphHash, opts)
		if err != nil {
			observability.Build().OnPackComplete(ctx, 0, result.CacheInfo.BundleHits, time.Since(packStart), err)
			return nil, err
		}
		if hit {
			result.CacheInfo.BundleHits++
		}
		result.Artifacts[name] = art
	}
	result.Stats.PackTime = time.Since(packStart)
	observability.Build().OnPackComplete(ctx, len(bundles), result.CacheInfo.BundleHits, result.Stats.PackTime, nil)

	r.Logger.Info("packed artifacts",
		"bundles", len(result.Artifacts),
		"cache_hits", result.CacheInfo.BundleHits,
		"duration", result.Stats.PackTime)

	return result, nil
}

// Crawl resolves the dependency graph for the given options and returns
// the in-flight build. The build is not finalized; callers that only
// inspect the graph (the graph command) stop here.
func (r *Runner) Crawl(ctx context.Context, opts Options) (*bundler.Build, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, berrors.Wrap(berrors.ErrCodeInvalidConfig, err, "invalid options")
	}

	for _, entry := range opts.Entries {
		if err := berrors.ValidateEntryPath(entry); err != nil {
			return nil, err
		}
	}

	res, err := resolver.New(resolver.Options{
		Root:       opts.Root,
		Extensions: opts.Extensions,
		Aliases:    opts.Aliases,
		Mode:       opts.resolverMode(),
		FS:         opts.FS,
	})
	if err != nil {
		return nil, err
	}

	loader := source.NewLoader(opts.FS, opts.Root, source.DelimiterValidator{})
	logger := opts.Logger
	b := bundler.New(loader, res, source.Scanner{}, bundler.Options{
		SharedBundle: opts.SharedEnabled(),
		Logger: func(msg string, args ...any) {
			logger.Debug(fmt.Sprintf(msg, args...))
		},
	})

	if err := b.Run(ctx, opts.Entries); err != nil {
		return nil, err
	}
	return b, nil
}

// Graph crawls the dependency graph without folding it, for diagnostics
// and export.
func (r *Runner) Graph(ctx context.Context, opts Options) (*graph.Graph, error) {
	b, err := r.Crawl(ctx, opts)
	if err != nil {
		return nil, err
	}
	return b.Graph(), nil
}

// artifactEnvelope is the cached form of one packed artifact.
type artifactEnvelope struct {
	Code []byte `json:"code"`
	Map  []byte `json:"map,omitempty"`
}

// packBundle packs one bundle, consulting the artifact cache first. The
// cache key covers the graph content hash and every packing option, so a
// hit is always byte-correct.
func (r *Runner) packBundle(ctx context.Context, bundle bundler.Bundle, name, graphHash string, opts Options) (packer.Artifact, bool, error) {
	key := r.Keyer.BundleKey(graphHash, opts.BundleKeyOpts(bundle.Root, bundle.Shared))

	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			var env artifactEnvelope
			if err := json.Unmarshal(data, &env); err == nil {
				return packer.Artifact{Code: env.Code, SourceMap: env.Map}, true, nil
			}
			// Corrupt entry: fall through and repack.
		}
	}

	mods := make([]packer.Module, len(bundle.Records))
	for i, rec := range bundle.Records {
		mods[i] = packer.Module{
			ID:     rec.ID,
			Deps:   rec.Deps,
			Source: rec.Source,
			Entry:  rec.Entry,
		}
	}

	art, err := packer.Pack(mods, packer.Options{
		ExposeGlobal: bundle.Shared,
		GlobalName:   opts.GlobalName,
		SourceMap:    packer.MapMode(opts.SourceMap),
		MapRoot:      opts.MapRoot,
		File:         name,
	})
	if err != nil {
		return packer.Artifact{}, false, err
	}

	if data, err := json.Marshal(artifactEnvelope{Code: art.Code, Map: art.SourceMap}); err == nil {
		_ = r.Cache.Set(ctx, key, data, cache.TTLBundle)
	}
	return art, false, nil
}

// bundleName maps a bundle to its output name: the root identity for
// root bundles, the configured shared name for the shared bundle.
func bundleName(b bundler.Bundle, opts Options) string {
	if b.Shared {
		return opts.SharedBundle
	}
	return b.Root
}

// contentHash hashes the graph structure together with every module's
// source, so any input change produces a new artifact cache key.
func contentHash(g *graph.Graph) string {
	var buf bytes.Buffer
	_ = bio.WriteJSON(g, &buf)
	for _, id := range g.Nodes() {
		n, ok := g.Node(id)
		if !ok {
			continue
		}
		buf.WriteString(id)
		buf.WriteByte(0)
		buf.Write(n.Source)
	}
	return cache.Hash(buf.Bytes())
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
