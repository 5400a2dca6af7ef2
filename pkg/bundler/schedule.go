package bundler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/bindle-sh/bindle/pkg/graph"
	"github.com/bindle-sh/bindle/pkg/resolver"
)

// workers is the number of concurrent goroutines processing modules.
// Each worker loads one module at a time and issues that module's
// specifier resolutions concurrently, so effective resolution parallelism
// is higher than this bound.
const workers = 16

// Run resolves the given entry specifiers and crawls the full dependency
// graph. Entry specifiers are resolved relative to the build root and
// their modules are permanently marked as entries.
//
// Resolution is fail-fast: the first resolution, read, or validation
// error cancels all in-flight work and aborts the build. No partial graph
// survives an error.
func (b *Build) Run(ctx context.Context, entrySpecs []string) error {
	c := &crawler{
		build:   b,
		jobs:    make(chan string, workers*2),
		results: make(chan result, workers*2),
		visited: make(map[string]bool),
	}

	for _, spec := range entrySpecs {
		id, _, err := b.resolver.Resolve(ctx, spec, "")
		if err != nil {
			return err
		}
		n, err := b.g.AddNode(id)
		if err != nil {
			return err
		}
		if n.Entry {
			continue // same entry supplied twice
		}
		n.Entry = true
		b.entryIDs = append(b.entryIDs, id)
	}

	return c.run(ctx, b.entryIDs)
}

// crawler manages the concurrent crawl of one build.
//
// It uses a worker pool: module identities are enqueued to a channel,
// workers load and resolve modules concurrently, and results are applied
// in a single goroutine so the graph sees no concurrent mutation. A
// pending counter tracks in-flight work; the crawl completes when it
// drains to zero.
type crawler struct {
	build *Build

	jobs    chan string
	results chan result
	wg      sync.WaitGroup

	mu      sync.Mutex
	visited map[string]bool
	pending int64 // atomic counter of in-flight jobs
	closing int32 // atomic flag: 1 when shutting down
}

// depRef is one resolved specifier of a module, in call-site order.
type depRef struct {
	spec string
	id   string
	info *resolver.PackageInfo
}

// result holds the outcome of processing one module.
type result struct {
	id   string
	src  []byte
	kind graph.Kind
	deps []depRef
	err  error
}

// run starts the worker pool, seeds the entry identities, and applies
// results until the crawl drains or fails.
func (c *crawler) run(ctx context.Context, seeds []string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	for range workers {
		c.wg.Add(1)
		go c.worker(ctx)
	}

	for _, id := range seeds {
		c.enqueue(ctx, id)
	}

	err := c.collect(ctx)

	// Signal shutdown before closing the channel so late enqueues bail out.
	atomic.StoreInt32(&c.closing, 1)
	cancel()
	close(c.jobs)
	c.wg.Wait()
	return err
}

// worker processes module identities from the job queue until it closes.
func (c *crawler) worker(ctx context.Context) {
	defer c.wg.Done()
	for id := range c.jobs {
		if ctx.Err() != nil {
			atomic.AddInt64(&c.pending, -1)
			continue
		}
		c.results <- c.process(ctx, id)
	}
}

// process loads one module and resolves all of its specifiers
// concurrently. Any single failure aborts the remaining resolutions of
// the batch.
func (c *crawler) process(ctx context.Context, id string) result {
	src, kind, err := c.build.loader.Load(id)
	if err != nil {
		return result{id: id, err: err}
	}

	var specs []string
	if kind == graph.KindScript {
		specs = c.build.extractor.Extract(src)
	}

	deps, err := c.resolveBatch(ctx, id, specs)
	if err != nil {
		return result{id: id, err: err}
	}
	return result{id: id, src: src, kind: kind, deps: deps}
}

// resolveBatch issues every resolution of one module concurrently and
// waits for all of them. The join is all-or-fail-fast: the first error
// cancels the batch and is returned; there is no partial completion.
func (c *crawler) resolveBatch(ctx context.Context, from string, specs []string) ([]depRef, error) {
	if len(specs) == 0 {
		return nil, nil
	}

	batchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	deps := make([]depRef, len(specs))
	errs := make(chan error, len(specs))
	var wg sync.WaitGroup
	for i, spec := range specs {
		wg.Add(1)
		go func(i int, spec string) {
			defer wg.Done()
			id, info, err := c.build.resolver.Resolve(batchCtx, spec, from)
			if err != nil {
				cancel()
				errs <- err
				return
			}
			deps[i] = depRef{spec: spec, id: id, info: info}
		}(i, spec)
	}
	wg.Wait()

	select {
	case err := <-errs:
		// Prefer a real resolution failure over the cancellation noise
		// the rest of the batch produced after the first cancel.
		for errors.Is(err, context.Canceled) && len(errs) > 0 {
			err = <-errs
		}
		return nil, err
	default:
		return deps, nil
	}
}

// enqueue schedules a module for processing if it hasn't been seen yet.
func (c *crawler) enqueue(ctx context.Context, id string) {
	if atomic.LoadInt32(&c.closing) == 1 {
		return
	}

	c.mu.Lock()
	if c.visited[id] {
		c.mu.Unlock()
		return
	}
	c.visited[id] = true
	c.mu.Unlock()

	atomic.AddInt64(&c.pending, 1)

	// Send from a goroutine so a full queue never deadlocks the collect
	// loop against the workers.
	go func() {
		defer func() {
			if recover() != nil {
				// Channel closed during shutdown; the build is aborting.
				atomic.AddInt64(&c.pending, -1)
			}
		}()
		select {
		case c.jobs <- id:
		case <-ctx.Done():
			atomic.AddInt64(&c.pending, -1)
		}
	}()
}

// collect applies results single-threaded until all pending work drains.
// The first failed module aborts the whole crawl.
func (c *crawler) collect(ctx context.Context) error {
	if atomic.LoadInt64(&c.pending) == 0 {
		return nil
	}
	for {
		select {
		case r := <-c.results:
			if r.err != nil {
				return r.err
			}
			c.apply(ctx, r)
			if atomic.AddInt64(&c.pending, -1) == 0 {
				return nil
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// apply records a processed module in the graph: content, kind, edges,
// and advisory manifest metadata, then schedules newly discovered
// dependencies. Runs only on the collect goroutine.
func (c *crawler) apply(ctx context.Context, r result) {
	b := c.build
	n, err := b.g.AddNode(r.id)
	if err != nil {
		return
	}
	n.Source = r.src
	n.Kind = r.kind

	for _, dep := range r.deps {
		if resolver.IsBuiltinIdentity(dep.id) {
			// Built-in shims have no module record and never enter the
			// graph; only the literal -> identity association is kept.
			n.Deps[dep.spec] = dep.id
			continue
		}
		if err := b.g.AddEdge(r.id, dep.id, dep.spec); err != nil {
			continue
		}
		if dep.info != nil {
			n.Meta["package:"+dep.spec] = dep.info
		}
		c.enqueue(ctx, dep.id)
	}

	b.order = append(b.order, r.id)
	b.logf("resolved %s (%d deps)", r.id, len(r.deps))
}
