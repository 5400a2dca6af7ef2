// Package packer serializes a finalized module-record collection into a
// single executable script artifact. The artifact embeds a self-contained
// module registry and a require implementation with lazy, cache-first
// invocation, so circular references observe the partially populated
// exports of a module that is still initializing instead of re-entering
// it.
//
// Output is fully deterministic: modules are emitted in identity order
// and all serialized maps use sorted keys, so identical inputs produce
// byte-identical bundles.
package packer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrNoModules is returned when Pack is called with an empty record
	// collection.
	ErrNoModules = errors.New("packer: no modules to pack")

	// ErrDuplicateIdentity is returned when two records in the same
	// bundle share an identity.
	ErrDuplicateIdentity = errors.New("packer: duplicate module identity")
)

// DefaultGlobalName is the property on the host global object under
// which an exposing bundle publishes its registry, and which other
// bundles consult when an identity is missing from their own registry.
const DefaultGlobalName = "__bindle__"

// Module is one serializable module record, ready for emission.
type Module struct {
	ID     string            // module identity
	Deps   map[string]string // literal specifier -> identity
	Source []byte            // module source text
	Entry  bool              // invoke on load
}

// Options configures a Pack call.
type Options struct {
	// ExposeGlobal publishes this bundle's registry on the host global
	// object so sibling bundles can delegate lookups to it. Required for
	// a shared bundle that root bundles depend on at runtime.
	ExposeGlobal bool

	// GlobalName overrides [DefaultGlobalName].
	GlobalName string

	// SourceMap selects source-map emission: [MapOff], [MapInline], or
	// [MapExternal].
	SourceMap MapMode

	// MapRoot is the sourceRoot label written into the source map.
	MapRoot string

	// File is the artifact file name referenced from an external source
	// map and embedded in its "file" field.
	File string
}

// Artifact is the packed output for one bundle.
type Artifact struct {
	// Code is the executable bundle text.
	Code []byte

	// SourceMap holds the serialized source-map object when Options
	// requested external emission, nil otherwise. Inline maps are
	// appended to Code directly.
	SourceMap []byte
}

// Pack emits the executable artifact for one bundle. Records are sorted
// by identity before emission; input order never affects the output.
func Pack(modules []Module, opts Options) (Artifact, error) {
	if len(modules) == 0 {
		return Artifact{}, ErrNoModules
	}
	if opts.GlobalName == "" {
		opts.GlobalName = DefaultGlobalName
	}

	sorted := make([]Module, len(modules))
	copy(sorted, modules)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	for i := 1; i < len(sorted); i++ {
		if sorted[i].ID == sorted[i-1].ID {
			return Artifact{}, fmt.Errorf("%w: %s", ErrDuplicateIdentity, sorted[i].ID)
		}
	}

	e := &emitter{opts: opts}
	if err := e.emit(sorted); err != nil {
		return Artifact{}, err
	}
	return e.finish(sorted)
}

// emitter accumulates the artifact text and remembers, per module, the
// line at which its source begins so the source map can point sections
// at the original files.
type emitter struct {
	buf     bytes.Buffer
	opts    Options
	offsets []int // artifact line of each module's first source line
}

func (e *emitter) line() int {
	return bytes.Count(e.buf.Bytes(), []byte("\n"))
}

func (e *emitter) emit(modules []Module) error {
	g := jsString(e.opts.GlobalName)

	e.buf.WriteString("(function(global) {\n")
	e.buf.WriteString("\"use strict\";\n")
	e.buf.WriteString("var registry = {\n")

	for _, m := range modules {
		deps, err := jsonSortedMap(m.Deps)
		if err != nil {
			return fmt.Errorf("packer: serialize deps of %s: %w", m.ID, err)
		}
		fmt.Fprintf(&e.buf, "%s: {\n", jsString(m.ID))
		fmt.Fprintf(&e.buf, "entry: %t,\n", m.Entry)
		fmt.Fprintf(&e.buf, "deps: %s,\n", deps)
		e.buf.WriteString("fn: function(require, module, exports) {\n")
		e.offsets = append(e.offsets, e.line())
		e.buf.Write(m.Source)
		if len(m.Source) > 0 && m.Source[len(m.Source)-1] != '\n' {
			e.buf.WriteByte('\n')
		}
		e.buf.WriteString("}},\n")
	}

	e.buf.WriteString("};\n")
	e.buf.WriteString("var cache = {};\n")
	e.buf.WriteString("function load(id) {\n")
	e.buf.WriteString("var cached = cache[id];\n")
	e.buf.WriteString("if (cached) { return cached.exports; }\n")
	e.buf.WriteString("var rec = registry[id];\n")
	e.buf.WriteString("if (!rec) {\n")
	fmt.Fprintf(&e.buf, "var shared = global[%s];\n", g)
	e.buf.WriteString("if (shared && shared.registry !== registry) { return shared.require(id); }\n")
	e.buf.WriteString("throw new Error(\"module \" + id + \" not found\");\n")
	e.buf.WriteString("}\n")
	// The cache entry exists before fn runs. A cycle reaching back into
	// this module sees its partial exports, never a second invocation.
	e.buf.WriteString("var mod = cache[id] = { id: id, exports: {} };\n")
	e.buf.WriteString("rec.fn.call(mod.exports, makeRequire(id, rec), mod, mod.exports);\n")
	e.buf.WriteString("return mod.exports;\n")
	e.buf.WriteString("}\n")
	e.buf.WriteString("function makeRequire(id, rec) {\n")
	e.buf.WriteString("return function(spec) {\n")
	e.buf.WriteString("var target = rec.deps[spec];\n")
	e.buf.WriteString("if (!target) { throw new Error(\"cannot require '\" + spec + \"' from \" + id); }\n")
	e.buf.WriteString("if (target.indexOf(\"builtin:\") === 0) { throw new Error(\"built-in module '\" + spec + \"' is not available in this bundle\"); }\n")
	e.buf.WriteString("return load(target);\n")
	e.buf.WriteString("};\n")
	e.buf.WriteString("}\n")

	if e.opts.ExposeGlobal {
		fmt.Fprintf(&e.buf, "global[%s] = { registry: registry, require: load };\n", g)
	}
	for _, m := range modules {
		if m.Entry {
			fmt.Fprintf(&e.buf, "load(%s);\n", jsString(m.ID))
		}
	}
	e.buf.WriteString("})(typeof globalThis !== \"undefined\" ? globalThis : this);\n")
	return nil
}

func (e *emitter) finish(modules []Module) (Artifact, error) {
	switch e.opts.SourceMap {
	case MapOff, "":
		return Artifact{Code: e.buf.Bytes()}, nil
	}

	m, err := buildIndexMap(modules, e.offsets, e.opts)
	if err != nil {
		return Artifact{}, err
	}

	switch e.opts.SourceMap {
	case MapInline:
		e.buf.WriteString("//# sourceMappingURL=data:application/json;base64,")
		e.buf.WriteString(encodeInline(m))
		e.buf.WriteByte('\n')
		return Artifact{Code: e.buf.Bytes()}, nil
	case MapExternal:
		name := e.opts.File
		if name == "" {
			name = "bundle.js"
		}
		fmt.Fprintf(&e.buf, "//# sourceMappingURL=%s.map\n", name)
		return Artifact{Code: e.buf.Bytes(), SourceMap: m}, nil
	default:
		return Artifact{}, fmt.Errorf("packer: unknown source-map mode %q", e.opts.SourceMap)
	}
}

// jsString renders s as a JavaScript string literal. JSON string
// encoding is a strict subset of JS string literal syntax.
func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// jsonSortedMap serializes a string map as a JSON object. encoding/json
// sorts object keys, which is exactly the determinism the artifact
// needs.
func jsonSortedMap(m map[string]string) (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
