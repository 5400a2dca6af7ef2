package resolver

import (
	"context"
	"errors"
	"testing"

	berrors "github.com/bindle-sh/bindle/pkg/errors"
	"github.com/bindle-sh/bindle/pkg/vfs"
)

func newTestResolver(t *testing.T, files map[string][]byte, opts Options) *Resolver {
	t.Helper()
	opts.FS = vfs.NewMem(files)
	if opts.Root == "" {
		opts.Root = "."
	}
	r, err := New(opts)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return r
}

func TestResolveRelative(t *testing.T) {
	r := newTestResolver(t, map[string][]byte{
		"src/a.js": nil,
		"src/b.js": nil,
	}, Options{})

	id, _, err := r.Resolve(context.Background(), "./b", "src/a.js")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if id != "src/b.js" {
		t.Errorf("identity = %q, want %q", id, "src/b.js")
	}
}

func TestResolveExtensionOrder(t *testing.T) {
	r := newTestResolver(t, map[string][]byte{
		"a.js":   nil,
		"b.js":   nil,
		"b.json": nil,
	}, Options{})

	id, _, err := r.Resolve(context.Background(), "./b", "a.js")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if id != "b.js" {
		t.Errorf("identity = %q, want %q (.js probed before .json)", id, "b.js")
	}
}

func TestResolveExtraExtensions(t *testing.T) {
	r := newTestResolver(t, map[string][]byte{
		"a.js":      nil,
		"widget.vx": nil,
	}, Options{Extensions: []string{".js", ".json", ".vx"}})

	id, _, err := r.Resolve(context.Background(), "./widget", "a.js")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if id != "widget.vx" {
		t.Errorf("identity = %q, want %q", id, "widget.vx")
	}
}

func TestResolveExactBeforeExtension(t *testing.T) {
	r := newTestResolver(t, map[string][]byte{
		"a.js":      nil,
		"data":      nil,
		"data.js":   nil,
	}, Options{})

	id, _, err := r.Resolve(context.Background(), "./data", "a.js")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if id != "data" {
		t.Errorf("identity = %q, want %q (exact match wins)", id, "data")
	}
}

func TestResolveEntryFromRoot(t *testing.T) {
	r := newTestResolver(t, map[string][]byte{
		"src/main.js": nil,
	}, Options{})

	id, _, err := r.Resolve(context.Background(), "./src/main", "")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if id != "src/main.js" {
		t.Errorf("identity = %q, want %q", id, "src/main.js")
	}
}

func TestResolveNodeModulesWalk(t *testing.T) {
	r := newTestResolver(t, map[string][]byte{
		"node_modules/left-pad/package.json": []byte(`{"name":"left-pad","version":"1.3.0","main":"lib/pad.js"}`),
		"node_modules/left-pad/lib/pad.js":   nil,
		"src/deep/a.js":                      nil,
	}, Options{})

	id, info, err := r.Resolve(context.Background(), "left-pad", "src/deep/a.js")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if id != "node_modules/left-pad/lib/pad.js" {
		t.Errorf("identity = %q", id)
	}
	if info == nil || info.Name != "left-pad" || info.Version != "1.3.0" {
		t.Errorf("PackageInfo = %+v, want left-pad 1.3.0", info)
	}
}

func TestResolveNearestNodeModulesWins(t *testing.T) {
	r := newTestResolver(t, map[string][]byte{
		"node_modules/dep/index.js":         []byte("outer"),
		"src/node_modules/dep/index.js":     []byte("inner"),
		"src/a.js":                          nil,
	}, Options{})

	id, _, err := r.Resolve(context.Background(), "dep", "src/a.js")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if id != "src/node_modules/dep/index.js" {
		t.Errorf("identity = %q, want the nearest node_modules", id)
	}
}

func TestResolveDirectoryIndex(t *testing.T) {
	r := newTestResolver(t, map[string][]byte{
		"a.js":            nil,
		"widgets/index.js": nil,
	}, Options{})

	id, _, err := r.Resolve(context.Background(), "./widgets", "a.js")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if id != "widgets/index.js" {
		t.Errorf("identity = %q, want %q", id, "widgets/index.js")
	}
}

func TestResolveDirectMode(t *testing.T) {
	r := newTestResolver(t, map[string][]byte{
		"lib/util.js": nil,
		"src/a.js":    nil,
	}, Options{Mode: ModeDirect})

	id, _, err := r.Resolve(context.Background(), "lib/util", "src/a.js")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if id != "lib/util.js" {
		t.Errorf("identity = %q, want %q", id, "lib/util.js")
	}
}

func TestResolveBuiltin(t *testing.T) {
	r := newTestResolver(t, map[string][]byte{"a.js": nil}, Options{})

	for _, spec := range []string{"path", "node:path", "fs/promises"} {
		id, _, err := r.Resolve(context.Background(), spec, "a.js")
		if err != nil {
			t.Fatalf("Resolve(%q) error: %v", spec, err)
		}
		if !IsBuiltinIdentity(id) {
			t.Errorf("Resolve(%q) = %q, want a builtin identity", spec, id)
		}
	}
}

func TestResolveBuiltinAlias(t *testing.T) {
	r := newTestResolver(t, map[string][]byte{
		"a.js":                  nil,
		"shims/path-shim.js":    nil,
	}, Options{Aliases: map[string]string{"path": "shims/path-shim.js"}})

	id, _, err := r.Resolve(context.Background(), "path", "a.js")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if id != "shims/path-shim.js" {
		t.Errorf("identity = %q, want the aliased polyfill", id)
	}
}

func TestResolveMissing(t *testing.T) {
	r := newTestResolver(t, map[string][]byte{"a.js": nil}, Options{})

	_, _, err := r.Resolve(context.Background(), "./missing", "a.js")
	if err == nil {
		t.Fatal("Resolve() succeeded for a missing module")
	}

	var re *berrors.ResolutionError
	if !errors.As(err, &re) {
		t.Fatalf("error type = %T, want *errors.ResolutionError", err)
	}
	if re.Specifier != "./missing" {
		t.Errorf("Specifier = %q, want %q", re.Specifier, "./missing")
	}
	if re.From != "a.js" {
		t.Errorf("From = %q, want %q", re.From, "a.js")
	}
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error cause = %v, want ErrNotFound", errors.Unwrap(err))
	}
}

func TestResolveIdempotent(t *testing.T) {
	r := newTestResolver(t, map[string][]byte{
		"src/a.js": nil,
		"src/b.js": nil,
	}, Options{})

	first, _, err := r.Resolve(context.Background(), "./b", "src/a.js")
	if err != nil {
		t.Fatal(err)
	}
	for range 10 {
		id, _, err := r.Resolve(context.Background(), "./b", "src/a.js")
		if err != nil {
			t.Fatal(err)
		}
		if id != first {
			t.Fatalf("resolution not idempotent: %q then %q", first, id)
		}
	}
}

func TestResolveCanceledContext(t *testing.T) {
	r := newTestResolver(t, map[string][]byte{"a.js": nil, "b.js": nil}, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, _, err := r.Resolve(ctx, "./b", "a.js"); !errors.Is(err, context.Canceled) {
		t.Errorf("Resolve() error = %v, want context.Canceled", err)
	}
}

func TestIsBuiltin(t *testing.T) {
	tests := []struct {
		spec string
		want bool
	}{
		{"fs", true},
		{"node:fs", true},
		{"fs/promises", true},
		{"path", true},
		{"left-pad", false},
		{"./fs", false},
	}
	for _, tt := range tests {
		if got := IsBuiltin(tt.spec); got != tt.want {
			t.Errorf("IsBuiltin(%q) = %v, want %v", tt.spec, got, tt.want)
		}
	}
}
