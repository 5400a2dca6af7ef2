package packer

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func twoModules() []Module {
	return []Module{
		{
			ID:     "src/b.js",
			Deps:   map[string]string{},
			Source: []byte("module.exports = 3;"),
		},
		{
			ID:     "src/a.js",
			Deps:   map[string]string{"./b": "src/b.js"},
			Source: []byte("module.exports = require('./b') + 1;"),
			Entry:  true,
		},
	}
}

func TestPackDeterministic(t *testing.T) {
	mods := twoModules()
	first, err := Pack(mods, Options{})
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}

	// Reverse the input order; output must not change.
	reversed := []Module{mods[1], mods[0]}
	second, err := Pack(reversed, Options{})
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	if !bytes.Equal(first.Code, second.Code) {
		t.Error("artifact depends on input record order")
	}
}

func TestPackEntryInvocation(t *testing.T) {
	art, err := Pack(twoModules(), Options{})
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	code := string(art.Code)

	if !strings.Contains(code, `load("src/a.js");`) {
		t.Error("entry module is not invoked on load")
	}
	if strings.Contains(code, `load("src/b.js");`) {
		t.Error("non-entry module must not be invoked on load")
	}
}

func TestPackCacheBeforeInvocation(t *testing.T) {
	art, err := Pack(twoModules(), Options{})
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	code := string(art.Code)

	insert := strings.Index(code, "cache[id] = { id: id, exports: {} }")
	invoke := strings.Index(code, "rec.fn.call(")
	if insert < 0 || invoke < 0 {
		t.Fatal("loader body missing cache insert or invocation")
	}
	if insert > invoke {
		t.Error("cache entry must exist before the module function runs")
	}
}

func TestPackBuiltinGuard(t *testing.T) {
	mods := []Module{{
		ID:     "src/a.js",
		Deps:   map[string]string{"fs": "builtin:fs"},
		Source: []byte("require('fs');"),
		Entry:  true,
	}}
	art, err := Pack(mods, Options{})
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	if !strings.Contains(string(art.Code), `indexOf("builtin:") === 0`) {
		t.Error("require must reject built-in identities with a clear error")
	}
}

func TestPackExposeGlobal(t *testing.T) {
	art, err := Pack(twoModules(), Options{ExposeGlobal: true})
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	if !strings.Contains(string(art.Code), `global["__bindle__"] = { registry: registry, require: load };`) {
		t.Error("exposing bundle must publish its registry")
	}

	art, err = Pack(twoModules(), Options{})
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	if strings.Contains(string(art.Code), `global["__bindle__"] =`) {
		t.Error("non-exposing bundle must not publish a registry")
	}

	art, err = Pack(twoModules(), Options{ExposeGlobal: true, GlobalName: "__custom__"})
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	if !strings.Contains(string(art.Code), `global["__custom__"]`) {
		t.Error("custom global name ignored")
	}
}

func TestPackGlobalFallback(t *testing.T) {
	art, err := Pack(twoModules(), Options{})
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	if !strings.Contains(string(art.Code), `shared.require(id)`) {
		t.Error("unknown identities must fall back to the shared registry")
	}
}

func TestPackDepsSorted(t *testing.T) {
	mods := []Module{{
		ID:     "src/a.js",
		Deps:   map[string]string{"./z": "src/z.js", "./a": "src/a2.js"},
		Source: []byte("x"),
	}}
	art, err := Pack(mods, Options{})
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	code := string(art.Code)
	if strings.Index(code, `"./a"`) > strings.Index(code, `"./z"`) {
		t.Error("dependency map keys must serialize in sorted order")
	}
}

func TestPackDuplicateIdentity(t *testing.T) {
	mods := []Module{
		{ID: "src/a.js", Source: []byte("1")},
		{ID: "src/a.js", Source: []byte("2")},
	}
	_, err := Pack(mods, Options{})
	if !errors.Is(err, ErrDuplicateIdentity) {
		t.Errorf("expected ErrDuplicateIdentity, got %v", err)
	}
}

func TestPackNoModules(t *testing.T) {
	if _, err := Pack(nil, Options{}); !errors.Is(err, ErrNoModules) {
		t.Errorf("expected ErrNoModules, got %v", err)
	}
}

func TestPackInlineSourceMap(t *testing.T) {
	art, err := Pack(twoModules(), Options{SourceMap: MapInline})
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	if art.SourceMap != nil {
		t.Error("inline mode must not return a separate map")
	}

	const marker = "//# sourceMappingURL=data:application/json;base64,"
	code := string(art.Code)
	idx := strings.LastIndex(code, marker)
	if idx < 0 {
		t.Fatal("inline source map comment missing")
	}
	payload := strings.TrimSpace(code[idx+len(marker):])
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		t.Fatalf("decode inline map: %v", err)
	}

	var m indexMap
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("unmarshal inline map: %v", err)
	}
	if m.Version != 3 {
		t.Errorf("map version = %d, want 3", m.Version)
	}
	if len(m.Sections) != 2 {
		t.Fatalf("sections = %d, want 2", len(m.Sections))
	}
}

func TestPackExternalSourceMap(t *testing.T) {
	art, err := Pack(twoModules(), Options{
		SourceMap: MapExternal,
		File:      "app.js",
		MapRoot:   "/src",
	})
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	if !strings.Contains(string(art.Code), "//# sourceMappingURL=app.js.map") {
		t.Error("external map reference comment missing")
	}
	if art.SourceMap == nil {
		t.Fatal("external mode must return the map")
	}

	var m indexMap
	if err := json.Unmarshal(art.SourceMap, &m); err != nil {
		t.Fatalf("unmarshal map: %v", err)
	}
	if m.SourceRoot != "/src" {
		t.Errorf("sourceRoot = %q, want /src", m.SourceRoot)
	}

	// Each section offset must point at the first line of that module's
	// embedded source in the artifact.
	lines := strings.Split(string(art.Code), "\n")
	for _, s := range m.Sections {
		if s.Offset.Line >= len(lines) {
			t.Fatalf("section offset %d beyond artifact", s.Offset.Line)
		}
		want := strings.SplitN(s.Map.SourcesContent[0], "\n", 2)[0]
		if lines[s.Offset.Line] != want {
			t.Errorf("line %d = %q, want %q", s.Offset.Line, lines[s.Offset.Line], want)
		}
	}
}

func TestIdentityMappings(t *testing.T) {
	cases := []struct {
		lines int
		want  string
	}{
		{0, ""},
		{1, "AAAA"},
		{3, "AAAA;AACA;AACA"},
	}
	for _, tc := range cases {
		if got := identityMappings(tc.lines); got != tc.want {
			t.Errorf("identityMappings(%d) = %q, want %q", tc.lines, got, tc.want)
		}
	}
}
