package viz

import (
	"strings"
	"testing"

	"github.com/bindle-sh/bindle/pkg/graph"
)

func testGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.New()
	a, err := g.AddNode("src/a.js")
	if err != nil {
		t.Fatal(err)
	}
	a.Entry = true
	if err := g.AddEdge("src/a.js", "src/b.js", "./b"); err != nil {
		t.Fatal(err)
	}
	if b, ok := g.Node("src/b.js"); ok {
		b.Shared = true
		b.Kind = graph.KindJSON
	}
	return g
}

func TestToDOT(t *testing.T) {
	dot := ToDOT(testGraph(t), Options{})

	for _, want := range []string{
		"digraph modules {",
		`"src/a.js"`,
		`"src/b.js"`,
		`"src/a.js" -> "src/b.js";`,
		"penwidth=2",         // entry outline
		"fillcolor=lightgrey", // shared fill
		"shape=ellipse",      // JSON shape
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %q:\n%s", want, dot)
		}
	}
}

func TestToDOTSpecifierLabels(t *testing.T) {
	dot := ToDOT(testGraph(t), Options{Specifiers: true})
	if !strings.Contains(dot, `[label="./b"]`) {
		t.Errorf("edge specifier label missing:\n%s", dot)
	}
}

func TestToDOTDetailed(t *testing.T) {
	dot := ToDOT(testGraph(t), Options{Detailed: true})
	if !strings.Contains(dot, "kind: json") {
		t.Errorf("detailed label missing kind:\n%s", dot)
	}
	if !strings.Contains(dot, "dependants: 1") {
		t.Errorf("detailed label missing dependant count:\n%s", dot)
	}
}
