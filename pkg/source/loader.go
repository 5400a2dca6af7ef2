// Package source loads module content and runs the per-module stages that
// precede dependency resolution: content reads, JSON normalization,
// identity assignment, and the optional syntax check.
//
// These stages are collaborators of the bundling engine, not part of it:
// the engine consumes them through the [Loader] and the bundler's
// extractor interface, and alternative implementations (transpilers,
// richer parsers) can replace the defaults without touching the engine.
package source

import (
	"bytes"
	"fmt"
	"path"
	"strings"

	"github.com/bindle-sh/bindle/pkg/graph"
	"github.com/bindle-sh/bindle/pkg/vfs"
)

// Loader reads module content by identity and applies the post-read
// normalization stages. One Loader serves one build root.
type Loader struct {
	fs        vfs.FS
	root      string
	validator Validator
}

// NewLoader creates a loader over the given filesystem and build root.
// A nil validator disables the syntax check stage.
func NewLoader(fs vfs.FS, root string, validator Validator) *Loader {
	if fs == nil {
		fs = vfs.OS{}
	}
	return &Loader{fs: fs, root: path.Clean(root), validator: validator}
}

// Module is the in-flight state of one module as it moves through the
// loading stages.
type Module struct {
	Identity string
	Kind     graph.Kind
	Source   []byte
}

// stage is one named per-module phase run before resolution.
type stage struct {
	name string
	run  func(l *Loader, m *Module) error
}

// stages is the fixed per-module sequence. Order matters: classification
// feeds normalization, and validation must see normalized content.
var stages = []stage{
	{"classify", (*Loader).classify},
	{"normalize", (*Loader).normalize},
	{"validate", (*Loader).validate},
}

// Load reads the module with the given identity and runs it through the
// loading stages: kind classification, JSON normalization, and the
// optional syntax check. The returned kind reflects the content type
// after normalization.
func (l *Loader) Load(identity string) ([]byte, graph.Kind, error) {
	data, err := l.fs.ReadFile(l.full(identity))
	if err != nil {
		return nil, graph.KindOther, err
	}

	m := &Module{Identity: identity, Source: data}
	for _, st := range stages {
		if err := st.run(l, m); err != nil {
			return nil, m.Kind, fmt.Errorf("%s %s: %w", st.name, identity, err)
		}
	}
	return m.Source, m.Kind, nil
}

func (l *Loader) classify(m *Module) error {
	m.Kind = KindOf(m.Identity)
	return nil
}

func (l *Loader) normalize(m *Module) error {
	if m.Kind == graph.KindJSON {
		m.Source = NormalizeJSON(m.Source)
	}
	return nil
}

func (l *Loader) validate(m *Module) error {
	if l.validator == nil || m.Kind == graph.KindOther {
		return nil
	}
	return l.validator.Validate(m.Identity, m.Source)
}

// KindOf classifies a module identity by suffix.
func KindOf(identity string) graph.Kind {
	switch {
	case strings.HasSuffix(identity, ".json"):
		return graph.KindJSON
	case strings.HasSuffix(identity, ".js"):
		return graph.KindScript
	default:
		return graph.KindOther
	}
}

// NormalizeJSON wraps raw JSON content in an export assignment so the
// module participates in the bundle like any script. The input is not
// re-encoded; invalid JSON surfaces later through the syntax check or at
// runtime, matching how script content is treated.
func NormalizeJSON(data []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(len(data) + 32)
	buf.WriteString("module.exports = ")
	buf.Write(bytes.TrimSpace(data))
	buf.WriteString(";")
	return buf.Bytes()
}

// Identify converts a build-root-relative file path into a stable module
// identity: a cleaned, slash-separated, root-relative path.
func Identify(p string) string {
	id := path.Clean(strings.ReplaceAll(p, "\\", "/"))
	return strings.TrimPrefix(id, "./")
}

func (l *Loader) full(identity string) string {
	if l.root == "." || l.root == "" {
		return identity
	}
	return path.Join(l.root, identity)
}
