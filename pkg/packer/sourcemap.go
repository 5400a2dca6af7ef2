package packer

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"strings"
)

// MapMode selects how source maps are emitted alongside an artifact.
type MapMode string

const (
	// MapOff disables source-map emission.
	MapOff MapMode = "off"

	// MapInline appends the map to the artifact as a base64 data URL.
	MapInline MapMode = "inline"

	// MapExternal returns the map separately and appends a file
	// reference comment to the artifact.
	MapExternal MapMode = "external"
)

// indexMap is a version-3 index source map: one section per embedded
// module, each carrying an identity mapping back to the original file.
// [ref: https://tc39.es/ecma426/#index-map]
type indexMap struct {
	Version    int       `json:"version"`
	File       string    `json:"file,omitempty"`
	SourceRoot string    `json:"sourceRoot,omitempty"`
	Sections   []section `json:"sections"`
}

type section struct {
	Offset sectionOffset `json:"offset"`
	Map    sourceMap     `json:"map"`
}

type sectionOffset struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

type sourceMap struct {
	Version        int      `json:"version"`
	Sources        []string `json:"sources"`
	SourcesContent []string `json:"sourcesContent"`
	Names          []string `json:"names"`
	Mappings       string   `json:"mappings"`
}

// buildIndexMap assembles the index map for an emitted artifact.
// offsets[i] is the artifact line where modules[i]'s source begins;
// the callers keep the two slices aligned.
func buildIndexMap(modules []Module, offsets []int, opts Options) ([]byte, error) {
	m := indexMap{
		Version:    3,
		File:       opts.File,
		SourceRoot: opts.MapRoot,
		Sections:   make([]section, 0, len(modules)),
	}
	for i, mod := range modules {
		lines := countLines(mod.Source)
		m.Sections = append(m.Sections, section{
			Offset: sectionOffset{Line: offsets[i]},
			Map: sourceMap{
				Version:        3,
				Sources:        []string{mod.ID},
				SourcesContent: []string{string(mod.Source)},
				Names:          []string{},
				Mappings:       identityMappings(lines),
			},
		})
	}
	return json.Marshal(m)
}

// identityMappings builds a line-for-line identity mapping: generated
// line k, column 0 maps to source 0, line k, column 0. In VLQ terms the
// first line is [0,0,0,0] and every following line advances the source
// line by one.
func identityMappings(lines int) string {
	if lines <= 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("AAAA")
	for i := 1; i < lines; i++ {
		b.WriteString(";AACA")
	}
	return b.String()
}

func countLines(src []byte) int {
	if len(src) == 0 {
		return 0
	}
	n := bytes.Count(src, []byte("\n"))
	if src[len(src)-1] != '\n' {
		n++
	}
	return n
}

func encodeInline(m []byte) string {
	return base64.StdEncoding.EncodeToString(m)
}
