package source

import (
	"regexp"
)

// Scanner is the default dependency extractor: a textual scan for
// require calls and static import declarations. Comments are stripped
// first so commented-out requires do not grow the graph; string contexts
// other than the specifier itself are not interpreted, which matches the
// conventional behavior of lightweight bundlers.
type Scanner struct{}

var (
	requirePattern = regexp.MustCompile(`(?:^|[^\w.$])require\s*\(\s*(['"])([^'"\n]+)['"]\s*\)`)
	importPattern  = regexp.MustCompile(`(?m)^\s*import\s+(?:[\w${},*\s]+\s+from\s+)?(['"])([^'"\n]+)['"]`)
	exportPattern  = regexp.MustCompile(`(?m)^\s*export\s+[\w${},*\s]+\s+from\s+(['"])([^'"\n]+)['"]`)
	lineComment    = regexp.MustCompile(`//[^\n]*`)
	blockComment   = regexp.MustCompile(`(?s)/\*.*?\*/`)
)

// Extract returns the ordered list of raw specifier strings referenced by
// src. Duplicates are preserved; the graph layer deduplicates edges.
func (Scanner) Extract(src []byte) []string {
	clean := blockComment.ReplaceAll(src, nil)
	clean = lineComment.ReplaceAll(clean, nil)

	type hit struct {
		pos  int
		spec string
	}
	var hits []hit
	for _, pattern := range []*regexp.Regexp{requirePattern, importPattern, exportPattern} {
		for _, m := range pattern.FindAllSubmatchIndex(clean, -1) {
			hits = append(hits, hit{pos: m[0], spec: string(clean[m[4]:m[5]])})
		}
	}

	// Restore source order across the three patterns.
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j-1].pos > hits[j].pos; j-- {
			hits[j-1], hits[j] = hits[j], hits[j-1]
		}
	}

	specs := make([]string, len(hits))
	for i, h := range hits {
		specs[i] = h.spec
	}
	return specs
}
