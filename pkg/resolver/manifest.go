package resolver

import (
	"encoding/json"
	"path"
)

// manifestName is the package manifest file consulted when a specifier
// resolves to a directory.
const manifestName = "package.json"

// PackageInfo is the advisory metadata extracted from a package manifest
// encountered during resolution. It is attached to the requesting module
// for downstream use (display, diagnostics); the core algorithm does not
// depend on it.
type PackageInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Main    string `json:"main"`
}

// loadManifest parses the package.json inside dir, memoizing the result
// in the per-resolver LRU. Returns nil with no error if the directory has
// no manifest; a present but unparsable manifest is also treated as
// absent, since main-field fallback to index probing is the conventional
// behavior.
func (r *Resolver) loadManifest(dir string) *PackageInfo {
	if info, ok := r.manifests.Get(dir); ok {
		return info
	}

	var info *PackageInfo
	data, err := r.fs.ReadFile(r.full(path.Join(dir, manifestName)))
	if err == nil {
		var parsed PackageInfo
		if json.Unmarshal(data, &parsed) == nil {
			info = &parsed
		}
	}
	r.manifests.Add(dir, info)
	return info
}
