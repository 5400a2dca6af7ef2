// Package resolver maps import specifiers to concrete module identities.
//
// A specifier is resolved relative to the requesting module's location:
// relative specifiers walk the directory tree, bare specifiers either walk
// node_modules directories upward (node mode) or resolve directly under
// the build root (direct mode), and platform built-in names resolve to a
// synthetic "builtin:" identity unless an alias routes them to a bundled
// polyfill.
//
// Identities are root-relative, slash-separated paths and are the sole
// notion of module equality in the build graph. Resolution is
// deterministic: the same (specifier, from) pair always yields the same
// identity within a build.
package resolver

import (
	"context"
	"errors"
	"path"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	berrors "github.com/bindle-sh/bindle/pkg/errors"
	"github.com/bindle-sh/bindle/pkg/vfs"
)

// ErrNotFound is the underlying cause carried by a ResolutionError when
// no file, directory, or built-in shim matches a specifier.
var ErrNotFound = errors.New("no matching module")

// DefaultExtensions is the ordered suffix list a bare path is probed
// against when no exact file matches.
var DefaultExtensions = []string{".js", ".json"}

// manifestCacheSize bounds the per-resolver package manifest LRU.
const manifestCacheSize = 256

// Mode selects how bare (non-relative) specifiers are located.
type Mode int

const (
	// ModeNode walks node_modules directories upward from the requesting
	// module, the strict platform resolution behavior.
	ModeNode Mode = iota
	// ModeDirect resolves bare specifiers as paths directly under the
	// build root, the simplified behavior for non-browser targets.
	ModeDirect
)

// Options configures a Resolver.
type Options struct {
	// Root is the build root directory. All identities are expressed
	// relative to it.
	Root string

	// Extensions is the ordered probe list for bare paths. Defaults to
	// DefaultExtensions; extra configured suffixes are probed after them.
	Extensions []string

	// Aliases maps bare specifiers (typically platform-reserved names) to
	// the root-relative identity of a bundled replacement.
	Aliases map[string]string

	// Mode selects bare-specifier resolution behavior.
	Mode Mode

	// FS is the filesystem used for probing and manifest reads.
	// Defaults to the host filesystem.
	FS vfs.FS
}

// Resolver resolves specifiers to module identities. Create one per build
// with New; the manifest cache is per-resolver so concurrent builds never
// observe each other's state.
//
// Resolver is safe for concurrent use: resolution only reads the
// filesystem and the internal LRU, which is itself synchronized.
type Resolver struct {
	root       string
	extensions []string
	aliases    map[string]string
	mode       Mode
	fs         vfs.FS
	manifests  *lru.Cache[string, *PackageInfo]
}

// New creates a Resolver from options, applying defaults for the
// extension list and filesystem.
func New(opts Options) (*Resolver, error) {
	if opts.FS == nil {
		opts.FS = vfs.OS{}
	}
	exts := opts.Extensions
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	manifests, err := lru.New[string, *PackageInfo](manifestCacheSize)
	if err != nil {
		return nil, err
	}
	return &Resolver{
		root:       path.Clean(opts.Root),
		extensions: exts,
		aliases:    opts.Aliases,
		mode:       opts.Mode,
		fs:         opts.FS,
		manifests:  manifests,
	}, nil
}

// Aliases returns the configured alias specifiers in sorted order.
// Used by diagnostics output.
func (r *Resolver) Aliases() []string {
	keys := make([]string, 0, len(r.aliases))
	for k := range r.aliases {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Resolve maps a specifier used inside the module identified by from to a
// concrete identity. An empty from resolves relative to the build root,
// which is how entry paths are admitted.
//
// On success it returns the identity and, when resolution passed through
// a package manifest, the parsed manifest metadata for the requesting
// node. On failure it returns a *errors.ResolutionError carrying the
// specifier and the requesting identity.
func (r *Resolver) Resolve(ctx context.Context, specifier, from string) (string, *PackageInfo, error) {
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}
	if specifier == "" {
		return "", nil, &berrors.ResolutionError{Specifier: specifier, From: from, Cause: ErrNotFound}
	}

	if alias, ok := r.aliases[specifier]; ok {
		id, info, err := r.probe(path.Clean(alias))
		if err != nil {
			return "", nil, &berrors.ResolutionError{Specifier: specifier, From: from, Cause: err}
		}
		return id, info, nil
	}

	fromDir := "."
	if from != "" {
		fromDir = path.Dir(from)
	}

	var (
		id   string
		info *PackageInfo
		err  error
	)
	switch {
	case strings.HasPrefix(specifier, "./"), strings.HasPrefix(specifier, "../"), specifier == ".", specifier == "..":
		id, info, err = r.probe(path.Join(fromDir, specifier))
	case strings.HasPrefix(specifier, "/"):
		id, info, err = r.probe(path.Clean(strings.TrimPrefix(specifier, "/")))
	case IsBuiltin(specifier):
		return BuiltinIdentity(specifier), nil, nil
	case r.mode == ModeDirect:
		id, info, err = r.probe(path.Clean(specifier))
	default:
		id, info, err = r.walkNodeModules(specifier, fromDir)
	}
	if err != nil {
		return "", nil, &berrors.ResolutionError{Specifier: specifier, From: from, Cause: err}
	}
	return id, info, nil
}

// walkNodeModules probes node_modules/<specifier> in fromDir and each
// ancestor directory up to the build root.
func (r *Resolver) walkNodeModules(specifier, fromDir string) (string, *PackageInfo, error) {
	dir := fromDir
	for {
		id, info, err := r.probe(path.Join(dir, "node_modules", specifier))
		if err == nil {
			return id, info, nil
		}
		if dir == "." || dir == "/" {
			return "", nil, ErrNotFound
		}
		dir = path.Dir(dir)
	}
}

// probe locates a module at the root-relative path rel: the exact file,
// the path with each probe extension appended, or - for a directory - the
// manifest main field and finally an index file.
func (r *Resolver) probe(rel string) (string, *PackageInfo, error) {
	exists, isDir := r.fs.Stat(r.full(rel))
	if exists && !isDir {
		return rel, nil, nil
	}

	for _, ext := range r.extensions {
		candidate := rel + ext
		if ok, dir := r.fs.Stat(r.full(candidate)); ok && !dir {
			return candidate, nil, nil
		}
	}

	if exists && isDir {
		return r.probeDir(rel)
	}
	return "", nil, ErrNotFound
}

// probeDir resolves a directory specifier through its package manifest or
// an index file.
func (r *Resolver) probeDir(dir string) (string, *PackageInfo, error) {
	if info := r.loadManifest(dir); info != nil && info.Main != "" {
		main := path.Join(dir, info.Main)
		if ok, d := r.fs.Stat(r.full(main)); ok && !d {
			return main, info, nil
		}
		for _, ext := range r.extensions {
			if ok, d := r.fs.Stat(r.full(main + ext)); ok && !d {
				return main + ext, info, nil
			}
		}
		// Fall through to index probing when the main field is stale.
	}

	for _, ext := range r.extensions {
		candidate := path.Join(dir, "index"+ext)
		if ok, d := r.fs.Stat(r.full(candidate)); ok && !d {
			return candidate, r.loadManifest(dir), nil
		}
	}
	return "", nil, ErrNotFound
}

// full converts a root-relative identity path to the path handed to the
// filesystem.
func (r *Resolver) full(rel string) string {
	if r.root == "." || r.root == "" {
		return rel
	}
	return path.Join(r.root, rel)
}
