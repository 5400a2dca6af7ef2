package resolver

import "strings"

// BuiltinPrefix is the scheme prefixed to synthetic identities of
// platform built-in modules. A specifier like "fs" resolves to
// "builtin:fs" unless an alias maps it to a bundled polyfill.
const BuiltinPrefix = "builtin:"

// builtinModules lists the platform's core module names. Bare specifiers
// matching an entry are never probed on disk; they resolve to a synthetic
// built-in identity (or to their configured alias).
//
// Subpath specifiers like "fs/promises" match on the segment before the
// first slash, and the "node:" prefix is accepted and stripped.
var builtinModules = map[string]bool{
	"assert":         true,
	"buffer":         true,
	"child_process":  true,
	"console":        true,
	"constants":      true,
	"crypto":         true,
	"dgram":          true,
	"dns":            true,
	"events":         true,
	"fs":             true,
	"http":           true,
	"https":          true,
	"module":         true,
	"net":            true,
	"os":             true,
	"path":           true,
	"process":        true,
	"punycode":       true,
	"querystring":    true,
	"readline":       true,
	"stream":         true,
	"string_decoder": true,
	"timers":         true,
	"tls":            true,
	"tty":            true,
	"url":            true,
	"util":           true,
	"vm":             true,
	"zlib":           true,
}

// IsBuiltin reports whether the specifier names a platform built-in
// module, handling "node:" prefixes and subpaths like "fs/promises".
func IsBuiltin(specifier string) bool {
	name := strings.TrimPrefix(specifier, "node:")
	if i := strings.IndexByte(name, '/'); i >= 0 {
		name = name[:i]
	}
	return builtinModules[name]
}

// BuiltinIdentity returns the synthetic identity for a built-in
// specifier, e.g. "builtin:fs" for "node:fs".
func BuiltinIdentity(specifier string) string {
	return BuiltinPrefix + strings.TrimPrefix(specifier, "node:")
}

// IsBuiltinIdentity reports whether an identity uses the built-in scheme.
// Built-in identities have no module record; the packed runtime raises a
// clear error if one is required without a host-provided implementation.
func IsBuiltinIdentity(id string) bool {
	return strings.HasPrefix(id, BuiltinPrefix)
}
