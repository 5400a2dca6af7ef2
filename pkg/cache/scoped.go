package cache

// ScopedKeyer wraps a Keyer with a prefix so separate projects sharing
// one cache backend (the serve command's redis instance, for example)
// never collide.
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// GraphKey generates a prefixed key for graph snapshot caching.
func (k *ScopedKeyer) GraphKey(root string, opts GraphKeyOpts) string {
	return k.prefix + k.inner.GraphKey(root, opts)
}

// BundleKey generates a prefixed key for packed artifact caching.
func (k *ScopedKeyer) BundleKey(graphHash string, opts BundleKeyOpts) string {
	return k.prefix + k.inner.BundleKey(graphHash, opts)
}
