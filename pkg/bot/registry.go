package bot

import "sync/atomic"

// Registry is the authoritative mapping from bot id to live handle. It follows a
// publish-on-write, snapshot-on-read discipline: the single writer (the
// host's action loop) publishes a fresh immutable map on every mutation,
// and readers always observe the latest fully-formed snapshot. Readers
// never block the writer and vice versa.
type Registry struct {
	v atomic.Value // map[string]*Bot, never mutated after publish
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	r := &Registry{}
	r.v.Store(map[string]*Bot{})
	return r
}

// Publish replaces the visible snapshot. The caller must not mutate the
// map after publishing.
func (r *Registry) Publish(bots map[string]*Bot) {
	r.v.Store(bots)
}

// Snapshot returns the current map. Callers treat it as read-only.
func (r *Registry) Snapshot() map[string]*Bot {
	return r.v.Load().(map[string]*Bot)
}

// Lookup resolves a bot handle by identity.
func (r *Registry) Lookup(botID string) (*Bot, bool) {
	b, ok := r.Snapshot()[botID]
	return b, ok
}

// Len reports how many bots are currently connected.
func (r *Registry) Len() int {
	return len(r.Snapshot())
}
