package routesdist

import "net/netip"

// VersionTracker records the last accepted ROUTES version per peer
// endpoint (§4.10: "compare version against the per-peer stored version;
// discard if not strictly greater").
type VersionTracker struct {
	versions map[netip.AddrPort]uint32
}

// NewVersionTracker creates an empty tracker.
func NewVersionTracker() *VersionTracker {
	return &VersionTracker{versions: make(map[netip.AddrPort]uint32)}
}

// Accept reports whether version is strictly greater than the stored
// version for peer (or there is none stored yet), and if so records it.
func (t *VersionTracker) Accept(peer netip.AddrPort, version uint32) bool {
	stored, ok := t.versions[peer]
	if ok && version <= stored {
		return false
	}
	t.versions[peer] = version
	return true
}

// Forget drops the stored version for peer, e.g. on disconnect.
func (t *VersionTracker) Forget(peer netip.AddrPort) {
	delete(t.versions, peer)
}
