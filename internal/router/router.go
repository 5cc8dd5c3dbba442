// Package router implements the layer-3 longest-prefix-match router of
// §4.8: a combined IPv4+IPv6 routing table keyed by (prefix, length)
// pointing to a port index, with equal-length ties broken by insertion
// order.
package router

import (
	"net/netip"

	"github.com/freelan-go/freelan/internal/portfab"
)

type routeEntry struct {
	prefix netip.Prefix
	port   int
	local  bool
}

// Table is the combined IPv4/IPv6 routing table of §4.8.
type Table struct {
	entries []routeEntry
}

// NewTable creates an empty routing table.
func NewTable() *Table {
	return &Table{}
}

// AddRoute inserts a (prefix, port) route. Later calls for the same
// prefix add an additional entry rather than replacing one, preserving
// insertion order for the equal-length tie-break (§4.8: "Ties between
// equal-length prefixes are broken by insertion order (first wins)").
// Callers that want replace semantics should call RemoveRoute first.
func (t *Table) AddRoute(prefix netip.Prefix, port int) {
	t.entries = append(t.entries, routeEntry{prefix: prefix.Masked(), port: port})
}

// AddLocalRoute registers an implicit "local" entry for a configured
// TAP/TUN interface address (§4.8: "the TAP/TUN port has an implicit
// 'local' entry for each configured tap interface address"). A local
// route matches only the single address, encoded as a host prefix.
func (t *Table) AddLocalRoute(addr netip.Addr, tapPort int) {
	bits := addr.BitLen()
	prefix := netip.PrefixFrom(addr, bits)
	t.entries = append(t.entries, routeEntry{prefix: prefix, port: tapPort, local: true})
}

// RemoveRoute removes all entries exactly matching prefix and port (used
// when a peer's advertised route is withdrawn or superseded, §4.10).
func (t *Table) RemoveRoute(prefix netip.Prefix, port int) {
	masked := prefix.Masked()
	out := t.entries[:0]
	for _, e := range t.entries {
		if e.prefix == masked && e.port == port {
			continue
		}
		out = append(out, e)
	}
	t.entries = out
}

// RemoveRoutesForPort removes every route pointing at port, e.g. when a
// peer disconnects.
func (t *Table) RemoveRoutesForPort(port int) {
	out := t.entries[:0]
	for _, e := range t.entries {
		if e.port == port {
			continue
		}
		out = append(out, e)
	}
	t.entries = out
}

// Lookup performs longest-prefix match for addr, returning the winning
// port. Among entries of equal (maximal) prefix length, the first
// inserted wins (§4.8).
func (t *Table) Lookup(addr netip.Addr) (port int, ok bool) {
	bestLen := -1
	found := false
	for _, e := range t.entries {
		if !e.prefix.Contains(addr) {
			continue
		}
		length := e.prefix.Bits()
		if length > bestLen {
			bestLen = length
			port = e.port
			found = true
		}
	}
	return port, found
}

// Len returns the number of entries in the table (local routes included).
func (t *Table) Len() int {
	return len(t.entries)
}

// Router forwards IP packets across ports using longest-prefix match
// (§4.8). It shares the portfab.Set abstraction with internal/switchfab.
type Router struct {
	ports *portfab.Set
	table *Table
}

// New creates a Router over ports and table.
func New(ports *portfab.Set, table *Table) *Router {
	return &Router{ports: ports, table: table}
}

// Table exposes the underlying routing table, mainly for diagnostics and
// for internal/routesdist to mutate on route advertisements.
func (r *Router) Table() *Table { return r.table }

// Forward looks up dst and writes packet to the winning port. When no
// route matches, the packet is silently dropped (§4.8: "silently dropped
// with a debug log" — logging is the orchestrator's responsibility, this
// method just reports the miss via ok=false).
func (r *Router) Forward(dst netip.Addr, packet []byte, completion func([]portfab.WriteResult)) (port int, ok bool) {
	port, ok = r.table.Lookup(dst)
	if !ok {
		return 0, false
	}
	r.ports.WriteTo([]int{port}, packet, completion)
	return port, true
}
