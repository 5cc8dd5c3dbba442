package switchfab

import "github.com/freelan-go/freelan/internal/portfab"

// RoutingMethod selects between learning-switch and always-flood behavior
// (§4.7: "A routing_method setting selects between switch ... and hub").
type RoutingMethod int

const (
	RoutingMethodSwitch RoutingMethod = iota
	RoutingMethodHub
)

// Switch implements the layer-2 learning switch of §4.7 over a shared
// portfab.Set.
type Switch struct {
	ports            *portfab.Set
	table            *MACTable
	routingMethod    RoutingMethod
	relayModeEnabled bool
}

// Options configures a Switch.
type Options struct {
	Capacity         int
	RoutingMethod    RoutingMethod
	RelayModeEnabled bool
}

// New creates a Switch over ports, backed by a MAC table with the
// configured capacity (default 1024, §4.3).
func New(ports *portfab.Set, opts Options) *Switch {
	return &Switch{
		ports:            ports,
		table:            NewMACTable(opts.Capacity),
		routingMethod:    opts.RoutingMethod,
		relayModeEnabled: opts.RelayModeEnabled,
	}
}

// Table exposes the underlying MAC table, mainly for diagnostics.
func (s *Switch) Table() *MACTable { return s.table }

// Forward implements the §4.7 forwarding rules for a frame arriving on
// port fromIndex. It is fail-silent on a too-short frame: it returns
// without attempting any write or calling completion.
func (s *Switch) Forward(fromIndex int, frame []byte, completion func([]portfab.WriteResult)) {
	dst, src, ok := ParseEthernetHeader(frame)
	if !ok {
		return
	}

	if src.IsUnicast() {
		s.table.Learn(src, fromIndex)
	}

	from, fromOK := s.ports.Get(fromIndex)
	if !fromOK {
		return
	}

	if s.routingMethod == RoutingMethodSwitch && dst.IsUnicast() && !dst.IsBroadcast() {
		if port, ok := s.table.Lookup(dst); ok && port != fromIndex {
			if target, ok := s.ports.Get(port); ok && portfab.AllowForwarding(from.Group, target.Group, s.relayModeEnabled) {
				s.ports.WriteTo([]int{port}, frame, completion)
				return
			}
		}
	}

	// Unknown unicast, broadcast, multicast, or hub mode: flood to every
	// compatible port other than the source.
	var targets []int
	for _, p := range s.ports.Snapshot() {
		if p.Index == fromIndex {
			continue
		}
		if portfab.AllowForwarding(from.Group, p.Group, s.relayModeEnabled) {
			targets = append(targets, p.Index)
		}
	}
	s.ports.WriteTo(targets, frame, completion)
}
