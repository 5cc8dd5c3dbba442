package routesdist

import "net/netip"

// RouteAcceptancePolicy controls which received routes are applied to the
// router table (§4.10/§6).
type RouteAcceptancePolicy int

const (
	RouteAcceptNone RouteAcceptancePolicy = iota
	RouteAcceptUnicastInNetwork
	RouteAcceptUnicast
	RouteAcceptSubnet
	RouteAcceptAny
)

// SystemRouteAcceptancePolicy controls which received routes are also
// forwarded to the external system route installer (§4.10/§6). It has a
// distinct, wider vocabulary than RouteAcceptancePolicy because
// installing a route into the OS is a more consequential action than
// merely using it for this node's own forwarding decisions.
type SystemRouteAcceptancePolicy int

const (
	SystemRouteAcceptNone SystemRouteAcceptancePolicy = iota
	SystemRouteAcceptUnicast
	SystemRouteAcceptAny
	SystemRouteAcceptUnicastWithGateway
	SystemRouteAcceptAnyWithGateway
)

// DNSAcceptancePolicy controls which received DNS server entries are
// applied (§4.10/§6).
type DNSAcceptancePolicy int

const (
	DNSAcceptNone DNSAcceptancePolicy = iota
	DNSAcceptInNetwork
	DNSAcceptAny
)

// AcceptancePolicies bundles all three policies plus the per-IP-family
// route count cap (§4.10: "a numeric maximum_routes_limit enforced per IP
// family").
type AcceptancePolicies struct {
	Route             RouteAcceptancePolicy
	SystemRoute       SystemRouteAcceptancePolicy
	DNS               DNSAcceptancePolicy
	MaxRoutesPerFamily int
	// LocalNetwork scopes the *InNetwork policy variants: a received
	// route/DNS server is "in network" when it falls within this prefix.
	LocalNetwork netip.Prefix
}

func isUnicast(addr netip.Addr) bool {
	return !addr.IsMulticast() && !addr.IsLinkLocalMulticast() && !addr.IsInterfaceLocalMulticast()
}

func inLocalNetwork(p netip.Prefix, local netip.Prefix) bool {
	return local.IsValid() && local.Overlaps(p)
}

// AcceptRoute reports whether entry's route should be applied to this
// node's own router table.
func (a AcceptancePolicies) AcceptRoute(entry Entry) bool {
	if !entry.IsRoute() {
		return false
	}
	switch a.Route {
	case RouteAcceptNone:
		return false
	case RouteAcceptAny:
		return true
	case RouteAcceptSubnet:
		return inLocalNetwork(entry.Prefix, a.LocalNetwork)
	case RouteAcceptUnicast:
		return isUnicast(entry.Prefix.Addr())
	case RouteAcceptUnicastInNetwork:
		return isUnicast(entry.Prefix.Addr()) && inLocalNetwork(entry.Prefix, a.LocalNetwork)
	default:
		return false
	}
}

// AcceptSystemRoute reports whether entry's route should additionally be
// forwarded to the external system route installer.
func (a AcceptancePolicies) AcceptSystemRoute(entry Entry) bool {
	if !entry.IsRoute() {
		return false
	}
	switch a.SystemRoute {
	case SystemRouteAcceptNone:
		return false
	case SystemRouteAcceptAny:
		return true
	case SystemRouteAcceptUnicast:
		return isUnicast(entry.Prefix.Addr())
	case SystemRouteAcceptAnyWithGateway:
		return entry.HasGateway()
	case SystemRouteAcceptUnicastWithGateway:
		return entry.HasGateway() && isUnicast(entry.Prefix.Addr())
	default:
		return false
	}
}

// AcceptDNS reports whether entry's DNS server should be applied.
func (a AcceptancePolicies) AcceptDNS(entry Entry) bool {
	if entry.IsRoute() {
		return false
	}
	switch a.DNS {
	case DNSAcceptNone:
		return false
	case DNSAcceptAny:
		return true
	case DNSAcceptInNetwork:
		return a.LocalNetwork.IsValid() && a.LocalNetwork.Contains(entry.DNS)
	default:
		return false
	}
}

// FilterRoutes returns the subset of entries' routes this node should
// apply to its own router table, capped at MaxRoutesPerFamily per IP
// family (§4.10). Entries beyond the cap are dropped, earliest-first
// preserved.
func (a AcceptancePolicies) FilterRoutes(entries []Entry) []Entry {
	var v4, v6 []Entry
	for _, e := range entries {
		if !a.AcceptRoute(e) {
			continue
		}
		if e.IsIPv6() {
			v6 = append(v6, e)
		} else {
			v4 = append(v4, e)
		}
	}
	v4 = capEntries(v4, a.MaxRoutesPerFamily)
	v6 = capEntries(v6, a.MaxRoutesPerFamily)
	out := make([]Entry, 0, len(v4)+len(v6))
	out = append(out, v4...)
	out = append(out, v6...)
	return out
}

func capEntries(entries []Entry, max int) []Entry {
	if max <= 0 || len(entries) <= max {
		return entries
	}
	return entries[:max]
}

// FilterDNS returns the subset of entries' DNS servers this node should
// apply.
func (a AcceptancePolicies) FilterDNS(entries []Entry) []Entry {
	var out []Entry
	for _, e := range entries {
		if a.AcceptDNS(e) {
			out = append(out, e)
		}
	}
	return out
}

// FilterSystemRoutes returns the subset of entries' routes that should be
// forwarded to the external system route installer.
func (a AcceptancePolicies) FilterSystemRoutes(entries []Entry) []Entry {
	var out []Entry
	for _, e := range entries {
		if a.AcceptSystemRoute(e) {
			out = append(out, e)
		}
	}
	return out
}
