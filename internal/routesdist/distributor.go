package routesdist

import (
	"net/netip"
	"time"

	"github.com/freelan-go/freelan/internal/router"
)

// DefaultReRequestInterval is the §4.10 periodic ROUTES_REQUEST timer
// default.
const DefaultReRequestInterval = 180 * time.Second

// RouteInstaller pushes accepted system routes to the host's routing
// table (§6 external interfaces).
type RouteInstaller interface {
	InstallRoute(prefix netip.Prefix, gateway netip.Addr) error
	RemoveRoute(prefix netip.Prefix) error
}

// DNSInstaller pushes accepted DNS servers to the host's resolver
// configuration (§6 external interfaces).
type DNSInstaller interface {
	InstallDNSServer(addr netip.Addr) error
	RemoveDNSServer(addr netip.Addr) error
}

// Distributor applies inbound ROUTES messages to the router table and,
// per the configured acceptance policies, to the external system route
// and DNS installers (§4.10).
type Distributor struct {
	table    *router.Table
	versions *VersionTracker
	policies AcceptancePolicies

	routeInstaller RouteInstaller
	dnsInstaller   DNSInstaller

	// installed tracks what this distributor has pushed to the external
	// installers per peer, so a superseding ROUTES can cleanly remove
	// what is no longer advertised.
	installedRoutes map[netip.AddrPort][]netip.Prefix
	installedDNS    map[netip.AddrPort][]netip.Addr
}

// NewDistributor builds a Distributor over table, applying policies to
// every inbound ROUTES message. routeInstaller/dnsInstaller may be nil, in
// which case system-route/DNS installation is skipped (router-table
// application still happens).
func NewDistributor(table *router.Table, policies AcceptancePolicies, routeInstaller RouteInstaller, dnsInstaller DNSInstaller) *Distributor {
	return &Distributor{
		table:           table,
		versions:        NewVersionTracker(),
		policies:        policies,
		routeInstaller:  routeInstaller,
		dnsInstaller:    dnsInstaller,
		installedRoutes: make(map[netip.AddrPort][]netip.Prefix),
		installedDNS:    make(map[netip.AddrPort][]netip.Addr),
	}
}

// HandleRoutes processes a ROUTES message received from peer on
// peerPort. It returns ErrStaleVersion (and does nothing else) if the
// message's version is not strictly newer than the stored one for peer.
func (d *Distributor) HandleRoutes(peer netip.AddrPort, peerPort int, msg RoutesMessage) error {
	if !d.versions.Accept(peer, msg.Version) {
		return ErrStaleVersion
	}

	d.table.RemoveRoutesForPort(peerPort)
	for _, e := range d.policies.FilterRoutes(msg.Entries) {
		d.table.AddRoute(e.Prefix, peerPort)
	}

	if d.routeInstaller != nil {
		d.reconcileSystemRoutes(peer, msg.Entries)
	}
	if d.dnsInstaller != nil {
		d.reconcileDNS(peer, msg.Entries)
	}
	return nil
}

func (d *Distributor) reconcileSystemRoutes(peer netip.AddrPort, entries []Entry) {
	accepted := d.policies.FilterSystemRoutes(entries)
	newPrefixes := make([]netip.Prefix, 0, len(accepted))
	for _, e := range accepted {
		newPrefixes = append(newPrefixes, e.Prefix)
	}

	for _, old := range d.installedRoutes[peer] {
		if !containsPrefix(newPrefixes, old) {
			_ = d.routeInstaller.RemoveRoute(old)
		}
	}
	for _, e := range accepted {
		_ = d.routeInstaller.InstallRoute(e.Prefix, e.Gateway)
	}
	d.installedRoutes[peer] = newPrefixes
}

func (d *Distributor) reconcileDNS(peer netip.AddrPort, entries []Entry) {
	accepted := d.policies.FilterDNS(entries)
	newAddrs := make([]netip.Addr, 0, len(accepted))
	for _, e := range accepted {
		newAddrs = append(newAddrs, e.DNS)
	}

	for _, old := range d.installedDNS[peer] {
		if !containsAddr(newAddrs, old) {
			_ = d.dnsInstaller.RemoveDNSServer(old)
		}
	}
	for _, e := range accepted {
		_ = d.dnsInstaller.InstallDNSServer(e.DNS)
	}
	d.installedDNS[peer] = newAddrs
}

func containsPrefix(haystack []netip.Prefix, needle netip.Prefix) bool {
	for _, p := range haystack {
		if p == needle {
			return true
		}
	}
	return false
}

func containsAddr(haystack []netip.Addr, needle netip.Addr) bool {
	for _, a := range haystack {
		if a == needle {
			return true
		}
	}
	return false
}

// Disconnect forgets all per-peer state for peer, e.g. when its session
// is lost (§4.3).
func (d *Distributor) Disconnect(peer netip.AddrPort, peerPort int) {
	d.versions.Forget(peer)
	d.table.RemoveRoutesForPort(peerPort)
	delete(d.installedRoutes, peer)
	delete(d.installedDNS, peer)
}
