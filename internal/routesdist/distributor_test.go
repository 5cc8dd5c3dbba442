package routesdist

import (
	"net/netip"
	"testing"

	"github.com/freelan-go/freelan/internal/router"
)

type fakeRouteInstaller struct {
	installed []netip.Prefix
	removed   []netip.Prefix
}

func (f *fakeRouteInstaller) InstallRoute(prefix netip.Prefix, gateway netip.Addr) error {
	f.installed = append(f.installed, prefix)
	return nil
}
func (f *fakeRouteInstaller) RemoveRoute(prefix netip.Prefix) error {
	f.removed = append(f.removed, prefix)
	return nil
}

func TestDistributorAppliesRoutesAndRejectsStaleVersion(t *testing.T) {
	tbl := router.NewTable()
	policies := AcceptancePolicies{Route: RouteAcceptAny, SystemRoute: SystemRouteAcceptAny, MaxRoutesPerFamily: 100}
	installer := &fakeRouteInstaller{}
	d := NewDistributor(tbl, policies, installer, nil)

	peer := netip.MustParseAddrPort("203.0.113.1:9000")
	msg := RoutesMessage{
		Version: 1,
		Entries: []Entry{NewRouteEntry(netip.MustParsePrefix("10.1.0.0/16"), netip.Addr{})},
	}
	if err := d.HandleRoutes(peer, 3, msg); err != nil {
		t.Fatalf("HandleRoutes: %v", err)
	}
	if port, ok := tbl.Lookup(netip.MustParseAddr("10.1.2.3")); !ok || port != 3 {
		t.Fatalf("expected route applied to port 3, got %d (ok=%v)", port, ok)
	}
	if len(installer.installed) != 1 {
		t.Fatalf("expected 1 installed system route, got %d", len(installer.installed))
	}

	// A stale (non-increasing) version must be rejected and must not
	// touch the table.
	staleMsg := RoutesMessage{Version: 1, Entries: nil}
	if err := d.HandleRoutes(peer, 3, staleMsg); err != ErrStaleVersion {
		t.Fatalf("expected ErrStaleVersion, got %v", err)
	}
	if port, ok := tbl.Lookup(netip.MustParseAddr("10.1.2.3")); !ok || port != 3 {
		t.Fatalf("expected route to remain after stale update was rejected")
	}
}

func TestDistributorNewerVersionReplacesRoutes(t *testing.T) {
	tbl := router.NewTable()
	policies := AcceptancePolicies{Route: RouteAcceptAny, MaxRoutesPerFamily: 100}
	d := NewDistributor(tbl, policies, nil, nil)

	peer := netip.MustParseAddrPort("203.0.113.1:9000")
	first := RoutesMessage{Version: 1, Entries: []Entry{
		NewRouteEntry(netip.MustParsePrefix("10.1.0.0/16"), netip.Addr{}),
	}}
	if err := d.HandleRoutes(peer, 3, first); err != nil {
		t.Fatal(err)
	}

	second := RoutesMessage{Version: 2, Entries: []Entry{
		NewRouteEntry(netip.MustParsePrefix("10.9.0.0/16"), netip.Addr{}),
	}}
	if err := d.HandleRoutes(peer, 3, second); err != nil {
		t.Fatal(err)
	}

	if _, ok := tbl.Lookup(netip.MustParseAddr("10.1.2.3")); ok {
		t.Fatalf("expected old route to be withdrawn on update")
	}
	if port, ok := tbl.Lookup(netip.MustParseAddr("10.9.2.3")); !ok || port != 3 {
		t.Fatalf("expected new route to be applied")
	}
}

func TestDistributorDisconnectClearsState(t *testing.T) {
	tbl := router.NewTable()
	policies := AcceptancePolicies{Route: RouteAcceptAny, MaxRoutesPerFamily: 100}
	d := NewDistributor(tbl, policies, nil, nil)

	peer := netip.MustParseAddrPort("203.0.113.1:9000")
	msg := RoutesMessage{Version: 1, Entries: []Entry{
		NewRouteEntry(netip.MustParsePrefix("10.1.0.0/16"), netip.Addr{}),
	}}
	if err := d.HandleRoutes(peer, 3, msg); err != nil {
		t.Fatal(err)
	}
	d.Disconnect(peer, 3)

	if _, ok := tbl.Lookup(netip.MustParseAddr("10.1.2.3")); ok {
		t.Fatalf("expected routes to be removed on disconnect")
	}
	// A version that would have been stale before disconnect must now be
	// accepted again.
	if err := d.HandleRoutes(peer, 3, msg); err != nil {
		t.Fatalf("expected version to be accepted again after disconnect, got %v", err)
	}
}
