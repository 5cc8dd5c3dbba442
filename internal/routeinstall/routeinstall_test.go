package routeinstall

import (
	"errors"
	"net/netip"
	"testing"
)

func TestAdapterInstallRouteDelegates(t *testing.T) {
	fake := &FakeInstaller{}
	a := NewAdapter(fake)

	prefix := netip.MustParsePrefix("192.168.1.0/24")
	gw := netip.MustParseAddr("10.0.0.1")
	if err := a.InstallRoute(prefix, gw); err != nil {
		t.Fatalf("InstallRoute: %v", err)
	}
	if len(fake.Installed) != 1 || fake.Installed[0].DestinationPrefix != prefix || fake.Installed[0].Gateway != gw {
		t.Fatalf("expected the route to be recorded, got %+v", fake.Installed)
	}
}

func TestAdapterRemoveRouteDelegates(t *testing.T) {
	fake := &FakeInstaller{}
	a := NewAdapter(fake)

	prefix := netip.MustParsePrefix("10.0.0.0/8")
	if err := a.RemoveRoute(prefix); err != nil {
		t.Fatalf("RemoveRoute: %v", err)
	}
	if len(fake.Uninstalled) != 1 || fake.Uninstalled[0].DestinationPrefix != prefix {
		t.Fatalf("expected the route to be recorded as uninstalled, got %+v", fake.Uninstalled)
	}
}

func TestAdapterPropagatesInstallError(t *testing.T) {
	wantErr := errors.New("boom")
	fake := &FakeInstaller{InstallErr: wantErr}
	a := NewAdapter(fake)

	if err := a.InstallRoute(netip.MustParsePrefix("10.0.0.0/8"), netip.Addr{}); !errors.Is(err, wantErr) {
		t.Fatalf("expected InstallRoute to propagate the underlying error, got %v", err)
	}
}

func TestNoopInstallerNeverFails(t *testing.T) {
	n := NoopInstaller{}
	if err := n.Install(Route{DestinationPrefix: netip.MustParsePrefix("10.0.0.0/8")}); err != nil {
		t.Fatalf("Install: %v", err)
	}
	if err := n.Uninstall(Route{}); err != nil {
		t.Fatalf("Uninstall: %v", err)
	}
}
