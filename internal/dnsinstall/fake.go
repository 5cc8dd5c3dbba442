package dnsinstall

import "net/netip"

type dnsCall struct {
	iface string
	addr  netip.Addr
}

// FakeInstaller records every Add/Remove call for assertions in tests.
type FakeInstaller struct {
	Added   []dnsCall
	Removed []dnsCall
}

func (f *FakeInstaller) AddDNSServer(iface string, addr netip.Addr) error {
	f.Added = append(f.Added, dnsCall{iface, addr})
	return nil
}

func (f *FakeInstaller) RemoveDNSServer(iface string, addr netip.Addr) error {
	f.Removed = append(f.Removed, dnsCall{iface, addr})
	return nil
}
