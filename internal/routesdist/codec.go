package routesdist

import "net/netip"

// EntryKind tags a ROUTES payload entry (§4.10).
type EntryKind uint8

const (
	EntryIPv4Route          EntryKind = 0x01
	EntryIPv4RouteGateway    EntryKind = 0x02
	EntryIPv6Route          EntryKind = 0x03
	EntryIPv6RouteGateway    EntryKind = 0x04
	EntryDNSServerIPv4      EntryKind = 0x05
	EntryDNSServerIPv6      EntryKind = 0x06
)

// Entry is one typed entry of a ROUTES payload: either a route (with an
// optional gateway) or a DNS server address.
type Entry struct {
	Kind    EntryKind
	Prefix  netip.Prefix // valid for route kinds
	Gateway netip.Addr   // valid for the two "w/ gateway" kinds
	DNS     netip.Addr   // valid for the two DNS server kinds
}

// IsRoute reports whether e carries a route (as opposed to a DNS server).
func (e Entry) IsRoute() bool {
	switch e.Kind {
	case EntryIPv4Route, EntryIPv4RouteGateway, EntryIPv6Route, EntryIPv6RouteGateway:
		return true
	default:
		return false
	}
}

// HasGateway reports whether e is one of the "w/ gateway" route kinds.
func (e Entry) HasGateway() bool {
	return e.Kind == EntryIPv4RouteGateway || e.Kind == EntryIPv6RouteGateway
}

// IsIPv6 reports whether e concerns IPv6 addressing.
func (e Entry) IsIPv6() bool {
	return e.Kind == EntryIPv6Route || e.Kind == EntryIPv6RouteGateway || e.Kind == EntryDNSServerIPv6
}

func ipv4Route(prefix netip.Prefix) Entry   { return Entry{Kind: EntryIPv4Route, Prefix: prefix} }
func ipv6Route(prefix netip.Prefix) Entry   { return Entry{Kind: EntryIPv6Route, Prefix: prefix} }
func ipv4RouteGW(prefix netip.Prefix, gw netip.Addr) Entry {
	return Entry{Kind: EntryIPv4RouteGateway, Prefix: prefix, Gateway: gw}
}
func ipv6RouteGW(prefix netip.Prefix, gw netip.Addr) Entry {
	return Entry{Kind: EntryIPv6RouteGateway, Prefix: prefix, Gateway: gw}
}
func dnsIPv4(addr netip.Addr) Entry { return Entry{Kind: EntryDNSServerIPv4, DNS: addr} }
func dnsIPv6(addr netip.Addr) Entry { return Entry{Kind: EntryDNSServerIPv6, DNS: addr} }

// NewRouteEntry builds a route entry, adding a gateway when gw is valid.
func NewRouteEntry(prefix netip.Prefix, gw netip.Addr) Entry {
	addr := prefix.Addr()
	switch {
	case addr.Is4() && gw.IsValid():
		return ipv4RouteGW(prefix, gw)
	case addr.Is4():
		return ipv4Route(prefix)
	case gw.IsValid():
		return ipv6RouteGW(prefix, gw)
	default:
		return ipv6Route(prefix)
	}
}

// NewDNSEntry builds a DNS server entry for addr.
func NewDNSEntry(addr netip.Addr) Entry {
	if addr.Is4() {
		return dnsIPv4(addr)
	}
	return dnsIPv6(addr)
}

// RoutesMessage is the decoded ROUTES payload of §4.10.
type RoutesMessage struct {
	Version uint32
	Entries []Entry
}

// Encode serializes m as a ROUTES payload.
func (m RoutesMessage) Encode() []byte {
	buf := make([]byte, 4, 4+len(m.Entries)*24)
	buf[0] = byte(m.Version >> 24)
	buf[1] = byte(m.Version >> 16)
	buf[2] = byte(m.Version >> 8)
	buf[3] = byte(m.Version)

	for _, e := range m.Entries {
		buf = append(buf, byte(e.Kind))
		switch e.Kind {
		case EntryIPv4Route:
			buf = appendPrefix4(buf, e.Prefix)
		case EntryIPv4RouteGateway:
			buf = appendPrefix4(buf, e.Prefix)
			gw4 := e.Gateway.As4()
			buf = append(buf, gw4[:]...)
		case EntryIPv6Route:
			buf = appendPrefix16(buf, e.Prefix)
		case EntryIPv6RouteGateway:
			buf = appendPrefix16(buf, e.Prefix)
			gw16 := e.Gateway.As16()
			buf = append(buf, gw16[:]...)
		case EntryDNSServerIPv4:
			addr4 := e.DNS.As4()
			buf = append(buf, addr4[:]...)
		case EntryDNSServerIPv6:
			addr16 := e.DNS.As16()
			buf = append(buf, addr16[:]...)
		}
	}
	return buf
}

func appendPrefix4(buf []byte, p netip.Prefix) []byte {
	buf = append(buf, byte(p.Bits()))
	a4 := p.Addr().As4()
	return append(buf, a4[:]...)
}

func appendPrefix16(buf []byte, p netip.Prefix) []byte {
	buf = append(buf, byte(p.Bits()))
	a16 := p.Addr().As16()
	return append(buf, a16[:]...)
}

// DecodeRoutesMessage parses a ROUTES payload.
func DecodeRoutesMessage(buf []byte) (RoutesMessage, error) {
	if len(buf) < 4 {
		return RoutesMessage{}, ErrTruncated
	}
	version := uint32(buf[0])<<24 | uint32(buf[1])<<16 | uint32(buf[2])<<8 | uint32(buf[3])
	buf = buf[4:]

	var entries []Entry
	for len(buf) > 0 {
		tag := EntryKind(buf[0])
		buf = buf[1:]
		var e Entry
		var err error
		switch tag {
		case EntryIPv4Route:
			e.Kind = tag
			e.Prefix, buf, err = decodePrefix4(buf)
		case EntryIPv4RouteGateway:
			e.Kind = tag
			e.Prefix, buf, err = decodePrefix4(buf)
			if err == nil {
				e.Gateway, buf, err = decodeAddr4(buf)
			}
		case EntryIPv6Route:
			e.Kind = tag
			e.Prefix, buf, err = decodePrefix16(buf)
		case EntryIPv6RouteGateway:
			e.Kind = tag
			e.Prefix, buf, err = decodePrefix16(buf)
			if err == nil {
				e.Gateway, buf, err = decodeAddr16(buf)
			}
		case EntryDNSServerIPv4:
			e.Kind = tag
			e.DNS, buf, err = decodeAddr4(buf)
		case EntryDNSServerIPv6:
			e.Kind = tag
			e.DNS, buf, err = decodeAddr16(buf)
		default:
			return RoutesMessage{}, ErrUnknownEntryTag
		}
		if err != nil {
			return RoutesMessage{}, err
		}
		entries = append(entries, e)
	}

	return RoutesMessage{Version: version, Entries: entries}, nil
}

func decodePrefix4(buf []byte) (netip.Prefix, []byte, error) {
	if len(buf) < 5 {
		return netip.Prefix{}, nil, ErrTruncated
	}
	length := int(buf[0])
	addr := netip.AddrFrom4([4]byte(buf[1:5]))
	return netip.PrefixFrom(addr, length), buf[5:], nil
}

func decodePrefix16(buf []byte) (netip.Prefix, []byte, error) {
	if len(buf) < 17 {
		return netip.Prefix{}, nil, ErrTruncated
	}
	length := int(buf[0])
	addr := netip.AddrFrom16([16]byte(buf[1:17]))
	return netip.PrefixFrom(addr, length), buf[17:], nil
}

func decodeAddr4(buf []byte) (netip.Addr, []byte, error) {
	if len(buf) < 4 {
		return netip.Addr{}, nil, ErrTruncated
	}
	return netip.AddrFrom4([4]byte(buf[0:4])), buf[4:], nil
}

func decodeAddr16(buf []byte) (netip.Addr, []byte, error) {
	if len(buf) < 16 {
		return netip.Addr{}, nil, ErrTruncated
	}
	return netip.AddrFrom16([16]byte(buf[0:16])), buf[16:], nil
}
