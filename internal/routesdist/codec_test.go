package routesdist

import (
	"net/netip"
	"reflect"
	"testing"
)

func TestRoutesMessageRoundTrip(t *testing.T) {
	msg := RoutesMessage{
		Version: 7,
		Entries: []Entry{
			NewRouteEntry(netip.MustParsePrefix("10.0.0.0/8"), netip.Addr{}),
			NewRouteEntry(netip.MustParsePrefix("192.168.1.0/24"), netip.MustParseAddr("192.168.1.1")),
			NewRouteEntry(netip.MustParsePrefix("2001:db8::/32"), netip.Addr{}),
			NewRouteEntry(netip.MustParsePrefix("2001:db8:1::/48"), netip.MustParseAddr("2001:db8::1")),
			NewDNSEntry(netip.MustParseAddr("8.8.8.8")),
			NewDNSEntry(netip.MustParseAddr("2001:4860:4860::8888")),
		},
	}

	encoded := msg.Encode()
	decoded, err := DecodeRoutesMessage(encoded)
	if err != nil {
		t.Fatalf("DecodeRoutesMessage: %v", err)
	}
	if decoded.Version != msg.Version {
		t.Fatalf("version mismatch: got %d want %d", decoded.Version, msg.Version)
	}
	if !reflect.DeepEqual(decoded.Entries, msg.Entries) {
		t.Fatalf("entries mismatch:\ngot  %+v\nwant %+v", decoded.Entries, msg.Entries)
	}
}

func TestRoutesMessageEmptyEntries(t *testing.T) {
	msg := RoutesMessage{Version: 1}
	decoded, err := DecodeRoutesMessage(msg.Encode())
	if err != nil {
		t.Fatal(err)
	}
	if decoded.Version != 1 || len(decoded.Entries) != 0 {
		t.Fatalf("unexpected decode: %+v", decoded)
	}
}

func TestDecodeRoutesMessageTruncated(t *testing.T) {
	if _, err := DecodeRoutesMessage([]byte{0, 0}); err != ErrTruncated {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
	// Valid version header but a truncated IPv4 route entry.
	buf := []byte{0, 0, 0, 1, byte(EntryIPv4Route), 24, 10, 0}
	if _, err := DecodeRoutesMessage(buf); err != ErrTruncated {
		t.Fatalf("expected ErrTruncated for short entry, got %v", err)
	}
}

func TestDecodeRoutesMessageUnknownTag(t *testing.T) {
	buf := []byte{0, 0, 0, 1, 0xFF}
	if _, err := DecodeRoutesMessage(buf); err != ErrUnknownEntryTag {
		t.Fatalf("expected ErrUnknownEntryTag, got %v", err)
	}
}

func TestNewRouteEntryPicksRightKind(t *testing.T) {
	v4 := NewRouteEntry(netip.MustParsePrefix("10.0.0.0/8"), netip.Addr{})
	if v4.Kind != EntryIPv4Route {
		t.Fatalf("expected EntryIPv4Route, got %v", v4.Kind)
	}
	v4gw := NewRouteEntry(netip.MustParsePrefix("10.0.0.0/8"), netip.MustParseAddr("10.0.0.1"))
	if v4gw.Kind != EntryIPv4RouteGateway {
		t.Fatalf("expected EntryIPv4RouteGateway, got %v", v4gw.Kind)
	}
	v6 := NewRouteEntry(netip.MustParsePrefix("2001:db8::/32"), netip.Addr{})
	if v6.Kind != EntryIPv6Route {
		t.Fatalf("expected EntryIPv6Route, got %v", v6.Kind)
	}
}
