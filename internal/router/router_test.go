package router

import (
	"testing"

	"github.com/freelan-go/freelan/internal/portfab"
)

func TestTableLongestPrefixMatch(t *testing.T) {
	tbl := NewTable()
	tbl.AddRoute(mustPrefix(t, "10.0.0.0/8"), 1)
	tbl.AddRoute(mustPrefix(t, "10.1.0.0/16"), 2)

	if port, ok := tbl.Lookup(mustAddr(t, "10.1.2.3")); !ok || port != 2 {
		t.Fatalf("expected 10.1.2.3 -> port 2, got %d (ok=%v)", port, ok)
	}
	if port, ok := tbl.Lookup(mustAddr(t, "10.2.3.4")); !ok || port != 1 {
		t.Fatalf("expected 10.2.3.4 -> port 1, got %d (ok=%v)", port, ok)
	}
}

func TestTableEqualLengthTieBreakFirstWins(t *testing.T) {
	tbl := NewTable()
	tbl.AddRoute(mustPrefix(t, "192.0.2.0/24"), 1)
	tbl.AddRoute(mustPrefix(t, "192.0.2.0/24"), 2)

	port, ok := tbl.Lookup(mustAddr(t, "192.0.2.5"))
	if !ok || port != 1 {
		t.Fatalf("expected first-inserted route (port 1) to win tie, got %d (ok=%v)", port, ok)
	}
}

func TestTableNoMatch(t *testing.T) {
	tbl := NewTable()
	tbl.AddRoute(mustPrefix(t, "192.0.2.0/24"), 1)
	if _, ok := tbl.Lookup(mustAddr(t, "203.0.113.1")); ok {
		t.Fatalf("expected no match")
	}
}

func TestTableLocalRoute(t *testing.T) {
	tbl := NewTable()
	tbl.AddLocalRoute(mustAddr(t, "10.9.9.1"), 0)
	tbl.AddRoute(mustPrefix(t, "10.0.0.0/8"), 1)

	port, ok := tbl.Lookup(mustAddr(t, "10.9.9.1"))
	if !ok || port != 0 {
		t.Fatalf("expected local /32 route to win over the /8, got %d (ok=%v)", port, ok)
	}
}

func TestTableIPv6(t *testing.T) {
	tbl := NewTable()
	tbl.AddRoute(mustPrefix(t, "2001:db8::/32"), 1)
	tbl.AddRoute(mustPrefix(t, "2001:db8:1::/48"), 2)

	if port, ok := tbl.Lookup(mustAddr(t, "2001:db8:1::1")); !ok || port != 2 {
		t.Fatalf("expected more specific v6 route to win, got %d (ok=%v)", port, ok)
	}
	if port, ok := tbl.Lookup(mustAddr(t, "2001:db8:2::1")); !ok || port != 1 {
		t.Fatalf("expected fallback v6 route, got %d (ok=%v)", port, ok)
	}
}

func TestTableRemoveRoutesForPort(t *testing.T) {
	tbl := NewTable()
	tbl.AddRoute(mustPrefix(t, "10.0.0.0/8"), 1)
	tbl.AddRoute(mustPrefix(t, "10.1.0.0/16"), 2)
	tbl.RemoveRoutesForPort(2)

	if port, ok := tbl.Lookup(mustAddr(t, "10.1.2.3")); !ok || port != 1 {
		t.Fatalf("expected fallback to port 1 after port 2's routes are removed, got %d (ok=%v)", port, ok)
	}
}

func TestRouterForwardWritesToWinningPort(t *testing.T) {
	ports := portfab.NewSet()
	var written [][]byte
	ports.Register(2, portfab.GroupPeer, func(frame []byte, completion func(error)) {
		written = append(written, frame)
		completion(nil)
	})

	tbl := NewTable()
	tbl.AddRoute(mustPrefix(t, "10.1.0.0/16"), 2)
	r := New(ports, tbl)

	port, ok := r.Forward(mustAddr(t, "10.1.2.3"), []byte("packet"), nil)
	if !ok || port != 2 {
		t.Fatalf("expected forward to port 2, got %d (ok=%v)", port, ok)
	}
	if len(written) != 1 {
		t.Fatalf("expected 1 write, got %d", len(written))
	}
}

func TestRouterForwardNoRouteDropsSilently(t *testing.T) {
	ports := portfab.NewSet()
	r := New(ports, NewTable())
	if _, ok := r.Forward(mustAddr(t, "203.0.113.1"), []byte("packet"), nil); ok {
		t.Fatalf("expected no route to match")
	}
}
