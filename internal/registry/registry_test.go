package registry

import (
	"errors"
	"net/netip"
	"testing"
	"time"
)

func mustEndpoint(t *testing.T, s string) netip.AddrPort {
	t.Helper()
	ep, err := netip.ParseAddrPort(s)
	if err != nil {
		t.Fatalf("ParseAddrPort(%q): %v", s, err)
	}
	return ep
}

type manualClock struct{ now time.Time }

func (c *manualClock) Now() time.Time { return c.now }
func (c *manualClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func TestNeverContactListBlocksMatchingPrefix(t *testing.T) {
	list, err := ParseNeverContactList([]string{"10.0.0.0/8"})
	if err != nil {
		t.Fatal(err)
	}
	if !list.Contains(netip.MustParseAddr("10.1.2.3")) {
		t.Fatalf("expected 10.1.2.3 to match 10.0.0.0/8")
	}
	if list.Contains(netip.MustParseAddr("192.168.1.1")) {
		t.Fatalf("expected 192.168.1.1 to not match")
	}
}

func TestPerSourceLimiterAdmitsUpToRateThenBlocks(t *testing.T) {
	clock := &manualClock{now: time.Unix(0, 0)}
	limiter := NewPerSourceLimiter(2, clock)
	addr := netip.MustParseAddr("198.51.100.1")

	if !limiter.Allow(addr) {
		t.Fatalf("expected first message to be admitted")
	}
	if !limiter.Allow(addr) {
		t.Fatalf("expected second message to be admitted")
	}
	if limiter.Allow(addr) {
		t.Fatalf("expected third message within the same second to be rate limited")
	}

	clock.advance(time.Second)
	if !limiter.Allow(addr) {
		t.Fatalf("expected message to be admitted after refill")
	}
}

func TestPerSourceLimiterIsPerAddress(t *testing.T) {
	clock := &manualClock{now: time.Unix(0, 0)}
	limiter := NewPerSourceLimiter(1, clock)
	a := netip.MustParseAddr("198.51.100.1")
	b := netip.MustParseAddr("198.51.100.2")

	if !limiter.Allow(a) {
		t.Fatal("expected a to be admitted")
	}
	if !limiter.Allow(b) {
		t.Fatal("expected b to be admitted independently of a")
	}
	if limiter.Allow(a) {
		t.Fatal("expected a to be rate limited on second message")
	}
}

func TestRegistryAdmitUnauthenticatedChecksNeverContactBeforeRateLimit(t *testing.T) {
	list, err := ParseNeverContactList([]string{"10.0.0.0/8"})
	if err != nil {
		t.Fatal(err)
	}
	clock := &manualClock{now: time.Unix(0, 0)}
	reg, err := NewRegistry(Options{
		MaxUnauthenticatedPerSecond: 0, // exhaust immediately isn't tested here
		NeverContactList:            list,
		Clock:                       clock,
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := reg.AdmitUnauthenticated(netip.MustParseAddr("10.1.1.1")); !errors.Is(err, ErrNeverContact) {
		t.Fatalf("expected ErrNeverContact, got %v", err)
	}
	if err := reg.AdmitUnauthenticated(netip.MustParseAddr("203.0.113.5")); err != nil {
		t.Fatalf("expected admission, got %v", err)
	}
}

func TestRegistryEnsurePeerIsIdempotent(t *testing.T) {
	reg, err := NewRegistry(Options{})
	if err != nil {
		t.Fatal(err)
	}
	now := time.Unix(0, 0)
	ep := mustEndpoint(t, "203.0.113.1:9000")

	p1 := reg.EnsurePeer(ep, now)
	p2 := reg.EnsurePeer(ep, now)
	if p1 != p2 {
		t.Fatalf("expected EnsurePeer to return the same peer for the same endpoint")
	}
	if reg.Count() != 1 {
		t.Fatalf("expected 1 registered peer, got %d", reg.Count())
	}

	reg.RemovePeer(ep)
	if reg.Count() != 0 {
		t.Fatalf("expected peer to be removed")
	}
	if reg.PeerByEndpoint(ep) != nil {
		t.Fatalf("expected nil after removal")
	}
}

func TestRegistryContactRequestRespectsAcceptFlag(t *testing.T) {
	reg, err := NewRegistry(Options{AcceptContactRequests: false})
	if err != nil {
		t.Fatal(err)
	}
	var h [32]byte
	h[0] = 1
	if _, err := reg.ResolveContactRequest([][32]byte{h}); !errors.Is(err, ErrContactRequestsDisabled) {
		t.Fatalf("expected ErrContactRequestsDisabled, got %v", err)
	}

	reg2, err := NewRegistry(Options{AcceptContactRequests: true})
	if err != nil {
		t.Fatal(err)
	}
	ep := mustEndpoint(t, "203.0.113.1:9000")
	reg2.RecordContact(h, ep)

	var unknown [32]byte
	unknown[0] = 2
	known, err := reg2.ResolveContactRequest([][32]byte{h, unknown})
	if err != nil {
		t.Fatal(err)
	}
	if got, ok := known[h]; !ok || got != ep {
		t.Fatalf("expected known hash to resolve to %v, got %v (ok=%v)", ep, got, ok)
	}
	if _, ok := known[unknown]; ok {
		t.Fatalf("expected unknown hash to be absent")
	}
}

func TestRegistryAcceptContactRespectsFlagsAndNeverContactList(t *testing.T) {
	list, err := ParseNeverContactList([]string{"10.0.0.0/8"})
	if err != nil {
		t.Fatal(err)
	}
	reg, err := NewRegistry(Options{AcceptContacts: false})
	if err != nil {
		t.Fatal(err)
	}
	var h [32]byte
	ep := mustEndpoint(t, "203.0.113.1:9000")
	if err := reg.AcceptContact(h, ep); !errors.Is(err, ErrContactsDisabled) {
		t.Fatalf("expected ErrContactsDisabled, got %v", err)
	}

	reg2, err := NewRegistry(Options{AcceptContacts: true, NeverContactList: list})
	if err != nil {
		t.Fatal(err)
	}
	blocked := mustEndpoint(t, "10.1.1.1:9000")
	if err := reg2.AcceptContact(h, blocked); !errors.Is(err, ErrNeverContact) {
		t.Fatalf("expected ErrNeverContact, got %v", err)
	}

	if err := reg2.AcceptContact(h, ep); err != nil {
		t.Fatalf("expected acceptance, got %v", err)
	}
	got, ok := reg2.LookupContact(h)
	if !ok || got != ep {
		t.Fatalf("expected contact to be recorded")
	}
}
