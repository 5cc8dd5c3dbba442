package orchestrator

import (
	"net/netip"
	"testing"
	"time"

	"github.com/freelan-go/freelan/internal/fscp"
	"github.com/freelan-go/freelan/internal/wire"
)

func TestResolveContactParsesNumericAndRejectsGarbage(t *testing.T) {
	ep, err := resolveContact("198.51.100.7:12000")
	if err != nil {
		t.Fatalf("resolveContact: %v", err)
	}
	want := netip.MustParseAddrPort("198.51.100.7:12000")
	if ep != want {
		t.Fatalf("resolveContact = %v, want %v", ep, want)
	}

	if _, err := resolveContact("not-a-host-port"); err == nil {
		t.Fatal("expected an error for a malformed contact address")
	}
}

func TestSweepIdlePeersTearsDownOnlySilentPeers(t *testing.T) {
	c, _ := newTestCore(t)

	freshEndpoint := netip.MustParseAddrPort("198.51.100.10:12000")
	fresh := newEstablishedPeer(t, freshEndpoint)
	fresh.Touch(time.Now())
	c.registry.EnsurePeer(freshEndpoint, time.Now())
	*c.registry.PeerByEndpoint(freshEndpoint) = *fresh

	idleEndpoint := netip.MustParseAddrPort("198.51.100.11:12000")
	idle := newEstablishedPeer(t, idleEndpoint)
	idle.Touch(time.Now().Add(-2 * fscp.DefaultIdleTimeout))
	c.registry.EnsurePeer(idleEndpoint, time.Now())
	*c.registry.PeerByEndpoint(idleEndpoint) = *idle

	c.sweepIdlePeers()

	if c.registry.PeerByEndpoint(freshEndpoint) == nil {
		t.Fatal("expected the fresh peer to survive the sweep")
	}
	if got := c.registry.PeerByEndpoint(idleEndpoint); got != nil {
		t.Fatalf("expected the idle peer to be torn down and removed, got state %v", got.State)
	}
}

func TestRenewSessionsIfNeededOnlyTouchesEstablishedPeers(t *testing.T) {
	c, conn := newTestCore(t)
	endpoint := netip.MustParseAddrPort("198.51.100.12:12000")
	peer := newEstablishedPeer(t, endpoint)
	peer.Current.LastSignOfLife = time.Now().Add(-2 * fscp.DefaultRenewInterval)
	c.registry.EnsurePeer(endpoint, time.Now())
	*c.registry.PeerByEndpoint(endpoint) = *peer

	c.renewSessionsIfNeeded()

	got := c.registry.PeerByEndpoint(endpoint)
	if got.State != fscp.StateRenewing {
		t.Fatalf("expected the overdue peer to move to RENEWING, got %v", got.State)
	}
	if len(conn.last()) == 0 {
		t.Fatal("expected a SESSION_REQUEST to have been sent")
	}
}

func TestSendKeepAlivesSkipsRecentlyActivePeers(t *testing.T) {
	c, conn := newTestCore(t)
	endpoint := netip.MustParseAddrPort("198.51.100.13:12000")
	peer := newEstablishedPeer(t, endpoint)
	peer.Current.LastSignOfLife = time.Now()
	c.registry.EnsurePeer(endpoint, time.Now())
	*c.registry.PeerByEndpoint(endpoint) = *peer

	c.sendKeepAlives()

	if len(conn.last()) != 0 {
		t.Fatal("expected no KEEP_ALIVE to be sent for a recently active peer")
	}

	peer.Current.LastSignOfLife = time.Now().Add(-2 * fscp.DefaultIdleTimeout)
	*c.registry.PeerByEndpoint(endpoint) = *peer
	c.sendKeepAlives()

	header, _, err := wire.DecodeDatagram(conn.last())
	if err != nil {
		t.Fatalf("DecodeDatagram: %v", err)
	}
	if header.Type != wire.TypeKeepAlive {
		t.Fatalf("expected a KEEP_ALIVE datagram, got type %v", header.Type)
	}
}

func TestRequestDesiredContactsOnlyAsksAboutUnresolvedHashes(t *testing.T) {
	c, conn := newTestCore(t)
	endpoint := netip.MustParseAddrPort("198.51.100.14:12000")
	peer := newEstablishedPeer(t, endpoint)
	c.registry.EnsurePeer(endpoint, time.Now())
	*c.registry.PeerByEndpoint(endpoint) = *peer

	var knownHash, unknownHash [32]byte
	knownHash[0], unknownHash[0] = 1, 2
	c.registry.RecordContact(knownHash, netip.MustParseAddrPort("198.51.100.99:12000"))
	c.cfg.Server.DesiredPeerCertificateHashes = [][32]byte{knownHash, unknownHash}

	c.requestDesiredContacts()

	if len(conn.last()) == 0 {
		t.Fatal("expected a CONTACT_REQUEST to be sent for the unresolved hash")
	}
	header, payload, err := wire.DecodeDatagram(conn.last())
	if err != nil {
		t.Fatal(err)
	}
	gotPeer := c.registry.PeerByEndpoint(endpoint)
	var decrypted []byte
	c.handleInSession(endpoint, header, payload, func(_ *fscp.Peer, frame []byte) { decrypted = frame })
	_ = gotPeer
	msg, err := wire.DecodeContactRequestMessage(decrypted)
	if err != nil {
		t.Fatalf("DecodeContactRequestMessage: %v", err)
	}
	if len(msg.Hashes) != 1 || msg.Hashes[0] != unknownHash {
		t.Fatalf("expected CONTACT_REQUEST to carry only the unresolved hash, got %v", msg.Hashes)
	}
}
