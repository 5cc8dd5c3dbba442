package orchestrator

import (
	"net/netip"

	"github.com/freelan-go/freelan/internal/fscp"
	"github.com/freelan-go/freelan/internal/wire"
)

// handleContactRequest answers an in-session CONTACT_REQUEST with the
// subset of the asked-about certificate hashes we know an endpoint for
// (§4.6), provided accept_contact_requests is enabled.
func (c *Core) handleContactRequest(peer *fscp.Peer, plaintext []byte) {
	msg, err := wire.DecodeContactRequestMessage(plaintext)
	if err != nil {
		return
	}
	known, err := c.registry.ResolveContactRequest(msg.Hashes)
	if err != nil || len(known) == 0 {
		return
	}
	reply := wire.ContactMessage{Entries: make([]wire.ContactEntry, 0, len(known))}
	for hash, endpoint := range known {
		reply.Entries = append(reply.Entries, wire.ContactEntry{Hash: hash, Endpoint: endpoint})
	}
	if err := c.sendInSession(peer.Endpoint, peer, wire.TypeContact, reply.Encode()); err != nil {
		c.log.WithError(err).WithField("endpoint", peer.Endpoint).Warn("failed to send CONTACT")
	}
}

// handleContact accepts a peer's offered introductions and, for each
// newly learned endpoint, initiates a HELLO (§4.6: "Acceptance of a
// CONTACT triggers a new HELLO to the advertised endpoint").
func (c *Core) handleContact(peer *fscp.Peer, plaintext []byte) {
	msg, err := wire.DecodeContactMessage(plaintext)
	if err != nil {
		return
	}
	for _, entry := range msg.Entries {
		if err := c.registry.AcceptContact(entry.Hash, entry.Endpoint); err != nil {
			continue
		}
		if c.registry.PeerByEndpoint(entry.Endpoint) != nil {
			continue
		}
		c.initiateHello(entry.Endpoint)
	}
}

// requestContacts sends a CONTACT_REQUEST to peer asking about the given
// certificate hashes (§4.6); requestDesiredContacts passes the configured
// desired-peer hashes that have no known contact endpoint.
func (c *Core) requestContacts(endpoint netip.AddrPort, peer *fscp.Peer, hashes [][32]byte) {
	if len(hashes) == 0 {
		return
	}
	msg := wire.ContactRequestMessage{Hashes: hashes}
	if err := c.sendInSession(endpoint, peer, wire.TypeContactRequest, msg.Encode()); err != nil {
		c.log.WithError(err).WithField("endpoint", endpoint).Debug("failed to send CONTACT_REQUEST")
	}
}
