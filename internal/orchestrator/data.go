package orchestrator

import (
	"net/netip"
	"time"

	"github.com/freelan-go/freelan/internal/crypto"
	"github.com/freelan-go/freelan/internal/fscp"
	"github.com/freelan-go/freelan/internal/portfab"
	"github.com/freelan-go/freelan/internal/routesdist"
	"github.com/freelan-go/freelan/internal/wire"
)

// routesChannel is the DATA channel reserved for ROUTES/ROUTES_REQUEST
// traffic (§4.10: "carried over DATA channel 1"); channel 0 carries the
// node's actual TAP/TUN payload.
const routesChannel = 1

// buildHeader returns the header AssociatedData is computed over for an
// outbound in-session frame of payloadLen bytes, matching what
// wire.EncodeDatagram will produce for the same (t, payload).
func buildHeader(t wire.MessageType, payloadLen int) wire.Header {
	return wire.Header{Version: wire.Version, Type: t, Length: uint16(payloadLen)}
}

// sendInSession encrypts plaintext under peer's current session and sends
// it as an in-session datagram of type t (§4.1, §4.4).
func (c *Core) sendInSession(endpoint netip.AddrPort, peer *fscp.Peer, t wire.MessageType, plaintext []byte) error {
	keys := peer.Current
	if keys == nil {
		return fscp.ErrNoActiveSession
	}
	aead, err := keys.CipherSuite.NewAEAD(keys.LocalSessionKey)
	if err != nil {
		return err
	}
	seq, err := keys.NextLocalSequenceNumber()
	if err != nil {
		return err
	}

	payloadLen := wire.SequenceNumberSize + len(plaintext) + aead.Overhead()
	header := buildHeader(t, payloadLen)
	ad := wire.AssociatedData(header, seq)
	nonce := crypto.BuildNonce(keys.LocalNoncePrefix, seq)
	ciphertext := aead.Seal(nil, nonce, plaintext, ad)

	frame := wire.InSessionFrame{SequenceNumber: seq, Ciphertext: ciphertext}
	return c.sendDatagram(endpoint, t, frame.Encode())
}

// handleInSession decrypts an inbound in-session datagram under peer's
// current session and passes the plaintext to handle, applying the §4.4
// no-window replay check and the §4.3 decryption-failure threshold.
func (c *Core) handleInSession(from netip.AddrPort, header wire.Header, payload []byte, handle func(peer *fscp.Peer, plaintext []byte)) {
	peer := c.registry.PeerByEndpoint(from)
	if peer == nil || peer.Current == nil {
		return
	}
	keys := peer.Current

	frame, err := wire.DecodeInSessionFrame(payload)
	if err != nil {
		return
	}

	aead, err := keys.CipherSuite.NewAEAD(keys.RemoteSessionKey)
	if err != nil {
		return
	}
	nonce := crypto.BuildNonce(keys.RemoteNoncePrefix, frame.SequenceNumber)
	ad := wire.AssociatedData(header, frame.SequenceNumber)

	plaintext, err := aead.Open(nil, nonce, frame.Ciphertext, ad)
	if err != nil {
		if peer.RecordDecryptionFailure(fscp.DefaultDecryptionFailures) {
			c.teardownPeer(from, peer)
		}
		return
	}

	now := time.Now()
	if err := keys.AcceptInbound(frame.SequenceNumber, now); err != nil {
		return
	}
	peer.RecordSuccessfulDecryption(now)

	handle(peer, plaintext)
}

func (c *Core) handleDataChannel(from netip.AddrPort, header wire.Header, channel int, payload []byte) {
	c.handleInSession(from, header, payload, func(peer *fscp.Peer, plaintext []byte) {
		switch channel {
		case routesChannel:
			c.handleRoutesPayload(from, peer, plaintext)
		default:
			c.deliverFromPeer(from, plaintext)
		}
	})
}

// deliverFromPeer hands a decrypted TAP-shaped payload from peer to the
// switch or router fabric, as if it had arrived on that peer's port.
func (c *Core) deliverFromPeer(from netip.AddrPort, frame []byte) {
	port, ok := c.peerPorts[from]
	if !ok {
		return
	}
	c.forward(port, frame)
}

// forward dispatches frame (arriving on fromPort, the TAP port or a
// peer's port) through the configured fabric.
func (c *Core) forward(fromPort int, frame []byte) {
	if c.sw != nil {
		c.sw.Forward(fromPort, frame, nil)
		return
	}
	if c.rt != nil {
		dst, ok := ipDestination(frame)
		if !ok {
			return
		}
		c.rt.Forward(dst, frame, nil)
	}
}

func (c *Core) handleRoutesPayload(from netip.AddrPort, peer *fscp.Peer, plaintext []byte) {
	if len(plaintext) == 0 {
		c.sendRoutes(from, peer)
		return
	}
	if c.distributor == nil {
		return
	}
	msg, err := routesdist.DecodeRoutesMessage(plaintext)
	if err != nil {
		c.log.WithError(err).WithField("endpoint", from).Debug("dropping malformed ROUTES payload")
		return
	}
	port, ok := c.peerPorts[from]
	if !ok {
		return
	}
	if err := c.distributor.HandleRoutes(from, port, msg); err != nil && err != routesdist.ErrStaleVersion {
		c.log.WithError(err).WithField("endpoint", from).Debug("rejecting ROUTES payload")
	}
}

// sendRoutesRequest asks peer for its current ROUTES (an empty channel-1
// payload, §4.10).
func (c *Core) sendRoutesRequest(endpoint netip.AddrPort, peer *fscp.Peer) {
	if err := c.sendInSession(endpoint, peer, mustDataChannelType(routesChannel), nil); err != nil {
		c.log.WithError(err).WithField("endpoint", endpoint).Debug("failed to send ROUTES_REQUEST")
	}
}

// sendRoutes answers a ROUTES_REQUEST (or a periodic push) with this
// node's own table, reusing the version tracker's next value for our
// local advertisement.
func (c *Core) sendRoutes(endpoint netip.AddrPort, peer *fscp.Peer) {
	msg := c.localRoutesMessage()
	if err := c.sendInSession(endpoint, peer, mustDataChannelType(routesChannel), msg.Encode()); err != nil {
		c.log.WithError(err).WithField("endpoint", endpoint).Debug("failed to send ROUTES")
	}
}

func mustDataChannelType(channel int) wire.MessageType {
	t, err := wire.DataChannelType(channel)
	if err != nil {
		panic(err)
	}
	return t
}

func (c *Core) registerPeerPort(endpoint netip.AddrPort) int {
	if idx, ok := c.peerPorts[endpoint]; ok {
		return idx
	}
	idx := c.nextPortID
	c.nextPortID++
	c.peerPorts[endpoint] = idx
	c.portPeers[idx] = endpoint

	c.ports.Register(idx, portfab.GroupPeer, func(frame []byte, completion func(error)) {
		peer := c.registry.PeerByEndpoint(endpoint)
		if peer == nil {
			completion(fscp.ErrPeerLost)
			return
		}
		completion(c.sendInSession(endpoint, peer, mustDataChannelType(0), frame))
	})

	c.sendRoutesRequest(endpoint, c.registry.PeerByEndpoint(endpoint))
	return idx
}

func (c *Core) teardownPeer(endpoint netip.AddrPort, peer *fscp.Peer) {
	peer.MarkLost()
	if idx, ok := c.peerPorts[endpoint]; ok {
		c.ports.Unregister(idx)
		if c.routeTbl != nil {
			c.routeTbl.RemoveRoutesForPort(idx)
		}
		if c.distributor != nil {
			c.distributor.Disconnect(endpoint, idx)
		}
		delete(c.peerPorts, endpoint)
		delete(c.portPeers, idx)
	}
	delete(c.peerCerts, endpoint)
	c.registry.RemovePeer(endpoint)
}

func (c *Core) writeToTap(frame []byte, completion func(error)) {
	if c.tapHandle == nil {
		if completion != nil {
			completion(nil)
		}
		return
	}
	c.tapHandle.AsyncWrite(frame, func(err error) {
		if completion != nil {
			completion(err)
		}
	})
}
