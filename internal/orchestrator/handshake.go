package orchestrator

import (
	"fmt"
	"net"
	"net/netip"
	"time"

	"github.com/freelan-go/freelan/internal/crypto"
	"github.com/freelan-go/freelan/internal/fscp"
	"github.com/freelan-go/freelan/internal/identity"
	"github.com/freelan-go/freelan/internal/wire"
)

// connFor returns the UDP socket matching endpoint's address family.
func (c *Core) connFor(endpoint netip.AddrPort) net.PacketConn {
	if endpoint.Addr().Is4() || endpoint.Addr().Is4In6() {
		return c.conn4
	}
	return c.conn6
}

func (c *Core) sendDatagram(endpoint netip.AddrPort, t wire.MessageType, payload []byte) error {
	conn := c.connFor(endpoint)
	if conn == nil {
		return fmt.Errorf("orchestrator: no UDP socket for endpoint family of %s", endpoint)
	}
	datagram, err := wire.EncodeDatagram(t, payload)
	if err != nil {
		return err
	}
	_, err = conn.WriteTo(datagram, net.UDPAddrFromAddrPort(endpoint))
	return err
}

// InitiateHello starts the handshake with endpoint by sending a fresh
// HELLO_REQUEST (§4.3: IDLE -> GREETED). Safe to call from any goroutine;
// the actual work is posted to the strand.
func (c *Core) InitiateHello(endpoint netip.AddrPort) {
	c.strand.Post(func() {
		c.initiateHello(endpoint)
	})
}

func (c *Core) initiateHello(endpoint netip.AddrPort) {
	now := time.Now()
	peer := c.registry.EnsurePeer(endpoint, now)
	c.helloIDCounter++
	id := c.helloIDCounter
	peer.SendHelloRequest(id, now)
	if err := c.sendDatagram(endpoint, wire.TypeHelloRequest, wire.HelloMessage{UniqueID: id}.Encode()); err != nil {
		c.log.WithError(err).WithField("endpoint", endpoint).Warn("failed to send HELLO_REQUEST")
	}
}

// dispatchDatagram handles one decoded inbound FSCP datagram. It must
// only be called from the strand.
func (c *Core) dispatchDatagram(from netip.AddrPort, header wire.Header, payload []byte) {
	if ch, ok := wire.IsDataChannel(header.Type); ok {
		c.handleDataChannel(from, header, ch, payload)
		return
	}
	switch header.Type {
	case wire.TypeHelloRequest:
		c.handleHelloRequest(from, payload)
	case wire.TypeHelloResponse:
		c.handleHelloResponse(from, payload)
	case wire.TypePresentation:
		c.handlePresentation(from, payload)
	case wire.TypeSessionRequest:
		c.handleSessionRequest(from, payload)
	case wire.TypeSession:
		c.handleSession(from, payload)
	case wire.TypeContactRequest:
		c.handleInSession(from, header, payload, c.handleContactRequest)
	case wire.TypeContact:
		c.handleInSession(from, header, payload, c.handleContact)
	case wire.TypeKeepAlive:
		c.handleKeepAlive(from)
	default:
		c.log.WithField("type", header.Type).Debug("dropping datagram of unknown type")
	}
}

func (c *Core) handleHelloRequest(from netip.AddrPort, payload []byte) {
	if err := c.registry.AdmitUnauthenticated(from.Addr()); err != nil {
		return
	}
	msg, err := wire.DecodeHelloMessage(payload)
	if err != nil {
		return
	}
	if err := c.sendDatagram(from, wire.TypeHelloResponse, msg.Encode()); err != nil {
		c.log.WithError(err).WithField("endpoint", from).Warn("failed to send HELLO_RESPONSE")
	}
}

func (c *Core) handleHelloResponse(from netip.AddrPort, payload []byte) {
	peer := c.registry.PeerByEndpoint(from)
	if peer == nil {
		return
	}
	msg, err := wire.DecodeHelloMessage(payload)
	if err != nil {
		return
	}
	now := time.Now()
	if err := peer.ReceiveHelloResponse(msg.UniqueID, now); err != nil {
		c.log.WithError(err).WithField("endpoint", from).Debug("rejecting HELLO_RESPONSE")
		return
	}
	c.sendPresentation(from)
}

func (c *Core) sendPresentation(to netip.AddrPort) {
	msg := wire.PresentationMessage{
		CertificateDER: c.identity.CertificateDER(),
		HostIdentifier: c.hostID,
	}
	if err := c.sendDatagram(to, wire.TypePresentation, msg.Encode()); err != nil {
		c.log.WithError(err).WithField("endpoint", to).Warn("failed to send PRESENTATION")
	}
}

func (c *Core) handlePresentation(from netip.AddrPort, payload []byte) {
	if err := c.registry.AdmitUnauthenticated(from.Addr()); err != nil {
		return
	}
	msg, err := wire.DecodePresentationMessage(payload)
	if err != nil {
		return
	}

	now := time.Now()
	peer := c.registry.EnsurePeer(from, now)

	var remoteHostID identity.HostIdentifier = msg.HostIdentifier

	if len(msg.CertificateDER) > 0 {
		cert, err := c.verifyChain(msg.CertificateDER)
		if err != nil {
			c.log.WithError(err).WithField("endpoint", from).Warn("rejecting PRESENTATION with invalid certificate")
			return
		}
		c.peerCerts[from] = cert
		c.registry.RecordContact(certHashOf(msg.CertificateDER), from)
	} else {
		delete(c.peerCerts, from)
	}

	wasIdle := peer.State == fscp.StateIdle
	if wasIdle {
		// The remote side ran HELLO towards us, not the other way round:
		// take its PRESENTATION as if we had reached PRESENTED ourselves.
		peer.State = fscp.StatePresented
	}
	if err := peer.ReceivePeerPresentation(remoteHostID, now); err != nil {
		c.log.WithError(err).WithField("endpoint", from).Debug("rejecting PRESENTATION")
		return
	}

	// A peer that presents to us without us having gone through HELLO
	// first (e.g. it dialed us) still needs its own PRESENTATION echoed
	// back and a HELLO_REQUEST/RESPONSE pair is skipped in that
	// direction; still send ours so negotiation can proceed symmetrically.
	if wasIdle {
		c.sendPresentation(from)
	}

	c.initiateSessionRequest(from, peer)
}

func (c *Core) initiateSessionRequest(endpoint netip.AddrPort, peer *fscp.Peer) {
	sessionNumber := uint32(0)
	if peer.Current != nil {
		sessionNumber = peer.Current.SessionNumber + 1
	}

	curve := c.cfg.Security.CurvePreference[0]
	keyPair, err := crypto.GenerateEphemeralKeyPair(curve, nil)
	if err != nil {
		c.log.WithError(err).Warn("failed to generate ephemeral key pair")
		return
	}

	next := &fscp.NegotiatingSession{
		SessionNumber: sessionNumber,
		KeyPair:       keyPair,
		Curve:         curve,
		OfferedSuites: c.cfg.Security.CipherSuitePreference,
		OfferedCurves: c.cfg.Security.CurvePreference,
	}
	peer.BeginNegotiationAsInitiator(next, time.Now())

	msg := wire.SessionNegotiationMessage{
		SessionNumber:      sessionNumber,
		CipherSuites:       c.cfg.Security.CipherSuitePreference,
		Curves:             c.cfg.Security.CurvePreference,
		EphemeralPublicKey: keyPair.PublicKeyBytes(),
	}
	sig, err := c.signSessionFields(msg.SignedFields())
	if err != nil {
		c.log.WithError(err).Warn("failed to sign SESSION_REQUEST")
		return
	}
	msg.Signature = sig

	if err := c.sendDatagram(endpoint, wire.TypeSessionRequest, msg.Encode()); err != nil {
		c.log.WithError(err).WithField("endpoint", endpoint).Warn("failed to send SESSION_REQUEST")
	}
}

func (c *Core) handleSessionRequest(from netip.AddrPort, payload []byte) {
	peer := c.registry.PeerByEndpoint(from)
	if peer == nil {
		return
	}
	remoteHostID, havePeerID := peer.RemoteHostIdentifier()
	if !havePeerID {
		return
	}

	msg, err := wire.DecodeSessionNegotiationMessage(payload)
	if err != nil {
		return
	}

	if err := verifySessionFields(c.peerCerts[from], c.identity.PSK(), msg.SignedFields(), msg.Signature); err != nil {
		c.log.WithError(err).WithField("endpoint", from).Warn("rejecting SESSION_REQUEST with invalid authentication")
		return
	}

	if peer.IsIdempotentSessionRequest(msg.SessionNumber) && peer.Next != nil && !peer.Next.WeAreInitiator {
		c.acceptSessionRequest(from, peer, peer.Next, msg.EphemeralPublicKey, true)
		return
	}

	switch peer.ResolveSimultaneousRequest(c.hostID, msg.SessionNumber) {
	case fscp.TieBreakWeWon:
		return
	case fscp.TieBreakWeLost, fscp.TieBreakNotApplicable:
	}

	curve, err := crypto.NegotiateCurve(msg.Curves, c.cfg.Security.CurvePreference)
	if err != nil {
		c.log.WithError(err).WithField("endpoint", from).Warn("no mutual curve for SESSION_REQUEST")
		return
	}
	suite, err := crypto.NegotiateSuite(msg.CipherSuites, c.cfg.Security.CipherSuitePreference)
	if err != nil {
		c.log.WithError(err).WithField("endpoint", from).Warn("no mutual cipher suite for SESSION_REQUEST")
		return
	}
	keyPair, err := crypto.GenerateEphemeralKeyPair(curve, nil)
	if err != nil {
		c.log.WithError(err).Warn("failed to generate ephemeral key pair")
		return
	}

	next := &fscp.NegotiatingSession{SessionNumber: msg.SessionNumber, KeyPair: keyPair, Curve: curve, ChosenSuite: suite}
	peer.AdoptAsResponder(next, time.Now())
	c.acceptSessionRequest(from, peer, next, msg.EphemeralPublicKey, false)
}

// acceptSessionRequest sends our SESSION reply using next's (possibly
// reused, on a retransmission) ephemeral key pair and chosen suite, then
// derives and establishes the session immediately — the responder
// completes on send, the initiator on receipt of SESSION (§4.3).
func (c *Core) acceptSessionRequest(from netip.AddrPort, peer *fscp.Peer, next *fscp.NegotiatingSession, peerEphemeralPublicKey []byte, retransmission bool) {
	msg := wire.SessionNegotiationMessage{
		SessionNumber:      next.SessionNumber,
		CipherSuites:       []crypto.CipherSuite{next.ChosenSuite},
		Curves:             []crypto.Curve{next.Curve},
		EphemeralPublicKey: next.KeyPair.PublicKeyBytes(),
	}
	sig, err := c.signSessionFields(msg.SignedFields())
	if err != nil {
		c.log.WithError(err).Warn("failed to sign SESSION")
		return
	}
	msg.Signature = sig
	if err := c.sendDatagram(from, wire.TypeSession, msg.Encode()); err != nil {
		c.log.WithError(err).WithField("endpoint", from).Warn("failed to send SESSION")
	}
	if retransmission {
		// A retransmitted SESSION_REQUEST for an already-established
		// session only needs its reply resent, not re-established.
		return
	}

	z, err := next.KeyPair.ECDH(peerEphemeralPublicKey)
	if err != nil {
		c.log.WithError(err).WithField("endpoint", from).Warn("ECDH failed while completing responder negotiation")
		return
	}
	remoteHostID, _ := peer.RemoteHostIdentifier()
	material, err := crypto.DeriveSessionMaterial(next.ChosenSuite, z, c.hostID[:], remoteHostID[:])
	if err != nil {
		c.log.WithError(err).Warn("session key derivation failed")
		return
	}
	now := time.Now()
	keys := fscp.NewSessionKeys(next.SessionNumber, next.ChosenSuite, next.Curve, material, now)
	if err := peer.EstablishSession(keys, now); err != nil {
		c.log.WithError(err).WithField("endpoint", from).Warn("failed to establish session as responder")
		return
	}
	c.onSessionEstablished(from, peer)
}

func (c *Core) handleSession(from netip.AddrPort, payload []byte) {
	peer := c.registry.PeerByEndpoint(from)
	if peer == nil || peer.Next == nil || !peer.Next.WeAreInitiator {
		return
	}

	msg, err := wire.DecodeSessionNegotiationMessage(payload)
	if err != nil || msg.SessionNumber != peer.Next.SessionNumber {
		return
	}
	if err := verifySessionFields(c.peerCerts[from], c.identity.PSK(), msg.SignedFields(), msg.Signature); err != nil {
		c.log.WithError(err).WithField("endpoint", from).Warn("rejecting SESSION with invalid authentication")
		return
	}
	if len(msg.CipherSuites) != 1 || len(msg.Curves) != 1 {
		return
	}

	next := peer.Next
	offered := false
	for _, suite := range next.OfferedSuites {
		if suite == msg.CipherSuites[0] {
			offered = true
		}
	}
	if !offered || msg.Curves[0] != next.Curve {
		c.log.WithField("endpoint", from).Warn("rejecting SESSION whose cipher suite or curve does not match our SESSION_REQUEST")
		return
	}
	z, err := next.KeyPair.ECDH(msg.EphemeralPublicKey)
	if err != nil {
		c.log.WithError(err).WithField("endpoint", from).Warn("ECDH failed while completing initiator negotiation")
		return
	}
	remoteHostID, _ := peer.RemoteHostIdentifier()
	material, err := crypto.DeriveSessionMaterial(msg.CipherSuites[0], z, c.hostID[:], remoteHostID[:])
	if err != nil {
		c.log.WithError(err).Warn("session key derivation failed")
		return
	}
	now := time.Now()
	keys := fscp.NewSessionKeys(msg.SessionNumber, msg.CipherSuites[0], msg.Curves[0], material, now)
	if err := peer.EstablishSession(keys, now); err != nil {
		c.log.WithError(err).WithField("endpoint", from).Warn("failed to establish session as initiator")
		return
	}
	c.onSessionEstablished(from, peer)
}

func (c *Core) handleKeepAlive(from netip.AddrPort) {
	if peer := c.registry.PeerByEndpoint(from); peer != nil {
		peer.Touch(time.Now())
	}
}

func (c *Core) onSessionEstablished(endpoint netip.AddrPort, peer *fscp.Peer) {
	c.log.WithFields(map[string]interface{}{
		"endpoint": endpoint.String(),
		"session":  peer.Current.SessionNumber,
	}).Info("FSCP session established")
	c.registerPeerPort(endpoint)
}
