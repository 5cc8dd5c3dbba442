package fscp

import (
	"net/netip"
	"time"

	"github.com/freelan-go/freelan/internal/identity"
)

// Default timing parameters (§4.3, §4.5).
const (
	DefaultIdleTimeout        = 90 * time.Second
	DefaultRenewInterval      = 12 * time.Hour
	DefaultDecryptionFailures = 8
)

// TieBreakOutcome reports how a simultaneous SESSION_REQUEST collision
// (§4.3) was resolved.
type TieBreakOutcome int

const (
	// TieBreakNotApplicable means there was no collision to resolve.
	TieBreakNotApplicable TieBreakOutcome = iota
	// TieBreakWeWon means our in-flight negotiation survives; the
	// inbound SESSION_REQUEST should be ignored.
	TieBreakWeWon
	// TieBreakWeLost means our in-flight negotiation must be discarded
	// and we must answer the peer's request instead.
	TieBreakWeLost
)

// Peer holds the full per-remote-endpoint state of §3/§4.3: pinned host
// identifier, current (established) session, next (in-flight) session,
// and the bookkeeping needed to drive state transitions and detect loss.
type Peer struct {
	Endpoint netip.AddrPort
	State    PeerState

	remoteHostIdentifier    identity.HostIdentifier
	haveRemoteHostIdentifier bool

	Current *SessionKeys
	Next    *NegotiatingSession

	outstandingHelloID uint32
	haveOutstandingHello bool

	consecutiveDecryptFailures int
	lastActivity               time.Time
	createdAt                  time.Time
}

// NewPeer creates a peer in the IDLE state for the given remote endpoint.
func NewPeer(endpoint netip.AddrPort, now time.Time) *Peer {
	return &Peer{
		Endpoint:    endpoint,
		State:       StateIdle,
		lastActivity: now,
		createdAt:   now,
	}
}

// SendHelloRequest records that we are sending a HELLO_REQUEST and moves
// IDLE -> GREETED (§4.3).
func (p *Peer) SendHelloRequest(uniqueID uint32, now time.Time) {
	p.outstandingHelloID = uniqueID
	p.haveOutstandingHello = true
	p.State = StateGreeted
	p.lastActivity = now
}

// ReceiveHelloResponse validates the echoed id and moves
// GREETED -> PRESENTED (§4.3). The caller is responsible for then sending
// our PRESENTATION.
func (p *Peer) ReceiveHelloResponse(uniqueID uint32, now time.Time) error {
	if p.State != StateGreeted {
		return ErrUnexpectedMessage
	}
	if !p.haveOutstandingHello || uniqueID != p.outstandingHelloID {
		return ErrHelloIDMismatch
	}
	p.haveOutstandingHello = false
	p.State = StatePresented
	p.lastActivity = now
	return nil
}

// ReceivePeerPresentation pins the peer's host identifier (rejecting a
// later mismatch, §3) and moves towards NEGOTIATING. Per §4.3 this
// transition is valid from PRESENTED (normal flow) and is also tolerated
// from ESTABLISHED/RENEWING (a peer that restarted and re-presents without
// us noticing loss yet); any other state is unexpected.
func (p *Peer) ReceivePeerPresentation(remoteHostID identity.HostIdentifier, now time.Time) error {
	if p.haveRemoteHostIdentifier && p.remoteHostIdentifier != remoteHostID {
		return ErrHostIdentifierMismatch
	}
	switch p.State {
	case StatePresented, StateEstablished, StateRenewing:
		// proceed
	default:
		return ErrUnexpectedMessage
	}
	p.remoteHostIdentifier = remoteHostID
	p.haveRemoteHostIdentifier = true
	p.State = StateNegotiating
	p.lastActivity = now
	return nil
}

// RemoteHostIdentifier returns the pinned remote host identifier, if any.
func (p *Peer) RemoteHostIdentifier() (identity.HostIdentifier, bool) {
	return p.remoteHostIdentifier, p.haveRemoteHostIdentifier
}

// BeginNegotiationAsInitiator records our own in-flight SESSION_REQUEST
// (§4.3: "triggers send of SESSION_REQUEST with a fresh ephemeral key").
// A RENEWING peer stays RENEWING until EstablishSession; any other peer
// moves to NEGOTIATING.
func (p *Peer) BeginNegotiationAsInitiator(next *NegotiatingSession, now time.Time) {
	next.WeAreInitiator = true
	next.StartedAt = now
	p.Next = next
	if p.State != StateRenewing {
		p.State = StateNegotiating
	}
	p.lastActivity = now
}

// ResolveSimultaneousRequest implements the §4.3 tie-break for two peers
// who each send SESSION_REQUEST at the same time: the side with the
// numerically greater host_identifier wins. localHostID must already be
// known by the caller (our own identity); the peer's host identifier must
// already be pinned via ReceivePeerPresentation.
//
// It only applies when we already have our own in-flight initiator
// request (p.Next != nil && p.Next.WeAreInitiator) for a *different*
// session number than the inbound one — a matching session number is an
// idempotent retransmission, handled separately by
// IsIdempotentSessionRequest.
func (p *Peer) ResolveSimultaneousRequest(localHostID identity.HostIdentifier, inboundSessionNumber uint32) TieBreakOutcome {
	if p.Next == nil || !p.Next.WeAreInitiator {
		return TieBreakNotApplicable
	}
	if p.Next.SessionNumber == inboundSessionNumber {
		return TieBreakNotApplicable
	}
	if !p.haveRemoteHostIdentifier {
		return TieBreakNotApplicable
	}
	if p.remoteHostIdentifier.GreaterThan(localHostID) {
		return TieBreakWeLost
	}
	return TieBreakWeWon
}

// IsIdempotentSessionRequest reports whether an inbound SESSION_REQUEST
// for sessionNumber matches our already in-flight negotiation, in which
// case it must be answered without rotating the ephemeral key (§4.3:
// "idempotent and does not rotate the ephemeral key; this prevents
// retransmissions from breaking a half-complete handshake").
func (p *Peer) IsIdempotentSessionRequest(sessionNumber uint32) bool {
	return p.Next != nil && p.Next.SessionNumber == sessionNumber
}

// AdoptAsResponder discards our own in-flight negotiation (if any, e.g.
// after losing a tie-break) and records next as the negotiation we will
// respond to.
func (p *Peer) AdoptAsResponder(next *NegotiatingSession, now time.Time) {
	next.WeAreInitiator = false
	next.StartedAt = now
	p.Next = next
	p.State = StateNegotiating
	p.lastActivity = now
}

// IsStaleSessionNumber reports whether sessionNumber is older than our
// current established session, per §4.3: "Inbound data on a session_number
// older than current is discarded."
func (p *Peer) IsStaleSessionNumber(sessionNumber uint32) bool {
	return p.Current != nil && sessionNumber < p.Current.SessionNumber
}

// EstablishSession completes negotiation: NEGOTIATING -> ESTABLISHED, or
// RENEWING -> ESTABLISHED on a renewal's completion. keys replaces
// Current at once; the previous SessionKeys are not kept, so inbound data
// still sealed under the old session no longer decrypts.
func (p *Peer) EstablishSession(keys *SessionKeys, now time.Time) error {
	if p.State != StateNegotiating && p.State != StateRenewing {
		return ErrUnexpectedMessage
	}
	p.Current = keys
	p.Next = nil
	p.State = StateEstablished
	p.lastActivity = now
	return nil
}

// BeginRenewal moves ESTABLISHED -> RENEWING (§4.3), to be called when
// ShouldRenew() is true or the renew timer fires. The caller must still
// send a SESSION_REQUEST with an incremented session number and a fresh
// ephemeral key via BeginNegotiationAsInitiator.
func (p *Peer) BeginRenewal(now time.Time) error {
	if p.State != StateEstablished {
		return ErrUnexpectedMessage
	}
	p.State = StateRenewing
	p.lastActivity = now
	return nil
}

// RecordDecryptionFailure increments the consecutive-failure counter and
// reports whether the session-loss threshold has been crossed (§7: "
// repeated failures (>= N within T) on an established session trigger
// session loss").
func (p *Peer) RecordDecryptionFailure(threshold int) bool {
	p.consecutiveDecryptFailures++
	return p.consecutiveDecryptFailures >= threshold
}

// RecordSuccessfulDecryption resets the consecutive-failure counter.
func (p *Peer) RecordSuccessfulDecryption(now time.Time) {
	p.consecutiveDecryptFailures = 0
	p.lastActivity = now
}

// MarkLost transitions the peer to the terminal LOST state (§4.3: "on:
// session decryption failure threshold exceeded, silence beyond idle
// timeout, or certificate invalidation").
func (p *Peer) MarkLost() {
	p.State = StateLost
	p.Next = nil
}

// IsIdle reports whether the peer has been silent for longer than
// timeout, as of now (§4.3 idle timeout, default 90s).
func (p *Peer) IsIdle(now time.Time, timeout time.Duration) bool {
	return now.Sub(p.lastActivity) > timeout
}

// Touch records activity, resetting the idle timer.
func (p *Peer) Touch(now time.Time) {
	p.lastActivity = now
}
