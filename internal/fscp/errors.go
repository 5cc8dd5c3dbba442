// Package fscp implements the per-peer FSCP state machine of §4.3: session
// key negotiation, replay protection, renewal, and admission control. It
// depends on internal/wire for framing and internal/crypto for the
// cryptographic primitives, but owns no socket; internal/orchestrator
// drives it from UDP I/O.
package fscp

import "errors"

var (
	// ErrUnexpectedMessage is returned when a message arrives that is not
	// valid in the peer's current state (§4.3 transitions).
	ErrUnexpectedMessage = errors.New("fscp: unexpected message for current peer state")

	// ErrHostIdentifierMismatch is returned when a peer's host identifier
	// changes after being pinned (§3, §7 protocol error).
	ErrHostIdentifierMismatch = errors.New("fscp: host identifier mismatch")

	// ErrStaleSessionNumber is returned for inbound data on a session
	// number older than the current one (§4.3).
	ErrStaleSessionNumber = errors.New("fscp: stale session number")

	// ErrReplayed is returned for an inbound sequence number not strictly
	// greater than the highest previously accepted one (§4.4).
	ErrReplayed = errors.New("fscp: replayed or out-of-order sequence number")

	// ErrSequenceExhausted is returned when a session's local sequence
	// counter would overflow; the caller must renew first (§4.3, §4.4).
	ErrSequenceExhausted = errors.New("fscp: sequence number space exhausted, renewal required")

	// ErrNoActiveSession is returned when an operation requires an
	// established session but none exists.
	ErrNoActiveSession = errors.New("fscp: no active session")

	// ErrPeerLost is returned for any operation attempted on a peer whose
	// state is LOST (§4.3: "LOST is terminal for the session").
	ErrPeerLost = errors.New("fscp: peer session is lost")

	// ErrRateLimited is returned when an unauthenticated message is
	// dropped by the admission control token bucket (§4.5).
	ErrRateLimited = errors.New("fscp: rate limited")

	// ErrNeverContact is returned when a source address matches the
	// never_contact_list (§4.5).
	ErrNeverContact = errors.New("fscp: source address is on the never-contact list")

	// ErrHelloIDMismatch is returned when a HELLO_RESPONSE's echoed id
	// does not match the outstanding HELLO_REQUEST.
	ErrHelloIDMismatch = errors.New("fscp: HELLO_RESPONSE id does not match outstanding request")
)
