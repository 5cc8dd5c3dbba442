package fscp

import (
	"time"

	"github.com/freelan-go/freelan/internal/crypto"
)

// NegotiatingSession is the "next" in-flight session of §3: an ephemeral
// ECDHE key pair and the session number it was generated for, pending a
// SESSION reply (if we are the initiator) or a SESSION we still need to
// send (if we are the responder).
type NegotiatingSession struct {
	SessionNumber uint32
	KeyPair       *crypto.EphemeralKeyPair
	Curve         crypto.Curve

	// ChosenSuite is set by a responder once it has negotiated a cipher
	// suite, so a retransmitted SESSION_REQUEST for the same session
	// number can resend the identical SESSION reply without
	// re-negotiating (§4.3 idempotency).
	ChosenSuite crypto.CipherSuite

	// OfferedSuites/OfferedCurves are set when we are the initiator, so a
	// retransmitted SESSION_REQUEST for the same session number can be
	// answered idempotently without re-deriving anything (§4.3).
	OfferedSuites []crypto.CipherSuite
	OfferedCurves []crypto.Curve

	// WeAreInitiator records which side sent the SESSION_REQUEST that
	// started this negotiation, needed to resolve the §4.3 tie-break.
	WeAreInitiator bool

	StartedAt time.Time
}
