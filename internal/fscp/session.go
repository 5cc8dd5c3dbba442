package fscp

import (
	"math"
	"time"

	"github.com/freelan-go/freelan/internal/crypto"
)

// renewSequenceThreshold is the sequence number value past which a
// session must renew (§4.3: "local_sequence_number > 2^31").
const renewSequenceThreshold = uint32(1) << 31

// SessionKeys holds the negotiated, derived key material and counters of
// one FSCP session (§3 "Current session"). Session numbers increase
// monotonically across renewals of the same peer.
type SessionKeys struct {
	SessionNumber uint32
	CipherSuite   crypto.CipherSuite
	Curve         crypto.Curve

	LocalSessionKey   []byte
	RemoteSessionKey  []byte
	LocalNoncePrefix  []byte
	RemoteNoncePrefix []byte

	localSequenceNumber  uint32
	haveRemoteSequence   bool
	remoteSequenceNumber uint32

	LastSignOfLife time.Time
}

// NewSessionKeys builds a SessionKeys from negotiated material.
func NewSessionKeys(sessionNumber uint32, suite crypto.CipherSuite, curve crypto.Curve, material *crypto.SessionMaterial, now time.Time) *SessionKeys {
	return &SessionKeys{
		SessionNumber:     sessionNumber,
		CipherSuite:       suite,
		Curve:             curve,
		LocalSessionKey:   material.LocalSessionKey,
		RemoteSessionKey:  material.RemoteSessionKey,
		LocalNoncePrefix:  material.LocalNoncePrefix,
		RemoteNoncePrefix: material.RemoteNoncePrefix,
		LastSignOfLife:    now,
	}
}

// NextLocalSequenceNumber assigns and returns the next outbound sequence
// number for this session (§3 invariant: "local_sequence_number strictly
// increases per sent data message on this session"; §4.4: "Senders never
// reuse a sequence number within a session").
//
// It returns ErrSequenceExhausted only once the counter would overflow
// uint32. ShouldRenew reports the renewal trigger long before that, as
// soon as the counter passes renewSequenceThreshold, so this is a
// defensive backstop, not the primary trigger.
func (s *SessionKeys) NextLocalSequenceNumber() (uint32, error) {
	if s.localSequenceNumber == math.MaxUint32 {
		return 0, ErrSequenceExhausted
	}
	n := s.localSequenceNumber
	s.localSequenceNumber++
	return n, nil
}

// LocalSequenceNumber returns the next value NextLocalSequenceNumber would
// hand out, without consuming it.
func (s *SessionKeys) LocalSequenceNumber() uint32 { return s.localSequenceNumber }

// RemoteSequenceNumber returns the highest accepted inbound sequence
// number, or 0 with ok=false if none has been accepted yet.
func (s *SessionKeys) RemoteSequenceNumber() (n uint32, ok bool) {
	return s.remoteSequenceNumber, s.haveRemoteSequence
}

// AcceptInbound implements the no-window replay protection of §4.4: a
// sequence number is accepted only if strictly greater than the highest
// previously accepted value. On acceptance it updates the high-water mark
// and LastSignOfLife.
func (s *SessionKeys) AcceptInbound(sequenceNumber uint32, now time.Time) error {
	if s.haveRemoteSequence && sequenceNumber <= s.remoteSequenceNumber {
		return ErrReplayed
	}
	s.remoteSequenceNumber = sequenceNumber
	s.haveRemoteSequence = true
	s.LastSignOfLife = now
	return nil
}

// ShouldRenew reports whether this session has crossed either sequence
// number renewal threshold (§4.3). The renew timer (default 12h) is
// evaluated by the caller, which owns the timer.
func (s *SessionKeys) ShouldRenew() bool {
	if s.localSequenceNumber > renewSequenceThreshold {
		return true
	}
	if s.haveRemoteSequence && s.remoteSequenceNumber > renewSequenceThreshold {
		return true
	}
	return false
}
