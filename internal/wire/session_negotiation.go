package wire

import (
	"encoding/binary"

	"github.com/freelan-go/freelan/internal/crypto"
)

// SessionNegotiationMessage is the shared payload shape of SESSION_REQUEST
// and SESSION (§4.1): a session number, the sender's supported cipher
// suites and curves (for SESSION_REQUEST) or the chosen ones (for
// SESSION), an ephemeral public key, and a signature or HMAC over the
// preceding fields.
type SessionNegotiationMessage struct {
	SessionNumber      uint32
	CipherSuites       []crypto.CipherSuite
	Curves             []crypto.Curve
	EphemeralPublicKey []byte
	Signature          []byte
}

// SignedFields returns the bytes the signature/MAC is computed over: every
// field preceding the signature itself (§4.1: "a signature over the
// preceding fields").
func (m SessionNegotiationMessage) SignedFields() []byte {
	return m.encode(false)
}

// Encode returns the full wire payload, including the signature.
func (m SessionNegotiationMessage) Encode() []byte {
	return m.encode(true)
}

func (m SessionNegotiationMessage) encode(includeSignature bool) []byte {
	buf := make([]byte, 0, 64+len(m.EphemeralPublicKey)+len(m.Signature))

	var sessionNumber [4]byte
	binary.BigEndian.PutUint32(sessionNumber[:], m.SessionNumber)
	buf = append(buf, sessionNumber[:]...)

	suites := make([]byte, len(m.CipherSuites))
	for i, s := range m.CipherSuites {
		suites[i] = uint8(s)
	}
	buf = putUint8List(buf, suites)

	curves := make([]byte, len(m.Curves))
	for i, c := range m.Curves {
		curves[i] = uint8(c)
	}
	buf = putUint8List(buf, curves)

	buf = putUint16Bytes(buf, m.EphemeralPublicKey)

	if includeSignature {
		buf = putUint16Bytes(buf, m.Signature)
	}
	return buf
}

// DecodeSessionNegotiationMessage parses a SESSION_REQUEST or SESSION
// payload.
func DecodeSessionNegotiationMessage(payload []byte) (SessionNegotiationMessage, error) {
	if len(payload) < 4 {
		return SessionNegotiationMessage{}, ErrTruncatedPayload
	}
	var m SessionNegotiationMessage
	m.SessionNumber = binary.BigEndian.Uint32(payload[:4])
	rest := payload[4:]

	suites, consumed, err := getUint8List(rest)
	if err != nil {
		return SessionNegotiationMessage{}, err
	}
	rest = rest[consumed:]
	m.CipherSuites = make([]crypto.CipherSuite, len(suites))
	for i, b := range suites {
		m.CipherSuites[i] = crypto.CipherSuite(b)
	}

	curves, consumed, err := getUint8List(rest)
	if err != nil {
		return SessionNegotiationMessage{}, err
	}
	rest = rest[consumed:]
	m.Curves = make([]crypto.Curve, len(curves))
	for i, b := range curves {
		m.Curves[i] = crypto.Curve(b)
	}

	pub, consumed, err := getUint16Bytes(rest)
	if err != nil {
		return SessionNegotiationMessage{}, err
	}
	rest = rest[consumed:]
	m.EphemeralPublicKey = append([]byte(nil), pub...)

	sig, consumed, err := getUint16Bytes(rest)
	if err != nil {
		return SessionNegotiationMessage{}, err
	}
	rest = rest[consumed:]
	m.Signature = append([]byte(nil), sig...)

	if len(rest) != 0 {
		return SessionNegotiationMessage{}, ErrTrailingBytes
	}
	return m, nil
}
