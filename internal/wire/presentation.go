package wire

// PresentationMessage carries the sender's signature certificate
// (DER-encoded, length-prefixed, possibly empty for PSK-only nodes) and
// its host identifier (§4.1, §3).
type PresentationMessage struct {
	CertificateDER []byte // empty when the sender is PSK-only.
	HostIdentifier [32]byte
}

// Encode returns the wire payload (without the FSCP header).
func (m PresentationMessage) Encode() []byte {
	buf := make([]byte, 0, 2+len(m.CertificateDER)+32)
	buf = putUint16Bytes(buf, m.CertificateDER)
	buf = append(buf, m.HostIdentifier[:]...)
	return buf
}

// DecodePresentationMessage parses a PRESENTATION payload.
func DecodePresentationMessage(payload []byte) (PresentationMessage, error) {
	cert, consumed, err := getUint16Bytes(payload)
	if err != nil {
		return PresentationMessage{}, err
	}
	rest := payload[consumed:]
	if len(rest) != 32 {
		return PresentationMessage{}, ErrTruncatedPayload
	}
	var m PresentationMessage
	if len(cert) > 0 {
		m.CertificateDER = append([]byte(nil), cert...)
	}
	copy(m.HostIdentifier[:], rest)
	return m, nil
}
