package wire

import "encoding/binary"

// SequenceNumberSize is the size of the in-session frame's sequence
// number field (§4.1).
const SequenceNumberSize = 4

// InSessionFrame is the wire shape of every message type >= 0x70 (§4.1):
// sequence_number(4) | ciphertext(N) | tag. Ciphertext here includes the
// AEAD tag appended at its end, matching Go's cipher.AEAD.Seal
// convention, so this struct does not separate them.
type InSessionFrame struct {
	SequenceNumber uint32
	Ciphertext     []byte // includes the trailing AEAD tag
}

// Encode returns the wire payload (without the FSCP header).
func (f InSessionFrame) Encode() []byte {
	buf := make([]byte, SequenceNumberSize, SequenceNumberSize+len(f.Ciphertext))
	binary.BigEndian.PutUint32(buf, f.SequenceNumber)
	return append(buf, f.Ciphertext...)
}

// DecodeInSessionFrame parses an in-session datagram payload.
func DecodeInSessionFrame(payload []byte) (InSessionFrame, error) {
	if len(payload) < SequenceNumberSize {
		return InSessionFrame{}, ErrTruncatedPayload
	}
	return InSessionFrame{
		SequenceNumber: binary.BigEndian.Uint32(payload[:SequenceNumberSize]),
		Ciphertext:     payload[SequenceNumberSize:],
	}, nil
}

// AssociatedData builds the AEAD associated data of §4.1: "the 4-byte
// FSCP header plus the 4-byte sequence number".
func AssociatedData(header Header, sequenceNumber uint32) []byte {
	buf := make([]byte, 0, HeaderSize+SequenceNumberSize)
	buf = header.Encode(buf)
	var seq [4]byte
	binary.BigEndian.PutUint32(seq[:], sequenceNumber)
	return append(buf, seq[:]...)
}
