package wire

import "encoding/binary"

// HeaderSize is the fixed 4-byte FSCP datagram header: version(1) |
// type(1) | length(2 big-endian) (§4.1).
const HeaderSize = 4

// MaxPayloadSize is the largest payload length the 16-bit length field can
// express.
const MaxPayloadSize = 1<<16 - 1

// Header is the fixed FSCP datagram header.
type Header struct {
	Version uint8
	Type    MessageType
	Length  uint16 // payload length, excluding the header itself
}

// Encode appends the wire representation of h to dst and returns the
// result.
func (h Header) Encode(dst []byte) []byte {
	dst = append(dst, h.Version, uint8(h.Type))
	var length [2]byte
	binary.BigEndian.PutUint16(length[:], h.Length)
	return append(dst, length[:]...)
}

// DecodeHeader parses the fixed header from buf. It does not validate
// that buf contains the full payload; callers should check
// len(buf) >= HeaderSize+int(h.Length) themselves via DecodeDatagram.
func DecodeHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, ErrTruncatedHeader
	}
	h := Header{
		Version: buf[0],
		Type:    MessageType(buf[1]),
		Length:  binary.BigEndian.Uint16(buf[2:4]),
	}
	return h, nil
}

// EncodeDatagram builds a full FSCP datagram: header followed by payload.
// It fails if payload exceeds MaxPayloadSize.
func EncodeDatagram(t MessageType, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadSize {
		return nil, ErrBadLength
	}
	h := Header{Version: Version, Type: t, Length: uint16(len(payload))}
	buf := make([]byte, 0, HeaderSize+len(payload))
	buf = h.Encode(buf)
	buf = append(buf, payload...)
	return buf, nil
}

// DecodeDatagram splits a raw received datagram into its header and
// payload, validating version and length (§7 wire parse errors).
func DecodeDatagram(buf []byte) (Header, []byte, error) {
	h, err := DecodeHeader(buf)
	if err != nil {
		return Header{}, nil, err
	}
	if h.Version != Version {
		return Header{}, nil, ErrBadVersion
	}
	rest := buf[HeaderSize:]
	if len(rest) < int(h.Length) {
		return Header{}, nil, ErrTruncatedPayload
	}
	if len(rest) > int(h.Length) {
		return Header{}, nil, ErrTrailingBytes
	}
	return h, rest, nil
}
