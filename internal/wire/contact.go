package wire

import (
	"encoding/binary"
	"net/netip"
)

// CertificateHashSize is the fixed size of a compact peer identifier
// (§3: SHA-256 of the DER certificate).
const CertificateHashSize = 32

// ContactRequestMessage asks a peer whether it knows the endpoint for any
// of the given certificate hashes (§4.6). It is carried, decrypted,
// inside a CONTACT_REQUEST in-session frame.
type ContactRequestMessage struct {
	Hashes [][CertificateHashSize]byte
}

// Encode returns the decrypted CONTACT_REQUEST payload.
func (m ContactRequestMessage) Encode() []byte {
	buf := make([]byte, 1, 1+len(m.Hashes)*CertificateHashSize)
	buf[0] = uint8(len(m.Hashes))
	for _, h := range m.Hashes {
		buf = append(buf, h[:]...)
	}
	return buf
}

// DecodeContactRequestMessage parses a decrypted CONTACT_REQUEST payload.
func DecodeContactRequestMessage(payload []byte) (ContactRequestMessage, error) {
	if len(payload) < 1 {
		return ContactRequestMessage{}, ErrTruncatedPayload
	}
	count := int(payload[0])
	rest := payload[1:]
	if len(rest) != count*CertificateHashSize {
		return ContactRequestMessage{}, ErrTruncatedPayload
	}
	m := ContactRequestMessage{Hashes: make([][CertificateHashSize]byte, count)}
	for i := 0; i < count; i++ {
		copy(m.Hashes[i][:], rest[i*CertificateHashSize:(i+1)*CertificateHashSize])
	}
	return m, nil
}

// ContactEntry is one (hash, endpoint) tuple in a CONTACT response.
type ContactEntry struct {
	Hash     [CertificateHashSize]byte
	Endpoint netip.AddrPort
}

// ContactMessage answers a ContactRequestMessage with the endpoints the
// responder knows and is willing to share (§4.6).
type ContactMessage struct {
	Entries []ContactEntry
}

// Encode returns the decrypted CONTACT payload. Each entry is encoded as
// hash(32) | af(1: 4 or 6) | address(4 or 16) | port(2).
func (m ContactMessage) Encode() []byte {
	buf := make([]byte, 1)
	buf[0] = uint8(len(m.Entries))
	for _, e := range m.Entries {
		buf = append(buf, e.Hash[:]...)
		addr := e.Endpoint.Addr()
		if addr.Is4() {
			buf = append(buf, 4)
			b := addr.As4()
			buf = append(buf, b[:]...)
		} else {
			buf = append(buf, 6)
			b := addr.As16()
			buf = append(buf, b[:]...)
		}
		var port [2]byte
		binary.BigEndian.PutUint16(port[:], e.Endpoint.Port())
		buf = append(buf, port[:]...)
	}
	return buf
}

// DecodeContactMessage parses a decrypted CONTACT payload.
func DecodeContactMessage(payload []byte) (ContactMessage, error) {
	if len(payload) < 1 {
		return ContactMessage{}, ErrTruncatedPayload
	}
	count := int(payload[0])
	rest := payload[1:]

	m := ContactMessage{Entries: make([]ContactEntry, 0, count)}
	for i := 0; i < count; i++ {
		if len(rest) < CertificateHashSize+1 {
			return ContactMessage{}, ErrTruncatedPayload
		}
		var entry ContactEntry
		copy(entry.Hash[:], rest[:CertificateHashSize])
		rest = rest[CertificateHashSize:]

		af := rest[0]
		rest = rest[1:]
		var addr netip.Addr
		switch af {
		case 4:
			if len(rest) < 4+2 {
				return ContactMessage{}, ErrTruncatedPayload
			}
			var b [4]byte
			copy(b[:], rest[:4])
			addr = netip.AddrFrom4(b)
			rest = rest[4:]
		case 6:
			if len(rest) < 16+2 {
				return ContactMessage{}, ErrTruncatedPayload
			}
			var b [16]byte
			copy(b[:], rest[:16])
			addr = netip.AddrFrom16(b)
			rest = rest[16:]
		default:
			return ContactMessage{}, ErrBadLength
		}
		port := binary.BigEndian.Uint16(rest[:2])
		rest = rest[2:]
		entry.Endpoint = netip.AddrPortFrom(addr, port)
		m.Entries = append(m.Entries, entry)
	}
	if len(rest) != 0 {
		return ContactMessage{}, ErrTrailingBytes
	}
	return m, nil
}
