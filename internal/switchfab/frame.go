package switchfab

// MAC is a 6-byte Ethernet hardware address.
type MAC [6]byte

// EthernetHeaderSize is the size of a bare (untagged) Ethernet header:
// destination (6) + source (6) + ethertype (2).
const EthernetHeaderSize = 14

// ParseEthernetHeader extracts the destination and source MAC addresses
// from frame. It returns ok=false (§4.7: "fail-silent on too-short
// frames") if frame is shorter than EthernetHeaderSize.
func ParseEthernetHeader(frame []byte) (dst, src MAC, ok bool) {
	if len(frame) < EthernetHeaderSize {
		return MAC{}, MAC{}, false
	}
	copy(dst[:], frame[0:6])
	copy(src[:], frame[6:12])
	return dst, src, true
}

// IsUnicast reports whether m is a unicast address (the I/G bit, the
// low-order bit of the first octet, is 0).
func (m MAC) IsUnicast() bool {
	return m[0]&0x01 == 0
}

// IsBroadcast reports whether m is the all-ones broadcast address.
func (m MAC) IsBroadcast() bool {
	for _, b := range m {
		if b != 0xFF {
			return false
		}
	}
	return true
}
