package proxy

import (
	"net/netip"

	"github.com/freelan-go/freelan/internal/switchfab"
)

const (
	ipv6HeaderSize = 40

	icmpv6TypeNeighborSolicitation = 135
	icmpv6TypeNeighborAdvertisement = 136

	icmpv6OptSourceLinkLayerAddr = 1
	icmpv6OptTargetLinkLayerAddr = 2

	naFlagOverride = 0x20000000
)

// ICMPv6Proxy answers Neighbor Solicitations for any IPv6 address other
// than the adapter's own with a configured fake MAC, the IPv6 analogue of
// ARPProxy (§4.9: "in TUN IPv6 mode, reply to Neighbor Solicitations for
// any address != the adapter's own IPv6").
type ICMPv6Proxy struct {
	OwnAddress netip.Addr
	FakeMAC    switchfab.MAC
}

// HandleFrame inspects an Ethernet frame carrying an IPv6 Neighbor
// Solicitation and, if the target differs from OwnAddress, returns a
// synthesized Neighbor Advertisement frame.
func (p *ICMPv6Proxy) HandleFrame(frame []byte) (reply []byte, ok bool) {
	if len(frame) < switchfab.EthernetHeaderSize+ipv6HeaderSize {
		return nil, false
	}
	ethertype := uint16(frame[12])<<8 | uint16(frame[13])
	if ethertype != ethertypeIPv6 {
		return nil, false
	}

	ip6 := frame[switchfab.EthernetHeaderSize:]
	if ip6[6] != protoICMPv6 {
		return nil, false
	}
	srcAddr := netip.AddrFrom16([16]byte(ip6[8:24]))
	icmp := ip6[ipv6HeaderSize:]
	if len(icmp) < 24 || icmp[0] != icmpv6TypeNeighborSolicitation {
		return nil, false
	}
	targetAddr := netip.AddrFrom16([16]byte(icmp[8:24]))
	if targetAddr == p.OwnAddress {
		return nil, false
	}

	var srcMAC switchfab.MAC
	copy(srcMAC[:], frame[6:12])

	return p.buildAdvertisement(srcMAC, srcAddr, targetAddr), true
}

func (p *ICMPv6Proxy) buildAdvertisement(requesterMAC switchfab.MAC, requesterAddr, targetAddr netip.Addr) []byte {
	icmpPayload := make([]byte, 32)
	icmpPayload[0] = icmpv6TypeNeighborAdvertisement
	flags := uint32(naFlagOverride)
	icmpPayload[4] = byte(flags >> 24)
	icmpPayload[5] = byte(flags >> 16)
	icmpPayload[6] = byte(flags >> 8)
	icmpPayload[7] = byte(flags)
	targetBytes := targetAddr.As16()
	copy(icmpPayload[8:24], targetBytes[:])
	icmpPayload[24] = icmpv6OptTargetLinkLayerAddr
	icmpPayload[25] = 1 // option length in units of 8 bytes
	copy(icmpPayload[26:32], p.FakeMAC[:])

	ip6 := make([]byte, ipv6HeaderSize)
	ip6[0] = 0x60
	payloadLen := len(icmpPayload)
	ip6[4], ip6[5] = byte(payloadLen>>8), byte(payloadLen)
	ip6[6] = protoICMPv6
	ip6[7] = 255
	targetBytesIP := targetAddr.As16()
	copy(ip6[8:24], targetBytesIP[:])
	requesterBytes := requesterAddr.As16()
	copy(ip6[24:40], requesterBytes[:])

	pseudo := make([]byte, 40)
	copy(pseudo[0:16], ip6[8:24])
	copy(pseudo[16:32], ip6[24:40])
	pseudo[32], pseudo[33], pseudo[34], pseudo[35] = byte(payloadLen>>24), byte(payloadLen>>16), byte(payloadLen>>8), byte(payloadLen)
	pseudo[39] = protoICMPv6
	checksum := checksumWithPseudoHeader(pseudo, icmpPayload)
	icmpPayload[2], icmpPayload[3] = byte(checksum>>8), byte(checksum)

	frame := make([]byte, 0, switchfab.EthernetHeaderSize+ipv6HeaderSize+len(icmpPayload))
	frame = append(frame, requesterMAC[:]...)
	frame = append(frame, p.FakeMAC[:]...)
	frame = append(frame, ethertypeIPv6>>8, ethertypeIPv6&0xFF)
	frame = append(frame, ip6...)
	frame = append(frame, icmpPayload...)
	return frame
}
