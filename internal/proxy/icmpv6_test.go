package proxy

import (
	"net/netip"
	"testing"

	"github.com/freelan-go/freelan/internal/switchfab"
)

func buildNeighborSolicitation(srcMAC switchfab.MAC, srcAddr, targetAddr netip.Addr) []byte {
	icmp := make([]byte, 24)
	icmp[0] = icmpv6TypeNeighborSolicitation
	targetBytes := targetAddr.As16()
	copy(icmp[8:24], targetBytes[:])

	ip6 := make([]byte, ipv6HeaderSize)
	ip6[0] = 0x60
	payloadLen := len(icmp)
	ip6[4], ip6[5] = byte(payloadLen>>8), byte(payloadLen)
	ip6[6] = protoICMPv6
	ip6[7] = 255
	srcBytes := srcAddr.As16()
	copy(ip6[8:24], srcBytes[:])
	allNodes := netip.MustParseAddr("ff02::1").As16()
	copy(ip6[24:40], allNodes[:])

	pseudo := make([]byte, 40)
	copy(pseudo[0:16], ip6[8:24])
	copy(pseudo[16:32], ip6[24:40])
	pseudo[35] = byte(payloadLen)
	pseudo[39] = protoICMPv6
	checksum := checksumWithPseudoHeader(pseudo, icmp)
	icmp[2], icmp[3] = byte(checksum>>8), byte(checksum)

	frame := make([]byte, 0, switchfab.EthernetHeaderSize+ipv6HeaderSize+len(icmp))
	solicitedNodeMAC := switchfab.MAC{0x33, 0x33, 0, 0, 0, 1}
	frame = append(frame, solicitedNodeMAC[:]...)
	frame = append(frame, srcMAC[:]...)
	frame = append(frame, ethertypeIPv6>>8, ethertypeIPv6&0xFF)
	frame = append(frame, ip6...)
	frame = append(frame, icmp...)
	return frame
}

func TestICMPv6ProxyAdvertisesForOtherTarget(t *testing.T) {
	own := netip.MustParseAddr("fe80::1")
	fakeMAC := switchfab.MAC{0x02, 0, 0, 0, 0, 0xAA}
	p := &ICMPv6Proxy{OwnAddress: own, FakeMAC: fakeMAC}

	requester := switchfab.MAC{0x02, 0, 0, 0, 0, 0x01}
	requesterAddr := netip.MustParseAddr("fe80::5")
	target := netip.MustParseAddr("fe80::99")

	frame := buildNeighborSolicitation(requester, requesterAddr, target)
	reply, ok := p.HandleFrame(frame)
	if !ok {
		t.Fatalf("expected a neighbor advertisement")
	}

	dstMAC, srcMAC, parseOK := switchfab.ParseEthernetHeader(reply)
	if !parseOK || dstMAC != requester || srcMAC != fakeMAC {
		t.Fatalf("unexpected ethernet header in reply")
	}

	icmp := reply[switchfab.EthernetHeaderSize+ipv6HeaderSize:]
	if icmp[0] != icmpv6TypeNeighborAdvertisement {
		t.Fatalf("expected neighbor advertisement type, got %d", icmp[0])
	}
	advertised := netip.AddrFrom16([16]byte(icmp[8:24]))
	if advertised != target {
		t.Fatalf("expected advertisement for target %v, got %v", target, advertised)
	}
}

func TestICMPv6ProxyIgnoresSolicitationForOwnAddress(t *testing.T) {
	own := netip.MustParseAddr("fe80::1")
	p := &ICMPv6Proxy{OwnAddress: own, FakeMAC: switchfab.MAC{0x02}}

	frame := buildNeighborSolicitation(switchfab.MAC{0x02, 0, 0, 0, 0, 0x01}, netip.MustParseAddr("fe80::5"), own)
	if _, ok := p.HandleFrame(frame); ok {
		t.Fatalf("expected no reply for a solicitation targeting our own address")
	}
}
