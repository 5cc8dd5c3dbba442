package proxy

import (
	"net/netip"

	"github.com/freelan-go/freelan/internal/switchfab"
)

const (
	ethertypeARP  = 0x0806
	arpHTypeEth   = 1
	arpPTypeIPv4  = 0x0800
	arpOpRequest  = 1
	arpOpReply    = 2
	arpPacketSize = 28
)

// ARPProxy answers ARP requests for any target IPv4 other than the
// adapter's own address with a configured fake MAC, so the local kernel
// believes the whole subnet is reachable via the adapter (§4.9).
type ARPProxy struct {
	OwnIPv4 netip.Addr
	FakeMAC switchfab.MAC
}

// HandleFrame inspects an Ethernet frame and, if it is an ARP request
// whose target differs from OwnIPv4, returns a synthesized ARP reply
// frame (ok=true). Any other frame yields ok=false and no reply.
func (p *ARPProxy) HandleFrame(frame []byte) (reply []byte, ok bool) {
	if len(frame) < switchfab.EthernetHeaderSize+arpPacketSize {
		return nil, false
	}
	ethertype := uint16(frame[12])<<8 | uint16(frame[13])
	if ethertype != ethertypeARP {
		return nil, false
	}

	arp := frame[switchfab.EthernetHeaderSize:]
	htype := uint16(arp[0])<<8 | uint16(arp[1])
	ptype := uint16(arp[2])<<8 | uint16(arp[3])
	hlen, plen := arp[4], arp[5]
	oper := uint16(arp[6])<<8 | uint16(arp[7])
	if htype != arpHTypeEth || ptype != arpPTypeIPv4 || hlen != 6 || plen != 4 || oper != arpOpRequest {
		return nil, false
	}

	var senderMAC, targetMAC switchfab.MAC
	copy(senderMAC[:], arp[8:14])
	senderIP := netip.AddrFrom4([4]byte(arp[14:18]))
	copy(targetMAC[:], arp[18:24])
	targetIP := netip.AddrFrom4([4]byte(arp[24:28]))
	_ = targetMAC

	if targetIP == p.OwnIPv4 {
		return nil, false
	}

	return p.buildReply(senderMAC, senderIP, targetIP), true
}

func (p *ARPProxy) buildReply(requesterMAC switchfab.MAC, requesterIP, targetIP netip.Addr) []byte {
	frame := make([]byte, switchfab.EthernetHeaderSize+arpPacketSize)

	copy(frame[0:6], requesterMAC[:])
	copy(frame[6:12], p.FakeMAC[:])
	frame[12] = ethertypeARP >> 8
	frame[13] = ethertypeARP & 0xFF

	arp := frame[switchfab.EthernetHeaderSize:]
	arp[0], arp[1] = arpHTypeEth>>8, arpHTypeEth&0xFF
	arp[2], arp[3] = arpPTypeIPv4>>8, arpPTypeIPv4&0xFF
	arp[4] = 6
	arp[5] = 4
	arp[6], arp[7] = arpOpReply>>8, arpOpReply&0xFF
	copy(arp[8:14], p.FakeMAC[:])
	targetIP4 := targetIP.As4()
	copy(arp[14:18], targetIP4[:])
	copy(arp[18:24], requesterMAC[:])
	requesterIP4 := requesterIP.As4()
	copy(arp[24:28], requesterIP4[:])

	return frame
}
