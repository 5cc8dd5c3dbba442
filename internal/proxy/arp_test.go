package proxy

import (
	"net/netip"
	"testing"

	"github.com/freelan-go/freelan/internal/switchfab"
)

func buildARPRequest(senderMAC, targetMACPlaceholder switchfab.MAC, senderIP, targetIP netip.Addr) []byte {
	frame := make([]byte, switchfab.EthernetHeaderSize+arpPacketSize)
	broadcast := switchfab.MAC{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}
	copy(frame[0:6], broadcast[:])
	copy(frame[6:12], senderMAC[:])
	frame[12], frame[13] = ethertypeARP>>8, ethertypeARP&0xFF

	arp := frame[switchfab.EthernetHeaderSize:]
	arp[0], arp[1] = arpHTypeEth>>8, arpHTypeEth&0xFF
	arp[2], arp[3] = arpPTypeIPv4>>8, arpPTypeIPv4&0xFF
	arp[4], arp[5] = 6, 4
	arp[6], arp[7] = arpOpRequest>>8, arpOpRequest&0xFF
	copy(arp[8:14], senderMAC[:])
	senderIP4 := senderIP.As4()
	copy(arp[14:18], senderIP4[:])
	copy(arp[18:24], targetMACPlaceholder[:])
	targetIP4 := targetIP.As4()
	copy(arp[24:28], targetIP4[:])
	return frame
}

func TestARPProxyRepliesForOtherTarget(t *testing.T) {
	fakeMAC := switchfab.MAC{0x02, 0, 0, 0, 0, 0xAA}
	own := netip.MustParseAddr("10.0.0.1")
	p := &ARPProxy{OwnIPv4: own, FakeMAC: fakeMAC}

	requester := switchfab.MAC{0x02, 0, 0, 0, 0, 0x01}
	requesterIP := netip.MustParseAddr("10.0.0.5")
	targetIP := netip.MustParseAddr("10.0.0.99")

	req := buildARPRequest(requester, switchfab.MAC{}, requesterIP, targetIP)
	reply, ok := p.HandleFrame(req)
	if !ok {
		t.Fatalf("expected a reply")
	}

	dstMAC, srcMAC, parseOK := switchfab.ParseEthernetHeader(reply)
	if !parseOK || dstMAC != requester || srcMAC != fakeMAC {
		t.Fatalf("unexpected ethernet header in reply")
	}

	arp := reply[switchfab.EthernetHeaderSize:]
	oper := uint16(arp[6])<<8 | uint16(arp[7])
	if oper != arpOpReply {
		t.Fatalf("expected ARP reply opcode, got %d", oper)
	}
	var replySenderMAC switchfab.MAC
	copy(replySenderMAC[:], arp[8:14])
	if replySenderMAC != fakeMAC {
		t.Fatalf("expected reply sender MAC to be the fake MAC")
	}
}

func TestARPProxyIgnoresRequestForOwnAddress(t *testing.T) {
	own := netip.MustParseAddr("10.0.0.1")
	p := &ARPProxy{OwnIPv4: own, FakeMAC: switchfab.MAC{0x02}}

	req := buildARPRequest(
		switchfab.MAC{0x02, 0, 0, 0, 0, 0x01},
		switchfab.MAC{},
		netip.MustParseAddr("10.0.0.5"),
		own,
	)
	if _, ok := p.HandleFrame(req); ok {
		t.Fatalf("expected no reply for a request targeting our own address")
	}
}

func TestARPProxyIgnoresNonARPFrame(t *testing.T) {
	p := &ARPProxy{OwnIPv4: netip.MustParseAddr("10.0.0.1"), FakeMAC: switchfab.MAC{0x02}}
	frame := make([]byte, switchfab.EthernetHeaderSize+arpPacketSize)
	frame[12], frame[13] = ethertypeIPv4>>8, ethertypeIPv4&0xFF
	if _, ok := p.HandleFrame(frame); ok {
		t.Fatalf("expected no reply for a non-ARP frame")
	}
}
