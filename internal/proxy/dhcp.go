package proxy

import (
	"net/netip"
	"sync"
	"time"

	"github.com/freelan-go/freelan/internal/switchfab"
)

const (
	udpPortDHCPServer = 67
	udpPortDHCPClient = 68

	bootpOpRequest = 1
	bootpOpReply   = 2
	bootpHTypeEth  = 1

	bootpMessageSize = 236 // fixed portion, up to (but excluding) options
	dhcpMagicCookieA = 99
	dhcpMagicCookieB = 130
	dhcpMagicCookieC = 83
	dhcpMagicCookieD = 99

	optMessageType    = 53
	optSubnetMask     = 1
	optServerID       = 54
	optLeaseTime      = 51
	optEnd            = 255
	optPad            = 0

	dhcpDiscover = 1
	dhcpOffer    = 2
	dhcpRequest  = 3
	dhcpAck      = 5
)

// Lease is a DHCP proxy's configured address assignment for one MAC
// (§4.9: "maintain a table MAC -> (IPv4, prefix)").
type Lease struct {
	Address netip.Addr
	Prefix  int
}

// DefaultLeaseTime is used when DHCPProxy.LeaseTime is zero.
const DefaultLeaseTime = 2 * time.Hour

// DHCPProxy answers DHCP DISCOVER/REQUEST locally from a configured
// MAC -> lease table, with the adapter's own address as DHCP server
// (§4.9).
type DHCPProxy struct {
	ServerIP  netip.Addr
	ServerMAC switchfab.MAC
	LeaseTime time.Duration

	mu     sync.RWMutex
	leases map[switchfab.MAC]Lease
}

// NewDHCPProxy creates a proxy answering as serverIP/serverMAC.
func NewDHCPProxy(serverIP netip.Addr, serverMAC switchfab.MAC) *DHCPProxy {
	return &DHCPProxy{ServerIP: serverIP, ServerMAC: serverMAC, leases: make(map[switchfab.MAC]Lease)}
}

// SetLease configures the address handed out to mac.
func (p *DHCPProxy) SetLease(mac switchfab.MAC, lease Lease) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.leases[mac] = lease
}

func (p *DHCPProxy) lookupLease(mac switchfab.MAC) (Lease, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	l, ok := p.leases[mac]
	return l, ok
}

// HandleFrame inspects an Ethernet frame and, for a DHCP DISCOVER or
// REQUEST addressed to the DHCP server port from a MAC with a configured
// lease, returns the corresponding OFFER/ACK reply frame.
func (p *DHCPProxy) HandleFrame(frame []byte) (reply []byte, ok bool) {
	_, _, udp, bootp, opts, ok := parseDHCPFrame(frame)
	if !ok {
		return nil, false
	}
	if udpHeaderPorts(udp).dstPort != udpPortDHCPServer {
		return nil, false
	}

	var clientMAC switchfab.MAC
	copy(clientMAC[:], bootp[28:34]) // chaddr, first 6 bytes

	lease, have := p.lookupLease(clientMAC)
	if !have {
		return nil, false
	}

	msgType, ok := opts[optMessageType]
	if !ok || len(msgType) != 1 {
		return nil, false
	}

	var replyType byte
	switch msgType[0] {
	case dhcpDiscover:
		replyType = dhcpOffer
	case dhcpRequest:
		replyType = dhcpAck
	default:
		return nil, false
	}

	return p.buildReply(bootp, clientMAC, lease, replyType), true
}

type dhcpUDPHeader struct {
	srcPort, dstPort uint16
}

func parseDHCPFrame(frame []byte) (eth, ip, udp []byte, bootp []byte, opts map[byte][]byte, ok bool) {
	if len(frame) < switchfab.EthernetHeaderSize {
		return nil, nil, nil, nil, nil, false
	}
	ethertype := uint16(frame[12])<<8 | uint16(frame[13])
	if ethertype != ethertypeIPv4 {
		return nil, nil, nil, nil, nil, false
	}
	eth = frame[0:switchfab.EthernetHeaderSize]
	ipPacket := frame[switchfab.EthernetHeaderSize:]
	if len(ipPacket) < 20 {
		return nil, nil, nil, nil, nil, false
	}
	ihl := int(ipPacket[0]&0x0F) * 4
	if len(ipPacket) < ihl || ipPacket[9] != protoUDP {
		return nil, nil, nil, nil, nil, false
	}
	ip = ipPacket[:ihl]
	udpSeg := ipPacket[ihl:]
	if len(udpSeg) < 8 {
		return nil, nil, nil, nil, nil, false
	}
	udp = udpSeg[:8]
	payload := udpSeg[8:]
	if len(payload) < bootpMessageSize+4 {
		return nil, nil, nil, nil, nil, false
	}
	if payload[bootpMessageSize] != dhcpMagicCookieA || payload[bootpMessageSize+1] != dhcpMagicCookieB ||
		payload[bootpMessageSize+2] != dhcpMagicCookieC || payload[bootpMessageSize+3] != dhcpMagicCookieD {
		return nil, nil, nil, nil, nil, false
	}
	bootp = payload[:bootpMessageSize]
	opts = parseDHCPOptions(payload[bootpMessageSize+4:])
	return eth, ip, udp, bootp, opts, true
}

func parseDHCPOptions(buf []byte) map[byte][]byte {
	opts := make(map[byte][]byte)
	for i := 0; i < len(buf); {
		tag := buf[i]
		if tag == optEnd {
			break
		}
		if tag == optPad {
			i++
			continue
		}
		if i+1 >= len(buf) {
			break
		}
		length := int(buf[i+1])
		if i+2+length > len(buf) {
			break
		}
		opts[tag] = buf[i+2 : i+2+length]
		i += 2 + length
	}
	return opts
}

func udpHeaderPorts(udp []byte) dhcpUDPHeader {
	return dhcpUDPHeader{
		srcPort: uint16(udp[0])<<8 | uint16(udp[1]),
		dstPort: uint16(udp[2])<<8 | uint16(udp[3]),
	}
}

func (p *DHCPProxy) buildReply(bootp []byte, clientMAC switchfab.MAC, lease Lease, replyType byte) []byte {
	xid := bootp[4:8]

	leaseTime := p.LeaseTime
	if leaseTime <= 0 {
		leaseTime = DefaultLeaseTime
	}
	leaseSeconds := uint32(leaseTime / time.Second)

	body := make([]byte, bootpMessageSize)
	body[0] = bootpOpReply
	body[1] = bootpHTypeEth
	body[2] = 6
	copy(body[4:8], xid)
	yiaddr := lease.Address.As4()
	copy(body[16:20], yiaddr[:])
	siaddr := p.ServerIP.As4()
	copy(body[20:24], siaddr[:])
	copy(body[28:34], clientMAC[:])

	opts := make([]byte, 0, 32)
	opts = append(opts, dhcpMagicCookieA, dhcpMagicCookieB, dhcpMagicCookieC, dhcpMagicCookieD)
	opts = append(opts, optMessageType, 1, replyType)
	opts = append(opts, optServerID, 4)
	opts = append(opts, siaddr[:]...)
	mask := prefixToIPv4Mask(lease.Prefix)
	opts = append(opts, optSubnetMask, 4)
	opts = append(opts, mask[:]...)
	opts = append(opts, optLeaseTime, 4,
		byte(leaseSeconds>>24), byte(leaseSeconds>>16), byte(leaseSeconds>>8), byte(leaseSeconds))
	opts = append(opts, optEnd)

	payload := append(body, opts...)

	udpHeader := make([]byte, 8)
	udpHeader[0], udpHeader[1] = udpPortDHCPServer>>8, udpPortDHCPServer&0xFF
	udpHeader[2], udpHeader[3] = udpPortDHCPClient>>8, udpPortDHCPClient&0xFF
	udpLen := 8 + len(payload)
	udpHeader[4], udpHeader[5] = byte(udpLen>>8), byte(udpLen)

	ipHeader := make([]byte, 20)
	ipHeader[0] = 0x45
	totalLen := 20 + udpLen
	ipHeader[2], ipHeader[3] = byte(totalLen>>8), byte(totalLen)
	ipHeader[8] = 64
	ipHeader[9] = protoUDP
	copy(ipHeader[12:16], siaddr[:])
	broadcast := [4]byte{255, 255, 255, 255}
	copy(ipHeader[16:20], broadcast[:])
	binarySetChecksum(ipHeader, 10, internetChecksum(ipHeader))

	broadcastMAC := switchfab.MAC{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}
	frame := make([]byte, 0, switchfab.EthernetHeaderSize+totalLen)
	frame = append(frame, broadcastMAC[:]...)
	frame = append(frame, p.ServerMAC[:]...)
	frame = append(frame, ethertypeIPv4>>8, ethertypeIPv4&0xFF)
	frame = append(frame, ipHeader...)
	frame = append(frame, udpHeader...)
	frame = append(frame, payload...)
	return frame
}

func prefixToIPv4Mask(prefix int) [4]byte {
	var mask [4]byte
	for i := 0; i < 4; i++ {
		bits := prefix - i*8
		switch {
		case bits >= 8:
			mask[i] = 0xFF
		case bits <= 0:
			mask[i] = 0
		default:
			mask[i] = byte(0xFF << (8 - bits))
		}
	}
	return mask
}

func binarySetChecksum(header []byte, offset int, sum uint16) {
	header[offset] = byte(sum >> 8)
	header[offset+1] = byte(sum)
}
