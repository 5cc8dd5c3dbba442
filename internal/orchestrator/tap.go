package orchestrator

import (
	"net/netip"

	"github.com/freelan-go/freelan/internal/proxy"
)

const tapReadBufferSize = 1 << 16

// runTapReadLoop pumps frames off the TAP/TUN handle until it is closed,
// applying the configured proxies and MSS clamp before handing each frame
// to the forwarding fabric (§4.9, §6).
func (c *Core) runTapReadLoop() {
	if c.tapHandle == nil {
		return
	}
	buf := make([]byte, tapReadBufferSize)
	var read func()
	read = func() {
		c.tapHandle.AsyncRead(buf, func(n int, err error) {
			if err != nil {
				return
			}
			frame := append([]byte(nil), buf[:n]...)
			c.strand.Post(func() {
				c.handleTapFrame(frame)
			})
			read()
		})
	}
	read()
}

func (c *Core) handleTapFrame(frame []byte) {
	if c.arpProxy != nil {
		if reply, ok := c.arpProxy.HandleFrame(frame); ok {
			c.writeToTap(reply, nil)
			return
		}
	}
	if c.dhcpProxy != nil {
		if reply, ok := c.dhcpProxy.HandleFrame(frame); ok {
			c.writeToTap(reply, nil)
			return
		}
	}
	if c.icmp6Proxy != nil {
		if reply, ok := c.icmp6Proxy.HandleFrame(frame); ok {
			c.writeToTap(reply, nil)
			return
		}
	}
	if c.maxMSS > 0 {
		if out, modified := proxy.ClampMSS(frame, c.maxMSS); modified {
			frame = out
		}
	}
	c.forward(tapPortIndex, frame)
}

// ipDestination extracts the destination address from a raw IPv4 or IPv6
// packet (router/TUN mode, §4.8), identified by the version nibble in the
// first byte.
func ipDestination(packet []byte) (netip.Addr, bool) {
	if len(packet) == 0 {
		return netip.Addr{}, false
	}
	switch packet[0] >> 4 {
	case 4:
		if len(packet) < 20 {
			return netip.Addr{}, false
		}
		var b [4]byte
		copy(b[:], packet[16:20])
		return netip.AddrFrom4(b), true
	case 6:
		if len(packet) < 40 {
			return netip.Addr{}, false
		}
		var b [16]byte
		copy(b[:], packet[24:40])
		return netip.AddrFrom16(b), true
	default:
		return netip.Addr{}, false
	}
}
