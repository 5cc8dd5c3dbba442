package orchestrator

import (
	"fmt"
	"net"
	"net/netip"

	"github.com/freelan-go/freelan/internal/wire"
)

const udpReadBufferSize = 1 << 16

// listen opens the configured UDP sockets (§6: "the core owns the UDP
// sockets"). It is safe to call with either listen address empty.
func (c *Core) listen() error {
	if addr := c.cfg.Server.ListenAddr4; addr != "" {
		conn, err := net.ListenPacket("udp4", addr)
		if err != nil {
			return fmt.Errorf("orchestrator: listening on %s: %w", addr, err)
		}
		c.conn4 = conn
	}
	if addr := c.cfg.Server.ListenAddr6; addr != "" {
		conn, err := net.ListenPacket("udp6", addr)
		if err != nil {
			return fmt.Errorf("orchestrator: listening on %s: %w", addr, err)
		}
		c.conn6 = conn
	}
	if c.conn4 == nil && c.conn6 == nil {
		return fmt.Errorf("orchestrator: no UDP socket configured")
	}
	return nil
}

// runUDPReadLoop reads datagrams off conn until it errors (typically
// because Close was called) and posts each decoded one to the strand.
func (c *Core) runUDPReadLoop(conn net.PacketConn) {
	buf := make([]byte, udpReadBufferSize)
	for {
		n, addr, err := conn.ReadFrom(buf)
		if err != nil {
			return
		}
		from, ok := addrPortOf(addr)
		if !ok {
			continue
		}
		header, payload, err := wire.DecodeDatagram(buf[:n])
		if err != nil {
			c.log.WithError(err).WithField("endpoint", from).Debug("dropping malformed datagram")
			continue
		}
		payload = append([]byte(nil), payload...)
		c.strand.Post(func() {
			c.dispatchDatagram(from, header, payload)
		})
	}
}

func addrPortOf(addr net.Addr) (netip.AddrPort, bool) {
	udpAddr, ok := addr.(*net.UDPAddr)
	if !ok {
		return netip.AddrPort{}, false
	}
	ap := udpAddr.AddrPort()
	return netip.AddrPortFrom(ap.Addr().Unmap(), ap.Port()), true
}
