package orchestrator

import (
	"net"
	"net/netip"
	"strconv"
	"time"

	"github.com/freelan-go/freelan/internal/fscp"
	"github.com/freelan-go/freelan/internal/routesdist"
	"github.com/freelan-go/freelan/internal/wire"
)

// localRoutesMessage builds the ROUTES payload advertising this node's own
// addresses to its peers (§4.10), bumping our monotonic version on every
// call so a superseding advertisement is always accepted.
func (c *Core) localRoutesMessage() routesdist.RoutesMessage {
	var entries []routesdist.Entry
	if c.cfg.Network.IPv4.IsValid() {
		entries = append(entries, routesdist.NewRouteEntry(c.cfg.Network.IPv4, netip.Addr{}))
	}
	if c.cfg.Network.IPv6.IsValid() {
		entries = append(entries, routesdist.NewRouteEntry(c.cfg.Network.IPv6, netip.Addr{}))
	}
	c.routesVersion++
	return routesdist.RoutesMessage{Version: c.routesVersion, Entries: entries}
}

// connectStaticContacts resolves and HELLOs every configured static
// contact address that does not already have a live peer (§4.6: static
// contacts are dialed directly, no CONTACT_REQUEST needed).
func (c *Core) connectStaticContacts() {
	for _, addr := range c.cfg.Server.StaticContacts {
		endpoint, err := resolveContact(addr)
		if err != nil {
			c.log.WithError(err).WithField("contact", addr).Warn("failed to resolve static contact")
			continue
		}
		if peer := c.registry.PeerByEndpoint(endpoint); peer != nil && peer.State != fscp.StateLost {
			continue
		}
		c.initiateHello(endpoint)
	}
}

// resolveContact resolves a "host:port" static contact address to a
// netip.AddrPort, via DNS if host is not already numeric.
func resolveContact(addr string) (netip.AddrPort, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return netip.AddrPort{}, err
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return netip.AddrPort{}, err
	}
	if ip, err := netip.ParseAddr(host); err == nil {
		return netip.AddrPortFrom(ip.Unmap(), uint16(port)), nil
	}
	ips, err := net.LookupIP(host)
	if err != nil {
		return netip.AddrPort{}, err
	}
	ip, ok := netip.AddrFromSlice(ips[0])
	if !ok {
		return netip.AddrPort{}, &net.AddrError{Err: "unresolvable static contact", Addr: addr}
	}
	return netip.AddrPortFrom(ip.Unmap(), uint16(port)), nil
}

// sweepIdlePeers tears down every peer silent for longer than
// fscp.DefaultIdleTimeout (§4.3).
func (c *Core) sweepIdlePeers() {
	now := time.Now()
	for _, peer := range c.registry.AllPeers() {
		if peer.IsIdle(now, fscp.DefaultIdleTimeout) {
			c.teardownPeer(peer.Endpoint, peer)
		}
	}
}

// renewSessionsIfNeeded begins renewal (§4.3) for every established peer
// whose session has crossed a renewal trigger, either the sequence number
// threshold or the fixed renew interval since the last negotiation.
func (c *Core) renewSessionsIfNeeded() {
	now := time.Now()
	for _, peer := range c.registry.AllPeers() {
		if peer.State != fscp.StateEstablished || peer.Current == nil {
			continue
		}
		due := peer.Current.ShouldRenew() || now.Sub(peer.Current.LastSignOfLife) > fscp.DefaultRenewInterval
		if !due {
			continue
		}
		if err := peer.BeginRenewal(now); err != nil {
			continue
		}
		c.initiateSessionRequest(peer.Endpoint, peer)
	}
}

// requestRoutesFromPeers sends a ROUTES_REQUEST to every established peer
// (§4.10 periodic re-request timer).
func (c *Core) requestRoutesFromPeers() {
	for _, peer := range c.registry.AllPeers() {
		if peer.State.HasSession() {
			c.sendRoutesRequest(peer.Endpoint, peer)
		}
	}
}

// requestDesiredContacts asks every established peer about any
// configured desired-peer hash we do not already have an endpoint for
// (§4.6: CONTACT_REQUEST is how a node asks "do you know endpoint for
// hash X?").
func (c *Core) requestDesiredContacts() {
	var unresolved [][32]byte
	for _, hash := range c.cfg.Server.DesiredPeerCertificateHashes {
		if _, ok := c.registry.LookupContact(hash); ok {
			continue
		}
		unresolved = append(unresolved, hash)
	}
	if len(unresolved) == 0 {
		return
	}
	for _, peer := range c.registry.AllPeers() {
		if peer.State.HasSession() {
			c.requestContacts(peer.Endpoint, peer, unresolved)
		}
	}
}

// sendKeepAlives sends a KEEP_ALIVE to peers that have not sent us
// anything in a while, so the idle timeout is not reached merely because
// we have nothing else to carry (§4.3).
func (c *Core) sendKeepAlives() {
	now := time.Now()
	threshold := fscp.DefaultIdleTimeout / 3
	for _, peer := range c.registry.AllPeers() {
		if !peer.State.HasSession() {
			continue
		}
		if now.Sub(peer.Current.LastSignOfLife) < threshold {
			continue
		}
		if err := c.sendInSession(peer.Endpoint, peer, wire.TypeKeepAlive, nil); err != nil {
			c.log.WithError(err).WithField("endpoint", peer.Endpoint).Debug("failed to send KEEP_ALIVE")
		}
	}
}
