// Package orchestrator wires every other internal package into a running
// node (§2, §5, §6): it owns the UDP sockets, the TAP/TUN handle, the
// peer registry, the switch or router forwarding fabric, the routes
// distributor, the TAP-side proxies, and drives the full FSCP handshake
// and DATA-channel dispatch on top of internal/fscp, internal/wire,
// internal/crypto, and internal/identity. All mutation of shared state
// happens on the internal/strand serialization domain (§5).
package orchestrator

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"fmt"
	"net"
	"net/netip"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/freelan-go/freelan/internal/ca"
	"github.com/freelan-go/freelan/internal/config"
	"github.com/freelan-go/freelan/internal/dnsinstall"
	"github.com/freelan-go/freelan/internal/fscp"
	"github.com/freelan-go/freelan/internal/identity"
	"github.com/freelan-go/freelan/internal/portfab"
	"github.com/freelan-go/freelan/internal/proxy"
	"github.com/freelan-go/freelan/internal/registry"
	"github.com/freelan-go/freelan/internal/rendezvous"
	"github.com/freelan-go/freelan/internal/router"
	"github.com/freelan-go/freelan/internal/routeinstall"
	"github.com/freelan-go/freelan/internal/routesdist"
	"github.com/freelan-go/freelan/internal/strand"
	"github.com/freelan-go/freelan/internal/switchfab"
	"github.com/freelan-go/freelan/internal/tuntap"
)

// tapPortIndex is the fixed portfab.Set index reserved for the local
// TAP/TUN device; peer ports are indexed by a small counter starting
// above it.
const tapPortIndex = 0

// Core is one running node: the union of every other package's state,
// driven entirely from the strand (§5).
type Core struct {
	cfg *config.Config
	log *logrus.Entry

	identity *identity.Store
	caStore  *ca.Store
	caWatch  *ca.Watcher

	hostID identity.HostIdentifier

	registry *registry.Registry
	strand   *strand.Strand

	ports     *portfab.Set
	sw        *switchfab.Switch
	rt        *router.Router
	routeTbl  *router.Table
	isRouter  bool

	distributor *routesdist.Distributor

	arpProxy   *proxy.ARPProxy
	dhcpProxy  *proxy.DHCPProxy
	icmp6Proxy *proxy.ICMPv6Proxy
	maxMSS     uint16

	tapDevice tuntap.Device
	tapHandle tuntap.Handle

	conn4 net.PacketConn
	conn6 net.PacketConn

	registrar *rendezvous.Registrar

	// nextPortID/peerPorts/portPeers/peerCerts/helloIDCounter are mutated
	// only from closures run on the strand (§5); no mutex guards them.
	nextPortID int
	peerPorts  map[netip.AddrPort]int
	portPeers  map[int]netip.AddrPort
	peerCerts  map[netip.AddrPort]*x509.Certificate

	helloIDCounter uint32
	routesVersion  uint32
	randReader     func(b []byte) (int, error)

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds a Core from cfg. It loads identity material, opens the
// TAP/TUN device via dev, and wires the switch or router fabric per
// cfg.Network.Mode, but does not yet open UDP sockets or start the strand;
// call Run for that. When a CA directory is configured, the CA watcher New
// creates already runs its own goroutine.
func New(cfg *config.Config, dev tuntap.Device, log *logrus.Entry) (*Core, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	log = log.WithField("component", "orchestrator")

	idStore, err := buildIdentity(cfg.Identity)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: building identity: %w", err)
	}
	if idStore.IsEphemeral() {
		log.Warn("no certificate configured: running with a temporary self-signed certificate")
	}

	var caStore *ca.Store
	var caWatch *ca.Watcher
	if cfg.Identity.CADirectory != "" {
		caStore = ca.NewStore(cfg.Identity.RevocationPolicy)
		caWatch, err = ca.NewWatcher(caStore, cfg.Identity.CADirectory, log)
		if err != nil {
			return nil, fmt.Errorf("orchestrator: watching CA directory: %w", err)
		}
	}

	hostID, err := identity.NewHostIdentifier(nil)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: generating host identifier: %w", err)
	}

	reg, err := registry.NewRegistry(registry.Options{
		MaxUnauthenticatedPerSecond: cfg.Server.MaxUnauthenticatedPerSecond,
		AcceptContactRequests:       cfg.Server.AcceptContactRequests,
		AcceptContacts:              cfg.Server.AcceptContacts,
	})
	if err != nil {
		return nil, fmt.Errorf("orchestrator: building registry: %w", err)
	}

	ports := portfab.NewSet()

	c := &Core{
		cfg:        cfg,
		log:        log,
		identity:   idStore,
		caStore:    caStore,
		caWatch:    caWatch,
		hostID:     hostID,
		registry:   reg,
		strand:     strand.New(1024),
		ports:      ports,
		isRouter:   cfg.Network.Mode == config.ModeRouter,
		maxMSS:     cfg.Proxy.MaxMSS,
		peerPorts:  make(map[netip.AddrPort]int),
		portPeers:  make(map[int]netip.AddrPort),
		peerCerts:  make(map[netip.AddrPort]*x509.Certificate),
		nextPortID: tapPortIndex + 1,
		randReader: rand.Read,
	}

	if c.isRouter {
		c.routeTbl = router.NewTable()
		c.rt = router.New(ports, c.routeTbl)
	} else {
		c.sw = switchfab.New(ports, switchfab.Options{RelayModeEnabled: cfg.Network.RelayModeEnabled})
	}

	var routeInstaller routesdist.RouteInstaller
	var dnsInstaller routesdist.DNSInstaller
	if cfg.Install.DNSScriptPath != "" {
		dnsInstaller = dnsinstall.NewAdapter(&dnsinstall.ScriptInstaller{ScriptPath: cfg.Install.DNSScriptPath}, cfg.Network.InterfaceNameHint)
	}
	if c.routeTbl != nil {
		routeInstaller = routeinstall.NewAdapter(&routeinstall.NoopInstaller{Log: log})
	}
	if c.routeTbl != nil {
		c.distributor = routesdist.NewDistributor(c.routeTbl, routesdist.AcceptancePolicies{
			Route:              cfg.Server.RouteAcceptance,
			SystemRoute:        cfg.Server.SystemRouteAcceptance,
			DNS:                cfg.Server.DNSAcceptance,
			MaxRoutesPerFamily: cfg.Server.MaxRoutesPerFamily,
			LocalNetwork:       cfg.Network.IPv4,
		}, routeInstaller, dnsInstaller)
	}

	if cfg.Proxy.ARPProxyEnabled {
		c.arpProxy = &proxy.ARPProxy{}
	}
	if cfg.Proxy.DHCPProxyEnabled {
		c.dhcpProxy = proxy.NewDHCPProxy(cfg.Network.IPv4.Addr(), switchfab.MAC{})
		for macStr, lease := range cfg.Proxy.Leases {
			if mac, ok := parseMAC(macStr); ok {
				c.dhcpProxy.SetLease(mac, lease)
			}
		}
	}
	if cfg.Proxy.ICMPv6ProxyEnabled {
		c.icmp6Proxy = &proxy.ICMPv6Proxy{OwnAddress: cfg.Network.IPv6.Addr()}
	}

	if dev != nil {
		handle, err := dev.Open(cfg.Network.InterfaceNameHint, tapMode(cfg.Network.Mode))
		if err != nil {
			return nil, fmt.Errorf("orchestrator: opening TAP/TUN device: %w", err)
		}
		if err := configureHandle(handle, cfg); err != nil {
			handle.Close()
			return nil, err
		}
		c.tapDevice = dev
		c.tapHandle = handle
		ports.Register(tapPortIndex, portfab.GroupTap, c.writeToTap)
	}

	if cfg.Rendezvous.Enabled {
		c.registrar = &rendezvous.Registrar{
			Client:  rendezvous.NewClient(cfg.Rendezvous.ServerURL, nil),
			CertDER: idStore.CertificateDER(),
			Log:     log,
		}
	}

	return c, nil
}

func tapMode(m config.Mode) tuntap.Mode {
	if m == config.ModeRouter {
		return tuntap.ModeTUN
	}
	return tuntap.ModeTAP
}

func configureHandle(h tuntap.Handle, cfg *config.Config) error {
	if err := h.SetMTU(cfg.Network.MTU); err != nil {
		return fmt.Errorf("orchestrator: setting MTU: %w", err)
	}
	if cfg.Network.IPv4.IsValid() {
		if err := h.SetIPv4(cfg.Network.IPv4.Addr(), cfg.Network.IPv4.Bits()); err != nil {
			return fmt.Errorf("orchestrator: setting IPv4 address: %w", err)
		}
	}
	if cfg.Network.IPv6.IsValid() {
		if err := h.SetIPv6(cfg.Network.IPv6.Addr(), cfg.Network.IPv6.Bits()); err != nil {
			return fmt.Errorf("orchestrator: setting IPv6 address: %w", err)
		}
	}
	return h.SetConnected(true)
}

func buildIdentity(cfg config.IdentityConfig) (*identity.Store, error) {
	opts := identity.Options{PSK: cfg.PSK, AllowEphemeralIdentity: cfg.AllowEphemeralIdentity}
	if cfg.CertificateFile != "" {
		cert, key, err := identity.LoadFromFiles(cfg.CertificateFile, cfg.PrivateKeyFile)
		if err != nil {
			return nil, err
		}
		opts.Certificate = cert
		opts.PrivateKey = key
	}
	return identity.NewStore(opts)
}

func parseMAC(s string) (switchfab.MAC, bool) {
	hw, err := net.ParseMAC(s)
	if err != nil || len(hw) != 6 {
		return switchfab.MAC{}, false
	}
	var mac switchfab.MAC
	copy(mac[:], hw)
	return mac, true
}

// verifyChain reports whether certDER is acceptable: well-formed, and (if
// a CA store is configured) chaining to a trusted root under the
// configured revocation policy (§3, §6).
func (c *Core) verifyChain(certDER []byte) (*x509.Certificate, error) {
	cert, err := x509.ParseCertificate(certDER)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: parsing presented certificate: %w", err)
	}
	if c.caStore == nil {
		return cert, nil
	}
	ok, err := c.caStore.Verify([]*x509.Certificate{cert})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("orchestrator: presented certificate did not verify against the CA store")
	}
	return cert, nil
}

func certHashOf(certDER []byte) [32]byte {
	return sha256.Sum256(certDER)
}

// Close releases every resource New acquired. Safe to call on a Core
// whose Run was never started.
func (c *Core) Close() error {
	if c.caWatch != nil {
		c.caWatch.Close()
	}
	if c.tapHandle != nil {
		c.tapHandle.Close()
	}
	if c.conn4 != nil {
		c.conn4.Close()
	}
	if c.conn6 != nil {
		c.conn6.Close()
	}
	return nil
}
