// Package main provides the entry point for freelan-node, a FreeLAN
// Secure Channel Protocol peer that bridges a TAP/TUN device into a
// peer-to-peer virtual network.
//
// Usage:
//
//	freelan-node [flags]
//
// Flags are also readable from a config file (-config) and from
// environment variables prefixed FREELAN_, via viper; see -help.
package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"net/netip"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/freelan-go/freelan/internal/ca"
	"github.com/freelan-go/freelan/internal/config"
	"github.com/freelan-go/freelan/internal/orchestrator"
	"github.com/freelan-go/freelan/internal/routesdist"
	"github.com/freelan-go/freelan/internal/tuntap"
)

var (
	// Version is set at build time via ldflags.
	Version = "dev"

	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	v, flags, err := parseFlags()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	log := logrus.New()
	log.SetOutput(os.Stdout)
	if v.GetBool("debug") {
		log.SetLevel(logrus.DebugLevel)
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		log.SetLevel(logrus.InfoLevel)
	}
	entry := log.WithFields(logrus.Fields{
		"version":   Version,
		"buildTime": BuildTime,
		"commit":    GitCommit,
	})
	entry.Info("Starting freelan-node")

	if flags.version {
		fmt.Printf("freelan-node %s\n", Version)
		fmt.Printf("Build time: %s\n", BuildTime)
		fmt.Printf("Git commit: %s\n", GitCommit)
		return
	}

	cfg, err := buildConfig(v)
	if err != nil {
		entry.WithError(err).Error("Invalid configuration")
		os.Exit(1)
	}

	dev := &tuntap.FakeDevice{}
	core, err := orchestrator.New(cfg, dev, entry)
	if err != nil {
		entry.WithError(err).Error("Failed to build node")
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		if err := core.Run(context.Background()); err != nil {
			errChan <- err
		}
	}()

	select {
	case sig := <-sigChan:
		entry.WithField("signal", sig.String()).Info("Received shutdown signal")
		core.Shutdown()
	case err := <-errChan:
		entry.WithError(err).Error("Node error")
	}

	entry.Info("Shutting down...")
	if err := core.Close(); err != nil {
		entry.WithError(err).Warn("Error closing node")
	}
	entry.Info("freelan-node stopped")
}

// cliFlags holds the flags parseFlags handles itself, outside viper's
// config-driven fields.
type cliFlags struct {
	version bool
}

// parseFlags declares every flag backing a config.Config field, binds
// them into v so -config/env/flag all resolve through one precedence
// order, and parses argv.
func parseFlags() (*viper.Viper, *cliFlags, error) {
	fs := pflag.NewFlagSet("freelan-node", pflag.ContinueOnError)

	fs.String("config", "", "path to a YAML config file")
	fs.Bool("debug", false, "enable debug logging")
	flags := &cliFlags{}
	fs.BoolVar(&flags.version, "version", false, "show version information")

	fs.String("identity.certificate-file", "", "PEM certificate file")
	fs.String("identity.private-key-file", "", "PEM private key file")
	fs.String("identity.psk", "", "pre-shared key, hex encoded")
	fs.String("identity.ca-directory", "", "directory of trusted CA certificates and CRLs")
	fs.String("identity.revocation-policy", "none", "none, last-only, or all")
	fs.Bool("identity.allow-ephemeral", false, "allow a self-signed ephemeral identity when no certificate or PSK is configured")

	fs.String("network.mode", "switch", "switch (layer 2) or router (layer 3)")
	fs.String("network.interface", "", "TAP/TUN interface name hint")
	fs.Int("network.mtu", config.DefaultMTU, "interface MTU")
	fs.String("network.ipv4", "", "IPv4 address/prefix, e.g. 10.0.0.1/24")
	fs.String("network.ipv6", "", "IPv6 address/prefix")
	fs.Bool("network.relay-mode", false, "relay frames between peers instead of only switching to/from the TAP device")

	fs.String("server.listen4", fmt.Sprintf(":%d", config.DefaultUDPPort), "UDP/IPv4 listen address")
	fs.String("server.listen6", fmt.Sprintf(":%d", config.DefaultUDPPort), "UDP/IPv6 listen address")
	fs.StringSlice("server.contacts", nil, "static contact addresses, host:port")
	fs.StringSlice("server.desired-peers", nil, "certificate hashes (hex) of peers to locate via CONTACT_REQUEST")
	fs.Duration("server.contact-interval", config.DefaultContactInterval, "interval between static contact retries")
	fs.Bool("server.accept-contact-requests", false, "answer CONTACT_REQUEST from peers")
	fs.Bool("server.accept-contacts", false, "dial peers learned via CONTACT")
	fs.Float64("server.max-unauthenticated-per-second", 0, "rate limit on unauthenticated HELLO admission, 0 selects the default of 50")
	fs.String("server.route-acceptance", "none", "none, unicast-in-network, unicast, subnet, or any")
	fs.String("server.system-route-acceptance", "none", "none, unicast, any, unicast-with-gateway, or any-with-gateway")
	fs.String("server.dns-acceptance", "none", "none, in-network, or any")
	fs.Int("server.max-routes-per-family", config.DefaultMaxRoutesPerFamily, "maximum accepted routes per address family")
	fs.Duration("server.request-interval", config.DefaultRequestInterval, "interval between ROUTES_REQUEST re-sends")

	fs.Bool("proxy.arp", false, "enable the ARP proxy")
	fs.Bool("proxy.dhcp", false, "enable the DHCP proxy")
	fs.Bool("proxy.icmpv6", false, "enable the ICMPv6 proxy")
	fs.Uint16("proxy.max-mss", 0, "clamp TCP MSS to this value, 0 disables")

	fs.Bool("rendezvous.enabled", false, "register with an HTTP rendezvous server")
	fs.String("rendezvous.server-url", "", "rendezvous server base URL")

	fs.String("install.dns-script", "", "script invoked to install/remove DNS servers")

	if err := fs.Parse(os.Args[1:]); err != nil {
		return nil, nil, err
	}

	v := viper.New()
	v.SetEnvPrefix("FREELAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return nil, nil, err
	}

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	return v, flags, nil
}

// buildConfig translates the resolved viper settings into a
// config.Config, parsing the string-typed policy/address fields into
// their internal enum and netip representations.
func buildConfig(v *viper.Viper) (*config.Config, error) {
	cfg := config.Default()

	cfg.Identity.CertificateFile = v.GetString("identity.certificate-file")
	cfg.Identity.PrivateKeyFile = v.GetString("identity.private-key-file")
	if psk := v.GetString("identity.psk"); psk != "" {
		decoded, err := hex.DecodeString(psk)
		if err != nil {
			return nil, fmt.Errorf("identity.psk: %w", err)
		}
		cfg.Identity.PSK = decoded
	}
	cfg.Identity.CADirectory = v.GetString("identity.ca-directory")
	cfg.Identity.AllowEphemeralIdentity = v.GetBool("identity.allow-ephemeral")
	policy, err := parseRevocationPolicy(v.GetString("identity.revocation-policy"))
	if err != nil {
		return nil, err
	}
	cfg.Identity.RevocationPolicy = policy

	mode, err := parseNetworkMode(v.GetString("network.mode"))
	if err != nil {
		return nil, err
	}
	cfg.Network.Mode = mode
	cfg.Network.InterfaceNameHint = v.GetString("network.interface")
	cfg.Network.MTU = v.GetInt("network.mtu")
	cfg.Network.RelayModeEnabled = v.GetBool("network.relay-mode")
	if s := v.GetString("network.ipv4"); s != "" {
		prefix, err := netip.ParsePrefix(s)
		if err != nil {
			return nil, fmt.Errorf("network.ipv4: %w", err)
		}
		cfg.Network.IPv4 = prefix
	}
	if s := v.GetString("network.ipv6"); s != "" {
		prefix, err := netip.ParsePrefix(s)
		if err != nil {
			return nil, fmt.Errorf("network.ipv6: %w", err)
		}
		cfg.Network.IPv6 = prefix
	}

	cfg.Server.ListenAddr4 = v.GetString("server.listen4")
	cfg.Server.ListenAddr6 = v.GetString("server.listen6")
	cfg.Server.StaticContacts = v.GetStringSlice("server.contacts")
	desiredPeers, err := parseDesiredPeerHashes(v.GetStringSlice("server.desired-peers"))
	if err != nil {
		return nil, err
	}
	cfg.Server.DesiredPeerCertificateHashes = desiredPeers
	cfg.Server.ContactInterval = v.GetDuration("server.contact-interval")
	cfg.Server.AcceptContactRequests = v.GetBool("server.accept-contact-requests")
	cfg.Server.AcceptContacts = v.GetBool("server.accept-contacts")
	cfg.Server.MaxUnauthenticatedPerSecond = v.GetFloat64("server.max-unauthenticated-per-second")
	cfg.Server.MaxRoutesPerFamily = v.GetInt("server.max-routes-per-family")
	cfg.Server.RequestInterval = v.GetDuration("server.request-interval")
	routeAcceptance, err := parseRouteAcceptance(v.GetString("server.route-acceptance"))
	if err != nil {
		return nil, err
	}
	cfg.Server.RouteAcceptance = routeAcceptance
	systemRouteAcceptance, err := parseSystemRouteAcceptance(v.GetString("server.system-route-acceptance"))
	if err != nil {
		return nil, err
	}
	cfg.Server.SystemRouteAcceptance = systemRouteAcceptance
	dnsAcceptance, err := parseDNSAcceptance(v.GetString("server.dns-acceptance"))
	if err != nil {
		return nil, err
	}
	cfg.Server.DNSAcceptance = dnsAcceptance

	cfg.Proxy.ARPProxyEnabled = v.GetBool("proxy.arp")
	cfg.Proxy.DHCPProxyEnabled = v.GetBool("proxy.dhcp")
	cfg.Proxy.ICMPv6ProxyEnabled = v.GetBool("proxy.icmpv6")
	cfg.Proxy.MaxMSS = uint16(v.GetUint("proxy.max-mss"))

	cfg.Rendezvous.Enabled = v.GetBool("rendezvous.enabled")
	cfg.Rendezvous.ServerURL = v.GetString("rendezvous.server-url")

	cfg.Install.DNSScriptPath = v.GetString("install.dns-script")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseDesiredPeerHashes(hexHashes []string) ([][32]byte, error) {
	if len(hexHashes) == 0 {
		return nil, nil
	}
	hashes := make([][32]byte, 0, len(hexHashes))
	for _, s := range hexHashes {
		decoded, err := hex.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("server.desired-peers: %w", err)
		}
		if len(decoded) != 32 {
			return nil, fmt.Errorf("server.desired-peers: hash %q must be 32 bytes, got %d", s, len(decoded))
		}
		var hash [32]byte
		copy(hash[:], decoded)
		hashes = append(hashes, hash)
	}
	return hashes, nil
}

func parseNetworkMode(s string) (config.Mode, error) {
	switch strings.ToLower(s) {
	case "switch", "":
		return config.ModeSwitch, nil
	case "router":
		return config.ModeRouter, nil
	default:
		return 0, fmt.Errorf("network.mode: unknown mode %q", s)
	}
}

func parseRevocationPolicy(s string) (ca.RevocationPolicy, error) {
	switch strings.ToLower(s) {
	case "none", "":
		return ca.RevocationNone, nil
	case "last-only":
		return ca.RevocationLastOnly, nil
	case "all":
		return ca.RevocationAll, nil
	default:
		return 0, fmt.Errorf("identity.revocation-policy: unknown policy %q", s)
	}
}

func parseRouteAcceptance(s string) (routesdist.RouteAcceptancePolicy, error) {
	switch strings.ToLower(s) {
	case "none", "":
		return routesdist.RouteAcceptNone, nil
	case "unicast-in-network":
		return routesdist.RouteAcceptUnicastInNetwork, nil
	case "unicast":
		return routesdist.RouteAcceptUnicast, nil
	case "subnet":
		return routesdist.RouteAcceptSubnet, nil
	case "any":
		return routesdist.RouteAcceptAny, nil
	default:
		return 0, fmt.Errorf("server.route-acceptance: unknown policy %q", s)
	}
}

func parseSystemRouteAcceptance(s string) (routesdist.SystemRouteAcceptancePolicy, error) {
	switch strings.ToLower(s) {
	case "none", "":
		return routesdist.SystemRouteAcceptNone, nil
	case "unicast":
		return routesdist.SystemRouteAcceptUnicast, nil
	case "any":
		return routesdist.SystemRouteAcceptAny, nil
	case "unicast-with-gateway":
		return routesdist.SystemRouteAcceptUnicastWithGateway, nil
	case "any-with-gateway":
		return routesdist.SystemRouteAcceptAnyWithGateway, nil
	default:
		return 0, fmt.Errorf("server.system-route-acceptance: unknown policy %q", s)
	}
}

func parseDNSAcceptance(s string) (routesdist.DNSAcceptancePolicy, error) {
	switch strings.ToLower(s) {
	case "none", "":
		return routesdist.DNSAcceptNone, nil
	case "in-network":
		return routesdist.DNSAcceptInNetwork, nil
	case "any":
		return routesdist.DNSAcceptAny, nil
	default:
		return 0, fmt.Errorf("server.dns-acceptance: unknown policy %q", s)
	}
}
