// Package config holds the option structs that configure a freelan-node
// instance, each with a Default*Config constructor and a Validate method,
// mirroring the teacher's lib/bridge/config.go.
package config

import (
	"fmt"
	"net/netip"
	"time"

	"github.com/freelan-go/freelan/internal/ca"
	"github.com/freelan-go/freelan/internal/crypto"
	"github.com/freelan-go/freelan/internal/proxy"
	"github.com/freelan-go/freelan/internal/routesdist"
)

// Default network-facing values (§6).
const (
	DefaultUDPPort          = 12000
	DefaultMTU              = 1500
	DefaultContactInterval  = 60 * time.Second
	DefaultRequestInterval  = routesdist.DefaultReRequestInterval
	DefaultMaxRoutesPerFamily = 1000
)

// Mode selects the Layer-2 switch forwarding fabric or the Layer-3
// router one (§4.7/§4.8); a node runs exactly one.
type Mode int

const (
	ModeSwitch Mode = iota
	ModeRouter
)

func (m Mode) String() string {
	if m == ModeRouter {
		return "router"
	}
	return "switch"
}

// ConfigError reports a single invalid field, in the shape the teacher's
// bridge.ConfigError uses.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// IdentityConfig configures the node's certificate/PSK identity (§3).
type IdentityConfig struct {
	CertificateFile        string
	PrivateKeyFile         string
	PSK                    []byte
	CADirectory            string
	RevocationPolicy       ca.RevocationPolicy
	AllowEphemeralIdentity bool
}

func DefaultIdentityConfig() IdentityConfig {
	return IdentityConfig{RevocationPolicy: ca.RevocationNone}
}

func (c IdentityConfig) Validate() error {
	if c.CertificateFile != "" && c.PrivateKeyFile == "" {
		return &ConfigError{Field: "Identity.PrivateKeyFile", Message: "required when CertificateFile is set"}
	}
	if c.CertificateFile == "" && len(c.PSK) == 0 && !c.AllowEphemeralIdentity {
		return &ConfigError{Field: "Identity", Message: "no certificate, PSK, or AllowEphemeralIdentity configured"}
	}
	return nil
}

// NetworkConfig configures the TAP/TUN device and forwarding fabric
// (§4.7/§4.8/§6).
type NetworkConfig struct {
	Mode               Mode
	InterfaceNameHint  string
	MTU                int
	IPv4               netip.Prefix
	IPv6               netip.Prefix
	RelayModeEnabled   bool
}

func DefaultNetworkConfig() NetworkConfig {
	return NetworkConfig{Mode: ModeSwitch, MTU: DefaultMTU}
}

func (c NetworkConfig) Validate() error {
	if c.MTU <= 0 {
		return &ConfigError{Field: "Network.MTU", Message: "must be positive"}
	}
	if c.Mode == ModeRouter && !c.IPv4.IsValid() && !c.IPv6.IsValid() {
		return &ConfigError{Field: "Network.IPv4/IPv6", Message: "router mode requires at least one configured address"}
	}
	return nil
}

// SecurityConfig configures the negotiated cipher suite/curve preference
// (§3).
type SecurityConfig struct {
	CipherSuitePreference []crypto.CipherSuite
	CurvePreference       []crypto.Curve
}

func DefaultSecurityConfig() SecurityConfig {
	return SecurityConfig{
		CipherSuitePreference: crypto.DefaultSuitePreference,
		CurvePreference:       crypto.DefaultCurvePreference,
	}
}

func (c SecurityConfig) Validate() error {
	if len(c.CipherSuitePreference) == 0 {
		return &ConfigError{Field: "Security.CipherSuitePreference", Message: "must not be empty"}
	}
	if len(c.CurvePreference) == 0 {
		return &ConfigError{Field: "Security.CurvePreference", Message: "must not be empty"}
	}
	return nil
}

// ServerConfig configures the UDP transport, static contacts, and
// admission policy (§4.5/§4.6/§6).
type ServerConfig struct {
	ListenAddr4 string
	ListenAddr6 string

	StaticContacts   []string
	ContactInterval  time.Duration

	// DesiredPeerCertificateHashes names peers to reach via §4.6
	// CONTACT_REQUEST when their endpoint is not already known (e.g. a
	// peer reachable only through another peer's CONTACT advertisement,
	// never dialed directly).
	DesiredPeerCertificateHashes [][32]byte

	RelayModeEnabled      bool
	AcceptContactRequests bool
	AcceptContacts        bool

	MaxUnauthenticatedPerSecond float64

	RouteAcceptance       routesdist.RouteAcceptancePolicy
	SystemRouteAcceptance routesdist.SystemRouteAcceptancePolicy
	DNSAcceptance         routesdist.DNSAcceptancePolicy
	MaxRoutesPerFamily    int
	RequestInterval       time.Duration
}

func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		ListenAddr4:        fmt.Sprintf(":%d", DefaultUDPPort),
		ListenAddr6:        fmt.Sprintf(":%d", DefaultUDPPort),
		ContactInterval:    DefaultContactInterval,
		MaxRoutesPerFamily: DefaultMaxRoutesPerFamily,
		RequestInterval:    DefaultRequestInterval,
	}
}

func (c ServerConfig) Validate() error {
	if c.ListenAddr4 == "" && c.ListenAddr6 == "" {
		return &ConfigError{Field: "Server.ListenAddr4/ListenAddr6", Message: "at least one must be set"}
	}
	if c.ContactInterval <= 0 {
		return &ConfigError{Field: "Server.ContactInterval", Message: "must be positive"}
	}
	if c.RequestInterval <= 0 {
		return &ConfigError{Field: "Server.RequestInterval", Message: "must be positive"}
	}
	if c.MaxRoutesPerFamily < 0 {
		return &ConfigError{Field: "Server.MaxRoutesPerFamily", Message: "cannot be negative"}
	}
	return nil
}

// ProxyConfig configures the TAP-side protocol proxies (§4.9).
type ProxyConfig struct {
	ARPProxyEnabled    bool
	DHCPProxyEnabled   bool
	ICMPv6ProxyEnabled bool
	Leases             map[string]proxy.Lease // keyed by MAC string, e.g. "aa:bb:cc:dd:ee:ff"
	MaxMSS             uint16                 // 0 disables clamping
}

func DefaultProxyConfig() ProxyConfig {
	return ProxyConfig{}
}

func (c ProxyConfig) Validate() error {
	return nil
}

// RendezvousConfig configures the optional HTTP rendezvous registration
// client (§4.6 dynamic contact discovery via an external directory).
type RendezvousConfig struct {
	Enabled         bool
	ServerURL       string
	PublicEndpoints []string
}

func DefaultRendezvousConfig() RendezvousConfig {
	return RendezvousConfig{}
}

func (c RendezvousConfig) Validate() error {
	if c.Enabled && c.ServerURL == "" {
		return &ConfigError{Field: "Rendezvous.ServerURL", Message: "required when Rendezvous.Enabled is set"}
	}
	return nil
}

// InstallConfig configures the external route/DNS installers (§6).
type InstallConfig struct {
	DNSScriptPath string
}

func DefaultInstallConfig() InstallConfig {
	return InstallConfig{}
}

func (c InstallConfig) Validate() error {
	return nil
}

// Config is the complete configuration of one freelan-node instance.
type Config struct {
	Identity   IdentityConfig
	Network    NetworkConfig
	Security   SecurityConfig
	Server     ServerConfig
	Proxy      ProxyConfig
	Rendezvous RendezvousConfig
	Install    InstallConfig
}

// Default returns a Config with every section defaulted. It is not valid
// as-is (Identity still needs a certificate/PSK/ephemeral flag); callers
// are expected to override fields before calling Validate.
func Default() *Config {
	return &Config{
		Identity:   DefaultIdentityConfig(),
		Network:    DefaultNetworkConfig(),
		Security:   DefaultSecurityConfig(),
		Server:     DefaultServerConfig(),
		Proxy:      DefaultProxyConfig(),
		Rendezvous: DefaultRendezvousConfig(),
		Install:    DefaultInstallConfig(),
	}
}

// Validate runs every section's Validate in turn, returning the first
// error encountered.
func (c *Config) Validate() error {
	for _, v := range []interface{ Validate() error }{
		c.Identity, c.Network, c.Security, c.Server, c.Proxy, c.Rendezvous, c.Install,
	} {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}
