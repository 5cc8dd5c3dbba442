// Package dnsinstall defines the DNS installer boundary of §6: "On
// Windows an internal mechanism is available; on other platforms a
// user-provided script must be called, otherwise a 'no DNS script
// provided' error is surfaced." The Windows-internal mechanism itself
// (netsh/iphlpapi calls) is OS-level plumbing out of scope per §1's
// external-collaborator carve-out; what's in scope here is the
// interface, the script-invocation mechanism the spec calls out by name,
// and the adapter internal/routesdist needs.
package dnsinstall

import (
	"errors"
	"net/netip"
	"os/exec"

	"github.com/freelan-go/freelan/internal/routesdist"
)

// ErrNoScriptConfigured is returned by ScriptInstaller when no script
// path was configured (§6: "otherwise a 'no DNS script provided' error
// is surfaced").
var ErrNoScriptConfigured = errors.New("dnsinstall: no DNS script provided")

// Installer pushes and withdraws DNS server addresses for an interface.
type Installer interface {
	AddDNSServer(iface string, addr netip.Addr) error
	RemoveDNSServer(iface string, addr netip.Addr) error
}

// ScriptInstaller calls a user-provided script with ("add"|"remove",
// iface, address) arguments, the mechanism §6 specifies for non-Windows
// platforms.
type ScriptInstaller struct {
	ScriptPath string
	// Run executes path with args and returns its error; the command's
	// output is not captured.
	// Defaults to invoking exec.Command; overridable for tests.
	Run func(path string, args ...string) error
}

func (s *ScriptInstaller) run(args ...string) error {
	if s.ScriptPath == "" {
		return ErrNoScriptConfigured
	}
	if s.Run != nil {
		return s.Run(s.ScriptPath, args...)
	}
	return exec.Command(s.ScriptPath, args...).Run()
}

func (s *ScriptInstaller) AddDNSServer(iface string, addr netip.Addr) error {
	return s.run("add", iface, addr.String())
}

func (s *ScriptInstaller) RemoveDNSServer(iface string, addr netip.Addr) error {
	return s.run("remove", iface, addr.String())
}

// Adapter implements routesdist.DNSInstaller by delegating to an
// Installer bound to a fixed interface name.
type Adapter struct {
	installer Installer
	iface     string
}

// NewAdapter wraps installer for use as a routesdist.DNSInstaller,
// always targeting iface.
func NewAdapter(installer Installer, iface string) *Adapter {
	return &Adapter{installer: installer, iface: iface}
}

var _ routesdist.DNSInstaller = (*Adapter)(nil)

func (a *Adapter) InstallDNSServer(addr netip.Addr) error {
	return a.installer.AddDNSServer(a.iface, addr)
}

func (a *Adapter) RemoveDNSServer(addr netip.Addr) error {
	return a.installer.RemoveDNSServer(a.iface, addr)
}
