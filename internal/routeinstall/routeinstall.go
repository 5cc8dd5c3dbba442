// Package routeinstall defines the route installer boundary of §6: the
// OS-level mechanism that pushes accepted system routes into the host's
// routing table is an external collaborator out of scope for this
// repository (§1: "the OS-level route and DNS installers" are treated as
// external collaborators, only their interfaces are specified). This
// package carries that interface plus the adapter internal/routesdist
// needs, and a logging fallback for when no real installer is wired.
package routeinstall

import (
	"net/netip"

	"github.com/sirupsen/logrus"

	"github.com/freelan-go/freelan/internal/routesdist"
)

// Route is a system route as the external installer sees it (§6:
// "Routes carry {destination_prefix, optional_gateway, optional_metric}").
type Route struct {
	DestinationPrefix netip.Prefix
	Gateway           netip.Addr // zero value means "no gateway"
	Metric            int
	HasMetric         bool
}

// Installer pushes and withdraws system routes. §6 describes
// install/uninstall with success/failure callbacks; this package follows
// the rest of the codebase's convention of synchronous error returns
// instead (see DESIGN.md), since nothing here needs to straddle the
// router strand asynchronously the way TAP/TUN I/O does.
type Installer interface {
	Install(route Route) error
	Uninstall(route Route) error
}

// NoopInstaller discards every route and logs at warning level, for
// deployments that run without a configured system route installer.
type NoopInstaller struct {
	Log *logrus.Entry
}

func (n NoopInstaller) log() *logrus.Entry {
	if n.Log != nil {
		return n.Log
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

func (n NoopInstaller) Install(route Route) error {
	n.log().WithField("route", route.DestinationPrefix).Warn("no route installer configured, system route not applied")
	return nil
}

func (n NoopInstaller) Uninstall(route Route) error {
	return nil
}

// Adapter implements routesdist.RouteInstaller by delegating to an
// Installer, translating routesdist's narrower (prefix, gateway) shape
// into the richer Route the external collaborator expects.
type Adapter struct {
	installer Installer
}

// NewAdapter wraps installer for use as a routesdist.RouteInstaller.
func NewAdapter(installer Installer) *Adapter {
	return &Adapter{installer: installer}
}

var _ routesdist.RouteInstaller = (*Adapter)(nil)

func (a *Adapter) InstallRoute(prefix netip.Prefix, gateway netip.Addr) error {
	return a.installer.Install(Route{DestinationPrefix: prefix, Gateway: gateway})
}

func (a *Adapter) RemoveRoute(prefix netip.Prefix) error {
	return a.installer.Uninstall(Route{DestinationPrefix: prefix})
}
