// Package tuntap defines the interface the core consumes to drive a
// virtual network interface (§6: "the core consumes an interface that
// exposes..."). The kernel driver behind it is an external collaborator
// out of scope for this repository; only the boundary is specified here,
// plus an in-memory fake used by tests of the packages that depend on it.
package tuntap

import "net/netip"

// Mode selects whether frames crossing the interface are raw Ethernet
// (layer-2 switch mode) or raw IP (layer-3 router mode, §6: "determined
// by the first nibble").
type Mode int

const (
	ModeTAP Mode = iota
	ModeTUN
)

// ReadCallback is invoked when an AsyncRead completes, either with a
// frame read into the caller-supplied buffer (truncated to n bytes) or
// with a non-nil error.
type ReadCallback func(n int, err error)

// WriteCallback is invoked when an AsyncWrite completes.
type WriteCallback func(err error)

// Handle is an open virtual network interface. All methods other than
// Close are called only from the TAP/TUN I/O context (§5); no internal
// locking is implied or required.
type Handle interface {
	// SetMTU configures the interface's maximum transmission unit.
	SetMTU(mtu int) error
	// SetIPv4 assigns an IPv4 address and prefix length to the interface.
	// A zero-value addr removes any existing IPv4 assignment.
	SetIPv4(addr netip.Addr, prefix int) error
	// SetIPv6 assigns an IPv6 address and prefix length to the interface.
	SetIPv6(addr netip.Addr, prefix int) error
	// SetConnected toggles the interface's carrier/up state.
	SetConnected(connected bool) error
	// AsyncRead reads one frame into buf and invokes cb with the number
	// of bytes read. The caller must not reuse buf until cb fires.
	AsyncRead(buf []byte, cb ReadCallback)
	// AsyncWrite writes frame and invokes cb on completion. The caller
	// must not mutate frame until cb fires.
	AsyncWrite(frame []byte, cb WriteCallback)
	// Close releases the underlying OS resources. After Close, pending
	// AsyncRead/AsyncWrite callbacks fire with an error.
	Close() error
}

// Device opens a Handle, optionally honoring nameHint as the interface
// name (a hint, not a guarantee: an empty nameHint lets the platform
// choose).
type Device interface {
	Open(nameHint string, mode Mode) (Handle, error)
}
