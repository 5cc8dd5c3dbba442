package tuntap

import (
	"errors"
	"net/netip"
	"sync"
)

// ErrClosed is returned by a closed Fake's pending and future operations.
var ErrClosed = errors.New("tuntap: handle closed")

// FakeDevice is an in-memory Device for tests of code that drives a
// Handle, so that consumers never need a real kernel TAP/TUN driver in
// their test suite (§A: "deterministic fakes for ... the TAP/TUN and
// rendezvous collaborators").
type FakeDevice struct {
	mu      sync.Mutex
	handles []*FakeHandle
}

// Open returns a new FakeHandle; nameHint and mode are recorded but
// otherwise unused.
func (d *FakeDevice) Open(nameHint string, mode Mode) (Handle, error) {
	h := &FakeHandle{nameHint: nameHint, mode: mode}
	d.mu.Lock()
	d.handles = append(d.handles, h)
	d.mu.Unlock()
	return h, nil
}

// Handles returns every handle ever opened, in open order.
func (d *FakeDevice) Handles() []*FakeHandle {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*FakeHandle(nil), d.handles...)
}

// FakeHandle is an in-memory Handle. Frames written by the code under
// test via AsyncWrite land on the Written channel; frames the test wants
// to hand the code under test are injected via Inject, which feeds the
// oldest pending AsyncRead; a frame injected while no read is pending is
// dropped.
type FakeHandle struct {
	nameHint string
	mode     Mode

	mu        sync.Mutex
	closed    bool
	mtu       int
	ipv4      netip.Addr
	ipv4Pfx   int
	ipv6      netip.Addr
	ipv6Pfx   int
	connected bool
	pending   []readRequest

	Written chan []byte
}

type readRequest struct {
	buf []byte
	cb  ReadCallback
}

func (h *FakeHandle) SetMTU(mtu int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrClosed
	}
	h.mtu = mtu
	return nil
}

func (h *FakeHandle) SetIPv4(addr netip.Addr, prefix int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrClosed
	}
	h.ipv4, h.ipv4Pfx = addr, prefix
	return nil
}

func (h *FakeHandle) SetIPv6(addr netip.Addr, prefix int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrClosed
	}
	h.ipv6, h.ipv6Pfx = addr, prefix
	return nil
}

func (h *FakeHandle) SetConnected(connected bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrClosed
	}
	h.connected = connected
	return nil
}

// AsyncWrite records frame on Written (lazily created with a generous
// buffer) and invokes cb synchronously with a nil error.
func (h *FakeHandle) AsyncWrite(frame []byte, cb WriteCallback) {
	h.mu.Lock()
	closed := h.closed
	if h.Written == nil {
		h.Written = make(chan []byte, 64)
	}
	ch := h.Written
	h.mu.Unlock()

	if closed {
		if cb != nil {
			cb(ErrClosed)
		}
		return
	}
	cp := append([]byte(nil), frame...)
	ch <- cp
	if cb != nil {
		cb(nil)
	}
}

// AsyncRead queues (buf, cb) until a matching Inject call delivers a
// frame, or the handle is closed.
func (h *FakeHandle) AsyncRead(buf []byte, cb ReadCallback) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		cb(0, ErrClosed)
		return
	}
	h.pending = append(h.pending, readRequest{buf: buf, cb: cb})
	h.mu.Unlock()
}

// Inject delivers frame to the oldest pending AsyncRead, copying as many
// bytes as fit in its buffer. It is a no-op if no read is pending.
func (h *FakeHandle) Inject(frame []byte) bool {
	h.mu.Lock()
	if len(h.pending) == 0 {
		h.mu.Unlock()
		return false
	}
	req := h.pending[0]
	h.pending = h.pending[1:]
	h.mu.Unlock()

	n := copy(req.buf, frame)
	req.cb(n, nil)
	return true
}

// Close marks the handle closed and fails every pending AsyncRead.
func (h *FakeHandle) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	pending := h.pending
	h.pending = nil
	h.mu.Unlock()

	for _, req := range pending {
		req.cb(0, ErrClosed)
	}
	return nil
}
