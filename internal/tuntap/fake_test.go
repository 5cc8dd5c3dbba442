package tuntap

import (
	"net/netip"
	"testing"
)

var (
	_ Device = (*FakeDevice)(nil)
	_ Handle = (*FakeHandle)(nil)
)

func TestFakeDeviceOpenRecordsHandle(t *testing.T) {
	d := &FakeDevice{}
	h, err := d.Open("tap0", ModeTAP)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if len(d.Handles()) != 1 || d.Handles()[0] != h {
		t.Fatalf("expected Open to record the returned handle")
	}
}

func TestFakeHandleAsyncWriteRecordsFrame(t *testing.T) {
	d := &FakeDevice{}
	h, _ := d.Open("", ModeTUN)
	fh := h.(*FakeHandle)

	var cbErr error
	var called bool
	h.AsyncWrite([]byte{1, 2, 3}, func(err error) { called, cbErr = true, err })
	if !called || cbErr != nil {
		t.Fatalf("expected the write callback to fire with a nil error")
	}

	got := <-fh.Written
	if len(got) != 3 || got[0] != 1 || got[2] != 3 {
		t.Fatalf("unexpected written frame: %v", got)
	}
}

func TestFakeHandleAsyncReadWaitsForInject(t *testing.T) {
	d := &FakeDevice{}
	h, _ := d.Open("", ModeTAP)
	fh := h.(*FakeHandle)

	buf := make([]byte, 16)
	results := make(chan int, 1)
	h.AsyncRead(buf, func(n int, err error) {
		if err != nil {
			t.Errorf("unexpected read error: %v", err)
		}
		results <- n
	})

	if fh.Inject([]byte{9, 8, 7}) != true {
		t.Fatalf("expected Inject to find a pending read")
	}
	if n := <-results; n != 3 || buf[0] != 9 {
		t.Fatalf("unexpected injected read: n=%d buf=%v", n, buf[:n])
	}
}

func TestFakeHandleInjectWithoutPendingReadIsNoop(t *testing.T) {
	d := &FakeDevice{}
	h, _ := d.Open("", ModeTAP)
	fh := h.(*FakeHandle)
	if fh.Inject([]byte{1}) {
		t.Fatalf("expected Inject to report no pending read")
	}
}

func TestFakeHandleCloseFailsPendingRead(t *testing.T) {
	d := &FakeDevice{}
	h, _ := d.Open("", ModeTAP)

	errs := make(chan error, 1)
	h.AsyncRead(make([]byte, 4), func(n int, err error) { errs <- err })

	if err := h.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := <-errs; err != ErrClosed {
		t.Fatalf("expected ErrClosed for a pending read after Close, got %v", err)
	}

	if err := h.SetMTU(1500); err != ErrClosed {
		t.Fatalf("expected ErrClosed after Close, got %v", err)
	}
}

func TestFakeHandleSettersRecordState(t *testing.T) {
	d := &FakeDevice{}
	h, _ := d.Open("", ModeTUN)
	fh := h.(*FakeHandle)

	if err := fh.SetIPv4(netip.MustParseAddr("10.0.0.1"), 24); err != nil {
		t.Fatalf("SetIPv4: %v", err)
	}
	if fh.ipv4.String() != "10.0.0.1" || fh.ipv4Pfx != 24 {
		t.Fatalf("SetIPv4 did not record the configured address")
	}
	if err := fh.SetConnected(true); err != nil || !fh.connected {
		t.Fatalf("SetConnected did not record state")
	}
}
