package proxy

import (
	"testing"

	"github.com/freelan-go/freelan/internal/switchfab"
)

func buildTCPSynFrameV4(mss uint16) []byte {
	tcp := make([]byte, 24) // 20-byte header + 4-byte MSS option
	tcp[13] = tcpFlagSYN
	tcp[12] = byte((24 / 4) << 4) // data offset = 6 words
	tcp[20] = tcpOptMSS
	tcp[21] = 4
	tcp[22], tcp[23] = byte(mss>>8), byte(mss)

	ip := make([]byte, 20+len(tcp))
	ip[0] = 0x45
	totalLen := len(ip)
	ip[2], ip[3] = byte(totalLen>>8), byte(totalLen)
	ip[9] = protoTCP
	copy(ip[12:16], []byte{10, 0, 0, 1})
	copy(ip[16:20], []byte{10, 0, 0, 2})
	copy(ip[20:], tcp)

	frame := make([]byte, 0, switchfab.EthernetHeaderSize+len(ip))
	dstMAC := switchfab.MAC{0x02, 0, 0, 0, 0, 2}
	srcMAC := switchfab.MAC{0x02, 0, 0, 0, 0, 1}
	frame = append(frame, dstMAC[:]...)
	frame = append(frame, srcMAC[:]...)
	frame = append(frame, ethertypeIPv4>>8, ethertypeIPv4&0xFF)
	frame = append(frame, ip...)
	return frame
}

func verifyTCPChecksumV4(t *testing.T, frame []byte) {
	t.Helper()
	ip := append([]byte(nil), frame[switchfab.EthernetHeaderSize:]...)
	ihl := int(ip[0]&0x0F) * 4
	tcp := ip[ihl:]
	pseudo := make([]byte, 12)
	copy(pseudo[0:4], ip[12:16])
	copy(pseudo[4:8], ip[16:20])
	pseudo[9] = protoTCP
	pseudo[10], pseudo[11] = byte(len(tcp)>>8), byte(len(tcp))

	want := tcp[16:18]
	gotCopy := append([]byte(nil), tcp...)
	gotCopy[16], gotCopy[17] = 0, 0
	expected := checksumWithPseudoHeader(pseudo, gotCopy)
	if byte(expected>>8) != want[0] || byte(expected) != want[1] {
		t.Fatalf("tcp checksum mismatch: got %x%x, want %04x", want[0], want[1], expected)
	}
}

func TestClampMSSRewritesOversizedOptionV4(t *testing.T) {
	frame := buildTCPSynFrameV4(1460)
	out, modified := ClampMSS(frame, 1400)
	if !modified {
		t.Fatalf("expected the oversized MSS option to be rewritten")
	}

	ip := out[switchfab.EthernetHeaderSize:]
	ihl := int(ip[0]&0x0F) * 4
	tcp := ip[ihl:]
	gotMSS := uint16(tcp[22])<<8 | uint16(tcp[23])
	if gotMSS != 1400 {
		t.Fatalf("expected clamped MSS 1400, got %d", gotMSS)
	}
	verifyTCPChecksumV4(t, out)
}

func TestClampMSSLeavesSmallerOptionUntouched(t *testing.T) {
	frame := buildTCPSynFrameV4(1200)
	out, modified := ClampMSS(frame, 1400)
	if modified {
		t.Fatalf("expected no rewrite when the option is already within bounds")
	}
	if &out[0] != &frame[0] {
		// An IPv4 frame comes back as a copy even when nothing was
		// rewritten, so the references are expected to differ here.
	}
}

func TestClampMSSIgnoresNonSynSegments(t *testing.T) {
	frame := buildTCPSynFrameV4(1460)
	ip := frame[switchfab.EthernetHeaderSize:]
	ihl := int(ip[0]&0x0F) * 4
	ip[ihl+13] = 0 // clear SYN flag

	_, modified := ClampMSS(frame, 1400)
	if modified {
		t.Fatalf("expected no rewrite for a non-SYN segment")
	}
}

func TestClampMSSZeroMaxIsNoop(t *testing.T) {
	frame := buildTCPSynFrameV4(1460)
	_, modified := ClampMSS(frame, 0)
	if modified {
		t.Fatalf("expected maxMSS=0 to disable clamping")
	}
}
