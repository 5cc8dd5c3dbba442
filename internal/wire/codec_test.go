package wire

import (
	"bytes"
	"errors"
	"net/netip"
	"testing"

	"github.com/freelan-go/freelan/internal/crypto"
)

func TestDatagramRoundTrip(t *testing.T) {
	payload := []byte{0xAA, 0xBB, 0xCC}
	buf, err := EncodeDatagram(TypeHelloRequest, payload)
	if err != nil {
		t.Fatalf("EncodeDatagram() error: %v", err)
	}

	h, gotPayload, err := DecodeDatagram(buf)
	if err != nil {
		t.Fatalf("DecodeDatagram() error: %v", err)
	}
	if h.Type != TypeHelloRequest {
		t.Errorf("Type = %v, want %v", h.Type, TypeHelloRequest)
	}
	if !bytes.Equal(gotPayload, payload) {
		t.Errorf("payload = %x, want %x", gotPayload, payload)
	}
}

func TestDecodeDatagramRejectsBadVersion(t *testing.T) {
	buf, _ := EncodeDatagram(TypeHelloRequest, nil)
	buf[0] = 99
	if _, _, err := DecodeDatagram(buf); err != ErrBadVersion {
		t.Errorf("error = %v, want ErrBadVersion", err)
	}
}

func TestDecodeDatagramTruncated(t *testing.T) {
	if _, _, err := DecodeDatagram([]byte{3, 0, 0}); err != ErrTruncatedHeader {
		t.Errorf("error = %v, want ErrTruncatedHeader", err)
	}
}

func TestDecodeDatagramTrailingBytes(t *testing.T) {
	buf, _ := EncodeDatagram(TypeHelloRequest, []byte{1, 2, 3})
	buf = append(buf, 0xFF)
	if _, _, err := DecodeDatagram(buf); err != ErrTrailingBytes {
		t.Errorf("error = %v, want ErrTrailingBytes", err)
	}
}

func TestHelloMessageRoundTrip(t *testing.T) {
	m := HelloMessage{UniqueID: 0xdeadbeef}
	got, err := DecodeHelloMessage(m.Encode())
	if err != nil {
		t.Fatalf("DecodeHelloMessage() error: %v", err)
	}
	if got != m {
		t.Errorf("round-trip = %+v, want %+v", got, m)
	}
}

func TestPresentationMessageRoundTrip(t *testing.T) {
	var hostID [32]byte
	for i := range hostID {
		hostID[i] = byte(i)
	}
	m := PresentationMessage{CertificateDER: []byte("fake-der-cert"), HostIdentifier: hostID}
	got, err := DecodePresentationMessage(m.Encode())
	if err != nil {
		t.Fatalf("DecodePresentationMessage() error: %v", err)
	}
	if !bytes.Equal(got.CertificateDER, m.CertificateDER) || got.HostIdentifier != m.HostIdentifier {
		t.Errorf("round-trip = %+v, want %+v", got, m)
	}
}

func TestPresentationMessagePSKOnlyEmptyCert(t *testing.T) {
	m := PresentationMessage{}
	got, err := DecodePresentationMessage(m.Encode())
	if err != nil {
		t.Fatalf("DecodePresentationMessage() error: %v", err)
	}
	if len(got.CertificateDER) != 0 {
		t.Errorf("CertificateDER = %x, want empty", got.CertificateDER)
	}
}

func TestSessionNegotiationMessageRoundTrip(t *testing.T) {
	m := SessionNegotiationMessage{
		SessionNumber:      7,
		CipherSuites:       []crypto.CipherSuite{crypto.SuiteECDHE_RSA_AES256_GCM_SHA384, crypto.SuiteECDHE_RSA_AES128_GCM_SHA256},
		Curves:             []crypto.Curve{crypto.CurveSecp256k1},
		EphemeralPublicKey: []byte("ephemeral-pub-key"),
		Signature:          []byte("signature-bytes"),
	}
	got, err := DecodeSessionNegotiationMessage(m.Encode())
	if err != nil {
		t.Fatalf("DecodeSessionNegotiationMessage() error: %v", err)
	}
	if got.SessionNumber != m.SessionNumber {
		t.Errorf("SessionNumber = %d, want %d", got.SessionNumber, m.SessionNumber)
	}
	if len(got.CipherSuites) != len(m.CipherSuites) || got.CipherSuites[0] != m.CipherSuites[0] {
		t.Errorf("CipherSuites = %v, want %v", got.CipherSuites, m.CipherSuites)
	}
	if !bytes.Equal(got.EphemeralPublicKey, m.EphemeralPublicKey) {
		t.Errorf("EphemeralPublicKey = %x, want %x", got.EphemeralPublicKey, m.EphemeralPublicKey)
	}
	if !bytes.Equal(got.Signature, m.Signature) {
		t.Errorf("Signature = %x, want %x", got.Signature, m.Signature)
	}
}

func TestSessionNegotiationSignedFieldsExcludesSignature(t *testing.T) {
	m := SessionNegotiationMessage{SessionNumber: 1, EphemeralPublicKey: []byte("pub")}
	withoutSig := m.SignedFields()
	m.Signature = []byte("sig")
	withSig := m.SignedFields()
	if !bytes.Equal(withoutSig, withSig) {
		t.Error("SignedFields() output changed when only Signature field changed")
	}
	full := m.Encode()
	if bytes.Equal(full, withSig) {
		t.Error("Encode() must include the signature, unlike SignedFields()")
	}
}

func TestContactRequestMessageRoundTrip(t *testing.T) {
	var h1, h2 [32]byte
	h1[0] = 1
	h2[0] = 2
	m := ContactRequestMessage{Hashes: [][32]byte{h1, h2}}
	got, err := DecodeContactRequestMessage(m.Encode())
	if err != nil {
		t.Fatalf("DecodeContactRequestMessage() error: %v", err)
	}
	if len(got.Hashes) != 2 || got.Hashes[0] != h1 || got.Hashes[1] != h2 {
		t.Errorf("round-trip = %+v, want %+v", got, m)
	}
}

func TestContactMessageRoundTripMixedFamilies(t *testing.T) {
	var h1, h2 [32]byte
	h1[0] = 1
	h2[0] = 2
	m := ContactMessage{Entries: []ContactEntry{
		{Hash: h1, Endpoint: netip.MustParseAddrPort("10.0.0.1:12000")},
		{Hash: h2, Endpoint: netip.MustParseAddrPort("[fe80::1]:12000")},
	}}
	got, err := DecodeContactMessage(m.Encode())
	if err != nil {
		t.Fatalf("DecodeContactMessage() error: %v", err)
	}
	if len(got.Entries) != 2 {
		t.Fatalf("len(Entries) = %d, want 2", len(got.Entries))
	}
	if got.Entries[0].Endpoint != m.Entries[0].Endpoint {
		t.Errorf("Entries[0].Endpoint = %v, want %v", got.Entries[0].Endpoint, m.Entries[0].Endpoint)
	}
	if got.Entries[1].Endpoint != m.Entries[1].Endpoint {
		t.Errorf("Entries[1].Endpoint = %v, want %v", got.Entries[1].Endpoint, m.Entries[1].Endpoint)
	}
}

func TestInSessionFrameRoundTrip(t *testing.T) {
	f := InSessionFrame{SequenceNumber: 42, Ciphertext: []byte("ciphertext-and-tag")}
	got, err := DecodeInSessionFrame(f.Encode())
	if err != nil {
		t.Fatalf("DecodeInSessionFrame() error: %v", err)
	}
	if got.SequenceNumber != f.SequenceNumber || !bytes.Equal(got.Ciphertext, f.Ciphertext) {
		t.Errorf("round-trip = %+v, want %+v", got, f)
	}
}

func TestDataChannelTypeRoundTrip(t *testing.T) {
	for ch := 0; ch < DataChannelCount; ch++ {
		ty, err := DataChannelType(ch)
		if err != nil {
			t.Fatalf("DataChannelType(%d) error: %v", ch, err)
		}
		gotCh, ok := IsDataChannel(ty)
		if !ok || gotCh != ch {
			t.Errorf("IsDataChannel(%v) = (%d, %v), want (%d, true)", ty, gotCh, ok, ch)
		}
	}
	if _, err := DataChannelType(16); !errors.Is(err, ErrInvalidChannel) {
		t.Errorf("DataChannelType(16) error = %v, want ErrInvalidChannel", err)
	}
}

func TestIsInSessionBoundary(t *testing.T) {
	if IsInSession(TypeSession) {
		t.Error("SESSION must not be classified in-session")
	}
	if !IsInSession(TypeContactRequest) {
		t.Error("CONTACT_REQUEST must be classified in-session")
	}
	if !IsInSession(TypeKeepAlive) {
		t.Error("KEEP_ALIVE must be classified in-session")
	}
}
