package crypto

import (
	"bytes"
	"crypto/sha256"
	"testing"
)

func TestPRFDeterministicLength(t *testing.T) {
	secret := []byte("shared-secret")
	out := PRF(sha256.New, secret, "session key", []byte("host-id"), 48)
	if len(out) != 48 {
		t.Fatalf("len(out) = %d, want 48", len(out))
	}

	again := PRF(sha256.New, secret, "session key", []byte("host-id"), 48)
	if !bytes.Equal(out, again) {
		t.Error("PRF is not deterministic for identical inputs")
	}
}

func TestPRFDiffersByLabel(t *testing.T) {
	secret := []byte("shared-secret")
	sessionKey := PRF(sha256.New, secret, "session key", []byte("host-id"), 32)
	noncePrefix := PRF(sha256.New, secret, "nonce prefix", []byte("host-id"), 32)
	if bytes.Equal(sessionKey, noncePrefix) {
		t.Error("PRF output identical for different labels")
	}
}

func TestDeriveSessionMaterialAsymmetry(t *testing.T) {
	z := []byte("ecdhe-shared-secret-z-value-bytes")
	localHostID := bytes.Repeat([]byte{0xAA}, 32)
	remoteHostID := bytes.Repeat([]byte{0xBB}, 32)

	// Side A derives using (local=A, remote=B).
	a, err := DeriveSessionMaterial(SuiteECDHE_RSA_AES256_GCM_SHA384, z, localHostID, remoteHostID)
	if err != nil {
		t.Fatalf("DeriveSessionMaterial(A) error: %v", err)
	}
	// Side B derives the same Z with its local/remote swapped.
	b, err := DeriveSessionMaterial(SuiteECDHE_RSA_AES256_GCM_SHA384, z, remoteHostID, localHostID)
	if err != nil {
		t.Fatalf("DeriveSessionMaterial(B) error: %v", err)
	}

	// A's local (send) key must equal B's remote (receive-from-A) key.
	if !bytes.Equal(a.LocalSessionKey, b.RemoteSessionKey) {
		t.Error("A.LocalSessionKey != B.RemoteSessionKey")
	}
	if !bytes.Equal(a.RemoteSessionKey, b.LocalSessionKey) {
		t.Error("A.RemoteSessionKey != B.LocalSessionKey")
	}
	// Keys must be asymmetric: send key != receive key on the same side.
	if bytes.Equal(a.LocalSessionKey, a.RemoteSessionKey) {
		t.Error("local and remote session keys must differ (asymmetric keys)")
	}
}
