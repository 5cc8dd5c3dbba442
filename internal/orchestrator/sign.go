package orchestrator

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"fmt"
)

// signSessionFields authenticates the SESSION_REQUEST/SESSION
// SignedFields using this node's identity (§4.1: "a signature over the
// preceding fields"): a real signature when a certificate is configured,
// or an HMAC-SHA256 keyed by the pre-shared key otherwise.
func (c *Core) signSessionFields(fields []byte) ([]byte, error) {
	if c.identity.HasCertificate() {
		digest := sha256.Sum256(fields)
		return c.identity.Sign(digest[:], crypto.SHA256)
	}
	if c.identity.HasPSK() {
		return hmacSum(c.identity.PSK(), fields), nil
	}
	return nil, nil
}

func hmacSum(key, data []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	return mac.Sum(nil)
}

// verifySessionFields checks sig against fields using either peerCert's
// public key or, for a PSK-only peer (peerCert nil), the shared psk as an
// HMAC key.
func verifySessionFields(peerCert *x509.Certificate, psk []byte, fields, sig []byte) error {
	if peerCert == nil {
		if len(psk) == 0 {
			if len(sig) != 0 {
				return fmt.Errorf("orchestrator: unexpected signature from an unauthenticated peer")
			}
			return nil
		}
		if !hmac.Equal(hmacSum(psk, fields), sig) {
			return fmt.Errorf("orchestrator: PSK MAC verification failed")
		}
		return nil
	}
	digest := sha256.Sum256(fields)
	switch pub := peerCert.PublicKey.(type) {
	case *ecdsa.PublicKey:
		if !ecdsa.VerifyASN1(pub, digest[:], sig) {
			return fmt.Errorf("orchestrator: ECDSA signature verification failed")
		}
		return nil
	case ed25519.PublicKey:
		if !ed25519.Verify(pub, digest[:], sig) {
			return fmt.Errorf("orchestrator: Ed25519 signature verification failed")
		}
		return nil
	case *rsa.PublicKey:
		return rsa.VerifyPKCS1v15(pub, crypto.SHA256, digest[:], sig)
	default:
		return fmt.Errorf("orchestrator: unsupported public key algorithm for signature verification")
	}
}
