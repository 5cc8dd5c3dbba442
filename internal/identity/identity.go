// Package identity implements the node identity store of §3: a signature
// certificate plus private key, a pre-shared key, or both, and the
// derivation of the 32-byte certificate hash used as a compact peer
// identifier throughout FSCP.
package identity

import (
	"crypto"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"errors"
	"fmt"

	"go.step.sm/crypto/keyutil"
	"go.step.sm/crypto/pemutil"
	"go.step.sm/crypto/x509util"
)

var (
	// ErrNoIdentity is returned when neither a certificate nor a PSK is
	// configured and ephemeral identities were not explicitly allowed
	// (§9 open question, decided in SPEC_FULL.md §E.3).
	ErrNoIdentity = errors.New("identity: no certificate or pre-shared key configured")

	// ErrMissingPrivateKey is returned when a certificate is configured
	// without its matching private key.
	ErrMissingPrivateKey = errors.New("identity: certificate configured without private key")
)

// Store holds the material a node presents to its peers during the
// PRESENTATION exchange (§4.1) and signs SESSION_REQUEST/SESSION with.
type Store struct {
	cert       *x509.Certificate
	certDER    []byte
	privateKey crypto.Signer
	certHash   [32]byte

	psk []byte

	ephemeral bool
}

// Options configures NewStore.
type Options struct {
	// Certificate and PrivateKey, when both set, enable certificate-based
	// authentication.
	Certificate *x509.Certificate
	PrivateKey  crypto.Signer

	// PSK enables pre-shared-key authentication. May be combined with a
	// certificate.
	PSK []byte

	// AllowEphemeralIdentity generates a temporary self-signed certificate
	// when no certificate is configured, per SPEC_FULL.md §E.3. The zero
	// value refuses to start without an explicit identity.
	AllowEphemeralIdentity bool
}

// NewStore builds an identity store from the given options.
func NewStore(opts Options) (*Store, error) {
	s := &Store{psk: opts.PSK}

	switch {
	case opts.Certificate != nil && opts.PrivateKey != nil:
		if err := s.setCertificate(opts.Certificate, opts.PrivateKey); err != nil {
			return nil, err
		}
	case opts.Certificate != nil && opts.PrivateKey == nil:
		return nil, ErrMissingPrivateKey
	case len(opts.PSK) > 0:
		// PSK-only identity: authentication happens implicitly via later
		// MACs (§4.1 PRESENTATION note).
	case opts.AllowEphemeralIdentity:
		cert, key, err := generateEphemeralCertificate()
		if err != nil {
			return nil, fmt.Errorf("identity: generating ephemeral certificate: %w", err)
		}
		if err := s.setCertificate(cert, key); err != nil {
			return nil, err
		}
		s.ephemeral = true
	default:
		return nil, ErrNoIdentity
	}

	return s, nil
}

func (s *Store) setCertificate(cert *x509.Certificate, key crypto.Signer) error {
	s.cert = cert
	s.certDER = cert.Raw
	s.privateKey = key
	s.certHash = sha256.Sum256(cert.Raw)
	return nil
}

// HasCertificate reports whether certificate-based authentication is
// available.
func (s *Store) HasCertificate() bool { return s.cert != nil }

// HasPSK reports whether pre-shared-key authentication is available.
func (s *Store) HasPSK() bool { return len(s.psk) > 0 }

// IsEphemeral reports whether the certificate was generated on the fly
// rather than loaded from configuration (§9).
func (s *Store) IsEphemeral() bool { return s.ephemeral }

// CertificateDER returns the DER-encoded certificate for the PRESENTATION
// message, or nil if this store is PSK-only.
func (s *Store) CertificateDER() []byte { return s.certDER }

// CertificateHash returns the 32-byte SHA-256 hash of the DER certificate
// (§3), used as a compact peer identifier. Returns the zero value if this
// store is PSK-only.
func (s *Store) CertificateHash() [32]byte { return s.certHash }

// PSK returns the configured pre-shared key, or nil.
func (s *Store) PSK() []byte { return s.psk }

// Sign produces a signature over data using the certificate's private key.
// Used for the SESSION_REQUEST/SESSION signature field (§4.1) when
// certificate authentication is in use.
func (s *Store) Sign(digest []byte, opts crypto.SignerOpts) ([]byte, error) {
	if s.privateKey == nil {
		return nil, ErrMissingPrivateKey
	}
	return s.privateKey.Sign(rand.Reader, digest, opts)
}

// LoadFromFiles reads a DER or PEM certificate and private key from disk,
// via go.step.sm/crypto/pemutil, mirroring how the original loads
// configured identity material from files at startup (§6 "Persisted
// state: ... Keys and certificates are read from files at startup").
func LoadFromFiles(certPath, keyPath string) (*x509.Certificate, crypto.Signer, error) {
	certIface, err := pemutil.Read(certPath)
	if err != nil {
		return nil, nil, fmt.Errorf("identity: reading certificate %s: %w", certPath, err)
	}
	cert, ok := certIface.(*x509.Certificate)
	if !ok {
		return nil, nil, fmt.Errorf("identity: %s does not contain an X.509 certificate", certPath)
	}

	keyIface, err := pemutil.Read(keyPath)
	if err != nil {
		return nil, nil, fmt.Errorf("identity: reading private key %s: %w", keyPath, err)
	}
	signer, ok := keyIface.(crypto.Signer)
	if !ok {
		return nil, nil, fmt.Errorf("identity: %s does not contain a private key", keyPath)
	}

	return cert, signer, nil
}

// generateEphemeralCertificate builds a throwaway self-signed certificate
// via go.step.sm/crypto/x509util, used only when AllowEphemeralIdentity is
// set (§9).
func generateEphemeralCertificate() (*x509.Certificate, crypto.Signer, error) {
	pub, priv, err := keyutil.GenerateDefaultKeyPair()
	if err != nil {
		return nil, nil, err
	}
	signer, ok := priv.(crypto.Signer)
	if !ok {
		return nil, nil, errors.New("identity: generated ephemeral key is not a crypto.Signer")
	}

	template := &x509.Certificate{Subject: pkixEphemeralSubject()}
	profile, err := x509util.NewCertificate(template, x509util.WithPublicKey(pub))
	if err != nil {
		return nil, nil, err
	}

	certTemplate := profile.GetCertificate()
	der, err := x509.CreateCertificate(rand.Reader, certTemplate, certTemplate, pub, signer)
	if err != nil {
		return nil, nil, err
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, nil, err
	}
	return cert, signer, nil
}
