// Package ca implements the certificate authority store of §6: certificate
// and CRL accumulation, chain verification under a configurable revocation
// policy, and a rebuild-on-change lifecycle (§5: "protected by an
// exclusive lock and rebuilt only on CA-set changes").
package ca

import (
	"crypto/x509"
	"sync"

	"github.com/samber/oops"
)

// RevocationPolicy selects how CRLs are applied during verification (§6).
type RevocationPolicy int

const (
	// RevocationNone ignores CRLs entirely.
	RevocationNone RevocationPolicy = iota
	// RevocationLastOnly checks only the leaf certificate against CRLs
	// issued by its direct issuer.
	RevocationLastOnly
	// RevocationAll checks every certificate in the chain against CRLs
	// issued by its issuer.
	RevocationAll
)

// Store is the certificate authority store: a pool of trusted CA
// certificates plus accumulated CRLs, rebuilt as a whole whenever its
// CA-set changes (§5). Mutations take the write lock of mu; Verify and
// the read accessors take its read lock.
type Store struct {
	mu sync.RWMutex

	policy RevocationPolicy
	certs  []*x509.Certificate
	pool   *x509.CertPool

	// revoked maps an issuer's raw subject (the CRL's RawIssuer, matched
	// against a certificate's RawIssuer) to the serial numbers it has
	// revoked.
	revoked map[string]map[string]struct{}
}

// NewStore creates an empty CA store with the given revocation policy.
func NewStore(policy RevocationPolicy) *Store {
	return &Store{
		policy:  policy,
		pool:    x509.NewCertPool(),
		revoked: make(map[string]map[string]struct{}),
	}
}

// AddCertificate adds a trusted CA certificate to the store and rebuilds
// the verification pool.
func (s *Store) AddCertificate(cert *x509.Certificate) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.certs = append(s.certs, cert)
	s.rebuildLocked()
}

// AddCRL merges a certificate revocation list into the store, keyed by the
// issuing CA's raw subject bytes.
func (s *Store) AddCRL(crl *x509.RevocationList) {
	s.mu.Lock()
	defer s.mu.Unlock()

	issuerKey := string(crl.RawIssuer)
	set, ok := s.revoked[issuerKey]
	if !ok {
		set = make(map[string]struct{})
		s.revoked[issuerKey] = set
	}
	for _, rc := range crl.RevokedCertificateEntries {
		set[rc.SerialNumber.String()] = struct{}{}
	}
}

// rebuildLocked reconstructs the x509.CertPool from s.certs. Called with
// s.mu held.
func (s *Store) rebuildLocked() {
	pool := x509.NewCertPool()
	for _, c := range s.certs {
		pool.AddCert(c)
	}
	s.pool = pool
}

// Verify checks a presented chain (leaf first) against the CA pool and
// then applies the configured revocation policy (§6). An empty chain is
// always rejected.
func (s *Store) Verify(chain []*x509.Certificate) (bool, error) {
	if len(chain) == 0 {
		return false, oops.Errorf("ca: empty certificate chain")
	}

	s.mu.RLock()
	pool := s.pool
	policy := s.policy
	s.mu.RUnlock()

	leaf := chain[0]
	intermediates := x509.NewCertPool()
	for _, c := range chain[1:] {
		intermediates.AddCert(c)
	}

	verifyOpts := x509.VerifyOptions{
		Roots:         pool,
		Intermediates: intermediates,
		KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	}
	chains, err := leaf.Verify(verifyOpts)
	if err != nil {
		return false, oops.Wrapf(err, "ca: chain verification failed")
	}
	if len(chains) == 0 {
		return false, nil
	}

	if s.isRevoked(chain, policy) {
		return false, nil
	}
	return true, nil
}

func (s *Store) isRevoked(chain []*x509.Certificate, policy RevocationPolicy) bool {
	if policy == RevocationNone {
		return false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	checkOne := func(cert *x509.Certificate) bool {
		set, ok := s.revoked[string(cert.RawIssuer)]
		if !ok {
			return false
		}
		_, revoked := set[cert.SerialNumber.String()]
		return revoked
	}

	switch policy {
	case RevocationLastOnly:
		return checkOne(chain[0])
	case RevocationAll:
		for _, cert := range chain {
			if checkOne(cert) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// CertificateCount returns the number of trusted CA certificates, for
// diagnostics.
func (s *Store) CertificateCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.certs)
}
