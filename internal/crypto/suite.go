// Package crypto implements the cipher suites, elliptic curves, PRF and
// AEAD primitives FSCP negotiates and uses to protect session traffic.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"
)

// CipherSuite identifies a negotiated FSCP cipher suite (§3).
type CipherSuite uint8

const (
	// SuiteECDHE_RSA_AES256_GCM_SHA384 is the strongest suite and the
	// initiator's default first preference.
	SuiteECDHE_RSA_AES256_GCM_SHA384 CipherSuite = iota
	SuiteECDHE_RSA_AES128_GCM_SHA256
)

// DefaultSuitePreference is the initiator's preference order (§3: "the
// session uses the first entry mutually supported in the initiator's
// preference order").
var DefaultSuitePreference = []CipherSuite{
	SuiteECDHE_RSA_AES256_GCM_SHA384,
	SuiteECDHE_RSA_AES128_GCM_SHA256,
}

// suiteInfo describes the fixed parameters of a cipher suite.
type suiteInfo struct {
	keyLen  int
	newHash func() hash.Hash
}

var suiteTable = map[CipherSuite]suiteInfo{
	SuiteECDHE_RSA_AES256_GCM_SHA384: {keyLen: 32, newHash: sha512.New384},
	SuiteECDHE_RSA_AES128_GCM_SHA256: {keyLen: 16, newHash: sha256.New},
}

// KeyLen returns the AEAD key length in bytes for the suite.
func (s CipherSuite) KeyLen() (int, error) {
	info, ok := suiteTable[s]
	if !ok {
		return 0, ErrUnsupportedSuite
	}
	return info.keyLen, nil
}

// NewHash returns the hash constructor used by the suite's PRF (§4.2).
func (s CipherSuite) NewHash() (func() hash.Hash, error) {
	info, ok := suiteTable[s]
	if !ok {
		return nil, ErrUnsupportedSuite
	}
	return info.newHash, nil
}

// String implements fmt.Stringer for logging.
func (s CipherSuite) String() string {
	switch s {
	case SuiteECDHE_RSA_AES256_GCM_SHA384:
		return "ECDHE-RSA-AES256-GCM-SHA384"
	case SuiteECDHE_RSA_AES128_GCM_SHA256:
		return "ECDHE-RSA-AES128-GCM-SHA256"
	default:
		return fmt.Sprintf("CipherSuite(%d)", uint8(s))
	}
}

// NewAEAD builds the AEAD instance for this suite from a derived key.
// Every suite in the table uses AES-GCM; suites differ in key length only.
func (s CipherSuite) NewAEAD(key []byte) (cipher.AEAD, error) {
	keyLen, err := s.KeyLen()
	if err != nil {
		return nil, err
	}
	if len(key) != keyLen {
		return nil, fmt.Errorf("%w: suite %s wants %d byte key, got %d", ErrBadKeyLength, s, keyLen, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// NegotiateSuite picks the first suite in the initiator's preference list
// that also appears in the responder's supported set (§3).
func NegotiateSuite(initiatorPreference, responderSupported []CipherSuite) (CipherSuite, error) {
	supported := make(map[CipherSuite]struct{}, len(responderSupported))
	for _, s := range responderSupported {
		supported[s] = struct{}{}
	}
	for _, s := range initiatorPreference {
		if _, ok := supported[s]; ok {
			return s, nil
		}
	}
	return 0, ErrNoMutualSuite
}
