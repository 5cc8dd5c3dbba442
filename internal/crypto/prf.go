package crypto

import (
	"crypto/hmac"
	"hash"
)

// PRF implements the TLS 1.2-style P_hash pseudo-random function (§4.2):
//
//	P_hash(secret, seed) = HMAC_hash(secret, A(1) || seed) ||
//	                        HMAC_hash(secret, A(2) || seed) || ...
//	A(0) = seed
//	A(i) = HMAC_hash(secret, A(i-1))
//
// label and context are concatenated to form the seed, matching the two
// label/host-identifier derivations of §4.2 ("session key", "nonce
// prefix").
func PRF(newHash func() hash.Hash, secret []byte, label string, context []byte, outLen int) []byte {
	seed := make([]byte, 0, len(label)+len(context))
	seed = append(seed, label...)
	seed = append(seed, context...)

	out := make([]byte, 0, outLen)
	a := seed
	for len(out) < outLen {
		a = hmacSum(newHash, secret, a)
		out = append(out, hmacSum(newHash, secret, append(append([]byte{}, a...), seed...))...)
	}
	return out[:outLen]
}

func hmacSum(newHash func() hash.Hash, key, data []byte) []byte {
	mac := hmac.New(newHash, key)
	mac.Write(data)
	return mac.Sum(nil)
}

// DeriveSessionMaterial computes the four values of §4.2 from the ECDHE
// shared secret Z and the two sides' host identifiers.
type SessionMaterial struct {
	LocalSessionKey   []byte
	RemoteSessionKey  []byte
	LocalNoncePrefix  []byte
	RemoteNoncePrefix []byte
}

// DeriveSessionMaterial runs the four PRF derivations of §4.2. localHostID
// and remoteHostID are the 32-byte host identifiers of this node and the
// peer respectively.
func DeriveSessionMaterial(suite CipherSuite, z, localHostID, remoteHostID []byte) (*SessionMaterial, error) {
	newHash, err := suite.NewHash()
	if err != nil {
		return nil, err
	}
	keyLen, err := suite.KeyLen()
	if err != nil {
		return nil, err
	}
	return &SessionMaterial{
		LocalSessionKey:   PRF(newHash, z, "session key", localHostID, keyLen),
		RemoteSessionKey:  PRF(newHash, z, "session key", remoteHostID, keyLen),
		LocalNoncePrefix:  PRF(newHash, z, "nonce prefix", localHostID, 8),
		RemoteNoncePrefix: PRF(newHash, z, "nonce prefix", remoteHostID, 8),
	}, nil
}
