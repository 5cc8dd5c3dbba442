package crypto

import (
	"crypto/ecdh"
	"crypto/rand"
	"fmt"
	"io"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// Curve identifies a negotiated FSCP elliptic curve (§3).
type Curve uint8

const (
	CurveSecp256k1 Curve = iota
	CurveSecp384r1
	CurveSecp521r1
)

// DefaultCurvePreference is the initiator's curve preference order.
var DefaultCurvePreference = []Curve{CurveSecp256k1, CurveSecp384r1, CurveSecp521r1}

func (c Curve) String() string {
	switch c {
	case CurveSecp256k1:
		return "secp256k1"
	case CurveSecp384r1:
		return "secp384r1"
	case CurveSecp521r1:
		return "secp521r1"
	default:
		return fmt.Sprintf("Curve(%d)", uint8(c))
	}
}

// NegotiateCurve picks the first curve in the initiator's preference list
// that also appears in the responder's supported set.
func NegotiateCurve(initiatorPreference, responderSupported []Curve) (Curve, error) {
	supported := make(map[Curve]struct{}, len(responderSupported))
	for _, c := range responderSupported {
		supported[c] = struct{}{}
	}
	for _, c := range initiatorPreference {
		if _, ok := supported[c]; ok {
			return c, nil
		}
	}
	return 0, ErrNoMutualCurve
}

// EphemeralKeyPair holds the private half of a curve's ephemeral ECDHE key.
// The public half is cached at generation time since every caller needs it
// for the SESSION_REQUEST/SESSION wire fields.
type EphemeralKeyPair struct {
	curve     Curve
	stdPriv   *ecdh.PrivateKey
	btcPriv   *btcec.PrivateKey
	publicRaw []byte
}

// GenerateEphemeralKeyPair creates a fresh private key on the given curve,
// reading randomness from rnd (pass crypto/rand.Reader in production; tests
// may supply a deterministic reader). For CurveSecp256k1 the key comes from
// btcec.NewPrivateKey, which draws from crypto/rand; rnd is not read.
func GenerateEphemeralKeyPair(c Curve, rnd io.Reader) (*EphemeralKeyPair, error) {
	if rnd == nil {
		rnd = rand.Reader
	}
	switch c {
	case CurveSecp384r1:
		priv, err := ecdh.P384().GenerateKey(rnd)
		if err != nil {
			return nil, err
		}
		return &EphemeralKeyPair{curve: c, stdPriv: priv, publicRaw: priv.PublicKey().Bytes()}, nil
	case CurveSecp521r1:
		priv, err := ecdh.P521().GenerateKey(rnd)
		if err != nil {
			return nil, err
		}
		return &EphemeralKeyPair{curve: c, stdPriv: priv, publicRaw: priv.PublicKey().Bytes()}, nil
	case CurveSecp256k1:
		priv, err := btcec.NewPrivateKey()
		if err != nil {
			return nil, err
		}
		return &EphemeralKeyPair{curve: c, btcPriv: priv, publicRaw: priv.PubKey().SerializeUncompressed()}, nil
	default:
		return nil, ErrUnsupportedCurve
	}
}

// PublicKeyBytes returns the uncompressed (or stdlib-encoded) public key,
// suitable for the "ephemeral public key" field of SESSION_REQUEST/SESSION.
func (k *EphemeralKeyPair) PublicKeyBytes() []byte {
	return k.publicRaw
}

// ECDH computes the shared secret Z against a peer's raw public key bytes
// on the same curve this key pair was generated on (§4.2).
func (k *EphemeralKeyPair) ECDH(peerPublic []byte) ([]byte, error) {
	switch k.curve {
	case CurveSecp384r1:
		pub, err := ecdh.P384().NewPublicKey(peerPublic)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPeerPublicKey, err)
		}
		return k.stdPriv.ECDH(pub)
	case CurveSecp521r1:
		pub, err := ecdh.P521().NewPublicKey(peerPublic)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPeerPublicKey, err)
		}
		return k.stdPriv.ECDH(pub)
	case CurveSecp256k1:
		pub, err := btcec.ParsePubKey(peerPublic)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPeerPublicKey, err)
		}
		return secp256k1ECDH(k.btcPriv, pub), nil
	default:
		return nil, ErrUnsupportedCurve
	}
}

// secp256k1ECDH performs raw scalar multiplication priv*pub and returns the
// affine X coordinate, mirroring the X-coordinate-only convention the
// stdlib crypto/ecdh curves use for their ECDH() result.
func secp256k1ECDH(priv *btcec.PrivateKey, pub *btcec.PublicKey) []byte {
	var point, result secp256k1.JacobianPoint
	pub.AsJacobian(&point)

	var scalar secp256k1.ModNScalar
	scalar.Set(&priv.Key)

	secp256k1.ScalarMultNonConst(&scalar, &point, &result)
	result.ToAffine()

	x := result.X.Bytes()
	return x[:]
}
