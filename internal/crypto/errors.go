package crypto

import "errors"

var (
	// ErrUnsupportedSuite is returned for a cipher suite value outside the
	// enumerated set.
	ErrUnsupportedSuite = errors.New("crypto: unsupported cipher suite")

	// ErrUnsupportedCurve is returned for a curve value outside the
	// enumerated set.
	ErrUnsupportedCurve = errors.New("crypto: unsupported elliptic curve")

	// ErrNoMutualSuite is returned when no cipher suite is common between
	// initiator preference and responder support (§3, §4.3 protocol error).
	ErrNoMutualSuite = errors.New("crypto: no mutual cipher suite")

	// ErrNoMutualCurve is returned when no elliptic curve is common
	// between initiator preference and responder support.
	ErrNoMutualCurve = errors.New("crypto: no mutual elliptic curve")

	// ErrBadKeyLength is returned when a derived key does not match the
	// cipher suite's expected length.
	ErrBadKeyLength = errors.New("crypto: bad key length for suite")

	// ErrInvalidPeerPublicKey is returned when a peer's advertised
	// ephemeral public key cannot be parsed on the negotiated curve.
	ErrInvalidPeerPublicKey = errors.New("crypto: invalid peer ephemeral public key")
)
