package identity

import (
	"bytes"
	"crypto/rand"
	"io"
)

// HostIdentifier is the 32-byte random value generated once per FSCP
// server start and carried in every PRESENTATION (§3). It distinguishes
// restarts of the same certificate holder.
type HostIdentifier [32]byte

// NewHostIdentifier generates a fresh host identifier, reading randomness
// from rnd (pass nil for crypto/rand.Reader).
func NewHostIdentifier(rnd io.Reader) (HostIdentifier, error) {
	if rnd == nil {
		rnd = rand.Reader
	}
	var id HostIdentifier
	if _, err := io.ReadFull(rnd, id[:]); err != nil {
		return HostIdentifier{}, err
	}
	return id, nil
}

// Compare implements the byte-wise comparison of §4.3's simultaneous
// SESSION_REQUEST tie-break: "the one with the numerically greater
// host_identifier (byte-wise comparison) wins". Returns a value <0, 0, >0
// the way bytes.Compare does.
func (h HostIdentifier) Compare(other HostIdentifier) int {
	return bytes.Compare(h[:], other[:])
}

// GreaterThan reports whether h wins the §4.3 tie-break against other.
func (h HostIdentifier) GreaterThan(other HostIdentifier) bool {
	return h.Compare(other) > 0
}
