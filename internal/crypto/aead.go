package crypto

import "encoding/binary"

// BuildNonce assembles the 12-byte AEAD nonce of §4.1:
// nonce_prefix(8) || sequence_number(4).
func BuildNonce(noncePrefix []byte, sequenceNumber uint32) []byte {
	nonce := make([]byte, 0, 12)
	nonce = append(nonce, noncePrefix...)
	var seq [4]byte
	binary.BigEndian.PutUint32(seq[:], sequenceNumber)
	return append(nonce, seq[:]...)
}
