package wire

import "encoding/binary"

// HelloMessage is the payload of both HELLO_REQUEST and HELLO_RESPONSE
// (§4.1): a 4-byte unique id, echoed by the responder, used to measure
// RTT and prove round-trip reachability.
type HelloMessage struct {
	UniqueID uint32
}

// Encode returns the wire payload (without the FSCP header).
func (m HelloMessage) Encode() []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, m.UniqueID)
	return buf
}

// DecodeHelloMessage parses a HELLO_REQUEST or HELLO_RESPONSE payload.
func DecodeHelloMessage(payload []byte) (HelloMessage, error) {
	if len(payload) != 4 {
		return HelloMessage{}, ErrTruncatedPayload
	}
	return HelloMessage{UniqueID: binary.BigEndian.Uint32(payload)}, nil
}
