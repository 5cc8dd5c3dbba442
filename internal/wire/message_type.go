// Package wire implements the FSCP on-wire message format of §4.1: the
// fixed 4-byte datagram header and the encode/decode routines for every
// message type. Nothing in this package touches cryptography or peer
// state — it is a pure codec layer, mirroring the teacher's separation of
// `lib/protocol` (parsing/building) from `lib/session` (state).
package wire

import "fmt"

// Version is the only FSCP protocol version this implementation speaks
// (§4.1: "Version is 3").
const Version uint8 = 3

// MessageType identifies the kind of FSCP datagram (§4.1).
type MessageType uint8

const (
	TypeHelloRequest    MessageType = 0x00
	TypeHelloResponse   MessageType = 0x01
	TypePresentation    MessageType = 0x02
	TypeSessionRequest  MessageType = 0x03
	TypeSession         MessageType = 0x04
	TypeContactRequest  MessageType = 0x70
	TypeContact         MessageType = 0x71
	TypeDataChannelBase MessageType = 0x80 // DATA channel 0; channels 0..15 occupy 0x80..0x8F.
	TypeKeepAlive       MessageType = 0x90
)

// DataChannelCount is the number of distinct DATA channels (§4.1: types
// 0x80..0x8F).
const DataChannelCount = 16

// IsDataChannel reports whether t is one of the 16 DATA channel types and
// returns the channel number if so.
func IsDataChannel(t MessageType) (channel int, ok bool) {
	if t >= TypeDataChannelBase && t < TypeDataChannelBase+DataChannelCount {
		return int(t - TypeDataChannelBase), true
	}
	return 0, false
}

// DataChannelType returns the message type byte for the given channel
// number (0..15).
func DataChannelType(channel int) (MessageType, error) {
	if channel < 0 || channel >= DataChannelCount {
		return 0, fmt.Errorf("%w: channel %d", ErrInvalidChannel, channel)
	}
	return TypeDataChannelBase + MessageType(channel), nil
}

// IsInSession reports whether messages of this type are framed as
// in-session (encrypted) datagrams (§4.1: types >= 0x70).
func IsInSession(t MessageType) bool {
	return t >= TypeContactRequest
}

// IsAuthenticated reports whether messages of this type are authenticated
// (signed or MAC'd) but not necessarily encrypted (§4.1: SESSION_REQUEST,
// SESSION).
func IsAuthenticated(t MessageType) bool {
	return t == TypeSessionRequest || t == TypeSession
}

func (t MessageType) String() string {
	switch {
	case t == TypeHelloRequest:
		return "HELLO_REQUEST"
	case t == TypeHelloResponse:
		return "HELLO_RESPONSE"
	case t == TypePresentation:
		return "PRESENTATION"
	case t == TypeSessionRequest:
		return "SESSION_REQUEST"
	case t == TypeSession:
		return "SESSION"
	case t == TypeContactRequest:
		return "CONTACT_REQUEST"
	case t == TypeContact:
		return "CONTACT"
	case t == TypeKeepAlive:
		return "KEEP_ALIVE"
	default:
		if ch, ok := IsDataChannel(t); ok {
			return fmt.Sprintf("DATA[%d]", ch)
		}
		return fmt.Sprintf("MessageType(0x%02x)", uint8(t))
	}
}
