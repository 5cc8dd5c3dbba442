package wire

import "errors"

// Wire parse errors (§7): always dropped silently by the caller with a
// counter increment, never propagated to the application. They are still
// typed so the fscp engine can distinguish and count them.
var (
	ErrTruncatedHeader  = errors.New("wire: truncated header")
	ErrTruncatedPayload = errors.New("wire: truncated payload")
	ErrBadVersion       = errors.New("wire: unsupported protocol version")
	ErrBadLength        = errors.New("wire: payload length does not match header")
	ErrUnknownType      = errors.New("wire: unknown message type")
	ErrInvalidChannel   = errors.New("wire: invalid data channel number")
	ErrTrailingBytes    = errors.New("wire: trailing bytes after message")
	ErrListTooLong      = errors.New("wire: length-prefixed list exceeds maximum")
)
