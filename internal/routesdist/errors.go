// Package routesdist implements the routes/DNS distribution protocol of
// §4.10: the ROUTES/ROUTES_REQUEST payloads carried over DATA channel 1,
// per-peer version tracking, and the §6 acceptance policies that filter
// what a received ROUTES message is allowed to apply.
package routesdist

import "errors"

var (
	// ErrTruncated is returned when a ROUTES payload ends mid-entry.
	ErrTruncated = errors.New("routesdist: truncated ROUTES payload")

	// ErrUnknownEntryTag is returned for an entry tag byte outside 0x01-0x06.
	ErrUnknownEntryTag = errors.New("routesdist: unknown ROUTES entry tag")

	// ErrStaleVersion is returned when an inbound ROUTES message's version
	// is not strictly greater than the stored per-peer version (§4.10).
	ErrStaleVersion = errors.New("routesdist: ROUTES version is not newer than the stored version")
)
