// Package registry implements the peer registry of §2/§4.5/§4.6: the
// endpoint -> session map, the certificate-hash -> endpoint contact cache,
// and rate-limited admission control for unauthenticated messages.
package registry

import "errors"

var (
	// ErrPeerNotFound is returned when no peer is registered for an
	// endpoint.
	ErrPeerNotFound = errors.New("registry: no peer for endpoint")

	// ErrNeverContact is returned when a source address matches the
	// never_contact_list (§4.5).
	ErrNeverContact = errors.New("registry: source address is on the never-contact list")

	// ErrRateLimited is returned when the per-source token bucket for
	// unauthenticated messages is exhausted (§4.5).
	ErrRateLimited = errors.New("registry: unauthenticated message rate limited")

	// ErrContactRequestsDisabled is returned when a CONTACT_REQUEST is
	// received but accept_contact_requests is false (§4.6).
	ErrContactRequestsDisabled = errors.New("registry: contact requests are disabled")

	// ErrContactsDisabled is returned when a CONTACT is received but
	// accept_contacts is false (§4.6).
	ErrContactsDisabled = errors.New("registry: accepting contacts is disabled")
)
