package registry

import (
	"net/netip"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/freelan-go/freelan/internal/fscp"
)

// ContactCacheSize bounds the cert-hash -> endpoint contact cache (§4.6).
// Recency-based eviction is the right policy here: a hash we haven't been
// asked or told about in a while is the best candidate to forget first,
// unlike the switch's MAC table which needs strict insertion-order
// eviction (see internal/switchfab).
const ContactCacheSize = 4096

// Options configures a Registry (§4.5, §4.6).
type Options struct {
	// MaxUnauthenticatedPerSecond bounds HELLO/PRESENTATION admission per
	// source address; 0 selects DefaultMaxUnauthenticatedPerSecond.
	MaxUnauthenticatedPerSecond float64
	NeverContactList            *NeverContactList
	AcceptContactRequests       bool
	AcceptContacts              bool
	Clock                       Clock
}

// Registry maps remote UDP endpoint -> peer session, dispatches inbound
// datagrams to the right Peer, coordinates admission control, and serves
// dynamic-contact introductions (§2, §4.5, §4.6).
type Registry struct {
	mu    sync.RWMutex
	peers map[netip.AddrPort]*fscp.Peer

	contacts *lru.Cache[[32]byte, netip.AddrPort]

	limiter          *PerSourceLimiter
	neverContactList *NeverContactList

	acceptContactRequests bool
	acceptContacts        bool

	clock Clock
}

// NewRegistry builds an empty Registry.
func NewRegistry(opts Options) (*Registry, error) {
	rate := opts.MaxUnauthenticatedPerSecond
	if rate <= 0 {
		rate = DefaultMaxUnauthenticatedPerSecond
	}
	clock := opts.Clock
	if clock == nil {
		clock = SystemClock{}
	}

	contacts, err := lru.New[[32]byte, netip.AddrPort](ContactCacheSize)
	if err != nil {
		return nil, err
	}

	return &Registry{
		peers:                 make(map[netip.AddrPort]*fscp.Peer),
		contacts:              contacts,
		limiter:               NewPerSourceLimiter(rate, clock),
		neverContactList:      opts.NeverContactList,
		acceptContactRequests: opts.AcceptContactRequests,
		acceptContacts:        opts.AcceptContacts,
		clock:                 clock,
	}, nil
}

// AdmitUnauthenticated implements the §4.5 admission pipeline for a HELLO
// or PRESENTATION arriving from addr: the never-contact list is checked
// first ("before any crypto work"), then the per-source rate limit.
func (r *Registry) AdmitUnauthenticated(addr netip.Addr) error {
	if r.neverContactList.Contains(addr) {
		return ErrNeverContact
	}
	if !r.limiter.Allow(addr) {
		return ErrRateLimited
	}
	return nil
}

// PeerByEndpoint returns the peer registered for endpoint, or nil if none.
func (r *Registry) PeerByEndpoint(endpoint netip.AddrPort) *fscp.Peer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.peers[endpoint]
}

// EnsurePeer returns the existing peer for endpoint, or creates and
// registers a fresh IDLE one.
func (r *Registry) EnsurePeer(endpoint netip.AddrPort, now time.Time) *fscp.Peer {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.peers[endpoint]; ok {
		return p
	}
	p := fscp.NewPeer(endpoint, now)
	r.peers[endpoint] = p
	return p
}

// RemovePeer drops the registered peer for endpoint, e.g. once it reaches
// LOST and is being cleaned up (§4.3: "a new Peer entry is created fresh
// on the next PRESENTATION").
func (r *Registry) RemovePeer(endpoint netip.AddrPort) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.peers, endpoint)
	r.limiter.Forget(endpoint.Addr())
}

// AllPeers returns a snapshot of all currently registered peers.
func (r *Registry) AllPeers() []*fscp.Peer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*fscp.Peer, 0, len(r.peers))
	for _, p := range r.peers {
		out = append(out, p)
	}
	return out
}

// Count returns the number of registered peers.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.peers)
}

// RecordContact remembers that certHash is reachable at endpoint, so a
// future CONTACT_REQUEST for it can be answered (§4.6). Called whenever we
// learn a peer's certificate hash, e.g. on PRESENTATION.
func (r *Registry) RecordContact(certHash [32]byte, endpoint netip.AddrPort) {
	r.contacts.Add(certHash, endpoint)
}

// LookupContact returns the last known endpoint for certHash, if any.
func (r *Registry) LookupContact(certHash [32]byte) (netip.AddrPort, bool) {
	return r.contacts.Get(certHash)
}

// ResolveContactRequest answers a CONTACT_REQUEST's list of certificate
// hashes with the subset we know about, provided accept_contact_requests
// is enabled (§4.6: "for each hash the receiver does know and is willing
// to share"). Returns ErrContactRequestsDisabled if sharing is off.
func (r *Registry) ResolveContactRequest(hashes [][32]byte) (map[[32]byte]netip.AddrPort, error) {
	if !r.acceptContactRequests {
		return nil, ErrContactRequestsDisabled
	}
	known := make(map[[32]byte]netip.AddrPort)
	for _, h := range hashes {
		if ep, ok := r.contacts.Get(h); ok {
			known[h] = ep
		}
	}
	return known, nil
}

// AcceptContact reports whether an inbound CONTACT advertising endpoint
// for certHash should be acted on: accept_contacts must be enabled and
// endpoint must not be on the never-contact list (§4.6: "Acceptance of a
// CONTACT triggers a new HELLO to the advertised endpoint, subject to
// never_contact_list"). On success it also records the contact for our
// own future CONTACT_REQUEST answers.
func (r *Registry) AcceptContact(certHash [32]byte, endpoint netip.AddrPort) error {
	if !r.acceptContacts {
		return ErrContactsDisabled
	}
	if r.neverContactList.Contains(endpoint.Addr()) {
		return ErrNeverContact
	}
	r.RecordContact(certHash, endpoint)
	return nil
}
