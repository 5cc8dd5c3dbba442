// Package portfab implements the polymorphic port abstraction shared by
// internal/switchfab and internal/router (§4.7/§4.8): the local TAP/TUN
// device and each remote peer session are each represented as a small
// descriptor carrying a write function and a group tag, rather than
// through a virtual hierarchy of port types.
package portfab

import "sync"

// Group tags a port as either the local TAP/TUN device or a remote peer
// session, the two categories the §4.7 flooding rule distinguishes.
type Group int

const (
	GroupTap Group = iota
	GroupPeer
)

func (g Group) String() string {
	switch g {
	case GroupTap:
		return "tap"
	case GroupPeer:
		return "peer"
	default:
		return "unknown"
	}
}

// WriteFunc delivers frame/bytes out of a port, invoking completion with
// the outcome once known (§4.7: "Completion handler receives one
// (port, error) result per attempted write").
type WriteFunc func(frame []byte, completion func(error))

// Port is one endpoint of the switch/router's forwarding fabric.
type Port struct {
	Index int
	Group Group
	Write WriteFunc
}

// AllowForwarding implements the §4.7 group-compatibility rule: TAP<->Peer
// traffic always flows, Peer<->Peer forwarding is blocked unless
// relayModeEnabled is set. This is the conservative §9 open-question
// reading, applied identically whether the caller is in switch or hub
// mode.
func AllowForwarding(from, to Group, relayModeEnabled bool) bool {
	if from == GroupPeer && to == GroupPeer {
		return relayModeEnabled
	}
	return true
}

// WriteResult pairs a port index with the outcome of a write attempted on
// it.
type WriteResult struct {
	Port int
	Err  error
}

// Set is a registry of ports, mutated only from the router strand (§5) but
// guarded by a mutex here so it remains safe to use before that strand
// exists or from tests that exercise it concurrently.
type Set struct {
	mu    sync.RWMutex
	ports map[int]*Port
}

// NewSet creates an empty port set.
func NewSet() *Set {
	return &Set{ports: make(map[int]*Port)}
}

// Register adds or replaces the port at index.
func (s *Set) Register(index int, group Group, write WriteFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ports[index] = &Port{Index: index, Group: group, Write: write}
}

// Unregister removes the port at index, if present.
func (s *Set) Unregister(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.ports, index)
}

// Get returns the port at index, if registered.
func (s *Set) Get(index int) (*Port, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.ports[index]
	return p, ok
}

// Len returns the number of registered ports.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ports)
}

// Snapshot returns a stable copy of all registered ports, safe to iterate
// without holding the set's lock.
func (s *Set) Snapshot() []*Port {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Port, 0, len(s.ports))
	for _, p := range s.ports {
		out = append(out, p)
	}
	return out
}

// WriteTo writes frame to every port in indexes (skipping any that are no
// longer registered) and invokes completion once with one WriteResult per
// attempted write, in no particular order.
func (s *Set) WriteTo(indexes []int, frame []byte, completion func([]WriteResult)) {
	var (
		mu      sync.Mutex
		results []WriteResult
		pending int
	)

	targets := make([]*Port, 0, len(indexes))
	for _, idx := range indexes {
		if p, ok := s.Get(idx); ok {
			targets = append(targets, p)
		}
	}
	pending = len(targets)
	if pending == 0 {
		if completion != nil {
			completion(nil)
		}
		return
	}

	for _, p := range targets {
		port := p
		port.Write(frame, func(err error) {
			mu.Lock()
			results = append(results, WriteResult{Port: port.Index, Err: err})
			pending--
			done := pending == 0
			mu.Unlock()
			if done && completion != nil {
				completion(results)
			}
		})
	}
}
