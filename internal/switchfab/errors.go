// Package switchfab implements the layer-2 learning switch of §4.7: a
// bounded MAC/port table with insertion-order eviction, unicast
// forwarding, and broadcast/multicast flooding with group-based loop
// prevention.
package switchfab

import "errors"

// ErrFrameTooShort describes a frame too short to carry an Ethernet
// header. ParseEthernetHeader and Switch.Forward do not return it: they
// drop such frames silently (§4.7).
var ErrFrameTooShort = errors.New("switchfab: frame shorter than an ethernet header")
