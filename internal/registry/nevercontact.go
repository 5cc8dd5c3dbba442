package registry

import "net/netip"

// NeverContactList holds the configured IP prefixes that must never be
// greeted or presented to (§4.5: "A never_contact_list of IP prefixes
// rejects HELLO and PRESENTATION from matching sources before any crypto
// work").
type NeverContactList struct {
	prefixes []netip.Prefix
}

// NewNeverContactList builds a NeverContactList from already-parsed
// prefixes.
func NewNeverContactList(prefixes []netip.Prefix) *NeverContactList {
	return &NeverContactList{prefixes: prefixes}
}

// ParseNeverContactList parses a list of CIDR strings into a
// NeverContactList.
func ParseNeverContactList(cidrs []string) (*NeverContactList, error) {
	prefixes := make([]netip.Prefix, 0, len(cidrs))
	for _, c := range cidrs {
		p, err := netip.ParsePrefix(c)
		if err != nil {
			return nil, err
		}
		prefixes = append(prefixes, p)
	}
	return &NeverContactList{prefixes: prefixes}, nil
}

// Contains reports whether addr matches any configured prefix.
func (l *NeverContactList) Contains(addr netip.Addr) bool {
	if l == nil {
		return false
	}
	for _, p := range l.prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
