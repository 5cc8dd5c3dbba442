package switchfab

import "container/list"

// DefaultMACTableCapacity is the §4.7/§4.3 table size default.
const DefaultMACTableCapacity = 1024

type macEntry struct {
	mac  MAC
	port int
}

// MACTable maps MAC -> port index with a bounded capacity and strict
// insertion-order eviction (§4.3: "Switch entries expire only by eviction
// (LRU-insertion-order)"; §4.7: "If the table is at capacity, evict the
// oldest inserted entry").
//
// This is hand-built on container/list rather than golang-lru: an LRU
// touches (and so reorders) an entry on every access, but §4.7 requires
// the *original* insertion order to determine eviction even when an
// existing MAC is re-learned on a different port, which golang-lru cannot
// express.
type MACTable struct {
	capacity int
	order    *list.List // front = oldest, back = newest
	index    map[MAC]*list.Element
}

// NewMACTable creates a table bounded at capacity entries. A
// non-positive capacity selects DefaultMACTableCapacity.
func NewMACTable(capacity int) *MACTable {
	if capacity <= 0 {
		capacity = DefaultMACTableCapacity
	}
	return &MACTable{
		capacity: capacity,
		order:    list.New(),
		index:    make(map[MAC]*list.Element),
	}
}

// Learn records that mac was last seen on port, inserting a new entry or
// updating an existing one in place. If learning mac requires inserting a
// new entry and the table is at capacity, the oldest entry is evicted
// first and returned.
//
// Re-learning an already-known MAC on a (possibly different) port updates
// its port but does NOT move it in the eviction order — only first-seen
// order matters (§4.7).
func (t *MACTable) Learn(mac MAC, port int) (evicted MAC, didEvict bool) {
	if elem, ok := t.index[mac]; ok {
		elem.Value.(*macEntry).port = port
		return MAC{}, false
	}

	if len(t.index) >= t.capacity {
		oldest := t.order.Front()
		if oldest != nil {
			oe := oldest.Value.(*macEntry)
			evicted, didEvict = oe.mac, true
			t.order.Remove(oldest)
			delete(t.index, oe.mac)
		}
	}

	elem := t.order.PushBack(&macEntry{mac: mac, port: port})
	t.index[mac] = elem
	return evicted, didEvict
}

// Lookup returns the port last learned for mac.
func (t *MACTable) Lookup(mac MAC) (port int, ok bool) {
	elem, ok := t.index[mac]
	if !ok {
		return 0, false
	}
	return elem.Value.(*macEntry).port, true
}

// Len returns the number of entries currently in the table.
func (t *MACTable) Len() int {
	return len(t.index)
}
