// Package fdb implements the MAC learning forwarding table.
//
// Each VLAN is an independent learning domain backed by its own bounded
// least-recently-used cache, created on the first update for that VLAN.
// A Table is meant to be owned by a single goroutine: the per-VLAN map is
// not synchronized.
package fdb

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"firestige.xyz/vbridge/internal/core"
)

// DefaultCapacity is the per-VLAN entry limit.
const DefaultCapacity = 65536

// EvictFunc is called when an entry is pushed out of a full VLAN cache.
type EvictFunc func(vlan core.VlanID, mac core.HwAddr, port core.PortNumber)

// Option configures a Table.
type Option func(*Table)

// WithEvictCallback registers fn to observe LRU evictions.
func WithEvictCallback(fn EvictFunc) Option {
	return func(t *Table) { t.onEvict = fn }
}

// Table maps (VLAN, MAC) to the port the MAC was last seen on.
type Table struct {
	capacity int
	caches   map[core.VlanID]*lru.Cache[core.HwAddr, core.PortNumber]
	onEvict  EvictFunc
}

// New returns an empty table holding at most capacity entries per VLAN.
func New(capacity int, opts ...Option) (*Table, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: fdb capacity must be positive, got %d", core.ErrConfigInvalid, capacity)
	}
	t := &Table{
		capacity: capacity,
		caches:   make(map[core.VlanID]*lru.Cache[core.HwAddr, core.PortNumber]),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Capacity returns the per-VLAN entry limit.
func (t *Table) Capacity() int { return t.capacity }

// Update records that mac is reachable through port within vlan, refreshing
// its recency. When the VLAN cache is full the least recently used entry is
// evicted.
func (t *Table) Update(vlan core.VlanID, mac core.HwAddr, port core.PortNumber) {
	cache, ok := t.caches[vlan]
	if !ok {
		cache = t.newCache(vlan)
		t.caches[vlan] = cache
	}
	cache.Add(mac, port)
}

// Lookup returns the port mac was learned on in vlan. A hit refreshes the
// entry's recency.
func (t *Table) Lookup(vlan core.VlanID, mac core.HwAddr) (core.PortNumber, bool) {
	cache, ok := t.caches[vlan]
	if !ok {
		return 0, false
	}
	return cache.Get(mac)
}

// Len returns the number of entries across all VLANs.
func (t *Table) Len() int {
	n := 0
	for _, c := range t.caches {
		n += c.Len()
	}
	return n
}

// VlanLen returns the number of entries learned in vlan.
func (t *Table) VlanLen(vlan core.VlanID) int {
	if c, ok := t.caches[vlan]; ok {
		return c.Len()
	}
	return 0
}

func (t *Table) newCache(vlan core.VlanID) *lru.Cache[core.HwAddr, core.PortNumber] {
	var onEvicted func(core.HwAddr, core.PortNumber)
	if t.onEvict != nil {
		onEvicted = func(mac core.HwAddr, port core.PortNumber) {
			t.onEvict(vlan, mac, port)
		}
	}
	cache, err := lru.NewWithEvict[core.HwAddr, core.PortNumber](t.capacity, onEvicted)
	if err != nil {
		// capacity is validated in New
		panic(err)
	}
	return cache
}
