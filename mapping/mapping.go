// Package mapping implements the per-peer PropertyMapping negotiation table:
// a translation between a peer's remote property ids and locally resolved
// *property.Info descriptors, plus the monotonically increasing version
// that lets either side detect a stale remote view.
package mapping

import (
	"sync"

	"erebus-rpc/property"
)

// WildcardVersion means "not yet negotiated in this direction".
const WildcardVersion uint32 = ^uint32(0)

// Mapping is grown by PutPropertyMapping/GetPropertyMapping and never
// shrinks within a version. It is created empty the first time a peer is
// seen.
type Mapping struct {
	mu      sync.RWMutex
	byID    map[uint32]*property.Info
	version uint32
}

func New() *Mapping {
	return &Mapping{
		byID:    make(map[uint32]*property.Info),
		version: WildcardVersion,
	}
}

// Put records the local descriptor for a remote unique id. It is additive:
// re-putting the same id with the same descriptor is a no-op, and an id is
// never removed by Put.
func (m *Mapping) Put(remoteID uint32, info *property.Info) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[remoteID] = info
}

// Resolve translates a remote id to the local descriptor, if known.
func (m *Mapping) Resolve(remoteID uint32) (*property.Info, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	info, ok := m.byID[remoteID]
	return info, ok
}

// Len reports how many remote ids have been resolved so far.
func (m *Mapping) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byID)
}

// Version returns the sender's mapping version as last recorded by SetVersion.
func (m *Mapping) Version() uint32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.version
}

// SetVersion records the sender's current mapping version.
func (m *Mapping) SetVersion(v uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.version = v
}

// IsWildcard reports whether the mapping has never been negotiated.
func (m *Mapping) IsWildcard() bool {
	return m.Version() == WildcardVersion
}
