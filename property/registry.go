package property

import "sync"

// Registry is the process-wide set of known property descriptors. It
// assigns compact, dense, monotone 32-bit ids on first registration and
// never reuses an id within a process run.
type Registry struct {
	mu      sync.RWMutex
	byName  map[string]*entry
	byID    map[uint32]*entry
	nextID  uint32
	version uint32
}

type entry struct {
	info     *Info
	refcount int
}

func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]*entry),
		byID:   make(map[uint32]*entry),
		nextID: 1,
	}
}

// Register assigns info.UniqueID if name is new, or returns the existing id
// and bumps the refcount if name was already registered.
func (r *Registry) Register(info *Info) uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.byName[info.Name]; ok {
		e.refcount++
		info.UniqueID = e.info.UniqueID
		return e.info.UniqueID
	}

	id := r.nextID
	r.nextID++
	info.UniqueID = id
	e := &entry{info: info, refcount: 1}
	r.byName[info.Name] = e
	r.byID[id] = e
	r.version++
	return id
}

// Unregister decrements the refcount for info.Name; on zero, removes the
// entry entirely. Ids are never reused within a process run.
func (r *Registry) Unregister(info *Info) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.byName[info.Name]
	if !ok {
		return
	}
	e.refcount--
	if e.refcount > 0 {
		return
	}
	delete(r.byName, info.Name)
	delete(r.byID, e.info.UniqueID)
	r.version++
}

// Lookup returns the descriptor registered under id, if any.
func (r *Registry) Lookup(id uint32) (*Info, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byID[id]
	if !ok {
		return nil, false
	}
	return e.info, true
}

// LookupByName returns the descriptor registered under name, if any. Used
// to resolve a remote PutPropertyMapping frame to this process's own
// canonical *Info when the name was already registered locally (a service's
// own descriptors), falling back to a transient allocation otherwise.
func (r *Registry) LookupByName(name string) (*Info, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byName[name]
	if !ok {
		return nil, false
	}
	return e.info, true
}

// Enumerate invokes visitor for every currently registered descriptor, in
// unspecified order, and returns the registry's current snapshot version
// (bumped on every register/unregister that changed the set).
func (r *Registry) Enumerate(visitor func(*Info)) uint32 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.byID {
		visitor(e.info)
	}
	return r.version
}

// Version returns the current snapshot version without enumerating.
func (r *Registry) Version() uint32 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version
}
