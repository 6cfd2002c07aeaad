package property

// Info is a property descriptor: the stable identity of a property kind.
// Within one process, name -> *Info is stable for the descriptor's
// lifetime, and UniqueID -> *Info is stable once the registry assigns it.
//
// Static descriptors are constructed once at package-init time and
// registered; transient descriptors are allocated by TransientAllocator for
// remote descriptors received over the wire during PutPropertyMapping.
type Info struct {
	Type         Type
	Name         string // dotted UTF-8 identifier, globally unique per process
	ReadableName string
	UniqueID     uint32 // assigned by Registry on first registration; 0 until then
}

// New constructs a descriptor that has not yet been registered (UniqueID is
// zero until Registry.Register assigns one).
func New(typ Type, name, readableName string) *Info {
	return &Info{Type: typ, Name: name, ReadableName: readableName}
}

// TransientAllocator hands out *Info values for descriptors learned from a
// peer (PutPropertyMapping), keyed by (name, type) so repeated sightings of
// the same remote descriptor resolve to the same *Info pointer.
type TransientAllocator struct {
	byKey map[transientKey]*Info
}

type transientKey struct {
	name string
	typ  Type
}

func NewTransientAllocator() *TransientAllocator {
	return &TransientAllocator{byKey: make(map[transientKey]*Info)}
}

// Allocate returns the existing *Info for (name, type) if one was already
// handed out by this allocator, or creates and remembers a fresh one. The
// remote-assigned id is not stored on the transient descriptor itself: it is
// the caller's PropertyMapping that indexes by remote id.
func (a *TransientAllocator) Allocate(typ Type, name, readableName string) *Info {
	key := transientKey{name: name, typ: typ}
	if info, ok := a.byKey[key]; ok {
		return info
	}
	info := &Info{Type: typ, Name: name, ReadableName: readableName}
	a.byKey[key] = info
	return info
}
