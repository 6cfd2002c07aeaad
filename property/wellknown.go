package property

// Unspecified mirrors the source's `Er::Unspecified` namespace: one
// ready-made descriptor per scalar PropertyType, for callers that need a
// Property of a given type without any domain-specific meaning (test
// fixtures, generic passthrough args). These are process-wide static
// descriptors, not transient ones — they are never allocated by a
// TransientAllocator. They carry no wire id until RegisterUnspecified adds
// them to a Registry.
var Unspecified = struct {
	Bool   *Info
	Int32  *Info
	UInt32 *Info
	Int64  *Info
	UInt64 *Info
	Double *Info
	String *Info
	Binary *Info
}{
	Bool:   New(Bool, "Er.Unspecified.Bool", "Bool"),
	Int32:  New(Int32, "Er.Unspecified.Int32", "Int32"),
	UInt32: New(UInt32, "Er.Unspecified.UInt32", "UInt32"),
	Int64:  New(Int64, "Er.Unspecified.Int64", "Int64"),
	UInt64: New(UInt64, "Er.Unspecified.UInt64", "UInt64"),
	Double: New(Double, "Er.Unspecified.Double", "Double"),
	String: New(String, "Er.Unspecified.String", "String"),
	Binary: New(Binary, "Er.Unspecified.Binary", "Binary"),
}

// RegisterUnspecified registers every Unspecified descriptor into r. Call
// once per process registry that must echo Unspecified-typed properties
// back to a peer with a stable wire id (see Registry.LookupByName).
func RegisterUnspecified(r *Registry) {
	for _, info := range []*Info{
		Unspecified.Bool, Unspecified.Int32, Unspecified.UInt32, Unspecified.Int64,
		Unspecified.UInt64, Unspecified.Double, Unspecified.String, Unspecified.Binary,
	} {
		r.Register(info)
	}
}
