// Package property implements the tagged-union value type shared by every
// call argument and reply in the RPC runtime: Property, its descriptor
// PropertyInfo, the ordered PropertyBag and the hash-keyed PropertyMap.
package property

import "fmt"

// Type is the closed enum of payload kinds a Property can carry. The
// numeric values are part of the wire contract: codecs index dispatch
// tables by them, so they must never be renumbered.
type Type uint32

const (
	Empty Type = iota
	Bool
	Int32
	UInt32
	Int64
	UInt64
	Double
	String
	Binary
	Map

	// Reserved homogeneous-vector variants. No constructor builds these
	// payloads yet; the ordinals are reserved so a future vector payload
	// never collides with a scalar one on the wire.
	VectorBool
	VectorInt32
	VectorUInt32
	VectorInt64
	VectorUInt64
	VectorDouble
	VectorString
)

func (t Type) String() string {
	switch t {
	case Empty:
		return "Empty"
	case Bool:
		return "Bool"
	case Int32:
		return "Int32"
	case UInt32:
		return "UInt32"
	case Int64:
		return "Int64"
	case UInt64:
		return "UInt64"
	case Double:
		return "Double"
	case String:
		return "String"
	case Binary:
		return "Binary"
	case Map:
		return "Map"
	default:
		return fmt.Sprintf("Type(%d)", uint32(t))
	}
}
