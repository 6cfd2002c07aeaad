// Package wire defines the logical wire messages as plain Go structs, plus
// the codec that lets google.golang.org/grpc carry them without a protoc
// step (see rpctransport for the registered codec and DESIGN.md for why a
// generated-protobuf path was not used).
package wire

// PingRequest/PingReply carry a payload and a client-supplied timestamp so
// the completion can report round-trip time.
type PingRequest struct {
	ClientID  uint32
	Timestamp uint64
	Payload   []byte
}

type PingReply struct {
	ClientID  uint32
	Timestamp uint64
	Payload   []byte
}

// PropertyInfoWire is the wire form of a property.Info descriptor.
type PropertyInfoWire struct {
	ID           uint32
	Type         uint32
	Name         string
	ReadableName string
}

// GetPropertyMappingReply is one frame of the server->client descriptor
// stream.
type GetPropertyMappingReply struct {
	MappingVersion uint32
	Mapping        PropertyInfoWire
}

// Void carries no data; used as PutPropertyMapping's terminal reply.
type Void struct{}

// PutPropertyMappingRequest is one frame of the client->server descriptor
// stream.
type PutPropertyMappingRequest struct {
	ClientID       uint32
	MappingVersion uint32
	Mapping        PropertyInfoWire
}

// PropertyWireKind discriminates which field of PropertyWire is populated.
// It mirrors property.Type's wire-stable ordinals (Empty=0, Bool=1, Int32=2,
// UInt32=3, Int64=4, UInt64=5, Double=6, String=7, Binary=8).
type PropertyWireKind = uint32

// PropertyWire is the wire form of a property.Property: an id plus exactly
// one populated payload field, selected by Kind.
type PropertyWire struct {
	ID      uint32
	Kind    PropertyWireKind
	VBool   bool
	VInt32  int32
	VUInt32 uint32
	VInt64  int64
	VUInt64 uint64
	VDouble float64
	VString string
	VBinary []byte
}

// ExceptionReply is a marshalled application exception.
type ExceptionReply struct {
	Message string
	Props   []PropertyWire
}

// CallResult is the closed result-code enum of a ServiceReply.
type CallResult uint32

const (
	Success CallResult = iota
	Failure
	PropertyMappingExpired
)

// ServiceRequest carries one Generic call's arguments.
type ServiceRequest struct {
	Request        string
	ClientID       uint32
	MappingVersion uint32
	Args           []PropertyWire
	Cookie         string // opaque; carried through unmodified, no defined meaning
}

// ServiceReply carries one Generic call's (or stream frame's) result.
type ServiceReply struct {
	Result         CallResult
	MappingVersion uint32
	Props          []PropertyWire
	Exception      *ExceptionReply
}
