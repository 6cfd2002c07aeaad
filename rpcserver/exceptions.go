package rpcserver

import (
	"erebus-rpc/property"
	"erebus-rpc/service"
	"erebus-rpc/wire"
)

// marshalPanic turns a recovered panic value into a wire.ExceptionReply: a
// *service.ApplicationError first (its PropertyBag is carried through
// verbatim), then well-known standard error types, then a literal fallback.
func marshalPanic(recovered any) *wire.ExceptionReply {
	switch v := recovered.(type) {
	case *service.ApplicationError:
		return &wire.ExceptionReply{
			Message: v.Message,
			Props:   encodeBag(v.Properties),
		}
	case error:
		return &wire.ExceptionReply{Message: v.Error()}
	case string:
		return &wire.ExceptionReply{Message: v}
	default:
		return &wire.ExceptionReply{Message: "Unknown exception"}
	}
}

// encodeBag wire-encodes a property.Bag using each property's already
// assigned registry id as the wire id. It is used for unary reply props,
// stream frames and exception property bags.
func encodeBag(bag property.Bag) []wire.PropertyWire {
	out := make([]wire.PropertyWire, 0, len(bag))
	for _, p := range bag {
		id := uint32(0)
		if info := p.Info(); info != nil {
			id = info.UniqueID
		}
		out = append(out, wire.Encode(id, p))
	}
	return out
}
