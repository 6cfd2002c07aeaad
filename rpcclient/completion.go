package rpcclient

import (
	"erebus-rpc/property"
	"erebus-rpc/service"
)

// FrameDecision is a stream completion's response to one frame or exception:
// whether the client wants the stream to continue or to request
// cancellation (spec.md §4.7).
type FrameDecision int

const (
	Continue FrameDecision = iota
	Cancel
)

// ICompletion is the base completion contract: every call eventually
// reaches exactly one terminal outcome (handleSuccess or
// handleTransportError), followed by done().
type ICompletion interface {
	HandleSuccess()
	HandleTransportError(code ResultCode, msg string)
	Done()
}

// IPingCompletion is the completion contract for Client.Ping.
type IPingCompletion interface {
	ICompletion
	HandleReply(payloadSize int, rtt int64)
}

// ICallCompletion is the completion contract for Client.Call.
type ICallCompletion interface {
	ICompletion
	HandleReply(bag property.Bag)
	HandleException(e *service.ApplicationError)
	HandleServerPropertyMappingExpired()
	HandleClientPropertyMappingExpired()
}

// IStreamCompletion is the completion contract for Client.Stream: like
// ICallCompletion, but frame and exception delivery return a FrameDecision
// so the consumer can request cancellation mid-stream.
type IStreamCompletion interface {
	ICompletion
	HandleFrame(bag property.Bag) FrameDecision
	HandleException(e *service.ApplicationError) FrameDecision
	HandleServerPropertyMappingExpired()
	HandleClientPropertyMappingExpired()
}
