// Package rpcclient implements the client core: the four endpoint mirrors,
// completion-interface dispatch, and the ResultCode translation table.
package rpcclient

import (
	"context"
	"io"
	"time"

	"erebus-rpc/mapping"
	"erebus-rpc/property"
	"erebus-rpc/rpctransport"
	"erebus-rpc/service"
	"erebus-rpc/wire"
)

// Client is one client-side session against a single erebus-rpc server.
// It owns two mapping tables: localRegistry describes the properties this
// client may send as call arguments (pushed to the server with
// PushLocalMapping); serverMapping resolves the server's own descriptor ids
// (learned via RefreshServerMapping) into local *property.Info values used
// to decode reply bags.
type Client struct {
	stub     *rpctransport.Stub
	clientID uint32

	localRegistry *property.Registry

	serverMapping   *mapping.Mapping
	serverAllocator *property.TransientAllocator
}

func NewClient(stub *rpctransport.Stub, clientID uint32, localRegistry *property.Registry) *Client {
	return &Client{
		stub:            stub,
		clientID:        clientID,
		localRegistry:   localRegistry,
		serverMapping:   mapping.New(),
		serverAllocator: property.NewTransientAllocator(),
	}
}

// Ping sends payload and invokes completion's callbacks synchronously before
// Ping returns (grpc-go already runs the unary call on its own goroutine when
// dispatched from a stream handler, so a direct call here keeps a
// single-threaded-per-call guarantee without inventing a second dispatch
// queue).
func (c *Client) Ping(ctx context.Context, payload []byte, completion IPingCompletion) {
	start := time.Now()
	req := &wire.PingRequest{ClientID: c.clientID, Timestamp: uint64(start.UnixNano()), Payload: payload}
	reply, err := c.stub.Ping(ctx, req)
	if err != nil {
		completion.HandleTransportError(Translate(err), err.Error())
		completion.Done()
		return
	}
	completion.HandleReply(len(reply.Payload), time.Since(start).Nanoseconds())
	completion.HandleSuccess()
	completion.Done()
}

// RefreshServerMapping runs GetPropertyMapping to (re)learn the server's
// current descriptor set.
func (c *Client) RefreshServerMapping(ctx context.Context) error {
	stream, err := c.stub.GetPropertyMapping(ctx, &wire.Void{})
	if err != nil {
		return err
	}
	var version uint32
	for {
		frame, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		version = frame.MappingVersion
		info := c.serverAllocator.Allocate(property.Type(frame.Mapping.Type), frame.Mapping.Name, frame.Mapping.ReadableName)
		c.serverMapping.Put(frame.Mapping.ID, info)
	}
	c.serverMapping.SetVersion(version)
	return nil
}

// PushLocalMapping runs PutPropertyMapping, advertising the descriptors in
// infos, each frame tagged with localRegistry's current version. It does
// not enumerate localRegistry itself: only the descriptors passed in are
// sent.
func (c *Client) PushLocalMapping(ctx context.Context, infos []*property.Info) error {
	stream, err := c.stub.PutPropertyMapping(ctx)
	if err != nil {
		return err
	}
	version := c.localRegistry.Version()
	for _, info := range infos {
		if err := stream.Send(&wire.PutPropertyMappingRequest{
			ClientID:       c.clientID,
			MappingVersion: version,
			Mapping:        wire.InfoToWire(info),
		}); err != nil {
			return err
		}
	}
	_, err = stream.CloseAndRecv()
	return err
}

// Call mirrors the server's Generic unary state machine from the client's
// side: attach clientId and the local registry's version, dispatch, then
// discriminate the four outcomes.
func (c *Client) Call(ctx context.Context, requestName string, args property.Bag, completion ICallCompletion) {
	req := &wire.ServiceRequest{
		Request:        requestName,
		ClientID:       c.clientID,
		MappingVersion: c.localRegistry.Version(),
		Args:           c.encodeArgs(args),
	}
	reply, err := c.stub.GenericCall(ctx, req)
	if err != nil {
		completion.HandleTransportError(Translate(err), err.Error())
		completion.Done()
		return
	}
	c.dispatchReply(reply, completion)
	completion.HandleSuccess()
	completion.Done()
}

// Stream mirrors the server's Generic streaming state machine from the
// client's side, draining frames until end-of-stream, a terminal error
// path, or the completion requests Cancel.
func (c *Client) Stream(ctx context.Context, requestName string, args property.Bag, completion IStreamCompletion) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	req := &wire.ServiceRequest{
		Request:        requestName,
		ClientID:       c.clientID,
		MappingVersion: c.localRegistry.Version(),
		Args:           c.encodeArgs(args),
	}
	stream, err := c.stub.GenericStream(ctx, req)
	if err != nil {
		completion.HandleTransportError(Translate(err), err.Error())
		completion.Done()
		return
	}

	for {
		reply, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			completion.HandleTransportError(Translate(err), err.Error())
			completion.Done()
			return
		}

		if reply.Result == wire.PropertyMappingExpired {
			completion.HandleServerPropertyMappingExpired()
			continue
		}
		if reply.MappingVersion != c.serverMapping.Version() {
			completion.HandleClientPropertyMappingExpired()
			continue
		}
		if reply.Exception != nil {
			if decision := completion.HandleException(c.decodeException(reply.Exception)); decision == Cancel {
				cancel()
			}
			continue
		}

		bag := c.decodeReply(reply)
		if decision := completion.HandleFrame(bag); decision == Cancel {
			cancel()
		}
	}
	completion.HandleSuccess()
	completion.Done()
}

// dispatchReply discriminates one Generic unary reply into exactly one
// terminal ICallCompletion callback, checked in order: server-side mapping
// expiry, client-side mapping expiry, exception, reply. A service exception
// carries Result == wire.Success with Exception populated, so exceptions
// are detected by reply.Exception != nil rather than by result code.
func (c *Client) dispatchReply(reply *wire.ServiceReply, completion ICallCompletion) {
	if reply.Result == wire.PropertyMappingExpired {
		completion.HandleServerPropertyMappingExpired()
		return
	}
	if reply.MappingVersion != c.serverMapping.Version() {
		completion.HandleClientPropertyMappingExpired()
		return
	}
	if reply.Exception != nil {
		completion.HandleException(c.decodeException(reply.Exception))
		return
	}
	completion.HandleReply(c.decodeReply(reply))
}

func (c *Client) encodeArgs(args property.Bag) []wire.PropertyWire {
	out := make([]wire.PropertyWire, 0, len(args))
	for _, p := range args {
		id := uint32(0)
		if info := p.Info(); info != nil {
			id = info.UniqueID
		}
		out = append(out, wire.Encode(id, p))
	}
	return out
}

func (c *Client) decodeReply(reply *wire.ServiceReply) property.Bag {
	bag := make(property.Bag, 0, len(reply.Props))
	for _, w := range reply.Props {
		info, ok := c.serverMapping.Resolve(w.ID)
		if !ok {
			continue
		}
		bag = append(bag, wire.Decode(info, w))
	}
	return bag
}

func (c *Client) decodeException(e *wire.ExceptionReply) *service.ApplicationError {
	if e == nil {
		return &service.ApplicationError{Message: "Unknown exception"}
	}
	bag := make(property.Bag, 0, len(e.Props))
	for _, w := range e.Props {
		info, ok := c.serverMapping.Resolve(w.ID)
		if !ok {
			continue
		}
		bag = append(bag, wire.Decode(info, w))
	}
	return &service.ApplicationError{Message: e.Message, Properties: bag}
}
