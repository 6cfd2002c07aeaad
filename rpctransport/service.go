package rpctransport

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"

	"erebus-rpc/wire"
)

// ServiceName is the grpc full service name for the Erebus RPC service.
const ServiceName = "erebus.rpc.Erebus"

// Codec is the shared gob codec instance; pass it to grpc.ForceServerCodec /
// grpc.ForceCodec so every call on this service/connection uses it instead
// of the default protobuf codec.
var Codec encoding.Codec = gobCodec{}

// Handler is implemented by the server core (package rpcserver) and
// dispatched to by ServiceDesc.
type Handler interface {
	Ping(ctx context.Context, req *wire.PingRequest) (*wire.PingReply, error)
	GetPropertyMapping(req *wire.Void, stream GetPropertyMappingServerStream) error
	PutPropertyMapping(stream PutPropertyMappingServerStream) error
	GenericCall(ctx context.Context, req *wire.ServiceRequest) (*wire.ServiceReply, error)
	GenericStream(req *wire.ServiceRequest, stream GenericStreamServerStream) error
}

type GetPropertyMappingServerStream interface {
	Send(*wire.GetPropertyMappingReply) error
	Context() context.Context
}

type PutPropertyMappingServerStream interface {
	Recv() (*wire.PutPropertyMappingRequest, error)
	SendAndClose(*wire.Void) error
	Context() context.Context
}

type GenericStreamServerStream interface {
	Send(*wire.ServiceReply) error
	Context() context.Context
}

type getMappingServerStream struct{ grpc.ServerStream }

func (s *getMappingServerStream) Send(m *wire.GetPropertyMappingReply) error { return s.SendMsg(m) }

type putMappingServerStream struct{ grpc.ServerStream }

func (s *putMappingServerStream) Recv() (*wire.PutPropertyMappingRequest, error) {
	m := new(wire.PutPropertyMappingRequest)
	if err := s.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *putMappingServerStream) SendAndClose(m *wire.Void) error { return s.SendMsg(m) }

type genericStreamServerStream struct{ grpc.ServerStream }

func (s *genericStreamServerStream) Send(m *wire.ServiceReply) error { return s.SendMsg(m) }

func pingHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wire.PingRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Handler).Ping(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/Ping"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(Handler).Ping(ctx, req.(*wire.PingRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func genericCallHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wire.ServiceRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Handler).GenericCall(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/GenericCall"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(Handler).GenericCall(ctx, req.(*wire.ServiceRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func getPropertyMappingHandler(srv any, stream grpc.ServerStream) error {
	m := new(wire.Void)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(Handler).GetPropertyMapping(m, &getMappingServerStream{stream})
}

func putPropertyMappingHandler(srv any, stream grpc.ServerStream) error {
	return srv.(Handler).PutPropertyMapping(&putMappingServerStream{stream})
}

func genericStreamHandler(srv any, stream grpc.ServerStream) error {
	m := new(wire.ServiceRequest)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(Handler).GenericStream(m, &genericStreamServerStream{stream})
}

// ServiceDesc is registered on a *grpc.Server via RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*Handler)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Ping", Handler: pingHandler},
		{MethodName: "GenericCall", Handler: genericCallHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "GetPropertyMapping", Handler: getPropertyMappingHandler, ServerStreams: true},
		{StreamName: "PutPropertyMapping", Handler: putPropertyMappingHandler, ClientStreams: true},
		{StreamName: "GenericStream", Handler: genericStreamHandler, ServerStreams: true},
	},
	Metadata: "erebus_rpc.proto",
}

// RegisterService registers Handler h on server s.
func RegisterService(s *grpc.Server, h Handler) {
	s.RegisterService(&ServiceDesc, h)
}
