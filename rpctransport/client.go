package rpctransport

import (
	"context"

	"google.golang.org/grpc"

	"erebus-rpc/wire"
)

// Stub is the client-side stub for the Erebus grpc service, shaped the way
// protoc-gen-go-grpc generates one.
type Stub struct {
	cc grpc.ClientConnInterface
}

func NewStub(cc grpc.ClientConnInterface) *Stub { return &Stub{cc: cc} }

func (s *Stub) Ping(ctx context.Context, in *wire.PingRequest, opts ...grpc.CallOption) (*wire.PingReply, error) {
	out := new(wire.PingReply)
	if err := s.cc.Invoke(ctx, "/"+ServiceName+"/Ping", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Stub) GenericCall(ctx context.Context, in *wire.ServiceRequest, opts ...grpc.CallOption) (*wire.ServiceReply, error) {
	out := new(wire.ServiceReply)
	if err := s.cc.Invoke(ctx, "/"+ServiceName+"/GenericCall", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

var getPropertyMappingStreamDesc = grpc.StreamDesc{StreamName: "GetPropertyMapping", ServerStreams: true}

type GetPropertyMappingClientStream interface {
	Recv() (*wire.GetPropertyMappingReply, error)
	grpc.ClientStream
}

type getPropertyMappingClientStream struct{ grpc.ClientStream }

func (x *getPropertyMappingClientStream) Recv() (*wire.GetPropertyMappingReply, error) {
	m := new(wire.GetPropertyMappingReply)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Stub) GetPropertyMapping(ctx context.Context, in *wire.Void, opts ...grpc.CallOption) (GetPropertyMappingClientStream, error) {
	stream, err := s.cc.NewStream(ctx, &getPropertyMappingStreamDesc, "/"+ServiceName+"/GetPropertyMapping", opts...)
	if err != nil {
		return nil, err
	}
	x := &getPropertyMappingClientStream{stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

var putPropertyMappingStreamDesc = grpc.StreamDesc{StreamName: "PutPropertyMapping", ClientStreams: true}

type PutPropertyMappingClientStream interface {
	Send(*wire.PutPropertyMappingRequest) error
	CloseAndRecv() (*wire.Void, error)
	grpc.ClientStream
}

type putPropertyMappingClientStream struct{ grpc.ClientStream }

func (x *putPropertyMappingClientStream) Send(m *wire.PutPropertyMappingRequest) error {
	return x.ClientStream.SendMsg(m)
}

func (x *putPropertyMappingClientStream) CloseAndRecv() (*wire.Void, error) {
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	m := new(wire.Void)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Stub) PutPropertyMapping(ctx context.Context, opts ...grpc.CallOption) (PutPropertyMappingClientStream, error) {
	stream, err := s.cc.NewStream(ctx, &putPropertyMappingStreamDesc, "/"+ServiceName+"/PutPropertyMapping", opts...)
	if err != nil {
		return nil, err
	}
	return &putPropertyMappingClientStream{stream}, nil
}

var genericStreamStreamDesc = grpc.StreamDesc{StreamName: "GenericStream", ServerStreams: true}

type GenericStreamClientStream interface {
	Recv() (*wire.ServiceReply, error)
	grpc.ClientStream
}

type genericStreamClientStream struct{ grpc.ClientStream }

func (x *genericStreamClientStream) Recv() (*wire.ServiceReply, error) {
	m := new(wire.ServiceReply)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Stub) GenericStream(ctx context.Context, in *wire.ServiceRequest, opts ...grpc.CallOption) (GenericStreamClientStream, error) {
	stream, err := s.cc.NewStream(ctx, &genericStreamStreamDesc, "/"+ServiceName+"/GenericStream", opts...)
	if err != nil {
		return nil, err
	}
	x := &genericStreamClientStream{stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}
