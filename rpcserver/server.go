// Package rpcserver implements the server side of erebus-rpc: the four
// endpoint handlers, wired onto google.golang.org/grpc through package
// rpctransport.
package rpcserver

import (
	"context"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"erebus-rpc/property"
	"erebus-rpc/rpctransport"
	"erebus-rpc/service"
	"erebus-rpc/session"
	"erebus-rpc/wire"
)

// Server implements rpctransport.Handler.
type Server struct {
	registry  *property.Registry
	services  *service.Registry
	sessions  *session.Store[uint32, *ClientSession]
	transient *property.TransientAllocator

	log     *logrus.Logger
	metrics *metrics
}

// Option configures a Server at construction time.
type Option func(*Server)

func WithLogger(log *logrus.Logger) Option {
	return func(s *Server) { s.log = log }
}

// WithSessionInactivityThreshold sets SessionStore's eviction threshold.
// Default is five minutes.
func WithSessionInactivityThreshold(d time.Duration) Option {
	return func(s *Server) {
		s.sessions = session.New[uint32, *ClientSession](d, newClientSession)
	}
}

func NewServer(registry *property.Registry, services *service.Registry, opts ...Option) *Server {
	s := &Server{
		registry:  registry,
		services:  services,
		sessions:  session.New[uint32, *ClientSession](5*time.Minute, newClientSession),
		transient: property.NewTransientAllocator(),
		log:       logrus.StandardLogger(),
		metrics:   newMetrics(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// clientSession fetches (creating if necessary) the per-client state,
// falling back to an unleased Peek when the lease is momentarily contended:
// the lease only protects against eviction, it never serializes calls for
// the same client.
func (s *Server) clientSession(clientID uint32) *ClientSession {
	if ref, ok := s.sessions.Get(clientID); ok {
		cs := *ref.Value()
		ref.Release()
		s.metrics.sessionsGauge.Set(float64(s.sessions.Len()))
		return cs
	}
	if cs, ok := s.sessions.Peek(clientID); ok {
		return cs
	}
	// Lost a race between the contended Get and the Peek (the entry was
	// evicted in between) — one more Get always succeeds since it creates
	// on miss.
	ref, _ := s.sessions.Get(clientID)
	cs := *ref.Value()
	ref.Release()
	return cs
}

// Ping echoes the client's request verbatim. No mapping negotiation is
// required.
func (s *Server) Ping(ctx context.Context, req *wire.PingRequest) (*wire.PingReply, error) {
	s.log.WithFields(logrus.Fields{"clientId": req.ClientID, "payloadBytes": len(req.Payload)}).Debug("ping")
	return &wire.PingReply{ClientID: req.ClientID, Timestamp: req.Timestamp, Payload: req.Payload}, nil
}

// GetPropertyMapping streams the registry's current descriptor set to the
// client: Begin -> WriteFrame* -> Finish.
func (s *Server) GetPropertyMapping(_ *wire.Void, stream rpctransport.GetPropertyMappingServerStream) error {
	var infos []*property.Info
	version := s.registry.Enumerate(func(info *property.Info) {
		infos = append(infos, info)
	})
	for _, info := range infos {
		select {
		case <-stream.Context().Done():
			return stream.Context().Err()
		default:
		}
		if err := stream.Send(&wire.GetPropertyMappingReply{
			MappingVersion: version,
			Mapping:        wire.InfoToWire(info),
		}); err != nil {
			return err
		}
	}
	return nil
}

// PutPropertyMapping reads the client's full descriptor table and applies
// each frame under the session lease for clientId: Read* -> Finish. An
// empty stream is a no-op.
func (s *Server) PutPropertyMapping(stream rpctransport.PutPropertyMappingServerStream) error {
	var cs *ClientSession
	for {
		frame, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if cs == nil {
			if ref, ok := s.sessions.Get(frame.ClientID); ok {
				defer ref.Release()
				cs = *ref.Value()
			} else {
				// Contended: another call holds the lease, so the entry
				// cannot be evicted while the frames are applied.
				cs = s.clientSession(frame.ClientID)
			}
		}
		info, ok := s.registry.LookupByName(frame.Mapping.Name)
		if !ok {
			info = s.transient.Allocate(property.Type(frame.Mapping.Type), frame.Mapping.Name, frame.Mapping.ReadableName)
		}
		cs.RemoteToLocal.Put(frame.Mapping.ID, info)
		cs.RemoteToLocal.SetVersion(frame.MappingVersion)
	}
	return stream.SendAndClose(&wire.Void{})
}

// GenericCall implements the unary dispatch state machine: resolve the
// service and session, translate args through the client's mapping, invoke,
// and discriminate success/exception/mapping-expired outcomes.
func (s *Server) GenericCall(ctx context.Context, req *wire.ServiceRequest) (*wire.ServiceReply, error) {
	start := time.Now()
	result := "success"
	defer func() {
		s.metrics.callsTotal.WithLabelValues(req.Request, result).Inc()
		s.metrics.callLatencySeconds.WithLabelValues(req.Request).Observe(time.Since(start).Seconds())
	}()

	svc, ok := s.services.Find(req.Request)
	if !ok {
		result = "unimplemented"
		return nil, status.Errorf(codes.Unimplemented, "erebus-rpc: no service registered for %q", req.Request)
	}

	cs := s.clientSession(req.ClientID)

	if cs.RemoteToLocal.IsWildcard() || cs.RemoteToLocal.Version() != req.MappingVersion {
		result = "mapping_expired"
		s.metrics.mappingExpirations.WithLabelValues("server").Inc()
		return &wire.ServiceReply{Result: wire.PropertyMappingExpired, MappingVersion: s.registry.Version()}, nil
	}

	args, ok := s.translateArgs(cs, req.Args)
	if !ok {
		result = "mapping_expired"
		s.metrics.mappingExpirations.WithLabelValues("server").Inc()
		return &wire.ServiceReply{Result: wire.PropertyMappingExpired, MappingVersion: s.registry.Version()}, nil
	}

	reply := s.invokeUnary(svc, req, args, &result)
	reply.MappingVersion = s.registry.Version()
	return reply, nil
}

// invokeUnary calls svc.Request inside a recover() scope so a service
// panic becomes an ExceptionReply instead of crossing the transport
// boundary as a transport failure.
func (s *Server) invokeUnary(svc service.Service, req *wire.ServiceRequest, args property.Bag, result *string) (reply *wire.ServiceReply) {
	defer func() {
		if r := recover(); r != nil {
			*result = "exception"
			s.log.WithFields(logrus.Fields{"request": req.Request, "clientId": req.ClientID}).Warn("service panicked, marshalling exception")
			reply = &wire.ServiceReply{Result: wire.Success, Exception: marshalPanic(r)}
		}
	}()
	out := svc.Request(req.Request, req.ClientID, args)
	return &wire.ServiceReply{Result: wire.Success, Props: encodeBag(out)}
}

// GenericStream implements the streaming dispatch state machine: mapping
// check, BeginStream, then Next* until end-of-stream, cancellation, an
// exception, or a transport write failure.
func (s *Server) GenericStream(req *wire.ServiceRequest, stream rpctransport.GenericStreamServerStream) error {
	svc, ok := s.services.Find(req.Request)
	if !ok {
		return status.Errorf(codes.Unimplemented, "erebus-rpc: no service registered for %q", req.Request)
	}

	cs := s.clientSession(req.ClientID)

	if cs.RemoteToLocal.IsWildcard() || cs.RemoteToLocal.Version() != req.MappingVersion {
		s.metrics.mappingExpirations.WithLabelValues("server").Inc()
		return stream.Send(&wire.ServiceReply{Result: wire.PropertyMappingExpired, MappingVersion: s.registry.Version()})
	}

	args, ok := s.translateArgs(cs, req.Args)
	if !ok {
		s.metrics.mappingExpirations.WithLabelValues("server").Inc()
		return stream.Send(&wire.ServiceReply{Result: wire.PropertyMappingExpired, MappingVersion: s.registry.Version()})
	}

	s.metrics.activeStreams.Inc()
	defer s.metrics.activeStreams.Dec()

	streamID, beginErr := s.beginStream(svc, req, args)
	if beginErr != nil {
		return stream.Send(&wire.ServiceReply{Result: wire.Failure, MappingVersion: s.registry.Version(), Exception: beginErr})
	}
	defer svc.EndStream(streamID)

	for {
		select {
		case <-stream.Context().Done():
			return nil // (d) cancellation: abort the loop, EndStream already deferred
		default:
		}

		frame, nextErr := s.next(svc, streamID)
		if nextErr != nil {
			return stream.Send(&wire.ServiceReply{Result: wire.Failure, MappingVersion: s.registry.Version(), Exception: nextErr})
		}
		if len(frame) == 0 {
			return nil // end-of-stream
		}
		if err := stream.Send(&wire.ServiceReply{Result: wire.Success, MappingVersion: s.registry.Version(), Props: encodeBag(frame)}); err != nil {
			return err // (c) transport write failure
		}
	}
}

func (s *Server) beginStream(svc service.Service, req *wire.ServiceRequest, args property.Bag) (id service.StreamID, exc *wire.ExceptionReply) {
	defer func() {
		if r := recover(); r != nil {
			exc = marshalPanic(r)
		}
	}()
	id = svc.BeginStream(req.Request, req.ClientID, args)
	return id, nil
}

func (s *Server) next(svc service.Service, id service.StreamID) (frame property.Bag, exc *wire.ExceptionReply) {
	defer func() {
		if r := recover(); r != nil {
			exc = marshalPanic(r)
		}
	}()
	frame = svc.Next(id)
	return frame, nil
}

// translateArgs resolves each wire property's remote id through the
// client's mapping table. A missing id is the same PROPERTY_MAPPING_EXPIRED
// condition as an unnegotiated version.
func (s *Server) translateArgs(cs *ClientSession, wireArgs []wire.PropertyWire) (property.Bag, bool) {
	bag := make(property.Bag, 0, len(wireArgs))
	for _, w := range wireArgs {
		info, ok := cs.RemoteToLocal.Resolve(w.ID)
		if !ok {
			return nil, false
		}
		bag = append(bag, wire.Decode(info, w))
	}
	return bag, true
}
