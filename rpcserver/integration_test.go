package rpcserver_test

import (
	"context"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"erebus-rpc/examples/echoservice"
	"erebus-rpc/property"
	"erebus-rpc/rpcclient"
	"erebus-rpc/rpcserver"
	"erebus-rpc/rpctransport"
	"erebus-rpc/service"
)

// testHarness wires a real grpc server (rpcserver.Server over a loopback
// TCP listener) and gives out clients dialed against it, mirroring
// original_source/src/ipc/grpc/tests/common.hpp's fixture shape.
type testHarness struct {
	lis     net.Listener
	grpcSrv *grpc.Server
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	registry := property.NewRegistry()
	property.RegisterUnspecified(registry)
	echoservice.RegisterInto(registry)

	services := service.NewRegistry()
	echo := echoservice.New()
	for _, name := range []string{"echo", "throws", "simple_stream"} {
		if err := services.Register(name, echo); err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}

	srv := rpcserver.NewServer(registry, services, rpcserver.WithSessionInactivityThreshold(time.Minute))
	grpcSrv := grpc.NewServer(grpc.ForceServerCodec(rpctransport.Codec))
	rpctransport.RegisterService(grpcSrv, srv)

	go grpcSrv.Serve(lis)

	h := &testHarness{lis: lis, grpcSrv: grpcSrv}
	t.Cleanup(h.stop)
	return h
}

func (h *testHarness) stop() {
	h.grpcSrv.Stop()
	h.lis.Close()
}

// dial returns a fresh client, modelling a separate process: its local
// registry and descriptors are independent *property.Info instances from
// the server's, matching only by Name (see DESIGN.md, Open Question
// decision 6).
func (h *testHarness) dial(t *testing.T, clientID uint32) (*rpcclient.Client, func()) {
	t.Helper()
	cc, err := grpc.NewClient(h.lis.Addr().String(),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(rpctransport.Codec)),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	client := rpcclient.NewClient(rpctransport.NewStub(cc), clientID, property.NewRegistry())
	return client, func() { cc.Close() }
}

// dialOrErr is dial's non-fatal twin, safe to call from a spawned goroutine
// (t.Fatalf must only ever run on the goroutine executing the Test
// function itself).
func (h *testHarness) dialOrErr(clientID uint32) (*rpcclient.Client, func(), error) {
	cc, err := grpc.NewClient(h.lis.Addr().String(),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(rpctransport.Codec)),
	)
	if err != nil {
		return nil, nil, err
	}
	client := rpcclient.NewClient(rpctransport.NewStub(cc), clientID, property.NewRegistry())
	return client, func() { cc.Close() }, nil
}

// clientUnspecified builds one client process's own copy of the
// Er.Unspecified.* descriptor family: same names/types as the server's
// property.Unspecified singletons, distinct pointers.
func clientUnspecified(registry *property.Registry) map[property.Type]*property.Info {
	m := map[property.Type]*property.Info{
		property.UInt64: property.New(property.UInt64, "Er.Unspecified.UInt64", "UInt64"),
		property.String: property.New(property.String, "Er.Unspecified.String", "String"),
		property.Int32:  property.New(property.Int32, "Er.Unspecified.Int32", "Int32"),
	}
	for _, info := range m {
		registry.Register(info)
	}
	return m
}

// clientStreamDescriptors mirrors the two echoservice descriptors a
// simple_stream caller sends (reply frame count and throw-in-frame) from
// the client's side, by name only (see clientUnspecified).
func clientStreamDescriptors(registry *property.Registry) (replyFrameCount, throwInFrame *property.Info) {
	replyFrameCount = property.New(property.Int32, "Er.Test.Grpc.reply_frame_count", "Reply frame count")
	throwInFrame = property.New(property.Int32, "Er.Test.Grpc.throw_in_frame", "Throw in frame #")
	registry.Register(replyFrameCount)
	registry.Register(throwInFrame)
	return
}

// --- scenario 1: Ping ---------------------------------------------------

type collectingPingCompletion struct {
	payload int
	err     bool
	done    chan struct{}
}

func newCollectingPingCompletion() *collectingPingCompletion {
	return &collectingPingCompletion{done: make(chan struct{})}
}
func (c *collectingPingCompletion) HandleSuccess()                                    {}
func (c *collectingPingCompletion) HandleTransportError(rpcclient.ResultCode, string) { c.err = true }
func (c *collectingPingCompletion) HandleReply(payloadSize int, rtt int64)            { c.payload = payloadSize }
func (c *collectingPingCompletion) Done()                                             { close(c.done) }

func TestPing(t *testing.T) {
	h := newTestHarness(t)
	client, closeClient := h.dial(t, 1)
	defer closeClient()

	for i := 0; i < 10; i++ {
		completion := newCollectingPingCompletion()
		client.Ping(context.Background(), nil, completion)
		<-completion.done
		if completion.err || completion.payload != 0 {
			t.Fatalf("zero-payload ping %d: err=%v payload=%d", i, completion.err, completion.payload)
		}
	}

	for size := 1; size <= 10; size++ {
		payload := make([]byte, size*1024)
		completion := newCollectingPingCompletion()
		client.Ping(context.Background(), payload, completion)
		<-completion.done
		if completion.err || completion.payload != len(payload) {
			t.Fatalf("growing ping size %dKiB: err=%v payload=%d", size, completion.err, completion.payload)
		}
	}
}

// --- scenario 2: echo + mapping negotiation progression ------------------

type collectingCallCompletion struct {
	bag                  property.Bag
	exception            *service.ApplicationError
	serverMappingExpired bool
	clientMappingExpired bool
	transportErr         bool
	done                 chan struct{}
}

func newCollectingCallCompletion() *collectingCallCompletion {
	return &collectingCallCompletion{done: make(chan struct{})}
}
func (c *collectingCallCompletion) HandleSuccess() {}
func (c *collectingCallCompletion) HandleTransportError(rpcclient.ResultCode, string) {
	c.transportErr = true
}
func (c *collectingCallCompletion) HandleReply(bag property.Bag)          { c.bag = bag }
func (c *collectingCallCompletion) HandleException(e *service.ApplicationError) {
	c.exception = e
}
func (c *collectingCallCompletion) HandleServerPropertyMappingExpired() { c.serverMappingExpired = true }
func (c *collectingCallCompletion) HandleClientPropertyMappingExpired() { c.clientMappingExpired = true }
func (c *collectingCallCompletion) Done()                               { close(c.done) }

func TestEchoMappingProgression(t *testing.T) {
	h := newTestHarness(t)
	client, closeClient := h.dial(t, 2)
	defer closeClient()

	localRegistry := property.NewRegistry()
	unspecified := clientUnspecified(localRegistry)
	msg := unspecified[property.String]
	args := property.Bag{property.NewString(msg, "hello")}

	// (a) before any PutPropertyMapping: server has no session mapping yet,
	// so the first call is wildcard-version and mismatches immediately.
	c1 := newCollectingCallCompletion()
	client.Call(context.Background(), "echo", args, c1)
	<-c1.done
	if !c1.serverMappingExpired {
		t.Fatalf("expected server mapping expired before PutPropertyMapping, got bag=%v exc=%v", c1.bag, c1.exception)
	}

	// (b) after PushLocalMapping: the server now recognizes our descriptor
	// ids and the echo call succeeds server-side, but the client has not
	// yet learned the server's own reply ids (no RefreshServerMapping yet),
	// so the reply's mapping version does not match the client's still
	// wildcard view: HandleClientPropertyMappingExpired fires instead of
	// HandleReply.
	if err := client.PushLocalMapping(context.Background(), []*property.Info{msg}); err != nil {
		t.Fatalf("push local mapping: %v", err)
	}
	c2 := newCollectingCallCompletion()
	client.Call(context.Background(), "echo", args, c2)
	<-c2.done
	if c2.serverMappingExpired || c2.exception != nil {
		t.Fatalf("expected success after PutPropertyMapping, got expired=%v exc=%v", c2.serverMappingExpired, c2.exception)
	}
	if !c2.clientMappingExpired {
		t.Fatalf("expected HandleClientPropertyMappingExpired before RefreshServerMapping")
	}
	if len(c2.bag) != 0 {
		t.Fatalf("expected no decodable reply props before RefreshServerMapping, got %v", c2.bag)
	}

	// (c) after GetPropertyMapping: client learns the server's descriptor
	// table and subsequent replies decode without HandleClientPropertyMappingExpired.
	if err := client.RefreshServerMapping(context.Background()); err != nil {
		t.Fatalf("refresh server mapping: %v", err)
	}
	c3 := newCollectingCallCompletion()
	client.Call(context.Background(), "echo", args, c3)
	<-c3.done
	if c3.serverMappingExpired || c3.exception != nil || len(c3.bag) != 1 {
		t.Fatalf("unexpected result after refresh: expired=%v exc=%v bag=%v", c3.serverMappingExpired, c3.exception, c3.bag)
	}
	if c3.clientMappingExpired {
		t.Fatalf("expected no client mapping expiry once the server mapping was refreshed")
	}
	if v, _ := c3.bag[0].GetString(); v != "hello" {
		t.Fatalf("expected echoed value %q, got %q", "hello", v)
	}
}

// --- scenario 3: throwing service -----------------------------------------

func TestThrowsService(t *testing.T) {
	h := newTestHarness(t)
	client, closeClient := h.dial(t, 3)
	defer closeClient()

	localRegistry := property.NewRegistry()
	unspecified := clientUnspecified(localRegistry)
	tag := unspecified[property.Int32]
	if err := client.PushLocalMapping(context.Background(), []*property.Info{tag}); err != nil {
		t.Fatalf("push local mapping: %v", err)
	}
	if err := client.RefreshServerMapping(context.Background()); err != nil {
		t.Fatalf("refresh server mapping: %v", err)
	}

	args := property.Bag{property.NewInt32(tag, 42)}
	c := newCollectingCallCompletion()
	client.Call(context.Background(), "throws", args, c)
	<-c.done

	if c.exception == nil {
		t.Fatalf("expected an ApplicationError")
	}
	if c.exception.Message != "This is my exception" {
		t.Fatalf("unexpected exception message: %q", c.exception.Message)
	}
	if len(c.exception.Properties) != 1 {
		t.Fatalf("expected the exception to echo args, got %v", c.exception.Properties)
	}
}

// --- scenario 4: unknown service name -------------------------------------

func TestUnknownService(t *testing.T) {
	h := newTestHarness(t)
	client, closeClient := h.dial(t, 4)
	defer closeClient()

	c := newCollectingCallCompletion()
	client.Call(context.Background(), "bark", property.Bag{}, c)
	<-c.done
	if !c.transportErr {
		t.Fatalf("expected a transport error for an unregistered request name")
	}
}

// --- scenarios 5-8: simple_stream ------------------------------------------

type collectingStreamCompletion struct {
	frames        []property.Bag
	exception     *service.ApplicationError
	cancelAt      int
	transportCode rpcclient.ResultCode
	transportErr  bool
	done          chan struct{}
}

func newCollectingStreamCompletion(cancelAt int) *collectingStreamCompletion {
	return &collectingStreamCompletion{done: make(chan struct{}), cancelAt: cancelAt}
}
func (c *collectingStreamCompletion) HandleSuccess() {}
func (c *collectingStreamCompletion) HandleTransportError(code rpcclient.ResultCode, _ string) {
	c.transportErr = true
	c.transportCode = code
}
func (c *collectingStreamCompletion) HandleFrame(bag property.Bag) rpcclient.FrameDecision {
	c.frames = append(c.frames, bag)
	if c.cancelAt > 0 && len(c.frames) == c.cancelAt {
		return rpcclient.Cancel
	}
	return rpcclient.Continue
}
func (c *collectingStreamCompletion) HandleException(e *service.ApplicationError) rpcclient.FrameDecision {
	c.exception = e
	return rpcclient.Continue
}
func (c *collectingStreamCompletion) HandleServerPropertyMappingExpired() {}
func (c *collectingStreamCompletion) HandleClientPropertyMappingExpired() {}
func (c *collectingStreamCompletion) Done()                               { close(c.done) }

// negotiatedStream bundles a negotiated client with the two descriptors
// simple_stream callers need to build args.
type negotiatedStream struct {
	client          *rpcclient.Client
	replyFrameCount *property.Info
	throwInFrame    *property.Info
}

func negotiatedStreamClient(t *testing.T, h *testHarness, clientID uint32) (*negotiatedStream, func()) {
	t.Helper()
	ns, closeClient, err := negotiatedStreamClientOrErr(h, clientID)
	if err != nil {
		t.Fatalf("negotiate stream client: %v", err)
	}
	return ns, closeClient
}

// negotiatedStreamClientOrErr is the non-fatal form used from spawned
// goroutines (t.Fatalf must only ever run on the test function's own
// goroutine).
func negotiatedStreamClientOrErr(h *testHarness, clientID uint32) (*negotiatedStream, func(), error) {
	client, closeClient, err := h.dialOrErr(clientID)
	if err != nil {
		return nil, nil, err
	}
	localRegistry := property.NewRegistry()
	replyFrameCount, throwInFrame := clientStreamDescriptors(localRegistry)
	if err := client.PushLocalMapping(context.Background(), []*property.Info{replyFrameCount, throwInFrame}); err != nil {
		closeClient()
		return nil, nil, err
	}
	if err := client.RefreshServerMapping(context.Background()); err != nil {
		closeClient()
		return nil, nil, err
	}
	return &negotiatedStream{client: client, replyFrameCount: replyFrameCount, throwInFrame: throwInFrame}, closeClient, nil
}

func TestSimpleStreamTenFrames(t *testing.T) {
	h := newTestHarness(t)
	ns, closeClient := negotiatedStreamClient(t, h, 5)
	defer closeClient()

	args := property.Bag{
		property.NewInt32(ns.replyFrameCount, 10),
		property.NewInt32(ns.throwInFrame, echoservice.ThrowNever),
	}
	c := newCollectingStreamCompletion(0)
	ns.client.Stream(context.Background(), "simple_stream", args, c)
	<-c.done

	if c.exception != nil {
		t.Fatalf("unexpected exception: %v", c.exception)
	}
	if len(c.frames) != 10 {
		t.Fatalf("expected 10 frames, got %d", len(c.frames))
	}
}

func TestSimpleStreamCancelAtFrameTwo(t *testing.T) {
	h := newTestHarness(t)
	ns, closeClient := negotiatedStreamClient(t, h, 6)
	defer closeClient()

	args := property.Bag{
		property.NewInt32(ns.replyFrameCount, 10),
		property.NewInt32(ns.throwInFrame, echoservice.ThrowNever),
	}
	// Cancel once frames 0, 1 and 2 have been received (cancelAt=3), matching
	// the fixture's receivedFrames == cancelAt+1 convention.
	c := newCollectingStreamCompletion(3)
	ns.client.Stream(context.Background(), "simple_stream", args, c)
	<-c.done

	if len(c.frames) != 3 {
		t.Fatalf("expected exactly 3 frames before cancellation, got %d", len(c.frames))
	}
	if !c.transportErr || c.transportCode != rpcclient.Canceled {
		t.Fatalf("expected a Canceled transport error after cancellation, got transportErr=%v code=%v", c.transportErr, c.transportCode)
	}
}

func TestSimpleStreamThrowInFrame(t *testing.T) {
	h := newTestHarness(t)
	ns, closeClient := negotiatedStreamClient(t, h, 7)
	defer closeClient()

	args := property.Bag{
		property.NewInt32(ns.replyFrameCount, 10),
		property.NewInt32(ns.throwInFrame, 2),
	}
	c := newCollectingStreamCompletion(0)
	ns.client.Stream(context.Background(), "simple_stream", args, c)
	<-c.done

	if len(c.frames) != 2 {
		t.Fatalf("expected 2 good frames before the throw, got %d", len(c.frames))
	}
	if c.exception == nil || c.exception.Message != "No way you can continue a stream" {
		t.Fatalf("expected the next() exception, got %v", c.exception)
	}
}

func TestSimpleStreamThrowInBeginStream(t *testing.T) {
	h := newTestHarness(t)
	ns, closeClient := negotiatedStreamClient(t, h, 8)
	defer closeClient()

	args := property.Bag{
		property.NewInt32(ns.replyFrameCount, 10),
		property.NewInt32(ns.throwInFrame, echoservice.ThrowInBeginStream),
	}
	c := newCollectingStreamCompletion(0)
	ns.client.Stream(context.Background(), "simple_stream", args, c)
	<-c.done

	if len(c.frames) != 0 {
		t.Fatalf("expected no frames, got %d", len(c.frames))
	}
	if c.exception == nil || c.exception.Message != "No way you can start a stream" {
		t.Fatalf("expected the beginStream exception, got %v", c.exception)
	}
}

// --- scenarios 9-10: concurrent clients ------------------------------------

func TestConcurrentUnaryClients(t *testing.T) {
	h := newTestHarness(t)

	var wg sync.WaitGroup
	errs := make(chan error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(clientID uint32) {
			defer wg.Done()
			client, closeClient, err := h.dialOrErr(clientID)
			if err != nil {
				errs <- err
				return
			}
			defer closeClient()

			localRegistry := property.NewRegistry()
			unspecified := clientUnspecified(localRegistry)
			msg := unspecified[property.String]
			if err := client.PushLocalMapping(context.Background(), []*property.Info{msg}); err != nil {
				errs <- err
				return
			}
			if err := client.RefreshServerMapping(context.Background()); err != nil {
				errs <- err
				return
			}

			for i := 0; i < 10; i++ {
				args := property.Bag{property.NewString(msg, fmt.Sprintf("hello-%d-%d", clientID, i))}
				c := newCollectingCallCompletion()
				client.Call(context.Background(), "echo", args, c)
				<-c.done
				if c.exception != nil || len(c.bag) != 1 {
					errs <- fmt.Errorf("client %d call %d: exc=%v bag=%v", clientID, i, c.exception, c.bag)
					return
				}
			}
		}(uint32(100 + i))
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestConcurrentStreamClients(t *testing.T) {
	h := newTestHarness(t)

	var wg sync.WaitGroup
	errs := make(chan error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(clientID uint32) {
			defer wg.Done()
			ns, closeClient, err := negotiatedStreamClientOrErr(h, clientID)
			if err != nil {
				errs <- err
				return
			}
			defer closeClient()

			args := property.Bag{
				property.NewInt32(ns.replyFrameCount, 1000),
				property.NewInt32(ns.throwInFrame, echoservice.ThrowNever),
			}
			c := newCollectingStreamCompletion(0)
			ns.client.Stream(context.Background(), "simple_stream", args, c)
			<-c.done

			if c.exception != nil || len(c.frames) != 1000 {
				errs <- fmt.Errorf("client %d: exc=%v frames=%d", clientID, c.exception, len(c.frames))
			}
		}(uint32(200 + i))
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}
