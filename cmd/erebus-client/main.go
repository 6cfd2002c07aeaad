// Command erebus-client is a minimal demo client: it dials an erebus-server
// process, negotiates property mappings, and issues one Ping or Generic
// call from the command line.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"erebus-rpc/property"
	"erebus-rpc/rpcclient"
	"erebus-rpc/rpctransport"
	"erebus-rpc/service"
)

func main() {
	var endpoint string
	var clientID uint32

	root := &cobra.Command{Use: "erebus-client"}
	root.PersistentFlags().StringVar(&endpoint, "endpoint", "127.0.0.1:8443", "server address")
	root.PersistentFlags().Uint32Var(&clientID, "client-id", 1, "client id to present to the server")

	root.AddCommand(pingCmd(&endpoint, &clientID))
	root.AddCommand(echoCmd(&endpoint, &clientID))

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func dial(endpoint string) (*grpc.ClientConn, error) {
	return grpc.NewClient(endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(rpctransport.Codec)),
	)
}

func pingCmd(endpoint *string, clientID *uint32) *cobra.Command {
	var payloadSize int
	cmd := &cobra.Command{
		Use:   "ping",
		Short: "ping the server and report round-trip time",
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := dial(*endpoint)
			if err != nil {
				return err
			}
			defer cc.Close()

			client := rpcclient.NewClient(rpctransport.NewStub(cc), *clientID, property.NewRegistry())
			done := make(chan struct{})
			client.Ping(context.Background(), make([]byte, payloadSize), &printingPingCompletion{done: done})
			<-done
			return nil
		},
	}
	cmd.Flags().IntVar(&payloadSize, "payload-size", 0, "ping payload size in bytes")
	return cmd
}

func echoCmd(endpoint *string, clientID *uint32) *cobra.Command {
	var message string
	cmd := &cobra.Command{
		Use:   "echo",
		Short: "call the echo service with a single string argument",
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := dial(*endpoint)
			if err != nil {
				return err
			}
			defer cc.Close()

			registry := property.NewRegistry()
			info := property.New(property.String, "erebus-client.echo.message", "message")
			registry.Register(info)

			client := rpcclient.NewClient(rpctransport.NewStub(cc), *clientID, registry)
			ctx := context.Background()
			if err := client.PushLocalMapping(ctx, []*property.Info{info}); err != nil {
				return fmt.Errorf("push mapping: %w", err)
			}
			if err := client.RefreshServerMapping(ctx); err != nil {
				return fmt.Errorf("refresh mapping: %w", err)
			}

			args := property.Bag{property.NewString(info, message)}
			done := make(chan struct{})
			client.Call(ctx, "echo", args, &printingCallCompletion{done: done})
			<-done
			return nil
		},
	}
	cmd.Flags().StringVar(&message, "message", "hello", "message to echo")
	return cmd
}

type printingPingCompletion struct {
	done chan struct{}
}

func (p *printingPingCompletion) HandleSuccess() { fmt.Println("ping: success") }
func (p *printingPingCompletion) HandleTransportError(code rpcclient.ResultCode, msg string) {
	fmt.Printf("ping: transport error %v: %s\n", code, msg)
}
func (p *printingPingCompletion) HandleReply(payloadSize int, rtt int64) {
	fmt.Printf("ping: reply payloadSize=%d rtt=%s\n", payloadSize, time.Duration(rtt))
}
func (p *printingPingCompletion) Done() { close(p.done) }

type printingCallCompletion struct {
	done chan struct{}
}

func (c *printingCallCompletion) HandleSuccess() {}
func (c *printingCallCompletion) HandleTransportError(code rpcclient.ResultCode, msg string) {
	fmt.Printf("echo: transport error %v: %s\n", code, msg)
}
func (c *printingCallCompletion) HandleReply(bag property.Bag) {
	for _, p := range bag {
		fmt.Printf("echo: reply prop %s\n", p.Str())
	}
}
func (c *printingCallCompletion) HandleException(e *service.ApplicationError) {
	fmt.Printf("echo: exception %s\n", e.Message)
}
func (c *printingCallCompletion) HandleServerPropertyMappingExpired() {
	fmt.Println("echo: server reports our mapping expired, re-run after pushing mapping")
}
func (c *printingCallCompletion) HandleClientPropertyMappingExpired() {
	fmt.Println("echo: server mapping moved, refresh with GetPropertyMapping")
}
func (c *printingCallCompletion) Done() { close(c.done) }
