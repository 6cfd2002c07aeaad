// Command erebus-server is the minimal bootstrap for an erebus-rpc server
// process: load configuration, register the built-in echo/test service, and
// serve the Erebus grpc service until interrupted.
package main

import (
	"fmt"
	"net"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"erebus-rpc/examples/echoservice"
	"erebus-rpc/property"
	"erebus-rpc/rpcconfig"
	"erebus-rpc/rpcserver"
	"erebus-rpc/rpctransport"
	"erebus-rpc/service"
)

func main() {
	var configPath string
	var debugAddr string

	root := &cobra.Command{
		Use:   "erebus-server",
		Short: "serve the Erebus RPC runtime",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath, debugAddr)
		},
	}
	root.Flags().StringVar(&configPath, "config", "", "path to a YAML/JSON config file")
	root.Flags().StringVar(&debugAddr, "debug-addr", "127.0.0.1:9090", "address for the /metrics debug mux")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(configPath, debugAddr string) error {
	cfg, err := rpcconfig.Load(configPath)
	if err != nil {
		return fmt.Errorf("erebus-server: %w", err)
	}

	log := logrus.StandardLogger()
	lvl, err := logrus.ParseLevel(cfg.Logging.Level)
	if err == nil {
		log.SetLevel(lvl)
	}

	registry := property.NewRegistry()
	property.RegisterUnspecified(registry)
	echoservice.RegisterInto(registry)

	services := service.NewRegistry()
	echo := echoservice.New()
	if err := services.Register("echo", echo); err != nil {
		return err
	}
	if err := services.Register("throws", echo); err != nil {
		return err
	}
	if err := services.Register("simple_stream", echo); err != nil {
		return err
	}

	srv := rpcserver.NewServer(registry, services, rpcserver.WithLogger(log))

	lis, err := net.Listen("tcp", cfg.Endpoint)
	if err != nil {
		return fmt.Errorf("erebus-server: listen: %w", err)
	}

	grpcServer := grpc.NewServer(grpc.ForceServerCodec(rpctransport.Codec))
	rpctransport.RegisterService(grpcServer, srv)

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(srv.Registry(), promhttp.HandlerOpts{}))
		log.WithField("addr", debugAddr).Info("serving debug metrics")
		if err := http.ListenAndServe(debugAddr, mux); err != nil {
			log.WithError(err).Warn("debug mux stopped")
		}
	}()

	log.WithField("endpoint", cfg.Endpoint).Info("erebus-server listening")
	return grpcServer.Serve(lis)
}
