// Command prettify-worker serves the XML formatter over gRPC for daemons
// configured with engine type "grpc".
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"google.golang.org/grpc"

	"prettify/internal/logging"
	"prettify/internal/transport"
	"prettify/internal/xmlfmt"
)

func main() {
	port := flag.Int("port", 50051, "port to listen on")
	flag.Parse()
	logging.InitFromEnv()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := serve(ctx, *port)
	stop()
	if err != nil {
		logging.L().Error("worker: exiting", "err", err)
		os.Exit(1)
	}
}

// serve runs the formatter until ctx is done. It fails fast when the port
// cannot be bound.
func serve(ctx context.Context, port int) error {
	srv, err := transport.StartServer(port, xmlfmt.Engine{})
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		srv.Stop()
	}()

	logging.L().Info("worker: formatter listening", "addr", srv.Addr().String())
	if err := srv.Serve(); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

//go build -o prettify-worker ./cmd/prettify-worker
//./prettify-worker -port=50051
