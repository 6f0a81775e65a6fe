package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	formatterv1 "prettify/api/formatter/v1"
	"prettify/internal/logging"
	"prettify/internal/transform"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Server hosts one formatting engine behind the Formatter gRPC service.
type Server struct {
	grpc   *grpc.Server
	lis    net.Listener
	health *health.Server
}

func StartServer(port int, engine transform.Engine) (*Server, error) {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, err
	}
	return NewServer(lis, engine), nil
}

// NewServer registers the formatter and health services on lis. Serve must
// be called to start accepting.
func NewServer(lis net.Listener, engine transform.Engine, opts ...grpc.ServerOption) *Server {
	opts = append(opts, grpc.ChainUnaryInterceptor(logUnary))
	s := &Server{
		grpc:   grpc.NewServer(opts...),
		lis:    lis,
		health: health.NewServer(),
	}
	formatterv1.RegisterFormatterServer(s.grpc, formatter{engine: engine})
	healthpb.RegisterHealthServer(s.grpc, s.health)
	s.health.SetServingStatus(formatterv1.ServiceName, healthpb.HealthCheckResponse_SERVING)
	return s
}

func (s *Server) Addr() net.Addr { return s.lis.Addr() }

func (s *Server) Serve() error {
	return s.grpc.Serve(s.lis)
}

func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}

type formatter struct {
	engine transform.Engine
}

func (f formatter) Format(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	out, err := f.engine.Transform(ctx, in.GetValue())
	if err != nil {
		return nil, toStatus(err)
	}
	return wrapperspb.String(out), nil
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, transform.ErrUnavailable):
		return status.Error(codes.Unavailable, err.Error())
	default:
		return status.Error(codes.InvalidArgument, err.Error())
	}
}

func logUnary(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	logging.L().Debug("grpc call", "method", info.FullMethod, "took", time.Since(start), "code", status.Code(err).String())
	return resp, err
}
