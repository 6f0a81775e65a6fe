package transform

import (
	"context"
	"errors"
	"fmt"

	formatterv1 "prettify/api/formatter/v1"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ErrUnavailable marks failures of the worker itself rather than of the
// input. Only these are worth retrying.
var ErrUnavailable = errors.New("transform: engine unavailable")

// Engine is the opaque formatting capability.
type Engine interface {
	Transform(ctx context.Context, text string) (string, error)
}

// Client wraps an Engine reachable in-process or over gRPC.
type Client interface {
	Engine
	Health(ctx context.Context) error
	Close() error
}

// GRPCClient calls a worker process over gRPC.
type GRPCClient struct {
	conn   *grpc.ClientConn
	svc    formatterv1.FormatterClient
	health healthpb.HealthClient
}

func NewGRPCClient(target string, opts ...grpc.DialOption) (*GRPCClient, error) {
	if len(opts) == 0 {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, err
	}
	return &GRPCClient{
		conn:   conn,
		svc:    formatterv1.NewFormatterClient(conn),
		health: healthpb.NewHealthClient(conn),
	}, nil
}

func (c *GRPCClient) Transform(ctx context.Context, text string) (string, error) {
	out, err := c.svc.Format(ctx, wrapperspb.String(text))
	if err != nil {
		return "", fromStatus(err)
	}
	return out.GetValue(), nil
}

func (c *GRPCClient) Health(ctx context.Context) error {
	resp, err := c.health.Check(ctx, &healthpb.HealthCheckRequest{Service: formatterv1.ServiceName})
	if err != nil {
		return fromStatus(err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("%w: worker reports %s", ErrUnavailable, resp.GetStatus())
	}
	return nil
}

func (c *GRPCClient) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func fromStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.InvalidArgument:
		return errors.New(st.Message())
	case codes.Unavailable, codes.ResourceExhausted, codes.Aborted:
		return fmt.Errorf("%w: %s", ErrUnavailable, st.Message())
	case codes.DeadlineExceeded:
		return fmt.Errorf("%w: %w", context.DeadlineExceeded, err)
	case codes.Canceled:
		return fmt.Errorf("%w: %w", context.Canceled, err)
	default:
		return err
	}
}

// InProcessClient adapts an engine compiled into the binary.
type InProcessClient struct {
	impl Engine
}

func NewInProcessClient(impl Engine) *InProcessClient { return &InProcessClient{impl: impl} }

func (c *InProcessClient) Transform(ctx context.Context, text string) (string, error) {
	return c.impl.Transform(ctx, text)
}

func (c *InProcessClient) Health(context.Context) error { return nil }
func (c *InProcessClient) Close() error                 { return nil }

// Func lets a plain function act as an Engine.
type Func func(ctx context.Context, text string) (string, error)

func (f Func) Transform(ctx context.Context, text string) (string, error) { return f(ctx, text) }
