// Package formatterv1 is the gRPC contract between the pipeline and an
// out-of-process formatting worker.
//
// Messages are protobuf well-known StringValue wrappers, so the service needs
// no generated message code. Failures travel as gRPC status codes:
// InvalidArgument for input the engine rejects, Unavailable when the worker
// cannot serve.
package formatterv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	ServiceName  = "prettify.formatter.v1.Formatter"
	FormatMethod = "/" + ServiceName + "/Format"
)

type FormatterServer interface {
	Format(context.Context, *wrapperspb.StringValue) (*wrapperspb.StringValue, error)
}

type FormatterClient interface {
	Format(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.StringValue, error)
}

type formatterClient struct {
	cc grpc.ClientConnInterface
}

func NewFormatterClient(cc grpc.ClientConnInterface) FormatterClient {
	return &formatterClient{cc}
}

func (c *formatterClient) Format(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, FormatMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func RegisterFormatterServer(s grpc.ServiceRegistrar, srv FormatterServer) {
	s.RegisterService(&Formatter_ServiceDesc, srv)
}

func formatHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FormatterServer).Format(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FormatMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(FormatterServer).Format(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

var Formatter_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*FormatterServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Format", Handler: formatHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "prettify/formatter/v1/formatter.proto",
}
