package pb

import (
	"context"

	"google.golang.org/grpc"
)

// HealthRequest carries no fields; present so the wire method has a typed
// request even when empty.
type HealthRequest struct{}

// HealthServer is implemented by internal/healthsrv's Server, which each of
// the four services registers on its gRPC server.
type HealthServer interface {
	HealthCheck(context.Context, *HealthRequest) (*HealthStatus, error)
}

// HealthClient is the stub used by the supervisor and toriadm.
type HealthClient interface {
	HealthCheck(ctx context.Context, in *HealthRequest, opts ...grpc.CallOption) (*HealthStatus, error)
}

type healthClient struct{ cc grpc.ClientConnInterface }

// NewHealthClient wraps a ClientConn as a HealthClient.
func NewHealthClient(cc grpc.ClientConnInterface) HealthClient { return &healthClient{cc} }

func (c *healthClient) HealthCheck(ctx context.Context, in *HealthRequest, opts ...grpc.CallOption) (*HealthStatus, error) {
	out := new(HealthStatus)
	if err := c.cc.Invoke(ctx, "/tori.common.Health/HealthCheck", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func _Health_HealthCheck_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(HealthRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(HealthServer).HealthCheck(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/tori.common.Health/HealthCheck"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(HealthServer).HealthCheck(ctx, req.(*HealthRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// Health_ServiceDesc is registered by every one of the four services.
var Health_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "tori.common.Health",
	HandlerType: (*HealthServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "HealthCheck", Handler: _Health_HealthCheck_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "health.proto",
}
