package pb

import (
	"context"

	"google.golang.org/grpc"
)

// ProcessActivationBatchRequest is the input of KoopmanLearner.ProcessActivationBatch.
type ProcessActivationBatchRequest struct {
	BatchID string             `json:"batch_id"`
	Traces  []*ActivationTrace `json:"traces"`
}

// ProcessActivationBatchResponse is the output of ProcessActivationBatch.
type ProcessActivationBatchResponse struct {
	ModesExtracted int    `json:"modes_extracted"`
	TotalModes     int    `json:"total_modes"`
	Message        string `json:"message"`
}

// GetSpectralModesRequest is the input of KoopmanLearner.GetSpectralModes.
type GetSpectralModesRequest struct {
	MaxModes uint32 `json:"max_modes"`
}

// GetSpectralModesResponse is the output of KoopmanLearner.GetSpectralModes.
type GetSpectralModesResponse struct {
	Modes []*SpectralMode `json:"modes"`
}

// UpdateOscillatorCouplingsRequest carries no fields.
type UpdateOscillatorCouplingsRequest struct{}

// UpdateOscillatorCouplingsResponse is the output of UpdateOscillatorCouplings.
type UpdateOscillatorCouplingsResponse struct {
	UpdatesEmitted int `json:"updates_emitted"`
}

// KoopmanServer is implemented by the KoopmanLearner service.
type KoopmanServer interface {
	ProcessActivationBatch(context.Context, *ProcessActivationBatchRequest) (*ProcessActivationBatchResponse, error)
	GetSpectralModes(context.Context, *GetSpectralModesRequest) (*GetSpectralModesResponse, error)
	UpdateOscillatorCouplings(context.Context, *UpdateOscillatorCouplingsRequest) (*UpdateOscillatorCouplingsResponse, error)
}

// KoopmanClient is the stub used by operator tooling.
type KoopmanClient interface {
	ProcessActivationBatch(ctx context.Context, in *ProcessActivationBatchRequest, opts ...grpc.CallOption) (*ProcessActivationBatchResponse, error)
	GetSpectralModes(ctx context.Context, in *GetSpectralModesRequest, opts ...grpc.CallOption) (*GetSpectralModesResponse, error)
	UpdateOscillatorCouplings(ctx context.Context, in *UpdateOscillatorCouplingsRequest, opts ...grpc.CallOption) (*UpdateOscillatorCouplingsResponse, error)
}

type koopmanClient struct{ cc grpc.ClientConnInterface }

// NewKoopmanClient wraps a ClientConn as a KoopmanClient.
func NewKoopmanClient(cc grpc.ClientConnInterface) KoopmanClient { return &koopmanClient{cc} }

func (c *koopmanClient) ProcessActivationBatch(ctx context.Context, in *ProcessActivationBatchRequest, opts ...grpc.CallOption) (*ProcessActivationBatchResponse, error) {
	out := new(ProcessActivationBatchResponse)
	if err := c.cc.Invoke(ctx, "/tori.koopman.Koopman/ProcessActivationBatch", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *koopmanClient) GetSpectralModes(ctx context.Context, in *GetSpectralModesRequest, opts ...grpc.CallOption) (*GetSpectralModesResponse, error) {
	out := new(GetSpectralModesResponse)
	if err := c.cc.Invoke(ctx, "/tori.koopman.Koopman/GetSpectralModes", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *koopmanClient) UpdateOscillatorCouplings(ctx context.Context, in *UpdateOscillatorCouplingsRequest, opts ...grpc.CallOption) (*UpdateOscillatorCouplingsResponse, error) {
	out := new(UpdateOscillatorCouplingsResponse)
	if err := c.cc.Invoke(ctx, "/tori.koopman.Koopman/UpdateOscillatorCouplings", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func _Koopman_ProcessActivationBatch_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ProcessActivationBatchRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(KoopmanServer).ProcessActivationBatch(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/tori.koopman.Koopman/ProcessActivationBatch"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(KoopmanServer).ProcessActivationBatch(ctx, req.(*ProcessActivationBatchRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Koopman_GetSpectralModes_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GetSpectralModesRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(KoopmanServer).GetSpectralModes(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/tori.koopman.Koopman/GetSpectralModes"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(KoopmanServer).GetSpectralModes(ctx, req.(*GetSpectralModesRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Koopman_UpdateOscillatorCouplings_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(UpdateOscillatorCouplingsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(KoopmanServer).UpdateOscillatorCouplings(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/tori.koopman.Koopman/UpdateOscillatorCouplings"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(KoopmanServer).UpdateOscillatorCouplings(ctx, req.(*UpdateOscillatorCouplingsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// Koopman_ServiceDesc is registered on the KoopmanLearner process's grpc.Server.
var Koopman_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "tori.koopman.Koopman",
	HandlerType: (*KoopmanServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ProcessActivationBatch", Handler: _Koopman_ProcessActivationBatch_Handler},
		{MethodName: "GetSpectralModes", Handler: _Koopman_GetSpectralModes_Handler},
		{MethodName: "UpdateOscillatorCouplings", Handler: _Koopman_UpdateOscillatorCouplings_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "koopman.proto",
}
