package pb

import (
	"context"

	"google.golang.org/grpc"
)

// TriggerPruningRequest is the input of SparsePruner.TriggerPruning.
type TriggerPruningRequest struct {
	Threshold      float64 `json:"threshold"`
	TargetSparsity float64 `json:"target_sparsity"`
	DryRun         bool    `json:"dry_run"`
	CreateBackup   bool    `json:"create_backup"`
}

// TriggerPruningResponse is the output of SparsePruner.TriggerPruning.
type TriggerPruningResponse struct {
	PruningID     string  `json:"pruning_id"`
	EdgesPruned   uint64  `json:"edges_pruned"`
	QualityImpact float64 `json:"quality_impact"`
	Message       string  `json:"message"`
}

// PreviewPruningRequest is the input of SparsePruner.PreviewPruning.
type PreviewPruningRequest struct {
	Threshold      float64 `json:"threshold"`
	TargetSparsity float64 `json:"target_sparsity"`
}

// PreviewPruningResponse is the output of SparsePruner.PreviewPruning.
type PreviewPruningResponse struct {
	TotalEdges             uint64  `json:"total_edges"`
	PrunableEdges          uint64  `json:"prunable_edges"`
	PrunablePercentage     float64 `json:"prunable_percentage"`
	EstimatedQualityImpact float64 `json:"estimated_quality_impact"`
}

// GetPruningStatusRequest is the input of SparsePruner.GetPruningStatus.
type GetPruningStatusRequest struct {
	PruningID string `json:"pruning_id"`
}

// GetPruningStatusResponse is the output of SparsePruner.GetPruningStatus.
type GetPruningStatusResponse struct {
	Status   string  `json:"status"`
	Progress float64 `json:"progress"`
	Message  string  `json:"message"`
}

// RevertRequest is the input of SparsePruner.Revert.
type RevertRequest struct {
	PruningID string `json:"pruning_id"`
}

// RevertResponse is the output of SparsePruner.Revert.
type RevertResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// PrunerServer is implemented by the SparsePruner service.
type PrunerServer interface {
	TriggerPruning(context.Context, *TriggerPruningRequest) (*TriggerPruningResponse, error)
	PreviewPruning(context.Context, *PreviewPruningRequest) (*PreviewPruningResponse, error)
	GetPruningStatus(context.Context, *GetPruningStatusRequest) (*GetPruningStatusResponse, error)
	Revert(context.Context, *RevertRequest) (*RevertResponse, error)
}

// PrunerClient is the stub used by operator tooling.
type PrunerClient interface {
	TriggerPruning(ctx context.Context, in *TriggerPruningRequest, opts ...grpc.CallOption) (*TriggerPruningResponse, error)
	PreviewPruning(ctx context.Context, in *PreviewPruningRequest, opts ...grpc.CallOption) (*PreviewPruningResponse, error)
	GetPruningStatus(ctx context.Context, in *GetPruningStatusRequest, opts ...grpc.CallOption) (*GetPruningStatusResponse, error)
	Revert(ctx context.Context, in *RevertRequest, opts ...grpc.CallOption) (*RevertResponse, error)
}

type prunerClient struct{ cc grpc.ClientConnInterface }

// NewPrunerClient wraps a ClientConn as a PrunerClient.
func NewPrunerClient(cc grpc.ClientConnInterface) PrunerClient { return &prunerClient{cc} }

func (c *prunerClient) TriggerPruning(ctx context.Context, in *TriggerPruningRequest, opts ...grpc.CallOption) (*TriggerPruningResponse, error) {
	out := new(TriggerPruningResponse)
	if err := c.cc.Invoke(ctx, "/tori.pruner.Pruner/TriggerPruning", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *prunerClient) PreviewPruning(ctx context.Context, in *PreviewPruningRequest, opts ...grpc.CallOption) (*PreviewPruningResponse, error) {
	out := new(PreviewPruningResponse)
	if err := c.cc.Invoke(ctx, "/tori.pruner.Pruner/PreviewPruning", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *prunerClient) GetPruningStatus(ctx context.Context, in *GetPruningStatusRequest, opts ...grpc.CallOption) (*GetPruningStatusResponse, error) {
	out := new(GetPruningStatusResponse)
	if err := c.cc.Invoke(ctx, "/tori.pruner.Pruner/GetPruningStatus", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *prunerClient) Revert(ctx context.Context, in *RevertRequest, opts ...grpc.CallOption) (*RevertResponse, error) {
	out := new(RevertResponse)
	if err := c.cc.Invoke(ctx, "/tori.pruner.Pruner/Revert", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func _Pruner_TriggerPruning_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(TriggerPruningRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PrunerServer).TriggerPruning(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/tori.pruner.Pruner/TriggerPruning"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(PrunerServer).TriggerPruning(ctx, req.(*TriggerPruningRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Pruner_PreviewPruning_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(PreviewPruningRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PrunerServer).PreviewPruning(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/tori.pruner.Pruner/PreviewPruning"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(PrunerServer).PreviewPruning(ctx, req.(*PreviewPruningRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Pruner_GetPruningStatus_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GetPruningStatusRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PrunerServer).GetPruningStatus(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/tori.pruner.Pruner/GetPruningStatus"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(PrunerServer).GetPruningStatus(ctx, req.(*GetPruningStatusRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Pruner_Revert_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(RevertRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PrunerServer).Revert(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/tori.pruner.Pruner/Revert"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(PrunerServer).Revert(ctx, req.(*RevertRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// Pruner_ServiceDesc is registered on the SparsePruner process's grpc.Server.
var Pruner_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "tori.pruner.Pruner",
	HandlerType: (*PrunerServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "TriggerPruning", Handler: _Pruner_TriggerPruning_Handler},
		{MethodName: "PreviewPruning", Handler: _Pruner_PreviewPruning_Handler},
		{MethodName: "GetPruningStatus", Handler: _Pruner_GetPruningStatus_Handler},
		{MethodName: "Revert", Handler: _Pruner_Revert_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "pruner.proto",
}
