package pb

import (
	"context"

	"google.golang.org/grpc"
)

// StartConsolidationRequest is the input of SleepScheduler.StartConsolidation.
type StartConsolidationRequest struct {
	MaxEpisodes       uint32 `json:"max_episodes"`
	Once              bool   `json:"once"`
	WaitForCompletion bool   `json:"wait_for_completion"`
}

// StartConsolidationResponse is the output of SleepScheduler.StartConsolidation.
type StartConsolidationResponse struct {
	ConsolidationID   string  `json:"consolidation_id"`
	EnergyDelta       float64 `json:"energy_delta"`
	EpisodesProcessed uint32  `json:"episodes_processed"`
	Status            string  `json:"status"`
}

// GetConsolidationStatusRequest is the input of GetConsolidationStatus.
type GetConsolidationStatusRequest struct {
	ConsolidationID string `json:"consolidation_id"`
}

// GetConsolidationStatusResponse is the output of GetConsolidationStatus.
type GetConsolidationStatusResponse struct {
	Status      string  `json:"status"`
	EnergyDelta float64 `json:"energy_delta"`
	Progress    float64 `json:"progress"`
	Message     string  `json:"message"`
}

// UpdateConfigRequest is the input of SleepScheduler.UpdateConfig. Config
// carries dotted scalar keys matching the Recognized Configuration Options.
type UpdateConfigRequest struct {
	Config map[string]string `json:"config"`
}

// UpdateConfigResponse is the output of SleepScheduler.UpdateConfig.
type UpdateConfigResponse struct {
	OK     bool     `json:"ok"`
	Errors []string `json:"errors"`
}

// MatrixEdge is one nonzero entry of W. SleepScheduler is the sole writer:
// SparsePruner only ever sees W through GetMatrixSnapshot's versioned
// snapshot and changes it by sending edges in an ApplyEdgeDiffRequest.
type MatrixEdge struct {
	I uint64  `json:"i"`
	J uint64  `json:"j"`
	W float64 `json:"w"`
}

// GetMatrixSnapshotRequest carries no fields.
type GetMatrixSnapshotRequest struct{}

// GetMatrixSnapshotResponse is the output of SleepScheduler.GetMatrixSnapshot.
type GetMatrixSnapshotResponse struct {
	Edges   []*MatrixEdge `json:"edges"`
	Version uint64        `json:"version"`
}

// ApplyEdgeDiffRequest carries the edge-level mutations SparsePruner wants
// committed to W. SleepScheduler remains the sole writer: P never holds a
// pointer to the matrix, only this diff.
type ApplyEdgeDiffRequest struct {
	Edges        []*MatrixEdge `json:"edges"` // new value per edge; W == 0 means delete
	ExpectedBase uint64        `json:"expected_base"` // version the diff was computed against
}

// ApplyEdgeDiffResponse is the output of SleepScheduler.ApplyEdgeDiff.
type ApplyEdgeDiffResponse struct {
	Applied    bool   `json:"applied"`
	NewVersion uint64 `json:"new_version"`
	Message    string `json:"message"`
}

// SchedulerServer is implemented by the SleepScheduler service.
type SchedulerServer interface {
	StartConsolidation(context.Context, *StartConsolidationRequest) (*StartConsolidationResponse, error)
	GetConsolidationStatus(context.Context, *GetConsolidationStatusRequest) (*GetConsolidationStatusResponse, error)
	UpdateConfig(context.Context, *UpdateConfigRequest) (*UpdateConfigResponse, error)
	GetMatrixSnapshot(context.Context, *GetMatrixSnapshotRequest) (*GetMatrixSnapshotResponse, error)
	ApplyEdgeDiff(context.Context, *ApplyEdgeDiffRequest) (*ApplyEdgeDiffResponse, error)
}

// SchedulerClient is the stub used by SparsePruner and operator tooling.
type SchedulerClient interface {
	StartConsolidation(ctx context.Context, in *StartConsolidationRequest, opts ...grpc.CallOption) (*StartConsolidationResponse, error)
	GetConsolidationStatus(ctx context.Context, in *GetConsolidationStatusRequest, opts ...grpc.CallOption) (*GetConsolidationStatusResponse, error)
	UpdateConfig(ctx context.Context, in *UpdateConfigRequest, opts ...grpc.CallOption) (*UpdateConfigResponse, error)
	GetMatrixSnapshot(ctx context.Context, in *GetMatrixSnapshotRequest, opts ...grpc.CallOption) (*GetMatrixSnapshotResponse, error)
	ApplyEdgeDiff(ctx context.Context, in *ApplyEdgeDiffRequest, opts ...grpc.CallOption) (*ApplyEdgeDiffResponse, error)
}

type schedulerClient struct{ cc grpc.ClientConnInterface }

// NewSchedulerClient wraps a ClientConn as a SchedulerClient.
func NewSchedulerClient(cc grpc.ClientConnInterface) SchedulerClient { return &schedulerClient{cc} }

func (c *schedulerClient) StartConsolidation(ctx context.Context, in *StartConsolidationRequest, opts ...grpc.CallOption) (*StartConsolidationResponse, error) {
	out := new(StartConsolidationResponse)
	if err := c.cc.Invoke(ctx, "/tori.scheduler.Scheduler/StartConsolidation", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *schedulerClient) GetConsolidationStatus(ctx context.Context, in *GetConsolidationStatusRequest, opts ...grpc.CallOption) (*GetConsolidationStatusResponse, error) {
	out := new(GetConsolidationStatusResponse)
	if err := c.cc.Invoke(ctx, "/tori.scheduler.Scheduler/GetConsolidationStatus", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *schedulerClient) UpdateConfig(ctx context.Context, in *UpdateConfigRequest, opts ...grpc.CallOption) (*UpdateConfigResponse, error) {
	out := new(UpdateConfigResponse)
	if err := c.cc.Invoke(ctx, "/tori.scheduler.Scheduler/UpdateConfig", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *schedulerClient) GetMatrixSnapshot(ctx context.Context, in *GetMatrixSnapshotRequest, opts ...grpc.CallOption) (*GetMatrixSnapshotResponse, error) {
	out := new(GetMatrixSnapshotResponse)
	if err := c.cc.Invoke(ctx, "/tori.scheduler.Scheduler/GetMatrixSnapshot", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *schedulerClient) ApplyEdgeDiff(ctx context.Context, in *ApplyEdgeDiffRequest, opts ...grpc.CallOption) (*ApplyEdgeDiffResponse, error) {
	out := new(ApplyEdgeDiffResponse)
	if err := c.cc.Invoke(ctx, "/tori.scheduler.Scheduler/ApplyEdgeDiff", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func _Scheduler_StartConsolidation_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(StartConsolidationRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SchedulerServer).StartConsolidation(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/tori.scheduler.Scheduler/StartConsolidation"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(SchedulerServer).StartConsolidation(ctx, req.(*StartConsolidationRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Scheduler_GetConsolidationStatus_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GetConsolidationStatusRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SchedulerServer).GetConsolidationStatus(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/tori.scheduler.Scheduler/GetConsolidationStatus"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(SchedulerServer).GetConsolidationStatus(ctx, req.(*GetConsolidationStatusRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Scheduler_UpdateConfig_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(UpdateConfigRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SchedulerServer).UpdateConfig(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/tori.scheduler.Scheduler/UpdateConfig"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(SchedulerServer).UpdateConfig(ctx, req.(*UpdateConfigRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Scheduler_GetMatrixSnapshot_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GetMatrixSnapshotRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SchedulerServer).GetMatrixSnapshot(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/tori.scheduler.Scheduler/GetMatrixSnapshot"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(SchedulerServer).GetMatrixSnapshot(ctx, req.(*GetMatrixSnapshotRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Scheduler_ApplyEdgeDiff_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ApplyEdgeDiffRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SchedulerServer).ApplyEdgeDiff(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/tori.scheduler.Scheduler/ApplyEdgeDiff"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(SchedulerServer).ApplyEdgeDiff(ctx, req.(*ApplyEdgeDiffRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// Scheduler_ServiceDesc is registered on the SleepScheduler process's grpc.Server.
var Scheduler_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "tori.scheduler.Scheduler",
	HandlerType: (*SchedulerServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "StartConsolidation", Handler: _Scheduler_StartConsolidation_Handler},
		{MethodName: "GetConsolidationStatus", Handler: _Scheduler_GetConsolidationStatus_Handler},
		{MethodName: "UpdateConfig", Handler: _Scheduler_UpdateConfig_Handler},
		{MethodName: "GetMatrixSnapshot", Handler: _Scheduler_GetMatrixSnapshot_Handler},
		{MethodName: "ApplyEdgeDiff", Handler: _Scheduler_ApplyEdgeDiff_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "scheduler.proto",
}
