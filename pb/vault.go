package pb

import (
	"context"

	"google.golang.org/grpc"
)

// PutEpisodeRequest is the input of EpisodicVault.PutEpisode.
type PutEpisodeRequest struct {
	Blob []byte            `json:"blob"`
	Meta map[string]string `json:"meta"`
}

// PutEpisodeResponse is the output of EpisodicVault.PutEpisode.
type PutEpisodeResponse struct {
	ID       string `json:"id"`
	Accepted bool   `json:"accepted"`
	Message  string `json:"message"`
}

// GetEpisodeRequest is the input of EpisodicVault.GetEpisode.
type GetEpisodeRequest struct {
	ID string `json:"id"`
}

// GetEpisodeResponse is the output of EpisodicVault.GetEpisode.
type GetEpisodeResponse struct {
	Episode *Episode `json:"episode"`
	Found   bool     `json:"found"`
}

// ListRecentRequest is the input of EpisodicVault.ListRecent.
type ListRecentRequest struct {
	Limit  uint32 `json:"limit"`
	Cursor string `json:"cursor"`
}

// ListRecentResponse is the output of EpisodicVault.ListRecent.
type ListRecentResponse struct {
	Episodes   []*Episode `json:"episodes"`
	NextCursor string     `json:"next_cursor"`
	Total      uint64     `json:"total"`
}

// VaultServer is implemented by the EpisodicVault service.
type VaultServer interface {
	PutEpisode(context.Context, *PutEpisodeRequest) (*PutEpisodeResponse, error)
	GetEpisode(context.Context, *GetEpisodeRequest) (*GetEpisodeResponse, error)
	ListRecent(context.Context, *ListRecentRequest) (*ListRecentResponse, error)
}

// VaultClient is the stub used by SleepScheduler and operator tooling.
type VaultClient interface {
	PutEpisode(ctx context.Context, in *PutEpisodeRequest, opts ...grpc.CallOption) (*PutEpisodeResponse, error)
	GetEpisode(ctx context.Context, in *GetEpisodeRequest, opts ...grpc.CallOption) (*GetEpisodeResponse, error)
	ListRecent(ctx context.Context, in *ListRecentRequest, opts ...grpc.CallOption) (*ListRecentResponse, error)
}

type vaultClient struct{ cc grpc.ClientConnInterface }

// NewVaultClient wraps a ClientConn as a VaultClient.
func NewVaultClient(cc grpc.ClientConnInterface) VaultClient { return &vaultClient{cc} }

func (c *vaultClient) PutEpisode(ctx context.Context, in *PutEpisodeRequest, opts ...grpc.CallOption) (*PutEpisodeResponse, error) {
	out := new(PutEpisodeResponse)
	if err := c.cc.Invoke(ctx, "/tori.vault.Vault/PutEpisode", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *vaultClient) GetEpisode(ctx context.Context, in *GetEpisodeRequest, opts ...grpc.CallOption) (*GetEpisodeResponse, error) {
	out := new(GetEpisodeResponse)
	if err := c.cc.Invoke(ctx, "/tori.vault.Vault/GetEpisode", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *vaultClient) ListRecent(ctx context.Context, in *ListRecentRequest, opts ...grpc.CallOption) (*ListRecentResponse, error) {
	out := new(ListRecentResponse)
	if err := c.cc.Invoke(ctx, "/tori.vault.Vault/ListRecent", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func _Vault_PutEpisode_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(PutEpisodeRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(VaultServer).PutEpisode(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/tori.vault.Vault/PutEpisode"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(VaultServer).PutEpisode(ctx, req.(*PutEpisodeRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Vault_GetEpisode_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GetEpisodeRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(VaultServer).GetEpisode(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/tori.vault.Vault/GetEpisode"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(VaultServer).GetEpisode(ctx, req.(*GetEpisodeRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Vault_ListRecent_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ListRecentRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(VaultServer).ListRecent(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/tori.vault.Vault/ListRecent"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(VaultServer).ListRecent(ctx, req.(*ListRecentRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// Vault_ServiceDesc is registered on the EpisodicVault process's grpc.Server.
var Vault_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "tori.vault.Vault",
	HandlerType: (*VaultServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "PutEpisode", Handler: _Vault_PutEpisode_Handler},
		{MethodName: "GetEpisode", Handler: _Vault_GetEpisode_Handler},
		{MethodName: "ListRecent", Handler: _Vault_ListRecent_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "vault.proto",
}
