package notary

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// NotaryServer is the server API for the Notary gRPC service.
//
// Messages are protobuf Structs so the package needs no protoc step. A
// deposit Struct carries sender, identifier, hash, encrypted_key (base64),
// signature and expires_at (RFC 3339, empty for none).
type NotaryServer interface {
	Deposit(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	Fetch(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Revoke(context.Context, *structpb.Struct) (*emptypb.Empty, error)
}

// UnimplementedNotaryServer can be embedded to have forward compatible implementations.
type UnimplementedNotaryServer struct{}

func (UnimplementedNotaryServer) Deposit(context.Context, *structpb.Struct) (*emptypb.Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method Deposit not implemented")
}
func (UnimplementedNotaryServer) Fetch(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method Fetch not implemented")
}
func (UnimplementedNotaryServer) Revoke(context.Context, *structpb.Struct) (*emptypb.Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method Revoke not implemented")
}

func RegisterNotaryServer(s grpc.ServiceRegistrar, srv NotaryServer) {
	s.RegisterService(&Notary_ServiceDesc, srv)
}

// NotaryClient is the client API for the Notary gRPC service.
type NotaryClient interface {
	Deposit(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error)
	Fetch(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Revoke(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error)
}

type notaryClient struct{ cc grpc.ClientConnInterface }

func NewNotaryClient(cc grpc.ClientConnInterface) NotaryClient { return &notaryClient{cc: cc} }

func (c *notaryClient) Deposit(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, "/graphwire.notary.v1.Notary/Deposit", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *notaryClient) Fetch(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/graphwire.notary.v1.Notary/Fetch", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *notaryClient) Revoke(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, "/graphwire.notary.v1.Notary/Revoke", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func _Notary_Deposit_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(NotaryServer).Deposit(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/graphwire.notary.v1.Notary/Deposit"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(NotaryServer).Deposit(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func _Notary_Fetch_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(NotaryServer).Fetch(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/graphwire.notary.v1.Notary/Fetch"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(NotaryServer).Fetch(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func _Notary_Revoke_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(NotaryServer).Revoke(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/graphwire.notary.v1.Notary/Revoke"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(NotaryServer).Revoke(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// Notary_ServiceDesc is the grpc.ServiceDesc for the Notary service.
var Notary_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "graphwire.notary.v1.Notary",
	HandlerType: (*NotaryServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Deposit", Handler: _Notary_Deposit_Handler},
		{MethodName: "Fetch", Handler: _Notary_Fetch_Handler},
		{MethodName: "Revoke", Handler: _Notary_Revoke_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "notary.proto",
}
