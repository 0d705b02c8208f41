package keyservice

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// KeyServer is the server API for the Key gRPC service. Upload and Revoke
// read credentials from the request metadata.
type KeyServer interface {
	Fetch(context.Context, *wrapperspb.StringValue) (*wrapperspb.StringValue, error)
	// Upload takes a Struct with identifier and public_key.
	Upload(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	Revoke(context.Context, *wrapperspb.StringValue) (*emptypb.Empty, error)
}

// UnimplementedKeyServer can be embedded to have forward compatible implementations.
type UnimplementedKeyServer struct{}

func (UnimplementedKeyServer) Fetch(context.Context, *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Fetch not implemented")
}
func (UnimplementedKeyServer) Upload(context.Context, *structpb.Struct) (*emptypb.Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method Upload not implemented")
}
func (UnimplementedKeyServer) Revoke(context.Context, *wrapperspb.StringValue) (*emptypb.Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method Revoke not implemented")
}

func RegisterKeyServer(s grpc.ServiceRegistrar, srv KeyServer) {
	s.RegisterService(&Key_ServiceDesc, srv)
}

// KeyClient is the client API for the Key gRPC service.
type KeyClient interface {
	Fetch(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.StringValue, error)
	Upload(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error)
	Revoke(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*emptypb.Empty, error)
}

type keyClient struct{ cc grpc.ClientConnInterface }

func NewKeyClient(cc grpc.ClientConnInterface) KeyClient { return &keyClient{cc: cc} }

func (c *keyClient) Fetch(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, "/graphwire.keyservice.v1.Key/Fetch", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *keyClient) Upload(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, "/graphwire.keyservice.v1.Key/Upload", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *keyClient) Revoke(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, "/graphwire.keyservice.v1.Key/Revoke", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func _Key_Fetch_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(KeyServer).Fetch(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/graphwire.keyservice.v1.Key/Fetch"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(KeyServer).Fetch(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func _Key_Upload_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(KeyServer).Upload(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/graphwire.keyservice.v1.Key/Upload"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(KeyServer).Upload(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func _Key_Revoke_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(KeyServer).Revoke(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/graphwire.keyservice.v1.Key/Revoke"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(KeyServer).Revoke(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

// Key_ServiceDesc is the grpc.ServiceDesc for the Key service.
var Key_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "graphwire.keyservice.v1.Key",
	HandlerType: (*KeyServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Fetch", Handler: _Key_Fetch_Handler},
		{MethodName: "Upload", Handler: _Key_Upload_Handler},
		{MethodName: "Revoke", Handler: _Key_Revoke_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "keyservice.proto",
}
