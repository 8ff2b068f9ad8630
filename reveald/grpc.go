package reveald

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// RevealServer is the server API for the Reveal gRPC service.
//
// We intentionally use protobuf well-known wrapper types so this package does
// not require a protoc/codegen toolchain. The request carries the canonical
// authorization statement bytes; the response carries the custody key sealed
// to the statement's ephemeral key.
//
// Proto definition: reveal.proto.
type RevealServer interface {
	Reveal(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
}

// UnimplementedRevealServer can be embedded to have forward compatible implementations.
type UnimplementedRevealServer struct{}

func (UnimplementedRevealServer) Reveal(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Reveal not implemented")
}

// RegisterRevealServer registers the Reveal service on a gRPC server.
func RegisterRevealServer(s grpc.ServiceRegistrar, srv RevealServer) {
	s.RegisterService(&Reveal_ServiceDesc, srv)
}

// RevealClient is the client API for the Reveal gRPC service.
type RevealClient interface {
	Reveal(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
}

type revealClient struct{ cc grpc.ClientConnInterface }

func NewRevealClient(cc grpc.ClientConnInterface) RevealClient { return &revealClient{cc: cc} }

func (c *revealClient) Reveal(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	err := c.cc.Invoke(ctx, "/xdao.keygate.reveald.v1.Reveal/Reveal", in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func _Reveal_Reveal_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RevealServer).Reveal(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/xdao.keygate.reveald.v1.Reveal/Reveal"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(RevealServer).Reveal(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

// Reveal_ServiceDesc is the grpc.ServiceDesc for the Reveal service.
var Reveal_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "xdao.keygate.reveald.v1.Reveal",
	HandlerType: (*RevealServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Reveal", Handler: _Reveal_Reveal_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "reveal.proto",
}
