package ledgerd

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// LedgerServer is the server API for the Ledger admin gRPC service.
//
// As with the Reveal service we avoid a protoc/codegen toolchain: every
// method takes and returns a protobuf BytesValue carrying a JSON body (see
// dto.go for the shapes).
//
// Proto definition: ledger.proto.
type LedgerServer interface {
	Subscribe(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
	Grant(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
	SetKey(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
	Details(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
	UpdateParams(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
	Withdraw(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
	ClaimRefund(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
	Status(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
}

// UnimplementedLedgerServer can be embedded to have forward compatible implementations.
type UnimplementedLedgerServer struct{}

func (UnimplementedLedgerServer) Subscribe(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Subscribe not implemented")
}
func (UnimplementedLedgerServer) Grant(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Grant not implemented")
}
func (UnimplementedLedgerServer) SetKey(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method SetKey not implemented")
}
func (UnimplementedLedgerServer) Details(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Details not implemented")
}
func (UnimplementedLedgerServer) UpdateParams(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method UpdateParams not implemented")
}
func (UnimplementedLedgerServer) Withdraw(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Withdraw not implemented")
}
func (UnimplementedLedgerServer) ClaimRefund(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method ClaimRefund not implemented")
}
func (UnimplementedLedgerServer) Status(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Status not implemented")
}

// RegisterLedgerServer registers the Ledger service on a gRPC server.
func RegisterLedgerServer(s grpc.ServiceRegistrar, srv LedgerServer) {
	s.RegisterService(&Ledger_ServiceDesc, srv)
}

// LedgerClient is the client API for the Ledger admin gRPC service.
type LedgerClient interface {
	Subscribe(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
	Grant(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
	SetKey(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
	Details(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
	UpdateParams(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
	Withdraw(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
	ClaimRefund(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
	Status(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
}

type ledgerClient struct{ cc grpc.ClientConnInterface }

func NewLedgerClient(cc grpc.ClientConnInterface) LedgerClient { return &ledgerClient{cc: cc} }

func (c *ledgerClient) invoke(ctx context.Context, method string, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	err := c.cc.Invoke(ctx, "/xdao.keygate.ledgerd.v1.Ledger/"+method, in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ledgerClient) Subscribe(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	return c.invoke(ctx, "Subscribe", in, opts...)
}
func (c *ledgerClient) Grant(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	return c.invoke(ctx, "Grant", in, opts...)
}
func (c *ledgerClient) SetKey(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	return c.invoke(ctx, "SetKey", in, opts...)
}
func (c *ledgerClient) Details(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	return c.invoke(ctx, "Details", in, opts...)
}
func (c *ledgerClient) UpdateParams(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	return c.invoke(ctx, "UpdateParams", in, opts...)
}
func (c *ledgerClient) Withdraw(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	return c.invoke(ctx, "Withdraw", in, opts...)
}
func (c *ledgerClient) ClaimRefund(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	return c.invoke(ctx, "ClaimRefund", in, opts...)
}
func (c *ledgerClient) Status(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	return c.invoke(ctx, "Status", in, opts...)
}

func handlerFor(method string, call func(LedgerServer, context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)) func(interface{}, context.Context, func(interface{}) error, grpc.UnaryServerInterceptor) (interface{}, error) {
	full := "/xdao.keygate.ledgerd.v1.Ledger/" + method
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(wrapperspb.BytesValue)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(LedgerServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: full}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(LedgerServer), ctx, req.(*wrapperspb.BytesValue))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// Ledger_ServiceDesc is the grpc.ServiceDesc for the Ledger service.
var Ledger_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "xdao.keygate.ledgerd.v1.Ledger",
	HandlerType: (*LedgerServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Subscribe", Handler: handlerFor("Subscribe", LedgerServer.Subscribe)},
		{MethodName: "Grant", Handler: handlerFor("Grant", LedgerServer.Grant)},
		{MethodName: "SetKey", Handler: handlerFor("SetKey", LedgerServer.SetKey)},
		{MethodName: "Details", Handler: handlerFor("Details", LedgerServer.Details)},
		{MethodName: "UpdateParams", Handler: handlerFor("UpdateParams", LedgerServer.UpdateParams)},
		{MethodName: "Withdraw", Handler: handlerFor("Withdraw", LedgerServer.Withdraw)},
		{MethodName: "ClaimRefund", Handler: handlerFor("ClaimRefund", LedgerServer.ClaimRefund)},
		{MethodName: "Status", Handler: handlerFor("Status", LedgerServer.Status)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "ledger.proto",
}
