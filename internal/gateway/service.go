package gateway

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name of the bridge.
const ServiceName = "gtil.v1.EventBridge"

const (
	sendMethod      = "/" + ServiceName + "/Send"
	subscribeMethod = "/" + ServiceName + "/Subscribe"
)

// EventBridgeServer is the server API of the event bridge.
//
// Messages are google.protobuf.Struct values with two fields: "topic", the
// topic name, and "payload", the topic's JSON-shaped payload.
type EventBridgeServer interface {
	// Send delivers one inbound message to the session.
	Send(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	// Subscribe streams every published message until the client leaves.
	Subscribe(*emptypb.Empty, grpc.ServerStreamingServer[structpb.Struct]) error
}

// UnimplementedEventBridgeServer can be embedded for forward compatibility.
type UnimplementedEventBridgeServer struct{}

func (UnimplementedEventBridgeServer) Send(context.Context, *structpb.Struct) (*emptypb.Empty, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Send not implemented")
}

func (UnimplementedEventBridgeServer) Subscribe(*emptypb.Empty, grpc.ServerStreamingServer[structpb.Struct]) error {
	return status.Errorf(codes.Unimplemented, "method Subscribe not implemented")
}

// RegisterEventBridgeServer registers srv on s.
func RegisterEventBridgeServer(s grpc.ServiceRegistrar, srv EventBridgeServer) {
	s.RegisterService(&EventBridge_ServiceDesc, srv)
}

func sendHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(EventBridgeServer).Send(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: sendMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(EventBridgeServer).Send(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func subscribeHandler(srv any, stream grpc.ServerStream) error {
	in := new(emptypb.Empty)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(EventBridgeServer).Subscribe(in, &grpc.GenericServerStream[emptypb.Empty, structpb.Struct]{ServerStream: stream})
}

// EventBridge_ServiceDesc is the grpc.ServiceDesc of the bridge.
var EventBridge_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*EventBridgeServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Send", Handler: sendHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "Subscribe", Handler: subscribeHandler, ServerStreams: true},
	},
	Metadata: "gtil/v1/bridge.proto",
}

// EventBridgeClient is the client API of the event bridge.
type EventBridgeClient interface {
	Send(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error)
	Subscribe(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (grpc.ServerStreamingClient[structpb.Struct], error)
}

type eventBridgeClient struct {
	cc grpc.ClientConnInterface
}

// NewEventBridgeClient returns a client bound to cc.
func NewEventBridgeClient(cc grpc.ClientConnInterface) EventBridgeClient {
	return &eventBridgeClient{cc: cc}
}

func (c *eventBridgeClient) Send(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, sendMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *eventBridgeClient) Subscribe(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (grpc.ServerStreamingClient[structpb.Struct], error) {
	stream, err := c.cc.NewStream(ctx, &EventBridge_ServiceDesc.Streams[0], subscribeMethod, opts...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[emptypb.Empty, structpb.Struct]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}
