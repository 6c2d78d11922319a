package grpcserver

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "smartmeter.v1.Dashboard"

// DashboardServer is the server API of smartmeter.v1.Dashboard. Requests and
// responses are protobuf well-known types carrying the JSON shapes of the
// HTTP API.
type DashboardServer interface {
	PowerUsage(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	Analytics(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	LiveUsage(ctx context.Context, in *emptypb.Empty) (*structpb.Struct, error)
	Billing(ctx context.Context, in *emptypb.Empty) (*structpb.Struct, error)
}

// ServiceDesc describes smartmeter.v1.Dashboard for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DashboardServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "PowerUsage", Handler: unaryHandler("PowerUsage", newStruct, DashboardServer.PowerUsage)},
		{MethodName: "Analytics", Handler: unaryHandler("Analytics", newStruct, DashboardServer.Analytics)},
		{MethodName: "LiveUsage", Handler: unaryHandler("LiveUsage", newEmpty, DashboardServer.LiveUsage)},
		{MethodName: "Billing", Handler: unaryHandler("Billing", newEmpty, DashboardServer.Billing)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "smartmeter/v1/dashboard.proto",
}

// Register adds srv to g under ServiceDesc.
func Register(g grpc.ServiceRegistrar, srv DashboardServer) {
	g.RegisterService(&ServiceDesc, srv)
}

func fullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

func newStruct() *structpb.Struct { return new(structpb.Struct) }
func newEmpty() *emptypb.Empty    { return new(emptypb.Empty) }

func unaryHandler[Req proto.Message](
	method string,
	newReq func() Req,
	call func(DashboardServer, context.Context, Req) (*structpb.Struct, error),
) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := newReq()
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(DashboardServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(method)}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(DashboardServer), ctx, req.(Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// toStruct converts v to a Struct via its JSON encoding.
func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := protojson.Unmarshal(b, out); err != nil {
		return nil, fmt.Errorf("%T is not a JSON object: %w", v, err)
	}
	return out, nil
}

// fromStruct decodes s into out via its JSON encoding.
func fromStruct(s *structpb.Struct, out any) error {
	b, err := protojson.Marshal(s)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}
