package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified management service name.
const ServiceName = "devlog.mgmt.v1.LogManager"

// Method names, relative to ServiceName.
const (
	MethodRead       = "Read"
	MethodClear      = "Clear"
	MethodAppend     = "Append"
	MethodModuleList = "ModuleList"
	MethodLevelList  = "LevelList"
	MethodLogsList   = "LogsList"
	MethodSetLevel   = "SetLevel"
	MethodHealth     = "Health"
)

// LogManagerServer is the server API of the management service. Every method
// takes and returns a structpb.Struct; field names are documented on the
// implementing methods of Service.
type LogManagerServer interface {
	Read(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Clear(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Append(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ModuleList(context.Context, *structpb.Struct) (*structpb.Struct, error)
	LevelList(context.Context, *structpb.Struct) (*structpb.Struct, error)
	LogsList(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SetLevel(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Health(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryFunc func(LogManagerServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unary(method string, call unaryFunc) grpc.MethodDesc {
	full := "/" + ServiceName + "/" + method
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(LogManagerServer)
			if interceptor == nil {
				return call(s, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: full}
			return interceptor(ctx, in, info, func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(s, ctx, req.(*structpb.Struct))
			})
		},
	}
}

// LogManagerServiceDesc describes the management service for grpc.Server.
var LogManagerServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*LogManagerServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(MethodRead, LogManagerServer.Read),
		unary(MethodClear, LogManagerServer.Clear),
		unary(MethodAppend, LogManagerServer.Append),
		unary(MethodModuleList, LogManagerServer.ModuleList),
		unary(MethodLevelList, LogManagerServer.LevelList),
		unary(MethodLogsList, LogManagerServer.LogsList),
		unary(MethodSetLevel, LogManagerServer.SetLevel),
		unary(MethodHealth, LogManagerServer.Health),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "devlog/mgmt/v1/mgmt.proto",
}

// RegisterLogManagerServer registers srv on s.
func RegisterLogManagerServer(s grpc.ServiceRegistrar, srv LogManagerServer) {
	s.RegisterService(&LogManagerServiceDesc, srv)
}
