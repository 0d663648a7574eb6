// Package codecsvc exposes the hex codec and the single-byte XOR cracker as
// the hexcrack.v1.Codec gRPC service. Messages are protobuf well-known types
// so the service needs no generated code.
package codecsvc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "hexcrack.v1.Codec"

// CodecServer is the server API for the Codec service.
type CodecServer interface {
	// EncodeBase64 converts a hex string to Base64 as one final window.
	EncodeBase64(context.Context, *wrapperspb.StringValue) (*wrapperspb.StringValue, error)
	// FixedXOR combines the hex strings in fields "a" and "b".
	FixedXOR(context.Context, *structpb.Struct) (*wrapperspb.StringValue, error)
	// Crack recovers the single-byte key of a hex ciphertext.
	Crack(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	// Detect ranks the hex lines in field "lines" by their best key score.
	Detect(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// EncodeStream converts a stream of raw hex windows into Base64 fragments.
	EncodeStream(EncodeStreamServer) error
}

// EncodeStreamServer is the server side of the EncodeStream call.
type EncodeStreamServer interface {
	Send(*wrapperspb.StringValue) error
	Recv() (*wrapperspb.BytesValue, error)
	grpc.ServerStream
}

type encodeStreamServer struct {
	grpc.ServerStream
}

func (s *encodeStreamServer) Send(m *wrapperspb.StringValue) error {
	return s.ServerStream.SendMsg(m)
}

func (s *encodeStreamServer) Recv() (*wrapperspb.BytesValue, error) {
	m := new(wrapperspb.BytesValue)
	if err := s.ServerStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

// ServiceDesc describes the Codec service for grpc.ServiceRegistrar.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CodecServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("EncodeBase64", func(s CodecServer, ctx context.Context, in *wrapperspb.StringValue) (proto.Message, error) {
			return s.EncodeBase64(ctx, in)
		}),
		unary("FixedXOR", func(s CodecServer, ctx context.Context, in *structpb.Struct) (proto.Message, error) {
			return s.FixedXOR(ctx, in)
		}),
		unary("Crack", func(s CodecServer, ctx context.Context, in *wrapperspb.StringValue) (proto.Message, error) {
			return s.Crack(ctx, in)
		}),
		unary("Detect", func(s CodecServer, ctx context.Context, in *structpb.Struct) (proto.Message, error) {
			return s.Detect(ctx, in)
		}),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName: "EncodeStream",
			Handler: func(srv any, stream grpc.ServerStream) error {
				return srv.(CodecServer).EncodeStream(&encodeStreamServer{stream})
			},
			ServerStreams: true,
			ClientStreams: true,
		},
	},
	Metadata: "hexcrack/v1/codec.proto",
}

// Register attaches srv to the registrar.
func Register(s grpc.ServiceRegistrar, srv CodecServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func methodPath(name string) string {
	return "/" + ServiceName + "/" + name
}

// unary builds the method descriptor for a request type Req. The request is
// allocated through proto.Message reflection of a zero value.
func unary[Req proto.Message](name string, call func(CodecServer, context.Context, Req) (proto.Message, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			var zero Req
			in := zero.ProtoReflect().New().Interface().(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(CodecServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodPath(name)}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(CodecServer), ctx, req.(Req))
			})
		},
	}
}
