package grpccomm

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// The service carries one unary method whose request and response are JSON
// envelopes wrapped in google.protobuf.BytesValue, so no generated stubs are
// needed on either side.
const (
	serviceName       = "sandfile.v1.MessageService"
	sendMessageMethod = "/" + serviceName + "/SendMessage"
)

// MaxMessageSize bounds one envelope in either direction. Payload bytes are
// base64 inside JSON, so the largest write or read that fits is about three
// quarters of this.
const MaxMessageSize = 64 << 20

type messageServiceServer interface {
	SendMessage(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
}

func sendMessageHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(messageServiceServer).SendMessage(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: sendMessageMethod,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(messageServiceServer).SendMessage(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

var messageServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*messageServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "SendMessage",
			Handler:    sendMessageHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "sandfile/v1/message.proto",
}
