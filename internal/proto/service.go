package proto

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// The Bookmarker service speaks google.protobuf.Struct in both directions,
// so no generated message types are needed.
const ServiceName = "bookmarker.Bookmarker"

const (
	methodGetBookmarks  = "/" + ServiceName + "/GetBookmarks"
	methodFetchMetadata = "/" + ServiceName + "/FetchMetadata"
)

type BookmarkerServer interface {
	GetBookmarks(context.Context, *structpb.Struct) (*structpb.Struct, error)
	FetchMetadata(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

var BookmarkerServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BookmarkerServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetBookmarks",
			Handler:    getBookmarksHandler,
		},
		{
			MethodName: "FetchMetadata",
			Handler:    fetchMetadataHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "bookmarker.proto",
}

func RegisterBookmarkerServer(s grpc.ServiceRegistrar, srv BookmarkerServer) {
	s.RegisterService(&BookmarkerServiceDesc, srv)
}

func getBookmarksHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BookmarkerServer).GetBookmarks(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodGetBookmarks}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(BookmarkerServer).GetBookmarks(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func fetchMetadataHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BookmarkerServer).FetchMetadata(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodFetchMetadata}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(BookmarkerServer).FetchMetadata(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

type BookmarkerClient struct {
	cc grpc.ClientConnInterface
}

func NewBookmarkerClient(cc grpc.ClientConnInterface) *BookmarkerClient {
	return &BookmarkerClient{cc: cc}
}

func (c *BookmarkerClient) GetBookmarks(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodGetBookmarks, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *BookmarkerClient) FetchMetadata(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodFetchMetadata, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
