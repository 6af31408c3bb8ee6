package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified Renderer service name
const ServiceName = "sandbox.v1.Renderer"

// Full method names
const (
	RenderMethod = "/" + ServiceName + "/Render"
	PaintMethod  = "/" + ServiceName + "/Paint"
)

// RendererServer is implemented by the render service
type RendererServer interface {
	Render(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Paint(context.Context, *structpb.Struct) (*wrapperspb.BytesValue, error)
}

// RegisterRendererServer attaches srv to s
func RegisterRendererServer(s grpc.ServiceRegistrar, srv RendererServer) {
	s.RegisterService(&rendererServiceDesc, srv)
}

var rendererServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RendererServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Render", Handler: renderHandler},
		{MethodName: "Paint", Handler: paintHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "sandbox/v1/renderer",
}

func renderHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RendererServer).Render(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: RenderMethod}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(RendererServer).Render(ctx, req.(*structpb.Struct))
	})
}

func paintHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RendererServer).Paint(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: PaintMethod}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(RendererServer).Paint(ctx, req.(*structpb.Struct))
	})
}

// RendererClient calls the Renderer service
type RendererClient struct {
	cc grpc.ClientConnInterface
}

// NewRendererClient wraps a connection
func NewRendererClient(cc grpc.ClientConnInterface) *RendererClient {
	return &RendererClient{cc: cc}
}

// Render executes a component and returns the render body
func (c *RendererClient) Render(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, RenderMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// Paint executes a component and returns it as PNG bytes
func (c *RendererClient) Paint(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	if err := c.cc.Invoke(ctx, PaintMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
