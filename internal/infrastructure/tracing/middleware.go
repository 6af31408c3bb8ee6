package tracing

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// HTTPMiddleware opens a span per request, continuing a trace named by the
// propagation headers
func HTTPMiddleware(tracer *Tracer) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := WithSpan(c.Request.Context(),
			TraceID(c.GetHeader(TraceHeader)), SpanID(c.GetHeader(SpanHeader)))

		name := c.FullPath()
		if name == "" {
			name = "unmatched"
		}
		span, ctx := tracer.Start(ctx, c.Request.Method+" "+name)
		span.Set("http.method", c.Request.Method)
		span.Set("http.path", c.Request.URL.Path)
		c.Request = c.Request.WithContext(ctx)
		c.Header(TraceHeader, string(span.TraceID))
		c.Header(SpanHeader, string(span.SpanID))

		c.Next()

		var err error
		if len(c.Errors) > 0 {
			err = c.Errors.Last()
		}
		span.End(c.Writer.Status(), err)
	}
}

// GRPCUnaryInterceptor opens a span per call. The span status is the gRPC
// status code.
func GRPCUnaryInterceptor(tracer *Tracer) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			ctx = WithSpan(ctx, TraceID(first(md, TraceHeader)), SpanID(first(md, SpanHeader)))
		}
		span, ctx := tracer.Start(ctx, info.FullMethod)
		span.Set("rpc.system", "grpc")

		resp, err := handler(ctx, req)
		span.End(int(status.Code(err)), err)
		return resp, err
	}
}

// GRPCClientInterceptor propagates the caller's trace into outgoing
// metadata
func GRPCClientInterceptor(tracer *Tracer) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		span, ctx := tracer.Start(ctx, method)
		span.Set("span.kind", "client")
		ctx = metadata.AppendToOutgoingContext(ctx,
			strings.ToLower(TraceHeader), string(span.TraceID),
			strings.ToLower(SpanHeader), string(span.SpanID))

		err := invoker(ctx, method, req, reply, cc, opts...)
		span.End(int(status.Code(err)), err)
		return err
	}
}

func first(md metadata.MD, key string) string {
	if vals := md.Get(key); len(vals) > 0 {
		return vals[0]
	}
	return ""
}
