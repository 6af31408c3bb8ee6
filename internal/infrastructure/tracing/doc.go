/*
Package tracing correlates one render across the HTTP and gRPC surfaces.

Spans carry a trace id and a span id, propagated through the X-Trace-ID and
X-Span-ID headers (x-trace-id and x-span-id in gRPC metadata). Finished spans
are handed to a buffered collector that logs them with zap; when the buffer
is full spans are dropped and counted rather than blocking the request.

	tracer := tracing.New("sandbox", 1024, logger)
	defer tracer.Close()

	router.Use(tracing.HTTPMiddleware(tracer))
	server := grpc.NewServer(grpc.ChainUnaryInterceptor(tracing.GRPCUnaryInterceptor(tracer)))

	span, ctx := tracer.Start(ctx, "paint")
	defer span.End(0, err)
*/
package tracing
