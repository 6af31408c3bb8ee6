// Package grpc exposes one-shot renders over gRPC.
//
// The Renderer service has no generated stubs: requests and responses are
// protobuf well-known types, so any client can call it with a plain
// Struct. Render answers the same body as POST /render; Paint answers the
// PNG bytes.
//
//	/sandbox.v1.Renderer/Render  Struct{source|module, width, height} -> Struct
//	/sandbox.v1.Renderer/Paint   Struct{source|module, width, height} -> BytesValue
//
// The standard grpc.health.v1 service reports SERVING while the server runs.
package grpc
