package grpc

import (
	"bytes"
	"context"
	"image/png"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/host"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/paint"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/registry"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/transform"
)

const helloSource = `
import React from 'react';
import { View, Text } from 'react-native';

export default function App() {
  return (
    <View style={{ flex: 1, backgroundColor: '#00ff00' }}>
      <Text>Hello</Text>
    </View>
  );
}
`

type fixture struct {
	client  *RendererClient
	health  healthpb.HealthClient
	modules *registry.Manager
	server  *Server
}

func setup(t *testing.T, cfg Config) *fixture {
	t.Helper()

	pool, err := host.NewPool(context.Background(), host.Options{Transformer: transform.NewEsbuild()}, 1, time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	painter, err := paint.NewPainter("#ffffff", nil)
	require.NoError(t, err)
	modules, err := registry.NewManager(registry.Options{})
	require.NoError(t, err)

	srv := NewServer(NewRenderer(cfg, pool, painter, modules, nil), nil, nil)
	lis := bufconn.Listen(1 << 20)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Stop(ctx)
	})

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return &fixture{
		client:  NewRendererClient(conn),
		health:  healthpb.NewHealthClient(conn),
		modules: modules,
		server:  srv,
	}
}

func renderArgs(t *testing.T, fields map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(fields)
	require.NoError(t, err)
	return s
}

func TestRender(t *testing.T) {
	f := setup(t, Config{})

	out, err := f.client.Render(context.Background(), renderArgs(t, map[string]any{
		"source": helloSource, "width": 200, "height": 100,
	}))
	require.NoError(t, err)

	body := out.AsMap()
	assert.Regexp(t, `^rnd_`, body["id"])
	tree := body["tree"].(map[string]any)
	assert.Equal(t, 200.0, tree["box"].(map[string]any)["width"])
	children := tree["children"].([]any)
	require.Len(t, children, 1)
	assert.Equal(t, "Hello", children[0].(map[string]any)["text"])
	assert.NotContains(t, body, "error")
}

func TestRenderFailureIsData(t *testing.T) {
	f := setup(t, Config{})

	out, err := f.client.Render(context.Background(), renderArgs(t, map[string]any{"source": "export const x = 1"}))
	require.NoError(t, err)
	assert.Equal(t, "evaluate", out.GetFields()["phase"].GetStringValue())
	assert.NotEmpty(t, out.GetFields()["error"].GetStringValue())
}

func TestRenderRejects(t *testing.T) {
	tests := []struct {
		name   string
		cfg    Config
		fields map[string]any
		want   codes.Code
	}{
		{"missing source", Config{}, map[string]any{"width": 10}, codes.InvalidArgument},
		{"negative height", Config{}, map[string]any{"source": helloSource, "height": -1}, codes.InvalidArgument},
		{"too wide", Config{MaxWidth: 100}, map[string]any{"source": helloSource, "width": 101}, codes.InvalidArgument},
		{"too large", Config{MaxSourceBytes: 16}, map[string]any{"source": helloSource}, codes.ResourceExhausted},
		{"unknown module", Config{}, map[string]any{"module": "missing"}, codes.NotFound},
		{"source and module", Config{}, map[string]any{"module": "x", "source": helloSource}, codes.InvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t, tt.cfg)
			_, err := f.client.Render(context.Background(), renderArgs(t, tt.fields))
			assert.Equal(t, tt.want, status.Code(err), err)
		})
	}
}

func TestPaint(t *testing.T) {
	f := setup(t, Config{})

	out, err := f.client.Paint(context.Background(), renderArgs(t, map[string]any{
		"source": helloSource, "width": 40, "height": 30,
	}))
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(out.GetValue()))
	require.NoError(t, err)
	assert.Equal(t, 40, img.Bounds().Dx())
	r, g, b, _ := img.At(35, 25).RGBA()
	assert.Equal(t, []uint32{0, 0xffff, 0}, []uint32{r, g, b})

	_, err = f.client.Paint(context.Background(), renderArgs(t, map[string]any{"source": "export default 42"}))
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
}

func TestRenderModule(t *testing.T) {
	f := setup(t, Config{})
	require.NoError(t, f.modules.Register(&registry.Module{ID: "hello", Source: helloSource, Width: 64, Height: 32}))

	out, err := f.client.Paint(context.Background(), renderArgs(t, map[string]any{"module": "hello"}))
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(out.GetValue()))
	require.NoError(t, err)
	assert.Equal(t, 64, img.Bounds().Dx())
	assert.Equal(t, 32, img.Bounds().Dy())
}

func TestHealth(t *testing.T) {
	f := setup(t, Config{})
	ctx := context.Background()

	resp, err := f.health.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())

	f.server.health.Shutdown()
	resp, err = f.health.Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.GetStatus())
}

func TestRecovererConvertsPanics(t *testing.T) {
	intercept := recoverer(zap.NewNop())
	info := &grpc.UnaryServerInfo{FullMethod: RenderMethod}

	_, err := intercept(context.Background(), nil, info, func(context.Context, any) (any, error) {
		panic("boom")
	})
	assert.Equal(t, codes.Internal, status.Code(err))
}
