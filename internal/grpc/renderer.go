package grpc

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/host"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/paint"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/registry"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/transform"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/shared/id"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/shared/utils"
)

// Config bounds renders served over gRPC
type Config struct {
	MaxSourceBytes int
	DefaultWidth   float64
	DefaultHeight  float64
	MaxWidth       int
	MaxHeight      int
}

// Renderer serves the Renderer service from a host pool
type Renderer struct {
	cfg     Config
	pool    *host.Pool
	painter *paint.Painter
	modules *registry.Manager
	logger  *zap.Logger
}

// NewRenderer creates the service. modules may be nil, which disables the
// module request field.
func NewRenderer(cfg Config, pool *host.Pool, painter *paint.Painter, modules *registry.Manager, logger *zap.Logger) *Renderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxSourceBytes <= 0 {
		cfg.MaxSourceBytes = 256 * 1024
	}
	if cfg.DefaultWidth <= 0 {
		cfg.DefaultWidth = 390
	}
	if cfg.DefaultHeight <= 0 {
		cfg.DefaultHeight = 844
	}
	return &Renderer{cfg: cfg, pool: pool, painter: painter, modules: modules, logger: logger.Named("grpc")}
}

type request struct {
	source string
	width  float64
	height float64
}

// Render executes the requested component. A component that fails to
// render is not an RPC error: the body carries error and phase.
func (r *Renderer) Render(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := r.decode(ctx, in)
	if err != nil {
		return nil, err
	}
	renderID, result, err := r.render(ctx, req)
	if err != nil {
		return nil, err
	}

	body, err := toStruct(renderID, result)
	if err != nil {
		r.logger.Error("failed to encode render", zap.String("render_id", renderID), zap.Error(err))
		return nil, status.Error(codes.Internal, "failed to encode render")
	}
	return body, nil
}

// Paint executes the requested component and paints it. A failed render
// is reported as FailedPrecondition.
func (r *Renderer) Paint(ctx context.Context, in *structpb.Struct) (*wrapperspb.BytesValue, error) {
	if r.painter == nil {
		return nil, status.Error(codes.Unimplemented, "painting disabled")
	}
	req, err := r.decode(ctx, in)
	if err != nil {
		return nil, err
	}
	renderID, result, err := r.render(ctx, req)
	if err != nil {
		return nil, err
	}
	if result.Error != "" {
		return nil, status.Errorf(codes.FailedPrecondition, "%s: %s", result.Phase, result.Error)
	}

	raster, err := paint.NewRaster(int(req.width), int(req.height))
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if err := r.painter.Paint(raster, result.Tree); err != nil {
		r.logger.Error("paint failed", zap.String("render_id", renderID), zap.Error(err))
		return nil, status.Error(codes.Internal, "paint failed")
	}
	var buf bytes.Buffer
	if err := raster.EncodePNG(&buf); err != nil {
		r.logger.Error("png encoding failed", zap.String("render_id", renderID), zap.Error(err))
		return nil, status.Error(codes.Internal, "png encoding failed")
	}
	return wrapperspb.Bytes(buf.Bytes()), nil
}

func (r *Renderer) render(ctx context.Context, req request) (string, *host.Result, error) {
	renderID := id.NewRenderID().String()
	result, err := r.pool.Render(ctx, req.source, req.width, req.height)
	if err != nil {
		r.logger.Warn("render rejected", zap.String("render_id", renderID), zap.Error(err))
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", nil, status.FromContextError(ctxErr).Err()
		}
		return "", nil, status.Error(codes.Unavailable, err.Error())
	}
	if result.Error != "" {
		r.logger.Debug("render failed",
			zap.String("render_id", renderID),
			zap.String("phase", string(result.Phase)),
			zap.String("error", result.Error))
	}
	return renderID, result, nil
}

// decode reads source or module, width and height
func (r *Renderer) decode(ctx context.Context, in *structpb.Struct) (request, error) {
	fields := in.GetFields()
	req := request{
		width:  fields["width"].GetNumberValue(),
		height: fields["height"].GetNumberValue(),
	}

	raw := fields["source"].GetStringValue()
	if moduleID := fields["module"].GetStringValue(); moduleID != "" {
		if raw != "" {
			return req, status.Error(codes.InvalidArgument, "source and module are exclusive")
		}
		if r.modules == nil {
			return req, status.Error(codes.Unimplemented, "module library disabled")
		}
		mod, err := r.modules.Load(ctx, moduleID)
		if err != nil {
			if errors.Is(err, registry.ErrNotFound) {
				return req, status.Error(codes.NotFound, err.Error())
			}
			return req, status.Error(codes.Internal, err.Error())
		}
		raw = mod.Source
		if req.width == 0 {
			req.width = mod.Width
		}
		if req.height == 0 {
			req.height = mod.Height
		}
	}
	if raw == "" {
		return req, status.Error(codes.InvalidArgument, "source is required")
	}

	source, err := transform.Normalize([]byte(raw), r.cfg.MaxSourceBytes)
	if err != nil {
		if errors.Is(err, transform.ErrSourceTooLarge) {
			return req, status.Error(codes.ResourceExhausted, err.Error())
		}
		return req, status.Error(codes.InvalidArgument, err.Error())
	}
	req.source = source

	if err := utils.ValidateDimension("width", req.width, float64(r.cfg.MaxWidth)); err != nil {
		return req, status.Error(codes.InvalidArgument, err.Error())
	}
	if err := utils.ValidateDimension("height", req.height, float64(r.cfg.MaxHeight)); err != nil {
		return req, status.Error(codes.InvalidArgument, err.Error())
	}
	if req.width == 0 {
		req.width = r.cfg.DefaultWidth
	}
	if req.height == 0 {
		req.height = r.cfg.DefaultHeight
	}
	return req, nil
}

// toStruct converts a result to a Struct through its JSON form, so gRPC
// and HTTP callers see the same field names
func toStruct(renderID string, result *host.Result) (*structpb.Struct, error) {
	data, err := sonic.Marshal(result)
	if err != nil {
		return nil, err
	}
	var body map[string]any
	if err := sonic.Unmarshal(data, &body); err != nil {
		return nil, err
	}
	body["id"] = renderID
	s, err := structpb.NewStruct(body)
	if err != nil {
		return nil, fmt.Errorf("failed to build struct: %w", err)
	}
	return s, nil
}
