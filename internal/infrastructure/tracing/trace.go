package tracing

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/sandbox/internal/shared/id"
)

// Propagation headers. gRPC metadata uses the lowercased forms.
const (
	TraceHeader = "X-Trace-ID"
	SpanHeader  = "X-Span-ID"
)

// TraceID identifies one request across services
type TraceID string

// SpanID identifies one operation within a trace
type SpanID string

// Span is a single traced operation
type Span struct {
	TraceID  TraceID
	SpanID   SpanID
	ParentID SpanID
	Name     string
	Start    time.Time
	Duration time.Duration
	Attrs    map[string]string
	Status   int
	Err      error

	tracer *Tracer
	ended  atomic.Bool
}

// Tracer hands out spans and logs them from a background collector
type Tracer struct {
	service string
	logger  *zap.Logger
	spans   chan *Span
	dropped atomic.Int64

	closeOnce sync.Once
	done      chan struct{}
}

// New starts a tracer. Finished spans are logged at debug level, failed
// ones at warn.
func New(service string, buffer int, logger *zap.Logger) *Tracer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if buffer <= 0 {
		buffer = 1024
	}
	t := &Tracer{
		service: service,
		logger:  logger.Named("trace"),
		spans:   make(chan *Span, buffer),
		done:    make(chan struct{}),
	}
	go t.collect()
	return t
}

// Start opens a span as a child of the span carried by ctx, or as the root
// of a new trace
func (t *Tracer) Start(ctx context.Context, name string) (*Span, context.Context) {
	traceID := TraceIDFrom(ctx)
	if traceID == "" {
		traceID = TraceID(id.Default().GenerateWithPrefix(id.TracePrefix))
	}
	span := &Span{
		TraceID:  traceID,
		SpanID:   SpanID(id.Default().GenerateWithPrefix(id.SpanPrefix)),
		ParentID: SpanIDFrom(ctx),
		Name:     name,
		Start:    time.Now(),
		Attrs:    make(map[string]string),
		tracer:   t,
	}
	return span, WithSpan(ctx, span.TraceID, span.SpanID)
}

// Set records an attribute
func (s *Span) Set(key, value string) {
	s.Attrs[key] = value
}

// End closes the span and hands it to the collector. Later calls are no-ops.
func (s *Span) End(status int, err error) {
	if !s.ended.CompareAndSwap(false, true) {
		return
	}
	s.Duration = time.Since(s.Start)
	s.Status = status
	s.Err = err
	s.tracer.submit(s)
}

func (t *Tracer) submit(s *Span) {
	select {
	case <-t.done:
		return
	default:
	}
	select {
	case t.spans <- s:
	default:
		t.dropped.Add(1)
	}
}

// Dropped returns how many spans were discarded because the buffer was full
func (t *Tracer) Dropped() int64 {
	return t.dropped.Load()
}

// Close stops accepting spans and logs the ones already buffered
func (t *Tracer) Close() {
	t.closeOnce.Do(func() {
		close(t.done)
	})
}

func (t *Tracer) collect() {
	for {
		select {
		case s := <-t.spans:
			t.log(s)
		case <-t.done:
			for {
				select {
				case s := <-t.spans:
					t.log(s)
				default:
					return
				}
			}
		}
	}
}

func (t *Tracer) log(s *Span) {
	fields := make([]zap.Field, 0, 7+len(s.Attrs))
	fields = append(fields,
		zap.String("service", t.service),
		zap.String("trace_id", string(s.TraceID)),
		zap.String("span_id", string(s.SpanID)),
		zap.String("operation", s.Name),
		zap.Duration("duration", s.Duration),
		zap.Int("status", s.Status),
	)
	if s.ParentID != "" {
		fields = append(fields, zap.String("parent_id", string(s.ParentID)))
	}
	for k, v := range s.Attrs {
		fields = append(fields, zap.String(k, v))
	}
	if s.Err != nil {
		t.logger.Warn("span failed", append(fields, zap.Error(s.Err))...)
		return
	}
	t.logger.Debug("span finished", fields...)
}

type contextKey int

const (
	traceIDKey contextKey = iota
	spanIDKey
)

// WithSpan stores trace and span ids on ctx
func WithSpan(ctx context.Context, traceID TraceID, spanID SpanID) context.Context {
	if traceID != "" {
		ctx = context.WithValue(ctx, traceIDKey, traceID)
	}
	if spanID != "" {
		ctx = context.WithValue(ctx, spanIDKey, spanID)
	}
	return ctx
}

// TraceIDFrom returns the trace id carried by ctx
func TraceIDFrom(ctx context.Context) TraceID {
	v, _ := ctx.Value(traceIDKey).(TraceID)
	return v
}

// SpanIDFrom returns the span id carried by ctx
func SpanIDFrom(ctx context.Context) SpanID {
	v, _ := ctx.Value(spanIDKey).(SpanID)
	return v
}
