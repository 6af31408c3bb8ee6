package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/klauspost/compress/gzhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	apihttp "github.com/GriffinCanCode/AgentOS/sandbox/internal/api/http"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/api/middleware"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/api/ws"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/host"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/paint"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/registry"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/transform"
	sandboxgrpc "github.com/GriffinCanCode/AgentOS/sandbox/internal/grpc"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/infrastructure/config"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/shared/utils"
)

// Server wraps the HTTP server and dependencies
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	grpcServer *sandboxgrpc.Server
	pool       *host.Pool
	wsHandler  *ws.Handler
	modules    *registry.Manager
	transform  *Transformer
	tracer     *tracing.Tracer
	logger     *logging.Logger
	config     *config.Config
	metrics    *monitoring.Metrics
}

// Transformer is the configured transformer chain and what it holds open
type Transformer struct {
	transform.Transformer
	// Breaker guards the cache; nil without a cache
	Breaker *resilience.Breaker
	redis   *redis.Client
}

// Close releases the cache connection, if any
func (t *Transformer) Close() error {
	if t.redis != nil {
		return t.redis.Close()
	}
	return nil
}

// NewTransformer builds esbuild, or the remote service when a URL is set,
// behind the configured cache. metrics may be nil.
func NewTransformer(cfg config.TransformConfig, metrics *monitoring.Metrics, logger *zap.Logger) (*Transformer, error) {
	var base transform.Transformer = transform.NewEsbuild()
	if cfg.RemoteURL != "" {
		base = transform.NewRemote(transform.RemoteConfig{
			URL:        cfg.RemoteURL,
			Timeout:    cfg.RemoteTimeout,
			MaxRetries: 2,
		})
	}

	out := &Transformer{Transformer: base}
	var cache transform.Cache
	switch cfg.Cache {
	case config.CacheNone:
		return out, nil
	case config.CacheMemory:
		cache = transform.NewMemoryCache(cfg.MaxEntries)
	case config.CacheRedis:
		out.redis = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		cache = transform.NewRedisCache(out.redis, "", cfg.RedisTTL)
	default:
		return nil, fmt.Errorf("unknown transform cache %q", cfg.Cache)
	}

	algorithm, err := utils.ParseAlgorithm(cfg.KeyHash)
	if err != nil {
		return nil, err
	}
	cached := transform.NewCached(base, cache, logger).WithHasher(utils.NewHasher(algorithm))
	if metrics != nil {
		cached.OnResult = metrics.RecordCacheResult
	}
	out.Transformer = cached
	out.Breaker = cached.Breaker()
	return out, nil
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config) (*Server, error) {
	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
		Sample:      cfg.Logging.Sample,
	})
	if err != nil {
		return nil, err
	}
	return newServer(cfg, logger)
}

func newServer(cfg *config.Config, logger *logging.Logger) (*Server, error) {
	logger.Info("Initializing sandbox server",
		zap.String("port", cfg.Server.Port),
		zap.String("transform_cache", cfg.Transform.Cache),
		zap.Int("pool_size", cfg.Sandbox.PoolSize),
	)

	metrics := monitoring.NewMetrics()

	tr, err := NewTransformer(cfg.Transform, metrics, logger.Logger)
	if err != nil {
		return nil, err
	}
	probeTimeout := cfg.Transform.RemoteTimeout
	if probeTimeout <= 0 {
		probeTimeout = 10 * time.Second
	}
	probeCtx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()
	if err := transform.Probe(probeCtx, tr); err != nil {
		logger.Warn("Transformer probe failed", zap.String("transformer", tr.Name()), zap.Error(err))
	}
	if tr.redis != nil {
		if err := tr.redis.Ping(probeCtx).Err(); err != nil {
			logger.Warn("Redis unreachable, cache will trip its breaker", zap.String("addr", cfg.Transform.RedisAddr), zap.Error(err))
		}
	}

	hostCfg := host.Config{
		MaxCallStackSize: host.DefaultConfig().MaxCallStackSize,
		EnableConsole:    cfg.Sandbox.EnableConsole,
		DebugState:       cfg.Sandbox.DebugState,
		MaxRerenders:     cfg.Sandbox.MaxRerenders,
	}
	pool, err := host.NewPool(context.Background(), host.Options{
		Config:      hostCfg,
		Transformer: tr,
		Logger:      logger.Named("pool").Logger,
		Observer:    metrics,
	}, cfg.Sandbox.PoolSize, cfg.Sandbox.AcquireTimeout)
	if err != nil {
		tr.Close()
		return nil, fmt.Errorf("failed to start host pool: %w", err)
	}

	painter, err := paint.NewPainter(cfg.Paint.Background, logger.Logger)
	if err != nil {
		pool.Close()
		tr.Close()
		return nil, fmt.Errorf("invalid paint background: %w", err)
	}
	exporter, err := paint.NewHTML(cfg.Paint.Background, logger.Logger)
	if err != nil {
		pool.Close()
		tr.Close()
		return nil, fmt.Errorf("invalid paint background: %w", err)
	}

	modules, err := newModules(cfg.Sandbox, logger.Logger)
	if err != nil {
		pool.Close()
		tr.Close()
		return nil, err
	}

	var tracer *tracing.Tracer
	if cfg.Logging.TraceSpans {
		tracer = tracing.New("sandbox", 0, logger.Logger)
	}

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	if tracer != nil {
		router.Use(tracing.HTTPMiddleware(tracer))
	}
	router.Use(middleware.AccessLog(logger.Logger))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	rateCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		Burst:             cfg.RateLimit.Burst,
	}
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(rateCfg))
	}

	wsCfg := ws.Config{
		Host: hostCfg,
		Worker: host.WorkerConfig{
			Inbox:    cfg.Sandbox.Inbox,
			Watchdog: cfg.Sandbox.Watchdog,
		},
		MaxSourceBytes: cfg.Sandbox.MaxSourceBytes,
	}
	if cfg.RateLimit.Enabled {
		wsCfg.ExecuteLimit = rateCfg
	}
	wsHandler := ws.NewHandler(wsCfg, tr, metrics, logger.Logger)

	handlers := apihttp.NewHandlers(apihttp.Config{
		MaxSourceBytes: cfg.Sandbox.MaxSourceBytes,
		DefaultWidth:   cfg.Sandbox.Width,
		DefaultHeight:  cfg.Sandbox.Height,
		MaxWidth:       cfg.Paint.MaxWidth,
		MaxHeight:      cfg.Paint.MaxHeight,
		Timeout:        cfg.Sandbox.Watchdog,
	}, pool, painter, apihttp.Options{
		HTML:        exporter,
		Transformer: tr,
		Breaker:     tr.Breaker,
		Metrics:     metrics,
		Modules:     modules,
		Sessions:    wsHandler.Sessions(),
		Logger:      logger.Logger,
	})

	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)
	router.POST("/render", handlers.Render)
	router.POST("/render/png", handlers.RenderPNG)
	router.POST("/render/html", handlers.RenderHTML)
	router.GET("/stream", wsHandler.HandleConnection)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	router.GET("/metrics/summary", handlers.MetricsSummary)
	router.GET("/log/level", gin.WrapH(logger.LevelHandler()))
	router.PUT("/log/level", gin.WrapH(logger.LevelHandler()))

	mods := router.Group("/modules")
	mods.GET("", handlers.ListModules)
	mods.GET("/:id", handlers.GetModule)
	mods.PUT("/:id", handlers.PutModule)
	mods.DELETE("/:id", handlers.DeleteModule)
	mods.POST("/:id/render", handlers.RenderModule)

	sessions := router.Group("/sessions")
	sessions.GET("", handlers.ListSessions)
	sessions.GET("/:id", handlers.GetSession)
	sessions.GET("/:id/tree", handlers.SessionTree)
	sessions.DELETE("/:id", handlers.TerminateSession)

	renderer := sandboxgrpc.NewRenderer(sandboxgrpc.Config{
		MaxSourceBytes: cfg.Sandbox.MaxSourceBytes,
		DefaultWidth:   cfg.Sandbox.Width,
		DefaultHeight:  cfg.Sandbox.Height,
		MaxWidth:       cfg.Paint.MaxWidth,
		MaxHeight:      cfg.Paint.MaxHeight,
	}, pool, painter, modules, logger.Logger)

	s := &Server{
		router:     router,
		grpcServer: sandboxgrpc.NewServer(renderer, tracer, logger.Logger),
		pool:       pool,
		wsHandler:  wsHandler,
		modules:    modules,
		transform:  tr,
		tracer:     tracer,
		logger:     logger,
		config:     cfg,
		metrics:    metrics,
	}
	s.httpServer = &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server initialized successfully", zap.String("transformer", tr.Name()))
	return s, nil
}

// Handler returns the root handler. Responses are gzip-compressed except
// websocket upgrades, which must reach the router unwrapped.
func (s *Server) Handler() http.Handler {
	gz := gzhttp.GzipHandler(s.router)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if websocket.IsWebSocketUpgrade(r) {
			s.router.ServeHTTP(w, r)
			return
		}
		gz.ServeHTTP(w, r)
	})
}

// Metrics returns the server's metrics
func (s *Server) Metrics() *monitoring.Metrics {
	return s.metrics
}

// Modules returns the module library
func (s *Server) Modules() *registry.Manager {
	return s.modules
}

// Run starts the HTTP server, and the gRPC server when a gRPC port is
// configured, and blocks until both stop
func (s *Server) Run() error {
	var g errgroup.Group
	g.Go(func() error {
		s.logger.Info("Starting HTTP server", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			s.grpcServer.Stop(ctx)
			return err
		}
		return nil
	})
	if port := s.config.Server.GRPCPort; port != "" {
		lis, err := net.Listen("tcp", net.JoinHostPort(s.config.Server.Host, port))
		if err != nil {
			_ = s.httpServer.Close()
			return fmt.Errorf("grpc listen: %w", err)
		}
		g.Go(func() error {
			return s.ServeGRPC(lis)
		})
	}
	return g.Wait()
}

// ServeGRPC serves the Renderer service on lis until Shutdown
func (s *Server) ServeGRPC(lis net.Listener) error {
	return s.grpcServer.Serve(lis)
}

// Shutdown stops accepting requests, ends websocket sessions and releases
// the pool and cache.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")

	var errs []error
	if err := s.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	s.grpcServer.Stop(ctx)
	s.wsHandler.Close()
	if err := s.pool.Close(); err != nil {
		errs = append(errs, fmt.Errorf("pool close: %w", err))
	}
	if err := s.transform.Close(); err != nil {
		errs = append(errs, fmt.Errorf("cache close: %w", err))
	}
	if s.tracer != nil {
		s.tracer.Close()
	}

	_ = s.logger.Sync()
	return errors.Join(errs...)
}

// newModules builds the module library. With a modules directory, saved
// modules and seed sources found there are loaded at startup.
func newModules(cfg config.SandboxConfig, logger *zap.Logger) (*registry.Manager, error) {
	modules, err := registry.NewManager(registry.Options{
		Dir:        cfg.ModulesDir,
		MaxModules: cfg.MaxModules,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}
	if cfg.ModulesDir == "" {
		return modules, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	res, err := registry.NewSeeder(modules, cfg.ModulesDir, logger).
		WithMaxBytes(cfg.MaxSourceBytes).
		Seed(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to seed modules: %w", err)
	}
	logger.Info("Module library loaded",
		zap.String("dir", cfg.ModulesDir),
		zap.Int("sources", res.Loaded),
		zap.Int("saved", res.Restored),
		zap.Int("failed", res.Failed))
	return modules, nil
}
