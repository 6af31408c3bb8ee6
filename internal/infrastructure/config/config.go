package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
	"github.com/mitchellh/mapstructure"
	"github.com/pelletier/go-toml/v2"

	"github.com/GriffinCanCode/AgentOS/sandbox/internal/shared/utils"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `config:"server"`
	Logging   LogConfig       `config:"logging"`
	RateLimit RateLimitConfig `config:"rate_limit"`
	Sandbox   SandboxConfig   `config:"sandbox"`
	Transform TransformConfig `config:"transform"`
	Paint     PaintConfig     `config:"paint"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"8080" config:"port"`
	Host            string        `envconfig:"HOST" default:"0.0.0.0" config:"host"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s" config:"shutdown_timeout"`
	// GRPCPort enables the gRPC listener when set
	GRPCPort string `envconfig:"GRPC_PORT" config:"grpc_port"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info" config:"level"`
	Development bool   `envconfig:"LOG_DEV" default:"false" config:"development"`
	// TraceSpans logs a span per HTTP request and gRPC call
	TraceSpans bool `envconfig:"LOG_TRACE_SPANS" default:"true" config:"trace_spans"`
	// Sample thins repeated production log lines; zero keeps every line
	Sample int `envconfig:"LOG_SAMPLE" default:"0" config:"sample"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100" config:"requests_per_second"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200" config:"burst"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true" config:"enabled"`
}

// SandboxConfig holds execution host configuration.
type SandboxConfig struct {
	Width          float64       `envconfig:"SANDBOX_WIDTH" default:"390" config:"width"`
	Height         float64       `envconfig:"SANDBOX_HEIGHT" default:"844" config:"height"`
	MaxSourceBytes int           `envconfig:"SANDBOX_MAX_SOURCE_BYTES" default:"262144" config:"max_source_bytes"`
	Watchdog       time.Duration `envconfig:"SANDBOX_WATCHDOG" default:"5s" config:"watchdog"`
	Inbox          int           `envconfig:"SANDBOX_INBOX" default:"8" config:"inbox"`
	PoolSize       int           `envconfig:"SANDBOX_POOL_SIZE" default:"4" config:"pool_size"`
	AcquireTimeout time.Duration `envconfig:"SANDBOX_ACQUIRE_TIMEOUT" default:"5s" config:"acquire_timeout"`
	MaxRerenders   int           `envconfig:"SANDBOX_MAX_RERENDERS" default:"25" config:"max_rerenders"`
	DebugState     bool          `envconfig:"SANDBOX_DEBUG_STATE" default:"false" config:"debug_state"`
	EnableConsole  bool          `envconfig:"SANDBOX_CONSOLE" default:"true" config:"console"`
	ModulesDir     string        `envconfig:"SANDBOX_MODULES_DIR" config:"modules_dir"`
	MaxModules     int           `envconfig:"SANDBOX_MAX_MODULES" default:"1000" config:"max_modules"`
}

// TransformConfig selects the transformer and its cache.
type TransformConfig struct {
	RemoteURL     string        `envconfig:"TRANSFORM_URL" config:"remote_url"`
	RemoteTimeout time.Duration `envconfig:"TRANSFORM_TIMEOUT" default:"10s" config:"remote_timeout"`
	Cache         string        `envconfig:"TRANSFORM_CACHE" default:"memory" config:"cache"`
	RedisAddr     string        `envconfig:"REDIS_ADDR" default:"localhost:6379" config:"redis_addr"`
	RedisTTL      time.Duration `envconfig:"TRANSFORM_CACHE_TTL" default:"1h" config:"redis_ttl"`
	MaxEntries    int           `envconfig:"TRANSFORM_CACHE_ENTRIES" default:"256" config:"max_entries"`
	KeyHash       string        `envconfig:"TRANSFORM_KEY_HASH" default:"sha256" config:"key_hash"`
}

// PaintConfig holds raster rendering configuration.
type PaintConfig struct {
	Background string `envconfig:"PAINT_BACKGROUND" default:"#ffffff" config:"background"`
	MaxWidth   int    `envconfig:"PAINT_MAX_WIDTH" default:"2048" config:"max_width"`
	MaxHeight  int    `envconfig:"PAINT_MAX_HEIGHT" default:"4096" config:"max_height"`
}

// Cache backends
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// LoadFile overlays a TOML or YAML file on the defaults. The format is
// chosen by extension. Environment variables are not consulted.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	raw := map[string]interface{}{}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		err = toml.Unmarshal(data, &raw)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &raw)
	default:
		return nil, fmt.Errorf("unsupported config format %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	cfg := Default()
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "config",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		Result:           cfg,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values no component can run with.
func (c *Config) Validate() error {
	switch c.Transform.Cache {
	case CacheNone, CacheMemory, CacheRedis:
	default:
		return fmt.Errorf("unknown transform cache %q", c.Transform.Cache)
	}
	if c.Sandbox.Width <= 0 || c.Sandbox.Height <= 0 {
		return fmt.Errorf("invalid default container %gx%g", c.Sandbox.Width, c.Sandbox.Height)
	}
	if c.Sandbox.MaxSourceBytes <= 0 {
		return fmt.Errorf("max source bytes must be positive")
	}
	if _, err := utils.ParseAlgorithm(c.Transform.KeyHash); err != nil {
		return err
	}
	return nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			Host:            "0.0.0.0",
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
			TraceSpans:  true,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
		Sandbox: SandboxConfig{
			Width:          390,
			Height:         844,
			MaxSourceBytes: 256 << 10,
			Watchdog:       5 * time.Second,
			Inbox:          8,
			PoolSize:       4,
			AcquireTimeout: 5 * time.Second,
			MaxRerenders:   25,
			DebugState:     false,
			EnableConsole:  true,
			MaxModules:     1000,
		},
		Transform: TransformConfig{
			RemoteTimeout: 10 * time.Second,
			Cache:         CacheMemory,
			RedisAddr:     "localhost:6379",
			RedisTTL:      time.Hour,
			MaxEntries:    256,
			KeyHash:       "sha256",
		},
		Paint: PaintConfig{
			Background: "#ffffff",
			MaxWidth:   2048,
			MaxHeight:  4096,
		},
	}
}
