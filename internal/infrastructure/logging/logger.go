package logging

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the service logger. Its level can change at runtime.
type Logger struct {
	*zap.Logger
	level zap.AtomicLevel
}

// Config selects level, encoder and sinks.
type Config struct {
	Level       string // "debug", "info", "warn", "error"
	Development bool
	OutputPaths []string
	// Sample keeps the first N entries per message and second, then one in
	// every N. Zero disables sampling.
	Sample int
}

// DefaultConfig logs JSON at info to stdout.
func DefaultConfig() Config {
	return Config{Level: "info", OutputPaths: []string{"stdout"}}
}

// DevelopmentConfig logs colored console output at debug.
func DevelopmentConfig() Config {
	return Config{Level: "debug", Development: true, OutputPaths: []string{"stdout"}}
}

// New builds a logger from cfg.
func New(cfg Config) (*Logger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	outputs := cfg.OutputPaths
	if len(outputs) == 0 {
		outputs = []string{"stdout"}
	}

	atom := zap.NewAtomicLevelAt(lvl)
	zc := zap.Config{
		Level:             atom,
		Development:       cfg.Development,
		Encoding:          "json",
		EncoderConfig:     jsonEncoder(),
		OutputPaths:       outputs,
		ErrorOutputPaths:  []string{"stderr"},
		DisableStacktrace: !cfg.Development,
	}
	if cfg.Development {
		zc.Encoding = "console"
		zc.EncoderConfig = consoleEncoder()
	}
	if cfg.Sample > 0 && !cfg.Development {
		zc.Sampling = &zap.SamplingConfig{Initial: cfg.Sample, Thereafter: cfg.Sample}
	}

	z, err := zc.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{Logger: z, level: atom}, nil
}

// NewDefault returns a DefaultConfig logger, or a no-op logger if it cannot be built.
func NewDefault() *Logger {
	return orNop(New(DefaultConfig()))
}

// NewDevelopment returns a DevelopmentConfig logger, or a no-op logger if it cannot be built.
func NewDevelopment() *Logger {
	return orNop(New(DevelopmentConfig()))
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{Logger: zap.NewNop(), level: zap.NewAtomicLevelAt(zapcore.FatalLevel)}
}

func orNop(l *Logger, err error) *Logger {
	if err != nil {
		return Nop()
	}
	return l
}

// Named returns a child logger sharing the parent's level.
func (l *Logger) Named(name string) *Logger {
	return &Logger{Logger: l.Logger.Named(name), level: l.level}
}

// Level reports the current level.
func (l *Logger) Level() zapcore.Level {
	return l.level.Level()
}

// SetLevel changes the level of this logger and every logger derived from it.
func (l *Logger) SetLevel(level string) error {
	return l.level.UnmarshalText([]byte(level))
}

// LevelHandler serves the level as JSON: GET reads it, PUT {"level":"debug"} changes it.
func (l *Logger) LevelHandler() http.Handler {
	return l.level
}

func jsonEncoder() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

func consoleEncoder() zapcore.EncoderConfig {
	enc := jsonEncoder()
	enc.TimeKey, enc.LevelKey, enc.NameKey = "T", "L", "N"
	enc.CallerKey, enc.MessageKey, enc.StacktraceKey = "C", "M", "S"
	enc.EncodeLevel = zapcore.CapitalColorLevelEncoder
	enc.EncodeDuration = zapcore.StringDurationEncoder
	return enc
}
