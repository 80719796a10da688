// Package logging 提供统一的结构化日志（slog）封装，支持 OpenTelemetry 追踪上下文注入与日志文件切割。
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	defaultLogger *Logger
	mu            sync.RWMutex
)

// Config 定义日志配置
type Config struct {
	Service    string    `mapstructure:"service" toml:"service"`
	Module     string    `mapstructure:"module" toml:"module"`
	Level      string    `mapstructure:"level" toml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format     string    `mapstructure:"format" toml:"format" validate:"omitempty,oneof=json text"`
	File       string    `mapstructure:"file" toml:"file"` // 日志文件路径，为空则只输出到 Output
	MaxSize    int       `mapstructure:"max_size" toml:"max_size"`
	MaxBackups int       `mapstructure:"max_backups" toml:"max_backups"`
	MaxAge     int       `mapstructure:"max_age" toml:"max_age"`
	Compress   bool      `mapstructure:"compress" toml:"compress"`
	Output     io.Writer `mapstructure:"-" toml:"-"` // 默认 os.Stderr
}

// Logger 封装 `*slog.Logger`，附带服务名、模块名以及可动态调整的级别。
type Logger struct {
	*slog.Logger
	Service string
	Module  string
	level   *slog.LevelVar
}

// TraceHandler 从 context 中提取 trace_id 与 span_id 注入日志记录。
type TraceHandler struct {
	slog.Handler
}

func (h *TraceHandler) Handle(ctx context.Context, r slog.Record) error {
	spanCtx := trace.SpanContextFromContext(ctx)
	if spanCtx.IsValid() {
		r.AddAttrs(
			slog.String("trace_id", spanCtx.TraceID().String()),
			slog.String("span_id", spanCtx.SpanID().String()),
		)
	}
	return h.Handler.Handle(ctx, r)
}

func (h *TraceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &TraceHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *TraceHandler) WithGroup(name string) slog.Handler {
	return &TraceHandler{Handler: h.Handler.WithGroup(name)}
}

// ParseLevel 将字符串级别转换为 slog.Level，未知值按 info 处理。
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewFromConfig 创建一个新的 Logger 实例。
// 配置了 File 时同时写入切割文件（JSON）与 Output。
func NewFromConfig(cfg Config) *Logger {
	level := new(slog.LevelVar)
	level.Set(ParseLevel(cfg.Level))

	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				a.Key = "timestamp"
			}
			return a
		},
	}

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	var console slog.Handler
	if cfg.Format == "text" {
		console = slog.NewTextHandler(out, opts)
	} else {
		console = slog.NewJSONHandler(out, opts)
	}

	handler := console
	if cfg.File != "" {
		fileWriter := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
		handler = newMultiHandler(console, slog.NewJSONHandler(fileWriter, opts))
	}

	logger := slog.New(&TraceHandler{Handler: handler}).With(
		slog.String("service", cfg.Service),
		slog.String("module", cfg.Module),
	)

	return &Logger{
		Logger:  logger,
		Service: cfg.Service,
		Module:  cfg.Module,
		level:   level,
	}
}

// NewLogger 以简单参数创建 logger。
func NewLogger(service, module string, level ...string) *Logger {
	lvl := "info"
	if len(level) > 0 {
		lvl = level[0]
	}
	return NewFromConfig(Config{Service: service, Module: module, Level: lvl})
}

// SetLevel 动态调整日志级别。
func (l *Logger) SetLevel(level string) {
	if l.level != nil {
		l.level.Set(ParseLevel(level))
	}
}

// WithModule 派生一个模块名不同的子 logger，共享级别。
func (l *Logger) WithModule(module string) *Logger {
	return &Logger{
		Logger:  l.Logger.With(slog.String("sub_module", module)),
		Service: l.Service,
		Module:  module,
		level:   l.level,
	}
}

// SetDefault 设置全局默认日志记录器，同时替换 slog 默认实例。
func SetDefault(l *Logger) {
	mu.Lock()
	defaultLogger = l
	mu.Unlock()
	slog.SetDefault(l.Logger)
}

// Default 返回默认日志记录器实例
func Default() *Logger {
	mu.RLock()
	l := defaultLogger
	mu.RUnlock()
	if l != nil {
		return l
	}
	mu.Lock()
	defer mu.Unlock()
	if defaultLogger == nil {
		defaultLogger = NewLogger("mcsim", "default")
	}
	return defaultLogger
}

// SetLevel 调整默认日志记录器级别。
func SetLevel(level string) {
	Default().SetLevel(level)
}

func Info(ctx context.Context, msg string, args ...any) {
	Default().InfoContext(ctx, msg, args...)
}

func Warn(ctx context.Context, msg string, args ...any) {
	Default().WarnContext(ctx, msg, args...)
}

func Error(ctx context.Context, msg string, args ...any) {
	Default().ErrorContext(ctx, msg, args...)
}

func Debug(ctx context.Context, msg string, args ...any) {
	Default().DebugContext(ctx, msg, args...)
}

// LogDuration 记录操作耗时
func LogDuration(ctx context.Context, operation string, args ...any) func() {
	start := time.Now()
	return func() {
		logArgs := append(args, "duration", time.Since(start))
		Info(ctx, fmt.Sprintf("%s finished", operation), logArgs...)
	}
}

// LogDuration 使用当前 logger 记录操作耗时
func (l *Logger) LogDuration(ctx context.Context, operation string, args ...any) func() {
	start := time.Now()
	return func() {
		logArgs := append(args, "duration", time.Since(start))
		l.InfoContext(ctx, fmt.Sprintf("%s finished", operation), logArgs...)
	}
}
