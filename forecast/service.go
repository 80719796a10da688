// Package forecast 是模拟引擎的应用层：根据配置构造模型与模拟器，
// 负责日志、追踪、指标与结果缓存，并支持多情景并行与多资产组合模拟.
package forecast

import (
	"context"
	"errors"
	"os"

	"github.com/wyfcoding/mcsim/app"
	"github.com/wyfcoding/mcsim/cache"
	"github.com/wyfcoding/mcsim/config"
	"github.com/wyfcoding/mcsim/logging"
	"github.com/wyfcoding/mcsim/metrics"
	"github.com/wyfcoding/mcsim/tracing"
	"github.com/wyfcoding/mcsim/xerrors"
)

// ServiceName 日志、追踪与指标中使用的服务名.
const ServiceName = "mcsim"

// Version 构建版本，由链接参数覆盖.
var Version = "dev"

// Option 服务选项.
type Option func(*Service)

// WithLogger 使用指定 logger，默认按配置创建.
func WithLogger(l *logging.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithMetrics 使用指定指标注册表.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithCache 使用指定结果缓存.
func WithCache(c cache.Cache) Option {
	return func(s *Service) { s.cache = c }
}

// Service 预测服务.
type Service struct {
	cfg        *config.Config
	logger     *logging.Logger
	metrics    *metrics.Metrics
	simMetrics *metrics.SimulationMetrics
	cache      cache.Cache
	lc         *app.Lifecycle
}

// New 根据配置创建服务. 配置先经过校验.
func New(cfg *config.Config, opts ...Option) (*Service, error) {
	if cfg == nil {
		return nil, xerrors.InvalidArgument("config must not be nil")
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	s := &Service{cfg: cfg}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.NewFromConfig(cfg.Log.ToLogging(ServiceName))
	}
	if s.metrics == nil && cfg.Metrics.Enabled {
		s.metrics = metrics.NewMetrics(ServiceName)
	}
	if s.metrics != nil {
		s.metrics.RegisterBuildInfo(ServiceName, Version)
		s.simMetrics = metrics.NewSimulationMetrics(s.metrics)
	}
	if s.cache == nil && cfg.Cache.Enabled {
		c, err := cache.NewBigCache(cache.Options{
			LifeWindow:       cfg.Cache.LifeWindow,
			Shards:           cfg.Cache.Shards,
			HardMaxCacheSize: cfg.Cache.HardMaxCacheSize,
			Compress:         cfg.Cache.Compress,
		})
		if err != nil {
			return nil, err
		}
		s.cache = c
	}

	s.lc = app.NewLifecycle(s.logger.Logger)
	s.registerHooks()
	return s, nil
}

func (s *Service) registerHooks() {
	if s.cfg.Tracing.Enabled {
		var shutdown func(context.Context) error
		s.lc.Append(app.Hook{
			Name: "tracing",
			OnStart: func(ctx context.Context) (err error) {
				shutdown, err = tracing.InitTracer(ctx, ServiceName, s.cfg.Tracing)
				return err
			},
			OnStop: func(ctx context.Context) error { return shutdown(ctx) },
		})
	}
	if s.metrics != nil && s.cfg.Metrics.Addr != "" {
		var stop func()
		s.lc.Append(app.Hook{
			Name: "metrics-server",
			OnStart: func(context.Context) error {
				stop = s.metrics.ExposeHTTP(s.cfg.Metrics.Addr)
				return nil
			},
			OnStop: func(context.Context) error { stop(); return nil },
		})
	}
	if s.metrics != nil && s.cfg.Metrics.Output != "" {
		s.lc.Append(app.Hook{
			Name:   "metrics-dump",
			OnStop: func(context.Context) error { return s.dumpMetrics(s.cfg.Metrics.Output) },
		})
	}
}

func (s *Service) dumpMetrics(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return xerrors.WrapInternal(err, "create metrics output")
	}
	if err := s.metrics.WriteText(f); err != nil {
		return errors.Join(xerrors.WrapInternal(err, "write metrics"), f.Close())
	}
	return f.Close()
}

// Start 启动追踪与指标服务等附属组件.
func (s *Service) Start(ctx context.Context) error {
	return s.lc.Start(ctx)
}

// Close 按相反顺序关闭附属组件，最后关闭结果缓存.
func (s *Service) Close(ctx context.Context) error {
	err := s.lc.Stop(ctx)
	if s.cache != nil {
		err = errors.Join(err, s.cache.Close())
	}
	return err
}

// Config 返回服务配置.
func (s *Service) Config() *config.Config { return s.cfg }

// Logger 返回服务 logger.
func (s *Service) Logger() *logging.Logger { return s.logger }

// Metrics 返回指标注册表，未启用时为 nil.
func (s *Service) Metrics() *metrics.Metrics { return s.metrics }
