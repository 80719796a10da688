// Package config 提供模拟引擎的配置加载、校验与保存.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/wyfcoding/mcsim/algorithm/model"
	"github.com/wyfcoding/mcsim/logging"
	"github.com/wyfcoding/mcsim/xerrors"
)

// EnvPrefix 环境变量前缀，例如 MCSIM_SIMULATION_PATHS.
const EnvPrefix = "MCSIM"

// Config 全局顶级配置结构.
type Config struct {
	Version    string           `mapstructure:"version"    toml:"version"`
	Simulation SimulationConfig `mapstructure:"simulation" toml:"simulation"`
	Model      ModelConfig      `mapstructure:"model"      toml:"model"`
	Risk       RiskConfig       `mapstructure:"risk"       toml:"risk"`
	Portfolio  PortfolioConfig  `mapstructure:"portfolio"  toml:"portfolio"`
	Scenarios  []ScenarioConfig `mapstructure:"scenarios"  toml:"scenarios"  validate:"dive"`
	Log        LogConfig        `mapstructure:"log"        toml:"log"`
	Tracing    TracingConfig    `mapstructure:"tracing"    toml:"tracing"`
	Metrics    MetricsConfig    `mapstructure:"metrics"    toml:"metrics"`
	Cache      CacheConfig      `mapstructure:"cache"      toml:"cache"`
	Report     ReportConfig     `mapstructure:"report"     toml:"report"`
}

// SimulationConfig 定义路径数、步长与并行参数.
type SimulationConfig struct {
	Paths          int     `mapstructure:"paths"            toml:"paths"            validate:"min=1"`
	Steps          int     `mapstructure:"steps"            toml:"steps"            validate:"min=1"`
	Dt             float64 `mapstructure:"dt"               toml:"dt"               validate:"gt=0"`
	Seed           uint64  `mapstructure:"seed"             toml:"seed"`
	Threads        int     `mapstructure:"threads"          toml:"threads"          validate:"min=0"` // 0 表示 GOMAXPROCS
	BatchSize      int     `mapstructure:"batch_size"       toml:"batch_size"       validate:"min=0"` // 0 表示不分批
	RetainedPaths  int     `mapstructure:"retained_paths"   toml:"retained_paths"   validate:"min=0"`
	Source         string  `mapstructure:"source"           toml:"source"           validate:"oneof=normal sobol"`
	SobolDimension int     `mapstructure:"sobol_dimension"  toml:"sobol_dimension"  validate:"min=0,max=10"` // 0 表示取 min(steps, 10)
	Antithetic     bool    `mapstructure:"antithetic"       toml:"antithetic"`
	PerPathStreams bool    `mapstructure:"per_path_streams" toml:"per_path_streams"`
}

// ModelConfig 定义随机过程类型与参数.
type ModelConfig struct {
	Type          string  `mapstructure:"type"           toml:"type"           validate:"required"`
	InitialValue  float64 `mapstructure:"initial_value"  toml:"initial_value"`
	Drift         float64 `mapstructure:"drift"          toml:"drift"`
	MeanReversion float64 `mapstructure:"mean_reversion" toml:"mean_reversion" validate:"gte=0"`
	LongTermMean  float64 `mapstructure:"long_term_mean" toml:"long_term_mean"`
	Volatility    float64 `mapstructure:"volatility"     toml:"volatility"     validate:"gte=0"`
	Theta         string  `mapstructure:"theta"          toml:"theta,omitempty"`   // Hull-White θ(t) 表达式
	History       string  `mapstructure:"history"        toml:"history,omitempty"` // 历史价格 CSV，用于 GBM 参数估计
}

// RiskConfig 定义风险指标参数.
type RiskConfig struct {
	Confidence     float64   `mapstructure:"confidence"       toml:"confidence"       validate:"gt=0,lt=1"`
	RiskFreeRate   float64   `mapstructure:"risk_free_rate"   toml:"risk_free_rate"`
	PeriodsPerYear float64   `mapstructure:"periods_per_year" toml:"periods_per_year" validate:"gt=0"`
	Percentiles    []float64 `mapstructure:"percentiles"      toml:"percentiles"      validate:"dive,gte=0,lte=1"`
	Targets        []float64 `mapstructure:"targets"          toml:"targets"`
}

// PortfolioConfig 定义多资产相关模拟.
type PortfolioConfig struct {
	Assets      []AssetConfig `mapstructure:"assets"      toml:"assets"      validate:"dive"`
	Correlation [][]float64   `mapstructure:"correlation" toml:"correlation"`
	Mixing      string        `mapstructure:"mixing"      toml:"mixing"      validate:"oneof=linear cholesky"`
}

// AssetConfig 单个资产.
type AssetConfig struct {
	Name   string      `mapstructure:"name"   toml:"name"   validate:"required"`
	Weight float64     `mapstructure:"weight" toml:"weight"`
	Model  ModelConfig `mapstructure:"model"  toml:"model"`
}

// ScenarioConfig compare 命令使用的对比情景.
type ScenarioConfig struct {
	Name  string      `mapstructure:"name"  toml:"name"  validate:"required"`
	Model ModelConfig `mapstructure:"model" toml:"model"`
}

// LogConfig 定义日志输出、级别与切割策略.
type LogConfig struct {
	Level      string `mapstructure:"level"       toml:"level"       validate:"oneof=debug info warn error"` // 日志级别。
	Format     string `mapstructure:"format"      toml:"format"      validate:"oneof=json text"`             // 日志格式。
	File       string `mapstructure:"file"        toml:"file"`                                               // 日志文件路径。
	MaxSize    int    `mapstructure:"max_size"    toml:"max_size"`                                           // 单个文件最大大小 (MB)。
	MaxBackups int    `mapstructure:"max_backups" toml:"max_backups"`                                        // 最大备份数。
	MaxAge     int    `mapstructure:"max_age"     toml:"max_age"`                                            // 最大保留天数。
	Compress   bool   `mapstructure:"compress"    toml:"compress"`                                           // 是否启用压缩。
}

// TracingConfig 链路追踪配置. OTLPEndpoint 为空时只在本地生成 span，用于日志关联.
type TracingConfig struct {
	Enabled      bool    `mapstructure:"enabled"       toml:"enabled"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint" toml:"otlp_endpoint"`
	SamplerRatio float64 `mapstructure:"sampler_ratio" toml:"sampler_ratio" validate:"gte=0,lte=1"`
}

// MetricsConfig 指标配置. Addr 非空时通过 HTTP 暴露，Output 非空时运行结束后写出文本格式.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" toml:"enabled"`
	Addr    string `mapstructure:"addr"    toml:"addr"`
	Output  string `mapstructure:"output"  toml:"output"`
}

// CacheConfig 结果缓存配置.
type CacheConfig struct {
	Enabled          bool          `mapstructure:"enabled"             toml:"enabled"`
	LifeWindow       time.Duration `mapstructure:"life_window"         toml:"life_window"`
	Shards           int           `mapstructure:"shards"              toml:"shards"`
	HardMaxCacheSize int           `mapstructure:"hard_max_cache_size" toml:"hard_max_cache_size"` // MB
	Compress         bool          `mapstructure:"compress"            toml:"compress"`
}

// ReportConfig 报告输出配置.
type ReportConfig struct {
	Format    string `mapstructure:"format"    toml:"format"    validate:"oneof=text csv json yaml"`
	Output    string `mapstructure:"output"    toml:"output"` // 为空输出到标准输出
	Precision int32  `mapstructure:"precision" toml:"precision" validate:"min=0,max=16"`
}

// Kind 解析模型类型.
func (m ModelConfig) Kind() (model.Kind, error) {
	return model.ParseKind(m.Type)
}

// ToParams 转换为模型参数.
func (m ModelConfig) ToParams() model.Params {
	return model.Params{
		InitialValue:  m.InitialValue,
		Drift:         m.Drift,
		MeanReversion: m.MeanReversion,
		LongTermMean:  m.LongTermMean,
		Volatility:    m.Volatility,
	}
}

// ToLogging 转换为 logging.Config.
func (l LogConfig) ToLogging(service string) logging.Config {
	return logging.Config{
		Service:    service,
		Module:     "forecast",
		Level:      l.Level,
		Format:     l.Format,
		File:       l.File,
		MaxSize:    l.MaxSize,
		MaxBackups: l.MaxBackups,
		MaxAge:     l.MaxAge,
		Compress:   l.Compress,
	}
}

// Default 返回默认配置.
func Default() *Config {
	return &Config{
		Version: "1",
		Simulation: SimulationConfig{
			Paths:         10000,
			Steps:         252,
			Dt:            1.0 / 252,
			Seed:          12345,
			RetainedPaths: 100,
			Source:        "normal",
		},
		Model: ModelConfig{
			Type:         "gbm",
			InitialValue: 1.0,
			Drift:        0.05,
			Volatility:   0.2,
		},
		Risk: RiskConfig{
			Confidence:     0.95,
			RiskFreeRate:   0.03,
			PeriodsPerYear: 252,
			Percentiles:    []float64{0.01, 0.05, 0.25, 0.5, 0.75, 0.95, 0.99},
		},
		Portfolio: PortfolioConfig{Mixing: "linear"},
		Log:       LogConfig{Level: "info", Format: "json", MaxSize: 100, MaxBackups: 3, MaxAge: 7},
		Tracing:   TracingConfig{SamplerRatio: 1},
		Cache: CacheConfig{
			LifeWindow:       10 * time.Minute,
			Shards:           64,
			HardMaxCacheSize: 256,
			Compress:         true,
		},
		Report: ReportConfig{Format: "text", Precision: 6},
	}
}

// setDefaults 把默认配置注册到 viper，使环境变量可以覆盖每个键.
func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("version", d.Version)

	v.SetDefault("simulation.paths", d.Simulation.Paths)
	v.SetDefault("simulation.steps", d.Simulation.Steps)
	v.SetDefault("simulation.dt", d.Simulation.Dt)
	v.SetDefault("simulation.seed", d.Simulation.Seed)
	v.SetDefault("simulation.threads", d.Simulation.Threads)
	v.SetDefault("simulation.batch_size", d.Simulation.BatchSize)
	v.SetDefault("simulation.retained_paths", d.Simulation.RetainedPaths)
	v.SetDefault("simulation.source", d.Simulation.Source)
	v.SetDefault("simulation.sobol_dimension", d.Simulation.SobolDimension)
	v.SetDefault("simulation.antithetic", d.Simulation.Antithetic)
	v.SetDefault("simulation.per_path_streams", d.Simulation.PerPathStreams)

	v.SetDefault("model.type", d.Model.Type)
	v.SetDefault("model.initial_value", d.Model.InitialValue)
	v.SetDefault("model.drift", d.Model.Drift)
	v.SetDefault("model.mean_reversion", d.Model.MeanReversion)
	v.SetDefault("model.long_term_mean", d.Model.LongTermMean)
	v.SetDefault("model.volatility", d.Model.Volatility)
	v.SetDefault("model.theta", "")
	v.SetDefault("model.history", "")

	v.SetDefault("risk.confidence", d.Risk.Confidence)
	v.SetDefault("risk.risk_free_rate", d.Risk.RiskFreeRate)
	v.SetDefault("risk.periods_per_year", d.Risk.PeriodsPerYear)
	v.SetDefault("risk.percentiles", d.Risk.Percentiles)

	v.SetDefault("portfolio.mixing", d.Portfolio.Mixing)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size", d.Log.MaxSize)
	v.SetDefault("log.max_backups", d.Log.MaxBackups)
	v.SetDefault("log.max_age", d.Log.MaxAge)
	v.SetDefault("log.compress", d.Log.Compress)

	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.otlp_endpoint", "")
	v.SetDefault("tracing.sampler_ratio", d.Tracing.SamplerRatio)

	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.addr", "")
	v.SetDefault("metrics.output", "")

	v.SetDefault("cache.enabled", d.Cache.Enabled)
	v.SetDefault("cache.life_window", d.Cache.LifeWindow)
	v.SetDefault("cache.shards", d.Cache.Shards)
	v.SetDefault("cache.hard_max_cache_size", d.Cache.HardMaxCacheSize)
	v.SetDefault("cache.compress", d.Cache.Compress)

	v.SetDefault("report.format", d.Report.Format)
	v.SetDefault("report.output", "")
	v.SetDefault("report.precision", d.Report.Precision)
}

// New 创建带默认值与环境变量绑定的 viper 实例.
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetConfigType("toml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load 读取 TOML 配置文件 (path 为空时只使用默认值与环境变量) 并校验.
func Load(path string) (*Config, error) {
	v := New()
	if err := ReadFile(v, path); err != nil {
		return nil, err
	}
	return FromViper(v)
}

// ReadFile 将配置文件读入 v，path 为空时不做任何事. 命令行在此之后绑定标志.
func ReadFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			return xerrors.Wrap(err, xerrors.ErrNotFound, "config file not found")
		}
		return xerrors.Wrap(err, xerrors.ErrInvalidArg, "read config error")
	}
	return nil
}

// FromViper 从已准备好的 viper 实例解码并校验配置.
func FromViper(v *viper.Viper) (*Config, error) {
	var conf Config
	if err := v.Unmarshal(&conf); err != nil {
		return nil, xerrors.Wrap(err, xerrors.ErrInvalidArg, "unmarshal config error")
	}
	if err := Validate(&conf); err != nil {
		return nil, err
	}
	return &conf, nil
}

var validate = validator.New()

// Validate 执行结构体标签校验与跨字段校验.
func Validate(c *Config) error {
	if err := validate.Struct(c); err != nil {
		return xerrors.Wrap(err, xerrors.ErrInvalidArg, "config validation failed")
	}
	if _, err := c.Model.Kind(); err != nil {
		return err
	}
	for _, s := range c.Scenarios {
		if _, err := s.Model.Kind(); err != nil {
			return err
		}
	}
	if c.Simulation.BatchSize > c.Simulation.Paths {
		return xerrors.InvalidArgument("simulation.batch_size %d exceeds simulation.paths %d",
			c.Simulation.BatchSize, c.Simulation.Paths)
	}
	return validatePortfolio(c.Portfolio)
}

func validatePortfolio(p PortfolioConfig) error {
	n := len(p.Assets)
	if n == 0 {
		return nil
	}
	for _, a := range p.Assets {
		if _, err := a.Model.Kind(); err != nil {
			return err
		}
	}
	if len(p.Correlation) == 0 {
		return nil
	}
	if len(p.Correlation) != n {
		return xerrors.InvalidArgument("portfolio.correlation has %d rows for %d assets", len(p.Correlation), n)
	}
	for i, row := range p.Correlation {
		if len(row) != n {
			return xerrors.InvalidArgument("portfolio.correlation row %d has %d columns, want %d", i, len(row), n)
		}
	}
	return nil
}

// Save 将配置以 TOML 格式写入 path.
func Save(path string, c *Config) error {
	f, err := os.Create(path)
	if err != nil {
		return xerrors.WrapInternal(err, "create config file")
	}
	defer f.Close()
	if err := Write(f, c); err != nil {
		return err
	}
	return f.Close()
}

// Write 将配置以 TOML 格式写入 w.
func Write(w io.Writer, c *Config) error {
	if err := toml.NewEncoder(w).Encode(c); err != nil {
		return xerrors.WrapInternal(err, fmt.Sprintf("encode config version %q", c.Version))
	}
	return nil
}
