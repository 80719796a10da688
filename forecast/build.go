package forecast

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/wyfcoding/mcsim/algorithm/model"
	"github.com/wyfcoding/mcsim/algorithm/random"
	"github.com/wyfcoding/mcsim/algorithm/sim"
	"github.com/wyfcoding/mcsim/config"
	"github.com/wyfcoding/mcsim/xerrors"
)

// BuildModel 按模型配置构造模型. 配置了 History 时先用历史价格估计 GBM 参数，
// 配置了 Theta 时为 Hull-White 编译 θ(t) 表达式.
func (s *Service) BuildModel(ctx context.Context, mc config.ModelConfig) (model.Model, error) {
	kind, err := mc.Kind()
	if err != nil {
		return nil, err
	}
	params := mc.ToParams()

	if mc.History != "" {
		if kind != model.KindGBM {
			return nil, xerrors.InvalidArgument("history calibration only supports gbm, got %s", kind)
		}
		prices, err := LoadPrices(mc.History)
		if err != nil {
			return nil, err
		}
		if params, err = model.CalibrateGBM(prices, s.cfg.Risk.PeriodsPerYear); err != nil {
			return nil, err
		}
		s.logger.InfoContext(ctx, "calibrated gbm from history",
			"file", mc.History, "prices", len(prices),
			"initial_value", params.InitialValue, "drift", params.Drift, "volatility", params.Volatility)
	}

	m, err := model.New(kind, params)
	if err != nil {
		return nil, err
	}
	if mc.Theta != "" {
		hw, ok := m.(*model.HullWhite)
		if !ok {
			return nil, xerrors.InvalidArgument("theta expression requires hull_white model, got %s", kind)
		}
		fn, err := model.CompileTheta(mc.Theta)
		if err != nil {
			return nil, err
		}
		if err := hw.SetThetaFunction(fn); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// BuildSource 按模拟配置构造共享随机源.
func (s *Service) BuildSource() (random.Source, error) {
	sc := s.cfg.Simulation
	kind, err := random.ParseKind(sc.Source)
	if err != nil {
		return nil, err
	}
	dim := sc.SobolDimension
	if dim == 0 {
		dim = min(sc.Steps, random.MaxSobolDimension)
	}
	return random.New(kind, sc.Seed, dim)
}

// BuildSimulator 按模拟配置构造模拟器，并挂接指标与进度日志.
func (s *Service) BuildSimulator(ctx context.Context, m model.Model) (*sim.Simulator, error) {
	sc := s.cfg.Simulation
	src, err := s.BuildSource()
	if err != nil {
		return nil, err
	}

	opts := []sim.Option{
		sim.WithSource(src),
		sim.WithSeed(sc.Seed),
		sim.WithRetainedPaths(sc.RetainedPaths),
		sim.WithProgress(func(done, total int) {
			s.logger.DebugContext(ctx, "simulation progress", "model", m.Name(), "done", done, "total", total)
		}),
	}
	if sc.Threads > 0 {
		opts = append(opts, sim.WithNumThreads(sc.Threads))
	}
	if sc.Antithetic {
		opts = append(opts, sim.WithAntithetic())
	}
	if sc.PerPathStreams {
		opts = append(opts, sim.WithPerPathStreams())
	}
	if s.simMetrics != nil {
		opts = append(opts, sim.WithObserver(s.simMetrics))
	}
	return sim.NewSimulator(m, opts...)
}

// LoadPrices 读取历史价格 CSV. 每行取最后一列，无法解析为数字的行 (如表头) 被跳过.
func LoadPrices(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, xerrors.Wrap(err, xerrors.ErrNotFound, "history file not found")
		}
		return nil, xerrors.WrapInternal(err, "open history file")
	}
	defer f.Close()
	return ReadPrices(f)
}

// ReadPrices 从 CSV 流读取价格序列.
func ReadPrices(r io.Reader) ([]float64, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var prices []float64
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, xerrors.Wrap(err, xerrors.ErrInvalidArg, "parse history csv")
		}
		if len(rec) == 0 {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(rec[len(rec)-1]), 64)
		if err != nil {
			continue
		}
		prices = append(prices, v)
	}
	if len(prices) == 0 {
		return nil, xerrors.ErrEmptyData.WithDetail("history contains no prices")
	}
	return prices, nil
}
