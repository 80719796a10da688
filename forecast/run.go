package forecast

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/wyfcoding/mcsim/algorithm/sim"
	"github.com/wyfcoding/mcsim/analysis"
	"github.com/wyfcoding/mcsim/cache"
	"github.com/wyfcoding/mcsim/config"
	"github.com/wyfcoding/mcsim/tracing"
	"github.com/wyfcoding/mcsim/xerrors"
)

// Outcome 一次情景运行的产出. 命中缓存时 Result 为 nil.
type Outcome struct {
	Name   string
	Report *analysis.Report
	Result *sim.Result
	Cached bool
}

// Run 以配置中的模拟参数运行 mc 描述的模型.
func (s *Service) Run(ctx context.Context, mc config.ModelConfig) (*Outcome, error) {
	return s.run(ctx, mc.Type, mc)
}

// Compare 并行运行多个情景，结果顺序与输入一致. scenarios 为空时使用配置中的情景.
// 任一情景失败时取消其余尚未开始的情景.
func (s *Service) Compare(ctx context.Context, scenarios []config.ScenarioConfig) ([]*Outcome, error) {
	if len(scenarios) == 0 {
		scenarios = s.cfg.Scenarios
	}
	if len(scenarios) == 0 {
		return nil, xerrors.InvalidArgument("no scenarios to compare")
	}

	out := make([]*Outcome, len(scenarios))
	g, gctx := errgroup.WithContext(ctx)
	for i, sc := range scenarios {
		g.Go(func() error {
			o, err := s.run(gctx, sc.Name, sc.Model)
			if err != nil {
				return xerrors.Wrap(err, xerrors.ErrInternal, "scenario "+sc.Name)
			}
			out[i] = o
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

type cacheInput struct {
	Model      config.ModelConfig      `json:"model"`
	Simulation config.SimulationConfig `json:"simulation"`
	Risk       config.RiskConfig       `json:"risk"`
}

func (s *Service) cacheKey(mc config.ModelConfig) (string, error) {
	sc := s.cfg.Simulation
	sc.Threads = 0
	return cache.Key("report", cacheInput{Model: mc, Simulation: sc, Risk: s.cfg.Risk})
}

func (s *Service) run(ctx context.Context, name string, mc config.ModelConfig) (out *Outcome, err error) {
	ctx, span := tracing.StartSpan(ctx, "forecast.run")
	defer func() {
		tracing.SetError(ctx, err)
		span.End()
	}()
	tracing.AddTag(ctx, "scenario", name)
	tracing.AddTag(ctx, "model", mc.Type)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 历史文件内容可能变化，带 History 的运行不走缓存.
	useCache := s.cache != nil && mc.History == ""
	var key string
	if useCache {
		if key, err = s.cacheKey(mc); err != nil {
			return nil, err
		}
		if rep, ok := s.lookup(ctx, key); ok {
			s.logger.InfoContext(ctx, "report served from cache", "scenario", name, "key", key)
			return &Outcome{Name: name, Report: rep, Cached: true}, nil
		}
	}

	m, err := s.BuildModel(ctx, mc)
	if err != nil {
		return nil, err
	}
	simulator, err := s.BuildSimulator(ctx, m)
	if err != nil {
		return nil, err
	}

	sc := s.cfg.Simulation
	done := s.logger.LogDuration(ctx, "simulation", "scenario", name, "model", m.Name(), "paths", sc.Paths, "steps", sc.Steps)
	var res *sim.Result
	if sc.BatchSize > 0 {
		res, err = simulator.RunSimulationBatch(sc.Paths, sc.Steps, sc.Dt, sc.BatchSize)
	} else {
		res, err = simulator.RunSimulation(sc.Paths, sc.Steps, sc.Dt)
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "simulation failed", "scenario", name, "error", err)
		return nil, err
	}
	done()

	opts := []analysis.Option{
		analysis.WithRiskFreeRate(s.cfg.Risk.RiskFreeRate),
		analysis.WithPeriodsPerYear(s.cfg.Risk.PeriodsPerYear),
	}
	if len(s.cfg.Risk.Percentiles) > 0 {
		opts = append(opts, analysis.WithPercentileLevels(s.cfg.Risk.Percentiles...))
	}
	a, err := analysis.NewAnalyzer(res, opts...)
	if err != nil {
		return nil, err
	}
	rep, err := a.Report(s.cfg.Risk.Confidence, s.cfg.Risk.Targets...)
	if err != nil {
		return nil, err
	}
	tracing.AddTag(ctx, "run_id", rep.RunID.String())

	if useCache {
		if err := s.cache.Set(ctx, key, rep); err != nil {
			s.logger.WarnContext(ctx, "failed to cache report", "scenario", name, "error", err)
		}
	}
	return &Outcome{Name: name, Report: rep, Result: res}, nil
}

func (s *Service) lookup(ctx context.Context, key string) (*analysis.Report, bool) {
	var rep analysis.Report
	err := s.cache.Get(ctx, key, &rep)
	if s.simMetrics != nil {
		s.simMetrics.ObserveCache(err == nil)
	}
	switch {
	case err == nil:
		return &rep, true
	case cache.IsMiss(err):
		return nil, false
	default:
		s.logger.WarnContext(ctx, "cache lookup failed", "key", key, "error", err)
		return nil, false
	}
}
