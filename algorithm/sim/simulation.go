// Package sim 蒙特卡洛模拟器：批量推进路径、汇总终值与收益率统计.
//
// 每条路径使用的随机数只由路径序号决定：顺序模式下在并行推进前按序号依次从共享随机源抽取，
// 独立流模式下路径 i 使用种子 random.SeedFor(seed, i) 的专属随机源.
// 因此结果与线程数、批大小无关.
package sim

import (
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"

	"github.com/wyfcoding/mcsim/algorithm/model"
	"github.com/wyfcoding/mcsim/algorithm/pathgen"
	"github.com/wyfcoding/mcsim/algorithm/random"
	"github.com/wyfcoding/mcsim/algorithm/stats"
	"github.com/wyfcoding/mcsim/xerrors"
)

const (
	// DefaultSeed 默认随机种子.
	DefaultSeed uint64 = 12345
	// DefaultRetainedPaths 批量模式下保留的完整路径数.
	DefaultRetainedPaths = 100
)

// ProgressFunc 批次完成回调，done 为已完成路径数.
type ProgressFunc func(done, total int)

// Observer 接收模拟过程的度量事件.
type Observer interface {
	ObservePaths(model string, n int)
	ObserveBatch(model string, d time.Duration)
	ObserveRun(model, status string, d time.Duration)
}

// SampleSet 按序号配对的终值与收益率.
type SampleSet struct {
	FinalValues []float64 `json:"final_values"`
	Returns     []float64 `json:"returns"`
}

// Result 一次模拟的结果，返回后不再修改.
type Result struct {
	SampleSet

	RunID         uuid.UUID     `json:"run_id"`
	Model         string        `json:"model"`
	Source        string        `json:"source"`
	InitialValue  float64       `json:"initial_value"`
	NumPaths      int           `json:"num_paths"`
	Steps         int           `json:"steps"`
	Dt            float64       `json:"dt"`
	Seed          uint64        `json:"seed"`
	Paths         []model.Path  `json:"-"` // 普通模式保留全部路径，批量模式仅保留前若干条
	PriceSummary  stats.Summary `json:"price_summary"`
	ReturnSummary stats.Summary `json:"return_summary"`
	Elapsed       time.Duration `json:"elapsed"`
}

// Option 模拟器选项.
type Option func(*Simulator)

// WithSource 指定共享随机源，默认是以种子初始化的 PCG 正态源.
func WithSource(src random.Source) Option {
	return func(s *Simulator) { s.src = src }
}

// WithSeed 设置随机种子.
func WithSeed(seed uint64) Option {
	return func(s *Simulator) { s.seed = seed }
}

// WithNumThreads 设置并行推进路径的最大 goroutine 数.
func WithNumThreads(n int) Option {
	return func(s *Simulator) { s.numThreads = n }
}

// WithPerPathStreams 为每条路径派生独立的 PCG 随机源，不再使用共享随机源.
func WithPerPathStreams() Option {
	return func(s *Simulator) { s.perPath = true }
}

// WithAntithetic 启用对偶变量：奇数序号路径使用前一条路径随机数的相反数.
func WithAntithetic() Option {
	return func(s *Simulator) { s.antithetic = true }
}

// WithProgress 设置批次进度回调.
func WithProgress(fn ProgressFunc) Option {
	return func(s *Simulator) { s.progress = fn }
}

// WithObserver 设置度量观察者.
func WithObserver(o Observer) Option {
	return func(s *Simulator) { s.observer = o }
}

// WithRetainedPaths 设置批量模式保留的路径数.
func WithRetainedPaths(n int) Option {
	return func(s *Simulator) { s.retain = n }
}

// Simulator 蒙特卡洛模拟器. 同一实例上的多次运行互斥执行.
type Simulator struct {
	mu         sync.Mutex
	model      model.Model
	src        random.Source
	seed       uint64
	numThreads int
	perPath    bool
	antithetic bool
	retain     int
	progress   ProgressFunc
	observer   Observer
}

// NewSimulator 创建模拟器.
func NewSimulator(m model.Model, opts ...Option) (*Simulator, error) {
	if m == nil {
		return nil, xerrors.InvalidArgument("model must not be nil")
	}
	s := &Simulator{
		model:      m,
		seed:       DefaultSeed,
		numThreads: runtime.GOMAXPROCS(0),
		retain:     DefaultRetainedPaths,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.numThreads <= 0 {
		return nil, xerrors.InvalidArgument("number of threads must be positive, got %d", s.numThreads)
	}
	if s.retain < 0 {
		return nil, xerrors.InvalidArgument("retained paths must be non-negative, got %d", s.retain)
	}
	if s.src == nil {
		s.src = random.NewNormalSource(s.seed)
	}
	return s, nil
}

// SetSeed 设置随机种子，下一次运行生效.
func (s *Simulator) SetSeed(seed uint64) {
	s.mu.Lock()
	s.seed = seed
	s.mu.Unlock()
}

// Seed 返回当前种子.
func (s *Simulator) Seed() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seed
}

// SetNumThreads 设置并行度，非正数返回 InvalidArgument.
func (s *Simulator) SetNumThreads(n int) error {
	if n <= 0 {
		return xerrors.InvalidArgument("number of threads must be positive, got %d", n)
	}
	s.mu.Lock()
	s.numThreads = n
	s.mu.Unlock()
	return nil
}

// NumThreads 返回当前并行度.
func (s *Simulator) NumThreads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.numThreads
}

// SetModel 替换模型，nil 返回 InvalidArgument.
func (s *Simulator) SetModel(m model.Model) error {
	if m == nil {
		return xerrors.InvalidArgument("model must not be nil")
	}
	s.mu.Lock()
	s.model = m
	s.mu.Unlock()
	return nil
}

// Model 返回当前模型.
func (s *Simulator) Model() model.Model {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model
}

// SetSource 替换共享随机源，nil 返回 InvalidArgument.
func (s *Simulator) SetSource(src random.Source) error {
	if src == nil {
		return xerrors.InvalidArgument("random source must not be nil")
	}
	s.mu.Lock()
	s.src = src
	s.mu.Unlock()
	return nil
}

// RunSimulation 模拟 numPaths 条路径并保留全部路径.
func (s *Simulator) RunSimulation(numPaths, steps int, dt float64) (*Result, error) {
	if err := validateRun(numPaths, steps, dt); err != nil {
		return nil, err
	}
	return s.run(numPaths, steps, dt, numPaths, numPaths)
}

// RunSimulationBatch 分批模拟以限制峰值内存，仅保留前若干条完整路径，每批结束时报告进度.
func (s *Simulator) RunSimulationBatch(numPaths, steps int, dt float64, batchSize int) (*Result, error) {
	if err := validateRun(numPaths, steps, dt); err != nil {
		return nil, err
	}
	if batchSize <= 0 || batchSize > numPaths {
		return nil, xerrors.InvalidArgument("batch size must be in [1,%d], got %d", numPaths, batchSize)
	}
	s.mu.Lock()
	retain := min(s.retain, numPaths)
	s.mu.Unlock()
	return s.run(numPaths, steps, dt, batchSize, retain)
}

func validateRun(numPaths, steps int, dt float64) error {
	if numPaths <= 0 {
		return xerrors.InvalidArgument("number of paths must be positive, got %d", numPaths)
	}
	if steps <= 0 {
		return xerrors.InvalidArgument("steps must be positive, got %d", steps)
	}
	if !(dt > 0) {
		return xerrors.InvalidArgument("dt must be positive, got %g", dt)
	}
	return nil
}

// run 持有互斥锁执行整次模拟.
func (s *Simulator) run(numPaths, steps int, dt float64, batchSize, retain int) (res *Result, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	name := s.model.Name()
	defer func() {
		if s.observer == nil {
			return
		}
		status := "ok"
		if err != nil {
			status = "error"
		}
		s.observer.ObserveRun(name, status, time.Since(start))
	}()

	r := &runner{
		model:      s.model,
		src:        s.src,
		seed:       s.seed,
		perPath:    s.perPath,
		antithetic: s.antithetic,
		initial:    s.model.InitialValue(),
		steps:      steps,
		dt:         dt,
		finals:     make([]float64, numPaths),
		returns:    make([]float64, numPaths),
		paths:      make([]model.Path, retain),
	}
	if !s.perPath {
		s.src.Reseed(s.seed)
	}

	for lo := 0; lo < numPaths; lo += batchSize {
		hi := min(lo+batchSize, numPaths)
		batchStart := time.Now()
		if err := r.runBatch(lo, hi, s.numThreads); err != nil {
			return nil, err
		}
		if s.observer != nil {
			s.observer.ObservePaths(name, hi-lo)
			s.observer.ObserveBatch(name, time.Since(batchStart))
		}
		if s.progress != nil {
			s.progress(hi, numPaths)
		}
	}

	sourceName := s.src.Name()
	if s.perPath {
		sourceName = "normal(per-path)"
	}

	return &Result{
		RunID:         uuid.New(),
		Model:         name,
		Source:        sourceName,
		InitialValue:  r.initial,
		NumPaths:      numPaths,
		Steps:         steps,
		Dt:            dt,
		Seed:          s.seed,
		Paths:         r.paths,
		SampleSet:     SampleSet{FinalValues: r.finals, Returns: r.returns},
		PriceSummary:  stats.Analyze(r.finals),
		ReturnSummary: stats.Analyze(r.returns),
		Elapsed:       time.Since(start),
	}, nil
}

// runner 单次运行的状态.
type runner struct {
	model      model.Model
	src        random.Source
	seed       uint64
	perPath    bool
	antithetic bool
	initial    float64
	steps      int
	dt         float64
	finals     []float64
	returns    []float64
	paths      []model.Path
	prevDraws  []float64 // 顺序模式下上一条路径的随机数，用于跨批次的对偶配对
}

// drawsFor 返回路径 i 在独立流模式下的随机数.
func (r *runner) drawsFor(i int) ([]float64, error) {
	if r.antithetic && i%2 == 1 {
		d, err := random.NewNormalSource(random.SeedFor(r.seed, i-1)).DrawVector(r.steps)
		if err != nil {
			return nil, err
		}
		return pathgen.Negate(d), nil
	}
	return random.NewNormalSource(random.SeedFor(r.seed, i)).DrawVector(r.steps)
}

// materialize 顺序抽取 [lo, hi) 的随机数.
func (r *runner) materialize(lo, hi int) ([][]float64, error) {
	draws := make([][]float64, hi-lo)
	for i := lo; i < hi; i++ {
		if r.antithetic && i%2 == 1 && r.prevDraws != nil {
			draws[i-lo] = pathgen.Negate(r.prevDraws)
		} else {
			d, err := r.src.DrawVector(r.steps)
			if err != nil {
				return nil, err
			}
			draws[i-lo] = d
		}
		r.prevDraws = draws[i-lo]
	}
	return draws, nil
}

func (r *runner) runBatch(lo, hi, threads int) error {
	var draws [][]float64
	if !r.perPath {
		var err error
		if draws, err = r.materialize(lo, hi); err != nil {
			return err
		}
	}

	count := hi - lo
	workers := min(threads, count)
	chunk := (count + workers - 1) / workers

	p := pool.New().WithErrors().WithMaxGoroutines(workers)
	for c := lo; c < hi; c += chunk {
		from, to := c, min(c+chunk, hi)
		p.Go(func() error {
			for i := from; i < to; i++ {
				var d []float64
				if r.perPath {
					var err error
					if d, err = r.drawsFor(i); err != nil {
						return err
					}
				} else {
					d = draws[i-lo]
				}
				if err := r.simulate(i, d); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return p.Wait()
}

func (r *runner) simulate(i int, draws []float64) error {
	path, err := r.model.SimulatePath(r.initial, r.steps, r.dt, draws)
	if err != nil {
		return err
	}
	final := path.Final()
	r.finals[i] = final
	r.returns[i] = (final - r.initial) / r.initial
	if i < len(r.paths) {
		r.paths[i] = path
	}
	return nil
}
