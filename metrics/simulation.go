package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SimulationMetrics 模拟过程采集器，实现 sim.Observer。
type SimulationMetrics struct {
	PathsTotal    *prometheus.CounterVec   // 已推进路径数 (维度: model)
	BatchDuration *prometheus.HistogramVec // 单批耗时
	RunDuration   *prometheus.HistogramVec // 整次运行耗时 (维度: model, status)
	RunsTotal     *prometheus.CounterVec   // 运行次数 (维度: model, status)
	CacheLookups  *prometheus.CounterVec   // 结果缓存查询 (维度: result)
}

// NewSimulationMetrics 在 m 上注册模拟相关指标。
func NewSimulationMetrics(m *Metrics) *SimulationMetrics {
	return &SimulationMetrics{
		PathsTotal: m.NewCounterVec(prometheus.CounterOpts{
			Name: "simulation_paths_total",
			Help: "Total number of simulated paths",
		}, []string{"model"}),
		BatchDuration: m.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "simulation_batch_duration_seconds",
			Help:    "Wall time spent per simulation batch",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"model"}),
		RunDuration: m.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "simulation_run_duration_seconds",
			Help:    "Wall time spent per simulation run",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
		}, []string{"model", "status"}),
		RunsTotal: m.NewCounterVec(prometheus.CounterOpts{
			Name: "simulation_runs_total",
			Help: "Total number of simulation runs",
		}, []string{"model", "status"}),
		CacheLookups: m.NewCounterVec(prometheus.CounterOpts{
			Name: "result_cache_lookups_total",
			Help: "Result cache lookups by outcome",
		}, []string{"result"}),
	}
}

func (s *SimulationMetrics) ObservePaths(model string, n int) {
	s.PathsTotal.WithLabelValues(model).Add(float64(n))
}

func (s *SimulationMetrics) ObserveBatch(model string, d time.Duration) {
	s.BatchDuration.WithLabelValues(model).Observe(d.Seconds())
}

func (s *SimulationMetrics) ObserveRun(model, status string, d time.Duration) {
	s.RunDuration.WithLabelValues(model, status).Observe(d.Seconds())
	s.RunsTotal.WithLabelValues(model, status).Inc()
}

// ObserveCache 记录一次缓存查询。
func (s *SimulationMetrics) ObserveCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	s.CacheLookups.WithLabelValues(result).Inc()
}
