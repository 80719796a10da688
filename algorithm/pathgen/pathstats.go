package pathgen

import (
	"math"
	"slices"

	"github.com/wyfcoding/mcsim/algorithm/finance"
	"github.com/wyfcoding/mcsim/algorithm/model"
	"github.com/wyfcoding/mcsim/algorithm/stats"
)

// PathStatistics 单条路径 (含初始值) 的描述统计.
type PathStatistics struct {
	Mean        float64 `json:"mean"`
	StdDev      float64 `json:"std_dev"`
	Max         float64 `json:"max"`
	Min         float64 `json:"min"`
	Final       float64 `json:"final"`
	MaxDrawdown float64 `json:"max_drawdown"`
}

// WithInitial 返回以 initial 开头的完整价格序列.
func WithInitial(initial float64, path model.Path) []float64 {
	series := make([]float64, 0, len(path)+1)
	series = append(series, initial)
	return append(series, path...)
}

// CalculatePathStatistics 计算以 initial 开头的完整序列的统计量.
func CalculatePathStatistics(initial float64, path model.Path) PathStatistics {
	series := WithInitial(initial, path)
	return PathStatistics{
		Mean:        stats.Mean(series),
		StdDev:      stats.StandardDeviation(series),
		Max:         slices.Max(series),
		Min:         slices.Min(series),
		Final:       series[len(series)-1],
		MaxDrawdown: finance.CalculateMaxDrawdown(series),
	}
}

// PathReturns 逐步简单收益率 (p_t - p_{t-1}) / p_{t-1}，长度等于路径步数.
func PathReturns(initial float64, path model.Path) []float64 {
	out := make([]float64, len(path))
	prev := initial
	for i, p := range path {
		out[i] = (p - prev) / prev
		prev = p
	}
	return out
}

// PathLogReturns 逐步对数收益率 ln(p_t / p_{t-1})，仅对正值序列有意义.
func PathLogReturns(initial float64, path model.Path) []float64 {
	out := make([]float64, len(path))
	prev := initial
	for i, p := range path {
		out[i] = math.Log(p / prev)
		prev = p
	}
	return out
}
