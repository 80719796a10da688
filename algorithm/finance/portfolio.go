package finance

import (
	"github.com/shopspring/decimal"

	algomath "github.com/wyfcoding/mcsim/algorithm/math"
	"github.com/wyfcoding/mcsim/xerrors"
)

// weightTolerance 组合权重之和允许偏离 1 的误差.
var weightTolerance = decimal.New(1, -6)

// PortfolioRisk 组合风险.
type PortfolioRisk struct {
	VaR        float64   `json:"var" yaml:"var"`
	CVaR       float64   `json:"cvar" yaml:"cvar"`
	Volatility float64   `json:"volatility" yaml:"volatility"`
	Returns    []float64 `json:"-" yaml:"-"` // 逐期组合收益
}

// Portfolio 多资产组合，权重以 decimal 保存以便精确校验.
type Portfolio struct {
	Assets  []string
	Weights []decimal.Decimal
}

// NewPortfolio 创建组合，要求资产与权重一一对应且权重之和为 1 (误差 1e-6).
func NewPortfolio(assets []string, weights []float64) (*Portfolio, error) {
	if len(assets) == 0 {
		return nil, xerrors.ErrEmptyData.WithDetail("portfolio has no assets")
	}
	if len(assets) != len(weights) {
		return nil, xerrors.ErrDimMismatch.WithDetail("%d assets but %d weights", len(assets), len(weights))
	}

	ws := make([]decimal.Decimal, len(weights))
	sum := decimal.Zero
	for i, w := range weights {
		ws[i] = decimal.NewFromFloat(w)
		sum = sum.Add(ws[i])
	}
	if sum.Sub(decimal.NewFromInt(1)).Abs().GreaterThan(weightTolerance) {
		return nil, xerrors.InvalidArgument("portfolio weights must sum to 1, got %s", sum.String())
	}
	return &Portfolio{Assets: assets, Weights: ws}, nil
}

// EqualWeight 等权重组合.
func EqualWeight(assets []string) (*Portfolio, error) {
	if len(assets) == 0 {
		return nil, xerrors.ErrEmptyData.WithDetail("portfolio has no assets")
	}
	weights := make([]float64, len(assets))
	for i := range weights {
		weights[i] = 1 / float64(len(assets))
	}
	return NewPortfolio(assets, weights)
}

// FloatWeights 以 float64 返回权重.
func (p *Portfolio) FloatWeights() []float64 {
	out := make([]float64, len(p.Weights))
	for i, w := range p.Weights {
		out[i] = w.InexactFloat64()
	}
	return out
}

// Value 按各资产价格计算组合价值 Σ w·price.
func (p *Portfolio) Value(prices []float64) (decimal.Decimal, error) {
	if len(prices) != len(p.Weights) {
		return decimal.Zero, xerrors.ErrDimMismatch.WithDetail("%d prices for %d assets", len(prices), len(p.Weights))
	}
	total := decimal.Zero
	for i, w := range p.Weights {
		total = total.Add(w.Mul(decimal.NewFromFloat(prices[i])))
	}
	return total, nil
}

// Risk 计算组合的 VaR、CVaR 与波动率.
func (p *Portfolio) Risk(assetReturns [][]float64, confidence float64) (PortfolioRisk, error) {
	return CalculatePortfolioRisk(assetReturns, p.FloatWeights(), confidence)
}

// CalculatePortfolioRisk 按权重加总各资产同期收益，再计算 VaR、CVaR 与波动率.
// weights 长度必须等于资产数，所有资产收益序列长度必须相同.
func CalculatePortfolioRisk(assetReturns [][]float64, weights []float64, confidence float64) (PortfolioRisk, error) {
	if err := validateConfidence(confidence); err != nil {
		return PortfolioRisk{}, err
	}
	k := len(assetReturns)
	if k == 0 {
		return PortfolioRisk{}, nil
	}
	if len(weights) != k {
		return PortfolioRisk{}, xerrors.InvalidArgument("weights length %d does not match asset count %d", len(weights), k)
	}
	n := len(assetReturns[0])
	for a, r := range assetReturns {
		if len(r) != n {
			return PortfolioRisk{}, xerrors.InvalidArgument("asset %d has %d returns, want %d", a, len(r), n)
		}
	}

	combined := make([]float64, n)
	for a, r := range assetReturns {
		w := weights[a]
		for i, v := range r {
			combined[i] += w * v
		}
	}

	v, cv, err := calculateTail(combined, confidence)
	if err != nil {
		return PortfolioRisk{}, err
	}
	return PortfolioRisk{
		VaR:        v,
		CVaR:       cv,
		Volatility: CalculateVolatility(combined),
		Returns:    combined,
	}, nil
}

// CalculatePortfolioVariance 组合方差 wᵀΣw.
func CalculatePortfolioVariance(weights []float64, cov [][]float64) (float64, error) {
	sigma, err := algomath.NewMatrixFromData(cov)
	if err != nil {
		return 0, err
	}
	if sigma.Rows != len(weights) {
		return 0, xerrors.ErrDimMismatch.WithDetail("%d weights for %dx%d covariance", len(weights), sigma.Rows, sigma.Cols)
	}
	return sigma.QuadraticForm(weights)
}
