// Package math 提供相关性采样所需的小型稠密矩阵运算.
package math

import (
	"math"

	"github.com/wyfcoding/mcsim/xerrors"
)

// Matrix 行主序稠密矩阵.
type Matrix struct {
	Data []float64
	Rows int
	Cols int
}

// NewMatrix 创建一个 r x c 的零矩阵.
func NewMatrix(rows, cols int) *Matrix {
	return &Matrix{
		Rows: rows,
		Cols: cols,
		Data: make([]float64, rows*cols),
	}
}

// Identity 创建 n 阶单位矩阵.
func Identity(n int) *Matrix {
	m := NewMatrix(n, n)
	for i := range n {
		m.Set(i, i, 1)
	}
	return m
}

// NewMatrixFromData 从二维切片创建矩阵.
func NewMatrixFromData(data [][]float64) (*Matrix, error) {
	rows := len(data)
	if rows == 0 {
		return nil, xerrors.ErrEmptyData
	}

	cols := len(data[0])
	mat := NewMatrix(rows, cols)

	for i := range rows {
		if len(data[i]) != cols {
			return nil, xerrors.ErrDimMismatch.WithDetail("row %d has %d columns, want %d", i, len(data[i]), cols)
		}
		copy(mat.Data[i*cols:(i+1)*cols], data[i])
	}

	return mat, nil
}

// Get 获取元素 (i, j).
func (m *Matrix) Get(row, col int) float64 {
	return m.Data[row*m.Cols+col]
}

// Set 设置元素 (i, j).
func (m *Matrix) Set(row, col int, val float64) {
	m.Data[row*m.Cols+col] = val
}

// Slices 以二维切片返回矩阵副本.
func (m *Matrix) Slices() [][]float64 {
	out := make([][]float64, m.Rows)
	for i := range out {
		out[i] = append([]float64(nil), m.Data[i*m.Cols:(i+1)*m.Cols]...)
	}
	return out
}

// IsSymmetric 判断方阵在容差 tol 内是否对称.
func (m *Matrix) IsSymmetric(tol float64) bool {
	if m.Rows != m.Cols {
		return false
	}
	for i := range m.Rows {
		for j := i + 1; j < m.Cols; j++ {
			if math.Abs(m.Get(i, j)-m.Get(j, i)) > tol {
				return false
			}
		}
	}
	return true
}

// MultiplyVector 矩阵向量乘法: y = A * x.
func (m *Matrix) MultiplyVector(vec []float64) ([]float64, error) {
	res := make([]float64, m.Rows)
	if err := m.MultiplyVectorInto(res, vec); err != nil {
		return nil, err
	}
	return res, nil
}

// MultiplyVectorInto 与 MultiplyVector 相同，结果写入 dst，热路径上避免分配.
func (m *Matrix) MultiplyVectorInto(dst, vec []float64) error {
	if len(vec) != m.Cols || len(dst) != m.Rows {
		return xerrors.ErrDimMismatch
	}
	for i := range m.Rows {
		var sum float64
		row := m.Data[i*m.Cols : (i+1)*m.Cols]
		for j, v := range row {
			sum += v * vec[j]
		}
		dst[i] = sum
	}
	return nil
}

// QuadraticForm 计算 x^T * A * x.
func (m *Matrix) QuadraticForm(x []float64) (float64, error) {
	if m.Rows != m.Cols {
		return 0, xerrors.ErrNotSquare
	}
	ax, err := m.MultiplyVector(x)
	if err != nil {
		return 0, err
	}
	var sum float64
	for i, v := range ax {
		sum += x[i] * v
	}
	return sum, nil
}

// Cholesky 分解 A = L·Lᵀ，按行计算下三角 L. 只读取 A 的下三角.
// 对角元不为正时返回 ErrNotPositiveDefinite.
func (m *Matrix) Cholesky() (*Matrix, error) {
	if m.Rows != m.Cols {
		return nil, xerrors.ErrNotSquare
	}

	n := m.Rows
	l := NewMatrix(n, n)
	for i := range n {
		li := l.Data[i*n : (i+1)*n]
		for j := 0; j <= i; j++ {
			lj := l.Data[j*n : (j+1)*n]
			acc := m.Data[i*n+j]
			for k := range j {
				acc -= li[k] * lj[k]
			}
			if i != j {
				li[j] = acc / lj[j]
				continue
			}
			if acc <= 0 || math.IsNaN(acc) {
				return nil, xerrors.ErrNotPositiveDefinite.WithDetail("pivot %d is %g", i, acc)
			}
			li[i] = math.Sqrt(acc)
		}
	}
	return l, nil
}
