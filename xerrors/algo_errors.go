package xerrors

const (
	codeInvalidArgument  = 400001
	codeInvalidParameter = 400002
)

var (
	// ErrInvalidArgument 调用参数非法。
	ErrInvalidArgument = New(ErrInvalidArg, codeInvalidArgument, "invalid argument", "check call arguments", nil)
	// ErrInvalidParameter 模型参数非法。
	ErrInvalidParameter = New(ErrInvalidParam, codeInvalidParameter, "invalid parameter", "check model parameters", nil)
	// ErrEmptyData 输入数据为空。
	ErrEmptyData = New(ErrInvalidArg, 400003, "empty data", "input data must not be empty", nil)
	// ErrDimMismatch 维度不匹配.
	ErrDimMismatch = New(ErrInvalidArg, 400007, "dimension mismatch", "matrix or vector dimensions do not match", nil)
	// ErrNotSquare 不是方阵.
	ErrNotSquare = New(ErrInvalidArg, 400008, "matrix must be square", "input matrix is not square", nil)
	// ErrNotPositiveDefinite 不是正定矩阵.
	ErrNotPositiveDefinite = New(ErrInvalidArg, 400009, "matrix is not positive definite", "input matrix must be positive definite", nil)
	// ErrCacheMiss 缓存未命中。
	ErrCacheMiss = New(ErrNotFound, 404001, "cache miss", "no cached result for key", nil)
)
