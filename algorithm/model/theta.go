package model

import (
	"math"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/wyfcoding/mcsim/xerrors"
)

// thetaFuncs 表达式中可用的数学函数.
var thetaFuncs = map[string]any{
	"exp":  math.Exp,
	"log":  math.Log,
	"sqrt": math.Sqrt,
	"sin":  math.Sin,
	"cos":  math.Cos,
	"pow":  math.Pow,
}

func thetaEnv(t float64) map[string]any {
	env := make(map[string]any, len(thetaFuncs)+1)
	for k, v := range thetaFuncs {
		env[k] = v
	}
	env["t"] = t
	return env
}

// CompileTheta 将以 t 为自变量的表达式编译为 ThetaFunc，例如 "0.002 + 0.001 * t".
// 编译时在 t = 0 试算一次，结果非有限数时返回 InvalidArgument.
func CompileTheta(source string) (ThetaFunc, error) {
	program, err := expr.Compile(source, expr.Env(thetaEnv(0)), expr.AsFloat64())
	if err != nil {
		return nil, xerrors.Wrap(err, xerrors.ErrInvalidArg, "invalid theta expression")
	}

	fn := func(t float64) float64 { return runTheta(program, t) }
	if v := fn(0); math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, xerrors.InvalidArgument("theta expression %q is not finite at t=0", source)
	}
	return fn, nil
}

func runTheta(program *vm.Program, t float64) float64 {
	out, err := expr.Run(program, thetaEnv(t))
	if err != nil {
		return math.NaN()
	}
	v, ok := out.(float64)
	if !ok {
		return math.NaN()
	}
	return v
}
