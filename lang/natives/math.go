package natives

import (
	"math"
	"math/rand"

	"github.com/glipt-org/glipt/lang/value"
	"github.com/glipt-org/glipt/lang/vm"
)

func registerMath(th *vm.Thread) {
	defineModule(th, "math", []moduleEntry{
		{"floor", 1, math1(math.Floor)},
		{"ceil", 1, math1(math.Ceil)},
		{"round", 1, math1(math.Round)},
		{"abs", 1, math1(math.Abs)},
		{"sqrt", 1, math1(math.Sqrt)},
		{"pow", 2, math2(math.Pow)},
		{"log", 1, math1(math.Log)},
		{"log10", 1, math1(math.Log10)},
		{"exp", 1, math1(math.Exp)},
		{"min", 2, math2(math.Min)},
		{"max", 2, math2(math.Max)},
		{"sin", 1, math1(math.Sin)},
		{"cos", 1, math1(math.Cos)},
		{"tan", 1, math1(math.Tan)},
		{"asin", 1, math1(math.Asin)},
		{"acos", 1, math1(math.Acos)},
		{"atan", 1, math1(math.Atan)},
		{"atan2", 2, math2(math.Atan2)},
		{"rand", 0, mathRandFn},
		{"rand_int", 2, mathRandIntFn},
	}, map[string]value.Value{
		"PI":  value.Number(math.Pi),
		"E":   value.Number(math.E),
		"INF": value.Number(math.Inf(1)),
		"NAN": value.Number(math.NaN()),
	})
}

func math1(fn func(float64) float64) nativeFunc {
	return func(th *vm.Thread, args []value.Value) (value.Value, error) {
		x, ok := argNumber(args, 0)
		if !ok {
			return value.Nil, nil
		}
		return value.Number(fn(x)), nil
	}
}

func math2(fn func(float64, float64) float64) nativeFunc {
	return func(th *vm.Thread, args []value.Value) (value.Value, error) {
		x, ok1 := argNumber(args, 0)
		y, ok2 := argNumber(args, 1)
		if !ok1 || !ok2 {
			return value.Nil, nil
		}
		return value.Number(fn(x, y)), nil
	}
}

func mathRandFn(th *vm.Thread, args []value.Value) (value.Value, error) {
	return value.Number(rand.Float64()), nil
}

func mathRandIntFn(th *vm.Thread, args []value.Value) (value.Value, error) {
	lo, ok1 := argNumber(args, 0)
	hi, ok2 := argNumber(args, 1)
	if !ok1 || !ok2 || hi < lo {
		return value.Nil, nil
	}
	n := int64(lo) + rand.Int63n(int64(hi)-int64(lo)+1)
	return value.Int(n), nil
}
