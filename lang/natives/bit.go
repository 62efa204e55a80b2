package natives

import (
	"github.com/glipt-org/glipt/lang/value"
	"github.com/glipt-org/glipt/lang/vm"
)

// The bit module operates on 32-bit unsigned integers: operands are
// truncated to uint32, results widen back to the number type.
func registerBit(th *vm.Thread) {
	defineModule(th, "bit", []moduleEntry{
		{"and", 2, bit2(func(a, b uint32) uint32 { return a & b })},
		{"or", 2, bit2(func(a, b uint32) uint32 { return a | b })},
		{"xor", 2, bit2(func(a, b uint32) uint32 { return a ^ b })},
		{"not", 1, bitNotFn},
		{"lshift", 2, bit2(func(a, b uint32) uint32 { return a << (b & 31) })},
		{"rshift", 2, bit2(func(a, b uint32) uint32 { return a >> (b & 31) })},
	}, nil)
}

func bit2(fn func(a, b uint32) uint32) nativeFunc {
	return func(th *vm.Thread, args []value.Value) (value.Value, error) {
		a, ok1 := argNumber(args, 0)
		b, ok2 := argNumber(args, 1)
		if !ok1 || !ok2 {
			return value.Nil, nil
		}
		return value.Int(int64(fn(uint32(int64(a)), uint32(int64(b))))), nil
	}
}

func bitNotFn(th *vm.Thread, args []value.Value) (value.Value, error) {
	a, ok := argNumber(args, 0)
	if !ok {
		return value.Nil, nil
	}
	return value.Int(int64(^uint32(int64(a)))), nil
}
