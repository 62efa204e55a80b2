// Package natives implements the host side of the glipt runtime: the
// builtin globals and the fs, proc, net, sys, math, re and bit standard
// modules, all registered into a vm.Thread at startup. Every function
// follows the same calling convention: it receives the thread and a
// read-write window into the value stack, returns a single Value, and
// raises user-visible errors by returning a *vm.Raised.
package natives

import (
	"github.com/glipt-org/glipt/lang/value"
	"github.com/glipt-org/glipt/lang/vm"
)

// nativeFunc is the package-internal native signature; wrap adapts it to
// the value-layer NativeFn whose context parameter is opaque.
type nativeFunc func(th *vm.Thread, args []value.Value) (value.Value, error)

func wrap(fn nativeFunc) value.NativeFn {
	return func(ctx any, args []value.Value) (value.Value, error) {
		return fn(ctx.(*vm.Thread), args)
	}
}

// Register installs every builtin global and standard module into th. Call
// once before running any script.
func Register(th *vm.Thread) {
	registerBuiltins(th)
	registerFS(th)
	registerProc(th)
	registerNet(th)
	registerSys(th)
	registerMath(th)
	registerRe(th)
	registerBit(th)
}

// define installs a single builtin global. Arity -1 means variadic.
func define(th *vm.Thread, name string, arity int, fn nativeFunc) {
	th.DefineGlobal(name, value.ObjValue(&value.NativeObj{
		Name:  name,
		Arity: arity,
		Fn:    wrap(fn),
	}))
}

// moduleEntry is one function of a standard module map.
type moduleEntry struct {
	name  string
	arity int
	fn    nativeFunc
}

// defineModule installs a map-valued global whose entries are natives (and,
// via extra, plain constant values).
func defineModule(th *vm.Thread, name string, entries []moduleEntry, extra map[string]value.Value) {
	m, mv := th.NewMap()
	for _, e := range entries {
		m.Set(th.Intern(e.name), value.ObjValue(&value.NativeObj{
			Name:  name + "." + e.name,
			Arity: e.arity,
			Fn:    wrap(e.fn),
		}))
	}
	for k, v := range extra {
		m.Set(th.Intern(k), v)
	}
	th.DefineGlobal(name, mv)
}

// ---- argument helpers ----

func argString(args []value.Value, i int) (string, bool) {
	if i >= len(args) || !args[i].IsObj() {
		return "", false
	}
	s, ok := args[i].AsObj().(*value.StringObj)
	if !ok {
		return "", false
	}
	return s.Chars, true
}

func argNumber(args []value.Value, i int) (float64, bool) {
	if i >= len(args) || !args[i].IsNumber() {
		return 0, false
	}
	return args[i].AsNumber(), true
}

func argList(args []value.Value, i int) (*value.ListObj, bool) {
	if i >= len(args) || !args[i].IsObj() {
		return nil, false
	}
	l, ok := args[i].AsObj().(*value.ListObj)
	return l, ok
}

func argMap(args []value.Value, i int) (*value.MapObj, bool) {
	if i >= len(args) || !args[i].IsObj() {
		return nil, false
	}
	m, ok := args[i].AsObj().(*value.MapObj)
	return m, ok
}

func isCallable(v value.Value) bool {
	if !v.IsObj() {
		return false
	}
	switch v.AsObj().(type) {
	case *value.ClosureObj, *value.NativeObj:
		return true
	}
	return false
}
