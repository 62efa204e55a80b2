package vm

import (
	"bytes"
	"strings"
	"testing"

	"github.com/glipt-org/glipt/lang/compiler"
	"github.com/glipt-org/glipt/lang/parser"
	"github.com/glipt-org/glipt/lang/value"
	"github.com/stretchr/testify/require"
)

// runInternal compiles and runs src on a fresh thread, returning the
// thread for white-box state assertions. The natives package cannot be
// used here (it imports this one), so tests that need a native install
// their own through setup.
func runInternal(t *testing.T, src string, setup func(*Thread)) *Thread {
	t.Helper()
	file, arena, err := parser.ParseFile("test.glipt", []byte(src))
	require.NoError(t, err)
	fn, err := compiler.Compile(file)
	arena.Reset()
	require.NoError(t, err)

	th := &Thread{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}, Stdin: strings.NewReader("")}
	if setup != nil {
		setup(th)
	}
	_, rerr := th.Run(fn)
	require.NoError(t, rerr)
	return th
}

// defineRaising installs a 0-ary native that raises a permission error on
// every call.
func defineRaising(th *Thread, name string) {
	th.DefineGlobal(name, value.ObjValue(&value.NativeObj{
		Name:  name,
		Arity: 0,
		Fn: func(ctx any, args []value.Value) (value.Value, error) {
			return value.Nil, &Raised{Message: "denied", Kind: "permission"}
		},
	}))
}

func TestRunLeavesMachineClean(t *testing.T) {
	th := runInternal(t, strings.Join([]string{
		"let x = 1",
		"fn bump(n) { return n + 1 }",
		"let y = bump(x)",
		"let zs = [x, y]",
		"let m = {a: x}",
	}, "\n"), nil)

	require.Equal(t, 0, th.stackTop, "value stack fully unwound")
	require.Equal(t, 0, th.frameCount, "all frames popped")
	require.Nil(t, th.openUpvalues, "no upvalue left open")
	require.Empty(t, th.handlers, "no handler left registered")
	require.True(t, th.Heap.GrayEmpty())
}

func TestClosureReturnClosesUpvalues(t *testing.T) {
	th := runInternal(t, strings.Join([]string{
		"fn outer() {",
		"  let a = 1",
		"  fn get() { return a }",
		"  return get",
		"}",
		"let g = outer()",
	}, "\n"), nil)

	require.Nil(t, th.openUpvalues, "outer's return closed the capture")
	g, ok := th.GetGlobal("g")
	require.True(t, ok)
	require.Equal(t, "function", TypeName(g))
}

func TestHandlerRestoresCounters(t *testing.T) {
	// the raising call sits under an extra frame so the handler unwind has
	// something to discard
	th := runInternal(t, strings.Join([]string{
		"fn boom() {",
		"  deny()",
		"  return 1",
		"}",
		"on failure { 0 }",
		"boom()",
	}, "\n"), func(th *Thread) { defineRaising(th, "deny") })

	require.Equal(t, 0, th.stackTop)
	require.Equal(t, 0, th.frameCount)
	require.False(t, th.hasError)
}

func TestGlobalInlineCacheInvalidation(t *testing.T) {
	th := &Thread{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}}
	th.DefineGlobal("a", value.Int(1))

	name := th.Intern("a")
	v, ok := th.globalByName(name)
	require.True(t, ok)
	require.InDelta(t, 1, v.AsNumber(), 0)

	// a cache hit must reflect the current value after a same-name write
	th.setGlobalByName(name, value.Int(2))
	v, ok = th.globalByName(name)
	require.True(t, ok)
	require.InDelta(t, 2, v.AsNumber(), 0)

	// defining a brand new global bumps the generation; stale entries miss
	th.DefineGlobal("b", value.Int(3))
	v, ok = th.globalByName(name)
	require.True(t, ok)
	require.InDelta(t, 2, v.AsNumber(), 0)
}
