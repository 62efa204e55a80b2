package compiler

import (
	"testing"

	"github.com/glipt-org/glipt/lang/value"
	"github.com/stretchr/testify/require"
)

func newTestCompiler() *Compiler {
	c := &Compiler{filename: "test.glipt"}
	c.cur = &funcState{fn: &value.FunctionObj{}, loopStart: -1}
	c.cur.chunk = &Chunk{}
	c.cur.fn.Chunk = c.cur.chunk
	return c
}

func TestPatchJumpRecordsDistance(t *testing.T) {
	c := newTestCompiler()
	site := c.emitJump(OpJump, 1)
	for i := 0; i < 10; i++ {
		c.emit(OpNil, 1)
	}
	c.patchJump(site)

	code := c.cur.chunk.Code
	target := len(code)
	got := int(code[site])<<8 | int(code[site+1])
	require.Equal(t, target-(site+2), got,
		"patched offset is the distance from just past the operand to the target")
	require.NoError(t, c.errs.Err())
}

func TestPatchJumpZeroDistance(t *testing.T) {
	c := newTestCompiler()
	site := c.emitJump(OpJumpIfFalse, 1)
	c.patchJump(site)
	code := c.cur.chunk.Code
	require.Equal(t, 0, int(code[site])<<8|int(code[site+1]))
}

func TestEmitLoopJumpsBackToStart(t *testing.T) {
	c := newTestCompiler()
	start := len(c.cur.chunk.Code)
	c.emit(OpNil, 1)
	c.emit(OpPop, 1)
	c.emitLoop(start, 1)

	code := c.cur.chunk.Code
	offset := int(code[len(code)-2])<<8 | int(code[len(code)-1])
	// after reading the 2-byte operand, ip sits at len(code); subtracting
	// the offset must land exactly on start
	require.Equal(t, start, len(code)-offset)
}

func TestChunkConstantDedup(t *testing.T) {
	ch := &Chunk{}
	a := ch.AddStringConstant("name")
	b := ch.AddStringConstant("name")
	other := ch.AddStringConstant("other")
	require.Equal(t, a, b)
	require.NotEqual(t, a, other)
	require.Len(t, ch.Constants(), 2)
}

func TestChunkConstantOverflow(t *testing.T) {
	ch := &Chunk{}
	for i := 0; i < MaxConstants; i++ {
		require.Equal(t, i, ch.AddConstant(value.Int(int64(i))))
	}
	require.Equal(t, -1, ch.AddConstant(value.Nil))
}

func TestChunkLineTable(t *testing.T) {
	ch := &Chunk{}
	ch.WriteOp(OpNil, 3)
	ch.WriteOp(OpPop, 4)
	require.Equal(t, 3, ch.LineAt(0))
	require.Equal(t, 4, ch.LineAt(1))
	require.Equal(t, 0, ch.LineAt(99))
}
