package compiler

import (
	"github.com/glipt-org/glipt/lang/token"
	"github.com/glipt-org/glipt/lang/value"
)

// Chunk is one function's compiled bytecode: a flat byte buffer, a
// constant pool indexed by a single operand byte (capping a function at
// 256 distinct constants), and a parallel line table for runtime error
// reporting.
type Chunk struct {
	Code      []byte
	Lines     []int // Lines[i] is the source line of Code[i]
	constants []value.Value
	strIndex  map[string]int // dedups string constants within this chunk
}

// Constants returns the chunk's constant pool. Named to satisfy the
// optional Constants() []value.Value interface lang/gc's tracer looks for
// on a FunctionObj's opaque Chunk.
func (c *Chunk) Constants() []value.Value { return c.constants }

// SetConstant overwrites pool entry i. The VM uses this to swap compiler
// built string constants for their interned equivalents when it adopts a
// function.
func (c *Chunk) SetConstant(i int, v value.Value) { c.constants[i] = v }

// Write appends a single byte, recording line for error reporting.
func (c *Chunk) Write(b byte, line int) {
	c.Code = append(c.Code, b)
	c.Lines = append(c.Lines, line)
}

// WriteOp appends an opcode.
func (c *Chunk) WriteOp(op Op, line int) {
	c.Write(byte(op), line)
}

// MaxConstants is the size cap on a single chunk's constant pool: pool
// indexes are a single operand byte.
const MaxConstants = 256

// AddConstant appends v to the constant pool and returns its index, or -1
// if the pool is full; the compiler reports the overflow as a compile
// error.
func (c *Chunk) AddConstant(v value.Value) int {
	if len(c.constants) >= MaxConstants {
		return -1
	}
	c.constants = append(c.constants, v)
	return len(c.constants) - 1
}

// AddStringConstant interns s within this chunk's pool, returning the
// existing index if s was already added. Returns -1 on pool overflow.
func (c *Chunk) AddStringConstant(s string) int {
	if c.strIndex == nil {
		c.strIndex = make(map[string]int)
	}
	if idx, ok := c.strIndex[s]; ok {
		return idx
	}
	obj := value.NewString(s)
	idx := c.AddConstant(value.ObjValue(obj))
	if idx >= 0 {
		c.strIndex[s] = idx
	}
	return idx
}

// LineAt returns the source line recorded for byte offset ip.
func (c *Chunk) LineAt(ip int) int {
	if ip < 0 || ip >= len(c.Lines) {
		return 0
	}
	return c.Lines[ip]
}

// lineOf converts a token.Pos to the line number Chunk.Write wants.
func lineOf(pos token.Pos) int {
	line, _ := pos.LineCol()
	return line
}
