package compiler

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/glipt-org/glipt/lang/value"
)

// Disassemble renders fn's chunk (and, recursively, every nested function
// in its constant pool) in a line-per-instruction format, for the disasm
// CLI verb and the compiler tests.
func Disassemble(fn *value.FunctionObj) string {
	var sb strings.Builder
	disasmFunction(&sb, fn)
	return sb.String()
}

func disasmFunction(sb *strings.Builder, fn *value.FunctionObj) {
	name := fn.Name
	if name == "" {
		name = "<anonymous>"
	}
	fmt.Fprintf(sb, "== %s ==\n", name)

	ch := fn.Chunk.(*Chunk)
	for offset := 0; offset < len(ch.Code); {
		offset = disasmInstruction(sb, ch, offset)
	}

	for _, c := range ch.Constants() {
		if c.IsObj() {
			if nested, ok := c.AsObj().(*value.FunctionObj); ok {
				sb.WriteByte('\n')
				disasmFunction(sb, nested)
			}
		}
	}
}

func disasmInstruction(sb *strings.Builder, ch *Chunk, offset int) int {
	fmt.Fprintf(sb, "%04d ", offset)
	if offset > 0 && ch.LineAt(offset) == ch.LineAt(offset-1) {
		sb.WriteString("   | ")
	} else {
		fmt.Fprintf(sb, "%4d ", ch.LineAt(offset))
	}

	op := Op(ch.Code[offset])
	switch op {
	case OpConstant, OpGetGlobal, OpSetGlobal, OpDefineGlobal, OpGetProperty, OpSetProperty:
		idx := int(ch.Code[offset+1])
		fmt.Fprintf(sb, "%-16s %4d %s\n", op, idx, constantString(ch, idx))
		return offset + 2

	case OpGetLocal, OpSetLocal, OpGetUpvalue, OpSetUpvalue, OpCall, OpBuildList, OpBuildMap, OpAllow:
		fmt.Fprintf(sb, "%-16s %4d\n", op, ch.Code[offset+1])
		return offset + 2

	case OpJump, OpJumpIfFalse, OpPushHandler:
		jump := int(ch.Code[offset+1])<<8 | int(ch.Code[offset+2])
		fmt.Fprintf(sb, "%-16s %4d -> %d\n", op, offset, offset+3+jump)
		return offset + 3

	case OpLoop:
		jump := int(ch.Code[offset+1])<<8 | int(ch.Code[offset+2])
		fmt.Fprintf(sb, "%-16s %4d -> %d\n", op, offset, offset+3-jump)
		return offset + 3

	case OpClosure:
		idx := int(ch.Code[offset+1])
		fmt.Fprintf(sb, "%-16s %4d %s\n", op, idx, constantString(ch, idx))
		offset += 2
		fn := ch.Constants()[idx].AsObj().(*value.FunctionObj)
		for i := 0; i < fn.UpvalCount; i++ {
			isLocal, index := ch.Code[offset], ch.Code[offset+1]
			kind := "upvalue"
			if isLocal == 1 {
				kind = "local"
			}
			fmt.Fprintf(sb, "%04d      |                     %s %d\n", offset, kind, index)
			offset += 2
		}
		return offset

	case OpImport:
		pathIdx := int(ch.Code[offset+1])
		nameIdx := int(ch.Code[offset+2])
		fmt.Fprintf(sb, "%-16s %4d %s as %s\n", op, pathIdx,
			constantString(ch, pathIdx), constantString(ch, nameIdx))
		return offset + 3

	default:
		fmt.Fprintf(sb, "%s\n", op)
		return offset + 1
	}
}

// constantString renders a pool constant for disassembly: strings quoted,
// numbers in their shortest form, functions by name.
func constantString(ch *Chunk, idx int) string {
	if idx >= len(ch.Constants()) {
		return "<bad constant>"
	}
	v := ch.Constants()[idx]
	switch {
	case v.IsNil():
		return "nil"
	case v.IsBool():
		if v.AsBool() {
			return "true"
		}
		return "false"
	case v.IsNumber():
		f := v.AsNumber()
		if f == math.Trunc(f) && math.Abs(f) < 1e15 {
			return strconv.FormatInt(int64(f), 10)
		}
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	switch o := v.AsObj().(type) {
	case *value.StringObj:
		return strconv.Quote(o.Chars)
	case *value.FunctionObj:
		return "<fn " + o.Name + ">"
	}
	return "<object>"
}
