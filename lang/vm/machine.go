package vm

import (
	"math"
	"strconv"
	"strings"

	"github.com/glipt-org/glipt/lang/compiler"
	"github.com/glipt-org/glipt/lang/permission"
	"github.com/glipt-org/glipt/lang/value"
)

func chunkOf(fn *value.FunctionObj) *compiler.Chunk {
	return fn.Chunk.(*compiler.Chunk)
}

// Run executes a compiled script-level function to completion and returns
// the value of its implicit return. The thread's globals, permission grants
// and module cache persist across calls, which is what the REPL relies on.
func (th *Thread) Run(fn *value.FunctionObj) (value.Value, error) {
	th.init()
	th.adoptFunction(fn)

	clos := &value.ClosureObj{Fn: fn}
	cv := th.track(value.ObjValue(clos), 32)
	th.push(cv)
	if err := th.callClosure(clos, 0); err != nil {
		return value.Nil, err
	}
	return th.run(th.frameCount - 1)
}

// CallFunction invokes a glipt closure or native from native code (the
// higher-order builtins map_fn, filter, reduce and retry) and runs it to
// completion, re-entering the dispatch loop with the current frame count as
// its baseline.
func (th *Thread) CallFunction(callee value.Value, args []value.Value) (value.Value, error) {
	th.push(callee)
	for _, a := range args {
		th.push(a)
	}

	if callee.IsObj() {
		switch obj := callee.AsObj().(type) {
		case *value.NativeObj:
			res, err := th.invokeNative(obj, len(args))
			if err != nil {
				return value.Nil, err
			}
			th.pop()
			return res, nil
		case *value.ClosureObj:
			if err := th.callClosure(obj, len(args)); err != nil {
				return value.Nil, err
			}
			return th.run(th.frameCount - 1)
		}
	}
	th.stackTop -= len(args) + 1
	return value.Nil, th.faultf("Can only call functions.")
}

// HasError reports whether an error is in flight and not yet dispatched.
// Higher-order natives check it after each callback so an error raised in
// user code aborts the iteration and propagates to the caller's handler.
func (th *Thread) HasError() bool { return th.hasError }

// handleInFlight routes a pending error for a run at the given baseline:
// when the innermost handler (or terminal dispatch) belongs to a frame at
// or below the baseline of a re-entrant run, the error is left pending and
// the re-entrant run unwinds so the outer dispatch loop handles it.
func (th *Thread) handleInFlight(baseFrames int) (unwind bool, err error) {
	if !th.hasError {
		return false, nil
	}
	if baseFrames > 0 {
		if n := len(th.handlers); n == 0 || th.handlers[n-1].frameCount <= baseFrames {
			th.frameCount = baseFrames
			return true, nil
		}
	}
	return false, th.dispatchError()
}

// adoptFunction canonicalizes every string constant of fn's chunk (and,
// recursively, of every nested function constant) through the thread's
// interner, so that constant-pool strings compare by pointer against
// strings built at runtime.
func (th *Thread) adoptFunction(fn *value.FunctionObj) {
	ch := chunkOf(fn)
	for i, v := range ch.Constants() {
		if !v.IsObj() {
			continue
		}
		switch obj := v.AsObj().(type) {
		case *value.StringObj:
			canon := th.interner.InternObj(obj)
			if canon != obj {
				ch.SetConstant(i, value.ObjValue(canon))
			}
		case *value.FunctionObj:
			th.adoptFunction(obj)
		}
	}
}

// callClosure validates arity and frame depth and pushes a frame whose base
// is the callee's own stack slot.
func (th *Thread) callClosure(clos *value.ClosureObj, argc int) error {
	if argc != clos.Fn.Arity {
		return th.faultf("Expected %d arguments but got %d.", clos.Fn.Arity, argc)
	}
	if th.frameCount == FramesMax {
		return th.faultf("Stack overflow.")
	}
	th.frames[th.frameCount] = frame{
		closure: clos,
		ip:      0,
		base:    th.stackTop - argc - 1,
	}
	th.frameCount++
	return nil
}

// invokeNative checks arity, hands the native a window into the stack, and
// replaces callee+args with its result. A *Raised error becomes an
// in-flight error value for handler dispatch; any other error is an
// internal fault.
func (th *Thread) invokeNative(native *value.NativeObj, argc int) (value.Value, error) {
	base := th.stackTop - argc - 1
	if native.Arity >= 0 && argc != native.Arity {
		th.stackTop = base
		th.push(value.Nil)
		th.raise("Expected "+strconv.Itoa(native.Arity)+" arguments but got "+strconv.Itoa(argc)+" in call to "+native.Name+".", "type")
		return value.Nil, nil
	}

	args := th.stack[th.stackTop-argc : th.stackTop]
	res, err := native.Fn(th, args)
	// restore to the callee's slot absolutely: a re-entrant run that
	// unwound to an outer handler may have left transient values above the
	// argument window
	th.stackTop = base
	if err != nil {
		switch e := err.(type) {
		case *Raised:
			th.push(value.Nil)
			th.raise(e.Message, e.Kind)
			return value.Nil, nil
		case *Exit:
			return value.Nil, e
		default:
			th.push(value.Nil)
			return value.Nil, th.faultf("%s", err.Error())
		}
	}
	th.push(res)
	return res, nil
}

// dispatchError routes an in-flight error to the innermost handler,
// restoring the frame count, stack top and instruction pointer recorded
// when the handler was pushed, and leaving the error value on the stack
// bound to the handler's `error` local. With no handler the error is
// terminal.
func (th *Thread) dispatchError() error {
	if n := len(th.handlers); n > 0 {
		h := th.handlers[n-1]
		th.handlers = th.handlers[:n-1]
		th.closeUpvalues(h.stackTop)
		th.frameCount = h.frameCount
		th.stackTop = h.stackTop
		th.push(th.currentError)
		th.frames[th.frameCount-1].ip = h.ip
		th.hasError = false
		th.currentError = value.Nil
		return nil
	}
	msg := th.errorMessage()
	th.hasError = false
	th.currentError = value.Nil
	return th.faultf("%s", msg)
}

// captureUpvalue returns the open upvalue for stack slot index, creating
// and inserting one into the descending-ordered open list if none exists.
func (th *Thread) captureUpvalue(index int) *value.UpvalueObj {
	var prev *value.UpvalueObj
	uv := th.openUpvalues
	for uv != nil && uv.Slot > index {
		prev = uv
		uv = uv.Next
	}
	if uv != nil && uv.Slot == index {
		return uv
	}

	created := value.NewOpenUpvalue(&th.stack[index], index)
	created.Next = uv
	if prev == nil {
		th.openUpvalues = created
	} else {
		prev.Next = created
	}
	th.track(value.ObjValue(created), 40)
	return created
}

// closeUpvalues closes every open upvalue at or above stack slot from:
// the captured value moves from the stack into the upvalue itself and the
// node leaves the open list.
func (th *Thread) closeUpvalues(from int) {
	for th.openUpvalues != nil && th.openUpvalues.Slot >= from {
		uv := th.openUpvalues
		uv.Close()
		th.openUpvalues = uv.Next
		uv.Next = nil
	}
}

// concatenate interns the concatenation of two strings.
func (th *Thread) concatenate(a, b *value.StringObj) value.Value {
	return th.StringValue(a.Chars + b.Chars)
}

func asStringObj(v value.Value) (*value.StringObj, bool) {
	if !v.IsObj() {
		return nil, false
	}
	s, ok := v.AsObj().(*value.StringObj)
	return s, ok
}

// run is the dispatch loop. It executes frames until the frame count drops
// back to baseFrames via a Return, and returns that Return's value. Natives
// re-enter it through CallFunction with a higher baseline.
func (th *Thread) run(baseFrames int) (value.Value, error) {
	fr := &th.frames[th.frameCount-1]
	ch := chunkOf(fr.closure.Fn)
	code := ch.Code
	consts := ch.Constants()

	reload := func() {
		fr = &th.frames[th.frameCount-1]
		ch = chunkOf(fr.closure.Fn)
		code = ch.Code
		consts = ch.Constants()
	}

	readByte := func() byte {
		b := code[fr.ip]
		fr.ip++
		return b
	}
	readShort := func() int {
		hi, lo := code[fr.ip], code[fr.ip+1]
		fr.ip += 2
		return int(hi)<<8 | int(lo)
	}
	readString := func() *value.StringObj {
		s, _ := asStringObj(consts[readByte()])
		return s
	}

	for {
		op := compiler.Op(readByte())
		switch op {
		case compiler.OpConstant:
			th.push(consts[readByte()])

		case compiler.OpNil:
			th.push(value.Nil)
		case compiler.OpTrue:
			th.push(value.True)
		case compiler.OpFalse:
			th.push(value.False)
		case compiler.OpPop:
			th.pop()

		case compiler.OpAdd:
			b, a := th.peek(0), th.peek(1)
			switch {
			case a.IsNumber() && b.IsNumber():
				th.pop()
				th.pop()
				th.push(value.Number(a.AsNumber() + b.AsNumber()))
			default:
				as, aok := asStringObj(a)
				bs, bok := asStringObj(b)
				if !aok || !bok {
					return value.Nil, th.faultf("Operands must be two numbers or two strings.")
				}
				v := th.concatenate(as, bs)
				th.pop()
				th.pop()
				th.push(v)
			}

		case compiler.OpSub, compiler.OpMul, compiler.OpDiv, compiler.OpMod:
			b, a := th.peek(0), th.peek(1)
			if !a.IsNumber() || !b.IsNumber() {
				return value.Nil, th.faultf("Operands must be numbers.")
			}
			x, y := a.AsNumber(), b.AsNumber()
			if (op == compiler.OpDiv || op == compiler.OpMod) && y == 0 {
				return value.Nil, th.faultf("Division by zero.")
			}
			th.pop()
			th.pop()
			switch op {
			case compiler.OpSub:
				th.push(value.Number(x - y))
			case compiler.OpMul:
				th.push(value.Number(x * y))
			case compiler.OpDiv:
				th.push(value.Number(x / y))
			case compiler.OpMod:
				th.push(value.Number(math.Mod(x, y)))
			}

		case compiler.OpNeg:
			if !th.peek(0).IsNumber() {
				return value.Nil, th.faultf("Operand must be a number.")
			}
			th.push(value.Number(-th.pop().AsNumber()))

		case compiler.OpNot:
			th.push(value.Bool(th.pop().IsFalsey()))

		case compiler.OpEqual:
			b, a := th.pop(), th.pop()
			th.push(value.Bool(value.Equal(a, b)))
		case compiler.OpNotEqual:
			b, a := th.pop(), th.pop()
			th.push(value.Bool(!value.Equal(a, b)))

		case compiler.OpGreater, compiler.OpGreaterEqual, compiler.OpLess, compiler.OpLessEqual:
			b, a := th.peek(0), th.peek(1)
			if !a.IsNumber() || !b.IsNumber() {
				return value.Nil, th.faultf("Operands must be numbers.")
			}
			x, y := a.AsNumber(), b.AsNumber()
			th.pop()
			th.pop()
			switch op {
			case compiler.OpGreater:
				th.push(value.Bool(x > y))
			case compiler.OpGreaterEqual:
				th.push(value.Bool(x >= y))
			case compiler.OpLess:
				th.push(value.Bool(x < y))
			case compiler.OpLessEqual:
				th.push(value.Bool(x <= y))
			}

		case compiler.OpGetLocal:
			slot := int(readByte())
			th.push(th.stack[fr.base+slot])
		case compiler.OpSetLocal:
			slot := int(readByte())
			th.stack[fr.base+slot] = th.peek(0)

		case compiler.OpGetGlobal:
			name := readString()
			v, ok := th.globalByName(name)
			if !ok {
				return value.Nil, th.faultf("Undefined variable '%s'.", name.Chars)
			}
			th.push(v)
		case compiler.OpSetGlobal:
			name := readString()
			th.setGlobalByName(name, th.peek(0))
		case compiler.OpDefineGlobal:
			name := readString()
			th.setGlobalByName(name, th.peek(0))
			th.pop()

		case compiler.OpGetUpvalue:
			slot := int(readByte())
			th.push(*fr.closure.Upvalues[slot].Location)
		case compiler.OpSetUpvalue:
			slot := int(readByte())
			*fr.closure.Upvalues[slot].Location = th.peek(0)

		case compiler.OpJump:
			offset := readShort()
			fr.ip += offset
		case compiler.OpJumpIfFalse:
			offset := readShort()
			if th.peek(0).IsFalsey() {
				fr.ip += offset
			}
		case compiler.OpLoop:
			offset := readShort()
			fr.ip -= offset

		case compiler.OpCall:
			argc := int(readByte())
			callee := th.peek(argc)
			if !callee.IsObj() {
				return value.Nil, th.faultf("Can only call functions.")
			}
			switch obj := callee.AsObj().(type) {
			case *value.NativeObj:
				if _, err := th.invokeNative(obj, argc); err != nil {
					return value.Nil, err
				}
			case *value.ClosureObj:
				if err := th.callClosure(obj, argc); err != nil {
					return value.Nil, err
				}
				reload()
			default:
				return value.Nil, th.faultf("Can only call functions.")
			}
			if th.hasError {
				unwind, err := th.handleInFlight(baseFrames)
				if err != nil {
					return value.Nil, err
				}
				if unwind {
					return value.Nil, nil
				}
				reload()
			}

		case compiler.OpClosure:
			fnVal := consts[readByte()]
			fn := fnVal.AsObj().(*value.FunctionObj)
			clos := &value.ClosureObj{
				Fn:       fn,
				Upvalues: make([]*value.UpvalueObj, fn.UpvalCount),
			}
			th.push(th.track(value.ObjValue(clos), 32+8*fn.UpvalCount))
			for i := 0; i < fn.UpvalCount; i++ {
				isLocal := readByte() == 1
				index := int(readByte())
				if isLocal {
					clos.Upvalues[i] = th.captureUpvalue(fr.base + index)
				} else {
					clos.Upvalues[i] = fr.closure.Upvalues[index]
				}
			}

		case compiler.OpCloseUpvalue:
			th.closeUpvalues(th.stackTop - 1)
			th.pop()

		case compiler.OpReturn:
			result := th.pop()
			th.closeUpvalues(fr.base)
			th.frameCount--
			th.stackTop = fr.base
			th.push(result)
			if th.frameCount == baseFrames {
				return th.pop(), nil
			}
			reload()

		case compiler.OpBuildList:
			count := int(readByte())
			elems := make([]value.Value, count)
			copy(elems, th.stack[th.stackTop-count:th.stackTop])
			v := th.NewList(elems)
			th.stackTop -= count
			th.push(v)

		case compiler.OpBuildMap:
			count := int(readByte())
			m, mv := th.NewMap()
			th.push(mv)
			for i := count; i > 0; i-- {
				key := th.stack[th.stackTop-1-2*i]
				val := th.stack[th.stackTop-1-(2*i-1)]
				ks, ok := asStringObj(key)
				if !ok {
					return value.Nil, th.faultf("Map key must be a string.")
				}
				m.Set(ks, val)
			}
			th.stackTop -= 2*count + 1
			th.push(mv)

		case compiler.OpIndexGet:
			index := th.pop()
			obj := th.pop()
			if !obj.IsObj() {
				return value.Nil, th.faultf("Only lists, maps, and strings support indexing.")
			}
			switch o := obj.AsObj().(type) {
			case *value.ListObj:
				if !index.IsNumber() {
					return value.Nil, th.faultf("List index must be a number.")
				}
				i := int(index.AsNumber())
				if i < 0 {
					i += len(o.Elems)
				}
				if i < 0 || i >= len(o.Elems) {
					return value.Nil, th.faultf("List index %d out of range (length %d).", i, len(o.Elems))
				}
				th.push(o.Elems[i])
			case *value.MapObj:
				ks, ok := asStringObj(index)
				if !ok {
					return value.Nil, th.faultf("Map key must be a string.")
				}
				if v, ok := o.Get(th.interner.InternObj(ks)); ok {
					th.push(v)
				} else {
					th.push(value.Nil)
				}
			case *value.StringObj:
				if !index.IsNumber() {
					return value.Nil, th.faultf("String index must be a number.")
				}
				i := int(index.AsNumber())
				if i < 0 {
					i += len(o.Chars)
				}
				if i < 0 || i >= len(o.Chars) {
					return value.Nil, th.faultf("String index out of range.")
				}
				th.push(obj) // keep the source string rooted while the byte interns
				ch := th.StringValue(o.Chars[i : i+1])
				th.pop()
				th.push(ch)
			default:
				return value.Nil, th.faultf("Only lists, maps, and strings support indexing.")
			}

		case compiler.OpIndexSet:
			val := th.pop()
			index := th.pop()
			obj := th.pop()
			if !obj.IsObj() {
				return value.Nil, th.faultf("Only lists and maps support index assignment.")
			}
			switch o := obj.AsObj().(type) {
			case *value.ListObj:
				if !index.IsNumber() {
					return value.Nil, th.faultf("List index must be a number.")
				}
				i := int(index.AsNumber())
				if i < 0 {
					i += len(o.Elems)
				}
				if i < 0 || i >= len(o.Elems) {
					return value.Nil, th.faultf("List index out of range.")
				}
				o.Elems[i] = val
			case *value.MapObj:
				ks, ok := asStringObj(index)
				if !ok {
					return value.Nil, th.faultf("Map key must be a string.")
				}
				o.Set(th.interner.InternObj(ks), val)
			default:
				return value.Nil, th.faultf("Only lists and maps support index assignment.")
			}
			th.push(val)

		case compiler.OpGetProperty:
			obj := th.peek(0)
			name := readString()
			if !obj.IsObj() {
				return value.Nil, th.faultf("Only maps, lists, and strings have properties.")
			}
			switch o := obj.AsObj().(type) {
			case *value.MapObj:
				th.pop()
				if v, ok := o.Get(name); ok {
					th.push(v)
				} else {
					th.push(value.Nil)
				}
			case *value.ListObj:
				if name.Chars != "length" {
					return value.Nil, th.faultf("List has no property '%s'.", name.Chars)
				}
				th.pop()
				th.push(value.Int(int64(len(o.Elems))))
			case *value.StringObj:
				if name.Chars != "length" {
					return value.Nil, th.faultf("String has no property '%s'.", name.Chars)
				}
				th.pop()
				th.push(value.Int(int64(len(o.Chars))))
			default:
				return value.Nil, th.faultf("Only maps, lists, and strings have properties.")
			}

		case compiler.OpSetProperty:
			val := th.peek(0)
			obj := th.peek(1)
			name := readString()
			if !obj.IsObj() {
				return value.Nil, th.faultf("Only maps support property assignment.")
			}
			m, ok := obj.AsObj().(*value.MapObj)
			if !ok {
				return value.Nil, th.faultf("Only maps support property assignment.")
			}
			m.Set(name, val)
			assigned := th.pop()
			th.pop()
			th.push(assigned)

		case compiler.OpAllow:
			kind := permission.Kind(readByte())
			target := th.pop()
			ts, ok := asStringObj(target)
			if !ok {
				return value.Nil, th.faultf("Permission target must be a string.")
			}
			th.Perms.Grant(kind, ts.Chars)

		case compiler.OpPushHandler:
			offset := readShort()
			if len(th.handlers) == handlersMax {
				return value.Nil, th.faultf("Too many nested error handlers.")
			}
			th.handlers = append(th.handlers, handler{
				ip:         fr.ip + offset,
				frameCount: th.frameCount,
				stackTop:   th.stackTop,
			})
		case compiler.OpPopHandler:
			if n := len(th.handlers); n > 0 {
				th.handlers = th.handlers[:n-1]
			}

		case compiler.OpImport:
			path := readString()
			bind := readString()
			if err := th.importModule(path.Chars, bind.Chars); err != nil {
				return value.Nil, err
			}
			if th.hasError {
				unwind, err := th.handleInFlight(baseFrames)
				if err != nil {
					return value.Nil, err
				}
				if unwind {
					return value.Nil, nil
				}
			}
			reload()

		default:
			return value.Nil, th.faultf("Unknown opcode %d.", byte(op))
		}
	}
}

// TypeName reports the user-visible type of v, as the type builtin does.
func TypeName(v value.Value) string {
	switch {
	case v.IsNil():
		return "nil"
	case v.IsBool():
		return "bool"
	case v.IsNumber():
		return "number"
	}
	switch v.AsObj().(type) {
	case *value.StringObj:
		return "string"
	case *value.ListObj:
		return "list"
	case *value.MapObj:
		return "map"
	case *value.FunctionObj, *value.ClosureObj, *value.NativeObj:
		return "function"
	}
	return "object"
}

// FormatNumber renders a glipt number: integral values print without a
// decimal point, everything else in shortest %g form.
func FormatNumber(f float64) string {
	if f == math.Trunc(f) && !math.IsInf(f, 0) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// ToString renders v the way print does: strings print raw, numbers per
// FormatNumber, lists recursively, maps opaquely.
func ToString(v value.Value) string {
	switch {
	case v.IsNil():
		return "nil"
	case v.IsBool():
		if v.AsBool() {
			return "true"
		}
		return "false"
	case v.IsNumber():
		return FormatNumber(v.AsNumber())
	}
	switch o := v.AsObj().(type) {
	case *value.StringObj:
		return o.Chars
	case *value.FunctionObj:
		if o.Name == "" || o.Name == "<script>" {
			return "<script>"
		}
		return "<fn " + o.Name + ">"
	case *value.ClosureObj:
		if o.Fn.Name == "" || o.Fn.Name == "<script>" {
			return "<script>"
		}
		return "<fn " + o.Fn.Name + ">"
	case *value.NativeObj:
		return "<native " + o.Name + ">"
	case *value.UpvalueObj:
		return "<upvalue>"
	case *value.ListObj:
		var sb strings.Builder
		sb.WriteByte('[')
		for i, el := range o.Elems {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(ToString(el))
		}
		sb.WriteByte(']')
		return sb.String()
	case *value.MapObj:
		return "{...}"
	}
	return "<object>"
}
