package compiler

import (
	"fmt"

	"github.com/glipt-org/glipt/lang/ast"
	"github.com/glipt-org/glipt/lang/scanner"
	"github.com/glipt-org/glipt/lang/token"
	"github.com/glipt-org/glipt/lang/value"
)

// local is a single named slot on the operand stack, live for as long as
// its enclosing scope.
type local struct {
	name     string
	depth    int
	captured bool // true once some nested closure resolved it as an upvalue
}

// upvalRef records one upvalue a function captures: either a direct local
// slot of its immediately enclosing function (isLocal) or an upvalue
// threaded through from further out.
type upvalRef struct {
	index   byte
	isLocal bool
}

// funcState is the compiler's per-function scratch state, chained through
// enclosing to support nested function literals.
type funcState struct {
	enclosing *funcState

	fn    *value.FunctionObj
	chunk *Chunk

	locals     []local
	scopeDepth int
	upvalues   []upvalRef

	loopStart  int // -1 when not inside a loop
	loopDepth  int
	breakJumps []int
}

// Compiler compiles one glipt source file's AST into a top-level
// FunctionObj, single pass, no separate resolver stage: locals and
// upvalues are resolved against funcState chains as each identifier is
// compiled.
type Compiler struct {
	cur      *funcState
	filename string
	errs     scanner.ErrorList
}

// Compile compiles file into its top-level (script) function.
func Compile(file *ast.File) (*value.FunctionObj, error) {
	c := &Compiler{filename: file.Filename}
	c.cur = &funcState{
		fn:        &value.FunctionObj{Name: "<script>"},
		loopStart: -1,
	}
	c.cur.chunk = &Chunk{}
	c.cur.fn.Chunk = c.cur.chunk

	// Slot 0 of every frame holds the callee itself; reserve it with an
	// unnameable local so user locals line up with their runtime slots.
	c.cur.locals = append(c.cur.locals, local{name: "", depth: 0})

	c.compileFunctionBody(file.Block.Stmts, 0)

	c.errs.Sort()
	return c.cur.fn, c.errs.Err()
}

func (c *Compiler) errorf(pos token.Pos, format string, args ...any) {
	line, col := pos.LineCol()
	c.errs.Add(token.Position{Filename: c.filename, Line: line, Col: col}, fmt.Sprintf(format, args...))
}

// ---- emission helpers ----

func (c *Compiler) emit(op Op, line int)      { c.cur.chunk.WriteOp(op, line) }
func (c *Compiler) emitByte(b byte, line int) { c.cur.chunk.Write(b, line) }
func (c *Compiler) emitOpByte(op Op, b byte, line int) {
	c.emit(op, line)
	c.emitByte(b, line)
}

func (c *Compiler) makeConstant(v value.Value, line int) int {
	idx := c.cur.chunk.AddConstant(v)
	if idx < 0 {
		c.errorf(token.MakePos(line, 1), "too many constants in one function (max %d)", MaxConstants)
		return 0
	}
	return idx
}

func (c *Compiler) emitConstant(v value.Value, line int) {
	idx := c.makeConstant(v, line)
	c.emitOpByte(OpConstant, byte(idx), line)
}

func (c *Compiler) emitStringConstant(s string, line int) int {
	idx := c.cur.chunk.AddStringConstant(s)
	if idx < 0 {
		c.errorf(token.MakePos(line, 1), "too many constants in one function (max %d)", MaxConstants)
		return 0
	}
	return idx
}

// emitJump writes op followed by a two-byte placeholder offset, returning
// the offset of the placeholder's first byte for patchJump.
func (c *Compiler) emitJump(op Op, line int) int {
	c.emit(op, line)
	c.emitByte(0xff, line)
	c.emitByte(0xff, line)
	return len(c.cur.chunk.Code) - 2
}

// patchJump backfills the jump placeholder at offset with the distance from
// just after the placeholder to the current end of the chunk.
func (c *Compiler) patchJump(offset int) {
	jump := len(c.cur.chunk.Code) - offset - 2
	if jump > 0xffff {
		c.errorf(0, "jump offset too large (%d bytes)", jump)
	}
	c.cur.chunk.Code[offset] = byte((jump >> 8) & 0xff)
	c.cur.chunk.Code[offset+1] = byte(jump & 0xff)
}

// emitLoop writes a backward OpLoop jump to loopStart.
func (c *Compiler) emitLoop(loopStart int, line int) {
	c.emit(OpLoop, line)
	offset := len(c.cur.chunk.Code) - loopStart + 2
	if offset > 0xffff {
		c.errorf(0, "loop body too large (%d bytes)", offset)
	}
	c.emitByte(byte((offset>>8)&0xff), line)
	c.emitByte(byte(offset&0xff), line)
}

// ---- scope / variable resolution ----

func (c *Compiler) beginScope() { c.cur.scopeDepth++ }

func (c *Compiler) endScope(line int) {
	c.cur.scopeDepth--
	fs := c.cur
	for len(fs.locals) > 0 && fs.locals[len(fs.locals)-1].depth > fs.scopeDepth {
		last := fs.locals[len(fs.locals)-1]
		if last.captured {
			c.emit(OpCloseUpvalue, line)
		} else {
			c.emit(OpPop, line)
		}
		fs.locals = fs.locals[:len(fs.locals)-1]
	}
}

func (c *Compiler) addLocal(name string) int {
	c.cur.locals = append(c.cur.locals, local{name: name, depth: c.cur.scopeDepth})
	return len(c.cur.locals) - 1
}

func resolveLocal(fs *funcState, name string) int {
	for i := len(fs.locals) - 1; i >= 0; i-- {
		if fs.locals[i].name == name {
			return i
		}
	}
	return -1
}

func addUpvalue(fs *funcState, index byte, isLocal bool) int {
	for i, uv := range fs.upvalues {
		if uv.index == index && uv.isLocal == isLocal {
			return i
		}
	}
	fs.upvalues = append(fs.upvalues, upvalRef{index: index, isLocal: isLocal})
	return len(fs.upvalues) - 1
}

func resolveUpvalue(fs *funcState, name string) int {
	if fs.enclosing == nil {
		return -1
	}
	if i := resolveLocal(fs.enclosing, name); i != -1 {
		fs.enclosing.locals[i].captured = true
		return addUpvalue(fs, byte(i), true)
	}
	if i := resolveUpvalue(fs.enclosing, name); i != -1 {
		return addUpvalue(fs, byte(i), false)
	}
	return -1
}

func (c *Compiler) loadVariable(name string, line int) {
	if i := resolveLocal(c.cur, name); i != -1 {
		c.emitOpByte(OpGetLocal, byte(i), line)
		return
	}
	if i := resolveUpvalue(c.cur, name); i != -1 {
		c.emitOpByte(OpGetUpvalue, byte(i), line)
		return
	}
	idx := c.emitStringConstant(name, line)
	c.emitOpByte(OpGetGlobal, byte(idx), line)
}

func (c *Compiler) storeVariable(name string, line int) {
	if i := resolveLocal(c.cur, name); i != -1 {
		c.emitOpByte(OpSetLocal, byte(i), line)
		return
	}
	if i := resolveUpvalue(c.cur, name); i != -1 {
		c.emitOpByte(OpSetUpvalue, byte(i), line)
		return
	}
	idx := c.emitStringConstant(name, line)
	c.emitOpByte(OpSetGlobal, byte(idx), line)
}

// ---- statement lists, on-failure lowering, implicit tail return ----

// compileFunctionBody compiles stmts as a function body: the last
// statement, if a bare expression statement and not consumed by an
// on-failure handler, becomes the function's implicit return value; every
// other path falls through to an implicit `return nil`.
func (c *Compiler) compileFunctionBody(stmts []ast.Stmt, line int) {
	c.compileStmtListTail(stmts, true)
	c.emit(OpNil, line)
	c.emit(OpReturn, line)
}

func (c *Compiler) compileBlock(b *ast.Block, line int) {
	c.beginScope()
	c.compileStmtListTail(b.Stmts, false)
	c.endScope(line)
}

// compileStmtListTail compiles a statement list, lowering the first
// `on failure` statement encountered into a protected region covering every
// statement after it. When tail is true,
// a trailing bare expression statement (in the normal-flow path, or inside
// the handler body if the handler is what ends the list) compiles to an
// implicit return instead of a discarded expression.
func (c *Compiler) compileStmtListTail(stmts []ast.Stmt, tail bool) {
	for i := 0; i < len(stmts); i++ {
		if onf, ok := stmts[i].(*ast.OnFailureStmt); ok {
			c.compileOnFailure(onf, stmts[i+1:], tail)
			return
		}
		if tail && i == len(stmts)-1 {
			if es, ok := stmts[i].(*ast.ExprStmt); ok {
				line := lineOf(es.X.Start())
				c.compileExpr(es.X)
				c.emit(OpReturn, line)
				return
			}
		}
		c.compileStmt(stmts[i])
	}
}

func (c *Compiler) compileOnFailure(onf *ast.OnFailureStmt, rest []ast.Stmt, tail bool) {
	line := lineOf(onf.Pos)

	// When the handler fires, the VM restores the stack to the level it
	// had here, so the error binding must land at this depth -- not at
	// whatever depth the protected region's own locals later reach.
	savedLocals := len(c.cur.locals)

	handlerJump := c.emitJump(OpPushHandler, line)

	c.compileStmtListTail(rest, tail)

	c.emit(OpPopHandler, line)
	// Unwind any locals the protected region declared so the normal path
	// leaves the stack at the same level the handler path restores to.
	for i := len(c.cur.locals) - 1; i >= savedLocals; i-- {
		if c.cur.locals[i].captured {
			c.emit(OpCloseUpvalue, line)
		} else {
			c.emit(OpPop, line)
		}
	}
	c.cur.locals = c.cur.locals[:savedLocals]
	endJump := c.emitJump(OpJump, line)

	c.patchJump(handlerJump)
	c.beginScope()
	c.addLocal("error")
	c.compileStmtListTail(onf.Body.Stmts, tail)
	c.endScope(line)

	c.patchJump(endJump)
}

// ---- statements ----

func (c *Compiler) compileStmt(s ast.Stmt) {
	line := lineOf(s.Start())
	switch s := s.(type) {
	case *ast.ExprStmt:
		c.compileExpr(s.X)
		c.emit(OpPop, line)

	case *ast.AssignStmt:
		c.compileAssign(s)

	case *ast.IfStmt:
		c.compileIf(s)

	case *ast.WhileStmt:
		c.compileWhile(s)

	case *ast.ForInStmt:
		c.compileForIn(s)

	case *ast.ReturnStmt:
		if c.cur.enclosing == nil {
			c.errorf(s.Pos, "cannot return from top-level code")
		}
		if s.Value != nil {
			c.compileExpr(s.Value)
		} else {
			c.emit(OpNil, line)
		}
		c.emit(OpReturn, line)

	case *ast.BreakStmt:
		if c.cur.loopStart == -1 {
			c.errorf(s.Pos, "cannot use 'break' outside a loop")
			return
		}
		c.cur.breakJumps = append(c.cur.breakJumps, c.emitJump(OpJump, line))

	case *ast.ContinueStmt:
		if c.cur.loopStart == -1 {
			c.errorf(s.Pos, "cannot use 'continue' outside a loop")
			return
		}
		c.emitLoop(c.cur.loopStart, line)

	case *ast.FuncStmt:
		c.compileFuncStmt(s)

	case *ast.AllowStmt:
		c.compileAllow(s)

	case *ast.OnFailureStmt:
		// Only reached when an on-failure statement has nothing after it and
		// is compiled outside the normal compileStmtListTail path; treat it
		// the same as if it guarded an empty rest.
		c.compileOnFailure(s, nil, false)

	case *ast.ImportStmt:
		c.compileImport(s)

	default:
		c.errorf(s.Start(), "internal: unhandled statement type %T", s)
	}
}

// reservedBinding reports whether name may not be bound by a let or fn
// declaration: exec and exit scan as keywords but resolve through the
// normal global lookup to the natives of the same name, and shadowing them
// would silently break that.
func reservedBinding(name string) bool {
	return name == "exec" || name == "exit"
}

func (c *Compiler) compileAssign(s *ast.AssignStmt) {
	line := lineOf(s.Pos)

	if s.Let {
		ident, ok := s.Target.(*ast.Ident)
		if !ok {
			c.errorf(s.Pos, "let target must be a plain identifier")
			return
		}
		if reservedBinding(ident.Name) {
			c.errorf(s.Pos, "cannot bind reserved name %q", ident.Name)
			return
		}
		c.compileExpr(s.Value)
		if c.cur.scopeDepth == 0 {
			idx := c.emitStringConstant(ident.Name, line)
			c.emitOpByte(OpDefineGlobal, byte(idx), line)
		} else {
			c.addLocal(ident.Name)
		}
		return
	}

	switch target := s.Target.(type) {
	case *ast.Ident:
		if s.Op != token.ASSIGN {
			c.loadVariable(target.Name, line)
			c.compileExpr(s.Value)
			c.emit(binOpFor(s.Op), line)
			c.storeVariable(target.Name, line)
			c.emit(OpPop, line)
			return
		}
		// Bare `x = e`: rebind if x resolves as a local or upvalue; declare a
		// new local if we are inside a function body; otherwise set a global.
		// Top-level code always writes globals, Lua-style.
		c.compileExpr(s.Value)
		if i := resolveLocal(c.cur, target.Name); i != -1 {
			c.emitOpByte(OpSetLocal, byte(i), line)
			c.emit(OpPop, line)
		} else if i := resolveUpvalue(c.cur, target.Name); i != -1 {
			c.emitOpByte(OpSetUpvalue, byte(i), line)
			c.emit(OpPop, line)
		} else if c.cur.enclosing != nil {
			c.addLocal(target.Name)
		} else {
			idx := c.emitStringConstant(target.Name, line)
			c.emitOpByte(OpSetGlobal, byte(idx), line)
			c.emit(OpPop, line)
		}

	case *ast.IndexExpr:
		if s.Op != token.ASSIGN {
			c.errorf(s.Pos, "compound assignment to an indexed target is not supported")
			return
		}
		c.compileExpr(target.X)
		c.compileExpr(target.Index)
		c.compileExpr(s.Value)
		c.emit(OpIndexSet, line)
		c.emit(OpPop, line)

	case *ast.AttrExpr:
		if s.Op != token.ASSIGN {
			c.errorf(s.Pos, "compound assignment to an attribute target is not supported")
			return
		}
		c.compileExpr(target.X)
		c.compileExpr(s.Value)
		idx := c.emitStringConstant(target.Name, line)
		c.emitOpByte(OpSetProperty, byte(idx), line)
		c.emit(OpPop, line)

	default:
		c.errorf(s.Pos, "invalid assignment target")
	}
}

// binOpFor maps a compound assignment operator to the arithmetic opcode
// applied before the store.
func binOpFor(op token.Token) Op {
	switch op {
	case token.PLUS_EQ:
		return OpAdd
	case token.MINUS_EQ:
		return OpSub
	case token.STAR_EQ:
		return OpMul
	case token.SLASH_EQ:
		return OpDiv
	default:
		return OpAdd
	}
}

func (c *Compiler) compileIf(s *ast.IfStmt) {
	line := lineOf(s.Pos)
	c.compileExpr(s.Cond)
	thenJump := c.emitJump(OpJumpIfFalse, line)
	c.emit(OpPop, line)
	c.compileBlock(s.Then, line)
	elseJump := c.emitJump(OpJump, line)
	c.patchJump(thenJump)
	c.emit(OpPop, line)
	if s.Else != nil {
		c.compileBlock(s.Else, line)
	}
	c.patchJump(elseJump)
}

func (c *Compiler) compileWhile(s *ast.WhileStmt) {
	line := lineOf(s.Pos)
	fs := c.cur
	prevStart, prevDepth, prevBreaks := fs.loopStart, fs.loopDepth, fs.breakJumps
	fs.loopStart = len(fs.chunk.Code)
	fs.loopDepth = fs.scopeDepth
	fs.breakJumps = nil

	c.compileExpr(s.Cond)
	exitJump := c.emitJump(OpJumpIfFalse, line)
	c.emit(OpPop, line)

	c.compileBlock(s.Body, line)

	c.emitLoop(fs.loopStart, line)
	c.patchJump(exitJump)
	c.emit(OpPop, line)

	for _, bj := range fs.breakJumps {
		c.patchJump(bj)
	}
	fs.loopStart, fs.loopDepth, fs.breakJumps = prevStart, prevDepth, prevBreaks
}

// compileForIn lowers `for x in iter { body }` into three hidden locals
// (the iterable, an index counter, and the loop variable) and a while-style
// condition `index < iterable.length` -- "length" is read through
// OpGetProperty, which the VM special-cases for lists and strings (see
// lang/vm).
func (c *Compiler) compileForIn(s *ast.ForInStmt) {
	line := lineOf(s.Pos)
	fs := c.cur
	prevStart, prevDepth, prevBreaks := fs.loopStart, fs.loopDepth, fs.breakJumps

	c.beginScope()

	c.compileExpr(s.Iter)
	iterSlot := c.addLocal(" iterable")

	c.emitConstant(value.Int(0), line)
	idxSlot := c.addLocal(" index")

	c.emit(OpNil, line)
	varSlot := c.addLocal(s.Var)

	fs.loopStart = len(fs.chunk.Code)
	fs.loopDepth = fs.scopeDepth
	fs.breakJumps = nil

	c.emitOpByte(OpGetLocal, byte(idxSlot), line)
	c.emitOpByte(OpGetLocal, byte(iterSlot), line)
	lengthIdx := c.emitStringConstant("length", line)
	c.emitOpByte(OpGetProperty, byte(lengthIdx), line)
	c.emit(OpLess, line)

	exitJump := c.emitJump(OpJumpIfFalse, line)
	c.emit(OpPop, line)

	c.emitOpByte(OpGetLocal, byte(iterSlot), line)
	c.emitOpByte(OpGetLocal, byte(idxSlot), line)
	c.emit(OpIndexGet, line)
	c.emitOpByte(OpSetLocal, byte(varSlot), line)
	c.emit(OpPop, line)

	c.compileBlock(s.Body, line)

	c.emitOpByte(OpGetLocal, byte(idxSlot), line)
	c.emitConstant(value.Int(1), line)
	c.emit(OpAdd, line)
	c.emitOpByte(OpSetLocal, byte(idxSlot), line)
	c.emit(OpPop, line)

	c.emitLoop(fs.loopStart, line)
	c.patchJump(exitJump)
	c.emit(OpPop, line)

	for _, bj := range fs.breakJumps {
		c.patchJump(bj)
	}
	fs.loopStart, fs.loopDepth, fs.breakJumps = prevStart, prevDepth, prevBreaks

	c.endScope(line)
}

func (c *Compiler) compileFuncStmt(s *ast.FuncStmt) {
	line := lineOf(s.Pos)
	if reservedBinding(s.Name) {
		c.errorf(s.Pos, "cannot bind reserved name %q", s.Name)
		return
	}
	isLocal := c.cur.scopeDepth > 0
	var localSlot int
	if isLocal {
		localSlot = c.addLocal(s.Name)
	}
	c.compileFunctionLiteral(s.Name, s.Params, s.Body, line)
	if isLocal {
		_ = localSlot // closure already sits in this local's slot
	} else {
		idx := c.emitStringConstant(s.Name, line)
		c.emitOpByte(OpDefineGlobal, byte(idx), line)
	}
}

// compileFunctionLiteral compiles params/body as a nested function and
// emits an OpClosure (plus its upvalue capture descriptors) into the
// enclosing function's chunk.
func (c *Compiler) compileFunctionLiteral(name string, params []string, body *ast.Block, line int) {
	parent := c.cur
	fn := &value.FunctionObj{Name: name, Arity: len(params)}
	fs := &funcState{enclosing: parent, fn: fn, loopStart: -1}
	fs.chunk = &Chunk{}
	fn.Chunk = fs.chunk
	c.cur = fs

	// Slot 0 holds the callee; parameters follow in slots 1..arity.
	fs.locals = append(fs.locals, local{name: "", depth: 0})

	c.beginScope()
	for _, p := range params {
		c.addLocal(p)
	}
	c.compileFunctionBody(body.Stmts, line)

	fn.UpvalCount = len(fs.upvalues)
	upvals := fs.upvalues
	c.cur = parent

	constIdx := c.makeConstant(value.ObjValue(fn), line)
	c.emitOpByte(OpClosure, byte(constIdx), line)
	for _, uv := range upvals {
		isLocal := byte(0)
		if uv.isLocal {
			isLocal = 1
		}
		c.emitByte(isLocal, line)
		c.emitByte(uv.index, line)
	}
}

var allowKindCode = map[string]byte{
	"exec": 0, "net": 1, "read": 2, "write": 3, "env": 4,
}

func (c *Compiler) compileAllow(s *ast.AllowStmt) {
	line := lineOf(s.Pos)
	c.compileExpr(s.Target)
	c.emit(OpAllow, line)
	c.emitByte(allowKindCode[s.Kind], line)
}

func (c *Compiler) compileImport(s *ast.ImportStmt) {
	line := lineOf(s.Pos)
	pathIdx := c.emitStringConstant(s.Path, line)
	name := s.As
	if name == "" {
		name = moduleNameFromPath(s.Path)
	}
	nameIdx := c.emitStringConstant(name, line)
	c.emit(OpImport, line)
	c.emitByte(byte(pathIdx), line)
	c.emitByte(byte(nameIdx), line)
}

// moduleNameFromPath derives the default binding name for an import with no
// `as` clause: the last path segment with a .glipt extension stripped.
func moduleNameFromPath(path string) string {
	base := path
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			base = path[i+1:]
			break
		}
	}
	const ext = ".glipt"
	if len(base) > len(ext) && base[len(base)-len(ext):] == ext {
		base = base[:len(base)-len(ext)]
	}
	return base
}

// ---- expressions ----

func (c *Compiler) compileExpr(e ast.Expr) {
	line := lineOf(e.Start())
	switch e := e.(type) {
	case *ast.IntLit:
		c.emitConstant(value.Int(e.Value), line)
	case *ast.FloatLit:
		c.emitConstant(value.Number(e.Value), line)
	case *ast.StringLit:
		idx := c.emitStringConstant(e.Value, line)
		c.emitOpByte(OpConstant, byte(idx), line)
	case *ast.BoolLit:
		if e.Value {
			c.emit(OpTrue, line)
		} else {
			c.emit(OpFalse, line)
		}
	case *ast.NilLit:
		c.emit(OpNil, line)
	case *ast.Ident:
		c.loadVariable(e.Name, line)
	case *ast.ListLit:
		for _, el := range e.Elems {
			c.compileExpr(el)
		}
		c.emitOpByte(OpBuildList, byte(len(e.Elems)), line)
	case *ast.MapLit:
		for _, entry := range e.Entries {
			c.compileExpr(entry.Key)
			c.compileExpr(entry.Value)
		}
		c.emitOpByte(OpBuildMap, byte(len(e.Entries)), line)
	case *ast.UnaryExpr:
		c.compileExpr(e.X)
		if e.Op == token.MINUS {
			c.emit(OpNeg, line)
		} else {
			c.emit(OpNot, line)
		}
	case *ast.BinaryExpr:
		c.compileBinary(e)
	case *ast.CallExpr:
		c.compileExpr(e.Callee)
		for _, a := range e.Args {
			c.compileExpr(a)
		}
		c.emitOpByte(OpCall, byte(len(e.Args)), line)
	case *ast.IndexExpr:
		c.compileExpr(e.X)
		c.compileExpr(e.Index)
		c.emit(OpIndexGet, line)
	case *ast.AttrExpr:
		c.compileExpr(e.X)
		idx := c.emitStringConstant(e.Name, line)
		c.emitOpByte(OpGetProperty, byte(idx), line)
	case *ast.MatchExpr:
		c.compileMatch(e)
	case *ast.ParallelExpr:
		c.compileParallel(e)
	default:
		c.errorf(e.Start(), "internal: unhandled expression type %T", e)
	}
}

func (c *Compiler) compileBinary(e *ast.BinaryExpr) {
	line := lineOf(e.Pos)
	switch e.Op {
	case token.AND:
		c.compileExpr(e.X)
		endJump := c.emitJump(OpJumpIfFalse, line)
		c.emit(OpPop, line)
		c.compileExpr(e.Y)
		c.patchJump(endJump)
		return
	case token.OR:
		c.compileExpr(e.X)
		elseJump := c.emitJump(OpJumpIfFalse, line)
		endJump := c.emitJump(OpJump, line)
		c.patchJump(elseJump)
		c.emit(OpPop, line)
		c.compileExpr(e.Y)
		c.patchJump(endJump)
		return
	}

	c.compileExpr(e.X)
	c.compileExpr(e.Y)
	switch e.Op {
	case token.PLUS:
		c.emit(OpAdd, line)
	case token.MINUS:
		c.emit(OpSub, line)
	case token.STAR:
		c.emit(OpMul, line)
	case token.SLASH:
		c.emit(OpDiv, line)
	case token.PERCENT:
		c.emit(OpMod, line)
	case token.EQ:
		c.emit(OpEqual, line)
	case token.NEQ:
		c.emit(OpNotEqual, line)
	case token.LT:
		c.emit(OpLess, line)
	case token.LE:
		c.emit(OpLessEqual, line)
	case token.GT:
		c.emit(OpGreater, line)
	case token.GE:
		c.emit(OpGreaterEqual, line)
	default:
		c.errorf(e.Pos, "internal: unhandled binary operator %s", e.Op)
	}
}

// compileMatch lowers a match expression into a chain of equality tests
// against a hidden local holding the already-evaluated subject, leaving
// the matched arm's value (or nil, if nothing matched) as the
// expression's result.
func (c *Compiler) compileMatch(e *ast.MatchExpr) {
	line := lineOf(e.Pos)
	c.beginScope()
	c.compileExpr(e.Subject)
	subjectSlot := c.addLocal(" match")

	var endJumps []int
	for _, arm := range e.Arms {
		if arm.Pattern == nil {
			c.compileExpr(arm.Body)
			endJumps = append(endJumps, c.emitJump(OpJump, line))
			continue
		}
		c.emitOpByte(OpGetLocal, byte(subjectSlot), line)
		c.compileExpr(arm.Pattern)
		c.emit(OpEqual, line)
		nextArm := c.emitJump(OpJumpIfFalse, line)
		c.emit(OpPop, line)
		c.compileExpr(arm.Body)
		endJumps = append(endJumps, c.emitJump(OpJump, line))
		c.patchJump(nextArm)
		c.emit(OpPop, line)
	}

	c.emit(OpNil, line)
	for _, ej := range endJumps {
		c.patchJump(ej)
	}

	// Overwrite the hidden local with the arm result and unwind the scope
	// manually (no OpPop for it), so the result value stays on the stack as
	// this expression's value.
	c.emitOpByte(OpSetLocal, byte(subjectSlot), line)
	c.emit(OpPop, line)
	c.cur.scopeDepth--
	c.cur.locals = c.cur.locals[:len(c.cur.locals)-1]
}

// compileParallel desugars `parallel { a, b, c }` into a call to the
// builtin parallel_exec with a list of the command expressions.
func (c *Compiler) compileParallel(e *ast.ParallelExpr) {
	line := lineOf(e.Pos)
	idx := c.emitStringConstant("parallel_exec", line)
	c.emitOpByte(OpGetGlobal, byte(idx), line)
	for _, cmd := range e.Commands {
		c.compileExpr(cmd)
	}
	c.emitOpByte(OpBuildList, byte(len(e.Commands)), line)
	c.emitOpByte(OpCall, 1, line)
}
