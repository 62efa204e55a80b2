package parser_test

import (
	"testing"

	"github.com/glipt-org/glipt/lang/ast"
	"github.com/glipt-org/glipt/lang/parser"
	"github.com/glipt-org/glipt/lang/token"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, src string) *ast.File {
	t.Helper()
	file, _, err := parser.ParseFile("test.glipt", []byte(src))
	require.NoError(t, err)
	return file
}

func parseExpr(t *testing.T, src string) ast.Expr {
	t.Helper()
	file := parse(t, src)
	require.Len(t, file.Block.Stmts, 1)
	es, ok := file.Block.Stmts[0].(*ast.ExprStmt)
	require.True(t, ok, "expected an expression statement, got %T", file.Block.Stmts[0])
	return es.X
}

func TestPrecedenceMulOverAdd(t *testing.T) {
	e := parseExpr(t, "1 + 2 * 3")
	add, ok := e.(*ast.BinaryExpr)
	require.True(t, ok)
	require.Equal(t, token.PLUS, add.Op)
	mul, ok := add.Y.(*ast.BinaryExpr)
	require.True(t, ok)
	require.Equal(t, token.STAR, mul.Op)
}

func TestLeftAssociativity(t *testing.T) {
	e := parseExpr(t, "1 - 2 - 3")
	outer, ok := e.(*ast.BinaryExpr)
	require.True(t, ok)
	inner, ok := outer.X.(*ast.BinaryExpr)
	require.True(t, ok)
	require.Equal(t, int64(1), inner.X.(*ast.IntLit).Value)
	require.Equal(t, int64(3), outer.Y.(*ast.IntLit).Value)
}

func TestComparisonOverLogic(t *testing.T) {
	e := parseExpr(t, "a < b and c > d")
	and, ok := e.(*ast.BinaryExpr)
	require.True(t, ok)
	require.Equal(t, token.AND, and.Op)
	require.Equal(t, token.LT, and.X.(*ast.BinaryExpr).Op)
	require.Equal(t, token.GT, and.Y.(*ast.BinaryExpr).Op)
}

func TestPipeDesugarsToCall(t *testing.T) {
	e := parseExpr(t, "x | f")
	call, ok := e.(*ast.CallExpr)
	require.True(t, ok, "pipe desugars to a call")
	require.Equal(t, "f", call.Callee.(*ast.Ident).Name)
	require.Len(t, call.Args, 1)
	require.Equal(t, "x", call.Args[0].(*ast.Ident).Name)
}

func TestPipeChainsLeftToRight(t *testing.T) {
	e := parseExpr(t, "x | f | g")
	outer, ok := e.(*ast.CallExpr)
	require.True(t, ok)
	require.Equal(t, "g", outer.Callee.(*ast.Ident).Name)
	inner, ok := outer.Args[0].(*ast.CallExpr)
	require.True(t, ok)
	require.Equal(t, "f", inner.Callee.(*ast.Ident).Name)
}

func TestRangeDesugarsToRangeCall(t *testing.T) {
	e := parseExpr(t, "1..10")
	call, ok := e.(*ast.CallExpr)
	require.True(t, ok)
	require.Equal(t, "range", call.Callee.(*ast.Ident).Name)
	require.Len(t, call.Args, 2)
}

func TestPostfixChains(t *testing.T) {
	e := parseExpr(t, "a.b()[0].c")
	attr, ok := e.(*ast.AttrExpr)
	require.True(t, ok)
	require.Equal(t, "c", attr.Name)
	idx, ok := attr.X.(*ast.IndexExpr)
	require.True(t, ok)
	call, ok := idx.X.(*ast.CallExpr)
	require.True(t, ok)
	inner, ok := call.Callee.(*ast.AttrExpr)
	require.True(t, ok)
	require.Equal(t, "b", inner.Name)
	require.Equal(t, "a", inner.X.(*ast.Ident).Name)
}

func TestKeywordAsPropertyName(t *testing.T) {
	e := parseExpr(t, "proc.exec")
	attr, ok := e.(*ast.AttrExpr)
	require.True(t, ok)
	require.Equal(t, "exec", attr.Name)

	e = parseExpr(t, "m.match")
	attr, ok = e.(*ast.AttrExpr)
	require.True(t, ok)
	require.Equal(t, "match", attr.Name)
}

func TestUnaryBindsTighterThanMul(t *testing.T) {
	e := parseExpr(t, "-a * b")
	mul, ok := e.(*ast.BinaryExpr)
	require.True(t, ok)
	require.Equal(t, token.STAR, mul.Op)
	_, ok = mul.X.(*ast.UnaryExpr)
	require.True(t, ok)
}

func TestFStringDesugar(t *testing.T) {
	e := parseExpr(t, `f"x={n+1}"`)
	// "x=" + str(n+1)
	concat, ok := e.(*ast.BinaryExpr)
	require.True(t, ok)
	require.Equal(t, token.PLUS, concat.Op)
	lit, ok := concat.X.(*ast.StringLit)
	require.True(t, ok)
	require.Equal(t, "x=", lit.Value)
	call, ok := concat.Y.(*ast.CallExpr)
	require.True(t, ok)
	require.Equal(t, "str", call.Callee.(*ast.Ident).Name)
	inner, ok := call.Args[0].(*ast.BinaryExpr)
	require.True(t, ok)
	require.Equal(t, token.PLUS, inner.Op)
}

func TestFStringLiteralOnly(t *testing.T) {
	e := parseExpr(t, `f"plain"`)
	lit, ok := e.(*ast.StringLit)
	require.True(t, ok)
	require.Equal(t, "plain", lit.Value)
}

func TestFStringNestedBraces(t *testing.T) {
	e := parseExpr(t, `f"v={ {a: 1}['a'] }"`)
	concat, ok := e.(*ast.BinaryExpr)
	require.True(t, ok)
	call, ok := concat.Y.(*ast.CallExpr)
	require.True(t, ok)
	idx, ok := call.Args[0].(*ast.IndexExpr)
	require.True(t, ok)
	_, ok = idx.X.(*ast.MapLit)
	require.True(t, ok)
}

func TestLetStatement(t *testing.T) {
	file := parse(t, "let x = 1")
	as, ok := file.Block.Stmts[0].(*ast.AssignStmt)
	require.True(t, ok)
	require.True(t, as.Let)
	require.Equal(t, "x", as.Target.(*ast.Ident).Name)
}

func TestCompoundAssign(t *testing.T) {
	file := parse(t, "x += 2")
	as, ok := file.Block.Stmts[0].(*ast.AssignStmt)
	require.True(t, ok)
	require.False(t, as.Let)
	require.Equal(t, token.PLUS_EQ, as.Op)
}

func TestIndexedAssign(t *testing.T) {
	file := parse(t, "m['k'] = 1")
	as, ok := file.Block.Stmts[0].(*ast.AssignStmt)
	require.True(t, ok)
	_, ok = as.Target.(*ast.IndexExpr)
	require.True(t, ok)
}

func TestIfElseChain(t *testing.T) {
	file := parse(t, "if a { 1 } else if b { 2 } else { 3 }")
	ifs, ok := file.Block.Stmts[0].(*ast.IfStmt)
	require.True(t, ok)
	require.NotNil(t, ifs.Else)
	require.Len(t, ifs.Else.Stmts, 1)
	nested, ok := ifs.Else.Stmts[0].(*ast.IfStmt)
	require.True(t, ok)
	require.NotNil(t, nested.Else)
}

func TestElseOnNextLine(t *testing.T) {
	file := parse(t, "if a { 1 }\nelse { 2 }")
	ifs, ok := file.Block.Stmts[0].(*ast.IfStmt)
	require.True(t, ok)
	require.NotNil(t, ifs.Else)
}

func TestForIn(t *testing.T) {
	file := parse(t, "for x in items { print(x) }")
	f, ok := file.Block.Stmts[0].(*ast.ForInStmt)
	require.True(t, ok)
	require.Equal(t, "x", f.Var)
}

func TestFuncDecl(t *testing.T) {
	file := parse(t, "fn add(a, b) { return a + b }")
	fn, ok := file.Block.Stmts[0].(*ast.FuncStmt)
	require.True(t, ok)
	require.Equal(t, "add", fn.Name)
	require.Equal(t, []string{"a", "b"}, fn.Params)
	require.Len(t, fn.Body.Stmts, 1)
}

func TestAllowStatement(t *testing.T) {
	file := parse(t, `allow read "/tmp/*"`)
	al, ok := file.Block.Stmts[0].(*ast.AllowStmt)
	require.True(t, ok)
	require.Equal(t, "read", al.Kind)
	lit, ok := al.Target.(*ast.StringLit)
	require.True(t, ok)
	require.Equal(t, "/tmp/*", lit.Value)
}

func TestAllowExecKeywordKind(t *testing.T) {
	// exec scans as a keyword token but is a valid capability kind
	file := parse(t, `allow exec "ls *"`)
	al, ok := file.Block.Stmts[0].(*ast.AllowStmt)
	require.True(t, ok)
	require.Equal(t, "exec", al.Kind)
}

func TestAllowRejectsUnknownKind(t *testing.T) {
	_, _, err := parser.ParseFile("test.glipt", []byte(`allow chmod "/tmp"`))
	require.Error(t, err)
}

func TestOnFailure(t *testing.T) {
	file := parse(t, "on failure { print(error) }\nrisky()")
	require.Len(t, file.Block.Stmts, 2)
	onf, ok := file.Block.Stmts[0].(*ast.OnFailureStmt)
	require.True(t, ok)
	require.Len(t, onf.Body.Stmts, 1)
}

func TestImportForms(t *testing.T) {
	file := parse(t, "import \"lib\"\nimport \"dir/helpers\" as h")
	im1 := file.Block.Stmts[0].(*ast.ImportStmt)
	require.Equal(t, "lib", im1.Path)
	require.Equal(t, "", im1.As)
	im2 := file.Block.Stmts[1].(*ast.ImportStmt)
	require.Equal(t, "dir/helpers", im2.Path)
	require.Equal(t, "h", im2.As)
}

func TestMatchExpr(t *testing.T) {
	e := parseExpr(t, `match x { 1 -> "one", 2 -> "two", _ -> "other" }`)
	m, ok := e.(*ast.MatchExpr)
	require.True(t, ok)
	require.Len(t, m.Arms, 3)
	require.NotNil(t, m.Arms[0].Pattern)
	require.Nil(t, m.Arms[2].Pattern, "wildcard arm has no pattern")
}

func TestParallelExpr(t *testing.T) {
	e := parseExpr(t, `parallel { "ls", "pwd" }`)
	p, ok := e.(*ast.ParallelExpr)
	require.True(t, ok)
	require.Len(t, p.Commands, 2)
}

func TestMapLiteralBareAndQuotedKeys(t *testing.T) {
	e := parseExpr(t, `{name: "x", "quoted key": 2}`)
	m, ok := e.(*ast.MapLit)
	require.True(t, ok)
	require.Len(t, m.Entries, 2)
	require.Equal(t, "name", m.Entries[0].Key.(*ast.StringLit).Value)
	require.Equal(t, "quoted key", m.Entries[1].Key.(*ast.StringLit).Value)
}

func TestMultilineListAndCall(t *testing.T) {
	file := parse(t, "let xs = [\n  1,\n  2,\n]\nf(\n  3,\n)")
	require.Len(t, file.Block.Stmts, 2)
}

func TestRecoverySynchronizesAtNewline(t *testing.T) {
	file, _, err := parser.ParseFile("test.glipt", []byte("let = 1\nlet y = 2\n"))
	require.Error(t, err)
	require.NotNil(t, file, "best-effort tree is still produced")
}
