package parser

import (
	"github.com/glipt-org/glipt/lang/ast"
	"github.com/glipt-org/glipt/lang/token"
)

// parseStmtList parses statements until it sees end or EOF, skipping blank
// lines between them. Used both for a file's top-level block and, via
// parseBlock, for brace-delimited bodies.
func (p *Parser) parseStmtList(end token.Token) *ast.Block {
	block := ast.New(p.arena, &ast.Block{})
	p.skipNewlines()
	for p.cur != end && p.cur != token.EOF {
		nerrs := len(*p.errs)
		stmt := p.parseStmt()
		if stmt != nil {
			block.Stmts = append(block.Stmts, stmt)
		}
		if len(*p.errs) > nerrs {
			p.synchronize()
		}
		p.skipStmtEnd()
	}
	return block
}

func (p *Parser) parseBlock() *ast.Block {
	p.expect(token.LBRACE)
	block := p.parseStmtList(token.RBRACE)
	p.expect(token.RBRACE)
	return block
}

func (p *Parser) parseStmt() ast.Stmt {
	switch p.cur {
	case token.LET:
		return p.parseLetStmt()
	case token.IF:
		return p.parseIfStmt()
	case token.WHILE:
		return p.parseWhileStmt()
	case token.FOR:
		return p.parseForStmt()
	case token.RETURN:
		return p.parseReturnStmt()
	case token.BREAK:
		pos := p.curVal.Pos
		p.advance()
		return ast.New(p.arena, &ast.BreakStmt{Pos: pos})
	case token.CONTINUE:
		pos := p.curVal.Pos
		p.advance()
		return ast.New(p.arena, &ast.ContinueStmt{Pos: pos})
	case token.FN:
		return p.parseFuncStmt()
	case token.ALLOW:
		return p.parseAllowStmt()
	case token.ON:
		return p.parseOnFailureStmt()
	case token.IMPORT:
		return p.parseImportStmt()
	default:
		return p.parseSimpleStmt()
	}
}

func (p *Parser) parseLetStmt() ast.Stmt {
	pos := p.curVal.Pos
	p.expect(token.LET)
	var name token.Value
	if p.cur == token.EXEC || p.cur == token.EXIT {
		// reserved, but parsed as a name so the compiler can reject it
		name = p.curVal
		p.advance()
	} else {
		name = p.expect(token.IDENT)
	}
	target := ast.New(p.arena, &ast.Ident{Pos: name.Pos, Name: name.Raw})
	p.expect(token.ASSIGN)
	p.skipNewlines()
	value := p.parseExpr(precLowest)
	return ast.New(p.arena, &ast.AssignStmt{Pos: pos, Let: true, Target: target, Op: token.ASSIGN, Value: value})
}

// assignOp reports whether tok is an assignment operator (= or a compound
// +=/-=/*=//=) and so can follow an lvalue to start an AssignStmt.
func assignOp(tok token.Token) bool {
	switch tok {
	case token.ASSIGN, token.PLUS_EQ, token.MINUS_EQ, token.STAR_EQ, token.SLASH_EQ:
		return true
	}
	return false
}

// parseSimpleStmt parses a bare expression statement, which may turn out to
// be an assignment (x = e, x[i] += e, x.f = e) once an assignment operator
// is seen following the parsed target expression.
func (p *Parser) parseSimpleStmt() ast.Stmt {
	pos := p.curVal.Pos
	x := p.parseExpr(precLowest)
	if assignOp(p.cur) {
		op := p.cur
		p.advance()
		p.skipNewlines()
		value := p.parseExpr(precLowest)
		return ast.New(p.arena, &ast.AssignStmt{Pos: pos, Let: false, Target: x, Op: op, Value: value})
	}
	return ast.New(p.arena, &ast.ExprStmt{X: x})
}

func (p *Parser) parseIfStmt() ast.Stmt {
	pos := p.curVal.Pos
	p.expect(token.IF)
	cond := p.parseExpr(precLowest)
	p.skipNewlines()
	then := p.parseBlock()
	stmt := ast.New(p.arena, &ast.IfStmt{Pos: pos, Cond: cond, Then: then})
	p.skipNewlinesBeforeElse()
	if p.match(token.ELSE) {
		if p.cur == token.IF {
			elseIf := p.parseIfStmt()
			stmt.Else = ast.New(p.arena, &ast.Block{Stmts: []ast.Stmt{elseIf}})
		} else {
			p.skipNewlines()
			stmt.Else = p.parseBlock()
		}
	}
	return stmt
}

// skipNewlinesBeforeElse swallows a newline between a closing "}" and a
// following "else" so that both
//
//	if cond { ... }
//	else { ... }
//
// and the single-line `if cond { ... } else { ... }` form parse the same.
func (p *Parser) skipNewlinesBeforeElse() {
	save := p.scan
	saveCur, saveVal := p.cur, p.curVal
	p.skipNewlines()
	if p.cur != token.ELSE {
		p.scan = save
		p.cur, p.curVal = saveCur, saveVal
	}
}

func (p *Parser) parseWhileStmt() ast.Stmt {
	pos := p.curVal.Pos
	p.expect(token.WHILE)
	cond := p.parseExpr(precLowest)
	p.skipNewlines()
	body := p.parseBlock()
	return ast.New(p.arena, &ast.WhileStmt{Pos: pos, Cond: cond, Body: body})
}

func (p *Parser) parseForStmt() ast.Stmt {
	pos := p.curVal.Pos
	p.expect(token.FOR)
	name := p.expect(token.IDENT)
	p.expect(token.IN)
	iter := p.parseExpr(precLowest)
	p.skipNewlines()
	body := p.parseBlock()
	return ast.New(p.arena, &ast.ForInStmt{Pos: pos, Var: name.Raw, Iter: iter, Body: body})
}

func (p *Parser) parseReturnStmt() ast.Stmt {
	pos := p.curVal.Pos
	p.expect(token.RETURN)
	if p.cur == token.NEWLINE || p.cur == token.RBRACE || p.cur == token.EOF {
		return ast.New(p.arena, &ast.ReturnStmt{Pos: pos})
	}
	value := p.parseExpr(precLowest)
	return ast.New(p.arena, &ast.ReturnStmt{Pos: pos, Value: value})
}

func (p *Parser) parseFuncStmt() ast.Stmt {
	pos := p.curVal.Pos
	p.expect(token.FN)
	var name token.Value
	if p.cur == token.EXEC || p.cur == token.EXIT {
		name = p.curVal
		p.advance()
	} else {
		name = p.expect(token.IDENT)
	}
	p.expect(token.LPAREN)
	p.skipNewlines()
	var params []string
	for p.cur != token.RPAREN && p.cur != token.EOF {
		params = append(params, p.expect(token.IDENT).Raw)
		p.skipNewlines()
		if !p.match(token.COMMA) {
			break
		}
		p.skipNewlines()
	}
	p.expect(token.RPAREN)
	p.skipNewlines()
	body := p.parseBlock()
	return ast.New(p.arena, &ast.FuncStmt{Pos: pos, Name: name.Raw, Params: params, Body: body})
}

// allowKinds lists the capability kinds accepted after `allow`.
var allowKinds = map[string]bool{
	"exec": true, "net": true, "read": true, "write": true, "env": true,
}

func (p *Parser) parseAllowStmt() ast.Stmt {
	pos := p.curVal.Pos
	p.expect(token.ALLOW)
	// kinds are recognized contextually: read/write/net/env scan as plain
	// identifiers, exec as its keyword token
	var kind token.Value
	if p.cur == token.IDENT || p.cur == token.EXEC {
		kind = p.curVal
		p.advance()
	} else {
		kind = p.expect(token.IDENT)
	}
	if !allowKinds[kind.Raw] {
		p.errorf("unknown capability kind %q, expected one of exec, net, read, write, env", kind.Raw)
	}
	target := p.parseExpr(precLowest)
	return ast.New(p.arena, &ast.AllowStmt{Pos: pos, Kind: kind.Raw, Target: target})
}

func (p *Parser) parseOnFailureStmt() ast.Stmt {
	pos := p.curVal.Pos
	p.expect(token.ON)
	p.expect(token.FAILURE)
	p.skipNewlines()
	body := p.parseBlock()
	return ast.New(p.arena, &ast.OnFailureStmt{Pos: pos, Body: body})
}

func (p *Parser) parseImportStmt() ast.Stmt {
	pos := p.curVal.Pos
	p.expect(token.IMPORT)
	path := p.expect(token.STRING)
	stmt := ast.New(p.arena, &ast.ImportStmt{Pos: pos, Path: path.String})
	if p.match(token.AS) {
		alias := p.expect(token.IDENT)
		stmt.As = alias.Raw
	}
	return stmt
}
