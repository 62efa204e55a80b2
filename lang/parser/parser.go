// Package parser implements the Pratt expression parser and recursive
// descent statement parser that turns a glipt token stream into an AST
// ready for compilation.
package parser

import (
	"fmt"

	"github.com/glipt-org/glipt/lang/ast"
	"github.com/glipt-org/glipt/lang/scanner"
	"github.com/glipt-org/glipt/lang/token"
)

// Parser holds the state needed to turn one source file into an *ast.File.
type Parser struct {
	filename string
	scan     scanner.Scanner
	arena    *ast.Arena
	errs     *scanner.ErrorList

	cur, prev       token.Token
	curVal, prevVal token.Value
}

// ParseFile scans and parses src, returning the resulting file and arena.
// Parse errors are accumulated and returned as a scanner.ErrorList; a
// non-nil *ast.File may still be returned alongside errors (best-effort
// recovery via panic-mode synchronization), but it should not be compiled.
func ParseFile(filename string, src []byte) (*ast.File, *ast.Arena, error) {
	var errs scanner.ErrorList
	p := &Parser{filename: filename, arena: ast.NewArena(), errs: &errs}
	p.scan.Init(filename, src, errs.Add)
	p.advance()

	block := p.parseStmtList(token.EOF)
	errs.Sort()
	return &ast.File{Filename: filename, Block: block}, p.arena, errs.Err()
}

// parseSub parses src as a standalone expression, sharing the arena and
// error sink of the enclosing parser. Used to re-enter the grammar for
// each { expr } span of an f-string interpolation with its own scanner, so
// the enclosing parse state is untouched.
func (p *Parser) parseSub(src []byte, pos token.Pos) ast.Expr {
	sub := &Parser{filename: p.filename, arena: p.arena, errs: p.errs}
	sub.scan.Init(p.filename, src, p.errs.Add)
	sub.advance()
	if sub.cur == token.EOF {
		return ast.New(p.arena, &ast.StringLit{Pos: pos, Value: ""})
	}
	return sub.parseExpr(precLowest)
}

func (p *Parser) advance() {
	p.prev, p.prevVal = p.cur, p.curVal
	p.cur = p.scan.Scan(&p.curVal)
	for p.cur == token.ILLEGAL {
		p.cur = p.scan.Scan(&p.curVal)
	}
}

func (p *Parser) at(tok token.Token) bool { return p.cur == tok }

func (p *Parser) match(tok token.Token) bool {
	if p.cur != tok {
		return false
	}
	p.advance()
	return true
}

func (p *Parser) expect(tok token.Token) token.Value {
	if p.cur != tok {
		p.errorf("expected %s, got %s", tok, p.cur)
		return p.curVal
	}
	v := p.curVal
	p.advance()
	return v
}

// skipNewlines discards any pending NEWLINE tokens. Used inside bracketed
// groupings (call args, list/map literals, parameter lists) where a
// newline before the closing delimiter is not a statement terminator, even
// though the scanner's context-free suppression rule does not already
// drop it (see lang/scanner's continuationTokens).
func (p *Parser) skipNewlines() {
	for p.cur == token.NEWLINE {
		p.advance()
	}
}

// skipStmtEnd consumes one or more NEWLINE tokens terminating a statement.
func (p *Parser) skipStmtEnd() {
	for p.cur == token.NEWLINE {
		p.advance()
	}
}

func (p *Parser) error(msg string) {
	line, col := p.curVal.Pos.LineCol()
	p.errs.Add(token.Position{Filename: p.filename, Line: line, Col: col}, msg)
}

func (p *Parser) errorf(format string, args ...any) {
	p.error(fmt.Sprintf(format, args...))
}

// statementStart reports whether tok can begin a new statement, used by
// synchronize to find a safe resumption point after a parse error.
func statementStart(tok token.Token) bool {
	switch tok {
	case token.LET, token.IF, token.WHILE, token.FOR, token.RETURN, token.BREAK,
		token.CONTINUE, token.FN, token.ALLOW, token.ON, token.IMPORT:
		return true
	}
	return false
}

// synchronize implements panic-mode error recovery: skip tokens until the
// next statement-starting keyword, a newline, or a block close.
func (p *Parser) synchronize() {
	for p.cur != token.EOF && p.cur != token.RBRACE {
		if p.cur == token.NEWLINE {
			p.advance()
			return
		}
		if statementStart(p.cur) {
			return
		}
		p.advance()
	}
}
