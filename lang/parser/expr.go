package parser

import (
	"strings"

	"github.com/glipt-org/glipt/lang/ast"
	"github.com/glipt-org/glipt/lang/scanner"
	"github.com/glipt-org/glipt/lang/token"
)

// Precedence levels, lowest to highest. Pipe binds loosest so that
// `a | f | g(1)` reads as `g(1)(f(a))`; call and attribute/index access bind
// tightest of all, handled directly in parsePostfix rather than through the
// table.
const (
	precLowest = iota
	precPipe
	precOr
	precAnd
	precEquality
	precComparison
	precRange
	precAdd
	precMul
	precUnary
)

func binPrec(tok token.Token) (int, bool) {
	switch tok {
	case token.PIPE:
		return precPipe, true
	case token.OR:
		return precOr, true
	case token.AND:
		return precAnd, true
	case token.EQ, token.NEQ:
		return precEquality, true
	case token.LT, token.LE, token.GT, token.GE:
		return precComparison, true
	case token.DOTDOT:
		return precRange, true
	case token.PLUS, token.MINUS:
		return precAdd, true
	case token.STAR, token.SLASH, token.PERCENT:
		return precMul, true
	default:
		return 0, false
	}
}

// parseExpr implements precedence climbing: it parses a unary/postfix
// operand, then repeatedly folds in infix operators whose precedence is at
// least minPrec.
func (p *Parser) parseExpr(minPrec int) ast.Expr {
	left := p.parseUnary()

	for {
		prec, ok := binPrec(p.cur)
		if !ok || prec < minPrec {
			return left
		}
		op := p.cur
		pos := p.curVal.Pos
		p.advance()
		p.skipNewlines()

		switch op {
		case token.PIPE:
			// a | f(args...)  =>  (f(args...))(a): the right side is the
			// callee and a is its only argument.
			rhs := p.parseExpr(precPipe + 1)
			left = pipeInto(p.arena, pos, left, rhs)
			continue
		case token.DOTDOT:
			hi := p.parseExpr(precRange + 1)
			left = ast.New(p.arena, &ast.CallExpr{
				Pos:    pos,
				Callee: ast.New(p.arena, &ast.Ident{Pos: pos, Name: "range"}),
				Args:   []ast.Expr{left, hi},
			})
			continue
		}

		right := p.parseExpr(prec + 1)
		left = ast.New(p.arena, &ast.BinaryExpr{Pos: pos, Op: op, X: left, Y: right})
	}
}

// pipeInto rewrites `lhs | rhs` into `rhs(lhs)`: rhs is called with exactly
// one argument, the piped-in value: the right side becomes the callee
// rather than having lhs spliced into an existing call's argument list.
func pipeInto(a *ast.Arena, pos token.Pos, lhs, rhs ast.Expr) ast.Expr {
	return ast.New(a, &ast.CallExpr{Pos: pos, Callee: rhs, Args: []ast.Expr{lhs}})
}

func (p *Parser) parseUnary() ast.Expr {
	switch p.cur {
	case token.MINUS, token.NOT:
		op := p.cur
		pos := p.curVal.Pos
		p.advance()
		x := p.parseExpr(precUnary)
		return ast.New(p.arena, &ast.UnaryExpr{Pos: pos, Op: op, X: x})
	default:
		return p.parsePostfix()
	}
}

func (p *Parser) parsePostfix() ast.Expr {
	x := p.parsePrimary()
	for {
		switch p.cur {
		case token.LPAREN:
			pos := p.curVal.Pos
			p.advance()
			p.skipNewlines()
			var args []ast.Expr
			for p.cur != token.RPAREN && p.cur != token.EOF {
				args = append(args, p.parseExpr(precLowest))
				p.skipNewlines()
				if !p.match(token.COMMA) {
					break
				}
				p.skipNewlines()
			}
			p.expect(token.RPAREN)
			x = ast.New(p.arena, &ast.CallExpr{Pos: pos, Callee: x, Args: args})
		case token.LBRACK:
			pos := p.curVal.Pos
			p.advance()
			p.skipNewlines()
			idx := p.parseExpr(precLowest)
			p.skipNewlines()
			p.expect(token.RBRACK)
			x = ast.New(p.arena, &ast.IndexExpr{Pos: pos, X: x, Index: idx})
		case token.DOT:
			pos := p.curVal.Pos
			p.advance()
			name := p.propertyName()
			x = ast.New(p.arena, &ast.AttrExpr{Pos: pos, X: x, Name: name})
		default:
			return x
		}
	}
}

// propertyName consumes the name after a '.': identifiers and keywords are
// both accepted, so `proc.exec` or `m.match` work even though exec and
// match are reserved in statement position.
func (p *Parser) propertyName() string {
	if p.cur == token.IDENT || p.cur.IsKeyword() {
		name := p.curVal.Raw
		p.advance()
		return name
	}
	p.errorf("expected property name after '.', got %s", p.cur)
	return ""
}

func (p *Parser) parsePrimary() ast.Expr {
	switch p.cur {
	case token.INT:
		v := p.curVal
		p.advance()
		return ast.New(p.arena, &ast.IntLit{Pos: v.Pos, Value: v.Int})
	case token.FLOAT:
		v := p.curVal
		p.advance()
		return ast.New(p.arena, &ast.FloatLit{Pos: v.Pos, Value: v.Float})
	case token.STRING:
		v := p.curVal
		p.advance()
		return ast.New(p.arena, &ast.StringLit{Pos: v.Pos, Value: v.String})
	case token.FSTRING:
		v := p.curVal
		p.advance()
		return p.parseFString(v.Pos, v.String)
	case token.TRUE:
		pos := p.curVal.Pos
		p.advance()
		return ast.New(p.arena, &ast.BoolLit{Pos: pos, Value: true})
	case token.FALSE:
		pos := p.curVal.Pos
		p.advance()
		return ast.New(p.arena, &ast.BoolLit{Pos: pos, Value: false})
	case token.NIL:
		pos := p.curVal.Pos
		p.advance()
		return ast.New(p.arena, &ast.NilLit{Pos: pos})
	case token.IDENT, token.EXEC, token.EXIT:
		v := p.curVal
		p.advance()
		return ast.New(p.arena, &ast.Ident{Pos: v.Pos, Name: v.Raw})
	case token.LPAREN:
		p.advance()
		p.skipNewlines()
		x := p.parseExpr(precLowest)
		p.skipNewlines()
		p.expect(token.RPAREN)
		return x
	case token.LBRACK:
		return p.parseListLit()
	case token.LBRACE:
		return p.parseMapLit()
	case token.MATCH:
		return p.parseMatchExpr()
	case token.PARALLEL:
		return p.parseParallelExpr()
	default:
		pos := p.curVal.Pos
		p.errorf("unexpected %s in expression", p.cur)
		p.advance()
		return ast.New(p.arena, &ast.NilLit{Pos: pos})
	}
}

func (p *Parser) parseListLit() ast.Expr {
	pos := p.curVal.Pos
	p.expect(token.LBRACK)
	p.skipNewlines()
	var elems []ast.Expr
	for p.cur != token.RBRACK && p.cur != token.EOF {
		elems = append(elems, p.parseExpr(precLowest))
		p.skipNewlines()
		if !p.match(token.COMMA) {
			break
		}
		p.skipNewlines()
	}
	p.expect(token.RBRACK)
	return ast.New(p.arena, &ast.ListLit{Pos: pos, Elems: elems})
}

func (p *Parser) parseMapLit() ast.Expr {
	pos := p.curVal.Pos
	p.expect(token.LBRACE)
	p.skipNewlines()
	var entries []ast.MapEntry
	for p.cur != token.RBRACE && p.cur != token.EOF {
		var key ast.Expr
		if p.cur == token.IDENT && p.looksLikeBareKey() {
			v := p.curVal
			p.advance()
			key = ast.New(p.arena, &ast.StringLit{Pos: v.Pos, Value: v.Raw})
		} else if p.cur == token.STRING {
			v := p.curVal
			p.advance()
			key = ast.New(p.arena, &ast.StringLit{Pos: v.Pos, Value: v.String})
		} else {
			key = p.parseExpr(precLowest)
		}
		p.expect(token.COLON)
		p.skipNewlines()
		val := p.parseExpr(precLowest)
		entries = append(entries, ast.MapEntry{Key: key, Value: val})
		p.skipNewlines()
		if !p.match(token.COMMA) {
			break
		}
		p.skipNewlines()
	}
	p.expect(token.RBRACE)
	return ast.New(p.arena, &ast.MapLit{Pos: pos, Entries: entries})
}

// looksLikeBareKey reports whether the current IDENT token is immediately
// followed by a COLON, i.e. it is a bare map key (`{name: "x"}`) rather than
// the start of an arbitrary key expression.
func (p *Parser) looksLikeBareKey() bool {
	// The scanner only exposes one token of lookahead through p.cur/p.advance,
	// but a bare key is always followed directly by COLON with no operator in
	// between, so peeking at the next scan is safe: save and restore scanner
	// state by operating on a throwaway copy.
	save := p.scan
	saveCur, saveVal := p.cur, p.curVal
	p.advance()
	isColon := p.cur == token.COLON
	p.scan = save
	p.cur, p.curVal = saveCur, saveVal
	return isColon
}

func (p *Parser) parseMatchExpr() ast.Expr {
	pos := p.curVal.Pos
	p.expect(token.MATCH)
	subject := p.parseExpr(precLowest)
	p.skipNewlines()
	p.expect(token.LBRACE)
	p.skipNewlines()
	var arms []ast.MatchArm
	for p.cur != token.RBRACE && p.cur != token.EOF {
		var pattern ast.Expr
		if p.cur == token.IDENT && p.curVal.Raw == "_" {
			p.advance()
		} else {
			pattern = p.parseExpr(precLowest)
		}
		p.expect(token.ARROW)
		p.skipNewlines()
		body := p.parseExpr(precLowest)
		arms = append(arms, ast.MatchArm{Pattern: pattern, Body: body})
		p.skipNewlines()
		if !p.match(token.COMMA) {
			p.skipNewlines()
			continue
		}
		p.skipNewlines()
	}
	p.expect(token.RBRACE)
	return ast.New(p.arena, &ast.MatchExpr{Pos: pos, Subject: subject, Arms: arms})
}

func (p *Parser) parseParallelExpr() ast.Expr {
	pos := p.curVal.Pos
	p.expect(token.PARALLEL)
	p.expect(token.LBRACE)
	p.skipNewlines()
	var cmds []ast.Expr
	for p.cur != token.RBRACE && p.cur != token.EOF {
		cmds = append(cmds, p.parseExpr(precLowest))
		p.skipNewlines()
		if !p.match(token.COMMA) {
			break
		}
		p.skipNewlines()
	}
	p.expect(token.RBRACE)
	return ast.New(p.arena, &ast.ParallelExpr{Pos: pos, Commands: cmds})
}

// parseFString walks the raw payload of an f-string token (the text between
// its quotes, with brace-nesting already validated by the scanner) and
// builds a tree of StringLit/CallExpr(str,...)/BinaryExpr(PLUS,...) nodes:
// every literal run becomes a StringLit (escapes decoded via
// scanner.DecodeEscape), every {expr} span is re-parsed as an independent
// expression via parseSub and wrapped in a call to the builtin str, and the
// parts are concatenated left to right with +. No FSTRING AST node ever
// exists past this point.
func (p *Parser) parseFString(pos token.Pos, payload string) ast.Expr {
	var parts []ast.Expr
	var lit strings.Builder

	flushLit := func() {
		if lit.Len() == 0 && len(parts) > 0 {
			return
		}
		parts = append(parts, ast.New(p.arena, &ast.StringLit{Pos: pos, Value: lit.String()}))
		lit.Reset()
	}

	i := 0
	n := len(payload)
	for i < n {
		c := payload[i]
		switch c {
		case '\\':
			if i+1 < n {
				lit.WriteByte(scanner.DecodeEscape(payload[i+1]))
				i += 2
			} else {
				i++
			}
		case '{':
			flushLit()
			depth := 1
			j := i + 1
			for j < n && depth > 0 {
				switch payload[j] {
				case '{':
					depth++
				case '}':
					depth--
				}
				if depth > 0 {
					j++
				}
			}
			exprSrc := payload[i+1 : j]
			expr := p.parseSub([]byte(exprSrc), pos)
			parts = append(parts, ast.New(p.arena, &ast.CallExpr{
				Pos:    pos,
				Callee: ast.New(p.arena, &ast.Ident{Pos: pos, Name: "str"}),
				Args:   []ast.Expr{expr},
			}))
			i = j + 1
		default:
			lit.WriteByte(c)
			i++
		}
	}
	flushLit()

	if len(parts) == 0 {
		return ast.New(p.arena, &ast.StringLit{Pos: pos, Value: ""})
	}
	result := parts[0]
	for _, part := range parts[1:] {
		result = ast.New(p.arena, &ast.BinaryExpr{Pos: pos, Op: token.PLUS, X: result, Y: part})
	}
	return result
}
