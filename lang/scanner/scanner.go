// Package scanner tokenizes glipt source files for the parser to consume.
//
// The scanner operates byte-at-a-time (the language makes no unicode-aware
// promises beyond byte identity) and is responsible for
// the significant-newline rule: a NEWLINE token terminates a statement
// unless the previous significant token implies the expression continues on
// the next line (an infix operator, an opener, a comma, colon, dot, range
// operator, arrow, or another newline).
package scanner

import (
	"fmt"
	"sort"

	"github.com/glipt-org/glipt/lang/token"
)

// Error is a single positioned scan or parse error, modeled on go/scanner's
// Error type but carrying our own token.Position (the resolved form of the
// bit-packed token.Pos) instead of go/token's.
type Error struct {
	Pos token.Position
	Msg string
}

func (e Error) Error() string {
	if e.Pos.Filename != "" || e.Pos.IsValid() {
		return e.Pos.String() + ": " + e.Msg
	}
	return e.Msg
}

// ErrorList accumulates Errors in the order they are reported and can sort
// and report them the way go/scanner.ErrorList does.
type ErrorList []*Error

// Add appends an error. Its signature matches the errHandler callback
// expected by Scanner.Init and Parser, so an *ErrorList can be wired in
// directly as `errs.Add`.
func (l *ErrorList) Add(pos token.Position, msg string) {
	*l = append(*l, &Error{Pos: pos, Msg: msg})
}

// Sort orders the list by filename, then line, then column.
func (l ErrorList) Sort() {
	sort.Slice(l, func(i, j int) bool {
		a, b := l[i].Pos, l[j].Pos
		if a.Filename != b.Filename {
			return a.Filename < b.Filename
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Col < b.Col
	})
}

func (l ErrorList) Error() string {
	switch len(l) {
	case 0:
		return "no errors"
	case 1:
		return l[0].Error()
	}
	return fmt.Sprintf("%s (and %d more errors)", l[0].Error(), len(l)-1)
}

// Err returns nil if the list is empty, and the list itself (as an error)
// otherwise.
func (l ErrorList) Err() error {
	if len(l) == 0 {
		return nil
	}
	return l
}

// continuationTokens holds every token after which a source newline does
// not terminate the current statement.
var continuationTokens = map[token.Token]bool{
	token.NEWLINE:  true,
	token.PLUS:     true,
	token.MINUS:    true,
	token.STAR:     true,
	token.SLASH:    true,
	token.PERCENT:  true,
	token.LT:       true,
	token.GT:       true,
	token.GE:       true,
	token.LE:       true,
	token.EQ:       true,
	token.NEQ:      true,
	token.ASSIGN:   true,
	token.PLUS_EQ:  true,
	token.MINUS_EQ: true,
	token.STAR_EQ:  true,
	token.SLASH_EQ: true,
	token.AND:      true,
	token.OR:       true,
	token.COMMA:    true,
	token.COLON:    true,
	token.DOT:      true,
	token.DOTDOT:   true,
	token.ARROW:    true,
	token.PIPE:     true,
	token.LPAREN:   true,
	token.LBRACK:   true,
	token.LBRACE:   true,
}

// Scanner tokenizes a single source file.
type Scanner struct {
	filename string
	src      []byte
	errFn    func(token.Position, string)

	off  int // byte offset of cur
	roff int // byte offset following cur
	cur  byte
	line int
	col  int

	lastTok token.Token // last significant token returned by Scan, for the newline rule
}

// Init prepares s to scan src, reporting source file name in error
// positions. errHandler, if non-nil, is called for every malformed token.
func (s *Scanner) Init(filename string, src []byte, errHandler func(token.Position, string)) {
	s.filename = filename
	s.src = src
	s.errFn = errHandler
	s.off = 0
	s.roff = 0
	s.line = 1
	s.col = 0
	s.lastTok = token.ILLEGAL
	s.advance()
}

func (s *Scanner) advance() {
	if s.cur == '\n' {
		s.line++
		s.col = 0
	}
	if s.roff >= len(s.src) {
		s.off = len(s.src)
		s.cur = 0
		return
	}
	s.off = s.roff
	s.cur = s.src[s.roff]
	s.roff++
	s.col++
}

func (s *Scanner) peek() byte {
	if s.roff < len(s.src) {
		return s.src[s.roff]
	}
	return 0
}

func (s *Scanner) atEOF() bool { return s.off >= len(s.src) }

func (s *Scanner) pos() token.Pos { return token.MakePos(s.line, s.col) }

func (s *Scanner) error(pos token.Pos, msg string) {
	if s.errFn == nil {
		return
	}
	line, col := pos.LineCol()
	s.errFn(token.Position{Filename: s.filename, Line: line, Col: col}, msg)
}

func (s *Scanner) errorf(pos token.Pos, format string, args ...any) {
	s.error(pos, fmt.Sprintf(format, args...))
}

// advanceIf consumes the current byte and reports true if it equals b.
func (s *Scanner) advanceIf(b byte) bool {
	if s.cur == b {
		s.advance()
		return true
	}
	return false
}

func isLetter(b byte) bool {
	return b == '_' || 'a' <= b && b <= 'z' || 'A' <= b && b <= 'Z'
}

func isDigit(b byte) bool { return '0' <= b && b <= '9' }

// Scan returns the next token, filling tokVal with its literal text,
// position and any decoded payload.
func (s *Scanner) Scan(tokVal *token.Value) token.Token {
	tok := s.scan(tokVal)
	if tok != token.ILLEGAL {
		s.lastTok = tok
	}
	return tok
}

func (s *Scanner) scan(tokVal *token.Value) token.Token {
	for {
		if s.cur == '#' {
			for s.cur != '\n' && !s.atEOF() {
				s.advance()
			}
			continue
		}
		if s.cur == '\n' {
			pos := s.pos()
			s.advance()
			if continuationTokens[s.lastTok] {
				continue
			}
			*tokVal = token.Value{Raw: "\n", Pos: pos}
			return token.NEWLINE
		}
		if s.cur == ' ' || s.cur == '\t' || s.cur == '\r' {
			s.advance()
			continue
		}
		break
	}

	pos := s.pos()
	start := s.off

	if s.atEOF() {
		*tokVal = token.Value{Pos: pos}
		return token.EOF
	}

	switch {
	case isLetter(s.cur):
		for isLetter(s.cur) || isDigit(s.cur) {
			s.advance()
		}
		lit := string(s.src[start:s.off])
		if lit == "f" && (s.cur == '"' || s.cur == '\'') {
			quote := s.cur
			s.advance()
			raw, val := s.fstring(quote, start)
			*tokVal = token.Value{Raw: raw, Pos: pos, String: val}
			return token.FSTRING
		}
		*tokVal = token.Value{Raw: lit, Pos: pos}
		return token.Lookup(lit)

	case isDigit(s.cur) || (s.cur == '.' && isDigit(s.peek())):
		tok, lit := s.number(start)
		*tokVal = token.Value{Raw: lit, Pos: pos}
		if tok == token.INT {
			tokVal.Int = parseInt(lit)
		} else {
			tokVal.Float = parseFloat(lit)
		}
		return tok

	case s.cur == '"' || s.cur == '\'':
		quote := s.cur
		s.advance()
		raw, val := s.shortString(quote, start)
		*tokVal = token.Value{Raw: raw, Pos: pos, String: val}
		return token.STRING

	case s.cur == '`':
		s.advance()
		raw, val := s.rawString(start)
		*tokVal = token.Value{Raw: raw, Pos: pos, String: val}
		return token.STRING
	}

	return s.punct(pos, start, tokVal)
}

func (s *Scanner) punct(pos token.Pos, start int, tokVal *token.Value) token.Token {
	cur := s.cur
	s.advance()

	var tok token.Token
	switch cur {
	case '+':
		tok = token.PLUS
		if s.advanceIf('=') {
			tok = token.PLUS_EQ
		}
	case '-':
		tok = token.MINUS
		if s.advanceIf('=') {
			tok = token.MINUS_EQ
		} else if s.advanceIf('>') {
			tok = token.ARROW
		}
	case '*':
		tok = token.STAR
		if s.advanceIf('=') {
			tok = token.STAR_EQ
		}
	case '/':
		tok = token.SLASH
		if s.advanceIf('=') {
			tok = token.SLASH_EQ
		}
	case '%':
		tok = token.PERCENT
	case '.':
		tok = token.DOT
		if s.advanceIf('.') {
			tok = token.DOTDOT
		}
	case ',':
		tok = token.COMMA
	case ':':
		tok = token.COLON
	case '|':
		tok = token.PIPE
	case '(':
		tok = token.LPAREN
	case ')':
		tok = token.RPAREN
	case '[':
		tok = token.LBRACK
	case ']':
		tok = token.RBRACK
	case '{':
		tok = token.LBRACE
	case '}':
		tok = token.RBRACE
	case '=':
		tok = token.ASSIGN
		if s.advanceIf('=') {
			tok = token.EQ
		}
	case '!':
		if s.advanceIf('=') {
			tok = token.NEQ
		} else {
			s.errorf(pos, "illegal character '!', expected '!='")
			tok = token.ILLEGAL
		}
	case '<':
		tok = token.LT
		if s.advanceIf('=') {
			tok = token.LE
		}
	case '>':
		tok = token.GT
		if s.advanceIf('=') {
			tok = token.GE
		}
	default:
		s.errorf(pos, "illegal character %q", cur)
		tok = token.ILLEGAL
	}
	*tokVal = token.Value{Raw: string(s.src[start:s.off]), Pos: pos}
	return tok
}
