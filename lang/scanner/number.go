package scanner

import (
	"strconv"

	"github.com/glipt-org/glipt/lang/token"
)

// number scans an integer or floating-point literal: digits, an optional
// fractional part, and an optional scientific exponent.
func (s *Scanner) number(start int) (token.Token, string) {
	tok := token.INT

	for isDigit(s.cur) {
		s.advance()
	}
	if s.cur == '.' && isDigit(s.peek()) {
		tok = token.FLOAT
		s.advance()
		for isDigit(s.cur) {
			s.advance()
		}
	}
	if s.cur == 'e' || s.cur == 'E' {
		la := s.peek()
		if isDigit(la) || ((la == '+' || la == '-') && start < len(s.src)) {
			tok = token.FLOAT
			s.advance()
			if s.cur == '+' || s.cur == '-' {
				s.advance()
			}
			for isDigit(s.cur) {
				s.advance()
			}
		}
	}
	return tok, string(s.src[start:s.off])
}

func parseInt(lit string) int64 {
	v, _ := strconv.ParseInt(lit, 10, 64)
	return v
}

func parseFloat(lit string) float64 {
	v, _ := strconv.ParseFloat(lit, 64)
	return v
}
