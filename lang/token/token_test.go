package token_test

import (
	"testing"

	"github.com/glipt-org/glipt/lang/token"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	cases := map[string]token.Token{
		"let":      token.LET,
		"fn":       token.FN,
		"on":       token.ON,
		"failure":  token.FAILURE,
		"parallel": token.PARALLEL,
		"exec":     token.EXEC,
		"exit":     token.EXIT,
		"foo":      token.IDENT,
		"Allow":    token.IDENT, // case-sensitive
	}
	for lit, want := range cases {
		require.Equalf(t, want, token.Lookup(lit), "Lookup(%q)", lit)
	}
}

func TestTokenString(t *testing.T) {
	require.Equal(t, "+=", token.PLUS_EQ.String())
	require.Equal(t, "'+='", token.PLUS_EQ.GoString())
	require.Equal(t, "allow", token.ALLOW.String())
	require.True(t, token.ALLOW.IsKeyword())
	require.False(t, token.IDENT.IsKeyword())
}

func TestPos(t *testing.T) {
	p := token.MakePos(12, 34)
	line, col := p.LineCol()
	require.Equal(t, 12, line)
	require.Equal(t, 34, col)
	require.True(t, p.IsValid())
	require.False(t, token.Pos(0).IsValid())
}
