package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"

	"github.com/glipt-org/glipt/lang/scanner"
	"github.com/glipt-org/glipt/lang/token"
)

// Tokens scans a script and prints one token per line with its position
// and literal text.
func (c *Cmd) Tokens(ctx context.Context, stdio mainer.Stdio, args []string) error {
	path := args[0]
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return fmt.Errorf("%w: %s", errCompile, path)
	}

	var errs scanner.ErrorList
	var s scanner.Scanner
	s.Init(path, src, errs.Add)

	var val token.Value
	for {
		tok := s.Scan(&val)
		fmt.Fprintf(stdio.Stdout, "%s: %s", val.Pos, tok)
		if tok == token.IDENT || tok == token.INT || tok == token.FLOAT ||
			tok == token.STRING || tok == token.FSTRING {
			fmt.Fprintf(stdio.Stdout, " %s", val.Raw)
		}
		fmt.Fprintln(stdio.Stdout)
		if tok == token.EOF {
			break
		}
	}

	if len(errs) > 0 {
		errs.Sort()
		printErrors(stdio.Stderr, errs)
		return fmt.Errorf("%w: %s", errCompile, path)
	}
	return nil
}
