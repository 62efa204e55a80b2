package maincmd

import (
	"context"

	"github.com/mna/mainer"

	"github.com/glipt-org/glipt/lang/ast"
)

// Ast parses a script and prints the resulting parse tree.
func (c *Cmd) Ast(ctx context.Context, stdio mainer.Stdio, args []string) error {
	file, arena, err := parseFile(stdio.Stderr, args[0])
	if err != nil {
		return err
	}
	defer arena.Reset()
	return ast.Fprint(stdio.Stdout, file)
}
