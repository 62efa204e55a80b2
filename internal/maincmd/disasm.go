package maincmd

import (
	"context"
	"fmt"

	"github.com/mna/mainer"

	"github.com/glipt-org/glipt/lang/compiler"
)

// Disasm compiles a script and prints its bytecode, one function per
// section.
func (c *Cmd) Disasm(ctx context.Context, stdio mainer.Stdio, args []string) error {
	fn, err := compileFile(stdio.Stderr, args[0])
	if err != nil {
		return err
	}
	fmt.Fprint(stdio.Stdout, compiler.Disassemble(fn))
	return nil
}
