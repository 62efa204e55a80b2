package maincmd

import (
	"context"
	"fmt"

	"github.com/mna/mainer"
)

// Check compiles a script without executing it, reporting only whether it
// is valid.
func (c *Cmd) Check(ctx context.Context, stdio mainer.Stdio, args []string) error {
	path := args[0]
	if _, err := compileFile(stdio.Stderr, path); err != nil {
		return err
	}
	fmt.Fprintf(stdio.Stdout, "%s: ok\n", path)
	return nil
}
