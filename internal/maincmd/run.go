package maincmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/mna/mainer"

	"github.com/glipt-org/glipt/lang/compiler"
	"github.com/glipt-org/glipt/lang/natives"
	"github.com/glipt-org/glipt/lang/parser"
	"github.com/glipt-org/glipt/lang/vm"
)

// newThread builds a thread wired to the process stdio with the full
// native environment registered.
func (c *Cmd) newThread(stdio mainer.Stdio, scriptPath string, scriptArgs []string) *vm.Thread {
	th := &vm.Thread{
		Stdout:     stdio.Stdout,
		Stderr:     stdio.Stderr,
		Stdin:      stdio.Stdin,
		Args:       scriptArgs,
		ScriptPath: scriptPath,
	}
	if c.AllowAll {
		th.Perms.AllowAll()
	}
	natives.Register(th)
	return th
}

// Run compiles and executes a script.
func (c *Cmd) Run(ctx context.Context, stdio mainer.Stdio, args []string) error {
	path := args[0]
	fn, err := compileFile(stdio.Stderr, path)
	if err != nil {
		return err
	}

	abs, aerr := filepath.Abs(path)
	if aerr != nil {
		abs = path
	}
	th := c.newThread(stdio, abs, args[1:])

	if _, rerr := th.Run(fn); rerr != nil {
		var exit *vm.Exit
		if errors.As(rerr, &exit) {
			if exit.Code == 0 {
				return nil
			}
			return exitErr(exit.Code)
		}
		return fmt.Errorf("%w: %s", errRuntime, path)
	}
	return nil
}

// Repl reads statements line by line and executes each in one persistent
// thread, so bindings, permission grants and loaded modules survive across
// inputs.
func (c *Cmd) Repl(ctx context.Context, stdio mainer.Stdio, args []string) error {
	th := c.newThread(stdio, "", nil)
	fmt.Fprintf(stdio.Stdout, "%s %s (repl) -- ctrl-D to exit\n", binName, c.BuildVersion)

	sc := bufio.NewScanner(stdio.Stdin)
	for {
		if ctx.Err() != nil {
			return nil
		}
		fmt.Fprint(stdio.Stdout, "> ")
		if !sc.Scan() {
			fmt.Fprintln(stdio.Stdout)
			return nil
		}
		line := sc.Text()
		if line == "" {
			continue
		}

		file, arena, perr := parser.ParseFile("<repl>", []byte(line))
		if perr != nil {
			printErrors(stdio.Stderr, perr)
			continue
		}
		fn, cerr := compiler.Compile(file)
		arena.Reset()
		if cerr != nil {
			printErrors(stdio.Stderr, cerr)
			continue
		}

		res, rerr := th.Run(fn)
		if rerr != nil {
			var exit *vm.Exit
			if errors.As(rerr, &exit) {
				return exitErr(exit.Code)
			}
			continue // the error is already printed; keep the session alive
		}
		if !res.IsNil() {
			fmt.Fprintln(stdio.Stdout, vm.ToString(res))
		}
	}
}
