// Package maincmd implements the glipt command-line tool: parse the
// command line, dispatch to the requested verb, map the outcome to the
// documented exit codes (0 success, 65 compile error, 70 runtime error).
package maincmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/mna/mainer"
)

const binName = "glipt"

const (
	// ExitCompileError is returned when a script fails to scan, parse or
	// compile.
	ExitCompileError = 65
	// ExitRuntimeError is returned when a script fails during execution.
	ExitRuntimeError = 70
)

var (
	shortUsage = fmt.Sprintf(`
usage: %s [<option>...] <command> [<path>] [<arg>...]
Run '%[1]s --help' for details.
`, binName)

	longUsage = fmt.Sprintf(`usage: %s [<option>...] <command> [<path>] [<arg>...]
       %[1]s -h|--help
       %[1]s -v|--version

Interpreter and all-in-one tool for the %[1]s scripting language.

The <command> can be one of:
       run <script> [<arg>...]   Compile and execute the script; extra
                                 arguments are exposed as sys.args.
       repl                      Start an interactive session.
       check <script>            Compile the script and report errors
                                 without executing it.
       disasm <script>           Compile the script and print its
                                 bytecode.
       ast <script>              Parse the script and print the resulting
                                 abstract syntax tree (AST).
       tokens <script>           Scan the script and print the resulting
                                 tokens.
       version                   Print version and exit.
       help                      Show this help and exit.

Valid flag options are:
       -h --help                 Show this help and exit.
       -v --version              Print version and exit.

Valid flag options for the <run> command are:
       --allow-all               Grant every capability to the script
                                 instead of starting with none.

Exit codes: 0 on success, %d on compile error, %d on runtime error.
`, binName, ExitCompileError, ExitRuntimeError)
)

// errCompile and errRuntime tag command failures with their documented
// exit code; commands print their own diagnostics before returning them.
var (
	errCompile = errors.New("compile error")
	errRuntime = errors.New("runtime error")
)

// exitErr carries an explicit exit code requested by the script (the exit
// native).
type exitErr int

func (e exitErr) Error() string { return fmt.Sprintf("exit with code %d", int(e)) }

type Cmd struct {
	BuildVersion string
	BuildDate    string

	Help    bool `flag:"h,help"`
	Version bool `flag:"v,version"`

	AllowAll bool `flag:"allow-all"`

	args  []string
	flags map[string]bool
	cmdFn func(context.Context, mainer.Stdio, []string) error
}

func (c *Cmd) SetArgs(args []string) {
	c.args = args
}

func (c *Cmd) SetFlags(flags map[string]bool) {
	c.flags = flags
}

func (c *Cmd) Validate() error {
	if c.Help || c.Version {
		return nil
	}

	if len(c.args) == 0 {
		return errors.New("no command specified")
	}

	cmdName := c.args[0]

	commands := buildCmds(c)
	c.cmdFn = commands[cmdName]
	if c.cmdFn == nil {
		return fmt.Errorf("unknown command: %s", c.args[0])
	}

	switch cmdName {
	case "run", "check", "disasm", "ast", "tokens":
		if len(c.args[1:]) == 0 {
			return fmt.Errorf("%s: a script file must be provided", cmdName)
		}
	}

	if c.flags["allow-all"] && cmdName != "run" && cmdName != "repl" {
		return fmt.Errorf("%s: invalid flag 'allow-all'", cmdName)
	}

	return nil
}

func (c *Cmd) Main(args []string, stdio mainer.Stdio) mainer.ExitCode {
	p := mainer.Parser{
		EnvVars:   false,
		EnvPrefix: binName + "_",
	}
	if err := p.Parse(args, c); err != nil {
		fmt.Fprintf(stdio.Stderr, "invalid arguments: %s\n%s", err, shortUsage)
		return mainer.InvalidArgs
	}

	switch {
	case c.Help:
		fmt.Fprint(stdio.Stdout, longUsage)
		return mainer.Success

	case c.Version:
		fmt.Fprintf(stdio.Stdout, "%s %s %s\n", binName, c.BuildVersion, c.BuildDate)
		return mainer.Success
	}

	ctx := mainer.CancelOnSignal(context.Background(), os.Interrupt)
	if err := c.cmdFn(ctx, stdio, c.args[1:]); err != nil {
		var code exitErr
		switch {
		case errors.As(err, &code):
			return mainer.ExitCode(code)
		case errors.Is(err, errCompile):
			return ExitCompileError
		case errors.Is(err, errRuntime):
			return ExitRuntimeError
		}
		return mainer.Failure
	}
	return mainer.Success
}

func (c *Cmd) Version2(ctx context.Context, stdio mainer.Stdio, args []string) error {
	fmt.Fprintf(stdio.Stdout, "%s %s %s\n", binName, c.BuildVersion, c.BuildDate)
	return nil
}

func (c *Cmd) Help2(ctx context.Context, stdio mainer.Stdio, args []string) error {
	fmt.Fprint(stdio.Stdout, longUsage)
	return nil
}

// valid commands are those that take a mainer.Stdio and a slice of strings
// as input, and return an error as output.
func buildCmds(v interface{}) map[string]func(context.Context, mainer.Stdio, []string) error {
	cmds := make(map[string]func(context.Context, mainer.Stdio, []string) error)

	vv := reflect.ValueOf(v)
	vt := vv.Type()
	for i := 0; i < vt.NumMethod(); i++ {
		m := vt.Method(i)
		mt := m.Type

		// must take 4 parameters (including receiver) and return 1
		if mt.NumIn() != 4 || mt.NumOut() != 1 {
			continue
		}

		if rt := mt.Out(0); rt.Kind() != reflect.Interface || rt.Name() != "error" {
			continue
		}
		if p0 := mt.In(0); p0.Kind() != reflect.Ptr || p0.Elem().Name() != "Cmd" {
			continue
		}
		if p1 := mt.In(1); p1.Kind() != reflect.Interface || p1.Name() != "Context" {
			continue
		}
		if p2 := mt.In(2); p2.Kind() != reflect.Struct || p2.Name() != "Stdio" {
			continue
		}
		if p3 := mt.In(3); p3.Kind() != reflect.Slice || p3.Elem().Name() != "string" {
			continue
		}
		name := strings.ToLower(m.Name)
		// Version and Help collide with the flag handling fields, so their
		// methods carry a suffix that maps back to the plain verb.
		name = strings.TrimSuffix(name, "2")
		cmds[name] = vv.Method(i).Interface().(func(context.Context, mainer.Stdio, []string) error)
	}
	return cmds
}
