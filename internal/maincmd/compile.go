package maincmd

import (
	"fmt"
	"io"
	"os"

	"github.com/glipt-org/glipt/lang/ast"
	"github.com/glipt-org/glipt/lang/compiler"
	"github.com/glipt-org/glipt/lang/parser"
	"github.com/glipt-org/glipt/lang/scanner"
	"github.com/glipt-org/glipt/lang/value"
)

// parseFile reads and parses one script, printing any positioned errors to
// stderr and tagging failures as compile errors for the exit-code mapping.
func parseFile(stderr io.Writer, path string) (*ast.File, *ast.Arena, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return nil, nil, fmt.Errorf("%w: %s", errCompile, path)
	}
	file, arena, perr := parser.ParseFile(path, src)
	if perr != nil {
		printErrors(stderr, perr)
		return nil, nil, fmt.Errorf("%w: %s", errCompile, path)
	}
	return file, arena, nil
}

// compileFile parses and compiles one script into its top-level function.
// The parse arena is dropped once compilation finishes.
func compileFile(stderr io.Writer, path string) (*value.FunctionObj, error) {
	file, arena, err := parseFile(stderr, path)
	if err != nil {
		return nil, err
	}
	fn, cerr := compiler.Compile(file)
	arena.Reset()
	if cerr != nil {
		printErrors(stderr, cerr)
		return nil, fmt.Errorf("%w: %s", errCompile, path)
	}
	return fn, nil
}

func printErrors(w io.Writer, err error) {
	if list, ok := err.(scanner.ErrorList); ok {
		for _, e := range list {
			fmt.Fprintln(w, e)
		}
		return
	}
	fmt.Fprintln(w, err)
}
