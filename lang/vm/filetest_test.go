package vm_test

import (
	"bytes"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/glipt-org/glipt/internal/filetest"
	"github.com/glipt-org/glipt/lang/compiler"
	"github.com/glipt-org/glipt/lang/gc"
	"github.com/glipt-org/glipt/lang/natives"
	"github.com/glipt-org/glipt/lang/parser"
	"github.com/glipt-org/glipt/lang/vm"
	"github.com/stretchr/testify/require"
)

var testUpdateVMTests = flag.Bool("test.update-vm-tests", false, "If set, replace expected vm output files with actual results.")

// TestScriptOutputs runs every testdata script and diffs its stdout
// against the golden file in testdata/results.
func TestScriptOutputs(t *testing.T) {
	for _, name := range filetest.SourceFiles(t, "testdata", ".glipt") {
		name := name
		t.Run(name, func(t *testing.T) {
			out := runScriptFile(t, name, false)
			filetest.DiffOutput(t, name, out, filepath.Join("testdata", "results"), testUpdateVMTests)
		})
	}
}

// TestScriptOutputsUnderGCStress runs the same scripts with a collection
// forced on every allocation; the outputs must not change.
func TestScriptOutputsUnderGCStress(t *testing.T) {
	for _, name := range filetest.SourceFiles(t, "testdata", ".glipt") {
		name := name
		t.Run(name, func(t *testing.T) {
			out := runScriptFile(t, name, true)
			filetest.DiffOutput(t, name, out, filepath.Join("testdata", "results"), testUpdateVMTests)
		})
	}
}

func runScriptFile(t *testing.T, name string, stress bool) string {
	t.Helper()
	path := filepath.Join("testdata", name)
	src, err := os.ReadFile(path)
	require.NoError(t, err)

	file, arena, perr := parser.ParseFile(path, src)
	require.NoError(t, perr)
	fn, cerr := compiler.Compile(file)
	arena.Reset()
	require.NoError(t, cerr)

	var out, errOut bytes.Buffer
	th := &vm.Thread{Stdout: &out, Stderr: &errOut, Stdin: strings.NewReader(""), ScriptPath: path}
	if stress {
		h := gc.NewHeap()
		h.Stress = true
		th.Heap = h
	}
	natives.Register(th)
	_, rerr := th.Run(fn)
	require.NoError(t, rerr, "stderr: %s", errOut.String())
	return out.String()
}
