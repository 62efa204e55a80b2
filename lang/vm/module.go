package vm

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/glipt-org/glipt/lang/compiler"
	"github.com/glipt-org/glipt/lang/parser"
	"github.com/glipt-org/glipt/lang/value"
)

// ModuleExt is the implied extension of glipt source files.
const ModuleExt = ".glipt"

// importModule implements the Import instruction: load the module source at
// path (resolved relative to the running script's directory, .glipt
// implied), execute its top level in this same thread, and bind the map of
// globals it defined under bind. Loaded modules are cached by resolved
// path, so a diamond import runs the module once.
func (th *Thread) importModule(path, bind string) error {
	full := th.resolveModulePath(path)

	if cached, ok := th.modules.Get(full); ok {
		th.DefineGlobal(bind, cached)
		return nil
	}

	src, err := os.ReadFile(full)
	if err != nil {
		return th.faultf("Could not open module '%s' (resolved to '%s').", path, full)
	}

	file, _, perr := parser.ParseFile(full, src)
	if perr != nil {
		return th.faultf("Compilation error in module '%s': %s", path, perr)
	}
	fn, cerr := compiler.Compile(file)
	if cerr != nil {
		return th.faultf("Compilation error in module '%s': %s", path, cerr)
	}
	th.adoptFunction(fn)

	// Snapshot the global key set so the module's own definitions can be
	// diffed out afterwards.
	before := make(map[string]bool, 64)
	th.globals.Iter(func(k string, _ value.Value) bool {
		before[k] = true
		return false
	})

	// Run the module top level in this thread, against this heap, with the
	// module's own directory as the base for its nested imports.
	savedScript := th.ScriptPath
	th.ScriptPath = full

	clos := &value.ClosureObj{Fn: fn}
	th.push(th.track(value.ObjValue(clos), 32))
	if err := th.callClosure(clos, 0); err != nil {
		th.ScriptPath = savedScript
		return err
	}
	_, rerr := th.run(th.frameCount - 1)
	th.ScriptPath = savedScript
	if rerr != nil {
		return rerr
	}
	if th.hasError {
		// A raised error escaped the module top level; leave it pending for
		// the importing frame's dispatch.
		return nil
	}

	// Everything the module added to globals becomes its exported
	// namespace, and is removed from the real globals to keep them clean.
	exports, ev := th.NewMap()
	th.push(ev)
	var added []string
	th.globals.Iter(func(k string, v value.Value) bool {
		if !before[k] {
			exports.Set(th.Intern(k), v)
			added = append(added, k)
		}
		return false
	})
	for _, k := range added {
		th.deleteGlobal(k)
	}
	th.pop()

	th.modules.Put(full, ev)
	th.DefineGlobal(bind, ev)
	return nil
}

// resolveModulePath resolves an import path relative to the directory of
// the currently-executing script and appends the .glipt extension when
// missing.
func (th *Thread) resolveModulePath(path string) string {
	full := path
	if th.ScriptPath != "" && !filepath.IsAbs(path) {
		full = filepath.Join(filepath.Dir(th.ScriptPath), path)
	}
	if !strings.HasSuffix(full, ModuleExt) {
		full += ModuleExt
	}
	return full
}
