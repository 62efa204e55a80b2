// Package vm implements the glipt virtual machine: a stack-based bytecode
// interpreter with call frames, closures over captured upvalues, first-class
// error handlers, a capability-gated native runtime and a source-file module
// loader. One Thread owns one value stack, one heap and one global
// namespace; nothing is shared across threads.
package vm

import (
	"io"
	"os"

	"github.com/dolthub/swiss"
	"github.com/glipt-org/glipt/lang/gc"
	"github.com/glipt-org/glipt/lang/permission"
	"github.com/glipt-org/glipt/lang/value"
)

const (
	// FramesMax is the call-frame capacity of a Thread.
	FramesMax = 256
	// StackMax is the value stack capacity: FramesMax frames of up to 256
	// slots each.
	StackMax = FramesMax * 256
	// handlersMax caps the depth of nested error handlers.
	handlersMax = 256

	// icSize is the number of entries in the direct-mapped global inline
	// cache.
	icSize = 64
)

// frame is one suspended activation: the closure being executed, its
// instruction pointer and the stack index of its slot 0 (the callee).
type frame struct {
	closure *value.ClosureObj
	ip      int
	base    int
}

// handler is a bookmark the VM restores to when an error is raised inside
// its protected region.
type handler struct {
	ip         int // absolute offset of the handler code in the pushing frame
	frameCount int
	stackTop   int
}

// icEntry is one slot of the global inline cache: a name hit is valid only
// while gen matches the thread's globalsGen (any new or deleted global name
// bumps it).
type icEntry struct {
	name *value.StringObj
	val  value.Value
	gen  uint64
}

// Thread is a glipt interpreter instance. The exported fields configure it
// and must be set before Run; the zero value of each picks a sensible
// default.
type Thread struct {
	// Stdout, Stderr and Stdin are the standard I/O abstractions used by the
	// print/input natives and error reporting. If nil, the process streams
	// are used.
	Stdout io.Writer
	Stderr io.Writer
	Stdin  io.Reader

	// Args holds the script arguments exposed as sys.args.
	Args []string

	// ScriptPath is the path of the running script, used to resolve module
	// imports relative to its directory.
	ScriptPath string

	// Perms is the thread's capability store, consulted by privileged
	// natives.
	Perms permission.Set

	// Heap drives GC triggering. If nil, Run creates one.
	Heap *gc.Heap

	stack    []value.Value
	stackTop int

	frames     []frame
	frameCount int

	handlers []handler

	globals    *swiss.Map[string, value.Value]
	globalsGen uint64
	icache     [icSize]icEntry

	modules *swiss.Map[string, value.Value]

	interner value.InternTable

	openUpvalues *value.UpvalueObj

	hasError     bool
	currentError value.Value
}

// init lazily prepares the fixed-size stacks and tables.
func (th *Thread) init() {
	if th.stack != nil {
		return
	}
	th.stack = make([]value.Value, StackMax)
	th.frames = make([]frame, FramesMax)
	th.handlers = make([]handler, 0, handlersMax)
	th.globals = swiss.NewMap[string, value.Value](64)
	th.modules = swiss.NewMap[string, value.Value](8)
	th.currentError = value.Nil
	if th.Heap == nil {
		th.Heap = gc.NewHeap()
	}
	if th.Stdout == nil {
		th.Stdout = os.Stdout
	}
	if th.Stderr == nil {
		th.Stderr = os.Stderr
	}
	if th.Stdin == nil {
		th.Stdin = os.Stdin
	}
}

// ---- stack ----

func (th *Thread) push(v value.Value) {
	th.stack[th.stackTop] = v
	th.stackTop++
}

func (th *Thread) pop() value.Value {
	th.stackTop--
	return th.stack[th.stackTop]
}

func (th *Thread) peek(distance int) value.Value {
	return th.stack[th.stackTop-1-distance]
}

// ---- allocation helpers ----

// track accounts size bytes of fresh allocation for v, keeping v rooted on
// the stack across the potential collection so a stress-mode GC cannot
// sweep it before the caller has stored it anywhere.
func (th *Thread) track(v value.Value, size int) value.Value {
	th.push(v)
	th.Heap.Alloc(size, th)
	th.pop()
	return v
}

// Protect roots v on the value stack while a native builds a composite
// that is not yet reachable from anywhere the collector scans; pair with
// Unprotect.
func (th *Thread) Protect(v value.Value) {
	th.init()
	th.push(v)
}

// Unprotect drops the n most recent Protect roots.
func (th *Thread) Unprotect(n int) {
	th.stackTop -= n
}

// Intern returns the canonical interned string object for s.
func (th *Thread) Intern(s string) *value.StringObj {
	return th.interner.Intern(s)
}

// StringValue boxes s as an interned string Value.
func (th *Thread) StringValue(s string) value.Value {
	th.init()
	return th.track(value.ObjValue(th.Intern(s)), len(s)+16)
}

// NewList boxes a fresh list holding elems (which is used directly, not
// copied).
func (th *Thread) NewList(elems []value.Value) value.Value {
	th.init()
	l := &value.ListObj{Elems: elems}
	return th.track(value.ObjValue(l), 24+16*len(elems))
}

// NewMap boxes a fresh empty map.
func (th *Thread) NewMap() (*value.MapObj, value.Value) {
	th.init()
	m := &value.MapObj{}
	return m, th.track(value.ObjValue(m), 48)
}

// SetField sets m[key] = v. The key is interned only after v has been
// fully built: interning first and allocating v afterwards would let a
// stress-mode collection sweep the not-yet-anchored key out of the weak
// intern table. m must already be rooted (Protect or reachable).
func (th *Thread) SetField(m *value.MapObj, key string, v value.Value) {
	m.Set(th.Intern(key), v)
}

// ---- globals ----

// DefineGlobal binds name in the global namespace, creating it if absent.
// Natives and the CLI use it to install the builtin environment.
func (th *Thread) DefineGlobal(name string, v value.Value) {
	th.init()
	if !th.globals.Has(name) {
		th.globalsGen++
	}
	th.globals.Put(name, v)
}

// GetGlobal looks up name in the global namespace.
func (th *Thread) GetGlobal(name string) (value.Value, bool) {
	th.init()
	return th.globals.Get(name)
}

func (th *Thread) deleteGlobal(name string) {
	if th.globals.Delete(name) {
		th.globalsGen++
	}
}

// globalByName reads a global through the inline cache: a direct-mapped
// slot keyed by the interned name's hash holds the last value read for
// that name, valid as long as no global name has been added or removed
// since (globalsGen stands in for watching the table's capacity, which
// the swiss map does not expose).
func (th *Thread) globalByName(name *value.StringObj) (value.Value, bool) {
	slot := &th.icache[name.Hash%icSize]
	if slot.name == name && slot.gen == th.globalsGen {
		return slot.val, true
	}
	v, ok := th.globals.Get(name.Chars)
	if !ok {
		return value.Nil, false
	}
	*slot = icEntry{name: name, val: v, gen: th.globalsGen}
	return v, true
}

// setGlobalByName writes a global, Lua-style: an assignment to an unknown
// name creates it. The inline cache entry for the name is refreshed.
func (th *Thread) setGlobalByName(name *value.StringObj, v value.Value) {
	if !th.globals.Has(name.Chars) {
		th.globalsGen++
	}
	th.globals.Put(name.Chars, v)
	slot := &th.icache[name.Hash%icSize]
	*slot = icEntry{name: name, val: v, gen: th.globalsGen}
}

// ---- GC root reporting ----

// GCRoots implements gc.RootSource.
func (th *Thread) GCRoots() []value.Value {
	roots := make([]value.Value, 0, th.stackTop+th.frameCount+16)
	roots = append(roots, th.stack[:th.stackTop]...)
	for i := 0; i < th.frameCount; i++ {
		roots = append(roots, value.ObjValue(th.frames[i].closure))
	}
	for uv := th.openUpvalues; uv != nil; uv = uv.Next {
		roots = append(roots, value.ObjValue(uv))
	}
	if th.globals != nil {
		th.globals.Iter(func(_ string, v value.Value) bool {
			roots = append(roots, v)
			return false
		})
		th.modules.Iter(func(_ string, v value.Value) bool {
			roots = append(roots, v)
			return false
		})
	}
	if th.hasError {
		roots = append(roots, th.currentError)
	}
	return roots
}

// PreSweep implements gc.RootSource: unmarked interned strings are removed
// from the intern table so a later Intern of the same bytes cannot
// resurrect a freed object.
func (th *Thread) PreSweep(isMarked func(value.Obj) bool) {
	th.interner.RemoveIf(func(s *value.StringObj) bool {
		return !isMarked(s)
	})
}
