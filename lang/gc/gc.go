// Package gc implements glipt's tracing mark-sweep garbage collector:
// mark every root, trace through a gray worklist until it empties, then
// sweep every unmarked heap object. Go's own collector traces the handle
// table that backs lang/value.Value (see value/handle.go), so nothing here
// is load bearing for memory safety -- it exists because the language
// itself treats GC behavior as observable runtime behavior:
// byte-threshold triggering, a gray worklist that empties by the end of a
// collection, and every unmarked object freed.
package gc

import "github.com/glipt-org/glipt/lang/value"

// RootSource is implemented by the VM so the collector can find every live
// Value without importing lang/vm (which imports lang/gc).
type RootSource interface {
	// GCRoots returns every Value directly reachable from VM state: the
	// operand stack, call frame closures, open upvalues, globals, the module
	// cache, and any error value in flight.
	GCRoots() []value.Value
	// PreSweep runs between mark and sweep: the VM removes unmarked interned
	// strings from its string table here, so they are not resurrected by a
	// later Intern of the same bytes.
	PreSweep(isMarked func(value.Obj) bool)
}

// Heap tracks allocation bookkeeping and runs collections. One Heap
// corresponds to one running VM; it does not itself own object storage --
// that lives in lang/value's global handle table -- but it decides when to
// sweep it.
type Heap struct {
	bytesAllocated uint64
	nextGC         uint64
	Stress         bool // collect on every Alloc call, for testing

	gray   []value.Obj
	marked map[value.Obj]bool

	// LastFreed records how many objects the most recent Collect freed, for
	// tests asserting on GC behavior.
	LastFreed int
}

const initialNextGC = 1 << 20 // 1 MiB

// NewHeap returns a Heap ready to track a fresh VM.
func NewHeap() *Heap {
	return &Heap{nextGC: initialNextGC, marked: make(map[value.Obj]bool)}
}

// Alloc records nbytes of new allocation and runs a collection if the
// byte-threshold trigger (or Stress mode) says it's time. Callers in
// lang/vm invoke this whenever they create a heap object, with a rough
// size estimate per object kind.
func (h *Heap) Alloc(nbytes int, roots RootSource) {
	h.bytesAllocated += uint64(nbytes)
	if h.Stress || h.bytesAllocated > h.nextGC {
		h.Collect(roots)
	}
}

// BytesAllocated reports the running total of bytes recorded by Alloc;
// sweeping does not lower it.
func (h *Heap) BytesAllocated() uint64 { return h.bytesAllocated }

// Collect runs one full mark-sweep cycle.
func (h *Heap) Collect(roots RootSource) {
	for k := range h.marked {
		delete(h.marked, k)
	}
	h.gray = h.gray[:0]

	h.markRoots(roots)
	h.traceReferences()

	roots.PreSweep(func(o value.Obj) bool { return h.marked[o] })
	freed := h.sweep()
	h.LastFreed = freed

	h.nextGC = h.bytesAllocated * 2
	if h.nextGC < initialNextGC {
		h.nextGC = initialNextGC
	}
}

func (h *Heap) markRoots(roots RootSource) {
	for _, v := range roots.GCRoots() {
		h.markValue(v)
	}
}

func (h *Heap) markValue(v value.Value) {
	if v.IsObj() {
		h.markObj(v.AsObj())
	}
}

// markObj marks object as reachable (grays it) unless it already is.
func (h *Heap) markObj(o value.Obj) {
	if o == nil || h.marked[o] {
		return
	}
	h.marked[o] = true
	h.gray = append(h.gray, o)
}

// traceReferences drains the gray worklist, blackening each object by
// marking everything it in turn references, until the worklist is empty.
func (h *Heap) traceReferences() {
	for len(h.gray) > 0 {
		o := h.gray[len(h.gray)-1]
		h.gray = h.gray[:len(h.gray)-1]
		h.blacken(o)
	}
}

func (h *Heap) blacken(o value.Obj) {
	switch obj := o.(type) {
	case *value.ClosureObj:
		h.markObj(obj.Fn)
		for _, uv := range obj.Upvalues {
			if uv != nil { // capture may be mid-flight during a stress collect
				h.markObj(uv)
			}
		}
	case *value.FunctionObj:
		// Name and constant pool live on the Go heap directly (strings and a
		// slice of Values respectively); only the constants that are
		// themselves heap objects need tracing.
		if c, ok := obj.Chunk.(interface{ Constants() []value.Value }); ok {
			for _, v := range c.Constants() {
				h.markValue(v)
			}
		}
	case *value.UpvalueObj:
		if !obj.IsOpen() {
			h.markValue(obj.Closed)
		}
	case *value.ListObj:
		for _, v := range obj.Elems {
			h.markValue(v)
		}
	case *value.MapObj:
		obj.Table.Each(func(key *value.StringObj, val value.Value) {
			h.markObj(key)
			h.markValue(val)
		})
	case *value.StringObj, *value.NativeObj:
		// no outgoing references
	}
}

// sweep frees every heap handle that wasn't marked reachable this cycle,
// returning the count of objects freed.
func (h *Heap) sweep() int {
	var dead []value.Value
	value.EachObj(func(v value.Value, o value.Obj) {
		if !h.marked[o] {
			dead = append(dead, v)
		}
	})
	for _, v := range dead {
		value.ReleaseHandle(v)
	}
	return len(dead)
}

// GrayEmpty reports whether the gray worklist is empty, the postcondition
// every completed collection must satisfy.
func (h *Heap) GrayEmpty() bool { return len(h.gray) == 0 }

// IsMarked reports whether o survived the most recent collection. Exposed
// for tests exercising the mark phase directly.
func (h *Heap) IsMarked(o value.Obj) bool { return h.marked[o] }
