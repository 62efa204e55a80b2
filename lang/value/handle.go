package value

// handle is an index into a handleTable's slot array. NaN-boxing a raw Go
// pointer into the spare bits of a quiet NaN is unsound: Go's collector
// must always be able to find a live pointer through ordinary memory, and
// nothing stops a future collector from moving objects. So the boxed
// payload indexes into objTable.slots -- real Go memory the collector
// scans -- instead of naming a raw address. lang/gc's sweep phase frees
// slots through release, keeping this table in step with the tracing
// collector instead of Go's own GC.
type handle uint32

type handleTable struct {
	slots  []Obj
	free   []handle
	lookup map[Obj]handle // one handle per object, so boxing is bit-stable
}

func newHandleTable() *handleTable {
	return &handleTable{
		slots:  make([]Obj, 0, 1024),
		lookup: make(map[Obj]handle, 1024),
	}
}

func (t *handleTable) alloc(o Obj) handle {
	if h, ok := t.lookup[o]; ok {
		return h
	}
	var h handle
	if n := len(t.free); n > 0 {
		h = t.free[n-1]
		t.free = t.free[:n-1]
		t.slots[h] = o
	} else {
		t.slots = append(t.slots, o)
		h = handle(len(t.slots) - 1)
	}
	t.lookup[o] = h
	return h
}

func (t *handleTable) get(h handle) Obj {
	return t.slots[h]
}

// release returns a handle to the free list and drops its reference so the
// object becomes eligible for Go's own GC once lang/gc has swept it.
func (t *handleTable) release(h handle) {
	if o := t.slots[h]; o != nil {
		delete(t.lookup, o)
	}
	t.slots[h] = nil
	t.free = append(t.free, h)
}

// ReleaseHandle frees the heap slot backing v, the hook lang/gc's sweep
// phase uses once it has determined v is unreachable. Calling it on a
// reachable Value corrupts the heap; only the collector should call this.
func ReleaseHandle(v Value) {
	if !v.IsObj() {
		return
	}
	objTable.release(handle(uint64(v) &^ (signBit | qnan)))
}

// EachObj calls fn once for every live handle in the global heap, in slot
// order, so lang/gc can build its mark-sweep worklist without needing to
// know how Values encode their handles.
func EachObj(fn func(v Value, o Obj)) {
	for i, o := range objTable.slots {
		if o != nil {
			h := handle(i)
			fn(Value(signBit|qnan|uint64(h)), o)
		}
	}
}
