package value

// StringObj is an interned string. Equality between two interned strings is
// pointer equality (see Equal), which is why every StringObj in a running
// VM is created through Table.Intern rather than &StringObj{...} directly.
type StringObj struct {
	Chars string
	Hash  uint32
}

func (*StringObj) objKind() ObjKind { return ObjString }

// ListObj is a growable, 0-indexed sequence of Values.
type ListObj struct {
	Elems []Value
}

func (*ListObj) objKind() ObjKind { return ObjList }

// MapObj is glipt's associative container: an open-addressing table keyed
// by interned string pointers (see table.go), exposed to user code as the
// `{}` literal type and natives like keys/values/contains. First-insertion
// order of keys is tracked on the side so keys/values/to_json iterate
// deterministically.
type MapObj struct {
	Table Table
	order []*StringObj
}

func (*MapObj) objKind() ObjKind { return ObjMap }

// Set inserts or updates key, reporting whether the key is new.
func (m *MapObj) Set(key *StringObj, val Value) bool {
	isNew := m.Table.Set(key, val)
	if isNew {
		m.order = append(m.order, key)
	}
	return isNew
}

// Get looks up key.
func (m *MapObj) Get(key *StringObj) (Value, bool) { return m.Table.Get(key) }

// Delete removes key, reporting whether it was present.
func (m *MapObj) Delete(key *StringObj) bool {
	if !m.Table.Delete(key) {
		return false
	}
	for i, k := range m.order {
		if k == key {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return true
}

// Len reports the number of live entries.
func (m *MapObj) Len() int { return m.Table.Len() }

// Keys returns the live keys in first-insertion order.
func (m *MapObj) Keys() []*StringObj { return m.order }

// FunctionObj is a compiled function prototype: its bytecode, constant
// pool, arity and the number of upvalues it closes over. It is not
// itself callable -- a ClosureObj wraps one with its captured upvalues.
type FunctionObj struct {
	Name       string
	Arity      int
	UpvalCount int
	Chunk      Chunk
}

func (*FunctionObj) objKind() ObjKind { return ObjFunction }

// Chunk is implemented in lang/compiler; value only needs the name to avoid
// an import cycle (compiler depends on value, not the reverse), so Chunk is
// declared as an opaque interface here and asserted back to
// *compiler.Chunk at the call sites that need it (the VM).
type Chunk interface{}

// UpvalueObj is a reference cell that lets a closure share a captured local
// with the frame that owns it (while open) or hold its own copy (once
// closed).
type UpvalueObj struct {
	// Location points at the stack slot this upvalue reads and writes while
	// open; Closed holds the value once the frame that owned the slot has
	// returned (see lang/vm's closeUpvalues).
	Location *Value
	Closed   Value
	// Slot is the stack index Location points at while open; the VM's
	// open-upvalue list is kept sorted by descending Slot.
	Slot int
	open bool
	Next *UpvalueObj // next node in the VM's sorted open-upvalue list
}

func (*UpvalueObj) objKind() ObjKind { return ObjUpvalue }

func (u *UpvalueObj) IsOpen() bool { return u.open }

func NewOpenUpvalue(slot *Value, index int) *UpvalueObj {
	return &UpvalueObj{Location: slot, Slot: index, open: true}
}

func (u *UpvalueObj) Close() {
	u.Closed = *u.Location
	u.Location = &u.Closed
	u.open = false
}

// ClosureObj pairs a FunctionObj with the upvalues it captured at creation
// time.
type ClosureObj struct {
	Fn       *FunctionObj
	Upvalues []*UpvalueObj
}

func (*ClosureObj) objKind() ObjKind { return ObjClosure }

// NativeFn is the signature every builtin and stdlib-module function
// implements. ctx is an opaque handle (the VM casts it back to its own
// *vm.Thread); native functions that don't need VM access ignore it. args
// is a read-write window into the value stack, valid until the native
// returns.
type NativeFn func(ctx any, args []Value) (Value, error)

// NativeObj wraps a NativeFn so it can be boxed as an ordinary callable
// Value.
// Arity -1 means variadic; any other value is enforced by the VM before the
// call.
type NativeObj struct {
	Name  string
	Arity int
	Fn    NativeFn
}

func (*NativeObj) objKind() ObjKind { return ObjNative }
