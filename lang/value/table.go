package value

// Table is an open-addressing hash table with linear probing and
// tombstone deletion, keyed by interned *StringObj pointers. It is
// hand-rolled rather than built on a library map because the string
// interner needs a raw probe that compares (hash, length, bytes) while
// scanning through tombstones (see InternTable.find), which no
// off-the-shelf table exposes; the VM's own globals and module-cache
// maps, which need nothing of the sort, use github.com/dolthub/swiss.
type Table struct {
	// count includes tombstones: the load-factor check must account for
	// dead slots or a churning table would fill up with tombstones and
	// probes could no longer terminate.
	count   int
	live    int // live entries only
	entries []entry
}

type entry struct {
	key   *StringObj // nil means empty or tombstone
	value Value
	used  bool // true for a tombstone (key nil, used true)
}

const tableMaxLoad = 0.75

// Get looks up key, reporting whether it was present.
func (t *Table) Get(key *StringObj) (Value, bool) {
	if len(t.entries) == 0 {
		return Nil, false
	}
	e := findEntry(t.entries, key)
	if e.key == nil {
		return Nil, false
	}
	return e.value, true
}

// Set inserts or updates key. It reports whether this created a brand new
// key (as opposed to overwriting one already present).
func (t *Table) Set(key *StringObj, val Value) bool {
	if float64(t.count+1) > float64(len(t.entries))*tableMaxLoad {
		t.grow(growCapacity(len(t.entries)))
	}
	e := findEntry(t.entries, key)
	isNew := e.key == nil
	if isNew {
		t.live++
		if !e.used {
			t.count++
		}
	}
	e.key = key
	e.value = val
	e.used = true
	return isNew
}

// Delete removes key, leaving a tombstone so later linear probes still find
// entries that were inserted after a collision with it.
func (t *Table) Delete(key *StringObj) bool {
	if len(t.entries) == 0 {
		return false
	}
	e := findEntry(t.entries, key)
	if e.key == nil {
		return false
	}
	e.key = nil
	e.value = True // tombstone marker
	t.live--
	return true
}

// Len reports the number of live (non-tombstone) entries.
func (t *Table) Len() int { return t.live }

// Each calls fn for every live entry, in table slot order (not insertion
// order -- callers that need insertion order, like JSON map printing, must
// track it separately, as MapObj does; see MapObj.Keys).
func (t *Table) Each(fn func(key *StringObj, val Value)) {
	for _, e := range t.entries {
		if e.key != nil {
			fn(e.key, e.value)
		}
	}
}

func growCapacity(cap int) int {
	if cap < 8 {
		return 8
	}
	return cap * 2
}

func (t *Table) grow(newCap int) {
	newEntries := make([]entry, newCap)
	t.count = 0
	for _, e := range t.entries {
		if e.key == nil {
			continue
		}
		dst := findEntry(newEntries, e.key)
		dst.key = e.key
		dst.value = e.value
		dst.used = true
		t.count++
	}
	t.entries = newEntries
	t.live = t.count
}

// findEntry implements linear probing starting at key's hash modulo table
// capacity, returning the first empty slot or the slot already holding key,
// and preferring to reuse the first tombstone seen along the way so
// repeated insert/delete cycles don't leak slots.
func findEntry(entries []entry, key *StringObj) *entry {
	capacity := uint32(len(entries))
	idx := key.Hash % capacity
	var tombstone *entry
	for {
		e := &entries[idx]
		switch {
		case e.key == nil && !e.used:
			if tombstone != nil {
				return tombstone
			}
			return e
		case e.key == nil && e.used:
			if tombstone == nil {
				tombstone = e
			}
		case e.key == key:
			return e
		}
		idx = (idx + 1) % capacity
	}
}

// InternTable deduplicates strings by content: every equal string
// literal or concatenation result becomes the same *StringObj, so == can
// be pointer equality (Equal).
type InternTable struct {
	t Table
}

// InternObj canonicalizes obj: if an equal string is already interned that
// one is returned, otherwise obj itself is inserted and becomes canonical.
func (it *InternTable) InternObj(obj *StringObj) *StringObj {
	if found := it.find(obj.Chars, obj.Hash); found != nil {
		return found
	}
	it.t.Set(obj, Nil)
	return obj
}

// Intern returns the canonical *StringObj for s, creating and storing one
// on first use.
func (it *InternTable) Intern(s string) *StringObj {
	h := fnv1a(s)
	if found := it.find(s, h); found != nil {
		return found
	}
	obj := &StringObj{Chars: s, Hash: h}
	it.t.Set(obj, Nil)
	return obj
}

func (it *InternTable) find(s string, hash uint32) *StringObj {
	if it.t.count == 0 {
		return nil
	}
	capacity := uint32(len(it.t.entries))
	idx := hash % capacity
	for {
		e := &it.t.entries[idx]
		if e.key == nil && !e.used {
			return nil
		}
		if e.key != nil && e.key.Hash == hash && e.key.Chars == s {
			return e.key
		}
		idx = (idx + 1) % capacity
	}
}

// RemoveIf deletes every interned string for which drop returns true. The
// collector calls this right before its sweep phase so that an unmarked
// string is unlinked from the interner rather than resurrected by a later
// Intern of the same bytes.
func (it *InternTable) RemoveIf(drop func(*StringObj) bool) {
	var doomed []*StringObj
	it.t.Each(func(key *StringObj, _ Value) {
		if drop(key) {
			doomed = append(doomed, key)
		}
	})
	for _, key := range doomed {
		it.t.Delete(key)
	}
}

// NewString returns a fresh, un-interned StringObj with its hash
// precomputed. The compiler builds constant-pool strings with it; the VM
// canonicalizes them through its interner when it adopts a compiled
// function, so that pointer comparison works across compile units.
func NewString(s string) *StringObj {
	return &StringObj{Chars: s, Hash: fnv1a(s)}
}

// fnv1a is the 32-bit FNV-1a hash.
func fnv1a(s string) uint32 {
	var h uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 16777619
	}
	return h
}
