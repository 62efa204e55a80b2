package gc_test

import (
	"testing"

	"github.com/glipt-org/glipt/lang/gc"
	"github.com/glipt-org/glipt/lang/value"
	"github.com/stretchr/testify/require"
)

// stubRoots is a minimal RootSource: a flat list of root values and an
// intern table swept the way the VM sweeps its own.
type stubRoots struct {
	roots []value.Value
	it    *value.InternTable
}

func (s *stubRoots) GCRoots() []value.Value { return s.roots }

func (s *stubRoots) PreSweep(isMarked func(value.Obj) bool) {
	if s.it != nil {
		s.it.RemoveIf(func(str *value.StringObj) bool { return !isMarked(str) })
	}
}

func TestCollectKeepsReachable(t *testing.T) {
	h := gc.NewHeap()
	roots := &stubRoots{}

	var it value.InternTable
	s := it.Intern("live string")
	list := &value.ListObj{Elems: []value.Value{value.ObjValue(s)}}
	roots.roots = append(roots.roots, value.ObjValue(list))

	h.Collect(roots)
	require.True(t, h.GrayEmpty(), "gray worklist must drain")
	require.True(t, h.IsMarked(list))
	require.True(t, h.IsMarked(s), "string reachable through the list")
}

func TestCollectFreesUnreachable(t *testing.T) {
	h := gc.NewHeap()
	roots := &stubRoots{}

	keep := &value.ListObj{}
	roots.roots = append(roots.roots, value.ObjValue(keep))
	drop := &value.ListObj{}
	dv := value.ObjValue(drop)
	_ = dv // boxed but not rooted

	h.Collect(roots)
	require.True(t, h.GrayEmpty())
	require.True(t, h.IsMarked(keep))
	require.False(t, h.IsMarked(drop))
	require.GreaterOrEqual(t, h.LastFreed, 1)
}

func TestCollectTracesCycles(t *testing.T) {
	h := gc.NewHeap()
	roots := &stubRoots{}

	var it value.InternTable
	key := it.Intern("self")
	m := &value.MapObj{}
	mv := value.ObjValue(m)
	m.Set(key, mv) // cycle: map contains itself
	roots.roots = append(roots.roots, mv)

	h.Collect(roots)
	require.True(t, h.GrayEmpty(), "a cyclic graph must not wedge the worklist")
	require.True(t, h.IsMarked(m))
}

func TestClosureAndUpvalueTracing(t *testing.T) {
	h := gc.NewHeap()
	roots := &stubRoots{}

	captured := &value.ListObj{}
	uv := &value.UpvalueObj{}
	uv.Location = &uv.Closed
	uv.Closed = value.ObjValue(captured)

	fn := &value.FunctionObj{Name: "f"}
	clos := &value.ClosureObj{Fn: fn, Upvalues: []*value.UpvalueObj{uv}}
	roots.roots = append(roots.roots, value.ObjValue(clos))

	h.Collect(roots)
	require.True(t, h.IsMarked(fn))
	require.True(t, h.IsMarked(uv))
	require.True(t, h.IsMarked(captured), "closed upvalue contents are reachable")
}

func TestPreSweepDropsDeadInternedStrings(t *testing.T) {
	h := gc.NewHeap()
	var it value.InternTable
	roots := &stubRoots{it: &it}

	live := it.Intern("live")
	dead := it.Intern("dead")
	_ = value.ObjValue(dead) // boxed, unrooted
	roots.roots = append(roots.roots, value.ObjValue(live))

	h.Collect(roots)
	require.True(t, h.IsMarked(live))
	require.False(t, h.IsMarked(dead))

	// re-interning the dead bytes must build a fresh object, not resurrect
	// the swept one
	fresh := it.Intern("dead")
	require.NotSame(t, dead, fresh)
	require.Same(t, live, it.Intern("live"))
}

func TestStressModeCollectsOnEveryAlloc(t *testing.T) {
	h := gc.NewHeap()
	h.Stress = true
	roots := &stubRoots{}

	l := &value.ListObj{}
	roots.roots = append(roots.roots, value.ObjValue(l))
	h.Alloc(16, roots)
	require.True(t, h.IsMarked(l), "stress alloc ran a full collection")
}

func TestThresholdTriggering(t *testing.T) {
	h := gc.NewHeap()
	roots := &stubRoots{}
	l := &value.ListObj{}
	roots.roots = append(roots.roots, value.ObjValue(l))

	h.Alloc(1024, roots) // way below the initial 1 MiB threshold
	require.False(t, h.IsMarked(l), "no collection below the watermark")

	h.Alloc(2<<20, roots)
	require.True(t, h.IsMarked(l), "crossing the watermark collects")
}
