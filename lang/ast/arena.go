package ast

// blockSize is the number of node slots held by a single arena block before
// a new one is chained on.
const blockSize = 256

// Arena is a bump allocator for parse-tree nodes: chained fixed-size
// blocks, bump-allocated within each. The parser allocates every node it
// constructs from an Arena; once a file has been compiled, the Arena (and
// every node it produced) can be dropped in one step instead of relying on
// the garbage collector to trace and free thousands of small
// individually-heap-allocated nodes.
type Arena struct {
	blocks [][]any
}

// NewArena returns an empty arena ready for use.
func NewArena() *Arena {
	return &Arena{blocks: [][]any{make([]any, 0, blockSize)}}
}

// New stores v in the arena and returns it, so call sites can write
// `n := ast.New(a, &SomeExpr{...})` and keep the allocation visible at the
// point of construction.
func New[T any](a *Arena, v T) T {
	last := &a.blocks[len(a.blocks)-1]
	if len(*last) == cap(*last) {
		a.blocks = append(a.blocks, make([]any, 0, blockSize))
		last = &a.blocks[len(a.blocks)-1]
	}
	*last = append(*last, v)
	return v
}

// Reset discards every node the arena produced. Call once the AST has been
// fully compiled and is no longer needed.
func (a *Arena) Reset() {
	a.blocks = [][]any{make([]any, 0, blockSize)}
}
