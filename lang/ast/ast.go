// Package ast defines the parse tree produced by the parser and consumed by
// the compiler. Nodes are allocated from an Arena (see arena.go) and are
// valid only until the arena backing them is dropped, which the driver does
// once compilation of a file completes.
package ast

import "github.com/glipt-org/glipt/lang/token"

// Node is implemented by every expression and statement node.
type Node interface {
	// Start returns the position of the node's first token.
	Start() token.Pos
}

// Expr is implemented by every expression node.
type Expr interface {
	Node
	exprNode()
}

// Stmt is implemented by every statement node.
type Stmt interface {
	Node
	stmtNode()
}

// Block is a sequence of statements sharing a lexical scope.
type Block struct {
	Stmts []Stmt
}

func (b *Block) Start() token.Pos {
	if len(b.Stmts) == 0 {
		return 0
	}
	return b.Stmts[0].Start()
}

// File is the root of a parsed source file: a top-level, implicitly
// function-scoped list of statements (the "script" function).
type File struct {
	Filename string
	Block    *Block
}
